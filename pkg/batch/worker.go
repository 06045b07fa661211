package batch

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/yourorg/pdf-toolkit/pkg/blobclient"
	"github.com/yourorg/pdf-toolkit/pkg/errors"
	"github.com/yourorg/pdf-toolkit/pkg/history"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
	"github.com/yourorg/pdf-toolkit/pkg/processor"
	"github.com/yourorg/pdf-toolkit/pkg/servicebusclient"
	"github.com/yourorg/pdf-toolkit/pkg/utils"
)

// Runner runs one tool request.
type Runner interface {
	Run(ctx context.Context, req processor.Request) (*processor.Result, error)
}

// Alerter is told about failed jobs.
type Alerter interface {
	SendJobFailedAlert(ctx context.Context, jobID, tool, owner, errorMsg string) error
}

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	Queue         string
	Workers       int
	ReceiveWait   time.Duration
	MaxDeliveries uint32
	Retry         utils.RetryConfig
}

// Worker consumes the job queue.
type Worker struct {
	blobs    blobclient.BlobClient
	bus      servicebusclient.ServiceBusClient
	jobs     JobStore
	runner   Runner
	history  history.Store
	alerter  Alerter
	cfg      WorkerConfig
	logger   logging.Logger
	consumer *servicebusclient.Consumer
}

// WorkerDeps are the collaborators of a Worker. History and Alerter are
// optional.
type WorkerDeps struct {
	Blobs   blobclient.BlobClient
	Bus     servicebusclient.ServiceBusClient
	Jobs    JobStore
	Runner  Runner
	History history.Store
	Alerter Alerter
}

// NewWorker returns a Worker.
func NewWorker(deps WorkerDeps, cfg WorkerConfig, logger logging.Logger) (*Worker, error) {
	if deps.Blobs == nil || deps.Bus == nil || deps.Jobs == nil || deps.Runner == nil {
		return nil, fmt.Errorf("batch worker needs blobs, bus, jobs and runner")
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = utils.DefaultRetryConfig()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	w := &Worker{
		blobs:   deps.Blobs,
		bus:     deps.Bus,
		jobs:    deps.Jobs,
		runner:  deps.Runner,
		history: deps.History,
		alerter: deps.Alerter,
		cfg:     cfg,
		logger:  logger.With(logging.NewField("component", "batch.worker")),
	}

	consumer, err := servicebusclient.NewConsumer(deps.Bus, servicebusclient.ConsumerConfig{
		Queue:         cfg.Queue,
		Workers:       cfg.Workers,
		MaxMessages:   1,
		ReceiveWait:   cfg.ReceiveWait,
		MaxDeliveries: cfg.MaxDeliveries,
		Logger:        w.logger,
	}, w.Handle)
	if err != nil {
		return nil, err
	}
	w.consumer = consumer
	return w, nil
}

// Start starts consuming in the background.
func (w *Worker) Start(ctx context.Context) {
	w.consumer.Start(ctx)
}

// Stop waits for in-flight jobs.
func (w *Worker) Stop(ctx context.Context) error {
	return w.consumer.Stop(ctx)
}

// Handle runs one queued job. Tool failures end the job and complete the
// message; storage failures are returned so the message is redelivered.
func (w *Worker) Handle(ctx context.Context, msg servicebusclient.Message) error {
	jm, err := decodeMessage(msg.Body)
	if err != nil {
		w.logger.Error("Dropping malformed job message",
			logging.NewField("messageID", msg.ID),
			logging.NewField("error", err))
		return fmt.Errorf("%w: %v", servicebusclient.ErrDeadLetter, err)
	}

	fields := []logging.Field{
		logging.NewField("job_id", jm.JobID),
		logging.NewField("tool", jm.Tool),
		logging.NewField("delivery", msg.DeliveryCount),
	}
	ctx = logging.WithCorrelation(ctx, logging.JobIDKey, jm.JobID)
	if traceID, ok := msg.Properties[traceIDProperty].(string); ok && traceID != "" {
		ctx = logging.WithCorrelation(ctx, logging.TraceIDKey, traceID)
		fields = append(fields, logging.NewField("trace_id", traceID))
	}
	logger := w.logger.With(fields...)
	ctx = logging.WithLogger(ctx, logger)

	job, err := w.start(ctx, jm)
	if err != nil {
		return err
	}
	if job.Status.Done() {
		logger.Info("Job already finished, skipping redelivery")
		return nil
	}

	files, err := w.download(ctx, jm.Inputs)
	if err != nil {
		if stderrors.Is(err, blobclient.ErrBlobNotFound) {
			return w.fail(ctx, job, errors.NewNotFoundError("job input is no longer available"))
		}
		return w.retryable(ctx, job, msg, err)
	}

	req := processor.Request{Tool: jm.Tool, Files: files, Params: jm.Params, Source: "job"}
	res, runErr := w.runner.Run(ctx, req)
	if runErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.record(ctx, job.Owner, req, nil, runErr)
		return w.fail(ctx, job, runErr)
	}

	outputs, err := w.upload(ctx, job, res.Files)
	if err != nil {
		return w.retryable(ctx, job, msg, err)
	}

	now := time.Now().UTC()
	if _, err := w.jobs.Update(ctx, job.ID, func(j *Job) {
		j.Status = StatusSuccess
		j.Outputs = outputs
		j.Warnings = res.Warnings
		j.Error, j.ErrorCode = "", ""
		j.CompletedAt = &now
	}); err != nil {
		return err
	}
	w.record(ctx, job.Owner, req, res, nil)

	logger.Info("Job completed",
		logging.NewField("outputs", len(outputs)),
		logging.NewField("result_size", res.ResultSize))
	return nil
}

// start marks the job running. A job submitted by another process is created
// from the message.
func (w *Worker) start(ctx context.Context, jm jobMessage) (Job, error) {
	now := time.Now().UTC()
	running := func(j *Job) {
		if j.Status.Done() {
			return
		}
		j.Status = StatusRunning
		j.Attempts++
		j.StartedAt = &now
	}

	job, err := w.jobs.Update(ctx, jm.JobID, running)
	if err == nil {
		return job, nil
	}
	if errors.CodeOf(err) != errors.ErrorCodeNotFound {
		return Job{}, err
	}

	job = Job{
		ID:        jm.JobID,
		Owner:     jm.Owner,
		Tool:      jm.Tool,
		Params:    jm.Params,
		Inputs:    jm.Inputs,
		CreatedAt: now,
	}
	running(&job)
	if err := w.jobs.Create(ctx, job); err != nil {
		return Job{}, err
	}
	return job, nil
}

func (w *Worker) download(ctx context.Context, refs []BlobRef) ([]processor.InputFile, error) {
	files := make([]processor.InputFile, 0, len(refs))
	for _, ref := range refs {
		data, err := utils.RetryWithResult(ctx, w.cfg.Retry, func() ([]byte, error) {
			data, err := w.blobs.Download(ctx, ref.Blob)
			if stderrors.Is(err, blobclient.ErrBlobNotFound) {
				return nil, utils.Permanent(err)
			}
			return data, err
		})
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", ref.Blob, err)
		}
		files = append(files, processor.InputFile{Name: ref.Name, ContentType: ref.ContentType, Data: data})
	}
	return files, nil
}

func (w *Worker) upload(ctx context.Context, job Job, files []processor.OutputFile) ([]BlobRef, error) {
	refs := make([]BlobRef, 0, len(files))
	for _, f := range files {
		ref := BlobRef{
			Name:        f.Name,
			Blob:        outputBlob(job.ID, f.Name),
			ContentType: f.ContentType,
			Size:        f.Size(),
		}
		err := utils.Retry(ctx, w.cfg.Retry, func() error {
			_, err := w.blobs.Upload(ctx, ref.Blob, f.Data, blobclient.UploadOptions{
				ContentType: f.ContentType,
				Metadata:    map[string]string{"job": job.ID, "owner": job.Owner},
			})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", ref.Blob, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// fail ends the job with err and completes the message.
func (w *Worker) fail(ctx context.Context, job Job, err error) error {
	appErr := errors.FromError(err)
	now := time.Now().UTC()
	if _, uerr := w.jobs.Update(ctx, job.ID, func(j *Job) {
		j.Status = StatusError
		j.Error = appErr.Message
		j.ErrorCode = string(appErr.Code)
		j.CompletedAt = &now
	}); uerr != nil {
		return uerr
	}

	logger := logging.FromContext(ctx)
	logger.Warn("Job failed",
		logging.NewField("error_code", appErr.Code),
		logging.NewField("error", err))

	if w.alerter != nil {
		if aerr := w.alerter.SendJobFailedAlert(ctx, job.ID, job.Tool, job.Owner, appErr.Message); aerr != nil {
			logger.Warn("Failed to send job alert", logging.NewField("error", aerr))
		}
	}
	return nil
}

// retryable returns err for redelivery. On the last allowed delivery the job
// is marked failed first so it does not stay running forever.
func (w *Worker) retryable(ctx context.Context, job Job, msg servicebusclient.Message, err error) error {
	if w.cfg.MaxDeliveries > 0 && msg.DeliveryCount >= w.cfg.MaxDeliveries {
		if ferr := w.fail(ctx, job, errors.NewServiceUnavailableError("job storage unavailable", err)); ferr != nil {
			logging.FromContext(ctx).Error("Could not mark job failed after last delivery",
				logging.NewField("error", ferr),
				logging.NewField("cause", err))
		}
	}
	return err
}

func (w *Worker) record(ctx context.Context, owner string, req processor.Request, res *processor.Result, runErr error) {
	if w.history == nil {
		return
	}
	if _, err := w.history.Add(ctx, processor.HistoryEntry(owner, req, res, runErr)); err != nil {
		logging.FromContext(ctx).Warn("Failed to record history", logging.NewField("error", err))
	}
}
