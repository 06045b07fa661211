package batch

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/yourorg/pdf-toolkit/pkg/blobclient"
	"github.com/yourorg/pdf-toolkit/pkg/errors"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
	"github.com/yourorg/pdf-toolkit/pkg/processor"
	"github.com/yourorg/pdf-toolkit/pkg/servicebusclient"
	"github.com/yourorg/pdf-toolkit/pkg/utils"
)

// Submitter queues jobs.
type Submitter struct {
	blobs  blobclient.BlobClient
	bus    servicebusclient.ServiceBusClient
	jobs   JobStore
	queue  string
	limits processor.Limits
	retry  utils.RetryConfig
	logger logging.Logger
}

// SubmitterConfig configures a Submitter.
type SubmitterConfig struct {
	Queue  string
	Limits processor.Limits
	Retry  utils.RetryConfig
}

// NewSubmitter returns a Submitter.
func NewSubmitter(blobs blobclient.BlobClient, bus servicebusclient.ServiceBusClient, jobs JobStore, cfg SubmitterConfig, logger logging.Logger) *Submitter {
	if cfg.Limits.MaxFiles == 0 {
		cfg.Limits = processor.DefaultLimits()
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = utils.DefaultRetryConfig()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Submitter{
		blobs:  blobs,
		bus:    bus,
		jobs:   jobs,
		queue:  cfg.Queue,
		limits: cfg.Limits,
		retry:  cfg.Retry,
		logger: logger.With(logging.NewField("component", "batch.submitter")),
	}
}

// Submit validates the request, stores the inputs and queues the job. The
// returned job is pending.
func (s *Submitter) Submit(ctx context.Context, owner string, req processor.Request) (Job, error) {
	tool, ok := processor.Lookup(req.Tool)
	if !ok {
		return Job{}, errors.NewNotFoundError(fmt.Sprintf("unknown tool %q", req.Tool))
	}
	if !tool.Available {
		return Job{}, errors.NewNotImplementedError(fmt.Sprintf("%s is not available", tool.Name))
	}
	if err := processor.ValidateFiles(req.Files, tool, s.limits); err != nil {
		return Job{}, err
	}

	job := Job{
		ID:        utils.GenerateJobID(),
		Owner:     owner,
		Tool:      tool.Slug,
		Params:    req.Params,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	logger := s.logger.With(
		logging.NewField("job_id", job.ID),
		logging.NewField("tool", job.Tool),
	)

	for i, f := range req.Files {
		ref := BlobRef{
			Name:        f.Name,
			Blob:        inputBlob(job.ID, i, f.Name),
			ContentType: f.ContentType,
			Size:        f.Size(),
		}
		err := utils.Retry(ctx, s.retry, func() error {
			_, err := s.blobs.Upload(ctx, ref.Blob, f.Data, blobclient.UploadOptions{
				ContentType: f.ContentType,
				Metadata:    map[string]string{"job": job.ID, "owner": owner},
			})
			return err
		})
		if err != nil {
			logger.Error("Failed to store job input", logging.NewField("blob", ref.Blob), logging.NewField("error", err))
			s.cleanup(job.ID)
			return Job{}, errors.NewServiceUnavailableError("could not store job input", err)
		}
		job.Inputs = append(job.Inputs, ref)
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		s.cleanup(job.ID)
		return Job{}, err
	}

	body, err := json.Marshal(jobMessage{
		JobID:  job.ID,
		Owner:  owner,
		Tool:   job.Tool,
		Params: job.Params,
		Inputs: job.Inputs,
	})
	if err != nil {
		return Job{}, fmt.Errorf("encode job message: %w", err)
	}

	props := map[string]interface{}{"tool": job.Tool}
	if traceID := logging.Correlation(ctx, logging.TraceIDKey); traceID != "" {
		props[traceIDProperty] = traceID
	}
	err = utils.Retry(ctx, s.retry, func() error {
		_, err := s.bus.Send(ctx, s.queue, body,
			servicebusclient.WithMessageID(job.ID),
			servicebusclient.WithContentType(ContentTypeJob),
			servicebusclient.WithProperties(props),
		)
		return err
	})
	if err != nil {
		logger.Error("Failed to queue job", logging.NewField("error", err))
		_, _ = s.jobs.Update(ctx, job.ID, func(j *Job) {
			j.Status = StatusError
			j.Error = "could not queue job"
			j.ErrorCode = string(errors.ErrorCodeServiceUnavailable)
		})
		s.cleanup(job.ID)
		return Job{}, errors.NewServiceUnavailableError("could not queue job", err)
	}

	logger.Info("Job queued", logging.NewField("inputs", len(job.Inputs)))
	return job, nil
}

// cleanup removes stored inputs of a job that never made it onto the queue.
func (s *Submitter) cleanup(jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := blobclient.DeletePrefix(ctx, s.blobs, jobPrefix(jobID)); err != nil {
		s.logger.Warn("Failed to clean up job blobs",
			logging.NewField("job_id", jobID),
			logging.NewField("error", err))
	}
}

// Get returns the owner's job.
func (s *Submitter) Get(ctx context.Context, owner, id string) (Job, error) {
	return s.jobs.Get(ctx, owner, id)
}

// List returns the owner's jobs, newest first.
func (s *Submitter) List(ctx context.Context, owner string) ([]Job, error) {
	return s.jobs.List(ctx, owner)
}

// Download returns one output of a finished job.
func (s *Submitter) Download(ctx context.Context, owner, id, name string) (BlobRef, []byte, error) {
	job, err := s.jobs.Get(ctx, owner, id)
	if err != nil {
		return BlobRef{}, nil, err
	}
	if job.Status != StatusSuccess {
		return BlobRef{}, nil, errors.NewBadRequestError(fmt.Sprintf("job %s is %s", id, job.Status))
	}
	ref, ok := job.Output(name)
	if !ok {
		return BlobRef{}, nil, errors.NewNotFoundError(fmt.Sprintf("job %s has no output %q", id, name))
	}
	data, err := s.blobs.Download(ctx, ref.Blob)
	if err != nil {
		if stderrors.Is(err, blobclient.ErrBlobNotFound) {
			return BlobRef{}, nil, errors.NewNotFoundError(fmt.Sprintf("output %q has expired", name))
		}
		return BlobRef{}, nil, err
	}
	return ref, data, nil
}
