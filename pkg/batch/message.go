package batch

import (
	"encoding/json"
	"fmt"
	"path"
	"regexp"

	"github.com/yourorg/pdf-toolkit/pkg/processor"
)

// ContentTypeJob is the content type of queued job messages.
const ContentTypeJob = "application/vnd.pdf-toolkit.job+json"

// traceIDProperty carries the submitting request's trace ID to the worker.
const traceIDProperty = "trace_id"

// jobMessage is the queue payload. It carries everything a worker in another
// process needs to run the job.
type jobMessage struct {
	JobID  string           `json:"jobId"`
	Owner  string           `json:"owner"`
	Tool   string           `json:"tool"`
	Params processor.Params `json:"params"`
	Inputs []BlobRef        `json:"inputs"`
}

func decodeMessage(body []byte) (jobMessage, error) {
	var msg jobMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("decode job message: %w", err)
	}
	if msg.JobID == "" || msg.Tool == "" {
		return msg, fmt.Errorf("job message without id or tool")
	}
	return msg, nil
}

var unsafeBlobChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func inputBlob(jobID string, n int, name string) string {
	return fmt.Sprintf("jobs/%s/in/%d-%s", jobID, n, safeName(name))
}

func outputBlob(jobID, name string) string {
	return fmt.Sprintf("jobs/%s/out/%s", jobID, safeName(name))
}

func jobPrefix(jobID string) string {
	return "jobs/" + jobID + "/"
}

func safeName(name string) string {
	s := unsafeBlobChars.ReplaceAllString(path.Base(name), "_")
	if s == "" || s == "." || s == ".." {
		return "file"
	}
	return s
}
