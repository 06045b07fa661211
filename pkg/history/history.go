// Package history keeps a per-owner log of processed files.
package history

import (
	"context"
	"math"
	"time"

	"github.com/yourorg/pdf-toolkit/pkg/errors"
)

// DefaultLimit is the number of entries kept per owner.
const DefaultLimit = 50

// Status of a processed file.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Entry is one processed file.
type Entry struct {
	ID           string    `json:"id"`
	Owner        string    `json:"-"`
	FileName     string    `json:"fileName"`
	Tool         string    `json:"tool"`
	ToolName     string    `json:"toolName"`
	ProcessedAt  time.Time `json:"processedAt"`
	OriginalSize int64     `json:"originalSize"`
	ResultSize   int64     `json:"resultSize"`
	Status       Status    `json:"status"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Tool   string `form:"tool" json:"tool,omitempty"`
	Status Status `form:"status" json:"status,omitempty" validate:"omitempty,oneof=success error"`
}

func (f Filter) match(e Entry) bool {
	return (f.Tool == "" || f.Tool == e.Tool) && (f.Status == "" || f.Status == e.Status)
}

// Stats summarizes an owner's history.
type Stats struct {
	Total               int     `json:"total"`
	Successful          int     `json:"successful"`
	Failed              int     `json:"failed"`
	SuccessRate         float64 `json:"successRate"`
	TotalBytesProcessed int64   `json:"totalBytesProcessed"`
}

// Store persists history entries. Entries are returned newest first and
// each owner keeps at most the store's limit; older entries are dropped on Add.
type Store interface {
	// Add stores e, assigning ID and ProcessedAt when empty, and returns it.
	Add(ctx context.Context, e Entry) (Entry, error)
	Get(ctx context.Context, owner, id string) (Entry, error)
	List(ctx context.Context, owner string, f Filter) ([]Entry, error)
	Remove(ctx context.Context, owner, id string) error
	// Clear removes every entry of owner and returns how many were removed.
	Clear(ctx context.Context, owner string) (int, error)
	Stats(ctx context.Context, owner string) (Stats, error)
}

// ComputeStats summarizes entries. Bytes processed counts input sizes.
func ComputeStats(entries []Entry) Stats {
	var s Stats
	for _, e := range entries {
		s.Total++
		if e.Status == StatusSuccess {
			s.Successful++
		} else {
			s.Failed++
		}
		s.TotalBytesProcessed += e.OriginalSize
	}
	s.SuccessRate = successRate(s.Successful, s.Total)
	return s
}

func successRate(successful, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(successful)/float64(total)*1000) / 10
}

func notFound(id string) error {
	return errors.NewNotFoundError("history entry " + id + " not found")
}

func validate(e Entry) error {
	if e.Owner == "" {
		return errors.NewValidationError("history entry has no owner")
	}
	if e.Status != StatusSuccess && e.Status != StatusError {
		return errors.NewValidationError("history entry status must be success or error")
	}
	return nil
}
