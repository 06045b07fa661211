package processor

import (
	"fmt"

	"github.com/yourorg/pdf-toolkit/pkg/errors"
	"github.com/yourorg/pdf-toolkit/pkg/history"
)

// HistoryEntry describes one finished run for the processing history.
// runErr nil means res is the successful result.
func HistoryEntry(owner string, req Request, res *Result, runErr error) history.Entry {
	e := history.Entry{
		Owner:    owner,
		FileName: inputLabel(req.Files),
		Tool:     req.Tool,
		ToolName: req.Tool,
		Status:   history.StatusSuccess,
	}
	if tool, ok := Lookup(req.Tool); ok {
		e.ToolName = tool.Name
	}
	for _, f := range req.Files {
		e.OriginalSize += f.Size()
	}

	if runErr != nil {
		e.Status = history.StatusError
		e.ErrorMessage = errors.FromError(runErr).Message
		return e
	}
	if res != nil {
		e.ResultSize = res.ResultSize
	}
	return e
}

func inputLabel(files []InputFile) string {
	switch len(files) {
	case 0:
		return ""
	case 1:
		return files[0].Name
	default:
		return fmt.Sprintf("%s (+%d more)", files[0].Name, len(files)-1)
	}
}
