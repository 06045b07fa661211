package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromError_FindsWrappedAppError(t *testing.T) {
	base := NewValidationError("select at least one page")
	wrapped := fmt.Errorf("delete pages: %w", base)

	appErr := FromError(wrapped)

	assert.Same(t, base, appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
}

func TestFromError_WrapsPlainError(t *testing.T) {
	appErr := FromError(stderrors.New("boom"))

	assert.Equal(t, ErrorCodeInternal, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus)
	assert.Nil(t, FromError(nil))
}

func TestDocumentProcessingError_CarriesOperation(t *testing.T) {
	cause := stderrors.New("xref table broken")
	err := NewDocumentProcessingError("copy pages", cause)

	assert.True(t, IsDocumentProcessing(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "copy pages", err.Details["operation"])
	assert.Contains(t, err.Message, "xref table broken")
}

func TestLoadError(t *testing.T) {
	err := NewLoadError("could not read document", stderrors.New("not a PDF"))

	assert.True(t, IsLoad(err))
	assert.False(t, IsValidation(err))
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus)
	assert.Equal(t, "could not read document: not a PDF", err.Message)
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrorCodeValidation:         http.StatusBadRequest,
		ErrorCodeLoad:               http.StatusUnprocessableEntity,
		ErrorCodeDocumentProcessing: http.StatusInternalServerError,
		ErrorCodeNotImplemented:     http.StatusNotImplemented,
		ErrorCodePayloadTooLarge:    http.StatusRequestEntityTooLarge,
		ErrorCodeNotFound:           http.StatusNotFound,
	}
	for code, status := range cases {
		assert.Equal(t, status, ToHTTPStatus(code), code)
	}
}
