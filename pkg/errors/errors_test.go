package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusAndCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"missing file", MissingFile(), http.StatusBadRequest, CodeMissingInput},
		{"missing message", MissingMessage(), http.StatusBadRequest, CodeMissingInput},
		{"empty content", EmptyContent(), http.StatusBadRequest, CodeEmptyContent},
		{"empty index", EmptyIndex(), http.StatusBadRequest, CodeEmptyIndex},
		{"method", MethodNotAllowed(http.MethodGet), http.StatusMethodNotAllowed, CodeTransport},
		{"extraction", Wrap(ErrExtraction, errors.New("bad xref"), "Could not extract text from file"), http.StatusUnprocessableEntity, CodeExtraction},
		{"too large", New(ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "too big"), http.StatusRequestEntityTooLarge, CodePayloadTooLarge},
		{"bare sentinel", fmt.Errorf("decode: %w", ErrMalformedRequest), http.StatusBadRequest, CodeMalformedRequest},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatusCode(tt.err))
			assert.Equal(t, tt.code, Code(tt.err))
		})
	}
}

func TestWrap_KeepsCause(t *testing.T) {
	err := Wrap(ErrExtraction, context.DeadlineExceeded, "Could not extract text from file")
	assert.ErrorIs(t, err, ErrExtraction)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "Could not extract text from file", Message(err))
}

func TestMessage_HidesInternals(t *testing.T) {
	assert.Equal(t, "internal error", Message(errors.New("pq: password authentication failed")))
	assert.Equal(t, "No message provided", Message(MissingMessage()))
	assert.Equal(t, "Method GET not allowed", Message(MethodNotAllowed("GET")))
}
