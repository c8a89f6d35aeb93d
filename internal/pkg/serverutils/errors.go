package serverutils

import (
	"errors"
	"fmt"
)

// AppError is the typed error carried from services up to the HTTP layer.
type AppError struct {
	Code    string // machine-readable, e.g. "not_found"
	Status  int    // HTTP status
	Message string
	Err     error // wrapped cause, optional
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Failure taxonomy. Only NotFound/Gone are hard caller errors; the
// ingestion and chat paths record the rest on the document or turn.
const (
	CodeNotFound         = "not_found"
	CodeGone             = "gone"
	CodeFetchError       = "fetch-error"
	CodeExtractError     = "extract-error"
	CodeEmbedError       = "embed-error"
	CodeRetrievalTimeout = "retrieval-timeout"
	CodeCompletionError  = "completion-error"
	CodeBadRequest       = "bad_request"
)

func NotFound(message string) *AppError {
	return &AppError{Code: CodeNotFound, Status: 404, Message: message}
}

// Gone marks a session that was evicted mid-operation. Callers must recreate.
func Gone(message string) *AppError {
	return &AppError{Code: CodeGone, Status: 410, Message: message}
}

func BadRequest(message string) *AppError {
	return &AppError{Code: CodeBadRequest, Status: 400, Message: message}
}

func FetchError(err error) *AppError {
	return &AppError{Code: CodeFetchError, Status: 502, Message: "failed to acquire document bytes", Err: err}
}

func ExtractError(err error) *AppError {
	return &AppError{Code: CodeExtractError, Status: 502, Message: "failed to extract document text", Err: err}
}

func EmbedError(err error) *AppError {
	return &AppError{Code: CodeEmbedError, Status: 502, Message: "failed to embed document chunks", Err: err}
}

func RetrievalTimeout(err error) *AppError {
	return &AppError{Code: CodeRetrievalTimeout, Status: 504, Message: "retrieval timed out", Err: err}
}

func CompletionError(err error) *AppError {
	return &AppError{Code: CodeCompletionError, Status: 502, Message: "completion provider failed", Err: err}
}

// AsAppError unwraps err to an *AppError if one is in the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
