package tool

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/infra/upstream"
)

// Error codes surfaced in envelope.error.code.
const (
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeToolNotFound          = "TOOL_NOT_FOUND"
	CodeInvalidAddress        = "INVALID_ADDRESS"
	CodeInvalidTxID           = "INVALID_TXID"
	CodeInvalidCurve          = "INVALID_CURVE"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeInvalidAmount         = "INVALID_AMOUNT"
	CodeInvalidUnsignedTx     = "INVALID_UNSIGNED_TX"
	CodeInvalidRawDataHex     = "INVALID_RAW_DATA_HEX"
	CodeMissingRawDataHex     = "MISSING_RAW_DATA_HEX"
	CodeUpstreamError         = "UPSTREAM_ERROR"
	CodeUpstreamValidateError = "UPSTREAM_VALIDATE_ERROR"
	CodeBadJSON               = "BAD_JSON"
	CodeInternalError         = "INTERNAL_ERROR"
)

// Failure is a coded tool failure. Status is the HTTP status hint.
type Failure struct {
	Code    string
	Message string
	Status  int
	// UpstreamStatus and ContentType describe the upstream response, when any.
	UpstreamStatus *int
	ContentType    *string
	// Summary overrides the generic failure summary.
	Summary *Message
	Err     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

func (f *Failure) body() *ErrorBody {
	return &ErrorBody{
		Code:        f.Code,
		Message:     f.Message,
		Status:      f.UpstreamStatus,
		ContentType: f.ContentType,
	}
}

// Invalid builds a 400 failure.
func Invalid(code, message string) *Failure {
	return &Failure{Code: code, Message: message, Status: http.StatusBadRequest}
}

// UpstreamFailure converts an upstream or provider error into UPSTREAM_ERROR,
// keeping the original status and content type.
func UpstreamFailure(err error) *Failure {
	f := &Failure{
		Code:    CodeUpstreamError,
		Message: "upstream error",
		Status:  http.StatusBadGateway,
		Err:     err,
	}
	var upErr *upstream.Error
	if errors.As(err, &upErr) {
		f.Message = upErr.Message
		if upErr.Status != 0 {
			status := upErr.Status
			f.UpstreamStatus = &status
		}
		if upErr.ContentType != "" {
			ct := upErr.ContentType
			f.ContentType = &ct
		}
		return f
	}
	if err != nil {
		f.Message = err.Error()
	}
	return f
}

func internalFailure(message string) *Failure {
	return &Failure{Code: CodeInternalError, Message: message, Status: http.StatusInternalServerError}
}
