package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sakif/proman/internal/apperror"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The operation was refused or failed (validation, storage, ingestion)
	ExitCommandError = 2 // Command error (bad arguments, unreadable config, database won't open)
	ExitNotFound     = 3 // The named project, log or attachment does not exist
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Domain errors map to
// their own codes; anything else is ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, apperror.ErrNotFound) {
		return ExitNotFound
	}
	return ExitFailure
}

// errorCode is the short machine-readable code reported in JSON errors.
func errorCode(err error) string {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperror.ErrValidation):
		return "validation"
	case errors.Is(err, apperror.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, apperror.ErrIngestion):
		return "ingestion"
	case errors.Is(err, apperror.ErrStorage):
		return "storage"
	default:
		return "error"
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // verbose/diagnostic output, kept off stdout so JSON stays parseable
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Render writes data as JSON, or calls text with a tab-aligned writer.
func (f *OutputFormatter) Render(data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}

	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

// Error reports err in the configured format. In text mode it goes to
// ErrWriter; in JSON mode the envelope goes to Writer.
func (f *OutputFormatter) Error(err error) {
	if f.Format == "json" {
		cliErr := &CLIError{Code: errorCode(err), Message: err.Error()}
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			cliErr.Field = appErr.Field
		}
		_ = json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "error", Error: cliErr})
		return
	}
	fmt.Fprintf(f.errWriter(), "Error: %v\n", err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.errWriter(), format+"\n", args...)
}

func (f *OutputFormatter) errWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
