// Package errors provides coded, developer-facing errors for the CLI and
// configuration surfaces: stable codes, a short message, and a fix
// suggestion, so tooling output stays actionable.
package errors

import "fmt"

// Category classifies an error code.
type Category string

const (
	CategoryConfig  Category = "config"
	CategoryRuntime Category = "runtime"
	CategoryCLI     Category = "cli"
)

// Error is a structured error with a stable code.
type Error struct {
	// Code is a unique identifier (e.g. "E101").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description.
	Message string

	// Detail is a longer explanation.
	Detail string

	// Suggestion hints at a fix.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap supports errors.Is/As.
func (e *Error) Unwrap() error { return e.Wrapped }

// WithSuggestion overrides the template suggestion.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// Wrap attaches an underlying error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// template defines a registered error code.
type template struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

var registry = map[string]template{
	"E101": {
		Category:   CategoryConfig,
		Message:    "configuration file not readable",
		Detail:     "strata.json exists but could not be opened or parsed.",
		Suggestion: "Check file permissions and validate the JSON syntax.",
	},
	"E102": {
		Category:   CategoryConfig,
		Message:    "invalid configuration value",
		Detail:     "A configuration field has a value outside its accepted range.",
		Suggestion: "Compare the field against the documented defaults.",
	},
	"E103": {
		Category:   CategoryConfig,
		Message:    "environment override invalid",
		Detail:     "An STRATA_* environment variable could not be parsed.",
		Suggestion: "Unset the variable or correct its value.",
	},
	"E201": {
		Category:   CategoryCLI,
		Message:    "devtools endpoint unreachable",
		Detail:     "The inspector could not connect to the devtools server.",
		Suggestion: "Verify the --url flag and that the application exposes the devtools handler.",
	},
	"E202": {
		Category:   CategoryCLI,
		Message:    "devtools stream closed",
		Detail:     "The devtools server closed the websocket stream.",
		Suggestion: "Reconnect; if it repeats, check the application logs for dropped-client warnings.",
	},
}

// New creates an error from a registered code. Unknown codes yield a
// generic error carrying the code so typos surface in output.
func New(code string) *Error {
	t, ok := registry[code]
	if !ok {
		return &Error{Code: code, Category: CategoryRuntime, Message: "unknown error"}
	}
	return &Error{
		Code:       code,
		Category:   t.Category,
		Message:    t.Message,
		Detail:     t.Detail,
		Suggestion: t.Suggestion,
	}
}

// Format renders the error for terminal output.
func Format(e *Error) string {
	out := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Detail != "" {
		out += "\n  " + e.Detail
	}
	if e.Wrapped != nil {
		out += fmt.Sprintf("\n  cause: %v", e.Wrapped)
	}
	if e.Suggestion != "" {
		out += "\n  hint: " + e.Suggestion
	}
	return out
}
