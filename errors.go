package majordome

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Runtime errors
var (
	// Build errors
	ErrConfigureFailed    = errors.New("failed to configure module")
	ErrConstructFailed    = errors.New("failed to initialize module")
	ErrCircularDependency = errors.New("circular dependency detected")
	ErrDuplicateInstance  = errors.New("module already loading with the same config")
	ErrStartFailed        = errors.New("failed to start module")
	ErrBuilderFinalized   = errors.New("builder already built")
	ErrNilDefinition      = errors.New("pointer has no module definition")
	ErrUncomparableConfig = errors.New("module config cannot be used as a cache key")

	// Lookup errors
	ErrModuleNotFound = errors.New("module not found")

	// Task and shutdown errors
	ErrTaskPanicked = errors.New("task panicked")
	ErrStopTimeout  = errors.New("shutdown did not complete before the context ended")
)

// BuildPhase names the step of the load sequence a BuildError comes from.
type BuildPhase string

const (
	PhaseConfigure BuildPhase = "configure"
	PhaseResolve   BuildPhase = "resolve"
	PhaseConstruct BuildPhase = "construct"
	PhaseStart     BuildPhase = "start"
)

// BuildError is the fatal error produced while building the module graph.
// It carries the load chain that was active when the failure happened so the
// nested request that failed can be traced.
type BuildError struct {
	Phase  BuildPhase
	Symbol string
	Chain  []string
	Err    error
}

func (e *BuildError) Error() string {
	var b strings.Builder
	if len(e.Chain) > 0 {
		b.WriteString(strings.Join(e.Chain, " -> "))
		b.WriteString(" | ")
	}
	switch e.Phase {
	case PhaseConfigure:
		b.WriteString("failed to load config for module ")
	case PhaseConstruct:
		b.WriteString("failed to initialize module ")
	case PhaseStart:
		b.WriteString("failed to start module ")
	default:
		b.WriteString("failed to resolve module ")
	}
	b.WriteString(e.Symbol)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the phase sentinel and the underlying cause.
func (e *BuildError) Unwrap() []error {
	errs := make([]error, 0, 2)
	switch e.Phase {
	case PhaseConfigure:
		errs = append(errs, ErrConfigureFailed)
	case PhaseConstruct:
		errs = append(errs, ErrConstructFailed)
	case PhaseStart:
		errs = append(errs, ErrStartFailed)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Error is a user-facing error with a stable code, a readable message and
// the values interpolated into it. Status is the HTTP status it maps to.
type Error struct {
	Code    string   `json:"error"`
	Message string   `json:"message"`
	Values  []string `json:"values"`
	Status  int      `json:"-"`

	cause error
}

// NewError creates a coded error.
func NewError(code, message string, status int, values ...string) *Error {
	if values == nil {
		values = []string{}
	}
	return &Error{Code: code, Message: message, Values: values, Status: status}
}

// Wrap attaches an underlying cause, reachable through errors.Is / errors.As.
func (e *Error) Wrap(cause error) *Error {
	e.cause = cause
	return e
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Internal hides err behind a generic 500 error. The original error is
// logged together with a fresh error id, which is also returned to the caller
// so both sides can be correlated.
func Internal(err error, logger Logger) *Error {
	id := uuid.New().String()
	if logger != nil {
		logger.Error("Internal error", "id", id, "error", err)
	}
	return NewError(
		"errors.generic.internal",
		fmt.Sprintf("Something went wrong. Our team has been informed. (Error ID: %s)", id),
		http.StatusInternalServerError,
		id,
	).Wrap(err)
}

func errModuleNotFound(name string) *Error {
	return NewError(
		"errors.majordome.module_not_found",
		fmt.Sprintf("Module %s not found", name),
		http.StatusInternalServerError,
		name,
	).Wrap(ErrModuleNotFound)
}
