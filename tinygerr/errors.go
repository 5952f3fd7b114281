// Package tinygerr defines the typed errors shared across the motion
// core, grouped by the error kinds of the cycle controller's dispatch
// policy: input, resource, internal, safety, fatal.
package tinygerr

// Kind classifies an error by dispatch kind. The cycle controller
// raises Alarm when a feedhold re-plan fails with KindInternal and when
// a resume fails with any error; no code path maps a KindSafety or
// KindFatal error to Alarm or Shutdown, and a tripped limit switch
// raises Alarm from the switch state, not from an error value.
type Kind uint8

const (
	KindInput Kind = iota
	KindResource
	KindInternal
	KindSafety
	KindFatal
)

// Error is a lightweight string error carrying a Kind, in the style of
// the teacher driver package's CustomError — comparable, allocation
// free, usable as a sentinel with errors.Is.
type Error struct {
	kind Kind
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Kind reports the error's dispatch kind.
func (e *Error) Kind() Kind { return e.kind }

func newErr(k Kind, msg string) *Error { return &Error{kind: k, msg: msg} }

// Input errors: reported synchronously to the caller, motion state unchanged.
var (
	ErrZeroLengthMove    = newErr(KindInput, "tinyg: zero length move")
	ErrBadNumberFormat   = newErr(KindInput, "tinyg: bad number format")
	ErrArcSpecification  = newErr(KindInput, "tinyg: arc specification error")
	ErrParameterOutOfRange = newErr(KindInput, "tinyg: parameter out of range")
	ErrNotSupported        = newErr(KindInput, "tinyg: unsupported configuration")
)

// Resource errors: transient, caller is expected to retry.
var (
	ErrQueueFull = newErr(KindResource, "tinyg: planner queue full")
	ErrAgain     = newErr(KindResource, "tinyg: continuation not complete")
)

// Internal errors: invariant violation; a feedhold re-plan failing with
// one raises Alarm.
var (
	ErrInternal        = newErr(KindInternal, "tinyg: internal invariant violation")
	ErrBufferState     = newErr(KindInternal, "tinyg: planner buffer in unexpected state")
	ErrOwnershipConflict = newErr(KindInternal, "tinyg: prep segment ownership conflict")
	ErrNotFinite       = newErr(KindInternal, "tinyg: non-finite arithmetic result")
)

// Safety errors: returning one does not by itself raise Alarm; the
// limit-switch alarm comes from the switch state.
var (
	ErrLimitSwitchTripped = newErr(KindSafety, "tinyg: limit switch tripped")
	ErrMachineHalted      = newErr(KindSafety, "tinyg: planner submission rejected, machine in alarm/shutdown")
)

// Fatal errors: only a hard reset recovers.
var (
	ErrFatal = newErr(KindFatal, "tinyg: fatal assertion failure")
)

// Is reports whether err carries the given Kind. It lets callers group
// on kind (e.g. "is this a resource-kind retry?") without a type switch.
func Is(err error, k Kind) bool {
	var te *Error
	if e, ok := err.(*Error); ok {
		te = e
	} else {
		return false
	}
	return te.kind == k
}
