package classify

import (
	"errors"
	"fmt"
)

// Kind classifies a classification failure.
type Kind int

const (
	// InvalidInput means the input shape is unusable: no faces or edges,
	// structurally invalid geometry, or missing placement entries.
	InvalidInput Kind = iota + 1
	// InsufficientData means too few instances or valid samples.
	InsufficientData
	// NoMatch means every candidate was tried and none fit.
	NoMatch
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid input"
	case InsufficientData:
		return "insufficient data"
	case NoMatch:
		return "no match"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Sentinels for errors.Is.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInsufficientData = errors.New("insufficient data")
	ErrNoMatch          = errors.New("no match")
)

func (k Kind) sentinel() error {
	switch k {
	case InvalidInput:
		return ErrInvalidInput
	case InsufficientData:
		return ErrInsufficientData
	case NoMatch:
		return ErrNoMatch
	}
	return nil
}

// Error is the typed failure returned by every classifier.
type Error struct {
	Kind Kind
	Op   string // operation, e.g. "feature.ClassifyEdges"
	Msg  string
	Err  error // optional cause
}

// Errorf builds an *Error with a formatted message.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
