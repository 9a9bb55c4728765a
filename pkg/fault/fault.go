package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure independently of the concrete error type.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotSet
	KindSet
	KindLocked
	KindRequired
	KindNotRequired
	KindInvalid
	KindInvalidType
	KindDoesNotExist
	KindNotConfigured
	KindConfiguring
	KindRoutineInProgress
	KindRoutineNotInProgress
	KindRoutineNotFinished
	KindConfiguration
	KindOptionsInvalid
	KindComposite
)

var (
	ErrNotSet               = errors.New("value not set")
	ErrSet                  = errors.New("value already set")
	ErrLocked               = errors.New("value locked")
	ErrRequired             = errors.New("value required")
	ErrNotRequired          = errors.New("value not required")
	ErrInvalid              = errors.New("invalid value")
	ErrInvalidType          = errors.New("invalid type")
	ErrDoesNotExist         = errors.New("does not exist")
	ErrNotConfigured        = errors.New("not configured")
	ErrConfiguring          = errors.New("configuration in progress")
	ErrRoutineInProgress    = errors.New("routine in progress")
	ErrRoutineNotInProgress = errors.New("routine not in progress")
	ErrRoutineNotFinished   = errors.New("routine not finished")
	ErrConfiguration        = errors.New("configuration error")
	ErrOptionsInvalid       = errors.New("options invalid")
	ErrComposite            = errors.New("multiple errors")
)

var sentinels = map[Kind]error{
	KindNotSet:               ErrNotSet,
	KindSet:                  ErrSet,
	KindLocked:               ErrLocked,
	KindRequired:             ErrRequired,
	KindNotRequired:          ErrNotRequired,
	KindInvalid:              ErrInvalid,
	KindInvalidType:          ErrInvalidType,
	KindDoesNotExist:         ErrDoesNotExist,
	KindNotConfigured:        ErrNotConfigured,
	KindConfiguring:          ErrConfiguring,
	KindRoutineInProgress:    ErrRoutineInProgress,
	KindRoutineNotInProgress: ErrRoutineNotInProgress,
	KindRoutineNotFinished:   ErrRoutineNotFinished,
	KindConfiguration:        ErrConfiguration,
	KindOptionsInvalid:       ErrOptionsInvalid,
	KindComposite:            ErrComposite,
}

// Sentinel returns the package level error matched by errors.Is for k.
func (k Kind) Sentinel() error {
	return sentinels[k]
}

func (k Kind) String() string {
	if sentinel, ok := sentinels[k]; ok {
		return sentinel.Error()
	}
	return "unknown error"
}

// invalid reports whether k signals a rejected value.
func (k Kind) invalid() bool {
	switch k {
	case KindInvalid, KindInvalidType, KindRequired, KindOptionsInvalid:
		return true
	default:
		return false
	}
}

// Error is a classified failure. Subject names the field, routine or child
// the failure refers to.
type Error struct {
	Kind    Kind
	Subject string
	Message string
	Err     error
}

// New builds an Error of kind k.
func New(k Kind, subject, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: k, Subject: subject, Message: msg}
}

// Wrap builds an Error of kind k caused by err.
func Wrap(k Kind, subject string, err error, format string, args ...any) *Error {
	e := New(k, subject, format, args...)
	e.Err = err
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Subject != "" {
		fmt.Fprintf(&b, " [%s]", e.Subject)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the sentinel of the error kind. Required and InvalidType
// failures also match ErrInvalid.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	if target == e.Kind.Sentinel() {
		return true
	}
	return target == ErrInvalid && e.Kind.invalid()
}

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	var ce *CompositeError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// IsInvalid reports whether err is one of the recognised invalid-value
// kinds.
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInvalid) || errors.Is(err, ErrOptionsInvalid)
}
