package optset

import "github.com/goliatone/go-optset/pkg/fault"

// Error kinds surfaced by this package. Match them with errors.Is; the
// concrete values are *fault.Error or *fault.CompositeError.
var (
	ErrNotSet               = fault.ErrNotSet
	ErrSet                  = fault.ErrSet
	ErrLocked               = fault.ErrLocked
	ErrRequired             = fault.ErrRequired
	ErrNotRequired          = fault.ErrNotRequired
	ErrInvalid              = fault.ErrInvalid
	ErrInvalidType          = fault.ErrInvalidType
	ErrDoesNotExist         = fault.ErrDoesNotExist
	ErrNotConfigured        = fault.ErrNotConfigured
	ErrConfiguring          = fault.ErrConfiguring
	ErrRoutineInProgress    = fault.ErrRoutineInProgress
	ErrRoutineNotInProgress = fault.ErrRoutineNotInProgress
	ErrRoutineNotFinished   = fault.ErrRoutineNotFinished
	ErrConfiguration        = fault.ErrConfiguration
	ErrOptionsInvalid       = fault.ErrOptionsInvalid
	ErrComposite            = fault.ErrComposite
)
