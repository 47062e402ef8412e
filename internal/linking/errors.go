package linking

import "errors"

var (
	ErrDisplayUnresolved   = errors.New("display could not be identified")
	ErrQueueUnresolved     = errors.New("queue could not be identified")
	ErrCompanyUnresolved   = errors.New("company could not be identified")
	ErrEmptyName           = errors.New("name is required")
	ErrInvalidDisplayType  = errors.New("unknown display type")
	ErrQueueNotConfirmed   = errors.New("queue was submitted but its id could not be confirmed")
	ErrBusy                = errors.New("another operation is in progress for this display")
	ErrHydrationSuperseded = errors.New("hydration result discarded")
)
