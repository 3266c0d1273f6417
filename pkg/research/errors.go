package research

import "errors"

var (
	ErrDuplicateTopic    = errors.New("topic already exists for owner")
	ErrNoSources         = errors.New("no search source is available")
	ErrAllSourcesFailed  = errors.New("every search source failed")
	ErrSchedulerRunning  = errors.New("scheduler already running")
	ErrSchedulerStopped  = errors.New("scheduler is not running")
	ErrSchedulerDisabled = errors.New("scheduler is disabled by configuration")
	ErrOwnerBusy         = errors.New("research already in progress for owner")
)
