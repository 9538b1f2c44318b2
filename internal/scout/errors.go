package scout

import "errors"

var (
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidJob is returned when job parameters cannot be run.
	ErrInvalidJob = errors.New("invalid job parameters")
	// ErrInvalidInput is returned when roster or campaign input is rejected.
	ErrInvalidInput = errors.New("invalid input")
	// ErrJobFinished is returned when a status update targets a job that has
	// already reached a terminal status.
	ErrJobFinished = errors.New("job already finished")
	// ErrCampaignClosed is returned when candidates are moved into a campaign
	// that no longer accepts them.
	ErrCampaignClosed = errors.New("campaign does not accept candidates")
)
