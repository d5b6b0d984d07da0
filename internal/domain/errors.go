package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrReportNotFound is returned when a report cannot be found in the database
	ErrReportNotFound = errors.New("report not found")

	// ErrInvalidState is returned when a lifecycle guard rejects the
	// operation (deactivating a running job, deleting a running job)
	ErrInvalidState = errors.New("operation not allowed in current job status")

	// ErrValidation is returned when a request is missing required data
	ErrValidation = errors.New("validation failed")
)
