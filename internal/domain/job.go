package domain

import (
	"errors"
	"time"
)

var (
	ErrJobNotFound    = errors.New("job not found")
	ErrDuplicateName  = errors.New("job with this name already exists")
	ErrInvalidTimeout = errors.New("timeout_seconds must be positive")
)

// Job is the schedulable unit: a name bound to a cron expression and an
// opaque shell command.
type Job struct {
	ID             int64
	Name           string
	Cron           string
	Command        string
	WorkingDir     string
	TimeoutSeconds int
	Tags           []string
	Enabled        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastRun        *time.Time
	NextRun        *time.Time
}

// JobPatch carries only the fields an update_job call wants to change.
// A nil field is left untouched.
type JobPatch struct {
	Cron           *string
	Command        *string
	WorkingDir     *string
	TimeoutSeconds *int
	Tags           []string
	Enabled        *bool
}

// JobFilter narrows list_jobs.
type JobFilter struct {
	Tag     string
	Enabled *bool
}

const DefaultTimeoutSeconds = 300
