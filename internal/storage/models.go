package storage

import (
	"errors"
	"time"

	"github.com/kalambet/clipfeed/internal/content"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Job statuses.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// Interaction is one persisted behavioural event in a viewer's log.
type Interaction struct {
	ID                   string
	ViewerKey            string
	ContentID            string
	ChannelID            string
	Category             string
	Tags                 []string
	Kind                 string
	WatchDurationSeconds *float64
	CreatedAt            time.Time
}

type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // JobPending, JobRunning, JobCompleted, JobFailed
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}

// ItemFilter narrows ListItems. Zero values mean "no constraint";
// a non-positive Limit returns every match.
type ItemFilter struct {
	ChannelID  string
	Type       content.Type
	PublicOnly bool
	Limit      int
}
