package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kalambet/clipfeed/internal/metrics"
	"github.com/kalambet/clipfeed/internal/profile"
	"github.com/kalambet/clipfeed/internal/storage"
)

// JobTypeRecordInteraction is the queue type for deferred interaction events.
const JobTypeRecordInteraction = "record_interaction"

// JobStore abstracts the job queue operations.
type JobStore interface {
	EnqueueJob(job storage.Job) error
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
}

// EventSink persists the side effects of an applied interaction beyond the
// profile itself. Implemented by storage.Store.
type EventSink interface {
	SaveInteraction(i storage.Interaction) error
	BumpEngagement(id, kind string) error
}

// Recorder applies an event to a viewer profile. Implemented by profile.Manager.
type Recorder interface {
	Record(ctx context.Context, viewerID string, ev profile.InteractionEvent) (profile.InterestProfile, error)
}

// Payload is the JSON body of a record_interaction job.
type Payload struct {
	ViewerID string                   `json:"viewer_id,omitempty"`
	Event    profile.InteractionEvent `json:"event"`
}

// Service records interactions either inline or through the job queue.
// Both paths end in Apply.
type Service struct {
	jobs     JobStore
	sink     EventSink
	recorder Recorder
	logger   *slog.Logger
}

// NewService creates a Service.
func NewService(jobs JobStore, sink EventSink, recorder Recorder) *Service {
	return &Service{jobs: jobs, sink: sink, recorder: recorder, logger: slog.Default()}
}

// Apply records ev for the viewer: profile update, interaction log entry and
// engagement counter bump. A missing content item only skips the counter.
func (s *Service) Apply(ctx context.Context, viewerID string, ev profile.InteractionEvent) (profile.InterestProfile, error) {
	p, err := s.recorder.Record(ctx, viewerID, ev)
	if err != nil {
		return profile.InterestProfile{}, err
	}
	// Record stamps the event; the newest history entry carries the final timestamp.
	applied := ev
	if len(p.RecentInteractions) > 0 {
		applied = p.RecentInteractions[0]
	}

	if err := s.sink.SaveInteraction(storage.Interaction{
		ID:                   uuid.New().String(),
		ViewerKey:            profile.ViewerKey(viewerID),
		ContentID:            applied.ContentID,
		ChannelID:            applied.ChannelID,
		Category:             applied.Category,
		Tags:                 applied.Tags,
		Kind:                 string(applied.Kind),
		WatchDurationSeconds: applied.WatchDurationSeconds,
		CreatedAt:            applied.Timestamp,
	}); err != nil {
		return p, fmt.Errorf("logging interaction: %w", err)
	}

	if err := s.sink.BumpEngagement(applied.ContentID, string(applied.Kind)); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return p, fmt.Errorf("bumping engagement: %w", err)
		}
		s.logger.Debug("interaction for unknown item, counters untouched", "content_id", applied.ContentID)
	}
	return p, nil
}

// Enqueue defers ev to the background worker and returns the job id.
func (s *Service) Enqueue(viewerID string, ev profile.InteractionEvent) (string, error) {
	if !ev.Kind.Valid() {
		return "", fmt.Errorf("%w: %q", profile.ErrUnknownKind, ev.Kind)
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	body, err := json.Marshal(Payload{ViewerID: viewerID, Event: ev})
	if err != nil {
		return "", fmt.Errorf("marshalling payload: %w", err)
	}
	id := uuid.New().String()
	if err := s.jobs.EnqueueJob(storage.Job{
		ID:          id,
		Type:        JobTypeRecordInteraction,
		PayloadJSON: string(body),
	}); err != nil {
		return "", err
	}
	return id, nil
}

// Worker processes record_interaction jobs from the SQLite job queue.
type Worker struct {
	store   JobStore
	service *Service
	poll    time.Duration
	logger  *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, service *Service, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:   store,
		service: service,
		poll:    pollInterval,
		logger:  slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single record_interaction job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobTypeRecordInteraction})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	kind, err := w.processJob(ctx, job)
	metrics.RecordJob(job.Type, err)
	metrics.RecordInteraction(kind, "async", err)
	if err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) (string, error) {
	var payload Payload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return "", fmt.Errorf("parsing payload: %w", err)
	}
	if _, err := w.service.Apply(ctx, payload.ViewerID, payload.Event); err != nil {
		return string(payload.Event.Kind), fmt.Errorf("applying interaction for %q: %w", profile.ViewerKey(payload.ViewerID), err)
	}
	return string(payload.Event.Kind), nil
}
