package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/time/rate"

	"rivulet/internal/db"
	"rivulet/internal/ingest"
	"rivulet/pkg/tasks"
)

const (
	// defaultStalenessMinutes is the age beyond which a feed becomes due.
	defaultStalenessMinutes = 30
	// jobStartsPerSecond caps fetch starts across the whole worker pool
	// so a burst of due feeds cannot hammer upstream servers collectively.
	jobStartsPerSecond = 10
)

// TaskHandler executes refresh jobs and scheduler ticks.
type TaskHandler struct {
	asynqClient tasks.TaskEnqueuer
	inspector   tasks.TaskInspector
	ingestor    *ingest.Ingestor
	limiter     *rate.Limiter
	staleness   time.Duration
}

// NewTaskHandler wires the handler to an enqueuer, an inspector, and an
// ingestor.
func NewTaskHandler(client tasks.TaskEnqueuer, inspector tasks.TaskInspector, ingestor *ingest.Ingestor) *TaskHandler {
	return &TaskHandler{
		asynqClient: client,
		inspector:   inspector,
		ingestor:    ingestor,
		limiter:     rate.NewLimiter(rate.Limit(jobStartsPerSecond), jobStartsPerSecond),
		staleness:   stalenessFromEnv(),
	}
}

func stalenessFromEnv() time.Duration {
	minutes := defaultStalenessMinutes
	if v := os.Getenv("STALENESS_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			minutes = n
		}
	}
	return time.Duration(minutes) * time.Minute
}

// HandleRefreshFeedTask runs one refresh job: wait for a job-start slot,
// then fetch and ingest. A returned error makes asynq retry the job per
// its backoff policy; after the final attempt the feed keeps the error
// recorded by the ingestor until a later tick picks it up again.
func (h *TaskHandler) HandleRefreshFeedTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.RefreshFeedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	if err := h.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for feed %d: %w", p.FeedID, err)
	}

	inserted, err := h.ingestor.Refresh(ctx, p.FeedID, p.FeedURL)
	if err != nil {
		return fmt.Errorf("refresh feed %d: %w", p.FeedID, err)
	}

	log.Printf("Refreshed feed %d: %d new articles", p.FeedID, inserted)
	return nil
}

// HandleRefreshDueFeedsTask is the scheduler tick body: select every feed
// that was never fetched or is stale, and enqueue a refresh for each.
// Enqueues are fire-and-forget; feeds already in flight collapse into the
// existing job. One bad feed never stops the sweep.
func (h *TaskHandler) HandleRefreshDueFeedsTask(ctx context.Context, t *asynq.Task) error {
	feeds, err := db.GetDueFeeds(h.staleness)
	if err != nil {
		return fmt.Errorf("failed to get due feeds: %w", err)
	}

	enqueued := 0
	for _, feed := range feeds {
		queued, err := tasks.EnqueueRefresh(h.asynqClient, h.inspector, feed.ID, feed.URL)
		if err != nil {
			log.Printf("failed to enqueue refresh for feed %d: %v", feed.ID, err)
			continue
		}
		if queued {
			enqueued++
		}
	}

	log.Printf("Scheduler tick: %d feeds due, %d refresh jobs enqueued", len(feeds), enqueued)
	return nil
}
