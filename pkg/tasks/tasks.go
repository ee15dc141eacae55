package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeRefreshFeed     = "feed:refresh"
	TypeRefreshDueFeeds = "feeds:refresh-due"
)

const (
	// refreshMaxRetry gives 3 attempts total per job.
	refreshMaxRetry = 2
	// refreshTimeout bounds one attempt; the fetch carries its own
	// shorter timeout independently.
	refreshTimeout = 2 * time.Minute
)

type RefreshFeedPayload struct {
	FeedID  int64
	FeedURL string
}

// RefreshFeedTaskID keys a refresh job by feed identity so at most one job
// per feed is pending or running at a time.
func RefreshFeedTaskID(feedID int64) string {
	return fmt.Sprintf("feed:refresh:%d", feedID)
}

// NewRefreshFeedTask builds a refresh job for one feed. The task ID pins
// job identity to the feed; retry and timeout policy ride along as task
// options.
func NewRefreshFeedTask(feedID int64, feedURL string) (*asynq.Task, error) {
	payload, err := json.Marshal(RefreshFeedPayload{FeedID: feedID, FeedURL: feedURL})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRefreshFeed, payload,
		asynq.TaskID(RefreshFeedTaskID(feedID)),
		asynq.MaxRetry(refreshMaxRetry),
		asynq.Timeout(refreshTimeout),
	), nil
}

// NewRefreshDueFeedsTask builds the scheduler tick task.
func NewRefreshDueFeedsTask() *asynq.Task {
	return asynq.NewTask(TypeRefreshDueFeeds, nil)
}

// queueDefault is the queue refresh jobs run on.
const queueDefault = "default"

// EnqueueRefresh is the single enqueue path for both scheduled and manual
// refreshes. Enqueuing while a job for the feed is already pending or
// running is a no-op; the existing job serves the request. A terminal task
// record under the same ID (a job archived after exhausting its retries,
// or a retained completed one) is deleted and replaced, since it only
// squats on the feed's task ID and would otherwise block every future
// refresh of that feed until the archive trims it. Returns whether a new
// job was actually queued.
func EnqueueRefresh(client TaskEnqueuer, inspector TaskInspector, feedID int64, feedURL string) (bool, error) {
	task, err := NewRefreshFeedTask(feedID, feedURL)
	if err != nil {
		return false, fmt.Errorf("create refresh task for feed %d: %w", feedID, err)
	}

	_, err = client.Enqueue(task)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, asynq.ErrTaskIDConflict) {
		return false, fmt.Errorf("enqueue refresh for feed %d: %w", feedID, err)
	}

	info, err := inspector.GetTaskInfo(queueDefault, RefreshFeedTaskID(feedID))
	if errors.Is(err, asynq.ErrTaskNotFound) {
		// The old job finished and was cleaned up between the two calls.
		return enqueueAgain(client, task, feedID)
	}
	if err != nil {
		return false, fmt.Errorf("inspect refresh task for feed %d: %w", feedID, err)
	}

	switch info.State {
	case asynq.TaskStateArchived, asynq.TaskStateCompleted:
		if err := inspector.DeleteTask(queueDefault, RefreshFeedTaskID(feedID)); err != nil && !errors.Is(err, asynq.ErrTaskNotFound) {
			return false, fmt.Errorf("delete terminal refresh task for feed %d: %w", feedID, err)
		}
		return enqueueAgain(client, task, feedID)
	default:
		// Pending, running, or waiting on a retry timer: that job serves
		// this request.
		return false, nil
	}
}

func enqueueAgain(client TaskEnqueuer, task *asynq.Task, feedID int64) (bool, error) {
	_, err := client.Enqueue(task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		// Lost the race to a concurrent enqueuer; its job serves us.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("enqueue refresh for feed %d: %w", feedID, err)
	}
	return true, nil
}
