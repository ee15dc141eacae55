package main

import (
	"log"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"rivulet/internal/db"
	"rivulet/internal/fetch"
	"rivulet/internal/ingest"
	"rivulet/internal/worker"
	"rivulet/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	db.InitDB()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	defer client.Close()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: redisAddr})
	defer inspector.Close()

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			// At most 5 refresh jobs in flight; the handler adds a
			// global job-start rate ceiling on top.
			Concurrency: 5,
			Queues: map[string]int{
				"high":    2,
				"default": 1,
			},
			// Exponential backoff: 5s, 10s, 20s, ...
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := 5 * time.Second
				for i := 0; i < n; i++ {
					delay *= 2
				}
				log.Printf("Task %s failed %d times, retrying in %v", task.Type(), n+1, delay)
				return delay
			},
		},
	)

	ingestor := ingest.New(fetch.New())
	taskHandler := worker.NewTaskHandler(client, inspector, ingestor)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeRefreshFeed, taskHandler.HandleRefreshFeedTask)
	mux.HandleFunc(tasks.TypeRefreshDueFeeds, taskHandler.HandleRefreshDueFeedsTask)

	log.Printf("Worker starting (commit: %s)", CommitSHA)
	if err := srv.Run(mux); err != nil {
		log.Fatalf("could not run server: %v", err)
	}
}
