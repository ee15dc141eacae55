package main

import (
	"log"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"rivulet/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	// One immediate sweep at startup so never-fetched feeds don't wait a
	// full interval.
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	if _, err := client.Enqueue(tasks.NewRefreshDueFeedsTask()); err != nil {
		log.Printf("could not enqueue startup sweep: %v", err)
	}
	client.Close()

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: redisAddr},
		&asynq.SchedulerOpts{},
	)

	interval := os.Getenv("SCHEDULER_INTERVAL")
	if interval == "" {
		interval = "@every 15m"
	}

	_, err = scheduler.Register(interval, tasks.NewRefreshDueFeedsTask())
	if err != nil {
		log.Fatalf("could not register task: %v", err)
	}

	log.Printf("Scheduler starting (commit: %s)", CommitSHA)
	if err := scheduler.Run(); err != nil {
		log.Fatalf("could not run scheduler: %v", err)
	}
}
