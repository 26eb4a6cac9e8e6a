package worker_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"task-tracker/backend/internal/worker"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestScheduleTaskReminderPayload(t *testing.T) {
	client, _ := setupTestRedis(t)
	queue := worker.NewJobQueue(client)

	taskID := uuid.Must(uuid.NewV4())
	due := time.Now().Add(24 * time.Hour)
	if err := queue.ScheduleTaskReminder(taskID, due); err != nil {
		t.Fatalf("Failed to schedule reminder: %v", err)
	}

	ctx := context.Background()
	data, err := client.LPop(ctx, worker.DefaultQueue).Result()
	if err != nil {
		t.Fatalf("Failed to pop job: %v", err)
	}

	var job worker.Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		t.Fatalf("Failed to unmarshal job: %v", err)
	}
	if job.Type != worker.JobTypeTaskReminder {
		t.Errorf("Expected job type %s, got %s", worker.JobTypeTaskReminder, job.Type)
	}
	if job.Payload["task_id"] != taskID.String() {
		t.Errorf("Expected task_id %s, got %v", taskID, job.Payload["task_id"])
	}
	if !job.ProcessAt.After(time.Now()) {
		t.Error("Expected reminder to be scheduled in the future")
	}
}

func TestWorkerProcessesDueJob(t *testing.T) {
	client, _ := setupTestRedis(t)
	queue := worker.NewJobQueue(client)

	processed := make(chan *worker.Job, 1)
	w := worker.NewWorker(worker.WorkerConfig{RedisClient: client})
	w.RegisterHandler(worker.JobTypeTokenCleanup, func(ctx context.Context, job *worker.Job) error {
		processed <- job
		return nil
	})

	if err := queue.Enqueue(worker.DefaultQueue, worker.JobTypeTokenCleanup, map[string]interface{}{"run": "now"}); err != nil {
		t.Fatalf("Failed to enqueue job: %v", err)
	}

	w.Start(1)
	defer w.Stop()

	select {
	case job := <-processed:
		if job.Type != worker.JobTypeTokenCleanup {
			t.Errorf("Expected job type %s, got %s", worker.JobTypeTokenCleanup, job.Type)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Timed out waiting for job to be processed")
	}
}

func TestWorkerBacksOffWhenOnlyFutureJobsQueued(t *testing.T) {
	client, mr := setupTestRedis(t)
	queue := worker.NewJobQueue(client)

	taskID := uuid.Must(uuid.NewV4())
	if err := queue.ScheduleTaskReminder(taskID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Failed to schedule reminder: %v", err)
	}

	w := worker.NewWorker(worker.WorkerConfig{RedisClient: client})
	w.RegisterHandler(worker.JobTypeTaskReminder, func(ctx context.Context, job *worker.Job) error {
		t.Error("Job scheduled an hour out must not be executed yet")
		return nil
	})

	before := mr.CommandCount()
	w.Start(1)
	time.Sleep(500 * time.Millisecond)
	w.Stop()

	// One pop-and-requeue cycle followed by a backoff sleep, not a spin.
	if issued := mr.CommandCount() - before; issued > 20 {
		t.Errorf("Expected a handful of redis commands while idle, got %d", issued)
	}

	size, err := queue.GetQueueSize(worker.DefaultQueue)
	if err != nil {
		t.Fatalf("Failed to get queue size: %v", err)
	}
	if size != 1 {
		t.Errorf("Expected the future job to stay queued, got size %d", size)
	}
}

func TestGetQueueSize(t *testing.T) {
	client, _ := setupTestRedis(t)
	queue := worker.NewJobQueue(client)

	size, err := queue.GetQueueSize(worker.DefaultQueue)
	if err != nil {
		t.Fatalf("Failed to get queue size: %v", err)
	}
	if size != 0 {
		t.Errorf("Expected empty queue, got %d", size)
	}

	if err := queue.Enqueue(worker.DefaultQueue, worker.JobTypeTaskReminder, nil); err != nil {
		t.Fatalf("Failed to enqueue job: %v", err)
	}

	size, err = queue.GetQueueSize(worker.DefaultQueue)
	if err != nil {
		t.Fatalf("Failed to get queue size: %v", err)
	}
	if size != 1 {
		t.Errorf("Expected queue size 1, got %d", size)
	}
}
