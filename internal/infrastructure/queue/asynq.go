package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sangkips/posflow-api/internal/domain/event"
)

// DefaultQueue is the asynq queue side-effect jobs are sent to
const DefaultQueue = "side-effects"

// completedRetention keeps finished tasks inspectable when a job asks to keep them
const completedRetention = 24 * time.Hour

// envelope is the task payload consumed by the workers
type envelope struct {
	Payload json.RawMessage `json:"payload"`
	Options event.Options   `json:"options"`
}

// AsynqDispatcher enqueues side-effect jobs on an asynq (Redis) queue
type AsynqDispatcher struct {
	client      *asynq.Client
	queue       string
	maxAttempts int
}

// NewAsynqDispatcher creates a dispatcher. maxAttempts overrides the per-job attempts when positive.
func NewAsynqDispatcher(redisAddr, redisPassword string, redisDB int, queue string, maxAttempts int) *AsynqDispatcher {
	if queue == "" {
		queue = DefaultQueue
	}
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})
	return &AsynqDispatcher{client: client, queue: queue, maxAttempts: maxAttempts}
}

// Enqueue sends the job to the queue. asynq drops failed tasks into its archive and has
// no remove-on-fail switch, so RemoveOnFail is carried in the payload for the workers.
func (d *AsynqDispatcher) Enqueue(ctx context.Context, job event.Job) error {
	opts := job.Options
	if d.maxAttempts > 0 {
		opts.MaxAttempts = d.maxAttempts
	}
	data, err := json.Marshal(envelope{Payload: job.Payload, Options: opts})
	if err != nil {
		return err
	}

	task := asynq.NewTask(job.Code, data)
	if _, err := d.client.EnqueueContext(ctx, task, taskOptions(d.queue, opts)...); err != nil {
		return fmt.Errorf("enqueue %s: %w", job.Code, err)
	}
	return nil
}

// Close releases the Redis connection
func (d *AsynqDispatcher) Close() error {
	return d.client.Close()
}

func taskOptions(queue string, opts event.Options) []asynq.Option {
	retries := opts.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	out := []asynq.Option{asynq.Queue(queue), asynq.MaxRetry(retries)}
	if !opts.RemoveOnComplete {
		out = append(out, asynq.Retention(completedRetention))
	}
	return out
}

// NoopDispatcher drops every job. It is used when the queue is disabled.
type NoopDispatcher struct{}

// Enqueue does nothing
func (NoopDispatcher) Enqueue(ctx context.Context, job event.Job) error { return nil }
