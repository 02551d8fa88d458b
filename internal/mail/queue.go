package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"blogapi/internal/observability"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	// TaskSendEmail is the asynq task type carrying one Message.
	TaskSendEmail = "email:send"

	mailQueue     = "mail"
	maxRetry      = 5
	deliveryLimit = 30 * time.Second
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueuedMailer hands messages to a Redis-backed asynq queue. A Worker delivers them
// later through the real backend, retrying relay failures.
type QueuedMailer struct {
	queue enqueuer
}

// NewQueuedMailer enqueues through client.
func NewQueuedMailer(client *asynq.Client) *QueuedMailer {
	return &QueuedMailer{queue: client}
}

func (m *QueuedMailer) Send(ctx context.Context, msg Message) error {
	task, err := newSendTask(msg)
	if err != nil {
		return err
	}
	info, err := m.queue.EnqueueContext(ctx, task,
		asynq.Queue(mailQueue), asynq.MaxRetry(maxRetry), asynq.Timeout(deliveryLimit))
	if err != nil {
		return fmt.Errorf("mail: enqueue: %w", err)
	}
	slog.DebugContext(ctx, "email queued", "task_id", info.ID, "template", msg.Template)
	return nil
}

func newSendTask(msg Message) (*asynq.Task, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("mail: encode task: %w", err)
	}
	return asynq.NewTask(TaskSendEmail, payload), nil
}

// DeliveryHandler processes TaskSendEmail by sending through next.
type DeliveryHandler struct {
	next Mailer
}

// NewDeliveryHandler wraps the backend that actually sends.
func NewDeliveryHandler(next Mailer) *DeliveryHandler {
	return &DeliveryHandler{next: next}
}

// ProcessTask implements asynq.Handler. Undecodable payloads are dropped without retry.
func (h *DeliveryHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var msg Message
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		return fmt.Errorf("mail: decode task: %v: %w", err, asynq.SkipRetry)
	}
	if err := h.next.Send(ctx, msg); err != nil {
		retry, _ := asynq.GetRetryCount(ctx)
		observability.EmailsTotal.WithLabelValues(msg.Template, "failed").Inc()
		slog.WarnContext(ctx, "email delivery failed", "template", msg.Template, "retry", retry, "error", err)
		return err
	}
	observability.EmailsTotal.WithLabelValues(msg.Template, "delivered").Inc()
	return nil
}

// RedisOpt converts a go-redis client's options for asynq.
func RedisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	o := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     o.Addr,
		Username: o.Username,
		Password: o.Password,
		DB:       o.DB,
	}
}

// Worker runs DeliveryHandler against the mail queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewWorker builds a worker that delivers queued mail through next.
func NewWorker(opt asynq.RedisConnOpt, next Mailer, concurrency int) *Worker {
	if concurrency <= 0 {
		concurrency = 2
	}
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{mailQueue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			maxed, _ := asynq.GetMaxRetry(ctx)
			slog.ErrorContext(ctx, "mail task failed", "type", task.Type(), "max_retry", maxed, "error", err)
		}),
	})
	mux := asynq.NewServeMux()
	mux.Handle(TaskSendEmail, NewDeliveryHandler(next))
	return &Worker{server: server, mux: mux}
}

// Start begins processing in background goroutines.
func (w *Worker) Start() error {
	return w.server.Start(w.mux)
}

// Shutdown waits for in-flight deliveries and stops the worker.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}
