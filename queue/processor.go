package queue

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jarvisapp/jarvis-sync/models"
)

const (
	defaultBatchSize = 10

	// A task still in processing after this long belongs to a worker
	// that died mid-batch; it is returned to pending on the next run.
	defaultStaleAfter = 30 * time.Minute
)

// Handler executes one task. A nil return completes the task; any
// error counts as a failed attempt, except *models.ValidationError
// which fails the task permanently (a malformed payload will not parse
// better on retry).
type Handler func(ctx context.Context, task *models.SyncTask) error

type registryKey struct {
	provider  models.Provider
	operation models.Operation
}

// Registry maps (provider, operation) pairs to handlers.
type Registry map[registryKey]Handler

func (r Registry) Register(provider models.Provider, op models.Operation, h Handler) {
	r[registryKey{provider: provider, operation: op}] = h
}

func (r Registry) lookup(provider models.Provider, op models.Operation) (Handler, bool) {
	h, ok := r[registryKey{provider: provider, operation: op}]

	return h, ok
}

// BatchResult summarizes one processing run.
type BatchResult struct {
	Claimed     int `json:"claimed"`
	Completed   int `json:"completed"`
	Rescheduled int `json:"rescheduled"`
	Failed      int `json:"failed"`
}

// Processor claims pending tasks and runs them through the registry.
type Processor struct {
	tasks       models.TaskRepository
	registry    Registry
	policy      RetryPolicy
	maxAttempts int
	batchSize   int
	staleAfter  time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

func WithRetryPolicy(policy RetryPolicy) ProcessorOption {
	return func(p *Processor) {
		p.policy = policy
	}
}

func WithMaxAttempts(n int) ProcessorOption {
	return func(p *Processor) {
		p.maxAttempts = n
	}
}

func WithBatchSize(n int) ProcessorOption {
	return func(p *Processor) {
		p.batchSize = n
	}
}

func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		p.now = now
	}
}

// WithStaleAfter sets how long a task may sit in processing before it
// is treated as abandoned and requeued.
func WithStaleAfter(d time.Duration) ProcessorOption {
	return func(p *Processor) {
		p.staleAfter = d
	}
}

func NewProcessor(tasks models.TaskRepository, registry Registry, logger *zap.Logger, opts ...ProcessorOption) *Processor {
	p := &Processor{
		tasks:       tasks,
		registry:    registry,
		policy:      FixedDelay{Delay: defaultRetryDelay},
		maxAttempts: DefaultMaxAttempts,
		batchSize:   defaultBatchSize,
		staleAfter:  defaultStaleAfter,
		logger:      logger,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ProcessPending claims up to one batch of eligible tasks and runs them
// sequentially in priority order. userID may be empty to process tasks
// across all users. Tasks abandoned in processing by a worker that died
// mid-batch are requeued once they are older than the stale threshold.
func (p *Processor) ProcessPending(ctx context.Context, userID string) (*BatchResult, error) {
	requeued, err := p.tasks.RequeueStale(ctx, p.now().Add(-p.staleAfter))
	if err != nil {
		return nil, err
	}

	if requeued > 0 {
		p.logger.Warn("requeued stale processing tasks", zap.Int("count", requeued))
	}

	tasks, err := p.tasks.Claim(ctx, userID, p.batchSize, p.now())
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Claimed: len(tasks)}

	for i := range tasks {
		p.processOne(ctx, &tasks[i], result)
	}

	return result, nil
}

func (p *Processor) processOne(ctx context.Context, task *models.SyncTask, result *BatchResult) {
	log := p.logger.With(
		zap.String("task_id", task.ID),
		zap.String("user_id", task.UserID),
		zap.String("provider", string(task.IntegrationType)),
		zap.String("operation", string(task.Operation)))

	handler, ok := p.registry.lookup(task.IntegrationType, task.Operation)
	if !ok {
		p.failPermanently(ctx, task, "unsupported operation", result, log)

		return
	}

	err := handler(ctx, task)
	if err == nil {
		if markErr := p.tasks.MarkCompleted(ctx, task.ID, p.now()); markErr != nil {
			log.Error("failed to mark task completed", zap.Error(markErr))
		}

		result.Completed++

		log.Info("task completed", zap.Int("attempts", task.Attempts+1))

		return
	}

	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		p.failPermanently(ctx, task, err.Error(), result, log)

		return
	}

	attempts := task.Attempts + 1
	if attempts >= p.maxAttempts {
		if markErr := p.tasks.MarkFailed(ctx, task.ID, attempts, err.Error()); markErr != nil {
			log.Error("failed to mark task failed", zap.Error(markErr))
		}

		result.Failed++

		log.Warn("task failed permanently",
			zap.Int("attempts", attempts),
			zap.Error(err))

		return
	}

	delay := p.policy.NextDelay(attempts)
	nextRun := p.now().Add(delay)

	if reschedErr := p.tasks.Reschedule(ctx, task.ID, attempts, err.Error(), nextRun); reschedErr != nil {
		log.Error("failed to reschedule task", zap.Error(reschedErr))
	}

	result.Rescheduled++

	log.Warn("task attempt failed, rescheduled",
		zap.Int("attempts", attempts),
		zap.Duration("delay", delay),
		zap.Error(err))
}

func (p *Processor) failPermanently(ctx context.Context, task *models.SyncTask, reason string, result *BatchResult, log *zap.Logger) {
	if err := p.tasks.MarkFailed(ctx, task.ID, task.Attempts+1, reason); err != nil {
		log.Error("failed to mark task failed", zap.Error(err))
	}

	result.Failed++

	log.Warn("task failed permanently", zap.String("reason", reason))
}
