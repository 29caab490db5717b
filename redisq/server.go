package redisq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/jarvisapp/jarvis-sync/queue"
	"github.com/jarvisapp/jarvis-sync/syncer"
	"github.com/jarvisapp/jarvis-sync/tlmt"
)

// Server runs the asynq worker plus a scheduler that enqueues the
// periodic process-queue pass.
type Server struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	logger    *zap.Logger
	interval  time.Duration
}

func NewServer(cfg *Config, processor *queue.Processor, sync *syncer.Syncer, telemetry tlmt.Telemetry, logger *zap.Logger) *Server {
	redisOpt := asynq.RedisClientOpt{
		Addr:         cfg.addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.workers(),
		Logger:      zapAsynqLogger{logger},
	})

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Logger: zapAsynqLogger{logger},
	})

	mux := asynq.NewServeMux()

	mux.HandleFunc(TypeProcessQueue, func(ctx context.Context, task *asynq.Task) error {
		var p payload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			return fmt.Errorf("bad payload: %w: %w", err, asynq.SkipRetry)
		}

		result, err := processor.ProcessPending(ctx, p.UserID)
		if err != nil {
			return err
		}

		if result.Claimed > 0 {
			logger.Info("processed queue batch",
				zap.Int("claimed", result.Claimed),
				zap.Int("completed", result.Completed),
				zap.Int("rescheduled", result.Rescheduled),
				zap.Int("failed", result.Failed))

			_ = telemetry.Send(ctx, tlmt.NewEvent("queue_batch_processed", map[string]any{
				"claimed":     result.Claimed,
				"completed":   result.Completed,
				"rescheduled": result.Rescheduled,
				"failed":      result.Failed,
			}))
		}

		return nil
	})

	mux.HandleFunc(TypeSyncAll, func(ctx context.Context, task *asynq.Task) error {
		var p payload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			return fmt.Errorf("bad payload: %w: %w", err, asynq.SkipRetry)
		}

		if p.UserID == "" {
			return fmt.Errorf("sync:all requires a user id: %w", asynq.SkipRetry)
		}

		results, err := sync.SyncAll(ctx, p.UserID)
		if err != nil {
			return err
		}

		logger.Info("reconciliation sync finished",
			zap.String("user_id", p.UserID),
			zap.Int("providers", len(results)))

		_ = telemetry.Send(ctx, tlmt.NewEvent("sync_all_finished", map[string]any{
			"providers": len(results),
		}))

		return nil
	})

	return &Server{
		server:    srv,
		scheduler: scheduler,
		mux:       mux,
		logger:    logger,
		interval:  cfg.processInterval(),
	}
}

// Start runs the worker and scheduler until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	entry := fmt.Sprintf("@every %s", s.interval)

	task := asynq.NewTask(TypeProcessQueue, marshalPayload(""))
	if _, err := s.scheduler.Register(entry, task); err != nil {
		return fmt.Errorf("failed to register periodic processing: %w", err)
	}

	if err := s.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	if err := s.server.Start(s.mux); err != nil {
		s.scheduler.Shutdown()

		return fmt.Errorf("failed to start worker: %w", err)
	}

	<-ctx.Done()

	s.scheduler.Shutdown()
	s.server.Shutdown()

	return nil
}

// zapAsynqLogger adapts zap to asynq's logger interface.
type zapAsynqLogger struct {
	logger *zap.Logger
}

func (l zapAsynqLogger) Debug(args ...any) { l.logger.Sugar().Debug(args...) }
func (l zapAsynqLogger) Info(args ...any)  { l.logger.Sugar().Info(args...) }
func (l zapAsynqLogger) Warn(args ...any)  { l.logger.Sugar().Warn(args...) }
func (l zapAsynqLogger) Error(args ...any) { l.logger.Sugar().Error(args...) }
func (l zapAsynqLogger) Fatal(args ...any) { l.logger.Sugar().Fatal(args...) }
