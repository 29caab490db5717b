// Package workerrunner runs the Redis-driven queue worker.
package workerrunner

import (
	"context"

	"go.uber.org/multierr"

	"github.com/jarvisapp/jarvis-sync/redisq"
	"github.com/jarvisapp/jarvis-sync/runner"
	"github.com/jarvisapp/jarvis-sync/tlmt"
)

type workerRunner struct {
	engine *runner.Engine
	client *redisq.Client
	server *redisq.Server
}

func New(ctx context.Context, cfg *runner.Config) (runner.Runner, error) {
	engine, err := runner.NewEngine(ctx, cfg)
	if err != nil {
		return nil, err
	}

	redisCfg := &redisq.Config{
		Host:            cfg.RedisHost,
		Port:            cfg.RedisPort,
		Password:        cfg.RedisPassword,
		DB:              cfg.RedisDB,
		Workers:         cfg.Workers,
		ProcessInterval: cfg.ProcessInterval,
	}

	client, err := redisq.NewClient(redisCfg)
	if err != nil {
		_ = engine.Close()

		return nil, err
	}

	server := redisq.NewServer(redisCfg, engine.Processor, engine.Syncer, runner.Telemetry(), engine.Logger)

	return &workerRunner{
		engine: engine,
		client: client,
		server: server,
	}, nil
}

func (r *workerRunner) Run(ctx context.Context) error {
	evt := tlmt.NewEvent("worker_start", nil)
	_ = runner.Telemetry().Send(ctx, evt)

	return r.server.Start(ctx)
}

func (r *workerRunner) Close(context.Context) error {
	return multierr.Combine(r.client.Close(), r.engine.Close())
}
