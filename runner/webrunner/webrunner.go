// Package webrunner serves the HTTP API.
package webrunner

import (
	"context"
	"errors"

	"github.com/jarvisapp/jarvis-sync/runner"
	"github.com/jarvisapp/jarvis-sync/tlmt"
	"github.com/jarvisapp/jarvis-sync/web"
)

type webRunner struct {
	engine *runner.Engine
	server *web.Server
}

func New(ctx context.Context, cfg *runner.Config) (runner.Runner, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("API_KEY must be set in web mode")
	}

	engine, err := runner.NewEngine(ctx, cfg)
	if err != nil {
		return nil, err
	}

	server := web.New(web.Config{
		Addr:         cfg.Addr,
		APIKey:       cfg.APIKey,
		Tasks:        engine.Tasks,
		TaskStore:    engine.Store,
		Processor:    engine.Processor,
		Syncer:       engine.Syncer,
		Integrations: engine.Store,
		Codec:        engine.Codec,
		OAuth:        engine.OAuth,
		Logger:       engine.Logger,
	})

	return &webRunner{engine: engine, server: server}, nil
}

func (r *webRunner) Run(ctx context.Context) error {
	evt := tlmt.NewEvent("web_start", nil)
	_ = runner.Telemetry().Send(ctx, evt)

	return r.server.Start(ctx)
}

func (r *webRunner) Close(context.Context) error {
	return r.engine.Close()
}
