// ABOUTME: Speech engine loader selection
// ABOUTME: Builds engine loaders from configuration and resolves media arguments
package cli

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/mindscribe/mindscribe-go/internal/asr"
	"github.com/mindscribe/mindscribe-go/internal/config"
	"github.com/mindscribe/mindscribe-go/internal/discovery"
	"github.com/mindscribe/mindscribe-go/internal/media"
	"github.com/mindscribe/mindscribe-go/pkg/transcribe"
	"github.com/rs/zerolog"
)

// discoverTimeout bounds the mDNS query used to find a worker
const discoverTimeout = 3 * time.Second

// newLoader returns the engine loader selected by cfg
func newLoader(ctx context.Context, cfg config.ASRConfig, logger zerolog.Logger) (transcribe.Loader, error) {
	if cfg.Backend == config.BackendHTTP {
		return &asr.HTTPLoader{
			BaseURL: cfg.Address,
			APIKey:  cfg.APIKey,
			Logger:  logger,
		}, nil
	}

	loader := &asr.WSLoader{Addr: cfg.Address, Codec: cfg.Codec, Logger: logger}
	if !cfg.Discover {
		return loader, nil
	}

	workers, err := discovery.Discover(ctx, discoverTimeout)
	if err != nil {
		return nil, fmt.Errorf("discovering ASR workers: %w", err)
	}
	w, err := selectWorker(workers, cfg.Model)
	if err != nil {
		if cfg.Address != "" {
			logger.Warn().Err(err).Str("address", cfg.Address).Msg("falling back to configured worker")
			return loader, nil
		}
		return nil, err
	}

	logger.Info().Str("worker", w.Name).Str("addr", w.Addr()).Msg("discovered ASR worker")
	loader.Addr = w.Addr()
	loader.Path = w.Path
	return loader, nil
}

// selectWorker prefers the first worker advertising model. Workers that
// publish no model list are assumed to accept any model.
func selectWorker(workers []*discovery.Worker, model string) (*discovery.Worker, error) {
	var fallback *discovery.Worker
	for _, w := range workers {
		if slices.Contains(w.Models, model) {
			return w, nil
		}
		if len(w.Models) == 0 && fallback == nil {
			fallback = w
		}
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, fmt.Errorf("no ASR worker found for model %q (%d workers seen)", model, len(workers))
}

// resolveMedia downloads http(s) media arguments and passes paths through
func (a *app) resolveMedia(ctx context.Context, arg string) (string, error) {
	if !media.IsRemote(arg) {
		return arg, nil
	}
	f, err := media.NewFetcher("", a.logger)
	if err != nil {
		return "", err
	}
	return f.Resolve(ctx, arg)
}
