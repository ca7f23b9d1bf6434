package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/lead-engine/internal/api"
	"github.com/sells-group/lead-engine/internal/batch"
	"github.com/sells-group/lead-engine/internal/batch/natssink"
	"github.com/sells-group/lead-engine/internal/batch/redissink"
	"github.com/sells-group/lead-engine/internal/consensus"
	"github.com/sells-group/lead-engine/internal/metrics"
	"github.com/sells-group/lead-engine/internal/persona"
	"github.com/sells-group/lead-engine/internal/pipeline"
	"github.com/sells-group/lead-engine/internal/provider"
	"github.com/sells-group/lead-engine/internal/store"
)

// engineEnv holds everything the enrich, batch and serve commands share.
type engineEnv struct {
	Store    store.Store
	Personas *persona.Service
	Pipeline *pipeline.Pipeline
	Batches  *batch.Manager
	Metrics  *metrics.Recorder
	Mirror   api.ProgressLookup // may be nil

	closers []func()
}

// Close releases resources held by the environment.
func (e *engineEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// initEngine opens the store, seeds default personas, builds providers from
// the configured keys and wires the pipeline. Callers should defer
// env.Close().
func initEngine(ctx context.Context, mode string) (*engineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &engineEnv{Store: st, Metrics: metrics.New()}
	env.closers = append(env.closers, func() { _ = st.Close() })

	env.Personas = persona.NewService(st)
	if _, err := env.Personas.EnsureDefaults(ctx); err != nil {
		env.Close()
		return nil, err
	}

	registry, err := provider.FromConfig(cfg)
	if err != nil {
		env.Close()
		return nil, err
	}
	if !cfg.Enrichment.Mock && registry.Len() == 0 {
		zap.L().Warn("no provider keys configured, every profile will be a mock fallback")
	}
	reconciler := consensus.New(consensus.Config{
		MockMode:        cfg.Enrichment.Mock,
		ProviderTimeout: cfg.Enrichment.ProviderTimeout(),
	}, registry.Snapshot(), provider.MockFromConfig(cfg), env.Metrics)

	orch := batch.NewOrchestrator(cfg.Batch.ChunkSize,
		batch.WithStatusWriter(pipeline.NewStatusWriter(st)),
		batch.WithMetrics(env.Metrics),
	)
	env.Batches = batch.NewManager(orch, cfg.Batch.Retention(), env.initSinks(ctx)...)
	env.Pipeline = pipeline.New(st, reconciler, orch)

	zap.L().Info("engine ready",
		zap.String("store", cfg.Store.Driver),
		zap.Bool("mock", cfg.Enrichment.Mock),
		zap.Strings("providers", reconciler.Providers()),
		zap.Int("chunk_size", orch.ChunkSize()),
	)
	return env, nil
}

// initSinks connects the optional progress sinks. A sink that cannot be
// reached is skipped; jobs still run and stay observable locally.
func (e *engineEnv) initSinks(ctx context.Context) []batch.Sink {
	var sinks []batch.Sink

	if cfg.NATS.URL != "" {
		ns, err := natssink.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			zap.L().Warn("nats progress sink disabled", zap.Error(err))
		} else {
			sinks = append(sinks, ns)
			e.closers = append(e.closers, ns.Close)
			zap.L().Info("publishing batch progress to nats", zap.String("subject", ns.Subject("<job>")))
		}
	}

	if cfg.Redis.Addr != "" {
		rs, err := redissink.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Batch.Retention())
		if err != nil {
			zap.L().Warn("redis progress sink disabled", zap.Error(err))
		} else {
			sinks = append(sinks, rs)
			e.Mirror = rs
			e.closers = append(e.closers, func() { _ = rs.Close() })
			zap.L().Info("mirroring batch progress to redis", zap.String("addr", cfg.Redis.Addr))
		}
	}
	return sinks
}
