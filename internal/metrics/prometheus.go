// Package metrics exposes engine activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dgnsrekt/sfxpool/internal/cache"
	"github.com/dgnsrekt/sfxpool/pkg/soundpool"
)

// Metrics holds the effect counters. It implements sfx.Observer.
type Metrics struct {
	registry *prometheus.Registry

	EffectsLoaded   prometheus.Counter
	LoadFailures    prometheus.Counter
	EffectsPlayed   *prometheus.CounterVec
	EffectsStopped  prometheus.Counter
	EffectsUnloaded prometheus.Counter
	Looping         prometheus.Gauge
}

// New registers the metrics on a private registry, so several engines (and
// tests) can each have their own.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EffectsLoaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "sfx_effects_loaded_total",
			Help: "Total number of effects loaded into the sound pool",
		}),
		LoadFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "sfx_load_failures_total",
			Help: "Total number of effects that could not be read or decoded",
		}),
		EffectsPlayed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sfx_effects_played_total",
			Help: "Total number of streams started",
		}, []string{"mode"}),
		EffectsStopped: factory.NewCounter(prometheus.CounterOpts{
			Name: "sfx_effects_stopped_total",
			Help: "Total number of streams stopped explicitly",
		}),
		EffectsUnloaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "sfx_effects_unloaded_total",
			Help: "Total number of effects unloaded",
		}),
		Looping: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sfx_looping_streams",
			Help: "Number of looping streams currently tracked",
		}),
	}
}

func (m *Metrics) EffectLoaded(string) { m.EffectsLoaded.Inc() }

func (m *Metrics) EffectLoadFailed(string, error) { m.LoadFailures.Inc() }

func (m *Metrics) EffectPlayed(_ string, loop bool) {
	mode := "once"
	if loop {
		mode = "loop"
	}
	m.EffectsPlayed.WithLabelValues(mode).Inc()
}

func (m *Metrics) EffectStopped(soundpool.SoundID) { m.EffectsStopped.Inc() }

func (m *Metrics) EffectUnloaded(string) { m.EffectsUnloaded.Inc() }

func (m *Metrics) LoopingStreams(n int) { m.Looping.Set(float64(n)) }

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RegisterCache exports clip cache counters, read from stats at scrape time.
func (m *Metrics) RegisterCache(stats func() cache.ManagerStats) {
	factory := promauto.With(m.Registry())
	level := func(l string) prometheus.Labels { return prometheus.Labels{"level": l} }

	factory.NewCounterFunc(prometheus.CounterOpts{
		Name:        "sfx_clip_cache_hits_total",
		Help:        "Decoded clips served from the cache",
		ConstLabels: level("memory"),
	}, func() float64 { return float64(stats().L1Hits) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name:        "sfx_clip_cache_hits_total",
		Help:        "Decoded clips served from the cache",
		ConstLabels: level("disk"),
	}, func() float64 { return float64(stats().L2Hits) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "sfx_clip_cache_misses_total",
		Help: "Clips that had to be decoded",
	}, func() float64 { return float64(stats().Misses) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "sfx_clip_cache_bytes",
		Help:        "Bytes held by the clip cache",
		ConstLabels: level("memory"),
	}, func() float64 { return float64(stats().L1.Size) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "sfx_clip_cache_bytes",
		Help:        "Bytes held by the clip cache",
		ConstLabels: level("disk"),
	}, func() float64 { return float64(stats().L2.Size) })
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
