package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ContentIngestor/internal/infrastructure/scheduler"
	"ContentIngestor/internal/ports"
)

const shutdownTimeout = 30 * time.Second

// Scheduler pairs a cron driver with the job launcher.
type Scheduler struct {
	driver *scheduler.CronScheduler
	app    *Application
}

// NewScheduler registers every job that has a cron expression.
func (a *Application) NewScheduler() (*Scheduler, error) {
	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.Location(), a.logger.With(zap.String("component", "scheduler")))
	for _, def := range a.registry.Definitions() {
		if def.Cron == "" {
			continue
		}
		if err := driver.Schedule(def.Name, def.Cron); err != nil {
			return nil, err
		}
	}
	return &Scheduler{driver: driver, app: a}, nil
}

// Driver exposes the underlying scheduler port.
func (s *Scheduler) Driver() ports.Scheduler {
	return s.driver
}

// Start launches cron entries; scheduled and manual runs share one loop.
func (s *Scheduler) Start(ctx context.Context) error {
	return s.driver.Start(ctx, func(ctx context.Context, jobName string, firedAt time.Time, params map[string]string) {
		logger := s.app.logger.With(zap.String("job", jobName), zap.Time("fired_at", firedAt))
		if _, err := s.app.RunJob(ctx, jobName, params); err != nil {
			logger.Error("scheduled run failed", zap.Error(err))
		}
	})
}

// Stop tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	return s.driver.Stop(ctx)
}

// Handler serves /metrics, /healthz, and POST /jobs/{name}/run.
func (a *Application) Handler(trigger ports.Scheduler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.promReg, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /jobs/{name}/run", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if _, err := a.registry.Get(name); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		params := map[string]string{}
		for key, values := range r.URL.Query() {
			if len(values) > 0 {
				params[key] = values[len(values)-1]
			}
		}

		if err := trigger.Trigger(name, params); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"job": name, "status": "queued"})
	})
	return mux
}

// Serve runs the scheduler and the HTTP endpoint until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	sched, err := a.NewScheduler()
	if err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return errors.Wrap(err, "start scheduler")
	}

	server := &http.Server{
		Addr:              a.cfg.Metrics.Address,
		Handler:           a.Handler(sched.Driver()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http endpoint listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = errors.Wrap(err, "http endpoint")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", zap.Error(err))
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler shutdown", zap.Error(err))
	}
	return runErr
}
