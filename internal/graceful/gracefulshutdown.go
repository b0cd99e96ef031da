package graceful

import (
	"context"
	"log/slog"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"CaseLifecycle/internal/utils/logger/sl"
)

// Operation releases one resource. It must return once ctx is done.
type Operation func(ctx context.Context) error

// GracefulShutdown waits for a termination signal and then runs every cleanup
// operation concurrently, bounded by timeout. The returned channel is closed
// once all operations have returned.
func GracefulShutdown(ctx context.Context, timeout time.Duration, ops map[string]Operation, logger *slog.Logger) <-chan struct{} {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	wait := make(chan struct{})
	go func() {
		defer stop()
		<-sigCtx.Done()
		Shutdown(context.WithoutCancel(ctx), timeout, ops, logger)
		close(wait)
	}()
	return wait
}

// Shutdown runs the cleanup operations now and blocks until they finish.
// It returns the names of the operations that failed.
func Shutdown(ctx context.Context, timeout time.Duration, ops map[string]Operation, logger *slog.Logger) []string {
	op := "graceful.Shutdown"
	log := logger.With(slog.String("op", op))
	log.Info("shutting down", slog.Duration("timeout", timeout))

	ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []string
	)
	for name, cleanup := range ops {
		wg.Add(1)
		go func() {
			defer wg.Done()

			log.Info("cleaning up", slog.String("process", name))
			if err := cleanup(ctxTimeout); err != nil {
				log.Error("error clean up", slog.String("process", name), sl.Err(err))
				mu.Lock()
				failed = append(failed, name)
				mu.Unlock()
				return
			}
			log.Info("shutdown gracefully", slog.String("process", name))
		}()
	}

	wg.Wait()
	log.Info("graceful shutdown completed", slog.Int("failed", len(failed)))

	if len(failed) == 0 {
		return nil
	}
	slices.Sort(failed)
	return failed
}
