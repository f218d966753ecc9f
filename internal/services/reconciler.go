package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"witweb-studio/internal/models"
	"witweb-studio/pkg/logger"
)

type ReconcilerConfig struct {
	Interval       time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxAge         time.Duration
}

func (c *ReconcilerConfig) defaults() {
	if c.Interval <= 0 {
		c.Interval = 3 * time.Second
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = c.Interval
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 2 * time.Minute
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 6 * time.Hour
	}
}

// Reconciler drives registry entries to completion on the server: it polls
// every tracked task, finalizes the ones that succeeded and surfaces the ones
// that failed or stalled.
type Reconciler struct {
	registry  *ActiveTaskRegistry
	poller    *Poller
	finalizer *Finalizer
	cfg       ReconcilerConfig

	mu         sync.Mutex
	tasks      map[string]*trackedTask
	processing sync.Map
	wg         sync.WaitGroup

	now func() time.Time
	log *zap.Logger
}

type trackedTask struct {
	ID        string
	Prompt    string
	StartedAt time.Time
	NextPoll  time.Time
	Failures  int
	backoff   *backoff.ExponentialBackOff
}

func NewReconciler(registry *ActiveTaskRegistry, poller *Poller, finalizer *Finalizer, cfg ReconcilerConfig) *Reconciler {
	cfg.defaults()
	return &Reconciler{
		registry:  registry,
		poller:    poller,
		finalizer: finalizer,
		cfg:       cfg,
		tasks:     make(map[string]*trackedTask),
		now:       time.Now,
		log:       logger.Named("reconciler"),
	}
}

func (r *Reconciler) newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = r.cfg.MaxBackoff
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Start runs the polling loop until ctx is canceled
func (r *Reconciler) Start(ctx context.Context) {
	r.log.Info("reconciler started", zap.Duration("interval", r.cfg.Interval))
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.wg.Wait()
			r.log.Info("reconciler stopped")
			return
		case <-ticker.C:
			if err := r.pollDue(ctx); err != nil {
				r.log.Warn("reconcile tick", zap.Error(err))
			}
		}
	}
}

// RunOnce performs a single pass and waits for every poll it started
func (r *Reconciler) RunOnce(ctx context.Context) error {
	err := r.pollDue(ctx)
	r.wg.Wait()
	return err
}

// Tracked returns the ids currently being polled
func (r *Reconciler) Tracked() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.tasks))
	for id := range r.tasks {
		ids = append(ids, id)
	}
	return ids
}

func (r *Reconciler) pollDue(ctx context.Context) error {
	if err := r.sync(ctx); err != nil {
		return err
	}

	now := r.now()
	r.mu.Lock()
	due := make([]*trackedTask, 0, len(r.tasks))
	for _, t := range r.tasks {
		if !now.Before(t.NextPoll) {
			due = append(due, t)
		}
	}
	r.mu.Unlock()

	for _, t := range due {
		if _, busy := r.processing.LoadOrStore(t.ID, struct{}{}); busy {
			continue
		}
		r.wg.Add(1)
		go func(t *trackedTask) {
			defer r.wg.Done()
			defer r.processing.Delete(t.ID)
			r.pollTask(ctx, t)
		}(t)
	}
	return nil
}

// sync aligns the tracked set with the registry. Entries older than MaxAge
// are marked stalled instead of tracked.
func (r *Reconciler) sync(ctx context.Context) error {
	entries, err := r.registry.Tracking(ctx)
	if err != nil {
		return err
	}
	now := r.now()

	seen := make(map[string]struct{}, len(entries))
	var stalled []string
	r.mu.Lock()
	for _, e := range entries {
		if now.Sub(e.StartedAt) > r.cfg.MaxAge {
			stalled = append(stalled, e.ID)
			delete(r.tasks, e.ID)
			continue
		}
		seen[e.ID] = struct{}{}
		if _, ok := r.tasks[e.ID]; ok {
			continue
		}
		r.tasks[e.ID] = &trackedTask{
			ID:        e.ID,
			Prompt:    e.Prompt,
			StartedAt: e.StartedAt,
			NextPoll:  now,
			backoff:   r.newBackoff(),
		}
		r.log.Debug("tracking task", zap.String("task_id", e.ID))
	}
	for id := range r.tasks {
		if _, ok := seen[id]; !ok {
			delete(r.tasks, id)
		}
	}
	r.mu.Unlock()

	for _, id := range stalled {
		detail := fmt.Sprintf("no terminal status after %s", r.cfg.MaxAge)
		if err := r.registry.MarkStalled(ctx, id, detail); err != nil {
			r.log.Error("mark stalled", zap.String("task_id", id), zap.Error(err))
			continue
		}
		r.log.Warn("task stalled", zap.String("task_id", id))
	}
	return nil
}

func (r *Reconciler) pollTask(ctx context.Context, t *trackedTask) {
	log := r.log.With(zap.String("task_id", t.ID))

	_, snap, err := r.poller.PollAndUpdate(ctx, t.ID)
	if err != nil {
		r.retryLater(t, err)
		return
	}

	switch snap.Status {
	case models.TaskStatusSucceeded:
		if _, err := r.finalizer.Finalize(ctx, t.ID, t.Prompt); err != nil {
			if errors.Is(err, ErrFinalizeInProgress) {
				r.pollNext(t)
				return
			}
			r.retryLater(t, err)
			return
		}
		log.Info("task finalized")
		r.drop(t.ID)
	case models.TaskStatusFailed:
		if err := r.registry.MarkFailed(ctx, t.ID, snap.FailureMessage()); err != nil {
			r.retryLater(t, err)
			return
		}
		log.Info("task failed", zap.String("reason", snap.FailureMessage()))
		r.drop(t.ID)
	default:
		r.pollNext(t)
	}
}

func (r *Reconciler) pollNext(t *trackedTask) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.Failures = 0
	t.backoff.Reset()
	t.NextPoll = r.now()
}

func (r *Reconciler) retryLater(t *trackedTask, err error) {
	r.mu.Lock()
	t.Failures++
	wait := t.backoff.NextBackOff()
	t.NextPoll = r.now().Add(wait)
	failures := t.Failures
	r.mu.Unlock()

	r.log.Warn("poll failed, backing off",
		zap.String("task_id", t.ID),
		zap.Int("failures", failures),
		zap.Duration("wait", wait),
		zap.Error(err),
	)
}

func (r *Reconciler) drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, id)
}
