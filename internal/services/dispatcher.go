package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"witweb-studio/pkg/logger"
)

const FinalizeQueueKey = "studio:finalize_queue"

// FinalizeJob asks the dispatcher to wait for a task and materialize it
type FinalizeJob struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
}

// Dispatcher runs blocking wait-and-finalize work off the request path. Jobs
// travel through a Redis list so they survive a restart of the web process.
type Dispatcher struct {
	rdb        *redis.Client
	poller     *Poller
	finalizer  *Finalizer
	registry   *ActiveTaskRegistry
	popTimeout time.Duration
	wg         sync.WaitGroup
	log        *zap.Logger
}

func NewDispatcher(rdb *redis.Client, poller *Poller, finalizer *Finalizer, registry *ActiveTaskRegistry) *Dispatcher {
	return &Dispatcher{
		rdb:        rdb,
		poller:     poller,
		finalizer:  finalizer,
		registry:   registry,
		popTimeout: time.Second,
		log:        logger.Named("dispatcher"),
	}
}

// Enqueue schedules id for background finalization
func (d *Dispatcher) Enqueue(ctx context.Context, id, prompt string) error {
	payload, err := json.Marshal(FinalizeJob{ID: id, Prompt: prompt})
	if err != nil {
		return err
	}
	if err := d.rdb.RPush(ctx, FinalizeQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", id, err)
	}
	return nil
}

// Run pops jobs until ctx is canceled, then waits for running jobs
func (d *Dispatcher) Run(ctx context.Context) {
	d.log.Info("dispatcher started")
	defer func() {
		d.wg.Wait()
		d.log.Info("dispatcher stopped")
	}()

	for ctx.Err() == nil {
		result, err := d.rdb.BLPop(ctx, d.popTimeout, FinalizeQueueKey).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.log.Error("redis BLPop", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		// result[0] is the key, result[1] is the value
		var job FinalizeJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil || job.ID == "" {
			d.log.Warn("invalid finalize job", zap.String("payload", result[1]))
			continue
		}

		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.process(ctx, job)
		}()
	}
}

func (d *Dispatcher) process(ctx context.Context, job FinalizeJob) {
	log := d.log.With(zap.String("task_id", job.ID))

	if _, err := d.poller.PollResult(ctx, job.ID); err != nil {
		var failed *TaskFailedError
		if errors.As(err, &failed) {
			if markErr := d.registry.MarkFailed(ctx, job.ID, failed.Reason); markErr != nil {
				log.Error("mark failed", zap.Error(markErr))
			}
			log.Info("task failed", zap.String("reason", failed.Reason))
			return
		}
		// The registry entry stays tracked so the reconciler can pick it up.
		log.Warn("wait for task", zap.Error(err))
		return
	}

	out, err := d.finalizer.Finalize(ctx, job.ID, job.Prompt)
	if err != nil {
		log.Error("finalize", zap.Error(err))
		return
	}
	if out.Record != nil {
		log.Info("task finalized", zap.String("file", out.Record.File))
	} else if out.Character != nil {
		log.Info("character finalized", zap.String("character_id", out.Character.CharacterID))
	}
}
