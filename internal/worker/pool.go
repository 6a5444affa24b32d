// Package worker runs the render pipeline: N independent loops claiming
// tasks from the queue and driving each one to a terminal status.
package worker

import (
	"context"
	"sync"
	"time"

	"manimq/internal/pkg/logger"
)

// Pool owns the worker loops. Concurrency comes from running multiple
// loops; each loop processes one task at a time to completion.
type Pool struct {
	proc           *Processor
	queueTimeout   time.Duration
	workers        int
	log            *logger.Logger
	dequeueBackoff time.Duration
}

// NewPool creates a Pool from deps.
func NewPool(d Deps) *Pool {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("worker")

	workers := d.Workers
	if workers <= 0 {
		workers = 1
	}
	timeout := d.DequeueTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Pool{
		proc:           NewProcessor(d),
		queueTimeout:   timeout,
		workers:        workers,
		log:            log,
		dequeueBackoff: time.Second,
	}
}

// Run starts the loops and blocks until ctx is canceled and every loop
// has drained its current task.
func (p *Pool) Run(ctx context.Context) {
	p.log.Info("starting worker pool", "workers", p.workers)

	var wg sync.WaitGroup
	for i := 1; i <= p.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.loop(ctx, id)
		}(i)
	}
	wg.Wait()

	p.log.Info("worker pool stopped")
}

func (p *Pool) loop(ctx context.Context, id int) {
	log := p.log.With("worker", id)

	for {
		select {
		case <-ctx.Done():
			log.Info("worker stopping")
			return
		default:
		}

		t, err := p.proc.queue.DequeueBlocking(ctx, p.queueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopping")
				return
			}
			log.Warn("dequeue error, retrying", "error", err.Error())
			time.Sleep(p.dequeueBackoff)
			continue
		}
		if t == nil {
			// Empty queue, not an error. Re-poll.
			continue
		}

		// Once a task is claimed it must reach a terminal status, so
		// processing runs detached from the stop signal: a shutdown
		// mid-render would otherwise cancel the status write and the
		// webhook, stranding the record in processing. The render's own
		// timeout bounds how long a detached task can run.
		taskCtx := logger.ContextWithTaskID(context.WithoutCancel(ctx), t.ID)
		taskLog := log.WithTaskID(t.ID)

		taskLog.Info("processing task")
		start := time.Now()

		if err := p.proc.Process(taskCtx, t); err != nil {
			taskLog.Error("task failed",
				"error", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
			continue
		}
		taskLog.Info("task completed",
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
