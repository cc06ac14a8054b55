// Package resource bounds the memory and throughput of the embedding
// pipeline: decoded images held in flight, parallel decode workers,
// and requests against the embedding service.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for decoded image bytes held
	// in flight. If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// MaxDecodeWorkers is the maximum number of images decoded
	// concurrently within a batch. If 0, defaults to 1.
	MaxDecodeWorkers int64

	// EmbedRequestsPerSec throttles calls to the embedding function.
	// If 0, unlimited.
	EmbedRequestsPerSec float64
}

// Controller manages the pipeline's shared resources.
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Concurrency
	decodeSem *semaphore.Weighted

	// Embedding throughput
	embedLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxDecodeWorkers <= 0 {
		cfg.MaxDecodeWorkers = 1
	}

	c := &Controller{
		cfg:       cfg,
		decodeSem: semaphore.NewWeighted(cfg.MaxDecodeWorkers),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.EmbedRequestsPerSec > 0 {
		c.embedLimiter = rate.NewLimiter(rate.Limit(cfg.EmbedRequestsPerSec), 1)
	}

	return c
}

// AcquireMemory reserves memory for decoded image bytes. If a hard
// limit is configured and usage would exceed it, this blocks until
// memory is available or ctx is canceled.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		// A single item larger than the whole budget still has to make
		// progress; it takes the full budget instead.
		if err := c.memSem.Acquire(ctx, min(bytes, c.cfg.MemoryLimitBytes)); err != nil {
			return err
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(min(bytes, c.cfg.MemoryLimitBytes))
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the currently tracked in-flight bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireDecode reserves a decode worker slot, blocking while all
// slots are busy.
func (c *Controller) AcquireDecode(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.decodeSem.Acquire(ctx, 1)
}

// ReleaseDecode releases a decode worker slot.
func (c *Controller) ReleaseDecode() {
	if c == nil {
		return
	}
	c.decodeSem.Release(1)
}

// WaitEmbed blocks until the embed rate limit allows another request.
func (c *Controller) WaitEmbed(ctx context.Context) error {
	if c == nil || c.embedLimiter == nil {
		return nil
	}
	return c.embedLimiter.Wait(ctx)
}
