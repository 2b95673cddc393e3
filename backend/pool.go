package backend

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// pageHandle wraps a pooled browser page with health tracking metadata.
type pageHandle[T any] struct {
	page     T
	errScore float64
	useCount int
	created  time.Time
	mu       sync.Mutex
}

func newPageHandle[T any](p T) *pageHandle[T] {
	return &pageHandle[T]{
		page:    p,
		created: time.Now(),
	}
}

// recordSuccess decreases the error score (min 0).
func (h *pageHandle[T]) recordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.useCount++
	h.errScore = math.Max(0, h.errScore-0.5)
}

// recordFailure increases the error score.
func (h *pageHandle[T]) recordFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.useCount++
	h.errScore += 1.0
}

// shouldRetire returns true if the page should be retired: too many
// recent failures, too many total uses, or simply too old (renderer
// processes accumulate memory over time).
func (h *pageHandle[T]) shouldRetire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.errScore >= 3.0 {
		return true
	}
	if h.useCount >= 50 {
		return true
	}
	if time.Since(h.created) >= 50*time.Minute {
		return true
	}
	return false
}

// poolConfig holds sizing parameters for the page pool.
type poolConfig struct {
	minPages     int
	maxPages     int
	memThreshold float64 // 0.0-1.0, heap fraction above which the pool shrinks
	scaleStep    float64 // 0.0-1.0, fraction to grow/shrink per interval
}

// pagePool manages a set of reusable browser pages with health-based
// retirement and automatic scaling driven by memory pressure and
// utilization.
type pagePool[T any] struct {
	cfg       poolConfig
	factory   func() (T, error)
	destroyer func(T)

	idle    chan *pageHandle[T]
	mu      sync.Mutex
	all     map[*pageHandle[T]]struct{}
	active  atomic.Int32 // currently checked-out handles
	stopped chan struct{}
}

// newPagePool creates and starts a page pool, pre-creating minPages
// pages with the factory.
func newPagePool[T any](cfg poolConfig, factory func() (T, error), destroyer func(T)) *pagePool[T] {
	if cfg.minPages < 1 {
		cfg.minPages = 1
	}
	if cfg.maxPages < cfg.minPages {
		cfg.maxPages = cfg.minPages
	}
	if cfg.memThreshold <= 0 {
		cfg.memThreshold = 0.9
	}
	if cfg.scaleStep <= 0 {
		cfg.scaleStep = 0.05
	}

	pp := &pagePool[T]{
		cfg:       cfg,
		factory:   factory,
		destroyer: destroyer,
		idle:      make(chan *pageHandle[T], cfg.maxPages),
		all:       make(map[*pageHandle[T]]struct{}),
		stopped:   make(chan struct{}),
	}

	for i := 0; i < cfg.minPages; i++ {
		h, err := pp.createHandle()
		if err != nil {
			slog.Warn("page pool: failed to pre-create page", "error", err)
			continue
		}
		pp.idle <- h
	}

	go pp.scalingLoop()
	return pp
}

// get acquires a page handle, creating one when under the cap, and
// otherwise blocks until a handle is returned or the context ends.
func (pp *pagePool[T]) get(ctx context.Context) (*pageHandle[T], error) {
	select {
	case h := <-pp.idle:
		pp.active.Add(1)
		return h, nil
	default:
	}

	pp.mu.Lock()
	if len(pp.all) < pp.cfg.maxPages {
		h, err := pp.createHandleLocked()
		pp.mu.Unlock()
		if err == nil {
			pp.active.Add(1)
			return h, nil
		}
		// Fall through to blocking wait.
	} else {
		pp.mu.Unlock()
	}

	select {
	case h := <-pp.idle:
		pp.active.Add(1)
		return h, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// put returns a page handle to the pool. Unhealthy handles are
// destroyed, and replaced when that would drop the pool below minimum.
func (pp *pagePool[T]) put(h *pageHandle[T], success bool) {
	pp.active.Add(-1)

	if success {
		h.recordSuccess()
	} else {
		h.recordFailure()
	}

	if h.shouldRetire() {
		slog.Debug("page pool: retiring page",
			"errScore", h.errScore, "useCount", h.useCount)
		pp.destroyHandle(h)

		pp.mu.Lock()
		if len(pp.all) < pp.cfg.minPages {
			if newH, err := pp.createHandleLocked(); err == nil {
				pp.mu.Unlock()
				pp.idle <- newH
				return
			}
		}
		pp.mu.Unlock()
		return
	}

	pp.idle <- h
}

// size returns the total number of live handles.
func (pp *pagePool[T]) size() int {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return len(pp.all)
}

// activeCount returns the number of currently checked-out handles.
func (pp *pagePool[T]) activeCount() int {
	return int(pp.active.Load())
}

// stop shuts down the scaling goroutine and destroys all handles.
func (pp *pagePool[T]) stop() {
	close(pp.stopped)

drainLoop:
	for {
		select {
		case h := <-pp.idle:
			pp.destroyHandle(h)
		default:
			break drainLoop
		}
	}

	pp.mu.Lock()
	for h := range pp.all {
		pp.destroyer(h.page)
		delete(pp.all, h)
	}
	pp.mu.Unlock()
}

func (pp *pagePool[T]) createHandle() (*pageHandle[T], error) {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return pp.createHandleLocked()
}

// createHandleLocked creates a new handle. Caller must hold pp.mu.
func (pp *pagePool[T]) createHandleLocked() (*pageHandle[T], error) {
	p, err := pp.factory()
	if err != nil {
		return nil, err
	}
	h := newPageHandle(p)
	pp.all[h] = struct{}{}
	return h, nil
}

func (pp *pagePool[T]) destroyHandle(h *pageHandle[T]) {
	pp.mu.Lock()
	delete(pp.all, h)
	pp.mu.Unlock()
	pp.destroyer(h.page)
}

// scalingLoop periodically samples memory and adjusts pool size.
func (pp *pagePool[T]) scalingLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-pp.stopped:
			return
		case <-ticker.C:
			pp.scaleCheck()
		}
	}
}

func (pp *pagePool[T]) scaleCheck() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	// Estimate memory pressure as HeapInuse / HeapSys.
	var memPressure float64
	if m.HeapSys > 0 {
		memPressure = float64(m.HeapInuse) / float64(m.HeapSys)
	}

	pp.mu.Lock()
	totalSize := len(pp.all)
	pp.mu.Unlock()

	active := int(pp.active.Load())
	var activeRate float64
	if totalSize > 0 {
		activeRate = float64(active) / float64(totalSize)
	}

	if memPressure > pp.cfg.memThreshold {
		// Shrink: close some idle pages.
		shrinkCount := int(math.Ceil(float64(totalSize) * pp.cfg.scaleStep))
		for i := 0; i < shrinkCount; i++ {
			pp.mu.Lock()
			if len(pp.all) <= pp.cfg.minPages {
				pp.mu.Unlock()
				break
			}
			pp.mu.Unlock()

			select {
			case h := <-pp.idle:
				slog.Debug("page pool: shrinking, retiring page")
				pp.destroyHandle(h)
			default:
				// No idle pages to shrink.
				return
			}
		}
	} else if activeRate > 0.8 {
		// Grow: add pages if under the cap.
		growCount := int(math.Ceil(float64(totalSize) * pp.cfg.scaleStep))
		for i := 0; i < growCount; i++ {
			pp.mu.Lock()
			if len(pp.all) >= pp.cfg.maxPages {
				pp.mu.Unlock()
				break
			}
			h, err := pp.createHandleLocked()
			pp.mu.Unlock()
			if err != nil {
				slog.Warn("page pool: failed to grow", "error", err)
				break
			}
			slog.Debug("page pool: grew pool")
			pp.idle <- h
		}
	}
}
