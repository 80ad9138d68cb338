// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register hooks
// at startup to receive events about stackup edits, cutout phases, and
// cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach avoids import cycles (hooks are registered by main, not by
// libraries), keeps the core library free of observability-framework
// dependencies, and allows different backends (OpenTelemetry, Prometheus,
// DataDog, etc.).
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetCutoutHooks(&myCutoutHooks{})
//	    observability.SetStackupHooks(&myStackupHooks{})
//	    // ... run application
//	}
//
// Engines call hooks to emit events:
//
//	observability.Cutout().OnClassifyStart(ctx, primCount, workers)
//	// ... parallel classification ...
//	observability.Cutout().OnClassifyComplete(ctx, deleted, clipped, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// StackupHooks receives events from stackup structural edits and transforms.
type StackupHooks interface {
	// OnCollectionRebuild records one rebuild-and-replace of the layer
	// collection; op names the triggering operation.
	OnCollectionRebuild(ctx context.Context, op string, layerCount int)

	// OnTransformStart records the start of a flip or placement transform.
	OnTransformStart(ctx context.Context, transform string)

	// OnTransformComplete records the outcome of a transform.
	OnTransformComplete(ctx context.Context, transform string, duration time.Duration, err error)
}

// CutoutHooks receives events from the cutout engine's phases.
type CutoutHooks interface {
	// OnPruneComplete records the net-pruning phase.
	OnPruneComplete(ctx context.Context, netsDeleted, pinstsDeleted, primsDeleted int)

	// OnExtentComputed records the clip-region computation.
	OnExtentComputed(ctx context.Context, extentType string, members int, duration time.Duration, err error)

	// OnClassifyStart records the start of parallel classification.
	OnClassifyStart(ctx context.Context, itemCount, workers int)

	// OnClassifyComplete records the end of classification plus the serial
	// apply phase.
	OnClassifyComplete(ctx context.Context, deleted, clipped int, duration time.Duration, err error)
}

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// NoopStackupHooks is a no-op implementation of StackupHooks.
type NoopStackupHooks struct{}

func (NoopStackupHooks) OnCollectionRebuild(context.Context, string, int)                  {}
func (NoopStackupHooks) OnTransformStart(context.Context, string)                          {}
func (NoopStackupHooks) OnTransformComplete(context.Context, string, time.Duration, error) {}

// NoopCutoutHooks is a no-op implementation of CutoutHooks.
type NoopCutoutHooks struct{}

func (NoopCutoutHooks) OnPruneComplete(context.Context, int, int, int)                       {}
func (NoopCutoutHooks) OnExtentComputed(context.Context, string, int, time.Duration, error)  {}
func (NoopCutoutHooks) OnClassifyStart(context.Context, int, int)                            {}
func (NoopCutoutHooks) OnClassifyComplete(context.Context, int, int, time.Duration, error)   {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

var (
	stackupHooks StackupHooks = NoopStackupHooks{}
	cutoutHooks  CutoutHooks  = NoopCutoutHooks{}
	cacheHooks   CacheHooks   = NoopCacheHooks{}
	hooksMu      sync.RWMutex
)

// SetStackupHooks registers custom stackup hooks.
// This should be called once at application startup before any stackup edits.
func SetStackupHooks(h StackupHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		stackupHooks = h
	}
}

// SetCutoutHooks registers custom cutout hooks.
// This should be called once at application startup before any cutout runs.
func SetCutoutHooks(h CutoutHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cutoutHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Stackup returns the registered stackup hooks.
func Stackup() StackupHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return stackupHooks
}

// Cutout returns the registered cutout hooks.
func Cutout() CutoutHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cutoutHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	stackupHooks = NoopStackupHooks{}
	cutoutHooks = NoopCutoutHooks{}
	cacheHooks = NoopCacheHooks{}
}
