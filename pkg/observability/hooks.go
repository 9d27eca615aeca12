// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup to
// receive events about layout loading and saving, cache operations and the
// realtime event channel.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, never by libraries, so there are no import
// cycles and no backend is linked in unless the binary asks for it.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnLoadStart(ctx, communityID)
//	// ... load and place widgets ...
//	observability.Pipeline().OnLoadComplete(ctx, communityID, placed, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the layout pipeline.
type PipelineHooks interface {
	// Load events
	OnLoadStart(ctx context.Context, communityID string)
	OnLoadComplete(ctx context.Context, communityID string, placed int, duration time.Duration, err error)

	// OnUnknownWidgetType records a descriptor skipped because its type has no renderer.
	OnUnknownWidgetType(ctx context.Context, communityID, widgetType string)

	// Save events
	OnSave(ctx context.Context, communityID string, version int64, duration time.Duration, err error)

	// Render events
	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Realtime Hooks
// =============================================================================

// RealtimeHooks receives events from the realtime event hub.
type RealtimeHooks interface {
	// OnConnect records a client subscribing to a community topic.
	OnConnect(ctx context.Context, topic string, clients int)

	// OnDisconnect records a client leaving a topic.
	OnDisconnect(ctx context.Context, topic string, clients int)

	// OnBroadcast records an event fan-out and how many subscribers missed it.
	OnBroadcast(ctx context.Context, topic, event string, delivered, dropped int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnLoadStart(context.Context, string)                               {}
func (NoopPipelineHooks) OnLoadComplete(context.Context, string, int, time.Duration, error) {}
func (NoopPipelineHooks) OnUnknownWidgetType(context.Context, string, string)               {}
func (NoopPipelineHooks) OnSave(context.Context, string, int64, time.Duration, error)       {}
func (NoopPipelineHooks) OnRenderStart(context.Context, []string)                           {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, []string, time.Duration, error)  {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopRealtimeHooks is a no-op implementation of RealtimeHooks.
type NoopRealtimeHooks struct{}

func (NoopRealtimeHooks) OnConnect(context.Context, string, int)                {}
func (NoopRealtimeHooks) OnDisconnect(context.Context, string, int)             {}
func (NoopRealtimeHooks) OnBroadcast(context.Context, string, string, int, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	realtimeHooks RealtimeHooks = NoopRealtimeHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
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

// SetRealtimeHooks registers custom realtime hooks.
func SetRealtimeHooks(h RealtimeHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		realtimeHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Realtime returns the registered realtime hooks.
func Realtime() RealtimeHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return realtimeHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	realtimeHooks = NoopRealtimeHooks{}
}
