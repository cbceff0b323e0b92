// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about repository scanning, registry lookups, and cache
// operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetScanHooks(&myScanHooks{})
//	    observability.SetRegistryHooks(&myRegistryHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Scan().OnRepoStart(ctx, fullName)
//	// ... mine the repository ...
//	observability.Scan().OnRepoComplete(ctx, fullName, commits, refs, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// ScanHooks receives events from repository scanning.
type ScanHooks interface {
	// OnRepoStart records the start of one repository's acquisition and mining.
	OnRepoStart(ctx context.Context, repo string)

	// OnRepoComplete records the end of one repository's scan, with the
	// commits visited and references extracted.
	OnRepoComplete(ctx context.Context, repo string, commits, refs int, duration time.Duration, err error)
}

// RegistryHooks receives events from registry reconciliation.
type RegistryHooks interface {
	// OnLookup records one canonical package lookup reaching the network layer.
	OnLookup(ctx context.Context, ecosystem, name string)

	// OnVerdict records a resolved verdict. cached is true when it came
	// from the persistent store instead of a live query.
	OnVerdict(ctx context.Context, ecosystem, name string, exists, cached bool, duration time.Duration)

	// OnRetry records one retried attempt against a registry.
	OnRetry(ctx context.Context, ecosystem, name string, attempt int, err error)
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

// NoopScanHooks is a no-op implementation of ScanHooks.
type NoopScanHooks struct{}

func (NoopScanHooks) OnRepoStart(context.Context, string)                                  {}
func (NoopScanHooks) OnRepoComplete(context.Context, string, int, int, time.Duration, error) {}

// NoopRegistryHooks is a no-op implementation of RegistryHooks.
type NoopRegistryHooks struct{}

func (NoopRegistryHooks) OnLookup(context.Context, string, string)                            {}
func (NoopRegistryHooks) OnVerdict(context.Context, string, string, bool, bool, time.Duration) {}
func (NoopRegistryHooks) OnRetry(context.Context, string, string, int, error)                 {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

var (
	scanHooks     ScanHooks     = NoopScanHooks{}
	registryHooks RegistryHooks = NoopRegistryHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetScanHooks registers custom scan hooks.
// This should be called once at application startup before any scan runs.
func SetScanHooks(h ScanHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		scanHooks = h
	}
}

// SetRegistryHooks registers custom registry hooks.
// This should be called once at application startup before any lookups.
func SetRegistryHooks(h RegistryHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		registryHooks = h
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

// Scan returns the registered scan hooks.
func Scan() ScanHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return scanHooks
}

// Registry returns the registered registry hooks.
func Registry() RegistryHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return registryHooks
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
	scanHooks = NoopScanHooks{}
	registryHooks = NoopRegistryHooks{}
	cacheHooks = NoopCacheHooks{}
}
