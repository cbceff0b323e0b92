package registry

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/depscout/depscout/pkg/aggregate"
	"github.com/depscout/depscout/pkg/cache"
	"github.com/depscout/depscout/pkg/errors"
	"github.com/depscout/depscout/pkg/httputil"
	"github.com/depscout/depscout/pkg/manifest"
	"github.com/depscout/depscout/pkg/observability"
)

// Options tune the reconciler's request discipline.
type Options struct {
	// RequestsPerSecond refills each registry's token bucket.
	RequestsPerSecond float64
	// Burst is each bucket's capacity.
	Burst int
	// MaxAttempts bounds tries per lookup, the first included.
	MaxAttempts int
	// RetryDelay is the initial backoff between attempts; it doubles.
	RetryDelay time.Duration
	// Freshness is how long persisted verdicts stay trusted.
	Freshness time.Duration
	// Concurrency caps in-flight lookups across all registries.
	Concurrency int
}

func (o *Options) defaults() {
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 5
	}
	if o.Burst <= 0 {
		o.Burst = 10
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 4
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	if o.Freshness <= 0 {
		o.Freshness = 24 * time.Hour
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
}

// Reconciler produces exactly one verdict per canonical package per run.
//
// Layering per lookup: run-scoped verdict map, then the persistent cache
// within its freshness window, then the registry itself behind a per
// ecosystem token bucket, retry with exponential backoff, and a circuit
// breaker. Singleflight guarantees at most one in-flight query per
// canonical key even when workers race on the same name.
//
// A Reconciler is run-scoped state: create one per run, with an empty run
// cache. The persistent store outlives it.
type Reconciler struct {
	opts     Options
	store    cache.Cache
	checkers map[manifest.Ecosystem]Checker
	limiters map[manifest.Ecosystem]*rate.Limiter
	breakers map[manifest.Ecosystem]*circuit.Breaker

	group singleflight.Group

	mu  sync.Mutex
	run map[aggregate.Key]Verdict
}

// NewReconciler creates a reconciler over the given persistent store and
// checkers. Pass a cache.NullCache to disable persistence.
func NewReconciler(opts Options, store cache.Cache, checkers ...Checker) *Reconciler {
	opts.defaults()

	r := &Reconciler{
		opts:     opts,
		store:    store,
		checkers: make(map[manifest.Ecosystem]Checker),
		limiters: make(map[manifest.Ecosystem]*rate.Limiter),
		breakers: make(map[manifest.Ecosystem]*circuit.Breaker),
		run:      make(map[aggregate.Key]Verdict),
	}
	for _, c := range checkers {
		eco := c.Ecosystem()
		r.checkers[eco] = c
		r.limiters[eco] = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst)

		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = 30 * time.Second
		bo.MaxInterval = 5 * time.Minute
		r.breakers[eco] = circuit.NewBreakerWithOptions(&circuit.Options{
			BackOff:    bo,
			ShouldTrip: circuit.ThresholdTripFunc(5),
		})
	}
	return r
}

// Reconcile looks up every package and returns verdicts in the same
// order. Individual lookup failures become errored verdicts; only context
// cancellation aborts.
func (r *Reconciler) Reconcile(ctx context.Context, pkgs []aggregate.CanonicalPackage) ([]Verdict, error) {
	verdicts := make([]Verdict, len(pkgs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i, pkg := range pkgs {
		g.Go(func() error {
			v, err := r.Lookup(ctx, pkg.Key)
			if err != nil {
				return err
			}
			verdicts[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return verdicts, nil
}

// Lookup resolves one canonical key to a verdict. The only error returned
// is context cancellation; every other failure is folded into the verdict.
func (r *Reconciler) Lookup(ctx context.Context, key aggregate.Key) (Verdict, error) {
	r.mu.Lock()
	if v, ok := r.run[key]; ok {
		r.mu.Unlock()
		return v, nil
	}
	r.mu.Unlock()

	res, err, _ := r.group.Do(flightKey(key), func() (any, error) {
		return r.lookup(ctx, key)
	})
	if err != nil {
		return Verdict{}, err
	}
	return res.(Verdict), nil
}

func flightKey(key aggregate.Key) string {
	return string(key.Ecosystem) + "\x00" + key.Name
}

func (r *Reconciler) lookup(ctx context.Context, key aggregate.Key) (Verdict, error) {
	if v, ok := r.stored(ctx, key); ok {
		observability.Cache().OnCacheHit(ctx, "verdict")
		observability.Registry().OnVerdict(ctx, string(key.Ecosystem), key.Name, v.Exists, true, 0)
		r.remember(key, v)
		return v, nil
	}
	observability.Cache().OnCacheMiss(ctx, "verdict")

	checker, ok := r.checkers[key.Ecosystem]
	if !ok {
		v := Verdict{
			Key:       key,
			Err:       "no checker configured for ecosystem " + string(key.Ecosystem),
			CheckedAt: time.Now().UTC(),
		}
		r.remember(key, v)
		return v, nil
	}

	observability.Registry().OnLookup(ctx, string(key.Ecosystem), key.Name)
	start := time.Now()
	v, err := r.query(ctx, checker, key)
	if err != nil {
		// Only cancellation propagates.
		return Verdict{}, err
	}
	observability.Registry().OnVerdict(ctx, string(key.Ecosystem), key.Name, v.Exists, false, time.Since(start))
	v.Key = key
	v.CheckedAt = time.Now().UTC()
	r.remember(key, v)
	if !v.Errored() {
		r.persist(ctx, key, v)
	}
	return v, nil
}

// query runs the rate-limited retry loop. Every attempt consumes one
// rate-limiter token; transient failures back off and retry, everything
// else resolves immediately.
func (r *Reconciler) query(ctx context.Context, checker Checker, key aggregate.Key) (Verdict, error) {
	limiter := r.limiters[key.Ecosystem]
	breaker := r.breakers[key.Ecosystem]
	delay := r.opts.RetryDelay

	var lastErr error
	for attempt := 0; attempt < r.opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			observability.Registry().OnRetry(ctx, string(key.Ecosystem), key.Name, attempt, lastErr)
			wait := delay
			var rl *errors.RateLimitedError
			if stderrors.As(lastErr, &rl) && rl.RetryAfter > 0 {
				wait = time.Duration(rl.RetryAfter) * time.Second
			}
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return Verdict{}, ctx.Err()
			}
			delay *= 2
		}

		if !breaker.Ready() {
			return Verdict{Err: "registry circuit open"}, nil
		}
		if err := limiter.Wait(ctx); err != nil {
			return Verdict{}, err
		}

		var v Verdict
		err := breaker.Call(func() error {
			var checkErr error
			v, checkErr = checker.Check(ctx, key.Name)
			return checkErr
		}, 0)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return Verdict{}, ctx.Err()
		}
		if !retryable(err) {
			return Verdict{Err: err.Error()}, nil
		}
		lastErr = err
	}

	return Verdict{Err: "retries exhausted: " + lastErr.Error()}, nil
}

func retryable(err error) bool {
	var rl *errors.RateLimitedError
	if stderrors.As(err, &rl) {
		return true
	}
	var re *httputil.RetryableError
	return stderrors.As(err, &re)
}

func (r *Reconciler) remember(key aggregate.Key, v Verdict) {
	r.mu.Lock()
	r.run[key] = v
	r.mu.Unlock()
}

// stored loads a persisted verdict still inside the freshness window.
func (r *Reconciler) stored(ctx context.Context, key aggregate.Key) (Verdict, bool) {
	data, hit, err := r.store.Get(ctx, storeKey(key))
	if err != nil || !hit {
		return Verdict{}, false
	}
	var v Verdict
	if err := json.Unmarshal(data, &v); err != nil {
		return Verdict{}, false
	}
	if time.Since(v.CheckedAt) > r.opts.Freshness {
		return Verdict{}, false
	}
	return v, true
}

func (r *Reconciler) persist(ctx context.Context, key aggregate.Key, v Verdict) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if r.store.Set(ctx, storeKey(key), data, r.opts.Freshness) == nil {
		observability.Cache().OnCacheSet(ctx, "verdict", len(data))
	}
}

func storeKey(key aggregate.Key) string {
	return cache.Key("verdict", string(key.Ecosystem), key.Name)
}
