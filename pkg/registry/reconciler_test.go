package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/depscout/depscout/pkg/aggregate"
	"github.com/depscout/depscout/pkg/cache"
	"github.com/depscout/depscout/pkg/manifest"
)

func testOptions() Options {
	return Options{
		RequestsPerSecond: 1000,
		Burst:             100,
		MaxAttempts:       4,
		RetryDelay:        time.Millisecond,
		Freshness:         time.Hour,
	}
}

func npmKey(name string) aggregate.Key {
	return aggregate.Key{Ecosystem: manifest.EcosystemNPM, Name: name}
}

func TestLookupNotFoundIsDefinitive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	npm := NewNPM(NewClient(nil))
	npm.BaseURL = srv.URL
	rec := NewReconciler(testOptions(), cache.NewNullCache(), npm)

	v, err := rec.Lookup(context.Background(), npmKey("left-pad-internal"))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if v.Errored() {
		t.Fatalf("404 must never be a query error, got %q", v.Err)
	}
	if v.Exists {
		t.Error("404 means the package does not exist")
	}
}

// Three 503s then success: the reconciler retries and returns the
// eventual verdict, and exactly 4 requests (token consumptions) happen.
func TestLookupRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"name":"foo-bar","maintainers":[{"name":"alice"}],"time":{"modified":"2024-03-01T10:00:00Z"}}`))
	}))
	defer srv.Close()

	npm := NewNPM(NewClient(nil))
	npm.BaseURL = srv.URL
	rec := NewReconciler(testOptions(), cache.NewNullCache(), npm)

	v, err := rec.Lookup(context.Background(), npmKey("foo-bar"))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if v.Errored() {
		t.Fatalf("expected the eventual success, got error %q", v.Err)
	}
	if !v.Exists || v.Owner != "alice" {
		t.Errorf("verdict = %+v", v)
	}
	if got := calls.Load(); got != 4 {
		t.Errorf("registry saw %d requests, want exactly 4", got)
	}
}

func TestLookupExhaustedRetriesIsErroredVerdict(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	npm := NewNPM(NewClient(nil))
	npm.BaseURL = srv.URL
	rec := NewReconciler(testOptions(), cache.NewNullCache(), npm)

	v, err := rec.Lookup(context.Background(), npmKey("flaky"))
	if err != nil {
		t.Fatalf("exhausted retries must not abort the run: %v", err)
	}
	if !v.Errored() {
		t.Error("expected an errored verdict")
	}
	if v.Exists {
		t.Error("an errored verdict says nothing about existence")
	}
	if got := calls.Load(); got != 4 {
		t.Errorf("registry saw %d requests, want 4", got)
	}
}

func TestLookupRunCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"name":"react"}`))
	}))
	defer srv.Close()

	npm := NewNPM(NewClient(nil))
	npm.BaseURL = srv.URL
	rec := NewReconciler(testOptions(), cache.NewNullCache(), npm)

	ctx := context.Background()
	if _, err := rec.Lookup(ctx, npmKey("react")); err != nil {
		t.Fatal(err)
	}
	if _, err := rec.Lookup(ctx, npmKey("react")); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("registry saw %d requests, want 1", got)
	}
}

// Concurrent lookups of the same key must share one in-flight query.
func TestLookupSingleflight(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Write([]byte(`{"name":"shared"}`))
	}))
	defer srv.Close()

	npm := NewNPM(NewClient(nil))
	npm.BaseURL = srv.URL
	rec := NewReconciler(testOptions(), cache.NewNullCache(), npm)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := rec.Lookup(context.Background(), npmKey("shared")); err != nil {
				t.Error(err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("registry saw %d requests, want 1", got)
	}
}

// A second run over a warm persistent cache issues zero new queries.
func TestWarmCacheRoundTrip(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if strings.Contains(r.URL.Path, "ghost") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"name":"real"}`))
	}))
	defer srv.Close()

	store, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	pkgs := []aggregate.CanonicalPackage{
		{Key: npmKey("real")},
		{Key: npmKey("ghost")},
	}

	makeRec := func() *Reconciler {
		npm := NewNPM(NewClient(nil))
		npm.BaseURL = srv.URL
		return NewReconciler(testOptions(), store, npm)
	}

	first, err := makeRec().Reconcile(context.Background(), pkgs)
	if err != nil {
		t.Fatal(err)
	}
	queriesAfterFirst := calls.Load()

	second, err := makeRec().Reconcile(context.Background(), pkgs)
	if err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != queriesAfterFirst {
		t.Errorf("warm run issued %d new queries, want 0", got-queriesAfterFirst)
	}

	for i := range first {
		if first[i].Exists != second[i].Exists || first[i].Err != second[i].Err {
			t.Errorf("run %d verdict drifted: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestLookupNoCheckerForEcosystem(t *testing.T) {
	rec := NewReconciler(testOptions(), cache.NewNullCache()) // no checkers

	v, err := rec.Lookup(context.Background(), aggregate.Key{Ecosystem: manifest.EcosystemMaven, Name: "com.acme:thing"})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !v.Errored() {
		t.Error("missing checker must yield an errored verdict, not a silent miss")
	}
}

func TestReconcileOneVerdictPerPackage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"x"}`))
	}))
	defer srv.Close()

	npm := NewNPM(NewClient(nil))
	npm.BaseURL = srv.URL
	rec := NewReconciler(testOptions(), cache.NewNullCache(), npm)

	pkgs := []aggregate.CanonicalPackage{
		{Key: npmKey("a")}, {Key: npmKey("b")}, {Key: npmKey("c")},
	}
	verdicts, err := rec.Reconcile(context.Background(), pkgs)
	if err != nil {
		t.Fatal(err)
	}
	if len(verdicts) != len(pkgs) {
		t.Fatalf("got %d verdicts, want %d", len(verdicts), len(pkgs))
	}
	for i, v := range verdicts {
		if v.Key != pkgs[i].Key {
			t.Errorf("verdict %d keyed %+v, want %+v", i, v.Key, pkgs[i].Key)
		}
	}
}

func TestLookupCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	npm := NewNPM(NewClient(nil))
	npm.BaseURL = srv.URL
	opts := testOptions()
	opts.RetryDelay = time.Minute // cancellation should cut the backoff short
	rec := NewReconciler(opts, cache.NewNullCache(), npm)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := rec.Lookup(ctx, npmKey("slow")); err == nil {
		t.Error("cancellation during backoff must propagate")
	}
}
