// Package scan orchestrates a full organization sweep: acquire every
// repository, mine its history and worktree for package references,
// reconcile the canonical set against the public registries, and classify
// the result.
package scan

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/depscout/depscout/pkg/aggregate"
	"github.com/depscout/depscout/pkg/cache"
	"github.com/depscout/depscout/pkg/config"
	"github.com/depscout/depscout/pkg/errors"
	"github.com/depscout/depscout/pkg/gitrepo"
	"github.com/depscout/depscout/pkg/hosting/github"
	"github.com/depscout/depscout/pkg/manifest"
	"github.com/depscout/depscout/pkg/manifest/all"
	"github.com/depscout/depscout/pkg/observability"
	"github.com/depscout/depscout/pkg/registry"
	"github.com/depscout/depscout/pkg/risk"
)

// Scanner runs one scan over a repository list. Zero-value fields are
// filled with production defaults; tests override the function fields to
// avoid real git and network access.
type Scanner struct {
	Config config.Config
	Logger *log.Logger

	// Parsers defaults to every supported ecosystem, narrowed by
	// Config.Ecosystems.
	Parsers []manifest.Parser

	// Store is the persistent verdict cache. Defaults to a NullCache.
	Store cache.Cache

	// Acquire clones or refreshes one repository and returns its local
	// path. Defaults to a gitrepo.Acquirer over Config.WorkDir.
	Acquire func(ctx context.Context, fullName, cloneURL string) (string, error)

	// OpenStore opens the object store for an acquired repository.
	OpenStore func(dir string) gitrepo.ObjectStore

	// Reconcile resolves canonical packages to verdicts. Defaults to a
	// run-scoped registry.Reconciler over Store.
	Reconcile func(ctx context.Context, pkgs []aggregate.CanonicalPackage) ([]registry.Verdict, error)
}

func (s *Scanner) defaults(token string) {
	if s.Logger == nil {
		s.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if s.Parsers == nil {
		ecos := make([]manifest.Ecosystem, 0, len(s.Config.Ecosystems))
		for _, e := range s.Config.Ecosystems {
			ecos = append(ecos, manifest.Ecosystem(e))
		}
		s.Parsers = all.Parsers(ecos...)
	}
	if s.Store == nil {
		s.Store = cache.NewNullCache()
	}
	if s.Acquire == nil {
		acq := &gitrepo.Acquirer{
			WorkDir: s.Config.WorkDir,
			Timeout: time.Duration(s.Config.Limits.CloneTimeoutSeconds) * time.Second,
			Token:   token,
		}
		s.Acquire = acq.Acquire
	}
	if s.OpenStore == nil {
		s.OpenStore = func(dir string) gitrepo.ObjectStore { return gitrepo.NewCLIStore(dir) }
	}
	if s.Reconcile == nil {
		rec := registry.NewReconciler(registry.Options{
			RequestsPerSecond: s.Config.Registry.RequestsPerSecond,
			Burst:             s.Config.Registry.Burst,
			MaxAttempts:       s.Config.Registry.MaxAttempts,
			Freshness:         time.Duration(s.Config.Cache.FreshnessHours) * time.Hour,
		}, s.Store, registry.DefaultCheckers(registry.NewClient(nil))...)
		s.Reconcile = rec.Reconcile
	}
}

// Run scans the given repositories. Per-repository failures become
// coverage gaps; the run errors out only on cancellation or when not a
// single repository could be acquired.
func (s *Scanner) Run(ctx context.Context, token string, repos []github.Repo) (*Report, error) {
	s.defaults(token)

	report := &Report{
		RunID:     uuid.New().String(),
		Org:       s.Config.Org,
		StartedAt: time.Now().UTC(),
	}
	report.Stats.ReposListed = len(repos)

	table := aggregate.NewTable()
	var mu sync.Mutex // guards report

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Config.Limits.MaxWorkers)
	for _, repo := range repos {
		g.Go(func() error {
			// Cancellation stops new work; repos already in flight finish
			// on their own context checks.
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.scanRepo(gctx, repo)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.Logger.Warn("repository skipped", "repo", repo.FullName, "err", err)
				report.Stats.ReposFailed++
				report.Gaps = append(report.Gaps, CoverageGap{
					Kind: GapAcquisition, Repo: repo.FullName, Detail: err.Error(),
				})
				return nil
			}
			report.Stats.ReposScanned++
			report.Stats.CommitsVisited += res.Commits
			report.Stats.ReferencesFound += len(res.Refs)
			if res.Partial {
				report.Gaps = append(report.Gaps, CoverageGap{
					Kind: GapPartialHistory, Repo: repo.FullName,
					Detail: "commit ceiling reached, history truncated",
				})
			}
			for _, ie := range res.Errors {
				report.Gaps = append(report.Gaps, CoverageGap{
					Kind: GapItemError, Repo: ie.Repo,
					Detail: itemDetail(ie),
				})
			}
			table.Add(res.Refs...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if report.Stats.ReposScanned == 0 && len(repos) > 0 {
		return nil, errors.New(errors.ErrCodeAcquisitionFailed,
			"no repository of %q could be acquired", s.Config.Org)
	}

	report.Packages = table.Packages()
	report.Stats.PackagesCanonical = len(report.Packages)
	s.Logger.Info("reconciling against registries", "packages", len(report.Packages))

	verdicts, err := s.Reconcile(ctx, report.Packages)
	if err != nil {
		return nil, err
	}
	report.Verdicts = verdicts
	for _, v := range verdicts {
		if v.Errored() {
			report.Stats.VerdictsErrored++
			report.Gaps = append(report.Gaps, CoverageGap{
				Kind:   GapVerdictErrored,
				Detail: string(v.Key.Ecosystem) + "/" + v.Key.Name + ": " + v.Err,
			})
		}
	}

	report.Findings = risk.Classify(report.Packages, verdicts, s.riskOptions())
	report.Stats.FindingsCount = len(report.Findings)
	report.Level = risk.AggregateLevel(report.Findings)
	report.FinishedAt = time.Now().UTC()

	s.Logger.Info("scan complete",
		"repos", report.Stats.ReposScanned,
		"packages", report.Stats.PackagesCanonical,
		"findings", report.Stats.FindingsCount,
		"level", report.Level)
	return report, nil
}

// scanRepo acquires one repository and mines both its commit graph and its
// current worktree. Single-goroutine per repository; the object store is
// not shared.
func (s *Scanner) scanRepo(ctx context.Context, repo github.Repo) (res *gitrepo.MineResult, err error) {
	start := time.Now()
	observability.Scan().OnRepoStart(ctx, repo.FullName)
	defer func() {
		commits, refs := 0, 0
		if res != nil {
			commits, refs = res.Commits, len(res.Refs)
		}
		observability.Scan().OnRepoComplete(ctx, repo.FullName, commits, refs, time.Since(start), err)
	}()

	dir, err := s.Acquire(ctx, repo.FullName, repo.CloneURL)
	if err != nil {
		return nil, err
	}

	miner := &gitrepo.Miner{Parsers: s.Parsers, MaxCommits: s.Config.Limits.MaxCommits}
	res, err = miner.Mine(ctx, repo.FullName, s.OpenStore(dir))
	if err != nil {
		return nil, err
	}

	wt, err := gitrepo.ScanWorktree(ctx, repo.FullName, dir, s.Parsers)
	if err != nil {
		return nil, err
	}
	res.Refs = append(res.Refs, wt.Refs...)
	res.Errors = append(res.Errors, wt.Errors...)

	s.Logger.Debug("repository mined",
		"repo", repo.FullName, "commits", res.Commits, "refs", len(res.Refs))
	return res, nil
}

func (s *Scanner) riskOptions() risk.Options {
	prefixes := s.Config.Risk.InternalPrefixes
	if org := s.Config.Org; org != "" {
		// The org name itself is always an internal naming convention.
		prefixes = append(append([]string{}, prefixes...), org+"-")
	}
	opts := risk.Options{
		InternalPrefixes:      prefixes,
		EditDistanceThreshold: s.Config.Risk.EditDistanceThreshold,
	}
	if path := s.Config.Risk.PopularListPath; path != "" {
		sets, err := risk.LoadPopularFile(path)
		if err != nil {
			s.Logger.Warn("popularity list unusable, falling back to built-in", "err", err)
		} else {
			opts.Popular = sets
		}
	}
	return opts
}

func itemDetail(ie gitrepo.ItemError) string {
	detail := ie.Reason
	if ie.Path != "" {
		detail = ie.Path + ": " + detail
	}
	if ie.Commit != "" {
		detail = ie.Commit + ": " + detail
	}
	return detail
}
