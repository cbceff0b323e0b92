package gitrepo

import (
	"context"
	"testing"

	"github.com/depscout/depscout/pkg/manifest"
	"github.com/depscout/depscout/pkg/manifest/javascript"
	"github.com/depscout/depscout/pkg/manifest/python"
)

// fakeStore is an in-memory ObjectStore for driving the miner.
type fakeStore struct {
	tips    []string
	commits map[string]Commit
	trees   map[string][]TreeEntry
	blobs   map[string][]byte

	blobReads int
}

func (s *fakeStore) Tips(ctx context.Context) ([]string, error) { return s.tips, nil }

func (s *fakeStore) Commit(ctx context.Context, id string) (Commit, error) {
	c, ok := s.commits[id]
	if !ok {
		return Commit{}, context.Canceled
	}
	return c, nil
}

func (s *fakeStore) Tree(ctx context.Context, commitID string) ([]TreeEntry, error) {
	return s.trees[commitID], nil
}

func (s *fakeStore) Blob(ctx context.Context, oid string) ([]byte, error) {
	s.blobReads++
	return s.blobs[oid], nil
}

func testParsers() []manifest.Parser {
	return []manifest.Parser{&javascript.PackageJSON{}, &python.Requirements{}}
}

func TestMineEmptyHistory(t *testing.T) {
	store := &fakeStore{}
	res, err := (&Miner{Parsers: testParsers()}).Mine(context.Background(), "acme/empty", store)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if len(res.Refs) != 0 || len(res.Errors) != 0 || res.Partial {
		t.Errorf("empty history should yield a clean empty result, got %+v", res)
	}
}

// A reference present only in a commit unreachable from any branch must
// still be found, with provenance pointing at that commit.
func TestMineDanglingCommit(t *testing.T) {
	store := &fakeStore{
		tips: []string{"head", "c7"}, // c7 is unreachable, surfaced by the store
		commits: map[string]Commit{
			"head": {ID: "head", Parents: []string{"base"}},
			"base": {ID: "base"},
			"c7":   {ID: "c7", Parents: []string{"base"}},
		},
		trees: map[string][]TreeEntry{
			"head": {{Path: "package.json", OID: "b1"}},
			"c7":   {{Path: "requirements.txt", OID: "b2"}},
		},
		blobs: map[string][]byte{
			"b1": []byte(`{"dependencies": {"left-pad-internal": "^1.0.0"}}`),
			"b2": []byte("acme-internal-utils==2.1\n"),
		},
	}

	res, err := (&Miner{Parsers: testParsers()}).Mine(context.Background(), "acme/site", store)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if len(res.Refs) != 2 {
		t.Fatalf("got %d references, want 2: %+v", len(res.Refs), res.Refs)
	}

	byName := make(map[string]manifest.Reference)
	for _, r := range res.Refs {
		byName[r.Name] = r
	}

	lp := byName["left-pad-internal"]
	if lp.Ecosystem != manifest.EcosystemNPM || lp.Commit != "head" || lp.Repo != "acme/site" {
		t.Errorf("left-pad-internal provenance = %+v", lp)
	}
	au := byName["acme-internal-utils"]
	if au.Ecosystem != manifest.EcosystemPip || au.Commit != "c7" {
		t.Errorf("acme-internal-utils provenance = %+v", au)
	}
	if au.Path != "requirements.txt" {
		t.Errorf("path = %q", au.Path)
	}
}

func TestMineSharedHistoryVisitedOnce(t *testing.T) {
	// Diamond: two tips merging into shared history.
	store := &fakeStore{
		tips: []string{"a", "b"},
		commits: map[string]Commit{
			"a":    {ID: "a", Parents: []string{"base"}},
			"b":    {ID: "b", Parents: []string{"base"}},
			"base": {ID: "base"},
		},
		trees: map[string][]TreeEntry{
			"base": {{Path: "package.json", OID: "b1"}},
		},
		blobs: map[string][]byte{
			"b1": []byte(`{"dependencies": {"react": "^18"}}`),
		},
	}

	res, err := (&Miner{Parsers: testParsers()}).Mine(context.Background(), "acme/site", store)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if res.Commits != 3 {
		t.Errorf("visited %d commits, want 3", res.Commits)
	}
	if len(res.Refs) != 1 {
		t.Errorf("shared history should contribute once, got %d refs", len(res.Refs))
	}
}

func TestMineCommitCeiling(t *testing.T) {
	// Linear chain of 5 commits, ceiling of 2.
	store := &fakeStore{
		tips: []string{"c5"},
		commits: map[string]Commit{
			"c5": {ID: "c5", Parents: []string{"c4"}},
			"c4": {ID: "c4", Parents: []string{"c3"}},
			"c3": {ID: "c3", Parents: []string{"c2"}},
			"c2": {ID: "c2", Parents: []string{"c1"}},
			"c1": {ID: "c1"},
		},
	}

	res, err := (&Miner{Parsers: testParsers(), MaxCommits: 2}).Mine(context.Background(), "acme/big", store)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if res.Commits != 2 {
		t.Errorf("visited %d commits, want 2", res.Commits)
	}
	if !res.Partial {
		t.Error("hitting the ceiling must be reported as partial coverage")
	}
}

func TestMineRecordsParseAndDecodeErrors(t *testing.T) {
	store := &fakeStore{
		tips: []string{"head"},
		commits: map[string]Commit{
			"head": {ID: "head"},
		},
		trees: map[string][]TreeEntry{
			"head": {
				{Path: "package.json", OID: "broken"},
				{Path: "requirements.txt", OID: "binary"},
				{Path: "ok/package.json", OID: "good"},
			},
		},
		blobs: map[string][]byte{
			"broken": []byte(`{nope`),
			"binary": {0xff, 0xfe, 0x00, 0x01},
			"good":   []byte(`{"dependencies": {"lodash": "^4"}}`),
		},
	}

	res, err := (&Miner{Parsers: testParsers()}).Mine(context.Background(), "acme/site", store)
	if err != nil {
		t.Fatalf("per-file failures must not abort the mine: %v", err)
	}
	if len(res.Refs) != 1 || res.Refs[0].Name != "lodash" {
		t.Errorf("refs = %+v", res.Refs)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("got %d item errors, want 2: %+v", len(res.Errors), res.Errors)
	}
	reasons := map[string]bool{}
	for _, e := range res.Errors {
		reasons[e.Reason] = true
	}
	if !reasons["parse"] || !reasons["decode"] {
		t.Errorf("reasons = %v, want parse and decode", reasons)
	}
}

func TestMineBlobParsedOncePerChain(t *testing.T) {
	// The same manifest blob at every commit of a 3-commit chain should be
	// read and parsed once, yielding 3 provenance-stamped reference sets.
	store := &fakeStore{
		tips: []string{"c3"},
		commits: map[string]Commit{
			"c3": {ID: "c3", Parents: []string{"c2"}},
			"c2": {ID: "c2", Parents: []string{"c1"}},
			"c1": {ID: "c1"},
		},
		trees: map[string][]TreeEntry{
			"c3": {{Path: "package.json", OID: "b1"}},
			"c2": {{Path: "package.json", OID: "b1"}},
			"c1": {{Path: "package.json", OID: "b1"}},
		},
		blobs: map[string][]byte{
			"b1": []byte(`{"dependencies": {"react": "^18"}}`),
		},
	}

	res, err := (&Miner{Parsers: testParsers()}).Mine(context.Background(), "acme/site", store)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if len(res.Refs) != 3 {
		t.Errorf("got %d refs, want one per commit", len(res.Refs))
	}
	if store.blobReads != 1 {
		t.Errorf("blob read %d times, want 1", store.blobReads)
	}
	seen := map[string]bool{}
	for _, r := range res.Refs {
		seen[r.Commit] = true
	}
	if len(seen) != 3 {
		t.Errorf("commits stamped = %v, want all three", seen)
	}
}

func TestMineCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &fakeStore{
		tips:    []string{"c1"},
		commits: map[string]Commit{"c1": {ID: "c1"}},
	}
	if _, err := (&Miner{Parsers: testParsers()}).Mine(ctx, "acme/site", store); err == nil {
		t.Error("cancelled context should stop the mine")
	}
}
