package gitrepo

import (
	"context"
	"unicode/utf8"

	"github.com/depscout/depscout/pkg/errors"
	"github.com/depscout/depscout/pkg/manifest"
)

// ItemError records one isolated failure during mining: a blob that would
// not decode, a manifest that would not parse, a commit that would not
// read. Item errors never abort the scan.
type ItemError struct {
	Repo   string `json:"repo"`
	Commit string `json:"commit,omitempty"`
	Path   string `json:"path,omitempty"`
	Err    error  `json:"-"`
	Reason string `json:"reason"`
}

// MineResult is what one repository's history yielded.
type MineResult struct {
	Refs    []manifest.Reference
	Errors  []ItemError
	Commits int  // commits actually visited
	Partial bool // true when the commit ceiling cut traversal short
}

// Miner walks a repository's full commit graph and runs the manifest
// parsers against every manifest-pattern file at every visited commit.
//
// Traversal starts from all of the store's tips, so commits reachable only
// through deleted branches are still covered as long as their objects
// survive in the store. A visited set keyed by commit id keeps shared
// history from being processed twice, which also makes the reference set
// independent of traversal order.
type Miner struct {
	Parsers []manifest.Parser

	// MaxCommits bounds traversal per repository. Zero means unbounded.
	MaxCommits int
}

// Mine traverses the store breadth first. An empty repository yields an
// empty result and no error.
func (m *Miner) Mine(ctx context.Context, repo string, store ObjectStore) (*MineResult, error) {
	tips, err := store.Tips(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRepo, err, "list tips for %s", repo)
	}

	res := &MineResult{}
	visited := make(map[string]bool)
	queue := make([]string, 0, len(tips))
	for _, tip := range tips {
		if !visited[tip] {
			visited[tip] = true
			queue = append(queue, tip)
		}
	}

	// A manifest blob unchanged across many commits parses once; only the
	// provenance stamp differs per commit.
	blobRefs := make(map[string][]manifest.Reference)
	blobBad := make(map[string]bool)

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if m.MaxCommits > 0 && res.Commits >= m.MaxCommits {
			res.Partial = true
			break
		}

		id := queue[0]
		queue = queue[1:]

		commit, err := store.Commit(ctx, id)
		if err != nil {
			// Likely pruned between listing and reading. Record and move on.
			res.Errors = append(res.Errors, ItemError{
				Repo: repo, Commit: id, Err: err, Reason: "read commit",
			})
			continue
		}
		res.Commits++

		m.mineCommit(ctx, repo, store, commit, blobRefs, blobBad, res)

		for _, parent := range commit.Parents {
			if !visited[parent] {
				visited[parent] = true
				queue = append(queue, parent)
			}
		}
	}

	return res, nil
}

func (m *Miner) mineCommit(ctx context.Context, repo string, store ObjectStore, commit Commit, blobRefs map[string][]manifest.Reference, blobBad map[string]bool, res *MineResult) {
	entries, err := store.Tree(ctx, commit.ID)
	if err != nil {
		res.Errors = append(res.Errors, ItemError{
			Repo: repo, Commit: commit.ID, Err: err, Reason: "read tree",
		})
		return
	}

	for _, entry := range entries {
		parser, ok := manifest.Detect(entry.Path, m.Parsers...)
		if !ok {
			continue
		}
		// Cache parses per blob and parser: the same bytes can appear under
		// different filenames handled by different parsers.
		key := entry.OID + "|" + parser.Type()
		if blobBad[key] {
			continue
		}

		refs, cached := blobRefs[key]
		if !cached {
			data, err := store.Blob(ctx, entry.OID)
			if err != nil {
				res.Errors = append(res.Errors, ItemError{
					Repo: repo, Commit: commit.ID, Path: entry.Path, Err: err, Reason: "read blob",
				})
				continue
			}
			if !utf8.Valid(data) {
				blobBad[key] = true
				res.Errors = append(res.Errors, ItemError{
					Repo: repo, Commit: commit.ID, Path: entry.Path,
					Err:    errors.New(errors.ErrCodeDecodeFailed, "content is not valid UTF-8"),
					Reason: "decode",
				})
				continue
			}
			refs, err = parser.Parse(entry.Path, data)
			if err != nil {
				blobBad[key] = true
				res.Errors = append(res.Errors, ItemError{
					Repo: repo, Commit: commit.ID, Path: entry.Path,
					Err:    errors.Wrap(errors.ErrCodeParseFailed, err, "%s", parser.Type()),
					Reason: "parse",
				})
				continue
			}
			blobRefs[key] = refs
		}

		for _, ref := range refs {
			ref.Repo = repo
			ref.Commit = commit.ID
			ref.Path = entry.Path
			res.Refs = append(res.Refs, ref)
		}
	}
}
