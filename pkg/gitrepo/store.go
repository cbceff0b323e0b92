// Package gitrepo mines package references out of git repositories: from
// the working tree, and from the full commit graph including commits no
// branch or tag can reach anymore.
package gitrepo

import "context"

// Commit is the slice of a commit object the miner needs: identity and
// parent edges.
type Commit struct {
	ID      string
	Parents []string
}

// TreeEntry is one blob in a commit's tree, with its full path from the
// repository root.
type TreeEntry struct {
	Path string
	OID  string
}

// ObjectStore is the capability the miner needs from a repository's object
// database. Keeping traversal independent of storage lets tests drive the
// miner with an in-memory store.
//
// Implementations are not assumed safe for concurrent use; the miner
// traverses one store from one goroutine.
type ObjectStore interface {
	// Tips returns the starting commits for traversal: branch heads, tag
	// targets, and unreachable commit objects still present in the store.
	// An empty repository returns an empty slice, not an error.
	Tips(ctx context.Context) ([]string, error)

	// Commit reads one commit object.
	Commit(ctx context.Context, id string) (Commit, error)

	// Tree returns every blob in the commit's tree, recursively.
	Tree(ctx context.Context, commitID string) ([]TreeEntry, error)

	// Blob reads one blob's content.
	Blob(ctx context.Context, oid string) ([]byte, error)
}
