package gitrepo

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/depscout/depscout/pkg/errors"
)

// CLIStore implements ObjectStore by shelling out to the git binary against
// a local repository directory. Works against normal and bare clones.
type CLIStore struct {
	dir string
}

// NewCLIStore opens the repository at dir. The directory must contain a
// git repository (normal or bare); this is verified lazily on first use.
func NewCLIStore(dir string) *CLIStore {
	return &CLIStore{dir: dir}
}

// Tips returns branch heads, peeled tag targets, and unreachable commits.
// Unreachable discovery is best effort: objects pruned by gc between
// listing and reading simply drop out of the traversal.
func (s *CLIStore) Tips(ctx context.Context) ([]string, error) {
	var tips []string
	seen := make(map[string]bool)
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			tips = append(tips, id)
		}
	}

	out, err := s.git(ctx, "for-each-ref", "--format=%(objectname) %(*objectname)")
	if err != nil {
		return nil, err
	}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		fields := strings.Fields(line)
		switch len(fields) {
		case 1:
			add(fields[0])
		case 2:
			// Annotated tag: the peeled target is the commit.
			add(fields[1])
		}
	}

	// fsck exits non-zero on corrupt repos but also on some benign setups;
	// its output is still usable, so only the spawn failure is fatal.
	out, err = s.git(ctx, "fsck", "--unreachable", "--no-progress")
	if err != nil && out == "" {
		return tips, nil
	}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 3 && fields[0] == "unreachable" && fields[1] == "commit" {
			add(fields[2])
		}
	}

	return tips, nil
}

func (s *CLIStore) Commit(ctx context.Context, id string) (Commit, error) {
	out, err := s.git(ctx, "cat-file", "commit", id)
	if err != nil {
		return Commit{}, err
	}

	c := Commit{ID: id}
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			break // end of headers
		}
		if rest, ok := strings.CutPrefix(line, "parent "); ok {
			c.Parents = append(c.Parents, strings.TrimSpace(rest))
		}
	}
	return c, nil
}

func (s *CLIStore) Tree(ctx context.Context, commitID string) ([]TreeEntry, error) {
	out, err := s.git(ctx, "ls-tree", "-r", "-z", commitID)
	if err != nil {
		return nil, err
	}

	var entries []TreeEntry
	for _, record := range strings.Split(out, "\x00") {
		if record == "" {
			continue
		}
		// <mode> <type> <oid>\t<path>
		meta, path, ok := strings.Cut(record, "\t")
		if !ok {
			continue
		}
		fields := strings.Fields(meta)
		if len(fields) != 3 || fields[1] != "blob" {
			continue
		}
		entries = append(entries, TreeEntry{Path: path, OID: fields[2]})
	}
	return entries, nil
}

func (s *CLIStore) Blob(ctx context.Context, oid string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", s.dir, "cat-file", "blob", oid)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, gitError(err, &stderr)
	}
	return stdout.Bytes(), nil
}

// git runs one git subcommand against the store's repository and returns
// its stdout as a string.
func (s *CLIStore) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", s.dir}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), gitError(err, &stderr)
	}
	return stdout.String(), nil
}

func gitError(err error, stderr *bytes.Buffer) error {
	msg := strings.TrimSpace(stderr.String())
	if msg == "" {
		msg = err.Error()
	}
	return errors.Wrap(errors.ErrCodeInvalidRepo, err, "git: %s", msg)
}

var _ ObjectStore = (*CLIStore)(nil)
