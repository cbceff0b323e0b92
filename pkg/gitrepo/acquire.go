package gitrepo

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/depscout/depscout/pkg/errors"
)

// Acquirer clones organization repositories into a local work directory
// and keeps them updated across runs.
//
// Updates fetch without pruning objects, so commits orphaned by force
// pushes or deleted branches stay in the local object store where the
// miner can still find them. What the remote never sent (objects gc'd
// server side before the first clone) is gone; dangling-commit coverage
// is best effort by nature.
type Acquirer struct {
	// WorkDir is the root under which repositories are placed, one
	// directory per org/name.
	WorkDir string

	// Timeout bounds one clone or fetch. Zero means no bound beyond ctx.
	Timeout time.Duration

	// Token, when set, authenticates HTTPS clones of private repositories.
	Token string
}

// Acquire ensures a local clone of the repository exists and is current,
// returning its path. fullName is "org/name"; cloneURL is the HTTPS
// remote. Failures are per-repository: the caller records them and the
// repository contributes nothing to the run.
func (a *Acquirer) Acquire(ctx context.Context, fullName, cloneURL string) (string, error) {
	dir := filepath.Join(a.WorkDir, filepath.FromSlash(fullName))

	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		if err := a.run(ctx, dir, "fetch", "--all", "--tags", "--force"); err != nil {
			return "", errors.Wrap(errors.ErrCodeAcquisitionFailed, err, "fetch %s", fullName)
		}
		return dir, nil
	}

	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeAcquisitionFailed, err, "create work dir")
	}
	if err := a.run(ctx, "", "clone", "--quiet", a.authURL(cloneURL), dir); err != nil {
		return "", errors.Wrap(errors.ErrCodeAcquisitionFailed, err, "clone %s", fullName)
	}
	return dir, nil
}

// authURL injects the token into an HTTPS clone URL. The rewritten URL is
// only ever passed to git, never logged.
func (a *Acquirer) authURL(cloneURL string) string {
	if a.Token == "" {
		return cloneURL
	}
	if rest, ok := strings.CutPrefix(cloneURL, "https://"); ok {
		return "https://x-access-token:" + a.Token + "@" + rest
	}
	return cloneURL
}

func (a *Acquirer) run(ctx context.Context, dir string, args ...string) error {
	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		// The token may appear in git's error output for bad URLs.
		if a.Token != "" {
			msg = strings.ReplaceAll(msg, a.Token, "***")
		}
		return errors.New(errors.ErrCodeAcquisitionFailed, "%s", msg)
	}
	return nil
}
