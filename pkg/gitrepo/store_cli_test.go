package gitrepo

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// gitRepo builds a throwaway repository with one commit and returns its
// path and the commit id. Skips when git is not installed.
func gitRepo(t *testing.T) (dir string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir = t.TempDir()
	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}

	run("init", "--quiet", "-b", "main")
	if err := os.WriteFile(filepath.Join(dir, "package.json"),
		[]byte(`{"dependencies": {"left-pad-internal": "^1.0.0"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	run("add", ".")
	run("commit", "--quiet", "-m", "add manifest")
	return dir
}

func TestCLIStoreRoundTrip(t *testing.T) {
	dir := gitRepo(t)
	ctx := context.Background()
	store := NewCLIStore(dir)

	tips, err := store.Tips(ctx)
	if err != nil {
		t.Fatalf("Tips: %v", err)
	}
	if len(tips) == 0 {
		t.Fatal("expected at least the branch head")
	}

	head := tips[0]
	commit, err := store.Commit(ctx, head)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if commit.ID != head || len(commit.Parents) != 0 {
		t.Errorf("commit = %+v", commit)
	}

	entries, err := store.Tree(ctx, head)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "package.json" {
		t.Fatalf("entries = %+v", entries)
	}

	data, err := store.Blob(ctx, entries[0].OID)
	if err != nil {
		t.Fatalf("Blob: %v", err)
	}
	if !strings.Contains(string(data), "left-pad-internal") {
		t.Errorf("blob = %s", data)
	}
}

func TestCLIStoreMineEndToEnd(t *testing.T) {
	dir := gitRepo(t)
	store := NewCLIStore(dir)

	res, err := (&Miner{Parsers: testParsers()}).Mine(context.Background(), "acme/site", store)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if len(res.Refs) != 1 || res.Refs[0].Name != "left-pad-internal" {
		t.Fatalf("refs = %+v", res.Refs)
	}
	if res.Refs[0].Commit == "" {
		t.Error("history refs must carry their commit id")
	}
}

func TestAcquirerLocalClone(t *testing.T) {
	src := gitRepo(t)

	a := &Acquirer{WorkDir: t.TempDir()}
	dir, err := a.Acquire(context.Background(), "acme/site", src)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		t.Fatalf("clone has no .git: %v", err)
	}

	// Second acquire fetches instead of recloning.
	if _, err := a.Acquire(context.Background(), "acme/site", src); err != nil {
		t.Fatalf("re-acquire: %v", err)
	}
}

func TestAcquirerFailureIsPerRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	a := &Acquirer{WorkDir: t.TempDir()}
	if _, err := a.Acquire(context.Background(), "acme/missing", filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected acquisition failure for missing remote")
	}
}
