package gitrepo

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/depscout/depscout/pkg/errors"
	"github.com/depscout/depscout/pkg/manifest"
)

// dirs never worth descending into.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	"venv":         true,
}

// ScanWorktree walks a checked-out tree for manifest-pattern files and
// parses them. References carry the repo-relative path and no commit id.
// The miner covers history; this covers the state actually on disk.
func ScanWorktree(ctx context.Context, repo, dir string, parsers []manifest.Parser) (*MineResult, error) {
	res := &MineResult{}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		parser, ok := manifest.Detect(path, parsers...)
		if !ok {
			return nil
		}

		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			res.Errors = append(res.Errors, ItemError{
				Repo: repo, Path: rel, Err: readErr, Reason: "read file",
			})
			return nil
		}
		if !utf8.Valid(data) {
			res.Errors = append(res.Errors, ItemError{
				Repo: repo, Path: rel,
				Err:    errors.New(errors.ErrCodeDecodeFailed, "content is not valid UTF-8"),
				Reason: "decode",
			})
			return nil
		}

		refs, parseErr := parser.Parse(rel, data)
		if parseErr != nil {
			res.Errors = append(res.Errors, ItemError{
				Repo: repo, Path: rel,
				Err:    errors.Wrap(errors.ErrCodeParseFailed, parseErr, "%s", parser.Type()),
				Reason: "parse",
			})
			return nil
		}
		for _, ref := range refs {
			ref.Repo = repo
			res.Refs = append(res.Refs, ref)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRepo, err, "walk %s", dir)
	}
	return res, nil
}
