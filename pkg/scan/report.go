package scan

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/depscout/depscout/pkg/aggregate"
	"github.com/depscout/depscout/pkg/errors"
	"github.com/depscout/depscout/pkg/registry"
	"github.com/depscout/depscout/pkg/risk"
)

// Gap kinds, recorded whenever the scan's coverage fell short of the full
// organization history.
const (
	GapAcquisition    = "acquisition-failed"
	GapPartialHistory = "partial-history"
	GapItemError      = "item-error"
	GapVerdictErrored = "verdict-errored"
)

// CoverageGap names one known blind spot of a run.
type CoverageGap struct {
	Kind   string `json:"kind"`
	Repo   string `json:"repo,omitempty"`
	Detail string `json:"detail"`
}

// Stats summarizes a run numerically.
type Stats struct {
	ReposListed       int `json:"repos_listed"`
	ReposScanned      int `json:"repos_scanned"`
	ReposFailed       int `json:"repos_failed"`
	CommitsVisited    int `json:"commits_visited"`
	ReferencesFound   int `json:"references_found"`
	PackagesCanonical int `json:"packages_canonical"`
	VerdictsErrored   int `json:"verdicts_errored"`
	FindingsCount     int `json:"findings_count"`
}

// Report is the complete, self-contained result of one run. It marshals to
// JSON so a stored report can be re-rendered later without rescanning.
type Report struct {
	RunID      string    `json:"run_id"`
	Org        string    `json:"org"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Level    risk.Level                   `json:"level"`
	Packages []aggregate.CanonicalPackage `json:"packages"`
	Verdicts []registry.Verdict           `json:"verdicts"`
	Findings []risk.Finding               `json:"findings"`
	Stats    Stats                        `json:"stats"`
	Gaps     []CoverageGap                `json:"gaps,omitempty"`
}

// Save writes the report as indented JSON.
func (r *Report) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "marshal report")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write report")
	}
	return nil
}

// LoadReport reads a report previously written by Save.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "read report")
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode report %s", path)
	}
	return &r, nil
}

// WriteJSON renders the full report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteCSV renders one row per finding, with a header.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ecosystem", "package", "kind", "severity", "repos", "rationale"}); err != nil {
		return err
	}
	for _, f := range r.Findings {
		repos := make(map[string]bool)
		for _, ref := range f.Refs {
			repos[ref.Repo] = true
		}
		row := []string{
			string(f.Package.Ecosystem),
			f.Package.Name,
			string(f.Kind),
			string(f.Severity),
			strconv.Itoa(len(repos)),
			f.Rationale,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteText renders a human-readable summary: stats, findings grouped
// under their package, then coverage gaps.
func (r *Report) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "depscout run %s\n", r.RunID)
	fmt.Fprintf(w, "org %s, risk level %s\n", r.Org, r.Level)
	fmt.Fprintf(w, "repos %d/%d, commits %d, packages %d, findings %d\n\n",
		r.Stats.ReposScanned, r.Stats.ReposListed,
		r.Stats.CommitsVisited, r.Stats.PackagesCanonical, r.Stats.FindingsCount)

	var last aggregate.Key
	for _, f := range r.Findings {
		if f.Package != last {
			fmt.Fprintf(w, "%s/%s\n", f.Package.Ecosystem, f.Package.Name)
			last = f.Package
		}
		fmt.Fprintf(w, "  [%s] %s: %s\n", f.Severity, f.Kind, f.Rationale)
		for _, ref := range f.Refs {
			loc := ref.Path
			if ref.Line > 0 {
				loc += ":" + strconv.Itoa(ref.Line)
			}
			commit := ref.Commit
			if commit == "" {
				commit = "worktree"
			} else if len(commit) > 8 {
				commit = commit[:8]
			}
			fmt.Fprintf(w, "      %s @ %s (%s)\n", ref.Repo, commit, loc)
		}
	}

	if len(r.Gaps) > 0 {
		fmt.Fprintf(w, "\ncoverage gaps (%d):\n", len(r.Gaps))
		for _, g := range r.Gaps {
			if g.Repo != "" {
				fmt.Fprintf(w, "  %s %s: %s\n", g.Kind, g.Repo, g.Detail)
			} else {
				fmt.Fprintf(w, "  %s: %s\n", g.Kind, g.Detail)
			}
		}
	}
	return nil
}
