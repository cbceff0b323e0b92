package cli

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/depscout/depscout/pkg/config"
	"github.com/depscout/depscout/pkg/errors"
	"github.com/depscout/depscout/pkg/hosting/github"
	"github.com/depscout/depscout/pkg/scan"
)

// scanCommand creates the scan command.
func (c *CLI) scanCommand() *cobra.Command {
	var (
		cfgPath     string
		org         string
		output      string
		format      string
		interactive bool
		noCache     bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Sweep an organization's repositories for confusable packages",
		Long: `Scan lists the organization's repositories, mines every manifest from
each repository's full commit graph (unreachable commits included) and
working tree, checks the canonical package set against the public
registries, and classifies the result.`,
		Example: `  depscout scan --org acme
  depscout scan --org acme --output run.json --format csv
  depscout scan --config depscout.toml --interactive`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)

			cfg, err := loadConfig(cfgPath, org)
			if err != nil {
				return err
			}
			token := cfg.Token()
			if token == "" {
				printWarning("no token set, private repositories are invisible")
				printDetail("set DEPSCOUT_GITHUB_TOKEN or GITHUB_TOKEN")
			}

			repos, err := listRepos(cmd, cfg, token)
			if err != nil {
				return err
			}
			if interactive {
				if repos, err = pickRepos(repos); err != nil {
					return err
				}
			}
			if len(repos) == 0 {
				printInfo("Nothing to scan")
				return nil
			}
			printInfo("Scanning %d repositories of %s", len(repos), cfg.Org)

			store, err := newStore(cmd, cfg, noCache)
			if err != nil {
				return err
			}

			prog := newProgress(c.Logger)
			scanner := &scan.Scanner{Config: cfg, Logger: c.Logger, Store: store}
			report, err := scanner.Run(ctx, token, repos)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Scanned %d repositories", report.Stats.ReposScanned))

			if output != "" {
				if err := report.Save(output); err != nil {
					return err
				}
				printSuccess("Report written to %s", output)
			}
			return renderReport(report, format)
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to a TOML config file")
	cmd.Flags().StringVarP(&org, "org", "o", "", "organization to scan (overrides config)")
	cmd.Flags().StringVar(&output, "output", "", "write the full report as JSON to this file")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "stdout format: text, json, or csv")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "pick repositories before scanning")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "skip the verdict cache for this run")

	return cmd
}

// reposCommand creates the repos listing command.
func (c *CLI) reposCommand() *cobra.Command {
	var (
		cfgPath string
		org     string
	)

	cmd := &cobra.Command{
		Use:   "repos",
		Short: "List the repositories a scan would cover",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath, org)
			if err != nil {
				return err
			}
			repos, err := listRepos(cmd, cfg, cfg.Token())
			if err != nil {
				return err
			}
			for _, r := range repos {
				visibility := "public"
				if r.Private {
					visibility = "private"
				}
				printKeyValue(visibility, r.FullName)
			}
			printDetail("%d repositories", len(repos))
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to a TOML config file")
	cmd.Flags().StringVarP(&org, "org", "o", "", "organization to list (overrides config)")

	return cmd
}

// loadConfig resolves the effective config from file, flags, and defaults.
func loadConfig(cfgPath, org string) (config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return cfg, err
	}
	if org != "" {
		cfg.Org = org
	}
	if cfg.Org == "" {
		return cfg, errors.New(errors.ErrCodeInvalidConfig, "no organization given: use --org or set org in the config")
	}
	if cfg.WorkDir, err = workDir(cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func listRepos(cmd *cobra.Command, cfg config.Config, token string) ([]github.Repo, error) {
	client := github.NewClient(token)
	if cfg.GitHub.BaseURL != "" {
		client.BaseURL = strings.TrimSuffix(cfg.GitHub.BaseURL, "/")
	}

	spinner := newSpinnerWithContext(cmd.Context(), fmt.Sprintf("Listing repositories of %s...", cfg.Org))
	spinner.Start()
	repos, err := client.ListOrgRepos(cmd.Context(), cfg.Org, cfg.GitHub.IncludePrivate)
	spinner.Stop()
	return repos, err
}

// pickRepos runs the interactive repository picker.
func pickRepos(repos []github.Repo) ([]github.Repo, error) {
	model, err := tea.NewProgram(NewRepoPickModel(repos)).Run()
	if err != nil {
		return nil, err
	}
	picked := model.(RepoPickModel).Selection()
	if picked == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "selection aborted")
	}
	return picked, nil
}

// renderReport writes the report to stdout in the requested format.
func renderReport(report *scan.Report, format string) error {
	switch format {
	case "json":
		return report.WriteJSON(os.Stdout)
	case "csv":
		return report.WriteCSV(os.Stdout)
	case "text", "":
		printReport(report)
		return nil
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want text, json, or csv)", format)
	}
}

// printReport renders the styled terminal summary.
func printReport(report *scan.Report) {
	fmt.Println()
	fmt.Println(StyleTitle.Render("Scan " + report.Org))
	printKeyValue("run", report.RunID)
	printKeyValue("level", levelStyle(report.Level).Render(string(report.Level)))
	printKeyValue("repos", fmt.Sprintf("%d of %d", report.Stats.ReposScanned, report.Stats.ReposListed))
	printKeyValue("commits", fmt.Sprintf("%d", report.Stats.CommitsVisited))
	printKeyValue("packages", fmt.Sprintf("%d", report.Stats.PackagesCanonical))
	printKeyValue("findings", fmt.Sprintf("%d", report.Stats.FindingsCount))
	fmt.Println()

	for _, f := range report.Findings {
		sev := severityStyle(f.Severity).Render(strings.ToUpper(string(f.Severity)))
		fmt.Printf("%s %s/%s %s\n", sev, f.Package.Ecosystem, f.Package.Name, StyleDim.Render(string(f.Kind)))
		printDetail("%s", f.Rationale)
		for _, ref := range f.Refs {
			where := ref.Path
			if ref.Line > 0 {
				where = fmt.Sprintf("%s:%d", ref.Path, ref.Line)
			}
			commit := ref.Commit
			if commit == "" {
				commit = "worktree"
			} else if len(commit) > 8 {
				commit = commit[:8]
			}
			printDetail("%s @ %s (%s)", ref.Repo, commit, where)
		}
	}

	if len(report.Gaps) > 0 {
		fmt.Println()
		printWarning("%d coverage gaps", len(report.Gaps))
		for _, g := range report.Gaps {
			if g.Repo != "" {
				printDetail("%s %s: %s", g.Kind, g.Repo, g.Detail)
			} else {
				printDetail("%s: %s", g.Kind, g.Detail)
			}
		}
	}
}
