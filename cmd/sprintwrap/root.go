package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"sprintwrap/internal/config"
	"sprintwrap/internal/jira"
	"sprintwrap/internal/report"
)

func newRootCmd() *cobra.Command {
	var (
		cfgPath      string
		hideList     string
		includeList  string
		contextPairs []string
		contextFile  string
		logLevel     string
		xlsxPath     string

		flagCfg = config.Config{}
	)

	cmd := &cobra.Command{
		Use:           "sprintwrap",
		Short:         "Wrap up a sprint: collate tracker issues under epics and render a review report",
		Long:          `Sprintwrap queries an issue tracker for completed work, groups issues under their parent epics, aggregates completion metrics per epic and objective, and renders a sprint-review report from a template to stdout.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &flagCfg, cfgPath, hideList, includeList, contextPairs, contextFile)
			if err != nil {
				return err
			}

			if warning := configureLogger(logLevel, cfg.LogLevel); warning != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), warning)
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			if cfg.Username != "" && cfg.Password == "" {
				cfg.Password, err = promptPassword(cfg.Username)
				if err != nil {
					return err
				}
			}

			return run(cmd, cfg, xlsxPath)
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "Path to TOML config file (default ~/.sprintwrap.toml)")
	cmd.Flags().StringVar(&flagCfg.Server, "server", "", "Tracker server URL")
	cmd.Flags().StringVar(&flagCfg.CACert, "ca-cert", "", "Path to a CA certificate bundle to trust")
	cmd.Flags().StringVarP(&flagCfg.Username, "user", "u", "", "Basic-auth username (password prompted interactively)")
	cmd.Flags().StringVarP(&flagCfg.Project, "project", "p", "", "Tracker project to report on")
	cmd.Flags().StringVar(&flagCfg.Label, "label", "", "Label to report on")
	cmd.Flags().StringVar(&flagCfg.Since, "since", "", "Past date (YYYY-MM-DD) from which to pull data (default 14 days ago)")
	cmd.Flags().StringVar(&flagCfg.Title, "title", "", "Title of the report")
	cmd.Flags().StringVar(&flagCfg.Subtitle, "subtitle", "", "Subtitle of the report")
	cmd.Flags().StringVarP(&flagCfg.Template, "template", "t", "", "Path to the main report template")
	cmd.Flags().StringVar(&flagCfg.QueryTemplate, "query-template", "", "Template for the main issue query")
	cmd.Flags().StringVar(&flagCfg.OKRQueryTemplate, "okr-query-template", "", "Template for the per-epic completion query")
	cmd.Flags().StringVar(&flagCfg.ReferencesTemplate, "references-template", "", "Path to an optional references template")
	cmd.Flags().StringVar(&flagCfg.EpicField, "epic-field", "", "Custom field key holding an issue's parent epic")
	cmd.Flags().StringVar(&flagCfg.MVPStatusField, "mvp-status-field", "", "Custom field key holding an epic's MVP status")
	cmd.Flags().StringVar(&flagCfg.StoryPointField, "story-point-field", "", "Custom field key holding story points")
	cmd.Flags().Float64Var(&flagCfg.DefaultEstimate, "default-estimate", 0, "Story points assumed for unestimated issues")
	cmd.Flags().StringVar(&flagCfg.PlaceholderObjective, "placeholder-objective", "", "Objective label for epics without one")
	cmd.Flags().IntVar(&flagCfg.MaxResults, "max-results", 0, "Result-count cap for tracker queries")
	cmd.Flags().Bool("no-attribution", false, "Omit the attribution footer from the template context")
	cmd.Flags().StringVar(&hideList, "hide-epics", "", "Comma-separated epic keys to exclude from the report")
	cmd.Flags().StringVar(&includeList, "include-epics", "", "Comma-separated epic keys to include even without issues")
	cmd.Flags().StringArrayVarP(&contextPairs, "context", "c", nil, "Extra key=value template context (repeatable)")
	cmd.Flags().StringVar(&contextFile, "context-file", "", "YAML mapping of extra template context values")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Also write the aggregation as an xlsx workbook")

	return cmd
}

// loadConfig layers configuration: built-in defaults, then the TOML file,
// then any flag the user actually set.
func loadConfig(cmd *cobra.Command, flagCfg *config.Config, cfgPath, hideList, includeList string, contextPairs []string, contextFile string) (*config.Config, error) {
	cfg := config.Default()

	path := cfgPath
	explicit := cmd.Flags().Changed("config")
	if path == "" {
		var err error
		if path, err = config.GlobalPath(); err != nil {
			return nil, err
		}
	}
	if err := config.LoadFile(path, &cfg, explicit); err != nil {
		return nil, err
	}

	overrides := map[string]func(){
		"server":                func() { cfg.Server = flagCfg.Server },
		"ca-cert":               func() { cfg.CACert = flagCfg.CACert },
		"user":                  func() { cfg.Username = flagCfg.Username },
		"project":               func() { cfg.Project = flagCfg.Project },
		"label":                 func() { cfg.Label = flagCfg.Label },
		"since":                 func() { cfg.Since = flagCfg.Since },
		"title":                 func() { cfg.Title = flagCfg.Title },
		"subtitle":              func() { cfg.Subtitle = flagCfg.Subtitle },
		"template":              func() { cfg.Template = flagCfg.Template },
		"query-template":        func() { cfg.QueryTemplate = flagCfg.QueryTemplate },
		"okr-query-template":    func() { cfg.OKRQueryTemplate = flagCfg.OKRQueryTemplate },
		"references-template":   func() { cfg.ReferencesTemplate = flagCfg.ReferencesTemplate },
		"epic-field":            func() { cfg.EpicField = flagCfg.EpicField },
		"mvp-status-field":      func() { cfg.MVPStatusField = flagCfg.MVPStatusField },
		"story-point-field":     func() { cfg.StoryPointField = flagCfg.StoryPointField },
		"default-estimate":      func() { cfg.DefaultEstimate = flagCfg.DefaultEstimate },
		"placeholder-objective": func() { cfg.PlaceholderObjective = flagCfg.PlaceholderObjective },
		"max-results":           func() { cfg.MaxResults = flagCfg.MaxResults },
		"no-attribution":        func() { cfg.Attribution = false },
		"hide-epics":            func() { cfg.HideEpics = config.ParseCSVList(hideList) },
		"include-epics":         func() { cfg.IncludeEpics = config.ParseCSVList(includeList) },
	}
	for name, apply := range overrides {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}

	if err := cfg.ParsePairs(contextPairs); err != nil {
		return nil, err
	}
	if contextFile != "" {
		if err := config.LoadContextFile(contextFile, &cfg); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

func run(cmd *cobra.Command, cfg *config.Config, xlsxPath string) error {
	ctx := cmd.Context()

	client, err := jira.NewClient(cfg.Server, jira.Options{
		Username:   cfg.Username,
		Password:   cfg.Password,
		Token:      cfg.Token,
		CACertPath: cfg.CACert,
	})
	if err != nil {
		return err
	}

	jql, err := report.BuildQuery(cfg.QueryTemplate, queryValues(cfg))
	if err != nil {
		return err
	}
	slog.Info("running query", "jql", jql)

	bar := newSpinner("Fetching issues")
	issues, err := client.SearchIssues(ctx, jql, cfg.MaxResults)
	finishBar(bar)
	if err != nil {
		return err
	}
	slog.Info("fetched issues", "count", len(issues))

	enricher := report.NewEnricher(client, cfg)
	collator := report.NewCollator(enricher, cfg.EpicField, cfg.IncludeEpics, cfg.HideEpics)

	bar = newSpinner("Collating epics")
	agg, err := collator.Collate(ctx, issues)
	finishBar(bar)
	if err != nil {
		return err
	}
	slog.Info("collated issues", "epics", len(agg.Epics), "objectives", len(agg.Objectives), "fetches", enricher.Fetches())

	now := time.Now().UTC()
	output, err := report.NewRenderer(cfg).Render(agg, now)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)

	if xlsxPath != "" {
		if err := report.NewExcelExporter(xlsxPath).Export(agg, cfg.Title, now); err != nil {
			return err
		}
		slog.Info("workbook written", "path", xlsxPath)
	}

	return nil
}

// queryValues is the substitution context for query templates: the fixed
// run parameters plus user-supplied pairs.
func queryValues(cfg *config.Config) map[string]string {
	values := make(map[string]string, len(cfg.QueryContext)+3)
	for key, value := range cfg.QueryContext {
		values[key] = value
	}
	values["project"] = cfg.Project
	values["since"] = cfg.Since
	values["label"] = cfg.Label
	return values
}
