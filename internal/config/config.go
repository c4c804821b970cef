package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DateFormat = "2006-01-02"

	DefaultEpicField       = "customfield_10006"
	DefaultMVPStatusField  = "customfield_11908"
	DefaultStoryPointField = "customfield_10002"
	DefaultStoryPoints     = 3.0
	DefaultPlaceholder     = "Miscellaneous"
	DefaultMaxResults      = 500
	DefaultSinceDays       = 14

	tokenEnvKey = "SPRINTWRAP_TOKEN"

	// DefaultQueryTemplate selects work resolved since the cutoff date.
	DefaultQueryTemplate = "project = {{.project}}" +
		" AND resolution is not EMPTY" +
		" AND resolutiondate >= {{.since}}" +
		" AND status != Dropped"

	// DefaultOKRQueryTemplate selects the issues that make up an epic's
	// completion percentage.
	DefaultOKRQueryTemplate = `"Epic Link" = {{.epic}}`
)

// Config is the full run configuration: TOML file values act as defaults,
// command-line flags override them.
type Config struct {
	Server   string `toml:"server"`
	CACert   string `toml:"ca_cert"`
	Username string `toml:"username"`
	Password string `toml:"-"`
	Token    string `toml:"-"`
	Project  string `toml:"project"`
	Label    string `toml:"label"`
	Since    string `toml:"since"`
	Title    string `toml:"title"`
	Subtitle string `toml:"subtitle"`

	Template           string `toml:"template"`
	QueryTemplate      string `toml:"query_template"`
	OKRQueryTemplate   string `toml:"okr_query_template"`
	ReferencesTemplate string `toml:"references_template"`

	EpicField       string  `toml:"epic_field"`
	MVPStatusField  string  `toml:"mvp_status_field"`
	StoryPointField string  `toml:"story_point_field"`
	DefaultEstimate float64 `toml:"default_estimate"`

	PlaceholderObjective string `toml:"placeholder_objective"`
	MaxResults           int    `toml:"max_results"`
	Attribution          bool   `toml:"attribution"`
	LogLevel             string `toml:"log_level"`

	HideEpics    []string `toml:"hide_epics"`
	IncludeEpics []string `toml:"include_epics"`

	// QueryContext holds key=value pairs substituted into query templates.
	QueryContext map[string]string `toml:"query_context"`
}

// Default returns the built-in configuration values.
func Default() Config {
	return Config{
		Since:                time.Now().AddDate(0, 0, -DefaultSinceDays).Format(DateFormat),
		QueryTemplate:        DefaultQueryTemplate,
		OKRQueryTemplate:     DefaultOKRQueryTemplate,
		EpicField:            DefaultEpicField,
		MVPStatusField:       DefaultMVPStatusField,
		StoryPointField:      DefaultStoryPointField,
		DefaultEstimate:      DefaultStoryPoints,
		PlaceholderObjective: DefaultPlaceholder,
		MaxResults:           DefaultMaxResults,
		Attribution:          true,
		Token:                strings.TrimSpace(os.Getenv(tokenEnvKey)),
		QueryContext:         map[string]string{},
	}
}

// GlobalPath returns the default config file location.
func GlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".sprintwrap.toml"), nil
}

// LoadFile merges TOML values from path into cfg. A missing file is not an
// error unless explicit is set (the user named the path on the command line).
func LoadFile(path string, cfg *Config, explicit bool) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// LoadContextFile merges a YAML mapping of template context values into
// cfg.QueryContext. Values already present (from --context pairs) win.
func LoadContextFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	values := map[string]string{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("failed to parse context file %s: %w", path, err)
	}
	for key, value := range values {
		if _, ok := cfg.QueryContext[key]; !ok {
			cfg.QueryContext[key] = value
		}
	}
	return nil
}

// Validate rejects incomplete or contradictory configuration before any
// network call is made.
func (c *Config) Validate() error {
	var missing []string
	if c.Server == "" {
		missing = append(missing, "--server")
	}
	if c.Project == "" {
		missing = append(missing, "--project")
	}
	if c.Title == "" {
		missing = append(missing, "--title")
	}
	if c.Template == "" {
		missing = append(missing, "--template")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required options: %s", strings.Join(missing, ", "))
	}

	if _, err := time.Parse(DateFormat, c.Since); err != nil {
		return fmt.Errorf("invalid --since date %q (want YYYY-MM-DD)", c.Since)
	}

	if overlap := intersect(c.HideEpics, c.IncludeEpics); len(overlap) > 0 {
		return fmt.Errorf("epics cannot be both hidden and included: %s", strings.Join(overlap, ", "))
	}

	return nil
}

// ParseCSVList splits a comma-separated flag value and trims whitespace,
// dropping empty entries.
func ParseCSVList(input string) []string {
	if input == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ParsePairs parses repeatable key=value flags into cfg.QueryContext.
func (c *Config) ParsePairs(pairs []string) error {
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return fmt.Errorf("invalid context pair %q (want key=value)", pair)
		}
		c.QueryContext[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return nil
}

func intersect(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	for _, v := range a {
		seen[v] = true
	}
	var both []string
	for _, v := range b {
		if seen[v] {
			both = append(both, v)
		}
	}
	sort.Strings(both)
	return both
}
