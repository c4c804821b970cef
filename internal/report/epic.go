package report

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"sprintwrap/internal/config"
	"sprintwrap/internal/jira"
)

// statusSentinels mark the comment carrying the latest status update.
// Checked case-sensitively, in this order.
var statusSentinels = []string{
	"h1. Status Update:",
	"Status Update:",
	"h1. Status Update",
	"Status Update",
}

var mentionPattern = regexp.MustCompile(`\[~([^\]]+)\]`)

const objectiveLinkLabel = "is subtask of"

// Epic is a parent work item decorated with the derived fields the report
// needs. Counters are maintained by the Collator.
type Epic struct {
	Key          string
	Summary      string
	Objective    string
	Owner        string
	TargetDate   string
	MVPStatus    string
	StatusUpdate string
	HasUpdate    bool

	StoryCount      int
	DoneCount       int
	PercentComplete Percent
}

// Fetcher is the tracker surface the report pipeline depends on.
type Fetcher interface {
	SearchIssues(ctx context.Context, jql string, limit int) ([]jira.Issue, error)
	Issue(ctx context.Context, key string) (jira.Issue, error)
}

// Enricher builds Epics from raw tracker issues, at most one fetch per
// epic key per run. Enrichment issues extra tracker queries, so the cache
// is not optional.
type Enricher struct {
	client  Fetcher
	cfg     *config.Config
	cache   map[string]*Epic
	fetches int
}

// NewEnricher creates an Enricher with an empty cache scoped to one run.
func NewEnricher(client Fetcher, cfg *config.Config) *Enricher {
	return &Enricher{
		client: client,
		cfg:    cfg,
		cache:  make(map[string]*Epic),
	}
}

// Fetches reports how many epic fetches hit the tracker.
func (e *Enricher) Fetches() int { return e.fetches }

// Enrich returns the decorated epic for key, fetching and deriving its
// fields on first use and serving the cached record afterwards.
func (e *Enricher) Enrich(ctx context.Context, key string) (*Epic, error) {
	if epic, ok := e.cache[key]; ok {
		return epic, nil
	}

	e.fetches++
	raw, err := e.client.Issue(ctx, key)
	if err != nil {
		return nil, err
	}

	epic := &Epic{
		Key:        key,
		Summary:    raw.Fields.Summary,
		Objective:  objectiveOf(raw, e.cfg.PlaceholderObjective),
		Owner:      ownerOf(raw),
		TargetDate: raw.Fields.DueDate,
		MVPStatus:  raw.CustomString(e.cfg.MVPStatusField),
	}

	if update, ok := statusUpdate(raw.Fields.Comment.Comments); ok {
		epic.StatusUpdate = update
		epic.HasUpdate = true
	}

	percent, err := e.percentComplete(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("completion for epic %s: %w", key, err)
	}
	epic.PercentComplete = percent

	slog.Debug("enriched epic",
		"epic", key,
		"objective", epic.Objective,
		"percent", epic.PercentComplete.String(),
	)

	e.cache[key] = epic
	return epic, nil
}

// percentComplete runs the OKR query for the epic and weighs resolved
// story points against the total. Issues without an estimate count as the
// configured default.
func (e *Enricher) percentComplete(ctx context.Context, key string) (Percent, error) {
	values := map[string]string{}
	for k, v := range e.cfg.QueryContext {
		values[k] = v
	}
	values["project"] = e.cfg.Project
	values["since"] = e.cfg.Since
	values["epic"] = key

	jql, err := BuildQuery(e.cfg.OKRQueryTemplate, values)
	if err != nil {
		return Percent{}, err
	}

	issues, err := e.client.SearchIssues(ctx, jql, e.cfg.MaxResults)
	if err != nil {
		return Percent{}, err
	}

	var done, total float64
	for _, issue := range issues {
		points, ok := issue.CustomFloat(e.cfg.StoryPointField)
		if !ok {
			points = e.cfg.DefaultEstimate
		}
		total += points
		if issue.Resolved() {
			done += points
		}
	}
	return PercentOf(done, total), nil
}

// statusUpdate scans comments newest-first for a sentinel prefix and
// returns the cleaned first line of the first match.
func statusUpdate(comments []jira.Comment) (string, bool) {
	for i := len(comments) - 1; i >= 0; i-- {
		body := comments[i].Body
		for _, sentinel := range statusSentinels {
			if strings.HasPrefix(body, sentinel) {
				return cleanStatusUpdate(strings.TrimPrefix(body, sentinel)), true
			}
		}
	}
	return "", false
}

// cleanStatusUpdate keeps the first line and neutralizes [~user] mentions
// so rendering the report cannot ping people on the tracker.
func cleanStatusUpdate(body string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(body), "\n")
	line = strings.TrimSpace(line)
	return mentionPattern.ReplaceAllString(line, "**@$1**")
}

// objectiveOf finds the issue this epic is a subtask of and returns its
// summary, or the placeholder when no such link exists.
func objectiveOf(issue jira.Issue, placeholder string) string {
	for _, link := range issue.Fields.IssueLinks {
		if link.Type.Inward != objectiveLinkLabel {
			continue
		}
		if link.OutwardIssue != nil {
			return link.OutwardIssue.Fields.Summary
		}
		if link.InwardIssue != nil {
			return link.InwardIssue.Fields.Summary
		}
	}
	return placeholder
}

func ownerOf(issue jira.Issue) string {
	if issue.Fields.Assignee == nil {
		return ""
	}
	if issue.Fields.Assignee.DisplayName != "" {
		return issue.Fields.Assignee.DisplayName
	}
	return issue.Fields.Assignee.Name
}
