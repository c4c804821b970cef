package report

import (
	"context"
	"log/slog"

	"sprintwrap/internal/jira"
)

const doneCategory = "Done"

// Aggregation is the collated result for one run: all enriched epics, the
// issues grouped objective → epic → status category, the epics registered
// under each objective, and each objective's mean completion.
type Aggregation struct {
	Epics      map[string]*Epic
	Issues     map[string]map[string]map[string][]jira.Issue
	Objectives map[string][]string
	Completion map[string]Percent
}

// Collator consumes the fetched issue stream and builds the Aggregation,
// enriching parent epics on demand through the shared Enricher.
type Collator struct {
	enricher  *Enricher
	epicField string
	include   []string
	exclude   map[string]bool
}

// NewCollator creates a Collator. Epics in include appear in the result
// even with zero issues; issues whose parent is in exclude are dropped.
// The caller is responsible for rejecting overlapping lists up front.
func NewCollator(enricher *Enricher, epicField string, include, exclude []string) *Collator {
	excluded := make(map[string]bool, len(exclude))
	for _, key := range exclude {
		excluded[key] = true
	}
	return &Collator{
		enricher:  enricher,
		epicField: epicField,
		include:   include,
		exclude:   excluded,
	}
}

// Collate processes issues in fetch order, single pass. Issues with no
// parent epic and issues under excluded epics are skipped; everything else
// lands in the nested grouping exactly once per issue key.
func (c *Collator) Collate(ctx context.Context, issues []jira.Issue) (*Aggregation, error) {
	agg := &Aggregation{
		Epics:      make(map[string]*Epic),
		Issues:     make(map[string]map[string]map[string][]jira.Issue),
		Objectives: make(map[string][]string),
		Completion: make(map[string]Percent),
	}
	seen := make(map[string]map[string]bool)

	for _, key := range c.include {
		if _, err := c.register(ctx, agg, key); err != nil {
			return nil, err
		}
	}

	for _, issue := range issues {
		epicKey := issue.CustomString(c.epicField)
		if epicKey == "" {
			slog.Debug("skipping issue without parent epic", "issue", issue.Key)
			continue
		}
		if c.exclude[epicKey] {
			slog.Debug("skipping issue under hidden epic", "issue", issue.Key, "epic", epicKey)
			continue
		}

		epic, err := c.register(ctx, agg, epicKey)
		if err != nil {
			return nil, err
		}

		if seen[epicKey] == nil {
			seen[epicKey] = make(map[string]bool)
		}
		if seen[epicKey][issue.Key] {
			continue
		}
		seen[epicKey][issue.Key] = true

		epic.StoryCount++
		category := issue.StatusCategory()
		if category == doneCategory {
			epic.DoneCount++
		}

		byEpic := agg.Issues[epic.Objective]
		if byEpic == nil {
			byEpic = make(map[string]map[string][]jira.Issue)
			agg.Issues[epic.Objective] = byEpic
		}
		byCategory := byEpic[epicKey]
		if byCategory == nil {
			byCategory = make(map[string][]jira.Issue)
			byEpic[epicKey] = byCategory
		}
		byCategory[category] = append(byCategory[category], issue)

		slog.Debug("associated issue", "issue", issue.Key, "epic", epicKey, "category", category)
	}

	for objective, keys := range agg.Objectives {
		percents := make([]Percent, len(keys))
		for i, key := range keys {
			percents[i] = agg.Epics[key].PercentComplete
		}
		agg.Completion[objective] = AveragePercent(percents)
	}

	return agg, nil
}

// register enriches an epic on first sight and records it under its
// objective. An epic belongs to the objective it was first registered
// with for the rest of the run.
func (c *Collator) register(ctx context.Context, agg *Aggregation, key string) (*Epic, error) {
	if epic, ok := agg.Epics[key]; ok {
		return epic, nil
	}
	epic, err := c.enricher.Enrich(ctx, key)
	if err != nil {
		return nil, err
	}
	agg.Epics[key] = epic
	agg.Objectives[epic.Objective] = append(agg.Objectives[epic.Objective], key)
	return epic, nil
}
