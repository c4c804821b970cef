package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprintwrap/internal/config"
	"sprintwrap/internal/jira"
)

func collate(t *testing.T, tracker *fakeTracker, include, exclude []string, issues []jira.Issue) *Aggregation {
	t.Helper()
	cfg := testConfig()
	enricher := NewEnricher(tracker, cfg)
	collator := NewCollator(enricher, cfg.EpicField, include, exclude)

	agg, err := collator.Collate(context.Background(), issues)
	require.NoError(t, err)
	return agg
}

func TestCollateSkipsOrphanIssues(t *testing.T) {
	tracker := newFakeTracker()
	tracker.issues["E-1"] = epicIssue("E-1", "Grow revenue")

	agg := collate(t, tracker, nil, nil, []jira.Issue{
		storyIssue("S-1", "", "Done", 1, true),
		storyIssue("S-2", "E-1", "Done", 1, true),
	})

	require.Contains(t, agg.Epics, "E-1")
	assert.Equal(t, 1, agg.Epics["E-1"].StoryCount)
	for _, byEpic := range agg.Issues {
		for _, byCategory := range byEpic {
			for _, issues := range byCategory {
				for _, issue := range issues {
					assert.NotEqual(t, "S-1", issue.Key)
				}
			}
		}
	}
}

func TestCollateExcludesHiddenEpics(t *testing.T) {
	tracker := newFakeTracker()
	tracker.issues["E-1"] = epicIssue("E-1", "Grow revenue")
	tracker.issues["E-2"] = epicIssue("E-2", "Reduce churn")

	agg := collate(t, tracker, nil, []string{"E-2"}, []jira.Issue{
		storyIssue("S-1", "E-1", "Done", 1, true),
		storyIssue("S-2", "E-1", "To Do", 1, false),
		storyIssue("S-3", "E-2", "Done", 1, true),
	})

	require.Contains(t, agg.Epics, "E-1")
	assert.NotContains(t, agg.Epics, "E-2")
	assert.Equal(t, 2, agg.Epics["E-1"].StoryCount)
	// The hidden epic is never even fetched.
	assert.Zero(t, tracker.issueCalls["E-2"])
}

func TestCollateIncludedEpicsAppearWithoutIssues(t *testing.T) {
	tracker := newFakeTracker()
	tracker.issues["E-3"] = epicIssue("E-3", "Grow revenue")

	agg := collate(t, tracker, []string{"E-3"}, nil, nil)

	require.Contains(t, agg.Epics, "E-3")
	assert.Zero(t, agg.Epics["E-3"].StoryCount)
	assert.Equal(t, []string{"E-3"}, agg.Objectives["Grow revenue"])
	assert.Contains(t, agg.Completion, "Grow revenue")
}

func TestCollateCountsDoneAndStories(t *testing.T) {
	tracker := newFakeTracker()
	tracker.issues["E-1"] = epicIssue("E-1", "Grow revenue")

	agg := collate(t, tracker, nil, nil, []jira.Issue{
		storyIssue("S-1", "E-1", "Done", 2, true),
		storyIssue("S-2", "E-1", "In Progress", 3, false),
		storyIssue("S-3", "E-1", "To Do", 1, false),
	})

	epic := agg.Epics["E-1"]
	assert.Equal(t, 3, epic.StoryCount)
	assert.Equal(t, 1, epic.DoneCount)
	assert.LessOrEqual(t, epic.DoneCount, epic.StoryCount)

	byCategory := agg.Issues["Grow revenue"]["E-1"]
	assert.Len(t, byCategory["Done"], 1)
	assert.Len(t, byCategory["In Progress"], 1)
	assert.Len(t, byCategory["To Do"], 1)
}

func TestCollateDeduplicatesIssuesByKey(t *testing.T) {
	tracker := newFakeTracker()
	tracker.issues["E-1"] = epicIssue("E-1", "Grow revenue")
	dup := storyIssue("S-1", "E-1", "Done", 2, true)

	agg := collate(t, tracker, nil, nil, []jira.Issue{dup, dup})

	epic := agg.Epics["E-1"]
	assert.Equal(t, 1, epic.StoryCount)
	assert.Equal(t, 1, epic.DoneCount)
	assert.Len(t, agg.Issues["Grow revenue"]["E-1"]["Done"], 1)
}

func TestCollateEnrichesEachEpicOnce(t *testing.T) {
	tracker := newFakeTracker()
	tracker.issues["E-1"] = epicIssue("E-1", "Grow revenue")

	collate(t, tracker, nil, nil, []jira.Issue{
		storyIssue("S-1", "E-1", "Done", 1, true),
		storyIssue("S-2", "E-1", "Done", 1, true),
		storyIssue("S-3", "E-1", "Done", 1, true),
	})

	assert.Equal(t, 1, tracker.issueCalls["E-1"])
}

func TestCollateGroupsEpicsByObjective(t *testing.T) {
	tracker := newFakeTracker()
	tracker.issues["E-1"] = epicIssue("E-1", "Grow revenue")
	tracker.issues["E-2"] = epicIssue("E-2", "Grow revenue")
	tracker.issues["E-3"] = epicIssue("E-3", "")

	agg := collate(t, tracker, nil, nil, []jira.Issue{
		storyIssue("S-1", "E-1", "Done", 1, true),
		storyIssue("S-2", "E-2", "To Do", 1, false),
		storyIssue("S-3", "E-3", "To Do", 1, false),
	})

	assert.ElementsMatch(t, []string{"E-1", "E-2"}, agg.Objectives["Grow revenue"])
	assert.Equal(t, []string{"E-3"}, agg.Objectives[config.DefaultPlaceholder])

	// Every epic in the nested issue mapping is in the epic mapping.
	for _, byEpic := range agg.Issues {
		for key := range byEpic {
			assert.Contains(t, agg.Epics, key)
		}
	}
}

func TestCollateObjectiveCompletionIsUnweightedMean(t *testing.T) {
	tracker := newFakeTracker()
	tracker.issues["E-1"] = epicIssue("E-1", "Grow revenue")
	tracker.issues["E-2"] = epicIssue("E-2", "Grow revenue")
	tracker.searches[okrQuery("E-1")] = []jira.Issue{
		storyIssue("S-1", "E-1", "Done", 2, true),
		storyIssue("S-2", "E-1", "To Do", 2, false),
	} // 50%
	tracker.searches[okrQuery("E-2")] = []jira.Issue{
		storyIssue("S-3", "E-2", "Done", 1, true),
	} // 100%

	agg := collate(t, tracker, nil, nil, []jira.Issue{
		storyIssue("S-1", "E-1", "Done", 2, true),
		storyIssue("S-3", "E-2", "Done", 1, true),
	})

	assert.Equal(t, "75.0", agg.Completion["Grow revenue"].String())
}

func TestCollateUndefinedEpicPoisonsObjectiveMean(t *testing.T) {
	tracker := newFakeTracker()
	tracker.issues["E-1"] = epicIssue("E-1", "Grow revenue")
	tracker.issues["E-2"] = epicIssue("E-2", "Grow revenue")
	tracker.searches[okrQuery("E-1")] = []jira.Issue{
		storyIssue("S-1", "E-1", "Done", 2, true),
	}
	// E-2 has no OKR issues at all: undefined completion.

	agg := collate(t, tracker, nil, nil, []jira.Issue{
		storyIssue("S-1", "E-1", "Done", 2, true),
		storyIssue("S-2", "E-2", "To Do", 1, false),
	})

	assert.Equal(t, "nan", agg.Completion["Grow revenue"].String())
}

func TestCollateFailsWhenEpicFetchFails(t *testing.T) {
	tracker := newFakeTracker() // knows no epics

	cfg := testConfig()
	collator := NewCollator(NewEnricher(tracker, cfg), cfg.EpicField, nil, nil)
	_, err := collator.Collate(context.Background(), []jira.Issue{
		storyIssue("S-1", "E-404", "Done", 1, true),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, jira.ErrNotFound)
}
