package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprintwrap/internal/config"
)

func TestBuildQuerySubstitutesContext(t *testing.T) {
	got, err := BuildQuery(config.DefaultQueryTemplate, map[string]string{
		"project": "PROJ",
		"since":   "2026-08-12",
	})
	require.NoError(t, err)
	assert.Equal(t,
		"project = PROJ AND resolution is not EMPTY AND resolutiondate >= 2026-08-12 AND status != Dropped",
		got)
}

func TestBuildQueryCustomTemplate(t *testing.T) {
	got, err := BuildQuery(`project = {{.project}} AND labels = {{.label}}`, map[string]string{
		"project": "PROJ",
		"label":   "sprint-42",
	})
	require.NoError(t, err)
	assert.Equal(t, `project = PROJ AND labels = sprint-42`, got)
}

func TestBuildQueryMissingKeyFails(t *testing.T) {
	_, err := BuildQuery(`project = {{.project}}`, map[string]string{})
	assert.Error(t, err)
}

func TestBuildQueryMalformedTemplateFails(t *testing.T) {
	_, err := BuildQuery(`project = {{.project`, map[string]string{"project": "PROJ"})
	assert.Error(t, err)
}
