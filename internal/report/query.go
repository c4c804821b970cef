package report

import (
	"bytes"
	"fmt"
	"text/template"
)

// BuildQuery renders a tracker query string from a template and a
// key/value context. Referencing a key the context does not carry is an
// error, so a broken query template fails before it hits the tracker.
func BuildQuery(tmpl string, context map[string]string) (string, error) {
	t, err := template.New("query").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse query template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, context); err != nil {
		return "", fmt.Errorf("failed to render query: %w", err)
	}
	return buf.String(), nil
}
