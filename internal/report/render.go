package report

import (
	"bytes"
	"fmt"
	"html"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sprintwrap/internal/config"
)

// Renderer turns an Aggregation into the final report document using the
// configured templates. Rendering has no side effects; the caller decides
// where the text goes.
type Renderer struct {
	cfg *config.Config
}

func NewRenderer(cfg *config.Config) *Renderer {
	return &Renderer{cfg: cfg}
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"slugify": func(s string) string {
			return strings.ReplaceAll(strings.ToLower(s), " ", "-")
		},
		"rst2html": rstToHTML,
		"mask": func(s, ch string) string {
			return strings.Repeat(ch, utf8.RuneCountInString(s))
		},
		"title": cases.Title(language.English).String,
	}
}

// Render produces the report. When a references template is configured it
// renders first with the same context and its output is available to the
// main template under "references".
func (r *Renderer) Render(agg *Aggregation, now time.Time) (string, error) {
	context := r.context(agg, now)

	if r.cfg.ReferencesTemplate != "" {
		references, err := renderFile(r.cfg.ReferencesTemplate, context)
		if err != nil {
			return "", err
		}
		context["references"] = references
	}

	return renderFile(r.cfg.Template, context)
}

func (r *Renderer) context(agg *Aggregation, now time.Time) map[string]any {
	context := map[string]any{
		"title":       r.cfg.Title,
		"subtitle":    r.cfg.Subtitle,
		"project":     r.cfg.Project,
		"label":       r.cfg.Label,
		"since":       r.cfg.Since,
		"server":      r.cfg.Server,
		"today":       now.Format(config.DateFormat),
		"epics":       agg.Epics,
		"issues":      agg.Issues,
		"objectives":  agg.Objectives,
		"completion":  agg.Completion,
		"attribution": r.cfg.Attribution,
	}
	for key, value := range r.cfg.QueryContext {
		if _, taken := context[key]; !taken {
			context[key] = value
		}
	}
	return context
}

func renderFile(path string, context map[string]any) (string, error) {
	tmpl, err := template.New(filepath.Base(path)).
		Funcs(templateFuncs()).
		Option("missingkey=error").
		ParseFiles(path)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, context); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", path, err)
	}
	return buf.String(), nil
}

// rstToHTML converts the reStructuredText subset that shows up in issue
// text: section titles, bullet lists, inline emphasis and literals.
func rstToHTML(src string) string {
	lines := strings.Split(src, "\n")
	var out strings.Builder
	var paragraph []string
	inList := false

	flush := func() {
		if len(paragraph) > 0 {
			out.WriteString("<p>" + rstInline(strings.Join(paragraph, " ")) + "</p>\n")
			paragraph = nil
		}
	}
	closeList := func() {
		if inList {
			out.WriteString("</ul>\n")
			inList = false
		}
	}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], " \t")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			flush()
			closeList()
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			flush()
			if !inList {
				out.WriteString("<ul>\n")
				inList = true
			}
			out.WriteString("<li>" + rstInline(trimmed[2:]) + "</li>\n")
		case i+1 < len(lines) && isUnderline(lines[i+1], len(trimmed)):
			flush()
			closeList()
			tag := "h2"
			if strings.HasPrefix(lines[i+1], "=") {
				tag = "h1"
			}
			out.WriteString("<" + tag + ">" + rstInline(trimmed) + "</" + tag + ">\n")
			i++
		default:
			closeList()
			paragraph = append(paragraph, trimmed)
		}
	}
	flush()
	closeList()

	return strings.TrimRight(out.String(), "\n")
}

// isUnderline reports whether line is a section underline long enough to
// cover a title of width.
func isUnderline(line string, width int) bool {
	line = strings.TrimRight(line, " \t")
	if width == 0 || len(line) < width {
		return false
	}
	for _, marker := range []byte{'=', '-', '~'} {
		if line == strings.Repeat(string(marker), len(line)) {
			return true
		}
	}
	return false
}

var (
	literalPattern = regexp.MustCompile("``([^`]+)``")
	strongPattern  = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	emPattern      = regexp.MustCompile(`\*([^*]+)\*`)
)

func rstInline(s string) string {
	s = html.EscapeString(s)
	s = literalPattern.ReplaceAllString(s, "<code>$1</code>")
	s = strongPattern.ReplaceAllString(s, "<strong>$1</strong>")
	s = emPattern.ReplaceAllString(s, "<em>$1</em>")
	return s
}
