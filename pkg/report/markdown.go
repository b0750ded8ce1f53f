package report

import (
	"strings"

	"github.com/aymerick/raymond"

	"github.com/fulmenhq/ion/pkg/ionerr"
)

const markdownTemplate = `# {{name}} v{{newVersion}}
{{#if initial}}
Initial release
{{else}}
[Diff since v{{oldVersion}}]({{{compareURL}}})
{{/if}}
{{#if pulls}}

**Merged pull requests:**
{{#each pulls}}
- {{{title}}} (#{{number}}) {{{handle}}}
{{/each}}
{{/if}}
{{#if commits}}

**Commits:**
{{#each commits}}
- {{{title}}} ({{short}})
{{/each}}
{{/if}}
{{#if contributors}}

**Contributors:**
{{#each contributors}}
- {{{handle}}}
{{/each}}
{{/if}}
`

var markdownTpl = raymond.MustParse(markdownTemplate)

func (r *Report) templateData() map[string]interface{} {
	var pulls, commits, contributors []map[string]interface{}
	for _, c := range r.Commits {
		if c.PR > 0 {
			pulls = append(pulls, map[string]interface{}{
				"title":  c.Title,
				"number": c.PR,
				"handle": c.Handle(),
			})
			continue
		}
		short := c.SHA
		if len(short) > 7 {
			short = short[:7]
		}
		commits = append(commits, map[string]interface{}{"title": c.Title, "short": short})
	}
	for _, c := range r.Contributors {
		contributors = append(contributors, map[string]interface{}{"handle": c.Handle()})
	}
	return map[string]interface{}{
		"name":         r.Name,
		"newVersion":   r.NewVersion,
		"oldVersion":   r.OldVersion,
		"compareURL":   r.CompareURL,
		"initial":      r.Initial,
		"pulls":        pulls,
		"commits":      commits,
		"contributors": contributors,
	}
}

// Markdown renders the report.
func (r *Report) Markdown() (string, error) {
	out, err := markdownTpl.Exec(r.templateData())
	if err != nil {
		return "", ionerr.Wrap(ionerr.RenderFailed, err, "render release report")
	}
	return strings.TrimRight(out, "\n") + "\n", nil
}
