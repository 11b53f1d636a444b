package render

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/relnotesgen/internal/domain/model"
)

// pageWriter accumulates the first write error so components can emit
// markup without checking every call.
type pageWriter struct {
	w   io.Writer
	err error
}

func (p *pageWriter) raw(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

func (p *pageWriter) text(s string) {
	p.raw(templ.EscapeString(s))
}

func (p *pageWriter) link(href, label string) {
	p.raw(`<a href="`)
	p.text(string(templ.URL(href)))
	p.raw(`">`)
	p.text(label)
	p.raw(`</a>`)
}

func (p *pageWriter) cell(s string) {
	p.raw("<td>")
	p.text(s)
	p.raw("</td>")
}

// component wraps a pageWriter function as a templ.Component.
func component(fn func(p *pageWriter)) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		fn(p)
		return p.err
	})
}

const stylesheet = `body{font-family:sans-serif;margin:2em;color:#222}
table{border-collapse:collapse;width:100%;margin-bottom:2em}
th,td{border:1px solid #ccc;padding:4px 8px;text-align:left;vertical-align:top}
th{background:#f0f0f0}
.error{background:#fdecea;border:1px solid #f5c2c0;padding:8px;margin-bottom:1em}
.invalid h2{color:#b00020}
.status-bad{color:#b00020}`

func pageComponent(notes *model.ReleaseNotes) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		p.raw("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>Release notes ")
		p.text(notes.ReleaseVersion)
		p.raw("</title>\n<style>")
		p.raw(stylesheet)
		p.raw("</style>\n</head>\n<body>\n")
		if p.err != nil {
			return p.err
		}

		sections := []templ.Component{
			headerComponent(notes),
			errorsComponent(notes.Errors),
		}
		for _, name := range notes.ValidCategoryNames() {
			sections = append(sections, categoryComponent(name, notes.Issues(name), false))
		}
		for _, st := range []model.SearchType{model.SearchInvalidFixVersion, model.SearchInvalidState} {
			if issues := notes.Issues(st.Title()); len(issues) > 0 {
				sections = append(sections, categoryComponent(st.Title(), issues, true))
			}
		}
		sections = append(sections,
			knownIssuesComponent(notes.KnownIssues, notes.KnownIssuesURL),
			commitsComponent(notes.CommitsWithDefects),
			defectsComponent(notes.DefectIDs, notes.AllIssuesURL),
		)

		for _, section := range sections {
			if err := section.Render(ctx, w); err != nil {
				return err
			}
		}

		p.raw("</body>\n</html>\n")
		return p.err
	})
}

func headerComponent(notes *model.ReleaseNotes) templ.Component {
	return component(func(p *pageWriter) {
		p.raw("<h1>Release notes ")
		p.text(notes.ReleaseVersion)
		p.raw("</h1>\n<table class=\"summary\">\n")
		rows := [][2]string{
			{"Branch", notes.Branch},
			{"From", notes.FromRef},
			{"To", notes.ToRef},
			{"Commits", strconv.Itoa(notes.CommitCount)},
			{"Fix versions", strings.Join(notes.FixVersions, ", ")},
		}
		for _, row := range rows {
			p.raw("<tr><th>")
			p.text(row[0])
			p.raw("</th>")
			p.cell(row[1])
			p.raw("</tr>\n")
		}
		p.raw("</table>\n")
	})
}

func errorsComponent(errs map[model.SearchType]string) templ.Component {
	return component(func(p *pageWriter) {
		for _, st := range model.QuerySearchTypes {
			msg := errs[st]
			if msg == "" {
				continue
			}
			p.raw(`<div class="error"><strong>`)
			p.text(fmt.Sprintf("%s query failed:", st.Title()))
			p.raw("</strong> ")
			p.text(msg)
			p.raw("</div>\n")
		}
	})
}

var issueColumns = []string{
	"Key", "Summary", "Priority", "Status", "Fix versions", "Id",
	"Pull requests", "Release notes", "Impact", "Details of change",
}

func categoryComponent(name string, issues []model.ReportIssue, invalid bool) templ.Component {
	return component(func(p *pageWriter) {
		if invalid {
			p.raw(`<section class="invalid">`)
		} else {
			p.raw("<section>")
		}
		p.raw("<h2>")
		p.text(name)
		p.raw("</h2>\n")
		if len(issues) == 0 {
			p.raw("<p>No issues.</p></section>\n")
			return
		}
		writeIssueTable(p, issues)
		p.raw("</section>\n")
	})
}

func writeIssueTable(p *pageWriter, issues []model.ReportIssue) {
	p.raw("<table>\n<tr>")
	for _, col := range issueColumns {
		p.raw("<th>")
		p.text(col)
		p.raw("</th>")
	}
	p.raw("</tr>\n")

	for _, issue := range issues {
		p.raw("<tr><td>")
		p.link(issue.URL, issue.Key)
		p.raw("</td>")
		p.cell(issue.Summary)
		p.cell(issue.Priority)
		if issue.IsStatusOK {
			p.cell(issue.Status)
		} else {
			p.raw(`<td class="status-bad">`)
			p.text(issue.Status)
			p.raw("</td>")
		}
		p.cell(issue.FixVersions)
		p.cell(issue.ID)
		p.cell(issue.PullRequestIDs)
		for _, md := range []string{issue.ReleaseNotes, issue.Impact, issue.DetailsOfChange} {
			p.raw("<td>")
			p.raw(Markdown(md))
			p.raw("</td>")
		}
		p.raw("</tr>\n")
	}
	p.raw("</table>\n")
}

func knownIssuesComponent(issues []model.ReportIssue, queryURL string) templ.Component {
	return component(func(p *pageWriter) {
		p.raw("<section><h2>Known issues</h2>\n")
		if queryURL != "" {
			p.raw("<p>")
			p.link(queryURL, "Open known issues query")
			p.raw("</p>\n")
		}
		if len(issues) == 0 {
			p.raw("<p>No known issues.</p></section>\n")
			return
		}
		writeIssueTable(p, issues)
		p.raw("</section>\n")
	})
}

func commitsComponent(commits []model.ReportCommit) templ.Component {
	return component(func(p *pageWriter) {
		if len(commits) == 0 {
			return
		}
		p.raw("<section><h2>Commits with defects</h2>\n<table>\n<tr><th>Commit</th><th>Author</th><th>Defects</th><th>Issues</th><th>Message</th></tr>\n")
		for _, c := range commits {
			p.raw("<tr>")
			p.cell(shortID(c.ID))
			p.cell(c.Author)
			p.cell(strings.Join(c.DefectIDs, ", "))
			p.cell(strings.Join(c.JiraIDs, ", "))
			p.raw("<td><pre>")
			p.text(c.Message)
			p.raw("</pre></td></tr>\n")
		}
		p.raw("</table></section>\n")
	})
}

func defectsComponent(defectIDs []string, allIssuesURL string) templ.Component {
	return component(func(p *pageWriter) {
		p.raw("<section><h2>Defects</h2>\n")
		if len(defectIDs) > 0 {
			p.raw("<p>")
			p.text(strings.Join(defectIDs, ", "))
			p.raw("</p>\n")
		}
		if allIssuesURL != "" {
			p.raw("<p>")
			p.link(allIssuesURL, "Open all issues in the tracker")
			p.raw("</p>\n")
		}
		p.raw("</section>\n")
	})
}

func shortID(sha string) string {
	if len(sha) > 10 {
		return sha[:10]
	}
	return sha
}
