package report

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/amcchord/slideReports/internal/sandbox"
)

var lineNumberPattern = regexp.MustCompile(`(?i)line (\d+)`)

// DiagnosticReport turns a render failure into a self-contained HTML
// document that shows the error, the offending template lines, and
// remediation hints. It never fails: if assembling the full document
// panics, a minimal plain page is returned instead.
func DiagnosticReport(template string, renderErr error) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf(
				"<!DOCTYPE html><html><body><h1>Template Rendering Error</h1><pre>%s</pre></body></html>",
				html.EscapeString(errString(renderErr)))
		}
	}()

	errorType := "Render Error"
	message := errString(renderErr)
	line := 0

	var re *sandbox.RenderError
	if errors.As(renderErr, &re) {
		line = re.Line
		message = re.Message
		switch re.Kind {
		case sandbox.ErrSyntax:
			errorType = "Syntax Error"
		case sandbox.ErrUndefined:
			errorType = "Undefined Variable"
		case sandbox.ErrType:
			errorType = "Type Error"
		case sandbox.ErrSecurity:
			errorType = "Security Violation"
		}
	} else if m := lineNumberPattern.FindStringSubmatch(message); m != nil {
		fmt.Sscanf(m[1], "%d", &line)
	}

	var b strings.Builder
	b.WriteString(diagnosticHead)
	fmt.Fprintf(&b, `<div class="error-box"><h3>Error Type: %s%s</h3><pre>%s</pre></div>`,
		html.EscapeString(errorType), lineLabel(line), html.EscapeString(message))
	b.WriteString(errorContext(template, line))
	b.WriteString(hintsSection(message, template))
	b.WriteString(diagnosticTail)
	return b.String()
}

func lineLabel(line int) string {
	if line <= 0 {
		return ""
	}
	return fmt.Sprintf(" (Line %d)", line)
}

// errorContext renders the offending line with two lines of context
// on each side, escaped, with the failing line highlighted.
func errorContext(template string, line int) string {
	lines := strings.Split(template, "\n")
	if line <= 0 || line > len(lines) {
		return ""
	}
	start := line - 2
	if start < 1 {
		start = 1
	}
	end := line + 2
	if end > len(lines) {
		end = len(lines)
	}

	var b strings.Builder
	b.WriteString(`<div class="context-box"><strong>Template context around the error:</strong><pre>`)
	for n := start; n <= end; n++ {
		content := html.EscapeString(lines[n-1])
		if n == line {
			fmt.Fprintf(&b, `<span class="error-line">&rarr; Line %d: %s</span>`+"\n", n, content)
		} else {
			fmt.Fprintf(&b, "  Line %d: %s\n", n, content)
		}
	}
	b.WriteString(`</pre></div>`)
	return b.String()
}

// hintsSection keys remediation tips off substrings of the error
// message and the template body.
func hintsSection(message, template string) string {
	lower := strings.ToLower(message)
	var tips []string

	if strings.Contains(lower, "undefined") {
		tips = append(tips,
			"The template references a variable that doesn't exist",
			"View all available variables at /report-values")
	}
	if strings.Contains(message, ".days") || strings.Contains(message, ".seconds") || strings.Contains(lower, "timedelta") {
		tips = append(tips,
			"Datetime fields are strings, not datetime objects",
			"Don't use datetime operations like (date1 - date2).days")
	}
	if strings.Contains(lower, "strftime") {
		tips = append(tips,
			"Can't use .strftime() on string fields",
			"Datetime fields are already formatted as ISO strings")
	}
	if strings.Contains(lower, "selectattr") {
		tips = append(tips,
			"Complex selectattr filters may fail",
			"Use simple loops instead")
	}
	if strings.Contains(template, "len(") {
		tips = append(tips, "Use |length filter instead of len() function")
	}

	if len(tips) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<div class="tips-box"><h3>Quick Fix Tips</h3><ul>`)
	for _, tip := range tips {
		fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(tip))
	}
	b.WriteString(`</ul></div>`)
	return b.String()
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

const diagnosticHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Template Error - Debug Report</title>
<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; background: #f5f5f5; padding: 20px; }
.error-container { max-width: 900px; margin: 0 auto; background: #fff; border-radius: 8px; box-shadow: 0 2px 8px rgba(0,0,0,0.1); overflow: hidden; }
.error-header { background: #dc2626; color: white; padding: 20px 30px; }
.error-header h1 { font-size: 24px; margin-bottom: 8px; }
.error-header p { opacity: 0.9; font-size: 14px; }
.error-content { padding: 30px; }
.error-box { background: #fee2e2; border-left: 4px solid #dc2626; padding: 15px 20px; margin: 20px 0; border-radius: 4px; }
.error-box h3 { color: #991b1b; font-size: 16px; margin-bottom: 10px; }
.error-box pre { background: #fff; padding: 12px; border-radius: 4px; overflow-x: auto; font-size: 13px; color: #dc2626; }
.context-box { background: #fff; padding: 15px; border-radius: 4px; margin-top: 10px; }
.context-box pre { margin: 10px 0; padding: 10px; background: #f8f8f8; border-left: 3px solid #dc2626; overflow-x: auto; font-size: 13px; }
.error-line { color: #dc2626; font-weight: bold; }
.tips-box { background: #dbeafe; border-left: 4px solid #2563eb; padding: 15px 20px; margin: 20px 0; border-radius: 4px; }
.tips-box h3 { color: #1e40af; font-size: 16px; margin-bottom: 10px; }
.tips-box ul { margin-left: 20px; color: #1e3a8a; }
.tips-box li { margin: 8px 0; }
.help-section { margin: 30px 0; padding: 20px; background: #f9fafb; border-radius: 6px; }
.help-section h3 { color: #374151; margin-bottom: 15px; }
.help-section ul { margin-left: 20px; }
.help-section li { margin: 8px 0; color: #6b7280; }
.code { background: #f3f4f6; padding: 2px 6px; border-radius: 3px; font-family: 'Courier New', monospace; font-size: 13px; }
.action-buttons { margin-top: 30px; display: flex; gap: 15px; }
.btn { display: inline-block; padding: 10px 20px; border-radius: 6px; text-decoration: none; font-weight: 500; }
.btn-primary { background: #2563eb; color: white; }
.btn-secondary { background: #6b7280; color: white; }
</style>
</head>
<body>
<div class="error-container">
<div class="error-header">
<h1>Template Rendering Error</h1>
<p>Your template encountered an error when trying to generate the report. Don't worry - this helps you fix it!</p>
</div>
<div class="error-content">
`

const diagnosticTail = `
<div class="help-section">
<h3>Common Template Issues &amp; Fixes</h3>
<ul>
<li><strong>Undefined variables:</strong> Check that you're using the correct variable names. Use <span class="code">|default('N/A')</span> or <span class="code">or 'N/A'</span> for optional values.</li>
<li><strong>Datetime operations:</strong> Fields like <span class="code">started_at</span> are ISO format strings, not datetime objects.</li>
<li><strong>None values:</strong> Always check if a value exists first: <span class="code">{% if variable %}{% endif %}</span></li>
<li><strong>List length:</strong> Use <span class="code">{{ items|length }}</span> not <span class="code">len(items)</span></li>
<li><strong>Loop limits:</strong> Limit loops to avoid huge tables: <span class="code">{% for item in items[:10] %}</span></li>
<li><strong>Safe defaults:</strong> Use <span class="code">{{ value|default('Not Set') }}</span> for potentially missing fields</li>
</ul>
</div>
<div class="help-section">
<h3>Safe Template Patterns</h3>
<ul>
<li><span class="code">{{ devices|length }} devices found</span></li>
<li><span class="code">{% for backup in backups[:20] %}...{% endfor %}</span> (limit iterations)</li>
<li><span class="code">{{ agent.display_name or agent.agent_id or 'Unknown' }}</span></li>
<li>Use preprocessed variables like <span class="code">agent_backup_status</span> and <span class="code">device_storage</span> instead of raw arrays when possible.</li>
</ul>
</div>
<div class="action-buttons">
<a href="/templates" class="btn btn-primary">&larr; Back to Templates</a>
<a href="/report-values" class="btn btn-secondary" target="_blank">View All Variables</a>
</div>
</div>
</div>
</body>
</html>`
