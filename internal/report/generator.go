package report

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/amcchord/slideReports/internal/metrics"
	"github.com/amcchord/slideReports/internal/sandbox"
)

const defaultWindowDays = 30

// Summarizer writes the executive summary paragraph. Implemented by
// the AI collaborator; nil means the deterministic summary is used.
type Summarizer interface {
	ExecutiveSummary(ctx context.Context, c map[string]any) (string, error)
}

// RenderRequest describes one report render.
type RenderRequest struct {
	Template    string
	Start       time.Time
	End         time.Time
	DataSources []string
	ClientID    string
}

// Generator turns templates and synced records into finished HTML
// reports. Render always produces a document: template problems yield
// a diagnostic report instead of an error. Only a failing store
// surfaces as an error.
type Generator struct {
	source          RecordSource
	summarizer      Summarizer
	logger          zerolog.Logger
	defaultTimezone string
	staticDir       string
	httpClient      *http.Client
	now             func() time.Time
}

// NewGenerator builds a report generator. summarizer may be nil.
// staticDir is the root used to resolve absolute image paths when
// rendering standalone documents.
func NewGenerator(source RecordSource, summarizer Summarizer, defaultTimezone, staticDir string, logger zerolog.Logger) *Generator {
	return &Generator{
		source:          source,
		summarizer:      summarizer,
		logger:          logger.With().Str("component", "report").Logger(),
		defaultTimezone: defaultTimezone,
		staticDir:       staticDir,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		now:             time.Now,
	}
}

// Render generates a report. The window defaults to the 30 days
// ending now when bounds are missing.
func (g *Generator) Render(ctx context.Context, req RenderRequest) (string, error) {
	start := time.Now()
	w := g.resolveWindow(req)

	if v := sandbox.Validate(req.Template); !v.Valid {
		g.logger.Error().Str("reason", v.Reason).Msg("template rejected by static validation")
		metrics.TemplateValidationFailed()
		metrics.ObserveRender(metrics.OutcomeDiagnostic, time.Since(start))
		return DiagnosticReport(req.Template, &sandbox.RenderError{
			Kind:    sandbox.ErrSecurity,
			Message: v.Reason,
		}), nil
	}

	c, err := g.buildContext(ctx, w, req.DataSources, req.ClientID)
	if err != nil {
		metrics.ObserveRender(metrics.OutcomeError, time.Since(start))
		return "", err
	}

	g.fillExecSummary(ctx, req.Template, c)

	out, err := sandbox.Render(req.Template, c)
	if err != nil {
		g.logger.Error().Err(err).Msg("template rendering failed")
		metrics.ObserveRender(metrics.OutcomeDiagnostic, time.Since(start))
		return DiagnosticReport(req.Template, err), nil
	}
	metrics.ObserveRender(metrics.OutcomeOK, time.Since(start))
	return out, nil
}

// BuildContext exposes the assembled render context, used by the
// variable-listing endpoint and the template test surface.
func (g *Generator) BuildContext(ctx context.Context, req RenderRequest) (map[string]any, error) {
	w := g.resolveWindow(req)
	c, err := g.buildContext(ctx, w, req.DataSources, req.ClientID)
	if err != nil {
		return nil, err
	}
	g.fillExecSummary(ctx, req.Template, c)
	return c, nil
}

func (g *Generator) resolveWindow(req RenderRequest) Window {
	w := Window{Start: req.Start, End: req.End}
	if w.End.IsZero() {
		w.End = g.now()
	}
	if w.Start.IsZero() {
		w.Start = w.End.AddDate(0, 0, -defaultWindowDays)
	}
	return w
}

// execSummaryPattern matches any output expression that references
// exec_summary, including filtered forms like {{ exec_summary|upper }}.
var execSummaryPattern = regexp.MustCompile(`\{\{[^}]*\bexec_summary\b`)

// fillExecSummary sets exec_summary, preferring the AI collaborator
// when one is configured and the template actually uses the variable.
func (g *Generator) fillExecSummary(ctx context.Context, template string, c map[string]any) {
	if g.summarizer != nil && execSummaryPattern.MatchString(template) {
		summary, err := g.summarizer.ExecutiveSummary(ctx, c)
		if err == nil {
			c["exec_summary"] = summary
			return
		}
		g.logger.Error().Err(err).Msg("ai summary generation failed, using default")
	}
	c["exec_summary"] = c["executive_summary"]
}
