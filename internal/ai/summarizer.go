// Package ai calls a chat-completion model to write the executive
// summary paragraph of a report. It is optional; when no API key is
// configured the report engine falls back to a deterministic summary.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = `You are an expert IT analyst writing executive summaries for backup and infrastructure audit reports.

Write a brief, clear narrative (3-5 sentences) that:
1. Tells a cohesive story about the backup environment
2. Highlights the most critical findings
3. Notes any concerns requiring attention
4. Uses professional language suitable for auditors

Write in flowing paragraph form without bullets, lists, or excessive formatting. Be concise and factual.`

// Summarizer generates executive summaries from an assembled report
// context.
type Summarizer struct {
	client *openai.Client
	model  string
	logger zerolog.Logger
}

// NewSummarizer builds a summarizer against an OpenAI-compatible API.
// baseURL may be empty for the default endpoint.
func NewSummarizer(apiKey, baseURL, model string, logger zerolog.Logger) *Summarizer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Summarizer{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger.With().Str("component", "ai").Logger(),
	}
}

// ExecutiveSummary writes a 3-5 sentence narrative for the metrics in
// the render context.
func (s *Summarizer) ExecutiveSummary(ctx context.Context, c map[string]any) (string, error) {
	lines := metricsLines(c)

	clientContext := ""
	if name, _ := c["client_name"].(string); name != "" {
		clientContext = " for " + name
	}
	dateRange, _ := c["date_range"].(string)
	if dateRange == "" {
		dateRange = "the reporting period"
	}

	userPrompt := fmt.Sprintf(
		"Based on the following backup metrics%s for %s, write a clear 3-5 sentence executive summary as a single flowing paragraph:\n\n%s\n\nFocus on telling a clear story that an auditor would find valuable. No bullets or lists, just clear prose.",
		clientContext, dateRange, strings.Join(lines, "\n"))

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     s.model,
		MaxTokens: 500,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("generate executive summary: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generate executive summary: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// metricsLines condenses the context into the bullet facts the model
// is prompted with. Only sections the report shows are included.
func metricsLines(c map[string]any) []string {
	var lines []string
	add := func(format string, args ...any) {
		lines = append(lines, "- "+fmt.Sprintf(format, args...))
	}

	if truthy(c["show_backup_stats"]) {
		add("Backups: %v total, %v%% success rate, %v failures",
			c["total_backups"], c["success_rate"], c["failed_backups"])
	}
	if truthy(c["show_snapshots"]) {
		add("Snapshots: %v active, %v deleted (%v retention, %v manual)",
			c["active_snapshots"], c["deleted_snapshots"],
			c["retention_deleted_count"], c["manually_deleted_count"])
	}
	if truthy(c["show_alerts"]) {
		add("Alerts: %v unresolved out of %v total", c["unresolved_alerts"], c["total_alerts"])
	}
	if truthy(c["show_storage"]) {
		if devices, ok := c["device_storage"].([]any); ok && len(devices) > 0 {
			total := 0.0
			for _, d := range devices {
				if row, ok := d.(map[string]any); ok {
					total += toFloat(row["percent"])
				}
			}
			add("Storage: %d devices monitored, %.1f%% average usage",
				len(devices), total/float64(len(devices)))
		}
	}
	if truthy(c["show_virtualization"]) {
		add("Virtual Machines: %v total, %v running", c["total_vms"], c["running_vms"])
	}
	return lines
}

func truthy(v any) bool {
	b, _ := v.(bool)
	return b
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	default:
		return 0
	}
}
