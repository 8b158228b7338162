// Package summary calls an external LLM text service to turn computed
// portfolio figures into a short human-readable summary. The service is
// an opaque collaborator: this package owns the input bundle (real
// numbers or explicit "unavailable" markers, never fabricated figures)
// and the fixed five-line output shape.
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/olympe-app/portfolio-service/internal/analytics"
	"github.com/olympe-app/portfolio-service/internal/config"
)

// ErrNotConfigured means no summary endpoint was set.
var ErrNotConfigured = errors.New("summary service not configured")

// LineCount is the fixed number of lines a summary always has.
const LineCount = 5

const systemPrompt = "You are a neutral financial reporting assistant. " +
	"Describe the portfolio figures you are given in plain language, five short observations. " +
	"Never invent numbers and never give investment advice."

// Client talks to the summary service.
type Client struct {
	cfg    config.SummaryConfig
	client *http.Client
}

func New(cfg config.SummaryConfig) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Summarize posts the report's key figures and returns exactly five
// normalized lines.
func (c *Client) Summarize(ctx context.Context, report *analytics.Report) ([]string, error) {
	if c.cfg.Endpoint == "" {
		return nil, ErrNotConfigured
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildBundle(report)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build summary request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("summary request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("summary service returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode summary response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("summary service returned no choices")
	}

	return NormalizeLines(parsed.Choices[0].Message.Content), nil
}

// BuildBundle renders the report's figures as the text bundle sent to
// the service. Figures without data are sent as explicit "unavailable"
// markers so the model has nothing to guess at.
func BuildBundle(report *analytics.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Total value: %.1f\n", report.Summary.TotalValue)
	fmt.Fprintf(&b, "Total invested: %.1f\n", report.Summary.TotalInvested)
	fmt.Fprintf(&b, "Total return: %.1f%%\n", report.Summary.TotalReturnPct)
	fmt.Fprintf(&b, "Daily change: %.1f%%\n", report.Summary.DailyChangePct)
	fmt.Fprintf(&b, "Monthly change: %.1f%%\n", report.Summary.MonthlyChangePct)
	fmt.Fprintf(&b, "YTD change: %.1f%%\n", report.Summary.YTDChangePct)
	fmt.Fprintf(&b, "Accounts: %d, holdings: %d\n", report.Summary.NbAccounts, report.Summary.NbHoldings)

	if report.Risk.HistoryPoints > 0 {
		fmt.Fprintf(&b, "Volatility: %.1f%% (%s)\n", report.Risk.VolatilityPct, report.Risk.VolatilityLabel)
		fmt.Fprintf(&b, "Max drawdown: %.1f%%\n", report.Risk.MaxDrawdownPct)
	} else {
		b.WriteString("Volatility: unavailable\n")
		b.WriteString("Max drawdown: unavailable\n")
	}
	fmt.Fprintf(&b, "Diversification: %s\n", report.Risk.DiversificationLabel)
	fmt.Fprintf(&b, "Overall risk: %s\n", report.Risk.GlobalLabel)

	for _, a := range report.Allocations {
		fmt.Fprintf(&b, "Allocation %s: %d%%\n", a.Category, a.Percent)
	}
	return b.String()
}

// adviceMarkers flag lines that read as buy/sell recommendations; the
// summary must describe, never advise.
var adviceMarkers = []string{
	"you should buy", "you should sell", "consider buying", "consider selling",
	"recommend buying", "recommend selling", "devriez acheter", "devriez vendre",
}

const placeholderLine = "No further observation."

// NormalizeLines forces any model output into exactly five "- Line N:"
// lines: bullets and numbering are stripped, advice-sounding lines are
// dropped, short output is padded and long output truncated.
func NormalizeLines(content string) []string {
	var kept []string
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		line = strings.TrimLeft(line, "-*• \t")
		line = stripLinePrefix(line)
		if line == "" {
			continue
		}
		if isAdvice(line) {
			continue
		}
		kept = append(kept, line)
		if len(kept) == LineCount {
			break
		}
	}
	for len(kept) < LineCount {
		kept = append(kept, placeholderLine)
	}

	out := make([]string, LineCount)
	for i, line := range kept {
		out[i] = fmt.Sprintf("- Line %d: %s", i+1, line)
	}
	return out
}

// stripLinePrefix removes "1.", "Line 2:" style prefixes the model may
// echo back.
func stripLinePrefix(line string) string {
	trimmed := line
	if rest, ok := strings.CutPrefix(strings.ToLower(trimmed), "line "); ok {
		if idx := strings.IndexAny(rest, ":"); idx >= 0 && idx <= 3 {
			trimmed = strings.TrimSpace(trimmed[5+idx+1:])
		}
	}
	for i, r := range trimmed {
		if r >= '0' && r <= '9' {
			continue
		}
		if (r == '.' || r == ')' || r == ':') && i > 0 {
			return strings.TrimSpace(trimmed[i+1:])
		}
		break
	}
	return strings.TrimSpace(trimmed)
}

func isAdvice(line string) bool {
	lower := strings.ToLower(line)
	for _, marker := range adviceMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
