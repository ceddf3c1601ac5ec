package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"salesintel/internal/adapter/runlog"
	"salesintel/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Width(16)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4B5563")).Padding(0, 1)
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func field(label, value string) string {
	return labelStyle.Render(label) + value
}

func statusText(s domain.ResultStatus) string {
	if s == domain.StatusFailed {
		return errStyle.Render(string(s))
	}
	return okStyle.Render(string(s))
}

func renderResult(w io.Writer, r *domain.AgentResult) {
	lines := []string{
		titleStyle.Render(string(r.AgentType)),
		field("operation", r.Operation),
		field("run", r.RunID),
		field("status", statusText(r.Status)),
		field("duration", r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond).String()),
	}
	if r.Error != "" {
		lines = append(lines, field("error", errStyle.Render(r.Error)))
	}
	if r.Analysis != nil {
		base := r.Analysis.Base()
		if len(base.Bottlenecks) > 0 {
			lines = append(lines, field("bottlenecks", strings.Join(base.Bottlenecks, ", ")))
		}
		if len(base.Opportunities) > 0 {
			lines = append(lines, field("opportunities", strings.Join(base.Opportunities, ", ")))
		}
	}
	if len(r.Optimizations) > 0 {
		lines = append(lines, "", titleStyle.Render("Optimizations"))
		for _, o := range r.Optimizations {
			lines = append(lines, fmt.Sprintf("  %s %s %s", o.ID, o.Title,
				dimStyle.Render(fmt.Sprintf("(impact %s, effort %s)", o.Impact, o.Effort))))
		}
	}
	if r.Results != nil {
		lines = append(lines, "", field("applied", okStyle.Render(fmt.Sprint(r.Results.Applied))),
			field("failed", fmt.Sprint(r.Results.Failed)))
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}

func renderReport(w io.Writer, r *domain.MarketIntelligenceReport) {
	conf := fmt.Sprintf("%.2f", r.Confidence)
	if r.Fallback {
		conf += " " + errStyle.Render("fallback")
	}
	lines := []string{
		titleStyle.Render("Market intelligence"),
		field("product", r.Request.Product),
		field("industry", r.Request.Industry),
		field("target", r.Request.TargetMarket),
		field("confidence", conf),
	}
	if ic := r.IndustryContext; ic != nil {
		lines = append(lines,
			field("market size", ic.MarketSize),
			field("growth", fmt.Sprintf("%.1f%%", ic.GrowthRate*100)),
			field("maturity", string(ic.Maturity)))
	}
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		lines = append(lines, "", titleStyle.Render(title))
		for _, it := range items {
			lines = append(lines, "  "+it)
		}
	}
	var items []string
	for _, c := range r.Conditions {
		items = append(items, fmt.Sprintf("%s %s", c.Type, dimStyle.Render("["+string(c.Severity)+"]")))
	}
	section("Conditions", items)
	items = nil
	for _, t := range r.Trends {
		items = append(items, fmt.Sprintf("%s %s", t.Name, dimStyle.Render(t.Timeframe)))
	}
	section("Trends", items)
	items = nil
	for _, c := range r.Competitors {
		items = append(items, fmt.Sprintf("%s %s", c.Name, dimStyle.Render(c.Position)))
	}
	section("Competitors", items)
	items = nil
	for _, o := range r.Opportunities {
		items = append(items, fmt.Sprintf("%s %s", o.Title, dimStyle.Render(string(o.Potential))))
	}
	section("Opportunities", items)
	items = nil
	for _, rk := range r.Risks {
		items = append(items, fmt.Sprintf("%s %s", rk.Title, dimStyle.Render(string(rk.Severity))))
	}
	section("Risks", items)
	if !r.Validation.Valid {
		section("Missing", r.Validation.Missing)
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}

func renderStatus(w io.Writer, agents []domain.AgentStatus, ops map[domain.AgentType][]string, runs []runlog.Run) {
	lines := []string{titleStyle.Render("Agents")}
	for _, s := range agents {
		lines = append(lines, fmt.Sprintf("  %-34s %s", s.AgentType,
			dimStyle.Render(strings.Join(ops[s.AgentType], ", "))))
	}
	if len(runs) > 0 {
		lines = append(lines, "", titleStyle.Render("Recent runs"))
		for _, r := range runs {
			status := okStyle.Render(r.Status)
			if r.Status == string(domain.StatusFailed) {
				status = errStyle.Render(r.Status)
			}
			lines = append(lines, fmt.Sprintf("  %s  %-34s %-20s %s",
				dimStyle.Render(r.FinishedAt.Local().Format(time.DateTime)), r.AgentType, r.Operation, status))
		}
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}
