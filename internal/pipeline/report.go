package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/briefops/comms-intel/internal/model"
)

// FormatReport generates a human-readable markdown rendering of a report.
// The JSON report stays the machine interface; this is for terminals and
// chat posts.
func FormatReport(report *model.AnalysisReport, actx model.AnalysisContext) string {
	var b strings.Builder

	name := actx.InstanceName
	if name == "" {
		name = "Communications"
	}
	fmt.Fprintf(&b, "# Intelligence Report: %s\n", name)
	if actx.Period != "" {
		fmt.Fprintf(&b, "Period: %s\n", actx.Period)
	}
	if actx.AgentID != "" {
		fmt.Fprintf(&b, "Agent: %s\n", actx.AgentID)
	}
	b.WriteString("\n")

	b.WriteString("## Executive Summary\n")
	fmt.Fprintf(&b, "%s\n\n", report.ExecutiveSummary)
	for _, h := range report.SummaryHighlights {
		fmt.Fprintf(&b, "- %s\n", h)
	}
	if len(report.SummaryHighlights) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("## Metrics\n")
	fmt.Fprintf(&b, "- Volume: %d communications\n", report.Metrics.EmailVolume)
	fmt.Fprintf(&b, "- Participants: %d\n", report.Metrics.ParticipationRate)
	fmt.Fprintf(&b, "- Sentiment score: %d/100\n", report.Metrics.SentimentScore)
	fmt.Fprintf(&b, "- Alerts: %d\n\n", report.Metrics.AlertCount)

	b.WriteString("## Insights\n")
	if len(report.Insights) == 0 {
		b.WriteString("No insights.\n\n")
	} else {
		for _, in := range report.Insights {
			fmt.Fprintf(&b, "- **%s** [%s priority, %s urgency, %d%%]: %s\n",
				in.Topic, in.Priority, in.Urgency, in.Confidence, in.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Trending Topics\n")
	if len(report.TrendingTopics) == 0 {
		b.WriteString("No trending topics.\n\n")
	} else {
		for _, tp := range report.TrendingTopics {
			fmt.Fprintf(&b, "- %s (%d mentions, %s urgency)\n", tp.Topic, tp.Frequency, tp.Urgency)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Key Findings\n")
	for _, f := range report.KeyFindings {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("\n")

	if len(report.SourceBreakdown) > 0 {
		b.WriteString("## Sources\n")
		keys := make([]string, 0, len(report.SourceBreakdown))
		for k := range report.SourceBreakdown {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %d\n", k, report.SourceBreakdown[k])
		}
		b.WriteString("\n")
	}

	b.WriteString("## Recommended Action\n")
	fmt.Fprintf(&b, "%s\n", report.RecommendedAction)

	return b.String()
}
