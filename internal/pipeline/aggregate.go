package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/briefops/comms-intel/internal/model"
)

// Canonical strings for runs with nothing to analyze or nothing usable in
// the batch results.
const (
	emptyReportFinding   = "No data available for analysis"
	emptyReportSummary   = "No data available for intelligence analysis"
	emptyReportAction    = "No immediate actions available."
	genericSummary       = "Communications are active but require further review for specifics."
	genericAction        = "Review recent communications for actionable follow-ups."
	neutralSentimentBase = 50
)

const (
	topThemeCount       = 3
	topFindingTopics    = 3
	rawFindingBudget    = 3
	summaryInsightCount = 2
)

// Aggregate merges per-batch results, in batch order, into the final
// report. It is a pure function of its inputs: no model calls, no clock,
// no randomness. Results must be ordered by batch index; records are the
// original input records the batches were split from.
func Aggregate(results []model.BatchResult, records []model.Record) *model.AnalysisReport {
	if len(records) == 0 {
		return BuildEmptyReport()
	}

	insights, topics, rawFindings, sentiment := flatten(results)

	topics = mergeTopics(topics)
	rankInsights(insights)

	// High-urgency alerts count before the display cap so a busy run does
	// not hide alerts past the tenth insight.
	alertCount := 0
	for _, in := range insights {
		if in.Urgency == model.UrgencyHigh {
			alertCount++
		}
	}

	cappedInsights := insights
	if len(cappedInsights) > model.MaxReportInsights {
		cappedInsights = cappedInsights[:model.MaxReportInsights]
	}
	cappedTopics := topics
	if len(cappedTopics) > model.MaxReportTopics {
		cappedTopics = cappedTopics[:model.MaxReportTopics]
	}

	sourceBreakdown := buildSourceBreakdown(records)

	summary, highlights := buildSummary(cappedInsights, cappedTopics, records, len(sourceBreakdown))

	return &model.AnalysisReport{
		Insights:          cappedInsights,
		TrendingTopics:    cappedTopics,
		KeyFindings:       buildKeyFindings(summary, highlights, cappedTopics, rawFindings),
		ExecutiveSummary:  summary,
		SummaryHighlights: highlights,
		RecommendedAction: buildRecommendedAction(cappedInsights, cappedTopics),
		Metrics: model.ReportMetrics{
			EmailVolume:       len(records),
			ParticipationRate: countParticipants(records),
			SentimentScore:    sentimentScore(sentiment),
			AlertCount:        alertCount,
		},
		SourceBreakdown: sourceBreakdown,
	}
}

// BuildEmptyReport is the canonical report for a run with no input
// records. Every field is present so downstream consumers never see nulls.
func BuildEmptyReport() *model.AnalysisReport {
	return &model.AnalysisReport{
		Insights:          []model.Insight{},
		TrendingTopics:    []model.TrendingTopic{},
		KeyFindings:       []string{emptyReportFinding},
		ExecutiveSummary:  emptyReportSummary,
		SummaryHighlights: []string{},
		RecommendedAction: emptyReportAction,
		Metrics:           model.ReportMetrics{},
		SourceBreakdown:   map[string]int{},
	}
}

// flatten concatenates batch results preserving batch order, and sums the
// sentiment counts.
func flatten(results []model.BatchResult) ([]model.Insight, []model.TrendingTopic, []string, model.SentimentBreakdown) {
	var insights []model.Insight
	var topics []model.TrendingTopic
	var findings []string
	var sentiment model.SentimentBreakdown

	for _, r := range results {
		insights = append(insights, r.Insights...)
		topics = append(topics, r.TrendingTopics...)
		findings = append(findings, r.KeyFindings...)
		sentiment.Add(r.SentimentBreakdown)
	}
	return insights, topics, findings, sentiment
}

// mergeTopics deduplicates topics by exact name, summing frequencies and
// keeping the first-seen description, urgency, and sentiment. Output is
// ordered by frequency descending; first appearance breaks ties.
func mergeTopics(topics []model.TrendingTopic) []model.TrendingTopic {
	index := make(map[string]int, len(topics))
	merged := make([]model.TrendingTopic, 0, len(topics))

	for _, tp := range topics {
		if i, ok := index[tp.Topic]; ok {
			merged[i].Frequency += tp.Frequency
			continue
		}
		index[tp.Topic] = len(merged)
		merged = append(merged, tp)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Frequency > merged[j].Frequency
	})
	return merged
}

// rankInsights orders insights by priority rank, then frequency, both
// descending. The sort is stable so equal insights keep batch order.
func rankInsights(insights []model.Insight) {
	sort.SliceStable(insights, func(i, j int) bool {
		if insights[i].Priority.Rank() != insights[j].Priority.Rank() {
			return insights[i].Priority.Rank() > insights[j].Priority.Rank()
		}
		return insights[i].Frequency > insights[j].Frequency
	})
}

// buildSourceBreakdown counts original records per "<agent>_<source>" key.
func buildSourceBreakdown(records []model.Record) map[string]int {
	breakdown := make(map[string]int)
	for _, r := range records {
		key := fmt.Sprintf("%s_%s", r.Agent, r.Source)
		breakdown[key]++
	}
	return breakdown
}

// countParticipants counts distinct sender identities across all records.
func countParticipants(records []model.Record) int {
	seen := make(map[string]bool)
	for _, r := range records {
		seen[r.SenderID()] = true
	}
	return len(seen)
}

// sentimentScore maps the positive/negative balance onto a 0-100 scale
// where 50 is neutral. Zero classified records also score 50.
func sentimentScore(s model.SentimentBreakdown) int {
	total := s.Total()
	if total == 0 {
		return neutralSentimentBase
	}
	balance := float64(s.Positive-s.Negative) / float64(total)
	score := int(balance*neutralSentimentBase + neutralSentimentBase + 0.5)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// buildSummary derives the executive summary and the remaining highlight
// sentences from ranked insights, merged topics, and the raw records. The
// first available candidate becomes the summary; the rest become
// highlights.
func buildSummary(insights []model.Insight, topics []model.TrendingTopic, records []model.Record, channels int) (string, []string) {
	var candidates []string

	for _, in := range insights {
		if len(candidates) >= summaryInsightCount {
			break
		}
		if stmt := insightStatement(in); stmt != "" {
			candidates = append(candidates, stmt)
		}
	}

	if stmt := themeStatement(topics); stmt != "" {
		candidates = append(candidates, stmt)
	}
	if stmt := topContributorStatement(records); stmt != "" {
		candidates = append(candidates, stmt)
	}

	if len(candidates) > 0 {
		return candidates[0], candidates[1:]
	}
	if len(records) > 0 {
		return fmt.Sprintf("Communications include %d updates across %d channels", len(records), channels), nil
	}
	return genericSummary, nil
}

// insightStatement renders one insight as a sentence: the description when
// present, otherwise the topic, with terminal punctuation ensured. Blank
// insights yield "".
func insightStatement(in model.Insight) string {
	text := strings.TrimSpace(in.Description)
	if text == "" {
		text = strings.TrimSpace(in.Topic)
	}
	if text == "" {
		return ""
	}
	return ensurePunctuation(text)
}

// themeStatement lists the top topic names as one sentence, or "" when
// there are no topics.
func themeStatement(topics []model.TrendingTopic) string {
	var names []string
	for _, tp := range topics {
		if len(names) >= topThemeCount {
			break
		}
		if name := strings.TrimSpace(tp.Topic); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	return "Frequent themes: " + oxfordJoin(names)
}

// topContributorStatement names the sender with the most records. Records
// with neither sender nor author are skipped; ties go to the first sender
// encountered.
func topContributorStatement(records []model.Record) string {
	counts := make(map[string]int)
	var order []string
	for _, r := range records {
		id := strings.TrimSpace(r.Sender)
		if id == "" {
			id = strings.TrimSpace(r.Author)
		}
		if id == "" {
			continue
		}
		if _, ok := counts[id]; !ok {
			order = append(order, id)
		}
		counts[id]++
	}

	var top string
	for _, id := range order {
		if top == "" || counts[id] > counts[top] {
			top = id
		}
	}
	if top == "" {
		return ""
	}

	noun := "updates"
	if counts[top] == 1 {
		noun = "update"
	}
	return fmt.Sprintf("%s shared %d %s", top, counts[top], noun)
}

// buildRecommendedAction picks the single next step: the first
// high-priority insight, then the first insight of any priority, then the
// busiest topic, then a generic review prompt.
func buildRecommendedAction(insights []model.Insight, topics []model.TrendingTopic) string {
	pick := func(in model.Insight) string {
		desc := strings.TrimSpace(in.Description)
		if desc == "" {
			return fmt.Sprintf("Prioritize %s.", in.Topic)
		}
		return fmt.Sprintf("Prioritize %s: %s", in.Topic, ensurePunctuation(desc))
	}

	for _, in := range insights {
		if in.Priority == model.PriorityHigh {
			return pick(in)
		}
	}
	if len(insights) > 0 {
		return pick(insights[0])
	}
	if len(topics) > 0 {
		return ensurePunctuation(fmt.Sprintf("Coordinate next steps on %s to keep momentum", topics[0].Topic))
	}
	return genericAction
}

// buildKeyFindings assembles the deduplicated findings list: the summary
// and highlights first, then the top topics, then up to three raw batch
// findings, truncated to the report cap.
func buildKeyFindings(summary string, highlights []string, topics []model.TrendingTopic, rawFindings []string) []string {
	set := newOrderedSet()
	set.add(summary)
	for _, h := range highlights {
		set.add(h)
	}

	for i, tp := range topics {
		if i >= topFindingTopics {
			break
		}
		if desc := strings.TrimSpace(tp.Description); desc != "" {
			set.add(fmt.Sprintf("%s: %s", tp.Topic, desc))
		} else {
			set.add(tp.Topic)
		}
	}

	added := 0
	for _, f := range rawFindings {
		if added >= rawFindingBudget {
			break
		}
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if set.add(ensurePunctuation(f)) {
			added++
		}
	}

	findings := set.items
	if len(findings) > model.MaxReportKeyFindings {
		findings = findings[:model.MaxReportKeyFindings]
	}
	return findings
}

// ensurePunctuation appends a period unless the text already ends in
// terminal punctuation.
func ensurePunctuation(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return s
	}
	return s + "."
}

// oxfordJoin joins names as prose: "A", "A and B", "A, B, and C".
func oxfordJoin(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
}

// orderedSet is a string set that remembers insertion order.
type orderedSet struct {
	seen  map[string]bool
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]bool)}
}

// add inserts s unless blank or already present; it reports whether the
// item was inserted.
func (o *orderedSet) add(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || o.seen[s] {
		return false
	}
	o.seen[s] = true
	o.items = append(o.items, s)
	return true
}
