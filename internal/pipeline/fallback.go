package pipeline

import (
	_ "embed"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/briefops/comms-intel/internal/model"
)

//go:embed lexicon.yaml
var lexiconYAML []byte

// lexicon is the static multilingual keyword configuration for the
// heuristic analyzer. It is fixed at build time, never learned.
type lexicon struct {
	Keywords       []string          `yaml:"keywords"`
	UrgencySignals []string          `yaml:"urgency_signals"`
	BusinessValue  []string          `yaml:"business_value"`
	Positive       []string          `yaml:"positive"`
	Negative       []string          `yaml:"negative"`
	Templates      map[string]string `yaml:"templates"`
}

func mustLoadLexicon() lexicon {
	var lex lexicon
	if err := yaml.Unmarshal(lexiconYAML, &lex); err != nil {
		panic(fmt.Sprintf("pipeline: embedded lexicon is invalid: %v", err))
	}
	return lex
}

// Default sentiment split applied when the heuristic analyzer has no real
// signal: 40% positive, 10% negative, remainder neutral. An explicit
// approximation, not measured sentiment.
const (
	defaultPositiveRatio = 0.4
	defaultNegativeRatio = 0.1
)

const (
	keywordInsightConfidence = 70
	genericInsightConfidence = 50
	maxFallbackTopics        = 3
	maxFallbackFindings      = 4
	exampleSnippetLen        = 50
)

// FallbackAnalyzer produces an approximate BatchResult from raw text using
// the static lexicon, without any external calls. Analysis is pure and
// deterministic: the same batch always yields an identical result.
type FallbackAnalyzer struct {
	positiveRatio float64
	negativeRatio float64

	fold  cases.Caser
	title cases.Caser

	// Folded keyword forms, in lexicon order.
	keywords []foldedKeyword
	urgency  map[string]bool
	value    map[string]bool
	positive map[string]bool
	negative map[string]bool
	template map[string]string
}

type foldedKeyword struct {
	raw    string
	folded string
}

// NewFallbackAnalyzer builds a heuristic analyzer with the given sentiment
// split ratios. Ratios outside (0, 1) fall back to the 40/10 defaults.
func NewFallbackAnalyzer(positiveRatio, negativeRatio float64) *FallbackAnalyzer {
	if positiveRatio <= 0 || positiveRatio >= 1 {
		positiveRatio = defaultPositiveRatio
	}
	if negativeRatio <= 0 || negativeRatio >= 1 {
		negativeRatio = defaultNegativeRatio
	}
	if positiveRatio+negativeRatio > 1 {
		positiveRatio = defaultPositiveRatio
		negativeRatio = defaultNegativeRatio
	}

	lex := mustLoadLexicon()
	a := &FallbackAnalyzer{
		positiveRatio: positiveRatio,
		negativeRatio: negativeRatio,
		fold:          cases.Fold(),
		title:         cases.Title(language.Und),
		urgency:       map[string]bool{},
		value:         map[string]bool{},
		positive:      map[string]bool{},
		negative:      map[string]bool{},
		template:      lex.Templates,
	}

	seen := map[string]bool{}
	for _, kw := range lex.Keywords {
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		a.keywords = append(a.keywords, foldedKeyword{raw: kw, folded: a.fold.String(kw)})
	}
	for _, kw := range lex.UrgencySignals {
		a.urgency[kw] = true
	}
	for _, kw := range lex.BusinessValue {
		a.value[kw] = true
	}
	for _, kw := range lex.Positive {
		a.positive[kw] = true
	}
	for _, kw := range lex.Negative {
		a.negative[kw] = true
	}
	return a
}

// Analyze scans one batch for lexicon keywords and synthesizes a
// BatchResult structurally identical to the model path, at lower confidence.
func (a *FallbackAnalyzer) Analyze(batch []model.Record) model.BatchResult {
	counts := map[string]int{}
	examples := map[string]string{}

	for _, r := range batch {
		text := a.fold.String(r.DisplayTitle() + " " + r.BodyText())
		for _, kw := range a.keywords {
			if !strings.Contains(text, kw.folded) {
				continue
			}
			counts[kw.raw]++
			if _, ok := examples[kw.raw]; !ok {
				examples[kw.raw] = exampleSnippet(r)
			}
		}
	}

	topics := a.buildTopics(batch, counts)
	insights := a.buildInsights(batch, topics, examples)

	return model.BatchResult{
		Insights:           insights,
		TrendingTopics:     topics,
		KeyFindings:        a.buildKeyFindings(batch, topics),
		SentimentBreakdown: a.splitSentiment(len(batch)),
	}
}

// Summary returns the one-sentence executive summary for a batch result
// produced by this analyzer.
func (a *FallbackAnalyzer) Summary(batch []model.Record, result model.BatchResult) string {
	if len(result.TrendingTopics) > 0 {
		top := result.TrendingTopics[0]
		return fmt.Sprintf("Communications center on %s (%d mentions): %s",
			top.Topic, top.Frequency, top.Description)
	}
	return fmt.Sprintf("Analyzed %d communications; no dominant business themes detected.", len(batch))
}

// exampleSnippet picks the record's subject, or the first 50 characters of
// its body when no subject exists.
func exampleSnippet(r model.Record) string {
	if s := strings.TrimSpace(r.Subject); s != "" {
		return s
	}
	if s := strings.TrimSpace(r.Title); s != "" {
		return s
	}
	body := r.BodyText()
	if len(body) > exampleSnippetLen {
		return body[:exampleSnippetLen]
	}
	return body
}

func (a *FallbackAnalyzer) buildTopics(batch []model.Record, counts map[string]int) []model.TrendingTopic {
	if len(counts) == 0 {
		return a.generalTopic(batch)
	}

	// Rank keywords by hit count; alphabetical tie-break keeps results
	// identical across runs.
	ranked := make([]string, 0, len(counts))
	for kw := range counts {
		ranked = append(ranked, kw)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if counts[ranked[i]] != counts[ranked[j]] {
			return counts[ranked[i]] > counts[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	if len(ranked) > maxFallbackTopics {
		ranked = ranked[:maxFallbackTopics]
	}

	topics := make([]model.TrendingTopic, 0, len(ranked))
	for _, kw := range ranked {
		topics = append(topics, model.TrendingTopic{
			Topic:       a.title.String(kw),
			Frequency:   counts[kw],
			Urgency:     a.keywordUrgency(kw),
			Sentiment:   a.keywordSentiment(kw),
			Description: a.keywordDescription(kw, counts[kw]),
		})
	}
	return topics
}

// generalTopic is the degenerate case when no lexicon keyword matched:
// build one catch-all topic from up to two non-test subjects.
func (a *FallbackAnalyzer) generalTopic(batch []model.Record) []model.TrendingTopic {
	var subjects []string
	for _, r := range batch {
		s := strings.TrimSpace(r.Subject)
		if s == "" {
			s = strings.TrimSpace(r.Title)
		}
		if s == "" || strings.Contains(a.fold.String(s), "test") {
			continue
		}
		subjects = append(subjects, s)
	}
	if len(subjects) == 0 {
		return nil
	}

	sample := subjects
	if len(sample) > 2 {
		sample = sample[:2]
	}
	quoted := make([]string, len(sample))
	for i, s := range sample {
		quoted[i] = fmt.Sprintf("%q", s)
	}

	return []model.TrendingTopic{{
		Topic:       "General Communications",
		Frequency:   len(subjects),
		Urgency:     model.UrgencyLow,
		Sentiment:   model.SentimentNeutral,
		Description: "Recent threads include " + strings.Join(quoted, " and "),
	}}
}

func (a *FallbackAnalyzer) keywordUrgency(kw string) model.Urgency {
	switch {
	case a.urgency[kw]:
		return model.UrgencyHigh
	case a.value[kw]:
		return model.UrgencyMedium
	default:
		return model.UrgencyLow
	}
}

func (a *FallbackAnalyzer) keywordSentiment(kw string) model.Sentiment {
	switch {
	case a.positive[kw]:
		return model.SentimentPositive
	case a.negative[kw]:
		return model.SentimentNegative
	default:
		return model.SentimentNeutral
	}
}

func (a *FallbackAnalyzer) keywordDescription(kw string, count int) string {
	if tmpl, ok := a.template[kw]; ok {
		return tmpl
	}
	return fmt.Sprintf("%d communications about %s - review for actionable items.", count, kw)
}

func (a *FallbackAnalyzer) buildInsights(batch []model.Record, topics []model.TrendingTopic, examples map[string]string) []model.Insight {
	if len(topics) == 0 {
		return []model.Insight{{
			ID:          "heuristic-1",
			Topic:       "Communication Volume",
			Description: fmt.Sprintf("%d communications received; no dominant business signals detected.", len(batch)),
			Urgency:     model.UrgencyLow,
			Priority:    model.PriorityLow,
			Frequency:   len(batch),
			Sentiment:   model.SentimentNeutral,
			Confidence:  genericInsightConfidence,
		}}
	}

	insights := make([]model.Insight, 0, len(topics))
	for i, tp := range topics {
		desc := tp.Description
		if ex, ok := examples[strings.ToLower(tp.Topic)]; ok && ex != "" {
			desc = fmt.Sprintf("%s (e.g. %q)", tp.Description, ex)
		}
		insights = append(insights, model.Insight{
			ID:          fmt.Sprintf("heuristic-%d", i+1),
			Topic:       tp.Topic + " Activity",
			Description: desc,
			Urgency:     tp.Urgency,
			Priority:    priorityForUrgency(tp.Urgency),
			Frequency:   tp.Frequency,
			Sentiment:   tp.Sentiment,
			Confidence:  keywordInsightConfidence,
		})
	}
	return insights
}

func priorityForUrgency(u model.Urgency) model.Priority {
	switch u {
	case model.UrgencyHigh:
		return model.PriorityHigh
	case model.UrgencyMedium:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

func (a *FallbackAnalyzer) buildKeyFindings(batch []model.Record, topics []model.TrendingTopic) []string {
	var findings []string

	if len(topics) > 0 {
		names := make([]string, len(topics))
		for i, tp := range topics {
			names[i] = tp.Topic
		}
		findings = append(findings, "Topics discussed: "+strings.Join(names, ", "))

		var high []string
		for _, tp := range topics {
			if tp.Urgency == model.UrgencyHigh {
				high = append(high, tp.Topic)
			}
		}
		if len(high) > 0 {
			findings = append(findings, "High urgency items detected: "+strings.Join(high, ", "))
		}
	}

	findings = append(findings, fmt.Sprintf("Processed %d communications", len(batch)))

	if senders := countUniqueSenders(batch); senders > 1 {
		findings = append(findings, fmt.Sprintf("%d unique senders participated", senders))
	}

	if len(findings) > maxFallbackFindings {
		findings = findings[:maxFallbackFindings]
	}
	return findings
}

func countUniqueSenders(batch []model.Record) int {
	seen := map[string]bool{}
	for _, r := range batch {
		seen[r.SenderID()] = true
	}
	return len(seen)
}

// splitSentiment applies the fixed ratio split over the batch size:
// positive and negative take the floor of their share, neutral absorbs
// the remainder.
func (a *FallbackAnalyzer) splitSentiment(n int) model.SentimentBreakdown {
	positive := int(math.Floor(a.positiveRatio * float64(n)))
	negative := int(math.Floor(a.negativeRatio * float64(n)))
	return model.SentimentBreakdown{
		Positive: positive,
		Negative: negative,
		Neutral:  n - positive - negative,
	}
}
