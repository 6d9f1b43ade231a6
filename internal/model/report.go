package model

import "strings"

// Urgency expresses how time-critical an insight or topic is.
type Urgency string

const (
	UrgencyLow     Urgency = "low"
	UrgencyMedium  Urgency = "medium"
	UrgencyHigh    Urgency = "high"
	UrgencyUnknown Urgency = ""
)

// ParseUrgency maps a raw urgency string to a closed Urgency value.
func ParseUrgency(s string) Urgency {
	switch Urgency(strings.ToLower(strings.TrimSpace(s))) {
	case UrgencyLow:
		return UrgencyLow
	case UrgencyMedium:
		return UrgencyMedium
	case UrgencyHigh:
		return UrgencyHigh
	default:
		return UrgencyUnknown
	}
}

// Priority expresses how important an insight is relative to others.
type Priority string

const (
	PriorityLow     Priority = "low"
	PriorityMedium  Priority = "medium"
	PriorityHigh    Priority = "high"
	PriorityUnknown Priority = ""
)

// ParsePriority maps a raw priority string to a closed Priority value.
func ParsePriority(s string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityLow:
		return PriorityLow
	case PriorityMedium:
		return PriorityMedium
	case PriorityHigh:
		return PriorityHigh
	default:
		return PriorityUnknown
	}
}

// priorityRanks orders priorities for insight ranking. Unknown ranks below
// low so unrecognized model output never outranks recognized values.
var priorityRanks = map[Priority]int{
	PriorityHigh:   3,
	PriorityMedium: 2,
	PriorityLow:    1,
}

// Rank returns the numeric rank used for sorting (high=3 .. unknown=0).
func (p Priority) Rank() int {
	return priorityRanks[p]
}

// Sentiment is the tone classification for an insight or topic.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ParseSentiment maps a raw sentiment string to a closed Sentiment value.
// Unrecognized values map to neutral.
func ParseSentiment(s string) Sentiment {
	switch Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case SentimentPositive:
		return SentimentPositive
	case SentimentNegative:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// Insight is a single analyzed finding produced per batch. Ranked insights
// survive into the final report.
type Insight struct {
	ID          string    `json:"id"`
	Topic       string    `json:"topic"`
	Description string    `json:"description"`
	Urgency     Urgency   `json:"urgency"`
	Priority    Priority  `json:"priority"`
	Frequency   int       `json:"frequency"`
	Sentiment   Sentiment `json:"sentiment"`
	Confidence  int       `json:"confidence"` // 0-100
}

// TrendingTopic is a recurring theme. Topic is the unique merge key:
// occurrences of the same topic string across batches are merged by
// summing frequency and keeping the first description.
type TrendingTopic struct {
	Topic       string    `json:"topic"`
	Frequency   int       `json:"frequency"`
	Urgency     Urgency   `json:"urgency"`
	Sentiment   Sentiment `json:"sentiment"`
	Description string    `json:"description"`
}

// SentimentBreakdown counts records by tone within one batch.
type SentimentBreakdown struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

// Add merges another breakdown into this one.
func (s *SentimentBreakdown) Add(other SentimentBreakdown) {
	s.Positive += other.Positive
	s.Negative += other.Negative
	s.Neutral += other.Neutral
}

// Total returns the combined count across tones.
func (s SentimentBreakdown) Total() int {
	return s.Positive + s.Negative + s.Neutral
}

// BatchResult is the raw per-batch structured output. It exists only
// between analysis and aggregation.
type BatchResult struct {
	Insights           []Insight          `json:"insights"`
	TrendingTopics     []TrendingTopic    `json:"trendingTopics"`
	KeyFindings        []string           `json:"keyFindings"`
	SentimentBreakdown SentimentBreakdown `json:"sentimentBreakdown"`
}

// ReportMetrics summarizes volume and tone across the whole run.
type ReportMetrics struct {
	EmailVolume       int `json:"emailVolume"`
	ParticipationRate int `json:"participationRate"`
	SentimentScore    int `json:"sentimentScore"` // 0-100
	AlertCount        int `json:"alertCount"`
}

// Report caps. keyFindings additionally never contains duplicates.
const (
	MaxReportInsights    = 10
	MaxReportTopics      = 5
	MaxReportKeyFindings = 6
)

// AnalysisReport is the final artifact returned to the caller. It is built
// once by the aggregator and never mutated afterward.
type AnalysisReport struct {
	Insights          []Insight       `json:"insights"`
	TrendingTopics    []TrendingTopic `json:"trendingTopics"`
	KeyFindings       []string        `json:"keyFindings"`
	ExecutiveSummary  string          `json:"executiveSummary"`
	SummaryHighlights []string        `json:"summaryHighlights"`
	RecommendedAction string          `json:"recommendedAction"`
	Metrics           ReportMetrics   `json:"metrics"`
	SourceBreakdown   map[string]int  `json:"sourceBreakdown"`
}
