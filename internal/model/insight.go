package model

type InsightType string

const (
	InsightTheme       InsightType = "theme"
	InsightProgression InsightType = "progression"
	InsightSynthesis   InsightType = "synthesis"
	InsightGap         InsightType = "gap"
)

type Insight struct {
	Type        InsightType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	DocumentIDs []string    `json:"document_ids"`
	Confidence  float64     `json:"confidence"`
}
