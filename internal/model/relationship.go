package model

type RelationshipType string

const (
	RelationSimilarTo    RelationshipType = "similar_to"
	RelationReferences   RelationshipType = "references"
	RelationContradicts  RelationshipType = "contradicts"
	RelationExtends      RelationshipType = "extends"
	RelationSummarizes   RelationshipType = "summarizes"
	RelationPrerequisite RelationshipType = "prerequisite"
	RelationPartOf       RelationshipType = "part_of"
)

type RelationshipEdge struct {
	SourceID     string           `json:"source_id"`
	TargetID     string           `json:"target_id"`
	Type         RelationshipType `json:"type"`
	Strength     float64          `json:"strength"`
	Evidence     []string         `json:"evidence"`
	AutoDetected bool             `json:"auto_detected"`
}

// Directed reports whether the edge reads source -> target. similar_to is the
// only symmetric relation.
func (e RelationshipEdge) Directed() bool {
	return e.Type != RelationSimilarTo
}

type Contradiction struct {
	Claim1      string `json:"claim1"`
	Claim2      string `json:"claim2"`
	Explanation string `json:"explanation"`
	Severity    string `json:"severity"`
}
