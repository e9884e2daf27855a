package model

const (
	StructuralDims = 8
	StylisticDims  = 7
	ComplexityDims = 4
	TopicalDims    = 15
	SemanticDims   = 50
)

type DNAFingerprint struct {
	DocumentID string      `json:"document_id"`
	Structural []float32   `json:"structural"`
	Stylistic  []float32   `json:"stylistic"`
	Complexity []float32   `json:"complexity"`
	Topical    []float32   `json:"topical"`
	Semantic   []float32   `json:"semantic"`
	Metadata   DNAMetadata `json:"metadata"`
}

type DNAMetadata struct {
	Title          string `json:"title"`
	WordCount      int    `json:"word_count"`
	SentenceCount  int    `json:"sentence_count"`
	ParagraphCount int    `json:"paragraph_count"`
	ComputedAt     int64  `json:"computed_at"`
}

type DNASimilarity struct {
	DocumentID1 string  `json:"document_id_1"`
	DocumentID2 string  `json:"document_id_2"`
	Overall     float64 `json:"overall"`
	Structural  float64 `json:"structural"`
	Stylistic   float64 `json:"stylistic"`
	Complexity  float64 `json:"complexity"`
	Topical     float64 `json:"topical"`
	Semantic    float64 `json:"semantic"`
}
