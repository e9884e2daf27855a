package model

type Chunk struct {
	ID            string   `json:"id"`
	DocumentID    string   `json:"document_id"`
	Text          string   `json:"text"`
	StartPosition int      `json:"start_position"`
	EndPosition   int      `json:"end_position"`
	Index         int      `json:"index"`
	TotalChunks   int      `json:"total_chunks"`
	ContentHash   string   `json:"content_hash"`
	WordCount     int      `json:"word_count"`
	SentenceCount int      `json:"sentence_count"`
	Keywords      []string `json:"keywords"`
}

func (c *Chunk) Len() int {
	return c.EndPosition - c.StartPosition
}

type ChunkMetadata struct {
	DocumentID    string   `json:"document_id"`
	OwnerID       string   `json:"owner_id"`
	Title         string   `json:"title"`
	Text          string   `json:"text"`
	Index         int      `json:"index"`
	TotalChunks   int      `json:"total_chunks"`
	StartPosition int      `json:"start_position"`
	EndPosition   int      `json:"end_position"`
	ContentHash   string   `json:"content_hash"`
	Keywords      []string `json:"keywords"`
	Ctime         int64    `json:"ctime"`
}

type VectorRecord struct {
	ID        string        `json:"id"`
	Vector    []float32     `json:"vector"`
	Metadata  ChunkMetadata `json:"metadata"`
	Namespace string        `json:"namespace"`
}

type RelevantChunk struct {
	ChunkID     string  `json:"chunk_id"`
	DocumentID  string  `json:"document_id"`
	Title       string  `json:"title"`
	Text        string  `json:"text"`
	Index       int     `json:"index"`
	ContentHash string  `json:"content_hash"`
	Relevance   float64 `json:"relevance"`
}
