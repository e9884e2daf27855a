package model

type Document struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Ctime   int64  `json:"ctime"`
	Mtime   int64  `json:"mtime"`
}

// DocumentFilter narrows a List call. Empty fields match everything.
type DocumentFilter struct {
	IDs   []string `json:"ids"`
	Limit int      `json:"limit"`
}
