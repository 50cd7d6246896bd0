package models

import "time"

// ResultItem is one search hit. At least one of Title, Snippet or Content is set.
type ResultItem struct {
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
	Content string `json:"content,omitempty"`
	URL     string `json:"url,omitempty"`
	Source  string `json:"source,omitempty"`
}

// HasText reports whether the item carries any descriptive field.
func (i ResultItem) HasText() bool {
	return i.Title != "" || i.Snippet != "" || i.Content != ""
}

type SearchRecord struct {
	ID         string       `json:"id"`
	OwnerID    string       `json:"owner_id"`
	Query      string       `json:"query"`
	MaxResults int          `json:"max_results"`
	Results    []ResultItem `json:"results"`
	CreatedAt  time.Time    `json:"created_at"`
}
