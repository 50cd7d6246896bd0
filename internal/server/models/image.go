package models

import "time"

type ImageParameters struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Steps  int `json:"steps"`
}

// Artifact is the generated image. Exactly one of URL, Data or StorageKey is
// set; StorageKey is only ever set on persisted records and is resolved to
// a URL before the record is returned to a caller.
type Artifact struct {
	URL        string `json:"url,omitempty"`
	Data       string `json:"data,omitempty"`
	StorageKey string `json:"-"`
}

// Valid reports whether exactly one representation is present.
func (a Artifact) Valid() bool {
	n := 0
	for _, v := range []string{a.URL, a.Data, a.StorageKey} {
		if v != "" {
			n++
		}
	}
	return n == 1
}

type ImageRecord struct {
	ID         string          `json:"id"`
	OwnerID    string          `json:"owner_id"`
	Prompt     string          `json:"prompt"`
	Parameters ImageParameters `json:"parameters"`
	Artifact   Artifact        `json:"artifact"`
	CreatedAt  time.Time       `json:"created_at"`
}
