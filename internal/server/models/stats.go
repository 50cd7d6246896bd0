package models

import "time"

// RecordKind selects which history a records operation targets.
type RecordKind string

const (
	KindSearch RecordKind = "search"
	KindImage  RecordKind = "image"
)

// ActivityCounts is the per-table aggregate used by the dashboard and the
// admin statistics.
type ActivityCounts struct {
	Total        int64
	Today        int64
	LastActivity *time.Time
}

type DashboardStats struct {
	TotalSearches int64      `json:"total_searches"`
	TotalImages   int64      `json:"total_images"`
	SearchesToday int64      `json:"searches_today"`
	ImagesToday   int64      `json:"images_today"`
	MemberSince   time.Time  `json:"member_since"`
	LastActivity  *time.Time `json:"last_activity,omitempty"`
}

type Dashboard struct {
	Stats          DashboardStats `json:"stats"`
	RecentSearches []SearchRecord `json:"recent_searches"`
	RecentImages   []ImageRecord  `json:"recent_images"`
}

type SystemStats struct {
	TotalUsers    int64 `json:"total_users"`
	TotalSearches int64 `json:"total_searches"`
	TotalImages   int64 `json:"total_images"`
	SearchesToday int64 `json:"searches_today"`
	ImagesToday   int64 `json:"images_today"`
}
