package models

import "time"

// RawItem lifecycle states.
const (
	StatusPending   = "pending"
	StatusScored    = "scored"
	StatusDiscarded = "discarded"
)

// Report lifecycle states.
const (
	ReportDraft     = "draft"
	ReportPublished = "published"
)

// Source is a configured feed to collect from.
type Source struct {
	ID            int64      `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	Type          string     `db:"type" json:"type"`
	URL           string     `db:"url" json:"url"`
	Enabled       bool       `db:"enabled" json:"enabled"`
	LastFetchedAt *time.Time `db:"last_fetched_at" json:"last_fetched_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// CollectedItem is a normalized article as it comes out of a collector,
// before it is persisted as a RawItem.
type CollectedItem struct {
	Title       string     `json:"title"`
	URL         string     `json:"url,omitempty"`
	Content     string     `json:"content,omitempty"`
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	SourceName  string     `json:"source_name"`
}

// RawItem is a fetched but unprocessed article.
type RawItem struct {
	ID          int64      `db:"id" json:"id"`
	SourceID    *int64     `db:"source_id" json:"source_id,omitempty"`
	SourceName  string     `db:"source_name" json:"source_name,omitempty"`
	Title       string     `db:"title" json:"title"`
	Content     string     `db:"content" json:"content,omitempty"`
	URL         string     `db:"url" json:"url,omitempty"`
	Author      string     `db:"author" json:"author,omitempty"`
	PublishedAt *time.Time `db:"published_at" json:"published_at,omitempty"`
	Status      string     `db:"status" json:"status"`
	FetchedAt   time.Time  `db:"fetched_at" json:"fetched_at"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// ScoreResult is the per-article output of the scoring engine. It is
// ephemeral; the fields are copied onto a ProcessedItem when persisted.
type ScoreResult struct {
	Index      int      `json:"index"`
	Relevance  int      `json:"relevance"`
	Quality    int      `json:"quality"`
	Timeliness int      `json:"timeliness"`
	Category   Category `json:"category"`
	Keywords   []string `json:"keywords"`
}

// Total returns the summed score in the 3-30 range.
func (s ScoreResult) Total() int {
	return s.Relevance + s.Quality + s.Timeliness
}

// NeutralScore is the fallback applied when a whole scoring batch fails
// to parse, so that every considered article still gets a ProcessedItem.
func NeutralScore(index int) ScoreResult {
	return ScoreResult{
		Index:      index,
		Relevance:  5,
		Quality:    5,
		Timeliness: 5,
		Category:   CategoryOther,
	}
}

// ProcessedItem is the persisted result of scoring (and, for approved
// articles, summarization). Exactly one exists per RawItem considered
// by a processing run. Summary fields are empty strings, never NULL,
// for unapproved items.
type ProcessedItem struct {
	ID          int64     `db:"id" json:"id"`
	RawItemID   int64     `db:"raw_item_id" json:"raw_item_id"`
	Relevance   int       `db:"relevance" json:"relevance"`
	Quality     int       `db:"quality" json:"quality"`
	Timeliness  int       `db:"timeliness" json:"timeliness"`
	TotalScore  int       `db:"total_score" json:"total_score"`
	Category    Category  `db:"category" json:"category"`
	Keywords    Keywords  `db:"keywords" json:"keywords"`
	TitleZh     string    `db:"title_zh" json:"title_zh"`
	Summary     string    `db:"summary" json:"summary"`
	Reason      string    `db:"reason" json:"reason"`
	Approved    bool      `db:"approved" json:"approved"`
	ProcessedAt time.Time `db:"processed_at" json:"processed_at"`

	// Joined raw item fields, populated by store queries.
	Title       string     `db:"title" json:"title,omitempty"`
	URL         string     `db:"url" json:"url,omitempty"`
	SourceName  string     `db:"source_name" json:"source_name,omitempty"`
	PublishedAt *time.Time `db:"published_at" json:"published_at,omitempty"`
}

// Report is a dated digest, potentially revised. (report_date, version)
// is unique; versions are never mutated, a regeneration inserts version+1.
type Report struct {
	ID          int64      `db:"id" json:"id"`
	ReportDate  string     `db:"report_date" json:"report_date"`
	Title       string     `db:"title" json:"title"`
	Content     string     `db:"content" json:"content"`
	Highlights  string     `db:"highlights" json:"highlights"`
	Status      string     `db:"status" json:"status"`
	Version     int        `db:"version" json:"version"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	PublishedAt *time.Time `db:"published_at" json:"published_at,omitempty"`
}

// ReportItem associates a Report with a ProcessedItem. OrderIndex is the
// 0-based position in the rendered document, not the raw score rank.
type ReportItem struct {
	ID              int64 `db:"id" json:"id"`
	ReportID        int64 `db:"report_id" json:"report_id"`
	ProcessedItemID int64 `db:"processed_item_id" json:"processed_item_id"`
	OrderIndex      int   `db:"order_index" json:"order_index"`
}
