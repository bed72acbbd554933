// Package storage persists per-search records so past runs can be reviewed.
package storage

import (
	"context"
	"time"
)

// SearchRecord is one attempted search as stored.
type SearchRecord struct {
	ID        string        `json:"id"`
	RunID     string        `json:"run_id"`
	Term      string        `json:"term"`
	Succeeded bool          `json:"succeeded"`
	Message   string        `json:"message"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// Filter allows querying for specific SearchRecords. Results are ordered
// newest first.
type Filter struct {
	RunID     string
	Term      string
	Succeeded *bool
	Since     *time.Time
	Limit     int
	Offset    int
}

// Match reports whether r passes the filter's predicates. Limit and Offset
// are not considered.
func (f Filter) Match(r *SearchRecord) bool {
	if f.RunID != "" && r.RunID != f.RunID {
		return false
	}
	if f.Term != "" && r.Term != f.Term {
		return false
	}
	if f.Succeeded != nil && r.Succeeded != *f.Succeeded {
		return false
	}
	if f.Since != nil && r.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Page applies Offset then Limit to records already in result order.
func (f Filter) Page(records []*SearchRecord) []*SearchRecord {
	if f.Offset > 0 {
		if f.Offset >= len(records) {
			return []*SearchRecord{}
		}
		records = records[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(records) {
		records = records[:f.Limit]
	}
	return records
}

// Backend defines the interface for storing and querying search records.
type Backend interface {
	Save(ctx context.Context, record *SearchRecord) error
	Query(ctx context.Context, filter Filter) ([]*SearchRecord, error)
	Close() error
}
