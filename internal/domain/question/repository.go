package question

import (
	"context"
)

// Filter selects parts for List. Zero values do not filter.
type Filter struct {
	School      string
	Year        int
	Section     string
	NeedsReview *bool
	Limit       int
	Offset      int
}

// UpsertResult counts the outcome of an Upsert.
type UpsertResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	// Skipped counts parts left alone because they were edited by hand.
	Skipped int `json:"skipped"`
}

// Repository persists parts keyed by Identity.
type Repository interface {
	// Upsert inserts or updates parts by identity. Rows flagged as manually
	// edited are not overwritten.
	Upsert(ctx context.Context, parts []Part) (UpsertResult, error)
	Get(ctx context.Context, id Identity) (*Part, error)
	// ListByQuestion returns every part of key in merge order.
	ListByQuestion(ctx context.Context, key Key) ([]Part, error)
	List(ctx context.Context, f Filter) ([]Part, error)
	// UpdateAnswer stores an answer. Without overwrite only an empty answer
	// is filled, and manually edited rows are never changed; the return
	// value reports whether the row changed.
	UpdateAnswer(ctx context.Context, id Identity, answer, workedSolution string, overwrite bool) (bool, error)
	// UpdateTags stores a validated classification. Manually edited rows are
	// left alone and reported as unchanged.
	UpdateTags(ctx context.Context, id Identity, tags Tags) (bool, error)
}

// GroupReader reads merged question groups. The cache decorates it.
type GroupReader interface {
	GetGroup(ctx context.Context, key Key) (Group, error)
}

//Personal.AI order the ending
