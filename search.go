package recall

import (
	"github.com/medivault/recall/metadata"
)

// Match is one search result: the matched identifier, its metadata record,
// the raw squared Euclidean distance to the query, the similarity score
// derived from it, and the 1-based rank within the returned list.
type Match struct {
	ID       uint64          `json:"id"`
	Record   metadata.Record `json:"metadata"`
	Score    float64         `json:"score"`
	Distance float64         `json:"distance"`
	Rank     int             `json:"rank"`
}

// Filter decides whether a candidate may appear in search results. It runs
// after the metadata lookup, so it sees the candidate's record.
type Filter func(id uint64, rec metadata.Record) bool

// SearchOptions contains options for collection searches.
type SearchOptions struct {
	// Owner restricts results to records whose owner field equals Owner.
	// Empty means unfiltered. Owner filtering uses the metadata table's
	// owner index, so candidates from other owners are dropped before any
	// record is materialized.
	Owner string

	// Filter is an arbitrary post-lookup predicate. Candidates it rejects
	// are replaced by pulling further candidates from the vector store.
	Filter Filter
}

// WithOwner restricts a search to a single owner's records.
func WithOwner(owner string) func(o *SearchOptions) {
	return func(o *SearchOptions) {
		o.Owner = owner
	}
}

// WithFilter applies an arbitrary predicate to search candidates.
func WithFilter(filter Filter) func(o *SearchOptions) {
	return func(o *SearchOptions) {
		o.Filter = filter
	}
}

// Score converts a squared Euclidean distance into the similarity score
// 1/(1+distance). It is exactly 1 at distance 0 and falls toward 0 as the
// distance grows, so it stays in (0, 1].
func Score(distance float64) float64 {
	return 1 / (1 + distance)
}
