// Package searchipc defines the boundary to the native dictionary engine.
//
// The engine owns indexing, incremental/prefix search, fulltext search and
// entry storage. This package only speaks its request/response surface: a
// search resolves to a (start index, total count) origin into a linear result
// sequence, pages of that sequence are fetched by range, and a selected row
// resolves to per-profile entry groups whose content is fetched individually.
package searchipc

import (
	"context"
	"errors"
)

// NoResults is the engine's start-index sentinel for an empty result set.
const NoResults = -1

// ErrEngineClosed is returned for calls issued after the client shut down.
var ErrEngineClosed = errors.New("searchipc: engine connection closed")

// SearchOrigin locates a search's results within the engine's result sequence.
// StartIndex is NoResults when the query matched nothing.
type SearchOrigin struct {
	StartIndex int64 `json:"start_entry_no"`
	TotalCount int64 `json:"total_count"`
}

// KeyItem is one row of the result key list.
type KeyItem struct {
	Keyword    string `json:"keyword"`
	EntryCount int    `json:"entry_count"`
}

// EntryRef identifies a single dictionary entry within a profile.
type EntryRef struct {
	ProfileID int64  `json:"profile_id"`
	EntryNo   int64  `json:"entry_no"`
	Keyword   string `json:"key"`
}

// EntryGroup is the set of entries one selected result row resolves to for a
// single profile (dictionary source).
type EntryGroup struct {
	ProfileID  int64      `json:"profile_id"`
	PrimaryKey string     `json:"primary_key"`
	Entries    []EntryRef `json:"indexes"`
}

// Searcher is the engine operation surface consumed by the result window and
// the entry loader. Implementations must be safe for concurrent use.
type Searcher interface {
	// SearchIncremental runs an index (prefix) search and returns the origin
	// of the matching region in the result sequence.
	SearchIncremental(ctx context.Context, query string) (SearchOrigin, error)

	// FulltextSearch runs a fulltext search. The engine rebuilds the result
	// sequence, so the returned origin always starts at zero.
	FulltextSearch(ctx context.Context, query string) (SearchOrigin, error)

	// ResultKeyList returns up to maxCount rows starting at startIndex.
	// A short (or empty) slice past the end of the sequence is not an error.
	ResultKeyList(ctx context.Context, startIndex int64, maxCount int) ([]KeyItem, error)

	// GroupIndexes resolves a result row to its per-profile entry groups.
	GroupIndexes(ctx context.Context, index int64) ([]EntryGroup, error)

	// EntryContent returns the rendered HTML for one entry.
	EntryContent(ctx context.Context, ref EntryRef) (string, error)
}
