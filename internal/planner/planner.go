// Package planner implements QueryPlanner: the cost classifier that stands
// between a raw search string and the Store, rejecting queries that would
// scan the whole index for no useful signal and capping the rest according
// to how expensive they look.
package planner

import (
	"strings"

	"github.com/dreamware/torua/internal/filter"
)

// CostBucket classifies a query's expected cost after planning.
type CostBucket string

const (
	CostLow    CostBucket = "low"
	CostMedium CostBucket = "medium"
	CostHigh   CostBucket = "high"
)

// commonRatioRejectThreshold: above this ratio of common/stop tokens, the
// query is rejected outright as abusive.
const commonRatioRejectThreshold = 0.80

// mediumRatioThreshold separates CostLow from CostMedium/CostHigh.
const mediumRatioThreshold = 0.5

// rowCapHigh and rowCapMedium are the caps applied in their respective cost
// buckets; CostLow applies no additional cap beyond the caller's request.
const (
	rowCapHigh   = 50
	rowCapMedium = 200
)

// MaxRequestedRows is the hard ceiling a caller's requestedMax is clamped
// to before it ever reaches Plan.
const MaxRequestedRows = 100

// Plan is the result of planning one query.
type Plan struct {
	Reason     string
	Processed  string
	CostBucket CostBucket
	RowCap     int
	Accepted   bool
}

// ClampRequestedMax applies the pre-planner row cap. Callers (Shard.Search,
// the public query surface) must call this before Plan.
func ClampRequestedMax(requestedMax int) int {
	if requestedMax > MaxRequestedRows {
		return MaxRequestedRows
	}
	if requestedMax < 0 {
		return 0
	}
	return requestedMax
}

// Plan classifies raw query text in five steps: filter it, reject if
// nothing signal-bearing remains, measure the common/stop token ratio,
// reject if that ratio is abusive, then bucket the rest by cost and cap
// rows accordingly. requestedMax must already be clamped via
// ClampRequestedMax.
func Plan(raw string, requestedMax int) Plan {
	processed := filter.FilterQuery(raw)
	if strings.TrimSpace(processed) == "" {
		return Plan{Accepted: false, Reason: "only stop words", Processed: processed}
	}

	tokens := strings.Fields(processed)
	commonCount := 0
	for _, tok := range tokens {
		if isCommonToken(tok) {
			commonCount++
		}
	}
	ratio := float64(commonCount) / float64(len(tokens))

	if ratio > commonRatioRejectThreshold {
		return Plan{Accepted: false, Reason: "too common", Processed: processed}
	}

	bucket := bucketFor(ratio)
	return Plan{
		Accepted:   true,
		Processed:  processed,
		CostBucket: bucket,
		RowCap:     rowCapFor(bucket, requestedMax),
	}
}

func bucketFor(ratio float64) CostBucket {
	switch {
	case ratio == 0:
		return CostLow
	case ratio < mediumRatioThreshold:
		return CostMedium
	default:
		return CostHigh
	}
}

func rowCapFor(bucket CostBucket, requestedMax int) int {
	switch bucket {
	case CostHigh:
		return min(requestedMax, rowCapHigh)
	case CostMedium:
		return min(requestedMax, rowCapMedium)
	default:
		return requestedMax
	}
}

// isCommonToken reports whether tok (already FilterQuery-processed, so
// Stop words are already gone) counts toward the common-token ratio: a
// token in either the Stop or Common set. FilterQuery strips Stop words
// from its output, so any stop word surviving here only happens if the
// caller bypassed FilterQuery; both sets are checked defensively via
// filter.Filter on the single token, which drops it if either set claims
// it.
func isCommonToken(tok string) bool {
	return filter.Filter(tok) == ""
}
