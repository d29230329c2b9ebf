// Package similarity ranks embedding vectors by cosine similarity.
// Candidate sets are small, so ranking is a brute-force scan.
package similarity

import (
	"errors"
	"math"
	"sort"
)

var (
	// ErrEmptyVector is returned when either vector has no components.
	ErrEmptyVector = errors.New("empty vector")
	// ErrDimensionMismatch is returned when vectors differ in length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Cosine returns the cosine similarity of a and b, in [-1, 1].
//
// It fails with ErrEmptyVector or ErrDimensionMismatch, returning 0 alongside
// the error. A zero-magnitude vector has no direction and yields 0, nil.
func Cosine(a, b []float64) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ErrEmptyVector
	}
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp rounding overshoot so callers can rely on the bounds.
	return math.Max(-1, math.Min(1, sim)), nil
}

// Candidate is one item competing for a place in the ranking.
// Item carries whatever the caller needs back; it is never inspected.
type Candidate[T any] struct {
	ID         string
	Vector     []float64
	SourceText string
	Item       T
}

// Ranked is a Candidate together with its similarity to the query.
type Ranked[T any] struct {
	Candidate[T]
	Similarity float64
}

// FindSimilar scores every candidate against query and returns the topK best
// with similarity >= threshold, sorted descending.
//
// Candidates without a vector, or whose vector cannot be compared with the
// query, are skipped. Ties keep input order. An empty query or candidate set
// yields an empty result.
func FindSimilar[T any](query []float64, candidates []Candidate[T], topK int, threshold float64) []Ranked[T] {
	if len(query) == 0 || len(candidates) == 0 || topK <= 0 {
		return nil
	}

	results := make([]Ranked[T], 0, len(candidates))
	for _, c := range candidates {
		if len(c.Vector) == 0 {
			continue
		}
		sim, err := Cosine(query, c.Vector)
		if err != nil {
			continue
		}
		if sim >= threshold {
			results = append(results, Ranked[T]{Candidate: c, Similarity: sim})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}
