// Package classify ranks a user's stored examples against a query
// embedding and votes among the top k. It is a brute-force scan: per-user
// example counts are small (tens to low hundreds), so no index is built.
package classify

import (
	"fmt"
	"sort"

	"github.com/voxkit/phraseprint/algorithms/stats"
	"github.com/voxkit/phraseprint/store"
)

// Metric selects how example embeddings are scored against the query
type Metric string

const (
	// Cosine scores by cosine similarity; higher is better.
	Cosine Metric = "cosine"
	// Euclidean scores by Euclidean distance; lower is better.
	Euclidean Metric = "euclidean"
)

// ParseMetric converts a string into a Metric
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case Cosine:
		return Cosine, nil
	case Euclidean:
		return Euclidean, nil
	default:
		return "", fmt.Errorf("classify: unknown metric %q", s)
	}
}

// Prediction is the classifier output. OK is false when the user has no
// stored examples; Label is meaningless in that case and Confidence is 0.
type Prediction struct {
	Label      string  `json:"label"`
	OK         bool    `json:"ok"`
	Confidence float64 `json:"confidence"`
}

// DefaultK is the neighbor count used when callers pass k <= 0
const DefaultK = 3

type scoredExample struct {
	score float64
	label string
}

// Predict classifies the query embedding against the stored examples by
// k-nearest-neighbor vote.
//
// Every example is scored with the selected metric, examples are ranked
// best-first, k is clamped to the example count, and the labels of the
// top k are tallied. A vote tie is broken deterministically in favor of
// the label encountered first while scanning the top k in rank order.
//
// Confidence is the mean score of the winning label's neighbors within
// the top k, mapped into [0, 1]: (avg+1)/2 for cosine similarity,
// 1/(1+avg) for Euclidean distance.
func Predict(query []float64, examples []store.Example, k int, metric Metric) Prediction {
	if len(examples) == 0 {
		return Prediction{}
	}

	if k <= 0 {
		k = DefaultK
	}
	if k > len(examples) {
		k = len(examples)
	}

	scored := make([]scoredExample, len(examples))
	for i, ex := range examples {
		var score float64
		switch metric {
		case Euclidean:
			score = stats.EuclideanDistance(query, ex.Features)
		default:
			score = stats.CosineSimilarity(query, ex.Features)
		}
		scored[i] = scoredExample{score: score, label: ex.Label}
	}

	// Stable sort keeps insertion order among equal scores, which makes
	// the tie-break reproducible across runs.
	if metric == Euclidean {
		sort.SliceStable(scored, func(i, j int) bool { return scored[i].score < scored[j].score })
	} else {
		sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	}

	topK := scored[:k]

	// Majority vote; first-encountered label wins ties
	counts := make(map[string]int, k)
	bestLabel := ""
	bestCount := 0
	for _, se := range topK {
		counts[se.label]++
		if counts[se.label] > bestCount {
			bestCount = counts[se.label]
			bestLabel = se.label
		}
	}

	sum := 0.0
	contributors := 0
	for _, se := range topK {
		if se.label == bestLabel {
			sum += se.score
			contributors++
		}
	}
	avg := sum / float64(contributors)

	var confidence float64
	if metric == Euclidean {
		confidence = 1.0 / (1.0 + avg)
	} else {
		confidence = (avg + 1.0) / 2.0
	}
	confidence = clamp01(confidence)

	return Prediction{Label: bestLabel, OK: true, Confidence: confidence}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
