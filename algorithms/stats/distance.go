package stats

import (
	"math"
)

// cosineEpsilon guards the similarity denominator so a zero vector
// yields similarity 0 instead of NaN
const cosineEpsilon = 1e-9

// EuclideanDistance calculates the straight-line distance between two
// vectors. Vectors of mismatched length are compared over the shorter
// prefix; callers are expected to enforce equal dimensions.
func EuclideanDistance(a, b []float64) float64 {
	n := min(len(a), len(b))

	sum := 0.0
	for i := 0; i < n; i++ {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// CosineSimilarity calculates the normalized dot product of two vectors,
// in [-1, 1]. Higher means more directionally aligned.
func CosineSimilarity(a, b []float64) float64 {
	n := min(len(a), len(b))

	dotProduct := 0.0
	normA := 0.0
	normB := 0.0

	for i := 0; i < n; i++ {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	return dotProduct / (math.Sqrt(normA)*math.Sqrt(normB) + cosineEpsilon)
}
