package database

import "math"

// MeanVector averages a set of equal-length vectors component-wise.
func MeanVector(vs [][]float64) []float64 {
	if len(vs) == 0 {
		return nil
	}
	mean := make([]float64, len(vs[0]))
	for _, v := range vs {
		for i, f := range v {
			mean[i] += f
		}
	}
	for i := range mean {
		mean[i] /= float64(len(vs))
	}
	return mean
}

// EuclideanDistance is the L2 distance between two face encodings.
func EuclideanDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// CosineDistance computes the cosine distance between two vectors.
// Returns a value between 0 (identical) and 2 (opposite); invalid or zero
// vectors get the maximum distance.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return 1 - similarity
}
