package faces

import "github.com/kozaktomas/photo-library/internal/database"

// Default density clustering parameters for 128-dim face descriptors.
const (
	defaultEpsilon = 0.6
	minClusterSize = 2
)

const noiseLabel = -1

// dbscan runs density based clustering over the points and returns one
// label per point. Labels start at 0; noise points get -1.
func dbscan(points [][]float64, eps float64, minPts int) []int {
	const unvisited = -2

	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = unvisited
	}

	next := 0
	for i := range points {
		if labels[i] != unvisited {
			continue
		}
		neighbors := regionQuery(points, i, eps)
		if len(neighbors) < minPts {
			labels[i] = noiseLabel
			continue
		}

		label := next
		next++
		labels[i] = label

		// Expand the cluster over the density-reachable set. The queue
		// grows while core points keep pulling in new neighbours.
		for j := 0; j < len(neighbors); j++ {
			p := neighbors[j]
			if labels[p] == noiseLabel {
				labels[p] = label
				continue
			}
			if labels[p] != unvisited {
				continue
			}
			labels[p] = label
			expanded := regionQuery(points, p, eps)
			if len(expanded) >= minPts {
				neighbors = append(neighbors, expanded...)
			}
		}
	}

	for i := range labels {
		if labels[i] == unvisited {
			labels[i] = noiseLabel
		}
	}
	return labels
}

// regionQuery returns every point within eps of the center, the center
// itself included, so minPts counts the point like sklearn does.
func regionQuery(points [][]float64, center int, eps float64) []int {
	var neighbors []int
	for i := range points {
		if database.EuclideanDistance(points[center], points[i]) <= eps {
			neighbors = append(neighbors, i)
		}
	}
	return neighbors
}
