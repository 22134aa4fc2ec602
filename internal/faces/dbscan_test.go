package faces

import "testing"

func TestDbscanPairAndOutlier(t *testing.T) {
	points := [][]float64{
		{0, 0},
		{0.1, 0},
		{10, 10},
	}
	labels := dbscan(points, 0.6, 2)

	if labels[0] != labels[1] {
		t.Errorf("close pair split into labels %d and %d", labels[0], labels[1])
	}
	if labels[0] == noiseLabel {
		t.Error("close pair marked as noise")
	}
	if labels[2] != noiseLabel {
		t.Errorf("outlier label = %d, want noise", labels[2])
	}
}

func TestDbscanAllNoise(t *testing.T) {
	points := [][]float64{
		{0, 0},
		{5, 0},
		{0, 5},
	}
	for i, label := range dbscan(points, 0.6, 2) {
		if label != noiseLabel {
			t.Errorf("point %d label = %d, want noise", i, label)
		}
	}
}

func TestDbscanTwoGroups(t *testing.T) {
	points := [][]float64{
		{0, 0},
		{0.2, 0},
		{0.1, 0.1},
		{8, 8},
		{8.1, 8},
	}
	labels := dbscan(points, 0.6, 2)

	if labels[0] != labels[1] || labels[1] != labels[2] {
		t.Errorf("first group labels = %v", labels[:3])
	}
	if labels[3] != labels[4] {
		t.Errorf("second group labels = %v", labels[3:])
	}
	if labels[0] == labels[3] {
		t.Error("distant groups share a label")
	}
}

func TestDbscanChainExpansion(t *testing.T) {
	// Each point is within eps of its neighbour only; density
	// reachability must pull the whole chain into one cluster.
	points := [][]float64{
		{0, 0},
		{0.5, 0},
		{1.0, 0},
		{1.5, 0},
	}
	labels := dbscan(points, 0.6, 2)
	for i := 1; i < len(labels); i++ {
		if labels[i] != labels[0] {
			t.Fatalf("chain broke apart: %v", labels)
		}
	}
}
