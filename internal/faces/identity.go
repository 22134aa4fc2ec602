package faces

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	deep "github.com/patrikeh/go-deep"
	"github.com/patrikeh/go-deep/training"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/jobs"
)

const (
	predictPageSize = 100
	bulkUpdateSize  = 200
	trainIterations = 1000
	learningRate    = 0.001
)

// Identity runs the two clustering phases: a density pass that groups
// raw encodings into clusters, and a classifier pass that scores how
// well each inferred face matches its assigned person.
type Identity struct {
	store    faceStore
	clusters *ClusterManager
	epsilon  float64
	logger   *slog.Logger
}

// NewIdentity creates the identity engine. epsilon <= 0 selects the
// default clustering radius.
func NewIdentity(store faceStore, epsilon float64, logger *slog.Logger) *Identity {
	if epsilon <= 0 {
		epsilon = defaultEpsilon
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Identity{
		store:    store,
		clusters: NewClusterManager(store, logger),
		epsilon:  epsilon,
		logger:   logger,
	}
}

// ClusterAllFaces recomputes the user's clusters from scratch: wipe the
// previous generation, density-cluster every encoding, and materialise
// each label through the cluster manager, biggest group first.
func (e *Identity) ClusterAllFaces(ctx context.Context, user *database.User, run *jobs.Run) error {
	if err := e.reset(ctx, user); err != nil {
		return err
	}

	allFaces, err := e.store.ListFacesByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list faces: %w", err)
	}
	if len(allFaces) == 0 {
		if run != nil {
			if err := run.SetTarget(ctx, 0); err != nil {
				return err
			}
		}
		return nil
	}

	encodings := make([][]float64, len(allFaces))
	for i := range allFaces {
		encodings[i] = allFaces[i].Encoding
	}
	labels := dbscan(encodings, e.epsilon, minClusterSize)

	groups := make(map[int][]database.Face)
	for i, label := range labels {
		groups[label] = append(groups[label], allFaces[i])
	}

	// Biggest groups first; density labels are arbitrary, so renumber
	// them by size starting at 1. Noise keeps its sentinel.
	order := make([]int, 0, len(groups))
	for label := range groups {
		order = append(order, label)
	}
	sort.Slice(order, func(i, j int) bool {
		if len(groups[order[i]]) != len(groups[order[j]]) {
			return len(groups[order[i]]) > len(groups[order[j]])
		}
		return order[i] < order[j]
	})

	clusterCount := len(groups)
	if _, hasNoise := groups[noiseLabel]; hasNoise {
		clusterCount--
	}
	padLen := len(fmt.Sprintf("%d", clusterCount))

	if run != nil {
		if err := run.SetTarget(ctx, len(order)); err != nil {
			return err
		}
	}

	nextID := 0
	for i, label := range order {
		id := database.UnknownClusterID
		if label != noiseLabel {
			nextID++
			id = nextID
		}
		if _, err := e.clusters.TryAddCluster(ctx, user, id, groups[label], padLen); err != nil {
			return fmt.Errorf("materialise cluster %d: %w", id, err)
		}
		if run != nil {
			if err := run.Progress(ctx, i+1); err != nil {
				return err
			}
		}
	}

	e.logger.Info("face clustering complete", "user_id", user.ID, "faces", len(allFaces), "clusters", clusterCount)
	return nil
}

// reset removes the previous cluster generation: every non-unknown
// cluster, every auto-created CLUSTER person, and named persons that no
// longer own faces.
func (e *Identity) reset(ctx context.Context, user *database.User) error {
	if err := e.store.ResetClusters(ctx, user.ID); err != nil {
		return fmt.Errorf("reset clusters: %w", err)
	}

	allFaces, err := e.store.ListFacesByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list faces: %w", err)
	}
	faceCount := make(map[int64]int)
	for _, face := range allFaces {
		faceCount[face.PersonID]++
	}

	persons, err := e.store.ListPersons(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list persons: %w", err)
	}
	for _, person := range persons {
		remove := person.Kind == database.PersonKindCluster ||
			(person.Kind == database.PersonKindUser && faceCount[person.ID] == 0)
		if !remove {
			continue
		}
		if err := e.store.DeletePerson(ctx, person.ID); err != nil {
			return fmt.Errorf("delete person %d: %w", person.ID, err)
		}
	}
	return nil
}

// TrainFaces fits a classifier on the trusted labels and scores every
// inferred face with the probability that its current person assignment
// is correct. Without any trusted labels the pass is a no-op.
func (e *Identity) TrainFaces(ctx context.Context, user *database.User, run *jobs.Run) error {
	allFaces, err := e.store.ListFacesByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list faces: %w", err)
	}

	persons := make(map[int64]*database.Person)
	personOf := func(id int64) (*database.Person, error) {
		if p, ok := persons[id]; ok {
			return p, nil
		}
		p, err := e.store.GetPerson(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("person %d: %w", id, err)
		}
		persons[id] = p
		return p, nil
	}

	var known, unknown []database.Face
	for _, face := range allFaces {
		person, err := personOf(face.PersonID)
		if err != nil {
			return err
		}
		switch {
		case !face.PersonLabelIsInferred && person.Kind == database.PersonKindUser && person.Name != database.UnknownPersonName:
			known = append(known, face)
		case person.Kind == database.PersonKindUnknown || person.Name == database.UnknownPersonName:
			// Parked faces stay out of both sets.
		default:
			unknown = append(unknown, face)
		}
	}

	samples := make([][]float64, 0, len(known))
	sampleLabels := make([]int64, 0, len(known))
	for _, face := range known {
		samples = append(samples, face.Encoding)
		sampleLabels = append(sampleLabels, face.PersonID)
	}

	// One synthetic sample per auto-created cluster person lets the
	// classifier answer "looks like cluster X" for unnamed groups.
	clusters, err := e.store.ListClusters(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list clusters: %w", err)
	}
	for _, cluster := range clusters {
		if cluster.PersonID == nil || len(cluster.MeanFaceEncoding) == 0 {
			continue
		}
		person, err := personOf(*cluster.PersonID)
		if err != nil {
			return err
		}
		if person.Kind != database.PersonKindCluster {
			continue
		}
		samples = append(samples, cluster.MeanFaceEncoding)
		sampleLabels = append(sampleLabels, person.ID)
	}

	if len(samples) == 0 {
		e.logger.Info("no labelled faces, skipping classifier training", "user_id", user.ID)
		if run != nil {
			return run.SetTarget(ctx, 0)
		}
		return nil
	}

	classes, index := classIndex(sampleLabels)
	net := e.train(samples, sampleLabels, classes, index)

	if run != nil {
		if err := run.SetTarget(ctx, len(unknown)); err != nil {
			return err
		}
	}

	var pending []database.FaceAssignment
	done := 0
	for start := 0; start < len(unknown); start += predictPageSize {
		end := start + predictPageSize
		if end > len(unknown) {
			end = len(unknown)
		}
		for _, face := range unknown[start:end] {
			probs := net.Predict(face.Encoding)
			probability := 0.0
			if pos, ok := index[face.PersonID]; ok {
				probability = probs[pos]
			}
			pending = append(pending, database.FaceAssignment{
				FaceID:      face.ID,
				PersonID:    face.PersonID,
				Inferred:    true,
				Probability: probability,
			})
		}
		done = end
		if run != nil {
			if err := run.Progress(ctx, done); err != nil {
				return err
			}
		}
		if len(pending) >= bulkUpdateSize {
			if err := e.store.BulkUpdateFacePersons(ctx, pending); err != nil {
				return fmt.Errorf("update inferred faces: %w", err)
			}
			pending = pending[:0]
		}
	}
	if len(pending) > 0 {
		if err := e.store.BulkUpdateFacePersons(ctx, pending); err != nil {
			return fmt.Errorf("update inferred faces: %w", err)
		}
	}

	e.logger.Info("face classifier pass complete", "user_id", user.ID, "trained_on", len(samples), "scored", len(unknown))
	return nil
}

// classIndex maps the distinct person ids onto output neuron positions.
func classIndex(labels []int64) ([]int64, map[int64]int) {
	seen := make(map[int64]bool)
	var classes []int64
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			classes = append(classes, l)
		}
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
	index := make(map[int64]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return classes, index
}

func (e *Identity) train(samples [][]float64, labels []int64, classes []int64, index map[int64]int) *deep.Neural {
	examples := make(training.Examples, len(samples))
	for i, sample := range samples {
		response := make([]float64, len(classes))
		response[index[labels[i]]] = 1
		examples[i] = training.Example{Input: sample, Response: response}
	}

	net := deep.NewNeural(&deep.Config{
		Inputs:     len(samples[0]),
		Layout:     []int{len(samples[0]), len(classes)},
		Activation: deep.ActivationReLU,
		Mode:       deep.ModeMultiClass,
		Weight:     deep.NewNormal(0.5, 0),
		Bias:       true,
	})

	trainer := training.NewTrainer(training.NewAdam(learningRate, 0, 0, 0), 0)
	trainer.Train(net, examples, nil, trainIterations)
	return net
}
