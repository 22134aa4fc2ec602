package faces

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/kozaktomas/photo-library/internal/database"
)

// ClusterManager groups faces of one density label into clusters and
// binds them to persons.
type ClusterManager struct {
	store  faceStore
	logger *slog.Logger
}

// NewClusterManager creates a cluster manager over the store.
func NewClusterManager(store faceStore, logger *slog.Logger) *ClusterManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClusterManager{store: store, logger: logger}
}

// TryAddCluster materialises one density label as clusters.
//
// Label -1 parks every face in the per-user unknown cluster. A label with
// no labelled faces becomes one fresh cluster with an auto-named
// CLUSTER person. A label containing faces of named persons is split:
// one cluster per person, with the unlabelled faces attached to the
// nearest person centroid.
func (m *ClusterManager) TryAddCluster(ctx context.Context, user *database.User, clusterID int, clusterFaces []database.Face, padLen int) ([]database.Cluster, error) {
	known, unknown, err := m.partition(ctx, clusterFaces)
	if err != nil {
		return nil, err
	}

	if clusterID == database.UnknownClusterID {
		return nil, m.parkInUnknown(ctx, user, known, unknown)
	}
	if len(known) == 0 {
		cluster, err := m.addUnlabelledCluster(ctx, user, clusterID, unknown, padLen)
		if err != nil {
			return nil, err
		}
		return []database.Cluster{*cluster}, nil
	}
	return m.splitByLabel(ctx, user, clusterID, known, unknown)
}

// partition separates faces with a trusted person label from the rest.
func (m *ClusterManager) partition(ctx context.Context, clusterFaces []database.Face) (known, unknown []database.Face, err error) {
	persons := make(map[int64]*database.Person)
	for _, face := range clusterFaces {
		person, ok := persons[face.PersonID]
		if !ok {
			person, err = m.store.GetPerson(ctx, face.PersonID)
			if err != nil {
				return nil, nil, fmt.Errorf("person %d: %w", face.PersonID, err)
			}
			persons[face.PersonID] = person
		}
		if face.PersonLabelIsInferred || person.Kind != database.PersonKindUser || person.Name == database.UnknownPersonName {
			unknown = append(unknown, face)
		} else {
			known = append(known, face)
		}
	}
	return known, unknown, nil
}

func (m *ClusterManager) parkInUnknown(ctx context.Context, user *database.User, known, unknown []database.Face) error {
	m.logger.Info("parking noise faces in unknown cluster", "user_id", user.ID, "unknown", len(unknown), "known", len(known))

	cluster, err := m.store.GetOrCreateUnknownCluster(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("unknown cluster: %w", err)
	}
	person, err := m.store.GetOrCreatePerson(ctx, user.ID, database.UnknownPersonName, database.PersonKindUnknown)
	if err != nil {
		return fmt.Errorf("unknown person: %w", err)
	}

	for _, face := range unknown {
		err := m.store.UpdateFacePerson(ctx, database.FaceAssignment{FaceID: face.ID, PersonID: person.ID})
		if err != nil {
			return fmt.Errorf("relabel face %d: %w", face.ID, err)
		}
		if err := m.store.SetFaceCluster(ctx, face.ID, &cluster.ID); err != nil {
			return fmt.Errorf("recluster face %d: %w", face.ID, err)
		}
	}
	// A named face keeps its person even when density says noise.
	for _, face := range known {
		if err := m.store.SetFaceCluster(ctx, face.ID, &cluster.ID); err != nil {
			return fmt.Errorf("recluster face %d: %w", face.ID, err)
		}
	}
	return nil
}

func (m *ClusterManager) addUnlabelledCluster(ctx context.Context, user *database.User, clusterID int, unknown []database.Face, padLen int) (*database.Cluster, error) {
	name := fmt.Sprintf("Unknown %0*d", padLen, clusterID)
	person, err := m.store.GetOrCreatePerson(ctx, user.ID, name, database.PersonKindCluster)
	if err != nil {
		return nil, fmt.Errorf("cluster person %q: %w", name, err)
	}

	cluster := &database.Cluster{
		OwnerID:   user.ID,
		PersonID:  &person.ID,
		ClusterID: clusterID,
		Name:      fmt.Sprintf("Cluster %d", clusterID),
	}

	var encodings [][]float64
	for _, face := range unknown {
		encodings = append(encodings, face.Encoding)
	}
	setClusterStats(cluster, encodings)
	if err := m.store.CreateCluster(ctx, cluster); err != nil {
		return nil, fmt.Errorf("create cluster %q: %w", cluster.Name, err)
	}

	for _, face := range unknown {
		err := m.store.UpdateFacePerson(ctx, database.FaceAssignment{FaceID: face.ID, PersonID: person.ID})
		if err != nil {
			return nil, fmt.Errorf("relabel face %d: %w", face.ID, err)
		}
		if err := m.store.SetFaceCluster(ctx, face.ID, &cluster.ID); err != nil {
			return nil, fmt.Errorf("recluster face %d: %w", face.ID, err)
		}
	}
	return cluster, nil
}

// splitByLabel creates one cluster per named person found in the label
// and attaches unlabelled faces to the nearest person centroid.
func (m *ClusterManager) splitByLabel(ctx context.Context, user *database.User, clusterID int, known, unknown []database.Face) ([]database.Cluster, error) {
	var added []*database.Cluster
	clusterByPerson := make(map[int64]*database.Cluster)
	encodingsByPerson := make(map[int64][][]float64)

	idx := 0
	for _, face := range known {
		cluster, ok := clusterByPerson[face.PersonID]
		if !ok {
			idx++
			personID := face.PersonID
			cluster = &database.Cluster{
				OwnerID:   user.ID,
				PersonID:  &personID,
				ClusterID: clusterID,
				Name:      fmt.Sprintf("Cluster %d-%d", clusterID, idx),
			}
			if err := m.store.CreateCluster(ctx, cluster); err != nil {
				return nil, fmt.Errorf("create cluster %q: %w", cluster.Name, err)
			}
			clusterByPerson[face.PersonID] = cluster
			added = append(added, cluster)
		}
		encodingsByPerson[face.PersonID] = append(encodingsByPerson[face.PersonID], face.Encoding)

		err := m.store.UpdateFacePerson(ctx, database.FaceAssignment{FaceID: face.ID, PersonID: face.PersonID})
		if err != nil {
			return nil, fmt.Errorf("relabel face %d: %w", face.ID, err)
		}
		if err := m.store.SetFaceCluster(ctx, face.ID, &cluster.ID); err != nil {
			return nil, fmt.Errorf("recluster face %d: %w", face.ID, err)
		}
	}

	// Centroids over the known faces steer where the rest go.
	for _, cluster := range added {
		setClusterStats(cluster, encodingsByPerson[*cluster.PersonID])
	}

	for _, face := range unknown {
		closest := added[0]
		minDistance := math.Inf(1)
		for _, cluster := range added {
			d := database.EuclideanDistance(face.Encoding, cluster.MeanFaceEncoding)
			if d < minDistance {
				closest = cluster
				minDistance = d
			}
		}
		encodingsByPerson[*closest.PersonID] = append(encodingsByPerson[*closest.PersonID], face.Encoding)

		err := m.store.UpdateFacePerson(ctx, database.FaceAssignment{
			FaceID:   face.ID,
			PersonID: *closest.PersonID,
			Inferred: true,
		})
		if err != nil {
			return nil, fmt.Errorf("relabel face %d: %w", face.ID, err)
		}
		if err := m.store.SetFaceCluster(ctx, face.ID, &closest.ID); err != nil {
			return nil, fmt.Errorf("recluster face %d: %w", face.ID, err)
		}
	}

	out := make([]database.Cluster, 0, len(added))
	for _, cluster := range added {
		setClusterStats(cluster, encodingsByPerson[*cluster.PersonID])
		if err := m.store.SaveCluster(ctx, cluster); err != nil {
			return nil, fmt.Errorf("save cluster %q: %w", cluster.Name, err)
		}
		out = append(out, *cluster)
	}
	return out, nil
}

// setClusterStats recomputes the centroid and the distance statistics of
// the member encodings.
func setClusterStats(cluster *database.Cluster, encodings [][]float64) {
	if len(encodings) == 0 {
		return
	}
	mean := database.MeanVector(encodings)
	cluster.MeanFaceEncoding = mean

	distances := make([]float64, len(encodings))
	var sum float64
	for i, enc := range encodings {
		distances[i] = database.EuclideanDistance(enc, mean)
		sum += distances[i]
	}
	meanDist := sum / float64(len(distances))

	var variance float64
	for _, d := range distances {
		variance += (d - meanDist) * (d - meanDist)
	}
	variance /= float64(len(distances))

	cluster.MeanDistance = meanDist
	cluster.StdDevDistance = math.Sqrt(variance)
}
