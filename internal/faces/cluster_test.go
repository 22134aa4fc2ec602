package faces

import (
	"context"
	"log/slog"
	"math"
	"testing"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/database/mock"
)

func seedFace(t *testing.T, store *mock.Store, ownerID, personID int64, inferred bool, encoding []float64) *database.Face {
	t.Helper()
	face := &database.Face{
		PhotoID:               "photo",
		OwnerID:               ownerID,
		Top:                   int(encoding[0] * 1000),
		Right:                 int(encoding[1]*1000) + 100,
		Bottom:                int(encoding[0]*1000) + 50,
		Left:                  int(encoding[1] * 1000),
		Encoding:              encoding,
		PersonID:              personID,
		PersonLabelIsInferred: inferred,
	}
	if err := store.CreateFace(context.Background(), face); err != nil {
		t.Fatal(err)
	}
	return face
}

func TestTryAddClusterUnknownLabelParksFaces(t *testing.T) {
	store := mock.NewStore()
	ctx := context.Background()
	user := &database.User{ID: 1}

	unknownPerson, err := store.GetOrCreatePerson(ctx, 1, database.UnknownPersonName, database.PersonKindUnknown)
	if err != nil {
		t.Fatal(err)
	}
	alice, _ := store.GetOrCreatePerson(ctx, 1, "Alice", database.PersonKindUser)

	noise := seedFace(t, store, 1, unknownPerson.ID, false, []float64{0.9, 0.1})
	named := seedFace(t, store, 1, alice.ID, false, []float64{0.1, 0.9})

	m := NewClusterManager(store, slog.Default())
	added, err := m.TryAddCluster(ctx, user, database.UnknownClusterID, []database.Face{*noise, *named}, 1)
	if err != nil {
		t.Fatalf("TryAddCluster() error = %v", err)
	}
	if len(added) != 0 {
		t.Errorf("unknown label must not create clusters, got %d", len(added))
	}

	unknownCluster, _ := store.GetOrCreateUnknownCluster(ctx, 1)
	got, _ := store.GetFace(ctx, noise.ID)
	if got.ClusterID == nil || *got.ClusterID != unknownCluster.ID {
		t.Error("noise face not parked in unknown cluster")
	}
	if got.PersonID != unknownPerson.ID {
		t.Error("noise face lost its unknown person")
	}

	// A face with a trusted name keeps it even inside the noise bucket.
	got, _ = store.GetFace(ctx, named.ID)
	if got.ClusterID == nil || *got.ClusterID != unknownCluster.ID {
		t.Error("named face not parked in unknown cluster")
	}
	if got.PersonID != alice.ID {
		t.Error("named face lost its person label")
	}
}

func TestTryAddClusterWithoutLabelsCreatesClusterPerson(t *testing.T) {
	store := mock.NewStore()
	ctx := context.Background()
	user := &database.User{ID: 1}

	unknownPerson, _ := store.GetOrCreatePerson(ctx, 1, database.UnknownPersonName, database.PersonKindUnknown)
	f1 := seedFace(t, store, 1, unknownPerson.ID, false, []float64{0.2, 0.4})
	f2 := seedFace(t, store, 1, unknownPerson.ID, false, []float64{0.4, 0.6})

	m := NewClusterManager(store, slog.Default())
	added, err := m.TryAddCluster(ctx, user, 7, []database.Face{*f1, *f2}, 2)
	if err != nil {
		t.Fatalf("TryAddCluster() error = %v", err)
	}
	if len(added) != 1 {
		t.Fatalf("added %d clusters, want 1", len(added))
	}

	cluster := added[0]
	if cluster.Name != "Cluster 7" {
		t.Errorf("cluster name = %q", cluster.Name)
	}
	if cluster.PersonID == nil {
		t.Fatal("cluster not bound to a person")
	}
	person, _ := store.GetPerson(ctx, *cluster.PersonID)
	if person.Name != "Unknown 07" || person.Kind != database.PersonKindCluster {
		t.Errorf("cluster person = %q (%s), want Unknown 07 (CLUSTER)", person.Name, person.Kind)
	}

	wantMean := []float64{0.3, 0.5}
	for i, v := range cluster.MeanFaceEncoding {
		if math.Abs(v-wantMean[i]) > 1e-9 {
			t.Errorf("mean encoding = %v, want %v", cluster.MeanFaceEncoding, wantMean)
			break
		}
	}

	for _, id := range []int64{f1.ID, f2.ID} {
		got, _ := store.GetFace(ctx, id)
		if got.ClusterID == nil || *got.ClusterID != cluster.ID {
			t.Errorf("face %d not attached to the new cluster", id)
		}
		if got.PersonID != person.ID {
			t.Errorf("face %d not assigned to the cluster person", id)
		}
	}
}

func TestTryAddClusterSplitsByLabel(t *testing.T) {
	store := mock.NewStore()
	ctx := context.Background()
	user := &database.User{ID: 1}

	unknownPerson, _ := store.GetOrCreatePerson(ctx, 1, database.UnknownPersonName, database.PersonKindUnknown)
	alice, _ := store.GetOrCreatePerson(ctx, 1, "Alice", database.PersonKindUser)
	bob, _ := store.GetOrCreatePerson(ctx, 1, "Bob", database.PersonKindUser)

	a1 := seedFace(t, store, 1, alice.ID, false, []float64{0.1, 0.1})
	a2 := seedFace(t, store, 1, alice.ID, false, []float64{0.2, 0.2})
	b1 := seedFace(t, store, 1, bob.ID, false, []float64{0.9, 0.9})
	stray := seedFace(t, store, 1, unknownPerson.ID, false, []float64{0.15, 0.12})

	m := NewClusterManager(store, slog.Default())
	added, err := m.TryAddCluster(ctx, user, 3, []database.Face{*a1, *a2, *b1, *stray}, 1)
	if err != nil {
		t.Fatalf("TryAddCluster() error = %v", err)
	}
	if len(added) != 2 {
		t.Fatalf("added %d clusters, want 2", len(added))
	}
	if added[0].Name != "Cluster 3-1" || added[1].Name != "Cluster 3-2" {
		t.Errorf("cluster names = %q, %q", added[0].Name, added[1].Name)
	}

	// The stray face sits next to Alice's centroid, so it must follow her.
	got, _ := store.GetFace(ctx, stray.ID)
	if got.PersonID != alice.ID {
		t.Errorf("stray face person = %d, want Alice (%d)", got.PersonID, alice.ID)
	}
	if !got.PersonLabelIsInferred {
		t.Error("stray face assignment must be marked inferred")
	}

	gotKnown, _ := store.GetFace(ctx, a1.ID)
	if gotKnown.PersonLabelIsInferred {
		t.Error("trusted face must not be marked inferred")
	}

	// Alice's centroid is recomputed with the stray face included.
	var aliceCluster *database.Cluster
	for i := range added {
		if *added[i].PersonID == alice.ID {
			aliceCluster = &added[i]
		}
	}
	if aliceCluster == nil {
		t.Fatal("no cluster bound to Alice")
	}
	wantMean := []float64{(0.1 + 0.2 + 0.15) / 3, (0.1 + 0.2 + 0.12) / 3}
	for i, v := range aliceCluster.MeanFaceEncoding {
		if math.Abs(v-wantMean[i]) > 1e-9 {
			t.Errorf("Alice centroid = %v, want %v", aliceCluster.MeanFaceEncoding, wantMean)
			break
		}
	}
}
