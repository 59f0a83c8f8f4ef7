package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"textmacro-go/domain/region"
	"textmacro-go/domain/regionset"
)

type memoryRepository struct {
	mu      sync.Mutex
	snap    *regionset.Snapshot
	loadErr error
	saveErr error
	saves   int
}

func (r *memoryRepository) Load(ctx context.Context) (*regionset.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snap == nil {
		return nil, r.loadErr
	}
	c := r.snap.Clone()
	return &c, r.loadErr
}

func (r *memoryRepository) Save(ctx context.Context, snap *regionset.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	c := snap.Clone()
	r.snap = &c
	return nil
}

func TestOpenStore_RestoresAndPersists(t *testing.T) {
	repo := &memoryRepository{snap: &regionset.Snapshot{
		Sets: map[string]regionset.RegionSet{
			"work": {Name: "work", Regions: []region.Region{testRegion("a")}},
		},
		Current: "work",
	}}

	store, err := OpenStore(context.Background(), StoreConfig{Repository: repo, Cap: 5})
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	if got := store.ActiveName(); got != "work" {
		t.Errorf("ActiveName() = %q, want work", got)
	}
	if got := store.Cap(); got != 5 {
		t.Errorf("Cap() = %d, want 5", got)
	}
	if repo.saves != 0 {
		t.Errorf("saves after restore = %d, want 0", repo.saves)
	}

	if err := store.AddRegion(testRegion("b")); err != nil {
		t.Fatalf("AddRegion() error = %v", err)
	}
	if repo.saves != 1 {
		t.Errorf("saves = %d, want 1", repo.saves)
	}
	if got := len(repo.snap.Sets["work"].Regions); got != 2 {
		t.Errorf("persisted regions = %d, want 2", got)
	}
}

func TestOpenStore_EmptyRepository(t *testing.T) {
	store, err := OpenStore(context.Background(), StoreConfig{Repository: &memoryRepository{}})
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	if got := store.ActiveName(); got != regionset.DefaultSetName {
		t.Errorf("ActiveName() = %q, want default set", got)
	}
}

func TestOpenStore_LoadErrors(t *testing.T) {
	boom := errors.New("disk gone")
	if _, err := OpenStore(context.Background(), StoreConfig{Repository: &memoryRepository{loadErr: boom}}); !errors.Is(err, boom) {
		t.Errorf("OpenStore() error = %v, want %v", err, boom)
	}

	// A partial snapshot with an error is used.
	repo := &memoryRepository{
		snap: &regionset.Snapshot{
			Sets:    map[string]regionset.RegionSet{"ok": {Name: "ok"}},
			Current: "ok",
		},
		loadErr: errors.New("set bad: invalid"),
	}
	store, err := OpenStore(context.Background(), StoreConfig{Repository: repo})
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	if _, ok := store.Get("ok"); !ok {
		t.Error("set ok missing")
	}
}

func TestOpenStore_PersistFailure(t *testing.T) {
	repo := &memoryRepository{saveErr: errors.New("read-only")}
	store, err := OpenStore(context.Background(), StoreConfig{Repository: repo})
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	err = store.AddRegion(testRegion("a"))
	if !errors.Is(err, regionset.ErrPersist) {
		t.Errorf("AddRegion() error = %v, want ErrPersist", err)
	}
	if got := len(store.Active()); got != 1 {
		t.Errorf("len(Active()) = %d, want 1 (in-memory change kept)", got)
	}
}
