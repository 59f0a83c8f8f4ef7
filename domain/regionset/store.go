package regionset

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"textmacro-go/domain/region"
)

// PersistFunc is called with the full state after every mutation.
type PersistFunc func(snap Snapshot) error

// ChangeFunc is called after a successful mutation, outside the store lock.
type ChangeFunc func(setName, op string)

// Store is the in-memory collection of region sets. The active set is the
// working list the monitor reads each cycle.
type Store struct {
	sets    map[string]*RegionSet
	current string
	cap     int
	persist PersistFunc
	change  ChangeFunc
	now     func() time.Time
	mu      sync.RWMutex
}

// Option configures a Store.
type Option func(*Store)

// WithCap sets the maximum number of sets.
func WithCap(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.cap = n
		}
	}
}

// WithPersist sets the hook invoked after every mutation.
func WithPersist(fn PersistFunc) Option {
	return func(s *Store) { s.persist = fn }
}

// WithChangeHook sets a hook invoked after every successful mutation.
func WithChangeHook(fn ChangeFunc) Option {
	return func(s *Store) { s.change = fn }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a store holding only the empty default set.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sets: make(map[string]*RegionSet),
		cap:  DefaultCap,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sets[DefaultSetName] = &RegionSet{Name: DefaultSetName, CreatedAt: s.now()}
	s.current = DefaultSetName
	return s
}

// Active returns a copy of the active set's regions.
// Returns an empty list if the active set does not exist.
func (s *Store) Active() []region.Region {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.sets[s.current]
	if !ok {
		return []region.Region{}
	}
	out := region.CloneAll(set.Regions)
	if out == nil {
		out = []region.Region{}
	}
	return out
}

// ActiveName returns the name of the active set.
func (s *Store) ActiveName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Get returns a copy of the named set.
func (s *Store) Get(name string) (RegionSet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.sets[name]
	if !ok {
		return RegionSet{}, false
	}
	return set.Clone(), true
}

// Count returns the number of sets.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sets)
}

// Cap returns the maximum number of sets.
func (s *Store) Cap() int {
	return s.cap
}

// List returns every set ordered by creation time, then name.
func (s *Store) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.sets))
	for _, set := range s.sets {
		out = append(out, Summary{
			Name:        set.Name,
			RegionCount: len(set.Regions),
			CreatedAt:   set.CreatedAt,
			Active:      set.Name == s.current,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// SaveAsSet stores an independent copy of regions under name and makes it
// active. Saving to a new name fails with ErrCapacityExceeded once the cap is
// reached; overwriting an existing set is always allowed.
func (s *Store) SaveAsSet(name string, regions []region.Region) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidSetName
	}
	if err := region.ValidateAll(regions); err != nil {
		return err
	}

	s.mu.Lock()
	existing, ok := s.sets[name]
	if !ok && len(s.sets) >= s.cap {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d of %d sets in use", ErrCapacityExceeded, len(s.sets), s.cap)
	}
	created := s.now()
	if ok {
		created = existing.CreatedAt
	}
	s.sets[name] = &RegionSet{Name: name, Regions: region.CloneAll(regions), CreatedAt: created}
	s.current = name
	err := s.persistLocked()
	s.mu.Unlock()

	return s.finish(name, "save", err)
}

// LoadSet activates the named set and returns a copy of its regions.
func (s *Store) LoadSet(name string) ([]region.Region, error) {
	s.mu.Lock()
	set, ok := s.sets[name]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSetNotFound, name)
	}
	s.current = name
	regions := region.CloneAll(set.Regions)
	err := s.persistLocked()
	s.mu.Unlock()

	return regions, s.finish(name, "load", err)
}

// DeleteSet removes the named set. Deleting the active set activates the
// default set, creating it empty if needed.
func (s *Store) DeleteSet(name string) error {
	s.mu.Lock()
	if _, ok := s.sets[name]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSetNotFound, name)
	}
	delete(s.sets, name)
	if s.current == name {
		s.current = DefaultSetName
		if _, ok := s.sets[DefaultSetName]; !ok {
			s.sets[DefaultSetName] = &RegionSet{Name: DefaultSetName, CreatedAt: s.now()}
		}
	}
	err := s.persistLocked()
	s.mu.Unlock()

	return s.finish(name, "delete", err)
}

// AddRegion appends r to the active set.
func (s *Store) AddRegion(r region.Region) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return s.mutateActive("add", func(set *RegionSet) error {
		if indexOf(set.Regions, r.Name) >= 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateRegion, r.Name)
		}
		set.Regions = append(set.Regions, r.Clone())
		return nil
	})
}

// UpdateRegion replaces the region called name in the active set, keeping its position.
func (s *Store) UpdateRegion(name string, r region.Region) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return s.mutateActive("update", func(set *RegionSet) error {
		i := indexOf(set.Regions, name)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrRegionNotFound, name)
		}
		if r.Name != name && indexOf(set.Regions, r.Name) >= 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateRegion, r.Name)
		}
		set.Regions[i] = r.Clone()
		return nil
	})
}

// RemoveRegion deletes the region called name from the active set.
func (s *Store) RemoveRegion(name string) error {
	return s.mutateActive("remove", func(set *RegionSet) error {
		i := indexOf(set.Regions, name)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrRegionNotFound, name)
		}
		set.Regions = append(set.Regions[:i], set.Regions[i+1:]...)
		return nil
	})
}

// SetRegionEnabled toggles evaluation of a region in the active set.
func (s *Store) SetRegionEnabled(name string, enabled bool) error {
	return s.mutateActive("enable", func(set *RegionSet) error {
		i := indexOf(set.Regions, name)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrRegionNotFound, name)
		}
		set.Regions[i].Enabled = enabled
		return nil
	})
}

// ClearActive removes every region from the active set.
func (s *Store) ClearActive() error {
	return s.mutateActive("clear", func(set *RegionSet) error {
		set.Regions = nil
		return nil
	})
}

// Snapshot returns a deep copy of the complete state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Restore replaces the store content with snap without persisting. Sets that
// fail validation are dropped, and sets beyond the cap are dropped newest
// first. The returned error lists everything that was dropped; the valid
// remainder is applied either way.
func (s *Store) Restore(snap Snapshot) error {
	var errs []error

	sets := make([]*RegionSet, 0, len(snap.Sets))
	for name, set := range snap.Sets {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, ErrInvalidSetName)
			continue
		}
		if err := region.ValidateAll(set.Regions); err != nil {
			errs = append(errs, fmt.Errorf("set %s dropped: %w", name, err))
			continue
		}
		c := set.Clone()
		c.Name = name
		sets = append(sets, &c)
	}
	sort.Slice(sets, func(i, j int) bool {
		if !sets[i].CreatedAt.Equal(sets[j].CreatedAt) {
			return sets[i].CreatedAt.Before(sets[j].CreatedAt)
		}
		return sets[i].Name < sets[j].Name
	})
	if len(sets) > s.cap {
		for _, dropped := range sets[s.cap:] {
			errs = append(errs, fmt.Errorf("set %s dropped: %w", dropped.Name, ErrCapacityExceeded))
		}
		sets = sets[:s.cap]
	}

	s.mu.Lock()
	s.sets = make(map[string]*RegionSet, len(sets)+1)
	for _, set := range sets {
		s.sets[set.Name] = set
	}
	s.current = snap.Current
	if s.current == "" {
		s.current = DefaultSetName
	}
	if _, ok := s.sets[DefaultSetName]; !ok && len(s.sets) < s.cap {
		s.sets[DefaultSetName] = &RegionSet{Name: DefaultSetName, CreatedAt: s.now()}
	}
	s.mu.Unlock()

	if s.change != nil {
		s.change(snap.Current, "restore")
	}
	return errors.Join(errs...)
}

// Import merges the sets of snap into the store, overwriting sets with the
// same name, and persists once.
func (s *Store) Import(snap Snapshot) (int, error) {
	s.mu.Lock()
	imported := 0
	var errs []error
	names := make([]string, 0, len(snap.Sets))
	for name := range snap.Sets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		set := snap.Sets[name]
		if strings.TrimSpace(name) == "" {
			errs = append(errs, ErrInvalidSetName)
			continue
		}
		if err := region.ValidateAll(set.Regions); err != nil {
			errs = append(errs, fmt.Errorf("set %s skipped: %w", name, err))
			continue
		}
		if _, ok := s.sets[name]; !ok && len(s.sets) >= s.cap {
			errs = append(errs, fmt.Errorf("set %s skipped: %w", name, ErrCapacityExceeded))
			continue
		}
		c := set.Clone()
		c.Name = name
		if c.CreatedAt.IsZero() {
			c.CreatedAt = s.now()
		}
		s.sets[name] = &c
		imported++
	}
	var err error
	if imported > 0 {
		err = s.persistLocked()
	}
	s.mu.Unlock()

	if err := s.finish(s.ActiveName(), "import", err); err != nil {
		errs = append(errs, err)
	}
	return imported, errors.Join(errs...)
}

func (s *Store) mutateActive(op string, fn func(set *RegionSet) error) error {
	s.mu.Lock()
	set, ok := s.sets[s.current]
	if !ok {
		if len(s.sets) >= s.cap {
			s.mu.Unlock()
			return fmt.Errorf("%w: cannot create active set %s", ErrCapacityExceeded, s.current)
		}
		set = &RegionSet{Name: s.current, CreatedAt: s.now()}
	}

	// Work on a copy so a failed edit leaves the set untouched.
	working := set.Clone()
	if err := fn(&working); err != nil {
		s.mu.Unlock()
		return err
	}
	s.sets[s.current] = &working
	name := s.current
	err := s.persistLocked()
	s.mu.Unlock()

	return s.finish(name, op, err)
}

func (s *Store) persistLocked() error {
	if s.persist == nil {
		return nil
	}
	if err := s.persist(s.snapshotLocked()); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

func (s *Store) finish(setName, op string, err error) error {
	if s.change != nil {
		s.change(setName, op)
	}
	return err
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Sets:      make(map[string]RegionSet, len(s.sets)),
		Current:   s.current,
		LastSaved: s.now(),
	}
	for name, set := range s.sets {
		snap.Sets[name] = set.Clone()
	}
	return snap
}

func indexOf(regions []region.Region, name string) int {
	for i, r := range regions {
		if r.Name == name {
			return i
		}
	}
	return -1
}
