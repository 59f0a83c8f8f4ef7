// Package regionset manages named, switchable collections of monitored regions.
package regionset

import (
	"context"
	"errors"
	"time"

	"textmacro-go/domain/region"
)

// DefaultSetName is the set that is always available and becomes active when
// the active set is deleted.
const DefaultSetName = "デフォルト"

// DefaultCap is the default maximum number of region sets.
const DefaultCap = 20

var (
	ErrSetNotFound      = errors.New("region set not found")
	ErrCapacityExceeded = errors.New("region set capacity exceeded")
	ErrInvalidSetName   = errors.New("region set name is required")
	ErrRegionNotFound   = errors.New("region not found")
	ErrDuplicateRegion  = errors.New("region name already used in set")
	ErrPersist          = errors.New("failed to persist region sets")
)

// RegionSet is a named, ordered list of regions.
type RegionSet struct {
	Name      string
	Regions   []region.Region
	CreatedAt time.Time
}

// Clone returns a deep copy of the set.
func (s RegionSet) Clone() RegionSet {
	return RegionSet{
		Name:      s.Name,
		Regions:   region.CloneAll(s.Regions),
		CreatedAt: s.CreatedAt,
	}
}

// Snapshot is the complete persisted state of a Store.
type Snapshot struct {
	Sets      map[string]RegionSet
	Current   string
	LastSaved time.Time
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	c := Snapshot{
		Sets:      make(map[string]RegionSet, len(s.Sets)),
		Current:   s.Current,
		LastSaved: s.LastSaved,
	}
	for name, set := range s.Sets {
		c.Sets[name] = set.Clone()
	}
	return c
}

// Summary describes a set for listings.
type Summary struct {
	Name        string
	RegionCount int
	CreatedAt   time.Time
	Active      bool
}

// Repository defines the interface for region set persistence.
type Repository interface {
	// Load returns the stored snapshot.
	// Returns nil if nothing has been stored yet.
	Load(ctx context.Context) (*Snapshot, error)

	// Save replaces the stored snapshot.
	Save(ctx context.Context, snap *Snapshot) error
}
