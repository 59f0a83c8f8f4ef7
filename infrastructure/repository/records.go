// Package repository provides region set persistence and trigger history.
package repository

import (
	"errors"
	"fmt"
	"time"

	"textmacro-go/domain/region"
	"textmacro-go/domain/regionset"
)

// rectRecord is the stored form of a comparison rectangle.
type rectRecord struct {
	X      int `json:"x" bson:"x"`
	Y      int `json:"y" bson:"y"`
	Width  int `json:"width" bson:"width"`
	Height int `json:"height" bson:"height"`
}

// regionRecord is the stored form of a region, shared by the JSON file and
// MongoDB repositories.
type regionRecord struct {
	Name               string         `json:"name" bson:"name"`
	X                  int            `json:"x" bson:"x"`
	Y                  int            `json:"y" bson:"y"`
	Width              int            `json:"width" bson:"width"`
	Height             int            `json:"height" bson:"height"`
	TargetText         string         `json:"target_text" bson:"target_text"`
	Enabled            *bool          `json:"enabled,omitempty" bson:"enabled,omitempty"`
	Actions            []actionRecord `json:"actions" bson:"actions"`
	CompareEnabled     bool           `json:"compare_enabled" bson:"compare_enabled"`
	CompareRegion      *rectRecord    `json:"compare_region,omitempty" bson:"compare_region,omitempty"`
	CompareTriggerOnly bool           `json:"compare_trigger_only" bson:"compare_trigger_only"`
}

// actionRecord is the tagged stored form of an action. Only the fields of
// the tagged kind are written.
type actionRecord struct {
	Type     string   `json:"type" bson:"type"`
	X        *int     `json:"x,omitempty" bson:"x,omitempty"`
	Y        *int     `json:"y,omitempty" bson:"y,omitempty"`
	Button   string   `json:"button,omitempty" bson:"button,omitempty"`
	Key      string   `json:"key,omitempty" bson:"key,omitempty"`
	Keys     []string `json:"keys,omitempty" bson:"keys,omitempty"`
	Text     string   `json:"text,omitempty" bson:"text,omitempty"`
	Duration *float64 `json:"duration,omitempty" bson:"duration,omitempty"`
	Clicks   *int     `json:"clicks,omitempty" bson:"clicks,omitempty"`
}

// Defaults applied to fields missing from older files.
const (
	defaultWaitSeconds  = 1.0
	defaultScrollClicks = 1
)

func intPtr(v int) *int { return &v }

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func actionToRecord(a region.Action) (actionRecord, error) {
	switch v := a.(type) {
	case region.Click:
		return actionRecord{Type: string(region.KindClick), X: intPtr(v.X), Y: intPtr(v.Y), Button: string(v.Button)}, nil
	case region.KeyPress:
		return actionRecord{Type: string(region.KindKey), Key: v.Key}, nil
	case region.Hotkey:
		keys := make([]string, len(v.Keys))
		copy(keys, v.Keys)
		return actionRecord{Type: string(region.KindHotkey), Keys: keys}, nil
	case region.TypeText:
		return actionRecord{Type: string(region.KindType), Text: v.Text}, nil
	case region.Move:
		return actionRecord{Type: string(region.KindMove), X: intPtr(v.X), Y: intPtr(v.Y)}, nil
	case region.Wait:
		seconds := v.Seconds
		return actionRecord{Type: string(region.KindWait), Duration: &seconds}, nil
	case region.Scroll:
		return actionRecord{Type: string(region.KindScroll), Clicks: intPtr(v.Clicks)}, nil
	default:
		return actionRecord{}, fmt.Errorf("%w: %T", region.ErrUnknownActionKind, a)
	}
}

func recordToAction(rec actionRecord) (region.Action, error) {
	kind, err := region.ParseKind(rec.Type)
	if err != nil {
		return nil, err
	}

	var a region.Action
	switch kind {
	case region.KindClick:
		a = region.Click{X: intOr(rec.X, 0), Y: intOr(rec.Y, 0), Button: region.Button(rec.Button)}
	case region.KindKey:
		a = region.KeyPress{Key: rec.Key}
	case region.KindHotkey:
		keys := make([]string, len(rec.Keys))
		copy(keys, rec.Keys)
		a = region.Hotkey{Keys: keys}
	case region.KindType:
		a = region.TypeText{Text: rec.Text}
	case region.KindMove:
		a = region.Move{X: intOr(rec.X, 0), Y: intOr(rec.Y, 0)}
	case region.KindWait:
		seconds := defaultWaitSeconds
		if rec.Duration != nil {
			seconds = *rec.Duration
		}
		a = region.Wait{Seconds: seconds}
	case region.KindScroll:
		a = region.Scroll{Clicks: intOr(rec.Clicks, defaultScrollClicks)}
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func regionToRecord(r region.Region) (regionRecord, error) {
	enabled := r.Enabled
	rec := regionRecord{
		Name:               r.Name,
		X:                  r.Rect.X,
		Y:                  r.Rect.Y,
		Width:              r.Rect.Width,
		Height:             r.Rect.Height,
		TargetText:         r.TargetText,
		Enabled:            &enabled,
		CompareEnabled:     r.CompareEnabled,
		CompareTriggerOnly: r.CompareTriggerOnly,
	}
	if r.CompareEnabled && r.CompareRegion != nil {
		c := r.CompareRegion
		rec.CompareRegion = &rectRecord{X: c.X, Y: c.Y, Width: c.Width, Height: c.Height}
	}
	// A nil action list is written as null and an empty one as [], so both
	// survive a round trip.
	if r.Actions != nil {
		rec.Actions = make([]actionRecord, 0, len(r.Actions))
	}
	for i, a := range r.Actions {
		ar, err := actionToRecord(a)
		if err != nil {
			return regionRecord{}, fmt.Errorf("region %s action %d: %w", r.Name, i, err)
		}
		rec.Actions = append(rec.Actions, ar)
	}
	return rec, nil
}

// recordToRegion converts and validates a stored region. A comparison
// rectangle stored while comparison is disabled is discarded.
func recordToRegion(rec regionRecord) (region.Region, error) {
	r := region.Region{
		Name:               rec.Name,
		Rect:               region.Rect{X: rec.X, Y: rec.Y, Width: rec.Width, Height: rec.Height},
		TargetText:         rec.TargetText,
		Enabled:            rec.Enabled == nil || *rec.Enabled,
		CompareEnabled:     rec.CompareEnabled,
		CompareTriggerOnly: rec.CompareTriggerOnly,
	}
	if rec.CompareEnabled && rec.CompareRegion != nil {
		c := rec.CompareRegion
		r.CompareRegion = &region.Rect{X: c.X, Y: c.Y, Width: c.Width, Height: c.Height}
	}
	if rec.Actions != nil {
		r.Actions = make([]region.Action, 0, len(rec.Actions))
	}
	for i, ar := range rec.Actions {
		a, err := recordToAction(ar)
		if err != nil {
			return region.Region{}, fmt.Errorf("region %s action %d: %w", rec.Name, i, err)
		}
		r.Actions = append(r.Actions, a)
	}
	if err := r.Validate(); err != nil {
		return region.Region{}, err
	}
	return r, nil
}

func regionsToRecords(regions []region.Region) ([]regionRecord, error) {
	out := make([]regionRecord, 0, len(regions))
	for _, r := range regions {
		rec, err := regionToRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func recordsToRegions(recs []regionRecord) ([]region.Region, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	out := make([]region.Region, 0, len(recs))
	for _, rec := range recs {
		r, err := recordToRegion(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// document is the complete region set file.
type document struct {
	RegionSets map[string][]regionRecord `json:"region_sets"`
	SetCreated map[string]string         `json:"set_created,omitempty"`
	CurrentSet string                    `json:"current_set"`
	LastSaved  string                    `json:"last_saved,omitempty"`
}

func snapshotToDocument(snap *regionset.Snapshot) (*document, error) {
	doc := &document{
		RegionSets: make(map[string][]regionRecord, len(snap.Sets)),
		SetCreated: make(map[string]string, len(snap.Sets)),
		CurrentSet: snap.Current,
	}
	if !snap.LastSaved.IsZero() {
		doc.LastSaved = snap.LastSaved.Format(time.RFC3339)
	}
	for name, set := range snap.Sets {
		recs, err := regionsToRecords(set.Regions)
		if err != nil {
			return nil, fmt.Errorf("set %s: %w", name, err)
		}
		doc.RegionSets[name] = recs
		if !set.CreatedAt.IsZero() {
			doc.SetCreated[name] = set.CreatedAt.Format(time.RFC3339)
		}
	}
	return doc, nil
}

// documentToSnapshot converts a decoded document. Sets that fail conversion
// are reported and skipped; the rest are returned.
func documentToSnapshot(doc *document) (*regionset.Snapshot, error) {
	snap := &regionset.Snapshot{
		Sets:    make(map[string]regionset.RegionSet, len(doc.RegionSets)),
		Current: doc.CurrentSet,
	}
	if doc.LastSaved != "" {
		if t, err := parseTime(doc.LastSaved); err == nil {
			snap.LastSaved = t
		}
	}

	var errs []error
	for name, recs := range doc.RegionSets {
		regions, err := recordsToRegions(recs)
		if err != nil {
			errs = append(errs, fmt.Errorf("set %s: %w", name, err))
			continue
		}
		set := regionset.RegionSet{Name: name, Regions: regions}
		if ts, ok := doc.SetCreated[name]; ok {
			if t, err := parseTime(ts); err == nil {
				set.CreatedAt = t
			}
		}
		snap.Sets[name] = set
	}
	return snap, errors.Join(errs...)
}

// parseTime accepts RFC 3339 and the offset-less ISO form older files used.
func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
