package tone

import (
	"encoding/json"
	"math"

	"github.com/google/uuid"
)

// DefaultRegionRadius is the radius of a new region, as a fraction of image width.
const DefaultRegionRadius = 0.15

// RegionalAdjustment is an Adjustment confined to a feathered circle.
// CenterX and CenterY are normalized to the image width and height; Radius
// is normalized to the image width.
type RegionalAdjustment struct {
	ID         string `json:"id" yaml:"id"`
	Adjustment `yaml:",inline"`
	CenterX    float64 `json:"x" yaml:"x"`
	CenterY    float64 `json:"y" yaml:"y"`
	Radius     float64 `json:"radius" yaml:"radius"`
}

// NewRegion creates an identity region at (x, y) with the default radius
// and a fresh ID.
func NewRegion(x, y float64) RegionalAdjustment {
	return RegionalAdjustment{
		ID:         uuid.NewString(),
		Adjustment: DefaultAdjustment(),
		CenterX:    x,
		CenterY:    y,
		Radius:     DefaultRegionRadius,
	}
}

// RegionList is the creation-ordered set of regions of one image.
// Regions composite in list order; Update keeps a region in its slot.
// The zero value is an empty list.
type RegionList struct {
	items []RegionalAdjustment
}

// NewRegionList returns a list holding regions in the given order.
func NewRegionList(regions ...RegionalAdjustment) *RegionList {
	l := &RegionList{}
	for _, r := range regions {
		l.Add(r)
	}
	return l
}

// Add appends r and returns its ID, assigning one if r has none.
func (l *RegionList) Add(r RegionalAdjustment) string {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	l.items = append(l.items, r)
	return r.ID
}

// Update applies fn to the region with the given ID. The ID itself cannot
// be changed. It reports whether the region exists.
func (l *RegionList) Update(id string, fn func(*RegionalAdjustment)) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	fn(&l.items[i])
	l.items[i].ID = id
	return true
}

// Remove deletes the region with the given ID, keeping the order of the rest.
func (l *RegionList) Remove(id string) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	return true
}

// Reset removes every region.
func (l *RegionList) Reset() {
	l.items = nil
}

// Len returns the number of regions.
func (l *RegionList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// Get returns the region with the given ID.
func (l *RegionList) Get(id string) (RegionalAdjustment, bool) {
	if i := l.index(id); i >= 0 {
		return l.items[i], true
	}
	return RegionalAdjustment{}, false
}

// All returns a copy of the regions in creation order.
func (l *RegionList) All() []RegionalAdjustment {
	if l == nil {
		return nil
	}
	out := make([]RegionalAdjustment, len(l.items))
	copy(out, l.items)
	return out
}

// HitTest returns the earliest region whose center lies closer than half its
// radius to the normalized point (x, y).
func (l *RegionList) HitTest(x, y float64) (RegionalAdjustment, bool) {
	if l == nil {
		return RegionalAdjustment{}, false
	}
	for _, r := range l.items {
		if math.Hypot(r.CenterX-x, r.CenterY-y) < r.Radius/2 {
			return r, true
		}
	}
	return RegionalAdjustment{}, false
}

func (l *RegionList) index(id string) int {
	if l == nil {
		return -1
	}
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

// MarshalJSON encodes the list as an array in creation order.
func (l *RegionList) MarshalJSON() ([]byte, error) {
	items := l.All()
	if items == nil {
		items = []RegionalAdjustment{}
	}
	return json.Marshal(items)
}

// UnmarshalJSON decodes an array of regions, keeping array order.
func (l *RegionList) UnmarshalJSON(data []byte) error {
	var items []RegionalAdjustment
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	l.Reset()
	for _, r := range items {
		l.Add(r)
	}
	return nil
}

// MarshalYAML encodes the list as a sequence in creation order.
func (l *RegionList) MarshalYAML() (any, error) {
	return l.All(), nil
}

// UnmarshalYAML decodes a sequence of regions.
func (l *RegionList) UnmarshalYAML(unmarshal func(any) error) error {
	var items []RegionalAdjustment
	if err := unmarshal(&items); err != nil {
		return err
	}
	l.Reset()
	for _, r := range items {
		l.Add(r)
	}
	return nil
}
