// Package project holds the state of an ID photo session: the images, their
// adjustments and replacement status, and outfit references.
//
// All operations take IDs and are safe for concurrent use. Accessors return
// copies; rasters are shared and treated as immutable.
package project

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/menta2k/idphoto/pkg/errors"
	"github.com/menta2k/idphoto/pkg/layout"
	"github.com/menta2k/idphoto/pkg/replacement"
	"github.com/menta2k/idphoto/pkg/tone"
)

// Project is an ordered set of images and outfits.
type Project struct {
	mu       sync.RWMutex
	images   []*Image
	outfits  []*Outfit
	selected string
}

// New returns an empty project.
func New() *Project {
	return &Project{}
}

// AddImage adds a photo and returns its ID. The first image added becomes
// the selection.
func (p *Project) AddImage(name string, original *tone.PixelBuffer) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	im := &Image{
		ID:         uuid.NewString(),
		Name:       name,
		Original:   original,
		Status:     StatusPending,
		Adjustment: tone.DefaultAdjustment(),
		Regions:    tone.NewRegionList(),
	}
	p.images = append(p.images, im)
	if p.selected == "" {
		p.selected = im.ID
	}
	return im.ID
}

// RemoveImage deletes an image. If it was selected, the first remaining
// image is selected.
func (p *Project) RemoveImage(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.index(id)
	if i < 0 {
		return false
	}
	p.images = append(p.images[:i], p.images[i+1:]...)
	if p.selected == id {
		p.selected = ""
		if len(p.images) > 0 {
			p.selected = p.images[0].ID
		}
	}
	return true
}

// Image returns a copy of the image with id.
func (p *Project) Image(id string) (Image, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if i := p.index(id); i >= 0 {
		return p.images[i].clone(), true
	}
	return Image{}, false
}

// Images returns copies of all images in insertion order.
func (p *Project) Images() []Image {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Image, len(p.images))
	for i, im := range p.images {
		out[i] = im.clone()
	}
	return out
}

// IDs returns image IDs in insertion order.
func (p *Project) IDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, len(p.images))
	for i, im := range p.images {
		ids[i] = im.ID
	}
	return ids
}

// Len returns the number of images.
func (p *Project) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.images)
}

// Select makes id the selected image.
func (p *Project) Select(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.index(id) < 0 {
		return notFound(id)
	}
	p.selected = id
	return nil
}

// Selected returns the selected image ID, or "" for an empty project.
func (p *Project) Selected() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.selected
}

// SetCropped stores a crop. The previous replacement result is discarded
// and the image goes back to pending.
func (p *Project) SetCropped(id string, cropped *tone.PixelBuffer) error {
	return p.update(id, func(im *Image) error {
		im.Cropped = cropped
		im.Processed = nil
		im.Status = StatusPending
		im.ErrorMessage = ""
		return nil
	})
}

// SetAdjustment replaces the global adjustment of an image.
func (p *Project) SetAdjustment(id string, adj tone.Adjustment) error {
	return p.update(id, func(im *Image) error {
		im.Adjustment = adj
		return nil
	})
}

// ResetAdjustments restores the identity adjustment and removes all regions.
func (p *Project) ResetAdjustments(id string) error {
	return p.update(id, func(im *Image) error {
		im.Adjustment = tone.DefaultAdjustment()
		im.Regions.Reset()
		return nil
	})
}

// AddRegion places a new region at normalized (x, y) and returns its ID.
func (p *Project) AddRegion(id string, x, y float64) (string, error) {
	var rid string
	err := p.update(id, func(im *Image) error {
		rid = im.Regions.Add(tone.NewRegion(x, y))
		return nil
	})
	return rid, err
}

// UpdateRegion edits one region of an image in place.
func (p *Project) UpdateRegion(id, regionID string, fn func(*tone.RegionalAdjustment)) error {
	return p.update(id, func(im *Image) error {
		if !im.Regions.Update(regionID, fn) {
			return errors.New(errors.ErrCodeNotFound, "region %q not found", regionID)
		}
		return nil
	})
}

// RemoveRegion deletes one region of an image.
func (p *Project) RemoveRegion(id, regionID string) error {
	return p.update(id, func(im *Image) error {
		if !im.Regions.Remove(regionID) {
			return errors.New(errors.ErrCodeNotFound, "region %q not found", regionID)
		}
		return nil
	})
}

// SetRegions replaces all regions of an image, keeping their order.
func (p *Project) SetRegions(id string, regions []tone.RegionalAdjustment) error {
	return p.update(id, func(im *Image) error {
		im.Regions = tone.NewRegionList(regions...)
		return nil
	})
}

// AddOutfit adds a garment reference and returns its ID.
func (p *Project) AddOutfit(name string, img *tone.PixelBuffer) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	o := &Outfit{ID: uuid.NewString(), Name: name, Image: img}
	p.outfits = append(p.outfits, o)
	return o.ID
}

// Outfit returns the outfit with id.
func (p *Project) Outfit(id string) (Outfit, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, o := range p.outfits {
		if o.ID == id {
			return *o, true
		}
	}
	return Outfit{}, false
}

// Outfits returns all outfits in insertion order.
func (p *Project) Outfits() []Outfit {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Outfit, len(p.outfits))
	for i, o := range p.outfits {
		out[i] = *o
	}
	return out
}

// RemoveOutfit deletes an outfit and clears every reference to it.
func (p *Project) RemoveOutfit(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, o := range p.outfits {
		if o.ID != id {
			continue
		}
		p.outfits = append(p.outfits[:i], p.outfits[i+1:]...)
		for _, im := range p.images {
			if im.OutfitID == id {
				im.OutfitID = ""
			}
		}
		return true
	}
	return false
}

// AssignOutfit sets the outfit of an image. An empty outfitID clears it.
func (p *Project) AssignOutfit(id, outfitID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.index(id)
	if i < 0 {
		return notFound(id)
	}
	if outfitID != "" && p.outfit(outfitID) == nil {
		return errors.New(errors.ErrCodeNotFound, "outfit %q not found", outfitID)
	}
	p.images[i].OutfitID = outfitID
	return nil
}

// Jobs builds replacement jobs for ids, or for every image when ids is
// empty, marking them as processing.
func (p *Project) Jobs(ids []string, color, prompt string) ([]replacement.Job, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	targets := p.images
	if len(ids) > 0 {
		targets = make([]*Image, 0, len(ids))
		for _, id := range ids {
			i := p.index(id)
			if i < 0 {
				return nil, notFound(id)
			}
			targets = append(targets, p.images[i])
		}
	}

	jobs := make([]replacement.Job, 0, len(targets))
	for _, im := range targets {
		j := replacement.Job{
			ID:         im.ID,
			Source:     im.GradeSource(),
			Adjustment: im.Adjustment,
			Regions:    im.Regions.All(),
			Color:      color,
			Prompt:     prompt,
		}
		if o := p.outfit(im.OutfitID); o != nil && o.Image != nil {
			j.Outfit = o.Image.ToImage()
		}
		im.Status = StatusProcessing
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// Apply records a replacement outcome. On success the processed raster and
// used color are stored. On failure the processed raster is cleared, the
// error message is kept and the previous used color stays.
func (p *Project) Apply(o replacement.Outcome) error {
	return p.update(o.ID, func(im *Image) error {
		if o.Err != nil {
			im.Processed = nil
			im.Status = StatusError
			im.ErrorMessage = errors.UserMessage(o.Err)
			return nil
		}
		im.Processed = o.Image
		im.Status = StatusDone
		im.ErrorMessage = ""
		im.UsedColor = o.UsedColor
		return nil
	})
}

// Replace runs a replacement batch over ids (all images when empty) and
// applies every outcome as it arrives.
func (p *Project) Replace(ctx context.Context, proc *replacement.Processor, ids []string, color, prompt string) (replacement.BatchResult, error) {
	jobs, err := p.Jobs(ids, color, prompt)
	if err != nil {
		return replacement.BatchResult{}, err
	}
	res := proc.Batch(ctx, jobs, func(o replacement.Outcome) {
		_ = p.Apply(o)
	})
	return res, nil
}

// Stale returns the IDs of finished images whose background differs from
// color.
func (p *Project) Stale(color string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var ids []string
	for _, im := range p.images {
		if im.IsStale(color) {
			ids = append(ids, im.ID)
		}
	}
	return ids
}

// SheetRefs returns the image IDs that go on a sheet. Fill-page uses only
// the selected image.
func (p *Project) SheetRefs(mode layout.Mode) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if mode == layout.ModeFillPage {
		i := p.index(p.selected)
		if i < 0 || p.images[i].SheetSource() == nil {
			return nil
		}
		return []string{p.selected}
	}
	ids := make([]string, 0, len(p.images))
	for _, im := range p.images {
		if im.SheetSource() != nil {
			ids = append(ids, im.ID)
		}
	}
	return ids
}

// Demand builds the layout demand for mode from cfg.
func (p *Project) Demand(cfg layout.PrintConfig, mode layout.Mode) layout.DemandList {
	return layout.BuildDemand(p.SheetRefs(mode), cfg, mode)
}

func (p *Project) update(id string, fn func(*Image) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.index(id)
	if i < 0 {
		return notFound(id)
	}
	return fn(p.images[i])
}

func (p *Project) index(id string) int {
	for i, im := range p.images {
		if im.ID == id {
			return i
		}
	}
	return -1
}

func (p *Project) outfit(id string) *Outfit {
	if id == "" {
		return nil
	}
	for _, o := range p.outfits {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeNotFound, "image %q not found", id)
}
