// Package layout implements the sheet layout engine: a greedy shelf packer
// that places fixed-size photo rectangles on one or more pages.
//
// The packer is deterministic and intentionally simple. Requests are
// expanded into single photos, stable-sorted by ascending area and placed
// left to right in rows; a row wraps when the next photo would cross the
// right margin and a page wraps when it would cross the bottom margin.
// Layouts are compared for equality, so the order of operations and the
// 0.1mm tolerance are part of the contract.
package layout

import (
	"sort"

	"github.com/menta2k/idphoto/pkg/errors"
	"github.com/menta2k/idphoto/pkg/sizes"
)

// Epsilon is the rounding tolerance applied to both wrap tests, in millimeters.
const Epsilon = 0.1

// PlacedItem is one photo rectangle on a page.
type PlacedItem struct {
	ImageRef  string   `json:"image_ref"`
	WidthMM   float64  `json:"width_mm"`
	HeightMM  float64  `json:"height_mm"`
	XMM       float64  `json:"x_mm"`
	YMM       float64  `json:"y_mm"`
	PageIndex int      `json:"page"`
	SizeLabel sizes.ID `json:"size"`
}

// Page groups the items placed on one sheet.
type Page struct {
	Index    int          `json:"index"`
	WidthMM  float64      `json:"width_mm"`
	HeightMM float64      `json:"height_mm"`
	Items    []PlacedItem `json:"items"`
}

// drawRequest is a single photo waiting to be placed.
type drawRequest struct {
	imageRef string
	spec     sizes.Spec
}

// Layout packs demand on pages of geometry g.
//
// It never fails. Sizes larger than the printable area are a caller
// precondition (see CheckFits); they produce a layout that is wrong but
// complete. Unknown size identifiers are skipped. At least one page is
// always returned.
func Layout(demand DemandList, g Geometry) []Page {
	queue := expand(demand)

	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].spec.Area() < queue[j].spec.Area()
	})

	placed := make([]PlacedItem, 0, len(queue))
	x, y := g.MarginMM, g.MarginMM
	rowHeight := 0.0
	page := 1

	for _, req := range queue {
		w, h := req.spec.WidthMM, req.spec.HeightMM

		if x+w > g.maxX()+Epsilon {
			x = g.MarginMM
			y += rowHeight + g.GapMM
			rowHeight = 0
		}

		if y+h > g.maxY()+Epsilon {
			page++
			x = g.MarginMM
			y = g.MarginMM
			rowHeight = 0
		}

		placed = append(placed, PlacedItem{
			ImageRef:  req.imageRef,
			WidthMM:   w,
			HeightMM:  h,
			XMM:       x,
			YMM:       y,
			PageIndex: page,
			SizeLabel: req.spec.ID,
		})

		rowHeight = max(rowHeight, h)
		x += w + g.GapMM
	}

	return group(placed, page, g)
}

// expand flattens the demand into one request per photo, keeping the
// image-major, size-minor enumeration order.
func expand(demand DemandList) []drawRequest {
	var queue []drawRequest
	for _, it := range demand {
		if it.Quantity <= 0 {
			continue
		}
		spec, ok := sizes.Lookup(it.SizeID)
		if !ok {
			continue
		}
		for range it.Quantity {
			queue = append(queue, drawRequest{imageRef: it.ImageRef, spec: spec})
		}
	}
	return queue
}

func group(placed []PlacedItem, lastPage int, g Geometry) []Page {
	if len(placed) == 0 {
		return []Page{{Index: 1, WidthMM: g.PageWidthMM, HeightMM: g.PageHeightMM}}
	}

	pages := make([]Page, lastPage)
	for i := range pages {
		pages[i] = Page{Index: i + 1, WidthMM: g.PageWidthMM, HeightMM: g.PageHeightMM}
	}
	for _, it := range placed {
		p := &pages[it.PageIndex-1]
		p.Items = append(p.Items, it)
	}
	return pages
}

// CheckFits reports a PRECONDITION error for the first demanded size that
// cannot fit the printable area of g. Layout does not call it.
func CheckFits(demand DemandList, g Geometry) error {
	for _, it := range demand {
		if it.Quantity <= 0 {
			continue
		}
		spec, ok := sizes.Lookup(it.SizeID)
		if !ok {
			return errors.New(errors.ErrCodeInvalidInput, "unknown photo size %q", it.SizeID)
		}
		if !g.Fits(spec) {
			return errors.New(errors.ErrCodePrecondition,
				"size %s (%.0fx%.0fmm) exceeds the printable area of a %.0fx%.0fmm page",
				spec.ID, spec.WidthMM, spec.HeightMM, g.PageWidthMM, g.PageHeightMM)
		}
	}
	return nil
}

// Items returns every placed item across pages in placement order.
func Items(pages []Page) []PlacedItem {
	var out []PlacedItem
	for _, p := range pages {
		out = append(out, p.Items...)
	}
	return out
}
