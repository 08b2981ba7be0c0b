package project

import (
	"github.com/menta2k/idphoto/pkg/replacement"
	"github.com/menta2k/idphoto/pkg/tone"
)

// Status is the replacement state of an image.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Image is one photo in a project.
type Image struct {
	ID   string
	Name string

	Original  *tone.PixelBuffer
	Cropped   *tone.PixelBuffer
	Processed *tone.PixelBuffer

	Status       Status
	ErrorMessage string
	// UsedColor is the background color of the last successful replacement.
	UsedColor string
	OutfitID  string

	Adjustment tone.Adjustment
	Regions    *tone.RegionList
}

// GradeSource is the raster graded and sent for replacement: the crop if
// there is one, else the original.
func (im *Image) GradeSource() *tone.PixelBuffer {
	if im.Cropped != nil {
		return im.Cropped
	}
	return im.Original
}

// SheetSource is the raster placed on sheets: processed, then cropped, then
// original.
func (im *Image) SheetSource() *tone.PixelBuffer {
	if im.Processed != nil {
		return im.Processed
	}
	return im.GradeSource()
}

// Graded returns the raster ready for printing. A processed raster was
// already graded before replacement and is returned as is.
func (im *Image) Graded() *tone.PixelBuffer {
	if im.Processed != nil {
		return im.Processed
	}
	src := im.GradeSource()
	if src == nil {
		return nil
	}
	return tone.GradeWithRegions(src, im.Adjustment, im.Regions.All())
}

// IsStale reports whether a finished replacement used a different
// background than requested.
func (im *Image) IsStale(requested string) bool {
	return im.Status == StatusDone && im.UsedColor != "" && !replacement.SameColor(im.UsedColor, requested)
}

func (im *Image) clone() Image {
	c := *im
	c.Regions = tone.NewRegionList(im.Regions.All()...)
	return c
}

// Outfit is a garment reference raster.
type Outfit struct {
	ID    string
	Name  string
	Image *tone.PixelBuffer
}
