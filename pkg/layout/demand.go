package layout

import (
	"fmt"

	"github.com/menta2k/idphoto/pkg/errors"
	"github.com/menta2k/idphoto/pkg/sizes"
)

// Mode decides which images are replicated across the demand.
type Mode string

const (
	// ModeMixed replicates the print configuration for every image.
	ModeMixed Mode = "mixed"
	// ModeFillPage replicates only one image across the whole demand.
	ModeFillPage Mode = "fill_page"
)

// ParseMode accepts "mixed" or "fill_page".
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeMixed, "":
		return ModeMixed, nil
	case ModeFillPage, "fill", "fill-page":
		return ModeFillPage, nil
	default:
		return "", fmt.Errorf("unknown layout mode %q (use mixed or fill_page)", s)
	}
}

// PrintConfig maps each catalog size to the number of copies printed per image.
type PrintConfig map[sizes.ID]int

// Total returns the sum of all quantities.
func (c PrintConfig) Total() int {
	total := 0
	for _, q := range c {
		if q > 0 {
			total += q
		}
	}
	return total
}

// Validate rejects unknown sizes, negative quantities and an all-zero
// configuration.
func (c PrintConfig) Validate() error {
	for id, q := range c {
		if _, ok := sizes.Lookup(id); !ok {
			return errors.New(errors.ErrCodeInvalidInput, "unknown photo size %q", id)
		}
		if q < 0 {
			return errors.New(errors.ErrCodeInvalidInput, "negative quantity %d for size %s", q, id)
		}
	}
	if c.Total() == 0 {
		return errors.Validation("total print quantity is zero")
	}
	return nil
}

// DemandItem asks for Quantity copies of one image at one size.
type DemandItem struct {
	ImageRef string   `json:"image_ref" yaml:"image_ref"`
	SizeID   sizes.ID `json:"size" yaml:"size"`
	Quantity int      `json:"quantity" yaml:"quantity"`
}

// DemandList is ordered image-major, then size-minor. The order is the
// tie-break key of the packing sort.
type DemandList []DemandItem

// Total returns the number of photos requested.
func (d DemandList) Total() int {
	total := 0
	for _, it := range d {
		if it.Quantity > 0 {
			total += it.Quantity
		}
	}
	return total
}

// BuildDemand replicates cfg across images in catalog size order.
// In ModeFillPage only the first image is used.
func BuildDemand(images []string, cfg PrintConfig, mode Mode) DemandList {
	if mode == ModeFillPage && len(images) > 1 {
		images = images[:1]
	}

	var demand DemandList
	for _, ref := range images {
		for _, id := range sizes.IDs() {
			if q := cfg[id]; q > 0 {
				demand = append(demand, DemandItem{ImageRef: ref, SizeID: id, Quantity: q})
			}
		}
	}
	return demand
}
