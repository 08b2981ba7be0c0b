package project

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/menta2k/idphoto/pkg/client"
	idperrors "github.com/menta2k/idphoto/pkg/errors"
	"github.com/menta2k/idphoto/pkg/layout"
	"github.com/menta2k/idphoto/pkg/replacement"
	"github.com/menta2k/idphoto/pkg/sizes"
	"github.com/menta2k/idphoto/pkg/tone"
)

func solid(w, h int, v uint8) *tone.PixelBuffer {
	return tone.NewFilled(w, h, color.NRGBA{R: v, G: v, B: v, A: 255})
}

func TestSourcePriority(t *testing.T) {
	p := New()
	id := p.AddImage("a.jpg", solid(4, 4, 10))

	im, _ := p.Image(id)
	if im.SheetSource().At(0, 0).R != 10 || im.GradeSource().At(0, 0).R != 10 {
		t.Fatal("original should be used when nothing else exists")
	}

	if err := p.SetCropped(id, solid(3, 3, 20)); err != nil {
		t.Fatal(err)
	}
	_ = p.Apply(replacement.Outcome{ID: id, Image: solid(3, 3, 30), UsedColor: "#ffffff"})

	im, _ = p.Image(id)
	if im.SheetSource().At(0, 0).R != 30 {
		t.Error("sheet should prefer the processed raster")
	}
	if im.GradeSource().At(0, 0).R != 20 {
		t.Error("grading should use the crop, never the processed raster")
	}
}

func TestSetCroppedResetsReplacement(t *testing.T) {
	p := New()
	id := p.AddImage("a.jpg", solid(4, 4, 10))
	_ = p.Apply(replacement.Outcome{ID: id, Image: solid(4, 4, 30), UsedColor: "#0099ff"})

	if err := p.SetCropped(id, solid(2, 2, 5)); err != nil {
		t.Fatal(err)
	}
	im, _ := p.Image(id)
	if im.Processed != nil || im.Status != StatusPending {
		t.Errorf("crop should clear the result, got status %s", im.Status)
	}
	if err := p.SetCropped("nope", nil); !idperrors.Is(err, idperrors.ErrCodeNotFound) {
		t.Errorf("unknown image should be NOT_FOUND, got %v", err)
	}
}

func TestApplyOutcome(t *testing.T) {
	p := New()
	id := p.AddImage("a.jpg", solid(4, 4, 10))

	_ = p.Apply(replacement.Outcome{ID: id, Image: solid(4, 4, 30), UsedColor: "#0099ff"})
	im, _ := p.Image(id)
	if im.Status != StatusDone || im.UsedColor != "#0099ff" || im.ErrorMessage != "" {
		t.Fatalf("success not recorded: %+v", im)
	}

	_ = p.Apply(replacement.Outcome{ID: id, Err: idperrors.Service(errors.New("quota"), "replacement failed")})
	im, _ = p.Image(id)
	if im.Status != StatusError || im.Processed != nil {
		t.Errorf("failure should clear the processed raster, status %s", im.Status)
	}
	if im.ErrorMessage != "replacement failed: quota" {
		t.Errorf("error message %q", im.ErrorMessage)
	}
	if im.UsedColor != "#0099ff" {
		t.Errorf("failure must keep the previous used color, got %q", im.UsedColor)
	}
}

func TestIsStale(t *testing.T) {
	tests := []struct {
		name      string
		status    Status
		used      string
		requested string
		want      bool
	}{
		{"same color", StatusDone, "#ffffff", "#FFF", false},
		{"different color", StatusDone, "#ffffff", "#0099ff", true},
		{"original vs color", StatusDone, "original", "#ffffff", true},
		{"never replaced", StatusDone, "", "#ffffff", false},
		{"pending", StatusPending, "#ffffff", "#0099ff", false},
		{"failed", StatusError, "#ffffff", "#0099ff", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im := Image{Status: tt.status, UsedColor: tt.used}
			if got := im.IsStale(tt.requested); got != tt.want {
				t.Errorf("IsStale = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRemoveOutfitClearsReferences(t *testing.T) {
	p := New()
	a := p.AddImage("a", solid(2, 2, 1))
	b := p.AddImage("b", solid(2, 2, 2))
	o := p.AddOutfit("suit", solid(2, 2, 3))
	keep := p.AddOutfit("shirt", solid(2, 2, 4))

	if err := p.AssignOutfit(a, o); err != nil {
		t.Fatal(err)
	}
	if err := p.AssignOutfit(b, keep); err != nil {
		t.Fatal(err)
	}
	if err := p.AssignOutfit(a, "missing"); !idperrors.Is(err, idperrors.ErrCodeNotFound) {
		t.Errorf("unknown outfit should be NOT_FOUND, got %v", err)
	}

	if !p.RemoveOutfit(o) {
		t.Fatal("RemoveOutfit returned false")
	}
	ia, _ := p.Image(a)
	ib, _ := p.Image(b)
	if ia.OutfitID != "" || ib.OutfitID != keep {
		t.Errorf("references after delete: a=%q b=%q", ia.OutfitID, ib.OutfitID)
	}
	if len(p.Outfits()) != 1 {
		t.Errorf("outfits left: %d", len(p.Outfits()))
	}
}

func TestRemoveImageMovesSelection(t *testing.T) {
	p := New()
	a := p.AddImage("a", solid(2, 2, 1))
	b := p.AddImage("b", solid(2, 2, 2))
	c := p.AddImage("c", solid(2, 2, 3))

	if p.Selected() != a {
		t.Fatal("first image should be selected")
	}
	_ = p.Select(c)
	p.RemoveImage(c)
	if p.Selected() != a {
		t.Errorf("selection after delete = %q, want first image", p.Selected())
	}
	p.RemoveImage(a)
	p.RemoveImage(b)
	if p.Selected() != "" || p.Len() != 0 {
		t.Error("empty project should have no selection")
	}
}

func TestSheetRefs(t *testing.T) {
	p := New()
	a := p.AddImage("a", solid(2, 2, 1))
	b := p.AddImage("b", solid(2, 2, 2))
	_ = p.Select(b)

	if diff := cmp.Diff([]string{a, b}, p.SheetRefs(layout.ModeMixed)); diff != "" {
		t.Errorf("mixed refs (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{b}, p.SheetRefs(layout.ModeFillPage)); diff != "" {
		t.Errorf("fill-page refs (-want +got):\n%s", diff)
	}

	d := p.Demand(layout.PrintConfig{sizes.ID("3x4"): 2}, layout.ModeFillPage)
	want := layout.DemandList{{ImageRef: b, SizeID: "3x4", Quantity: 2}}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("demand (-want +got):\n%s", diff)
	}

	if refs := New().SheetRefs(layout.ModeFillPage); refs != nil {
		t.Errorf("empty project refs = %v", refs)
	}
}

func TestRegionsAndAdjustments(t *testing.T) {
	p := New()
	id := p.AddImage("a", solid(10, 10, 100))

	rid, err := p.AddRegion(id, 0.5, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.UpdateRegion(id, rid, func(r *tone.RegionalAdjustment) { r.Brightness = 150 }); err != nil {
		t.Fatal(err)
	}
	if err := p.UpdateRegion(id, "missing", func(*tone.RegionalAdjustment) {}); !idperrors.Is(err, idperrors.ErrCodeNotFound) {
		t.Errorf("unknown region should be NOT_FOUND, got %v", err)
	}

	im, _ := p.Image(id)
	r, ok := im.Regions.Get(rid)
	if !ok || r.Brightness != 150 {
		t.Fatalf("region not updated: %+v", r)
	}
	// The returned copy must not alias project state.
	im.Regions.Reset()
	if again, _ := p.Image(id); again.Regions.Len() != 1 {
		t.Error("mutating a copy changed the project")
	}

	_ = p.SetAdjustment(id, tone.Adjustment{Brightness: 50, Contrast: 100, Saturation: 100})
	if err := p.ResetAdjustments(id); err != nil {
		t.Fatal(err)
	}
	im, _ = p.Image(id)
	if !im.Adjustment.IsIdentity() || im.Regions.Len() != 0 {
		t.Error("reset should restore identity and drop regions")
	}
}

func TestImageGraded(t *testing.T) {
	p := New()
	id := p.AddImage("a", tone.NewFilled(4, 4, color.NRGBA{R: 200, G: 100, B: 50, A: 255}))
	_ = p.SetAdjustment(id, tone.Adjustment{Brightness: 50, Contrast: 100, Saturation: 100})

	im, _ := p.Image(id)
	if c := im.Graded().At(1, 1); c.R != 100 || c.G != 50 || c.B != 25 {
		t.Errorf("graded pixel %v, want (100,50,25)", c)
	}

	white := tone.NewFilled(4, 4, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	_ = p.Apply(replacement.Outcome{ID: id, Image: white, UsedColor: "#ffffff"})
	im, _ = p.Image(id)
	if c := im.Graded().At(1, 1); c.R != 255 {
		t.Errorf("processed raster should be used as is, got %v", c)
	}
}

func TestReplaceBatch(t *testing.T) {
	p := New()
	a := p.AddImage("a", solid(8, 8, 1))
	b := p.AddImage("b", solid(8, 8, 2))
	o := p.AddOutfit("suit", solid(4, 4, 3))
	_ = p.AssignOutfit(b, o)

	var withOutfit int
	r := client.ReplacerFunc(func(ctx context.Context, req client.Request) (image.Image, error) {
		if req.Outfit != nil {
			withOutfit++
			return nil, errors.New("outfit rejected")
		}
		return req.Image, nil
	})
	proc := replacement.New(r, replacement.WithDelay(time.Nanosecond))

	res, err := p.Replace(context.Background(), proc, nil, "#3B82F6", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Succeeded != 1 || res.Failed != 1 || withOutfit != 1 {
		t.Fatalf("unexpected batch %+v", res)
	}

	ia, _ := p.Image(a)
	ib, _ := p.Image(b)
	if ia.Status != StatusDone || ia.UsedColor != "#3b82f6" {
		t.Errorf("a: %s %q", ia.Status, ia.UsedColor)
	}
	if ib.Status != StatusError || ib.ErrorMessage == "" {
		t.Errorf("b: %s %q", ib.Status, ib.ErrorMessage)
	}

	if diff := cmp.Diff([]string{a}, p.Stale("#ffffff")); diff != "" {
		t.Errorf("stale (-want +got):\n%s", diff)
	}
	if _, err := p.Replace(context.Background(), proc, []string{"missing"}, "#fff", ""); !idperrors.Is(err, idperrors.ErrCodeNotFound) {
		t.Errorf("unknown id should be NOT_FOUND, got %v", err)
	}
}
