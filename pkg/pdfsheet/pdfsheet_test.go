package pdfsheet

import (
	"bytes"
	"context"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/idphoto/pkg/errors"
	"github.com/menta2k/idphoto/pkg/layout"
	"github.com/menta2k/idphoto/pkg/tone"
)

func testPages() []layout.Page {
	demand := layout.DemandList{{ImageRef: "a", SizeID: "10x15", Quantity: 2}}
	return layout.Layout(demand, layout.PortraitA4())
}

func source(id string) (*tone.PixelBuffer, bool) {
	if id != "a" {
		return nil, false
	}
	return tone.NewFilled(30, 40, color.NRGBA{R: 200, G: 30, B: 30, A: 255}), true
}

func lowRes() Options {
	opts := DefaultOptions()
	opts.PxPerMM = 1
	return opts
}

func TestWrite(t *testing.T) {
	pages := testPages()
	if len(pages) != 2 {
		t.Fatalf("expected 2 layout pages, got %d", len(pages))
	}

	var buf bytes.Buffer
	n, err := Write(context.Background(), &buf, pages, source, nil, lowRes())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 2 {
		t.Errorf("wrote %d pages, want 2", n)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Error("output is not a PDF")
	}
	if !bytes.Contains(buf.Bytes(), []byte("%%EOF")) {
		t.Error("PDF trailer missing")
	}
}

func TestWriteErrors(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Write(context.Background(), &buf, nil, source, nil, lowRes()); !errors.Is(err, errors.ErrCodeValidation) {
		t.Errorf("no pages should be VALIDATION, got %v", err)
	}

	missing := func(string) (*tone.PixelBuffer, bool) { return nil, false }
	if _, err := Write(context.Background(), &buf, testPages(), missing, nil, lowRes()); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("missing raster should be NOT_FOUND, got %v", err)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheet.pdf")
	if _, err := WriteFile(context.Background(), path, testPages(), source, nil, lowRes()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Fatalf("pdf not written: %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.pdf")
	missing := func(string) (*tone.PixelBuffer, bool) { return nil, false }
	if _, err := WriteFile(context.Background(), bad, testPages(), missing, nil, lowRes()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(bad); !os.IsNotExist(err) {
		t.Error("failed export should not leave a file behind")
	}
}

func TestMediaBox(t *testing.T) {
	box := mediaBox(layout.Page{WidthMM: 25.4, HeightMM: 50.8})
	if math.Abs(box.URx-72) > 1e-9 || math.Abs(box.URy-144) > 1e-9 {
		t.Errorf("media box %v, want 72x144 pt", box)
	}
}
