// Package poppler opens submitted documents as page-addressable raster
// sources. PDFs are paged via their cross-reference table and rendered one
// page at a time through the poppler pdftoppm binary; image submissions are
// exposed as single-page sources with no rendering step.
package poppler

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/avoronin/docmd/internal/core/domain"
	"github.com/avoronin/docmd/internal/core/ports"
)

type Rasterizer struct {
	binary string
	dpi    int
}

func New(binary string, dpi int) *Rasterizer {
	if binary == "" {
		binary = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 300
	}
	return &Rasterizer{binary: binary, dpi: dpi}
}

func (r *Rasterizer) Open(_ context.Context, path string) (ports.PageSource, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return r.openPDF(path)
	}
	return &imageSource{path: path}, nil
}

func (r *Rasterizer) openPDF(path string) (ports.PageSource, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "open pdf", err)
	}
	pages := reader.NumPage()
	_ = f.Close()

	if pages <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open pdf", fmt.Errorf("document has no pages: %s", filepath.Base(path)))
	}
	return &pdfSource{
		path:   path,
		pages:  pages,
		binary: r.binary,
		dpi:    r.dpi,
	}, nil
}

type pdfSource struct {
	path   string
	pages  int
	binary string
	dpi    int
}

func (s *pdfSource) PageCount() int {
	return s.pages
}

// RenderPage shells out to pdftoppm for a single page. -singlefile keeps
// the output name free of poppler's zero-padded page suffix, so destPath is
// fully deterministic.
func (s *pdfSource) RenderPage(ctx context.Context, page int, destPath string) ([]byte, error) {
	if page < 1 || page > s.pages {
		return nil, domain.WrapError(domain.ErrInvalidInput, "render page", fmt.Errorf("page %d out of range 1..%d", page, s.pages))
	}
	prefix := strings.TrimSuffix(destPath, ".png")

	cmd := exec.CommandContext(ctx, s.binary,
		"-png",
		"-r", strconv.Itoa(s.dpi),
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-singlefile",
		s.path,
		prefix,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "render page",
			fmt.Errorf("%s page %d: %w: %s", s.binary, page, err, strings.TrimSpace(string(out))))
	}

	raw, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "read rendered page", err)
	}
	return raw, nil
}

func (s *pdfSource) Close() error {
	return nil
}

// imageSource treats one submitted image as a one-page document. The bytes
// are copied into the temp area so the per-page read path is uniform with
// rendered PDF pages.
type imageSource struct {
	path string
}

func (s *imageSource) PageCount() int {
	return 1
}

func (s *imageSource) RenderPage(_ context.Context, page int, destPath string) ([]byte, error) {
	if page != 1 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "render page", fmt.Errorf("image source has a single page, got %d", page))
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "read image", err)
	}
	if err := os.WriteFile(destPath, raw, 0o644); err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "copy image to temp", err)
	}
	return raw, nil
}

func (s *imageSource) Close() error {
	return nil
}
