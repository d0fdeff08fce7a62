package ocr

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"cert-verification/internal/config"
	pkgerrors "cert-verification/pkg/errors"
)

// Rasterizer renders the first page of a document to a PNG inside workDir
// and returns the image path.
type Rasterizer interface {
	Rasterize(ctx context.Context, sourcePath, workDir string) (string, error)
}

// PopplerRasterizer shells out to pdftoppm. The identifying fields are
// assumed to sit on page one, so only page one is rendered, at a fixed
// density and bounded pixel dimensions.
type PopplerRasterizer struct {
	binary  string
	density int
	width   int
	height  int
}

func NewPopplerRasterizer(cfg *config.Config) *PopplerRasterizer {
	return &PopplerRasterizer{
		binary:  cfg.OCR.PdftoppmPath,
		density: cfg.OCR.Density,
		width:   cfg.OCR.PageWidth,
		height:  cfg.OCR.PageHeight,
	}
}

func (r *PopplerRasterizer) Rasterize(ctx context.Context, sourcePath, workDir string) (string, error) {
	prefix := filepath.Join(workDir, "page")
	args := []string{
		"-png",
		"-singlefile",
		"-f", "1",
		"-l", "1",
		"-r", fmt.Sprint(r.density),
		"-scale-to-x", fmt.Sprint(r.width),
		"-scale-to-y", fmt.Sprint(r.height),
		sourcePath,
		prefix,
	}

	cmd := exec.CommandContext(ctx, r.binary, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("%w: pdftoppm: %v: %s", pkgerrors.ErrConversion, err, string(output))
	}
	return prefix + ".png", nil
}
