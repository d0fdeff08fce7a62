package ocr

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cert-verification/internal/config"
	pkgerrors "cert-verification/pkg/errors"
)

// PageText is the recognized first page of one document. Cleanup removes
// the working directory and the rasterized image; the caller must invoke
// it on every path once the text has been consumed.
type PageText struct {
	Text      string
	ImagePath string
	workDir   string
}

func (p *PageText) Cleanup() error {
	if p.workDir == "" {
		return nil
	}
	return os.RemoveAll(p.workDir)
}

// Adapter wraps the external rasterization and recognition collaborators
// behind a single call: document path in, recognized text out.
type Adapter struct {
	rasterizer Rasterizer
	recognizer Recognizer
	scratchDir string
}

func NewAdapter(cfg *config.Config, rasterizer Rasterizer, recognizer Recognizer) *Adapter {
	return &Adapter{
		rasterizer: rasterizer,
		recognizer: recognizer,
		scratchDir: cfg.OCR.ScratchDir,
	}
}

// Process rasterizes the first page of the document at sourcePath and runs
// text recognition on it. Each invocation gets its own uniquely named
// working directory; concurrent workers never share paths. On error the
// working directory is removed before returning.
func (a *Adapter) Process(ctx context.Context, sourcePath, contentType string) (*PageText, error) {
	workDir, err := a.newWorkDir()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrConversion, err)
	}

	imagePath, err := a.pageImage(ctx, sourcePath, contentType, workDir)
	if err != nil {
		os.RemoveAll(workDir)
		return nil, err
	}

	text, err := a.recognizer.Recognize(ctx, imagePath)
	if err != nil {
		os.RemoveAll(workDir)
		return nil, err
	}

	return &PageText{
		Text:      text,
		ImagePath: imagePath,
		workDir:   workDir,
	}, nil
}

// pageImage rasterizes PDFs; PNG uploads are already page images and are
// copied into the working directory unchanged.
func (a *Adapter) pageImage(ctx context.Context, sourcePath, contentType, workDir string) (string, error) {
	if isPNG(sourcePath, contentType) {
		dst := filepath.Join(workDir, "page.png")
		if err := copyFile(sourcePath, dst); err != nil {
			return "", fmt.Errorf("%w: %v", pkgerrors.ErrConversion, err)
		}
		return dst, nil
	}
	return a.rasterizer.Rasterize(ctx, sourcePath, workDir)
}

// newWorkDir combines a timestamp with a random suffix. Uniqueness is a
// correctness requirement under concurrent workers, not cosmetics.
func (a *Adapter) newWorkDir() (string, error) {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}

	dir := filepath.Join(a.scratchDir,
		fmt.Sprintf("job_%d_%s", time.Now().UnixNano(), hex.EncodeToString(suffix)))
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func isPNG(sourcePath, contentType string) bool {
	if strings.EqualFold(contentType, "image/png") {
		return true
	}
	return strings.EqualFold(filepath.Ext(sourcePath), ".png")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
