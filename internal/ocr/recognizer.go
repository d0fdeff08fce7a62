package ocr

import (
	"context"
	"fmt"

	"cert-verification/internal/config"
	pkgerrors "cert-verification/pkg/errors"

	"github.com/otiai10/gosseract/v2"
)

// Recognizer extracts plain text from a page image.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// TesseractRecognizer runs the Tesseract engine through gosseract, one
// client per call so concurrent jobs never share engine state.
type TesseractRecognizer struct {
	language string
}

func NewTesseractRecognizer(cfg *config.Config) *TesseractRecognizer {
	return &TesseractRecognizer{language: cfg.OCR.Language}
}

func (r *TesseractRecognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(r.language); err != nil {
		return "", fmt.Errorf("%w: set language: %v", pkgerrors.ErrRecognition, err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("%w: set image: %v", pkgerrors.ErrRecognition, err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("%w: %v", pkgerrors.ErrRecognition, err)
	}
	return text, nil
}
