package storage

import (
	"fmt"

	"cert-verification/internal/config"
)

// New selects the configured backend.
func New(cfg *config.Config) (Storage, error) {
	switch cfg.Storage.Backend {
	case "s3":
		return NewS3Storage(cfg)
	case "local", "":
		return NewLocalStorage(cfg.Storage.Local.Root)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}
