package providers

import (
	"github.com/samber/do/v2"

	"github.com/cinewatch/cinewatch/internal/catalog"
	"github.com/cinewatch/cinewatch/internal/config"
	"github.com/cinewatch/cinewatch/internal/logger"
)

// CatalogHandle wraps the TMDB client with shutdown capability.
type CatalogHandle struct {
	*catalog.Client
}

// Shutdown implements do.Shutdownable.
func (h *CatalogHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideCatalog provides the TMDB catalog client.
func ProvideCatalog(i do.Injector) (*CatalogHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := catalog.New(catalog.Options{
		APIKey:         cfg.Catalog.APIKey,
		BaseURL:        cfg.Catalog.BaseURL,
		ImageBaseURL:   cfg.Catalog.ImageBaseURL,
		PosterSize:     cfg.Catalog.PosterSize,
		ListPosterSize: cfg.Catalog.ListPosterSize,
		Timeout:        cfg.Catalog.Timeout,
		RPS:            cfg.Catalog.RPS,
		Burst:          cfg.Catalog.Burst,
		MaxRetries:     cfg.Catalog.MaxRetries,
	}, log.WithComponent("catalog").Logger)

	log.Info("Catalog client ready",
		"base_url", cfg.Catalog.BaseURL,
		"rps", cfg.Catalog.RPS,
		"max_retries", cfg.Catalog.MaxRetries,
	)

	return &CatalogHandle{Client: client}, nil
}
