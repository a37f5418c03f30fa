package diseases

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sharanperla/Greenleaf-client/internal/core"
)

// Source fetches the disease reference list.
type Source interface {
	ListDiseases(ctx context.Context) ([]core.Disease, error)
}

// Catalog keeps the last fetched disease list and the last fetch error.
type Catalog struct {
	source Source
	log    *zerolog.Logger

	mu       sync.RWMutex
	diseases []core.Disease
	loaded   bool
	err      error
}

// New creates an empty catalog.
func New(source Source, logger *zerolog.Logger) *Catalog {
	if logger == nil {
		disabled := zerolog.Nop()
		logger = &disabled
	}
	return &Catalog{source: source, log: logger}
}

// Refresh fetches the list. On failure the previous list is kept.
func (c *Catalog) Refresh(ctx context.Context) ([]core.Disease, error) {
	list, err := c.source.ListDiseases(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
	if err != nil {
		c.log.Warn().Err(err).Msg("fetch diseases failed")
		return nil, err
	}
	c.diseases = list
	c.loaded = true
	c.log.Debug().Int("count", len(list)).Msg("diseases loaded")
	return slices.Clone(list), nil
}

// List returns the cached diseases and whether a fetch has ever succeeded.
func (c *Catalog) List() ([]core.Disease, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.diseases), c.loaded
}

// Err returns the error of the last Refresh, if it failed.
func (c *Catalog) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}
