package sweep

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// RunVariants runs one sweep per variant concurrently under root.
//
// config.Systems assigns each dataset to one variant, so the workers write
// to disjoint namespaces and share nothing but directory creation. Every variant is checked before any
// worker starts. A configuration error from one worker cancels the others.
func (d *Driver) RunVariants(ctx context.Context, root string, variants []string, spec Spec) (map[string]*Summary, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(variants))
	var unique []string
	for _, v := range variants {
		if _, err := d.systems.Datasets(v); err != nil {
			return nil, err
		}
		if !seen[v] {
			seen[v] = true
			unique = append(unique, v)
		}
	}

	var mu sync.Mutex
	summaries := make(map[string]*Summary, len(unique))

	g, gctx := errgroup.WithContext(ctx)
	for _, v := range unique {
		g.Go(func() error {
			sum, err := d.Run(gctx, Selector{Variant: v, Root: root}, spec)
			if sum != nil {
				mu.Lock()
				summaries[v] = sum
				mu.Unlock()
			}
			return err
		})
	}
	err := g.Wait()
	return summaries, err
}
