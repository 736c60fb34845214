// Package facets computes the distinct filter values of a dataset.
package facets

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Facets holds the distinct values a caller can filter on. Countries and
// customers come from the stored sales rows; the joined dimensions come
// from the resolved table, so dropped rows do not contribute values.
type Facets struct {
	Countries  []string `json:"countries"`
	Customers  []string `json:"customers"`
	Categories []string `json:"categories"`
	PeerGroups []string `json:"peerGroups"`
	Areas      []string `json:"areas,omitempty"`
}

// Service computes and caches dataset facets.
type Service struct {
	repo     domain.Repository
	cache    domain.Cache
	cacheTTL time.Duration
}

// NewService creates a new facets service.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		cacheTTL: 10 * time.Minute,
	}
}

// Get returns the facets of a dataset. The resolved table supplies the
// joined dimensions; pass nil to compute from stored inputs only.
func (s *Service) Get(ctx context.Context, tenantID, datasetID string, table *domain.CalcTable) (*Facets, error) {
	if tenantID == "" || datasetID == "" {
		return nil, fmt.Errorf("tenantID and datasetID are required")
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, tenantID, s.cacheKey(datasetID)); err == nil && cached != nil {
			var f Facets
			if err := json.Unmarshal(cached, &f); err == nil {
				return &f, nil
			}
		}
	}

	countries, err := s.repo.DistinctCountries(ctx, tenantID, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list countries: %w", err)
	}
	customers, err := s.repo.DistinctCustomers(ctx, tenantID, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	f := &Facets{
		Countries: countries,
		Customers: customers,
	}

	if table != nil {
		categories := make(map[string]struct{})
		peerGroups := make(map[string]struct{})
		areas := make(map[string]struct{})
		for _, row := range table.Rows {
			if row.Category != "" {
				categories[row.Category] = struct{}{}
			}
			if row.PeerGroup != "" {
				peerGroups[row.PeerGroup] = struct{}{}
			}
			if row.Area != "" {
				areas[row.Area] = struct{}{}
			}
		}
		f.Categories = sortedKeys(categories)
		f.PeerGroups = sortedKeys(peerGroups)
		f.Areas = sortedKeys(areas)
	}

	if s.cache != nil {
		if data, err := json.Marshal(f); err == nil {
			_ = s.cache.Set(ctx, tenantID, s.cacheKey(datasetID), data, s.cacheTTL)
		}
	}

	return f, nil
}

// Invalidate drops the cached facets of a dataset. Called after a reload
// changes the comparison universe.
func (s *Service) Invalidate(ctx context.Context, tenantID, datasetID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, tenantID, s.cacheKey(datasetID))
}

func (s *Service) cacheKey(datasetID string) string {
	return "facets:" + datasetID
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
