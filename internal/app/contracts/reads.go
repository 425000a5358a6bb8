package contracts

import (
	"context"

	"github.com/Overland-East-Bay/fleet-console-api/internal/app/query"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/stats"
	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
	"github.com/Overland-East-Bay/fleet-console-api/internal/platform/logger"
)

// List returns one page of contracts and makes it the working set.
func (s *Service) List(ctx context.Context, f domain.Filter, useCache bool) (domain.Page[domain.Contract], error) {
	p, err := s.exec.Execute(ctx, f, query.Options{UseCache: useCache})
	if err != nil {
		logger.Error(ctx, "list contracts failed", "error", err)
		return domain.Page[domain.Contract]{}, err
	}
	s.working.Replace(p.Items)
	return p, nil
}

// Get returns one contract with its customer and vehicle attached.
func (s *Service) Get(ctx context.Context, id domain.ContractID) (domain.Contract, error) {
	return s.load(ctx, id)
}

// Search schedules a debounced, uncached search; its page becomes the working set.
func (s *Service) Search(ctx context.Context, text string, rest domain.Filter) {
	s.searcher.Schedule(ctx, text, rest)
}

// FlushSearch runs a pending search immediately.
func (s *Service) FlushSearch() { s.searcher.Flush() }

// Close drops any pending search.
func (s *Service) Close() { s.searcher.Stop() }

func (s *Service) onSearchResult(ctx context.Context, f domain.Filter, p domain.Page[domain.Contract], err error) {
	if err != nil {
		logger.Error(ctx, "contract search failed", "search", f.Search, "error", err)
		return
	}
	s.working.Replace(p.Items)
	logger.Debug(ctx, "contract search applied", "search", f.Search, "total", p.Total)
}

// Stats summarizes the working set as of the service clock. An empty
// working set that was never loaded is filled with the default first page.
func (s *Service) Stats(ctx context.Context) (stats.ContractStats, error) {
	if s.working.Revision() == 0 {
		if _, err := s.List(ctx, domain.NewFilter(), true); err != nil {
			return stats.ContractStats{}, err
		}
	}
	return s.memo.Get(s.working, s.clock.Now()), nil
}

// Refresh reloads contracts changed outside this service and patches the
// ones present in the working set. Records that are not loaded stay out.
func (s *Service) Refresh(ctx context.Context, ids ...domain.ContractID) {
	for _, id := range ids {
		c, err := s.load(ctx, id)
		if err != nil {
			logger.Warn(ctx, "contract refresh failed", "contract_id", string(id), "error", err)
			continue
		}
		s.working.Patch(c)
	}
}

// Working returns the loaded contracts and their revision.
func (s *Service) Working() ([]domain.Contract, uint64) {
	return s.working.Snapshot()
}
