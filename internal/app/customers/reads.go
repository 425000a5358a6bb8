package customers

import (
	"context"

	"github.com/Overland-East-Bay/fleet-console-api/internal/app/query"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/stats"
	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
	"github.com/Overland-East-Bay/fleet-console-api/internal/platform/logger"
)

func (s *Service) List(ctx context.Context, f domain.Filter, useCache bool) (domain.Page[domain.Customer], error) {
	p, err := s.exec.Execute(ctx, f, query.Options{UseCache: useCache})
	if err != nil {
		logger.Error(ctx, "list customers failed", "error", err)
		return domain.Page[domain.Customer]{}, err
	}
	s.working.Replace(p.Items)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id domain.CustomerID) (domain.Customer, error) {
	return s.load(ctx, id)
}

func (s *Service) Search(ctx context.Context, text string, rest domain.Filter) {
	s.searcher.Schedule(ctx, text, rest)
}

func (s *Service) FlushSearch() { s.searcher.Flush() }

func (s *Service) Close() { s.searcher.Stop() }

func (s *Service) onSearchResult(ctx context.Context, f domain.Filter, p domain.Page[domain.Customer], err error) {
	if err != nil {
		logger.Error(ctx, "customer search failed", "search", f.Search, "error", err)
		return
	}
	s.working.Replace(p.Items)
}

func (s *Service) Stats(ctx context.Context) (stats.CustomerStats, error) {
	if s.working.Revision() == 0 {
		if _, err := s.List(ctx, domain.NewFilter(), true); err != nil {
			return stats.CustomerStats{}, err
		}
	}
	return s.memo.Get(s.working, s.clock.Now()), nil
}

func (s *Service) Working() ([]domain.Customer, uint64) {
	return s.working.Snapshot()
}
