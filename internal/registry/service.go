package registry

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
)

// sharedQueryTimeout bounds a lookup shared by concurrent callers, which runs detached
// from any single caller's cancellation.
const sharedQueryTimeout = 30 * time.Second

// Service answers the two relationship lookups. Queries are validated before any
// repository call; results are cached when a Cache is configured.
type Service struct {
	repo   Repository
	cache  Cache
	flight singleflight.Group
}

// NewService wires the service. cache may be nil.
func NewService(repo Repository, cache Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// ListOperators returns the operators of q.Company.
func (s *Service) ListOperators(ctx context.Context, q OperatorsQuery) ([]string, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	key := CacheKey("operators", q.Company, pageToken(q.Page))
	return s.lookup(ctx, key, func(ctx context.Context) ([]string, error) {
		return s.repo.OperatorsByCompany(ctx, q.Company, q.Page)
	})
}

// ListCompanies returns the companies of q.Operator, or the distinct companies sharing an
// operator with q.Company.
func (s *Service) ListCompanies(ctx context.Context, q CompaniesQuery) ([]string, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.Operator != "" {
		key := CacheKey("companies_by_operator", q.Operator, pageToken(q.Page))
		return s.lookup(ctx, key, func(ctx context.Context) ([]string, error) {
			return s.repo.CompaniesByOperator(ctx, q.Operator, q.Page)
		})
	}
	key := CacheKey("companies_by_company", q.Company, pageToken(q.Page))
	return s.lookup(ctx, key, func(ctx context.Context) ([]string, error) {
		return s.repo.CompaniesSharingOperators(ctx, q.Company, q.Page)
	})
}

// Invalidate drops cached results, typically after the store was swapped.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}

func (s *Service) lookup(ctx context.Context, key string, query func(context.Context) ([]string, error)) ([]string, error) {
	resultChan := s.flight.DoChan(key, func() (any, error) {
		// Callers joining this flight must not inherit the first caller's cancellation.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedQueryTimeout)
		defer cancel()
		if s.cache == nil {
			return query(ctx)
		}
		var names []string
		err := s.cache.FetchJSON(ctx, key, &names, func(ctx context.Context) (any, error) {
			return query(ctx)
		})
		return names, err
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		names, _ := res.Val.([]string)
		if names == nil {
			names = []string{}
		}
		return names, nil
	}
}

func pageToken(p Page) string {
	return strconv.Itoa(p.Limit) + "/" + strconv.Itoa(p.Offset)
}
