// Package customers coordinates customer reads and mutations.
package customers

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/fleet-console-api/internal/app/apperr"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/cache"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/query"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/search"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/stats"
	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
	"github.com/Overland-East-Bay/fleet-console-api/internal/platform/logger"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/contractrepo"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/customerrepo"
)

const (
	codeNotFound           = "CUSTOMER_NOT_FOUND"
	codeIDConflict         = "CUSTOMER_ID_CONFLICT"
	codeHasActiveContracts = "CUSTOMER_HAS_ACTIVE_CONTRACTS"
	codeHasContracts       = "CUSTOMER_HAS_CONTRACTS"
)

type Service struct {
	customers customerrepo.Repository
	contracts contractrepo.Repository
	cache     *cache.Store
	clock     clock.Clock

	exec     *query.Executor[domain.Customer]
	working  *query.WorkingSet[domain.Customer]
	memo     *stats.Memo[domain.Customer, stats.CustomerStats]
	searcher *search.Debouncer[domain.Customer]

	newCustomerID func() domain.CustomerID
}

type Option func(*serviceOptions)

type serviceOptions struct {
	searchOpts []search.Option[domain.Customer]
}

// WithSearchDelay sets the debounce delay of Search.
func WithSearchDelay(d time.Duration) Option {
	return func(o *serviceOptions) {
		o.searchOpts = append(o.searchOpts, search.WithDelay[domain.Customer](d))
	}
}

func NewService(
	customersRepo customerrepo.Repository,
	contractsRepo contractrepo.Repository,
	c *cache.Store,
	clk clock.Clock,
	opts ...Option,
) *Service {
	var o serviceOptions
	for _, opt := range opts {
		opt(&o)
	}

	s := &Service{
		customers: customersRepo,
		contracts: contractsRepo,
		cache:     c,
		clock:     clk,
		working:   query.NewWorkingSet(func(c domain.Customer) string { return string(c.ID) }),
		memo:      stats.NewMemo(stats.ComputeCustomers),
		newCustomerID: func() domain.CustomerID {
			return domain.CustomerID(uuid.NewString())
		},
	}
	s.exec = query.NewExecutor[domain.Customer](cache.FamilyCustomers, c, customersRepo)
	s.searcher = search.New(s.exec, s.onSearchResult, o.searchOpts...)
	return s
}

// SetNewCustomerIDForTest overrides customer ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewCustomerIDForTest(fn func() domain.CustomerID) {
	if fn != nil {
		s.newCustomerID = fn
	}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Customer, error) {
	name := domain.NormalizeHumanName(in.FullName)
	if name == "" {
		return domain.Customer{}, s.reject(ctx, "create", apperr.Validation("invalid name", "fullName", "must be non-empty"))
	}
	phone := strings.TrimSpace(in.Phone)
	if phone == "" {
		return domain.Customer{}, s.reject(ctx, "create", apperr.Validation("invalid phone", "phone", "must be non-empty"))
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return domain.Customer{}, s.reject(ctx, "create", err)
	}
	status := in.Status
	if status == "" {
		status = domain.CustomerStatusActive
	}
	if !status.Valid() {
		return domain.Customer{}, s.reject(ctx, "create", apperr.Validation("invalid status", "status", "unknown value"))
	}

	now := s.clock.Now()
	c := domain.Customer{
		ID:            s.newCustomerID(),
		FullName:      name,
		Phone:         phone,
		Email:         email,
		NationalID:    trimmed(in.NationalID),
		DriverLicense: trimmed(in.DriverLicense),
		Address:       trimmed(in.Address),
		Notes:         in.Notes,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.customers.Create(ctx, c); err != nil {
		if errors.Is(err, customerrepo.ErrAlreadyExists) {
			return domain.Customer{}, s.reject(ctx, "create", apperr.Conflict(codeIDConflict, "customer id conflict"))
		}
		return domain.Customer{}, s.reject(ctx, "create", apperr.Store("insert customer", err))
	}

	s.applied(c)
	logger.Info(ctx, "customer created", "customer_id", string(c.ID))
	return c, nil
}

func (s *Service) Update(ctx context.Context, id domain.CustomerID, in UpdateInput) (domain.Customer, error) {
	if in.FullName.IsNull() {
		return domain.Customer{}, s.reject(ctx, "update", apperr.Validation("invalid name", "fullName", "cannot be null"))
	}
	if in.Phone.IsNull() {
		return domain.Customer{}, s.reject(ctx, "update", apperr.Validation("invalid phone", "phone", "cannot be null"))
	}
	if in.Status.IsNull() || (in.Status.HasValue() && !in.Status.Value().Valid()) {
		return domain.Customer{}, s.reject(ctx, "update", apperr.Validation("invalid status", "status", "unknown value"))
	}

	cur, err := s.load(ctx, id)
	if err != nil {
		return domain.Customer{}, s.reject(ctx, "update", err)
	}
	c := cur.Clone()
	if in.FullName.HasValue() {
		c.FullName = domain.NormalizeHumanName(in.FullName.Value())
		if c.FullName == "" {
			return domain.Customer{}, s.reject(ctx, "update", apperr.Validation("invalid name", "fullName", "must be non-empty"))
		}
	}
	if in.Phone.HasValue() {
		c.Phone = strings.TrimSpace(in.Phone.Value())
		if c.Phone == "" {
			return domain.Customer{}, s.reject(ctx, "update", apperr.Validation("invalid phone", "phone", "must be non-empty"))
		}
	}
	if in.Email.IsSpecified() {
		email, err := normalizeEmail(in.Email.Ptr(nil))
		if err != nil {
			return domain.Customer{}, s.reject(ctx, "update", err)
		}
		c.Email = email
	}
	c.NationalID = trimmed(in.NationalID.Ptr(c.NationalID))
	c.DriverLicense = trimmed(in.DriverLicense.Ptr(c.DriverLicense))
	c.Address = trimmed(in.Address.Ptr(c.Address))
	c.Notes = in.Notes.Ptr(c.Notes)
	c.Status = in.Status.Or(c.Status)
	c.UpdatedAt = s.clock.Now()

	if err := s.customers.Save(ctx, c); err != nil {
		if errors.Is(err, customerrepo.ErrNotFound) {
			return domain.Customer{}, s.reject(ctx, "update", apperr.NotFound(codeNotFound, "customer not found"))
		}
		return domain.Customer{}, s.reject(ctx, "update", apperr.Store("save customer", err))
	}

	s.applied(c)
	logger.Info(ctx, "customer updated", "customer_id", string(c.ID))
	return c, nil
}

// Delete removes a customer that holds no vehicle through an active or expired contract.
func (s *Service) Delete(ctx context.Context, id domain.CustomerID) error {
	if _, err := s.load(ctx, id); err != nil {
		return s.reject(ctx, "delete", err)
	}
	holding := domain.NewFilter(domain.WithCustomer(id), domain.WithStatuses(statusStrings(domain.VehicleHoldingStatuses)...))
	n, err := s.contracts.Count(ctx, holding)
	if err != nil {
		return s.reject(ctx, "delete", apperr.Store("count contracts", err))
	}
	if n > 0 {
		err := &apperr.Error{
			Kind:    apperr.KindConflict,
			Status:  409,
			Code:    codeHasActiveContracts,
			Message: "customer has active contracts",
			Details: map[string]any{"activeContracts": n},
		}
		return s.reject(ctx, "delete", err)
	}
	if err := s.customers.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, customerrepo.ErrNotFound):
			return s.reject(ctx, "delete", apperr.NotFound(codeNotFound, "customer not found"))
		case errors.Is(err, customerrepo.ErrReferenced):
			return s.reject(ctx, "delete", apperr.Conflict(codeHasContracts, "customer has contract history"))
		}
		return s.reject(ctx, "delete", apperr.Store("delete customer", err))
	}

	s.invalidate()
	s.working.Remove(string(id))
	logger.Info(ctx, "customer deleted", "customer_id", string(id))
	return nil
}

func (s *Service) load(ctx context.Context, id domain.CustomerID) (domain.Customer, error) {
	c, err := s.customers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, customerrepo.ErrNotFound) {
			return domain.Customer{}, apperr.NotFound(codeNotFound, "customer not found")
		}
		return domain.Customer{}, apperr.Store("load customer", err)
	}
	return c, nil
}

// invalidate drops customer pages and contract pages, which carry customer names.
func (s *Service) invalidate() {
	s.cache.InvalidateFamily(cache.FamilyCustomers)
	s.cache.InvalidateFamily(cache.FamilyContracts)
}

func (s *Service) applied(c domain.Customer) {
	s.invalidate()
	s.working.Upsert(c)
}

func (s *Service) reject(ctx context.Context, op string, err error) error {
	if ae, ok := apperr.As(err); ok && ae.Kind != apperr.KindStoreFailure {
		logger.Warn(ctx, "customer "+op+" rejected", "code", ae.Code, "error", err)
	} else {
		logger.Error(ctx, "customer "+op+" failed", "error", err)
	}
	return err
}

func normalizeEmail(p *string) (*string, error) {
	v := trimmed(p)
	if v == nil {
		return nil, nil
	}
	addr, err := mail.ParseAddress(*v)
	if err != nil || addr.Address != *v {
		return nil, apperr.Validation("invalid email", "email", "must be a valid address")
	}
	lower := strings.ToLower(addr.Address)
	return &lower, nil
}

// trimmed returns nil for nil or blank input.
func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func statusStrings(ss []domain.ContractStatus) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, string(s))
	}
	return out
}
