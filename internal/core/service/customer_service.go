package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bizdesk/customer-service/internal/core/domain"
	"github.com/bizdesk/customer-service/internal/core/ports"
)

// CustomerService implements the customer directory use cases.
type CustomerService struct {
	repo   ports.CustomerRepository
	events ports.CustomerEventPublisher
	logger zerolog.Logger
	now    func() time.Time
}

// NewCustomerService builds the service. events may be nil, in which case
// no change events are emitted.
func NewCustomerService(repo ports.CustomerRepository, events ports.CustomerEventPublisher, logger zerolog.Logger) *CustomerService {
	return &CustomerService{repo: repo, events: events, logger: logger, now: time.Now}
}

func (s *CustomerService) Create(ctx context.Context, input ports.CreateCustomerInput) (*domain.Customer, error) {
	created, err := s.repo.CreateCustomer(ctx, &domain.Customer{
		Name:    input.Name,
		Email:   input.Email,
		Phone:   input.Phone,
		Address: input.Address,
	})
	if err != nil {
		return nil, mapCustomerWriteError(err)
	}

	s.logger.Info().Int64("customer_id", created.ID).Msg("customer created")
	s.emit(ctx, domain.CustomerCreated, created)
	return created, nil
}

// FindAll returns one page of customers, newest first. The page read and the
// total count run concurrently.
func (s *CustomerService) FindAll(ctx context.Context, page, limit int) (*ports.CustomerPage, error) {
	if limit <= 0 {
		return nil, domain.ErrInvalidLimit
	}
	if page <= 0 {
		return nil, domain.ErrInvalidPage
	}
	if page-1 > math.MaxInt/limit {
		return nil, domain.ErrPageOutOfRange
	}
	skip := (page - 1) * limit

	var (
		data  []domain.Customer
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data, err = s.repo.ListCustomers(gctx, skip, limit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.CountCustomers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if data == nil {
		data = []domain.Customer{}
	}
	return &ports.CustomerPage{
		Page:         page,
		Limit:        limit,
		TotalRecords: total,
		TotalPages:   totalPages(total, limit),
		Data:         data,
	}, nil
}

func (s *CustomerService) FindOne(ctx context.Context, id int64) (*domain.Customer, error) {
	c, err := s.repo.FindCustomerByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}
	return c, nil
}

// Update applies the non-nil fields of changes. An empty change set returns
// the current record without writing.
func (s *CustomerService) Update(ctx context.Context, id int64, changes domain.CustomerChanges) (*domain.Customer, error) {
	current, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if changes.Empty() {
		return current, nil
	}

	updated, err := s.repo.UpdateCustomer(ctx, id, changes)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, mapCustomerWriteError(err)
	}

	s.logger.Info().Int64("customer_id", id).Msg("customer updated")
	s.emit(ctx, domain.CustomerUpdated, updated)
	return updated, nil
}

// Remove deletes the customer and returns it as it was before deletion.
func (s *CustomerService) Remove(ctx context.Context, id int64) (*domain.Customer, error) {
	if _, err := s.FindOne(ctx, id); err != nil {
		return nil, err
	}

	deleted, err := s.repo.DeleteCustomer(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}

	s.logger.Info().Int64("customer_id", id).Msg("customer removed")
	s.emit(ctx, domain.CustomerDeleted, deleted)
	return deleted, nil
}

func (s *CustomerService) emit(ctx context.Context, typ domain.CustomerEventType, c *domain.Customer) {
	if s.events == nil {
		return
	}
	snapshot := *c
	s.events.Publish(ctx, domain.CustomerEvent{
		Type:       typ,
		CustomerID: c.ID,
		Customer:   snapshot,
		OccurredAt: s.now().UTC(),
	})
}

func mapCustomerWriteError(err error) error {
	if uv, ok := domain.AsUniqueViolation(err); ok {
		return domain.CustomerConflict(uv.Field)
	}
	return err
}

func totalPages(total int64, limit int) int64 {
	if total <= 0 {
		return 0
	}
	l := int64(limit)
	return (total + l - 1) / l
}
