package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/bizdesk/customer-service/internal/core/domain"
	"github.com/bizdesk/customer-service/internal/core/ports"
)

var _ ports.CustomerRepository = (*Store)(nil)

// maxPrealloc bounds the slice capacity reserved for a page; take comes from
// the caller and is not clamped.
const maxPrealloc = 64

const customerColumns = `id, name, email, phone, address, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	var c domain.Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer *domain.Customer) (*domain.Customer, error) {
	c := *customer
	now := s.timestamp()
	c.CreatedAt, c.UpdatedAt = now, now

	insert := `INSERT INTO customers (name, email, phone, address, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	args := []any{c.Name, c.Email, c.Phone, c.Address, c.CreatedAt, c.UpdatedAt}

	var err error
	if s.dialect.returningID {
		err = s.db.QueryRowContext(ctx, s.dialect.rebind(insert+` RETURNING id`), args...).Scan(&c.ID)
	} else {
		var res sql.Result
		res, err = s.db.ExecContext(ctx, s.dialect.rebind(insert), args...)
		if err == nil {
			c.ID, err = res.LastInsertId()
		}
	}
	if err != nil {
		if uv, ok := s.dialect.uniqueViolation(err, "customer"); ok {
			return nil, uv
		}
		return nil, fmt.Errorf("insert customer: %w", err)
	}
	return &c, nil
}

func (s *Store) FindCustomerByID(ctx context.Context, id int64) (*domain.Customer, error) {
	q := s.dialect.rebind(`SELECT ` + customerColumns + ` FROM customers WHERE id = ?`)
	c, err := scanCustomer(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find customer %d: %w", id, err)
	}
	return c, nil
}

func (s *Store) ListCustomers(ctx context.Context, skip, take int) ([]domain.Customer, error) {
	q := s.dialect.rebind(`SELECT ` + customerColumns + ` FROM customers ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`)
	rows, err := s.db.QueryContext(ctx, q, take, skip)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Customer, 0, min(take, maxPrealloc))
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return out, nil
}

func (s *Store) CountCustomers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return n, nil
}

// UpdateCustomer writes the non-nil fields of changes plus updated_at and
// returns the stored row.
func (s *Store) UpdateCustomer(ctx context.Context, id int64, changes domain.CustomerChanges) (*domain.Customer, error) {
	var (
		sets []string
		args []any
	)
	add := func(column string, v *string) {
		if v != nil {
			sets = append(sets, column+" = ?")
			args = append(args, *v)
		}
	}
	add("name", changes.Name)
	add("email", changes.Email)
	add("phone", changes.Phone)
	add("address", changes.Address)
	sets = append(sets, "updated_at = ?")
	args = append(args, s.timestamp(), id)

	q := s.dialect.rebind(`UPDATE customers SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		if uv, ok := s.dialect.uniqueViolation(err, "customer"); ok {
			return nil, uv
		}
		return nil, fmt.Errorf("update customer %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update customer %d: %w", id, err)
	}
	if affected == 0 {
		return nil, domain.ErrNotFound
	}
	return s.FindCustomerByID(ctx, id)
}

// DeleteCustomer removes the row inside a transaction and returns it as it was
// before deletion.
func (s *Store) DeleteCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete customer: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	c, err := scanCustomer(tx.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+customerColumns+` FROM customers WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load customer %d: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM customers WHERE id = ?`), id); err != nil {
		return nil, fmt.Errorf("delete customer %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete customer: %w", err)
	}
	return c, nil
}
