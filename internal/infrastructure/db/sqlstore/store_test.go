package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizdesk/customer-service/internal/core/domain"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "bizdesk.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	s, err := Open(context.Background(), "sqlite", dsn, Options{MaxOpenConns: 4}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedCustomer(t *testing.T, s *Store, n int) *domain.Customer {
	t.Helper()
	c, err := s.CreateCustomer(context.Background(), &domain.Customer{
		Name:  fmt.Sprintf("Customer %d", n),
		Email: fmt.Sprintf("c%d@example.com", n),
		Phone: fmt.Sprintf("+52%08d", n),
	})
	require.NoError(t, err)
	return c
}

func TestStore_MigrateIsIdempotent(t *testing.T) {
	s := newSQLiteStore(t)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
}

func TestStore_Users(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	user := &domain.User{ID: "u-1", Name: "Ada", Email: "ada@example.com", PasswordHash: "$2a$10$hash", Role: domain.RoleAdmin}
	created, err := s.CreateUser(ctx, user)
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	found, err := s.FindUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, domain.RoleAdmin, found.Role)
	assert.Equal(t, "$2a$10$hash", found.PasswordHash)
	assert.True(t, created.CreatedAt.Equal(found.CreatedAt))

	_, err = s.FindUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	dup := *user
	dup.ID = "u-2"
	_, err = s.CreateUser(ctx, &dup)
	uv, ok := domain.AsUniqueViolation(err)
	require.True(t, ok, "expected unique violation, got %v", err)
	assert.Equal(t, "user", uv.Entity)
	assert.Equal(t, "email", uv.Field)
}

func TestStore_CustomerCRUD(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	c := seedCustomer(t, s, 1)
	assert.NotZero(t, c.ID)
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)

	found, err := s.FindCustomerByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Email, found.Email)
	assert.True(t, c.CreatedAt.Equal(found.CreatedAt))

	phone := "+520000"
	updated, err := s.UpdateCustomer(ctx, c.ID, domain.CustomerChanges{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, updated.Phone)
	assert.Equal(t, c.Name, updated.Name)
	assert.True(t, updated.UpdatedAt.After(c.UpdatedAt))

	deleted, err := s.DeleteCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, phone, deleted.Phone)

	_, err = s.FindCustomerByID(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.DeleteCustomer(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	name := "x"
	_, err = s.UpdateCustomer(ctx, c.ID, domain.CustomerChanges{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_CustomerUniqueFields(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	first := seedCustomer(t, s, 1)
	second := seedCustomer(t, s, 2)

	_, err := s.CreateCustomer(ctx, &domain.Customer{Name: "Dup", Email: first.Email, Phone: "+1"})
	uv, ok := domain.AsUniqueViolation(err)
	require.True(t, ok, "expected unique violation, got %v", err)
	assert.Equal(t, "email", uv.Field)

	_, err = s.UpdateCustomer(ctx, second.ID, domain.CustomerChanges{Phone: &first.Phone})
	uv, ok = domain.AsUniqueViolation(err)
	require.True(t, ok, "expected unique violation, got %v", err)
	assert.Equal(t, "phone", uv.Field)
	assert.Equal(t, "customer", uv.Entity)
}

func TestStore_ListCustomersNewestFirst(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	var ids []int64
	for i := 1; i <= 5; i++ {
		ids = append(ids, seedCustomer(t, s, i).ID)
	}

	total, err := s.CountCustomers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)

	page, err := s.ListCustomers(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)

	page, err = s.ListCustomers(ctx, 4, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)

	page, err = s.ListCustomers(ctx, 10, 2)
	require.NoError(t, err)
	assert.NotNil(t, page)
	assert.Empty(t, page)
}

func TestStore_ListCustomersTieBreaksOnID(t *testing.T) {
	s := newSQLiteStore(t)
	frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return frozen }

	a := seedCustomer(t, s, 1)
	b := seedCustomer(t, s, 2)

	page, err := s.ListCustomers(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, b.ID, page[0].ID)
	assert.Equal(t, a.ID, page[1].ID)
}

func TestStore_ListCustomersHugeTake(t *testing.T) {
	s := newSQLiteStore(t)
	seedCustomer(t, s, 1)
	seedCustomer(t, s, 2)

	page, err := s.ListCustomers(context.Background(), 0, 1<<40)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.LessOrEqual(t, cap(page), maxPrealloc)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "dsn", Options{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestDialect_Rebind(t *testing.T) {
	pg, mysqlDialect := dialects["postgres"], dialects["mysql"]
	q := `UPDATE customers SET name = ?, updated_at = ? WHERE id = ?`

	assert.Equal(t, `UPDATE customers SET name = $1, updated_at = $2 WHERE id = $3`, pg.rebind(q))
	assert.Equal(t, q, mysqlDialect.rebind(q))
}

func TestMySQLDSN(t *testing.T) {
	out, err := mysqlDSN("app:secret@tcp(db:3306)/bizdesk?autocommit=true&parseTime=false")
	require.NoError(t, err)

	cfg, err := mysql.ParseDSN(out)
	require.NoError(t, err)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, time.UTC, cfg.Loc)
	assert.True(t, cfg.ClientFoundRows)
	assert.Equal(t, "app", cfg.User)
	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "bizdesk", cfg.DBName)
	assert.Equal(t, "true", cfg.Params["autocommit"])

	_, err = mysqlDSN("app:secret@tcp(db:3306")
	assert.Error(t, err)
}

func TestDialect_UniqueViolation(t *testing.T) {
	cases := []struct {
		name    string
		dialect string
		err     error
		entity  string
		field   string
	}{
		{
			name:    "postgres constraint name",
			dialect: "postgres",
			err:     &pgconn.PgError{Code: "23505", ConstraintName: "uq_customers_phone"},
			entity:  "customer",
			field:   "phone",
		},
		{
			name:    "mysql key in message",
			dialect: "mysql",
			err:     &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b.c' for key 'users.uq_users_email'"},
			entity:  "user",
			field:   "email",
		},
		{
			name:    "wrapped postgres unknown constraint",
			dialect: "postgres",
			err:     fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505", ConstraintName: "customers_pkey"}),
			entity:  "customer",
			field:   "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uv, ok := dialects[tc.dialect].uniqueViolation(tc.err, "customer")
			require.True(t, ok)
			assert.Equal(t, tc.entity, uv.Entity)
			assert.Equal(t, tc.field, uv.Field)
			assert.ErrorIs(t, uv, tc.err)
		})
	}

	_, ok := dialects["postgres"].uniqueViolation(&pgconn.PgError{Code: "23503"}, "customer")
	assert.False(t, ok)
	_, ok = dialects["mysql"].uniqueViolation(errors.New("boom"), "customer")
	assert.False(t, ok)
}
