package sqlstore

import (
	"strings"

	"github.com/bizdesk/customer-service/internal/core/domain"
)

// uniqueConstraint names a unique constraint shared by all migrations.
type uniqueConstraint struct {
	name   string
	table  string
	column string
	entity string
}

var uniqueConstraints = []uniqueConstraint{
	{name: "uq_users_email", table: "users", column: "email", entity: "user"},
	{name: "uq_customers_email", table: "customers", column: "email", entity: "customer"},
	{name: "uq_customers_phone", table: "customers", column: "phone", entity: "customer"},
}

// uniqueViolation converts a driver unique violation into a
// *domain.UniqueViolationError and reports whether err was one.
//
// Postgres reports the constraint name, MySQL embeds it in the message as
// 'table.constraint', and SQLite reports 'table.column'.
func (d dialect) uniqueViolation(err error, entity string) (*domain.UniqueViolationError, bool) {
	ident, ok := d.uniqueIdent(err)
	if !ok {
		return nil, false
	}
	for _, c := range uniqueConstraints {
		if strings.Contains(ident, c.name) || strings.Contains(ident, c.table+"."+c.column) {
			return &domain.UniqueViolationError{Entity: c.entity, Field: c.column, Err: err}, true
		}
	}
	return &domain.UniqueViolationError{Entity: entity, Err: err}, true
}
