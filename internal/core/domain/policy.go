package domain

// Operation identifies an action the request boundary authorizes.
type Operation string

const (
	OpRegisterUser   Operation = "users.register"
	OpCreateCustomer Operation = "customers.create"
	OpListCustomers  Operation = "customers.list"
	OpGetCustomer    Operation = "customers.get"
	OpUpdateCustomer Operation = "customers.update"
	OpDeleteCustomer Operation = "customers.delete"
)

// Policy lists the roles allowed to perform each operation. Login is public and
// therefore absent.
var Policy = map[Operation][]Role{
	OpRegisterUser:   {RoleAdmin},
	OpCreateCustomer: {RoleAdmin},
	OpListCustomers:  {RoleAdmin, RoleEmployee},
	OpGetCustomer:    {RoleAdmin, RoleEmployee},
	OpUpdateCustomer: {RoleAdmin},
	OpDeleteCustomer: {RoleAdmin},
}

// RolesFor returns the roles allowed to perform op.
func RolesFor(op Operation) []Role {
	return Policy[op]
}

// Authorize returns ErrAccessForbidden unless callerRole is one of allowed.
func Authorize(callerRole Role, allowed ...Role) error {
	for _, r := range allowed {
		if r == callerRole {
			return nil
		}
	}
	return ErrAccessForbidden
}
