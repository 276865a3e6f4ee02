package domain

import "time"

// Customer is a business contact managed by the customer directory.
type Customer struct {
	ID        int64     `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Email     string    `json:"email" bson:"email"`
	Phone     string    `json:"phone" bson:"phone"`
	Address   string    `json:"address,omitempty" bson:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// CustomerChanges is a partial update. Nil fields are left untouched.
type CustomerChanges struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
}

// Empty reports whether the change set modifies nothing.
func (c CustomerChanges) Empty() bool {
	return c.Name == nil && c.Email == nil && c.Phone == nil && c.Address == nil
}

// CustomerEventType names a change applied to a customer.
type CustomerEventType string

const (
	CustomerCreated CustomerEventType = "customer.created"
	CustomerUpdated CustomerEventType = "customer.updated"
	CustomerDeleted CustomerEventType = "customer.deleted"
)

// CustomerEvent is emitted after a customer write has been committed.
// For deletions Customer holds the pre-delete representation.
type CustomerEvent struct {
	Type       CustomerEventType `json:"type"`
	CustomerID int64             `json:"customerId"`
	Customer   Customer          `json:"customer"`
	OccurredAt time.Time         `json:"occurredAt"`
}
