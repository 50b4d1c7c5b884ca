package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/medstock/medstock/internal/rbac"
)

// Order is an order request aggregate with its line items.
type Order struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	RequesterName string     `json:"requester_name" db:"requester_name"`
	Subdistrict   string     `json:"subdistrict" db:"subdistrict"`
	RequestDate   time.Time  `json:"request_date" db:"request_date"`
	Observations  *string    `json:"observations,omitempty" db:"observations"`
	Status        Status     `json:"status" db:"status"`
	CreatedBy     uuid.UUID  `json:"created_by" db:"created_by"`
	ApprovedBy    *uuid.UUID `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`
	ReceivedBy    *uuid.UUID `json:"received_by,omitempty" db:"received_by"`
	ReceivedAt    *time.Time `json:"received_at,omitempty" db:"received_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	Items         []Item     `json:"items" db:"-"`
}

// Item is a requested product line. ProductName and UnitOfMeasure are
// copied from the catalogue when the order is created and never refreshed.
type Item struct {
	ID            uuid.UUID `json:"id" db:"id"`
	OrderID       uuid.UUID `json:"order_id" db:"order_request_id"`
	ProductID     uuid.UUID `json:"product_id" db:"product_id"`
	ProductName   string    `json:"product_name" db:"product_name"`
	Quantity      int       `json:"quantity" db:"quantity"`
	UnitOfMeasure string    `json:"unit_of_measure" db:"unit_of_measure"`
}

// Clone returns a deep copy of o.
func (o Order) Clone() Order {
	out := o
	out.Observations = cloneString(o.Observations)
	out.ApprovedBy = cloneUUID(o.ApprovedBy)
	out.ApprovedAt = cloneTime(o.ApprovedAt)
	out.DeliveredAt = cloneTime(o.DeliveredAt)
	out.ReceivedBy = cloneUUID(o.ReceivedBy)
	out.ReceivedAt = cloneTime(o.ReceivedAt)
	if o.Items != nil {
		out.Items = make([]Item, len(o.Items))
		copy(out.Items, o.Items)
	}
	return out
}

// Draft is the input required to create an order request.
type Draft struct {
	RequesterName string      `json:"requester_name" validate:"required,max=200"`
	Subdistrict   string      `json:"subdistrict" validate:"required,max=120"`
	RequestDate   *time.Time  `json:"request_date,omitempty"`
	Observations  *string     `json:"observations,omitempty" validate:"omitempty,max=2000"`
	Items         []DraftItem `json:"items" validate:"required,min=1,dive"`

	// IdempotencyKey rejects repeated submissions when set.
	IdempotencyKey string `json:"-" validate:"omitempty,max=128"`
}

// DraftItem is one requested product line in a Draft.
type DraftItem struct {
	ProductID     uuid.UUID `json:"product_id" validate:"required"`
	ProductName   string    `json:"product_name" validate:"required,max=200"`
	Quantity      int       `json:"quantity" validate:"required,min=1"`
	UnitOfMeasure string    `json:"unit_of_measure" validate:"required,max=40"`
}

// Patch is the set of columns a transition writes.
type Patch struct {
	Status      Status
	ApprovedBy  *uuid.UUID
	ApprovedAt  *time.Time
	DeliveredAt *time.Time
	ReceivedBy  *uuid.UUID
	ReceivedAt  *time.Time
}

// Apply returns o with the patch written over it. Nil fields leave o untouched.
func (p Patch) Apply(o Order) Order {
	out := o.Clone()
	out.Status = p.Status
	if p.ApprovedBy != nil {
		out.ApprovedBy = cloneUUID(p.ApprovedBy)
	}
	if p.ApprovedAt != nil {
		out.ApprovedAt = cloneTime(p.ApprovedAt)
	}
	if p.DeliveredAt != nil {
		out.DeliveredAt = cloneTime(p.DeliveredAt)
	}
	if p.ReceivedBy != nil {
		out.ReceivedBy = cloneUUID(p.ReceivedBy)
	}
	if p.ReceivedAt != nil {
		out.ReceivedAt = cloneTime(p.ReceivedAt)
	}
	return out
}

// Caller carries the resolved actor and the bearer credential it presented.
type Caller struct {
	Actor      rbac.Actor
	Credential string
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneUUID(v *uuid.UUID) *uuid.UUID {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneOrders(in []Order) []Order {
	if in == nil {
		return nil
	}
	out := make([]Order, len(in))
	for i, o := range in {
		out[i] = o.Clone()
	}
	return out
}
