package orders

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medstock/medstock/internal/shared"
)

const dateLayout = "2006-01-02"

// CreateRequest is the JSON body accepted by POST /api/orders.
type CreateRequest struct {
	RequesterName string              `json:"requester_name"`
	Subdistrict   string              `json:"subdistrict"`
	RequestDate   string              `json:"request_date,omitempty"`
	Observations  *string             `json:"observations,omitempty"`
	Items         []CreateItemRequest `json:"items"`
}

// CreateItemRequest is one requested line.
type CreateItemRequest struct {
	ProductID     uuid.UUID `json:"product_id"`
	ProductName   string    `json:"product_name"`
	Quantity      int       `json:"quantity"`
	UnitOfMeasure string    `json:"unit_of_measure"`
}

// StatusRequest is the JSON body accepted by POST /api/orders/{id}/status.
type StatusRequest struct {
	Status string `json:"status"`
}

// OrderResponse is the JSON representation of an order.
type OrderResponse struct {
	ID               uuid.UUID      `json:"id"`
	RequesterName    string         `json:"requester_name"`
	Subdistrict      string         `json:"subdistrict"`
	RequestDate      string         `json:"request_date"`
	Observations     *string        `json:"observations,omitempty"`
	Status           Status         `json:"status"`
	Tab              Tab            `json:"tab"`
	CreatedBy        uuid.UUID      `json:"created_by"`
	ApprovedBy       *uuid.UUID     `json:"approved_by"`
	ApprovedAt       *time.Time     `json:"approved_at"`
	DeliveredAt      *time.Time     `json:"delivered_at"`
	ReceivedBy       *uuid.UUID     `json:"received_by"`
	ReceivedAt       *time.Time     `json:"received_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	Items            []ItemResponse `json:"items"`
	AvailableActions []Status       `json:"available_actions,omitempty"`
}

// ItemResponse is the JSON representation of an item.
type ItemResponse struct {
	ID            uuid.UUID `json:"id"`
	ProductID     uuid.UUID `json:"product_id"`
	ProductName   string    `json:"product_name"`
	Quantity      int       `json:"quantity"`
	UnitOfMeasure string    `json:"unit_of_measure"`
}

// ListResponse is the JSON body returned by GET /api/orders.
type ListResponse struct {
	Tab           Tab             `json:"tab"`
	Orders        []OrderResponse `json:"orders"`
	Counts        Counts          `json:"counts"`
	StatusOptions []Status        `json:"status_options"`
}

// HistoryEntry is one approval log row.
type HistoryEntry struct {
	ActorID uuid.UUID `json:"actor_id"`
	Action  string    `json:"action"`
	Note    string    `json:"note,omitempty"`
	At      time.Time `json:"at"`
}

// ToDraft converts the request into a Draft.
func (r CreateRequest) ToDraft(idempotencyKey string) (Draft, error) {
	draft := Draft{
		RequesterName:  r.RequesterName,
		Subdistrict:    r.Subdistrict,
		Observations:   r.Observations,
		IdempotencyKey: idempotencyKey,
	}
	if r.RequestDate != "" {
		date, err := time.Parse(dateLayout, r.RequestDate)
		if err != nil {
			return Draft{}, fmt.Errorf("%w: request_date must be YYYY-MM-DD", ErrValidation)
		}
		draft.RequestDate = &date
	}
	draft.Items = make([]DraftItem, len(r.Items))
	for i, item := range r.Items {
		draft.Items[i] = DraftItem(item)
	}
	return draft, nil
}

// NewOrderResponse maps an order to its JSON representation.
func NewOrderResponse(o Order) OrderResponse {
	resp := OrderResponse{
		ID:            o.ID,
		RequesterName: o.RequesterName,
		Subdistrict:   o.Subdistrict,
		RequestDate:   o.RequestDate.Format(dateLayout),
		Observations:  o.Observations,
		Status:        o.Status,
		Tab:           TabOf(o.Status),
		CreatedBy:     o.CreatedBy,
		ApprovedBy:    o.ApprovedBy,
		ApprovedAt:    o.ApprovedAt,
		DeliveredAt:   o.DeliveredAt,
		ReceivedBy:    o.ReceivedBy,
		ReceivedAt:    o.ReceivedAt,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Items:         make([]ItemResponse, len(o.Items)),
	}
	for i, item := range o.Items {
		resp.Items[i] = ItemResponse{
			ID:            item.ID,
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			Quantity:      item.Quantity,
			UnitOfMeasure: item.UnitOfMeasure,
		}
	}
	return resp
}

func newHistory(logs []shared.ApprovalLog) []HistoryEntry {
	out := make([]HistoryEntry, len(logs))
	for i, l := range logs {
		out[i] = HistoryEntry{ActorID: l.ActorID, Action: string(l.Action), Note: l.Note, At: l.At}
	}
	return out
}

// ToOrder converts the JSON representation back into an Order.
func (r OrderResponse) ToOrder() (Order, error) {
	date, err := time.Parse(dateLayout, r.RequestDate)
	if err != nil {
		return Order{}, fmt.Errorf("%w: request_date %q", ErrValidation, r.RequestDate)
	}
	o := Order{
		ID:            r.ID,
		RequesterName: r.RequesterName,
		Subdistrict:   r.Subdistrict,
		RequestDate:   date,
		Observations:  r.Observations,
		Status:        r.Status,
		CreatedBy:     r.CreatedBy,
		ApprovedBy:    r.ApprovedBy,
		ApprovedAt:    r.ApprovedAt,
		DeliveredAt:   r.DeliveredAt,
		ReceivedBy:    r.ReceivedBy,
		ReceivedAt:    r.ReceivedAt,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		Items:         make([]Item, len(r.Items)),
	}
	for i, item := range r.Items {
		o.Items[i] = Item{
			ID:            item.ID,
			OrderID:       r.ID,
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			Quantity:      item.Quantity,
			UnitOfMeasure: item.UnitOfMeasure,
		}
	}
	return o, nil
}
