package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medstock/medstock/internal/platform/db"
)

const orderColumns = `id, requester_name, subdistrict, request_date, observations, status, created_by,
approved_by, approved_at, delivered_at, received_by, received_at, created_at, updated_at`

const itemColumns = `id, order_request_id, product_id, product_name, quantity, unit_of_measure`

// PGStore implements Store and DirectWriter on PostgreSQL. Caller-scoped
// writes run under callerRole with row-level security enabled; reads and
// elevated writes use the pool's own role.
type PGStore struct {
	pool       *pgxpool.Pool
	callerRole string
}

// NewPGStore constructs a PGStore. callerRole is the database role assumed
// for writes made on behalf of a caller (e.g. "authenticated").
func NewPGStore(pool *pgxpool.Pool, callerRole string) *PGStore {
	return &PGStore{pool: pool, callerRole: callerRole}
}

// ListOrders returns every order row without items.
func (s *PGStore) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+orderColumns+` FROM order_requests ORDER BY request_date DESC, created_at DESC`)
	if err != nil {
		return nil, classifyPGError(err)
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, classifyPGError(err)
		}
		out = append(out, o)
	}
	return out, classifyPGError(rows.Err())
}

// ListItems returns every item row.
func (s *PGStore) ListItems(ctx context.Context) ([]Item, error) {
	return queryItems(ctx, s.pool, `SELECT `+itemColumns+` FROM order_request_items ORDER BY order_request_id, id`)
}

// GetOrder loads one order with its items.
func (s *PGStore) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	order, err := scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM order_requests WHERE id = $1`, id))
	if err != nil {
		return Order{}, classifyPGError(err)
	}
	items, err := queryItems(ctx, s.pool, `SELECT `+itemColumns+` FROM order_request_items WHERE order_request_id = $1 ORDER BY id`, id)
	if err != nil {
		return Order{}, err
	}
	order.Items = items
	return order, nil
}

// InsertOrder stores order and its items as caller.
func (s *PGStore) InsertOrder(ctx context.Context, caller Caller, order Order) (Order, error) {
	err := s.asCaller(ctx, caller, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO order_requests
(id, requester_name, subdistrict, request_date, observations, status, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING created_at, updated_at`,
			order.ID, order.RequesterName, order.Subdistrict, order.RequestDate, order.Observations,
			string(order.Status), order.CreatedBy, order.CreatedAt, order.UpdatedAt,
		).Scan(&order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, item := range order.Items {
			batch.Queue(`INSERT INTO order_request_items (`+itemColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
				item.ID, order.ID, item.ProductID, item.ProductName, item.Quantity, item.UnitOfMeasure)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return Order{}, classifyPGError(err)
	}
	return order, nil
}

// DeletePending removes a pending order as caller. Items cascade.
func (s *PGStore) DeletePending(ctx context.Context, caller Caller, id uuid.UUID) error {
	err := s.asCaller(ctx, caller, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM order_requests WHERE id = $1 AND status = 'pending'`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			return nil
		}
		var status string
		if err := tx.QueryRow(ctx, `SELECT status FROM order_requests WHERE id = $1`, id).Scan(&status); err != nil {
			return err
		}
		return deleteMissed(id, Status(status))
	})
	return classifyPGError(err)
}

// deleteMissed explains a delete that removed nothing although the row is
// still visible. A row that is still pending was hidden by the delete policy.
func deleteMissed(id uuid.UUID, status Status) error {
	if status == StatusPending {
		return fmt.Errorf("%w: delete of order %s refused by row policy", ErrPermissionDenied, id)
	}
	return fmt.Errorf("%w: order %s is %s", ErrNotPending, id, status)
}

// ApplyStatus writes patch as caller in a single conditional update keyed by id.
func (s *PGStore) ApplyStatus(ctx context.Context, caller Caller, id uuid.UUID, patch Patch) (Order, error) {
	var order Order
	err := s.asCaller(ctx, caller, func(tx pgx.Tx) error {
		var err error
		order, err = updateStatus(ctx, tx, id, patch)
		return err
	})
	if err != nil {
		return Order{}, classifyPGError(err)
	}
	return order, nil
}

// ApplyStatusElevated writes patch with the pool's own privileges. Only the
// privileged function calls this, after re-checking the caller.
func (s *PGStore) ApplyStatusElevated(ctx context.Context, id uuid.UUID, patch Patch) (Order, error) {
	var order Order
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		order, err = updateStatus(ctx, tx, id, patch)
		return err
	})
	if err != nil {
		return Order{}, classifyPGError(err)
	}
	return order, nil
}

func (s *PGStore) asCaller(ctx context.Context, caller Caller, fn func(pgx.Tx) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := db.ActAs(ctx, tx, s.callerRole, caller.Actor.ID.String()); err != nil {
			return err
		}
		return fn(tx)
	})
}

func updateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, patch Patch) (Order, error) {
	order, err := scanOrder(tx.QueryRow(ctx, `UPDATE order_requests SET
status = $2,
approved_by = COALESCE($3, approved_by),
approved_at = COALESCE($4, approved_at),
delivered_at = COALESCE($5, delivered_at),
received_by = COALESCE($6, received_by),
received_at = COALESCE($7, received_at),
updated_at = NOW()
WHERE id = $1
RETURNING `+orderColumns,
		id, string(patch.Status), patch.ApprovedBy, patch.ApprovedAt, patch.DeliveredAt, patch.ReceivedBy, patch.ReceivedAt,
	))
	if err != nil {
		return Order{}, err
	}
	items, err := queryItems(ctx, tx, `SELECT `+itemColumns+` FROM order_request_items WHERE order_request_id = $1 ORDER BY id`, id)
	if err != nil {
		return Order{}, err
	}
	order.Items = items
	return order, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryItems(ctx context.Context, q querier, sql string, args ...any) ([]Item, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, classifyPGError(err)
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitOfMeasure); err != nil {
			return nil, classifyPGError(err)
		}
		items = append(items, item)
	}
	return items, classifyPGError(rows.Err())
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o      Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.RequesterName, &o.Subdistrict, &o.RequestDate, &o.Observations, &status, &o.CreatedBy,
		&o.ApprovedBy, &o.ApprovedAt, &o.DeliveredAt, &o.ReceivedBy, &o.ReceivedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return Order{}, err
	}
	o.Status = Status(status)
	return o, nil
}

// classifyPGError maps driver failures onto the domain taxonomy.
func classifyPGError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, ErrNotPending), errors.Is(err, ErrNotFound), errors.Is(err, ErrTransient), errors.Is(err, ErrPermissionDenied):
		return err
	case errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err):
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42501":
			return fmt.Errorf("%w: %s", ErrPermissionDenied, pgErr.Message)
		case "23514", "22P02", "23502":
			return fmt.Errorf("%w: %s", ErrValidation, pgErr.Message)
		case "23505":
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.Message)
		case "57014":
			return fmt.Errorf("%w: %s", ErrTransient, pgErr.Message)
		}
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return err
}

var (
	_ Store        = (*PGStore)(nil)
	_ DirectWriter = (*PGStore)(nil)
)
