package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sewing-flow/internal/storage"
)

func (s *Storage) GetOrder(ctx context.Context, id int64) (*storage.Order, error) {
	const op = "storage.mysql.GetOrder"

	stmt := `SELECT id, client_id, total_qty, deadline, workshop_id, floor_id, status, completed_at
	         FROM flow_orders WHERE id = ?`

	var order storage.Order
	var deadline sql.NullTime
	var completedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, stmt, id).Scan(
		&order.ID, &order.ClientID, &order.TotalQty, &deadline,
		&order.WorkshopID, &order.FloorID, &order.Status, &completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &storage.NotFoundError{Entity: "заказ", ID: id}
		}
		return nil, fmt.Errorf("%s: ошибка получения заказа: %w", op, err)
	}

	if deadline.Valid {
		order.Deadline = deadline.Time
		order.HasDeadline = true
	}
	if completedAt.Valid {
		order.CompletedAt = &completedAt.Time
	}

	return &order, nil
}

func (s *Storage) GetWorkshop(ctx context.Context, id int64) (*storage.Workshop, error) {
	const op = "storage.mysql.GetWorkshop"

	stmt := `SELECT id, name, floors_count FROM flow_workshops WHERE id = ?`

	var ws storage.Workshop
	err := s.db.QueryRowContext(ctx, stmt, id).Scan(&ws.ID, &ws.Name, &ws.FloorsCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &storage.NotFoundError{Entity: "цех", ID: id}
		}
		return nil, fmt.Errorf("%s: ошибка получения цеха: %w", op, err)
	}

	return &ws, nil
}

// GetActiveOrders — все заказы, не закрытые статусом done. Их читает скоринг.
func (s *Storage) GetActiveOrders(ctx context.Context) ([]*storage.Order, error) {
	const op = "storage.mysql.GetActiveOrders"

	stmt := `SELECT id, client_id, total_qty, deadline, workshop_id, floor_id, status, completed_at
	         FROM flow_orders WHERE status <> 'done' ORDER BY id`

	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("%s: ошибка получения активных заказов: %w", op, err)
	}
	defer rows.Close()

	var orders []*storage.Order
	for rows.Next() {
		var order storage.Order
		var deadline sql.NullTime
		var completedAt sql.NullTime

		err := rows.Scan(&order.ID, &order.ClientID, &order.TotalQty, &deadline,
			&order.WorkshopID, &order.FloorID, &order.Status, &completedAt)
		if err != nil {
			return nil, fmt.Errorf("%s: ошибка сканирования строк: %w", op, err)
		}

		if deadline.Valid {
			order.Deadline = deadline.Time
			order.HasDeadline = true
		}
		if completedAt.Valid {
			order.CompletedAt = &completedAt.Time
		}

		orders = append(orders, &order)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: ошибка сканирования строк: %w", op, err)
	}

	return orders, nil
}

// GetOrderOperations — операции заказа с вариантами, в порядке создания.
func (s *Storage) GetOrderOperations(ctx context.Context, orderID int64) ([]*storage.OrderOperation, error) {
	const op = "storage.mysql.GetOrderOperations"

	stmt := `SELECT oo.id, oo.order_id, oo.operation_id, o.category, oo.sewer_id, oo.floor_id,
	                oo.status, oo.planned_qty, oo.actual_qty, oo.created_at
	         FROM flow_order_operations oo
	         JOIN flow_operations o ON o.id = oo.operation_id
	         WHERE oo.order_id = ?
	         ORDER BY oo.created_at, oo.id`

	rows, err := s.db.QueryContext(ctx, stmt, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: ошибка получения операций заказа: %w", op, err)
	}
	defer rows.Close()

	var ops []*storage.OrderOperation
	for rows.Next() {
		var oo storage.OrderOperation
		err := rows.Scan(&oo.ID, &oo.OrderID, &oo.OperationID, &oo.Category, &oo.SewerID,
			&oo.FloorID, &oo.Status, &oo.PlannedQty, &oo.ActualQty, &oo.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("%s: ошибка сканирования строк: %w", op, err)
		}
		ops = append(ops, &oo)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: ошибка сканирования строк: %w", op, err)
	}

	for _, oo := range ops {
		variants, err := s.getVariants(ctx, oo.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		oo.Variants = variants
	}

	return ops, nil
}

// GetActiveOrderOperations — операции всех незакрытых заказов одним запросом,
// для скоринга и карты узких мест.
func (s *Storage) GetActiveOrderOperations(ctx context.Context) ([]*storage.OrderOperation, error) {
	const op = "storage.mysql.GetActiveOrderOperations"

	stmt := `SELECT oo.id, oo.order_id, oo.operation_id, o.category, oo.sewer_id, oo.floor_id,
	                oo.status, oo.planned_qty, oo.actual_qty, oo.created_at
	         FROM flow_order_operations oo
	         JOIN flow_operations o ON o.id = oo.operation_id
	         JOIN flow_orders ord ON ord.id = oo.order_id
	         WHERE ord.status <> 'done'
	         ORDER BY oo.order_id, oo.created_at, oo.id`

	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("%s: ошибка получения операций: %w", op, err)
	}
	defer rows.Close()

	var ops []*storage.OrderOperation
	for rows.Next() {
		var oo storage.OrderOperation
		err := rows.Scan(&oo.ID, &oo.OrderID, &oo.OperationID, &oo.Category, &oo.SewerID,
			&oo.FloorID, &oo.Status, &oo.PlannedQty, &oo.ActualQty, &oo.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("%s: ошибка сканирования строк: %w", op, err)
		}
		ops = append(ops, &oo)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: ошибка сканирования строк: %w", op, err)
	}

	return ops, nil
}

func (s *Storage) getVariants(ctx context.Context, operationID int64) ([]storage.Variant, error) {
	const op = "storage.mysql.getVariants"

	stmt := `SELECT id, color, size, planned_qty, actual_qty
	         FROM flow_operation_variants WHERE order_operation_id = ? ORDER BY id`

	rows, err := s.db.QueryContext(ctx, stmt, operationID)
	if err != nil {
		return nil, fmt.Errorf("%s: ошибка получения вариантов: %w", op, err)
	}
	defer rows.Close()

	var variants []storage.Variant
	for rows.Next() {
		var v storage.Variant
		if err := rows.Scan(&v.ID, &v.Color, &v.Size, &v.PlannedQty, &v.ActualQty); err != nil {
			return nil, fmt.Errorf("%s: ошибка сканирования строк: %w", op, err)
		}
		variants = append(variants, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: ошибка сканирования строк: %w", op, err)
	}

	return variants, nil
}
