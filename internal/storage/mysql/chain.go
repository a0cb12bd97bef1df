package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sewing-flow/internal/storage"
)

// ChainTx — реализация транзакционного снимка цепочки поверх *sql.Tx.
// Все чтения идут с FOR UPDATE, чтобы два параллельных закрытия операций
// одного заказа не проскочили проверку зависимостей.
type ChainTx struct {
	tx *sql.Tx
}

func (s *Storage) BeginChainTx(ctx context.Context) (storage.ChainTx, error) {
	const op = "storage.mysql.BeginChainTx"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: старт транзакции: %w", op, err)
	}

	return &ChainTx{tx: tx}, nil
}

func (c *ChainTx) Commit() error {
	return c.tx.Commit()
}

func (c *ChainTx) Rollback() error {
	return c.tx.Rollback()
}

func (c *ChainTx) GetOperation(ctx context.Context, id int64) (*storage.OrderOperation, error) {
	const op = "storage.mysql.ChainTx.GetOperation"

	stmt := `SELECT oo.id, oo.order_id, oo.operation_id, o.category, oo.sewer_id, oo.floor_id,
	                oo.status, oo.planned_qty, oo.actual_qty, oo.created_at
	         FROM flow_order_operations oo
	         JOIN flow_operations o ON o.id = oo.operation_id
	         WHERE oo.id = ?
	         FOR UPDATE`

	var oo storage.OrderOperation
	err := c.tx.QueryRowContext(ctx, stmt, id).Scan(&oo.ID, &oo.OrderID, &oo.OperationID, &oo.Category,
		&oo.SewerID, &oo.FloorID, &oo.Status, &oo.PlannedQty, &oo.ActualQty, &oo.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &storage.NotFoundError{Entity: "операция", ID: id}
		}
		return nil, fmt.Errorf("%s: ошибка получения операции: %w", op, err)
	}

	variants, err := c.variants(ctx, oo.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	oo.Variants = variants

	return &oo, nil
}

func (c *ChainTx) Siblings(ctx context.Context, orderID int64) ([]*storage.OrderOperation, error) {
	const op = "storage.mysql.ChainTx.Siblings"

	stmt := `SELECT oo.id, oo.order_id, oo.operation_id, o.category, oo.sewer_id, oo.floor_id,
	                oo.status, oo.planned_qty, oo.actual_qty, oo.created_at
	         FROM flow_order_operations oo
	         JOIN flow_operations o ON o.id = oo.operation_id
	         WHERE oo.order_id = ?
	         ORDER BY oo.created_at, oo.id
	         FOR UPDATE`

	rows, err := c.tx.QueryContext(ctx, stmt, orderID)
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

	return ops, nil
}

func (c *ChainTx) UpdateStatus(ctx context.Context, id int64, status storage.OpStatus, actualTotal int) error {
	const op = "storage.mysql.ChainTx.UpdateStatus"

	var err error
	if status == storage.OpDone {
		stmt := `UPDATE flow_order_operations SET status = ?, actual_qty = ?, completed_at = ? WHERE id = ?`
		_, err = c.tx.ExecContext(ctx, stmt, status, actualTotal, time.Now(), id)
	} else {
		stmt := `UPDATE flow_order_operations SET status = ?, completed_at = NULL WHERE id = ?`
		_, err = c.tx.ExecContext(ctx, stmt, status, id)
	}
	if err != nil {
		return fmt.Errorf("%s: ошибка обновления статуса операции %d: %w", op, id, err)
	}

	return nil
}

func (c *ChainTx) UpdateVariantActual(ctx context.Context, variantID int64, actualQty int) error {
	const op = "storage.mysql.ChainTx.UpdateVariantActual"

	stmt := `UPDATE flow_operation_variants SET actual_qty = ? WHERE id = ?`

	_, err := c.tx.ExecContext(ctx, stmt, actualQty, variantID)
	if err != nil {
		return fmt.Errorf("%s: ошибка обновления варианта %d: %w", op, variantID, err)
	}

	return nil
}

func (c *ChainTx) variants(ctx context.Context, operationID int64) ([]storage.Variant, error) {
	const op = "storage.mysql.ChainTx.variants"

	stmt := `SELECT id, color, size, planned_qty, actual_qty
	         FROM flow_operation_variants WHERE order_operation_id = ? ORDER BY id
	         FOR UPDATE`

	rows, err := c.tx.QueryContext(ctx, stmt, operationID)
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

// SumCompletedQtySince — выпуск по стадиям за окно, для расчёта пропускной
// способности в карте узких мест.
func (s *Storage) SumCompletedQtySince(ctx context.Context, since time.Time) (map[storage.Category]int, error) {
	const op = "storage.mysql.SumCompletedQtySince"

	stmt := `SELECT o.category, COALESCE(SUM(oo.actual_qty), 0)
	         FROM flow_order_operations oo
	         JOIN flow_operations o ON o.id = oo.operation_id
	         WHERE oo.status = 'done' AND oo.completed_at >= ?
	         GROUP BY o.category`

	rows, err := s.db.QueryContext(ctx, stmt, since)
	if err != nil {
		return nil, fmt.Errorf("%s: ошибка получения выпуска по стадиям: %w", op, err)
	}
	defer rows.Close()

	totals := make(map[storage.Category]int)
	for rows.Next() {
		var cat storage.Category
		var qty int
		if err := rows.Scan(&cat, &qty); err != nil {
			return nil, fmt.Errorf("%s: ошибка сканирования строк: %w", op, err)
		}
		totals[cat] = qty
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: ошибка сканирования строк: %w", op, err)
	}

	return totals, nil
}
