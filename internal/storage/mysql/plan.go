package mysql

import (
	"context"
	"fmt"
	"sewing-flow/internal/storage"
)

// GetPlanDays — строки плана по области (заказ, цех, этаж, диапазон дат).
func (s *Storage) GetPlanDays(ctx context.Context, scope storage.PlanScope) ([]storage.ProductionPlanDay, error) {
	const op = "storage.mysql.GetPlanDays"

	stmt := `SELECT id, order_id, workshop_id, floor_id, day, planned_qty, actual_qty
	         FROM flow_plan_days
	         WHERE order_id = ? AND workshop_id = ? AND floor_id = ? AND day BETWEEN ? AND ?
	         ORDER BY day`

	rows, err := s.db.QueryContext(ctx, stmt, scope.OrderID, scope.WorkshopID, scope.FloorID, scope.From, scope.To)
	if err != nil {
		return nil, fmt.Errorf("%s: ошибка получения плана: %w", op, err)
	}
	defer rows.Close()

	var days []storage.ProductionPlanDay
	for rows.Next() {
		var d storage.ProductionPlanDay
		err := rows.Scan(&d.ID, &d.OrderID, &d.WorkshopID, &d.FloorID, &d.Day, &d.PlannedQty, &d.ActualQty)
		if err != nil {
			return nil, fmt.Errorf("%s: ошибка сканирования строк: %w", op, err)
		}
		days = append(days, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: ошибка сканирования строк: %w", op, err)
	}

	return days, nil
}

// ReplacePlanDays замещает план области целиком: в одной транзакции
// снимаем записанный факт со старых строк (FOR UPDATE сериализует
// конкурирующие перепланирования той же области), удаляем их и вставляем
// новые строки с перенесённым фактом. Любая ошибка откатывает всё.
func (s *Storage) ReplacePlanDays(ctx context.Context, scope storage.PlanScope, days []storage.ProductionPlanDay) error {
	const op = "storage.mysql.ReplacePlanDays"

	stmtSelect := `SELECT day, actual_qty FROM flow_plan_days
	               WHERE order_id = ? AND workshop_id = ? AND floor_id = ? AND day BETWEEN ? AND ?
	               FOR UPDATE`
	stmtDelete := `DELETE FROM flow_plan_days
	               WHERE order_id = ? AND workshop_id = ? AND floor_id = ? AND day BETWEEN ? AND ?`
	stmtInsert := `INSERT INTO flow_plan_days (order_id, workshop_id, floor_id, day, planned_qty, actual_qty)
	               VALUES (?, ?, ?, ?, ?, ?)`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: старт транзакции: %w", op, err)
	}
	defer tx.Rollback()

	// Снимаем факт со старых строк
	rows, err := tx.QueryContext(ctx, stmtSelect, scope.OrderID, scope.WorkshopID, scope.FloorID, scope.From, scope.To)
	if err != nil {
		return fmt.Errorf("%s: ошибка чтения старого плана: %w", op, err)
	}

	existing := make(map[string]int)
	for rows.Next() {
		var d storage.ProductionPlanDay
		if err := rows.Scan(&d.Day, &d.ActualQty); err != nil {
			rows.Close()
			return fmt.Errorf("%s: ошибка сканирования строк: %w", op, err)
		}
		existing[storage.DayKey(d.Day)] = d.ActualQty
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("%s: ошибка сканирования строк: %w", op, err)
	}
	rows.Close()

	// Удаляем старые строки
	_, err = tx.ExecContext(ctx, stmtDelete, scope.OrderID, scope.WorkshopID, scope.FloorID, scope.From, scope.To)
	if err != nil {
		return fmt.Errorf("%s: ошибка удаления старого плана: %w", op, err)
	}

	// Вставляем новые с перенесённым фактом
	storage.MergeActualQty(days, existing)

	prepareInsert, err := tx.PrepareContext(ctx, stmtInsert)
	if err != nil {
		return fmt.Errorf("%s: ошибка подготовки вставки: %w", op, err)
	}
	defer prepareInsert.Close()

	for _, d := range days {
		_, err := prepareInsert.ExecContext(ctx, scope.OrderID, scope.WorkshopID, scope.FloorID, d.Day, d.PlannedQty, d.ActualQty)
		if err != nil {
			return fmt.Errorf("%s: ошибка вставки строки плана на %s: %w", op, storage.DayKey(d.Day), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: ошибка завершения транзакции: %w", op, err)
	}

	return nil
}
