package mysql

import (
	"context"
	"fmt"
	"sewing-flow/internal/storage"
)

// SumFloorCapacity — суммарная дневная мощность швей этажа: все швеи,
// закреплённые за технологами этого этажа в цехе.
func (s *Storage) SumFloorCapacity(ctx context.Context, workshopID int64, floorID int) (int, error) {
	const op = "storage.mysql.SumFloorCapacity"

	stmt := `SELECT COALESCE(SUM(sw.capacity_per_day), 0)
	         FROM flow_sewers sw
	         JOIN flow_technologists t ON t.id = sw.technologist_id
	         WHERE t.workshop_id = ? AND t.floor_id = ? AND sw.is_active = TRUE`

	var total int
	err := s.db.QueryRowContext(ctx, stmt, workshopID, floorID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("%s: ошибка суммирования мощности этажа: %w", op, err)
	}

	return total, nil
}

// SumWorkshopCapacity — мощность всего цеха, для одноэтажных цехов без этажа.
func (s *Storage) SumWorkshopCapacity(ctx context.Context, workshopID int64) (int, error) {
	const op = "storage.mysql.SumWorkshopCapacity"

	stmt := `SELECT COALESCE(SUM(sw.capacity_per_day), 0)
	         FROM flow_sewers sw
	         JOIN flow_technologists t ON t.id = sw.technologist_id
	         WHERE t.workshop_id = ? AND sw.is_active = TRUE`

	var total int
	err := s.db.QueryRowContext(ctx, stmt, workshopID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("%s: ошибка суммирования мощности цеха: %w", op, err)
	}

	return total, nil
}

// GetSewers — активные швеи, опционально по цеху.
func (s *Storage) GetSewers(ctx context.Context, workshopID int64) ([]storage.Sewer, error) {
	const op = "storage.mysql.GetSewers"

	baseQuery := `SELECT sw.id, sw.name, sw.technologist_id, t.floor_id, sw.capacity_per_day
	              FROM flow_sewers sw
	              JOIN flow_technologists t ON t.id = sw.technologist_id
	              WHERE sw.is_active = TRUE`

	var query string
	var args []interface{}

	if workshopID > 0 {
		query = baseQuery + ` AND t.workshop_id = ? ORDER BY sw.name ASC`
		args = append(args, workshopID)
	} else {
		query = baseQuery + ` ORDER BY sw.name ASC`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: ошибка получения швей: %w", op, err)
	}
	defer rows.Close()

	var sewers []storage.Sewer
	for rows.Next() {
		var sw storage.Sewer
		err := rows.Scan(&sw.ID, &sw.Name, &sw.TechnologistID, &sw.FloorID, &sw.CapacityPerDay)
		if err != nil {
			return nil, fmt.Errorf("%s: ошибка сканирования строк: %w", op, err)
		}
		sewers = append(sewers, sw)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: ошибка сканирования строк: %w", op, err)
	}

	return sewers, nil
}
