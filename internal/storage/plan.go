package storage

import "time"

// ProductionPlanDay — строка дневного плана: сколько единиц заказа цех (этаж)
// должен выпустить в конкретную дату. ActualQty пишет производственная
// отчётность, планировщик его только сохраняет при перепланировании.
type ProductionPlanDay struct {
	ID         int64     `json:"id"`
	OrderID    int64     `json:"order_id"`
	WorkshopID int64     `json:"workshop_id"`
	FloorID    int       `json:"floor_id"` // FloorNone для одноэтажного цеха
	Day        time.Time `json:"day"`
	PlannedQty int       `json:"planned_qty"`
	ActualQty  int       `json:"actual_qty"`
}

// PlanScope — область действия одного перепланирования: ровно те строки,
// которые оно замещает.
type PlanScope struct {
	OrderID    int64
	WorkshopID int64
	FloorID    int
	From       time.Time
	To         time.Time
}

// DayKey — ключ дня для сверки строк плана между собой.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// MergeActualQty переносит ранее записанный факт в новые строки плана.
// Вызывается внутри транзакции замещения, чтобы перепланирование не теряло
// уже отчитанное производство.
func MergeActualQty(days []ProductionPlanDay, existing map[string]int) {
	for i := range days {
		if actual, ok := existing[DayKey(days[i].Day)]; ok {
			days[i].ActualQty = actual
		}
	}
}
