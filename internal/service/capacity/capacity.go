package capacity

import (
	"context"
	"fmt"

	"sewing-flow/internal/storage"
)

type CapacityStorage interface {
	GetWorkshop(ctx context.Context, id int64) (*storage.Workshop, error)
	SumFloorCapacity(ctx context.Context, workshopID int64, floorID int) (int, error)
	SumWorkshopCapacity(ctx context.Context, workshopID int64) (int, error)
}

// Source — откуда взята цифра мощности, уходит в ответ для прозрачности.
type Source string

const (
	SourceFormula Source = "formula"
	SourceSewers  Source = "sewers"
	SourceDefault Source = "default"
)

// Purpose выбирает константу-заглушку: прогноз и применение плана
// исторически используют разные дефолты (см. config).
type Purpose int

const (
	PurposePlan Purpose = iota
	PurposeApply
)

type Resolver struct {
	storage      CapacityStorage
	defaultPlan  int
	defaultApply int
}

func NewResolver(storage CapacityStorage, defaultPlan, defaultApply int) *Resolver {
	return &Resolver{storage: storage, defaultPlan: defaultPlan, defaultApply: defaultApply}
}

// Resolve определяет дневную мощность области планирования.
// Приоритет: прямая цифра из расчёта потока → сумма мощностей швей →
// сконфигурированный дефолт.
func (r *Resolver) Resolve(ctx context.Context, workshopID int64, floorID int, direct float64, purpose Purpose) (float64, Source, error) {
	const op = "service.capacity.Resolve"

	if direct > 0 {
		return direct, SourceFormula, nil
	}

	ws, err := r.storage.GetWorkshop(ctx, workshopID)
	if err != nil {
		return 0, "", fmt.Errorf("%s: %w", op, err)
	}

	var sum int
	switch {
	case floorID != storage.FloorNone:
		sum, err = r.storage.SumFloorCapacity(ctx, workshopID, floorID)
	case ws.FloorsCount == 1:
		sum, err = r.storage.SumWorkshopCapacity(ctx, workshopID)
	default:
		return 0, "", &storage.ValidationError{Param: "floor_id", Reason: "для многоэтажного цеха нужен явный этаж"}
	}
	if err != nil {
		return 0, "", fmt.Errorf("%s: %w", op, err)
	}

	if sum > 0 {
		return float64(sum), SourceSewers, nil
	}

	// Швеи по этажу не заведены — берём константу
	fallback := r.defaultPlan
	if purpose == PurposeApply {
		fallback = r.defaultApply
	}

	return float64(fallback), SourceDefault, nil
}
