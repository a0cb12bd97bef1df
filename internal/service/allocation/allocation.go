package allocation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"sewing-flow/internal/service/capacity"
	"sewing-flow/internal/service/formula"
	"sewing-flow/internal/storage"
)

type AllocStorage interface {
	GetOrder(ctx context.Context, id int64) (*storage.Order, error)
	GetWorkshop(ctx context.Context, id int64) (*storage.Workshop, error)
	GetPlanDays(ctx context.Context, scope storage.PlanScope) ([]storage.ProductionPlanDay, error)
	ReplacePlanDays(ctx context.Context, scope storage.PlanScope, days []storage.ProductionPlanDay) error
}

type Service struct {
	storage  AllocStorage
	capacity *capacity.Resolver
}

func NewService(storage AllocStorage, capacity *capacity.Resolver) *Service {
	return &Service{storage: storage, capacity: capacity}
}

type ApplyRequest struct {
	WorkshopID   int64
	OrderID      int64
	FloorID      int
	From         time.Time
	To           time.Time
	PlannedTotal int
	Formula      formula.Input
}

type ApplyResult struct {
	DaysApplied     int     `json:"days_applied"`
	CapacityPercent float64 `json:"capacity_percent"`
	CapacitySource  string  `json:"capacity_source"`
}

// Projection — проверка вместимости периода без записи плана.
type Projection struct {
	PeriodDays      int     `json:"period_days"`
	PlannedTotal    int     `json:"planned_total_in_period"`
	CapacityTotal   int     `json:"capacity_total_in_period"`
	CapacityOK      bool    `json:"capacity_ok"`
	CapacityPercent float64 `json:"capacity_percent"`
	CapacitySource  string  `json:"capacity_source"`
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func periodDays(from, to time.Time) int {
	return int(day(to).Sub(day(from)).Hours()/24) + 1
}

// BuildPlanDays раскладывает объём по дням жадно слева направо: каждый день
// получает min(мощность, остаток), хвост периода может остаться нулевым.
// Балансировки по дням нет — так считает ПЭО.
func BuildPlanDays(total int, dailyCapacity float64, from, to time.Time) ([]storage.ProductionPlanDay, error) {
	if total <= 0 {
		return nil, &storage.ValidationError{Param: "planned_total", Reason: "должен быть > 0"}
	}

	period := periodDays(from, to)
	if period <= 0 {
		return nil, &storage.ValidationError{Param: "period", Reason: "дата окончания раньше даты начала"}
	}

	perDay := int(math.Floor(dailyCapacity))
	if perDay <= 0 {
		return nil, &storage.ValidationError{Param: "daily_capacity", Reason: "должна быть > 0"}
	}

	capacityTotal := perDay * period
	if total > capacityTotal {
		return nil, &storage.CapacityInsufficientError{PlannedTotal: total, CapacityTotal: capacityTotal}
	}

	days := make([]storage.ProductionPlanDay, 0, period)
	remaining := total
	current := day(from)
	for i := 0; i < period; i++ {
		put := perDay
		if remaining < put {
			put = remaining
		}
		days = append(days, storage.ProductionPlanDay{Day: current, PlannedQty: put})
		remaining -= put
		current = current.AddDate(0, 0, 1)
	}

	return days, nil
}

func capacityPercent(total, capacityTotal int) float64 {
	if capacityTotal == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(total) * 100).
		DivRound(decimal.NewFromInt(int64(capacityTotal)), 2).
		InexactFloat64()
}

// resolveScope проверяет заказ, цех и этаж и нормализует область плана.
func (s *Service) resolveScope(ctx context.Context, orderID, workshopID int64, floorID int, from, to time.Time) (storage.PlanScope, error) {
	if _, err := s.storage.GetOrder(ctx, orderID); err != nil {
		return storage.PlanScope{}, err
	}

	ws, err := s.storage.GetWorkshop(ctx, workshopID)
	if err != nil {
		return storage.PlanScope{}, err
	}

	switch ws.FloorsCount {
	case 1:
		// Одноэтажный цех: этаж в плане всегда пустой
		floorID = storage.FloorNone
	default:
		if floorID < 1 || floorID > ws.FloorsCount {
			return storage.PlanScope{}, &storage.ValidationError{
				Param:  "floor_id",
				Reason: fmt.Sprintf("этаж должен быть в диапазоне [1,%d]", ws.FloorsCount),
			}
		}
	}

	return storage.PlanScope{
		OrderID:    orderID,
		WorkshopID: workshopID,
		FloorID:    floorID,
		From:       day(from),
		To:         day(to),
	}, nil
}

// Apply рассчитывает и фиксирует дневной план области, замещая прежний.
// Проверка прав — до открытия транзакции.
func (s *Service) Apply(ctx context.Context, principal storage.Principal, req ApplyRequest) (*ApplyResult, error) {
	const op = "service.allocation.Apply"

	if !principal.Elevated() {
		if principal.Role != storage.RoleTechnologist {
			return nil, &storage.AuthorizationError{Reason: "применять план могут только руководитель или технолог"}
		}
		if principal.FloorID != req.FloorID {
			return nil, &storage.AuthorizationError{Reason: "технолог может планировать только свой этаж"}
		}
	}

	scope, err := s.resolveScope(ctx, req.OrderID, req.WorkshopID, req.FloorID, req.From, req.To)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var direct float64
	if req.Formula.Mode != "" {
		calc, err := formula.Calculate(req.Formula)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		direct = calc.DirectCapacity
	}

	daily, source, err := s.capacity.Resolve(ctx, scope.WorkshopID, scope.FloorID, direct, capacity.PurposeApply)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	days, err := BuildPlanDays(req.PlannedTotal, daily, scope.From, scope.To)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i := range days {
		days[i].OrderID = scope.OrderID
		days[i].WorkshopID = scope.WorkshopID
		days[i].FloorID = scope.FloorID
	}

	if err := s.storage.ReplacePlanDays(ctx, scope, days); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	capacityTotal := int(math.Floor(daily)) * len(days)

	return &ApplyResult{
		DaysApplied:     len(days),
		CapacityPercent: capacityPercent(req.PlannedTotal, capacityTotal),
		CapacitySource:  string(source),
	}, nil
}

// Project — та же математика, но без записи: сколько период вмещает
// и насколько он занят.
func (s *Service) Project(ctx context.Context, req ApplyRequest) (*Projection, error) {
	const op = "service.allocation.Project"

	scope, err := s.resolveScope(ctx, req.OrderID, req.WorkshopID, req.FloorID, req.From, req.To)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	period := periodDays(scope.From, scope.To)
	if period <= 0 {
		return nil, &storage.ValidationError{Param: "period", Reason: "дата окончания раньше даты начала"}
	}

	var direct float64
	if req.Formula.Mode != "" {
		calc, err := formula.Calculate(req.Formula)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		direct = calc.DirectCapacity
	}

	daily, source, err := s.capacity.Resolve(ctx, scope.WorkshopID, scope.FloorID, direct, capacity.PurposePlan)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	planned := req.PlannedTotal
	if planned == 0 {
		// Объём не передан — берём уже запланированное в периоде
		existing, err := s.storage.GetPlanDays(ctx, scope)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		for _, d := range existing {
			planned += d.PlannedQty
		}
	}

	capacityTotal := int(math.Floor(daily)) * period

	return &Projection{
		PeriodDays:      period,
		PlannedTotal:    planned,
		CapacityTotal:   capacityTotal,
		CapacityOK:      planned <= capacityTotal,
		CapacityPercent: capacityPercent(planned, capacityTotal),
		CapacitySource:  string(source),
	}, nil
}
