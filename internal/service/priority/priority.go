package priority

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"sewing-flow/internal/service/chain"
	"sewing-flow/internal/storage"
)

type PriorityStorage interface {
	GetActiveOrders(ctx context.Context) ([]*storage.Order, error)
	GetActiveOrderOperations(ctx context.Context) ([]*storage.OrderOperation, error)
	SumCompletedQtySince(ctx context.Context, since time.Time) (map[storage.Category]int, error)
}

type Service struct {
	storage PriorityStorage
}

func NewService(storage PriorityStorage) *Service {
	return &Service{storage: storage}
}

// Risk — грубая классификация для интерфейса.
type Risk string

const (
	RiskHigh    Risk = "HIGH"
	RiskMedium  Risk = "MEDIUM"
	RiskLow     Risk = "LOW"
	RiskUnknown Risk = "UNKNOWN"
)

type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepBlocked    StepStatus = "blocked"
	StepDone       StepStatus = "done"
)

// OrderRanking — строка триажа: чем выше балл, тем раньше заказ должен
// получить внимание. Балл нигде не хранится, считается на каждый запрос.
type OrderRanking struct {
	OrderID    int64      `json:"order_id"`
	Step       string     `json:"step"`
	StepStatus StepStatus `json:"step_status"`
	Score      float64    `json:"score"`
	Risk       Risk       `json:"risk"`
	Remaining  int        `json:"remaining"`
	Deadline   *time.Time `json:"deadline,omitempty"`
	Overdue    bool       `json:"overdue"`
}

type StepLoad struct {
	Step              string  `json:"step"`
	Pending           int     `json:"pending"`
	InProgress        int     `json:"in_progress"`
	Blocked           int     `json:"blocked"`
	QueueDepth        int     `json:"queue_depth"`
	ThroughputPerHour float64 `json:"throughput_per_hour"`
	Severity          string  `json:"severity"`
}

type MoveSuggestion struct {
	FromStep    string `json:"from_step"`
	ToStep      string `json:"to_step"`
	Reason      string `json:"reason"`
	FinishFloor int    `json:"finish_floor,omitempty"`
	FloorSource string `json:"floor_source,omitempty"`
}

type Recommendations struct {
	TopRisks        []OrderRanking   `json:"top_risks"`
	MoveSuggestions []MoveSuggestion `json:"move_suggestions"`
}

var steps = []storage.Category{storage.CategoryCutting, storage.CategorySewing, storage.CategoryFinish}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// currentOperation — первая незакрытая операция заказа в порядке создания;
// если все закрыты, а заказ ещё не закрыт — последняя.
func currentOperation(ops []*storage.OrderOperation) *storage.OrderOperation {
	if len(ops) == 0 {
		return nil
	}
	for _, op := range ops {
		if op.Status != storage.OpDone {
			return op
		}
	}
	return ops[len(ops)-1]
}

func stepStatusOf(op *storage.OrderOperation, siblings []*storage.OrderOperation) StepStatus {
	switch op.Status {
	case storage.OpDone:
		return StepDone
	case storage.OpInProgress:
		return StepInProgress
	default:
		if chain.CheckDependencies(op, siblings, storage.OpInProgress) != nil {
			return StepBlocked
		}
		return StepPending
	}
}

// ScoreOrder — чистый расчёт балла одного заказа. Слагаемые и их пороги
// согласованы с диспетчерами; ярусы дедлайна взаимоисключающие, первым
// срабатывает самый срочный.
func ScoreOrder(order *storage.Order, ops []*storage.OrderOperation, depths map[storage.Category]int, maxDepth int, today time.Time) OrderRanking {
	ranking := OrderRanking{OrderID: order.ID}

	current := currentOperation(ops)
	if current == nil {
		ranking.Risk = RiskUnknown
		return ranking
	}

	ranking.Step = string(current.Category)
	ranking.StepStatus = stepStatusOf(current, ops)

	var score float64

	if order.HasDeadline {
		deadline := day(order.Deadline)
		ranking.Deadline = &order.Deadline
		daysLeft := int(deadline.Sub(day(today)).Hours() / 24)
		switch {
		case deadline.Before(day(today)):
			ranking.Overdue = true
			score += 100
		case daysLeft <= 1:
			score += 50
		case daysLeft <= 3:
			score += 30
		case daysLeft <= 7:
			score += 15
		}
	}

	remaining := order.TotalQty - current.ActualQty
	if remaining < 0 {
		remaining = 0
	}
	ranking.Remaining = remaining

	if current.Category == storage.CategoryFinish && remaining > 0 {
		score += 20
	}

	switch ranking.StepStatus {
	case StepBlocked:
		score += 25
	case StepInProgress:
		score += 10
	}

	if order.TotalQty > 0 {
		term := float64(remaining) / float64(order.TotalQty) * 20
		if term > 20 {
			term = 20
		}
		score += term
	}

	if maxDepth > 0 {
		term := float64(depths[current.Category]) / float64(maxDepth) * 30
		if term > 30 {
			term = 30
		}
		score += term
	}

	ranking.Score = round2(score)

	switch {
	case !order.HasDeadline:
		ranking.Risk = RiskUnknown
	case ranking.Overdue || ranking.Score >= 120:
		ranking.Risk = RiskHigh
	case ranking.Score >= 70:
		ranking.Risk = RiskMedium
	default:
		ranking.Risk = RiskLow
	}

	return ranking
}

func queueDepths(ops []*storage.OrderOperation, since time.Time) map[storage.Category]int {
	depths := make(map[storage.Category]int)
	for _, op := range ops {
		if op.Status == storage.OpDone || op.CreatedAt.Before(since) {
			continue
		}
		depths[op.Category]++
	}
	return depths
}

func maxDepth(depths map[storage.Category]int) int {
	max := 0
	for _, d := range depths {
		if d > max {
			max = d
		}
	}
	return max
}

func (s *Service) fetch(ctx context.Context) ([]*storage.Order, map[int64][]*storage.OrderOperation, []*storage.OrderOperation, error) {
	var (
		orders []*storage.Order
		ops    []*storage.OrderOperation
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.storage.GetActiveOrders(gCtx)
		if err != nil {
			return fmt.Errorf("orders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		ops, err = s.storage.GetActiveOrderOperations(gCtx)
		if err != nil {
			return fmt.Errorf("operations: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	byOrder := make(map[int64][]*storage.OrderOperation)
	for _, op := range ops {
		byOrder[op.OrderID] = append(byOrder[op.OrderID], op)
	}

	return orders, byOrder, ops, nil
}

// GetPriority — ранжированный триаж незакрытых заказов. Сортировка
// стабильная: при равном балле порядок выдачи хранилища сохраняется.
func (s *Service) GetPriority(ctx context.Context, daysWindow, limit int) ([]OrderRanking, error) {
	const op = "service.priority.GetPriority"

	if daysWindow <= 0 {
		daysWindow = 7
	}

	orders, byOrder, ops, err := s.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	today := time.Now()
	since := day(today).AddDate(0, 0, -daysWindow)
	depths := queueDepths(ops, since)
	max := maxDepth(depths)

	rankings := make([]OrderRanking, 0, len(orders))
	for _, order := range orders {
		rankings = append(rankings, ScoreOrder(order, byOrder[order.ID], depths, max, today))
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].Score > rankings[j].Score
	})

	if limit > 0 && len(rankings) > limit {
		rankings = rankings[:limit]
	}

	return rankings, nil
}

// BottleneckMap — загрузка стадий за хвостовое окно: очереди и фактическая
// пропускная способность.
func (s *Service) BottleneckMap(ctx context.Context, daysWindow int) ([]StepLoad, error) {
	const op = "service.priority.BottleneckMap"

	if daysWindow <= 0 {
		daysWindow = 7
	}

	today := time.Now()
	since := day(today).AddDate(0, 0, -daysWindow)

	var (
		ops       []*storage.OrderOperation
		completed map[storage.Category]int
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ops, err = s.storage.GetActiveOrderOperations(gCtx)
		if err != nil {
			return fmt.Errorf("operations: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		completed, err = s.storage.SumCompletedQtySince(gCtx, since)
		if err != nil {
			return fmt.Errorf("completed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	windowHours := float64(daysWindow) * 24

	loads := make([]StepLoad, 0, len(steps))
	for _, step := range steps {
		load := StepLoad{Step: string(step)}

		for _, operation := range ops {
			if operation.Category != step || operation.CreatedAt.Before(since) {
				continue
			}
			switch operation.Status {
			case storage.OpInProgress:
				load.InProgress++
			case storage.OpPending:
				siblings := make([]*storage.OrderOperation, 0)
				for _, sib := range ops {
					if sib.OrderID == operation.OrderID {
						siblings = append(siblings, sib)
					}
				}
				if stepStatusOf(operation, siblings) == StepBlocked {
					load.Blocked++
				} else {
					load.Pending++
				}
			}
		}

		load.QueueDepth = load.Pending + load.InProgress + load.Blocked
		load.ThroughputPerHour = round2(float64(completed[step]) / windowHours)

		switch {
		case load.QueueDepth > 10:
			load.Severity = "high"
		case load.QueueDepth > 0:
			load.Severity = "normal"
		default:
			load.Severity = "low data"
		}

		loads = append(loads, load)
	}

	return loads, nil
}

// GetRecommendations — верх триажа плюс подсказки о переброске людей
// между стадиями при перекосе очередей.
func (s *Service) GetRecommendations(ctx context.Context, daysWindow int) (*Recommendations, error) {
	const op = "service.priority.GetRecommendations"

	rankings, err := s.GetPriority(ctx, daysWindow, 5)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	loads, err := s.BottleneckMap(ctx, daysWindow)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rec := &Recommendations{}
	for _, r := range rankings {
		if r.Risk == RiskHigh || r.Risk == RiskMedium {
			rec.TopRisks = append(rec.TopRisks, r)
		}
	}

	// Перекос: очередь одной стадии вдвое больше другой
	var busiest, calmest *StepLoad
	for i := range loads {
		if busiest == nil || loads[i].QueueDepth > busiest.QueueDepth {
			busiest = &loads[i]
		}
		if calmest == nil || loads[i].QueueDepth < calmest.QueueDepth {
			calmest = &loads[i]
		}
	}

	if busiest != nil && calmest != nil && busiest.Step != calmest.Step &&
		busiest.QueueDepth > 0 && busiest.QueueDepth >= 2*calmest.QueueDepth {
		suggestion := MoveSuggestion{
			FromStep: calmest.Step,
			ToStep:   busiest.Step,
			Reason: fmt.Sprintf("очередь стадии %s (%d) минимум вдвое больше очереди %s (%d)",
				busiest.Step, busiest.QueueDepth, calmest.Step, calmest.QueueDepth),
		}

		// Этаж отделки — первая попавшаяся операция отделки с этажом.
		// Семантика при нескольких этажах отделки не подтверждена, поэтому
		// источник выбора помечаем явно.
		if busiest.Step == string(storage.CategoryFinish) {
			ops, err := s.storage.GetActiveOrderOperations(ctx)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			for _, operation := range ops {
				if operation.Category == storage.CategoryFinish && operation.FloorID != storage.FloorNone {
					suggestion.FinishFloor = operation.FloorID
					suggestion.FloorSource = "first_match"
					break
				}
			}
		}

		rec.MoveSuggestions = append(rec.MoveSuggestions, suggestion)
	}

	return rec, nil
}
