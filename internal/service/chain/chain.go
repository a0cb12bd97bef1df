package chain

import (
	"context"
	"fmt"

	"sewing-flow/internal/storage"
)

type ChainStorage interface {
	BeginChainTx(ctx context.Context) (storage.ChainTx, error)
	GetOrderOperations(ctx context.Context, orderID int64) ([]*storage.OrderOperation, error)
}

type Service struct {
	storage ChainStorage
}

func NewService(storage ChainStorage) *Service {
	return &Service{storage: storage}
}

// CheckDependencies — ЕДИНСТВЕННАЯ проверка межстадийных зависимостей.
// Её используют и мутация статуса (внутри транзакции), и read-only расчёт
// готовности, и скоринг приоритетов. Второй реализации быть не должно,
// иначе интерфейс и база разойдутся во мнениях.
//
// Правила: пошив закрывается только после закрытия всего раскроя; отделка
// начинается и закрывается только после закрытия раскроя и пошива. Стадия
// без операций считается выполненной.
func CheckDependencies(op *storage.OrderOperation, siblings []*storage.OrderOperation, target storage.OpStatus) error {
	categoryDone := func(cat storage.Category) bool {
		for _, sib := range siblings {
			if sib.ID == op.ID {
				continue
			}
			if sib.Category == cat && sib.Status != storage.OpDone {
				return false
			}
		}
		return true
	}

	switch op.Category {
	case storage.CategorySewing:
		if target == storage.OpDone && !categoryDone(storage.CategoryCutting) {
			return &storage.ChainDependencyError{MissingCategory: storage.CategoryCutting}
		}
	case storage.CategoryFinish:
		if target == storage.OpInProgress || target == storage.OpDone {
			if !categoryDone(storage.CategoryCutting) {
				return &storage.ChainDependencyError{MissingCategory: storage.CategoryCutting}
			}
			if !categoryDone(storage.CategorySewing) {
				return &storage.ChainDependencyError{MissingCategory: storage.CategorySewing}
			}
		}
	}

	return nil
}

// CheckCompletion — ворота закрытия операции. С вариантами факт каждой
// строки обязан точно совпасть с планом (перевыполнение блокирует так же,
// как недовыполнение); без вариантов достаточно факта не меньше плана.
func CheckCompletion(op *storage.OrderOperation) error {
	if len(op.Variants) == 0 {
		if op.ActualQty < op.PlannedQty {
			return &storage.ValidationError{
				Param:  "actual_qty",
				Reason: fmt.Sprintf("факт %d меньше плана %d", op.ActualQty, op.PlannedQty),
			}
		}
		return nil
	}

	var mismatches []storage.VariantMismatch
	for _, v := range op.Variants {
		if v.ActualQty != v.PlannedQty {
			mismatches = append(mismatches, storage.VariantMismatch{
				Color: v.Color, Size: v.Size, PlannedQty: v.PlannedQty, ActualQty: v.ActualQty,
			})
		}
	}
	if len(mismatches) > 0 {
		return &storage.CompletionMismatchError{Mismatches: mismatches}
	}

	return nil
}

// actualTotal — итоговый факт операции при закрытии: сумма фактов по
// вариантам, либо сырой факт, если вариантов нет.
func actualTotal(op *storage.OrderOperation) int {
	if len(op.Variants) == 0 {
		return op.ActualQty
	}
	total := 0
	for _, v := range op.Variants {
		total += v.ActualQty
	}
	return total
}

// checkTransition — допустимость самого перехода для роли.
// Обычные роли ходят только вперёд и только на шаг; откат из done —
// привилегия руководителя.
func checkTransition(principal storage.Principal, current, target storage.OpStatus) error {
	switch {
	case current == storage.OpPending && target == storage.OpInProgress:
		return nil
	case current == storage.OpInProgress && target == storage.OpDone:
		return nil
	case current == storage.OpPending && target == storage.OpDone:
		return &storage.ValidationError{Param: "status", Reason: "нельзя завершить операцию сразу из ожидания"}
	case current == storage.OpDone && (target == storage.OpInProgress || target == storage.OpPending):
		if !principal.Elevated() {
			return &storage.AuthorizationError{Reason: "откат завершённой операции доступен только руководителю"}
		}
		return nil
	default:
		return &storage.ValidationError{
			Param:  "status",
			Reason: fmt.Sprintf("переход %s → %s не предусмотрен", current, target),
		}
	}
}

// TransitionStatus переводит операцию в целевой статус. Зависимости и ворота
// закрытия проверяются в той же транзакции, что и запись.
func (s *Service) TransitionStatus(ctx context.Context, principal storage.Principal, operationID int64, target storage.OpStatus) (*storage.OrderOperation, error) {
	const op = "service.chain.TransitionStatus"

	if target != storage.OpPending && target != storage.OpInProgress && target != storage.OpDone {
		return nil, &storage.ValidationError{Param: "status", Reason: fmt.Sprintf("неизвестный статус %q", target)}
	}

	tx, err := s.storage.BeginChainTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	operation, err := tx.GetOperation(ctx, operationID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if principal.Role == storage.RoleTechnologist && principal.FloorID != operation.FloorID {
		return nil, &storage.AuthorizationError{Reason: "технолог управляет операциями только своего этажа"}
	}

	if err := checkTransition(principal, operation.Status, target); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	siblings, err := tx.Siblings(ctx, operation.OrderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := CheckDependencies(operation, siblings, target); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	total := operation.ActualQty
	if target == storage.OpDone {
		if err := CheckCompletion(operation); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		total = actualTotal(operation)
	}

	if err := tx.UpdateStatus(ctx, operationID, target, total); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: ошибка завершения транзакции: %w", op, err)
	}

	operation.Status = target
	operation.ActualQty = total

	return operation, nil
}

type VariantUpdate struct {
	VariantID int64 `json:"variant_id"`
	ActualQty int   `json:"actual_qty"`
}

// UpdateVariants обновляет факт по вариантам пачкой. Сначала проверяются
// границы всех строк, потом пишутся все — частичной записи не бывает.
func (s *Service) UpdateVariants(ctx context.Context, principal storage.Principal, operationID int64, updates []VariantUpdate) error {
	const op = "service.chain.UpdateVariants"

	if len(updates) == 0 {
		return &storage.ValidationError{Param: "updates", Reason: "пустой список обновлений"}
	}

	tx, err := s.storage.BeginChainTx(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	operation, err := tx.GetOperation(ctx, operationID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if principal.Role == storage.RoleTechnologist && principal.FloorID != operation.FloorID {
		return &storage.AuthorizationError{Reason: "технолог управляет операциями только своего этажа"}
	}

	byID := make(map[int64]storage.Variant, len(operation.Variants))
	for _, v := range operation.Variants {
		byID[v.ID] = v
	}

	// Проверяем всю пачку до первой записи
	for _, u := range updates {
		v, ok := byID[u.VariantID]
		if !ok {
			return &storage.NotFoundError{Entity: "вариант", ID: u.VariantID}
		}
		if u.ActualQty < 0 || u.ActualQty > v.PlannedQty {
			return &storage.ValidationError{
				Param:  "actual_qty",
				Reason: fmt.Sprintf("вариант %s/%s: факт %d вне диапазона [0,%d]", v.Color, v.Size, u.ActualQty, v.PlannedQty),
			}
		}
	}

	for _, u := range updates {
		if err := tx.UpdateVariantActual(ctx, u.VariantID, u.ActualQty); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: ошибка завершения транзакции: %w", op, err)
	}

	return nil
}

// OperationState — готовность операции для интерфейса.
type OperationState struct {
	Operation   *storage.OrderOperation `json:"operation"`
	CanStart    bool                    `json:"can_start"`
	CanComplete bool                    `json:"can_complete"`
	BlockReason string                  `json:"block_reason,omitempty"`
}

// EvaluateStates считает canStart/canComplete тем же предикатом, что и
// мутация.
func EvaluateStates(ops []*storage.OrderOperation) []OperationState {
	states := make([]OperationState, 0, len(ops))
	for _, operation := range ops {
		st := OperationState{Operation: operation}

		switch operation.Status {
		case storage.OpPending:
			if err := CheckDependencies(operation, ops, storage.OpInProgress); err != nil {
				st.BlockReason = err.Error()
			} else {
				st.CanStart = true
			}
		case storage.OpInProgress:
			if err := CheckDependencies(operation, ops, storage.OpDone); err != nil {
				st.BlockReason = err.Error()
			} else if err := CheckCompletion(operation); err != nil {
				st.BlockReason = err.Error()
			} else {
				st.CanComplete = true
			}
		}

		states = append(states, st)
	}

	return states
}

// OrderStates — операции заказа с готовностью, read-only путь.
func (s *Service) OrderStates(ctx context.Context, orderID int64) ([]OperationState, error) {
	const op = "service.chain.OrderStates"

	ops, err := s.storage.GetOrderOperations(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return EvaluateStates(ops), nil
}
