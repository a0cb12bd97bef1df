package storage

import (
	"fmt"
	"strings"
)

// Ошибки ядра. Хендлеры разбирают их через errors.As и отдают разные статусы,
// поэтому каждая категория — отдельный тип, а не текст.

type ValidationError struct {
	Param  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("некорректный параметр %q: %s", e.Param, e.Reason)
}

type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("доступ запрещён: %s", e.Reason)
}

type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s с id=%d не найден", e.Entity, e.ID)
}

// CapacityInsufficientError — входы по отдельности корректны, но суммарная
// мощность периода меньше запрошенного объёма. Обе цифры отдаём вызывающему,
// чтобы он мог поправить запрос без повторного расчёта.
type CapacityInsufficientError struct {
	PlannedTotal  int
	CapacityTotal int
}

func (e *CapacityInsufficientError) Error() string {
	return fmt.Sprintf("недостаточно мощности: запрошено %d при доступных %d", e.PlannedTotal, e.CapacityTotal)
}

// ChainDependencyError — переход заблокирован незавершённой предыдущей стадией.
type ChainDependencyError struct {
	MissingCategory Category
}

func (e *ChainDependencyError) Error() string {
	return fmt.Sprintf("переход заблокирован: не завершены операции стадии %q", e.MissingCategory)
}

type VariantMismatch struct {
	Color      string `json:"color"`
	Size       string `json:"size"`
	PlannedQty int    `json:"planned_qty"`
	ActualQty  int    `json:"actual_qty"`
}

// CompletionMismatchError — факт по вариантам не совпал с планом при закрытии.
type CompletionMismatchError struct {
	Mismatches []VariantMismatch
}

func (e *CompletionMismatchError) Error() string {
	parts := make([]string, 0, len(e.Mismatches))
	for _, m := range e.Mismatches {
		parts = append(parts, fmt.Sprintf("%s/%s: план %d, факт %d", m.Color, m.Size, m.PlannedQty, m.ActualQty))
	}
	return "нельзя завершить операцию, расхождения по вариантам: " + strings.Join(parts, "; ")
}
