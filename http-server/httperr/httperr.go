package httperr

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"sewing-flow/internal/storage"
)

// Write разбирает ошибку ядра и отдаёт клиенту правильный статус.
// Категории различаются типами, чтобы фронт мог рисовать их по-разному;
// всё неопознанное — 500 без деталей.
func Write(log *slog.Logger, w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		validationErr *storage.ValidationError
		authErr       *storage.AuthorizationError
		notFoundErr   *storage.NotFoundError
		capacityErr   *storage.CapacityInsufficientError
		chainErr      *storage.ChainDependencyError
		mismatchErr   *storage.CompletionMismatchError
	)

	switch {
	case errors.As(err, &validationErr):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]interface{}{"error": validationErr.Error(), "param": validationErr.Param})
	case errors.As(err, &authErr):
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, map[string]interface{}{"error": authErr.Error()})
	case errors.As(err, &notFoundErr):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]interface{}{"error": notFoundErr.Error()})
	case errors.As(err, &capacityErr):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, map[string]interface{}{
			"error":          capacityErr.Error(),
			"planned_total":  capacityErr.PlannedTotal,
			"capacity_total": capacityErr.CapacityTotal,
		})
	case errors.As(err, &chainErr):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, map[string]interface{}{
			"error":            chainErr.Error(),
			"missing_category": chainErr.MissingCategory,
		})
	case errors.As(err, &mismatchErr):
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, map[string]interface{}{
			"error":      mismatchErr.Error(),
			"mismatches": mismatchErr.Mismatches,
		})
	default:
		log.Error("Внутренняя ошибка", slog.String("op", op), slog.String("error", err.Error()))
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
	}
}
