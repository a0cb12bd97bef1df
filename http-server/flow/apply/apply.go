package apply

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"sewing-flow/http-server/httperr"
	"sewing-flow/internal/middleware/auth"
	"sewing-flow/internal/service/allocation"
	"sewing-flow/internal/service/formula"
	"sewing-flow/internal/storage"
)

type PlanApplier interface {
	Apply(ctx context.Context, principal storage.Principal, req allocation.ApplyRequest) (*allocation.ApplyResult, error)
}

type Req struct {
	WorkshopID   int64         `json:"workshop_id"`
	OrderID      int64         `json:"order_id"`
	FloorID      int           `json:"floor_id"`
	From         string        `json:"from"` // 2006-01-02
	To           string        `json:"to"`
	PlannedTotal int           `json:"planned_total"`
	Formula      formula.Input `json:"formula"`
}

// ApplyAllocation фиксирует дневной план области. При нехватке мощности
// отказывает целиком — частичного плана не бывает.
func ApplyAllocation(log *slog.Logger, applier PlanApplier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.flow.ApplyAllocation"

		principal, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req Req
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Некорректный JSON", http.StatusBadRequest)
			return
		}

		from, err := time.Parse("2006-01-02", req.From)
		if err != nil {
			http.Error(w, "Неверный формат даты 'from'", http.StatusBadRequest)
			return
		}
		to, err := time.Parse("2006-01-02", req.To)
		if err != nil {
			http.Error(w, "Неверный формат даты 'to'", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		result, err := applier.Apply(ctx, principal, allocation.ApplyRequest{
			WorkshopID:   req.WorkshopID,
			OrderID:      req.OrderID,
			FloorID:      req.FloorID,
			From:         from,
			To:           to,
			PlannedTotal: req.PlannedTotal,
			Formula:      req.Formula,
		})
		if err != nil {
			httperr.Write(log, w, r, op, err)
			return
		}

		log.Info("План применён",
			slog.Int64("order_id", req.OrderID),
			slog.Int64("workshop_id", req.WorkshopID),
			slog.Int("days", result.DaysApplied),
		)

		render.JSON(w, r, result)
	}
}
