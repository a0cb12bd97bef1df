package compute

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"sewing-flow/http-server/httperr"
	"sewing-flow/internal/service/allocation"
	"sewing-flow/internal/service/formula"
)

type FlowProjector interface {
	Project(ctx context.Context, req allocation.ApplyRequest) (*allocation.Projection, error)
}

type Req struct {
	formula.Input

	// Необязательная проекция на период — без записи плана
	WorkshopID   int64  `json:"workshop_id"`
	OrderID      int64  `json:"order_id"`
	FloorID      int    `json:"floor_id"`
	From         string `json:"from"` // 2006-01-02
	To           string `json:"to"`
	PlannedTotal int    `json:"planned_total_ui"`
}

type Resp struct {
	*formula.Result
	Projection *allocation.Projection `json:"projection,omitempty"`
}

// ComputeFlow — расчёт потока, при наличии области планирования дополняется
// проекцией вместимости периода. Ничего не пишет.
func ComputeFlow(log *slog.Logger, projector FlowProjector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.flow.ComputeFlow"

		var req Req
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Некорректный JSON", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		result, err := formula.Calculate(req.Input)
		if err != nil {
			httperr.Write(log, w, r, op, err)
			return
		}

		resp := Resp{Result: result}

		if req.WorkshopID > 0 && req.OrderID > 0 && req.From != "" && req.To != "" {
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

			projection, err := projector.Project(ctx, allocation.ApplyRequest{
				WorkshopID:   req.WorkshopID,
				OrderID:      req.OrderID,
				FloorID:      req.FloorID,
				From:         from,
				To:           to,
				PlannedTotal: req.PlannedTotal,
				Formula:      req.Input,
			})
			if err != nil {
				httperr.Write(log, w, r, op, err)
				return
			}
			resp.Projection = projection
		}

		render.JSON(w, r, resp)
	}
}
