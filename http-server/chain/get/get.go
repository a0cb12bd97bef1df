package get

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"sewing-flow/http-server/httperr"
	"sewing-flow/internal/service/chain"
)

type ChainReader interface {
	OrderStates(ctx context.Context, orderID int64) ([]chain.OperationState, error)
}

// GetOrderChain — операции заказа с готовностью (canStart/canComplete).
// Готовность считается тем же предикатом, что и сама смена статуса.
func GetOrderChain(log *slog.Logger, reader ChainReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.chain.GetOrderChain"

		idStr := chi.URLParam(r, "orderID")
		orderID, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid ID", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		states, err := reader.OrderStates(ctx, orderID)
		if err != nil {
			httperr.Write(log, w, r, op, err)
			return
		}

		render.JSON(w, r, states)
	}
}
