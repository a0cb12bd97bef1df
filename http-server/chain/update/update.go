package update

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"sewing-flow/http-server/httperr"
	"sewing-flow/internal/middleware/auth"
	"sewing-flow/internal/service/chain"
	"sewing-flow/internal/storage"
)

type ChainUpdater interface {
	TransitionStatus(ctx context.Context, principal storage.Principal, operationID int64, target storage.OpStatus) (*storage.OrderOperation, error)
	UpdateVariants(ctx context.Context, principal storage.Principal, operationID int64, updates []chain.VariantUpdate) error
}

// UpdateOperationStatus — смена статуса операции с проверкой цепочки
// раскрой → пошив → отделка и ворот закрытия.
func UpdateOperationStatus(log *slog.Logger, updater ChainUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.chain.UpdateOperationStatus"

		principal, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		idStr := chi.URLParam(r, "id")
		operationID, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid ID", http.StatusBadRequest)
			return
		}

		var req struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Некорректный JSON", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		operation, err := updater.TransitionStatus(ctx, principal, operationID, storage.OpStatus(req.Status))
		if err != nil {
			httperr.Write(log, w, r, op, err)
			return
		}

		log.Info("Статус операции обновлён",
			slog.Int64("operation_id", operationID),
			slog.String("status", req.Status),
		)

		render.JSON(w, r, operation)
	}
}

// UpdateOperationVariants — пакетное обновление факта по вариантам.
// Любое нарушение границ отклоняет всю пачку.
func UpdateOperationVariants(log *slog.Logger, updater ChainUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.chain.UpdateOperationVariants"

		principal, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		idStr := chi.URLParam(r, "id")
		operationID, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid ID", http.StatusBadRequest)
			return
		}

		var req struct {
			Updates []chain.VariantUpdate `json:"updates"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Некорректный JSON", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := updater.UpdateVariants(ctx, principal, operationID, req.Updates); err != nil {
			httperr.Write(log, w, r, op, err)
			return
		}

		render.JSON(w, r, map[string]interface{}{"updated": len(req.Updates)})
	}
}
