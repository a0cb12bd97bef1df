package get

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"

	"sewing-flow/http-server/httperr"
	"sewing-flow/internal/storage"
)

type PlanReader interface {
	GetPlanDays(ctx context.Context, scope storage.PlanScope) ([]storage.ProductionPlanDay, error)
}

// GetPlanDays — строки дневного плана по области.
func GetPlanDays(log *slog.Logger, reader PlanReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.plan.GetPlanDays"

		orderID, err := strconv.ParseInt(r.URL.Query().Get("order_id"), 10, 64)
		if err != nil {
			http.Error(w, "Некорректный order_id", http.StatusBadRequest)
			return
		}
		workshopID, err := strconv.ParseInt(r.URL.Query().Get("workshop_id"), 10, 64)
		if err != nil {
			http.Error(w, "Некорректный workshop_id", http.StatusBadRequest)
			return
		}
		floorID, _ := strconv.Atoi(r.URL.Query().Get("floor_id"))

		parseDate := func(raw string, def time.Time) (time.Time, error) {
			if raw == "" {
				return def, nil
			}
			return time.Parse("2006-01-02", raw)
		}

		// По умолчанию — текущий месяц
		now := time.Now()
		startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		endOfMonth := startOfMonth.AddDate(0, 1, -1)

		from, err := parseDate(r.URL.Query().Get("from"), startOfMonth)
		if err != nil {
			http.Error(w, "Неверный формат даты 'from'", http.StatusBadRequest)
			return
		}
		to, err := parseDate(r.URL.Query().Get("to"), endOfMonth)
		if err != nil {
			http.Error(w, "Неверный формат даты 'to'", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		days, err := reader.GetPlanDays(ctx, storage.PlanScope{
			OrderID:    orderID,
			WorkshopID: workshopID,
			FloorID:    floorID,
			From:       from,
			To:         to,
		})
		if err != nil {
			httperr.Write(log, w, r, op, err)
			return
		}

		render.JSON(w, r, days)
	}
}
