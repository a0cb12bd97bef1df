package get

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"

	"sewing-flow/http-server/httperr"
	"sewing-flow/internal/service/priority"
)

type PriorityReader interface {
	GetPriority(ctx context.Context, daysWindow, limit int) ([]priority.OrderRanking, error)
	BottleneckMap(ctx context.Context, daysWindow int) ([]priority.StepLoad, error)
	GetRecommendations(ctx context.Context, daysWindow int) (*priority.Recommendations, error)
}

func intQuery(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// GetPriority — ранжированный список заказов для диспетчера.
func GetPriority(log *slog.Logger, reader PriorityReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.priority.GetPriority"

		daysWindow := intQuery(r, "days_window", 7)
		limit := intQuery(r, "limit", 20)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		rankings, err := reader.GetPriority(ctx, daysWindow, limit)
		if err != nil {
			httperr.Write(log, w, r, op, err)
			return
		}

		render.JSON(w, r, rankings)
	}
}

// GetBottleneckMap — загрузка стадий за хвостовое окно.
func GetBottleneckMap(log *slog.Logger, reader PriorityReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.priority.GetBottleneckMap"

		daysWindow := intQuery(r, "days_window", 7)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		loads, err := reader.BottleneckMap(ctx, daysWindow)
		if err != nil {
			httperr.Write(log, w, r, op, err)
			return
		}

		render.JSON(w, r, loads)
	}
}

// GetRecommendations — главные риски и подсказки о переброске людей.
func GetRecommendations(log *slog.Logger, reader PriorityReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.priority.GetRecommendations"

		daysWindow := intQuery(r, "days_window", 7)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		rec, err := reader.GetRecommendations(ctx, daysWindow)
		if err != nil {
			httperr.Write(log, w, r, op, err)
			return
		}

		render.JSON(w, r, rec)
	}
}
