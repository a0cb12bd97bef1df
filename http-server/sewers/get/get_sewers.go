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

type SewerReader interface {
	GetSewers(ctx context.Context, workshopID int64) ([]storage.Sewer, error)
}

// GetSewers — активные швеи с дневной мощностью. По ним резолвер считает
// мощность этажа, поэтому список полезен для сверки.
func GetSewers(log *slog.Logger, reader SewerReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.sewers.GetSewers"

		workshopID, _ := strconv.ParseInt(r.URL.Query().Get("workshop_id"), 10, 64)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		sewers, err := reader.GetSewers(ctx, workshopID)
		if err != nil {
			httperr.Write(log, w, r, op, err)
			return
		}

		render.JSON(w, r, sewers)
	}
}
