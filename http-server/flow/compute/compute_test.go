package compute

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"sewing-flow/internal/service/allocation"
)

type MockFlowProjector struct {
	mock.Mock
}

func (m *MockFlowProjector) Project(ctx context.Context, req allocation.ApplyRequest) (*allocation.Projection, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocation.Projection), args.Error(1)
}

// Тест: чистый расчёт без проекции
func TestComputeFlow_FormulaOnly(t *testing.T) {
	mockProjector := new(MockFlowProjector)
	handler := ComputeFlow(slog.Default(), mockProjector)

	body := `{"mode":"BY_SHIFT_CAPACITY","shift_hours":8,"msm":100}`
	req := httptest.NewRequest(http.MethodPost, "/api/flow/compute", strings.NewReader(body))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	err := render.DecodeJSON(strings.NewReader(rr.Body.String()), &resp)
	assert.NoError(t, err)

	assert.Equal(t, 28800.0, resp["r"])
	assert.Equal(t, 288.0, resp["t"])
	assert.NotEmpty(t, resp["notes"])
	assert.NotContains(t, resp, "projection")

	// Без области планирования проекция не считается
	mockProjector.AssertNotCalled(t, "Project")
}

// Тест: расчёт с проекцией на период
func TestComputeFlow_WithProjection(t *testing.T) {
	mockProjector := new(MockFlowProjector)

	mockProjector.On("Project", mock.Anything, mock.Anything).
		Return(&allocation.Projection{
			PeriodDays:      3,
			PlannedTotal:    250,
			CapacityTotal:   300,
			CapacityOK:      true,
			CapacityPercent: 83.33,
			CapacitySource:  "formula",
		}, nil)

	handler := ComputeFlow(slog.Default(), mockProjector)

	body := `{"mode":"BY_SHIFT_CAPACITY","shift_hours":8,"msm":100,
		"workshop_id":2,"order_id":7,"from":"2026-03-01","to":"2026-03-03","planned_total_ui":250}`
	req := httptest.NewRequest(http.MethodPost, "/api/flow/compute", strings.NewReader(body))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		R          float64                `json:"r"`
		Projection *allocation.Projection `json:"projection"`
	}
	err := render.DecodeJSON(strings.NewReader(rr.Body.String()), &resp)
	assert.NoError(t, err)

	assert.Equal(t, 28800.0, resp.R)
	assert.NotNil(t, resp.Projection)
	assert.True(t, resp.Projection.CapacityOK)
	assert.Equal(t, 83.33, resp.Projection.CapacityPercent)

	mockProjector.AssertExpectations(t)
}

// Тест: неизвестный режим расчёта — 400
func TestComputeFlow_BadMode(t *testing.T) {
	mockProjector := new(MockFlowProjector)
	handler := ComputeFlow(slog.Default(), mockProjector)

	body := `{"mode":"BY_MAGIC"}`
	req := httptest.NewRequest(http.MethodPost, "/api/flow/compute", strings.NewReader(body))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	mockProjector.AssertNotCalled(t, "Project")
}

// Тест: битый JSON — 400
func TestComputeFlow_BadJSON(t *testing.T) {
	handler := ComputeFlow(slog.Default(), new(MockFlowProjector))

	req := httptest.NewRequest(http.MethodPost, "/api/flow/compute", strings.NewReader("{"))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// Тест: неверная дата при запросе проекции — 400
func TestComputeFlow_BadDate(t *testing.T) {
	mockProjector := new(MockFlowProjector)
	handler := ComputeFlow(slog.Default(), mockProjector)

	body := `{"mode":"BY_SHIFT_CAPACITY","msm":100,
		"workshop_id":2,"order_id":7,"from":"01.03.2026","to":"2026-03-03"}`
	req := httptest.NewRequest(http.MethodPost, "/api/flow/compute", strings.NewReader(body))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	mockProjector.AssertNotCalled(t, "Project")
}
