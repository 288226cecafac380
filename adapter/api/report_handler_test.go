package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	reportingdomain "github.com/timelens/timelens/internal/reporting/domain"
)

type mockReportService struct {
	mock.Mock
}

func (m *mockReportService) BuildReport(ctx context.Context, userID uuid.UUID, start, end time.Time) (*reportingdomain.Report, error) {
	args := m.Called(ctx, userID, start, end)
	if report := args.Get(0); report != nil {
		return report.(*reportingdomain.Report), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestReportHandler_Get(t *testing.T) {
	userID := uuid.New()

	t.Run("requires start and end", func(t *testing.T) {
		service := new(mockReportService)
		handler := NewReportHandler(service, nil, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/report", nil)
		rec := httptest.NewRecorder()

		handler.Get(rec, req, userID)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		service.AssertNotCalled(t, "BuildReport")
	})

	t.Run("builds the report for the requested range", func(t *testing.T) {
		service := new(mockReportService)
		handler := NewReportHandler(service, nil, nil, nil)

		start := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 0, 7)
		service.On("BuildReport", mock.Anything, userID, start, end).Return(&reportingdomain.Report{
			Period:       reportingdomain.Period{Start: "2026-08-24", End: "2026-08-31"},
			TotalMinutes: 120,
		}, nil)

		url := "/api/report?start=" + start.Format(time.RFC3339) + "&end=" + end.Format(time.RFC3339)
		req := httptest.NewRequest(http.MethodGet, url, nil)
		rec := httptest.NewRecorder()

		handler.Get(rec, req, userID)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"totalMinutes":120`)
		service.AssertExpectations(t)
	})

	t.Run("rejects an inverted range", func(t *testing.T) {
		service := new(mockReportService)
		handler := NewReportHandler(service, nil, nil, nil)

		start := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
		url := "/api/report?start=" + start.Format(time.RFC3339) + "&end=" + start.AddDate(0, 0, -1).Format(time.RFC3339)
		req := httptest.NewRequest(http.MethodGet, url, nil)
		rec := httptest.NewRecorder()

		handler.Get(rec, req, userID)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		service.AssertNotCalled(t, "BuildReport")
	})
}
