package render

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timelens/timelens/internal/reporting/domain"
)

func TestFormatMinutes(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "0分"},
		{45, "45分"},
		{60, "1時間"},
		{90, "1時間30分"},
		{600, "10時間"},
		{605, "10時間5分"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMinutes(tt.minutes))
	}
}

func TestHTMLRenderer_Render(t *testing.T) {
	renderer := NewHTMLRenderer()

	t.Run("renders period, totals, and category rows", func(t *testing.T) {
		report := &domain.Report{
			Period:       domain.Period{Start: "2026-08-24", End: "2026-08-31"},
			TotalMinutes: 150,
			EventCount:   3,
			Categories: []domain.CategoryTotal{
				{ID: uuid.New(), Name: "Meetings", Color: "#3b82f6", Minutes: 90, Percentage: 60},
				{ID: uuid.New(), Name: "Focus", Color: "#22c55e", Minutes: 60, Percentage: 40},
			},
		}

		html, err := renderer.Render(report)

		require.NoError(t, err)
		assert.Contains(t, html, "Weekly Time Report")
		assert.Contains(t, html, "2026-08-24 〜 2026-08-31")
		assert.Contains(t, html, "2時間30分")
		assert.Contains(t, html, "3件のイベント")
		assert.Contains(t, html, "Meetings")
		assert.Contains(t, html, "#3b82f6")
		assert.Contains(t, html, "60.0%")
		assert.Contains(t, html, "1時間")
	})

	t.Run("escapes category names", func(t *testing.T) {
		report := &domain.Report{
			Period: domain.Period{Start: "2026-08-24", End: "2026-08-31"},
			Categories: []domain.CategoryTotal{
				{ID: uuid.New(), Name: "<script>alert(1)</script>", Color: "#3b82f6"},
			},
		}

		html, err := renderer.Render(report)

		require.NoError(t, err)
		assert.NotContains(t, html, "<script>alert(1)</script>")
	})
}
