// Package render produces the HTML body of the report email.
package render

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/timelens/timelens/internal/reporting/domain"
)

const reportTemplate = `<!DOCTYPE html>
<html>
<body style="margin: 0; padding: 0; background-color: #f3f4f6; font-family: -apple-system, 'Segoe UI', Roboto, 'Hiragino Sans', sans-serif;">
  <div style="max-width: 600px; margin: 0 auto; padding: 24px;">
    <div style="background-color: #ffffff; border-radius: 8px; padding: 32px;">
      <h1 style="margin: 0 0 4px; font-size: 20px; color: #111827;">Weekly Time Report</h1>
      <p style="margin: 0 0 24px; font-size: 13px; color: #6b7280;">{{.Period.Start}} 〜 {{.Period.End}}</p>

      <div style="background-color: #eff6ff; border-radius: 8px; padding: 16px; margin-bottom: 24px; text-align: center;">
        <div style="font-size: 12px; color: #6b7280;">総時間</div>
        <div style="font-size: 28px; font-weight: bold; color: #1d4ed8;">{{formatMinutes .TotalMinutes}}</div>
        <div style="font-size: 12px; color: #6b7280;">{{.EventCount}}件のイベント</div>
      </div>

      <table style="width: 100%; border-collapse: collapse;">
        {{- range .Categories}}
        <tr style="border-bottom: 1px solid #e5e7eb;">
          <td style="padding: 8px 0;">
            <span style="display: inline-block; width: 12px; height: 12px; border-radius: 50%; background-color: {{.Color}}; margin-right: 8px;"></span>
            <span style="font-size: 14px; color: #111827;">{{.Name}}</span>
          </td>
          <td style="padding: 8px 0; text-align: right; font-size: 14px; color: #111827;">{{formatMinutes .Minutes}}</td>
          <td style="padding: 8px 0 8px 12px; text-align: right; font-size: 13px; color: #6b7280; width: 48px;">{{formatPercent .Percentage}}%</td>
        </tr>
        {{- end}}
      </table>

      <p style="margin: 24px 0 0; font-size: 12px; color: #9ca3af;">このメールは毎週自動送信されています。配信設定はアプリから変更できます。</p>
    </div>
  </div>
</body>
</html>
`

// HTMLRenderer renders a report into the email body.
type HTMLRenderer struct {
	template *template.Template
}

// NewHTMLRenderer creates the renderer.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		template: template.Must(template.New("report").Funcs(template.FuncMap{
			"formatMinutes": FormatMinutes,
			"formatPercent": formatPercent,
		}).Parse(reportTemplate)),
	}
}

// Render produces the HTML email body for a report.
func (r *HTMLRenderer) Render(report *domain.Report) (string, error) {
	var b strings.Builder
	if err := r.template.Execute(&b, report); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return b.String(), nil
}

// FormatMinutes renders a duration as hours and minutes in Japanese.
func FormatMinutes(minutes int) string {
	hours := minutes / 60
	rest := minutes % 60

	switch {
	case hours == 0:
		return fmt.Sprintf("%d分", rest)
	case rest == 0:
		return fmt.Sprintf("%d時間", hours)
	default:
		return fmt.Sprintf("%d時間%d分", hours, rest)
	}
}

func formatPercent(value float64) string {
	return fmt.Sprintf("%.1f", value)
}
