package ai

import (
	"context"
	"time"

	"julianmorley.ca/con-plar/purchases/pkg/models"
)

// AIReportResponse represents the structure of AI-generated reports
type AIReportResponse struct {
	Status      string     `json:"status"`
	Data        ReportData `json:"data"`
	GeneratedAt time.Time  `json:"generated_at"`
	AIEnabled   bool       `json:"ai_enabled"`
}

type ReportData struct {
	RawData    interface{} `json:"raw_data"`
	AIInsights string      `json:"ai_insights,omitempty"`
	Summary    string      `json:"summary"`
	Error      string      `json:"error,omitempty"`
}

// GeneratePurchaseInsights wraps a shopper's order statistics in a report,
// adding a narrative when AI is enabled. AI failures are reported in the
// body, never returned.
func (c *Client) GeneratePurchaseInsights(ctx context.Context, stats *models.OrderStats) *AIReportResponse {
	response := &AIReportResponse{
		Status:      "success",
		GeneratedAt: time.Now().UTC(),
		AIEnabled:   c.IsEnabled(),
		Data: ReportData{
			RawData: stats,
			Summary: "Raw order statistics (AI insights unavailable)",
		},
	}
	if !c.IsEnabled() {
		return response
	}

	insights, err := c.complete(ctx, PurchaseInsightsSystemPrompt, formatOrderStatsPrompt(stats))
	if err != nil {
		response.Data.Error = "AI analysis failed: " + err.Error()
		return response
	}
	response.Data.AIInsights = insights
	response.Data.Summary = "AI-generated purchase insights"
	return response
}
