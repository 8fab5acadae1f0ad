package ai

import (
	"fmt"
	"strings"

	"julianmorley.ca/con-plar/purchases/pkg/models"
)

const PurchaseInsightsSystemPrompt = `You are a friendly shopping assistant for an online store.
Summarise a shopper's order history for them in plain language:
- How much they have ordered and spent, and what is still awaiting confirmation
- Notable patterns such as frequent cancellations
- One or two practical suggestions
Amounts are given in dollars. Keep it to one short paragraph.`

// formatOrderStatsPrompt renders stats as the user message of the insights prompt.
func formatOrderStatsPrompt(stats *models.OrderStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total items ordered: %d\n", stats.TotalItems)
	fmt.Fprintf(&b, "Total spent (excluding cancelled): %s\n", formatAmount(stats.TotalSpent))
	b.WriteString("By status:\n")
	if len(stats.ByStatus) == 0 {
		b.WriteString("- no orders yet\n")
	}
	for _, st := range stats.ByStatus {
		fmt.Fprintf(&b, "- %s: %d order lines, %d items, %s\n", st.Status, st.Count, st.Items, formatAmount(st.TotalSpent))
	}
	return b.String()
}

// formatAmount renders minor units as dollars.
func formatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s$%d.%02d", sign, minor/100, minor%100)
}
