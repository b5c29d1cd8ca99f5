package advisory

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a financial consultant for small food businesses.
Answer in Brazilian Portuguese with short, concrete recommendations: where
costs can be cut, how prices could change and which products deserve focus.`

func buildPrompt(r Request) string {
	var b strings.Builder
	writeBreakdown := func(title string, bd Breakdown) {
		fmt.Fprintf(&b, "%s (total R$ %s):\n", title, bd.Total.StringFixed(2))
		for _, it := range bd.Items {
			name := it.Name
			if name == "" {
				name = "Uncategorized"
			}
			fmt.Fprintf(&b, "- %s: R$ %s\n", name, it.Amount.StringFixed(2))
		}
		b.WriteString("\n")
	}
	writeBreakdown("Revenues", r.Revenues)
	writeBreakdown("Expenses", r.Expenses)
	fmt.Fprintf(&b, "Pricing strategy:\n%s\n", strings.TrimSpace(r.PricingStrategy))
	if recipes := strings.TrimSpace(r.Recipes); recipes != "" {
		fmt.Fprintf(&b, "\nProducts and recipes:\n%s\n", recipes)
	}
	return b.String()
}
