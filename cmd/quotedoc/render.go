package main

import (
	"bytes"
	"fmt"

	"github.com/ndlib/quotedoc/quote"
)

// textRenderer is the built-in renderer. It formats quotes as plain text.
// Deployments wanting PDF output embed the server package with their own
// Renderer instead.
//
// Rendering must be deterministic, so nothing here may depend on the time
// of rendering or on any field outside the quote content.
type textRenderer struct{}

func (_ textRenderer) Render(q *quote.Quote, variant string) ([]byte, string, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Quote %s\n\n", q.ID)
	if q.Intro != "" {
		fmt.Fprintf(&buf, "%s\n\n", q.Intro)
	}
	for _, item := range q.Items {
		fmt.Fprintf(&buf, "%4d x %-40s %s\n",
			item.Quantity,
			item.Description,
			cents(item.PriceCents))
		if variant == "internal" {
			for _, tag := range item.RiskTags {
				fmt.Fprintf(&buf, "       [%s]\n", tag)
			}
		}
	}
	fmt.Fprintf(&buf, "\nTotal: %s\n", cents(q.TotalCents))
	if q.Notes != "" {
		fmt.Fprintf(&buf, "\n%s\n", q.Notes)
	}
	return buf.Bytes(), "text/plain; charset=utf-8", nil
}

func cents(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	return fmt.Sprintf("%s%d.%02d", sign, n/100, n%100)
}
