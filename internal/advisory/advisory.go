// Package advisory asks an external model for recommendations on a
// financial snapshot.
package advisory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Line is one named subtotal.
type Line struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Breakdown is a list of subtotals and their total.
type Breakdown struct {
	Items []Line          `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// NewBreakdown builds a breakdown whose total is the sum of items.
func NewBreakdown(items []Line) Breakdown {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	return Breakdown{Items: items, Total: total}
}

type Request struct {
	Revenues        Breakdown `json:"revenues"`
	Expenses        Breakdown `json:"expenses"`
	PricingStrategy string    `json:"pricingStrategy"`
	Recipes         string    `json:"recipes,omitempty"`
}

type Response struct {
	Recommendations string `json:"recommendations"`
}

// Advisor returns recommendations for a request, or an *InvalidInputError
// or *UpstreamError.
type Advisor interface {
	Advise(ctx context.Context, req Request) (Response, error)
}

// InvalidInputError reports a request that was not sent upstream.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string {
	return "invalid advisory input: " + e.Message
}

// UpstreamError reports a failure of the advisory collaborator. The
// caller may retry.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("advisory upstream failure: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

func IsInvalidInput(err error) bool {
	var ie *InvalidInputError
	return errors.As(err, &ie)
}

// Validate requires non-negative amounts and a pricing strategy.
func (r Request) Validate() error {
	var msgs []string
	check := func(name string, b Breakdown) {
		if b.Total.IsNegative() {
			msgs = append(msgs, name+" total must not be negative")
		}
		for _, it := range b.Items {
			if it.Amount.IsNegative() {
				msgs = append(msgs, fmt.Sprintf("%s %q must not be negative", name, it.Name))
			}
		}
	}
	check("revenues", r.Revenues)
	check("expenses", r.Expenses)
	if strings.TrimSpace(r.PricingStrategy) == "" {
		msgs = append(msgs, "pricing strategy is required")
	}
	if len(msgs) > 0 {
		return &InvalidInputError{Message: strings.Join(msgs, ", ")}
	}
	return nil
}
