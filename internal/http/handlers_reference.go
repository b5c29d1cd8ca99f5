package http

import (
	"context"
	"net/http"

	"fluxo/internal/core"
	"fluxo/internal/log"
)

// listHandler serves a reference collection as a JSON array.
func listHandler[T, V any](list func(context.Context) ([]T, error), view func(T) V) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := list(r.Context())
		if err != nil {
			writeServiceError(w, r, log.OpList, err)
			return
		}
		NewJSONResponse().Data(mapSlice(items, view)).Write(w)
	}
}

// createHandler decodes P, converts it with build and stores the result
// with create.
func createHandler[P, T, V any](build func(P, *core.ValidationError) T, create func(context.Context, T) (T, error), view func(T) V) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p P
		if err := decodeJSON(w, r, &p); err != nil {
			payloadError(w, r, log.OpCreate, err)
			return
		}
		v := &core.ValidationError{}
		item := build(p, v)
		if err := v.OrNil(); err != nil {
			writeServiceError(w, r, log.OpCreate, err)
			return
		}
		saved, err := create(r.Context(), item)
		if err != nil {
			writeServiceError(w, r, log.OpCreate, err)
			return
		}
		NewJSONResponse().Status(http.StatusCreated).Data(view(saved)).Write(w)
	}
}

// deleteHandler removes one record and answers 204.
func deleteHandler(del func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := del(r.Context(), r.PathValue("id")); err != nil {
			writeServiceError(w, r, log.OpDelete, err)
			return
		}
		NewJSONResponse().Status(http.StatusNoContent).Write(w)
	}
}

// cascadeDeleteHandler removes one record and answers with the report of
// what happened to its dependents.
func cascadeDeleteHandler[R any](del func(context.Context, string) (R, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := del(r.Context(), r.PathValue("id"))
		if err != nil {
			writeServiceError(w, r, log.OpDelete, err)
			return
		}
		NewJSONResponse().Data(rep).Write(w)
	}
}

func buildAccount(p accountPayload, v *core.ValidationError) core.Account {
	return core.Account{
		Name:           sanitizeInput(p.Name),
		Bank:           sanitizeInput(p.Bank),
		OpeningBalance: p.OpeningBalance.signed(v, "openingBalance"),
	}
}

func buildCategory(p categoryPayload, _ *core.ValidationError) core.Category {
	return core.Category{Name: sanitizeInput(p.Name)}
}

func buildPartner(p partnerPayload, v *core.ValidationError) core.Partner {
	return core.Partner{
		Name:               sanitizeInput(p.Name),
		ProfitSharePercent: p.ProfitSharePercent.positive(v, "profitSharePercent"),
	}
}

func buildFixedExpense(p fixedExpensePayload, v *core.ValidationError) core.FixedExpense {
	return core.FixedExpense{
		Description:      sanitizeInput(p.Description),
		Amount:           p.Amount.positive(v, "amount"),
		CategoryID:       sanitizeInput(p.CategoryID),
		DefaultAccountID: sanitizeInput(p.DefaultAccountID),
		DueDay:           p.DueDay,
	}
}

func buildSalary(p salaryPayload, v *core.ValidationError) core.Salary {
	return core.Salary{
		EmployeeName:   sanitizeInput(p.EmployeeName),
		Amount:         p.Amount.positive(v, "amount"),
		PaymentDay:     p.PaymentDay,
		DebitAccountID: sanitizeInput(p.DebitAccountID),
	}
}
