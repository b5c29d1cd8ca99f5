package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLedgerEntryValidate(t *testing.T) {
	good := LedgerEntry{
		Type:        Inflow,
		Description: "ok",
		Amount:      decimal.NewFromInt(100),
		OccurredAt:  time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		AccountID:   "acc",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []LedgerEntry{
		{Type: "other", Description: "a", Amount: decimal.NewFromInt(1), OccurredAt: good.OccurredAt, AccountID: "acc"},
		{Type: Inflow, Description: " ", Amount: decimal.NewFromInt(1), OccurredAt: good.OccurredAt, AccountID: "acc"},
		{Type: Inflow, Description: "a", Amount: decimal.Zero, OccurredAt: good.OccurredAt, AccountID: "acc"},
		{Type: Outflow, Description: "a", Amount: decimal.NewFromInt(-5), OccurredAt: good.OccurredAt, AccountID: "acc"},
		{Type: Inflow, Description: "a", Amount: decimal.NewFromInt(1), AccountID: "acc"},
		{Type: Inflow, Description: "a", Amount: decimal.NewFromInt(1), OccurredAt: good.OccurredAt},
	}
	for i, e := range bads {
		err := e.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		var ve *ValidationError
		if !errors.As(err, &ve) || len(ve.Fields) == 0 {
			t.Fatalf("case %d expected field errors, got %v", i, err)
		}
	}
}

func TestSigned(t *testing.T) {
	in := LedgerEntry{Type: Inflow, Amount: decimal.NewFromInt(5)}
	out := LedgerEntry{Type: Outflow, Amount: decimal.NewFromInt(5)}
	if !in.Signed().Equal(decimal.NewFromInt(5)) {
		t.Errorf("inflow signed = %s", in.Signed())
	}
	if !out.Signed().Equal(decimal.NewFromInt(-5)) {
		t.Errorf("outflow signed = %s", out.Signed())
	}
}

func TestReferenceValidation(t *testing.T) {
	tests := []struct {
		name string
		v    interface{ Validate() error }
		ok   bool
	}{
		{"account ok", Account{Name: "Cash"}, true},
		{"account short name", Account{Name: "C"}, false},
		{"category ok", Category{Name: "Suppliers"}, true},
		{"category short name", Category{Name: "S"}, false},
		{"partner ok", Partner{Name: "Ana", ProfitSharePercent: decimal.NewFromInt(60)}, true},
		{"partner 100", Partner{Name: "Ana", ProfitSharePercent: decimal.NewFromInt(100)}, true},
		{"partner zero", Partner{Name: "Ana", ProfitSharePercent: decimal.Zero}, false},
		{"partner over 100", Partner{Name: "Ana", ProfitSharePercent: decimal.NewFromInt(101)}, false},
		{"fixed ok", FixedExpense{Description: "Rent", Amount: decimal.NewFromInt(10), DefaultAccountID: "a", DueDay: 31}, true},
		{"fixed day 32", FixedExpense{Description: "Rent", Amount: decimal.NewFromInt(10), DefaultAccountID: "a", DueDay: 32}, false},
		{"fixed no account", FixedExpense{Description: "Rent", Amount: decimal.NewFromInt(10), DueDay: 1}, false},
		{"salary ok", Salary{EmployeeName: "Bia", Amount: decimal.NewFromInt(10), PaymentDay: 5, DebitAccountID: "a"}, true},
		{"salary zero amount", Salary{EmployeeName: "Bia", PaymentDay: 5, DebitAccountID: "a"}, false},
		{"salary day 0", Salary{EmployeeName: "Bia", Amount: decimal.NewFromInt(10), DebitAccountID: "a"}, false},
		{"fixed description too long", FixedExpense{Description: strings.Repeat("r", 190), Amount: decimal.NewFromInt(10), DefaultAccountID: "a", DueDay: 1}, false},
		{"salary name too long", Salary{EmployeeName: strings.Repeat("b", 190), Amount: decimal.NewFromInt(10), PaymentDay: 5, DebitAccountID: "a"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.v.Validate()
			if tt.ok && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tt.ok && !IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestTemplates(t *testing.T) {
	m := Month{Year: 2025, Month: time.February, Loc: time.UTC}
	fe := FixedExpense{ID: "fe1", Description: "Rent", Amount: decimal.NewFromInt(900), CategoryID: "cat", DefaultAccountID: "acc", DueDay: 31}
	e := fe.Template().Materialize(m)
	if e.Description != "Fixed payment: Rent" {
		t.Errorf("description = %q", e.Description)
	}
	if e.Type != Outflow || e.SourceKind != SourceFixedExpense || e.SourceID != "fe1" || e.PeriodKey != "2025-02" {
		t.Errorf("unexpected generated entry: %+v", e)
	}
	if got := e.OccurredAt; got.Day() != 28 || got.Hour() != GenerationHour {
		t.Errorf("occurredAt = %v, want Feb 28 at noon", got)
	}

	s := Salary{ID: "s1", EmployeeName: "Bia", Amount: decimal.NewFromInt(2000), PaymentDay: 5, DebitAccountID: "acc"}
	if got := s.Template().Description; got != "Salary payment: Bia" {
		t.Errorf("salary description = %q", got)
	}
}

func TestLongestDefinitionsMaterializeValidEntries(t *testing.T) {
	m := Month{Year: 2025, Month: time.March, Loc: time.UTC}
	fe := FixedExpense{
		ID: "fe1", Description: strings.Repeat("r", maxDescriptionLen-len(fixedExpensePrefix)),
		Amount: decimal.NewFromInt(10), DefaultAccountID: "acc", DueDay: 1,
	}
	s := Salary{
		ID: "s1", EmployeeName: strings.Repeat("b", maxDescriptionLen-len(salaryPrefix)),
		Amount: decimal.NewFromInt(10), PaymentDay: 1, DebitAccountID: "acc",
	}
	for _, tc := range []struct {
		name string
		def  interface {
			Validate() error
			Template() RecurringTemplate
		}
	}{{"fixed expense", fe}, {"salary", s}} {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.def.Validate(); err != nil {
				t.Fatalf("definition rejected: %v", err)
			}
			if err := tc.def.Template().Materialize(m).Validate(); err != nil {
				t.Errorf("generated entry rejected: %v", err)
			}
		})
	}
}

func TestErrorKinds(t *testing.T) {
	nf := NotFound("account", "x")
	if !errors.Is(nf, ErrNotFound) {
		t.Error("NotFoundError should match ErrNotFound")
	}

	base := errors.New("connection reset")
	tr := Transient("commit batch", base)
	if !IsTransient(tr) || !errors.Is(tr, base) {
		t.Errorf("transient wrapping lost: %v", tr)
	}
	if again := Transient("outer", tr); again != tr {
		t.Error("Transient should not double wrap")
	}
	if Transient("x", nil) != nil {
		t.Error("Transient(nil) should be nil")
	}
}
