// Package http provides the JSON API server and its handlers.
//
// This file implements request decoding: JSON bodies, amounts, dates,
// reporting periods and ledger filters.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fluxo/internal/core"
	"fluxo/internal/store"
)

const (
	maxBodyBytes = 1 << 20
	maxListLimit = 1000
)

var errBadJSON = errors.New("malformed JSON body")

// decodeJSON reads one JSON object from the body into dst. Unknown fields
// are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", errBadJSON)
	}
	return nil
}

// amountInput accepts a JSON number or string. Strings may use a comma as
// decimal separator.
type amountInput string

func (a *amountInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a number or string")
	}
	*a = amountInput(n.String())
	return nil
}

// positive parses a strictly positive amount, recording a field error.
func (a amountInput) positive(v *core.ValidationError, field string) decimal.Decimal {
	d, err := core.ParseAmount(string(a))
	if err != nil {
		v.Add(field, "must be a positive amount")
	}
	return d
}

// signed parses a signed amount; empty is zero.
func (a amountInput) signed(v *core.ValidationError, field string) decimal.Decimal {
	d, err := core.ParseSignedAmount(string(a))
	if err != nil {
		v.Add(field, "must be an amount")
	}
	return d
}

// parseTime accepts RFC 3339 or a YYYY-MM-DD date, the latter placed at
// noon in loc.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), core.GenerationHour, 0, 0, 0, loc), nil
}

// optionalTime parses s when set, recording a field error on failure.
func optionalTime(v *core.ValidationError, field, s string, loc *time.Location) time.Time {
	if strings.TrimSpace(s) == "" {
		return time.Time{}
	}
	t, err := parseTime(s, loc)
	if err != nil {
		v.Add(field, "must be an RFC 3339 time or a YYYY-MM-DD date")
	}
	return t
}

// periodParams is the set of inputs selecting a reporting period.
type periodParams struct {
	Month string `json:"month"`
	From  string `json:"from"`
	To    string `json:"to"`
}

func periodFromQuery(q url.Values) periodParams {
	return periodParams{Month: q.Get("month"), From: q.Get("from"), To: q.Get("to")}
}

// resolve returns the period selected by p: a whole month when Month is
// set, whole days From..To otherwise, and the current month when nothing
// is set. A missing bound defaults to the matching end of the current
// month.
func (p periodParams) resolve(now time.Time, loc *time.Location) (core.Period, error) {
	v := &core.ValidationError{}
	if m := strings.TrimSpace(p.Month); m != "" {
		if p.From != "" || p.To != "" {
			v.Add("month", "cannot be combined with from/to")
			return core.Period{}, v
		}
		month, err := core.ParseMonth(m, loc)
		if err != nil {
			v.Add("month", "must be YYYY-MM")
			return core.Period{}, v
		}
		return month.Period(), nil
	}

	current := core.MonthOf(now, loc)
	from, to := current.Start(), current.End()
	if s := strings.TrimSpace(p.From); s != "" {
		d, err := time.ParseInLocation(time.DateOnly, s, loc)
		if err != nil {
			v.Add("from", "must be YYYY-MM-DD")
		}
		from = d
	}
	if s := strings.TrimSpace(p.To); s != "" {
		d, err := time.ParseInLocation(time.DateOnly, s, loc)
		if err != nil {
			v.Add("to", "must be YYYY-MM-DD")
		}
		to = d
	}
	if err := v.OrNil(); err != nil {
		return core.Period{}, err
	}
	period := core.DayPeriod(from, to, loc)
	if !period.Valid() {
		return core.Period{}, core.Invalid("from", "must not be after to")
	}
	return period, nil
}

// entryQueryFromURL builds the ledger filter of GET /api/entries. Results
// are newest first unless order=asc.
func entryQueryFromURL(q url.Values, loc *time.Location) (store.EntryQuery, error) {
	v := &core.ValidationError{}
	eq := store.EntryQuery{
		AccountID:  strings.TrimSpace(q.Get("accountId")),
		CategoryID: strings.TrimSpace(q.Get("categoryId")),
		SourceID:   strings.TrimSpace(q.Get("sourceId")),
		Descending: true,
	}
	if s := q.Get("from"); s != "" {
		d, err := time.ParseInLocation(time.DateOnly, s, loc)
		if err != nil {
			v.Add("from", "must be YYYY-MM-DD")
		}
		eq.From = d
	}
	if s := q.Get("to"); s != "" {
		d, err := time.ParseInLocation(time.DateOnly, s, loc)
		if err != nil {
			v.Add("to", "must be YYYY-MM-DD")
		}
		eq.To = d.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	switch q.Get("order") {
	case "", "desc":
	case "asc":
		eq.Descending = false
	default:
		v.Add("order", `must be "asc" or "desc"`)
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxListLimit {
			v.Add("limit", fmt.Sprintf("must be between 1 and %d", maxListLimit))
		}
		eq.Limit = n
	}
	if !eq.From.IsZero() && !eq.To.IsZero() && eq.From.After(eq.To) {
		v.Add("from", "must not be after to")
	}
	return eq, v.OrNil()
}

// sanitizeInput removes control characters except tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
