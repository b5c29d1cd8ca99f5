package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"fluxo/internal/core"
	"fluxo/internal/log"
	"fluxo/internal/report"
	"fluxo/internal/services"
)

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var p generatePayload
	if err := decodeJSON(w, r, &p); err != nil {
		payloadError(w, r, log.OpGenerate, err)
		return
	}
	month := core.MonthOf(s.now(), s.loc)
	if strings.TrimSpace(p.Month) != "" {
		m, err := core.ParseMonth(strings.TrimSpace(p.Month), s.loc)
		if err != nil {
			writeServiceError(w, r, log.OpGenerate, core.Invalid("month", "must be YYYY-MM"))
			return
		}
		month = m
	}
	kinds := make([]core.SourceKind, 0, len(p.Kinds))
	for _, k := range p.Kinds {
		kinds = append(kinds, core.SourceKind(strings.TrimSpace(k)))
	}

	rep, err := s.svc.Generator.Generate(r.Context(), month, kinds...)
	if err != nil {
		writeServiceError(w, r, log.OpGenerate, err)
		return
	}
	NewJSONResponse().Data(rep).Write(w)
}

func (s *Server) summaryParams(r *http.Request) (core.Period, report.Filter, error) {
	q := r.URL.Query()
	p, err := periodFromQuery(q).resolve(s.now(), s.loc)
	if err != nil {
		return core.Period{}, report.Filter{}, err
	}
	return p, report.Filter{AccountID: strings.TrimSpace(q.Get("accountId"))}, nil
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	p, f, err := s.summaryParams(r)
	if err != nil {
		writeServiceError(w, r, log.OpSummary, err)
		return
	}
	sum, err := s.svc.Dashboard.Summary(r.Context(), p, f)
	if err != nil {
		writeServiceError(w, r, log.OpSummary, err)
		return
	}
	NewJSONResponse().Data(sum).Write(w)
}

// handleSummaryStream pushes the summary as server-sent events, once on
// connect and again after every change, until the client goes away or the
// server shuts down.
func (s *Server) handleSummaryStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		ErrorResponse(http.StatusInternalServerError, "streaming unsupported").Write(w)
		return
	}
	p, f, err := s.summaryParams(r)
	if err != nil {
		writeServiceError(w, r, log.OpSummary, err)
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.streams, cancel)
	defer stop()

	updates, err := s.svc.Dashboard.Watch(ctx, p, f)
	if err != nil {
		writeServiceError(w, r, log.OpSummary, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for sum := range updates {
		data, err := json.Marshal(sum)
		if err != nil {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Summary encoding failed", log.FieldError, err.Error())
			return
		}
		if _, err := fmt.Fprintf(w, "event: summary\ndata: %s\n\n", data); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (s *Server) handleProfit(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r.URL.Query()).resolve(s.now(), s.loc)
	if err != nil {
		writeServiceError(w, r, log.OpProfit, err)
		return
	}
	rep, err := s.svc.Profit.Report(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, log.OpProfit, err)
		return
	}
	NewJSONResponse().Data(rep).Write(w)
}

func (s *Server) handleWithdrawal(w http.ResponseWriter, r *http.Request) {
	var body withdrawalPayload
	if err := decodeJSON(w, r, &body); err != nil {
		payloadError(w, r, log.OpWithdraw, err)
		return
	}
	p, err := body.periodParams.resolve(s.now(), s.loc)
	if err != nil {
		writeServiceError(w, r, log.OpWithdraw, err)
		return
	}
	v := &core.ValidationError{}
	when := optionalTime(v, "occurredAt", body.OccurredAt, s.loc)
	if err := v.OrNil(); err != nil {
		writeServiceError(w, r, log.OpWithdraw, err)
		return
	}

	res, err := s.svc.Profit.RegisterWithdrawal(r.Context(), services.WithdrawalRequest{
		Period:     p,
		AccountID:  strings.TrimSpace(body.AccountID),
		CategoryID: strings.TrimSpace(body.CategoryID),
		OccurredAt: when,
	})
	if err != nil {
		writeServiceError(w, r, log.OpWithdraw, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(res).Write(w)
}

func (s *Server) handleAdvisory(w http.ResponseWriter, r *http.Request) {
	var body advisoryPayload
	if err := decodeJSON(w, r, &body); err != nil {
		payloadError(w, r, log.OpAdvise, err)
		return
	}
	p, err := body.periodParams.resolve(s.now(), s.loc)
	if err != nil {
		writeServiceError(w, r, log.OpAdvise, err)
		return
	}
	resp, err := s.svc.Advisory.Advise(r.Context(), p, sanitizeInput(body.PricingStrategy), sanitizeInput(body.Recipes))
	if err != nil {
		writeServiceError(w, r, log.OpAdvise, err)
		return
	}
	NewJSONResponse().Data(resp).Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]string{"status": "ok"}).Write(w)
}

// handleReady reports 503 while the store cannot be reached.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
			ErrorResponse(http.StatusServiceUnavailable, "store unavailable").
				Header("Retry-After", "5").
				Write(w)
			return
		}
	}
	NewJSONResponse().Data(map[string]string{"status": "ready"}).Write(w)
}
