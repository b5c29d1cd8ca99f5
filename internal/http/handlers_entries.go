package http

import (
	"errors"
	"net/http"

	"fluxo/internal/core"
	"fluxo/internal/log"
)

// payloadError writes 400 for malformed JSON and the mapped error otherwise.
func payloadError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, errBadJSON) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Malformed request body", log.FieldOperation, op, log.FieldError, err.Error())
		BadRequestError(err.Error()).Write(w)
		return
	}
	writeServiceError(w, r, op, err)
}

// withValidation returns v merged with the fields of err that v does not
// already report. err must be nil or a validation error.
func withValidation(v *core.ValidationError, err error) error {
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		return v.OrNil()
	}
	seen := make(map[string]bool, len(v.Fields))
	for _, f := range v.Fields {
		seen[f.Field] = true
	}
	for _, f := range ve.Fields {
		if !seen[f.Field] {
			v.Fields = append(v.Fields, f)
		}
	}
	return v.OrNil()
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	q, err := entryQueryFromURL(r.URL.Query(), s.loc)
	if err != nil {
		writeServiceError(w, r, log.OpList, err)
		return
	}
	entries, err := s.svc.Ledger.ListEntries(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(mapSlice(entries, newEntryView)).Write(w)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.svc.Ledger.GetEntry(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(newEntryView(e)).Write(w)
}

func (s *Server) decodeEntry(w http.ResponseWriter, r *http.Request) (core.LedgerEntry, error) {
	var p entryPayload
	if err := decodeJSON(w, r, &p); err != nil {
		return core.LedgerEntry{}, err
	}
	v := &core.ValidationError{}
	e := p.toEntry(v, s.loc)
	if len(v.Fields) > 0 {
		return core.LedgerEntry{}, withValidation(v, e.Validate())
	}
	return e, nil
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.decodeEntry(w, r)
	if err != nil {
		payloadError(w, r, log.OpCreate, err)
		return
	}
	saved, err := s.svc.Ledger.CreateEntry(r.Context(), e)
	if err != nil {
		writeServiceError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/entries/"+saved.ID).
		Data(newEntryView(saved)).
		Write(w)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.decodeEntry(w, r)
	if err != nil {
		payloadError(w, r, log.OpUpdate, err)
		return
	}
	e.ID = r.PathValue("id")
	saved, err := s.svc.Ledger.UpdateEntry(r.Context(), e)
	if err != nil {
		writeServiceError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(newEntryView(saved)).Write(w)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ledger.DeleteEntry(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
