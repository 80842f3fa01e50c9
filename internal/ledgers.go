package internal

import "net/http"

func (s *Server) listLedgers(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	ledgers, total, err := s.svc.ListLedgers(r.Context(), params.toPage())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	sendListResponse(w, ledgers, total, params)
}

func (s *Server) getLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid ledger id")
		return
	}
	view, err := s.svc.GetLedger(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// getOwnerLedger answers 404 for users who currently hold nothing.
func (s *Server) getOwnerLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid user id")
		return
	}
	view, err := s.svc.LedgerForOwner(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
