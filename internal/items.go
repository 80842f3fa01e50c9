package internal

import (
	"context"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"itam-api/internal/inventory"
	"itam-api/internal/models"
)

const maxImageBytes = 10 << 20

// LIST with kind/owner/vacant filters & pagination
func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	values := r.URL.Query()

	f := inventory.ItemFilter{
		Page:           params.toPage(),
		Kind:           models.ItemKind(strings.ToLower(strings.TrimSpace(values.Get("kind")))),
		VacantOnly:     boolParam(r, "vacant"),
		Query:          params.q,
		IncludeDeleted: boolParam(r, "include_deleted"),
	}
	if v := strings.TrimSpace(values.Get("owner_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			badRequest(w, "owner_id must be a positive integer")
			return
		}
		f.OwnerID = &id
	}

	items, total, err := s.svc.ListItems(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	sendListResponse(w, items, total, params)
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid item id")
		return
	}
	limit := 0
	if v := strings.TrimSpace(r.URL.Query().Get("history_limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			badRequest(w, "history_limit must be a positive integer")
			return
		}
		limit = n
	}

	view, err := s.svc.GetItem(r.Context(), id, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var in models.CreateItemRequest
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if in.Owner != nil && in.OwnerID != nil {
		badRequest(w, "owner and owner_id are mutually exclusive")
		return
	}

	var (
		item *models.Item
		err  error
	)
	if in.Owner != nil && !in.Owner.Blank() {
		item, err = s.svc.CreateItemFor(r.Context(), in.ItemFields, *in.Owner)
	} else {
		item, err = s.svc.CreateItem(r.Context(), in.ItemFields, in.OwnerID)
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid item id")
		return
	}
	var in models.UpdateItemRequest
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}

	item, err := s.svc.UpdateItem(r.Context(), id, in.ItemFields, in.OwnerID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) assignOwner(w http.ResponseWriter, r *http.Request) {
	s.changeOwner(w, r, s.svc.AssignOwner)
}

func (s *Server) claimItem(w http.ResponseWriter, r *http.Request) {
	s.changeOwner(w, r, s.svc.ClaimVacant)
}

func (s *Server) changeOwner(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, itemID, ownerID int64) (*models.Item, error)) {
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid item id")
		return
	}
	var in models.AssignOwnerRequest
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}

	item, err := op(r.Context(), id, in.OwnerID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid item id")
		return
	}
	if err := s.svc.DeleteItem(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listComponents(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid item id")
		return
	}
	comps, err := s.svc.Components(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": comps})
}

func (s *Server) listItemLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid item id")
		return
	}
	logs, err := s.svc.ItemLogs(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": logs})
}

func (s *Server) uploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid item id")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		badRequest(w, "invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		badRequest(w, "image is required")
		return
	}
	defer file.Close()

	item, err := s.svc.AttachImage(r.Context(), id, header.Filename, file)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) downloadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid item id")
		return
	}
	rc, ref, err := s.svc.OpenImage(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer rc.Close()

	if ct := mime.TypeByExtension(filepath.Ext(ref)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	if _, err := io.Copy(w, rc); err != nil {
		s.log.Warn().Err(err).Int64("item_id", id).Msg("image download interrupted")
	}
}

func (s *Server) classify(w http.ResponseWriter, r *http.Request) {
	label := strings.TrimSpace(r.URL.Query().Get("type"))
	if label == "" {
		badRequest(w, "type is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"type": label,
		"kind": s.svc.ClassifyRow(label),
	})
}
