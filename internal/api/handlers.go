package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"canary/internal/models"
)

const maxBodyBytes = 1 << 20

func (s *HTTPServer) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.items.Ready(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *HTTPServer) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.items.List(r.Context())
	if err != nil {
		s.writeFailure(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *HTTPServer) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	in, err := decodeItemInput(w, r)
	if err != nil {
		s.writeFailure(w, r, err, 0)
		return
	}

	item, err := s.items.Create(r.Context(), in)
	if err != nil {
		s.writeFailure(w, r, err, 0)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"item":    item,
		"message": "Item created successfully",
	})
}

func (s *HTTPServer) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathItemID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	in, err := decodeItemInput(w, r)
	if err != nil {
		s.writeFailure(w, r, err, id)
		return
	}

	item, err := s.items.Update(r.Context(), id, in)
	if err != nil {
		s.writeFailure(w, r, err, id)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"item":    item,
		"message": "Item updated successfully",
	})
}

func (s *HTTPServer) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathItemID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if err := s.items.Delete(r.Context(), id); err != nil {
		s.writeFailure(w, r, err, id)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Item %d deleted successfully", id),
	})
}

func (s *HTTPServer) handleProtected(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "You have access to protected data"})
}

// pathItemID parses {id}; anything but a base-10 integer does not match the route.
func pathItemID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// decodeItemInput reads a JSON object body. Unknown fields are ignored.
func decodeItemInput(w http.ResponseWriter, r *http.Request) (models.ItemInput, error) {
	var in models.ItemInput
	if r.Body == nil {
		return in, errInvalidBody
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		return in, errors.Join(errInvalidBody, err)
	}
	return in, nil
}
