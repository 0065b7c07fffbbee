package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vvka-141/imdbload/internal/backuplog"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

const maxBodyBytes = 8 << 20

type insertResponse struct {
	Inserted bool   `json:"inserted"`
	Upsert   bool   `json:"upsert"`
	NConst   string `json:"nconst"`
}

type batchRequest struct {
	Items  []NameBasic `json:"items"`
	Upsert *bool       `json:"upsert"`
}

type batchResponse struct {
	Count  int  `json:"count"`
	Upsert bool `json:"upsert"`
}

type healthResponse struct {
	Status string `json:"status"`
	Role   string `json:"role"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		badRequest(w, r, "INVALID_JSON", "Invalid JSON", nil)
		return false
	}
	return true
}

// PostName inserts one record. The upsert query parameter defaults to true.
func PostName(s NameStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		upsert := true
		if raw := strings.TrimSpace(r.URL.Query().Get("upsert")); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				badRequest(w, r, "INVALID_UPSERT", "upsert must be a boolean", nil)
				return
			}
			upsert = v
		}

		var n NameBasic
		if !decode(w, r, &n) {
			return
		}
		if err := n.Normalize(); err != nil {
			badRequest(w, r, "INVALID_NAME", err.Error(), nil)
			return
		}
		if err := s.Insert(r.Context(), n, upsert); err != nil {
			internal(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, insertResponse{Inserted: true, Upsert: upsert, NConst: n.NConst})
	}
}

// PostNameBatch inserts all items or none.
func PostNameBatch(s NameStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req batchRequest
		if !decode(w, r, &req) {
			return
		}
		if req.Items == nil {
			badRequest(w, r, "MISSING_ITEMS", "items is required", nil)
			return
		}
		for i := range req.Items {
			if err := req.Items[i].Normalize(); err != nil {
				badRequest(w, r, "INVALID_NAME", err.Error(), map[string]any{"index": i})
				return
			}
		}
		upsert := req.Upsert == nil || *req.Upsert

		if err := s.InsertBatch(r.Context(), req.Items, upsert); err != nil {
			internal(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, batchResponse{Count: len(req.Items), Upsert: upsert})
	}
}

// Health reports the server role. Any database error is a 500.
func Health(rr RoleReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role, err := rr.Role(r.Context())
		if err != nil {
			internal(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Role: role})
	}
}

// PostBackupLog records one backup event and echoes it with its id.
func PostBackupLog(s backuplog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var e backuplog.Entry
		if !decode(w, r, &e) {
			return
		}
		if e.When.IsZero() {
			e.When = time.Now().UTC()
		}
		if err := e.Validate(); err != nil {
			badRequest(w, r, "INVALID_ENTRY", err.Error(), nil)
			return
		}
		e.AssignID()
		if err := s.Push(r.Context(), e); err != nil {
			internal(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, e)
	}
}

// GetBackupLogs lists the newest events; limit defaults to 50.
func GetBackupLogs(s backuplog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := imdbload.DefaultBackupLogLimit
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				badRequest(w, r, "INVALID_LIMIT", "limit must be an integer", nil)
				return
			}
			limit = v
		}
		entries, err := s.Recent(r.Context(), limit)
		if err != nil {
			internal(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, entries)
	}
}
