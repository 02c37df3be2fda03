package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ruslano69/tablemapper/pkg/mapper"
	"github.com/ruslano69/tablemapper/pkg/schema"
)

type ctxKey struct{}

// tablesHandler serves /api/tables/{table}/...
type tablesHandler struct {
	mappers map[string]*mapper.TableMapper
}

type columnResponse struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type schemaResponse struct {
	Table   string           `json:"table"`
	Columns []columnResponse `json:"columns"`
}

type rowsResponse struct {
	Table string          `json:"table"`
	Count int             `json:"count"`
	Rows  []mapper.Record `json:"rows"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// resolveTable puts the mapper for {table} into the request context.
func (h *tablesHandler) resolveTable(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m, ok := h.mappers[chi.URLParam(r, "table")]
		if !ok {
			writeError(w, http.StatusNotFound, "unknown table")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, m)))
	})
}

func tableMapper(r *http.Request) *mapper.TableMapper {
	return r.Context().Value(ctxKey{}).(*mapper.TableMapper)
}

// List returns the exposed table names.
func (h *tablesHandler) List(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(h.mappers))
	for name := range h.mappers {
		names = append(names, name)
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, map[string][]string{"tables": names})
}

// Schema returns the introspected column list.
func (h *tablesHandler) Schema(w http.ResponseWriter, r *http.Request) {
	t := tableMapper(r).Schema()

	resp := schemaResponse{Table: t.Name(), Columns: make([]columnResponse, 0, t.Len())}
	for _, c := range t.Columns() {
		resp.Columns = append(resp.Columns, columnResponse{Name: c.Name, Type: string(c.Type)})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Select: GET /rows?col=val&... (equality filter; an unknown column is 400)
func (h *tablesHandler) Select(w http.ResponseWriter, r *http.Request) {
	m := tableMapper(r)

	filter := mapper.Record{}
	for name, values := range r.URL.Query() {
		col, ok := m.Schema().Lookup(name)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown column "+name)
			return
		}
		if len(values) > 0 {
			filter[name] = keyValue(col, values[0])
		}
	}

	rows, err := m.Select(r.Context(), filter)
	if err != nil {
		writePersistenceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rowsResponse{Table: m.Table(), Count: len(rows), Rows: rows})
}

// Get: GET /rows/{id}
func (h *tablesHandler) Get(w http.ResponseWriter, r *http.Request) {
	m := tableMapper(r)

	rec, ok := h.load(w, r, m)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Insert: POST /rows with a JSON object; values are coerced by column type.
func (h *tablesHandler) Insert(w http.ResponseWriter, r *http.Request) {
	m := tableMapper(r)

	input, ok := decodeInput(w, r)
	if !ok {
		return
	}

	rec := m.BuildModelFrom(input, nil)
	if !m.Validate(rec) {
		writeError(w, http.StatusUnprocessableEntity, "record failed validation")
		return
	}

	if err := m.Insert(r.Context(), rec); err != nil {
		writePersistenceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// Update: PUT /rows/{id}; fields absent from the body keep their stored values.
func (h *tablesHandler) Update(w http.ResponseWriter, r *http.Request) {
	m := tableMapper(r)

	rec, ok := h.load(w, r, m)
	if !ok {
		return
	}
	input, ok := decodeInput(w, r)
	if !ok {
		return
	}

	id := rec[mapper.KeyColumn]
	m.UpdateModelFrom(rec, input, nil)
	rec[mapper.KeyColumn] = id

	if !m.Validate(rec) {
		writeError(w, http.StatusUnprocessableEntity, "record failed validation")
		return
	}

	if err := m.Update(r.Context(), rec); err != nil {
		writePersistenceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Delete: DELETE /rows/{id}
func (h *tablesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	m := tableMapper(r)

	rec, ok := h.load(w, r, m)
	if !ok {
		return
	}

	if err := m.Delete(r.Context(), rec); err != nil {
		writePersistenceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// load fetches the row for {id}. Zero or several matches answer 404.
func (h *tablesHandler) load(w http.ResponseWriter, r *http.Request, m *mapper.TableMapper) (mapper.Record, bool) {
	col, ok := m.Schema().Lookup(mapper.KeyColumn)
	if !ok {
		writeError(w, http.StatusNotFound, "table has no id column")
		return nil, false
	}

	rec, err := m.Get(r.Context(), keyValue(col, chi.URLParam(r, "id")))
	if err != nil {
		writePersistenceError(w, r, err)
		return nil, false
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "row not found")
		return nil, false
	}
	return rec, true
}

// keyValue converts a URL value for comparison: numeric columns are parsed,
// text is passed through unescaped.
func keyValue(col schema.Column, raw string) any {
	if col.Type.IsNumeric() {
		return schema.Coerce(raw, col.Type)
	}
	return raw
}

func decodeInput(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var input map[string]any
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return nil, false
	}
	return input, true
}

func writePersistenceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())

	var pe *mapper.PersistenceError
	if errors.As(err, &pe) {
		logger.Error().Err(err).Str("op", string(pe.Op)).Msg("persistence failed")
		writeError(w, http.StatusInternalServerError, string(pe.Op)+" failed")
		return
	}
	logger.Error().Err(err).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
