package handler_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// fakePostgREST is an in-memory stand-in for the Supabase REST API. It
// understands eq. and in.() filters, inserts and patches, which is all the
// stores use.
type fakePostgREST struct {
	mu     sync.Mutex
	tables map[string][]map[string]any
	// uniques lists, per table, the columns that form a unique key.
	uniques map[string][]string
}

func newFakePostgREST() *fakePostgREST {
	return &fakePostgREST{
		tables: make(map[string][]map[string]any),
		uniques: map[string][]string{
			"appointments": {"id"},
			"inventory":    {"product_id", "location_id"},
		},
	}
}

// seed inserts rows given as a JSON array.
func (f *fakePostgREST) seed(table, rowsJSON string) {
	var rows []map[string]any
	if err := json.Unmarshal([]byte(rowsJSON), &rows); err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[table] = append(f.tables[table], rows...)
}

func (f *fakePostgREST) rows(table string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, len(f.tables[table]))
	copy(out, f.tables[table])
	return out
}

var reservedParams = map[string]bool{"select": true, "limit": true, "order": true, "on_conflict": true}

func matches(row map[string]any, query map[string][]string) bool {
	for col, vals := range query {
		if reservedParams[col] {
			continue
		}
		for _, v := range vals {
			got := fmt.Sprint(row[col])
			switch {
			case strings.HasPrefix(v, "eq."):
				if got != strings.TrimPrefix(v, "eq.") {
					return false
				}
			case strings.HasPrefix(v, "in.("):
				list := strings.TrimSuffix(strings.TrimPrefix(v, "in.("), ")")
				found := false
				for _, item := range strings.Split(list, ",") {
					if strings.Trim(item, `"`) == got {
						found = true
					}
				}
				if !found {
					return false
				}
			}
		}
	}
	return true
}

func (f *fakePostgREST) sameKey(table string, a, b map[string]any) bool {
	cols := f.uniques[table]
	if len(cols) == 0 {
		return false
	}
	for _, c := range cols {
		if fmt.Sprint(a[c]) != fmt.Sprint(b[c]) {
			return false
		}
	}
	return true
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	query := r.URL.Query()

	f.mu.Lock()
	defer f.mu.Unlock()

	var out []map[string]any
	switch r.Method {
	case http.MethodGet:
		out = []map[string]any{}
		for _, row := range f.tables[table] {
			if matches(row, query) {
				out = append(out, row)
			}
		}

	case http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		var row map[string]any
		if err := json.Unmarshal(body, &row); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		merge := strings.Contains(r.Header.Get("Prefer"), "merge-duplicates")
		for i, existing := range f.tables[table] {
			if !f.sameKey(table, existing, row) {
				continue
			}
			if !merge {
				w.WriteHeader(http.StatusConflict)
				w.Write([]byte(`{"code":"23505","message":"duplicate key value violates unique constraint"}`))
				return
			}
			for k, v := range row {
				existing[k] = v
			}
			f.tables[table][i] = existing
			out = []map[string]any{existing}
		}
		if out == nil {
			f.tables[table] = append(f.tables[table], row)
			out = []map[string]any{row}
		}

	case http.MethodPatch:
		body, _ := io.ReadAll(r.Body)
		var updates map[string]any
		if err := json.Unmarshal(body, &updates); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		out = []map[string]any{}
		for _, row := range f.tables[table] {
			if !matches(row, query) {
				continue
			}
			for k, v := range updates {
				row[k] = v
			}
			out = append(out, row)
		}

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if strings.Contains(r.Header.Get("Prefer"), "return=minimal") {
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
