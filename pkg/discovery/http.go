package discovery

import (
	"encoding/json"
	"net/http"

	"github.com/aliciabus/alicia/pkg/errs"
	"github.com/go-chi/chi/v5"
)

// Handler returns the discovery service's read-only HTTP surface.
func Handler(registry *Registry) http.Handler {
	r := chi.NewRouter()
	r.Get("/services", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, registry.List())
	})
	r.Get("/services/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		desc, ok := registry.Get(name)
		if !ok {
			writeError(w, errs.New(errs.KindNotFound, "service not registered"))
			return
		}
		writeJSON(w, http.StatusOK, desc)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	writeJSON(w, errs.HTTPStatus(kind), map[string]any{
		"error": map[string]any{
			"kind":    kind,
			"message": err.Error(),
		},
	})
}
