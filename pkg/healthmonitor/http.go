package healthmonitor

import (
	"encoding/json"
	"net/http"

	"github.com/aliciabus/alicia/pkg/errs"
	"github.com/go-chi/chi/v5"
)

// Handler returns the health monitor's read-only HTTP surface.
func Handler(monitor *Monitor) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": monitor.Aggregate()})
	})

	r.Get("/health/{service}", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "service")
		healthy, ok := monitor.ServiceStatus(name)
		if !ok {
			writeError(w, errs.New(errs.KindNotFound, "service not registered for probing"))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"service": name, "healthy": healthy})
	})

	r.Get("/history/{service}", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "service")
		writeJSON(w, http.StatusOK, monitor.History(name))
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
