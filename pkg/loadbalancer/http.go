package loadbalancer

import (
	"encoding/json"
	"net/http"

	"github.com/aliciabus/alicia/pkg/errs"
	"github.com/aliciabus/alicia/pkg/types"
	"github.com/go-chi/chi/v5"
)

// Handler returns the load balancer's HTTP surface.
func Handler(registry *Registry) http.Handler {
	r := chi.NewRouter()

	r.Get("/services", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, registry.Services())
	})

	r.Get("/services/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		writeJSON(w, http.StatusOK, registry.Instances(name))
	})

	r.Post("/route/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		instanceID, err := registry.Route(name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"instance_id": instanceID})
	})

	r.Post("/algorithm/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		var body struct {
			Algorithm Policy `json:"algorithm"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, errs.Wrap(errs.KindValidation, "decode request body", err))
			return
		}
		registry.SetPolicy(name, body.Algorithm)
		writeJSON(w, http.StatusOK, map[string]string{"service": name, "algorithm": string(body.Algorithm)})
	})

	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		stats := make(map[string][]types.ServiceInstance)
		for _, service := range registry.Services() {
			stats[service] = registry.Instances(service)
		}
		writeJSON(w, http.StatusOK, stats)
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
