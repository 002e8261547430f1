package config

import (
	"encoding/json"
	"net/http"

	"github.com/aliciabus/alicia/pkg/bus"
	"github.com/aliciabus/alicia/pkg/errs"
	"github.com/aliciabus/alicia/pkg/log"
	"github.com/go-chi/chi/v5"
)

// Handler returns the configuration service's HTTP surface. Successful
// updates are published to the service-scoped or global update topic
// over client so subscribers see the same change the caller posted.
func Handler(store *Store, client *bus.Client) http.Handler {
	r := chi.NewRouter()

	r.Get("/config", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, store.Get(""))
	})

	r.Get("/config/{service}", func(w http.ResponseWriter, req *http.Request) {
		service := chi.URLParam(req, "service")
		writeJSON(w, http.StatusOK, store.Get(service))
	})

	r.Post("/config/{service}", func(w http.ResponseWriter, req *http.Request) {
		service := chi.URLParam(req, "service")
		var patch map[string]any
		if err := json.NewDecoder(req.Body).Decode(&patch); err != nil {
			writeError(w, errs.Wrap(errs.KindValidation, "decode request body", err))
			return
		}
		if err := store.UpdateService(service, patch); err != nil {
			writeError(w, err)
			return
		}
		if err := PublishServiceUpdate(req.Context(), client, store, service); err != nil {
			log.WithComponent("config").Error().Err(err).Str("service", service).Msg("publish service update failed")
		}
		writeJSON(w, http.StatusOK, store.Get(service))
	})

	r.Post("/config/global", func(w http.ResponseWriter, req *http.Request) {
		var patch map[string]any
		if err := json.NewDecoder(req.Body).Decode(&patch); err != nil {
			writeError(w, errs.Wrap(errs.KindValidation, "decode request body", err))
			return
		}
		if err := store.UpdateGlobal(patch); err != nil {
			writeError(w, err)
			return
		}
		if err := PublishGlobalUpdate(req.Context(), client, store); err != nil {
			log.WithComponent("config").Error().Err(err).Msg("publish global update failed")
		}
		writeJSON(w, http.StatusOK, store.Get(""))
	})

	r.Get("/services", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, store.ListServices())
	})

	r.Post("/backup", func(w http.ResponseWriter, req *http.Request) {
		path, err := store.Backup()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"path": path})
	})

	r.Get("/history/{service}", func(w http.ResponseWriter, req *http.Request) {
		service := chi.URLParam(req, "service")
		writeJSON(w, http.StatusOK, store.History(service))
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
