package devicemanager

import (
	"encoding/json"
	"net/http"

	"github.com/aliciabus/alicia/pkg/errs"
	"github.com/aliciabus/alicia/pkg/types"
	"github.com/go-chi/chi/v5"
)

// Handler returns the device manager's HTTP surface.
func Handler(manager *Manager, registry *Registry) http.Handler {
	r := chi.NewRouter()

	r.Post("/command", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			DeviceIDs  []string       `json:"device_ids"`
			Command    string         `json:"command"`
			Parameters map[string]any `json:"parameters"`
			Priority   types.Priority `json:"priority"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, errs.Wrap(errs.KindValidation, "decode request body", err))
			return
		}
		if body.Priority == "" {
			body.Priority = types.PriorityNormal
		}
		commandID := manager.SendCommand(body.DeviceIDs, body.Command, body.Parameters, body.Priority)
		writeJSON(w, http.StatusAccepted, map[string]string{"command_id": commandID})
	})

	r.Get("/devices", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, registry.ListDevices())
	})

	r.Get("/devices/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		device, ok := registry.GetDevice(id)
		if !ok {
			writeError(w, errs.New(errs.KindNotFound, "device not found"))
			return
		}
		writeJSON(w, http.StatusOK, device)
	})

	r.Get("/capabilities", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, registry.ListCapabilities())
	})

	r.Get("/commands/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		cmd, ok := manager.GetCommand(id)
		if !ok {
			writeError(w, errCommandNotFound)
			return
		}
		writeJSON(w, http.StatusOK, cmd)
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
