package aiengine

import (
	"encoding/json"
	"net/http"

	"github.com/aliciabus/alicia/pkg/errs"
	"github.com/go-chi/chi/v5"
)

// Handler returns the AI adapter's HTTP surface.
func Handler(orch *Orchestrator) http.Handler {
	r := chi.NewRouter()

	r.Post("/complete", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, errs.Wrap(errs.KindValidation, "decode request body", err))
			return
		}
		result := orch.Complete(req.Context(), body.Prompt)
		writeJSON(w, http.StatusOK, result)
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
