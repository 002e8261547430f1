package ttsengine

import (
	"encoding/json"
	"net/http"

	"github.com/aliciabus/alicia/pkg/errs"
	"github.com/go-chi/chi/v5"
)

type synthesizeRequest struct {
	Text      string `json:"text"`
	Voice     string `json:"voice"`
	SessionID string `json:"session_id"`
}

// Handler returns the TTS adapter's HTTP surface.
func Handler(orch *Orchestrator) http.Handler {
	r := chi.NewRouter()

	r.Post("/synthesize", func(w http.ResponseWriter, req *http.Request) {
		var body synthesizeRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, errs.Wrap(errs.KindValidation, "decode request body", err))
			return
		}
		if len(body.Text) == 0 {
			writeError(w, errs.New(errs.KindValidation, "text must not be empty"))
			return
		}
		result := orch.Synthesize(req.Context(), body.Text, body.Voice)
		writeJSON(w, http.StatusOK, result)
	})

	r.Post("/synthesize/base64", func(w http.ResponseWriter, req *http.Request) {
		var body synthesizeRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, errs.Wrap(errs.KindValidation, "decode request body", err))
			return
		}
		if len(body.Text) == 0 {
			writeError(w, errs.New(errs.KindValidation, "text must not be empty"))
			return
		}
		result := orch.SynthesizeBase64(req.Context(), body.Text, body.Voice)
		writeJSON(w, http.StatusOK, result)
	})

	r.Get("/voices", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"engine": orch.EngineName(),
			"voices": orch.ListVoices(),
		})
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
