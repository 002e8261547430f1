package sttengine

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/aliciabus/alicia/pkg/errs"
	"github.com/go-chi/chi/v5"
)

// Handler returns the STT adapter's HTTP surface.
func Handler(orch *Orchestrator) http.Handler {
	r := chi.NewRouter()

	r.Post("/transcribe", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			AudioBase64 string `json:"audio_base64"`
			AudioURL    string `json:"audio_url"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, errs.Wrap(errs.KindValidation, "decode request body", err))
			return
		}

		job := Job{URL: body.AudioURL}
		if body.AudioBase64 != "" {
			decoded, err := base64.StdEncoding.DecodeString(body.AudioBase64)
			if err != nil {
				writeError(w, errs.Wrap(errs.KindValidation, "decode audio_base64", err))
				return
			}
			job.Audio = decoded
		}

		result := orch.Transcribe(req.Context(), job)
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
