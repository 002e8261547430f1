package security

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/aliciabus/alicia/pkg/errs"
	"github.com/go-chi/chi/v5"
)

// Handler returns the security gateway's HTTP surface.
func Handler(gateway *Gateway) http.Handler {
	r := chi.NewRouter()

	r.Post("/auth/device", func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			writeError(w, errs.Wrap(errs.KindValidation, "read request body", err))
			return
		}
		principal, err := gateway.AuthenticateDevice(body)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, principal)
	})

	r.Post("/auth/validate", func(w http.ResponseWriter, req *http.Request) {
		var in struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			writeError(w, errs.Wrap(errs.KindValidation, "decode request", err))
			return
		}
		principal, err := gateway.ValidateToken(in.Token)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, principal)
	})

	r.Post("/encrypt", func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			writeError(w, errs.Wrap(errs.KindValidation, "read request body", err))
			return
		}
		ciphertext, err := gateway.EncryptMessage(body)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"ciphertext": base64.StdEncoding.EncodeToString(ciphertext),
		})
	})

	r.Post("/decrypt", func(w http.ResponseWriter, req *http.Request) {
		var in struct {
			Ciphertext string `json:"ciphertext"`
		}
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			writeError(w, errs.Wrap(errs.KindValidation, "decode request", err))
			return
		}
		ciphertext, err := base64.StdEncoding.DecodeString(in.Ciphertext)
		if err != nil {
			writeError(w, errs.Wrap(errs.KindValidation, "decode ciphertext", err))
			return
		}
		plaintext, err := gateway.DecryptMessage(ciphertext)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(plaintext)
	})

	r.Get("/events", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, gateway.RecentEvents(0))
	})

	r.Get("/certificates", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, gateway.ActiveCertificates())
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
