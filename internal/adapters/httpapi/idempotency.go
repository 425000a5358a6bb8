package httpapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Overland-East-Bay/fleet-console-api/internal/app/apperr"
	"github.com/Overland-East-Bay/fleet-console-api/internal/platform/logger"
	"github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/idempotency"
)

const (
	headerIdempotencyKey    = "Idempotency-Key"
	headerIdempotentReplay  = "Idempotent-Replay"
	codeIdempotencyKeyReuse = "IDEMPOTENCY_KEY_REUSE"
)

// idemCall tracks one request carrying an Idempotency-Key.
type idemCall struct {
	active bool
	resp   idempotency.Fingerprint
}

// beginIdempotent handles replay and key reuse:
//   - same key + route + body hash replays the stored response
//   - same key + route with a different body hash is rejected with 409
//
// It returns handled=true when a response has already been written.
func (s *Server) beginIdempotent(w http.ResponseWriter, r *http.Request, route string, body any) (idemCall, bool) {
	key := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
	if key == "" || s.Idem == nil {
		return idemCall{}, false
	}
	bodyHash, err := hashBody(body)
	if err != nil {
		writeAppError(w, r, err)
		return idemCall{}, true
	}

	ctx := r.Context()
	metaFP := idempotency.Fingerprint{
		Key:    idempotency.Key(key),
		Method: r.Method,
		Route:  route,
	}
	meta, ok, err := s.Idem.Get(ctx, metaFP)
	if err != nil {
		writeAppError(w, r, apperr.Store("load idempotency record", err))
		return idemCall{}, true
	}
	if ok {
		if string(meta.Body) != bodyHash {
			writeError(w, r, http.StatusConflict, codeIdempotencyKeyReuse, "idempotency key reuse with different payload", nil)
			return idemCall{}, true
		}
	} else {
		_ = s.Idem.Put(ctx, metaFP, idempotency.Record{
			StatusCode:  0,
			ContentType: "text/plain",
			Body:        []byte(bodyHash),
			CreatedAt:   s.Clock.Now().UTC(),
		})
	}

	respFP := metaFP
	respFP.BodyHash = bodyHash
	rec, ok, err := s.Idem.Get(ctx, respFP)
	if err != nil {
		writeAppError(w, r, apperr.Store("load idempotency record", err))
		return idemCall{}, true
	}
	if ok && rec.StatusCode != 0 && strings.HasPrefix(rec.ContentType, "application/json") {
		logger.Debug(ctx, "idempotent replay", "route", route)
		w.Header().Set("Content-Type", rec.ContentType)
		w.Header().Set(headerIdempotentReplay, "true")
		w.WriteHeader(rec.StatusCode)
		_, _ = w.Write(rec.Body)
		return idemCall{}, true
	}
	return idemCall{active: true, resp: respFP}, false
}

// respond writes v as JSON and, for a successful idempotent call, stores it for replay.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, call idemCall, status int, v any) {
	if !call.active || status >= 300 {
		writeJSON(w, status, v)
		return
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		writeAppError(w, r, err)
		return
	}
	if err := s.Idem.Put(r.Context(), call.resp, idempotency.Record{
		StatusCode:  status,
		ContentType: "application/json",
		Body:        buf.Bytes(),
		CreatedAt:   s.Clock.Now().UTC(),
	}); err != nil {
		logger.Warn(r.Context(), "store idempotency record failed", "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func hashBody(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
