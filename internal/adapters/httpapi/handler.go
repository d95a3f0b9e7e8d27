// Package httpapi exposes the simulation sessions, lesson catalogue and code
// samples over JSON HTTP and a websocket snapshot stream.
package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"threadlab/internal/blob"
	"threadlab/internal/core"
	"threadlab/pkg/domain"
)

const (
	apiPrefix      = "/api/v1"
	sessionsPrefix = apiPrefix + "/sessions"
	samplesPrefix  = apiPrefix + "/samples/"
	maxBodyBytes   = 1 << 16
	presignExpiry  = 10 * time.Minute
)

var errBadRequest = errors.New("bad request")

// Handler routes the public API onto the session service.
type Handler struct {
	Service *core.Service
	Samples blob.Store
	Hub     *Hub
	Logger  core.Logger
}

// NewHandler constructs a handler. samples and hub may be nil, which disables
// the sample and stream routes.
func NewHandler(svc *core.Service, samples blob.Store, hub *Hub) *Handler {
	return &Handler{Service: svc, Samples: samples, Hub: hub, Logger: nopLogger{}}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		writeError(w, http.StatusInternalServerError, "session service not configured")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == apiPrefix+"/catalog":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"catalog": h.Service.Catalog()})
	case path == sessionsPrefix:
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleOpen(w, r)
	case strings.HasPrefix(path, sessionsPrefix+"/"):
		h.handleSession(w, r, strings.TrimPrefix(path, sessionsPrefix+"/"))
	case strings.HasPrefix(path, samplesPrefix):
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleSample(w, r, strings.TrimPrefix(path, samplesPrefix))
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Service.OpenSession(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request, remainder string) {
	id, rest, _ := strings.Cut(remainder, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch rest {
	case "":
		switch r.Method {
		case http.MethodGet:
			snap, err := h.Service.Snapshot(r.Context(), id)
			if err != nil {
				h.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, snap)
		case http.MethodDelete:
			if err := h.Service.CloseSession(r.Context(), id); err != nil {
				h.fail(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	case "stream":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleStream(w, r, id)
		return
	}

	act, ok := sessionActions[rest]
	if !ok {
		writeError(w, http.StatusNotFound, "session endpoint not found")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}
	snap, err := h.Service.Do(r.Context(), operationName(rest), id, func(s *core.Session) error {
		return act(s, body)
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request, id string) {
	if h.Hub == nil {
		writeError(w, http.StatusNotFound, "snapshot stream not configured")
		return
	}
	snap, err := h.Service.Snapshot(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.Hub.Subscribe(w, r, id, snap, func() bool {
		_, err := h.Service.Session(id)
		return err == nil
	})
}

// handleSample redirects to a presigned URL when the store can sign one and
// streams the blob otherwise.
func (h *Handler) handleSample(w http.ResponseWriter, r *http.Request, key string) {
	if h.Samples == nil {
		writeError(w, http.StatusNotFound, "sample store not configured")
		return
	}
	ctx := r.Context()
	if _, err := h.Samples.Head(ctx, key); err != nil {
		h.fail(w, err)
		return
	}
	url, err := h.Samples.PresignURL(ctx, key, blob.SignedURLOptions{Method: http.MethodGet, Expiry: presignExpiry})
	switch {
	case err == nil:
		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
		return
	case !errors.Is(err, blob.ErrUnsupported):
		h.fail(w, err)
		return
	}

	info, rc, err := h.Samples.Get(ctx, key)
	if err != nil {
		h.fail(w, err)
		return
	}
	defer rc.Close()
	etag := `"` + info.ETag + `"`
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	contentType := info.ContentType
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", fmt.Sprint(info.Size))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.Logger.Warn("stream sample", "key", key, "error", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error("request failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrMissing), errors.Is(err, blob.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrInvalidSetting),
		errors.Is(err, domain.ErrUnknownState),
		errors.Is(err, domain.ErrUnknownTechnique):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// operationName turns "context-switch/speed" into "context_switch_speed".
func operationName(route string) string {
	return strings.NewReplacer("/", "_", "-", "_").Replace(route)
}

func decodeBody(body []byte, dst any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("%w: empty body", errBadRequest)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
