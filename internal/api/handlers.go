package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/SupportPipe/internal/models"
	"github.com/google/uuid"
)

// sessionID returns the web session for the request, issuing a cookie when the
// request has none or an unparseable one.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return WebSessionPrefix + id.String()
		}
		slog.Debug("Server.sessionID: ignoring malformed session cookie")
	}
	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   sessionCookieMaxAge,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	slog.Debug("Server.sessionID: issued session cookie", "sessionID", WebSessionPrefix+id)
	return WebSessionPrefix + id
}

func writeText(w http.ResponseWriter, statusCode int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(text)); err != nil {
		slog.Error("Server.writeText: failed to write response", "error", err)
	}
}

func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	for _, m := range methods {
		w.Header().Add("Allow", m)
	}
	slog.Warn("Server: method not allowed", "method", r.Method, "path", r.URL.Path)
	w.WriteHeader(http.StatusMethodNotAllowed)
	return false
}

// chatHandler runs one turn (GET|POST /get?msg=...).
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeText(w, http.StatusBadRequest, "Invalid request")
		return
	}
	msg := r.Form.Get("msg")
	if msg == "" {
		slog.Warn("Server.chatHandler: missing msg parameter")
		writeText(w, http.StatusBadRequest, "Missing required parameter: msg")
		return
	}

	sessionID := s.sessionID(w, r)
	reply, err := s.dialogue.ProcessTurn(r.Context(), sessionID, msg)
	if err != nil {
		slog.Error("Server.chatHandler: turn failed", "sessionID", sessionID, "error", err)
		writeText(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeText(w, http.StatusOK, reply)
}

// resetHandler discards the session (GET /reset).
func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	sessionID := s.sessionID(w, r)
	if err := s.dialogue.Reset(r.Context(), sessionID); err != nil {
		slog.Error("Server.resetHandler: reset failed", "sessionID", sessionID, "error", err)
		writeText(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeText(w, http.StatusOK, "Session reset.")
}

// welcomeHandler starts a fresh conversation (GET /).
func (s *Server) welcomeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	sessionID := s.sessionID(w, r)
	greeting, err := s.dialogue.Welcome(r.Context(), sessionID)
	if err != nil {
		slog.Error("Server.welcomeHandler: welcome failed", "sessionID", sessionID, "error", err)
		writeText(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeText(w, http.StatusOK, greeting)
}

// healthHandler reports liveness (GET /health).
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"status": "healthy",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	}))
}
