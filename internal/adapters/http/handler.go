package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PabloGalante/studychat/internal/app/conversation"
	"github.com/PabloGalante/studychat/internal/app/settings"
	"github.com/PabloGalante/studychat/internal/domain"
	"github.com/PabloGalante/studychat/internal/observability"
)

// Options tunes the HTTP surface. Zero values get sensible defaults.
type Options struct {
	AllowedOrigin string
	MessageRPS    float64
	MessageBurst  int
	MaxUpload     int64
	Metrics       bool
}

type Server struct {
	router    *chi.Mux
	conv      *conversation.Service
	settings  *settings.Service
	limits    *limiterPool
	maxUpload int64
}

func NewServer(conv *conversation.Service, settingsSvc *settings.Service, opts Options) *Server {
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = "*"
	}
	if opts.MessageRPS <= 0 {
		opts.MessageRPS = 2
	}
	if opts.MessageBurst <= 0 {
		opts.MessageBurst = 5
	}
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = 32 << 20
	}

	s := &Server{
		router:    chi.NewRouter(),
		conv:      conv,
		settings:  settingsSvc,
		limits:    newLimiterPool(opts.MessageRPS, opts.MessageBurst),
		maxUpload: opts.MaxUpload,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(withLogging)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{opts.AllowedOrigin},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	s.routes(opts.Metrics)
	return s
}

func (s *Server) routes(metrics bool) {
	s.router.Get("/healthz", s.handleHealth)
	if metrics {
		s.router.Handle("/metrics", promhttp.Handler())
	}
	s.router.Get("/partners", s.handlePartners)

	s.router.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(withSessionID)
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.With(s.rateLimited).Post("/messages", s.handleSendMessage)
			r.Put("/partner", s.handleSwitchPartner)
			r.Get("/events", s.handleEvents)
		})
	})

	s.router.Get("/settings", s.handleGetSettings)
	s.router.Put("/settings", s.handlePutSettings)

	s.router.Post("/uploads", s.handleUploads)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.limits.Shutdown()
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type partnerResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
	IsAutomated bool   `json:"is_automated"`
}

type messageResponse struct {
	ID     string    `json:"id"`
	Text   string    `json:"text"`
	Sender string    `json:"sender"`
	SentAt time.Time `json:"sent_at"`
}

type sessionResponse struct {
	ID            string            `json:"id"`
	Partner       partnerResponse   `json:"partner"`
	Messages      []messageResponse `json:"messages"`
	AwaitingReply bool              `json:"awaiting_reply"`
	Revision      uint64            `json:"revision"`
}

type createSessionRequest struct {
	PartnerID string `json:"partner_id,omitempty"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	Accepted bool            `json:"accepted"`
	Session  sessionResponse `json:"session"`
}

type switchPartnerRequest struct {
	PartnerID string `json:"partner_id"`
}

type switchPartnerResponse struct {
	Switched bool            `json:"switched"`
	Session  sessionResponse `json:"session"`
}

type settingsRequest struct {
	OpenAI string `json:"openai"`
	Gemini string `json:"gemini"`
}

type settingsResponse struct {
	OpenAI string `json:"openai"`
	Gemini string `json:"gemini"`
	Masked bool   `json:"masked"`
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePartners(w http.ResponseWriter, r *http.Request) {
	partners := s.conv.Partners()
	out := make([]partnerResponse, 0, len(partners))
	for _, p := range partners {
		out = append(out, toPartnerResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	// the body is optional
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "invalid JSON body")
		return
	}

	out, err := s.conv.StartSession(r.Context(), conversation.StartSessionInput{
		PartnerID: domain.PartnerID(req.PartnerID),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/sessions/"+string(out.Session.SessionID))
	writeJSON(w, http.StatusCreated, toSessionResponse(out.Session))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.conv.GetSession(r.Context(), sessionIDParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(snap))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := sessionIDParam(r)
	if err := s.conv.EndSession(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.limits.Forget(string(id))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	out, err := s.conv.SendMessage(r.Context(), conversation.SendMessageInput{
		SessionID: sessionIDParam(r),
		Text:      req.Text,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sendMessageResponse{
		Accepted: out.Accepted,
		Session:  toSessionResponse(out.Session),
	})
}

func (s *Server) handleSwitchPartner(w http.ResponseWriter, r *http.Request) {
	var req switchPartnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.PartnerID == "" {
		badRequest(w, "partner_id is required")
		return
	}

	out, err := s.conv.SwitchPartner(r.Context(), conversation.SwitchPartnerInput{
		SessionID: sessionIDParam(r),
		PartnerID: domain.PartnerID(req.PartnerID),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, switchPartnerResponse{
		Switched: out.Switched,
		Session:  toSessionResponse(out.Session),
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	reveal, _ := strconv.ParseBool(r.URL.Query().Get("reveal"))

	keys, err := s.settings.Get(r.Context(), reveal)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{
		OpenAI: keys.OpenAI,
		Gemini: keys.Gemini,
		Masked: !reveal,
	})
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	saved, err := s.settings.Save(r.Context(), domain.APIKeys{OpenAI: req.OpenAI, Gemini: req.Gemini})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{
		OpenAI: settings.Mask(saved.OpenAI),
		Gemini: settings.Mask(saved.Gemini),
		Masked: true,
	})
}

// ─────────────────────────────────────────────
// Conversation Helpers
// ─────────────────────────────────────────────

func sessionIDParam(r *http.Request) domain.SessionID {
	return domain.SessionID(chi.URLParam(r, "id"))
}

func toPartnerResponse(p domain.Partner) partnerResponse {
	return partnerResponse{
		ID:          string(p.ID),
		DisplayName: p.DisplayName,
		Avatar:      p.Avatar,
		IsAutomated: p.IsAutomated,
	}
}

func toMessageResponse(m domain.Message) messageResponse {
	return messageResponse{
		ID:     string(m.ID),
		Text:   m.Text,
		Sender: string(m.Sender),
		SentAt: m.SentAt,
	}
}

func toSessionResponse(snap domain.Snapshot) sessionResponse {
	msgs := make([]messageResponse, 0, len(snap.Log))
	for _, m := range snap.Log {
		msgs = append(msgs, toMessageResponse(m))
	}
	return sessionResponse{
		ID:            string(snap.SessionID),
		Partner:       toPartnerResponse(snap.Partner),
		Messages:      msgs,
		AwaitingReply: snap.AwaitingReply,
		Revision:      snap.Revision,
	}
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeErrorMessage(w, http.StatusBadRequest, msg)
}

// writeError maps domain errors to status codes. Anything unknown is logged
// and reported as a 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeErrorMessage(w, http.StatusNotFound, "session not found")
	case errors.Is(err, domain.ErrSessionExists):
		writeErrorMessage(w, http.StatusConflict, "session already exists")
	default:
		observability.LoggerFromContext(r.Context()).Error("request failed", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
