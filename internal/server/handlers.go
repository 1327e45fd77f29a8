package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/asolanog/conversia/internal/auth"
	"github.com/asolanog/conversia/internal/models"
	"github.com/asolanog/conversia/internal/service"
)

// defaultListLimit caps list endpoints when the client sends no limit.
const defaultListLimit = 50

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.collector.Snapshot())
}

type sendInvitationRequest struct {
	Email string `json:"email"`
}

type sendInvitationResponse struct {
	Email     string    `json:"email"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleSendInvitation(w http.ResponseWriter, r *http.Request) {
	var req sendInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session := SessionFromContext(r.Context())
	inv, link, err := s.invitations.Issue(r.Context(), req.Email, session.UserID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidEmail) {
			writeError(w, http.StatusBadRequest, "invalid email address")
			return
		}
		s.logger.Error("issue invitation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create invitation")
		return
	}

	writeJSON(w, http.StatusCreated, sendInvitationResponse{
		Email:     inv.Email,
		Link:      link,
		ExpiresAt: inv.ExpiresAt,
	})
}

type registerRequest struct {
	Token    string  `json:"token"`
	UserID   string  `json:"user_id"`
	FullName *string `json:"full_name,omitempty"`
}

type registerResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleRegister redeems an invitation token and mints a session for the
// identity the auth provider assigned. The invitation itself is the
// credential, so the route is open.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "token and user_id are required")
		return
	}

	inv, err := s.invitations.Redeem(r.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvitationNotFound):
			writeError(w, http.StatusNotFound, "invitation not found")
		case errors.Is(err, service.ErrInvitationUsed):
			writeError(w, http.StatusConflict, "invitation already used")
		case errors.Is(err, service.ErrInvitationExpired):
			writeError(w, http.StatusGone, "invitation expired")
		default:
			s.logger.Error("redeem invitation failed", "error", err)
			writeError(w, http.StatusInternalServerError, "could not redeem invitation")
		}
		return
	}

	if _, err := s.users.EnsureProfile(r.Context(), req.UserID, inv.Email, req.FullName); err != nil {
		s.logger.Error("ensure profile failed", "error", err, "user", req.UserID)
		writeError(w, http.StatusInternalServerError, "could not create profile")
		return
	}

	role, err := s.users.EffectiveRole(r.Context(), req.UserID)
	if err != nil {
		s.logger.Error("resolve role failed", "error", err, "user", req.UserID)
		writeError(w, http.StatusInternalServerError, "could not resolve role")
		return
	}

	token, err := s.tokens.Issue(req.UserID, inv.Email, role)
	if err != nil {
		s.logger.Error("issue session token failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not issue session")
		return
	}

	session := &auth.Session{UserID: req.UserID, Email: inv.Email, Role: role}
	s.notifier.Publish(auth.Event{Type: auth.EventSignedIn, Session: session})
	s.logger.Info("invitation redeemed", "email", inv.Email, "user", req.UserID)

	writeJSON(w, http.StatusCreated, registerResponse{
		Token:     token,
		UserID:    req.UserID,
		Email:     inv.Email,
		Role:      string(role),
		ExpiresAt: time.Now().Add(s.tokens.TTL()),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	if !session.Authenticated() {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	s.notifier.Publish(auth.Event{Type: auth.EventSignedOut, Session: nil})
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	channel := r.URL.Query().Get("channel")
	if channel != "" && channel != string(models.ChannelWeb) && channel != string(models.ChannelWhatsapp) {
		writeError(w, http.StatusBadRequest, "unknown channel")
		return
	}

	views, err := s.convs.List(r.Context(), channel, limit)
	if err != nil {
		s.logger.Error("list conversations failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list conversations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": views})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	view, messages, err := s.convs.Get(r.Context(), id)
	if err != nil {
		s.logger.Error("get conversation failed", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load conversation")
		return
	}
	if view == nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversation": view,
		"messages":     messages,
	})
}

// parseWindow reads start/end query params as YYYY-MM-DD, defaulting to the
// last 30 days.
func parseWindow(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	start := now.AddDate(0, 0, -30)
	end := now

	if raw := r.URL.Query().Get("start"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid start date")
		}
		start = t
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid end date")
		}
		// Make the end date inclusive through end of day
		end = t.Add(24*time.Hour - time.Second)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end before start")
	}
	return start, end, nil
}

// timeSeriesTables maps the public series names onto datastore columns.
var timeSeriesTables = map[string]struct{ table, field string }{
	"conversations": {"conversation", "date"},
	"messages":      {"message", "timestamp"},
	"referrals":     {"referral", "created_at"},
	"mentions":      {"product_mention", "created_at"},
}

func (s *Server) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	series := r.URL.Query().Get("series")
	if series == "" {
		series = "conversations"
	}
	target, ok := timeSeriesTables[series]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown series")
		return
	}

	start, end, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	points, err := s.stats.TimeSeries(r.Context(), target.table, target.field, start, end)
	if err != nil {
		s.logger.Error("time series failed", "series", series, "error", err)
		writeError(w, http.StatusInternalServerError, "could not build time series")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"series": series, "points": points})
}

func (s *Server) handleProductStats(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := s.stats.Products(r.Context(), start, end)
	if err != nil {
		s.logger.Error("product stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load product stats")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": rows})
}

func (s *Server) handleReferralStats(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := s.stats.Referrals(r.Context(), start, end)
	if err != nil {
		s.logger.Error("referral stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load referral stats")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"referrals": rows})
}

type jobResponse struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	Total       int        `json:"total"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Succeeded       int `json:"succeeded"`
	Failed          int `json:"failed"`
	MessagesUpdated int `json:"messages_updated"`
}

func toJobResponse(j service.Job) jobResponse {
	resp := jobResponse{
		ID:          j.ID,
		Status:      string(j.Status),
		Progress:    j.Progress,
		Total:       j.Total,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
	if j.Report != nil {
		resp.Succeeded = len(j.Report.Succeeded)
		resp.Failed = len(j.Report.Failed)
		resp.MessagesUpdated = j.Report.MessagesUpdated
	}
	return resp
}

func (s *Server) handleStartSync(w http.ResponseWriter, r *http.Request) {
	// The job outlives the request; it carries its own context
	job := s.jobs.Start(context.Background(), s.newSync())
	writeJSON(w, http.StatusAccepted, toJobResponse(job.Snapshot()))
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	jobs := s.jobs.List()
	out := make([]jobResponse, len(jobs))
	for i, j := range jobs {
		out[i] = toJobResponse(j)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job := s.jobs.Get(chi.URLParam(r, "id"))
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(job.Snapshot()))
}
