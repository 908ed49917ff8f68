package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mockview/mockview/internal/accounts"
	"github.com/mockview/mockview/internal/evaluation"
	"github.com/mockview/mockview/internal/interview"
	"github.com/mockview/mockview/internal/logger"
	"github.com/mockview/mockview/internal/narration"
	"github.com/mockview/mockview/internal/resume"
	"go.uber.org/zap"
)

const (
	sessionCookie = "mockview_token"

	// Uploads larger than this are rejected outright.
	maxUploadBytes = 32 << 20
)

type credentialsRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := s.directory.CreateAccount(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, accounts.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email exists")
			return
		}
		s.logger.Error("signup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "signup failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.directory.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.logger.Error("login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	token := s.tokens.Issue(strconv.FormatInt(user.ID, 10))
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]any{"name": user.Name})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ string) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		s.tokens.Revoke(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// withUser resolves the caller's identity from the session cookie.
func (s *Server) withUser(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}

		userID, ok := s.tokens.Lookup(cookie.Value)
		if !ok {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}

		next(w, r, userID)
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request, userID string) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("resume")
	if err != nil {
		writeError(w, http.StatusBadRequest, "resume file is required")
		return
	}
	defer file.Close()

	doc, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading resume upload failed")
		return
	}

	info := interview.UserInfo{
		DisplayName: r.FormValue("name"),
		ExternalID:  r.FormValue("uid"),
		Role:        r.FormValue("role"),
		Company:     strings.TrimSpace(r.FormValue("company")),
	}

	if err := s.interviews.Register(r.Context(), userID, info, bytes.NewReader(doc), int64(len(doc))); err != nil {
		if errors.Is(err, resume.ErrUnreadableDocument) {
			writeError(w, http.StatusBadRequest, "resume is unreadable")
			return
		}
		s.logger.Error("registration failed", zap.String(logger.FieldUser, userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "redirect": "/interview"})
}

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request, userID string) {
	snap, err := s.interviews.Current(userID)
	if err != nil {
		s.writeInterviewError(w, userID, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"question":  snap.Question,
		"audio":     audioRef(snap.Audio),
		"index":     snap.Position,
		"total":     snap.Total,
		"user_info": snap.User,
		"answers":   snap.Answers,
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, userID string) {
	// Verify the session before touching disk so a sessionless submit
	// leaves no orphaned audio file behind.
	if _, err := s.interviews.Current(userID); err != nil {
		s.writeInterviewError(w, userID, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading audio upload failed")
		return
	}

	name := fmt.Sprintf("a_%s_%s.wav", userID, uuid.NewString())
	ref, err := s.answers.Save(name, data)
	if err != nil {
		s.logger.Error("saving answer failed", zap.String(logger.FieldUser, userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "saving answer failed")
		return
	}

	if err := s.interviews.RecordAnswer(userID, ref); err != nil {
		s.writeInterviewError(w, userID, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleNext(w http.ResponseWriter, _ *http.Request, userID string) {
	if err := s.interviews.Advance(userID); err != nil {
		s.writeInterviewError(w, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handlePrev(w http.ResponseWriter, _ *http.Request, userID string) {
	if err := s.interviews.Retreat(userID); err != nil {
		s.writeInterviewError(w, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSubmitAll(w http.ResponseWriter, r *http.Request, userID string) {
	if err := s.interviews.Finalize(r.Context(), userID); err != nil {
		s.writeInterviewError(w, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleResult(w http.ResponseWriter, _ *http.Request, userID string) {
	result, err := s.interviews.Result(userID)
	if err != nil {
		s.writeInterviewError(w, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) writeInterviewError(w http.ResponseWriter, userID string, err error) {
	switch {
	case errors.Is(err, interview.ErrNoActiveSession):
		writeError(w, http.StatusNotFound, "no active interview")
	case errors.Is(err, interview.ErrResultNotReady):
		writeError(w, http.StatusConflict, "not ready")
	case errors.Is(err, evaluation.ErrEvaluationFailed):
		s.logger.Warn("evaluation failed", zap.String(logger.FieldUser, userID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "evaluation failed")
	default:
		s.logger.Error("interview operation failed", zap.String(logger.FieldUser, userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// audioRef mirrors the presentation contract: unavailable narration is
// sent as "#" so the front end falls back to text.
func audioRef(clip narration.Clip) string {
	if !clip.Available {
		return "#"
	}
	return clip.Ref
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
