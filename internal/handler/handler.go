package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/tutor/internal/curriculum"
	"github.com/pavelanni/tutor/internal/i18n"
	"github.com/pavelanni/tutor/internal/lesson"
	"github.com/pavelanni/tutor/internal/model"
	"github.com/pavelanni/tutor/internal/tutor"
)

const (
	maxBodyBytes = 1 << 20
	minGrade     = 1
	maxGrade     = 12
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	tutor    *tutor.Service
	planner  *curriculum.Planner
	sessions *tutor.Registry
}

// New creates a new Handler.
func New(svc *tutor.Service, planner *curriculum.Planner, sessions *tutor.Registry) *Handler {
	return &Handler{tutor: svc, planner: planner, sessions: sessions}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", h.handleCreateSession)
		r.Get("/sessions/{sessionID}", h.handleGetSession)
		r.Post("/sessions/{sessionID}/curriculum", h.handleRetryCurriculum)
		r.Get("/sessions/{sessionID}/feedback", h.handleFeedback)
		r.Post("/sessions/{sessionID}/respond", h.handleRespond)
		r.Post("/lesson_planner", h.handleLessonPlanner)
	})
}

type createSessionRequest struct {
	StudentID         string `json:"studentId"`
	EssayText         string `json:"essayText"`
	StudentGrade      int    `json:"studentGrade"`
	StudentReflection string `json:"student_reflection"`
}

type sessionResponse struct {
	model.SessionView
	Progress        *model.Progress    `json:"progress,omitempty"`
	ProgressText    string             `json:"progressText,omitempty"`
	WelcomeMessage  string             `json:"welcomeMessage,omitempty"`
	Curriculum      *curriculum.Result `json:"curriculum,omitempty"`
	CurriculumError string             `json:"curriculumError,omitempty"`
}

type feedbackResponse struct {
	Feedback     string       `json:"feedback"`
	CurrentState lesson.State `json:"currentState"`
}

type respondRequest struct {
	Response string `json:"response"`
}

type respondResponse struct {
	Reply        string                      `json:"reply"`
	Conversation []model.FeedbackInteraction `json:"conversation"`
	CurrentState lesson.State                `json:"currentState"`
}

type lessonPlannerRequest struct {
	StudentText       string `json:"student_text"`
	StudentReflection string `json:"student_reflection"`
	StudentGrade      int    `json:"student_grade"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": h.sessions.Len()})
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := validateSessionRequest(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	sess := h.tutor.StartFeedbackSession(req.StudentID, req.EssayText, req.StudentGrade)
	sess.StudentReflection = req.StudentReflection
	h.sessions.Put(sess)
	h.tutor.SaveSnapshot(r.Context(), sess)
	slog.Info("session created", "session", sess.ID, "student", req.StudentID, "grade", req.StudentGrade)

	resp := sessionResponse{}
	result, err := h.planner.Generate(r.Context(), curriculum.Input{
		StudentText:       req.EssayText,
		StudentReflection: req.StudentReflection,
		StudentGrade:      req.StudentGrade,
	})
	if err == nil {
		err = h.tutor.InitializeLessonManager(sess, result.LessonPlans)
	}
	if err != nil {
		// The session stays awaiting its curriculum; the client can retry.
		slog.Warn("curriculum generation failed", "session", sess.ID, "error", err)
		resp.CurriculumError = i18n.T(r.Context(), "ErrCurriculumFailed")
	} else {
		resp.Curriculum = result
		resp.WelcomeMessage = h.tutor.GenerateWelcomeMessage(r.Context(), result.LessonPlans)
	}

	h.fillSession(r, &resp, sess)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var resp sessionResponse
	h.fillSession(r, &resp, sess)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRetryCurriculum(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := sess.Acquire(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	defer sess.Release()

	if sess.Manager() != nil {
		h.writeError(w, r, tutor.ErrCurriculumExists)
		return
	}

	result, err := h.planner.Generate(r.Context(), curriculum.Input{
		StudentText:       sess.EssayText,
		StudentReflection: sess.StudentReflection,
		StudentGrade:      sess.StudentGrade,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.tutor.InitializeLessonManager(sess, result.LessonPlans); err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := sessionResponse{
		Curriculum:     result,
		WelcomeMessage: h.tutor.GenerateWelcomeMessage(r.Context(), result.LessonPlans),
	}
	h.fillSession(r, &resp, sess)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	feedback, state, err := h.tutor.NextFeedback(r.Context(), sess)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feedbackResponse{Feedback: feedback, CurrentState: state})
}

func (h *Handler) handleRespond(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req respondRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Response == "" {
		h.writeError(w, r, requiredField("response"))
		return
	}

	reply, state, err := h.tutor.Respond(r.Context(), sess, req.Response)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, respondResponse{
		Reply:        reply,
		Conversation: sess.Interactions(),
		CurrentState: state,
	})
}

func (h *Handler) handleLessonPlanner(w http.ResponseWriter, r *http.Request) {
	var req lessonPlannerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	in := curriculum.Input{
		StudentText:       req.StudentText,
		StudentReflection: req.StudentReflection,
		StudentGrade:      req.StudentGrade,
	}
	if in.StudentText == "" {
		h.writeError(w, r, requiredField("student_text"))
		return
	}
	if err := validateGrade(in.StudentGrade); err != nil {
		h.writeError(w, r, err)
		return
	}

	text, err := h.planner.GenerateRaw(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (h *Handler) fillSession(r *http.Request, resp *sessionResponse, sess *tutor.Session) {
	resp.SessionView = sess.View()
	if p, ok := sess.Progress(); ok {
		resp.Progress = &p
		resp.ProgressText = i18n.Tp(r.Context(), "ActivitiesCompleted", p.Completed)
	}
}

func validateSessionRequest(req createSessionRequest) error {
	if req.StudentID == "" {
		return requiredField("studentId")
	}
	if req.EssayText == "" {
		return requiredField("essayText")
	}
	return validateGrade(req.StudentGrade)
}

func validateGrade(grade int) error {
	if grade < minGrade || grade > maxGrade {
		return &validationError{
			msgID: "ErrGradeRange",
			data:  map[string]any{"Min": minGrade, "Max": maxGrade},
		}
	}
	return nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &validationError{msgID: "ErrInvalidBody", cause: err}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
