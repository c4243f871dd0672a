package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/pathgenius/pathgenius/internal/assessment"
	"github.com/pathgenius/pathgenius/internal/course"
	"github.com/pathgenius/pathgenius/internal/report"
	"github.com/pathgenius/pathgenius/internal/session"
	"github.com/pathgenius/pathgenius/internal/store"
)

// userID extracts the authenticated user from the request. The auth layer
// in front of this service guarantees the header; an empty value is a
// client error, not a server concern.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func (s *Server) moduleParams(w http.ResponseWriter, r *http.Request) (uid, courseID string, moduleID int, ok bool) {
	uid = userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID header")
		return "", "", 0, false
	}
	courseID = r.PathValue("courseID")
	moduleID, err := strconv.Atoi(r.PathValue("moduleID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "module id must be an integer")
		return "", "", 0, false
	}
	return uid, courseID, moduleID, true
}

// notFoundOrError maps load failures to responses. Forbidden is presented
// exactly like NotFound so existence cannot be probed.
func notFoundOrError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, session.ErrForbidden) {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "failed to load course")
}

func (s *Server) handleLoadModule(w http.ResponseWriter, r *http.Request) {
	uid, courseID, moduleID, ok := s.moduleParams(w, r)
	if !ok {
		return
	}

	sess := s.sessions.ModuleSession(uid, courseID, moduleID)
	module, err := sess.Load(r.Context(), courseID, moduleID, uid)
	if err != nil {
		notFoundOrError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"module":         module,
		"content":        module.Content(),
		"state":          sess.State().String(),
		"topicIndex":     sess.TopicIndex(),
		"courseProgress": sess.CourseProgress(),
	})
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	uid, courseID, moduleID, ok := s.moduleParams(w, r)
	if !ok {
		return
	}

	var req struct {
		Direction string `json:"direction"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := s.sessions.ModuleSession(uid, courseID, moduleID)
	index, err := sess.NavigateTopic(r.Context(), req.Direction)

	resp := map[string]any{
		"topicIndex":     index,
		"moduleProgress": sess.Module().Progress,
		"courseProgress": sess.CourseProgress(),
	}
	if err != nil {
		var perr *session.PersistenceError
		if errors.As(err, &perr) {
			// Optimistic write: progress is applied locally but not saved.
			resp["warning"] = perr.Error()
		} else {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompleteTopic(w http.ResponseWriter, r *http.Request) {
	uid, courseID, moduleID, ok := s.moduleParams(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "topic index must be an integer")
		return
	}

	sess := s.sessions.ModuleSession(uid, courseID, moduleID)
	err = sess.MarkTopicCompleted(r.Context(), index)

	resp := map[string]any{
		"moduleProgress": sess.Module().Progress,
		"courseProgress": sess.CourseProgress(),
	}
	if err != nil {
		var perr *session.PersistenceError
		if errors.As(err, &perr) {
			resp["warning"] = perr.Error()
		} else {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNextModule(w http.ResponseWriter, r *http.Request) {
	uid, courseID, moduleID, ok := s.moduleParams(w, r)
	if !ok {
		return
	}

	sess := s.sessions.ModuleSession(uid, courseID, moduleID)
	nextID, done := sess.AdvanceToNextModule()
	if done {
		writeJSON(w, http.StatusOK, map[string]any{"done": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"done": false, "nextModuleId": nextID})
}

// handleUnloadModule discards the caller's module and quiz sessions for
// the key. Clients call it when navigating away so session state does not
// accumulate for the life of the process; the next load starts fresh from
// the store.
func (s *Server) handleUnloadModule(w http.ResponseWriter, r *http.Request) {
	uid, courseID, moduleID, ok := s.moduleParams(w, r)
	if !ok {
		return
	}

	s.sessions.Discard(uid, courseID, moduleID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQuizCheck(w http.ResponseWriter, r *http.Request) {
	uid, courseID, moduleID, ok := s.moduleParams(w, r)
	if !ok {
		return
	}

	quiz := s.sessions.QuizSession(uid, courseID, moduleID)
	resumed, err := quiz.CheckExistingAttempt(r.Context(), uid, courseID, moduleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check attempts")
		return
	}

	resp := map[string]any{
		"resumed": resumed,
		"state":   quiz.State().String(),
	}
	if resumed {
		resp["questions"] = quiz.Questions()
		resp["result"] = quiz.Result()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuizStart(w http.ResponseWriter, r *http.Request) {
	uid, courseID, moduleID, ok := s.moduleParams(w, r)
	if !ok {
		return
	}

	// Reload unless the session already holds a usable module. An earlier
	// failed load leaves it errored with a zero-value module; starting a
	// quiz from that would generate against empty topics.
	module := s.sessions.ModuleSession(uid, courseID, moduleID)
	if st := module.State(); st != session.ModuleReady && st != session.ModuleBackfilling {
		if _, err := module.Load(r.Context(), courseID, moduleID, uid); err != nil {
			notFoundOrError(w, err)
			return
		}
	}

	quiz := s.sessions.QuizSession(uid, courseID, moduleID)
	if err := quiz.Start(r.Context(), uid, moduleID, courseID, module.Module().Topics); err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("quiz generation failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"state":     quiz.State().String(),
		"questions": quiz.Questions(),
	})
}

func (s *Server) handleQuizAnswer(w http.ResponseWriter, r *http.Request) {
	uid, courseID, moduleID, ok := s.moduleParams(w, r)
	if !ok {
		return
	}

	var req struct {
		QuestionID string `json:"questionId"`
		Text       string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	quiz := s.sessions.QuizSession(uid, courseID, moduleID)
	if err := quiz.RecordAnswer(req.QuestionID, req.Text); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": quiz.State().String()})
}

func (s *Server) handleQuizSubmit(w http.ResponseWriter, r *http.Request) {
	uid, courseID, moduleID, ok := s.moduleParams(w, r)
	if !ok {
		return
	}

	quiz := s.sessions.QuizSession(uid, courseID, moduleID)
	attempt, err := quiz.Submit(r.Context())
	if err != nil {
		var perr *session.PersistenceError
		switch {
		case errors.As(err, &perr):
			// Scored but not (fully) persisted; the caller sees both.
			writeJSON(w, http.StatusOK, map[string]any{
				"attempt": attempt,
				"warning": perr.Error(),
			})
		case errors.Is(err, session.ErrQuizIncomplete):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, session.ErrNoActiveQuiz):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusBadGateway, fmt.Sprintf("quiz evaluation failed: %v", err))
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"attempt": attempt})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID header")
		return
	}
	courseID := r.PathValue("courseID")

	var c course.Course
	if err := s.store.Get(r.Context(), course.Collection, courseID, &c); err != nil {
		notFoundOrError(w, err)
		return
	}
	if c.OwnerID != uid {
		notFoundOrError(w, session.ErrForbidden)
		return
	}

	workbook, err := report.CourseWorkbook(&c)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	defer workbook.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "course-progress.xlsx"))
	if err := workbook.Write(w); err != nil {
		// Headers are gone; nothing left to do but log.
		return
	}
}

func (s *Server) handleAssessmentCreate(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID header")
		return
	}

	var req struct {
		LearningGoal    string `json:"learningGoal"`
		ProfessionLevel string `json:"professionLevel"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.LearningGoal == "" {
		writeError(w, http.StatusBadRequest, "learningGoal is required")
		return
	}

	sess, err := s.assessments.GenerateQuestions(r.Context(), uid, req.LearningGoal, req.ProfessionLevel)
	if err != nil {
		writeError(w, http.StatusBadGateway, "assessment generation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": sess.ID,
		"questions": sess.Questions,
	})
}

func (s *Server) handleAssessmentEvaluate(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID header")
		return
	}
	sessionID := r.PathValue("sessionID")

	var req struct {
		Answers map[string]string `json:"answers"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.assessments.Evaluate(r.Context(), sessionID, req.Answers)
	if err != nil {
		if errors.Is(err, assessment.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "assessment session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "assessment evaluation failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
