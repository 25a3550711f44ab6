package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chambrid/jira-timelog/pkg/report"
	"github.com/chambrid/jira-timelog/pkg/session"
	"github.com/chambrid/jira-timelog/pkg/timelog"
)

// maxWorklogBodyBytes caps the add-worklog request body
const maxWorklogBodyBytes = 64 << 10

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Commit    string    `json:"commit"`
	Uptime    string    `json:"uptime"`
	Mode      string    `json:"mode"`
}

// AddWorklogRequest is the body of POST /api/v1/issues/{key}/worklogs
type AddWorklogRequest struct {
	TimeSpentSeconds int    `json:"timeSpentSeconds"`
	Comment          string `json:"comment,omitempty"`
}

// AddWorklogResponse reports the outcome of a worklog submission
type AddWorklogResponse struct {
	IssueKey         string `json:"issueKey"`
	TimeSpentSeconds int    `json:"timeSpentSeconds"`
	Added            bool   `json:"added"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	mode := "live"
	if s.backend.Demo {
		mode = "demo"
	}

	s.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: s.now(),
		Version:   s.buildInfo.Version,
		Commit:    s.buildInfo.Commit,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Mode:      mode,
	})
}

func (s *Server) handleListIssues(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.failsoft.AssignedIssues(r.Context()))
}

func (s *Server) handleListWorklogs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.failsoft.IssueWorklogs(r.Context(), r.PathValue("key")))
}

func (s *Server) handleAddWorklog(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	r.Body = http.MaxBytesReader(w, r.Body, maxWorklogBodyBytes)

	var req AddWorklogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE",
				fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), "")
			return
		}
		s.writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON in request body", err.Error())
		return
	}

	if !s.failsoft.AddWorklog(r.Context(), key, req.TimeSpentSeconds, req.Comment) {
		s.writeError(w, r, http.StatusBadGateway, "WORKLOG_REJECTED", "Jira did not accept the worklog", key)
		return
	}

	s.writeJSON(w, r, http.StatusCreated, AddWorklogResponse{
		IssueKey:         key,
		TimeSpentSeconds: req.TimeSpentSeconds,
		Added:            true,
	})
}

func (s *Server) handleTimeLogs(w http.ResponseWriter, r *http.Request) {
	period, err := timelog.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "INVALID_PERIOD", err.Error(), "")
		return
	}

	entries, err := s.backend.Source.TimeLogs(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusBadGateway, "UPSTREAM_ERROR", "Failed to load time logs", err.Error())
		return
	}

	s.writeJSON(w, r, http.StatusOK, timelog.Aggregate(entries, period, s.now()))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	period, err := timelog.ParsePeriod(r.PathValue("period"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "INVALID_PERIOD", err.Error(), "")
		return
	}

	renderer, err := report.RendererFor(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "INVALID_FORMAT", err.Error(), "")
		return
	}

	entries, err := s.backend.Source.TimeLogs(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusBadGateway, "UPSTREAM_ERROR", "Failed to load time logs", err.Error())
		return
	}

	now := s.now()
	generator := report.NewGenerator(s.log, s.metrics)
	generator.SetClock(func() time.Time { return now })

	doc, err := generator.Generate(timelog.FilterForPeriod(entries, period, now), period, s.userName(r))
	if err != nil {
		var formatErr *report.FormatError
		if errors.As(err, &formatErr) {
			s.writeError(w, r, http.StatusUnprocessableEntity, "REPORT_FAILED", formatErr.Message, formatErr.Type)
			return
		}
		s.writeError(w, r, http.StatusInternalServerError, "REPORT_FAILED", "Failed to generate report", err.Error())
		return
	}

	content, err := report.Render(renderer, doc)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "REPORT_FAILED", "Failed to render report", err.Error())
		return
	}

	w.Header().Set("Content-Type", renderer.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName(period, now, renderer.Extension())))
	w.Header().Set("X-Report-ID", doc.ReportID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content); err != nil {
		s.log.Error(err, "failed to write report", "report_id", doc.ReportID)
	}
}

// userName picks the name printed on a report: query, then session, then config
func (s *Server) userName(r *http.Request) string {
	if name := r.URL.Query().Get("user"); name != "" {
		return name
	}
	if sess, ok := session.FromContext(r.Context()); ok && sess.UserName != "" {
		return sess.UserName
	}
	return s.config.UserName
}
