package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tobin4900/ai-resume-matcher/internal/logger"
)

const (
	fieldResume         = "resume"
	fieldJobDescription = "job_description"

	rootMessage = "Resume Matcher API is running."

	// multipart framing on top of the file itself
	formOverhead = 1 << 20
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) rootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": rootMessage})
	}
}

func (s *Server) matchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.WithFields(s.logger, zap.String(logger.FieldRequestID, middleware.GetReqID(r.Context())))

		maxBytes := s.cfg.MaxUploadMB << 20
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+formOverhead)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
				writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
				return
			}
			writeError(w, http.StatusUnprocessableEntity, "resume file and job_description are required")
			return
		}

		jobDescription := strings.TrimSpace(r.FormValue(fieldJobDescription))
		if jobDescription == "" {
			writeError(w, http.StatusUnprocessableEntity, "job_description is required")
			return
		}

		file, header, err := r.FormFile(fieldResume)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "resume file is required")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		doc, err := s.extract(data)
		if err != nil {
			log.Warn("failed to extract resume text", zap.String("filename", header.Filename), zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		log.Debug("extracted resume",
			zap.String("filename", header.Filename),
			zap.String("mime", doc.MIME),
			zap.Int("chars", len(doc.Text)),
		)

		result, err := s.analyzer.Analyze(r.Context(), doc.Text, jobDescription)
		if err != nil {
			log.Error("analysis failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"result": result})
	}
}
