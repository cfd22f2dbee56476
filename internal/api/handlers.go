package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/lox/headcount/internal/district"
	"github.com/lox/headcount/internal/models"
)

type HealthStatus struct {
	Status    string    `json:"status"`
	Districts int       `json:"districts"`
	BuiltAt   time.Time `json:"built_at"`
}

type DistrictList struct {
	Districts []string `json:"districts"`
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(s.document)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthStatus{
		Status:    "ok",
		Districts: s.repo.Len(),
		BuiltAt:   s.builtAt,
	})
}

func (s *Server) handleDistricts(w http.ResponseWriter, r *http.Request) {
	matches := s.repo.FindAllMatching(r.URL.Query().Get("match"))
	list := DistrictList{Districts: make([]string, 0, len(matches))}
	for _, d := range matches {
		list.Districts = append(list.Districts, d.Name())
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleDistrict(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	d, ok := s.repo.FindByName(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("district %q not found", name))
		return
	}
	writeJSON(w, http.StatusOK, d.Record())
}

// handleGrowth returns the single leader, or a ranked list when top is set.
func (s *Server) handleGrowth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	grade, err := strconv.Atoi(q.Get("grade"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("grade: %w", err))
		return
	}
	subject := models.Subject(q.Get("subject"))

	if top := q.Get("top"); top != "" {
		n, err := strconv.Atoi(top)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("top: %w", err))
			return
		}
		leaders, err := s.analyst.TopGrowth(grade, subject, n)
		if err != nil {
			writeQueryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, leaders)
		return
	}

	leader, err := s.analyst.TopGrowthInGrade(grade, subject)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leader)
}

func writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, district.ErrUnknownData):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, district.ErrMissingData):
		writeError(w, http.StatusNotFound, err)
	default:
		log.Printf("api: %v", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
