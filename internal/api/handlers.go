package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pregmed-safety-server/internal/cache"
	"github.com/pregmed-safety-server/internal/domain"
	"github.com/pregmed-safety-server/internal/service"
)

// AssessmentRequest is the body of POST /api/v1/assessments.
type AssessmentRequest struct {
	Medications   []string `json:"medications" binding:"required"`
	GestationWeek int      `json:"gestation_week" binding:"required"`
	Condition     string   `json:"condition"`
	SessionID     string   `json:"session_id" binding:"required"`
	PatientRef    string   `json:"patient_ref"`
}

// respondError writes the standard error envelope.
func (s *Server) respondError(c *gin.Context, status int, code, message, details string) {
	c.JSON(status, domain.NewAPIError(code, message, details, c.GetString("correlation_id")))
}

// handleCreateAssessment runs a composite risk assessment, records it in
// the audit trail, and returns it. The audit write is part of the
// operation: if the entry cannot be recorded the assessment fails.
func (s *Server) handleCreateAssessment(c *gin.Context) {
	var req AssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.CodeInvalidInput, "Invalid request body", err.Error())
		return
	}

	key := cache.Key(req.Medications, req.GestationWeek, req.Condition)
	assessment, cached := s.lookupCached(c, key)
	if !cached {
		var err error
		assessment, err = s.calculator.Calculate(c.Request.Context(), req.Medications, req.GestationWeek, req.Condition)
		if err != nil {
			if domain.IsValidationError(err) {
				s.respondError(c, http.StatusUnprocessableEntity, domain.CodeForError(err), "Assessment rejected", err.Error())
				return
			}
			s.log.WithError(err).Error("Assessment calculation failed")
			s.respondError(c, http.StatusInternalServerError, domain.CodeForError(err), "Assessment failed", "")
			return
		}
		if s.cache != nil {
			s.cache.Put(c.Request.Context(), key, assessment)
		}
	}

	entry, err := service.BuildAuditEntry(assessment, req.SessionID, req.PatientRef)
	if err != nil {
		s.log.WithError(err).Error("Failed to build audit entry")
		s.respondError(c, http.StatusInternalServerError, domain.CodeInternalServer, "Audit recording failed", "")
		return
	}
	if err := s.sink.Append(c.Request.Context(), entry); err != nil {
		s.log.WithError(err).Error("Failed to append audit entry")
		s.respondError(c, http.StatusInternalServerError, domain.CodeDatabaseError, "Audit recording failed", "")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"assessment": assessment,
		"audit_id":   entry.ID,
		"cached":     cached,
	})
}

func (s *Server) lookupCached(c *gin.Context, key string) (*domain.RiskAssessment, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(c.Request.Context(), key)
}

// handleGetMedication returns the reference record for one medication.
// With a week query parameter it also scores the medication at that week.
func (s *Server) handleGetMedication(c *gin.Context) {
	name := c.Param("name")

	rec, err := s.finder.FindMedication(c.Request.Context(), name)
	if err != nil {
		s.log.WithError(err).WithField("medication", name).Error("Medication lookup failed")
		s.respondError(c, http.StatusInternalServerError, domain.CodeDatabaseError, "Medication lookup failed", "")
		return
	}
	if rec == nil {
		s.respondError(c, http.StatusNotFound, domain.CodeInvalidInput, "Medication not found", name)
		return
	}

	response := gin.H{"medication": rec}

	if weekParam := c.Query("week"); weekParam != "" {
		week, err := strconv.Atoi(weekParam)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, domain.CodeInvalidInput, "Invalid week parameter", weekParam)
			return
		}
		score, tier, err := service.ScoreMedication(rec, week)
		if err != nil {
			s.respondError(c, http.StatusUnprocessableEntity, domain.CodeForError(err), "Scoring rejected", err.Error())
			return
		}
		trimester, _ := service.TrimesterOf(week)
		response["score"] = score
		response["tier"] = tier
		response["week"] = week
		response["trimester"] = trimester
	}

	c.JSON(http.StatusOK, response)
}

// handleListConditions returns the supported maternal condition profiles.
func (s *Server) handleListConditions(c *gin.Context) {
	names := s.conditions.ProfileNames()
	profiles := make([]*domain.MaternalConditionProfile, 0, len(names))
	for _, name := range names {
		if p, ok := s.conditions.Lookup(name); ok {
			profiles = append(profiles, p)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"count":      len(profiles),
		"conditions": profiles,
	})
}

// handleQueryAudit returns audit entries matching the query parameters.
func (s *Server) handleQueryAudit(c *gin.Context) {
	filter := domain.AuditFilter{
		PatientRef: c.Query("patient_ref"),
		SessionID:  c.Query("session_id"),
	}

	if tier := c.Query("min_tier"); tier != "" {
		sev := domain.Severity(tier)
		if !sev.IsValid() {
			s.respondError(c, http.StatusBadRequest, domain.CodeInvalidInput, "Invalid min_tier parameter", tier)
			return
		}
		filter.MinTier = sev
	}
	var err error
	if filter.From, err = parseTimeParam(c.Query("from")); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.CodeInvalidInput, "Invalid from parameter", err.Error())
		return
	}
	if filter.To, err = parseTimeParam(c.Query("to")); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.CodeInvalidInput, "Invalid to parameter", err.Error())
		return
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := s.sink.Query(c.Request.Context(), filter)
	if err != nil {
		s.log.WithError(err).Error("Audit query failed")
		s.respondError(c, http.StatusInternalServerError, domain.CodeDatabaseError, "Audit query failed", "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(entries),
		"entries": entries,
	})
}

func parseTimeParam(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}

// handleExportAudit streams the full audit trail as a JSON document.
func (s *Server) handleExportAudit(c *gin.Context) {
	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", "attachment; filename=audit-export.json")
	if err := s.sink.ExportJSON(c.Request.Context(), c.Writer); err != nil {
		s.log.WithError(err).Error("Audit export failed")
		c.Status(http.StatusInternalServerError)
	}
}

// handleAuditRetention purges entries older than the requested number of
// days. This is the only delete the audit trail supports.
func (s *Server) handleAuditRetention(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "0"))
	if err != nil || days <= 0 {
		s.respondError(c, http.StatusBadRequest, domain.CodeInvalidInput, "Invalid days parameter", c.Query("days"))
		return
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	removed, err := s.sink.PurgeBefore(c.Request.Context(), cutoff)
	if err != nil {
		s.log.WithError(err).Error("Audit retention purge failed")
		s.respondError(c, http.StatusInternalServerError, domain.CodeDatabaseError, "Retention purge failed", "")
		return
	}

	s.log.WithFields(logrus.Fields{
		"removed": removed,
		"cutoff":  cutoff.Format(time.RFC3339),
	}).Info("Audit retention purge completed")

	c.JSON(http.StatusOK, gin.H{
		"removed": removed,
		"cutoff":  cutoff.UTC(),
	})
}
