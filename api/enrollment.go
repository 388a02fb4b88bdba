package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"example.com/outreach/services/enrollment/domain"
	"example.com/outreach/services/enrollment/eventstore"
	"example.com/outreach/services/enrollment/handlers"
	"example.com/outreach/services/enrollment/queries"
)

// EnrollmentCommandRequest is the envelope for enrollment commands
type EnrollmentCommandRequest struct {
	CommandType string          `json:"commandType"`
	Data        json.RawMessage `json:"data"`
}

// receiveEnrollmentCommands dispatches a command envelope to the handler
func (s *Server) receiveEnrollmentCommands(c *gin.Context) {
	var req EnrollmentCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var err error
	var aggregateID string

	switch req.CommandType {
	case "SubmitForm":
		var cmd handlers.SubmitFormCommand
		if jsonErr := json.Unmarshal(req.Data, &cmd); jsonErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": jsonErr.Error()})
			return
		}

		// If AggregateID is not provided, generate a new one
		if cmd.AggregateID == "" {
			cmd.AggregateID = uuid.New().String()
		}
		aggregateID = cmd.AggregateID
		err = s.enrollmentHandler.HandleSubmitForm(ctx, cmd)

	case "AcceptInvitation":
		var cmd handlers.AcceptInvitationCommand
		if jsonErr := json.Unmarshal(req.Data, &cmd); jsonErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": jsonErr.Error()})
			return
		}
		aggregateID = cmd.AggregateID
		err = s.enrollmentHandler.HandleAcceptInvitation(ctx, cmd)

	case "RefuseInvitation":
		var cmd handlers.RefuseInvitationCommand
		if jsonErr := json.Unmarshal(req.Data, &cmd); jsonErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": jsonErr.Error()})
			return
		}
		aggregateID = cmd.AggregateID
		err = s.enrollmentHandler.HandleRefuseInvitation(ctx, cmd)

	case "RecordTrainingResults":
		var cmd handlers.RecordTrainingResultsCommand
		if jsonErr := json.Unmarshal(req.Data, &cmd); jsonErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": jsonErr.Error()})
			return
		}
		aggregateID = cmd.AggregateID
		err = s.enrollmentHandler.HandleRecordTrainingResults(ctx, cmd)

	case "RecordResignation":
		var cmd handlers.RecordResignationCommand
		if jsonErr := json.Unmarshal(req.Data, &cmd); jsonErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": jsonErr.Error()})
			return
		}
		aggregateID = cmd.AggregateID
		err = s.enrollmentHandler.HandleRecordResignation(ctx, cmd)

	case "RecordContact":
		var cmd handlers.RecordContactCommand
		if jsonErr := json.Unmarshal(req.Data, &cmd); jsonErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": jsonErr.Error()})
			return
		}
		aggregateID = cmd.AggregateID
		err = s.enrollmentHandler.HandleRecordContact(ctx, cmd)

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported command type"})
		return
	}

	if err != nil {
		log.Error().Err(err).Str("commandType", req.CommandType).Msg("Failed to handle enrollment command")
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "command processed successfully", "aggregate_id": aggregateID})
}

// statusForError maps domain errors to HTTP status codes
func statusForError(err error) int {
	var validationErr *domain.ValidationError
	var notFoundErr *domain.NotFoundError
	var domainErr *domain.DomainError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &domainErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, eventstore.ErrVersionConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// getEnrollmentDetail returns the replayed enrollment state by aggregate ID
func (s *Server) getEnrollmentDetail(c *gin.Context) {
	id := c.Param("id")

	detail, err := s.enrollmentQueries.GetEnrollmentDetail(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, detail)
}

// getEnrollmentSummary returns the projected enrollment row by aggregate ID
func (s *Server) getEnrollmentSummary(c *gin.Context) {
	id := c.Param("id")

	summary, err := s.enrollmentQueries.GetEnrollmentSummary(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// listEnrollments returns projected enrollments with optional filters
func (s *Server) listEnrollments(c *gin.Context) {
	filter := queries.ListFilter{
		CampaignID: c.Query("campaign_id"),
		Region:     c.Query("region"),
		City:       c.Query("city"),
	}

	if v := c.Query("has_lecturer_rights"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid has_lecturer_rights"})
			return
		}
		filter.HasLecturerRights = &parsed
	}
	if v := c.Query("can_report_unconditionally"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid can_report_unconditionally"})
			return
		}
		filter.CanReportUncond = &parsed
	}
	if v := c.Query("can_report_conditionally"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid can_report_conditionally"})
			return
		}
		filter.CanReportCond = &parsed
	}
	if v := c.Query("resigned"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid resigned"})
			return
		}
		filter.Resigned = &parsed
	}
	if v := c.Query("effectively_resigned"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid effectively_resigned"})
			return
		}
		filter.EffectivelyResigned = &parsed
	}
	if v := c.Query("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := c.Query("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	rows, err := s.enrollmentQueries.ListEnrollments(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"enrollments": rows})
}

// searchEnrollments runs a full-text search over projected enrollments
func (s *Server) searchEnrollments(c *gin.Context) {
	queryText := c.Query("q")
	if queryText == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	rows, err := s.enrollmentQueries.SearchEnrollments(c.Request.Context(), queryText, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"enrollments": rows})
}
