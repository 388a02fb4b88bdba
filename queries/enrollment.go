package queries

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/outreach/services/enrollment/cache"
	"example.com/outreach/services/enrollment/config"
	"example.com/outreach/services/enrollment/domain"
	"example.com/outreach/services/enrollment/eventstore"
	"example.com/outreach/services/enrollment/models"
	"example.com/outreach/services/enrollment/projections"
	"example.com/outreach/services/enrollment/repository"
)

// EnrollmentDetail is the authoritative detail view built by replaying the
// event log, including the capability flags UI screens render as buttons
type EnrollmentDetail struct {
	AggregateID            string               `json:"aggregate_id"`
	Version                int                  `json:"version"`
	SubmittedAt            time.Time            `json:"submitted_at"`
	Email                  string               `json:"email"`
	Phone                  string               `json:"phone"`
	FirstName              string               `json:"first_name"`
	LastName               string               `json:"last_name"`
	Region                 string               `json:"region"`
	PreferredCities        []string             `json:"preferred_cities"`
	PreferredTrainingIDs   []string             `json:"preferred_training_ids"`
	CampaignID             string               `json:"campaign_id"`
	InvitationState        string               `json:"invitation_state"`
	SelectedTrainingID     string               `json:"selected_training_id,omitempty"`
	ResignedPermanently    bool                 `json:"resigned_permanently"`
	ResignedTemporarily    bool                 `json:"resigned_temporarily"`
	ResignationResumeDate  *time.Time           `json:"resignation_resume_date,omitempty"`
	HasResignedEffectively bool                 `json:"has_resigned_effectively"`
	HasLecturerRights      bool                 `json:"has_lecturer_rights"`
	TrainingResult         string               `json:"training_result,omitempty"`
	Notes                  []domain.ContactNote `json:"notes"`
	CanAcceptInvitation    bool                 `json:"can_accept_invitation"`
	CanReportUncond        bool                 `json:"can_report_unconditionally"`
	CanReportCond          bool                 `json:"can_report_conditionally"`
}

// ListFilter narrows the read model listing
type ListFilter struct {
	CampaignID        string
	Region            string
	City              string
	HasLecturerRights *bool
	CanReportUncond   *bool
	CanReportCond     *bool
	Resigned          *bool
	// EffectivelyResigned derives temporary-resignation effectiveness from
	// the resume date at query time instead of reading the raw flags
	EffectivelyResigned *bool
	Limit               int
	Offset              int
}

// EnrollmentQueries serves detail, list, search and summary reads. The
// detail path replays the event log for point-in-time correctness; the list
// and search paths trade freshness for speed and read the eventually
// consistent projection.
type EnrollmentQueries struct {
	db            *gorm.DB
	store         eventstore.EventStore
	trainings     repository.TrainingRepository
	elasticClient *elasticsearch.Client
	redisCache    *cache.RedisCache
	cfg           config.Config
	clock         domain.Clock
}

// NewEnrollmentQueries creates a new query handler
func NewEnrollmentQueries(
	db *gorm.DB,
	store eventstore.EventStore,
	trainings repository.TrainingRepository,
	elasticClient *elasticsearch.Client,
	redisCache *cache.RedisCache,
	cfg config.Config,
	clock domain.Clock,
) *EnrollmentQueries {
	return &EnrollmentQueries{
		db:            db,
		store:         store,
		trainings:     trainings,
		elasticClient: elasticClient,
		redisCache:    redisCache,
		cfg:           cfg,
		clock:         clock,
	}
}

// GetEnrollmentDetail replays the aggregate and derives every
// time-parameterized flag at the current instant
func (q *EnrollmentQueries) GetEnrollmentDetail(ctx context.Context, aggregateID string) (*EnrollmentDetail, error) {
	aggregate := domain.NewEnrollmentAggregate(aggregateID)
	if err := q.store.Load(ctx, aggregate); err != nil {
		return nil, fmt.Errorf("failed to load aggregate: %w", err)
	}
	if aggregate.IsNew() {
		return nil, domain.NewNotFoundError("enrollment", aggregateID)
	}

	now := q.clock.Now()
	state := aggregate.State

	canAccept := false
	preferred, err := q.trainings.GetByIDs(ctx, state.PreferredTrainingIDs)
	if err != nil {
		log.Warn().Err(err).Str("aggregateID", aggregateID).Msg("Failed to resolve preferred trainings for detail view")
	} else {
		canAccept = aggregate.CanAcceptTrainingInvitation(preferred, now)
	}

	return &EnrollmentDetail{
		AggregateID:            aggregateID,
		Version:                aggregate.GetVersion(),
		SubmittedAt:            state.SubmittedAt,
		Email:                  state.Email,
		Phone:                  state.Phone,
		FirstName:              state.FirstName,
		LastName:               state.LastName,
		Region:                 state.Region,
		PreferredCities:        state.PreferredCities,
		PreferredTrainingIDs:   state.PreferredTrainingIDs,
		CampaignID:             state.CampaignID,
		InvitationState:        string(state.Invitation),
		SelectedTrainingID:     state.SelectedTrainingID,
		ResignedPermanently:    state.Resignation == domain.ResignationPermanent,
		ResignedTemporarily:    state.Resignation == domain.ResignationTemporary,
		ResignationResumeDate:  state.ResignationResumeDate,
		HasResignedEffectively: aggregate.HasResignedEffectively(now),
		HasLecturerRights:      state.HasLecturerRights,
		TrainingResult:         string(state.TrainingResult),
		Notes:                  state.Notes,
		CanAcceptInvitation:    canAccept,
		CanReportUncond:        aggregate.CanReportTrainingResultsUnconditionally(),
		CanReportCond:          aggregate.CanReportTrainingResultsConditionally(),
	}, nil
}

// ListEnrollments reads the projected rows with optional filters
func (q *EnrollmentQueries) ListEnrollments(ctx context.Context, filter ListFilter) ([]models.Enrollment, error) {
	query := q.db.WithContext(ctx).Model(&models.Enrollment{})

	if filter.CampaignID != "" {
		query = query.Where("campaign_id = ?", filter.CampaignID)
	}
	if filter.Region != "" {
		query = query.Where("region = ?", filter.Region)
	}
	if filter.City != "" {
		query = query.Where("preferred_cities LIKE ?", "%"+filter.City+"%")
	}
	if filter.HasLecturerRights != nil {
		query = query.Where("has_lecturer_rights = ?", *filter.HasLecturerRights)
	}
	if filter.CanReportUncond != nil {
		query = query.Where("can_report_uncond = ?", *filter.CanReportUncond)
	}
	if filter.CanReportCond != nil {
		query = query.Where("can_report_cond = ?", *filter.CanReportCond)
	}
	if filter.Resigned != nil {
		if *filter.Resigned {
			query = query.Where("resigned_permanently = ? OR resigned_temporarily = ?", true, true)
		} else {
			query = query.Where("resigned_permanently = ? AND resigned_temporarily = ?", false, false)
		}
	}
	if filter.EffectivelyResigned != nil {
		// A temporary resignation holds up to and including the resume date,
		// compared at calendar-date granularity
		today := domain.DateOf(q.clock.Now())
		effective := "resigned_permanently = true OR (resigned_temporarily = true AND (resignation_resume_date IS NULL OR resignation_resume_date >= ?))"
		if *filter.EffectivelyResigned {
			query = query.Where(effective, today)
		} else {
			query = query.Not(effective, today)
		}
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var rows []models.Enrollment
	if err := query.
		Order("submitted_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}

	return rows, nil
}

// GetEnrollmentSummary reads one projected row, through the Redis cache
// when available
func (q *EnrollmentQueries) GetEnrollmentSummary(ctx context.Context, aggregateID string) (*models.Enrollment, error) {
	cacheKey := cache.GetEnrollmentCacheKey(aggregateID)

	if q.redisCache != nil && q.redisCache.Enabled() {
		var cached models.Enrollment
		if err := q.redisCache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	var row models.Enrollment
	if err := q.db.WithContext(ctx).
		Where("aggregate_id = ?", aggregateID).
		First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.NewNotFoundError("enrollment", aggregateID)
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}

	if q.redisCache != nil && q.redisCache.Enabled() {
		if err := q.redisCache.Set(ctx, cacheKey, &row, q.cfg.RedisTTL); err != nil {
			log.Warn().Err(err).Str("aggregateID", aggregateID).Msg("Failed to cache enrollment summary")
		}
	}

	return &row, nil
}

// SearchEnrollments runs a full-text query over the projected index
func (q *EnrollmentQueries) SearchEnrollments(ctx context.Context, queryText string, limit int) ([]models.Enrollment, error) {
	if q.elasticClient == nil {
		return nil, fmt.Errorf("search is not configured")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	searchBody := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  queryText,
				"fields": []string{"first_name", "last_name", "email", "region"},
			},
		},
	}

	body, err := json.Marshal(searchBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	index := projections.FormatIndex(projections.EnrollmentsIndex, q.cfg)
	res, err := q.elasticClient.Search(
		q.elasticClient.Search.WithContext(ctx),
		q.elasticClient.Search.WithIndex(index),
		q.elasticClient.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search enrollments: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("failed to search enrollments: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source models.Enrollment `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	rows := make([]models.Enrollment, len(parsed.Hits.Hits))
	for i, hit := range parsed.Hits.Hits {
		rows[i] = hit.Source
	}
	return rows, nil
}
