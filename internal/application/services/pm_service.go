package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/infrastructure/persistence"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/errors"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/expression"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/utils"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// PMService handles preventive maintenance schedules. Time schedules carry
// a cron expression; meter schedules carry a boolean expression over the
// asset's latest meter readings.
type PMService struct {
	schedules *persistence.PMRepository
	assets    *persistence.AssetRepository
	expr      *expression.Engine
}

// NewPMService creates a new PMService
func NewPMService(schedules *persistence.PMRepository, assets *persistence.AssetRepository, expr *expression.Engine) *PMService {
	return &PMService{schedules: schedules, assets: assets, expr: expr}
}

// Create validates and stores a schedule
func (s *PMService) Create(ctx context.Context, sched *models.PMSchedule) error {
	if err := s.validate(ctx, sched); err != nil {
		return err
	}
	sched.ID = utils.GenerateID()
	sched.IsActive = true
	sched.CreatedAt = time.Now().UTC()

	if sched.TriggerKind == constants.PMTriggerTime {
		next, err := nextCronTime(sched.CronExpression, time.Now().UTC())
		if err != nil {
			return err
		}
		sched.NextDueAt = &next
	}
	return s.schedules.Insert(ctx, sched)
}

// Get returns one schedule
func (s *PMService) Get(ctx context.Context, id, orgID string) (*models.PMSchedule, error) {
	sched, err := s.schedules.GetByID(ctx, id, orgID)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("pm schedule", id)
	}
	return sched, err
}

// List returns the organization's schedules
func (s *PMService) List(ctx context.Context, orgID string) ([]*models.PMSchedule, error) {
	return s.schedules.List(ctx, orgID)
}

// Update validates and rewrites a schedule
func (s *PMService) Update(ctx context.Context, sched *models.PMSchedule) error {
	if _, err := s.Get(ctx, sched.ID, sched.OrganizationID); err != nil {
		return err
	}
	if err := s.validate(ctx, sched); err != nil {
		return err
	}
	if sched.TriggerKind == constants.PMTriggerTime {
		next, err := nextCronTime(sched.CronExpression, time.Now().UTC())
		if err != nil {
			return err
		}
		sched.NextDueAt = &next
	} else {
		sched.NextDueAt = nil
	}
	return s.schedules.Update(ctx, sched)
}

// Delete removes a schedule
func (s *PMService) Delete(ctx context.Context, id, orgID string) error {
	return s.schedules.Delete(ctx, id, orgID)
}

func (s *PMService) validate(ctx context.Context, sched *models.PMSchedule) error {
	if sched.Name == "" {
		return errors.NewValidationError("name", "Schedule name is required")
	}
	if sched.WorkOrderTitle == "" {
		return errors.NewValidationError("work_order_title", "Work order title is required")
	}
	if _, err := s.assets.GetByID(ctx, sched.AssetID, sched.OrganizationID); err != nil {
		return errors.NewValidationError("asset_id", "Asset does not exist")
	}

	switch sched.TriggerKind {
	case constants.PMTriggerTime:
		if sched.CronExpression == "" {
			return errors.NewValidationError("cron_expression", "Cron expression is required for time triggers")
		}
		if _, err := cronParser.Parse(sched.CronExpression); err != nil {
			return errors.NewValidationError("cron_expression",
				fmt.Sprintf("Invalid cron expression: %v", err))
		}
	case constants.PMTriggerMeter:
		if sched.MeterCondition == "" {
			return errors.NewValidationError("meter_condition", "Meter condition is required for meter triggers")
		}
		if err := s.expr.Validate(sched.MeterCondition); err != nil {
			return errors.NewValidationError("meter_condition",
				fmt.Sprintf("Invalid condition: %v", err))
		}
	default:
		return errors.NewValidationError("trigger_kind",
			fmt.Sprintf("Unknown trigger kind %q", sched.TriggerKind))
	}
	return nil
}

// MeterConditionMet evaluates a meter schedule's condition against the
// asset's latest readings. Missing meters evaluate as undefined and make
// the condition false rather than erroring the whole sweep.
func (s *PMService) MeterConditionMet(ctx context.Context, sched *models.PMSchedule) (bool, error) {
	env, err := s.assets.LatestMeterValues(ctx, sched.AssetID)
	if err != nil {
		return false, err
	}
	if len(env) == 0 {
		return false, nil
	}
	return s.expr.EvaluateCondition(sched.MeterCondition, env)
}

func nextCronTime(expr string, after time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule.Next(after), nil
}
