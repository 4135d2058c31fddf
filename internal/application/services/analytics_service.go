package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/infrastructure/persistence"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/auth"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
)

// DashboardMetrics is the summary block behind the dashboard widgets
type DashboardMetrics struct {
	WorkOrdersByStatus  map[string]int `json:"work_orders_by_status"`
	OverdueWorkOrders   int            `json:"overdue_work_orders"`
	OpenIncidents       int            `json:"open_incidents"`
	IncidentsBySeverity map[string]int `json:"incidents_by_severity"`
	ActivePMSchedules   int            `json:"active_pm_schedules"`
	PMCompliancePct     float64        `json:"pm_compliance_pct"`
	CompletedLast30Days int            `json:"completed_last_30_days"`
	AvgCompletionHours  float64        `json:"avg_completion_hours"`
}

// QueryResult is a generic tabular result for ad-hoc analytics queries
type QueryResult struct {
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
}

// AnalyticsService computes dashboard aggregates and runs admin ad-hoc
// queries behind the SQL security validator
type AnalyticsService struct {
	db         *sql.DB
	workOrders *persistence.WorkOrderRepository
	validator  *SecurityValidator
}

// NewAnalyticsService creates a new AnalyticsService
func NewAnalyticsService(db *sql.DB, workOrders *persistence.WorkOrderRepository, validator *SecurityValidator) *AnalyticsService {
	return &AnalyticsService{db: db, workOrders: workOrders, validator: validator}
}

// Dashboard computes the organization's summary metrics
func (s *AnalyticsService) Dashboard(ctx context.Context, orgID string) (*DashboardMetrics, error) {
	metrics := &DashboardMetrics{
		WorkOrdersByStatus:  map[string]int{},
		IncidentsBySeverity: map[string]int{},
	}
	now := time.Now().UTC()

	byStatus, err := s.workOrders.CountByStatus(ctx, orgID)
	if err != nil {
		return nil, err
	}
	metrics.WorkOrdersByStatus = byStatus

	overdue, err := s.workOrders.CountOverdue(ctx, orgID, now)
	if err != nil {
		return nil, err
	}
	metrics.OverdueWorkOrders = overdue

	incidentQuery := fmt.Sprintf(
		"SELECT severity, COUNT(*) FROM %s WHERE %s = ? AND %s NOT IN (?, ?) GROUP BY severity",
		constants.TableIncident, constants.FieldOrganizationID, constants.FieldStatus)
	rows, err := s.db.QueryContext(ctx, incidentQuery,
		orgID, constants.IncidentStatusResolved, constants.IncidentStatusClosed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, err
		}
		metrics.IncidentsBySeverity[severity] = count
		metrics.OpenIncidents += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pmQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ? AND is_active = TRUE",
		constants.TablePMSchedule, constants.FieldOrganizationID)
	if err := s.db.QueryRowContext(ctx, pmQuery, orgID).Scan(&metrics.ActivePMSchedules); err != nil {
		return nil, err
	}

	// Compliance: active time-based schedules whose next run is not overdue
	complianceQuery := fmt.Sprintf(
		"SELECT COUNT(*), COALESCE(SUM(next_due_at >= ?), 0) FROM %s "+
			"WHERE %s = ? AND is_active = TRUE AND next_due_at IS NOT NULL",
		constants.TablePMSchedule, constants.FieldOrganizationID)
	var dueTotal, dueOnTime int
	if err := s.db.QueryRowContext(ctx, complianceQuery, now, orgID).Scan(&dueTotal, &dueOnTime); err != nil {
		return nil, err
	}
	if dueTotal > 0 {
		metrics.PMCompliancePct = float64(dueOnTime) / float64(dueTotal) * 100
	}

	completionQuery := fmt.Sprintf(
		"SELECT COUNT(*), COALESCE(AVG(TIMESTAMPDIFF(HOUR, %s, %s)), 0) FROM %s "+
			"WHERE %s = ? AND %s = ? AND %s >= ?",
		constants.FieldCreatedAt, constants.FieldActualFinishDate, constants.TableWorkOrder,
		constants.FieldOrganizationID, constants.FieldStatus, constants.FieldActualFinishDate)
	err = s.db.QueryRowContext(ctx, completionQuery,
		orgID, constants.WorkOrderStatusCompleted, now.AddDate(0, 0, -30)).
		Scan(&metrics.CompletedLast30Days, &metrics.AvgCompletionHours)
	if err != nil {
		return nil, err
	}

	return metrics, nil
}

// Query runs one validated ad-hoc SELECT on behalf of an administrator
func (s *AnalyticsService) Query(ctx context.Context, rawSQL string, session auth.UserSession) (*QueryResult, error) {
	safeSQL, err := s.validator.ValidateAndRewrite(rawSQL, session)
	if err != nil {
		return nil, err
	}
	log.Printf("📊 Analytics query by %s: %s", session.ID, safeSQL)

	rows, err := s.db.QueryContext(ctx, safeSQL)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &QueryResult{Columns: columns, Rows: make([]map[string]interface{}, 0)}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)

		if len(result.Rows) >= 1000 {
			break
		}
	}
	return result, rows.Err()
}
