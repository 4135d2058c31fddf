package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
)

// PMScheduler is the background loop that turns due preventive maintenance
// schedules into work orders. Time schedules fire when next_due_at passes;
// meter schedules fire when their condition holds over the asset's latest
// readings.
type PMScheduler struct {
	pm         *PMService
	workOrders *WorkOrderService

	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
	stopped  bool
}

// NewPMScheduler creates a new PMScheduler
func NewPMScheduler(pm *PMService, workOrders *WorkOrderService) *PMScheduler {
	return &PMScheduler{
		pm:         pm,
		workOrders: workOrders,
		stopChan:   make(chan struct{}),
	}
}

// Start begins the scheduler background loop. Run it in its own goroutine.
func (s *PMScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	log.Println("⏰ PM scheduler starting...")

	ticker := time.NewTicker(time.Duration(constants.PMCheckIntervalSeconds) * time.Second)
	defer ticker.Stop()

	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopChan:
			log.Println("⏰ PM scheduler stopping...")
			s.wg.Wait()
			log.Println("⏰ PM scheduler stopped")
			return
		}
	}
}

// Stop gracefully stops the scheduler
func (s *PMScheduler) Stop() {
	s.mu.Lock()
	if !s.running || s.stopped {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.stopped = true
	s.mu.Unlock()

	close(s.stopChan)
}

// sweep checks every active schedule once
func (s *PMScheduler) sweep() {
	ctx := context.Background()
	schedules, err := s.pm.schedules.ListActive(ctx)
	if err != nil {
		log.Printf("⚠️ PM sweep failed to list schedules: %v", err)
		return
	}

	now := time.Now().UTC()
	for _, sched := range schedules {
		due, err := s.isDue(ctx, sched, now)
		if err != nil {
			log.Printf("⚠️ PM schedule %s evaluation failed: %v", sched.Name, err)
			continue
		}
		if !due {
			continue
		}

		s.wg.Add(1)
		go func(sc models.PMSchedule) {
			defer s.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("🔥 Panic generating work order for schedule %s: %v", sc.Name, r)
				}
			}()
			s.generate(&sc)
		}(*sched)
	}
}

func (s *PMScheduler) isDue(ctx context.Context, sched *models.PMSchedule, now time.Time) (bool, error) {
	switch sched.TriggerKind {
	case constants.PMTriggerTime:
		return sched.NextDueAt != nil && !now.Before(*sched.NextDueAt), nil
	case constants.PMTriggerMeter:
		// Debounce: once the condition fires, hold off until a day has
		// passed so a still-true condition does not generate every sweep
		if sched.LastGeneratedAt != nil && now.Sub(*sched.LastGeneratedAt) < 24*time.Hour {
			return false, nil
		}
		return s.pm.MeterConditionMet(ctx, sched)
	default:
		return false, nil
	}
}

// generate creates the work order and advances the schedule's bookkeeping
func (s *PMScheduler) generate(sched *models.PMSchedule) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	wo := &models.WorkOrder{
		Title:           sched.WorkOrderTitle,
		Description:     "Generated by preventive maintenance schedule: " + sched.Name,
		Status:          constants.WorkOrderStatusOpen,
		Priority:        sched.Priority,
		AssetID:         &sched.AssetID,
		CreatedByUserID: constants.SystemSchedulerUserID,
		OrganizationID:  sched.OrganizationID,
	}
	if err := s.workOrders.Create(ctx, wo); err != nil {
		log.Printf("❌ PM schedule %s failed to create work order: %v", sched.Name, err)
		return
	}

	now := time.Now().UTC()
	var nextDue *time.Time
	if sched.TriggerKind == constants.PMTriggerTime {
		if next, err := nextCronTime(sched.CronExpression, now); err == nil {
			nextDue = &next
		} else {
			log.Printf("⚠️ PM schedule %s has an unparseable cron expression: %v", sched.Name, err)
		}
	}
	if err := s.pm.schedules.MarkGenerated(ctx, sched.ID, now, nextDue); err != nil {
		log.Printf("⚠️ PM schedule %s failed to record generation: %v", sched.Name, err)
		return
	}

	log.Printf("✅ PM schedule %s generated work order %s", sched.Name, wo.ID)
}
