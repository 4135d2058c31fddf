package services

import (
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/infrastructure/database"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/infrastructure/persistence"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/expression"
)

// ServiceManager orchestrates all services with dependency injection
type ServiceManager struct {
	db *database.Connection

	TxManager *persistence.TransactionManager

	Auth      *AuthService
	Users     *UserService
	ReadModel *WorkflowReadModel
	Workflow  *WorkflowService
	Templates *TemplateService
	WorkOrder *WorkOrderService
	Assets    *AssetService
	Parts     *PartService
	Incidents *IncidentService
	PM        *PMService
	Scheduler *PMScheduler
	Devices   *DeviceService
	Analytics *AnalyticsService
}

// NewServiceManager creates a new service manager with all dependencies wired
func NewServiceManager(db *database.Connection) *ServiceManager {
	sm := &ServiceManager{db: db}
	sqlDB := db.DB()

	// Repositories
	userRepo := persistence.NewUserRepository(sqlDB)
	sessionRepo := persistence.NewSessionRepository(sqlDB)
	workflowRepo := persistence.NewWorkflowRepository(sqlDB)
	stateRepo := persistence.NewStateRepository(sqlDB)
	workOrderRepo := persistence.NewWorkOrderRepository(sqlDB)
	incidentRepo := persistence.NewIncidentRepository(sqlDB)
	assetRepo := persistence.NewAssetRepository(sqlDB)
	partRepo := persistence.NewPartRepository(sqlDB)
	pmRepo := persistence.NewPMRepository(sqlDB)
	deviceRepo := persistence.NewDeviceRepository(sqlDB)
	store := persistence.NewWorkflowStore(stateRepo, workOrderRepo, incidentRepo)

	// Services in dependency order
	sm.TxManager = persistence.NewTransactionManager(sqlDB)
	sm.Auth = NewAuthService(userRepo, sessionRepo)
	sm.Users = NewUserService(userRepo, sm.TxManager)

	sm.ReadModel = NewWorkflowReadModel(workflowRepo)
	sm.Workflow = NewWorkflowService(sm.TxManager, sm.ReadModel, stateRepo, store, userRepo, workOrderRepo)
	sm.Templates = NewTemplateService(workflowRepo, stateRepo, sm.ReadModel, sm.TxManager)
	sm.WorkOrder = NewWorkOrderService(workOrderRepo, workflowRepo, stateRepo, sm.Workflow)

	sm.Assets = NewAssetService(assetRepo, partRepo)
	sm.Parts = NewPartService(partRepo)
	sm.Incidents = NewIncidentService(incidentRepo, sm.WorkOrder, sm.Workflow, sm.TxManager)

	exprEngine := expression.NewEngine()
	sm.PM = NewPMService(pmRepo, assetRepo, exprEngine)
	sm.Scheduler = NewPMScheduler(sm.PM, sm.WorkOrder)
	sm.Devices = NewDeviceService(deviceRepo, assetRepo)

	sm.Analytics = NewAnalyticsService(sqlDB, workOrderRepo, NewSecurityValidator())

	return sm
}

// StartScheduler launches the PM scheduler loop in the background
func (sm *ServiceManager) StartScheduler() {
	go sm.Scheduler.Start()
}

// StopScheduler stops the PM scheduler gracefully
func (sm *ServiceManager) StopScheduler() {
	sm.Scheduler.Stop()
}
