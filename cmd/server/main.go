package main

import (
	"context"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/application/services"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/bootstrap"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/infrastructure/database"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/interfaces/middleware"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/interfaces/rest"
)

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		log.Println("📦 Loaded environment from .env")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}

	db, err := database.GetInstance()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("✅ Database connection established")

	if err := bootstrap.EnsureSchema(db); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	if err := bootstrap.SeedSystemData(db); err != nil {
		log.Fatalf("Failed to seed system data: %v", err)
	}

	svcMgr := services.NewServiceManager(db)
	log.Println("🔧 Service manager initialized")

	// Create Gin router
	router := gin.Default()
	router.Use(middleware.Cors())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
			"server": "golang",
		})
	})

	// Goroutine stacks: http://localhost:3001/debug/pprof/goroutine?debug=2
	debug := router.Group("/debug/pprof")
	{
		debug.GET("/goroutine", gin.WrapH(http.DefaultServeMux))
		debug.GET("/heap", gin.WrapH(http.DefaultServeMux))
		debug.GET("/threadcreate", gin.WrapH(http.DefaultServeMux))
		debug.GET("/block", gin.WrapH(http.DefaultServeMux))
		debug.GET("/mutex", gin.WrapH(http.DefaultServeMux))
		debug.GET("/profile", gin.WrapH(http.DefaultServeMux))
		debug.GET("/trace", gin.WrapH(http.DefaultServeMux))
	}

	// Initialize handlers
	authHandler := rest.NewAuthHandler(svcMgr)
	userHandler := rest.NewUserHandler(svcMgr)
	templateHandler := rest.NewTemplateHandler(svcMgr)
	workOrderHandler := rest.NewWorkOrderHandler(svcMgr)
	assetHandler := rest.NewAssetHandler(svcMgr)
	partHandler := rest.NewPartHandler(svcMgr)
	incidentHandler := rest.NewIncidentHandler(svcMgr)
	pmHandler := rest.NewPMHandler(svcMgr)
	deviceHandler := rest.NewDeviceHandler(svcMgr)
	analyticsHandler := rest.NewAnalyticsHandler(svcMgr)

	// Initialize middleware
	requireAuth := middleware.RequireAuth(svcMgr.Auth)
	requireAdmin := middleware.RequireAdmin()

	// API routes
	api := router.Group("/api")
	{
		// Auth routes (login is public, the rest require a session)
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", requireAuth, authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.GetMe)
			auth.POST("/change-password", requireAuth, authHandler.ChangePassword)
		}

		// User and role administration (admin only)
		users := api.Group("/users")
		users.Use(requireAuth, requireAdmin)
		{
			users.GET("", userHandler.ListUsers)
			users.POST("", userHandler.CreateUser)
			users.GET("/:id", userHandler.GetUser)
			users.PUT("/:id", userHandler.UpdateUser)
			users.DELETE("/:id", userHandler.DeleteUser)
			users.PUT("/:id/roles", userHandler.SetUserRoles)
		}

		roles := api.Group("/roles")
		roles.Use(requireAuth)
		{
			roles.GET("", userHandler.ListRoles)
			roles.POST("", requireAdmin, userHandler.CreateRole)
		}

		// Workflow templates (mutations are admin only)
		templates := api.Group("/workflow-templates")
		templates.Use(requireAuth)
		{
			templates.GET("", templateHandler.ListTemplates)
			templates.GET("/:id", templateHandler.GetTemplate)
			templates.POST("", requireAdmin, templateHandler.CreateTemplate)
			templates.PUT("/:id", requireAdmin, templateHandler.UpdateTemplate)
			templates.DELETE("/:id", requireAdmin, templateHandler.DeleteTemplate)
			templates.POST("/:id/steps", requireAdmin, templateHandler.CreateStep)
			templates.PUT("/:id/steps/:stepId", requireAdmin, templateHandler.UpdateStep)
			templates.DELETE("/:id/steps/:stepId", requireAdmin, templateHandler.DeleteStep)
		}

		// Work orders and their workflow surface
		workOrders := api.Group("/work-orders")
		workOrders.Use(requireAuth)
		{
			workOrders.GET("", workOrderHandler.ListWorkOrders)
			workOrders.POST("", workOrderHandler.CreateWorkOrder)
			workOrders.GET("/:id", workOrderHandler.GetWorkOrder)
			workOrders.PUT("/:id", workOrderHandler.UpdateWorkOrder)
			workOrders.DELETE("/:id", workOrderHandler.DeleteWorkOrder)
			workOrders.POST("/:id/submit", workOrderHandler.SubmitWorkOrder)
			workOrders.POST("/:id/transition", workOrderHandler.Transition)
			workOrders.GET("/:id/actions", workOrderHandler.PermittedActions)
			workOrders.GET("/:id/current-step", workOrderHandler.CurrentStep)
			workOrders.GET("/:id/history", workOrderHandler.History)
		}

		// Asset registry and bills of materials
		assets := api.Group("/assets")
		assets.Use(requireAuth)
		{
			assets.GET("", assetHandler.ListAssets)
			assets.GET("/tree", assetHandler.GetAssetTree)
			assets.POST("", assetHandler.CreateAsset)
			assets.GET("/:id", assetHandler.GetAsset)
			assets.PUT("/:id", assetHandler.UpdateAsset)
			assets.DELETE("/:id", assetHandler.DeleteAsset)
			assets.GET("/:id/bom", assetHandler.GetBOM)
			assets.POST("/:id/bom", assetHandler.AddBOMLine)
			assets.DELETE("/:id/bom/:lineId", assetHandler.RemoveBOMLine)
		}

		parts := api.Group("/parts")
		parts.Use(requireAuth)
		{
			parts.GET("", partHandler.ListParts)
			parts.POST("", partHandler.CreatePart)
			parts.GET("/:id", partHandler.GetPart)
			parts.PUT("/:id", partHandler.UpdatePart)
			parts.DELETE("/:id", partHandler.DeletePart)
		}

		incidents := api.Group("/incidents")
		incidents.Use(requireAuth)
		{
			incidents.GET("", incidentHandler.ListIncidents)
			incidents.POST("", incidentHandler.CreateIncident)
			incidents.GET("/:id", incidentHandler.GetIncident)
			incidents.PUT("/:id", incidentHandler.UpdateIncident)
			incidents.DELETE("/:id", incidentHandler.DeleteIncident)
			incidents.POST("/:id/work-order", incidentHandler.SpawnWorkOrder)
		}

		pm := api.Group("/pm-schedules")
		pm.Use(requireAuth)
		{
			pm.GET("", pmHandler.ListSchedules)
			pm.POST("", pmHandler.CreateSchedule)
			pm.GET("/:id", pmHandler.GetSchedule)
			pm.PUT("/:id", pmHandler.UpdateSchedule)
			pm.DELETE("/:id", pmHandler.DeleteSchedule)
		}

		// Device administration (admin only)
		devices := api.Group("/devices")
		devices.Use(requireAuth, requireAdmin)
		{
			devices.GET("", deviceHandler.ListDevices)
			devices.POST("", deviceHandler.RegisterDevice)
			devices.GET("/:id", deviceHandler.GetDevice)
			devices.PUT("/:id", deviceHandler.UpdateDevice)
			devices.POST("/:id/rotate-token", deviceHandler.RotateToken)
			devices.DELETE("/:id", deviceHandler.DeleteDevice)
		}

		// Meter reading ingest, authorised by device token only
		api.POST("/ingest/readings", deviceHandler.Ingest)

		// Analytics
		analytics := api.Group("/analytics")
		analytics.Use(requireAuth)
		{
			analytics.GET("/dashboard", analyticsHandler.Dashboard)
			analytics.POST("/query", requireAdmin, analyticsHandler.Query)
		}
	}

	// Start background workers
	svcMgr.StartScheduler()
	log.Println("⏰ PM scheduler started (60s polling)")

	cleanupStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		svcMgr.Auth.CleanupExpiredSessions(context.Background())
		for {
			select {
			case <-ticker.C:
				svcMgr.Auth.CleanupExpiredSessions(context.Background())
			case <-cleanupStop:
				return
			}
		}
	}()

	log.Println("\n═══════════════════════════════════════════════════════════════════════════")
	log.Println("🚀 iWorx CMMS Backend Started Successfully")
	log.Println("═══════════════════════════════════════════════════════════════════════════")
	log.Printf("\n📍 Server:         http://localhost:%s", port)
	log.Printf("🔐 Auth API:       http://localhost:%s/api/auth", port)
	log.Printf("🛠️ Work Orders:    http://localhost:%s/api/work-orders", port)
	log.Printf("📟 Ingest API:     http://localhost:%s/api/ingest/readings", port)
	log.Printf("💚 Health check:   http://localhost:%s/health\n", port)

	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	close(cleanupStop)
	svcMgr.StopScheduler()
	log.Println("🛑 PM scheduler stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Println("Server exiting")
}
