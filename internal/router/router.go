package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kuato/kuato-be/internal/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if deps.DB != nil {
			if err := deps.DB.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"service": "kuato-api-service",
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "kuato-api-service",
		})
	})

	jobHandler := handler.NewJobHandler(deps)
	reportHandler := handler.NewReportHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			// POST /api/v1/jobs - Create a new job
			jobs.POST("", jobHandler.CreateJob)

			// GET /api/v1/jobs - List jobs with filtering
			jobs.GET("", jobHandler.ListJobs)

			// POST /api/v1/jobs/scan - Run a dispatch pass now
			jobs.POST("/scan", jobHandler.TriggerScan)

			// GET /api/v1/jobs/:id - Get job details
			jobs.GET("/:id", jobHandler.GetJob)

			// PUT /api/v1/jobs/:id - Replace a job
			jobs.PUT("/:id", jobHandler.UpdateJob)

			// DELETE /api/v1/jobs/:id - Delete a job
			jobs.DELETE("/:id", jobHandler.DeleteJob)

			// PUT /api/v1/jobs/:id/status - Set job lifecycle status
			jobs.PUT("/:id/status", jobHandler.SetJobStatus)

			// POST /api/v1/jobs/:id/activate - Reactivate a job
			jobs.POST("/:id/activate", jobHandler.ActivateJob)

			// POST /api/v1/jobs/:id/deactivate - Deactivate a job
			jobs.POST("/:id/deactivate", jobHandler.DeactivateJob)

			// POST /api/v1/jobs/:id/urls - Add a target URL
			jobs.POST("/:id/urls", jobHandler.AddURL)

			// DELETE /api/v1/jobs/:id/urls - Remove a target URL
			jobs.DELETE("/:id/urls", jobHandler.DeleteURL)

			// POST /api/v1/jobs/:id/search-queries - Add a search query
			jobs.POST("/:id/search-queries", jobHandler.AddSearchQuery)

			// DELETE /api/v1/jobs/:id/search-queries - Remove a search query
			jobs.DELETE("/:id/search-queries", jobHandler.DeleteSearchQuery)

			// GET /api/v1/jobs/:id/reports - List reports for a job
			jobs.GET("/:id/reports", reportHandler.ListReportsByJob)
		}

		reports := v1.Group("/reports")
		{
			// POST /api/v1/reports - Open a new report
			reports.POST("", reportHandler.CreateReport)

			// GET /api/v1/reports - List reports
			reports.GET("", reportHandler.ListReports)

			// GET /api/v1/reports/:id - Get report details
			reports.GET("/:id", reportHandler.GetReport)

			// DELETE /api/v1/reports/:id - Delete a report
			reports.DELETE("/:id", reportHandler.DeleteReport)

			// PUT /api/v1/reports/:id/status - Set report status
			reports.PUT("/:id/status", reportHandler.SetStatus)

			// POST /api/v1/reports/:id/urls - Append a finding
			reports.POST("/:id/urls", reportHandler.AddURL)

			// GET /api/v1/reports/:id/export - Download findings workbook
			reports.GET("/:id/export", reportHandler.Export)
		}
	}

	return r
}
