package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arnavshah/leave-scheduler-go/pkg/database"
)

// Version is reported by the root route
const Version = "1.0.0"

// NewRouter builds the gin engine with every route registered
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(h.RequestLogger(), gin.Recovery())

	// Admin interface - serve static files from embedded FS
	r.StaticFS("/static", h.GetStaticFS())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Leave Scheduler API",
			"version": Version,
		})
	})
	if h.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/admin", h.AdminInterface)
	r.POST("/admin/login", h.Login)

	api := r.Group("/api")
	api.GET("/health", h.Health)
	api.POST("/auth/login", h.Login)

	// Read endpoints accept an admin token or an integration key
	read := api.Group("", h.ReadAccess())
	{
		read.GET("/soldiers", h.ListSoldiers)
		read.GET("/soldiers/:id", h.GetSoldier)
		read.GET("/soldiers/:id/requests", h.ListRequests)
		read.GET("/soldiers/:id/stats", h.SoldierStats)

		read.GET("/scheduling/configuration", h.GetConfiguration)
		read.GET("/scheduling/current", h.GetCurrent)
		read.GET("/scheduling/stats", h.GetStats)
		read.GET("/scheduling/validation", h.GetValidation)
		read.GET("/scheduling/export/txt", h.ExportText)
		read.GET("/scheduling/export/csv", h.ExportCSV)

		read.GET("/calendar/range", h.CalendarRange)
		read.GET("/calendar/date-info/:date", h.DateInfo)
	}

	api.GET("/usage", h.APIKeyMiddleware(), h.GetMyUsage)

	write := api.Group("", h.AuthMiddleware())
	{
		write.POST("/soldiers", h.CreateSoldier)
		write.PUT("/soldiers/:id", h.UpdateSoldier)
		write.DELETE("/soldiers/:id", h.DeleteSoldier)
		write.POST("/soldiers/:id/requests", h.AddRequest)
		write.DELETE("/soldiers/:id/requests/:requestId", h.DeleteRequest)

		write.PUT("/scheduling/configuration", h.UpdateConfiguration)
		write.POST("/scheduling/validate", h.ValidateInput)
		write.POST("/scheduling/generate", h.Generate)
		write.DELETE("/scheduling/current", h.DeleteCurrent)
		write.PUT("/scheduling/manual-update", h.ManualUpdate)
		write.POST("/scheduling/optimize", h.Optimize)
		write.POST("/scheduling/import/history", h.ImportHistory)
	}

	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.GET("/conflicts", h.ListConflicts)
		admin.POST("/resolve-conflict", h.ResolveConflict)

		admin.GET("/holidays", h.ListDayWeights(database.KindHoliday))
		admin.POST("/holidays", h.AddDayWeight(database.KindHoliday))
		admin.DELETE("/holidays/:date", h.DeleteDayWeight(database.KindHoliday))
		admin.GET("/high-demand-days", h.ListDayWeights(database.KindHighDemand))
		admin.POST("/high-demand-days", h.AddDayWeight(database.KindHighDemand))
		admin.DELETE("/high-demand-days/:date", h.DeleteDayWeight(database.KindHighDemand))

		admin.GET("/emergency-reserve", h.ListEmergencyReserve)
		admin.POST("/emergency-reserve/:soldierId", h.AddEmergencyReserve)
		admin.DELETE("/emergency-reserve/:soldierId", h.RemoveEmergencyReserve)

		admin.GET("/advanced-stats", h.AdvancedStats)
		admin.GET("/runs", h.ListRuns)

		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
	}

	return r
}
