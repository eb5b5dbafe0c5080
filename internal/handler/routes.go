package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/checkrun-api/internal/middleware"
	"github.com/yourusername/checkrun-api/internal/websocket"
)

// Routes набор обработчиков и middleware для регистрации маршрутов
type Routes struct {
	Auth        *AuthHandler
	Course      *CourseHandler
	Run         *RunHandler
	Session     *SessionHandler
	Leaderboard *LeaderboardHandler
	WS          *WSHandler
	Health      *HealthHandler
	WSMetrics   websocket.MetricsProvider
	Metrics     http.Handler

	AdminAuth   *middleware.AuthMiddleware
	RateLimiter *middleware.RateLimiter
	ImportLimit middleware.RateLimitConfig
	ScanLimit   middleware.RateLimitConfig
	LoginLimit  middleware.RateLimitConfig
}

// Register настраивает маршруты API на роутере
func (r *Routes) Register(router *gin.Engine) {
	courseID := middleware.ExtractStringParam("id", "courseID")
	runID := middleware.ExtractStringParam("id", "runID")
	sessionID := middleware.ExtractUUIDParam("id", "sessionID")

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", r.limit(r.LoginLimit), r.Auth.Login)
		}

		courses := api.Group("/courses")
		{
			courses.GET("", r.Course.ListCourses)
			courses.POST("", r.Course.CreateCourse)

			courseWithID := courses.Group("/:id", courseID)
			{
				courseWithID.GET("", r.Course.GetCourse)
				courseWithID.GET("/runs", r.Course.ListCourseRuns)
				courseWithID.GET("/leaderboard", r.Leaderboard.GetLeaderboard)
				courseWithID.GET("/leaderboard/rank", r.Leaderboard.RankCheckpoint)
				courseWithID.GET("/leaderboard/export", r.Leaderboard.ExportLeaderboard)
				courseWithID.DELETE("", r.AdminAuth.RequireAdmin(), r.Course.DeleteCourse)
			}
		}

		runs := api.Group("/runs")
		{
			runs.POST("/import", r.limit(r.ImportLimit), r.Run.ImportRun)

			runWithID := runs.Group("/:id", runID)
			{
				runWithID.GET("", r.Run.GetRun)
				runWithID.GET("/share", r.Run.ShareRun)
				runWithID.DELETE("", r.AdminAuth.RequireAdmin(), r.Run.DeleteRun)
			}
		}

		sessions := api.Group("/sessions")
		{
			sessions.POST("", r.Session.StartSession)

			sessionWithID := sessions.Group("/:id", sessionID)
			{
				sessionWithID.GET("", r.Session.GetSession)
				sessionWithID.POST("/scans", r.limitByParam(r.ScanLimit, "id"), r.Session.SubmitScan)
				sessionWithID.POST("/stop", r.Session.StopSession)
				sessionWithID.POST("/start", r.Session.RestartSession)
				sessionWithID.POST("/persist", r.Session.PersistRun)
			}
		}
	}

	// WebSocket маршрут
	if r.WS != nil {
		router.GET("/ws/sessions/:id", sessionID, r.WS.HandleConnection)
	}
	if r.WSMetrics != nil {
		router.GET("/ws/health", gin.WrapF(websocket.WebSocketHealthCheckHandler(r.WSMetrics)))
		router.GET("/ws/metrics", gin.WrapF(websocket.WebSocketMetricsHandler(r.WSMetrics)))
	}

	if r.Health != nil {
		router.GET("/health", r.Health.Health)
	}
	if r.Metrics != nil {
		router.GET("/metrics", gin.WrapH(r.Metrics))
	}
}

func (r *Routes) limit(cfg middleware.RateLimitConfig) gin.HandlerFunc {
	if r.RateLimiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return r.RateLimiter.Limit(cfg)
}

func (r *Routes) limitByParam(cfg middleware.RateLimitConfig, param string) gin.HandlerFunc {
	if r.RateLimiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return r.RateLimiter.LimitByParam(cfg, param)
}
