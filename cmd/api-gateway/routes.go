package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/crams-api/internal/handler"
	"github.com/noah-isme/crams-api/internal/middleware"
	"github.com/noah-isme/crams-api/internal/models"
)

type handlers struct {
	auth          *handler.AuthHandler
	courses       *handler.CourseHandler
	selections    *handler.SelectionHandler
	advisors      *handler.AdvisorHandler
	admin         *handler.AdminHandler
	users         *handler.UserHandler
	notifications *handler.NotificationHandler
	health        *handler.HealthHandler
}

type routeOptions struct {
	prefix  string
	docs    bool
	metrics bool
}

func registerRoutes(r *gin.Engine, h handlers, tokens middleware.TokenValidator, opts routeOptions) {
	r.GET("/health", h.health.Health)
	r.GET("/ready", h.health.Ready)
	if opts.metrics {
		r.GET("/metrics", h.health.Prometheus)
	}
	if opts.docs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authed := middleware.JWT(tokens)
	students := middleware.RequireRoles(models.RoleStudent)
	reviewers := middleware.RequireRoles(models.RoleAdvisor, models.RoleAdmin)
	admins := middleware.RequireRoles(models.RoleAdmin)

	r.GET("/ws/notifications", authed, h.notifications.Stream)

	api := r.Group(opts.prefix)

	auth := api.Group("/auth")
	auth.POST("/register", h.auth.Register)
	auth.POST("/login", h.auth.Login)
	auth.GET("/me", authed, h.auth.Me)
	auth.PUT("/password", authed, h.auth.ChangePassword)
	auth.PUT("/profile", authed, h.auth.UpdateProfile)

	courses := api.Group("/courses", authed)
	courses.GET("", h.courses.List)
	courses.GET("/meta/departments", h.courses.Departments)
	courses.POST("/check-conflicts", h.courses.CheckConflicts)
	courses.GET("/:id", h.courses.Get)
	courses.POST("", admins, h.courses.Create)
	courses.PUT("/:id", admins, h.courses.Update)
	courses.PUT("/:id/capacity", admins, h.courses.UpdateCapacity)
	courses.DELETE("/:id", admins, h.courses.Delete)

	selections := api.Group("/selections", authed)
	selections.POST("", students, h.selections.Create)
	selections.DELETE("/:id", students, h.selections.Remove)
	selections.PUT("/:id/priority", students, h.selections.UpdatePriority)
	selections.PUT("/:id/review", reviewers, h.selections.Review)
	selections.PUT("/bulk-review", reviewers, h.selections.BulkReview)

	student := api.Group("/student", authed, students)
	student.GET("/selections", h.selections.MySelections)
	student.GET("/schedule", h.selections.Schedule)
	student.GET("/advisor", h.advisors.MyAdvisor)

	advisor := api.Group("/advisor", authed, reviewers)
	advisor.GET("/students", h.advisors.Students)
	advisor.GET("/students/:studentId/selections", h.advisors.StudentSelections)
	advisor.GET("/pending-selections", h.selections.Pending)
	advisor.GET("/statistics", h.advisors.Statistics)

	admin := api.Group("/admin", authed, admins)
	admin.GET("/dashboard", h.admin.Dashboard)
	admin.GET("/reports", h.admin.Reports)
	admin.GET("/seat-conflicts", h.admin.SeatConflicts)
	admin.GET("/schedule-stats", h.admin.ScheduleStats)
	admin.POST("/resolve-conflict/:courseId", h.admin.ResolveConflict)
	admin.POST("/assign-advisor", h.advisors.Assign)
	admin.GET("/advisor-assignments", h.advisors.Assignments)
	admin.DELETE("/advisor-assignments/:id", h.advisors.Unassign)
	admin.GET("/users", h.users.List)
	admin.POST("/users", h.users.Create)
	admin.GET("/users/:id", h.users.Get)
	admin.PUT("/users/:id", h.users.Update)
	admin.DELETE("/users/:id", h.users.Delete)

	notifications := api.Group("/notifications", authed)
	notifications.GET("", h.notifications.List)
	notifications.PUT("/:id/read", h.notifications.MarkRead)
}
