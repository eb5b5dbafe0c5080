package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/checkrun-api/internal/handler/dto"
	"github.com/yourusername/checkrun-api/internal/service"
)

// CourseHandler обрабатывает запросы, связанные с трассами
type CourseHandler struct {
	courseService *service.CourseService
	runService    *service.RunService
}

// NewCourseHandler создает новый обработчик трасс
func NewCourseHandler(courseService *service.CourseService, runService *service.RunService) *CourseHandler {
	return &CourseHandler{
		courseService: courseService,
		runService:    runService,
	}
}

// CreateCourse загружает трассу из списка QR-кодов
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	course, err := h.courseService.CreateCourse(c.Request.Context(), req.Name, req.Entries)
	if err != nil {
		handleError(c, "CourseHandler", err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewCourseResponse(course))
}

// ListCourses возвращает все трассы
func (h *CourseHandler) ListCourses(c *gin.Context) {
	courses, err := h.courseService.ListCourses(c.Request.Context())
	if err != nil {
		handleError(c, "CourseHandler", err)
		return
	}
	out := make([]*dto.CourseResponse, 0, len(courses))
	for i := range courses {
		out = append(out, dto.NewCourseResponse(&courses[i]))
	}
	c.JSON(http.StatusOK, out)
}

// GetCourse возвращает трассу по ID
func (h *CourseHandler) GetCourse(c *gin.Context) {
	courseID := c.GetString("courseID")

	course, err := h.courseService.GetCourse(c.Request.Context(), courseID)
	if err != nil {
		handleError(c, "CourseHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCourseResponse(course))
}

// DeleteCourse удаляет трассу вместе с её забегами (только админ)
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	courseID := c.GetString("courseID")

	if err := h.courseService.DeleteCourse(c.Request.Context(), courseID); err != nil {
		handleError(c, "CourseHandler", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListCourseRuns возвращает забеги трассы по возрастанию итогового времени
func (h *CourseHandler) ListCourseRuns(c *gin.Context) {
	courseID := c.GetString("courseID")
	ctx := c.Request.Context()

	runs, err := h.runService.ListCourseRuns(ctx, courseID)
	if err != nil {
		handleError(c, "CourseHandler", err)
		return
	}

	// подписи по длине трассы, если она есть локально
	count := 0
	if course, err := h.courseService.GetCourse(ctx, courseID); err == nil {
		count = course.CheckpointCount()
	}
	c.JSON(http.StatusOK, dto.NewRunListResponse(runs, count))
}
