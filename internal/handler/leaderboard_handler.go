package handler

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/checkrun-api/internal/handler/dto"
	"github.com/yourusername/checkrun-api/internal/service"
	"github.com/yourusername/checkrun-api/internal/service/runtracker"
)

// LeaderboardHandler отдаёт таблицы результатов трасс
type LeaderboardHandler struct {
	leaderboardService *service.LeaderboardService
}

// NewLeaderboardHandler создает новый обработчик таблиц результатов
func NewLeaderboardHandler(leaderboardService *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: leaderboardService}
}

// GetLeaderboard возвращает таблицу результатов трассы
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	lb, err := h.leaderboardService.GetBoard(c.Request.Context(), c.GetString("courseID"))
	if err != nil {
		handleError(c, "LeaderboardHandler", err)
		return
	}
	c.JSON(http.StatusOK, lb)
}

// RankCheckpoint ранжирует забеги на одной контрольной точке
// GET /api/courses/:id/leaderboard/rank?checkpoint=N&metric=leg|cumulative
func (h *LeaderboardHandler) RankCheckpoint(c *gin.Context) {
	checkpoint, err := strconv.Atoi(c.Query("checkpoint"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "checkpoint must be an integer"})
		return
	}
	metric, ok := runtracker.ParseMetric(c.DefaultQuery("metric", "cumulative"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "metric must be leg or cumulative"})
		return
	}

	classes, err := h.leaderboardService.Rank(c.Request.Context(), c.GetString("courseID"), checkpoint, metric)
	if err != nil {
		handleError(c, "LeaderboardHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"checkpoint": checkpoint,
		"metric":     metric.String(),
		"ranks":      classes,
	})
}

// ExportLeaderboard экспортирует таблицу результатов в CSV или Excel
// GET /api/courses/:id/leaderboard/export?format=csv|xlsx
func (h *LeaderboardHandler) ExportLeaderboard(c *gin.Context) {
	courseID := c.GetString("courseID")
	format := c.DefaultQuery("format", "csv")

	lb, err := h.leaderboardService.GetBoard(c.Request.Context(), courseID)
	if err != nil {
		handleError(c, "LeaderboardHandler", err)
		return
	}

	filename := fmt.Sprintf("course_%s_leaderboard_%s", courseID, time.Now().Format("2006-01-02"))

	switch format {
	case "xlsx":
		h.exportXLSX(c, lb, filename)
	case "csv":
		h.exportCSV(c, lb, filename)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
	}
}

// exportHeaders заголовки: место, бегун, итог, затем накопленное время каждой точки
func exportHeaders(lb *service.Leaderboard) []string {
	headers := []string{"Place", "Runner", "Total"}
	return append(headers, lb.Labels...)
}

// exportRow строка таблицы: пропущенные точки остаются пустыми
func exportRow(place int, row runtracker.Row) []string {
	out := []string{strconv.Itoa(place), sanitizeForExcel(row.RunnerName), dto.FormatClock(row.TotalElapsed)}
	for _, cell := range row.Cells {
		if !cell.HasData {
			out = append(out, "")
			continue
		}
		out = append(out, dto.FormatClock(cell.Cumulative))
	}
	return out
}

// exportCSV экспортирует таблицу в CSV с правильным экранированием спецсимволов
func (h *LeaderboardHandler) exportCSV(c *gin.Context, lb *service.Leaderboard, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(exportHeaders(lb))
	for i, row := range lb.Board.Rows {
		writer.Write(exportRow(i+1, row))
	}
}

// exportXLSX экспортирует таблицу в Excel с использованием StreamWriter
func (h *LeaderboardHandler) exportXLSX(c *gin.Context, lb *service.Leaderboard, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Leaderboard"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[LeaderboardHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	if err := sw.SetRow("A1", toCells(exportHeaders(lb))); err != nil {
		log.Printf("[LeaderboardHandler] Ошибка записи заголовков: %v", err)
	}
	for i, row := range lb.Board.Rows {
		rowNum := i + 2
		if err := sw.SetRow(fmt.Sprintf("A%d", rowNum), toCells(exportRow(i+1, row))); err != nil {
			log.Printf("[LeaderboardHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[LeaderboardHandler] Ошибка при Flush: %v", err)
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[LeaderboardHandler] Ошибка записи Excel в response: %v", err)
	}
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
