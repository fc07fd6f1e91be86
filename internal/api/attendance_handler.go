package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/attendance-tracker-api/internal/models"
	"github.com/attendance-tracker-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AttendanceHandler handles attendance endpoints
type AttendanceHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewAttendanceHandler creates a new AttendanceHandler
func NewAttendanceHandler(services *service.Services, log zerolog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		services: services,
		log:      log.With().Str("handler", "attendance").Logger(),
	}
}

// List handles GET /v1/attendance
func (h *AttendanceHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	scope := scopeFrom(c)

	if err := h.services.Attendance.Open(ctx, scope); err != nil {
		h.fail(c, err, "failed to open attendance table")
		return
	}

	records, err := h.services.Attendance.List(ctx, scope)
	if err != nil {
		h.fail(c, err, "failed to load attendance")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"count":   len(records),
	})
}

// Mark handles POST /v1/attendance
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req models.MarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	record, err := h.services.Attendance.Mark(c.Request.Context(), scopeFrom(c), req.Name, req.Status)
	if err != nil {
		h.fail(c, err, "failed to mark attendance")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"record":  record,
		"message": "Attendance marked successfully",
	})
}

// Delete handles DELETE /v1/attendance with the full record as body
func (h *AttendanceHandler) Delete(c *gin.Context) {
	var record models.AttendanceRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	deleted, err := h.services.Attendance.Delete(c.Request.Context(), scopeFrom(c), record)
	if err != nil {
		h.fail(c, err, "failed to delete attendance")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// Clear handles DELETE /v1/attendance/all
func (h *AttendanceHandler) Clear(c *gin.Context) {
	if err := h.services.Attendance.Clear(c.Request.Context(), scopeFrom(c)); err != nil {
		h.fail(c, err, "failed to clear attendance")
		return
	}
	c.Status(http.StatusNoContent)
}

// Export handles GET /v1/attendance/export?format=csv|xlsx
func (h *AttendanceHandler) Export(c *gin.Context) {
	ctx := c.Request.Context()
	scope := scopeFrom(c)

	format := c.DefaultQuery("format", "csv")
	switch format {
	case "csv":
		data, err := h.services.Export.ExportCSV(ctx, scope)
		if err != nil {
			h.fail(c, err, "failed to export attendance")
			return
		}
		c.Header("Content-Disposition", "attachment; filename=attendance.csv")
		c.Data(http.StatusOK, "text/csv", data)

	case "xlsx":
		// Buffer so a failure can still be reported as JSON
		var buf bytes.Buffer
		if err := h.services.Export.ExportXLSX(ctx, scope, &buf); err != nil {
			h.fail(c, err, "failed to export attendance")
			return
		}
		c.Header("Content-Disposition", "attachment; filename=attendance.xlsx")
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of: csv, xlsx"})
	}
}

// Summary handles GET /v1/attendance/summary
func (h *AttendanceHandler) Summary(c *gin.Context) {
	sum, err := h.services.Attendance.Summary(c.Request.Context(), scopeFrom(c))
	if err != nil {
		h.fail(c, err, "failed to summarize attendance")
		return
	}
	c.JSON(http.StatusOK, sum)
}

// fail writes err as JSON. Internal errors are logged and hidden.
func (h *AttendanceHandler) fail(c *gin.Context, err error, msg string) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("scope", scopeFrom(c).String()).Msg(msg)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// bindingMessage lists the missing fields of a failed bind
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return fmt.Sprintf("missing required fields: %s", strings.Join(fields, ", "))
}
