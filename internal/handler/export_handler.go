package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/recruit-booking-api/internal/service"
	"github.com/noah-isme/recruit-booking-api/pkg/response"
)

// ExportHandler exposes administrative export endpoints.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Roster godoc
// @Summary Download an event's booking roster
// @Tags Events
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Event ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {string} string "Roster document"
// @Router /events/{id}/roster [get]
func (h *ExportHandler) Roster(c *gin.Context) {
	doc, err := h.exports.Roster(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}
