package httpapi

import (
	"net/http"
	"strings"

	"arrest-log/internal/records"

	"github.com/gin-gonic/gin"
)

func (h Handlers) ListRecords(c *gin.Context) {
	u, ok := actor(c)
	if !ok {
		return
	}
	list, err := h.Records.ListVisible(c.Request.Context(), u)
	if err != nil {
		internalError(c, "list records", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": list})
}

func (h Handlers) CreateRecord(c *gin.Context) {
	u, ok := actor(c)
	if !ok {
		return
	}
	var req records.NewRecord
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "json inválido")
		return
	}
	r, err := h.Records.Create(c.Request.Context(), u, req)
	if err != nil {
		respondErr(c, "create record", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "record": r})
}

func (h Handlers) UpdateRecord(c *gin.Context) {
	u, ok := actor(c)
	if !ok {
		return
	}
	var req records.Patch
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "json inválido")
		return
	}
	r, updated, err := h.Records.Update(c.Request.Context(), u, c.Param("id"), req)
	if err != nil {
		respondErr(c, "update record", err)
		return
	}
	if !updated {
		c.JSON(http.StatusOK, gin.H{"success": true, "updated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": true, "record": r})
}

func (h Handlers) DeleteRecord(c *gin.Context) {
	u, ok := actor(c)
	if !ok {
		return
	}
	removed, err := h.Records.Delete(c.Request.Context(), u, c.Param("id"))
	if err != nil {
		respondErr(c, "delete record", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": removed != nil, "record": removed})
}

func (h Handlers) RecordsByIndividual(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		fail(c, http.StatusBadRequest, "name obrigatório")
		return
	}
	list, err := h.Records.ListByIndividual(c.Request.Context(), name)
	if err != nil {
		internalError(c, "records by individual", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": list})
}

func (h Handlers) AggregateRecords(c *gin.Context) {
	groups, err := h.Records.AggregateByIndividual(c.Request.Context())
	if err != nil {
		internalError(c, "aggregate records", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"individuals": groups})
}

type uploadImagesRequest struct {
	Images []string `json:"images"`
}

// UploadImages relays base64 screenshots to the image host and returns the
// URLs that succeeded.
func (h Handlers) UploadImages(c *gin.Context) {
	if h.Images == nil || !h.Images.Enabled() {
		fail(c, http.StatusServiceUnavailable, "hospedagem de imagens não configurada")
		return
	}
	var req uploadImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Images) == 0 {
		fail(c, http.StatusBadRequest, "images obrigatório")
		return
	}
	if len(req.Images) > 10 {
		fail(c, http.StatusBadRequest, "no máximo 10 imagens")
		return
	}
	urls := h.Images.UploadMultiple(c.Request.Context(), req.Images)
	c.JSON(http.StatusOK, gin.H{"success": len(urls) > 0, "urls": urls})
}
