package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Gere2/AIGNITE/internal/assess"
	"github.com/Gere2/AIGNITE/internal/models"
	"github.com/Gere2/AIGNITE/internal/predictor"
	"github.com/Gere2/AIGNITE/internal/storage"
	"github.com/Gere2/AIGNITE/internal/tools"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

var idRangeError = fmt.Sprintf("id must not exceed %d", storage.MaxManualID)

type AssessmentHandler struct {
	svc      *assess.Service
	maxLimit int
}

func NewAssessmentHandler(svc *assess.Service, maxLimit int) *AssessmentHandler {
	if maxLimit <= 0 || maxLimit > MaxLimit {
		maxLimit = MaxLimit
	}
	return &AssessmentHandler{svc: svc, maxLimit: maxLimit}
}

type recordRequest struct {
	ID int64 `json:"id"`
	models.AttributeRecord
}

type assessmentResponse struct {
	*models.PredictionRecord
	Display tools.Display `json:"display"`
}

type predictionResponse struct {
	Prediction models.Prediction `json:"prediction"`
	Display    tools.Display     `json:"display"`
}

// Create records an assessment: 201 for a new row, 200 when a positive id in
// the body replaced an existing one.
func (h *AssessmentHandler) Create(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.ID > storage.MaxManualID {
		c.JSON(http.StatusBadRequest, gin.H{"error": idRangeError})
		return
	}

	// An id <= 0 is auto-assigned and always creates a row.
	status := http.StatusCreated
	if req.ID > 0 {
		_, err := h.svc.Get(c.Request.Context(), req.ID)
		switch {
		case err == nil:
			status = http.StatusOK
		case !errors.Is(err, assess.ErrNotFound):
			writeError(c, err)
			return
		}
	}

	rec, err := h.svc.Record(c.Request.Context(), req.AttributeRecord, req.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(status, assessmentResponse{PredictionRecord: rec, Display: tools.DisplayFor(rec.Prediction.Label)})
}

// Put stores the assessment under the id in the path, replacing any record
// already there.
func (h *AssessmentHandler) Put(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if id > storage.MaxManualID {
		c.JSON(http.StatusBadRequest, gin.H{"error": idRangeError})
		return
	}
	var attrs models.AttributeRecord
	if err := c.ShouldBindJSON(&attrs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	rec, err := h.svc.Record(c.Request.Context(), attrs, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessmentResponse{PredictionRecord: rec, Display: tools.DisplayFor(rec.Prediction.Label)})
}

func (h *AssessmentHandler) List(c *gin.Context) {
	limit := DefaultLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter, must be a positive integer"})
			return
		}
		limit = l
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	records, err := h.svc.List(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": records, "count": len(records)})
}

func (h *AssessmentHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rec, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessmentResponse{PredictionRecord: rec, Display: tools.DisplayFor(rec.Prediction.Label)})
}

func (h *AssessmentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	removed, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "assessment not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AssessmentHandler) Predict(c *gin.Context) {
	var attrs models.AttributeRecord
	if err := c.ShouldBindJSON(&attrs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	pred, err := h.svc.Assess(c.Request.Context(), attrs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, predictionResponse{Prediction: pred, Display: tools.DisplayFor(pred.Label)})
}

func (h *AssessmentHandler) Validate(c *gin.Context) {
	var attrs models.AttributeRecord
	if err := c.ShouldBindJSON(&attrs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	ok, violations := h.svc.Validate(attrs)
	if violations == nil {
		violations = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"valid": ok, "violations": violations})
}

func (h *AssessmentHandler) Explain(c *gin.Context) {
	var attrs models.AttributeRecord
	if err := c.ShouldBindJSON(&attrs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.svc.Explain(attrs))
}

func (h *AssessmentHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AssessmentHandler) Vocabulary(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Vocabulary().Tables())
}

func (h *AssessmentHandler) Model(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.ModelInfo())
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id, must be a positive integer"})
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	var verr *assess.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "violations": verr.Violations})
	case errors.Is(err, predictor.ErrEmptySelection):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrIDOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": idRangeError})
	case errors.Is(err, assess.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "assessment not found"})
	case errors.Is(err, storage.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "prediction store unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
	_ = c.Error(err)
}
