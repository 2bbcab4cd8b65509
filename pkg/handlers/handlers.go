package handlers

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/arnavshah/internship-allocator-go/pkg/database"
	"github.com/arnavshah/internship-allocator-go/pkg/engine"
	"github.com/arnavshah/internship-allocator-go/pkg/explain"
	"github.com/arnavshah/internship-allocator-go/pkg/logger"
	"github.com/arnavshah/internship-allocator-go/pkg/models"
	"github.com/arnavshah/internship-allocator-go/pkg/normalizer"
	"github.com/arnavshah/internship-allocator-go/pkg/tabular"
)

// ClientHeader identifies the caller for usage metering
const ClientHeader = "X-Client-ID"

const anonymousClient = "anonymous"

// Handler contains dependencies for the route handlers
type Handler struct {
	// DB is optional; without it usage is not metered
	DB     *gorm.DB
	Engine *engine.Engine
	Log    logger.Logger
	Now    func() time.Time
}

// AllocateResponse is the body returned by both allocate endpoints
type AllocateResponse struct {
	RunID            string                       `json:"run_id"`
	Allocations      []models.AllocationRecord    `json:"allocations"`
	Unallocated      []string                     `json:"unallocated"`
	Utilization      []models.InternshipFill      `json:"utilization"`
	Statistics       explain.Statistics           `json:"statistics"`
	ValidationErrors []normalizer.ValidationError `json:"validation_errors"`
	CSV              string                       `json:"csv,omitempty"`
}

// AllocateJSON handles the JSON-based allocation request
func (h *Handler) AllocateJSON(c *gin.Context) {
	input, ok := h.bindInput(c)
	if !ok {
		return
	}

	allowPartial := input.AllowPartial == nil || *input.AllowPartial
	h.allocate(c, tabular.Stringify(input.Candidates), tabular.Stringify(input.Internships), allowPartial, false)
}

// AllocateCSV handles CSV file uploads for allocation
func (h *Handler) AllocateCSV(c *gin.Context) {
	candFile, _ := c.FormFile("candidates_file")
	internFile, _ := c.FormFile("internships_file")
	if candFile == nil || internFile == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "candidates_file and internships_file are required"})
		return
	}

	candidates, err := readUpload(candFile)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read candidates file: " + err.Error()})
		return
	}
	internships, err := readUpload(internFile)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read internships file: " + err.Error()})
		return
	}

	allowPartial := true
	if raw := c.Query("allow_partial"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "allow_partial must be a boolean"})
			return
		}
		allowPartial = v
	}

	h.allocate(c, candidates, internships, allowPartial, c.Query("export") == "csv")
}

func (h *Handler) allocate(c *gin.Context, candidates, internships []map[string]string, allowPartial, exportCSV bool) {
	outcome, err := h.Engine.Allocate(c.Request.Context(), candidates, internships)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if len(outcome.ValidationErrors) > 0 && !allowPartial {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":             "input contains invalid rows",
			"validation_errors": outcome.ValidationErrors,
		})
		return
	}

	h.RecordUsage(c, database.Usage{
		Candidates:  len(outcome.Candidates),
		Internships: len(outcome.Internships),
		Allocated:   len(outcome.Result.Assignments),
	})

	resp := AllocateResponse{
		RunID:            outcome.RunID,
		Allocations:      outcome.Records,
		Unallocated:      outcome.Result.Unallocated,
		Utilization:      outcome.Result.Utilization,
		Statistics:       outcome.Statistics,
		ValidationErrors: outcome.ValidationErrors,
	}
	if exportCSV {
		var out strings.Builder
		if err := tabular.WriteRecords(&out, outcome.Records); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not render CSV"})
			return
		}
		resp.CSV = out.String()
	}
	c.JSON(http.StatusOK, resp)
}

// bindInput reads the body, checks it against the request schema and decodes it
func (h *Handler) bindInput(c *gin.Context) (models.AllocateInput, bool) {
	var input models.AllocateInput
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return input, false
	}
	if !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body is not valid JSON"})
		return input, false
	}
	problems, err := validateShape(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return input, false
	}
	if len(problems) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request does not match schema", "details": problems})
		return input, false
	}
	if err := json.Unmarshal(body, &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return input, false
	}
	return input, true
}

// respondError maps engine failures to status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	var cfgErr *engine.ConfigurationError
	var cancelled *engine.CancellationError
	switch {
	case errors.As(err, &cfgErr):
		h.Log.WithError(err).Error("Allocation misconfigured", map[string]interface{}{"field": cfgErr.Field})
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "field": cfgErr.Field})
	case errors.As(err, &cancelled):
		h.Log.Warn("Allocation cancelled", map[string]interface{}{"phase": cancelled.Phase})
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.Log.WithError(err).Error("Allocation failed", nil)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "allocation failed"})
	}
}

// RecordUsage records API usage in the database using an efficient upsert
func (h *Handler) RecordUsage(c *gin.Context, u database.Usage) {
	if h.DB == nil {
		return
	}
	if err := database.RecordUsage(h.DB, clientID(c), h.now(), u); err != nil {
		h.Log.WithError(err).Warn("Could not record usage", map[string]interface{}{"client": clientID(c)})
	}
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func clientID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(ClientHeader)); id != "" {
		return id
	}
	return anonymousClient
}

func readUpload(fh *multipart.FileHeader) ([]map[string]string, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tabular.ReadCSV(f)
}
