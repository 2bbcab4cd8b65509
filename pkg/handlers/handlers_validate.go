package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/internship-allocator-go/pkg/engine"
	"github.com/arnavshah/internship-allocator-go/pkg/normalizer"
	"github.com/arnavshah/internship-allocator-go/pkg/tabular"
)

// ValidateInput normalizes the request without allocating
func (h *Handler) ValidateInput(c *gin.Context) {
	input, ok := h.bindInput(c)
	if !ok {
		return
	}

	res := normalizer.Normalize(tabular.Stringify(input.Candidates), tabular.Stringify(input.Internships))

	errs := append([]normalizer.ValidationError{}, res.Errors...)
	var totalCapacity any
	if total, err := engine.TotalCapacity(res.Internships); err != nil {
		// Allocate rejects this input outright, so it is never valid here
		errs = append(errs, normalizer.ValidationError{
			Entity: "internship",
			Field:  "capacity",
			Reason: err.Error(),
		})
	} else {
		totalCapacity = total
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": len(errs) == 0,
		"stats": gin.H{
			"candidate_count":  len(res.Candidates),
			"internship_count": len(res.Internships),
			"total_capacity":   totalCapacity,
		},
		"errors": errs,
	})
}
