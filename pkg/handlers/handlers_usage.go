package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/internship-allocator-go/pkg/database"
)

// GetMyUsage returns the last 30 days of usage for the calling client
func (h *Handler) GetMyUsage(c *gin.Context) {
	if h.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Usage metering is not configured"})
		return
	}
	client := clientID(c)

	usage, err := database.ListUsage(h.DB, client, 30)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch usage details"})
		return
	}
	if usage == nil {
		usage = []database.APIUsage{}
	}

	// Calculate totals
	var totalRequests, totalCandidates, totalInternships, totalAllocated int64
	for _, u := range usage {
		totalRequests += int64(u.RequestCount)
		totalCandidates += int64(u.TotalCandidates)
		totalInternships += int64(u.TotalInternships)
		totalAllocated += int64(u.TotalAllocated)
	}

	c.JSON(http.StatusOK, gin.H{
		"client":        client,
		"usage_history": usage,
		"totals": gin.H{
			"requests":    totalRequests,
			"candidates":  totalCandidates,
			"internships": totalInternships,
			"allocated":   totalAllocated,
		},
	})
}
