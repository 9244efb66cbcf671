package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleListPlans serves the current plan catalog so clients render
// checkout options from the same mapping the engine applies.
func (s *Server) HandleListPlans(c *gin.Context) {
	catalog := s.plans.Get()

	plans := make([]gin.H, 0, len(catalog.Plans))
	for _, p := range catalog.Plans {
		plans = append(plans, gin.H{
			"key":       p.Key,
			"name":      p.Name,
			"priceUsdc": p.PriceUSDC,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"version": catalog.Version,
		"plans":   plans,
	})
}
