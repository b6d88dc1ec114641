package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/storefront-dev/storefront/internal/models"
)

const (
	defaultProductLimit = 20
	maxProductLimit     = 100
)

// ProductPage is a paginated product listing
type ProductPage struct {
	Count   int64            `json:"count"`
	Results []models.Product `json:"results"`
}

// listProducts returns a page of the product catalog
func (s *Server) listProducts(c *gin.Context) {
	limit := queryInt(c, "limit", defaultProductLimit)
	if limit < 1 {
		limit = defaultProductLimit
	}
	if limit > maxProductLimit {
		limit = maxProductLimit
	}

	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}

	var count int64
	if err := s.db.Model(&models.Product{}).Count(&count).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to count products")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	products := []models.Product{}
	err := s.db.Order("created_at, id").Limit(limit).Offset((page - 1) * limit).Find(&products).Error
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list products")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, ProductPage{Count: count, Results: products})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
