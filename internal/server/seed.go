package server

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/storefront-dev/storefront/internal/models"
)

type seedProduct struct {
	Title       string  `yaml:"title"`
	Description string  `yaml:"description"`
	UnitPrice   float64 `yaml:"unit_price"`
}

type seedFile struct {
	Products []seedProduct `yaml:"products"`
}

// seedProducts loads catalog entries from a YAML file into an empty product table
func (s *Server) seedProducts(path string) error {
	var count int64
	if err := s.db.Model(&models.Product{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		s.logger.Debug().Int64("count", count).Msg("Product table already populated, skipping seed")
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	if len(seed.Products) == 0 {
		s.logger.Warn().Str("path", path).Msg("Seed file contains no products")
		return nil
	}

	products := make([]models.Product, 0, len(seed.Products))
	for _, p := range seed.Products {
		products = append(products, models.Product{
			Title:       p.Title,
			Description: p.Description,
			UnitPrice:   p.UnitPrice,
		})
	}

	if err := s.db.Create(&products).Error; err != nil {
		return fmt.Errorf("failed to insert seed products: %w", err)
	}

	s.logger.Info().Int("count", len(products)).Str("path", path).Msg("Seeded product catalog")
	return nil
}
