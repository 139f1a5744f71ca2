package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"shutterhub/internal/models"
	"shutterhub/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed catalog.yml
var catalogYAML []byte

// CategorySpec is one node of the seeded forum tree. Children may only appear on roots.
type CategorySpec struct {
	Slug        string         `yaml:"slug"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Color       string         `yaml:"color"`
	Icon        string         `yaml:"icon"`
	Children    []CategorySpec `yaml:"children"`
}

// SectionSpec is a seeded homepage section.
type SectionSpec struct {
	Key      string `yaml:"key"`
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
}

// Catalog is the built-in reference data shipped with the binary.
type Catalog struct {
	Forum           []CategorySpec      `yaml:"forum"`
	Homepage        []SectionSpec       `yaml:"homepage"`
	PhotoCategories []string            `yaml:"photo_categories"`
	CameraBrands    map[string][]string `yaml:"camera_brands"`
}

// LoadCatalog parses the embedded catalog.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog decodes and validates a catalog document.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	seen := map[string]bool{}
	check := func(spec CategorySpec) error {
		if strings.TrimSpace(spec.Slug) == "" || strings.TrimSpace(spec.Name) == "" {
			return fmt.Errorf("catalog category needs slug and name (got %q)", spec.Slug)
		}
		if err := validation.ValidateCategorySlug(spec.Slug); err != nil {
			return fmt.Errorf("catalog category %q: %w", spec.Slug, err)
		}
		if seen[spec.Slug] {
			return fmt.Errorf("catalog category slug %q is duplicated", spec.Slug)
		}
		seen[spec.Slug] = true
		return nil
	}
	for _, root := range c.Forum {
		if err := check(root); err != nil {
			return err
		}
		for _, child := range root.Children {
			if err := check(child); err != nil {
				return err
			}
			if len(child.Children) > 0 {
				return fmt.Errorf("catalog category %q nests deeper than two levels", child.Slug)
			}
		}
	}

	keys := map[string]bool{}
	for _, s := range c.Homepage {
		if s.Key == "" || s.Title == "" {
			return fmt.Errorf("catalog homepage section needs key and title")
		}
		if keys[s.Key] {
			return fmt.Errorf("catalog homepage key %q is duplicated", s.Key)
		}
		keys[s.Key] = true
	}
	return nil
}

// Brands returns the camera brand names in stable order.
func (c *Catalog) Brands() []string {
	brands := make([]string, 0, len(c.CameraBrands))
	for b := range c.CameraBrands {
		brands = append(brands, b)
	}
	sort.Strings(brands)
	return brands
}

// CatalogResult counts what SeedCatalog touched.
type CatalogResult struct {
	Categories int
	Sections   int
}

// SeedCatalog upserts the forum tree by slug and inserts missing homepage sections.
// Running it twice leaves the database unchanged.
func (s *Seeder) SeedCatalog(ctx context.Context, catalog *Catalog) (*CatalogResult, error) {
	result := &CatalogResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, root := range catalog.Forum {
			parent, err := upsertCategory(tx, root, nil, i)
			if err != nil {
				return err
			}
			result.Categories++
			for j, child := range root.Children {
				if _, err := upsertCategory(tx, child, &parent.ID, j); err != nil {
					return err
				}
				result.Categories++
			}
		}

		for i, spec := range catalog.Homepage {
			section := models.HomepageSection{}
			err := tx.Where(models.HomepageSection{Key: spec.Key}).
				Attrs(models.HomepageSection{
					Title:     spec.Title,
					Subtitle:  spec.Subtitle,
					IsVisible: true,
					SortOrder: i,
				}).
				FirstOrCreate(&section).Error
			if err != nil {
				return fmt.Errorf("seed homepage section %s: %w", spec.Key, err)
			}
			result.Sections++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func upsertCategory(tx *gorm.DB, spec CategorySpec, parentID *uint, order int) (*models.ForumCategory, error) {
	var category models.ForumCategory
	err := tx.Where("slug = ?", spec.Slug).First(&category).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		category = models.ForumCategory{
			ParentID:    parentID,
			Name:        spec.Name,
			Slug:        spec.Slug,
			Description: spec.Description,
			Color:       spec.Color,
			Icon:        spec.Icon,
			SortOrder:   order,
		}
		if err := tx.Create(&category).Error; err != nil {
			return nil, fmt.Errorf("seed forum category %s: %w", spec.Slug, err)
		}
		return &category, nil
	case err != nil:
		return nil, err
	}

	err = tx.Model(&category).Updates(map[string]interface{}{
		"parent_id":   parentID,
		"name":        spec.Name,
		"description": spec.Description,
		"color":       spec.Color,
		"icon":        spec.Icon,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("update forum category %s: %w", spec.Slug, err)
	}
	return &category, nil
}
