package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/familu/entitlement-service/internal/domain/model"
	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Currency   string          `yaml:"currency"`
	Categories []categoryEntry `yaml:"categories"`
}

type categoryEntry struct {
	ID                 string `yaml:"id"`
	Name               string `yaml:"name"`
	Group              string `yaml:"group"`
	Description        string `yaml:"description"`
	RecurringAvailable bool   `yaml:"recurring_available"`
	// OneTimePrice is in minor units; omit for categories only sold by subscription.
	OneTimePrice *int64 `yaml:"one_time_price"`
	Currency     string `yaml:"currency"`
	SortOrder    int    `yaml:"sort_order"`
	IsActive     *bool  `yaml:"is_active"`
}

func loadCatalogFromYAML(path string) ([]*model.Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) ([]*model.Category, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal catalog yaml: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Categories))
	categories := make([]*model.Category, 0, len(file.Categories))
	for i, entry := range file.Categories {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			return nil, fmt.Errorf("categories[%d]: id is required", i)
		}
		if len(id) > 64 {
			return nil, fmt.Errorf("categories[%d]: id %q is longer than 64 characters", i, id)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("categories[%d]: duplicate id %q", i, id)
		}
		seen[id] = struct{}{}

		if entry.Name == "" {
			return nil, fmt.Errorf("categories[%d]: name is required", i)
		}
		if entry.OneTimePrice != nil && *entry.OneTimePrice <= 0 {
			return nil, fmt.Errorf("categories[%d]: one_time_price must be positive", i)
		}

		currency := strings.ToLower(strings.TrimSpace(entry.Currency))
		if currency == "" {
			currency = strings.ToLower(strings.TrimSpace(file.Currency))
		}
		if currency == "" {
			currency = "eur"
		}

		isActive := true
		if entry.IsActive != nil {
			isActive = *entry.IsActive
		}

		sortOrder := entry.SortOrder
		if sortOrder == 0 {
			sortOrder = i + 1
		}

		categories = append(categories, &model.Category{
			ID:                 id,
			Name:               entry.Name,
			GroupTag:           entry.Group,
			Description:        entry.Description,
			RecurringAvailable: entry.RecurringAvailable,
			OneTimePriceMinor:  entry.OneTimePrice,
			Currency:           currency,
			Active:             isActive,
			SortOrder:          sortOrder,
		})
	}

	return categories, nil
}
