// Package output exports scraped records to files.
package output

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/kameel77/auto-scraper/pkg/models"
)

// SaveJSON writes records as an indented JSON array to filepath
func SaveJSON(records []*models.Offer, filepath string) error {
	if records == nil {
		records = []*models.Offer{}
	}
	content, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, content, 0644)
}

// Save picks the exporter from the file extension, defaulting to JSON
func Save(records []*models.Offer, filepath string) error {
	if IsCSV(filepath) {
		return SaveCSV(records, filepath)
	}
	return SaveJSON(records, filepath)
}

// IsCSV reports whether filepath names a .csv file
func IsCSV(filepath string) bool {
	return strings.HasSuffix(strings.ToLower(filepath), ".csv")
}
