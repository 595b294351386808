package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CommonSortFields contains fields common to every ledger table
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// FeeRecordSortFields contains allowed sort fields for fee records
var FeeRecordSortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"student_id":         true,
	"academic_year_id":   true,
	"class_id":           true,
	"category":           true,
	"due_date":           true,
	"status":             true,
	"payment_status":     true,
	"total_amount":       true,
	"paid_amount":        true,
	"remaining_amount":   true,
	"installment_number": true,
}

// ConcessionSortFields contains allowed sort fields for concessions
var ConcessionSortFields = map[string]bool{
	"id":               true,
	"created_at":       true,
	"updated_at":       true,
	"student_id":       true,
	"academic_year_id": true,
	"category":         true,
	"status":           true,
	"value":            true,
	"approved_at":      true,
}
