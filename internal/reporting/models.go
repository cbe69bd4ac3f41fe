package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (tr TimeRange) valid() bool {
	return !tr.From.IsZero() && !tr.To.IsZero() && tr.To.After(tr.From)
}

// contains includes both bounds.
func (tr TimeRange) contains(t time.Time) bool {
	return !t.Before(tr.From) && !t.After(tr.To)
}

// RecordsSummaryRequest requests arrest counts for records created in Range.
// CreatedBy, when set, narrows the summary to one officer.
type RecordsSummaryRequest struct {
	Range     TimeRange `json:"range"`
	CreatedBy string    `json:"createdBy,omitempty"`
}

type RecordsSummary struct {
	Range     TimeRange `json:"range"`
	CreatedBy string    `json:"createdBy,omitempty"`

	TotalRecords        int `json:"totalRecords"`
	EditedRecords       int `json:"editedRecords"`
	WithScreenshots     int `json:"withScreenshots"`
	DistinctIndividuals int `json:"distinctIndividuals"`

	// ByOfficer is sorted by count, highest first.
	ByOfficer []NamedCount `json:"byOfficer"`
	// ByDay is sorted by day ascending. Days are in the service location.
	ByDay []DayCount `json:"byDay"`
}

// ActivitySummaryRequest requests activity log counts for entries in Range.
type ActivitySummaryRequest struct {
	Range       TimeRange `json:"range"`
	PerformedBy string    `json:"performedBy,omitempty"`
}

type ActivitySummary struct {
	Range       TimeRange `json:"range"`
	PerformedBy string    `json:"performedBy,omitempty"`

	TotalEntries int            `json:"totalEntries"`
	ByAction     map[string]int `json:"byAction"`
	ByActor      []NamedCount   `json:"byActor"`
}

type NamedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}
