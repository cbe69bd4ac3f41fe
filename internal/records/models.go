package records

import "time"

// PrisonRecord is one logged arrest.
//
// DateTime is kept as the client sent it (usually an HTML datetime-local
// value such as 2024-05-01T21:30); rendering parses it when it can.
// Screenshots hold either http(s) URLs or base64/data-URI payloads.
type PrisonRecord struct {
	ID                  string     `json:"id"`
	FixedID             string     `json:"fixedId,omitempty"`
	IndividualName      string     `json:"individualName"`
	DateTime            string     `json:"dateTime"`
	Location            string     `json:"location"`
	Reason              string     `json:"reason"`
	SeizedItems         string     `json:"seizedItems"`
	ResponsibleOfficers string     `json:"responsibleOfficers"`
	Articles            string     `json:"articles,omitempty"`
	Observations        string     `json:"observations,omitempty"`
	Screenshots         []string   `json:"screenshots"`
	CreatedBy           string     `json:"createdBy"`
	CreatedAt           time.Time  `json:"createdAt"`
	EditedBy            string     `json:"editedBy,omitempty"`
	EditedAt            *time.Time `json:"editedAt,omitempty"`
	Version             int64      `json:"version"`
}

// NewRecord is the caller-supplied part of a record.
type NewRecord struct {
	FixedID             string   `json:"fixedId"`
	IndividualName      string   `json:"individualName"`
	DateTime            string   `json:"dateTime"`
	Location            string   `json:"location"`
	Reason              string   `json:"reason"`
	SeizedItems         string   `json:"seizedItems"`
	ResponsibleOfficers string   `json:"responsibleOfficers"`
	Articles            string   `json:"articles"`
	Observations        string   `json:"observations"`
	Screenshots         []string `json:"screenshots"`
}

// Patch changes the non-nil fields. IfVersion, when set, must equal the
// stored Version or the update fails with ErrVersionConflict.
type Patch struct {
	FixedID             *string   `json:"fixedId,omitempty"`
	IndividualName      *string   `json:"individualName,omitempty"`
	DateTime            *string   `json:"dateTime,omitempty"`
	Location            *string   `json:"location,omitempty"`
	Reason              *string   `json:"reason,omitempty"`
	SeizedItems         *string   `json:"seizedItems,omitempty"`
	ResponsibleOfficers *string   `json:"responsibleOfficers,omitempty"`
	Articles            *string   `json:"articles,omitempty"`
	Observations        *string   `json:"observations,omitempty"`
	Screenshots         *[]string `json:"screenshots,omitempty"`
	IfVersion           *int64    `json:"ifVersion,omitempty"`
}

// IndividualSummary groups records of one person.
type IndividualSummary struct {
	IndividualName string       `json:"individualName"`
	Count          int          `json:"count"`
	LastRecord     PrisonRecord `json:"lastRecord"`
}

func cloneRecord(r PrisonRecord) PrisonRecord {
	if r.Screenshots != nil {
		r.Screenshots = append([]string(nil), r.Screenshots...)
	}
	if r.EditedAt != nil {
		t := *r.EditedAt
		r.EditedAt = &t
	}
	return r
}
