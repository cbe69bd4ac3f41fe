// Package legacy reads the storage export of the original browser app
// (one JSON object keyed by storage slot) and writes it through the
// repositories.
package legacy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Export mirrors the storage slots. currentUser is read but never imported.
type Export struct {
	Users         []User          `json:"users"`
	CurrentUser   json.RawMessage `json:"currentUser,omitempty"`
	PrisonRecords []Record        `json:"prisonRecords"`
	ActivityLogs  []LogEntry      `json:"activityLogs"`
	AppSettings   *Settings       `json:"appSettings,omitempty"`
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Password     string    `json:"password"`
	Role         string    `json:"role"`
	CreatedAt    Timestamp `json:"createdAt"`
	LastActivity Timestamp `json:"lastActivity"`
}

type Record struct {
	ID                  string    `json:"id"`
	FixedID             string    `json:"fixedId"`
	IndividualName      string    `json:"individualName"`
	DateTime            string    `json:"dateTime"`
	Location            string    `json:"location"`
	Reason              string    `json:"reason"`
	SeizedItems         string    `json:"seizedItems"`
	ResponsibleOfficers string    `json:"responsibleOfficers"`
	Articles            string    `json:"articles"`
	Observations        string    `json:"observations"`
	Screenshots         []string  `json:"screenshots"`
	CreatedBy           string    `json:"createdBy"`
	CreatedAt           Timestamp `json:"createdAt"`
	EditedBy            string    `json:"editedBy"`
	EditedAt            Timestamp `json:"editedAt"`
}

type LogEntry struct {
	ID           string          `json:"id"`
	Action       string          `json:"action"`
	PerformedBy  string          `json:"performedBy"`
	TargetUser   string          `json:"targetUser"`
	TargetRecord json.RawMessage `json:"targetRecord"`
	Details      string          `json:"details"`
	Timestamp    Timestamp       `json:"timestamp"`
}

type Settings struct {
	WebhookURL      string `json:"webhookUrl"`
	MessageTemplate string `json:"messageTemplate"`
	AppName         string `json:"appName"`
	LogoURL         string `json:"logoUrl"`
	PrimaryColor    string `json:"primaryColor"`
}

// Timestamp accepts an ISO-8601 string or epoch milliseconds. Null, "" and
// 0 decode to the zero time.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
			if v, err := time.Parse(layout, s); err == nil {
				t.Time = v.UTC()
				return nil
			}
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			t.Time = time.UnixMilli(ms).UTC()
			return nil
		}
		return fmt.Errorf("unrecognised timestamp %q", s)
	}
	ms, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("unrecognised timestamp %s", b)
	}
	if ms != 0 {
		t.Time = time.UnixMilli(int64(ms)).UTC()
	}
	return nil
}

// Ptr returns nil for the zero time.
func (t Timestamp) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}
