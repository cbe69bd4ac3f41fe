package notify

import (
	"strings"
	"time"

	"arrest-log/internal/records"
)

// SeizedItemsFallback replaces an empty seizedItems value.
const SeizedItemsFallback = "Nenhum"

const dateTimeLayout = "02/01/2006 15:04"

var inputLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// Render fills the placeholders of tpl from r. Substitution is a single pass,
// so placeholder text inside record values is left alone.
func Render(tpl string, r records.PrisonRecord, loc *time.Location) string {
	seized := strings.TrimSpace(r.SeizedItems)
	if seized == "" {
		seized = SeizedItemsFallback
	}
	rep := strings.NewReplacer(
		"{individualName}", r.IndividualName,
		"{dateTime}", FormatDateTime(r.DateTime, loc),
		"{location}", r.Location,
		"{reason}", r.Reason,
		"{seizedItems}", seized,
		"{responsibleOfficers}", r.ResponsibleOfficers,
		"{createdBy}", r.CreatedBy,
		"{fixedId}", r.FixedID,
		"{articles}", r.Articles,
		"{observations}", r.Observations,
	)
	return rep.Replace(tpl)
}

// FormatDateTime renders raw as dd/mm/yyyy hh:mm. Zone-less inputs are read
// in loc; RFC 3339 inputs are converted to loc. Unparseable input is
// returned unchanged.
func FormatDateTime(raw string, loc *time.Location) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(loc).Format(dateTimeLayout)
	}
	for _, layout := range inputLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.Format(dateTimeLayout)
		}
	}
	return raw
}
