package httpapi

import (
	"net/http"
	"time"

	"arrest-log/internal/reporting"

	"github.com/gin-gonic/gin"
)

const defaultReportWindow = 30 * 24 * time.Hour

// reportRange reads from/to as RFC3339 or YYYY-MM-DD. A bare date for to
// covers that whole day (UTC). Missing bounds default to the last 30 days.
func reportRange(c *gin.Context, now time.Time) (reporting.TimeRange, bool) {
	tr := reporting.TimeRange{From: now.Add(-defaultReportWindow), To: now}
	if raw := c.Query("from"); raw != "" {
		t, _, err := parseReportTime(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, "from inválido")
			return tr, false
		}
		tr.From = t
	}
	if raw := c.Query("to"); raw != "" {
		t, dateOnly, err := parseReportTime(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, "to inválido")
			return tr, false
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		tr.To = t
	}
	return tr, true
}

func parseReportTime(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	return t, true, err
}

func (h Handlers) RecordsReport(c *gin.Context) {
	tr, ok := reportRange(c, time.Now())
	if !ok {
		return
	}
	out, err := h.Reports.RecordsSummary(c.Request.Context(), reporting.RecordsSummaryRequest{
		Range:     tr,
		CreatedBy: c.Query("createdBy"),
	})
	if err != nil {
		respondErr(c, "records report", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) ActivityReport(c *gin.Context) {
	tr, ok := reportRange(c, time.Now())
	if !ok {
		return
	}
	out, err := h.Reports.ActivitySummary(c.Request.Context(), reporting.ActivitySummaryRequest{
		Range:       tr,
		PerformedBy: c.Query("performedBy"),
	})
	if err != nil {
		respondErr(c, "activity report", err)
		return
	}
	c.JSON(http.StatusOK, out)
}
