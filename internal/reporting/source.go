package reporting

import (
	"context"

	"arrest-log/internal/audit"
	"arrest-log/internal/records"
)

// logScanLimit bounds how many activity entries one summary reads.
const logScanLimit = 10000

// Sources adapts the record and activity repositories to Repository.
// Neither backend has range queries, so filtering happens in the service.
type Sources struct {
	Records records.Repository
	Logs    audit.Repository
}

func (s Sources) ListRecords(ctx context.Context) ([]records.PrisonRecord, error) {
	return s.Records.List(ctx)
}

func (s Sources) ListLogs(ctx context.Context) ([]audit.LogEntry, error) {
	return s.Logs.List(ctx, logScanLimit)
}
