package reporting

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"arrest-log/internal/audit"
	"arrest-log/internal/records"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
// Implementations should read the immutable sources (activity log, records).
type Repository interface {
	ListRecords(ctx context.Context) ([]records.PrisonRecord, error)
	ListLogs(ctx context.Context) ([]audit.LogEntry, error)
}

type Service struct {
	repo Repository
	loc  *time.Location
}

// NewService buckets days in loc; nil means UTC.
func NewService(repo Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc}
}

func (s *Service) RecordsSummary(ctx context.Context, req RecordsSummaryRequest) (RecordsSummary, error) {
	if !req.Range.valid() {
		return RecordsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return RecordsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListRecords(ctx)
	if err != nil {
		return RecordsSummary{}, err
	}

	out := RecordsSummary{Range: req.Range, CreatedBy: req.CreatedBy}
	officers := map[string]int{}
	days := map[string]int{}
	individuals := map[string]struct{}{}
	for _, r := range rows {
		if !req.Range.contains(r.CreatedAt) {
			continue
		}
		if req.CreatedBy != "" && r.CreatedBy != req.CreatedBy {
			continue
		}
		out.TotalRecords++
		if r.EditedAt != nil {
			out.EditedRecords++
		}
		if len(r.Screenshots) > 0 {
			out.WithScreenshots++
		}
		individuals[strings.ToLower(strings.TrimSpace(r.IndividualName))] = struct{}{}
		officers[r.CreatedBy]++
		days[r.CreatedAt.In(s.loc).Format("2006-01-02")]++
	}
	out.DistinctIndividuals = len(individuals)
	out.ByOfficer = rank(officers)
	out.ByDay = make([]DayCount, 0, len(days))
	for d, n := range days {
		out.ByDay = append(out.ByDay, DayCount{Day: d, Count: n})
	}
	sort.Slice(out.ByDay, func(i, j int) bool { return out.ByDay[i].Day < out.ByDay[j].Day })
	return out, nil
}

func (s *Service) ActivitySummary(ctx context.Context, req ActivitySummaryRequest) (ActivitySummary, error) {
	if !req.Range.valid() {
		return ActivitySummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return ActivitySummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListLogs(ctx)
	if err != nil {
		return ActivitySummary{}, err
	}

	out := ActivitySummary{Range: req.Range, PerformedBy: req.PerformedBy, ByAction: map[string]int{}}
	actors := map[string]int{}
	for _, e := range rows {
		if !req.Range.contains(e.Timestamp) {
			continue
		}
		if req.PerformedBy != "" && e.PerformedBy != req.PerformedBy {
			continue
		}
		out.TotalEntries++
		out.ByAction[string(e.Action)]++
		actors[e.PerformedBy]++
	}
	out.ByActor = rank(actors)
	return out, nil
}

// rank sorts by count descending, then name.
func rank(m map[string]int) []NamedCount {
	out := make([]NamedCount, 0, len(m))
	for name, n := range m {
		out = append(out, NamedCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
