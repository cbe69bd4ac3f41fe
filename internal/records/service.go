package records

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"arrest-log/internal/audit"
	"arrest-log/internal/rbac"
	"arrest-log/internal/users"
	"arrest-log/pkg/logger"

	"github.com/google/uuid"
)

// Notifier receives newly created records. Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, r PrisonRecord)
}

type Service struct {
	repo     Repository
	audit    *audit.Service
	notifier Notifier
	clock    func() time.Time
}

func NewService(repo Repository, auditSvc *audit.Service, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		audit:    auditSvc,
		notifier: notifier,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// List returns every record, most recent first.
func (s *Service) List(ctx context.Context) ([]PrisonRecord, error) {
	return s.repo.List(ctx)
}

// ListVisible returns what actor may see: everything when the role can view
// all records, otherwise only the actor's own records.
func (s *Service) ListVisible(ctx context.Context, actor users.User) ([]PrisonRecord, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if rbac.CanViewAllRecords(actor.Role) {
		return all, nil
	}
	out := make([]PrisonRecord, 0)
	for _, r := range all {
		if r.CreatedBy == actor.Username {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, actor users.User, in NewRecord) (PrisonRecord, error) {
	if !rbac.CanCreateRecords(actor.Role) {
		return PrisonRecord{}, ErrForbidden
	}
	if err := validateNew(in); err != nil {
		return PrisonRecord{}, err
	}

	r := PrisonRecord{
		ID:                  uuid.NewString(),
		FixedID:             strings.TrimSpace(in.FixedID),
		IndividualName:      strings.TrimSpace(in.IndividualName),
		DateTime:            strings.TrimSpace(in.DateTime),
		Location:            strings.TrimSpace(in.Location),
		Reason:              strings.TrimSpace(in.Reason),
		SeizedItems:         strings.TrimSpace(in.SeizedItems),
		ResponsibleOfficers: strings.TrimSpace(in.ResponsibleOfficers),
		Articles:            strings.TrimSpace(in.Articles),
		Observations:        strings.TrimSpace(in.Observations),
		Screenshots:         cleanScreenshots(in.Screenshots),
		CreatedBy:           actor.Username,
		CreatedAt:           s.clock(),
		Version:             1,
	}
	if err := s.repo.Insert(ctx, r); err != nil {
		return PrisonRecord{}, fmt.Errorf("insert record: %w", err)
	}

	s.log(ctx, audit.ActionCreate, actor.Username, r, "")
	if s.notifier != nil {
		s.notifier.Notify(ctx, r)
	}
	return r, nil
}

// Update applies p to record id. An absent id is not an error: it reports
// updated=false and changes nothing.
func (s *Service) Update(ctx context.Context, actor users.User, id string, p Patch) (PrisonRecord, bool, error) {
	if !rbac.CanEditRecords(actor.Role) {
		return PrisonRecord{}, false, ErrForbidden
	}
	var changed []string
	updated, err := s.repo.Update(ctx, id, func(r *PrisonRecord) error {
		if p.IfVersion != nil && *p.IfVersion != r.Version {
			return ErrVersionConflict
		}
		changed = applyPatch(r, p)
		if strings.TrimSpace(r.IndividualName) == "" {
			return fmt.Errorf("%w: individualName is required", ErrInvalidRecord)
		}
		now := s.clock()
		r.EditedBy = actor.Username
		r.EditedAt = &now
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return PrisonRecord{}, false, nil
	}
	if err != nil {
		return PrisonRecord{}, false, err
	}

	s.log(ctx, audit.ActionEdit, actor.Username, updated, strings.Join(changed, ", "))
	return updated, true, nil
}

// Delete removes record id and returns it; nil when it did not exist.
func (s *Service) Delete(ctx context.Context, actor users.User, id string) (*PrisonRecord, error) {
	if !rbac.CanDeleteRecords(actor.Role) {
		return nil, ErrForbidden
	}
	removed, err := s.repo.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.log(ctx, audit.ActionDelete, actor.Username, removed, "")
	return &removed, nil
}

// ListByIndividual returns records whose name equals name, ignoring case.
func (s *Service) ListByIndividual(ctx context.Context, name string) ([]PrisonRecord, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	key := normalizeName(name)
	out := make([]PrisonRecord, 0)
	for _, r := range all {
		if normalizeName(r.IndividualName) == key {
			out = append(out, r)
		}
	}
	return out, nil
}

// AggregateByIndividual groups records by name (case-insensitive). Groups
// are ordered by count descending, then name. The group carries the name as
// written on its latest record.
func (s *Service) AggregateByIndividual(ctx context.Context) ([]IndividualSummary, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	groups := map[string]*IndividualSummary{}
	order := make([]string, 0)
	for _, r := range all {
		key := normalizeName(r.IndividualName)
		g, ok := groups[key]
		if !ok {
			g = &IndividualSummary{LastRecord: r}
			groups[key] = g
			order = append(order, key)
		}
		g.Count++
		if r.CreatedAt.After(g.LastRecord.CreatedAt) {
			g.LastRecord = r
		}
	}

	out := make([]IndividualSummary, 0, len(order))
	for _, key := range order {
		g := groups[key]
		g.IndividualName = g.LastRecord.IndividualName
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return normalizeName(out[i].IndividualName) < normalizeName(out[j].IndividualName)
	})
	return out, nil
}

func (s *Service) log(ctx context.Context, action audit.Action, actor string, r PrisonRecord, details string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogRecord(ctx, action, actor, r, details); err != nil {
		logger.From(ctx).Warn("audit append failed", "action", action, "record_id", r.ID, "err", err)
	}
}

func validateNew(in NewRecord) error {
	var missing []string
	if strings.TrimSpace(in.IndividualName) == "" {
		missing = append(missing, "individualName")
	}
	if strings.TrimSpace(in.DateTime) == "" {
		missing = append(missing, "dateTime")
	}
	if strings.TrimSpace(in.Location) == "" {
		missing = append(missing, "location")
	}
	if strings.TrimSpace(in.Reason) == "" {
		missing = append(missing, "reason")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrInvalidRecord, strings.Join(missing, ", "))
	}
	return nil
}

func applyPatch(r *PrisonRecord, p Patch) []string {
	var changed []string
	set := func(name string, dst *string, v *string) {
		if v == nil {
			return
		}
		nv := strings.TrimSpace(*v)
		if nv != *dst {
			*dst = nv
			changed = append(changed, name)
		}
	}
	set("fixedId", &r.FixedID, p.FixedID)
	set("individualName", &r.IndividualName, p.IndividualName)
	set("dateTime", &r.DateTime, p.DateTime)
	set("location", &r.Location, p.Location)
	set("reason", &r.Reason, p.Reason)
	set("seizedItems", &r.SeizedItems, p.SeizedItems)
	set("responsibleOfficers", &r.ResponsibleOfficers, p.ResponsibleOfficers)
	set("articles", &r.Articles, p.Articles)
	set("observations", &r.Observations, p.Observations)
	if p.Screenshots != nil {
		r.Screenshots = cleanScreenshots(*p.Screenshots)
		changed = append(changed, "screenshots")
	}
	return changed
}

func cleanScreenshots(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
