package legacy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"arrest-log/internal/audit"
	"arrest-log/internal/auth"
	"arrest-log/internal/config"
	"arrest-log/internal/rbac"
	"arrest-log/internal/records"
	"arrest-log/internal/settings"
	"arrest-log/internal/users"
	"arrest-log/pkg/logger"

	"github.com/google/uuid"
)

var (
	sha256Hex  = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
	rollingInt = regexp.MustCompile(`^-?[0-9]{1,10}$`)
)

// CredentialMode says how all-digit legacy passwords are read. Older app
// revisions stored plaintext, newer ones the rolling hash, and the two are
// indistinguishable for numeric values.
type CredentialMode string

const (
	// CredentialsAuto keeps numeric values as auth.SchemeLegacyNumeric, which
	// accepts either reading once and is upgraded to bcrypt on login.
	CredentialsAuto      CredentialMode = "auto"
	CredentialsRolling   CredentialMode = "rolling"
	CredentialsPlaintext CredentialMode = "plaintext"
)

func ParseCredentialMode(s string) (CredentialMode, error) {
	switch m := CredentialMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", CredentialsAuto:
		return CredentialsAuto, nil
	case CredentialsRolling, CredentialsPlaintext:
		return m, nil
	default:
		return "", fmt.Errorf("unknown credential scheme %q (want auto, rolling or plaintext)", s)
	}
}

type Importer struct {
	Users    users.Repository
	Records  records.Repository
	Audit    *audit.Service
	Settings settings.Repository
	Hasher   auth.Hasher

	// Credentials defaults to CredentialsAuto.
	Credentials CredentialMode
	Now         func() time.Time
}

type Report struct {
	Users    int      `json:"users"`
	Records  int      `json:"records"`
	Logs     int      `json:"logs"`
	Settings bool     `json:"settings"`
	Skipped  []string `json:"skipped,omitempty"`
}

func (r *Report) skip(format string, args ...any) {
	r.Skipped = append(r.Skipped, fmt.Sprintf(format, args...))
}

// Decode reads an export document.
func Decode(r io.Reader) (Export, error) {
	var e Export
	dec := json.NewDecoder(r)
	if err := dec.Decode(&e); err != nil {
		return Export{}, fmt.Errorf("decode export: %w", err)
	}
	return e, nil
}

// Import writes every slot of e. Rows that cannot be imported are skipped
// and listed in the report; repository failures abort.
func (im *Importer) Import(ctx context.Context, e Export) (Report, error) {
	var rep Report
	now := time.Now().UTC()
	if im.Now != nil {
		now = im.Now()
	}

	if err := im.importUsers(ctx, e.Users, now, &rep); err != nil {
		return rep, err
	}
	if err := im.importRecords(ctx, e.PrisonRecords, now, &rep); err != nil {
		return rep, err
	}
	if err := im.importLogs(ctx, e.ActivityLogs, &rep); err != nil {
		return rep, err
	}
	if e.AppSettings != nil && im.Settings != nil {
		if err := im.importSettings(ctx, *e.AppSettings, now, &rep); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func (im *Importer) importUsers(ctx context.Context, in []User, now time.Time, rep *Report) error {
	for _, lu := range in {
		username := strings.TrimSpace(lu.Username)
		if username == "" {
			rep.skip("user %q: empty username", lu.ID)
			continue
		}
		role, err := rbac.MigrateLegacyRole(lu.Role)
		if err != nil {
			rep.skip("user %s: %v", username, err)
			continue
		}
		cred, err := im.ClassifyCredential(lu.Password)
		if err != nil {
			rep.skip("user %s: %v", username, err)
			continue
		}
		id := lu.ID
		if id == "" {
			id = uuid.NewString()
		}
		created := lu.CreatedAt.Time
		if created.IsZero() {
			created = now
		}
		u := users.User{
			ID:           id,
			Username:     username,
			Credential:   cred,
			Role:         role,
			CreatedAt:    created,
			LastActivity: lu.LastActivity.Ptr(),
		}
		if err := im.Users.Create(ctx, u); err != nil {
			if errors.Is(err, users.ErrDuplicateUsername) {
				rep.skip("user %s: already exists", username)
				continue
			}
			return fmt.Errorf("import user %s: %w", username, err)
		}
		rep.Users++
	}
	return nil
}

// ClassifyCredential maps a stored legacy password to "<scheme>:<material>".
// Already-prefixed values pass through and raw bcrypt is prefixed. Outside
// CredentialsPlaintext, 64 hex chars are a SHA-256 digest and a signed 32-bit
// integer is resolved by the importer's CredentialMode. Anything else is
// plaintext and is hashed now.
func (im *Importer) ClassifyCredential(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("empty credential")
	}
	for _, scheme := range []string{auth.SchemeBcrypt, auth.SchemeLegacyRolling, auth.SchemeLegacySHA256, auth.SchemeLegacyNumeric} {
		if strings.HasPrefix(raw, scheme+":") {
			return raw, nil
		}
	}
	mode := im.Credentials
	if mode == "" {
		mode = CredentialsAuto
	}
	switch {
	case strings.HasPrefix(raw, "$2a$") || strings.HasPrefix(raw, "$2b$") || strings.HasPrefix(raw, "$2y$"):
		return auth.SchemeBcrypt + ":" + raw, nil
	case mode == CredentialsPlaintext:
		return im.Hasher.Hash(raw)
	case sha256Hex.MatchString(raw):
		return auth.SchemeLegacySHA256 + ":" + strings.ToLower(raw), nil
	case rollingInt.MatchString(raw) && fitsInt32(raw):
		if mode == CredentialsRolling {
			return auth.SchemeLegacyRolling + ":" + raw, nil
		}
		return auth.SchemeLegacyNumeric + ":" + raw, nil
	default:
		return im.Hasher.Hash(raw)
	}
}

func fitsInt32(s string) bool {
	var n int64
	if _, err := fmt.Sscan(s, &n); err != nil {
		return false
	}
	return n >= -1<<31 && n <= 1<<31-1
}

func (im *Importer) importRecords(ctx context.Context, in []Record, now time.Time, rep *Report) error {
	// The export is newest first; insert oldest first so order is kept.
	for i := len(in) - 1; i >= 0; i-- {
		lr := in[i]
		if strings.TrimSpace(lr.IndividualName) == "" {
			rep.skip("record %q: empty individualName", lr.ID)
			continue
		}
		id := lr.ID
		if id == "" {
			id = uuid.NewString()
		}
		created := lr.CreatedAt.Time
		if created.IsZero() {
			created = now
		}
		r := records.PrisonRecord{
			ID:                  id,
			FixedID:             lr.FixedID,
			IndividualName:      strings.TrimSpace(lr.IndividualName),
			DateTime:            lr.DateTime,
			Location:            lr.Location,
			Reason:              lr.Reason,
			SeizedItems:         lr.SeizedItems,
			ResponsibleOfficers: lr.ResponsibleOfficers,
			Articles:            lr.Articles,
			Observations:        lr.Observations,
			Screenshots:         lr.Screenshots,
			CreatedBy:           lr.CreatedBy,
			CreatedAt:           created,
			EditedBy:            lr.EditedBy,
			EditedAt:            lr.EditedAt.Ptr(),
			Version:             1,
		}
		if r.Screenshots == nil {
			r.Screenshots = []string{}
		}
		if err := im.Records.Insert(ctx, r); err != nil {
			if errors.Is(err, records.ErrInvalidRecord) {
				rep.skip("record %s: duplicate id", id)
				continue
			}
			return fmt.Errorf("import record %s: %w", id, err)
		}
		rep.Records++
	}
	return nil
}

func (im *Importer) importLogs(ctx context.Context, in []LogEntry, rep *Report) error {
	if im.Audit == nil {
		return nil
	}
	for i := len(in) - 1; i >= 0; i-- {
		ll := in[i]
		e := audit.LogEntry{
			ID:           ll.ID,
			Action:       audit.Action(ll.Action),
			PerformedBy:  ll.PerformedBy,
			TargetUser:   ll.TargetUser,
			TargetRecord: ll.TargetRecord,
			Details:      ll.Details,
			Timestamp:    ll.Timestamp.Time,
		}
		if len(e.TargetRecord) > 0 && string(e.TargetRecord) == "null" {
			e.TargetRecord = nil
		}
		if err := im.Audit.Append(ctx, e); err != nil {
			if errors.Is(err, audit.ErrInvalidEntry) {
				rep.skip("log %q: invalid entry (action %q)", ll.ID, ll.Action)
				continue
			}
			return fmt.Errorf("import log %s: %w", ll.ID, err)
		}
		rep.Logs++
	}
	return nil
}

func (im *Importer) importSettings(ctx context.Context, in Settings, now time.Time, rep *Report) error {
	s := settings.AppSettings{
		WebhookURL:      strings.TrimSpace(in.WebhookURL),
		MessageTemplate: in.MessageTemplate,
		AppName:         in.AppName,
		LogoURL:         in.LogoURL,
		PrimaryColor:    in.PrimaryColor,
		UpdatedBy:       "legacy-import",
		UpdatedAt:       now,
	}
	if s.WebhookURL != "" {
		if err := config.ValidateHTTPURL(s.WebhookURL); err != nil {
			rep.skip("settings: webhookUrl dropped: %v", err)
			s.WebhookURL = ""
		}
	}
	if err := im.Settings.Save(ctx, s); err != nil {
		return fmt.Errorf("import settings: %w", err)
	}
	logger.From(ctx).Info("settings imported")
	rep.Settings = true
	return nil
}
