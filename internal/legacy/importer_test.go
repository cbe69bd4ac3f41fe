package legacy

import (
	"context"
	"strings"
	"testing"
	"time"

	"arrest-log/internal/audit"
	"arrest-log/internal/auth"
	"arrest-log/internal/config"
	"arrest-log/internal/rbac"
	"arrest-log/internal/records"
	"arrest-log/internal/session"
	"arrest-log/internal/settings"
	"arrest-log/internal/users"

	"golang.org/x/crypto/bcrypt"
)

const exportDoc = `{
  "users": [
    {"id": "1", "username": "alpha", "password": "segredo", "role": "administrador", "createdAt": "2024-01-01T10:00:00.000Z"},
    {"id": "2", "username": "bravo", "password": "96354", "role": "officer", "createdAt": 1704103200000},
    {"id": "3", "username": "charlie", "password": "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", "role": "pendente"},
    {"id": "4", "username": "delta", "password": "x", "role": "pirata"}
  ],
  "currentUser": {"id": "1", "username": "alpha"},
  "prisonRecords": [
    {"id": "r2", "individualName": "Maria", "createdBy": "bravo", "createdAt": "2024-02-02T10:00:00Z", "screenshots": ["https://cdn.example/a.png"]},
    {"id": "r1", "individualName": "João", "createdBy": "alpha", "createdAt": "2024-02-01T10:00:00Z", "editedBy": "bravo", "editedAt": "2024-02-03T10:00:00Z"}
  ],
  "activityLogs": [
    {"id": "l2", "action": "edit", "performedBy": "bravo", "targetRecord": {"id": "r1"}, "timestamp": "2024-02-03T10:00:00Z"},
    {"id": "l1", "action": "create", "performedBy": "alpha", "targetRecord": {"id": "r1"}, "timestamp": "2024-02-01T10:00:00Z"},
    {"id": "l0", "action": "login", "performedBy": "alpha", "timestamp": "2024-01-01T10:00:00Z"}
  ],
  "appSettings": {"webhookUrl": "https://discord.example/api/webhooks/1/x", "messageTemplate": "Preso {individualName}", "appName": "Org"}
}`

func TestImport(t *testing.T) {
	ctx := context.Background()
	e, err := Decode(strings.NewReader(exportDoc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	userRepo := users.NewMemoryRepo()
	recRepo := records.NewMemoryRepo()
	logRepo := audit.NewMemoryRepo()
	setRepo := settings.NewMemoryRepo()
	hasher := auth.Hasher{Cost: bcrypt.MinCost}
	im := &Importer{
		Users:    userRepo,
		Records:  recRepo,
		Audit:    audit.NewService(logRepo),
		Settings: setRepo,
		Hasher:   hasher,
		Now:      func() time.Time { return time.Unix(1710000000, 0).UTC() },
	}

	rep, err := im.Import(ctx, e)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if rep.Users != 3 || rep.Records != 2 || rep.Logs != 2 || !rep.Settings {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if len(rep.Skipped) != 2 {
		t.Fatalf("expected 2 skipped rows (unknown role, unknown action), got %v", rep.Skipped)
	}

	alpha, _ := userRepo.GetByUsername(ctx, "alpha")
	if alpha.Role != rbac.RoleAdmin || hasher.NeedsUpgrade(alpha.Credential) {
		t.Fatalf("plaintext should become bcrypt admin, got %+v", alpha)
	}
	if ok, _ := hasher.Verify(alpha.Credential, "segredo"); !ok {
		t.Fatalf("imported plaintext should verify")
	}

	bravo, _ := userRepo.GetByUsername(ctx, "bravo")
	if bravo.Role != rbac.RoleOficial || !strings.HasPrefix(bravo.Credential, auth.SchemeLegacyNumeric+":") {
		t.Fatalf("unexpected bravo: %+v", bravo)
	}
	if ok, _ := hasher.Verify(bravo.Credential, "abc"); !ok {
		t.Fatalf("numeric credential should verify as a rolling hash")
	}
	if ok, _ := hasher.Verify(bravo.Credential, "96354"); !ok {
		t.Fatalf("numeric credential should verify as plaintext")
	}
	if !bravo.CreatedAt.Equal(time.UnixMilli(1704103200000)) {
		t.Fatalf("unexpected createdAt %v", bravo.CreatedAt)
	}

	charlie, _ := userRepo.GetByUsername(ctx, "charlie")
	if charlie.Role != rbac.RolePending || !strings.HasPrefix(charlie.Credential, auth.SchemeLegacySHA256+":") {
		t.Fatalf("unexpected charlie: %+v", charlie)
	}

	list, _ := recRepo.List(ctx)
	if len(list) != 2 || list[0].ID != "r2" || list[1].ID != "r1" {
		t.Fatalf("expected original order kept, got %+v", list)
	}
	if list[1].EditedAt == nil || list[1].EditedBy != "bravo" {
		t.Fatalf("expected edit stamp kept, got %+v", list[1])
	}

	logs, _ := logRepo.List(ctx, 0)
	if len(logs) != 2 || logs[0].ID != "l2" {
		t.Fatalf("expected newest log first, got %+v", logs)
	}

	s, ok, _ := setRepo.Load(ctx)
	if !ok || s.MessageTemplate != "Preso {individualName}" || s.AppName != "Org" {
		t.Fatalf("unexpected settings: %+v", s)
	}
}

func TestImportSkipsExistingUsers(t *testing.T) {
	ctx := context.Background()
	userRepo := users.NewMemoryRepo()
	_ = userRepo.Create(ctx, users.User{ID: "x", Username: "alpha", Credential: "bcrypt:x", Role: rbac.RoleAdmin})

	im := &Importer{Users: userRepo, Records: records.NewMemoryRepo(), Hasher: auth.Hasher{Cost: bcrypt.MinCost}}
	rep, err := im.Import(ctx, Export{Users: []User{{ID: "1", Username: "alpha", Password: "p", Role: "admin"}}})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if rep.Users != 0 || len(rep.Skipped) != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
}

func TestClassifyCredential(t *testing.T) {
	im := &Importer{Hasher: auth.Hasher{Cost: bcrypt.MinCost}}
	cases := map[string]string{
		"legacy-rolling:12":             "legacy-rolling:12",
		"-1548707530":                   "legacy-numeric:-1548707530",
		"$2a$10$abcdefghijklmnopqrstuv": "bcrypt:$2a$10$abcdefghijklmnopqrstuv",
	}
	for in, want := range cases {
		got, err := im.ClassifyCredential(in)
		if err != nil || got != want {
			t.Fatalf("ClassifyCredential(%q)=%q,%v want %q", in, got, err, want)
		}
	}
	if got, _ := im.ClassifyCredential("99999999999"); !strings.HasPrefix(got, "bcrypt:") {
		t.Fatalf("out-of-range integer should be treated as plaintext, got %q", got)
	}
	if _, err := im.ClassifyCredential(""); err == nil {
		t.Fatalf("expected error for empty credential")
	}
}

func TestClassifyCredentialModes(t *testing.T) {
	rolling := &Importer{Hasher: auth.Hasher{Cost: bcrypt.MinCost}, Credentials: CredentialsRolling}
	if got, _ := rolling.ClassifyCredential("96354"); got != "legacy-rolling:96354" {
		t.Fatalf("rolling mode: got %q", got)
	}

	plain := &Importer{Hasher: auth.Hasher{Cost: bcrypt.MinCost}, Credentials: CredentialsPlaintext}
	got, _ := plain.ClassifyCredential("123456")
	if !strings.HasPrefix(got, "bcrypt:") {
		t.Fatalf("plaintext mode: got %q", got)
	}
	if ok, _ := plain.Hasher.Verify(got, "123456"); !ok {
		t.Fatalf("plaintext mode should hash the digits as the password")
	}

	if _, err := ParseCredentialMode("guess"); err == nil {
		t.Fatalf("expected unknown mode error")
	}
	if m, _ := ParseCredentialMode(""); m != CredentialsAuto {
		t.Fatalf("empty mode should default to auto, got %q", m)
	}
}

func TestImportedNumericPasswordLogsIn(t *testing.T) {
	ctx := context.Background()
	userRepo := users.NewMemoryRepo()
	hasher := auth.Hasher{Cost: bcrypt.MinCost}
	im := &Importer{Users: userRepo, Records: records.NewMemoryRepo(), Hasher: hasher}

	_, err := im.Import(ctx, Export{Users: []User{{ID: "1", Username: "pin", Password: "123456", Role: "oficial"}}})
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	tokens, err := auth.NewManager(config.AuthConfig{JWTSecret: "s", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	svc := auth.NewService(userRepo, session.NewMemoryStore(), tokens, hasher)
	if _, err := svc.Login(ctx, "pin", "123456"); err != nil {
		t.Fatalf("numeric plaintext password should log in: %v", err)
	}

	stored, _ := userRepo.GetByUsername(ctx, "pin")
	if hasher.NeedsUpgrade(stored.Credential) {
		t.Fatalf("expected bcrypt after first login, got %q", stored.Credential)
	}
	if _, err := svc.Login(ctx, "pin", "123456"); err != nil {
		t.Fatalf("second login after upgrade: %v", err)
	}
}
