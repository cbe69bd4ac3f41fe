package settings

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"arrest-log/internal/config"
	"arrest-log/internal/rbac"
	"arrest-log/internal/users"
	"arrest-log/pkg/logger"
)

var (
	ErrForbidden       = errors.New("not allowed to manage settings")
	ErrInvalidSettings = errors.New("invalid settings")
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

type Service struct {
	repo     Repository
	defaults AppSettings
	clock    func() time.Time
}

func NewService(repo Repository, defaults AppSettings) *Service {
	return &Service{repo: repo, defaults: defaults, clock: func() time.Time { return time.Now().UTC() }}
}

// Get returns stored settings, or the defaults when nothing was saved.
// An empty stored template falls back to the default one.
func (s *Service) Get(ctx context.Context) (AppSettings, error) {
	cur, ok, err := s.repo.Load(ctx)
	if err != nil {
		return AppSettings{}, err
	}
	if !ok {
		return s.defaults, nil
	}
	if strings.TrimSpace(cur.MessageTemplate) == "" {
		cur.MessageTemplate = s.defaults.MessageTemplate
	}
	if cur.AppName == "" {
		cur.AppName = s.defaults.AppName
	}
	return cur, nil
}

// Put replaces the settings document.
func (s *Service) Put(ctx context.Context, actor users.User, in AppSettings) (AppSettings, error) {
	if !rbac.CanManageSettings(actor.Role) {
		return AppSettings{}, ErrForbidden
	}
	in.WebhookURL = strings.TrimSpace(in.WebhookURL)
	in.LogoURL = strings.TrimSpace(in.LogoURL)
	in.PrimaryColor = strings.TrimSpace(in.PrimaryColor)
	in.AppName = strings.TrimSpace(in.AppName)

	if in.WebhookURL != "" {
		if err := config.ValidateHTTPURL(in.WebhookURL); err != nil {
			return AppSettings{}, fmt.Errorf("%w: webhookUrl: %v", ErrInvalidSettings, err)
		}
	}
	if in.LogoURL != "" {
		if err := config.ValidateHTTPURL(in.LogoURL); err != nil {
			return AppSettings{}, fmt.Errorf("%w: logoUrl: %v", ErrInvalidSettings, err)
		}
	}
	if in.PrimaryColor != "" && !hexColor.MatchString(in.PrimaryColor) {
		return AppSettings{}, fmt.Errorf("%w: primaryColor must be #rgb or #rrggbb", ErrInvalidSettings)
	}
	if strings.TrimSpace(in.MessageTemplate) == "" {
		in.MessageTemplate = s.defaults.MessageTemplate
	}
	if in.AppName == "" {
		in.AppName = s.defaults.AppName
	}

	in.UpdatedBy = actor.Username
	in.UpdatedAt = s.clock()
	if err := s.repo.Save(ctx, in); err != nil {
		return AppSettings{}, err
	}
	logger.From(ctx).Info("settings updated", "updated_by", actor.Username)
	return in, nil
}
