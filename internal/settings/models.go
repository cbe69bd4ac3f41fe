package settings

import "time"

// AppSettings is the single application-wide settings document.
type AppSettings struct {
	WebhookURL      string    `json:"webhookUrl"`
	MessageTemplate string    `json:"messageTemplate"`
	AppName         string    `json:"appName"`
	LogoURL         string    `json:"logoUrl,omitempty"`
	PrimaryColor    string    `json:"primaryColor,omitempty"`
	UpdatedBy       string    `json:"updatedBy,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt,omitempty"`
}

// Redacted hides the webhook URL from callers that cannot manage settings.
func (s AppSettings) Redacted() AppSettings {
	s.WebhookURL = ""
	return s
}

const DefaultAppName = "Registro de Prisões"

const DefaultPrimaryColor = "#1f2937"

// DefaultMessageTemplate is the notification text used until one is saved.
const DefaultMessageTemplate = "🚨 **NOVA PRISÃO REGISTRADA** 🚨\n\n" +
	"👤 **Indivíduo:** {individualName}\n" +
	"📅 **Data/Hora:** {dateTime}\n" +
	"📍 **Local:** {location}\n" +
	"⚖️ **Motivo:** {reason}\n" +
	"🔫 **Itens Apreendidos:** {seizedItems}\n" +
	"👮 **Oficiais Responsáveis:** {responsibleOfficers}\n" +
	"✍️ **Registrado por:** {createdBy}"

// Defaults builds the fallback settings. webhookURL comes from configuration.
func Defaults(webhookURL string) AppSettings {
	return AppSettings{
		WebhookURL:      webhookURL,
		MessageTemplate: DefaultMessageTemplate,
		AppName:         DefaultAppName,
		PrimaryColor:    DefaultPrimaryColor,
	}
}
