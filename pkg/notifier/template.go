// pkg/notifier/template.go
package notifier

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
	_ "time/tzdata"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"
)

const (
	displayTimezone = "America/Sao_Paulo"
	timestampLayout = "02/01/2006, 15:04:05"
)

var messageTemplates = map[string]string{
	"deposit.confirmed": "🟢 *DEPÓSITO CONFIRMADO*\n\n" +
		"💰 Valor: R$ {{.Amount}}\n" +
		"👤 Usuário: {{md .UserName}}\n" +
		"🎮 PPPoker ID: {{md .AccountID}}\n" +
		"📊 Status: Confirmado ✅\n" +
		"🕒 Confirmado em: {{.Timestamp}}\n" +
		"🆔 Payment ID: {{md .PaymentID}}",

	"deposit.pending": "🟢 *NOVO DEPÓSITO*\n\n" +
		"💰 Valor: R$ {{.Amount}}\n" +
		"👤 Usuário: {{md .UserName}}\n" +
		"🎮 PPPoker ID: {{md .AccountID}}\n" +
		"📊 Status: Pendente\n" +
		"🕒 Horário: {{.Timestamp}} (Brasília)",

	"deposit.cancelled": "⚪ *DEPÓSITO CANCELADO*\n\n" +
		"💰 Valor: R$ {{.Amount}}\n" +
		"👤 Usuário: {{md .UserName}}\n" +
		"🎮 PPPoker ID: {{md .AccountID}}\n" +
		"🕒 Horário: {{.Timestamp}} (Brasília)",

	"withdrawal": "🔴 *NOVA SOLICITAÇÃO DE SAQUE*\n\n" +
		"💰 Valor: R$ {{.Amount}}\n" +
		"👤 Usuário: {{md .UserName}}\n" +
		"🎮 PPPoker ID: {{md .AccountID}}\n" +
		"🔑 Chave PIX: {{md .PixKey}}\n" +
		"📊 Status: {{.StatusLabel}}\n" +
		"🕒 Horário: {{.Timestamp}} (Brasília)",

	"test": "🧪 *TESTE DE NOTIFICAÇÃO*\n\n" +
		"💰 Valor: R$ {{.Amount}}\n" +
		"👤 Usuário: {{md .UserName}}\n" +
		"🎮 PPPoker ID: {{md .AccountID}}\n" +
		"🕒 Horário: {{.Timestamp}} (Brasília)",
}

// Renderer turns a job into the pt-BR message shared by every channel.
type Renderer struct {
	templates map[string]*template.Template
	location  *time.Location
	now       func() time.Time
}

func NewRenderer() (*Renderer, error) {
	loc, err := time.LoadLocation(displayTimezone)
	if err != nil {
		loc = time.FixedZone("BRT", -3*60*60)
	}

	templates := make(map[string]*template.Template, len(messageTemplates))
	for key, text := range messageTemplates {
		tmpl, err := template.New(key).Funcs(template.FuncMap{"md": EscapeMarkdown}).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", key, err)
		}
		templates[key] = tmpl
	}

	return &Renderer{templates: templates, location: loc, now: time.Now}, nil
}

type messageData struct {
	Amount      string
	UserName    string
	AccountID   string
	PixKey      string
	PaymentID   string
	StatusLabel string
	Timestamp   string
}

func (r *Renderer) Render(job *domain.NotificationJob) (string, error) {
	key := templateKey(job)
	tmpl, ok := r.templates[key]
	if !ok {
		return "", fmt.Errorf("no template for %s", key)
	}

	data := messageData{
		Amount:      job.Amount.StringFixed(2),
		UserName:    MaskName(job.UserName),
		AccountID:   orDefault(job.PPPokerID, "N/A"),
		PixKey:      orDefault(job.PixKey, "Não informada"),
		PaymentID:   orDefault(job.ProviderPaymentID, "N/A"),
		StatusLabel: statusLabel(job.Status),
		Timestamp:   r.now().In(r.location).Format(timestampLayout),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute %s template: %w", key, err)
	}
	return buf.String(), nil
}

func templateKey(job *domain.NotificationJob) string {
	if job.Test {
		return "test"
	}
	if job.Type == domain.OperationTypeWithdrawal {
		return "withdrawal"
	}
	return string(job.Type) + "." + string(job.Status)
}

func statusLabel(status domain.OperationStatus) string {
	switch status {
	case domain.OperationStatusConfirmed:
		return "Confirmado"
	case domain.OperationStatusCancelled:
		return "Cancelado"
	default:
		return "Pendente"
	}
}

// MaskName keeps the first name and reduces the rest to initials: "Maria Silva" -> "Maria S.".
func MaskName(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "Usuário"
	}
	masked := []string{parts[0]}
	for _, p := range parts[1:] {
		r := []rune(p)
		masked = append(masked, strings.ToUpper(string(r[0]))+".")
	}
	return strings.Join(masked, " ")
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "[", "\\[", "`", "\\`")

// EscapeMarkdown escapes the characters Telegram's legacy Markdown treats as entities.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
