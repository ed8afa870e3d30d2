package billing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
)

const loginURL = "https://deliveryflow.ai/login"

// Mailer sends subscription lifecycle emails.
type Mailer interface {
	SendWelcome(ctx context.Context, account *ProvisionedAccount, name string, plan Plan) error
	SendCancellation(ctx context.Context, email, name string, plan Plan) error
}

// sesAPI narrows the SES client for tests.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer delivers over Amazon SES.
type SESMailer struct {
	client sesAPI
	from   string
	logger *slog.Logger
}

func NewSESMailer(ctx context.Context, region, from string, logger *slog.Logger) (*SESMailer, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return &SESMailer{client: ses.NewFromConfig(cfg), from: from, logger: logger}, nil
}

// NewSESMailerWithClient is used by tests to inject a stub SES client.
func NewSESMailerWithClient(client sesAPI, from string, logger *slog.Logger) *SESMailer {
	return &SESMailer{client: client, from: from, logger: logger}
}

func (m *SESMailer) SendWelcome(ctx context.Context, account *ProvisionedAccount, name string, plan Plan) error {
	subject := fmt.Sprintf("Bem-vindo ao DeliveryFlow AI - Plano %s! 🚀", plan.DisplayName)
	html := welcomeBody(account, name, plan)
	if err := m.send(ctx, account.Email, subject, html); err != nil {
		return fmt.Errorf("sending welcome email: %w", err)
	}
	m.logger.Info("welcome email sent", "email", account.Email, "plan_type", plan.Type)
	return nil
}

func (m *SESMailer) SendCancellation(ctx context.Context, email, name string, plan Plan) error {
	subject := "Cancelamento da assinatura - DeliveryFlow AI"
	html := cancellationBody(name, plan)
	if err := m.send(ctx, email, subject, html); err != nil {
		return fmt.Errorf("sending cancellation email: %w", err)
	}
	m.logger.Info("cancellation email sent", "email", email, "plan_type", plan.Type)
	return nil
}

func (m *SESMailer) send(ctx context.Context, to, subject, html string) error {
	input := &ses.SendEmailInput{
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Html: &sestypes.Content{Data: aws.String(html)},
			},
		},
		Source: aws.String(m.from),
	}
	_, err := m.client.SendEmail(ctx, input)
	return err
}

func welcomeBody(account *ProvisionedAccount, name string, plan Plan) string {
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h1 style="color: #10B981;">Bem-vindo ao DeliveryFlow AI!</h1>
  <p>Olá %s,</p>
  <p>Sua assinatura do <strong>Plano %s</strong> foi ativada com sucesso!</p>
  <div style="background: #f3f4f6; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3>Seus dados de acesso:</h3>
    <p><strong>Email:</strong> %s</p>
    <p><strong>Senha:</strong> %s</p>
    <p><strong>Plano:</strong> %s</p>
  </div>
  <div style="background: #dbeafe; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3>O que você pode fazer agora:</h3>
    <ul>
      <li>✅ Configurar seu restaurante</li>
      <li>✅ Adicionar produtos ao cardápio</li>
      <li>✅ Configurar taxas de entrega</li>
      <li>✅ Conectar seu WhatsApp</li>
      <li>✅ Começar a vender com IA!</li>
    </ul>
  </div>
  <p>Acesse sua conta em: <a href="%s" style="color: #10B981;">%s</a></p>
  <p><strong>Importante:</strong> Recomendamos que você altere sua senha após o primeiro login.</p>
  <p>Se precisar de ajuda, entre em contato conosco pelo WhatsApp: (11) 99999-9999</p>
  <p>Atenciosamente,<br>Equipe DeliveryFlow AI</p>
</div>`, name, plan.DisplayName, account.Email, account.Password, plan.DisplayName, loginURL, loginURL)
}

func cancellationBody(name string, plan Plan) string {
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h1 style="color: #EF4444;">Assinatura Cancelada</h1>
  <p>Olá %s,</p>
  <p>Sua assinatura do <strong>Plano %s</strong> foi cancelada.</p>
  <p>Seu acesso ao sistema será desativado em breve.</p>
  <p>Se isso foi um erro ou se você gostaria de reativar sua assinatura, entre em contato conosco pelo WhatsApp: (11) 99999-9999</p>
  <p>Atenciosamente,<br>Equipe DeliveryFlow AI</p>
</div>`, name, plan.DisplayName)
}

// LogMailer is used when SES is not configured. It records what would
// have been sent instead of delivering it.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendWelcome(ctx context.Context, account *ProvisionedAccount, name string, plan Plan) error {
	m.logger.Info("welcome email skipped, mailer not configured",
		"email", account.Email, "plan_type", plan.Type)
	return nil
}

func (m *LogMailer) SendCancellation(ctx context.Context, email, name string, plan Plan) error {
	m.logger.Info("cancellation email skipped, mailer not configured",
		"email", email, "plan_type", plan.Type)
	return nil
}
