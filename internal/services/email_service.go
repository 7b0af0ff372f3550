package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// ResetMailer dispatches password reset links out of band.
type ResetMailer interface {
	SendResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error
}

// AWSSESEmailService sends emails using AWS SES
type AWSSESEmailService struct {
	sesClient   *ses.Client
	fromAddress string
	baseURL     string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(region, fromAddress, baseURL string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		baseURL:     baseURL,
		logger:      logger,
	}, nil
}

// SendResetEmail sends the password reset link to the account holder.
func (s *AWSSESEmailService) SendResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	resetLink := fmt.Sprintf("%s/redefinir-senha?token=%s", s.baseURL, token)
	validMinutes := int(time.Until(expiresAt).Minutes())

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 4px; }
        .content { padding: 20px 0; }
        .button { display: inline-block; background-color: #0066cc; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
        .warning { background-color: #fff3cd; padding: 10px; border-left: 4px solid #ffc107; margin: 10px 0; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Redefinição de Senha</h1>
        </div>
        <div class="content">
            <p>Olá,</p>
            <p>Recebemos uma solicitação para redefinir a senha da sua conta. Para criar uma nova senha, clique no botão abaixo:</p>
            <p><a href="%s" class="button">Redefinir Senha</a></p>
            <p>Ou copie e cole este link no seu navegador:<br>
            <code>%s</code></p>
            <div class="warning">
                <strong>Aviso de segurança:</strong> este link expira em %d minutos e pode ser usado apenas uma vez.
            </div>
            <p><strong>Não solicitou esta alteração?</strong><br>
            Ignore este e-mail. Sua senha atual continua válida.</p>
        </div>
        <div class="footer">
            <p>Esta é uma mensagem automática. Por favor, não responda a este e-mail.</p>
        </div>
    </div>
</body>
</html>
`, resetLink, resetLink, validMinutes)

	textBody := fmt.Sprintf(`Redefinição de Senha

Recebemos uma solicitação para redefinir a senha da sua conta. Para criar uma nova senha, acesse o link abaixo:

%s

Aviso de segurança: este link expira em %d minutos e pode ser usado apenas uma vez.

Não solicitou esta alteração?
Ignore este e-mail. Sua senha atual continua válida.

Esta é uma mensagem automática. Por favor, não responda a este e-mail.
`, resetLink, validMinutes)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Redefinição de senha"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send reset email via SES", slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("reset email sent", slog.String("message_id", *result.MessageId))

	return nil
}
