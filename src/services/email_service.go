package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/navrlluis/crypto-tax/src/config"
	"github.com/navrlluis/crypto-tax/src/logger"
	"github.com/navrlluis/crypto-tax/src/models"
)

func NewEmailService() EmailService {
	if config.Cfg == nil {
		slog.Error("Configuration (config.Cfg) is nil. Email service will default to mock.")
		return &MockEmailService{}
	}

	provider := strings.ToLower(config.Cfg.EmailServiceProvider)
	logger.L.Info("Initializing email service", "provider", provider)

	switch provider {
	case "mailgun":
		if config.Cfg.MailgunDomain == "" || config.Cfg.MailgunPrivateAPIKey == "" || config.Cfg.SenderEmail == "" {
			logger.L.Warn("Mailgun configuration incomplete (Domain, API Key, or SenderEmail missing). Falling back to MockEmailService.")
			return &MockEmailService{}
		}
		mg := mailgun.NewMailgun(config.Cfg.MailgunDomain, config.Cfg.MailgunPrivateAPIKey)
		logger.L.Info("Mailgun client initialized", "domain", config.Cfg.MailgunDomain)
		return &MailgunEmailService{
			mg:          mg,
			senderEmail: config.Cfg.SenderEmail,
			senderName:  config.Cfg.SenderName,
		}
	case "smtp":
		if config.Cfg.SMTPServer == "" || config.Cfg.SMTPUser == "" || config.Cfg.SMTPPassword == "" || config.Cfg.SenderEmail == "" {
			logger.L.Warn("SMTP configuration incomplete. Falling back to MockEmailService.")
			return &MockEmailService{}
		}
		return &SMTPEmailService{
			SMTPServer:   config.Cfg.SMTPServer,
			SMTPPort:     config.Cfg.SMTPPort,
			SMTPUser:     config.Cfg.SMTPUser,
			SMTPPassword: config.Cfg.SMTPPassword,
			SenderEmail:  config.Cfg.SenderEmail,
		}
	default:
		logger.L.Info("Defaulting to MockEmailService.")
		return &MockEmailService{}
	}
}

const summaryReportSubject = "Your Crypto Tax Summary"

func summaryReportPlainText(filerName string, summary models.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", filerName)
	b.WriteString("Here is the summary of your crypto tax calculation:\n\n")
	fmt.Fprintf(&b, "  Realized gains:     %.2f EUR\n", summary.Gains)
	fmt.Fprintf(&b, "  Realized losses:    %.2f EUR\n", summary.Losses)
	fmt.Fprintf(&b, "  Net position:       %.2f EUR\n", summary.NetPosition)
	fmt.Fprintf(&b, "  Staking income:     %.2f EUR\n", summary.StakingIncome)
	fmt.Fprintf(&b, "  Estimated tax:      %.2f EUR\n", summary.EstimatedTaxLiability)
	fmt.Fprintf(&b, "  Transactions:       %d\n", summary.TotalTransactions)
	if len(summary.Errors) > 0 {
		b.WriteString("\nDiagnostics:\n")
		for _, e := range summary.Errors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}
	b.WriteString("\nThis is an estimate, not tax advice.\n")
	return b.String()
}

func summaryReportHTML(filerName string, summary models.Summary) string {
	rows := fmt.Sprintf(`
			<tr><td>Realized gains</td><td align="right">%.2f EUR</td></tr>
			<tr><td>Realized losses</td><td align="right">%.2f EUR</td></tr>
			<tr><td>Net position</td><td align="right">%.2f EUR</td></tr>
			<tr><td>Staking income</td><td align="right">%.2f EUR</td></tr>
			<tr><td>Estimated tax</td><td align="right">%.2f EUR</td></tr>
			<tr><td>Transactions</td><td align="right">%d</td></tr>`,
		summary.Gains, summary.Losses, summary.NetPosition,
		summary.StakingIncome, summary.EstimatedTaxLiability, summary.TotalTransactions)

	diagnostics := ""
	if len(summary.Errors) > 0 {
		items := ""
		for _, e := range summary.Errors {
			items += fmt.Sprintf("<li>%s</li>", e)
		}
		diagnostics = fmt.Sprintf("<p>Diagnostics:</p><ul>%s</ul>", items)
	}

	return fmt.Sprintf(`
	<html>
		<body style="font-family: Arial, sans-serif; line-height: 1.6;">
			<p>Hi %s,</p>
			<p>Here is the summary of your crypto tax calculation:</p>
			<table cellpadding="6" style="border-collapse: collapse;">%s
			</table>
			%s
			<p>This is an estimate, not tax advice.</p>
		</body>
	</html>`, filerName, rows, diagnostics)
}

type SMTPEmailService struct {
	SMTPServer   string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SenderEmail  string
}

func (s *SMTPEmailService) SendSummaryReport(toEmail, filerName string, summary models.Summary) error {
	from := s.SenderEmail
	to := []string{toEmail}
	body := summaryReportPlainText(filerName, summary)

	header := make(map[string]string)
	header["From"] = from
	header["To"] = toEmail
	header["Subject"] = summaryReportSubject
	header["MIME-version"] = "1.0"
	header["Content-Type"] = "text/plain; charset=\"UTF-8\""
	message := ""
	for k, v := range header {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}
	message += "\r\n" + body
	auth := smtp.PlainAuth("", s.SMTPUser, s.SMTPPassword, s.SMTPServer)
	addr := fmt.Sprintf("%s:%d", s.SMTPServer, s.SMTPPort)
	err := smtp.SendMail(addr, auth, from, to, []byte(message))
	if err != nil {
		logger.L.Error("Failed to send summary report via SMTP", "error", err, "to", toEmail)
		return fmt.Errorf("failed to send summary report via SMTP: %w", err)
	}
	logger.L.Info("Summary report sent successfully via SMTP", "to", toEmail)
	return nil
}

type MailgunEmailService struct {
	mg          mailgun.Mailgun
	senderEmail string
	senderName  string
}

func (s *MailgunEmailService) SendSummaryReport(toEmail, filerName string, summary models.Summary) error {
	from := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)

	message := s.mg.NewMessage(from, summaryReportSubject, summaryReportPlainText(filerName, summary), toEmail)
	message.SetHtml(summaryReportHTML(filerName, summary))
	message.AddTag("tax-summary")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()

	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send summary report via Mailgun", "error", err, "to", toEmail, "mailgunResp", resp, "mailgunId", id)
		return fmt.Errorf("mailgun send failed: %w. Response: %s", err, resp)
	}
	logger.L.Info("Summary report sent successfully via Mailgun", "to", toEmail, "id", id, "mailgunResp", resp)
	return nil
}

type MockEmailService struct{}

func (m *MockEmailService) SendSummaryReport(toEmail, filerName string, summary models.Summary) error {
	logger.L.Info("MockEmailService: Would send summary report.",
		"to", toEmail, "filerName", filerName,
		"netPosition", summary.NetPosition, "estimatedTax", summary.EstimatedTaxLiability)
	return nil
}
