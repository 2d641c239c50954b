package mail

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/videotube-api/internal/config"
)

type sendgridSender struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

func NewSendGridSender(cfg *config.Config) Sender {
	return &sendgridSender{
		client: sendgrid.NewSendClient(cfg.SendGridAPIKey),
		from:   sgmail.NewEmail("VideoTube", cfg.MailFrom),
	}
}

func (s *sendgridSender) SendEmail(to, subject, body string) error {
	msg := sgmail.NewSingleEmail(s.from, subject, sgmail.NewEmail("", to), body, body)
	resp, err := s.client.Send(msg)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// NewSender picks the delivery backend named by cfg.MailProvider.
func NewSender(cfg *config.Config) Sender {
	if cfg.MailProvider == "sendgrid" {
		return NewSendGridSender(cfg)
	}
	return NewSMTPSender(cfg)
}
