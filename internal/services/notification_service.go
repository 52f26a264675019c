package services

import (
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/vanbook/backend/internal/config"
	"github.com/vanbook/backend/internal/utils"
)

// NotificationService delivers fully formed SMS and email messages. Delivery
// is fire-and-forget: failures are logged, never surfaced to the request
// that triggered them.
type NotificationService interface {
	SendSMS(to, message string)
	SendEmail(toEmail, toName, subject, plainText, html string)
}

type notificationService struct {
	cfg            *config.Config
	sendgridClient *sendgrid.Client
	twilioClient   *twilio.RestClient
}

func NewNotificationService(cfg *config.Config) NotificationService {
	sgClient := sendgrid.NewSendClient(cfg.SendGridAPIKey)
	twClient := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})
	return &notificationService{
		cfg:            cfg,
		sendgridClient: sgClient,
		twilioClient:   twClient,
	}
}

func (s *notificationService) SendSMS(to, message string) {
	if s.cfg.TwilioAccountSID == "" {
		utils.Logger.Debugf("Twilio not configured; skipping SMS to %s", to)
		return
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.cfg.TwilioFromPhone)
	params.SetBody(message)

	if _, err := s.twilioClient.Api.CreateMessage(params); err != nil {
		utils.Logger.WithError(err).Errorf("Failed to send SMS to %s via Twilio", to)
	}
}

func (s *notificationService) SendEmail(toEmail, toName, subject, plainText, html string) {
	if s.cfg.SendGridAPIKey == "" {
		utils.Logger.Debugf("SendGrid not configured; skipping email to %s", toEmail)
		return
	}

	from := mail.NewEmail(s.cfg.OrganizationName, s.cfg.SendgridFrom)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, html)

	if s.cfg.SendgridSandboxMode {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		message.MailSettings = ms
	}

	if _, err := s.sendgridClient.Send(message); err != nil {
		utils.Logger.WithError(err).Errorf("Failed to send email to %s via SendGrid", toEmail)
	}
}
