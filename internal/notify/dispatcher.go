// internal/notify/dispatcher.go
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"loan-verification/internal/common/config"
	verrors "loan-verification/internal/common/errors"
	"loan-verification/internal/common/logger"
	"loan-verification/internal/common/metrics"
	"loan-verification/internal/verification"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// template holds the subject and body for one event kind. Placeholders use
// the {{key}} form and resolve against the dispatch payload.
type template struct {
	Subject string
	Body    string
}

var templates = map[verification.EventKind]template{
	verification.EventFirstStepCompleted: {
		Subject: "Verification started for application {{applicationNumber}}",
		Body: "Dear {{applicantName}},\n\n" +
			"Verification of your loan application {{applicationNumber}} has begun. " +
			"Our officer has confirmed your basic information and will now proceed " +
			"with document and financial checks.\n\n" +
			"Loan Verification Team",
	},
	verification.EventAllVerificationsComplete: {
		Subject: "All verifications complete for application {{applicationNumber}}",
		Body: "Dear {{applicantName}},\n\n" +
			"All verification steps for your loan application {{applicationNumber}} " +
			"are complete. Your application now moves to the approval stage.\n\n" +
			"Loan Verification Team",
	},
}

// Dispatcher implements verification.NotificationDispatcher over SES email
// and SNS SMS. Email goes out for every event kind; SMS only for the final
// completion event. Channel failures surface as NOTIFICATION_SEND_FAILED and
// are the caller's to swallow.
type Dispatcher struct {
	config    config.NotificationConfig
	logger    logger.Logger
	sesClient SESService
	snsClient SNSService
}

func NewDispatcher(cfg config.NotificationConfig, sesClient SESService, snsClient SNSService, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		config:    cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "notify-dispatcher"}),
		sesClient: sesClient,
		snsClient: snsClient,
	}
}

// Dispatch renders the template for the event kind and sends it through the
// enabled channels within the configured timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, applicationID string, kind verification.EventKind, payload map[string]interface{}) error {
	tmpl, exists := templates[kind]
	if !exists {
		return verrors.NewNotificationSendFailedError(string(kind),
			fmt.Errorf("no template for event kind %q", kind))
	}

	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(d.config.Timeout)*time.Millisecond)
		defer cancel()
	}

	notificationID := uuid.New().String()
	subject := renderTemplate(tmpl.Subject, payload)
	body := renderTemplate(tmpl.Body, payload)

	email, _ := payload["applicantEmail"].(string)
	phone, _ := payload["applicantPhone"].(string)

	emailSent := false
	smsSent := false

	if d.config.Email.Enabled && email != "" {
		if err := d.sendEmail(ctx, email, subject, body); err != nil {
			d.logger.Error("email send failed", map[string]interface{}{
				"applicationId":  applicationID,
				"notificationId": notificationID,
				"eventKind":      string(kind),
				"error":          err,
			})
			metrics.NotificationsDispatched.WithLabelValues(string(kind), "failed").Inc()
			return verrors.NewNotificationSendFailedError(string(kind), err)
		}
		emailSent = true
	}

	// SMS is reserved for the terminal milestone.
	if d.config.SMS.Enabled && phone != "" && kind == verification.EventAllVerificationsComplete {
		if err := d.sendSMS(ctx, phone, body); err != nil {
			d.logger.Error("SMS send failed", map[string]interface{}{
				"applicationId":  applicationID,
				"notificationId": notificationID,
				"eventKind":      string(kind),
				"error":          err,
			})
			metrics.NotificationsDispatched.WithLabelValues(string(kind), "failed").Inc()
			return verrors.NewNotificationSendFailedError(string(kind), err)
		}
		smsSent = true
	}

	status := "disabled"
	if emailSent || smsSent {
		status = "sent"
	}
	metrics.NotificationsDispatched.WithLabelValues(string(kind), status).Inc()
	d.logger.Info("notification dispatched", map[string]interface{}{
		"applicationId":  applicationID,
		"notificationId": notificationID,
		"eventKind":      string(kind),
		"status":         status,
		"emailSent":      emailSent,
		"smsSent":        smsSent,
	})
	return nil
}

func (d *Dispatcher) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := d.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(d.config.Email.FromEmail),
	})
	return err
}

func (d *Dispatcher) sendSMS(ctx context.Context, to, message string) error {
	_, err := d.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
}

// renderTemplate substitutes {{key}} placeholders with payload values.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	out := tmpl
	for key, value := range data {
		out = strings.ReplaceAll(out, "{{"+key+"}}", fmt.Sprintf("%v", value))
	}
	return out
}
