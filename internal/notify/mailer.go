// Package notify dispatches admission side-effect email through AWS SES.
//
// Everything here is fire-and-forget: dispatch returns immediately, delivery
// runs on its own goroutine with its own timeout, and failures are logged
// and swallowed. By the time a notification is dispatched the admission is
// already durable, so a lost email never changes an operation's outcome.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	appconfig "github.com/archetype/origin-gateway/internal/config"
	"github.com/archetype/origin-gateway/internal/pkg/logger"
)

// sendAPI is the slice of the SES client the mailer uses; tests substitute
// a recorder.
type sendAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Mailer sends waitlist email via AWS SES using the SDK v2. A Mailer with
// no client (missing credentials) degrades to log-only.
type Mailer struct {
	client   sendAPI
	fromName string
	from     string
	operator string
	timeout  time.Duration
}

// NewMailer creates an SES mailer. Initializes the AWS SDK client if
// credentials are provided; otherwise the mailer only logs what it would
// have sent.
func NewMailer(cfg appconfig.SESConfig) *Mailer {
	m := &Mailer{
		fromName: cfg.FromName,
		from:     cfg.FromEmail,
		operator: cfg.OperatorEmail,
		timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
	if m.timeout == 0 {
		m.timeout = 30 * time.Second
	}

	if cfg.Configured() {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		)
		if err != nil {
			logger.Warn("SES init failed, email disabled", "error", err.Error())
		} else {
			m.client = sesv2.NewFromConfig(awsCfg)
		}
	}

	return m
}

// SendConfirmation dispatches the queue-position confirmation to a new
// registrant. Non-blocking.
func (m *Mailer) SendConfirmation(email string, position int64) {
	subject := "PROTOCOL INITIATED // ARCHETYPE ORIGIN DYNAMICS"
	html, text := confirmationBody(position)
	m.dispatch(email, subject, html, text)
}

// NotifyOperator dispatches a plain-text summary to the operator address.
// Non-blocking; a no-op when no operator address is configured.
func (m *Mailer) NotifyOperator(subject, message string) {
	if m.operator == "" {
		return
	}
	m.dispatch(m.operator, subject, "", message)
}

func (m *Mailer) dispatch(to, subject, html, text string) {
	if m.client == nil {
		logger.Info("email skipped (SES not configured)",
			"to", to, "subject", subject)
		return
	}

	go func() {
		// Detached from the request: the admission response must not wait
		// on SES.
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		if err := m.send(ctx, to, subject, html, text); err != nil {
			logger.Warn("email send failed", "to", to, "error", err.Error())
			return
		}
		logger.Info("email sent", "to", to, "subject", subject)
	}()
}

func (m *Mailer) send(ctx context.Context, to, subject, html, text string) error {
	body := &types.Body{}
	if html != "" {
		body.Html = &types.Content{Data: aws.String(html), Charset: aws.String("UTF-8")}
	}
	if text != "" {
		body.Text = &types.Content{Data: aws.String(text), Charset: aws.String("UTF-8")}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", m.fromName, m.from)),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}
