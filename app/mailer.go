package app

import (
	"context"
	"encoding/json"
	"log"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Mailer delivers license keys to users. Delivery is fire-and-forget: a
// failure is logged and never fails the webhook that triggered it.
type Mailer interface {
	SendLicenseKey(ctx context.Context, email, licenseKey, kind string) error
}

// Mail kinds consumed by the email worker templates.
const (
	MailKindNewKey    = "new_key"
	MailKindResendKey = "resend_key"
)

type mailMessage struct {
	Email      string `json:"email"`
	LicenseKey string `json:"license_key"`
	Kind       string `json:"kind"`
}

// QueueMailer enqueues key-delivery messages to SQS for the external email
// worker.
type QueueMailer struct {
	QueueURL string
	client   *sqs.Client
}

func NewQueueMailer(ctx context.Context, queueURL string) (*QueueMailer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return &QueueMailer{
		QueueURL: queueURL,
		client:   sqs.NewFromConfig(awsCfg),
	}, nil
}

func (m *QueueMailer) SendLicenseKey(ctx context.Context, email, licenseKey, kind string) error {
	body, err := json.Marshal(mailMessage{
		Email:      email,
		LicenseKey: licenseKey,
		Kind:       kind,
	})
	if err != nil {
		return err
	}

	_, err = m.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &m.QueueURL,
		MessageBody: aws.String(string(body)),
	})
	return err
}

// LogMailer is the fallback when MAIL_QUEUE_URL is not configured: it logs
// the delivery instead of enqueueing it. Keys are not logged in full.
type LogMailer struct{}

func (LogMailer) SendLicenseKey(_ context.Context, email, licenseKey, kind string) error {
	suffix := licenseKey
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	log.Printf("mail queue not configured; would send %s key ...%s to %s", kind, suffix, email)
	return nil
}
