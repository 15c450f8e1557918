package notify

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
)

var loadDefaultAWSConfig = config.LoadDefaultConfig

// SESAPI is the part of the SES v2 client used by SESSender.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESConfig describes the SES account used by SESSender. Empty credentials
// fall back to the default AWS credential chain; Endpoint overrides the
// service URL (e.g. a local SES emulator).
type SESConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	From            string
}

// SESSender delivers mail through Amazon SES v2.
type SESSender struct {
	client SESAPI
	from   string
	log    logging.Logger
}

// NewSESSender builds an SES v2 client from cfg.
func NewSESSender(ctx context.Context, cfg SESConfig, log logging.Logger) (*SESSender, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewSESSenderWithClient(client, cfg.From, log), nil
}

func NewSESSenderWithClient(client SESAPI, from string, log logging.Logger) *SESSender {
	return &SESSender{client: client, from: from, log: log}
}

func (s *SESSender) Send(ctx context.Context, to, subject, body string) bool {
	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	out, err := s.client.SendEmail(ctx, in)
	if err != nil {
		s.log.Error(ctx, "ses send failed", "to", to, "error", err)
		return false
	}

	s.log.Debug(ctx, "ses message sent", "to", to, "message_id", aws.ToString(out.MessageId))
	return true
}
