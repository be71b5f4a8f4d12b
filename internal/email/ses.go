// Package email delivers transactional mail through Amazon SES.
package email

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Sender sends one plain-text message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SESSender is the production Sender.
type SESSender struct {
	client *ses.Client
	from   string
}

func NewSESSender(awsCfg awssdk.Config, from string) *SESSender {
	return &SESSender{client: ses.NewFromConfig(awsCfg), from: from}
}

func (s *SESSender) Send(ctx context.Context, to, subject, body string) error {
	_, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Body:    &types.Body{Text: &types.Content{Data: awssdk.String(body)}},
			Subject: &types.Content{Data: awssdk.String(subject)},
		},
		Source: awssdk.String(s.from),
	})
	if err != nil {
		return fmt.Errorf("email: send via ses: %w", err)
	}
	return nil
}
