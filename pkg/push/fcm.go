package push

import (
	"context"
	"fmt"

	"party-service/internal/domain"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

type fcmSender struct {
	client *messaging.Client
	logger *zap.Logger
}

// NewFCMSender builds a Sender backed by Firebase Cloud Messaging. With an
// empty credentials path the SDK falls back to application default credentials.
func NewFCMSender(ctx context.Context, credentialsFile string, logger *zap.Logger) (Sender, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase init failed: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("messaging client init failed: %w", err)
	}

	logger.Info("fcm sender ready")
	return &fcmSender{client: client, logger: logger}, nil
}

func (s *fcmSender) Send(ctx context.Context, tokens []string, msg *domain.PushMessage) (*Report, error) {
	if len(tokens) == 0 {
		return &Report{}, nil
	}
	if len(tokens) > BatchLimit {
		return nil, fmt.Errorf("batch of %d exceeds limit %d", len(tokens), BatchLimit)
	}

	resp, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	report := &Report{Success: resp.SuccessCount, Failure: resp.FailureCount}
	for i, r := range resp.Responses {
		if r.Success {
			continue
		}
		report.DeadTokens = append(report.DeadTokens, tokens[i])
		if messaging.IsUnregistered(r.Error) {
			continue // routine churn, not worth a log line each
		}
		s.logger.Warn("push send failed",
			zap.Error(r.Error),
			zap.String("type", msg.Data["type"]))
	}
	return report, nil
}
