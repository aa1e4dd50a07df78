// Package notifications delivers in-app alerts and device pushes. The
// Dispatcher is the single entry point services use; delivery failures are
// logged and never surface to the request that triggered them.
package notifications

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
)

// Sender abstracts the push gateway so tests can swap in a recorder.
type Sender interface {
	Send(ctx context.Context, token string, data map[string]string) error
	// SendMulticast pushes to many tokens and returns the subset that failed.
	SendMulticast(ctx context.Context, tokens []string, data map[string]string) ([]string, error)
}

// FCMSender delivers pushes through Firebase Cloud Messaging.
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender initializes the messaging client from ambient credentials.
func NewFCMSender(ctx context.Context) (*FCMSender, error) {
	app, err := firebase.NewApp(ctx, nil)
	if err != nil {
		return nil, err
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, err
	}
	return &FCMSender{client: client}, nil
}

func (s *FCMSender) Send(ctx context.Context, token string, data map[string]string) error {
	_, err := s.client.Send(ctx, &messaging.Message{
		Token: token,
		Data:  data,
	})
	return err
}

func (s *FCMSender) SendMulticast(ctx context.Context, tokens []string, data map[string]string) ([]string, error) {
	resp, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   data,
	})
	if err != nil {
		return tokens, err
	}
	var failed []string
	for i, r := range resp.Responses {
		if !r.Success {
			failed = append(failed, tokens[i])
		}
	}
	return failed, nil
}
