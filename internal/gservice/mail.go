// Package gservice wraps the Gmail API client for sending.
package gservice

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const gmailUserID = "me"

// SentMessage is the provider's acknowledgement of an accepted message.
type SentMessage struct {
	ID       string
	ThreadID string
}

// Mail performs raw-message sends against the Gmail endpoint.
type Mail struct{}

// NewMail creates a Mail sender.
func NewMail() *Mail {
	return &Mail{}
}

// SendRaw posts a base64url-encoded envelope with bearer auth. The service
// client is rebuilt per call since the token may change between attempts.
func (m *Mail) SendRaw(ctx context.Context, token, raw string) (*SentMessage, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})

	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("gmail.NewService failed: %w", err)
	}

	msg, err := svc.Users.Messages.Send(gmailUserID, &gmail.Message{Raw: raw}).Do()
	if err != nil {
		return nil, fmt.Errorf("messages.Send failed: %w", err)
	}

	return &SentMessage{ID: msg.Id, ThreadID: msg.ThreadId}, nil
}
