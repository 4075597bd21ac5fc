package tool

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/gmail-sender/internal/send"
)

// SendEmailRequest asks for one send of the stored template to a recipient.
type SendEmailRequest struct {
	Recipient string `json:"recipient" jsonschema:"the recipient email address"`
}

// SendEmailResponse is the normalized outcome of the send.
type SendEmailResponse struct {
	Success   bool         `json:"success" jsonschema:"whether the message was accepted"`
	MessageID string       `json:"message_id,omitempty" jsonschema:"provider message ID"`
	ThreadID  string       `json:"thread_id,omitempty" jsonschema:"provider thread ID"`
	Recipient string       `json:"recipient" jsonschema:"the recipient the send was for"`
	Error     *ErrorDetail `json:"error,omitempty" jsonschema:"failure detail when success is false"`
}

type sendSvc interface {
	SendEmail(ctx context.Context, recipient string) *send.Result
}

// NewSendEmail creates the send_email tool handler.
func NewSendEmail(svc sendSvc) *SendEmail {
	return &SendEmail{svc: svc}
}

// SendEmail handles the send_email tool.
type SendEmail struct {
	svc sendSvc
}

// SendEmail runs one orchestrated send. Failures come back inside the
// response, never as a tool error: the pipeline's normalized result is the
// contract.
func (t *SendEmail) SendEmail(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SendEmailRequest,
) (*mcp.CallToolResult, SendEmailResponse, error) {
	res := t.svc.SendEmail(ctx, input.Recipient)

	resp := SendEmailResponse{
		Success:   res.Success,
		MessageID: res.MessageID,
		ThreadID:  res.ThreadID,
		Recipient: res.Recipient,
	}

	if res.Err != nil {
		resp.Error = &ErrorDetail{
			Kind:              string(res.Err.Kind),
			Retryable:         res.Err.Retryable(),
			UserMessage:       res.Err.UserMessage,
			ActionableMessage: res.Err.ActionableMessage,
		}
	}

	return nil, resp, nil
}
