package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/gmail-sender/internal/envelope"
	"github.com/hal9000y/gmail-sender/internal/template"
)

// SetTemplateRequest replaces the stored message template.
type SetTemplateRequest struct {
	Subject    string           `json:"subject" jsonschema:"the message subject"`
	Body       string           `json:"body" jsonschema:"the plain-text message body"`
	Attachment *AttachmentInput `json:"attachment,omitempty" jsonschema:"optional single attachment"`
}

// SetTemplateResponse acknowledges the save.
type SetTemplateResponse struct {
	Saved bool `json:"saved" jsonschema:"whether the template was stored"`
}

// GetTemplateRequest has no parameters.
type GetTemplateRequest struct{}

// GetTemplateResponse returns the stored template; the attachment payload is
// summarized, not included.
type GetTemplateResponse struct {
	Configured bool            `json:"configured" jsonschema:"whether a template exists"`
	Subject    string          `json:"subject,omitempty" jsonschema:"the stored subject"`
	Body       string          `json:"body,omitempty" jsonschema:"the stored body"`
	Attachment *AttachmentInfo `json:"attachment,omitempty" jsonschema:"stored attachment summary"`
}

type templateStore interface {
	Load(ctx context.Context) (*template.Config, error)
	Save(ctx context.Context, cfg *template.Config) error
}

// NewTemplates creates the template tool handlers.
func NewTemplates(store templateStore) *Templates {
	return &Templates{store: store}
}

// Templates handles set_template and get_template.
type Templates struct {
	store templateStore
}

// SetTemplate stores a new template. Oversized attachments are rejected here
// so they never occupy storage quota only to fail at send time.
func (t *Templates) SetTemplate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SetTemplateRequest,
) (*mcp.CallToolResult, SetTemplateResponse, error) {
	cfg := &template.Config{
		Subject: input.Subject,
		Body:    input.Body,
	}

	if input.Attachment != nil {
		att := envelope.Attachment{
			Filename: input.Attachment.Filename,
			MIMEType: input.Attachment.MimeType,
			Data:     input.Attachment.Data,
		}
		if att.DecodedSize() > envelope.MaxAttachmentBytes {
			return nil, SetTemplateResponse{},
				fmt.Errorf("attachment file too large: limit is %d bytes decoded", envelope.MaxAttachmentBytes)
		}
		cfg.Attachment = &att
	}

	if err := t.store.Save(ctx, cfg); err != nil {
		return nil, SetTemplateResponse{}, fmt.Errorf("store.Save failed: %w", err)
	}

	return nil, SetTemplateResponse{Saved: true}, nil
}

// GetTemplate returns the stored template, or Configured=false when none
// exists yet.
func (t *Templates) GetTemplate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ GetTemplateRequest,
) (*mcp.CallToolResult, GetTemplateResponse, error) {
	cfg, err := t.store.Load(ctx)
	if errors.Is(err, template.ErrNotConfigured) {
		return nil, GetTemplateResponse{}, nil
	}
	if err != nil {
		return nil, GetTemplateResponse{}, fmt.Errorf("store.Load failed: %w", err)
	}

	resp := GetTemplateResponse{
		Configured: true,
		Subject:    cfg.Subject,
		Body:       cfg.Body,
	}
	if cfg.Attachment != nil {
		resp.Attachment = &AttachmentInfo{
			Filename:    cfg.Attachment.Filename,
			MimeType:    cfg.Attachment.MIMEType,
			DecodedSize: cfg.Attachment.DecodedSize(),
		}
	}

	return nil, resp, nil
}
