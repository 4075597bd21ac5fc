package send

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/hal9000y/gmail-sender/internal/classify"
	"github.com/hal9000y/gmail-sender/internal/envelope"
	"github.com/hal9000y/gmail-sender/internal/template"
)

const (
	maxSubjectLen = 200
	maxBodyLen    = 10000
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type transporter interface {
	Send(ctx context.Context, msg *envelope.Message) *Result
}

type configStore interface {
	Load(ctx context.Context) (*template.Config, error)
}

// Pipeline is the public entry point of the send operation. It is the only
// component that touches both the configuration store and the transport, so
// retry and auth logic stay decoupled from configuration concerns.
type Pipeline struct {
	transport transporter
	templates configStore
}

// NewPipeline creates a Pipeline with an explicit configuration store; there
// is no module-level cached configuration.
func NewPipeline(transport transporter, templates configStore) *Pipeline {
	return &Pipeline{transport: transport, templates: templates}
}

// SendEmail validates the recipient, loads and validates the template, and
// delegates to the transport. Validation failures return before any network
// call is made. The result always carries the recipient for caller context.
func (p *Pipeline) SendEmail(ctx context.Context, recipient string) *Result {
	res := p.sendEmail(ctx, recipient)
	res.Recipient = recipient

	return res
}

func (p *Pipeline) sendEmail(ctx context.Context, recipient string) *Result {
	if !emailRe.MatchString(recipient) {
		return failure(classify.NewError(classify.KindInvalidEmail,
			fmt.Errorf("malformed recipient address %q", recipient)))
	}

	cfg, err := p.templates.Load(ctx)
	if errors.Is(err, template.ErrNotConfigured) {
		return failure(classify.NewError(classify.KindMissingField, err))
	}
	if err != nil {
		return failure(classify.Classify(err))
	}

	if cerr := validateTemplate(cfg); cerr != nil {
		return failure(cerr)
	}

	msg := &envelope.Message{
		To:      recipient,
		Subject: cfg.Subject,
		Body:    cfg.Body,
	}
	if cfg.Attachment != nil {
		msg.Attachments = []envelope.Attachment{*cfg.Attachment}
	}

	return p.transport.Send(ctx, msg)
}

// validateTemplate enforces the pre-network invariants: non-empty bounded
// subject and body, and the attachment size ceiling the builder trusts to
// have been checked.
func validateTemplate(cfg *template.Config) *classify.Error {
	if cfg.Subject == "" || cfg.Body == "" {
		return classify.NewError(classify.KindMissingField,
			errors.New("template subject and body must not be empty"))
	}
	// Bounds are in characters, not bytes; multibyte subjects count per rune.
	if utf8.RuneCountInString(cfg.Subject) > maxSubjectLen {
		return classify.NewError(classify.KindMissingField,
			fmt.Errorf("subject exceeds %d characters", maxSubjectLen))
	}
	if utf8.RuneCountInString(cfg.Body) > maxBodyLen {
		return classify.NewError(classify.KindMissingField,
			fmt.Errorf("body exceeds %d characters", maxBodyLen))
	}

	if cfg.Attachment != nil && cfg.Attachment.DecodedSize() > envelope.MaxAttachmentBytes {
		return classify.NewError(classify.KindFileTooLarge,
			fmt.Errorf("attachment %q exceeds %d bytes decoded",
				cfg.Attachment.Filename, envelope.MaxAttachmentBytes))
	}

	return nil
}
