package send_test

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/gmail-sender/internal/classify"
	"github.com/hal9000y/gmail-sender/internal/envelope"
	"github.com/hal9000y/gmail-sender/internal/send"
	"github.com/hal9000y/gmail-sender/internal/template"
)

type transporterMock struct {
	SendFunc func(ctx context.Context, msg *envelope.Message) *send.Result
	calls    int
	lastMsg  *envelope.Message
}

func (m *transporterMock) Send(ctx context.Context, msg *envelope.Message) *send.Result {
	m.calls++
	m.lastMsg = msg
	return m.SendFunc(ctx, msg)
}

type configStoreMock struct {
	LoadFunc func(ctx context.Context) (*template.Config, error)
}

func (m *configStoreMock) Load(ctx context.Context) (*template.Config, error) {
	return m.LoadFunc(ctx)
}

func fixedConfig(cfg *template.Config) *configStoreMock {
	return &configStoreMock{
		LoadFunc: func(_ context.Context) (*template.Config, error) {
			return cfg, nil
		},
	}
}

func TestSendEmailSuccess(t *testing.T) {
	transport := &transporterMock{
		SendFunc: func(_ context.Context, _ *envelope.Message) *send.Result {
			return &send.Result{Success: true, MessageID: "m1"}
		},
	}

	p := send.NewPipeline(transport, fixedConfig(&template.Config{Subject: "Hi", Body: "Hello"}))

	res := p.SendEmail(context.Background(), "user@example.com")
	require.True(t, res.Success)
	assert.Equal(t, "m1", res.MessageID)
	assert.Equal(t, "user@example.com", res.Recipient)

	require.Equal(t, 1, transport.calls)
	assert.Equal(t, "user@example.com", transport.lastMsg.To)
	assert.Equal(t, "Hi", transport.lastMsg.Subject)
	assert.Equal(t, "Hello", transport.lastMsg.Body)
	assert.Empty(t, transport.lastMsg.Attachments)
}

func TestSendEmailInvalidRecipient(t *testing.T) {
	cases := []string{
		"bad-address",
		"no-at.example.com",
		"spaces in@example.com",
		"user@nodot",
		"user@@example.com",
		"",
	}

	transport := &transporterMock{
		SendFunc: func(_ context.Context, _ *envelope.Message) *send.Result {
			return &send.Result{Success: true}
		},
	}

	p := send.NewPipeline(transport, fixedConfig(&template.Config{Subject: "Hi", Body: "Hello"}))

	for _, recipient := range cases {
		t.Run(recipient, func(t *testing.T) {
			res := p.SendEmail(context.Background(), recipient)
			require.False(t, res.Success)
			require.NotNil(t, res.Err)
			assert.Equal(t, classify.KindInvalidEmail, res.Err.Kind)
			assert.Equal(t, recipient, res.Recipient)
		})
	}

	assert.Zero(t, transport.calls, "validation failures must not reach the network")
}

func TestSendEmailNotConfigured(t *testing.T) {
	transport := &transporterMock{
		SendFunc: func(_ context.Context, _ *envelope.Message) *send.Result {
			return &send.Result{Success: true}
		},
	}

	store := &configStoreMock{
		LoadFunc: func(_ context.Context) (*template.Config, error) {
			return nil, template.ErrNotConfigured
		},
	}

	p := send.NewPipeline(transport, store)

	res := p.SendEmail(context.Background(), "user@example.com")
	require.False(t, res.Success)
	assert.Equal(t, classify.KindMissingField, res.Err.Kind)
	assert.Zero(t, transport.calls)
}

func TestSendEmailTemplateValidation(t *testing.T) {
	oversized := envelope.Attachment{
		Filename: "big.bin",
		MIMEType: "application/octet-stream",
		Data:     base64.StdEncoding.EncodeToString(make([]byte, envelope.MaxAttachmentBytes+1)),
	}

	cases := []struct {
		name     string
		cfg      *template.Config
		expected classify.Kind
	}{
		{
			name:     "empty subject",
			cfg:      &template.Config{Body: "Hello"},
			expected: classify.KindMissingField,
		},
		{
			name:     "empty body",
			cfg:      &template.Config{Subject: "Hi"},
			expected: classify.KindMissingField,
		},
		{
			name:     "subject too long",
			cfg:      &template.Config{Subject: strings.Repeat("s", 201), Body: "Hello"},
			expected: classify.KindMissingField,
		},
		{
			name:     "body too long",
			cfg:      &template.Config{Subject: "Hi", Body: strings.Repeat("b", 10001)},
			expected: classify.KindMissingField,
		},
		{
			name:     "multibyte subject too long",
			cfg:      &template.Config{Subject: strings.Repeat("é", 201), Body: "Hello"},
			expected: classify.KindMissingField,
		},
		{
			name:     "attachment too large",
			cfg:      &template.Config{Subject: "Hi", Body: "Hello", Attachment: &oversized},
			expected: classify.KindFileTooLarge,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			transport := &transporterMock{
				SendFunc: func(_ context.Context, _ *envelope.Message) *send.Result {
					return &send.Result{Success: true}
				},
			}

			p := send.NewPipeline(transport, fixedConfig(tc.cfg))

			res := p.SendEmail(context.Background(), "user@example.com")
			require.False(t, res.Success)
			require.NotNil(t, res.Err)
			assert.Equal(t, tc.expected, res.Err.Kind)
			assert.Zero(t, transport.calls)
		})
	}
}

func TestSendEmailBoundaryLengthsAccepted(t *testing.T) {
	cases := []struct {
		name string
		cfg  *template.Config
	}{
		{
			name: "ascii at the bounds",
			cfg: &template.Config{
				Subject: strings.Repeat("s", 200),
				Body:    strings.Repeat("b", 10000),
			},
		},
		{
			// Bounds count characters: 200 two-byte runes stay within.
			name: "multibyte at the bounds",
			cfg: &template.Config{
				Subject: strings.Repeat("é", 200),
				Body:    strings.Repeat("ü", 10000),
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			transport := &transporterMock{
				SendFunc: func(_ context.Context, _ *envelope.Message) *send.Result {
					return &send.Result{Success: true}
				},
			}

			p := send.NewPipeline(transport, fixedConfig(tc.cfg))

			res := p.SendEmail(context.Background(), "user@example.com")
			require.True(t, res.Success)
			require.Equal(t, 1, transport.calls)
		})
	}
}

func TestSendEmailAttachmentForwarded(t *testing.T) {
	att := envelope.Attachment{
		Filename: "doc.pdf",
		MIMEType: "application/pdf",
		Data:     base64.StdEncoding.EncodeToString([]byte("content")),
	}

	transport := &transporterMock{
		SendFunc: func(_ context.Context, _ *envelope.Message) *send.Result {
			return &send.Result{Success: true, MessageID: "m5"}
		},
	}

	p := send.NewPipeline(transport, fixedConfig(&template.Config{
		Subject: "Hi", Body: "Hello", Attachment: &att,
	}))

	res := p.SendEmail(context.Background(), "user@example.com")
	require.True(t, res.Success)
	require.Len(t, transport.lastMsg.Attachments, 1)
	assert.Equal(t, att, transport.lastMsg.Attachments[0])
}

func TestSendEmailTransportFailurePassesThrough(t *testing.T) {
	cerr := classify.NewError(classify.KindServerError, nil)
	transport := &transporterMock{
		SendFunc: func(_ context.Context, _ *envelope.Message) *send.Result {
			return &send.Result{Err: cerr}
		},
	}

	p := send.NewPipeline(transport, fixedConfig(&template.Config{Subject: "Hi", Body: "Hello"}))

	res := p.SendEmail(context.Background(), "user@example.com")
	require.False(t, res.Success)
	assert.Same(t, cerr, res.Err)
	assert.Equal(t, "user@example.com", res.Recipient)
}
