package envelope_test

import (
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/gmail-sender/internal/envelope"
)

func TestBuildPlain(t *testing.T) {
	b := envelope.New()

	got := b.Build(&envelope.Message{
		To:      "user@example.com",
		Subject: "Hi",
		Body:    "Hello",
	})

	expected := "To: user@example.com\r\n" +
		"Subject: Hi\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		"Hello"

	assert.Equal(t, expected, got)
}

func TestBuildDeterministic(t *testing.T) {
	msg := &envelope.Message{
		To:      "user@example.com",
		Subject: "Report",
		Body:    "See attached.",
		Attachments: []envelope.Attachment{
			{Filename: "report.pdf", MIMEType: "application/pdf", Data: base64.StdEncoding.EncodeToString([]byte("pdf-bytes"))},
		},
	}

	b := envelope.NewWithBoundary(func() string { return "fixedboundary123" })

	first := b.Build(msg)
	second := b.Build(msg)
	assert.Equal(t, first, second)

	assert.Contains(t, first, `Content-Type: multipart/mixed; boundary="fixedboundary123"`)
	assert.Contains(t, first, `Content-Disposition: attachment; filename="report.pdf"`)
	assert.Contains(t, first, "Content-Transfer-Encoding: base64")
	assert.True(t, strings.HasSuffix(first, "--fixedboundary123--"))
}

func TestBuildRandomBoundaries(t *testing.T) {
	msg := &envelope.Message{
		To:      "user@example.com",
		Subject: "x",
		Body:    "y",
		Attachments: []envelope.Attachment{
			{Filename: "a.txt", MIMEType: "text/plain", Data: "YQ=="},
		},
	}

	b := envelope.New()

	first := boundaryOf(t, b.Build(msg))
	second := boundaryOf(t, b.Build(msg))

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(first, "gsmix"))
	assert.GreaterOrEqual(t, len(first)-len("gsmix"), 9)
}

// TestAttachmentRoundTrip parses the built envelope with a MIME reader and
// verifies the attachment payload survives verbatim.
func TestAttachmentRoundTrip(t *testing.T) {
	data := base64.StdEncoding.EncodeToString([]byte("original attachment bytes"))

	msg := &envelope.Message{
		To:      "user@example.com",
		Subject: "Round trip",
		Body:    "body text",
		Attachments: []envelope.Attachment{
			{Filename: "blob.bin", MIMEType: "application/octet-stream", Data: data},
		},
	}

	b := envelope.NewWithBoundary(func() string { return "roundtripboundary" })
	built := b.Build(msg)

	_, body, found := strings.Cut(built, "\r\n\r\n")
	require.True(t, found)

	mr := multipart.NewReader(strings.NewReader(body), "roundtripboundary")

	textPart, err := mr.NextPart()
	require.NoError(t, err)
	textContent, err := io.ReadAll(textPart)
	require.NoError(t, err)
	assert.Equal(t, "body text", strings.TrimRight(string(textContent), "\r\n"))

	attPart, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", attPart.Header.Get("Content-Type"))

	_, params, err := mime.ParseMediaType(attPart.Header.Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "blob.bin", params["filename"])

	attContent, err := io.ReadAll(attPart)
	require.NoError(t, err)
	assert.Equal(t, data, strings.TrimRight(string(attContent), "\r\n"))
}

func TestEncodeRaw(t *testing.T) {
	// Input chosen so the standard encoding would contain both + and /.
	raw := envelope.EncodeRaw("\xfb\xff\xbe>>>???")

	assert.NotContains(t, raw, "+")
	assert.NotContains(t, raw, "/")
	assert.NotContains(t, raw, "=")

	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	require.NoError(t, err)
	assert.Equal(t, "\xfb\xff\xbe>>>???", string(decoded))
}

func TestDecodedSize(t *testing.T) {
	payload := make([]byte, 1000)
	att := envelope.Attachment{Data: base64.StdEncoding.EncodeToString(payload)}

	assert.Equal(t, 1000, att.DecodedSize())
}

func boundaryOf(t *testing.T, built string) string {
	t.Helper()

	const marker = `boundary="`
	idx := strings.Index(built, marker)
	require.NotEqual(t, -1, idx)

	rest := built[idx+len(marker):]
	end := strings.Index(rest, `"`)
	require.NotEqual(t, -1, end)

	return rest[:end]
}
