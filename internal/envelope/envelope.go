// Package envelope serializes outgoing messages into RFC 822 envelopes ready
// for the Gmail raw-send endpoint.
package envelope

import (
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
)

// MaxAttachmentBytes is the decoded-size ceiling for a single attachment.
// The ceiling is enforced by the caller before Build; the builder trusts its
// input.
const MaxAttachmentBytes = 1 << 20

// Attachment is a file carried inside a message. Data holds the standard
// base64 encoding of the file content.
type Attachment struct {
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

// DecodedSize returns the byte length of the attachment once decoded.
func (a Attachment) DecodedSize() int {
	return base64.RawStdEncoding.DecodedLen(len(strings.TrimRight(a.Data, "=")))
}

// Message is one outgoing mail. Built fresh per send, immutable once built,
// never persisted.
type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Builder produces transport envelopes. The zero boundary source generates a
// fresh random boundary per call; tests inject a fixed one for byte-identical
// output.
type Builder struct {
	newBoundary func() string
}

// New creates a Builder with random multipart boundaries.
func New() *Builder {
	return &Builder{newBoundary: randomBoundary}
}

// NewWithBoundary creates a Builder whose boundaries come from fn.
func NewWithBoundary(fn func() string) *Builder {
	return &Builder{newBoundary: fn}
}

const crlf = "\r\n"

// Build serializes msg into a complete envelope. Deterministic apart from the
// boundary; performs no validation or size checks.
func (b *Builder) Build(msg *Message) string {
	var sb strings.Builder

	sb.WriteString("To: " + msg.To + crlf)
	sb.WriteString("Subject: " + msg.Subject + crlf)
	sb.WriteString("MIME-Version: 1.0" + crlf)

	if len(msg.Attachments) == 0 {
		sb.WriteString("Content-Type: text/plain; charset=UTF-8" + crlf)
		sb.WriteString(crlf)
		sb.WriteString(msg.Body)

		return sb.String()
	}

	boundary := b.newBoundary()

	sb.WriteString(`Content-Type: multipart/mixed; boundary="` + boundary + `"` + crlf)
	sb.WriteString(crlf)

	sb.WriteString("--" + boundary + crlf)
	sb.WriteString("Content-Type: text/plain; charset=UTF-8" + crlf)
	sb.WriteString(crlf)
	sb.WriteString(msg.Body + crlf)

	for _, att := range msg.Attachments {
		sb.WriteString("--" + boundary + crlf)
		sb.WriteString("Content-Type: " + att.MIMEType + crlf)
		sb.WriteString(`Content-Disposition: attachment; filename="` + att.Filename + `"` + crlf)
		sb.WriteString("Content-Transfer-Encoding: base64" + crlf)
		sb.WriteString(crlf)
		sb.WriteString(att.Data + crlf)
	}

	sb.WriteString("--" + boundary + "--")

	return sb.String()
}

// EncodeRaw converts an envelope to the url-safe unpadded base64 form the
// send endpoint expects in its "raw" field.
func EncodeRaw(envelope string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(envelope))
}

// randomBoundary yields a fixed literal plus 32 random hex characters, a
// space large enough that collision with message content is not a practical
// concern.
func randomBoundary() string {
	return "gsmix" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
