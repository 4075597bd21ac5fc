package tool

// ErrorDetail is the wire shape of a classified failure.
type ErrorDetail struct {
	Kind              string `json:"kind" jsonschema:"classified error kind"`
	Retryable         bool   `json:"retryable" jsonschema:"whether the failure may succeed on retry"`
	UserMessage       string `json:"user_message" jsonschema:"short human-readable failure summary"`
	ActionableMessage string `json:"actionable_message" jsonschema:"what the user can do about it"`
}

// AttachmentInput carries an attachment into the template store.
type AttachmentInput struct {
	Filename string `json:"filename" jsonschema:"display name of the file"`
	MimeType string `json:"mime_type" jsonschema:"MIME type of the file"`
	Data     string `json:"data" jsonschema:"base64-encoded file content"`
}

// AttachmentInfo summarizes a stored attachment without its payload.
type AttachmentInfo struct {
	Filename    string `json:"filename" jsonschema:"display name of the file"`
	MimeType    string `json:"mime_type" jsonschema:"MIME type of the file"`
	DecodedSize int    `json:"decoded_size" jsonschema:"file size in bytes once decoded"`
}
