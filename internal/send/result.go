package send

import "github.com/hal9000y/gmail-sender/internal/classify"

// Result is the terminal value of one orchestrated send. Failures never
// propagate past the pipeline as raw errors; they arrive here as a populated
// classified error.
type Result struct {
	Success   bool
	MessageID string
	ThreadID  string
	Recipient string
	Err       *classify.Error
}

func success(sent sentAck) *Result {
	return &Result{Success: true, MessageID: sent.id, ThreadID: sent.threadID}
}

func failure(cerr *classify.Error) *Result {
	return &Result{Err: cerr}
}

type sentAck struct {
	id       string
	threadID string
}
