// Package send contains the retrying transport and the orchestration that
// turns a recipient address into one idempotent send operation.
package send

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hal9000y/gmail-sender/internal/auth"
	"github.com/hal9000y/gmail-sender/internal/classify"
	"github.com/hal9000y/gmail-sender/internal/envelope"
	"github.com/hal9000y/gmail-sender/internal/gservice"
)

// ErrRetriesExhausted tags terminal failures that burned through their
// kind's retry budget.
var ErrRetriesExhausted = errors.New("retries exhausted")

type credentials interface {
	GetValidToken(ctx context.Context) (*auth.Credential, error)
	Refresh(ctx context.Context) (*auth.Credential, error)
}

type mailService interface {
	SendRaw(ctx context.Context, token, raw string) (*gservice.SentMessage, error)
}

// Transport performs the network send and drives recovery: expired token
// refresh-and-resend, rate-limit waits, and bounded exponential backoff for
// transient network failures. Retry budgets come from the classify policy
// table only.
type Transport struct {
	creds   credentials
	svc     mailService
	builder *envelope.Builder
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewTransport creates a Transport over the given collaborators.
func NewTransport(creds credentials, svc mailService, builder *envelope.Builder) *Transport {
	return &Transport{
		creds:   creds,
		svc:     svc,
		builder: builder,
		sleep:   sleepCtx,
	}
}

// Send runs the full send as an explicit bounded loop. Every attempt is a
// complete, independent request: token fetch, envelope build, POST. No
// partial sends exist.
func (t *Transport) Send(ctx context.Context, msg *envelope.Message) *Result {
	retries := make(map[classify.Kind]int)

	for {
		sent, cerr := t.attempt(ctx, msg)
		if cerr == nil {
			return success(sent)
		}

		policy := classify.PolicyFor(cerr.Kind)
		if !policy.Retryable {
			return failure(cerr)
		}

		retries[cerr.Kind]++
		if retries[cerr.Kind] > policy.MaxRetries {
			return failure(classify.NewError(cerr.Kind, fmt.Errorf("%w: %w", ErrRetriesExhausted, cerr)))
		}

		if cerr.Kind == classify.KindTokenExpired {
			if _, err := t.creds.Refresh(ctx); err != nil {
				return failure(classify.Classify(err))
			}
			continue
		}

		if err := t.sleep(ctx, delayFor(policy, cerr, retries[cerr.Kind])); err != nil {
			return failure(classify.Classify(err))
		}
	}
}

func (t *Transport) attempt(ctx context.Context, msg *envelope.Message) (sentAck, *classify.Error) {
	cred, err := t.creds.GetValidToken(ctx)
	if err != nil {
		return sentAck{}, classify.Classify(err)
	}

	raw := envelope.EncodeRaw(t.builder.Build(msg))

	sent, err := t.svc.SendRaw(ctx, cred.Token, raw)
	if err != nil {
		return sentAck{}, classify.Classify(err)
	}

	return sentAck{id: sent.ID, threadID: sent.ThreadID}, nil
}

// delayFor computes the wait before retry n (1-based). Rate limits honor the
// provider's Retry-After when present; the exponential path waits 2^n
// seconds.
func delayFor(policy classify.Policy, cerr *classify.Error, attempt int) time.Duration {
	switch policy.Backoff {
	case classify.BackoffFixed:
		if cerr.RetryAfter > 0 {
			return cerr.RetryAfter
		}
		return classify.FixedRetryDelay
	case classify.BackoffExponential:
		return time.Duration(1<<attempt) * time.Second
	default:
		return 0
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send abandoned during backoff: %w", ctx.Err())
	}
}
