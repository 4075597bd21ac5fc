package classify

import "time"

// Strategy names how retry delays grow between attempts.
type Strategy string

const (
	BackoffNone        Strategy = "none"
	BackoffFixed       Strategy = "fixed"
	BackoffExponential Strategy = "exponential"
)

// Policy describes whether and how a kind may be retried. The table below is
// the single source of retry truth; no retry decisions live anywhere else.
type Policy struct {
	Retryable  bool
	MaxRetries int
	Backoff    Strategy
}

var policies = map[Kind]Policy{
	KindTokenExpired:         {Retryable: true, MaxRetries: 1, Backoff: BackoffNone},
	KindInvalidCredentials:   {Retryable: false},
	KindPermissionDenied:     {Retryable: false},
	KindVerificationRequired: {Retryable: false},
	KindRateLimit:            {Retryable: true, MaxRetries: 3, Backoff: BackoffFixed},
	KindServerError:          {Retryable: false},
	KindNetworkError:         {Retryable: true, MaxRetries: 3, Backoff: BackoffExponential},
	KindInvalidEmail:         {Retryable: false},
	KindFileTooLarge:         {Retryable: false},
	KindMissingField:         {Retryable: false},
	KindQuotaExceeded:        {Retryable: false},
	KindUnknown:              {Retryable: false},
}

// PolicyFor returns the recovery policy for a kind.
func PolicyFor(k Kind) Policy {
	return policies[k]
}

// FixedRetryDelay is the fallback wait before resending after a rate limit
// when the provider supplies no Retry-After.
const FixedRetryDelay = time.Second

var userMessages = map[Kind]string{
	KindTokenExpired:         "Your session expired.",
	KindInvalidCredentials:   "Sign-in is no longer valid.",
	KindPermissionDenied:     "You don't have permission to send mail with this account.",
	KindVerificationRequired: "The app's access verification is not completed.",
	KindRateLimit:            "Too many messages sent in a short time.",
	KindServerError:          "The mail service reported an internal error.",
	KindNetworkError:         "Could not reach the mail service.",
	KindInvalidEmail:         "The recipient address is not a valid email address.",
	KindFileTooLarge:         "The attachment is too large to send.",
	KindMissingField:         "Required message content is missing.",
	KindQuotaExceeded:        "Local storage is full.",
	KindUnknown:              "Sending failed for an unexpected reason.",
}

var actionableMessages = map[Kind]string{
	KindTokenExpired:         "Sign in again to continue.",
	KindInvalidCredentials:   "Re-authorize the application with your Google account.",
	KindPermissionDenied:     "Grant the gmail.send scope when re-authorizing.",
	KindVerificationRequired: "Complete the OAuth consent screen verification for this app.",
	KindRateLimit:            "Wait a minute before sending again.",
	KindServerError:          "Try again later; the provider is having trouble.",
	KindNetworkError:         "Check your network connection and retry.",
	KindInvalidEmail:         "Correct the address to the local@domain.tld form.",
	KindFileTooLarge:         "Reduce the attachment below 1 MiB.",
	KindMissingField:         "Fill in the subject and body before sending.",
	KindQuotaExceeded:        "Free up local storage or remove the stored attachment.",
	KindUnknown:              "Retry, and check the logs if the problem persists.",
}
