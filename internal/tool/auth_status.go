package tool

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/gmail-sender/internal/auth"
)

// AuthStatusRequest has no parameters.
type AuthStatusRequest struct{}

// AuthStatusResponse reports the credential manager's lifecycle state.
type AuthStatusResponse struct {
	State         string `json:"state" jsonschema:"credential lifecycle state"`
	Authenticated bool   `json:"authenticated" jsonschema:"whether a credential is currently held"`
}

// SignOutRequest has no parameters.
type SignOutRequest struct{}

// SignOutResponse acknowledges the sign-out.
type SignOutResponse struct {
	SignedOut bool `json:"signed_out" jsonschema:"whether the credential was discarded"`
}

type authSvc interface {
	State() auth.State
	Clear(ctx context.Context)
}

// NewAuthStatus creates the auth tool handlers.
func NewAuthStatus(svc authSvc) *AuthStatus {
	return &AuthStatus{svc: svc}
}

// AuthStatus handles auth_status and sign_out.
type AuthStatus struct {
	svc authSvc
}

func (t *AuthStatus) AuthStatus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ AuthStatusRequest,
) (*mcp.CallToolResult, AuthStatusResponse, error) {
	state := t.svc.State()

	return nil, AuthStatusResponse{
		State:         string(state),
		Authenticated: state == auth.StateAuthenticated,
	}, nil
}

func (t *AuthStatus) SignOut(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ SignOutRequest,
) (*mcp.CallToolResult, SignOutResponse, error) {
	t.svc.Clear(ctx)

	return nil, SignOutResponse{SignedOut: true}, nil
}
