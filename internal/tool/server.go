package tool

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer creates an MCP server exposing the send pipeline.
func NewServer(snd sendSvc, tpl templateStore, ath authSvc) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "gmail-sender", Version: "v1.0.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "send_email",
		Description: "Send the stored template email to a recipient",
	}, NewSendEmail(snd).SendEmail)

	templates := NewTemplates(tpl)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_template",
		Description: "Store the email template (subject, body, optional attachment)",
	}, templates.SetTemplate)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_template",
		Description: "Read back the stored email template",
	}, templates.GetTemplate)

	status := NewAuthStatus(ath)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "auth_status",
		Description: "Report the Google account authorization state",
	}, status.AuthStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sign_out",
		Description: "Discard the stored Google credential",
	}, status.SignOut)

	return server
}
