package email

import (
	"bytes"
	"fmt"
	"html/template"
)

// InviteParams feeds the team invitation email.
type InviteParams struct {
	Link             string
	InvitedUserEmail string
	Inviter          string
	ProductName      string
	TeamName         string
}

var inviteTemplate = template.Must(template.New("invite").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: sans-serif; color: #111;">
    <h2>Join {{.TeamName}} on {{.ProductName}}</h2>
    <p>Hi {{.InvitedUserEmail}},</p>
    <p>{{.Inviter}} has invited you to join the team <strong>{{.TeamName}}</strong> on {{.ProductName}}.</p>
    <p>
      <a href="{{.Link}}" style="display:inline-block;padding:10px 20px;background:#111;color:#fff;border-radius:4px;text-decoration:none;">
        Accept invitation
      </a>
    </p>
    <p>This invitation expires in 7 days. If you were not expecting it you can safely ignore this email.</p>
  </body>
</html>`))

// RenderInviteEmail renders the subject and HTML body for an invitation.
func RenderInviteEmail(params InviteParams) (subject, html string, err error) {
	var buf bytes.Buffer
	if err := inviteTemplate.Execute(&buf, params); err != nil {
		return "", "", err
	}
	subject = fmt.Sprintf("You have been invited to join %s", params.TeamName)
	return subject, buf.String(), nil
}
