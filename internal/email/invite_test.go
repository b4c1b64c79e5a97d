package email

import (
	"strings"
	"testing"
)

func TestRenderInviteEmail(t *testing.T) {
	subject, html, err := RenderInviteEmail(InviteParams{
		Link:             "https://app.example.com/join?invite_token=tok&email=a%40b.com",
		InvitedUserEmail: "a@b.com",
		Inviter:          "Grace",
		ProductName:      "MarketReady",
		TeamName:         "Acme",
	})
	if err != nil {
		t.Fatalf("RenderInviteEmail: %v", err)
	}
	if subject != "You have been invited to join Acme" {
		t.Fatalf("unexpected subject %q", subject)
	}
	for _, want := range []string{"Grace", "Acme", "MarketReady", "invite_token=tok"} {
		if !strings.Contains(html, want) {
			t.Fatalf("html missing %q", want)
		}
	}
}

func TestRenderInviteEmail_EscapesHTML(t *testing.T) {
	_, html, err := RenderInviteEmail(InviteParams{
		Link:             "https://app.example.com/join",
		InvitedUserEmail: "a@b.com",
		Inviter:          "<script>alert(1)</script>",
		ProductName:      "MarketReady",
		TeamName:         "Acme",
	})
	if err != nil {
		t.Fatalf("RenderInviteEmail: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatal("inviter name must be escaped")
	}
}
