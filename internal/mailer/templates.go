package mailer

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// InvitationMessage собирает письмо-приглашение в квартиру.
func InvitationMessage(to, flatName, inviterName, link string, expiresAt time.Time) Message {
	subject := fmt.Sprintf("You're invited to %s on Roomie", flatName)

	var text strings.Builder
	fmt.Fprintf(&text, "%s invited you to join %q on Roomie.\n\n", inviterName, flatName)
	fmt.Fprintf(&text, "Accept the invitation: %s\n\n", link)
	fmt.Fprintf(&text, "The link expires %s.\n", expiresAt.UTC().Format(time.RFC1123))

	htmlBody := fmt.Sprintf(
		`<p>%s invited you to join <strong>%s</strong> on Roomie.</p>`+
			`<p><a href="%s">Accept the invitation</a></p>`+
			`<p>The link expires %s.</p>`,
		html.EscapeString(inviterName),
		html.EscapeString(flatName),
		html.EscapeString(link),
		expiresAt.UTC().Format(time.RFC1123),
	)

	return Message{
		To:      to,
		Subject: subject,
		Text:    text.String(),
		HTML:    htmlBody,
	}
}
