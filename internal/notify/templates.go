// internal/notify/templates.go
package notify

import (
	"fmt"
	"html"
)

const (
	templateApprovalLink      = "approval_link"
	templateApprovalConfirmed = "approval_confirmed"
	templateApprovalRejected  = "approval_rejected"
)

// All interpolated values are user-controlled and escaped before rendering.

func approvalLinkEmail(clientName, approvalLink, amount string) (subject, body string) {
	subject = fmt.Sprintf("Deal Approval Required - %s", amount)
	body = fmt.Sprintf(`
		<h2>Deal Approval Required</h2>
		<p>Hi %s,</p>
		<p>A new deal worth %s is awaiting your approval.</p>
		<p>
			<a href="%s" style="display: inline-block; padding: 10px 20px; background-color: #007bff; color: white; text-decoration: none; border-radius: 4px;">
				Review &amp; Approve Deal
			</a>
		</p>
		<p>This link will expire in 14 days.</p>
		<p>Best regards,<br>Approval Service</p>
	`, html.EscapeString(clientName), html.EscapeString(amount), html.EscapeString(approvalLink))
	return subject, body
}

func approvalConfirmedEmail(clientName, amount, decidedAt string) (subject, body string) {
	subject = fmt.Sprintf("Deal Approved - %s", clientName)
	body = fmt.Sprintf(`
		<h2>Deal Approved</h2>
		<p>The following deal has been approved:</p>
		<ul>
			<li><strong>Client:</strong> %s</li>
			<li><strong>Amount:</strong> %s</li>
			<li><strong>Approved at:</strong> %s</li>
		</ul>
		<p>You can now proceed with invoicing.</p>
		<p>Best regards,<br>Approval Service</p>
	`, html.EscapeString(clientName), html.EscapeString(amount), html.EscapeString(decidedAt))
	return subject, body
}

func approvalRejectedEmail(clientName, amount, decidedAt string) (subject, body string) {
	subject = fmt.Sprintf("Deal Rejected - %s", clientName)
	body = fmt.Sprintf(`
		<h2>Deal Rejected</h2>
		<p>The following deal has been rejected:</p>
		<ul>
			<li><strong>Client:</strong> %s</li>
			<li><strong>Amount:</strong> %s</li>
			<li><strong>Rejected at:</strong> %s</li>
		</ul>
		<p>Please contact the client for more information.</p>
		<p>Best regards,<br>Approval Service</p>
	`, html.EscapeString(clientName), html.EscapeString(amount), html.EscapeString(decidedAt))
	return subject, body
}
