package services

import (
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/models"
)

// renderMessage builds the subject and body for one recipient. Admin notes
// are internal and never appear here.
func renderMessage(plan NotificationPlan, role RecipientRole) (string, string) {
	target := entityNoun(plan.EntityType)
	if plan.EntityName != "" {
		target = fmt.Sprintf("%s %q", target, plan.EntityName)
	}

	var subject string
	var body strings.Builder

	switch role {
	case RecipientReporter:
		subject = "Update on your report"
		if plan.Status == models.StatusRejected || plan.AdminAction == models.ActionNone {
			fmt.Fprintf(&body, "We reviewed your report about %s and found no violation of our guidelines.", target)
		} else {
			fmt.Fprintf(&body, "Thanks for your report about %s. Our moderators took action: %s.",
				target, strings.ToLower(plan.AdminAction.Effect().Label))
		}
	default:
		subject = ownerSubject(plan.AdminAction)
		switch plan.AdminAction {
		case models.ActionNone:
			fmt.Fprintf(&body, "A report about your %s was reviewed and closed without action.", target)
		case models.ActionWarning:
			fmt.Fprintf(&body, "Your %s received a formal warning.", target)
		case models.ActionContentRemoved:
			fmt.Fprintf(&body, "Your %s was removed for violating our guidelines.", target)
		case models.ActionAccountSuspended:
			fmt.Fprintf(&body, "Your %s has been suspended.", target)
		case models.ActionAccountBanned:
			fmt.Fprintf(&body, "Your %s has been permanently banned.", target)
		}
	}

	if details := strings.TrimSpace(plan.ActionDetails); details != "" {
		body.WriteString("\n\n")
		body.WriteString(details)
	}
	return subject, body.String()
}

func ownerSubject(action models.AdminAction) string {
	switch action {
	case models.ActionWarning:
		return "You received a warning"
	case models.ActionContentRemoved:
		return "Your content was removed"
	case models.ActionAccountSuspended:
		return "Your account was suspended"
	case models.ActionAccountBanned:
		return "Your account was banned"
	default:
		return "A report about you was reviewed"
	}
}

func entityNoun(t models.EntityType) string {
	switch t {
	case models.EntityUser:
		return "profile"
	case models.EntityStartup:
		return "startup"
	case models.EntityChatMessage:
		return "message"
	default:
		return "content"
	}
}
