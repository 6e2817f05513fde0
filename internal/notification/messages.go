package notification

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// message is a rendered notification ready for the outbox.
type message struct {
	Subject  string
	Heading  string
	BodyHTML string
}

func composeRequestSubmitted(link, category string, emergency bool) message {
	heading := "Maintenance request received"
	body := fmt.Sprintf("Your %s maintenance request has been received and is being processed.", humanCategory(category))
	if emergency {
		heading = "Emergency request received"
		body = fmt.Sprintf("Your %s request was classified as an emergency. A response is being arranged immediately.", humanCategory(category))
	}
	return message{
		Subject:  heading,
		Heading:  heading,
		BodyHTML: paragraphs(body, viewLink(link)),
	}
}

func composeRequestApproved(link, category string, auto bool) message {
	body := fmt.Sprintf("Your %s maintenance request has been approved and is now open for provider bids.", humanCategory(category))
	if auto {
		body = fmt.Sprintf("Your %s maintenance request was approved automatically under the property's policy and is now open for provider bids.", humanCategory(category))
	}
	return message{
		Subject:  "Maintenance request approved",
		Heading:  "Request approved",
		BodyHTML: paragraphs(body, viewLink(link)),
	}
}

func composeRequestDenied(link, category, reason string) message {
	return message{
		Subject: "Maintenance request denied",
		Heading: "Request denied",
		BodyHTML: paragraphs(
			fmt.Sprintf("Your %s maintenance request has been denied.", humanCategory(category)),
			"Reason: "+html.EscapeString(reason),
			viewLink(link)),
	}
}

func composeProviderAssigned(link, source string) message {
	body := "You have been assigned to a maintenance request."
	if source == "direct_dispatch" {
		body = "You have been directly dispatched to an emergency maintenance request. Please respond as soon as possible."
	}
	return message{
		Subject:  "New job assignment",
		Heading:  "You have been assigned",
		BodyHTML: paragraphs(body, viewLink(link)),
	}
}

func composeRequestAssignedTenant(link, category string) message {
	return message{
		Subject: "Provider assigned to your request",
		Heading: "Provider assigned",
		BodyHTML: paragraphs(
			fmt.Sprintf("A service provider has been assigned to your %s maintenance request.", humanCategory(category)),
			viewLink(link)),
	}
}

func composeRequestCompleted(link, category string) message {
	return message{
		Subject: "Maintenance request completed",
		Heading: "Work completed",
		BodyHTML: paragraphs(
			fmt.Sprintf("Work on your %s maintenance request has been completed.", humanCategory(category)),
			viewLink(link)),
	}
}

func composeRequestCancelled(link, category, reason string) message {
	body := []string{fmt.Sprintf("The %s maintenance request has been cancelled.", humanCategory(category))}
	if strings.TrimSpace(reason) != "" {
		body = append(body, "Reason: "+html.EscapeString(reason))
	}
	body = append(body, viewLink(link))
	return message{
		Subject:  "Maintenance request cancelled",
		Heading:  "Request cancelled",
		BodyHTML: paragraphs(body...),
	}
}

func composeEmergencyOpened(link, emergencyType string, deadline time.Time) message {
	return message{
		Subject: "Emergency response underway",
		Heading: "Emergency response underway",
		BodyHTML: paragraphs(
			fmt.Sprintf("Your %s emergency has been logged. A response is expected by %s.",
				html.EscapeString(strings.ReplaceAll(emergencyType, "_", " ")),
				deadline.Format("15:04 MST")),
			viewLink(link)),
	}
}

func composeEscalationRaised(link string, level int, deadline time.Time) message {
	return message{
		Subject: fmt.Sprintf("Emergency escalated to level %d", level),
		Heading: fmt.Sprintf("Escalation level %d", level),
		BodyHTML: paragraphs(
			fmt.Sprintf("An emergency maintenance request has gone unanswered and has escalated to level %d. A response is expected by %s.",
				level, deadline.Format("15:04 MST")),
			viewLink(link)),
	}
}

func composeEmergencyResolved(link string, resolutionMinutes int) message {
	return message{
		Subject: "Emergency resolved",
		Heading: "Emergency resolved",
		BodyHTML: paragraphs(
			fmt.Sprintf("The emergency on your maintenance request has been resolved after %d minutes.", resolutionMinutes),
			viewLink(link)),
	}
}

func composePenaltyIssued(penaltyType string, points int) message {
	return message{
		Subject: "A penalty has been recorded on your account",
		Heading: "Penalty recorded",
		BodyHTML: paragraphs(
			fmt.Sprintf("A %s penalty of %d points has been recorded against your provider account. You may appeal this penalty from your dashboard.",
				html.EscapeString(strings.ReplaceAll(penaltyType, "_", " ")), points)),
	}
}

func composeProviderStatusChanged(oldStatus, newStatus string, score float64) message {
	return message{
		Subject: "Your provider standing has changed",
		Heading: "Standing update",
		BodyHTML: paragraphs(
			fmt.Sprintf("Your provider standing changed from %s to %s. Your current reliability score is %.0f.",
				html.EscapeString(oldStatus), html.EscapeString(newStatus), score)),
	}
}

func composeDisputeOpened(link, disputeType string) message {
	return message{
		Subject: "A dispute has been opened",
		Heading: "Dispute opened",
		BodyHTML: paragraphs(
			fmt.Sprintf("A %s dispute has been opened on a maintenance request you are involved in.",
				html.EscapeString(strings.ReplaceAll(disputeType, "_", " "))),
			viewLink(link)),
	}
}

func composeDisputeResolved(link string, compensationCents *int64) message {
	body := []string{"A dispute you are involved in has been resolved."}
	if compensationCents != nil {
		body = append(body, fmt.Sprintf("Compensation of %s was awarded.", formatCurrencyEUR(*compensationCents)))
	}
	body = append(body, viewLink(link))
	return message{
		Subject:  "Dispute resolved",
		Heading:  "Dispute resolved",
		BodyHTML: paragraphs(body...),
	}
}

func humanCategory(category string) string {
	return html.EscapeString(strings.ReplaceAll(category, "_", " "))
}

func viewLink(link string) string {
	return fmt.Sprintf(`<a href="%s">View the request</a>`, html.EscapeString(link))
}

func paragraphs(lines ...string) string {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString("<p>")
		b.WriteString(line)
		b.WriteString("</p>")
	}
	return b.String()
}

func formatCurrencyEUR(cents int64) string {
	return fmt.Sprintf("€%.2f", float64(cents)/100)
}
