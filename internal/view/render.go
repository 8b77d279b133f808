// Package view renders stored records for the terminal.
package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/appneural-ajith/ai-email-assistant/internal/ingest"
	"github.com/appneural-ajith/ai-email-assistant/internal/model"
	"github.com/appneural-ajith/ai-email-assistant/internal/reply"
	"github.com/appneural-ajith/ai-email-assistant/internal/theme"
)

const separatorWidth = 72

func separator() string {
	return lipgloss.NewStyle().Foreground(theme.ColorSubtle).Render(strings.Repeat("─", separatorWidth))
}

func field(label, value string) string {
	return fmt.Sprintf("%s %s", theme.LabelStyle.Render(fmt.Sprintf("%-10s", label+":")), theme.ValueStyle.Render(value))
}

func timestamp(ts int64, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(ts, 0).In(loc).Format("2006-01-02 15:04")
}

// Message renders a message with its attachments.
func Message(msg *model.Message, atts []model.Attachment, loc *time.Location) string {
	sections := []string{
		lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render(msg.Subject),
		"",
		field("ID", msg.ID),
		field("Thread", msg.ThreadID),
		field("From", msg.Sender),
		field("To", msg.Recipient),
		field("Date", timestamp(msg.Timestamp, loc)),
	}

	if len(atts) > 0 {
		names := make([]string, 0, len(atts))
		for _, a := range atts {
			names = append(names, fmt.Sprintf("%s (%s, %d bytes)", a.Filename, a.MIMEType, a.Size))
		}
		sections = append(sections, field("Files", strings.Join(names, ", ")))
	}

	sections = append(sections, "", separator(), "")

	body := strings.TrimSpace(msg.Body)
	if body == "" {
		body = theme.HelpStyle.Render("No body")
	}
	sections = append(sections, body)

	return theme.PanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// MessageList renders one line per message, newest first.
func MessageList(msgs []model.Message, loc *time.Location) string {
	if len(msgs) == 0 {
		return theme.HelpStyle.Render("No messages")
	}

	idStyle := lipgloss.NewStyle().Foreground(theme.ColorBlue)
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, fmt.Sprintf("%s  %s  %-28.28s  %s",
			idStyle.Render(m.ID),
			theme.LabelStyle.Render(timestamp(m.Timestamp, loc)),
			m.Sender,
			m.Subject,
		))
	}
	return strings.Join(lines, "\n")
}

// Thread renders the messages of a conversation in order.
func Thread(threadID string, msgs []model.Message, loc *time.Location) string {
	header := theme.HeaderStyle.Render(fmt.Sprintf("Thread %s (%d)", threadID, len(msgs)))
	if len(msgs) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, header, theme.HelpStyle.Render("No messages"))
	}

	authorStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue)
	sections := []string{header, ""}
	for _, m := range msgs {
		sections = append(sections,
			fmt.Sprintf("%s  %s", authorStyle.Render(m.Sender), theme.LabelStyle.Render(timestamp(m.Timestamp, loc))),
			strings.TrimSpace(m.Body),
			"",
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Intent renders a detected meeting, or a hint when there is none.
func Intent(intent *model.SchedulingIntent) string {
	if intent == nil {
		return theme.HelpStyle.Render("No scheduling intent detected")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		theme.MeetingStyle.Render(intent.Title),
		field("Date", intent.Date),
		field("Time", intent.Time),
		field("Zone", intent.TimeZone),
	)
}

// IngestReport summarizes a batch.
func IngestReport(r *ingest.Report) string {
	lines := []string{
		theme.HeaderStyle.Render("Ingest"),
		field("Listed", fmt.Sprint(r.Listed)),
		field("Stored", fmt.Sprint(len(r.Stored))),
	}
	for _, f := range r.Failed {
		lines = append(lines, theme.ErrorStyle.Render(fmt.Sprintf("  %s: %v", f.ID, f.Err)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Draft renders a reply before it is sent.
func Draft(d *reply.Draft) string {
	sections := []string{
		field("To", d.To),
		field("Subject", d.Subject),
	}
	if d.Meeting != nil {
		sections = append(sections, field("Meeting", fmt.Sprintf("%s %s %s", d.Meeting.Date, d.Meeting.Time, d.Meeting.TimeZone)))
	}
	if d.EventLink != "" {
		sections = append(sections, field("Event", d.EventLink))
	}
	sections = append(sections, "", d.Body)
	return theme.PanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// Report wraps an analyzer report in a panel.
func Report(text string) string {
	return theme.PanelStyle.Render(text)
}

// SourceBadge labels output with the configured source type.
func SourceBadge(sourceType string) string {
	return theme.SourceLabelStyle(sourceType).Render(strings.ToUpper(sourceType))
}
