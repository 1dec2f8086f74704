package notifier

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"LuminCredit/internal/model"
	"LuminCredit/internal/store"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func escapeHTML(s string) string { return html.EscapeString(s) }

func stripTags(s string) string { return html.UnescapeString(tagPattern.ReplaceAllString(s, "")) }

// Band names the score range a score falls in.
func Band(score int) string {
	switch {
	case score >= 750:
		return "Excellent"
	case score >= 650:
		return "Good"
	case score >= 550:
		return "Fair"
	default:
		return "Poor"
	}
}

// FormatScoreReport formats a scoring run for chat or mail.
func FormatScoreReport(report *model.ScoreReport, alerts []model.Alert) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Credit score</b> | %s\n\n", escapeHTML(report.Username)))
	b.WriteString(fmt.Sprintf("Score: <b>%d</b> (%s)\n", report.Score, Band(report.Score)))
	b.WriteString(fmt.Sprintf("Provisional: %d | Weights: %s\n", report.ProvisionalScore, report.WeightsSource))

	if n := len(report.History); n > 0 {
		first := report.History[0]
		b.WriteString(fmt.Sprintf("12-month change: %+d since %s\n", report.Score-first.Score, first.Month))
	}

	if moves := report.ScoreHistory.ScoreMovements; len(moves) > 0 {
		b.WriteString("\n📈 <b>Recent movements:</b>\n")
		for i, m := range moves {
			if i == 5 {
				b.WriteString(fmt.Sprintf("  … %d more\n", len(moves)-5))
				break
			}
			b.WriteString(fmt.Sprintf("  %s: %s %s\n", m.Date, m.Change, escapeHTML(m.Reason)))
		}
	}

	if len(alerts) > 0 {
		b.WriteString("\n" + FormatAlerts(alerts))
	}
	return b.String()
}

// FormatAlerts lists alerts with a severity marker.
func FormatAlerts(alerts []model.Alert) string {
	var b strings.Builder
	b.WriteString("⚠️ <b>Alerts:</b>\n")
	for _, a := range alerts {
		b.WriteString(fmt.Sprintf("  %s [%s] %s\n", severityIcon(a.Severity), a.Type, escapeHTML(a.Message)))
	}
	return b.String()
}

func severityIcon(s model.Severity) string {
	switch s {
	case model.SeverityHigh:
		return "🔴"
	case model.SeverityMedium:
		return "🟠"
	default:
		return "⚪"
	}
}

// DigestEntry is one user's line in the periodic digest.
type DigestEntry struct {
	Username   string
	Score      int
	HighAlerts int
}

// FormatDigest summarizes scores by band.
func FormatDigest(entries []DigestEntry, at time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📅 <b>Score digest</b> | %s\n\n", at.Format("2006-01-02")))
	if len(entries) == 0 {
		b.WriteString("No users scored.\n")
		return b.String()
	}

	order := []string{"Excellent", "Good", "Fair", "Poor"}
	bands := make(map[string][]DigestEntry, len(order))
	sum, flagged := 0, 0
	for _, e := range entries {
		bands[Band(e.Score)] = append(bands[Band(e.Score)], e)
		sum += e.Score
		if e.HighAlerts > 0 {
			flagged++
		}
	}
	for _, band := range order {
		group := bands[band]
		if len(group) == 0 {
			continue
		}
		names := make([]string, len(group))
		for i, e := range group {
			names[i] = fmt.Sprintf("%s (%d)", escapeHTML(e.Username), e.Score)
		}
		b.WriteString(fmt.Sprintf("<b>%s</b>: %s\n", band, strings.Join(names, ", ")))
	}
	b.WriteString(fmt.Sprintf("\nAverage: %d across %d users\n", sum/len(entries), len(entries)))
	if flagged > 0 {
		b.WriteString(fmt.Sprintf("Users with high-severity alerts: %d\n", flagged))
	}
	return b.String()
}

// FormatUserList formats the user listing for the /users command.
func FormatUserList(users []store.UserSummary) string {
	if len(users) == 0 {
		return "No users loaded."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("👥 <b>Users</b> (%d)\n\n", len(users)))
	for _, u := range users {
		b.WriteString(fmt.Sprintf("• %s: %s\n", escapeHTML(u.Username), escapeHTML(u.Type)))
	}
	return b.String()
}

// HelpText lists the supported chat commands.
const HelpText = "Available commands:\n• /users\n• /score &lt;username&gt;\n• /sweep"
