package discord

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/moorebrett0/climbcoach/internal/backend"
	"github.com/moorebrett0/climbcoach/internal/load"
)

// MaxMessageLen is Discord's limit on message content.
const MaxMessageLen = 2000

// maxListedWorkouts caps the /workouts reply.
const maxListedWorkouts = 10

// acwrBar renders the ratio on a 0-2.0 scale, like ██████░░░░ 1.20
func acwrBar(acwr *float64, width int) string {
	if acwr == nil {
		return strings.Repeat("\u2591", width) + " n/a"
	}
	filled := int(*acwr / 2 * float64(width))
	filled = max(0, min(filled, width))
	return fmt.Sprintf("%s%s %.2f", strings.Repeat("\u2588", filled), strings.Repeat("\u2591", width-filled), *acwr)
}

// zoneColor returns a Discord embed color for the zone.
func zoneColor(z load.Zone) int {
	switch z {
	case load.ZoneOptimal:
		return 0x57F287 // green
	case load.ZoneUndertraining:
		return 0xFEE75C // yellow
	case load.ZoneOvertraining:
		return 0xED4245 // red
	default:
		return 0x99AAB5 // grey
	}
}

func zoneEmoji(z load.Zone) string {
	switch z {
	case load.ZoneOptimal:
		return "\U0001F7E2"
	case load.ZoneUndertraining:
		return "\U0001F7E1"
	case load.ZoneOvertraining:
		return "\U0001F534"
	default:
		return "\u26AA"
	}
}

func formatLoad(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.0f", *v)
}

// LoadEmbed builds a rich embed for /load.
func LoadEmbed(s load.Summary, at time.Time) *discordgo.MessageEmbed {
	stats := fmt.Sprintf(
		"acwr     %s\nacute    %s (7 days)\nchronic  %s (42 days)\nsessions %d this week\navg load %.0f",
		acwrBar(s.ACWR, 10),
		formatLoad(s.AcuteLoad7Day),
		formatLoad(s.ChronicLoad42Day),
		s.RecentSessions7Day,
		s.AverageSessionLoad,
	)

	return &discordgo.MessageEmbed{
		Title:       "Training load",
		Description: fmt.Sprintf("%s %s | max grade %s", zoneEmoji(s.Interpretation), s.Interpretation, s.MaxGradeClimbed),
		Color:       zoneColor(s.Interpretation),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Stats", Value: "```\n" + stats + "\n```", Inline: false},
			{Name: "Recommendation", Value: s.Recommendation, Inline: false},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: load.OptimalRange,
		},
		Timestamp: at.Format(time.RFC3339),
	}
}

// TemplateWorkouts lists saved workouts, newest first as the service returns them.
func TemplateWorkouts(workouts []backend.Workout) string {
	if len(workouts) == 0 {
		return "No saved workouts yet. Ask me to create one!"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Saved workouts** (%d)\n", len(workouts))
	for i, w := range workouts {
		if i == maxListedWorkouts {
			fmt.Fprintf(&b, "...and %d more", len(workouts)-maxListedWorkouts)
			break
		}
		name := w.Name
		if name == "" {
			name = "Unnamed"
		}
		fmt.Fprintf(&b, "\u2022 **%s**", name)
		if len(w.ScheduledDate) >= len("2006-01-02") {
			fmt.Fprintf(&b, " (%s)", w.ScheduledDate[:len("2006-01-02")])
		}
		if n := len(w.Exercises); n > 0 {
			fmt.Fprintf(&b, " \u00B7 %d exercises", n)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func TemplateMorningCheckIn(s load.Summary) string {
	return fmt.Sprintf("\u2600\uFE0F Good morning! %s %s\n%s",
		zoneEmoji(s.Interpretation), s, s.Recommendation)
}

func TemplateMorningNoData() string {
	return "\u2600\uFE0F Good morning! No training sessions logged yet. Log a session and I'll start tracking your load."
}

func TemplateOvertrainingAlert(s load.Summary) string {
	return fmt.Sprintf("\u26A0\uFE0F Your training load is in the overtraining zone.\n%s\n%s", s, s.Recommendation)
}

func TemplateBackInRange(s load.Summary) string {
	return fmt.Sprintf("\u2705 Training load is back in the optimal range. %s", s)
}

func TemplateHelp() string {
	return "**ClimbCoach Commands**\n\n" +
		"`/coach` - Ask a training question\n" +
		"`/load` - Current training load and ACWR\n" +
		"`/workouts` - Your saved workouts\n" +
		"`/help` - This message\n\n" +
		"Or @mention me in this channel with any question!"
}

// SplitMessage cuts text into chunks Discord accepts, preferring line breaks.
func SplitMessage(text string, limit int) []string {
	var chunks []string
	for utf8.RuneCountInString(text) > limit {
		runes := []rune(text)
		cut := limit
		if i := strings.LastIndex(string(runes[:limit]), "\n"); i > 0 {
			cut = utf8.RuneCountInString(string(runes[:limit])[:i])
		}
		chunks = append(chunks, strings.TrimRight(string(runes[:cut]), "\n"))
		text = strings.TrimLeft(string(runes[cut:]), "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
