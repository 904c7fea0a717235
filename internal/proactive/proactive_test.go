package proactive

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/moorebrett0/climbcoach/internal/backend"
	"github.com/moorebrett0/climbcoach/internal/load"
	"github.com/moorebrett0/climbcoach/internal/monitor"
)

type recorder struct {
	channel   string
	messages  []string
	embeds    []*discordgo.MessageEmbed
	presences []load.Zone
}

func (r *recorder) SendMessage(_, text string)    { r.messages = append(r.messages, text) }
func (r *recorder) UpdatePresence(zone load.Zone) { r.presences = append(r.presences, zone) }
func (r *recorder) ChannelID() string             { return r.channel }

func (r *recorder) SendEmbed(_ string, embed *discordgo.MessageEmbed) {
	r.embeds = append(r.embeds, embed)
}

type staticReadings struct{ r monitor.Reading }

func (s *staticReadings) Latest() monitor.Reading { return s.r }

func reading(acwr float64) monitor.Reading {
	s := load.Summarize(&backend.TrainingLoad{CurrentACWR: &acwr})
	return monitor.Reading{Summary: s, Zone: s.Interpretation, Available: true}
}

func newScheduler(rec *recorder, readings *staticReadings, at *time.Time) *Scheduler {
	s := New(rec, readings, Config{CheckInterval: time.Minute, MorningHour: 8, AlertCooldown: 12 * time.Hour})
	s.now = func() time.Time { return *at }
	return s
}

func TestOvertrainingAlertCooldown(t *testing.T) {
	rec := &recorder{channel: "c1"}
	readings := &staticReadings{r: reading(1.8)}
	at := time.Date(2025, 3, 3, 14, 0, 0, 0, time.UTC)
	s := newScheduler(rec, readings, &at)

	s.check()
	if len(rec.messages) != 1 || !strings.Contains(rec.messages[0], "overtraining zone") {
		t.Fatalf("expected one alert, got %q", rec.messages)
	}
	if len(rec.embeds) != 1 || rec.embeds[0].Title != "Training load" {
		t.Fatalf("expected the load embed with the alert, got %v", rec.embeds)
	}

	at = at.Add(time.Hour)
	s.check()
	if len(rec.messages) != 1 {
		t.Errorf("alert repeated inside cooldown: %q", rec.messages)
	}

	at = at.Add(12 * time.Hour)
	s.check()
	if len(rec.messages) != 2 {
		t.Errorf("expected a second alert after cooldown, got %d messages", len(rec.messages))
	}
	if len(rec.embeds) != 2 {
		t.Errorf("expected an embed per alert, got %d", len(rec.embeds))
	}
	if len(rec.presences) != 1 || rec.presences[0] != load.ZoneOvertraining {
		t.Errorf("presence should change once, got %v", rec.presences)
	}
}

func TestBackInRange(t *testing.T) {
	rec := &recorder{channel: "c1"}
	readings := &staticReadings{r: reading(1.6)}
	at := time.Date(2025, 3, 3, 14, 0, 0, 0, time.UTC)
	s := newScheduler(rec, readings, &at)

	s.check()
	readings.r = reading(1.2)
	s.check()
	if len(rec.messages) != 2 || !strings.Contains(rec.messages[1], "back in the optimal range") {
		t.Errorf("expected recovery notice, got %q", rec.messages)
	}

	s.check()
	if len(rec.messages) != 2 {
		t.Errorf("recovery notice should be sent once, got %q", rec.messages)
	}
}

func TestMorningCheckIn(t *testing.T) {
	rec := &recorder{channel: "c1"}
	readings := &staticReadings{r: reading(1.0)}
	at := time.Date(2025, 3, 3, 7, 59, 0, 0, time.UTC)
	s := newScheduler(rec, readings, &at)

	s.check()
	if len(rec.messages) != 0 {
		t.Fatalf("no message expected before the morning hour, got %q", rec.messages)
	}

	at = at.Add(2 * time.Minute)
	s.check()
	at = at.Add(30 * time.Minute)
	s.check()
	if len(rec.messages) != 1 || !strings.Contains(rec.messages[0], "Good morning") {
		t.Fatalf("expected exactly one check-in, got %q", rec.messages)
	}

	at = at.Add(24 * time.Hour)
	readings.r = monitor.Reading{Zone: load.ZoneUnknown}
	s.check()
	if len(rec.messages) != 2 || !strings.Contains(rec.messages[1], "No training sessions logged") {
		t.Errorf("expected no-data check-in, got %q", rec.messages)
	}
}

func TestFailedPollIsIgnored(t *testing.T) {
	rec := &recorder{channel: "c1"}
	readings := &staticReadings{r: monitor.Reading{Zone: load.ZoneUnknown, Err: errors.New("down")}}
	at := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	s := newScheduler(rec, readings, &at)

	s.check()
	if len(rec.messages) != 0 || len(rec.presences) != 0 {
		t.Errorf("failed poll should not trigger anything: %q %v", rec.messages, rec.presences)
	}
}

func TestNoChannel(t *testing.T) {
	rec := &recorder{}
	readings := &staticReadings{r: reading(2.0)}
	at := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	s := newScheduler(rec, readings, &at)

	s.check()
	if len(rec.messages) != 0 {
		t.Errorf("nothing should be sent without a channel, got %q", rec.messages)
	}
	if len(rec.presences) != 1 {
		t.Errorf("presence should still update, got %v", rec.presences)
	}
}
