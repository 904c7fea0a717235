// Package proactive posts unprompted training-load messages: an alert when
// the ACWR enters the overtraining zone and a morning check-in.
package proactive

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/moorebrett0/climbcoach/internal/discord"
	"github.com/moorebrett0/climbcoach/internal/load"
	"github.com/moorebrett0/climbcoach/internal/monitor"
)

// MessageSender can send messages and update presence.
type MessageSender interface {
	SendMessage(channelID, text string)
	SendEmbed(channelID string, embed *discordgo.MessageEmbed)
	UpdatePresence(zone load.Zone)
	ChannelID() string
}

// Readings provides the latest polled training load.
type Readings interface {
	Latest() monitor.Reading
}

// Scheduler sends proactive messages based on training load and time.
type Scheduler struct {
	sender   MessageSender
	readings Readings

	checkInterval time.Duration
	morningHour   int
	alertCooldown time.Duration
	now           func() time.Time

	mu          sync.Mutex
	lastMorning time.Time
	lastAlert   time.Time
	lastZone    load.Zone
}

// Config for the proactive scheduler.
type Config struct {
	CheckInterval time.Duration
	MorningHour   int
	AlertCooldown time.Duration
}

// New creates a proactive scheduler.
func New(sender MessageSender, readings Readings, cfg Config) *Scheduler {
	return &Scheduler{
		sender:        sender,
		readings:      readings,
		checkInterval: cfg.CheckInterval,
		morningHour:   cfg.MorningHour,
		alertCooldown: cfg.AlertCooldown,
		now:           time.Now,
		lastZone:      load.ZoneUnknown,
	}
}

// Run starts the tick loop. Blocks until context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check()
		}
	}
}

func (s *Scheduler) check() {
	r := s.readings.Latest()
	channelID := s.sender.ChannelID()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	// A failed poll says nothing about the zone
	if r.Err != nil {
		return
	}

	prevZone := s.lastZone
	if r.Zone != prevZone {
		s.lastZone = r.Zone
		s.sender.UpdatePresence(r.Zone)
	}

	if channelID == "" {
		return
	}

	// Overtraining alert
	if r.Zone == load.ZoneOvertraining && (s.lastAlert.IsZero() || now.Sub(s.lastAlert) > s.alertCooldown) {
		s.lastAlert = now
		s.sender.SendMessage(channelID, discord.TemplateOvertrainingAlert(r.Summary))
		s.sender.SendEmbed(channelID, discord.LoadEmbed(r.Summary, r.At))
		return
	}

	// Recovery notice
	if prevZone == load.ZoneOvertraining && r.Zone == load.ZoneOptimal {
		s.sender.SendMessage(channelID, discord.TemplateBackInRange(r.Summary))
		return
	}

	// Morning check-in
	if now.Hour() == s.morningHour && now.Sub(s.lastMorning) > 20*time.Hour {
		s.lastMorning = now
		if r.Available {
			s.sender.SendMessage(channelID, discord.TemplateMorningCheckIn(r.Summary))
		} else {
			s.sender.SendMessage(channelID, discord.TemplateMorningNoData())
		}
	}
}
