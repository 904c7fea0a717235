// Package discord is the chat front-end: @mentions and slash commands are
// answered by the coach in one configured channel.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/moorebrett0/climbcoach/internal/load"
)

// Bot wraps the Discord session and manages slash commands, messages, and presence.
type Bot struct {
	session   *discordgo.Session
	channelID string

	router *Router
}

// NewBot creates and configures a Discord bot (does not connect yet).
func NewBot(token, channelID string) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("invalid bot token: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent |
		discordgo.IntentsGuilds

	return &Bot{
		session:   session,
		channelID: channelID,
	}, nil
}

// SetRouter wires the router to handle messages and interactions.
func (b *Bot) SetRouter(r *Router) {
	b.router = r
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)
	b.session.AddHandler(b.onReady)
}

// Start opens the Discord connection and registers slash commands.
// Blocks until context is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	slog.Info("discord: connected", "user", b.session.State.User.Username)

	b.registerCommands()

	// Wait for shutdown
	<-ctx.Done()
	slog.Info("discord: shutting down")
	return b.session.Close()
}

// ChannelID returns the configured channel ID.
func (b *Bot) ChannelID() string {
	return b.channelID
}

// SendMessage sends text to a channel, split into as many messages as
// Discord's length limit requires.
func (b *Bot) SendMessage(channelID, text string) {
	for _, chunk := range SplitMessage(text, MaxMessageLen) {
		if _, err := b.session.ChannelMessageSend(channelID, chunk); err != nil {
			slog.Error("discord: send message failed", "err", err)
			return
		}
	}
}

// SendEmbed sends an embed to a channel.
func (b *Bot) SendEmbed(channelID string, embed *discordgo.MessageEmbed) {
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		slog.Error("discord: send embed failed", "err", err)
	}
}

// UpdatePresence shows the training-load zone as the bot's status.
func (b *Bot) UpdatePresence(zone load.Zone) {
	status, activity := zoneToPresence(zone)
	err := b.session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status: status,
		Activities: []*discordgo.Activity{
			{
				Name:  activity,
				State: activity,
				Type:  discordgo.ActivityTypeCustom,
			},
		},
	})
	if err != nil {
		slog.Debug("discord: update presence failed", "err", err)
	}
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	slog.Info("discord: ready", "user", r.User.Username, "guilds", len(r.Guilds))
}

// BotUserID returns the bot's own user ID.
func (b *Bot) BotUserID() string {
	if b.session.State != nil && b.session.State.User != nil {
		return b.session.State.User.ID
	}
	return ""
}

// IsMentioned checks if the bot was @mentioned in the message.
func (b *Bot) IsMentioned(m *discordgo.MessageCreate) bool {
	for _, u := range m.Mentions {
		if u.ID == b.BotUserID() {
			return true
		}
	}
	return false
}

// StripMention removes the bot's @mention from message text.
func (b *Bot) StripMention(text string) string {
	return stripMention(text, b.BotUserID())
}

func stripMention(text, botID string) string {
	// Discord mentions look like <@123456> or <@!123456>
	text = strings.ReplaceAll(text, "<@"+botID+">", "")
	text = strings.ReplaceAll(text, "<@!"+botID+">", "")
	return strings.TrimSpace(text)
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	// Only respond in the configured channel
	if m.ChannelID != b.channelID {
		return
	}

	if b.router != nil {
		b.router.HandleMessage(m)
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	if b.router != nil {
		b.router.HandleInteraction(i)
	}
}

var commands = []*discordgo.ApplicationCommand{
	{
		Name:        "coach",
		Description: "Ask the climbing coach a question",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "question",
				Description: "What do you want to know?",
				Required:    true,
			},
		},
	},
	{
		Name:        "load",
		Description: "Show your current training load and ACWR",
	},
	{
		Name:        "workouts",
		Description: "List your saved workouts",
	},
	{
		Name:        "help",
		Description: "Show available commands",
	},
}

func (b *Bot) registerCommands() {
	appID := b.session.State.User.ID
	for _, cmd := range commands {
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			slog.Error("discord: failed to register command", "cmd", cmd.Name, "err", err)
		} else {
			slog.Info("discord: registered command", "cmd", cmd.Name)
		}
	}
}

func zoneToPresence(zone load.Zone) (status, activity string) {
	switch zone {
	case load.ZoneOptimal:
		return "online", "training load: optimal"
	case load.ZoneUndertraining:
		return "idle", "training load: room for more"
	case load.ZoneOvertraining:
		return "dnd", "training load: time to rest"
	default:
		return "online", "ready to coach"
	}
}
