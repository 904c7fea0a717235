package discord

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/moorebrett0/climbcoach/internal/backend"
	"github.com/moorebrett0/climbcoach/internal/load"
)

// askTimeout bounds one coach answer started from Discord.
const askTimeout = 2 * time.Minute

// Coach answers one question.
type Coach interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Backend is the part of the persistence service the commands read.
type Backend interface {
	ListWorkouts(ctx context.Context) ([]backend.Workout, error)
	TrainingLoad(ctx context.Context) (*backend.TrainingLoad, error)
}

// Router dispatches Discord messages and slash commands.
type Router struct {
	bot     *Bot
	coach   Coach
	backend Backend
}

// NewRouter creates a router and wires it to the bot.
func NewRouter(bot *Bot, coach Coach, be Backend) *Router {
	r := &Router{bot: bot, coach: coach, backend: be}
	bot.SetRouter(r)
	return r
}

// HandleInteraction dispatches a slash command interaction.
func (r *Router) HandleInteraction(i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()

	switch data.Name {
	case "coach":
		question := ""
		if len(data.Options) > 0 {
			question = data.Options[0].StringValue()
		}
		r.respondDeferred(i)
		r.followup(i, r.answer(question))

	case "load":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		embed, text := loadReply(ctx, r.backend, time.Now())
		if embed != nil {
			r.respondEmbed(i, embed)
		} else {
			r.respond(i, text)
		}

	case "workouts":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		r.respond(i, workoutsReply(ctx, r.backend))

	case "help":
		r.respondEphemeral(i, TemplateHelp())

	default:
		r.respond(i, "Unknown command.")
	}
}

// HandleMessage answers a channel message that @mentions the bot.
func (r *Router) HandleMessage(m *discordgo.MessageCreate) {
	if strings.TrimSpace(m.Content) == "" || !r.bot.IsMentioned(m) {
		return
	}

	text := r.bot.StripMention(m.Content)
	if text == "" {
		r.bot.SendMessage(m.ChannelID, "\U0001F9D7 Hey! Ask me anything about your training.")
		return
	}

	if err := r.bot.session.ChannelTyping(m.ChannelID); err != nil {
		slog.Debug("discord: typing indicator failed", "err", err)
	}
	r.bot.SendMessage(m.ChannelID, r.answer(text))
}

// answer asks the coach and turns failures into a chat reply.
func (r *Router) answer(question string) string {
	ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
	defer cancel()

	reply, err := r.coach.Ask(ctx, question)
	switch {
	case err == nil && reply != "":
		return reply
	case err == nil:
		return "I couldn't come up with an answer. Try rephrasing?"
	case strings.TrimSpace(question) == "":
		return "Ask me a question about your training."
	default:
		slog.Error("discord: coach error", "err", err)
		return "Something went wrong reaching the coach. Try again in a moment."
	}
}

// loadReply renders /load as an embed, or a text message when there is
// nothing to show.
func loadReply(ctx context.Context, be Backend, now time.Time) (*discordgo.MessageEmbed, string) {
	tl, err := be.TrainingLoad(ctx)
	if errors.Is(err, backend.ErrNoTrainingData) {
		return nil, "No training sessions logged yet, so there's no load to show."
	}
	if err != nil {
		slog.Error("discord: training load failed", "err", err)
		return nil, "Couldn't fetch your training load right now."
	}
	return LoadEmbed(load.Summarize(tl), now), ""
}

func workoutsReply(ctx context.Context, be Backend) string {
	workouts, err := be.ListWorkouts(ctx)
	if err != nil {
		slog.Error("discord: list workouts failed", "err", err)
		return "Couldn't fetch your workouts right now."
	}
	return TemplateWorkouts(workouts)
}

// --- Interaction response helpers ---

func (r *Router) respond(i *discordgo.InteractionCreate, content string) {
	r.interactionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	})
}

func (r *Router) respondEmbed(i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	r.interactionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

func (r *Router) respondEphemeral(i *discordgo.InteractionCreate, content string) {
	r.interactionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func (r *Router) respondDeferred(i *discordgo.InteractionCreate) {
	r.interactionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

func (r *Router) interactionRespond(i *discordgo.InteractionCreate, resp *discordgo.InteractionResponse) {
	if err := r.bot.session.InteractionRespond(i.Interaction, resp); err != nil {
		slog.Error("discord: interaction respond failed", "err", err)
	}
}

// followup completes a deferred interaction, one followup per chunk.
func (r *Router) followup(i *discordgo.InteractionCreate, content string) {
	for _, chunk := range SplitMessage(content, MaxMessageLen) {
		if _, err := r.bot.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Content: chunk,
		}); err != nil {
			slog.Error("discord: followup failed", "err", err)
			return
		}
	}
}
