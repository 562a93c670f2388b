// Package bot connects the trackers to the Discord gateway.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/snowflake/v2"
	"github.com/lunalog/lunalog/internal/database"
	"github.com/lunalog/lunalog/internal/setup/config"
	"github.com/lunalog/lunalog/internal/tracker/dispatch"
	"github.com/lunalog/lunalog/internal/tracker/interaction"
	"github.com/lunalog/lunalog/internal/tracker/member"
	"github.com/lunalog/lunalog/internal/tracker/message"
	"github.com/lunalog/lunalog/internal/tracker/ownership"
	"github.com/lunalog/lunalog/internal/tracker/platform"
	"github.com/lunalog/lunalog/internal/tracker/vibe"
	"github.com/lunalog/lunalog/internal/tracker/voice"
	"go.uber.org/zap"
)

// Bot receives gateway events and hands them to the trackers. Events for
// the same user are processed in order through the dispatcher.
type Bot struct {
	client     bot.Client
	cfg        *config.Config
	dispatcher *dispatch.Dispatcher
	messages   *message.Tracker
	voice      *voice.Tracker
	members    *member.Tracker
	audit      *AuditIndex
	logger     *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

// New creates the gateway client and wires the trackers to it.
func New(cfg *config.Config, db database.Client, logger *zap.Logger) (*Bot, error) {
	ctx, cancel := context.WithCancel(context.Background())

	idleTimeout := time.Duration(cfg.Bot.Dispatch.IdleTimeout) * time.Millisecond

	b := &Bot{
		cfg:        cfg,
		dispatcher: dispatch.New(idleTimeout, cfg.Bot.Dispatch.QueueSize, logger),
		audit:      NewAuditIndex(db.Model().Channel(), logger),
		logger:     logger.Named("bot"),
		ctx:        ctx,
		cancel:     cancel,
	}

	client, err := disgo.New(cfg.Bot.Discord.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMembers,
				gateway.IntentGuildModeration,
				gateway.IntentGuildVoiceStates,
				gateway.IntentGuildMessages,
				gateway.IntentMessageContent,
			),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds|cache.FlagChannels|cache.FlagMembers|cache.FlagVoiceStates),
		),
		bot.WithEventListeners(&events.ListenerAdapter{
			OnGuildMessageCreate:       b.onGuildMessageCreate,
			OnGuildVoiceStateUpdate:    b.onGuildVoiceStateUpdate,
			OnGuildMemberJoin:          b.onGuildMemberJoin,
			OnGuildAuditLogEntryCreate: b.onGuildAuditLogEntryCreate,
		}),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create discord client: %w", err)
	}
	b.client = client

	channels := channelDirectory{client: client}

	var policy ownership.Policy = ownership.CountAll
	if cfg.Bot.PersonalChannels.ExcludeCreatorActivity {
		var audit platform.AuditLog
		if cfg.Bot.PersonalChannels.UseAuditLogs {
			audit = b.audit
		}
		policy = ownership.NewResolver(db.Model().Channel(), audit, channels, cfg.Bot.PersonalChannels, logger)
	}

	b.messages = message.New(
		db,
		interaction.New(db, messageFetcher{client: client}, logger),
		vibe.New(db, cfg.Vibes, logger),
		policy,
		channels,
		memberLookup{client: client},
		&cfg.Bot,
		logger,
	)
	b.voice = voice.New(db, voice.NewSessions(), policy, channels, &cfg.Bot, logger)
	b.members = member.New(db, logger)

	return b, nil
}

// Start opens the gateway connection.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot", zap.Uint64("guildID", b.cfg.Bot.Discord.GuildID))
	return b.client.OpenGateway(ctx)
}

// Close stops receiving events, finishes queued work and closes the gateway.
func (b *Bot) Close(ctx context.Context) {
	b.logger.Info("Closing bot")
	b.client.Close(ctx)
	b.dispatcher.Close()
	b.cancel()

	if open := b.voice.Sessions().Len(); open > 0 {
		b.logger.Info("Discarding open voice sessions", zap.Int("sessions", open))
	}
}

// watches reports whether events from the guild are tracked.
func (b *Bot) watches(guildID snowflake.ID) bool {
	return b.cfg.Bot.Discord.GuildID == 0 || uint64(guildID) == b.cfg.Bot.Discord.GuildID
}

func (b *Bot) onGuildMessageCreate(e *events.GuildMessageCreate) {
	if !b.watches(e.GuildID) {
		return
	}

	msg := convertMessage(e.GuildID, e.Message)
	b.dispatcher.Submit(dispatch.MessageKey(msg.AuthorID), func() {
		b.messages.OnMessage(b.ctx, msg)
	})
}

func (b *Bot) onGuildVoiceStateUpdate(e *events.GuildVoiceStateUpdate) {
	if !b.watches(e.VoiceState.GuildID) {
		return
	}

	ev := convertVoiceState(e.OldVoiceState, e.VoiceState, e.Member, time.Now())
	b.dispatcher.Submit(dispatch.VoiceKey(ev.UserID), func() {
		b.voice.OnVoiceStateUpdate(b.ctx, ev)
	})
}

func (b *Bot) onGuildMemberJoin(e *events.GuildMemberJoin) {
	if !b.watches(e.GuildID) {
		return
	}

	ev := convertMemberJoin(e.GuildID, e.Member, time.Now())
	b.dispatcher.Submit(dispatch.MemberKey(ev.UserID), func() {
		b.members.OnMemberJoin(b.ctx, ev)
	})
}

func (b *Bot) onGuildAuditLogEntryCreate(e *events.GuildAuditLogEntryCreate) {
	entry := e.AuditLogEntry
	if !b.watches(e.GuildID) || entry.ActionType != discord.AuditLogEventChannelCreate || entry.TargetID == nil {
		return
	}

	guildID, channelID, creatorID := uint64(e.GuildID), uint64(*entry.TargetID), uint64(entry.UserID)

	channelType := 0
	if channel, ok := b.client.Caches().Channel(*entry.TargetID); ok {
		channelType = int(channel.Type())
	}

	b.dispatcher.Submit("audit:"+strconv.FormatUint(channelID, 10), func() {
		b.audit.RecordChannelCreate(b.ctx, guildID, channelID, creatorID, channelType, entry.ID.Time())
	})
}
