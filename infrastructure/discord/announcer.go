package discord

import (
	"context"
	"fmt"

	"goldenticket/events"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const (
	ColorPrimary = 0x5865F2 // Discord blurple
	ColorSuccess = 0x57F287 // Green
	ColorMuted   = 0x99AAB5 // Grey
)

// MessageSender is the part of *discordgo.Session the announcer uses
type MessageSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Announcer posts settled draw results to a Discord channel
type Announcer struct {
	sender    MessageSender
	channelID string
}

// NewSession creates a REST-only Discord session for a bot token
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	return session, nil
}

// NewAnnouncer creates a new announcer
func NewAnnouncer(sender MessageSender, channelID string) *Announcer {
	return &Announcer{
		sender:    sender,
		channelID: channelID,
	}
}

// Subscribe registers the announcer for settled draws
func (a *Announcer) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventTypeDrawSettled, a.handleDrawSettled)
}

func (a *Announcer) handleDrawSettled(ctx context.Context, event events.Event) {
	settled, ok := event.(events.DrawSettledEvent)
	if !ok {
		log.WithField("eventType", event.Type()).Warn("Unexpected event type for draw announcement")
		return
	}

	if _, err := a.sender.ChannelMessageSendEmbed(a.channelID, buildDrawResultEmbed(settled), discordgo.WithContext(ctx)); err != nil {
		// The result is already committed, only the announcement is lost
		log.WithError(err).WithField("period", settled.Period).Error("Failed to post draw result to Discord")
		return
	}

	log.WithFields(log.Fields{
		"period":    settled.Period,
		"channelID": a.channelID,
	}).Info("Posted draw result to Discord")
}

func buildDrawResultEmbed(e events.DrawSettledEvent) *discordgo.MessageEmbed {
	title := fmt.Sprintf("🎟️ **Draw Results %s** 🎟️", e.Period)

	if e.WinningNumbers == nil {
		return &discordgo.MessageEmbed{
			Title:       title,
			Description: "No tickets were sold this period, so there was no draw.",
			Color:       ColorMuted,
			Timestamp:   e.DrawTime.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	color := ColorPrimary
	if e.FirstWinners+e.SecondWinners+e.ThirdWinners > 0 {
		color = ColorSuccess
	}

	return &discordgo.MessageEmbed{
		Title:       title,
		Description: fmt.Sprintf("Winning numbers: **%s**", e.WinningNumbers.String()),
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Tickets", Value: fmt.Sprintf("%d", e.TicketCount), Inline: true},
			{Name: "Pot", Value: e.PotTotal.String(), Inline: true},
			{
				Name: "Winners",
				Value: fmt.Sprintf("• 5 numbers: **%d**\n• 4 numbers: **%d**\n• 3 numbers: **%d**",
					e.FirstWinners, e.SecondWinners, e.ThirdWinners),
				Inline: false,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Numbers match in order from the first position",
		},
		Timestamp: e.DrawTime.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
