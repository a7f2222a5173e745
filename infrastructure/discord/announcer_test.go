package discord

import (
	"context"
	"errors"
	"testing"
	"time"

	"goldenticket/events"
	"goldenticket/models"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	args := m.Called(channelID, embed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*discordgo.Message), args.Error(1)
}

func settledEvent() events.DrawSettledEvent {
	numbers := models.TicketNumbers{12, 7, 33, 21, 4}
	return events.DrawSettledEvent{
		DrawResultID:   1,
		Period:         "2025-W20",
		WinningNumbers: &numbers,
		TicketCount:    25,
		PotTotal:       decimal.NewFromInt(25),
		FirstWinners:   0,
		SecondWinners:  1,
		ThirdWinners:   2,
		DrawTime:       time.Date(2025, time.May, 19, 0, 0, 5, 0, time.UTC),
	}
}

func TestBuildDrawResultEmbed(t *testing.T) {
	t.Parallel()

	embed := buildDrawResultEmbed(settledEvent())

	assert.Contains(t, embed.Title, "2025-W20")
	assert.Contains(t, embed.Description, "12-7-33-21-4")
	assert.Equal(t, ColorSuccess, embed.Color)
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "25", embed.Fields[0].Value)
	assert.Equal(t, "25", embed.Fields[1].Value)
	assert.Contains(t, embed.Fields[2].Value, "4 numbers: **1**")
	assert.Equal(t, "2025-05-19T00:00:05Z", embed.Timestamp)
}

func TestBuildDrawResultEmbed_NoWinners(t *testing.T) {
	t.Parallel()

	e := settledEvent()
	e.SecondWinners, e.ThirdWinners = 0, 0

	assert.Equal(t, ColorPrimary, buildDrawResultEmbed(e).Color)
}

func TestBuildDrawResultEmbed_EmptyPeriod(t *testing.T) {
	t.Parallel()

	embed := buildDrawResultEmbed(events.DrawSettledEvent{Period: "2025-W21"})

	assert.Contains(t, embed.Description, "No tickets")
	assert.Equal(t, ColorMuted, embed.Color)
	assert.Empty(t, embed.Fields)
}

func TestAnnouncer_PostsOnDrawSettled(t *testing.T) {
	t.Parallel()

	sender := new(mockSender)
	posted := make(chan *discordgo.MessageEmbed, 1)
	sender.On("ChannelMessageSendEmbed", "123", mock.Anything).
		Run(func(args mock.Arguments) { posted <- args.Get(1).(*discordgo.MessageEmbed) }).
		Return(&discordgo.Message{ID: "1"}, nil)

	bus := events.NewBus()
	NewAnnouncer(sender, "123").Subscribe(bus)
	bus.Emit(context.Background(), settledEvent())

	select {
	case embed := <-posted:
		assert.Contains(t, embed.Title, "2025-W20")
	case <-time.After(2 * time.Second):
		t.Fatal("announcement not posted")
	}
}

func TestAnnouncer_SendFailureIsLogged(t *testing.T) {
	t.Parallel()

	sender := new(mockSender)
	called := make(chan struct{}, 1)
	sender.On("ChannelMessageSendEmbed", "123", mock.Anything).
		Run(func(mock.Arguments) { called <- struct{}{} }).
		Return(nil, errors.New("HTTP 403 Forbidden"))

	announcer := NewAnnouncer(sender, "123")
	announcer.handleDrawSettled(context.Background(), settledEvent())

	select {
	case <-called:
	default:
		t.Fatal("sender not called")
	}
}
