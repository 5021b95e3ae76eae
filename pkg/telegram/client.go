package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Client struct {
	Bot          *tgbotapi.BotAPI
	UpdateConfig tgbotapi.UpdateConfig
}

func NewClient(token string, debug bool) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	bot.Debug = debug

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	return &Client{
		Bot:          bot,
		UpdateConfig: updateConfig,
	}, nil
}

// Updates long-polls until ctx is cancelled, then closes the channel.
func (c *Client) Updates(ctx context.Context) tgbotapi.UpdatesChannel {
	updates := c.Bot.GetUpdatesChan(c.UpdateConfig)
	go func() {
		<-ctx.Done()
		c.Bot.StopReceivingUpdates()
	}()
	return updates
}
