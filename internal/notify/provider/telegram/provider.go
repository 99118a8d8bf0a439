package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/railzwaylabs/modelrail/internal/notify/domain"
)

// Provider sends messages through a Telegram bot. The bot handshake is
// deferred to the first Send.
type Provider struct {
	token    string
	chatID   int64
	endpoint string
	client   *http.Client

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

func NewProvider(token string, chatID int64) *Provider {
	return NewProviderWithEndpoint(token, chatID, tgbotapi.APIEndpoint)
}

// NewProviderWithEndpoint targets a non-default Bot API endpoint; the format
// takes the token and the method name.
func NewProviderWithEndpoint(token string, chatID int64, endpoint string) *Provider {
	return &Provider{
		token:    strings.TrimSpace(token),
		chatID:   chatID,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *Provider) Name() string { return "telegram" }

func (p *Provider) Send(ctx context.Context, msg domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bot, err := p.botAPI()
	if err != nil {
		return err
	}

	text := msg.Title
	if len(msg.Lines) > 0 {
		text += "\n" + strings.Join(msg.Lines, "\n")
	}

	if _, err := bot.Send(tgbotapi.NewMessage(p.chatID, text)); err != nil {
		return fmt.Errorf("telegram_api_error: %w", err)
	}
	return nil
}

func (p *Provider) botAPI() (*tgbotapi.BotAPI, error) {
	if p.token == "" || p.chatID == 0 {
		return nil, fmt.Errorf("%w: missing bot token or chat id", domain.ErrProviderMisconfigured)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bot != nil {
		return p.bot, nil
	}

	bot, err := tgbotapi.NewBotAPIWithClient(p.token, p.endpoint, p.client)
	if err != nil {
		return nil, fmt.Errorf("telegram_auth_error: %w", err)
	}
	p.bot = bot
	return bot, nil
}
