package notify

import (
	aiaccountdomain "github.com/railzwaylabs/modelrail/internal/aiaccount/domain"
	"github.com/railzwaylabs/modelrail/internal/config"
	"github.com/railzwaylabs/modelrail/internal/notify/domain"
	"github.com/railzwaylabs/modelrail/internal/notify/provider/slack"
	"github.com/railzwaylabs/modelrail/internal/notify/provider/telegram"
	"github.com/railzwaylabs/modelrail/internal/notify/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notify",
	fx.Provide(NewNotifier),
	fx.Provide(func(n *service.Notifier) aiaccountdomain.FailureNotifier { return n }),
)

// NewNotifier builds a notifier with the providers enabled in cfg.
func NewNotifier(cfg config.Config, log *zap.Logger) *service.Notifier {
	var providers []domain.Provider
	if cfg.Notify.SlackWebhookURL != "" {
		providers = append(providers, slack.NewProvider(cfg.Notify.SlackWebhookURL))
	}
	if cfg.Notify.TelegramBotToken != "" && cfg.Notify.TelegramChatID != 0 {
		providers = append(providers, telegram.NewProvider(cfg.Notify.TelegramBotToken, cfg.Notify.TelegramChatID))
	}

	n := service.NewNotifier(log, providers...)
	log.Named("notify").Info("notification providers configured", zap.Int("count", n.Providers()))
	return n
}
