package modules

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/helmdesk/helmdesk/internal/cards"
	cardspg "github.com/helmdesk/helmdesk/internal/cards/postgres"
	"github.com/helmdesk/helmdesk/internal/config"
	"github.com/helmdesk/helmdesk/internal/inbox"
	inboxpg "github.com/helmdesk/helmdesk/internal/inbox/postgres"
	"github.com/helmdesk/helmdesk/internal/integrations"
	"github.com/helmdesk/helmdesk/internal/notify"
	notifypg "github.com/helmdesk/helmdesk/internal/notify/postgres"
)

// DomainModule provides the stores and the dispatch, notify and cards
// services.
var DomainModule = fx.Module(
	"domain",
	fx.Provide(
		fx.Annotate(inboxpg.NewConversationStore, fx.As(new(inbox.ConversationStore)), fx.As(new(cards.ConversationSource))),
		fx.Annotate(inboxpg.NewMessageStore, fx.As(new(inbox.MessageStore))),
		fx.Annotate(inboxpg.NewIntegrationStore, fx.As(new(inbox.IntegrationStore))),
		fx.Annotate(cardspg.NewCardStore, fx.As(new(cards.CardStore))),
		fx.Annotate(cardspg.NewStageStore, fx.As(new(cards.StageStore))),
		fx.Annotate(cardspg.NewConformityStore, fx.As(new(cards.ConformityStore))),
		fx.Annotate(notifypg.NewNotificationSink, fx.As(new(notify.NotificationSink))),
		fx.Annotate(notifypg.NewUserDirectory, fx.As(new(notify.UserDirectory))),

		provideNotifyOptions,
		providePusher,
		provideMailer,
		fx.Annotate(notify.NewService, fx.As(new(inbox.Notifier))),
		provideIntegrationsClient,
		inbox.NewService,
		cards.NewService,
	),
)

func provideNotifyOptions(cfg config.Config) notify.Options {
	return notify.Options{
		MailEnabled: cfg.Mail.Enabled(),
		PushEnabled: cfg.Push.Enabled(),
	}
}

func providePusher(cfg config.Config) notify.Pusher {
	return notify.NewHTTPPusher(cfg.Push)
}

func provideMailer(cfg config.Config) notify.Mailer {
	return notify.NewSMTPMailer(cfg.Mail)
}

func provideIntegrationsClient(cfg config.Config, log *slog.Logger) inbox.VideoCallClient {
	return integrations.NewClient(cfg.Integrations, log)
}
