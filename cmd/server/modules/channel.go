package modules

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	"github.com/helmdesk/helmdesk/internal/broker"
	"github.com/helmdesk/helmdesk/internal/channel"
	"github.com/helmdesk/helmdesk/internal/channel/adapters/facebook"
	"github.com/helmdesk/helmdesk/internal/channel/adapters/sms"
	"github.com/helmdesk/helmdesk/internal/channel/adapters/smooch"
	"github.com/helmdesk/helmdesk/internal/channel/adapters/widget"
	"github.com/helmdesk/helmdesk/internal/config"
)

// ChannelModule provides the broker client and the channel adapter registry.
var ChannelModule = fx.Module(
	"channel",
	fx.Provide(
		provideBrokerClient,
		provideChannelRegistry,
	),
)

func provideBrokerClient(lc fx.Lifecycle, cfg config.Config, log *slog.Logger) (broker.Client, error) {
	client, err := broker.NewAMQPClient(cfg.Broker, log)
	if err != nil {
		return nil, fmt.Errorf("broker connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func provideChannelRegistry(log *slog.Logger, client broker.Client) (*channel.Registry, error) {
	registry := channel.NewRegistry()
	registry.MustRegister(facebook.NewPostAdapter(client, log))
	registry.MustRegister(facebook.NewMessengerAdapter(client, log))
	registry.MustRegister(sms.NewTwilio(client, log))
	registry.MustRegister(sms.NewTelnyx(client, log))
	registry.MustRegister(widget.NewChatfuel(client, log))

	for _, kind := range []channel.Kind{
		channel.KindWhatsApp,
		channel.KindViber,
		channel.KindTelegram,
		channel.KindLine,
	} {
		adapter, err := smooch.New(kind, client, log)
		if err != nil {
			return nil, err
		}
		registry.MustRegister(adapter)
	}
	return registry, nil
}
