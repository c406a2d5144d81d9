package arbitrage

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/webhook"
	"go.uber.org/zap"

	"crypto-spot-arbitrage/internal/domain"
)

// Alerter pushes viable opportunities to a Discord webhook. Fire and forget:
// a failed delivery is logged once and never retried.
type Alerter struct {
	webhookUrl string
	logger     *zap.Logger
}

func NewAlerter(webhookUrl string, logger *zap.Logger) *Alerter {
	return &Alerter{webhookUrl: webhookUrl, logger: logger}
}

func (a *Alerter) Alert(opportunity domain.Opportunity) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := webhook.NewWithURL(a.webhookUrl)
	if err != nil {
		a.logger.Error("failed to create discord webhook client", zap.Error(err))
		return
	}
	defer client.Close(ctx)

	_, err = client.CreateEmbeds([]discord.Embed{
		discord.NewEmbedBuilder().
			SetTitle("Arbitrage opportunity found").
			SetColor(0x00ff00).
			AddField("Pair", opportunity.Pair, true).
			AddField("Buy On", opportunity.BuyExchange, true).
			AddField("Sell On", opportunity.SellExchange, true).
			AddField("​", "​", false).
			AddField("Buy Price", opportunity.BuyPrice.String(), true).
			AddField("Sell Price", opportunity.SellPrice.String(), true).
			AddField("​", "​", false).
			AddField("Difference", fmt.Sprintf("%s%%", opportunity.PercentDiff.StringFixed(4)), true).
			AddField("Threshold", fmt.Sprintf("%s%%", opportunity.Threshold.StringFixed(4)), true).
			AddField("Detected At", opportunity.Timestamp.Format(time.RFC3339), true).
			Build()})
	if err != nil {
		a.logger.Error("failed to send alert to discord", zap.Error(err))
	}
}
