package websocket

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/voltmesh/voltmesh/internal/ports"
)

// marketSubjects are the queue subjects mirrored onto the live feed.
var marketSubjects = []string{
	"market.offer.created",
	"market.offer.updated",
	"market.offer.cancelled",
	"market.trade.accepted",
	"market.trade.completed",
	"market.trade.cancelled",
	"market.trade.recorded",
	"certificate.minted",
}

// MarketFeed bridges ledger events from the message queue onto the websocket
// hub so dashboards see offers and trades as they happen.
type MarketFeed struct {
	hub *Hub
	mq  ports.MessageQueue
	log *zap.Logger
}

func NewMarketFeed(hub *Hub, mq ports.MessageQueue, log *zap.Logger) *MarketFeed {
	return &MarketFeed{hub: hub, mq: mq, log: log}
}

// Start subscribes to every market subject and forwards events to the hub.
func (f *MarketFeed) Start() error {
	for _, subject := range marketSubjects {
		subject := subject
		err := f.mq.Subscribe(subject, func(data []byte) error {
			envelope, err := json.Marshal(map[string]interface{}{
				"subject": subject,
				"event":   json.RawMessage(data),
			})
			if err != nil {
				return err
			}
			f.hub.Broadcast(envelope)
			return nil
		})
		if err != nil {
			return err
		}
		f.log.Info("Market feed subscribed", zap.String("subject", subject))
	}
	return nil
}
