package push

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukerupert/familyhub/internal/docstore"
	"github.com/dukerupert/familyhub/internal/mirror"
	"github.com/dukerupert/familyhub/internal/model"
)

// Notifier tells the adults of the hub when a reward is redeemed.
type Notifier struct {
	sender Sender
	store  docstore.Store
	subs   *Subscriptions
	logger *slog.Logger
}

func NewNotifier(sender Sender, store docstore.Store, logger *slog.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		store:  store,
		subs:   NewSubscriptions(store),
		logger: logger,
	}
}

func (n *Notifier) RewardRedeemed(ctx context.Context, by model.Profile, r model.Redemption) {
	adults, err := n.adults(ctx)
	if err != nil {
		n.logger.Error("reward notification", "error", err)
		return
	}
	if len(adults) == 0 {
		return
	}
	sent := deliver(ctx, n.sender, n.subs, n.logger, adults, Payload{
		Title: "Reward Redeemed",
		Body:  fmt.Sprintf("%s redeemed %s for %d points", by.Name, r.RewardName, r.Cost),
		URL:   "/rewards",
		Tag:   "redemption-" + r.ID,
	})
	n.logger.Debug("reward notification sent", "redemption_id", r.ID, "devices", sent)
}

func (n *Notifier) adults(ctx context.Context) ([]string, error) {
	docs, err := n.store.List(ctx, docstore.Users)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	var ids []string
	for _, doc := range docs {
		p, err := mirror.Decode[model.Profile](doc)
		if err != nil {
			continue
		}
		if p.Role == model.RoleAdmin || p.Role == model.RoleParent {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}
