package push

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"

	"github.com/dukerupert/familyhub/internal/docstore"
	"github.com/dukerupert/familyhub/internal/mirror"
	"github.com/dukerupert/familyhub/internal/model"
)

var ErrNotOwner = errors.New("subscription belongs to another profile")

// Subscriptions stores device subscriptions in the hub's document store.
// A device is keyed by its endpoint, so subscribing again replaces it.
type Subscriptions struct {
	store docstore.Store
}

func NewSubscriptions(store docstore.Store) *Subscriptions {
	return &Subscriptions{store: store}
}

// SubscriptionID derives the document id from the push endpoint.
func SubscriptionID(endpoint string) string {
	sum := sha256.Sum256([]byte(endpoint))
	return hex.EncodeToString(sum[:16])
}

func (s *Subscriptions) Save(ctx context.Context, sub model.PushSubscription) (model.PushSubscription, error) {
	if err := sub.Validate(); err != nil {
		return sub, err
	}
	sub.ID = SubscriptionID(sub.Endpoint)
	data, err := docstore.Encode(sub)
	if err != nil {
		return sub, err
	}
	if err := s.store.Set(ctx, docstore.PushSubscriptions, sub.ID, data); err != nil {
		return sub, fmt.Errorf("save subscription: %w", err)
	}
	return sub, nil
}

// Delete removes a subscription owned by profileID. Admins pass
// admin=true to remove any device.
func (s *Subscriptions) Delete(ctx context.Context, id, profileID string, admin bool) error {
	doc, err := s.store.Get(ctx, docstore.PushSubscriptions, id)
	if err != nil {
		return err
	}
	sub, err := mirror.Decode[model.PushSubscription](doc)
	if err != nil {
		return err
	}
	if !admin && sub.ProfileID != profileID {
		return ErrNotOwner
	}
	return s.store.Delete(ctx, docstore.PushSubscriptions, id)
}

// List returns the subscriptions of the given profiles, or all of them
// when profileIDs is nil.
func (s *Subscriptions) List(ctx context.Context, profileIDs []string) ([]model.PushSubscription, error) {
	docs, err := s.store.List(ctx, docstore.PushSubscriptions)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	var subs []model.PushSubscription
	for _, doc := range docs {
		sub, err := mirror.Decode[model.PushSubscription](doc)
		if err != nil {
			continue
		}
		if profileIDs == nil || slices.Contains(profileIDs, sub.ProfileID) {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}

func (s *Subscriptions) remove(ctx context.Context, id string) error {
	err := s.store.Delete(ctx, docstore.PushSubscriptions, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil
	}
	return err
}
