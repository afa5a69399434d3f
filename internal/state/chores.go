package state

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/familyhub/internal/auth"
	"github.com/dukerupert/familyhub/internal/chore"
	"github.com/dukerupert/familyhub/internal/docstore"
	"github.com/dukerupert/familyhub/internal/mirror"
	"github.com/dukerupert/familyhub/internal/model"
)

var (
	choreFields  = []string{"name", "icon", "points"}
	rewardFields = []string{"name", "icon", "cost"}
)

// CompletionResult reports the outcome of completing a chore. Completing a
// chore already completed today is not an error; AlreadyCompleted is set and
// nothing is written.
type CompletionResult struct {
	Success          bool                   `json:"success"`
	AlreadyCompleted bool                   `json:"alreadyCompleted"`
	PointsEarned     int                    `json:"pointsEarned"`
	Points           int                    `json:"points"`
	Completion       *model.ChoreCompletion `json:"completion,omitempty"`
}

func (a *App) Chores() []model.Chore {
	return a.chores.Items()
}

func (a *App) Rewards() []model.Reward {
	return a.rewards.Items()
}

func (a *App) AddChore(ctx context.Context, ac auth.AuthContext, c model.Chore) (model.Chore, error) {
	if !auth.CanManageTasks(ac.Role) {
		return model.Chore{}, fmt.Errorf("%w: only admins and parents can add chores", ErrForbidden)
	}
	now := a.now().UTC()
	c.ID, c.Name, c.CreatedAt, c.UpdatedAt = "", strings.TrimSpace(c.Name), &now, nil
	id, c, err := addDoc(ctx, a, docstore.Chores, c)
	if err != nil {
		return model.Chore{}, err
	}
	c.ID = id
	return c, nil
}

func (a *App) UpdateChore(ctx context.Context, ac auth.AuthContext, id string, patch Patch) (model.Chore, error) {
	if !auth.CanManageTasks(ac.Role) {
		return model.Chore{}, fmt.Errorf("%w: only admins and parents can edit chores", ErrForbidden)
	}
	return updateDoc[model.Chore](ctx, a, docstore.Chores, id, patch, choreFields, nil)
}

func (a *App) DeleteChore(ctx context.Context, ac auth.AuthContext, id string) error {
	if !auth.CanManageTasks(ac.Role) {
		return fmt.Errorf("%w: only admins and parents can remove chores", ErrForbidden)
	}
	return deleteDoc[model.Chore](ctx, a, docstore.Chores, id, nil)
}

func (a *App) AddReward(ctx context.Context, ac auth.AuthContext, r model.Reward) (model.Reward, error) {
	if !auth.CanManageTasks(ac.Role) {
		return model.Reward{}, fmt.Errorf("%w: only admins and parents can add rewards", ErrForbidden)
	}
	now := a.now().UTC()
	r.ID, r.Name, r.CreatedAt, r.UpdatedAt = "", strings.TrimSpace(r.Name), &now, nil
	id, r, err := addDoc(ctx, a, docstore.Rewards, r)
	if err != nil {
		return model.Reward{}, err
	}
	r.ID = id
	return r, nil
}

func (a *App) UpdateReward(ctx context.Context, ac auth.AuthContext, id string, patch Patch) (model.Reward, error) {
	if !auth.CanManageTasks(ac.Role) {
		return model.Reward{}, fmt.Errorf("%w: only admins and parents can edit rewards", ErrForbidden)
	}
	return updateDoc[model.Reward](ctx, a, docstore.Rewards, id, patch, rewardFields, nil)
}

func (a *App) DeleteReward(ctx context.Context, ac auth.AuthContext, id string) error {
	if !auth.CanManageTasks(ac.Role) {
		return fmt.Errorf("%w: only admins and parents can remove rewards", ErrForbidden)
	}
	return deleteDoc[model.Reward](ctx, a, docstore.Rewards, id, nil)
}

// actFor checks that ac may act on behalf of userID: children only for
// themselves, adults for anyone.
func actFor(ac auth.AuthContext, userID string) error {
	if err := requireProfile(ac); err != nil {
		return err
	}
	if ac.ProfileID != userID && !auth.CanManageTasks(ac.Role) {
		return fmt.Errorf("%w: children can only act for themselves", ErrForbidden)
	}
	return nil
}

// completedOn reports whether date's completions already hold one for
// userID and choreID, whatever id it was stored under.
func completedOn(tx docstore.Tx, userID, choreID, date string) (bool, error) {
	docs, err := tx.Where(docstore.ChoreCompletions, "date", date)
	if err != nil {
		return false, err
	}
	completions := make([]model.ChoreCompletion, 0, len(docs))
	for _, doc := range docs {
		var c model.ChoreCompletion
		if err := docstore.Decode(doc, &c); err != nil {
			return false, err
		}
		completions = append(completions, c)
	}
	_, ok := chore.CompletedOn(completions, userID, choreID, date)
	return ok, nil
}

// CompleteChore records that userID did choreID today and awards its
// points. The existence check, the completion and the points increment
// commit together, and the completion id is derived from user, chore and
// day, so a second completion on the same day is a no-op.
func (a *App) CompleteChore(ctx context.Context, ac auth.AuthContext, userID, choreID string) (CompletionResult, error) {
	if err := actFor(ac, userID); err != nil {
		return CompletionResult{}, err
	}
	today := a.today()
	completionID := model.CompletionID(userID, choreID, today)

	var res CompletionResult
	err := a.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		res = CompletionResult{}

		choreDoc, err := tx.Get(docstore.Chores, choreID)
		if err != nil {
			return notFound(err, "chore", choreID)
		}
		c, err := mirror.Decode[model.Chore](choreDoc)
		if err != nil {
			return err
		}

		done, err := completedOn(tx, userID, choreID, today)
		if err != nil {
			return err
		}
		if done {
			res.AlreadyCompleted = true
			return nil
		}

		userDoc, err := tx.Get(docstore.Users, userID)
		if err != nil {
			return notFound(err, "profile", userID)
		}
		p, err := mirror.Decode[model.Profile](userDoc)
		if err != nil {
			return err
		}

		completion := model.ChoreCompletion{
			UserID:      userID,
			ChoreID:     choreID,
			Date:        today,
			CompletedAt: a.now().UTC(),
		}
		data, err := docstore.Encode(completion)
		if err != nil {
			return err
		}
		if err := tx.Create(docstore.ChoreCompletions, completionID, data); err != nil {
			if errors.Is(err, docstore.ErrAlreadyExists) {
				res.AlreadyCompleted = true
				return nil
			}
			return err
		}
		points := p.Points + c.Points
		if err := tx.Update(docstore.Users, userID, map[string]any{"points": int64(points)}); err != nil {
			return err
		}

		completion.ID = completionID
		res = CompletionResult{Success: true, PointsEarned: c.Points, Points: points, Completion: &completion}
		return nil
	})
	if err != nil {
		return CompletionResult{}, fmt.Errorf("complete chore: %w", err)
	}

	if res.AlreadyCompleted {
		a.logger.Debug("chore already completed today", "profile_id", userID, "chore_id", choreID)
	} else {
		a.logger.Info("chore completed", "profile_id", userID, "chore_id", choreID, "points", res.PointsEarned)
	}
	return res, nil
}

// UndoCompletion removes today's completion and takes the points back.
func (a *App) UndoCompletion(ctx context.Context, ac auth.AuthContext, userID, choreID string) error {
	if err := actFor(ac, userID); err != nil {
		return err
	}
	completionID := model.CompletionID(userID, choreID, a.today())

	return a.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if _, err := tx.Get(docstore.ChoreCompletions, completionID); err != nil {
			return notFound(err, "completion", completionID)
		}
		choreDoc, err := tx.Get(docstore.Chores, choreID)
		if err != nil {
			return notFound(err, "chore", choreID)
		}
		c, err := mirror.Decode[model.Chore](choreDoc)
		if err != nil {
			return err
		}
		userDoc, err := tx.Get(docstore.Users, userID)
		if err != nil {
			return notFound(err, "profile", userID)
		}
		p, err := mirror.Decode[model.Profile](userDoc)
		if err != nil {
			return err
		}

		if err := tx.Delete(docstore.ChoreCompletions, completionID); err != nil {
			return err
		}
		return tx.Update(docstore.Users, userID, map[string]any{"points": int64(max(p.Points-c.Points, 0))})
	})
}

// RedeemReward spends userID's points on rewardID and logs the redemption.
// With too few points it fails with ErrInsufficientPoints and writes nothing.
func (a *App) RedeemReward(ctx context.Context, ac auth.AuthContext, userID, rewardID string) (model.Redemption, error) {
	if err := actFor(ac, userID); err != nil {
		return model.Redemption{}, err
	}

	var (
		redemption model.Redemption
		profile    model.Profile
	)
	err := a.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		rewardDoc, err := tx.Get(docstore.Rewards, rewardID)
		if err != nil {
			return notFound(err, "reward", rewardID)
		}
		r, err := mirror.Decode[model.Reward](rewardDoc)
		if err != nil {
			return err
		}
		userDoc, err := tx.Get(docstore.Users, userID)
		if err != nil {
			return notFound(err, "profile", userID)
		}
		p, err := mirror.Decode[model.Profile](userDoc)
		if err != nil {
			return err
		}

		if p.Points < r.Cost {
			return fmt.Errorf("%w: have %d, need %d", ErrInsufficientPoints, p.Points, r.Cost)
		}

		redemption = model.Redemption{
			ID:         uuid.NewString(),
			UserID:     userID,
			RewardID:   rewardID,
			RewardName: r.Name,
			Cost:       r.Cost,
			RedeemedAt: a.now().UTC(),
		}
		data, err := docstore.Encode(redemption)
		if err != nil {
			return err
		}
		if err := tx.Update(docstore.Users, userID, map[string]any{"points": int64(p.Points - r.Cost)}); err != nil {
			return err
		}
		if err := tx.Create(docstore.Redemptions, redemption.ID, data); err != nil {
			return err
		}
		profile = p
		profile.Points -= r.Cost
		return nil
	})
	if err != nil {
		return model.Redemption{}, fmt.Errorf("redeem reward: %w", err)
	}

	a.logger.Info("reward redeemed", "profile_id", userID, "reward_id", rewardID, "cost", redemption.Cost)
	if a.notifier != nil {
		go a.notifier.RewardRedeemed(context.WithoutCancel(ctx), profile, redemption)
	}
	return redemption, nil
}

// UserChoreStatus reports which chores userID has done today.
func (a *App) UserChoreStatus(userID string) chore.UserStatus {
	return chore.ComputeUserStatus(userID, a.chores.Items(), a.completions.Items(), a.today())
}

// Redemptions returns userID's redemptions, newest first.
func (a *App) Redemptions(userID string) []model.Redemption {
	var out []model.Redemption
	for _, r := range a.redemptions.Items() {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(x, y model.Redemption) int { return y.RedeemedAt.Compare(x.RedeemedAt) })
	return out
}

// Leaderboard ranks child profiles by points. Ties share a rank.
func (a *App) Leaderboard() []model.LeaderboardEntry {
	var kids []model.Profile
	for _, p := range a.profiles.Items() {
		if p.Role == model.RoleChild {
			kids = append(kids, p)
		}
	}
	slices.SortStableFunc(kids, func(x, y model.Profile) int {
		if x.Points != y.Points {
			return y.Points - x.Points
		}
		return strings.Compare(x.Name, y.Name)
	})

	entries := make([]model.LeaderboardEntry, 0, len(kids))
	for i, p := range kids {
		rank := i + 1
		if i > 0 && kids[i-1].Points == p.Points {
			rank = entries[i-1].Rank
		}
		entries = append(entries, model.LeaderboardEntry{
			Rank:      rank,
			ProfileID: p.ID,
			Name:      p.Name,
			Avatar:    p.Avatar,
			Color:     p.Color,
			Points:    p.Points,
		})
	}
	return entries
}
