package state

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/familyhub/internal/auth"
	"github.com/dukerupert/familyhub/internal/docstore"
	"github.com/dukerupert/familyhub/internal/lists"
	"github.com/dukerupert/familyhub/internal/model"
)

var listFields = []string{"name", "type", "emoji", "color", "isShared"}

// Lists returns the lists visible to ac, oldest first.
func (a *App) Lists(ac auth.AuthContext) []model.List {
	ls := auth.VisibleLists(ac, a.lists.Items())
	slices.SortStableFunc(ls, func(x, y model.List) int { return x.CreatedAt.Compare(y.CreatedAt) })
	return ls
}

// List returns one list if ac may see it.
func (a *App) List(ac auth.AuthContext, id string) (model.List, error) {
	l, ok := a.lists.Find(func(l model.List) bool { return l.ID == id })
	if !ok || !listVisible(ac, l) {
		return model.List{}, fmt.Errorf("%w: list %s", ErrNotFound, id)
	}
	return l, nil
}

func listVisible(ac auth.AuthContext, l model.List) bool {
	return len(auth.VisibleLists(ac, []model.List{l})) == 1
}

// AddList, UpdateList and DeleteList are for admins and parents. Items can
// be changed by anyone who can see the list.
func (a *App) AddList(ctx context.Context, ac auth.AuthContext, l model.List) (model.List, error) {
	if err := requireManager(ac, "create lists"); err != nil {
		return model.List{}, err
	}
	l.ID = ""
	l.Name = strings.TrimSpace(l.Name)
	l.Items = []model.ListItem{}
	l.CreatedBy = ac.ProfileID
	l.CreatedAt, l.UpdatedAt = a.now().UTC(), nil

	id, l, err := addDoc(ctx, a, docstore.Lists, l)
	if err != nil {
		return model.List{}, err
	}
	l.ID = id
	return l, nil
}

func (a *App) UpdateList(ctx context.Context, ac auth.AuthContext, id string, patch Patch) (model.List, error) {
	if err := requireManager(ac, "edit lists"); err != nil {
		return model.List{}, err
	}
	return updateDoc[model.List](ctx, a, docstore.Lists, id, patch, listFields, nil)
}

func (a *App) DeleteList(ctx context.Context, ac auth.AuthContext, id string) error {
	if err := requireManager(ac, "remove lists"); err != nil {
		return err
	}
	return deleteDoc[model.List](ctx, a, docstore.Lists, id, nil)
}

// ItemInput is a new list item. An empty category on a groceries list is
// filled in from the item text.
type ItemInput struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

func (a *App) AddListItem(ctx context.Context, ac auth.AuthContext, listID string, in ItemInput) (model.List, error) {
	return a.mutateItems(ctx, ac, listID, func(l *model.List) ([]model.ListItem, error) {
		item := model.ListItem{
			ID:        uuid.NewString(),
			Text:      in.Text,
			Category:  strings.TrimSpace(in.Category),
			CreatedBy: ac.ProfileID,
			CreatedAt: a.now().UTC(),
		}
		if item.Category == "" && l.Type == model.ListGroceries {
			item.Category = lists.Categorize(in.Text)
		}
		return lists.AddItem(l.Items, item)
	})
}

func (a *App) UpdateListItem(ctx context.Context, ac auth.AuthContext, listID, itemID string, patch lists.ItemPatch) (model.List, error) {
	return a.mutateItems(ctx, ac, listID, func(l *model.List) ([]model.ListItem, error) {
		return lists.UpdateItem(l.Items, itemID, patch)
	})
}

func (a *App) ToggleListItem(ctx context.Context, ac auth.AuthContext, listID, itemID string) (model.List, error) {
	return a.mutateItems(ctx, ac, listID, func(l *model.List) ([]model.ListItem, error) {
		return lists.ToggleItem(l.Items, itemID)
	})
}

func (a *App) DeleteListItem(ctx context.Context, ac auth.AuthContext, listID, itemID string) (model.List, error) {
	return a.mutateItems(ctx, ac, listID, func(l *model.List) ([]model.ListItem, error) {
		return lists.DeleteItem(l.Items, itemID)
	})
}

// ClearCheckedItems drops every checked item from the list.
func (a *App) ClearCheckedItems(ctx context.Context, ac auth.AuthContext, listID string) (model.List, error) {
	return a.mutateItems(ctx, ac, listID, func(l *model.List) ([]model.ListItem, error) {
		return lists.ClearChecked(l.Items), nil
	})
}

// ReorderListItems puts the items in the order given by itemIDs, which must
// name each item exactly once.
func (a *App) ReorderListItems(ctx context.Context, ac auth.AuthContext, listID string, itemIDs []string) (model.List, error) {
	return a.mutateItems(ctx, ac, listID, func(l *model.List) ([]model.ListItem, error) {
		return lists.Reorder(l.Items, itemIDs)
	})
}

// mutateItems replaces a list's item sequence inside a transaction, so
// concurrent edits to the same list never lose each other's items.
func (a *App) mutateItems(ctx context.Context, ac auth.AuthContext, listID string, fn func(*model.List) ([]model.ListItem, error)) (model.List, error) {
	if err := requireProfile(ac); err != nil {
		return model.List{}, err
	}
	return mutateDoc(ctx, a, docstore.Lists, listID, func(l *model.List) error {
		if !listVisible(ac, *l) {
			return fmt.Errorf("%w: list %s", ErrNotFound, listID)
		}
		items, err := fn(l)
		if err != nil {
			return err
		}
		l.Items = items
		return nil
	})
}
