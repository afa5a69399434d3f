// Package lists holds the item-sequence operations applied to a shared
// list. Each operation returns a new sequence and leaves its input untouched,
// so callers can write the whole list document back in one step.
package lists

import (
	"errors"
	"slices"
	"strings"

	"github.com/dukerupert/familyhub/internal/model"
)

var (
	ErrItemNotFound = errors.New("list item not found")
	ErrInvalidOrder = errors.New("order must name every item exactly once")
	ErrEmptyText    = errors.New("item text is required")
)

// ItemPatch is a partial item update; nil fields are left alone.
type ItemPatch struct {
	Text    *string `json:"text,omitempty"`
	Checked *bool   `json:"checked,omitempty"`
}

// AddItem appends item to the end of the sequence.
func AddItem(items []model.ListItem, item model.ListItem) ([]model.ListItem, error) {
	item.Text = strings.TrimSpace(item.Text)
	if item.Text == "" {
		return nil, ErrEmptyText
	}
	out := make([]model.ListItem, 0, len(items)+1)
	out = append(out, items...)
	return append(out, item), nil
}

// UpdateItem applies patch to the item with itemID.
func UpdateItem(items []model.ListItem, itemID string, patch ItemPatch) ([]model.ListItem, error) {
	if patch.Text != nil && strings.TrimSpace(*patch.Text) == "" {
		return nil, ErrEmptyText
	}
	return mapItem(items, itemID, func(it *model.ListItem) {
		if patch.Text != nil {
			it.Text = strings.TrimSpace(*patch.Text)
		}
		if patch.Checked != nil {
			it.Checked = *patch.Checked
		}
	})
}

// ToggleItem flips the checked flag of the item with itemID.
func ToggleItem(items []model.ListItem, itemID string) ([]model.ListItem, error) {
	return mapItem(items, itemID, func(it *model.ListItem) {
		it.Checked = !it.Checked
	})
}

// DeleteItem removes the item with itemID.
func DeleteItem(items []model.ListItem, itemID string) ([]model.ListItem, error) {
	i := index(items, itemID)
	if i < 0 {
		return nil, ErrItemNotFound
	}
	out := make([]model.ListItem, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...), nil
}

// ClearChecked removes every checked item, keeping the rest in order.
func ClearChecked(items []model.ListItem) []model.ListItem {
	out := make([]model.ListItem, 0, len(items))
	for _, it := range items {
		if !it.Checked {
			out = append(out, it)
		}
	}
	return out
}

// Reorder arranges items in the order given by ids, which must be a
// permutation of the current item ids.
func Reorder(items []model.ListItem, ids []string) ([]model.ListItem, error) {
	if len(ids) != len(items) {
		return nil, ErrInvalidOrder
	}
	byID := make(map[string]model.ListItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	out := make([]model.ListItem, 0, len(items))
	for _, id := range ids {
		it, ok := byID[id]
		if !ok {
			return nil, ErrInvalidOrder
		}
		delete(byID, id)
		out = append(out, it)
	}
	return out, nil
}

func index(items []model.ListItem, itemID string) int {
	return slices.IndexFunc(items, func(it model.ListItem) bool { return it.ID == itemID })
}

func mapItem(items []model.ListItem, itemID string, fn func(*model.ListItem)) ([]model.ListItem, error) {
	i := index(items, itemID)
	if i < 0 {
		return nil, ErrItemNotFound
	}
	out := slices.Clone(items)
	fn(&out[i])
	return out, nil
}
