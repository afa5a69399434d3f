package model

import (
	"strings"
	"time"
)

type ListType string

const (
	ListGroceries ListType = "groceries"
	ListShopping  ListType = "shopping"
	ListWishlist  ListType = "wishlist"
	ListTodo      ListType = "todo"
	ListCustom    ListType = "custom"
)

// List is a shared list whose items are embedded in the list document.
type List struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      ListType   `json:"type"`
	Emoji     string     `json:"emoji"`
	Color     string     `json:"color"`
	IsShared  bool       `json:"isShared"`
	Items     []ListItem `json:"items"`
	CreatedBy string     `json:"createdBy"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type ListItem struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Checked   bool      `json:"checked"`
	Category  string    `json:"category,omitempty"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

func (l *List) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return invalid("name", "is required")
	}
	switch l.Type {
	case "":
		l.Type = ListCustom
	case ListGroceries, ListShopping, ListWishlist, ListTodo, ListCustom:
	default:
		return invalid("type", "must be groceries, shopping, wishlist, todo or custom")
	}
	if l.Items == nil {
		l.Items = []ListItem{}
	}
	seen := make(map[string]bool, len(l.Items))
	for _, it := range l.Items {
		if it.ID == "" {
			return invalid("items", "item without id")
		}
		if seen[it.ID] {
			return invalid("items", "duplicate item id "+it.ID)
		}
		seen[it.ID] = true
	}
	return nil
}
