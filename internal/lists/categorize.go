package lists

import "strings"

// CategoryOther is used when no keyword matches.
const CategoryOther = "Other"

// groceryCategories are checked in order; earlier categories win ties, which
// keeps "ice cream" frozen and "orange juice" a beverage.
var groceryCategories = []struct {
	name     string
	keywords []string
}{
	{"Frozen", []string{"frozen", "ice cream", "popsicle", "waffles"}},
	{"Household", []string{"paper towel", "toilet paper", "trash bag", "garbage bag", "dish soap", "plastic wrap", "light bulb", "laundry", "detergent", "cleaner", "sponge", "foil", "battery", "batteries"}},
	{"Personal Care", []string{"body wash", "shampoo", "conditioner", "toothpaste", "toothbrush", "deodorant", "lotion", "sunscreen", "razor", "tissue", "band-aid"}},
	{"Beverages", []string{"sparkling water", "orange juice", "apple juice", "coffee", "tea", "juice", "soda", "water", "beer", "wine"}},
	{"Snacks", []string{"granola bar", "trail mix", "fruit snack", "chip", "cracker", "cookie", "popcorn", "pretzel", "candy", "chocolate"}},
	{"Pantry", []string{"peanut butter", "olive oil", "maple syrup", "soy sauce", "canned", "cereal", "oatmeal", "granola", "rice", "pasta", "noodle", "flour", "sugar", "spice", "sauce", "broth", "soup", "bean", "lentil", "honey"}},
	{"Meat & Seafood", []string{"ground beef", "chicken", "beef", "pork", "turkey", "bacon", "sausage", "ham", "steak", "salmon", "tuna", "shrimp", "fish"}},
	{"Dairy", []string{"sour cream", "cream cheese", "milk", "cheese", "yogurt", "butter", "cream", "egg"}},
	{"Bakery", []string{"bread", "bagel", "muffin", "tortilla", "bun", "croissant", "roll"}},
	{"Produce", []string{"eggplant", "apple", "banana", "orange", "lemon", "lime", "avocado", "tomato", "potato", "onion", "garlic", "lettuce", "spinach", "kale", "broccoli", "carrot", "celery", "cucumber", "pepper", "mushroom", "corn", "berries", "berry", "grape"}},
}

// Categorize returns the grocery aisle for an item name. Multi-word phrases
// are tried first, then whole words, then word prefixes so plurals match.
func Categorize(itemName string) string {
	name := strings.ToLower(strings.TrimSpace(itemName))
	if name == "" {
		return CategoryOther
	}
	words := strings.Fields(name)

	for _, c := range groceryCategories {
		for _, kw := range c.keywords {
			if strings.Contains(kw, " ") && strings.Contains(name, kw) {
				return c.name
			}
		}
	}
	for _, c := range groceryCategories {
		for _, kw := range c.keywords {
			for _, w := range words {
				if w == kw {
					return c.name
				}
			}
		}
	}
	for _, c := range groceryCategories {
		for _, kw := range c.keywords {
			for _, w := range words {
				if strings.HasPrefix(w, kw) {
					return c.name
				}
			}
		}
	}
	return CategoryOther
}
