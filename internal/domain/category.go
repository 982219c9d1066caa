package domain

import (
	"strconv"
	"time"
)

// AllCategory is the synthetic bucket that matches every product.
const AllCategory = "Alle"

// Category is a curated filter chip. DisplayOrder defines chip order.
type Category struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Emoji        string    `json:"emoji"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CategoryInput is the admin-editable part of a category.
type CategoryInput struct {
	Name  string `json:"name" validate:"notblank,max=40"`
	Emoji string `json:"emoji" validate:"required,emoji"`
}

var defaultCategories = []struct{ name, emoji string }{
	{AllCategory, "✨"},
	{"Fütterung", "🍽️"},
	{"Geschenke", "🎁"},
	{"für Mensch", "👤"},
	{"für Tier", "🐾"},
	{"Kleidung", "👕"},
	{"Lustig", "😂"},
	{"Luxus", "👑"},
	{"Niedlich", "🥰"},
	{"Nützliches", "🛠️"},
	{"Pflege", "🧴"},
	{"Skurril", "🤪"},
	{"Spielzeug", "🎾"},
}

// DefaultCategories returns the built-in category list used when the
// categories table is missing or empty. Ids are "1".."13".
func DefaultCategories(now time.Time) []Category {
	out := make([]Category, len(defaultCategories))
	for i, c := range defaultCategories {
		out[i] = Category{
			ID:           strconv.Itoa(i + 1),
			Name:         c.name,
			Emoji:        c.emoji,
			DisplayOrder: i,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}
	return out
}
