package core

// Category is a fixed, non-persisted expense category.
type Category struct {
	ID    int
	Name  string
	Icon  string
	Color string
}

// Uncategorized is what consumers display for records without a known category.
var Uncategorized = Category{ID: 0, Name: "Uncategorized", Icon: "❔", Color: "#9E9E9E"}

var categories = [...]Category{
	{ID: 1, Name: "Food", Icon: "🍔", Color: "#FF6B6B"},
	{ID: 2, Name: "Transport", Icon: "🚗", Color: "#4ECDC4"},
	{ID: 3, Name: "Utilities", Icon: "💡", Color: "#FFE66D"},
	{ID: 4, Name: "Entertainment", Icon: "🎬", Color: "#1A535C"},
	{ID: 5, Name: "Health", Icon: "🏥", Color: "#FF9F1C"},
	{ID: 6, Name: "Shopping", Icon: "🛍️", Color: "#2EC4B6"},
	{ID: 7, Name: "Housing", Icon: "🏠", Color: "#CBF3F0"},
	{ID: 8, Name: "Other", Icon: "📦", Color: "#A9DEF9"},
}

// Categories returns a copy of the category table in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories[:])
	return out
}

// CategoryByID looks up a category by id.
func CategoryByID(id int) (Category, bool) {
	for _, c := range categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}
