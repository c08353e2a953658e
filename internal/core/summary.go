package core

import (
	"slices"
	"time"
)

// RecentLimit is how many records the dashboard shows.
const RecentLimit = 5

// CategoryAmount is an amount aggregated by category.
type CategoryAmount struct {
	Category Category
	Amount   Money
	Count    int
}

// Summary is the dashboard view over the in-memory list.
type Summary struct {
	Total      Money
	Count      int
	MonthTotal Money // current calendar month in now's location
	Recent     []Expense
	ByCategory []CategoryAmount
}

// Summarize totals expenses. ByCategory follows the category table order,
// with Uncategorized last, and omits empty categories.
func Summarize(expenses []Expense, now time.Time) Summary {
	sorted := slices.Clone(expenses)
	slices.SortStableFunc(sorted, func(a, b Expense) int {
		return b.Date.Compare(a.Date)
	})

	s := Summary{Count: len(sorted), Recent: []Expense{}, ByCategory: []CategoryAmount{}}
	byID := make(map[int]*CategoryAmount)
	year, month, _ := now.Date()
	for _, e := range sorted {
		s.Total = s.Total.Add(e.Amount)
		if y, m, _ := e.Date.In(now.Location()).Date(); y == year && m == month {
			s.MonthTotal = s.MonthTotal.Add(e.Amount)
		}
		c := e.Category()
		agg, ok := byID[c.ID]
		if !ok {
			agg = &CategoryAmount{Category: c}
			byID[c.ID] = agg
		}
		agg.Amount = agg.Amount.Add(e.Amount)
		agg.Count++
	}

	n := min(RecentLimit, len(sorted))
	s.Recent = append(s.Recent, sorted[:n]...)

	for _, c := range append(Categories(), Uncategorized) {
		if agg, ok := byID[c.ID]; ok {
			s.ByCategory = append(s.ByCategory, *agg)
		}
	}
	return s
}
