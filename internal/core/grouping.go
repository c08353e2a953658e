package core

import (
	"slices"
	"time"
)

const (
	TodayTitle     = "Today"
	YesterdayTitle = "Yesterday"

	// SectionDateLayout renders e.g. "January 01, 2023".
	SectionDateLayout = "January 02, 2006"
)

// Section is a run of expenses sharing one calendar-day label.
type Section struct {
	Title string
	Data  []Expense
}

// ItemKind tags a FlatItem.
type ItemKind int

const (
	ItemHeader ItemKind = iota
	ItemExpense
)

// FlatItem is either a section header label or an expense record.
type FlatItem struct {
	Kind    ItemKind
	Header  string
	Expense Expense
}

func (it FlatItem) IsHeader() bool { return it.Kind == ItemHeader }

// FlatList is the single-pass rendering form of a sectioned list.
// StickyHeaderIndices holds the positions in Data that are headers.
type FlatList struct {
	Data                []FlatItem
	StickyHeaderIndices []int
}

// SectionTitle labels t relative to now using now's location for calendar
// day boundaries: "Today", "Yesterday" or SectionDateLayout.
func SectionTitle(t, now time.Time) string {
	loc := now.Location()
	t = t.In(loc)
	switch {
	case sameDay(t, now):
		return TodayTitle
	case sameDay(t, now.AddDate(0, 0, -1)):
		return YesterdayTitle
	default:
		return t.Format(SectionDateLayout)
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// GroupByDate sorts a copy of expenses by date descending (stable) and buckets
// them by SectionTitle. Sections keep the order in which their label was first
// seen during that descending scan; they are never re-sorted.
func GroupByDate(expenses []Expense, now time.Time) []Section {
	if len(expenses) == 0 {
		return []Section{}
	}

	sorted := slices.Clone(expenses)
	slices.SortStableFunc(sorted, func(a, b Expense) int {
		return b.Date.Compare(a.Date)
	})

	sections := make([]Section, 0, 4)
	index := make(map[string]int)
	for _, e := range sorted {
		title := SectionTitle(e.Date, now)
		i, ok := index[title]
		if !ok {
			i = len(sections)
			index[title] = i
			sections = append(sections, Section{Title: title})
		}
		sections[i].Data = append(sections[i].Data, e)
	}
	return sections
}

// FlattenForList groups expenses and lays the sections out as
// header, members..., header, members... recording each header position.
func FlattenForList(expenses []Expense, now time.Time) FlatList {
	sections := GroupByDate(expenses, now)
	out := FlatList{
		Data:                make([]FlatItem, 0, len(expenses)+len(sections)),
		StickyHeaderIndices: make([]int, 0, len(sections)),
	}
	for _, s := range sections {
		out.StickyHeaderIndices = append(out.StickyHeaderIndices, len(out.Data))
		out.Data = append(out.Data, FlatItem{Kind: ItemHeader, Header: s.Title})
		for _, e := range s.Data {
			out.Data = append(out.Data, FlatItem{Kind: ItemExpense, Expense: e})
		}
	}
	return out
}
