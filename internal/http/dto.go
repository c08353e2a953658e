package http

import (
	"tracker/internal/core"
)

type CategoryDTO struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

type ExpenseDTO struct {
	ID              int64       `json:"id"`
	Amount          float64     `json:"amount"`
	AmountCents     int64       `json:"amountCents"`
	FormattedAmount string      `json:"formattedAmount"`
	Title           string      `json:"title"`
	Date            string      `json:"date"`
	CategoryID      *int        `json:"categoryId"`
	Category        CategoryDTO `json:"category"`
	CreatedAt       string      `json:"createdAt"`
}

type ListResponse struct {
	Items   []ExpenseDTO `json:"items"`
	Total   int          `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
	Version uint64       `json:"version"`
}

type SectionDTO struct {
	Title string       `json:"title"`
	Data  []ExpenseDTO `json:"data"`
}

type SectionsResponse struct {
	Sections []SectionDTO `json:"sections"`
	Version  uint64       `json:"version"`
}

// FlatResponse mixes header strings and ExpenseDTO objects in Data.
type FlatResponse struct {
	Data                []any  `json:"data"`
	StickyHeaderIndices []int  `json:"stickyHeaderIndices"`
	Version             uint64 `json:"version"`
}

type DraftDTO struct {
	Amount     string `json:"amount"`
	Title      string `json:"title"`
	Date       string `json:"date"`
	CategoryID *int   `json:"categoryId"`
}

type CategoryTotalDTO struct {
	Category        CategoryDTO `json:"category"`
	AmountCents     int64       `json:"amountCents"`
	FormattedAmount string      `json:"formattedAmount"`
	Count           int         `json:"count"`
}

type SummaryDTO struct {
	Currency            string             `json:"currency"`
	Locale              string             `json:"locale"`
	TotalCents          int64              `json:"totalCents"`
	FormattedTotal      string             `json:"formattedTotal"`
	Count               int                `json:"count"`
	MonthTotalCents     int64              `json:"monthTotalCents"`
	FormattedMonthTotal string             `json:"formattedMonthTotal"`
	Recent              []ExpenseDTO       `json:"recent"`
	ByCategory          []CategoryTotalDTO `json:"byCategory"`
}

type StatusDTO struct {
	Status  string `json:"status"`
	App     string `json:"app,omitempty"`
	Version string `json:"version,omitempty"`
	Locale  string `json:"locale,omitempty"`
}

func toCategoryDTO(c core.Category) CategoryDTO {
	return CategoryDTO{ID: c.ID, Name: c.Name, Icon: c.Icon, Color: c.Color}
}

func toExpenseDTO(e core.Expense, currency string) ExpenseDTO {
	return ExpenseDTO{
		ID:              e.ID,
		Amount:          e.Amount.Float(),
		AmountCents:     e.Amount.Cents,
		FormattedAmount: core.FormatAmount(e.Amount, currency),
		Title:           e.Title,
		Date:            core.FormatISO(e.Date),
		CategoryID:      e.CategoryID,
		Category:        toCategoryDTO(e.Category()),
		CreatedAt:       core.FormatISO(e.CreatedAt),
	}
}

func toExpenseDTOs(expenses []core.Expense, currency string) []ExpenseDTO {
	out := make([]ExpenseDTO, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseDTO(e, currency))
	}
	return out
}

func toSectionDTOs(sections []core.Section, currency string) []SectionDTO {
	out := make([]SectionDTO, 0, len(sections))
	for _, s := range sections {
		out = append(out, SectionDTO{Title: s.Title, Data: toExpenseDTOs(s.Data, currency)})
	}
	return out
}

func toFlatResponse(flat core.FlatList, currency string, version uint64) FlatResponse {
	data := make([]any, 0, len(flat.Data))
	for _, item := range flat.Data {
		if item.IsHeader() {
			data = append(data, item.Header)
			continue
		}
		data = append(data, toExpenseDTO(item.Expense, currency))
	}
	return FlatResponse{Data: data, StickyHeaderIndices: flat.StickyHeaderIndices, Version: version}
}

func toDraftDTO(d core.Draft) DraftDTO {
	return DraftDTO{Amount: d.Amount, Title: d.Title, Date: d.Date, CategoryID: d.CategoryID}
}

func toSummaryDTO(s core.Summary, currency, locale string) SummaryDTO {
	byCategory := make([]CategoryTotalDTO, 0, len(s.ByCategory))
	for _, c := range s.ByCategory {
		byCategory = append(byCategory, CategoryTotalDTO{
			Category:        toCategoryDTO(c.Category),
			AmountCents:     c.Amount.Cents,
			FormattedAmount: core.FormatAmount(c.Amount, currency),
			Count:           c.Count,
		})
	}
	return SummaryDTO{
		Currency:            currency,
		Locale:              locale,
		TotalCents:          s.Total.Cents,
		FormattedTotal:      core.FormatAmount(s.Total, currency),
		Count:               s.Count,
		MonthTotalCents:     s.MonthTotal.Cents,
		FormattedMonthTotal: core.FormatAmount(s.MonthTotal, currency),
		Recent:              toExpenseDTOs(s.Recent, currency),
		ByCategory:          byCategory,
	}
}
