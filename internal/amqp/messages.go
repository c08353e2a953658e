package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names a change to the expense list.
type EventType string

const (
	EventExpenseCreated  EventType = "expense.created"
	EventExpensesCleared EventType = "expenses.cleared"
)

// ExpenseEvent is a lightweight notification; consumers re-read the store
// for details.
type ExpenseEvent struct {
	Type      EventType `json:"type"`
	ID        int64     `json:"id,omitempty"`
	Count     int64     `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseCreatedEvent(id int64) *ExpenseEvent {
	return &ExpenseEvent{
		Type:      EventExpenseCreated,
		ID:        id,
		Timestamp: time.Now(),
	}
}

func NewExpensesClearedEvent(count int64) *ExpenseEvent {
	return &ExpenseEvent{
		Type:      EventExpensesCleared,
		Count:     count,
		Timestamp: time.Now(),
	}
}

func (e *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ExpenseEventFromJSON decodes an event and rejects unknown types.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var e ExpenseEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Type {
	case EventExpenseCreated, EventExpensesCleared:
		return &e, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
}
