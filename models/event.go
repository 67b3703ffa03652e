package models

import (
	"encoding/json"
	"time"
)

// Event is a local change-feed row inserted in the same transaction as the
// mutation it describes. The UI tails this table to refresh views.
type Event struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Event     string          `gorm:"not null" json:"event"`
	Entity    string          `gorm:"not null" json:"entity"`
	Timestamp time.Time       `gorm:"not null" json:"timestamp"`
	Data      json.RawMessage `gorm:"type:text" json:"data"`
}

func NewEvent(event, entity string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		Event:     event,
		Entity:    entity,
		Timestamp: time.Now().UTC(),
		Data:      dataBytes,
	}, nil
}
