package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// User mirrors one row of the users table as exported. The password hash is a
// store-internal column and is never exported.
type User struct {
	ID        int64     `gorm:"column:id" json:"id"`
	FirstName string    `gorm:"column:first_name" json:"first_name"`
	LastName  string    `gorm:"column:last_name" json:"last_name"`
	Email     string    `gorm:"column:email" json:"email"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

// Order mirrors one order header row.
type Order struct {
	ID        int64     `gorm:"column:id" json:"id"`
	UserID    int64     `gorm:"column:user_id" json:"user_id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

// OrderItem mirrors one row of the order_items association table.
type OrderItem struct {
	OrderID int64 `gorm:"column:order_id" json:"order_id"`
	CarID   int64 `gorm:"column:car_id" json:"car_id"`
}

// Envelope is the unit carried on the export queue: one full snapshot of the
// four collections, taken as three independent reads. Referential consistency
// across the sequences is best-effort only; the consumer reads just the cars.
type Envelope struct {
	Users      []User      `json:"users"`
	Cars       []Car       `json:"cars"`
	Orders     []Order     `json:"orders"`
	OrderItems []OrderItem `json:"order_items"`
}

// Encode serializes the envelope to the UTF-8 JSON wire form. Timestamps and
// decimals render as strings; the encoding is display-oriented and one-way.
func (e *Envelope) Encode() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return body, nil
}

// DecodeEnvelope parses a queue message body back into an envelope.
func DecodeEnvelope(body []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	return &e, nil
}
