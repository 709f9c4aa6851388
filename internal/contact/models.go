package contact

import "time"

type Contact struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Relationship string    `json:"relationship"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	// MinRequired contacts before emergency alerting is considered armed.
	MinRequired = 3
	// MaxAllowed contacts per user.
	MaxAllowed = 5
)
