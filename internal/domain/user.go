package domain

import "time"

// User is the domain model for people who submit tickets.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
