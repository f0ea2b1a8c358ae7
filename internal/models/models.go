package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Turn is one stored message of a user's conversation. UserID is the
// account id rendered as a string; no foreign key ties the two together.
type Turn struct {
	UserID    string    `json:"-" bson:"user_id"`
	Role      string    `json:"role" bson:"role"` // user or assistant
	Content   string    `json:"content" bson:"content"`
	CreatedAt time.Time `json:"timestamp" bson:"timestamp"`
}
