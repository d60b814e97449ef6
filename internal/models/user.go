package models

// User is the public profile row linked to an identity provider subject.
type User struct {
	ID       int64  `json:"id"`
	AuthID   string `json:"user_id"`
	Username string `json:"username"`
}
