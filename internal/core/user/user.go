package user

import "github.com/gofrs/uuid"

type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Family    string    `json:"family"`
	Username  string    `json:"username"`
	Mobile    string    `json:"mobile"`
	Password  string    `json:"-"` // bcrypt hash
	CreatedAt int64     `json:"created_at"`
}
