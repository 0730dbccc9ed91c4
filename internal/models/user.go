package models

import (
	"time"
)

// User is an account holder in the USERS file. Password holds the stored
// form: encrypted when the repository has an encryptor, plain otherwise.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	LastLogin time.Time `json:"last_login"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
}
