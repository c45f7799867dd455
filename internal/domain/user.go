package domain

import "time"

// User is the domain model for registered accounts.
//
// Password is stored and compared in plain text to preserve the behavior of
// the persisted layout. Any productionization must replace this with salted
// hashing before the record ever reaches durable storage.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	CreatedAt time.Time `json:"createdAt"`
}
