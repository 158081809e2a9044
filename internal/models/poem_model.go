package models

import "time"

type Poem struct {
	ID          string    `db:"id" json:"id"`
	Fingerprint string    `db:"words" json:"words"`
	Text        string    `db:"poem" json:"poem"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
