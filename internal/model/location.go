package model

import "github.com/google/uuid"

// State is an emirate.
type State struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name"`
	Slug string    `json:"slug" db:"slug"`
}

// City is an area inside a state.
type City struct {
	ID      uuid.UUID `json:"id" db:"id"`
	StateID uuid.UUID `json:"state_id" db:"state_id"`
	Name    string    `json:"name" db:"name"`
	Slug    string    `json:"slug" db:"slug"`
}

type Treatment struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Name     string    `json:"name" db:"name"`
	Slug     string    `json:"slug" db:"slug"`
	Category *string   `json:"category,omitempty" db:"category"`
}
