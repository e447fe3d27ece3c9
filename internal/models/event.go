package models

import "time"

// Event represents a loggable marketplace action.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "pitch.invest", "pitch.funded", "user.delete"
	Level     string    `json:"level"` // e.g., "info", "warn", "error"
	Message   string    `json:"message"`
	PitchID   *string   `json:"pitchId,omitempty"`
	UserID    *string   `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
