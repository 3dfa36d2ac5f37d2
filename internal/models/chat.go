// internal/models/chat.go
package models

// ChatMessage is an ephemeral chat broadcast. It is never part of the
// persisted snapshot and is not replayed to late joiners.
type ChatMessage struct {
	ID        string `json:"id"`
	TeamID    string `json:"teamId"`
	TeamName  string `json:"teamName"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	TeamColor string `json:"teamColor"`
}

// Reaction is the ephemeral payload fanned out when a team hits a
// reaction button.
type Reaction struct {
	Type      string `json:"type"`
	TeamID    string `json:"teamId"`
	TeamName  string `json:"teamName"`
	TeamColor string `json:"teamColor"`
}

// MediaCue asks every screen to play a piece of media. Fire-and-forget.
type MediaCue struct {
	Type     string `json:"type"`
	URL      string `json:"url"`
	Duration int    `json:"duration,omitempty"`
}
