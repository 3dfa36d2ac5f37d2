// internal/models/history.go
package models

import "sort"

// TeamScore is one team's round score inside a history entry.
type TeamScore struct {
	TeamID   string `json:"teamId"`
	TeamName string `json:"teamName"`
	Score    int    `json:"score"`
}

// GameHistoryEntry records one finished round. Entries are immutable once
// appended and are stored in team join order, not ranked.
type GameHistoryEntry struct {
	ID        string      `json:"id"`
	GameType  string      `json:"gameType"`
	Timestamp int64       `json:"timestamp"`
	Scores    []TeamScore `json:"scores"`
}

// RankedScores returns a copy of the entry's scores sorted by descending
// score. Ranking happens at read time; the stored order stays untouched.
func (e GameHistoryEntry) RankedScores() []TeamScore {
	ranked := make([]TeamScore, len(e.Scores))
	copy(ranked, e.Scores)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
