package models

import "github.com/google/uuid"

// Fixture is read-only reference data: a scheduled game a match can be
// opened against. Date and Time stay display-formatted strings; kickoff
// wall-clock time lives on the Match once one is opened.
type Fixture struct {
	ID       uuid.UUID `json:"id"`
	Opponent string    `json:"opponent"`
	HomeAway Side      `json:"home_away"`
	Venue    string    `json:"venue"`
	Date     string    `json:"date"`
	Time     string    `json:"time"`
}
