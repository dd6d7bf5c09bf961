package main

import (
	"database/sql"

	"github.com/jonboulle/clockwork"

	"github.com/pitchside/matchday/internal/fixtures"
	"github.com/pitchside/matchday/internal/match"
)

type Services struct {
	Match    *match.Service
	Fixtures *fixtures.Service
}

func setupServices(database *sql.DB) *Services {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Service layer

	matchRepo := match.NewPostgresRepository(database)
	matchApp := match.NewApp(matchRepo, clockwork.NewRealClock())
	matchService := match.NewService(matchApp)

	fixturesRepo := fixtures.NewPostgresRepository(database)
	fixturesService := fixtures.NewService(fixturesRepo)

	return &Services{
		Match:    matchService,
		Fixtures: fixturesService,
	}
}
