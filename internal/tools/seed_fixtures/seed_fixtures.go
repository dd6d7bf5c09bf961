package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pitchside/matchday/internal/dbconfig"
)

// Fixture mirrors the JSON snapshot structure
type Fixture struct {
	ID       string `json:"id"`
	Opponent string `json:"opponent"`
	HomeAway string `json:"home_away"`
	Venue    string `json:"venue"`
	Date     string `json:"date"`
	Time     string `json:"time"`
}

func main() {
	// 1) Load the JSON snapshot
	path := "internal/assets/fixtures.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read JSON: %v\n", err)
		os.Exit(1)
	}
	var fixtures []Fixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal JSON: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect to Postgres
	cfg := dbconfig.NewConfigFromEnv()
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Upsert each fixture
	for _, f := range fixtures {
		_, err := pool.Exec(ctx, `
			INSERT INTO fixtures (id, opponent, home_away, venue, date, time)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				opponent = EXCLUDED.opponent,
				home_away = EXCLUDED.home_away,
				venue = EXCLUDED.venue,
				date = EXCLUDED.date,
				time = EXCLUDED.time`,
			f.ID, f.Opponent, f.HomeAway, f.Venue, f.Date, f.Time,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "upsert fixture %s: %v\n", f.ID, err)
			os.Exit(1)
		}
	}

	fmt.Printf("seeded %d fixtures\n", len(fixtures))
}
