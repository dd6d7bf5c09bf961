// Command live is a terminal client for a live match: watch mode renders
// the polled scoreboard and timeline, input mode records events from stdin.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pitchside/matchday/clients/matchapi"
	"github.com/pitchside/matchday/internal/live"
	"github.com/pitchside/matchday/internal/models"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	var (
		role      = flag.String("role", "watch", "session role: watch or input")
		baseURL   = flag.String("url", "http://localhost:8080", "match service base URL")
		matchID   = flag.String("match", "", "match ID to watch")
		fixtureID = flag.String("fixture", "", "fixture ID to open a match for (input role)")
		home      = flag.String("home", "", "home team label when opening")
		away      = flag.String("away", "", "away team label when opening")
	)
	flag.Parse()

	client := matchapi.NewClient(*baseURL)
	clock := clockwork.NewRealClock()

	// Cadence and backoff come from the shared config.yaml; a missing file
	// just means role defaults.
	cfg, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Debug().Err(err).Msg("could not load config file, using defaults")
		cfg = &Config{}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch live.Role(*role) {
	case live.RoleWatch:
		runWatch(ctx, client, clock, cfg.synchronizerConfig(live.RoleWatch), *matchID)
	case live.RoleInput:
		runInput(ctx, client, clock, cfg.synchronizerConfig(live.RoleInput), *fixtureID, *matchID, *home, *away)
	default:
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}
}

func runWatch(ctx context.Context, client *matchapi.Client, clock clockwork.Clock, syncCfg live.SynchronizerConfig, matchIDStr string) {
	id, err := uuid.Parse(matchIDStr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "watch role requires -match with a valid match ID")
		os.Exit(2)
	}

	session := live.NewSession(client, clock, syncCfg)
	defer session.Close()

	if _, err := session.Watch(ctx, id); err != nil {
		fmt.Fprintf(os.Stderr, "failed to attach: %v\n", err)
		os.Exit(1)
	}

	// The match clock's one-second tick drives the render loop.
	renderCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	session.Clock().Run(renderCtx, func(int) {
		printView(session)
		if session.View().StatusLabel() == live.StatusFullTime {
			cancel()
		}
	})
}

func runInput(ctx context.Context, client *matchapi.Client, clock clockwork.Clock, syncCfg live.SynchronizerConfig, fixtureIDStr, matchIDStr, home, away string) {
	session := live.NewSession(client, clock, syncCfg)
	defer session.Close()

	switch {
	case fixtureIDStr != "":
		fixtureID, err := uuid.Parse(fixtureIDStr)
		if err != nil {
			fmt.Fprintln(os.Stderr, "invalid fixture ID")
			os.Exit(2)
		}
		match, err := session.Open(ctx, fixtureID, matchapi.OpenMatchParams{
			Title:     fmt.Sprintf("%s vs %s", home, away),
			Home:      home,
			Away:      away,
			KickoffTS: time.Now().UnixMilli(),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open match: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("match open: %s\n", match.ID)
	case matchIDStr != "":
		// Resume scoring an already-open match.
		id, err := uuid.Parse(matchIDStr)
		if err != nil {
			fmt.Fprintln(os.Stderr, "invalid match ID")
			os.Exit(2)
		}
		if _, err := session.Watch(ctx, id); err != nil {
			fmt.Fprintf(os.Stderr, "failed to attach: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "input role requires -fixture (open) or -match (resume)")
		os.Exit(2)
	}

	fmt.Println(`commands: goal <side> <scorer> | yellow <side> <player> | red <side> <player> | sub <side> <player> | note <text> | ht | ft | view | close | quit`)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" {
			return
		}
		if line == "view" {
			printView(session)
			continue
		}
		if line == "close" {
			if _, err := session.EndMatch(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "close failed: %v\n", err)
				continue
			}
			fmt.Println("full-time, match closed")
			return
		}
		if err := recordCommand(ctx, session, line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

func recordCommand(ctx context.Context, session *live.Session, line string) error {
	form := session.Form()
	minute := 0
	if c := session.Clock(); c != nil {
		minute = c.Minute()
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "goal", "yellow", "red", "sub":
		if len(fields) < 3 {
			return fmt.Errorf("usage: %s <side> <name>", fields[0])
		}
		if err := form.SelectType(models.EventType(fields[0]), minute); err != nil {
			return err
		}
		form.SetSide(models.Side(fields[1]))
		name := strings.Join(fields[2:], " ")
		if fields[0] == "goal" {
			form.SetScorer(name)
		} else {
			form.SetPlayer(name)
		}
	case "note":
		if err := form.SelectType(models.EventTypeNote, minute); err != nil {
			return err
		}
		form.SetText(strings.TrimSpace(strings.TrimPrefix(line, "note")))
	case "ht":
		if err := form.SelectType(models.EventTypeHalfTime, minute); err != nil {
			return err
		}
	case "ft":
		if err := form.SelectType(models.EventTypeFullTime, minute); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}

	match, err := session.RecordEvent(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("recorded, %d events on the timeline\n", len(match.Timeline))
	return nil
}

func printView(session *live.Session) {
	view := session.View()
	home, away := view.Scoreboard()
	label := "0'"
	if c := session.Clock(); c != nil {
		label = c.Label()
	}
	banner := ""
	if view.GoalBannerVisible() {
		banner = "  GOAL!"
	}
	fmt.Printf("[%s %s] %d - %d%s\n", view.StatusLabel(), label, home, away, banner)
	for _, ev := range view.SortedTimeline() {
		fmt.Printf("  %s %s\n", view.EventMinuteLabel(ev), describeEvent(ev))
	}
}

func describeEvent(ev models.MatchEvent) string {
	payload, err := models.ParseEventPayload(&ev)
	if err != nil {
		return string(ev.Type)
	}
	switch p := payload.(type) {
	case models.GoalPayload:
		return fmt.Sprintf("goal (%s) %s", p.Side, p.Scorer)
	case models.CardPayload:
		return fmt.Sprintf("%s card (%s) %s", ev.Type, p.Side, p.Player)
	case models.SubPayload:
		return fmt.Sprintf("sub (%s) %s", p.Side, p.Player)
	case models.NotePayload:
		return fmt.Sprintf("note: %s", p.Text)
	default:
		return string(ev.Type)
	}
}
