package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pitchside/matchday/internal/match/outbox"
	"github.com/pitchside/matchday/internal/models"
)

func newTestGateway(t *testing.T) (*ConnectionManager, *httptest.Server) {
	t.Helper()
	cm := NewConnectionManager(DefaultConnectionConfig())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go cm.Start(ctx)

	mux := http.NewServeMux()
	NewWebSocketHandler(cm).RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return cm, server
}

func dialWatcher(t *testing.T, server *httptest.Server, matchID uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/match?match_id=" + matchID.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing watcher: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForConnections(t *testing.T, cm *ConnectionManager, total int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if got, _ := cm.Stats(); got == total {
			return
		}
		if time.Now().After(deadline) {
			got, _ := cm.Stats()
			t.Fatalf("connections = %d, want %d", got, total)
		}
		time.Sleep(time.Millisecond)
	}
}

func goalEnvelope(matchID uuid.UUID) *outbox.Envelope {
	ev := models.MatchEvent{
		ID:      uuid.New(),
		TS:      time.Now().UnixMilli(),
		Type:    models.EventTypeGoal,
		Payload: models.MustMarshalPayload(models.GoalPayload{Side: models.SideHome, Scorer: "Mills"}),
	}
	return &outbox.Envelope{
		EventID:   ev.ID.String(),
		MatchID:   matchID.String(),
		EventType: string(ev.Type),
		Timestamp: time.Now().UTC(),
		Payload:   models.MustMarshalPayload(ev),
	}
}

func TestBroadcastReachesMatchWatchersOnly(t *testing.T) {
	cm, server := newTestGateway(t)
	matchID := uuid.New()
	otherID := uuid.New()

	watcher := dialWatcher(t, server, matchID)
	bystander := dialWatcher(t, server, otherID)
	waitForConnections(t, cm, 2)

	cm.BroadcastToMatch(matchID, goalEnvelope(matchID))

	watcher.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := watcher.ReadMessage()
	if err != nil {
		t.Fatalf("watcher read: %v", err)
	}
	var env outbox.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decoding broadcast: %v", err)
	}
	if env.EventType != string(models.EventTypeGoal) || env.MatchID != matchID.String() {
		t.Errorf("envelope = %+v", env)
	}

	// The other match's watcher hears nothing.
	bystander.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := bystander.ReadMessage(); err == nil {
		t.Error("bystander received a broadcast for a different match")
	}
}

func TestDisconnectPrunesPool(t *testing.T) {
	cm, server := newTestGateway(t)
	matchID := uuid.New()

	conn := dialWatcher(t, server, matchID)
	waitForConnections(t, cm, 1)

	conn.Close()
	waitForConnections(t, cm, 0)

	if _, matches := cm.Stats(); matches != 0 {
		t.Errorf("active matches = %d after disconnect, want 0", matches)
	}
}

func TestMatchConnectionRequiresValidID(t *testing.T) {
	_, server := newTestGateway(t)

	resp, err := http.Get(server.URL + "/ws/match")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing match_id status = %d, want 400", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/ws/match?match_id=nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad match_id status = %d, want 400", resp.StatusCode)
	}
}

func TestStatsEndpoint(t *testing.T) {
	cm, server := newTestGateway(t)
	dialWatcher(t, server, uuid.New())
	waitForConnections(t, cm, 1)

	resp, err := http.Get(server.URL + "/ws/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var stats struct {
		TotalConnections int `json:"total_connections"`
		ActiveMatches    int `json:"active_matches"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalConnections != 1 || stats.ActiveMatches != 1 {
		t.Errorf("stats = %+v, want 1/1", stats)
	}
}
