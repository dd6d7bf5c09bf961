package fixtures

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/pitchside/matchday/internal/models"
)

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

func newTestServer(t *testing.T, seed ...models.Fixture) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	NewService(NewMemoryRepository(seed...)).RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func getEnvelope(t *testing.T, url string) (int, envelope) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	return resp.StatusCode, env
}

func TestListFixtures(t *testing.T) {
	fixture := models.Fixture{
		ID:       uuid.New(),
		Opponent: "Riverside Rovers U12",
		HomeAway: models.SideHome,
		Venue:    "King George V Playing Fields",
		Date:     "2026-09-05",
		Time:     "10:30",
	}
	server := newTestServer(t, fixture)

	status, env := getEnvelope(t, server.URL+"/api/fixtures")
	if status != http.StatusOK || !env.OK {
		t.Fatalf("status %d, ok %v", status, env.OK)
	}
	var fixtures []models.Fixture
	if err := json.Unmarshal(env.Data, &fixtures); err != nil {
		t.Fatal(err)
	}
	if len(fixtures) != 1 || fixtures[0].ID != fixture.ID {
		t.Errorf("fixtures = %+v", fixtures)
	}
}

func TestGetFixture(t *testing.T) {
	fixture := models.Fixture{
		ID:       uuid.New(),
		Opponent: "Oakwood Athletic U12",
		HomeAway: models.SideAway,
	}
	server := newTestServer(t, fixture)

	status, env := getEnvelope(t, server.URL+"/api/fixtures/"+fixture.ID.String())
	if status != http.StatusOK || !env.OK {
		t.Fatalf("status %d, ok %v", status, env.OK)
	}
	var got models.Fixture
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Opponent != fixture.Opponent {
		t.Errorf("opponent = %q", got.Opponent)
	}
}

func TestGetFixtureErrors(t *testing.T) {
	server := newTestServer(t)

	status, env := getEnvelope(t, server.URL+"/api/fixtures/"+uuid.New().String())
	if status != http.StatusNotFound || env.OK {
		t.Errorf("unknown fixture: status %d, ok %v", status, env.OK)
	}
	if env.Error != ErrNotFound.Error() {
		t.Errorf("error text = %q", env.Error)
	}

	status, env = getEnvelope(t, server.URL+"/api/fixtures/not-a-uuid")
	if status != http.StatusBadRequest || env.OK {
		t.Errorf("bad id: status %d, ok %v", status, env.OK)
	}
}
