package ws

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/racehub/internal/race"
	"github.com/vovakirdan/racehub/internal/storage"
)

func newTestServer(t *testing.T, cfg Config, store ResultStore) *httptest.Server {
	t.Helper()

	coord := race.NewCoordinator(race.DefaultCoordinatorConfig(), log.New(io.Discard))
	ctx, cancel := context.WithCancel(context.Background())
	coord.Start(ctx)

	srv := NewServer(cfg, coord, store, log.New(io.Discard))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/game"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readType reads frames until one with the wanted type arrives.
func readType(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if msg["type"] == want {
			return msg
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("WriteMessage() failed: %v", err)
	}
}

func TestServerLobbyAndRace(t *testing.T) {
	ts := newTestServer(t, DefaultConfig(), nil)

	host := dial(t, ts)
	info := readType(t, host, "lobbyInfo")
	if info["isHost"] != true || info["participantId"] != float64(0) {
		t.Fatalf("host lobbyInfo = %v", info)
	}

	guest := dial(t, ts)
	info = readType(t, guest, "lobbyInfo")
	if info["isHost"] != false || info["participantId"] != float64(1) {
		t.Fatalf("guest lobbyInfo = %v", info)
	}
	joined := readType(t, host, "playerJoined")
	if p := joined["participant"].(map[string]any); p["id"] != float64(1) {
		t.Errorf("playerJoined = %v", joined)
	}

	// Malformed frames are dropped and the connection stays usable.
	send(t, host, `not json`)
	send(t, host, `{"type":"setRounds","rounds":"lots"}`)
	send(t, host, `{"type":"setRounds","rounds":4}`)
	update := readType(t, guest, "updateLobbySettings")
	if cfg := update["configuration"].(map[string]any); cfg["rounds"] != float64(4) {
		t.Errorf("updateLobbySettings = %v", update)
	}

	send(t, host, `{"type":"requestStartGame"}`)
	start := readType(t, guest, "startGame")
	spawns := start["initialParticipants"].(map[string]any)
	if len(spawns) != 2 {
		t.Fatalf("initialParticipants = %v", spawns)
	}
	readType(t, host, "startGame")

	send(t, guest, `{"type":"playerUpdate","x":1.5,"y":2.5,"rotation":0.25}`)
	relay := readType(t, host, "playerUpdate")
	if relay["participantId"] != float64(1) || relay["x"] != 1.5 {
		t.Errorf("relay = %v", relay)
	}

	send(t, host, `{"type":"raceFinished"}`)
	send(t, guest, `{"type":"raceFinished"}`)
	results := readType(t, guest, "showResults")
	if rows := results["results"].([]any); len(rows) != 2 {
		t.Errorf("showResults = %v", results)
	}
}

func TestServerDisconnectBroadcast(t *testing.T) {
	ts := newTestServer(t, DefaultConfig(), nil)

	host := dial(t, ts)
	readType(t, host, "lobbyInfo")
	guest := dial(t, ts)
	readType(t, guest, "lobbyInfo")

	host.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	host.Close()

	gone := readType(t, guest, "playerDisconnected")
	if gone["participantId"] != float64(0) {
		t.Errorf("playerDisconnected = %v", gone)
	}
	promoted := readType(t, guest, "newHost")
	if promoted["hostId"] != float64(1) {
		t.Errorf("newHost = %v", promoted)
	}
}

func TestServerRejectsForeignOrigin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowedOrigins = []string{"https://race.example"}
	ts := newTestServer(t, cfg, nil)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/game"
	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}

	header.Set("Origin", "https://race.example")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Dial() with allowed origin failed: %v", err)
	}
	conn.Close()
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestServerHTTPAPI(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	elapsed := 42 * time.Second
	err = store.RecordRace(race.RaceRecord{
		RaceID:     "race-1",
		Rounds:     3,
		StartedAt:  start,
		FinishedAt: start.Add(time.Minute),
		Results:    []race.Result{{ID: 0, Name: "Player 0", Elapsed: &elapsed}},
	})
	if err != nil {
		t.Fatalf("RecordRace() failed: %v", err)
	}

	ts := newTestServer(t, DefaultConfig(), store)

	var health map[string]string
	if code := getJSON(t, ts.URL+"/health", &health); code != http.StatusOK || health["status"] != "ok" {
		t.Errorf("/health = %d %v", code, health)
	}

	var snap map[string]any
	if code := getJSON(t, ts.URL+"/api/session", &snap); code != http.StatusOK || snap["phase"] != "waiting" {
		t.Errorf("/api/session = %d %v", code, snap)
	}

	var races []raceJSON
	if code := getJSON(t, ts.URL+"/api/races?limit=5", &races); code != http.StatusOK {
		t.Fatalf("/api/races status = %d", code)
	}
	if len(races) != 1 || races[0].RaceID != "race-1" || races[0].DurationMs != 60000 {
		t.Errorf("/api/races = %+v", races)
	}

	var detail struct {
		RaceID  string       `json:"raceId"`
		Results []resultJSON `json:"results"`
	}
	if code := getJSON(t, ts.URL+"/api/races/race-1", &detail); code != http.StatusOK {
		t.Fatalf("/api/races/race-1 status = %d", code)
	}
	if len(detail.Results) != 1 || *detail.Results[0].Time != 42000 {
		t.Errorf("race detail = %+v", detail)
	}

	if code := getJSON(t, ts.URL+"/api/races/unknown", nil); code != http.StatusNotFound {
		t.Errorf("unknown race status = %d, want 404", code)
	}

	var board []leaderJSON
	if code := getJSON(t, ts.URL+"/api/leaderboard", &board); code != http.StatusOK {
		t.Fatalf("/api/leaderboard status = %d", code)
	}
	if len(board) != 1 || board[0].BestMs != 42000 {
		t.Errorf("/api/leaderboard = %+v", board)
	}
}

func TestServerAPIWithoutStore(t *testing.T) {
	ts := newTestServer(t, DefaultConfig(), nil)

	if code := getJSON(t, ts.URL+"/api/races", nil); code != http.StatusServiceUnavailable {
		t.Errorf("/api/races status = %d, want 503", code)
	}
}
