package http

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketLeaderboardStream(t *testing.T) {
	server := newTestServer(t)
	server.seed(t)

	u := "ws" + server.URL[len("http"):] + "/ws/leaderboard"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Initial snapshot arrives before any solve.
	initial := readFrame(conn, t)
	if initial.Payload.Rows[0].StudentID != "bob" {
		t.Fatalf("unexpected initial snapshot: %+v", initial.Payload.Rows)
	}

	// A first solve broadcasts a fresh ranking.
	resp := postJSON(t, server.URL+"/api/submissions", map[string]string{
		"studentId": "alice", "questionId": "q1", "code": "x", "language": "python",
	})
	resp.Body.Close()

	update := readFrame(conn, t)
	if update.Payload.Rows[0].StudentID != "alice" {
		t.Fatalf("expected alice to lead after solving, got %+v", update.Payload.Rows)
	}
}

func readFrame(conn *websocket.Conn, t *testing.T) outboundMessage {
	t.Helper()
	var msg outboundMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != "leaderboard" {
		t.Fatalf("expected leaderboard frame, got %s", msg.Type)
	}
	return msg
}
