package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eternal-dungeon/internal/engine/enginetest"
	"eternal-dungeon/pkg/api"
	"eternal-dungeon/pkg/dungeon"
	"eternal-dungeon/pkg/logger"

	"github.com/gorilla/websocket"
)

func init() {
	logger.Log.SetOutput(io.Discard)
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(enginetest.Service(t, 2024), "0")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, action string, payload any) {
	t.Helper()
	raw, _ := json.Marshal(payload)
	if err := conn.WriteJSON(api.ClientCommand{Action: action, Payload: raw}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
}

// readUntil читает события, пока не придет событие нужного типа
func readUntil(t *testing.T, conn *websocket.Conn, eventType string, seen func(api.WorldEvent)) api.WorldEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var evt api.WorldEvent
		if err := conn.ReadJSON(&evt); err != nil {
			t.Fatalf("Ожидалось событие %s: %v", eventType, err)
		}
		if seen != nil {
			seen(evt)
		}
		if evt.Type == eventType {
			return evt
		}
	}
}

func TestHealthAndVersion(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("/health: %d %q", resp.StatusCode, body)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS заголовок не выставлен")
	}

	resp, err = http.Get(ts.URL + "/version")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var info map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode /version: %v", err)
	}
	if _, ok := info["buildId"]; !ok {
		t.Errorf("/version без buildId: %v", info)
	}
}

func TestWebSocket_InitAndTeleport(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts)

	// 1. INIT -> WELCOME и комнаты подземелья
	send(t, conn, api.ActionInit, api.InitPayload{})
	welcome := readUntil(t, conn, api.EventWelcome, nil)
	if welcome.Token == "" || welcome.DungeonID != 1 {
		t.Fatalf("WELCOME: %+v", welcome)
	}

	rooms := map[int]api.RoomView{}
	collect := func(evt api.WorldEvent) {
		if evt.Type == api.EventRoomSpawned && evt.Room != nil {
			rooms[evt.Room.ID] = *evt.Room
		}
		if evt.DungeonID != 0 && evt.DungeonID != 1 {
			t.Errorf("Событие чужого подземелья: %+v", evt)
		}
	}
	// снимок отправляется после WELCOME; стартовая комната и хотя бы одна соседняя
	for len(rooms) < 2 {
		readUntil(t, conn, api.EventRoomSpawned, collect)
	}

	var target api.RoomView
	for id, r := range rooms {
		if id != 1 {
			target = r
			break
		}
	}

	// 2. TELEPORT в соседнюю комнату -> ROOM_CHANGED
	send(t, conn, api.ActionTeleport, api.PositionPayload{X: target.Center.X, Y: target.Center.Y, Z: target.Center.Z})
	changed := readUntil(t, conn, api.EventRoomChanged, nil)
	if changed.RoomID == 1 {
		t.Errorf("ROOM_CHANGED в стартовую комнату: %+v", changed)
	}

	// 3. Невалидная команда -> ERROR, соединение живо
	send(t, conn, api.ActionMove, api.MovePayload{})
	errEvt := readUntil(t, conn, api.EventError, nil)
	if !strings.Contains(errEvt.Message, "zero") {
		t.Errorf("Ожидалась ошибка нулевого шага, получено %q", errEvt.Message)
	}
	send(t, conn, api.ActionMove, api.MovePayload{Dx: 10})
	readUntil(t, conn, api.EventPawnMoved, nil)
}

func TestWebSocket_ReconnectSameToken(t *testing.T) {
	srv, ts := newTestServer(t)
	initWith := func(conn *websocket.Conn) {
		raw, _ := json.Marshal(api.InitPayload{})
		if err := conn.WriteJSON(api.ClientCommand{Action: api.ActionInit, Token: "viewer", Payload: raw}); err != nil {
			t.Fatalf("WriteJSON: %v", err)
		}
		if w := readUntil(t, conn, api.EventWelcome, nil); w.Token != "viewer" {
			t.Fatalf("WELCOME: %+v", w)
		}
	}

	// 1. Второе соединение с тем же токеном вытесняет первое
	old := dial(t, ts)
	initWith(old)
	fresh := dial(t, ts)
	initWith(fresh)

	_ = old.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var evt api.WorldEvent
		if err := old.ReadJSON(&evt); err != nil {
			break
		}
	}
	old.Close()
	// старый readPump успевает отработать свой defer
	time.Sleep(100 * time.Millisecond)

	// 2. Закрытие старого сокета не отписывает новое соединение
	if !srv.Service.Hub.HasSubscriber("viewer") {
		t.Fatal("new connection lost its subscription")
	}
	send(t, fresh, api.ActionMove, api.MovePayload{Dx: 10})
	readUntil(t, fresh, api.EventPawnMoved, nil)
}

func TestWebSocket_HandshakeErrors(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name    string
		action  string
		payload any
		want    string
	}{
		{"not init", api.ActionMove, api.MovePayload{Dx: 1}, "expected INIT"},
		{"unknown dungeon", api.ActionInit, api.InitPayload{DungeonID: 99}, "unknown dungeon"},
		{"negative dungeon", api.ActionInit, api.InitPayload{DungeonID: -1}, "negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := dial(t, ts)
			send(t, conn, tt.action, tt.payload)

			evt := readUntil(t, conn, api.EventError, nil)
			if !strings.Contains(evt.Message, tt.want) {
				t.Errorf("Сообщение %q не содержит %q", evt.Message, tt.want)
			}
			// сервер закрывает соединение
			var next api.WorldEvent
			if err := conn.ReadJSON(&next); err == nil {
				t.Errorf("Соединение должно быть закрыто, пришло %+v", next)
			}
		})
	}
}

func TestDebugEndpoints(t *testing.T) {
	srv, ts := newTestServer(t)
	inst := srv.Service.CreateInstance()
	if err := inst.WaitIdle(context.Background()); err != nil {
		t.Fatal(err)
	}

	// 1. Список подземелий
	resp, err := http.Get(ts.URL + "/debug/dungeons")
	if err != nil {
		t.Fatal(err)
	}
	var list []DungeonSummary
	json.NewDecoder(resp.Body).Decode(&list)
	resp.Body.Close()
	if len(list) != 1 || list[0].ID != inst.ID || list[0].Seed != 2025 || list[0].Rooms < 2 || list[0].Tasks == 0 {
		t.Errorf("/debug/dungeons: %+v", list)
	}

	// 2. Граф комнат
	resp, err = http.Get(ts.URL + "/debug/rooms?dungeon=1")
	if err != nil {
		t.Fatal(err)
	}
	var snap dungeon.Snapshot
	json.NewDecoder(resp.Body).Decode(&snap)
	resp.Body.Close()
	if snap.State != "SETTLED" || snap.CurrentRoom != 1 {
		t.Errorf("/debug/rooms: state=%s current=%d", snap.State, snap.CurrentRoom)
	}

	// 3. Ошибки запроса
	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/debug/rooms?dungeon=9", http.StatusNotFound},
		{http.MethodGet, "/debug/rooms?dungeon=x", http.StatusBadRequest},
		{http.MethodGet, "/debug/journal?dungeon=1", http.StatusOK},
		{http.MethodGet, "/debug/hub", http.StatusOK},
		{http.MethodGet, "/debug/reload", http.StatusMethodNotAllowed},
		{http.MethodPost, "/debug/reload", http.StatusConflict},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(tt.method, ts.URL+tt.path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.status {
			t.Errorf("%s %s: %d, ожидалось %d", tt.method, tt.path, resp.StatusCode, tt.status)
		}
	}
}
