package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"eternal-dungeon/pkg/api"
	"eternal-dungeon/pkg/logger"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"
)

// Walker - безголовый клиент: подключается к серверу так же, как рендер,
// восстанавливает из событий список комнат и прыгает в центр соседней комнаты.
//
// Жизненный цикл:
//  1. Run -> Dial, INIT, ожидание WELCOME.
//  2. Каждые Interval: если прошлый прыжок подтвержден ROOM_CHANGED, TELEPORT в соседа.
//  3. Выход после Steps смен комнаты, по отмене ctx или при закрытии соединения.
type Walker struct {
	URL       string
	DungeonID int
	Interval  time.Duration
	// Steps - сколько смен комнаты пройти (0 - без ограничения)
	Steps int
	// Patience - сколько ждать ROOM_CHANGED, прежде чем прыгнуть снова
	Patience time.Duration

	rng *rand.Rand
	log *logrus.Entry

	token   string
	rooms   map[int]api.RoomView
	current int
	pending time.Time
	stats   Stats
}

// Stats - итог прогулки
type Stats struct {
	Token     string
	DungeonID int
	Changes   int
	Teleports int
	Errors    int
	Visited   []int
}

func NewWalker(url string, dungeonID int, seed int64) *Walker {
	return &Walker{
		URL:       url,
		DungeonID: dungeonID,
		Interval:  500 * time.Millisecond,
		Patience:  3 * time.Second,
		rng:       rand.New(rand.NewSource(seed)),
		log:       logger.Component("walker"),
		rooms:     make(map[int]api.RoomView),
	}
}

// Run гуляет по подземелью. Блокирующий вызов.
func (w *Walker) Run(ctx context.Context) (Stats, error) {
	conn, _, err := websocket.Dial(ctx, w.URL, nil)
	if err != nil {
		return w.stats, fmt.Errorf("dial %s: %w", w.URL, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	conn.SetReadLimit(1 << 20)

	payload, _ := json.Marshal(api.InitPayload{DungeonID: w.DungeonID})
	if err := wsjson.Write(ctx, conn, api.ClientCommand{Action: api.ActionInit, Payload: payload}); err != nil {
		return w.stats, fmt.Errorf("send init: %w", err)
	}

	events := make(chan api.WorldEvent, 256)
	readErr := make(chan error, 1)
	go func() {
		defer close(events)
		for {
			var evt api.WorldEvent
			if err := wsjson.Read(ctx, conn, &evt); err != nil {
				readErr <- err
				return
			}
			select {
			case events <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return w.stats, ctx.Err()

		case evt, ok := <-events:
			if !ok {
				err := <-readErr
				if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
					return w.stats, nil
				}
				return w.stats, fmt.Errorf("connection lost: %w", err)
			}
			if err := w.apply(evt); err != nil {
				return w.stats, err
			}
			if w.Steps > 0 && w.stats.Changes >= w.Steps {
				w.log.WithField("visited", w.stats.Visited).Info("Walk finished")
				return w.stats, nil
			}

		case <-ticker.C:
			if err := w.step(ctx, conn); err != nil {
				return w.stats, err
			}
		}
	}
}

// apply обновляет картину мира по событию
func (w *Walker) apply(evt api.WorldEvent) error {
	switch evt.Type {
	case api.EventWelcome:
		w.token = evt.Token
		w.stats.Token = evt.Token
		w.stats.DungeonID = evt.DungeonID
		w.log = w.log.WithFields(logrus.Fields{"token": evt.Token, "dungeon": evt.DungeonID})
		w.log.Info("Walker joined")

	case api.EventRoomSpawned:
		if evt.Room == nil {
			return nil
		}
		w.rooms[evt.Room.ID] = *evt.Room
		if evt.Room.Current && w.current == 0 {
			w.current = evt.Room.ID
			w.stats.Visited = append(w.stats.Visited, evt.Room.ID)
		}

	case api.EventRoomDestroyed:
		delete(w.rooms, evt.RoomID)

	case api.EventRoomChanged:
		if evt.RoomID == w.current {
			return nil
		}
		w.current = evt.RoomID
		w.pending = time.Time{}
		w.stats.Changes++
		w.stats.Visited = append(w.stats.Visited, evt.RoomID)
		w.log.WithField("room_id", evt.RoomID).Debug("Entered room")

	case api.EventError:
		w.stats.Errors++
		if w.token == "" {
			return fmt.Errorf("handshake rejected: %s", evt.Message)
		}
		w.log.WithField("message", evt.Message).Warn("Server rejected command")
	}
	return nil
}

// step прыгает в соседнюю комнату, если прошлый прыжок уже подтвержден
func (w *Walker) step(ctx context.Context, conn *websocket.Conn) error {
	if w.token == "" {
		return nil
	}
	if !w.pending.IsZero() && time.Since(w.pending) < w.Patience {
		return nil
	}

	target, ok := w.pickNeighbour()
	if !ok {
		return nil
	}

	payload, _ := json.Marshal(api.PositionPayload{X: target.Center.X, Y: target.Center.Y, Z: target.Center.Z})
	cmd := api.ClientCommand{Token: w.token, Action: api.ActionTeleport, Payload: payload}
	if err := wsjson.Write(ctx, conn, cmd); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("send teleport: %w", err)
	}
	w.pending = time.Now()
	w.stats.Teleports++
	w.log.WithField("room_id", target.ID).Debug("Teleporting")
	return nil
}

// pickNeighbour - случайная комната, кроме текущей. Порядок по id, чтобы выбор зависел только от сида.
func (w *Walker) pickNeighbour() (api.RoomView, bool) {
	ids := make([]int, 0, len(w.rooms))
	for id := range w.rooms {
		if id != w.current {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return api.RoomView{}, false
	}
	sort.Ints(ids)
	return w.rooms[ids[w.rng.Intn(len(ids))]], true
}
