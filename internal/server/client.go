package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"eternal-dungeon/internal/engine"
	"eternal-dungeon/internal/engine/handlers"
	"eternal-dungeon/pkg/api"
	"eternal-dungeon/pkg/logger"
	"eternal-dungeon/pkg/utils"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Настройки WebSocket
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	snapshotWait   = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client - посредник между Websocket и подземельем
type Client struct {
	Service  *engine.DungeonService
	Registry *handlers.Registry
	Conn     *websocket.Conn

	Token    string
	Instance *engine.Instance

	events chan api.WorldEvent
	log    *logrus.Entry
}

func NewClient(service *engine.DungeonService, registry *handlers.Registry, conn *websocket.Conn) *Client {
	return &Client{
		Service:  service,
		Registry: registry,
		Conn:     conn,
		log:      logger.Component("client"),
	}
}

// readPump читает команды от клиента. Первая команда обязана быть INIT.
func (c *Client) readPump() {
	defer func() {
		if c.Token != "" {
			if !c.Service.Hub.Unregister(c.Token, c.events) {
				c.log.WithField("token", c.Token).Debug("Subscription already taken over by reconnect")
			}
			c.log.WithField("token", c.Token).Info("Client disconnected")
		}
		if err := c.Conn.Close(); err != nil {
			c.log.WithError(err).Debug("failed to close websocket connection")
		}
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.WithError(err).Warn("failed to set read deadline")
	}
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// 1. HANDSHAKE (INIT)
	if err := c.handshake(); err != nil {
		c.log.WithError(err).Warn("Handshake failed")
		// writePump еще не запущен, пишем напрямую
		_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.Conn.WriteJSON(api.WorldEvent{Type: api.EventError, Message: err.Error()})
		return
	}
	go c.writePump()

	// 2. ЦИКЛ ЧТЕНИЯ КОМАНД
	hctx := handlers.Context{DungeonID: c.Instance.ID, Token: c.Token, Dungeon: c.Instance}
	for {
		var cmd api.ClientCommand
		if err := c.Conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("WS read error")
			}
			return
		}
		cmd.Token = c.Token

		if cmd.Action == api.ActionInit {
			c.sendError(errors.New("already initialized"))
			continue
		}
		if _, err := c.Registry.Dispatch(hctx, cmd); err != nil {
			c.log.WithError(err).WithField("action", cmd.Action).Debug("Command rejected")
			c.sendError(err)
		}
	}
}

// handshake выбирает подземелье, подписывает клиента и шлет WELCOME и текущие комнаты
func (c *Client) handshake() error {
	var cmd api.ClientCommand
	if err := c.Conn.ReadJSON(&cmd); err != nil {
		return fmt.Errorf("read init: %w", err)
	}
	if cmd.Action != api.ActionInit {
		return fmt.Errorf("expected %s, got %q", api.ActionInit, cmd.Action)
	}
	payload, err := api.ValidateCommand(cmd)
	if err != nil {
		return err
	}

	inst, err := c.pickInstance(payload.(api.InitPayload).DungeonID)
	if err != nil {
		return err
	}
	c.Instance = inst

	c.Token = cmd.Token
	if c.Token == "" {
		c.Token = utils.GenerateID()
	}
	c.events = c.Service.Hub.Register(c.Token)

	res, err := c.Registry.Dispatch(handlers.Context{DungeonID: inst.ID, Token: c.Token, Dungeon: inst}, cmd)
	if err != nil {
		return err
	}
	c.Service.Hub.SendTo(c.Token, api.WorldEvent{
		Type:      api.EventWelcome,
		DungeonID: inst.ID,
		Token:     c.Token,
		Message:   res.Msg,
	})

	// Клиент, подключившийся позже, получает уже построенные комнаты
	ctx, cancel := context.WithTimeout(context.Background(), snapshotWait)
	defer cancel()
	snap, err := inst.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	for i := range snap.Rooms {
		room := snap.Rooms[i]
		c.Service.Hub.SendTo(c.Token, api.WorldEvent{
			Type:      api.EventRoomSpawned,
			DungeonID: inst.ID,
			RoomID:    room.ID,
			Room:      &room,
		})
	}

	c.log = c.log.WithFields(logrus.Fields{"token": c.Token, "dungeon": inst.ID})
	c.log.Info("Client logged in")
	return nil
}

func (c *Client) pickInstance(id int) (*engine.Instance, error) {
	if id == 0 {
		return c.Service.DefaultInstance(), nil
	}
	inst, ok := c.Service.Instance(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", engine.ErrUnknownInstance, id)
	}
	return inst, nil
}

func (c *Client) sendError(err error) {
	c.Service.Hub.SendTo(c.Token, api.WorldEvent{
		Type:      api.EventError,
		DungeonID: c.Instance.ID,
		Message:   err.Error(),
	})
}

// accepts - события своего подземелья (и адресные, без подземелья)
func (c *Client) accepts(evt api.WorldEvent) bool {
	return evt.DungeonID == 0 || evt.DungeonID == c.Instance.ID
}

// writePump отправляет события клиенту + Ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.Conn.Close(); err != nil {
			c.log.WithError(err).Debug("failed to close websocket connection in writePump")
		}
	}()

	for {
		select {
		case evt, ok := <-c.events:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("failed to set write deadline")
			}
			if !ok {
				// хаб закрыл канал: отписка или повторный вход с тем же токеном
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.log.WithError(err).Debug("write close message failed")
				}
				return
			}
			if !c.accepts(evt) {
				continue
			}
			if err := c.Conn.WriteJSON(evt); err != nil {
				c.log.WithError(err).Debug("write json message failed")
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("failed to set ping write deadline")
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}
