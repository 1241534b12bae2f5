package api

import (
	"encoding/json"
)

// --- СЕРВЕР -> КЛИЕНТ ---

// Типы событий мира. Клиент (рендер или бот) восстанавливает сцену,
// применяя их по порядку.
const (
	EventWelcome         = "WELCOME"
	EventObjectSpawned   = "OBJECT_SPAWNED"
	EventObjectDestroyed = "OBJECT_DESTROYED"
	EventObjectScaled    = "OBJECT_SCALED"
	EventObjectMoved     = "OBJECT_MOVED"
	EventRoomSpawned     = "ROOM_SPAWNED"
	EventRoomDestroyed   = "ROOM_DESTROYED"
	EventRoomChanged     = "ROOM_CHANGED"
	EventPawnMoved       = "PAWN_MOVED"
	EventError           = "ERROR"
)

// WorldEvent это единственный тип сообщения сервер -> клиент.
// Заполнены только поля, относящиеся к конкретному Type.
type WorldEvent struct {
	// Type тип события (см. константы Event*).
	Type string `json:"type"`

	// DungeonID подземелье, в котором произошло событие.
	DungeonID int `json:"dungeonId"`

	// Token выдается клиенту в WELCOME, им подписываются команды.
	Token string `json:"token,omitempty"`

	// Handle ссылка на объект мира. Строкой: JS теряет точность на uint64.
	Handle uint64 `json:"handle,string,omitempty"`

	// Kind роль объекта: FLOOR, WALL, ENTRANCE, ROOF, PROP, PAWN.
	Kind string `json:"kind,omitempty"`

	// Class директория ассета, из которой загружен класс объекта.
	Class string `json:"class,omitempty"`

	Position *Vec3 `json:"position,omitempty"`
	Rotation *Rot3 `json:"rotation,omitempty"`
	Scale    *Vec3 `json:"scale,omitempty"`

	// RoomID комната, к которой относится событие (ROOM_*).
	RoomID int `json:"roomId,omitempty"`

	// Room описание комнаты для ROOM_SPAWNED.
	Room *RoomView `json:"room,omitempty"`

	// Message текст ошибки для ERROR.
	Message string `json:"message,omitempty"`
}

// Vec3 - точка в мировых координатах
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Rot3 - поворот в градусах
type Rot3 struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

// RoomView это DTO комнаты: достаточно, чтобы бот нашел центр соседней комнаты.
type RoomView struct {
	ID      int    `json:"id"`
	Tag     string `json:"tag"`
	Forward int    `json:"forward"`
	Right   int    `json:"right"`

	Origin Vec3 `json:"origin"`
	// Center центр зоны обнаружения игрока (туда телепортируется бот).
	Center Vec3 `json:"center"`

	Entrances []EntranceView `json:"entrances,omitempty"`
	Current   bool           `json:"current"`
}

// EntranceView - проем в стене
type EntranceView struct {
	Wall     int     `json:"wall"`
	Offset   int     `json:"offset"`
	Active   bool    `json:"active"`
	Position Vec3    `json:"position"`
	Yaw      float64 `json:"yaw"`
}

// --- КЛИЕНТ -> СЕРВЕР ---

// Действия клиента
const (
	ActionInit     = "INIT"
	ActionMove     = "MOVE"
	ActionTeleport = "TELEPORT"
)

// ClientCommand это корневой объект для всех сообщений от клиента к серверу.
type ClientCommand struct {
	// Token выданный в WELCOME. Для INIT не обязателен.
	Token string `json:"token,omitempty"`

	// Action название действия, которое нужно выполнить.
	Action string `json:"action"`

	// Payload JSON-объект с данными для действия. Его структура зависит от Action.
	Payload json.RawMessage `json:"payload"`
}

// --- Payloads ---

// InitPayload выбирает подземелье, к которому подключается клиент.
type InitPayload struct {
	DungeonID int `json:"dungeonId"`
}

// MovePayload - относительное смещение пешки игрока (MOVE).
type MovePayload struct {
	Dx float64 `json:"dx"`
	Dy float64 `json:"dy"`
	Dz float64 `json:"dz"`
}

// PositionPayload - абсолютная точка (TELEPORT).
type PositionPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}
