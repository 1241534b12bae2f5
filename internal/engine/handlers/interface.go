package handlers

import (
	"eternal-dungeon/internal/geometry"
	"eternal-dungeon/pkg/api"
)

// PawnController описывает подземелье, пешкой которого управляет клиент.
// *engine.Instance неявно реализует этот интерфейс.
type PawnController interface {
	MovePawn(delta geometry.Vector) geometry.Vector
	TeleportPawn(pos geometry.Vector)
}

// Context передает хендлеру подключение и подземелье
type Context struct {
	DungeonID int
	Token     string
	Dungeon   PawnController
}

// Result - возвращает результат выполнения команды.
// Хендлер НЕ пишет клиенту напрямую, он возвращает данные.
type Result struct {
	Msg     string // Текст для журнала клиента
	MsgType string // INFO, MOVE, ERROR

	// Position новая позиция пешки, если команда ее меняла
	Position *geometry.Vector
}

// HandlerFunc - контракт для любой команды (INIT, MOVE, TELEPORT).
// payload уже разобран и проверен api.ValidateCommand.
type HandlerFunc func(ctx Context, payload api.Validator) (Result, error)

// EmptyResult - вспомогательная функция для пустого успешного ответа
func EmptyResult() Result {
	return Result{}
}
