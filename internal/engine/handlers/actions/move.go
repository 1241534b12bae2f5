package actions

import (
	"eternal-dungeon/internal/engine/handlers"
	"eternal-dungeon/internal/geometry"
	"eternal-dungeon/pkg/api"
)

// HandleMove сдвигает пешку. Смену комнаты заметит опрос подземелья.
func HandleMove(ctx handlers.Context, p api.MovePayload) (handlers.Result, error) {
	pos := ctx.Dungeon.MovePawn(geometry.Vector{X: p.Dx, Y: p.Dy, Z: p.Dz})
	return handlers.Result{MsgType: "MOVE", Position: &pos}, nil
}

// HandleTeleport ставит пешку в точку (бот прыгает в центр соседней комнаты)
func HandleTeleport(ctx handlers.Context, p api.PositionPayload) (handlers.Result, error) {
	pos := geometry.Vector{X: p.X, Y: p.Y, Z: p.Z}
	ctx.Dungeon.TeleportPawn(pos)
	return handlers.Result{MsgType: "MOVE", Position: &pos}, nil
}
