package actions

import (
	"fmt"

	"eternal-dungeon/internal/engine/handlers"
	"eternal-dungeon/pkg/api"
)

// Register подключает все действия клиента
func Register(r *handlers.Registry) {
	r.Register(api.ActionInit, handlers.WithEmptyPayload(HandleInit))
	r.Register(api.ActionMove, handlers.WithPayload(HandleMove))
	r.Register(api.ActionTeleport, handlers.WithPayload(HandleTeleport))
}

// NewRegistry - реестр со всеми действиями
func NewRegistry() *handlers.Registry {
	r := handlers.NewRegistry()
	Register(r)
	return r
}

func HandleInit(ctx handlers.Context) (handlers.Result, error) {
	return handlers.Result{
		Msg:     fmt.Sprintf("Добро пожаловать в подземелье %d.", ctx.DungeonID),
		MsgType: "INFO",
	}, nil
}
