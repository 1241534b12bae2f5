package handlers

import (
	"errors"
	"fmt"

	"eternal-dungeon/pkg/api"
)

var ErrNoDungeon = errors.New("client is not attached to a dungeon")

// TypedHandlerFunc - это "чистый" хендлер, который работает с готовой структурой T
type TypedHandlerFunc[T api.Validator] func(ctx Context, payload T) (Result, error)

// EmptyHandlerFunc - хендлер, которому НЕ нужны данные (INIT)
type EmptyHandlerFunc func(ctx Context) (Result, error)

// WithPayload берет "чистый" хендлер и превращает его в стандартный HandlerFunc.
// Проверяет, что валидатор вернул нужный тип.
func WithPayload[T api.Validator](handler TypedHandlerFunc[T]) HandlerFunc {
	return func(ctx Context, raw api.Validator) (Result, error) {
		payload, ok := raw.(T)
		if !ok {
			var want T
			return Result{}, fmt.Errorf("unexpected payload %T, want %T", raw, want)
		}
		if ctx.Dungeon == nil {
			return Result{}, ErrNoDungeon
		}
		return handler(ctx, payload)
	}
}

// WithEmptyPayload - обертка для команд без данных
func WithEmptyPayload(handler EmptyHandlerFunc) HandlerFunc {
	return func(ctx Context, _ api.Validator) (Result, error) {
		return handler(ctx)
	}
}

// Registry сопоставляет действие клиента и хендлер
type Registry struct {
	handlers map[string]HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

func (r *Registry) Register(action string, h HandlerFunc) {
	r.handlers[action] = h
}

// Dispatch проверяет команду и вызывает хендлер ее действия
func (r *Registry) Dispatch(ctx Context, cmd api.ClientCommand) (Result, error) {
	payload, err := api.ValidateCommand(cmd)
	if err != nil {
		return Result{}, err
	}
	h, ok := r.handlers[cmd.Action]
	if !ok {
		return Result{}, fmt.Errorf("no handler for %q", cmd.Action)
	}
	return h(ctx, payload)
}
