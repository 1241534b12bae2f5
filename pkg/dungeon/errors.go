package dungeon

import (
	"errors"
	"fmt"

	"eternal-dungeon/internal/catalog"
	"eternal-dungeon/internal/world"
)

var (
	// ErrMissingAsset - символьного имени нет в каталоге зоны
	ErrMissingAsset = catalog.ErrMissingAsset
	// ErrLoadFailure - директория ассета не дала класса
	ErrLoadFailure = catalog.ErrLoadFailure
	// ErrSpawnFailure - мир отказался создать объект
	ErrSpawnFailure = errors.New("spawn failure")
	// ErrUnexpectedYaw - угол вне таблицы четырех направлений
	ErrUnexpectedYaw = errors.New("unexpected yaw")
	// ErrCountMismatch - число коридоров не совпало с числом активных входов
	ErrCountMismatch = errors.New("corridor count does not match active entrances")
	// ErrNoWorldContext - мир еще не готов или уже закрыт
	ErrNoWorldContext = errors.New("no world context")
)

// worldError переводит ошибку мира в таксономию генератора.
func worldError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, world.ErrClosed):
		return fmt.Errorf("%s: %w", op, ErrNoWorldContext)
	case errors.Is(err, world.ErrUnknownClass):
		return fmt.Errorf("%s: %w: %v", op, ErrLoadFailure, err)
	default:
		return fmt.Errorf("%s: %w: %v", op, ErrSpawnFailure, err)
	}
}
