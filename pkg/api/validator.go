package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// MaxMoveStep - максимальное смещение за одну команду MOVE (две клетки по 400).
const MaxMoveStep = 800

// Validator - интерфейс, который могут реализовать DTO
type Validator interface {
	Validate() error
}

func (p InitPayload) Validate() error {
	if p.DungeonID < 0 {
		return errors.New("dungeonId cannot be negative")
	}
	return nil
}

func (p MovePayload) Validate() error {
	if !finite(p.Dx, p.Dy, p.Dz) {
		return errors.New("movement vector must be finite")
	}
	if p.Dx == 0 && p.Dy == 0 && p.Dz == 0 {
		return errors.New("movement vector cannot be zero")
	}
	if math.Sqrt(p.Dx*p.Dx+p.Dy*p.Dy+p.Dz*p.Dz) > MaxMoveStep {
		return errors.New("movement step too large")
	}
	return nil
}

func (p PositionPayload) Validate() error {
	if !finite(p.X, p.Y, p.Z) {
		return errors.New("position must be finite")
	}
	return nil
}

// ValidateCommand проверяет действие и разбирает Payload в соответствующий DTO.
// Возвращает уже провалидированный payload, чтобы обработчик не парсил его повторно.
func ValidateCommand(cmd ClientCommand) (Validator, error) {
	var payload Validator
	switch cmd.Action {
	case ActionInit:
		var p InitPayload
		if len(cmd.Payload) > 0 {
			if err := json.Unmarshal(cmd.Payload, &p); err != nil {
				return nil, fmt.Errorf("bad %s payload: %w", cmd.Action, err)
			}
		}
		payload = p
	case ActionMove:
		var p MovePayload
		if err := json.Unmarshal(cmd.Payload, &p); err != nil {
			return nil, fmt.Errorf("bad %s payload: %w", cmd.Action, err)
		}
		payload = p
	case ActionTeleport:
		var p PositionPayload
		if err := json.Unmarshal(cmd.Payload, &p); err != nil {
			return nil, fmt.Errorf("bad %s payload: %w", cmd.Action, err)
		}
		payload = p
	default:
		return nil, fmt.Errorf("unknown action %q", cmd.Action)
	}

	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", cmd.Action, err)
	}
	return payload, nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
