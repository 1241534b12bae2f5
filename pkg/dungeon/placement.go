package dungeon

import (
	"fmt"
	"math"
	"math/rand"

	"eternal-dungeon/internal/geometry"
	"eternal-dungeon/pkg/utils"
)

// Допуск при сопоставлении yaw с таблицами направлений
const yawTolerance = 0.1

// canonicalYaws - четыре направления сетки
var canonicalYaws = [4]float64{0, 90, 180, -90}

// matchYaw приводит yaw к одному из четырех направлений.
func matchYaw(yaw float64) (float64, bool) {
	n := geometry.NormalizeAxis(yaw)
	for _, c := range canonicalYaws {
		if geometry.IsNearlyEqual(n, c, yawTolerance) {
			return c, true
		}
	}
	// 180 и -180 - одно направление
	if geometry.IsNearlyEqual(n, -180, yawTolerance) {
		return 180, true
	}
	return 0, false
}

// CorridorConfig - размеры коридора и сдвиг его начала относительно входа
type CorridorConfig struct {
	Forward int
	Right   int
	Offset  geometry.Vector
}

// CorridorConfigFor выбирает размеры коридора по yaw входа.
// Начало коридора = позиция входа - Offset.
func CorridorConfigFor(yaw float64, randomWalls int, unit float64) (CorridorConfig, error) {
	key, ok := matchYaw(yaw)
	if !ok {
		return CorridorConfig{}, fmt.Errorf("%w: corridor for yaw %.3f", ErrUnexpectedYaw, yaw)
	}
	rw := float64(randomWalls)
	switch key {
	case 0:
		return CorridorConfig{Forward: 1, Right: randomWalls, Offset: geometry.Vec(0, unit*rw, 0)}, nil
	case 90:
		return CorridorConfig{Forward: randomWalls, Right: 1, Offset: geometry.Vec(-unit/2, unit/2, 0)}, nil
	case 180:
		return CorridorConfig{Forward: 1, Right: randomWalls, Offset: geometry.ZeroVector}, nil
	default: // -90
		return CorridorConfig{Forward: randomWalls, Right: 1, Offset: geometry.Vec(unit*rw-unit/2, unit/2, 0)}, nil
	}
}

// EntranceDirection - ось Y поворота входа (не ось X, как при обходе стен)
func EntranceDirection(rot geometry.Rotator) geometry.Vector {
	return rot.AxisY()
}

// OffsetDistance - длина коридора: max(f, r) * L
func OffsetDistance(fp Footprint) float64 {
	return math.Max(float64(fp.Forward)*fp.UnitLength, float64(fp.Right)*fp.UnitLength)
}

// NewLocation - точка на дальнем конце коридора
func NewLocation(entrancePos, dir geometry.Vector, distance float64) geometry.Vector {
	return entrancePos.Sub(dir.Scale(distance))
}

// ReflectYaw - yaw ответного входа новой комнаты: 0<->180, 90<->-90
func ReflectYaw(yaw float64) (float64, error) {
	key, ok := matchYaw(yaw)
	if !ok {
		return 0, fmt.Errorf("%w: reflect %.3f", ErrUnexpectedYaw, yaw)
	}
	switch key {
	case 0:
		return 180, nil
	case 90:
		return -90, nil
	case 180:
		return 0, nil
	default:
		return 90, nil
	}
}

// RandomRangeValue - индекс ответного входа на стороне новой комнаты:
// n - RandRange(1, n-1), где n - Forward для 0/180 и Right для ±90.
func RandomRangeValue(rng *rand.Rand, fp Footprint, yaw float64) (int, error) {
	adjusted := math.Mod(math.Abs(yaw), 360)
	var n int
	switch {
	case geometry.IsNearlyEqual(adjusted, 0, yawTolerance), geometry.IsNearlyEqual(adjusted, 180, yawTolerance),
		geometry.IsNearlyEqual(adjusted, 360, yawTolerance):
		n = fp.Forward
	case geometry.IsNearlyEqual(adjusted, 90, yawTolerance), geometry.IsNearlyEqual(adjusted, 270, yawTolerance):
		n = fp.Right
	default:
		return 0, fmt.Errorf("%w: range value for yaw %.3f", ErrUnexpectedYaw, yaw)
	}
	return n - utils.RandRange(rng, 1, n-1), nil
}

// AdjustVector - сдвиг от ответного входа к началу координат новой комнаты.
// Yaw вне таблицы дает нулевой сдвиг и ErrUnexpectedYaw.
func AdjustVector(fp Footprint, entranceOffset int, yaw float64) (geometry.Vector, error) {
	key, ok := matchYaw(yaw)
	if !ok {
		return geometry.ZeroVector, fmt.Errorf("%w: adjust for yaw %.3f", ErrUnexpectedYaw, yaw)
	}
	l := fp.UnitLength
	f := float64(fp.Forward)
	r := float64(fp.Right)
	id := float64(entranceOffset)

	switch key {
	case 0:
		return geometry.Vec((f-id-1)*l, 0, 0), nil
	case 90:
		return geometry.Vec(f*l-l/2, id*l+l/2, 0), nil
	case 180:
		return geometry.Vec((f-id-1)*l, r*l, 0), nil
	default: // -90
		return geometry.Vec(-l/2, (r-id)*l-l/2, 0), nil
	}
}
