package geometry

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vector - точка или направление в мировых координатах (единицы движка, 1 = 1 см).
// Арифметика идет через mgl64.Vec3, сама структура держит JSON-форму протокола.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ZeroVector - начало координат
var ZeroVector = Vector{}

// Vec - короткий конструктор, чтобы таблицы смещений читались построчно
func Vec(x, y, z float64) Vector {
	return Vector{X: x, Y: y, Z: z}
}

// FromVec3 переводит вектор mgl64 обратно в мировой
func FromVec3(v mgl64.Vec3) Vector {
	return Vector{X: v[0], Y: v[1], Z: v[2]}
}

// Vec3 - тот же вектор для операций mgl64
func (v Vector) Vec3() mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

// Add возвращает сумму векторов (не меняя текущий)
func (v Vector) Add(o Vector) Vector {
	return FromVec3(v.Vec3().Add(o.Vec3()))
}

// Sub возвращает разность векторов
func (v Vector) Sub(o Vector) Vector {
	return FromVec3(v.Vec3().Sub(o.Vec3()))
}

// Scale умножает вектор на скаляр
func (v Vector) Scale(k float64) Vector {
	return FromVec3(v.Vec3().Mul(k))
}

// Step сдвигает точку вдоль вектора-символа: XY на length, Z на height.
// Высота по умолчанию 0, поэтому Z у стен никогда не "уезжает" при обходе.
func (v Vector) Step(symbol Vector, length, height float64) Vector {
	shift := mgl64.Vec3{length * symbol.X, length * symbol.Y, height * symbol.Z}
	return FromVec3(v.Vec3().Add(shift))
}

// IsZero - все компоненты строго равны нулю
func (v Vector) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// Equals сравнивает с допуском
func (v Vector) Equals(o Vector, tolerance float64) bool {
	return IsNearlyEqual(v.X, o.X, tolerance) &&
		IsNearlyEqual(v.Y, o.Y, tolerance) &&
		IsNearlyEqual(v.Z, o.Z, tolerance)
}

// String для логов
func (v Vector) String() string {
	return fmt.Sprintf("X=%.3f Y=%.3f Z=%.3f", v.X, v.Y, v.Z)
}

// IsNearlyEqual - |a-b| <= tolerance.
// mgl64.FloatEqualThreshold сравнивает относительно, здесь нужен абсолютный допуск в см.
func IsNearlyEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}
