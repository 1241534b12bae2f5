package geometry

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Rotator - поворот в градусах. Генератор использует только Yaw,
// Pitch и Roll остаются нулями (кроме вырожденного случая в обходе стен).
type Rotator struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

// ZeroRotator - отсутствие поворота
var ZeroRotator = Rotator{}

// YawOnly - поворот только вокруг вертикальной оси
func YawOnly(yaw float64) Rotator {
	return Rotator{Yaw: yaw}
}

// Add складывает углы покомпонентно (без нормализации, как в движке)
func (r Rotator) Add(o Rotator) Rotator {
	return Rotator{Pitch: r.Pitch + o.Pitch, Yaw: r.Yaw + o.Yaw, Roll: r.Roll + o.Roll}
}

// IsZero - все углы строго нулевые
func (r Rotator) IsZero() bool {
	return r.Pitch == 0 && r.Yaw == 0 && r.Roll == 0
}

// Normalized возвращает поворот с углами в диапазоне (-180, 180].
// Так движок отдает поворот уже заспавненного объекта: 270 превращается в -90.
func (r Rotator) Normalized() Rotator {
	return Rotator{
		Pitch: NormalizeAxis(r.Pitch),
		Yaw:   NormalizeAxis(r.Yaw),
		Roll:  NormalizeAxis(r.Roll),
	}
}

// Vector - направление "вперед" (ось X после поворота)
func (r Rotator) Vector() Vector {
	return FromVec3(r.Matrix().Col(0))
}

// Matrix - матрица поворота, столбцы - оси X, Y, Z (соглашение FRotationMatrix).
// Синусы берутся из sinCosDeg, поэтому на сетке 90° элементы точные.
func (r Rotator) Matrix() mgl64.Mat3 {
	sp, cp := sinCosDeg(r.Pitch)
	sy, cy := sinCosDeg(r.Yaw)
	sr, cr := sinCosDeg(r.Roll)

	return mgl64.Mat3FromCols(
		mgl64.Vec3{cp * cy, cp * sy, sp},
		mgl64.Vec3{sr*sp*cy - cr*sy, sr*sp*sy + cr*cy, -sr * cp},
		mgl64.Vec3{-(cr*sp*cy + sr*sy), cy*sr - cr*sp*sy, cr * cp},
	)
}

// Axes возвращает оси X, Y, Z матрицы поворота.
func (r Rotator) Axes() (x, y, z Vector) {
	m := r.Matrix()
	return FromVec3(m.Col(0)), FromVec3(m.Col(1)), FromVec3(m.Col(2))
}

// Rotate переводит локальное смещение в мировые оси
func (r Rotator) Rotate(local Vector) Vector {
	return FromVec3(r.Matrix().Mul3x1(local.Vec3()))
}

// AxisX - ось X матрицы поворота
func (r Rotator) AxisX() Vector {
	return FromVec3(r.Matrix().Col(0))
}

// AxisY - ось Y матрицы поворота (направление "вправо")
func (r Rotator) AxisY() Vector {
	return FromVec3(r.Matrix().Col(1))
}

func (r Rotator) String() string {
	return fmt.Sprintf("P=%.2f Y=%.2f R=%.2f", r.Pitch, r.Yaw, r.Roll)
}

// NormalizeAxis приводит угол к (-180, 180]
func NormalizeAxis(angle float64) float64 {
	a := math.Mod(angle, 360)
	if a < 0 {
		a += 360
	}
	if a > 180 {
		a -= 360
	}
	return a
}

// sinCosDeg считает синус/косинус в градусах.
// Для кратных 90° возвращает точные значения: сетка генератора выровнена по осям,
// и накопление ошибок float при обходе стен дает "щели" между сегментами.
func sinCosDeg(deg float64) (float64, float64) {
	a := math.Mod(deg, 360)
	if a < 0 {
		a += 360
	}
	switch a {
	case 0:
		return 0, 1
	case 90:
		return 1, 0
	case 180:
		return 0, -1
	case 270:
		return -1, 0
	}
	return math.Sincos(a * math.Pi / 180)
}
