package geometry

import "github.com/go-gl/mathgl/mgl64"

// Box - выровненный по осям объем: центр + полуразмеры.
// Используется как зона обнаружения игрока в комнате.
type Box struct {
	Center Vector `json:"center"`
	Extent Vector `json:"extent"`
}

// Contains - точка внутри объема (границы включительно)
func (b Box) Contains(p Vector) bool {
	return b.ContainsWithMargin(p, 0)
}

// ContainsWithMargin расширяет проверку по вертикали: игрок в прыжке
// или на возвышении все еще считается "в комнате".
func (b Box) ContainsWithMargin(p Vector, verticalMargin float64) bool {
	d := p.Vec3().Sub(b.Center.Vec3())
	return mgl64.Abs(d.X()) <= b.Extent.X &&
		mgl64.Abs(d.Y()) <= b.Extent.Y &&
		mgl64.Abs(d.Z()) <= b.Extent.Z+verticalMargin
}
