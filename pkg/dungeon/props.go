package dungeon

import (
	"math"

	"eternal-dungeon/internal/geometry"
	"eternal-dungeon/pkg/utils"
)

const (
	pillarUpperZ        = 440.0
	pillarStructuralZ   = 1.125
	pillarDecorativeZ   = 1.4375
	pillarDecorativeYaw = 45.0

	boxStackHeight = 90.0
	boxJitter      = 10.0

	chairRingRadius = 150.0
	chairRingCount  = 6
	tableTopZ       = 80.0
	tableItemShift  = 30.0

	maxTableTries = 64
)

// interiorBounds - прямоугольник комнаты в ее координатах:
// x в [-L/2, (f-1/2)L], y в [0, rL].
func interiorBounds(fp Footprint) (minX, maxX, minY, maxY float64) {
	l := fp.UnitLength
	return -l / 2, (float64(fp.Forward) - 0.5) * l, 0, float64(fp.Right) * l
}

// roomCenter - центр прямоугольника на уровне пола
func roomCenter(fp Footprint) geometry.Vector {
	minX, maxX, minY, maxY := interiorBounds(fp)
	return geometry.Vec((minX+maxX)/2, (minY+maxY)/2, 0)
}

// IsLocationValid - точка не ближе длины сегмента ни к одной стене
func IsLocationValid(fp Footprint, p geometry.Vector) bool {
	minX, maxX, minY, maxY := interiorBounds(fp)
	l := fp.UnitLength
	return p.X-minX >= l && maxX-p.X >= l && p.Y-minY >= l && maxY-p.Y >= l
}

// randomInterior - случайная точка внутри комнаты с отступом L/2 от стен
func randomInterior(r *Room, fp Footprint) geometry.Vector {
	minX, maxX, minY, maxY := interiorBounds(fp)
	inset := fp.UnitLength / 2
	return geometry.Vec(
		utils.FRandRange(r.deps.Rng, minX+inset, maxX-inset),
		utils.FRandRange(r.deps.Rng, minY+inset, maxY-inset),
		0,
	)
}

// mainPillars - 8 конструктивных колонн в углах (z 0 и 440)
// и 8 декоративных под 45° в тех же углах на противоположном уровне.
func mainPillars(fp Footprint) []propPlacement {
	minX, maxX, minY, maxY := interiorBounds(fp)
	inset := fp.UnitLength / 2
	corners := [4][2]float64{
		{minX + inset, minY + inset},
		{maxX - inset, minY + inset},
		{maxX - inset, maxY - inset},
		{minX + inset, maxY - inset},
	}
	layers := [2]float64{0, pillarUpperZ}

	out := make([]propPlacement, 0, 16)
	for li, z := range layers {
		opposite := layers[1-li]
		for _, c := range corners {
			out = append(out,
				propPlacement{
					Asset:  PropMainPillar,
					Offset: geometry.Vec(c[0], c[1], z),
					Scale:  geometry.Vec(1, 1, pillarStructuralZ),
				},
				propPlacement{
					Asset:  PropMainPillar,
					Offset: geometry.Vec(c[0], c[1], opposite),
					Yaw:    pillarDecorativeYaw,
					Scale:  geometry.Vec(1, 1, pillarDecorativeZ),
				},
			)
		}
	}
	return out
}

// supportivePillars - второй обход периметра: колонны в стыках сегментов,
// n-1 стыков на каждой стороне, поворот как у стены стороны.
func supportivePillars(fp Footprint) []propPlacement {
	minX, maxX, minY, maxY := interiorBounds(fp)
	starts := [4]geometry.Vector{
		geometry.Vec(minX, minY, 0),
		geometry.Vec(maxX, minY, 0),
		geometry.Vec(maxX, maxY, 0),
		geometry.Vec(minX, maxY, 0),
	}

	var out []propPlacement
	for side := 0; side < 4; side++ {
		yaw := 90 * float64(side)
		dir := geometry.YawOnly(yaw).Vector()
		pos := starts[side]
		for k := 1; k < fp.SideCount(side); k++ {
			pos = pos.Add(dir.Scale(fp.UnitLength))
			out = append(out, propPlacement{
				Asset:  PropSupportivePillar,
				Offset: pos,
				Yaw:    yaw,
			})
		}
	}
	return out
}

// boxes - floor(area/10) стопок по 1-3 ящика со случайным поворотом
func boxes(r *Room, fp Footprint) []propPlacement {
	var out []propPlacement
	for i := 0; i < fp.Area()/10; i++ {
		base := randomInterior(r, fp)
		stack := utils.RandRange(r.deps.Rng, 1, 3)
		for j := 0; j < stack; j++ {
			z := 0.0
			if j > 0 {
				z = float64(j)*boxStackHeight + utils.FRandRange(r.deps.Rng, -boxJitter, boxJitter)
			}
			out = append(out, propPlacement{
				Asset:  PropBox,
				Offset: geometry.Vec(base.X, base.Y, z),
				Yaw:    utils.FRandRange(r.deps.Rng, 0, 360),
			})
		}
	}
	return out
}

// chairs - floor(area/15) стульев в случайных местах
func chairs(r *Room, fp Footprint) []propPlacement {
	var out []propPlacement
	for i := 0; i < fp.Area()/15; i++ {
		out = append(out, propPlacement{
			Asset:  PropChair,
			Offset: randomInterior(r, fp),
			Yaw:    utils.FRandRange(r.deps.Rng, 0, 360),
		})
	}
	return out
}

// wallAnchor - середина стороны side, сдвинутая внутрь на inset, и yaw "лицом в комнату"
func wallAnchor(fp Footprint, side int, inset float64) (geometry.Vector, float64) {
	minX, maxX, minY, maxY := interiorBounds(fp)
	c := roomCenter(fp)
	switch side {
	case 0:
		return geometry.Vec(c.X, minY+inset, 0), 90
	case 1:
		return geometry.Vec(maxX-inset, c.Y, 0), 180
	case 2:
		return geometry.Vec(c.X, maxY-inset, 0), -90
	default:
		return geometry.Vec(minX+inset, c.Y, 0), 0
	}
}

// wallProp - проп у стены, смотрящий внутрь комнаты
func wallProp(fp Footprint, side int, asset string, inset float64) propPlacement {
	pos, yaw := wallAnchor(fp, side, inset)
	return propPlacement{Asset: asset, Offset: pos, Yaw: yaw}
}

// pedestals - два постамента по обе стороны от центра вдоль длинной оси
func pedestals(fp Footprint) []propPlacement {
	c := roomCenter(fp)
	shift := geometry.Vec(fp.UnitLength/2, 0, 0)
	if fp.Right > fp.Forward {
		shift = geometry.Vec(0, fp.UnitLength/2, 0)
	}
	return []propPlacement{
		{Asset: PropPedestal, Offset: c.Add(shift)},
		{Asset: PropPedestal, Offset: c.Sub(shift)},
	}
}

// tableSet - стол, шесть стульев по кругу лицом к столу, книга и свеча на столешнице
func tableSet(table geometry.Vector) []propPlacement {
	out := []propPlacement{{Asset: PropTable, Offset: table}}
	for k := 0; k < chairRingCount; k++ {
		angle := float64(k) * 360 / chairRingCount
		rad := angle * math.Pi / 180
		out = append(out, propPlacement{
			Asset:  PropChair,
			Offset: table.Add(geometry.Vec(chairRingRadius*math.Cos(rad), chairRingRadius*math.Sin(rad), 0)),
			Yaw:    geometry.NormalizeAxis(angle + 180),
		})
	}
	out = append(out,
		propPlacement{Asset: PropBook, Offset: table.Add(geometry.Vec(-tableItemShift, 0, tableTopZ))},
		propPlacement{Asset: PropCandle, Offset: table.Add(geometry.Vec(tableItemShift, 0, tableTopZ))},
	)
	return out
}

// fireplaceCluster - камин у стены, перед ним ковер и кресло, повернутое к камину
func fireplaceCluster(fp Footprint, side int) []propPlacement {
	l := fp.UnitLength
	fire, yaw := wallAnchor(fp, side, l/2)
	carpet, _ := wallAnchor(fp, side, l)
	chair, _ := wallAnchor(fp, side, 1.5*l)
	return []propPlacement{
		{Asset: PropFireplace, Offset: fire, Yaw: yaw},
		{Asset: PropCarpet, Offset: carpet, Yaw: yaw},
		{Asset: PropArmchair, Offset: chair, Yaw: geometry.NormalizeAxis(yaw + 180)},
	}
}
