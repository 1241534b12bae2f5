package dungeon

import (
	"eternal-dungeon/internal/core/types"
	"eternal-dungeon/internal/geometry"
	"eternal-dungeon/internal/world"
	"eternal-dungeon/pkg/utils"

	"github.com/sirupsen/logrus"
)

// Допуски при сопоставлении проема со стороной и с позицией сегмента
const (
	sideYawTolerance  = 1.0
	positionTolerance = 0.01
)

// wallRun - параметры одного обхода четырех сторон
type wallRun struct {
	wall, lit, entrance *world.Class
	// hint - обязательный проем от родительского коридора (nil - нет)
	hint *Entrance
	// roll - разыгрывать случайные проемы на сторонах без hint
	roll bool
}

// CreateWall обходит четыре стороны, начиная от start.
// Каждая сторона начинается со сдвига относительно конца предыдущей.
func (r *Room) CreateWall(start Pose, run wallRun) {
	pos := start.Position
	for side := 0; side < 4; side++ {
		n := r.Footprint.SideCount(side)
		pos = sideStart(pos, side, r.Footprint.UnitLength)
		rot := sideRotation(start.Rotation, side)

		ent := r.entranceForSide(side, n, run)
		pos = r.generateWalls(side, pos, rot, n, ent, run)

		r.log.WithFields(logrus.Fields{"side": side, "end": pos.String()}).Debug("Wall segment created")
	}
}

// entranceForSide решает, есть ли проем на стороне.
func (r *Room) entranceForSide(side, n int, run wallRun) Entrance {
	if run.hint != nil && hintMatchesSide(*run.hint, side) {
		e := *run.hint
		e.Class = run.entrance
		e.WallIndex = side
		r.log.WithFields(logrus.Fields{"side": side, "offset": e.Offset}).Debug("Inherited entrance placed on side")
		return e
	}
	if !run.roll {
		return NoEntrance()
	}

	e := NoEntrance()
	e.Class = run.entrance
	e.WallIndex = side
	if utils.FRandRange(r.deps.Rng, 0, 1) <= r.deps.Settings.EntranceProbability {
		e.Active = true
		e.Offset = entranceOffset(r, n)
	}
	return e
}

// entranceOffset - индекс сегмента в [1, n-2]; для коротких сторон (n <= 2) - n-1.
func entranceOffset(r *Room, n int) int {
	if n <= 2 {
		return n - 1
	}
	return int(utils.FRandRange(r.deps.Rng, 1, float64(n-1)))
}

// hintMatchesSide - проем смотрит в сторону side (±1°), -90 считается стороной 3.
func hintMatchesSide(hint Entrance, side int) bool {
	yaw := hint.Rotation.Yaw
	if geometry.IsNearlyEqual(yaw, 90*float64(side), sideYawTolerance) {
		return true
	}
	return side == 3 && geometry.IsNearlyEqual(yaw, -90, sideYawTolerance) && !hint.Rotation.IsZero()
}

// generateWalls спавнит n сегментов вдоль стороны и возвращает точку конца.
// Сегмент в позиции проема заменяется проемом,
// каждый третий сегмент - освещенный вариант.
func (r *Room) generateWalls(side int, pos geometry.Vector, rot geometry.Rotator, n int, ent Entrance, run wallRun) geometry.Vector {
	placed := false
	for idx := 0; idx < n; idx++ {
		isEntrance := !placed && ent.Active && ent.Class != nil && entranceAt(ent, idx, pos)
		isLit := idx%3 == 0 && run.lit != nil

		switch {
		case isEntrance:
			if h, ok := r.spawn(RoleEntrance, ent.Class, pos, rot); ok {
				placed = true
				r.recordEntrance(h, side, idx, ent)
			}
		case isLit:
			r.spawn(RoleWall, run.lit, pos, rot)
		default:
			r.spawn(RoleWall, run.wall, pos, rot)
		}

		pos = pos.Add(wallDirection(rot).Scale(r.Footprint.UnitLength))
	}
	if ent.Active && !placed {
		r.log.WithFields(logrus.Fields{"side": side, "offset": ent.Offset}).Warn("Entrance did not match any wall segment")
	}
	return pos
}

// entranceAt - унаследованный проем ставится по позиции, случайный - по индексу.
func entranceAt(ent Entrance, idx int, pos geometry.Vector) bool {
	if ent.Position.IsZero() {
		return ent.Offset == idx
	}
	return ent.Position.Equals(pos, positionTolerance)
}

// recordEntrance снимает позицию и поворот с заспавненного проема.
// Мир возвращает нормализованный yaw: сторона 3 дает -90, а не 270.
func (r *Room) recordEntrance(h types.Handle, side, idx int, ent Entrance) {
	pos, rot, err := r.deps.World.Location(h)
	if err != nil {
		r.log.WithError(worldError("entrance location", err)).Error("Entrance lost right after spawn")
		return
	}
	r.entrances = append(r.entrances, Entrance{
		Class:     ent.Class,
		WallIndex: side,
		Offset:    idx,
		Active:    true,
		Position:  pos,
		Rotation:  rot,
	})
	r.log.WithFields(logrus.Fields{"side": side, "offset": idx, "pos": pos.String()}).Debug("Entrance created")
}
