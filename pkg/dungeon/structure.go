package dungeon

import (
	"errors"

	"eternal-dungeon/internal/catalog"
	"eternal-dungeon/internal/core/types"
	"eternal-dungeon/internal/geometry"
	"eternal-dungeon/internal/world"

	"github.com/sirupsen/logrus"
)

// Символьные имена конструктивных ассетов
const (
	AssetFloor       = "Floor"
	AssetWall        = "Wall"
	AssetWallLighted = "WallLighted"
	AssetEntrance    = "Entrance"
	AssetRoof        = "Roof"
)

// structure - общее для комнаты и коридора: набор ассетов зоны
// и списки заспавненных объектов по ролям.
type structure struct {
	deps    Deps
	log     *logrus.Entry
	assets  catalog.AssetSet
	objects [roleCount][]types.Handle
	// noWorld выставляется при первом ErrNoWorldContext, дальше спавн молча пропускается
	noWorld bool
}

// assignAssets загружает список ассетов зоны из каталога.
func (s *structure) assignAssets(tag string) {
	var refs []catalog.AssetRef
	if s.deps.Assets != nil {
		refs = s.deps.Assets.AreaAssets(tag)
	}
	if len(refs) == 0 {
		s.log.WithField("tag", tag).Error("No assets found for tag")
	} else {
		s.log.WithFields(logrus.Fields{"tag": tag, "assets": len(refs)}).Debug("Assets assigned")
	}
	s.assets = catalog.NewAssetSet(tag, refs)
}

// resolve загружает класс по символьному имени. nil - ассета нет или он битый (залогировано).
func (s *structure) resolve(name string) *world.Class {
	if s.deps.World == nil {
		s.noWorld = true
		return nil
	}
	class, err := s.assets.Resolve(name, s.deps.World)
	if err != nil {
		if errors.Is(err, world.ErrClosed) {
			s.noWorld = true
			s.log.WithField("asset", name).Debug("World is not ready, asset skipped")
			return nil
		}
		s.log.WithError(err).WithField("asset", name).Error("Asset not resolved")
		return nil
	}
	return class
}

// spawn создает объект и записывает его в список роли.
func (s *structure) spawn(role Role, class *world.Class, pos geometry.Vector, rot geometry.Rotator) (types.Handle, bool) {
	if s.noWorld || s.deps.World == nil {
		return types.NilHandle, false
	}

	h, err := s.deps.World.Spawn(class, role.Kind(), pos, rot)
	if err != nil {
		err = worldError("spawn "+role.String(), err)
		if errors.Is(err, ErrNoWorldContext) {
			s.noWorld = true
			s.log.WithError(err).Debug("World is not ready, spawn skipped")
			return types.NilHandle, false
		}
		s.log.WithError(err).WithField("pos", pos.String()).Error("Couldn't spawn object")
		return types.NilHandle, false
	}

	s.objects[role] = append(s.objects[role], h)
	return h, true
}

// scale меняет масштаб только что заспавненного объекта
func (s *structure) scale(h types.Handle, v geometry.Vector) {
	if err := s.deps.World.SetScale3D(h, v); err != nil {
		s.log.WithError(worldError("scale", err)).Error("Couldn't scale object")
	}
}

// release уничтожает все объекты всех ролей и очищает списки.
// Повторный вызов - no-op: списки уже пусты.
func (s *structure) release() int {
	released := 0
	for role := Role(0); role < roleCount; role++ {
		for _, h := range s.objects[role] {
			if s.deps.World == nil {
				break
			}
			if err := s.deps.World.Destroy(h); err != nil {
				s.log.WithError(err).WithField("handle", h.String()).Debug("Destroy skipped")
				continue
			}
			released++
		}
		s.objects[role] = nil
	}
	return released
}

// Objects - копия списка объектов роли
func (s *structure) Objects(role Role) []types.Handle {
	if role < 0 || role >= roleCount {
		return nil
	}
	return append([]types.Handle(nil), s.objects[role]...)
}

// ObjectCount - всего объектов во всех ролях
func (s *structure) ObjectCount() int {
	n := 0
	for role := Role(0); role < roleCount; role++ {
		n += len(s.objects[role])
	}
	return n
}

// wallDirection - направление обхода стены.
// При |roll| == 180 или 0 берется forward-вектор поворота, иначе ось X матрицы.
// Для поворотов только по yaw оба варианта дают один и тот же вектор.
func wallDirection(rot geometry.Rotator) geometry.Vector {
	roll := rot.Roll
	if roll < 0 {
		roll = -roll
	}
	if roll == 180 || roll == 0 {
		return rot.Vector()
	}
	return rot.AxisX()
}

// sideStartOffsets - сдвиг начала каждой стороны относительно конца предыдущей
// (в долях длины сегмента). Сторона 0 начинается ровно в начале координат комнаты.
var sideStartOffsets = [4]geometry.Vector{
	geometry.Vec(1, 1, 0),
	geometry.Vec(-0.5, 0.5, 0),
	geometry.Vec(-0.5, -0.5, 0),
	geometry.Vec(0.5, -0.5, 0),
}

// sideStart - точка начала стороны side, если предыдущая закончилась в prev
func sideStart(prev geometry.Vector, side int, unit float64) geometry.Vector {
	length := unit
	if side == 0 {
		length = 0
	}
	return prev.Step(sideStartOffsets[side], length, 0)
}

// sideRotation - поворот стены стороны: +90 на каждую сторону
func sideRotation(base geometry.Rotator, side int) geometry.Rotator {
	return base.Add(geometry.YawOnly(90 * float64(side)))
}

// planeCenter - центр пола/крыши на высоте z относительно начала координат
func planeCenter(origin geometry.Vector, fp Footprint, z float64) geometry.Vector {
	l := fp.UnitLength
	return origin.Add(geometry.Vec(
		float64(fp.Forward)*l/2-l/2,
		float64(fp.Right)*l/2,
		z,
	))
}
