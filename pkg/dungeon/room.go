package dungeon

import (
	"eternal-dungeon/internal/core/types"
	"eternal-dungeon/internal/geometry"
	"eternal-dungeon/internal/world"
	"eternal-dungeon/pkg/api"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultUnitLength - длина сегмента стены
	DefaultUnitLength = 400.0

	floorZ       = -20.0
	upperBandZ   = 450.0
	roomRoofZ    = 880.0
	zoneLift     = 50.0
	zoneHalfSize = 50.0
)

// Room - прямоугольная комната: пол, четыре стены с проемами, верхний пояс,
// крыша и зона обнаружения игрока.
type Room struct {
	structure

	ID        RoomID
	Tag       RoomTag
	Footprint Footprint
	Origin    Pose

	zone      geometry.Box
	entrances []Entrance
	classes   roomClasses
	props     propClasses

	playerInside bool
	destroyed    bool
}

type roomClasses struct {
	floor, wall, wallLit, entrance, roof *world.Class
}

// NewRoom готовит комнату. Геометрия появляется только в CreateRoom.
func NewRoom(id RoomID, fp Footprint, origin Pose, deps Deps) *Room {
	deps = deps.withDefaults()
	if fp.UnitLength <= 0 {
		fp.UnitLength = deps.Settings.UnitLength
	}
	r := &Room{
		ID:        id,
		Footprint: fp,
		Origin:    origin,
		props:     newPropClasses(),
	}
	r.deps = deps
	r.log = deps.Log.WithFields(logrus.Fields{"component": "room", "room_id": id})
	return r
}

// CreateRoom строит комнату по шагам. Ошибка шага логируется,
// его результат остается пустым, следующие шаги выполняются.
func (r *Room) CreateRoom(hint *Entrance) {
	if err := r.Footprint.Validate(); err != nil {
		r.log.WithError(err).Error("Invalid footprint, room skipped")
		return
	}
	r.log.WithFields(logrus.Fields{
		"forward": r.Footprint.Forward,
		"right":   r.Footprint.Right,
		"origin":  r.Origin.Position.String(),
	}).Debug("Creating room...")

	// 1. Тег (Initial Room задается оркестратором заранее)
	if r.Tag == "" {
		r.AssignTag()
	}

	// 2. Ассеты зоны
	r.AssignAssets()

	// 3. Пол
	r.CreateFloor()

	// 4. Нижний ряд стен с проемами
	r.CreateWall(r.Origin, wallRun{
		wall:     r.classes.wall,
		lit:      r.classes.wallLit,
		entrance: r.classes.entrance,
		hint:     hint,
		roll:     true,
	})

	// 5. Верхний пояс без освещения и проемов
	upper := r.Origin
	upper.Position = upper.Position.Add(geometry.Vec(0, 0, upperBandZ))
	r.CreateWall(upper, wallRun{wall: r.classes.wall})

	// 6. Крыша
	r.CreateRoof()
	r.log.Info("Room created successfully")

	// 7. Зона обнаружения игрока
	r.CreatePlayerDetector()

	// 8. Декор по тегу
	r.deps.Decorators.For(r.Tag).Decorate(r, r.Footprint)
}

// AssignTag выбирает тег взвешенным жребием. При нулевом суммарном весе тег не меняется.
func (r *Room) AssignTag() {
	if r.deps.Tags == nil {
		r.log.Warn("No tag source, room left untagged")
		return
	}
	tag, ok := r.deps.Tags.Pick(r.deps.Rng)
	if !ok {
		r.log.Warn("Total tag weight is zero, room left untagged")
		return
	}
	r.Tag = RoomTag(tag)
	r.log.WithField("tag", tag).Debug("Room tag assigned")
}

// AssignAssets загружает ассеты зоны и классы конструктива.
func (r *Room) AssignAssets() {
	r.assignAssets(string(r.Tag))
	r.classes = roomClasses{
		floor:    r.resolve(AssetFloor),
		wall:     r.resolve(AssetWall),
		wallLit:  r.resolve(AssetWallLighted),
		entrance: r.resolve(AssetEntrance),
		roof:     r.resolve(AssetRoof),
	}
	r.props = newPropClasses()
}

// CreateFloor - один плоский объект на весь прямоугольник, масштаб (f, r, 1)
func (r *Room) CreateFloor() {
	r.createPlane(RoleFloor, r.classes.floor, floorZ)
}

// CreateRoof - крыша на высоте 880, масштаб (f, r, 1)
func (r *Room) CreateRoof() {
	r.createPlane(RoleRoof, r.classes.roof, roomRoofZ)
}

func (r *Room) createPlane(role Role, class *world.Class, z float64) {
	pos := planeCenter(r.Origin.Position, r.Footprint, z)
	h, ok := r.spawn(role, class, pos, r.Origin.Rotation)
	if !ok {
		return
	}
	r.scale(h, geometry.Vec(float64(r.Footprint.Forward), float64(r.Footprint.Right), 1))
	r.log.WithFields(logrus.Fields{"role": role.String(), "pos": pos.String()}).Debug("Plane created")
}

// CreatePlayerDetector размещает зону обнаружения по размеру прямоугольника.
func (r *Room) CreatePlayerDetector() {
	fl := float64(r.Footprint.Forward) * r.Footprint.UnitLength
	rl := float64(r.Footprint.Right) * r.Footprint.UnitLength
	r.zone = geometry.Box{
		Center: r.Origin.Position.Add(geometry.Vec(fl/2, rl/2, zoneLift)),
		Extent: geometry.Vec(fl/2, rl/2, zoneHalfSize),
	}
}

// Zone - зона обнаружения игрока
func (r *Room) Zone() geometry.Box {
	return r.zone
}

// Contains - точка внутри зоны обнаружения
func (r *Room) Contains(pos geometry.Vector) bool {
	return r.zone.Contains(pos)
}

// ContainsWithMargin - то же, но с запасом по высоте
func (r *Room) ContainsWithMargin(pos geometry.Vector, verticalMargin float64) bool {
	return r.zone.ContainsWithMargin(pos, verticalMargin)
}

// OverlapsActor - объект мира находится внутри зоны обнаружения
func (r *Room) OverlapsActor(h types.Handle) bool {
	if r.deps.World == nil {
		return false
	}
	pos, _, err := r.deps.World.Location(h)
	if err != nil {
		return false
	}
	return r.Contains(pos)
}

// UpdatePresence отслеживает вход/выход игрока.
// Вход - попадание в зону, выход - игрок вне зоны и вне запаса по высоте.
func (r *Room) UpdatePresence(pos geometry.Vector, ok bool) (entered, exited bool) {
	margin := r.deps.Settings.ZoneVerticalMargin
	switch {
	case !r.playerInside && ok && r.Contains(pos):
		r.playerInside = true
		r.log.Info("Player entered room")
		return true, false
	case r.playerInside && (!ok || !r.ContainsWithMargin(pos, margin)):
		r.playerInside = false
		r.log.Info("Player exited room")
		return false, true
	}
	return false, false
}

// PlayerInside - игрок сейчас в комнате
func (r *Room) PlayerInside() bool {
	return r.playerInside
}

// Entrances - проемы комнаты (копии, снятые с заспавненных объектов)
func (r *Room) Entrances() []Entrance {
	return append([]Entrance(nil), r.entrances...)
}

// ActiveEntrances - только активные проемы
func (r *Room) ActiveEntrances() []Entrance {
	out := make([]Entrance, 0, len(r.entrances))
	for _, e := range r.entrances {
		if e.Active {
			out = append(out, e)
		}
	}
	return out
}

// Center - середина пола на уровне зоны обнаружения
func (r *Room) Center() geometry.Vector {
	return r.zone.Center
}

// Destroyed - комната уже разобрана
func (r *Room) Destroyed() bool {
	return r.destroyed
}

// DestroyRoom уничтожает все объекты всех ролей. Повторный вызов безопасен.
func (r *Room) DestroyRoom() {
	wasDestroyed := r.destroyed
	r.destroyed = true
	released := r.release()
	if !wasDestroyed {
		r.log.WithField("released", released).Debug("Room destroyed")
	}
}

// View - DTO комнаты для протокола и отладки
func (r *Room) View() api.RoomView {
	view := api.RoomView{
		ID:      int(r.ID),
		Tag:     string(r.Tag),
		Forward: r.Footprint.Forward,
		Right:   r.Footprint.Right,
		Origin:  world.ToVec3(r.Origin.Position),
		Center:  world.ToVec3(r.zone.Center),
	}
	for _, e := range r.entrances {
		view.Entrances = append(view.Entrances, api.EntranceView{
			Wall:     e.WallIndex,
			Offset:   e.Offset,
			Active:   e.Active,
			Position: world.ToVec3(e.Position),
			Yaw:      e.Rotation.Yaw,
		})
	}
	return view
}
