package dungeon

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"

	"eternal-dungeon/internal/catalog"
	"eternal-dungeon/internal/core/types"
	"eternal-dungeon/internal/core/types/enums"
	"eternal-dungeon/internal/geometry"
	"eternal-dungeon/internal/world"
	"eternal-dungeon/pkg/api"
	"eternal-dungeon/pkg/logger"

	"github.com/sirupsen/logrus"
)

// Pose - позиция + поворот (генератор использует только Yaw)
type Pose struct {
	Position geometry.Vector
	Rotation geometry.Rotator
}

// Footprint - прямоугольник из Forward x Right клеток со стороной UnitLength.
type Footprint struct {
	Forward    int
	Right      int
	UnitLength float64
}

// Validate отбрасывает вырожденные прямоугольники
func (f Footprint) Validate() error {
	if f.Forward < 1 || f.Right < 1 {
		return fmt.Errorf("footprint %dx%d: counts must be >= 1", f.Forward, f.Right)
	}
	if f.UnitLength <= 0 {
		return fmt.Errorf("footprint unit length must be > 0, got %v", f.UnitLength)
	}
	return nil
}

// SideCount - количество сегментов на стороне: четные стороны идут вдоль Forward
func (f Footprint) SideCount(side int) int {
	if side%2 == 0 {
		return f.Forward
	}
	return f.Right
}

// Area - площадь в клетках
func (f Footprint) Area() int {
	return f.Forward * f.Right
}

// Entrance - проем в стене, к которому пристыковывается коридор.
// Неактивный вход не несет геометрии и не порождает коридор.
type Entrance struct {
	Class     *world.Class
	WallIndex int // 0..3, -1 - не задан
	Offset    int // индекс сегмента на стороне
	Active    bool
	Position  geometry.Vector
	Rotation  geometry.Rotator
}

// NoEntrance - сторона без проема
func NoEntrance() Entrance {
	return Entrance{WallIndex: -1, Offset: -1}
}

// RoomID выдается Sequence ровно один раз и никогда не переиспользуется.
type RoomID int

// Sequence - генератор id комнат одного подземелья.
// У каждого подземелья свой, поэтому инстансы не пересекаются по id.
type Sequence struct {
	last atomic.Int64
}

// Next возвращает следующий id (начиная с 1)
func (s *Sequence) Next() RoomID {
	return RoomID(s.last.Add(1))
}

// Last - последний выданный id (0 - еще ни одного)
func (s *Sequence) Last() RoomID {
	return RoomID(s.last.Load())
}

// Role - роль заспавненного объекта внутри комнаты/коридора
type Role int

const (
	RoleFloor Role = iota
	RoleWall
	RoleRoof
	RoleEntrance
	RoleProp
	roleCount
)

var roleKinds = [roleCount]enums.ObjectKind{
	RoleFloor:    enums.ObjectKindFloor,
	RoleWall:     enums.ObjectKindWall,
	RoleRoof:     enums.ObjectKindRoof,
	RoleEntrance: enums.ObjectKindEntrance,
	RoleProp:     enums.ObjectKindProp,
}

// Kind - вид объекта мира для роли
func (r Role) Kind() enums.ObjectKind {
	if r < 0 || r >= roleCount {
		return enums.ObjectKindUnknown
	}
	return roleKinds[r]
}

func (r Role) String() string {
	return r.Kind().String()
}

// --- Внешние коллабораторы ---

// Spawner - мир, в котором живут объекты. Вызывается только из главного потока.
type Spawner interface {
	LoadClass(directory string) (*world.Class, error)
	Spawn(class *world.Class, kind enums.ObjectKind, pos geometry.Vector, rot geometry.Rotator) (types.Handle, error)
	Destroy(h types.Handle) error
	SetScale3D(h types.Handle, scale geometry.Vector) error
	SetWorldTransform(h types.Handle, pos geometry.Vector, rot geometry.Rotator) error
	Location(h types.Handle) (geometry.Vector, geometry.Rotator, error)
}

// AssetSource - каталог ассетов по тегу зоны
type AssetSource interface {
	AreaAssets(tag string) []catalog.AssetRef
}

// TagSource - взвешенный выбор тега комнаты
type TagSource interface {
	Pick(rng *rand.Rand) (string, bool)
}

// PlayerLocator - где сейчас пешка игрока
type PlayerLocator interface {
	CurrentPlayerPosition() (geometry.Vector, bool)
}

// Scheduler - очередь задач главного потока.
// OnLoop сообщает, исполняется ли код с таким контекстом внутри очереди.
type Scheduler interface {
	Post(task func(ctx context.Context)) bool
	OnLoop(ctx context.Context) bool
}

// EventSink получает события комнат (ROOM_SPAWNED, ROOM_CHANGED ...)
type EventSink interface {
	Publish(evt api.WorldEvent)
}

// Settings - числовые параметры генерации
type Settings struct {
	UnitLength          float64
	RoomMinWalls        int
	RoomMaxWalls        int
	EntranceProbability float64
	CorridorMinWalls    int
	CorridorMaxWalls    int
	// ZoneVerticalMargin - запас по высоте: игрок в прыжке все еще в комнате
	ZoneVerticalMargin float64
}

// DefaultSettings - значения движка: L = 400, стены [3, 12), шанс входа 0.3
func DefaultSettings() Settings {
	return Settings{
		UnitLength:          DefaultUnitLength,
		RoomMinWalls:        3,
		RoomMaxWalls:        12,
		EntranceProbability: 0.3,
		CorridorMinWalls:    3,
		CorridorMaxWalls:    12,
		ZoneVerticalMargin:  400,
	}
}

// Deps - все, что нужно строителям и оркестратору.
type Deps struct {
	DungeonID  int
	World      Spawner
	Assets     AssetSource
	Tags       TagSource
	Player     PlayerLocator
	Scheduler  Scheduler
	Events     EventSink
	Sequence   *Sequence
	Rng        *rand.Rand
	Log        *logrus.Entry
	Decorators Decorators
	Settings   Settings
}

// withDefaults заполняет пустые зависимости безопасными значениями
func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	if d.Rng == nil {
		d.Rng = rand.New(rand.NewSource(1))
	}
	if d.Sequence == nil {
		d.Sequence = &Sequence{}
	}
	if d.Decorators == nil {
		d.Decorators = DefaultDecorators()
	}
	if d.Settings.UnitLength <= 0 {
		d.Settings = DefaultSettings()
	}
	return d
}

func (d Deps) publish(evt api.WorldEvent) {
	if d.Events == nil {
		return
	}
	evt.DungeonID = d.DungeonID
	d.Events.Publish(evt)
}
