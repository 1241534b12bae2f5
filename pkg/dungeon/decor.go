package dungeon

import (
	"context"

	"eternal-dungeon/internal/geometry"
	"eternal-dungeon/internal/world"

	"github.com/sirupsen/logrus"
	"github.com/zyedidia/generic/mapset"
)

// RoomTag - назначение комнаты, от него зависят ассеты и декор
type RoomTag string

const (
	TagInitialRoom RoomTag = "Initial Room"
	TagCombat      RoomTag = "Combat"
	TagBoss        RoomTag = "Boss"
	TagDemon       RoomTag = "Demon"
	TagSecret      RoomTag = "Secret"
	TagMiniBoss    RoomTag = "Mini-boss"
	TagTreasure    RoomTag = "Treasure"
	TagMerchant    RoomTag = "Merchant"
	TagBounty      RoomTag = "Bounty"
	TagChill       RoomTag = "Chill"
	TagPuzzle      RoomTag = "Puzzle"
	TagRiddle      RoomTag = "Riddle"
	TagCauldron    RoomTag = "Cauldron"
	TagTavern      RoomTag = "Tavern"
	TagCoolGuy     RoomTag = "CoolGuy"
	TagPortal      RoomTag = "Portal"
	TagEmpty       RoomTag = "Empty"
)

// Символьные имена ассетов декора
const (
	PropMainPillar       = "MainPillar"
	PropSupportivePillar = "SupportivePillar"
	PropChest            = "Chest"
	PropBox              = "Box"
	PropChair            = "Chair"
	PropTent             = "Tent"
	PropPedestal         = "Pedestal"
	PropTable            = "Table"
	PropBook             = "Book"
	PropCandle           = "Candle"
	PropBookshelf        = "Bookshelf"
	PropFireplace        = "Fireplace"
	PropArmchair         = "Armchair"
	PropCarpet           = "Carpet"
)

// Decorator расставляет пропы в уже построенной комнате.
type Decorator interface {
	Decorate(r *Room, fp Footprint)
}

// DecoratorFunc позволяет использовать функцию как Decorator
type DecoratorFunc func(r *Room, fp Footprint)

func (f DecoratorFunc) Decorate(r *Room, fp Footprint) {
	f(r, fp)
}

// Decorators - таблица "тег -> стратегия". Для неизвестного тега - no-op.
type Decorators map[RoomTag]Decorator

// For возвращает стратегию для тега
func (d Decorators) For(tag RoomTag) Decorator {
	if dec, ok := d[tag]; ok && dec != nil {
		return dec
	}
	return noDecor
}

var noDecor = DecoratorFunc(func(*Room, Footprint) {})

// DefaultDecorators - таблица декора по умолчанию
func DefaultDecorators() Decorators {
	fight := DecoratorFunc(decorateFight)
	return Decorators{
		TagInitialRoom: DecoratorFunc(decorateInitialRoom),
		TagCombat:      fight,
		TagBoss:        fight,
		TagDemon:       fight,
		TagSecret:      fight,
		TagMiniBoss:    fight,
		TagTreasure:    DecoratorFunc(decorateTreasure),
		TagMerchant:    DecoratorFunc(decorateMerchant),
		TagBounty:      DecoratorFunc(decorateBounty),
		TagChill:       DecoratorFunc(decorateChill),
		TagPuzzle:      noDecor,
		TagRiddle:      noDecor,
		TagCauldron:    noDecor,
		TagTavern:      noDecor,
		TagCoolGuy:     noDecor,
		TagPortal:      noDecor,
		TagEmpty: DecoratorFunc(func(r *Room, _ Footprint) {
			r.log.Info("Empty room, nothing to place")
		}),
	}
}

func decorateInitialRoom(r *Room, fp Footprint) {
	r.spawnProps(mainPillars(fp))
	r.spawnProps(supportivePillars(fp))
	side := r.randSide()
	r.spawnProps([]propPlacement{wallProp(fp, side, PropChest, fp.UnitLength/2)})
}

func decorateFight(r *Room, fp Footprint) {
	r.spawnProps(mainPillars(fp))
	r.spawnProps(supportivePillars(fp))
	r.spawnProps(boxes(r, fp))
	r.spawnProps(chairs(r, fp))
}

func decorateTreasure(r *Room, fp Footprint) {
	r.spawnProps([]propPlacement{{Asset: PropChest, Offset: roomCenter(fp)}})
}

func decorateMerchant(r *Room, fp Footprint) {
	r.spawnProps(mainPillars(fp))
	r.spawnProps(supportivePillars(fp))
	r.spawnProps([]propPlacement{{Asset: PropTent, Offset: roomCenter(fp), Yaw: 45}})
}

func decorateBounty(r *Room, fp Footprint) {
	r.spawnProps(pedestals(fp))
}

func decorateChill(r *Room, fp Footprint) {
	table := r.tableLocation(fp)
	r.spawnProps(tableSet(table))
	r.spawnProps([]propPlacement{wallProp(fp, 2, PropBookshelf, fp.UnitLength/2)})
	r.spawnProps(fireplaceCluster(fp, r.randSide()))
}

// --- Спавн пропов ---

// propPlacement - проп в координатах комнаты (относительно Origin)
type propPlacement struct {
	Asset  string
	Offset geometry.Vector
	Yaw    float64
	Scale  geometry.Vector
}

// propClasses - классы пропов, загруженные комнатой (каждый имя резолвится один раз)
type propClasses struct {
	resolved map[string]*world.Class
	missing  mapset.Set[string]
}

func newPropClasses() propClasses {
	return propClasses{
		resolved: make(map[string]*world.Class),
		missing:  mapset.New[string](),
	}
}

func (r *Room) propClass(name string) *world.Class {
	if class, ok := r.props.resolved[name]; ok {
		return class
	}
	if r.props.missing.Has(name) {
		return nil
	}
	class := r.resolve(name)
	if class == nil {
		r.props.missing.Put(name)
		return nil
	}
	r.props.resolved[name] = class
	return class
}

func (r *Room) spawnProps(props []propPlacement) {
	for _, p := range props {
		r.spawnProp(p)
	}
}

// spawnProp ставит проп отложенно через очередь главного потока.
// Если к моменту исполнения комната уже разобрана, проп не создается.
func (r *Room) spawnProp(p propPlacement) {
	class := r.propClass(p.Asset)
	if class == nil {
		return
	}
	// смещение пропа задано в осях комнаты
	pos := r.Origin.Position.Add(r.Origin.Rotation.Rotate(p.Offset))
	rot := r.Origin.Rotation.Add(geometry.YawOnly(p.Yaw))

	task := func(context.Context) {
		if r.destroyed {
			r.log.WithField("asset", p.Asset).Debug("Room destroyed before prop spawn, skipped")
			return
		}
		h, ok := r.spawn(RoleProp, class, pos, rot)
		if !ok {
			return
		}
		if !p.Scale.IsZero() && p.Scale != geometry.Vec(1, 1, 1) {
			r.scale(h, p.Scale)
		}
	}

	if s := r.deps.Scheduler; s != nil {
		if !s.Post(task) {
			r.log.WithField("asset", p.Asset).Debug("Scheduler stopped, prop dropped")
		}
		return
	}
	task(context.Background())
}

func (r *Room) randSide() int {
	return r.deps.Rng.Intn(4)
}

// tableLocation ищет место для стола не ближе длины сегмента к стенам.
// После maxTableTries неудач стол ставится в центр.
func (r *Room) tableLocation(fp Footprint) geometry.Vector {
	minX, maxX, minY, maxY := interiorBounds(fp)
	for i := 0; i < maxTableTries; i++ {
		p := geometry.Vec(
			minX+r.deps.Rng.Float64()*(maxX-minX),
			minY+r.deps.Rng.Float64()*(maxY-minY),
			0,
		)
		if IsLocationValid(fp, p) {
			return p
		}
	}
	r.log.WithFields(logrus.Fields{"forward": fp.Forward, "right": fp.Right}).Debug("No valid table spot, using center")
	return roomCenter(fp)
}
