package dungeon

import (
	"eternal-dungeon/internal/geometry"
	"eternal-dungeon/internal/world"

	"github.com/sirupsen/logrus"
)

const (
	// CorridorTag - тег зоны коридора в каталоге ассетов (не разыгрывается)
	CorridorTag = "Corridor"

	corridorWallHeight = 430.0
	corridorWallRows   = 1
)

// Corridor - прямая или Г-образная труба между входом комнаты и новой комнатой.
// Своих проемов и пропов у коридора нет.
type Corridor struct {
	structure

	Tag       string
	Footprint Footprint
	Origin    Pose

	classes corridorClasses
}

type corridorClasses struct {
	floor, wall, wallLit, roof *world.Class
}

// NewCorridor - коридор 1x1 со стороной L в начале координат
func NewCorridor(deps Deps) *Corridor {
	deps = deps.withDefaults()
	c := &Corridor{
		Tag: CorridorTag,
		Footprint: Footprint{
			Forward:    1,
			Right:      1,
			UnitLength: deps.Settings.UnitLength,
		},
	}
	c.deps = deps
	c.log = deps.Log.WithField("component", "corridor")
	return c
}

// Configure задает размеры и начало коридора
func (c *Corridor) Configure(forward, right int, start Pose) {
	c.Footprint.Forward = forward
	c.Footprint.Right = right
	c.Origin = start
	c.log = c.log.WithFields(logrus.Fields{"forward": forward, "right": right})
}

// CreateCorridor: ассеты -> пол -> стены -> крыша
func (c *Corridor) CreateCorridor() {
	if err := c.Footprint.Validate(); err != nil {
		c.log.WithError(err).Error("Invalid corridor footprint, skipped")
		return
	}
	c.log.Debug("Creating corridor...")

	c.assignAssets(c.Tag)
	c.classes = corridorClasses{
		floor:   c.resolve(AssetFloor),
		wall:    c.resolve(AssetWall),
		wallLit: c.resolve(AssetWallLighted),
		roof:    c.resolve(AssetRoof),
	}

	c.createPlane(RoleFloor, c.classes.floor, floorZ)
	c.CreateWall()
	c.createPlane(RoleRoof, c.classes.roof, corridorWallHeight*corridorWallRows)

	c.log.WithField("origin", c.Origin.Position.String()).Info("Corridor created successfully")
}

func (c *Corridor) createPlane(role Role, class *world.Class, z float64) {
	pos := planeCenter(c.Origin.Position, c.Footprint, z)
	h, ok := c.spawn(role, class, pos, c.Origin.Rotation)
	if !ok {
		return
	}
	c.scale(h, geometry.Vec(float64(c.Footprint.Forward), float64(c.Footprint.Right), 1))
}

// CreateWall обходит четыре направления. Направление с одним сегментом
// имеет нулевую длину: сегмент не ставится, но позиция сдвигается на L.
func (c *Corridor) CreateWall() {
	pos := c.Origin.Position
	l := c.Footprint.UnitLength
	for side := 0; side < 4; side++ {
		pos = sideStart(pos, side, l)
		rot := sideRotation(c.Origin.Rotation, side)
		n := c.Footprint.SideCount(side)

		if n == 1 {
			pos = pos.Add(wallDirection(rot).Scale(l))
			continue
		}

		for idx := 0; idx < n; idx++ {
			class := c.classes.wall
			if idx%3 == 0 && c.classes.wallLit != nil {
				class = c.classes.wallLit
			}
			c.spawn(RoleWall, class, pos, rot)
			pos = pos.Add(wallDirection(rot).Scale(l))
		}
		c.log.WithFields(logrus.Fields{"side": side, "end": pos.String()}).Debug("Corridor wall segment created")
	}
}

// DestroyCorridor уничтожает стены, пол и крышу. Повторный вызов безопасен.
func (c *Corridor) DestroyCorridor() {
	if released := c.release(); released > 0 {
		c.log.WithField("released", released).Debug("Corridor destroyed")
	}
}

// CorridorView - DTO коридора для отладки
type CorridorView struct {
	Forward int             `json:"forward"`
	Right   int             `json:"right"`
	Origin  geometry.Vector `json:"origin"`
	Objects int             `json:"objects"`
}

// View - описание коридора
func (c *Corridor) View() CorridorView {
	return CorridorView{
		Forward: c.Footprint.Forward,
		Right:   c.Footprint.Right,
		Origin:  c.Origin.Position,
		Objects: c.ObjectCount(),
	}
}
