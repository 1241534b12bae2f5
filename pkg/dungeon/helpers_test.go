package dungeon

import (
	"context"
	"math/rand"
	"testing"

	"eternal-dungeon/internal/catalog"
	"eternal-dungeon/internal/core/types/enums"
	"eternal-dungeon/internal/geometry"
	"eternal-dungeon/internal/world"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

// fixedTags всегда выдает один и тот же тег
type fixedTags string

func (f fixedTags) Pick(*rand.Rand) (string, bool) {
	return string(f), f != ""
}

type loopKey struct{}

// recordingScheduler копит задачи и исполняет их по команде
type recordingScheduler struct {
	tasks   []func(context.Context)
	stopped bool
}

func (s *recordingScheduler) Post(task func(context.Context)) bool {
	if s.stopped {
		return false
	}
	s.tasks = append(s.tasks, task)
	return true
}

func (s *recordingScheduler) OnLoop(ctx context.Context) bool {
	return ctx.Value(loopKey{}) != nil
}

// RunAll исполняет очередь, включая задачи, добавленные по ходу
func (s *recordingScheduler) RunAll() int {
	ctx := loopContext()
	n := 0
	for len(s.tasks) > 0 {
		task := s.tasks[0]
		s.tasks = s.tasks[1:]
		task(ctx)
		n++
	}
	return n
}

func loopContext() context.Context {
	return context.WithValue(context.Background(), loopKey{}, true)
}

// fakePlayer - игрок в заданной точке
type fakePlayer struct {
	pos    geometry.Vector
	placed bool
}

func (p *fakePlayer) CurrentPlayerPosition() (geometry.Vector, bool) {
	return p.pos, p.placed
}

func (p *fakePlayer) moveTo(pos geometry.Vector) {
	p.pos = pos
	p.placed = true
}

var structuralAssets = []string{AssetFloor, AssetWall, AssetWallLighted, AssetEntrance, AssetRoof}

var propAssets = []string{
	PropMainPillar, PropSupportivePillar, PropChest, PropBox, PropChair, PropTent, PropPedestal,
	PropTable, PropBook, PropCandle, PropBookshelf, PropFireplace, PropArmchair, PropCarpet,
}

var allTags = []RoomTag{
	TagInitialRoom, TagCombat, TagBoss, TagDemon, TagSecret, TagMiniBoss, TagTreasure, TagMerchant,
	TagBounty, TagChill, TagPuzzle, TagRiddle, TagCauldron, TagTavern, TagCoolGuy, TagPortal, TagEmpty,
}

// testCatalog - полный каталог: у каждого тега все конструктивные ассеты и пропы
func testCatalog(skip ...string) *catalog.Catalog {
	skipped := map[string]bool{}
	for _, s := range skip {
		skipped[s] = true
	}
	refs := func(area string, names []string) []catalog.AssetRef {
		var out []catalog.AssetRef
		for _, n := range names {
			if skipped[n] {
				continue
			}
			out = append(out, catalog.AssetRef{AssetName: n, Directory: "/Game/" + area + "/" + n})
		}
		return out
	}

	areas := map[string][]catalog.AssetRef{
		CorridorTag: refs(CorridorTag, structuralAssets),
	}
	for _, tag := range allTags {
		areas[string(tag)] = append(refs(string(tag), structuralAssets), refs(string(tag), propAssets)...)
	}
	return catalog.NewCatalog(areas)
}

// setupDeps - мир, каталог и логгер с хуком. Шанс случайного входа - 0.
func setupDeps(t *testing.T, seed int64) (Deps, *world.World, *logtest.Hook) {
	t.Helper()
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	w := world.New(world.Options{Shard: 1})
	settings := DefaultSettings()
	settings.EntranceProbability = 0

	return Deps{
		World:    w,
		Assets:   testCatalog(),
		Tags:     fixedTags(TagPuzzle),
		Rng:      rand.New(rand.NewSource(seed)),
		Sequence: &Sequence{},
		Log:      logrus.NewEntry(log),
		Settings: settings,
	}, w, hook
}

// newTestRoom - комната с фиксированным тегом в начале координат
func newTestRoom(deps Deps, f, r int, tag RoomTag) *Room {
	room := NewRoom(deps.Sequence.Next(), Footprint{Forward: f, Right: r, UnitLength: 400}, Pose{}, deps)
	room.Tag = tag
	return room
}

// objectsOf - объекты мира, принадлежащие роли комнаты
func objectsOf(t *testing.T, w *world.World, s *structure, role Role) []world.Object {
	t.Helper()
	var out []world.Object
	for _, h := range s.Objects(role) {
		obj, ok := w.Object(h)
		if !ok {
			t.Fatalf("handle %s of role %s is not alive", h, role)
		}
		out = append(out, obj)
	}
	return out
}

// sideOf - сторона по yaw стены
func sideOf(rot geometry.Rotator) int {
	switch geometry.NormalizeAxis(rot.Yaw) {
	case 0:
		return 0
	case 90:
		return 1
	case 180:
		return 2
	default:
		return 3
	}
}

func countErrors(hook *logtest.Hook) int {
	n := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			n++
		}
	}
	return n
}

func kindCount(w *world.World, kind enums.ObjectKind) int {
	return w.CountByKind()[kind]
}
