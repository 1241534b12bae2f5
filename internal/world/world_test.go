package world

import (
	"errors"
	"sync"
	"testing"

	"eternal-dungeon/internal/core/types"
	"eternal-dungeon/internal/core/types/enums"
	"eternal-dungeon/internal/geometry"
	"eternal-dungeon/pkg/api"
)

// recordingSink запоминает все события мира
type recordingSink struct {
	mu     sync.Mutex
	events []api.WorldEvent
}

func (s *recordingSink) Publish(evt api.WorldEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func (s *recordingSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

func setupWorld(t *testing.T) (*World, *Class, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	w := New(Options{Shard: 3, DungeonID: 9, Sink: sink})
	class, err := w.LoadClass("/Game/Rooms/Wall")
	if err != nil {
		t.Fatalf("LoadClass() error = %v", err)
	}
	return w, class, sink
}

func TestLoadClass(t *testing.T) {
	w := New(Options{})

	a, err := w.LoadClass("/Game/Rooms/Wall")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := w.LoadClass("/Game/Rooms/Wall")
	if a != b {
		t.Error("same directory should return cached class")
	}
	if a.Name != "Wall" {
		t.Errorf("Name = %q, want Wall", a.Name)
	}

	if _, err := w.LoadClass(""); !errors.Is(err, ErrUnknownClass) {
		t.Errorf("empty directory error = %v, want ErrUnknownClass", err)
	}

	w.RejectClass("/Game/Broken")
	if _, err := w.LoadClass("/Game/Broken"); !errors.Is(err, ErrUnknownClass) {
		t.Errorf("rejected directory error = %v, want ErrUnknownClass", err)
	}
}

func TestSpawnDestroy(t *testing.T) {
	w, class, sink := setupWorld(t)

	// 1. Спавн
	h, err := w.Spawn(class, enums.ObjectKindWall, geometry.Vec(1, 2, 3), geometry.YawOnly(90))
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	if h.Kind() != enums.ObjectKindWall || h.Shard() != 3 {
		t.Errorf("handle = %s", h)
	}
	if w.LiveCount() != 1 {
		t.Errorf("LiveCount = %d, want 1", w.LiveCount())
	}

	// 2. Масштаб и трансформ
	if err := w.SetScale3D(h, geometry.Vec(3, 1, 1)); err != nil {
		t.Fatal(err)
	}
	if err := w.SetWorldTransform(h, geometry.Vec(5, 5, 5), geometry.YawOnly(270)); err != nil {
		t.Fatal(err)
	}
	pos, rot, err := w.Location(h)
	if err != nil {
		t.Fatal(err)
	}
	if pos != geometry.Vec(5, 5, 5) {
		t.Errorf("pos = %v", pos)
	}
	if rot.Yaw != -90 {
		t.Errorf("yaw = %v, want -90 (normalized)", rot.Yaw)
	}

	// 3. Уничтожение
	if err := w.Destroy(h); err != nil {
		t.Fatal(err)
	}
	if w.LiveCount() != 0 {
		t.Errorf("LiveCount = %d, want 0", w.LiveCount())
	}

	want := []string{api.EventObjectSpawned, api.EventObjectScaled, api.EventObjectMoved, api.EventObjectDestroyed}
	got := sink.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestSpawn_NilClass(t *testing.T) {
	w := New(Options{})
	if _, err := w.Spawn(nil, enums.ObjectKindWall, geometry.ZeroVector, geometry.ZeroRotator); !errors.Is(err, ErrNilClass) {
		t.Errorf("Spawn(nil) error = %v, want ErrNilClass", err)
	}
}

func TestDestroy_StaleHandleDoesNotReleaseNewOccupant(t *testing.T) {
	w, class, _ := setupWorld(t)

	// 1. Объект в слоте 0 уничтожен
	old, _ := w.Spawn(class, enums.ObjectKindProp, geometry.ZeroVector, geometry.ZeroRotator)
	if err := w.Destroy(old); err != nil {
		t.Fatal(err)
	}

	// 2. Слот переиспользован новым объектом
	fresh, _ := w.Spawn(class, enums.ObjectKindProp, geometry.ZeroVector, geometry.ZeroRotator)
	if fresh.Index() != old.Index() {
		t.Fatalf("expected slot reuse: old=%s fresh=%s", old, fresh)
	}
	if fresh.Generation() == old.Generation() {
		t.Fatal("generation must change on reuse")
	}

	// 3. Повторное уничтожение по старой ссылке не трогает новый объект
	if err := w.Destroy(old); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("Destroy(old) error = %v, want ErrStaleHandle", err)
	}
	if !w.IsAlive(fresh) {
		t.Error("fresh object was released by a stale handle")
	}
}

func TestLookup_ForeignAndNil(t *testing.T) {
	w, class, _ := setupWorld(t)
	h, _ := w.Spawn(class, enums.ObjectKindFloor, geometry.ZeroVector, geometry.ZeroRotator)

	foreign := types.PackHandle(h.Shard()+1, h.Kind(), h.Generation(), h.Index())
	if err := w.Destroy(foreign); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("foreign shard error = %v, want ErrStaleHandle", err)
	}
	if err := w.SetScale3D(types.NilHandle, geometry.ZeroVector); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("nil handle error = %v, want ErrStaleHandle", err)
	}
}

func TestClose(t *testing.T) {
	w, class, sink := setupWorld(t)
	for i := 0; i < 3; i++ {
		if _, err := w.Spawn(class, enums.ObjectKindWall, geometry.ZeroVector, geometry.ZeroRotator); err != nil {
			t.Fatal(err)
		}
	}

	if leaked := w.Close(); leaked != 3 {
		t.Errorf("Close() = %d, want 3", leaked)
	}
	if w.LiveCount() != 0 {
		t.Errorf("LiveCount after Close = %d", w.LiveCount())
	}
	if _, err := w.Spawn(class, enums.ObjectKindWall, geometry.ZeroVector, geometry.ZeroRotator); !errors.Is(err, ErrClosed) {
		t.Errorf("Spawn after Close error = %v, want ErrClosed", err)
	}
	if _, err := w.LoadClass("/Game/X"); !errors.Is(err, ErrClosed) {
		t.Errorf("LoadClass after Close error = %v, want ErrClosed", err)
	}
	// повторный Close - no-op
	if leaked := w.Close(); leaked != 0 {
		t.Errorf("second Close() = %d, want 0", leaked)
	}

	destroyed := 0
	for _, typ := range sink.types() {
		if typ == api.EventObjectDestroyed {
			destroyed++
		}
	}
	if destroyed != 3 {
		t.Errorf("destroy events = %d, want 3", destroyed)
	}
}

func TestObjectsAndCounts(t *testing.T) {
	w, class, _ := setupWorld(t)
	w.Spawn(class, enums.ObjectKindWall, geometry.ZeroVector, geometry.ZeroRotator)
	w.Spawn(class, enums.ObjectKindWall, geometry.ZeroVector, geometry.ZeroRotator)
	w.Spawn(class, enums.ObjectKindRoof, geometry.ZeroVector, geometry.ZeroRotator)

	objs := w.Objects()
	if len(objs) != 3 {
		t.Fatalf("Objects() = %d, want 3", len(objs))
	}
	for i := 1; i < len(objs); i++ {
		if objs[i-1].Handle.Index() > objs[i].Handle.Index() {
			t.Error("Objects() must be ordered by slot")
		}
	}

	counts := w.CountByKind()
	if counts[enums.ObjectKindWall] != 2 || counts[enums.ObjectKindRoof] != 1 {
		t.Errorf("CountByKind() = %v", counts)
	}
}

func TestPawn(t *testing.T) {
	sink := &recordingSink{}
	p := NewPawn(1, sink)

	if _, ok := p.CurrentPlayerPosition(); ok {
		t.Error("unplaced pawn must report no position")
	}

	p.SetLocation(geometry.Vec(100, 200, 50))
	next := p.Move(geometry.Vec(400, 0, 0))
	if next != geometry.Vec(500, 200, 50) {
		t.Errorf("Move() = %v", next)
	}

	pos, ok := p.CurrentPlayerPosition()
	if !ok || pos != next {
		t.Errorf("position = %v %v", pos, ok)
	}

	p.Remove()
	if _, ok := p.Location(); ok {
		t.Error("removed pawn must report no position")
	}
	if len(sink.types()) != 2 {
		t.Errorf("pawn events = %v, want 2", sink.types())
	}
}
