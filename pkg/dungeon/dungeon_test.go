package dungeon

import (
	"context"
	"errors"
	"strings"
	"testing"

	"eternal-dungeon/internal/geometry"
	"eternal-dungeon/internal/world"
	"eternal-dungeon/pkg/api"
)

// eventLog запоминает события подземелья
type eventLog struct {
	events []api.WorldEvent
}

func (l *eventLog) Publish(evt api.WorldEvent) {
	l.events = append(l.events, evt)
}

func (l *eventLog) count(eventType string) int {
	n := 0
	for _, e := range l.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// assertGrown проверяет инварианты графа после завершенного цикла роста
func assertGrown(t *testing.T, d *Dungeon, w *world.World) {
	t.Helper()
	current := d.CurrentRoom()
	if current == nil {
		t.Fatal("current room is missing")
	}
	entrances := len(current.ActiveEntrances())
	if len(d.Corridors()) != entrances {
		t.Errorf("corridors = %d, active entrances = %d", len(d.Corridors()), entrances)
	}
	if len(d.Rooms()) != 1+len(d.Corridors()) {
		t.Errorf("rooms = %d, want 1 + %d", len(d.Rooms()), len(d.Corridors()))
	}

	// Все живые объекты мира принадлежат графу
	owned := 0
	for _, r := range d.Rooms() {
		owned += r.ObjectCount()
	}
	for _, c := range d.Corridors() {
		owned += c.ObjectCount()
	}
	if owned != w.LiveCount() {
		t.Errorf("graph owns %d objects, world has %d live", owned, w.LiveCount())
	}
}

func TestBoot_InitialRoom(t *testing.T) {
	deps, w, _ := setupDeps(t, 1)
	events := &eventLog{}
	deps.Events = events
	d := New(deps)

	if err := d.Boot(context.Background()); err != nil {
		t.Fatalf("Boot failed: %v", err)
	}

	initial := d.CurrentRoom()
	if initial == nil || initial.Tag != TagInitialRoom || initial.ID != 1 {
		t.Fatalf("unexpected initial room %+v", initial)
	}

	// 1. Обязательный вход на стороне 0, сегмент 0
	ents := initial.ActiveEntrances()
	if len(ents) != 1 || ents[0].WallIndex != 0 || ents[0].Offset != 0 {
		t.Fatalf("initial entrances = %+v", ents)
	}

	// 2. Одно поколение выращено
	assertGrown(t, d, w)
	if d.State() != StateSettled {
		t.Errorf("state = %s, want SETTLED", d.State())
	}
	if events.count(api.EventRoomSpawned) != len(d.Rooms()) {
		t.Errorf("ROOM_SPAWNED = %d, rooms = %d", events.count(api.EventRoomSpawned), len(d.Rooms()))
	}
}

func TestBoot_GrowthInvariant(t *testing.T) {
	for seed := int64(1); seed <= 15; seed++ {
		deps, w, _ := setupDeps(t, seed)
		deps.Settings.EntranceProbability = 0.3
		deps.Tags = fixedTags(TagCombat)
		d := New(deps)

		if err := d.Boot(context.Background()); err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		assertGrown(t, d, w)

		// Каждый ребенок стоит ответным входом к своему коридору
		for _, r := range d.Rooms()[1:] {
			if len(r.ActiveEntrances()) == 0 {
				t.Errorf("seed %d: child room %d has no entrance", seed, r.ID)
			}
		}
	}
}

func TestBoot_Twice(t *testing.T) {
	deps, _, _ := setupDeps(t, 1)
	d := New(deps)
	if err := d.Boot(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := d.Boot(context.Background()); err == nil {
		t.Error("second boot must fail")
	}
}

func TestBoot_OffLoopIsDeferred(t *testing.T) {
	deps, w, _ := setupDeps(t, 1)
	sched := &recordingScheduler{}
	deps.Scheduler = sched
	d := New(deps)

	// 1. Вызов не из главного потока только ставит задачу
	if err := d.Boot(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(d.Rooms()) != 0 || w.LiveCount() != 0 {
		t.Fatal("graph must not change outside the loop")
	}

	// 2. Тик исполняет загрузку и отложенные пропы
	sched.RunAll()
	if d.State() != StateSettled {
		t.Fatalf("state = %s", d.State())
	}
	assertGrown(t, d, w)
}

func TestGrow_EastEntrance(t *testing.T) {
	deps, _, _ := setupDeps(t, 4)
	d := New(deps)

	origin := newTestRoom(deps, 4, 5, TagPuzzle)
	hint := Entrance{WallIndex: -1, Offset: 2, Active: true, Rotation: geometry.YawOnly(90)}
	origin.CreateRoom(&hint)

	if err := d.Grow(context.Background(), origin); err != nil {
		t.Fatal(err)
	}

	// 1. Коридор вдоль X: Forward = случайная длина, Right = 1
	corridors := d.Corridors()
	if len(corridors) != 1 {
		t.Fatalf("expected 1 corridor, got %d", len(corridors))
	}
	fp := corridors[0].Footprint
	if fp.Right != 1 || fp.Forward < 3 || fp.Forward > 11 {
		t.Errorf("corridor footprint = %dx%d", fp.Forward, fp.Right)
	}

	// 2. У новой комнаты ответный вход на стороне 3 с yaw -90
	rooms := d.Rooms()
	if len(rooms) != 1 {
		t.Fatalf("expected 1 child, got %d", len(rooms))
	}
	back := rooms[0].ActiveEntrances()
	if len(back) != 1 || back[0].WallIndex != 3 || !geometry.IsNearlyEqual(back[0].Rotation.Yaw, -90, 0.001) {
		t.Errorf("child entrances = %+v", back)
	}
}

func TestGrow_CountMismatch(t *testing.T) {
	deps, w, _ := setupDeps(t, 1)
	d := New(deps)
	if err := d.Boot(context.Background()); err != nil {
		t.Fatal(err)
	}
	rooms := len(d.Rooms())
	corridors := len(d.Corridors())
	live := w.LiveCount()
	state := d.State()

	// 1. Повторный рост без разбора: коридоров больше, чем входов
	err := d.Grow(context.Background(), d.CurrentRoom())
	if !errors.Is(err, ErrCountMismatch) {
		t.Fatalf("expected ErrCountMismatch, got %v", err)
	}

	// 2. Прерванный проход ничего не спавнит и не меняет состояние
	if len(d.Rooms()) != rooms {
		t.Errorf("rooms must not be added after mismatch: %d -> %d", rooms, len(d.Rooms()))
	}
	if len(d.Corridors()) != corridors {
		t.Errorf("corridors must not be added after mismatch: %d -> %d", corridors, len(d.Corridors()))
	}
	if w.LiveCount() != live {
		t.Errorf("live objects changed after mismatch: %d -> %d", live, w.LiveCount())
	}
	if d.State() != state {
		t.Errorf("state = %s, want %s", d.State(), state)
	}

	// 3. Ошибка видна в снимке
	snap := d.Snapshot()
	if !strings.Contains(snap.LastError, ErrCountMismatch.Error()) {
		t.Errorf("snapshot must record aborted pass, got %q", snap.LastError)
	}

	// 4. После разбора рост снова проходит и ошибка сбрасывается
	d.Prune(context.Background(), d.CurrentRoom())
	if err := d.Grow(context.Background(), d.CurrentRoom()); err != nil {
		t.Fatalf("grow after prune: %v", err)
	}
	if d.Snapshot().LastError != "" || d.State() != StateSettled {
		t.Errorf("after regrow: state=%s lastError=%q", d.State(), d.Snapshot().LastError)
	}
}

func TestGrow_UnexpectedYaw(t *testing.T) {
	deps, w, hook := setupDeps(t, 1)
	d := New(deps)

	origin := newTestRoom(deps, 3, 3, TagPuzzle)
	origin.CreateRoom(nil)
	origin.entrances = []Entrance{{WallIndex: 0, Active: true, Rotation: geometry.YawOnly(45)}}

	if err := d.Grow(context.Background(), origin); err != nil {
		t.Fatal(err)
	}

	// Коридор остался 1x1, комната все равно создана, ошибки залогированы
	c := d.Corridors()
	if len(c) != 1 || c[0].Footprint.Forward != 1 || c[0].Footprint.Right != 1 {
		t.Fatalf("corridors = %+v", c)
	}
	if len(d.Rooms()) != 1 {
		t.Errorf("expected 1 child room, got %d", len(d.Rooms()))
	}
	if countErrors(hook) == 0 {
		t.Error("unexpected yaw must be logged")
	}
	if w.LiveCount() == 0 {
		t.Error("corridor and room geometry expected")
	}
}

func TestPoll_RoomChange(t *testing.T) {
	deps, w, _ := setupDeps(t, 8)
	sched := &recordingScheduler{}
	player := &fakePlayer{}
	events := &eventLog{}
	deps.Scheduler = sched
	deps.Player = player
	deps.Events = events
	d := New(deps)

	ctx := loopContext()
	if err := d.Boot(ctx); err != nil {
		t.Fatal(err)
	}
	sched.RunAll()
	initial := d.CurrentRoom()

	// 1. Игрок в стартовой комнате: ничего не происходит
	player.moveTo(initial.Center())
	d.Poll(ctx)
	if len(sched.tasks) != 0 || d.State() != StateSettled {
		t.Fatalf("no transition expected, state %s, tasks %d", d.State(), len(sched.tasks))
	}

	// 2. Игрок вошел в дочернюю комнату
	child := d.Rooms()[1]
	player.moveTo(child.Center())
	target := d.RoomAt(child.Center())
	d.Poll(ctx)

	if d.State() != StateTransitioning {
		t.Fatalf("state = %s, want TRANSITIONING", d.State())
	}
	if d.CurrentRoomID() != target.ID {
		t.Errorf("current = %d, want %d", d.CurrentRoomID(), target.ID)
	}
	queued := len(sched.tasks)

	// 3. Пока переход не завершен, новые срабатывания игнорируются
	player.moveTo(initial.Center())
	d.Poll(ctx)
	if len(sched.tasks) != queued || d.CurrentRoomID() != target.ID {
		t.Error("trigger during transition must be ignored")
	}

	// 4. Тик: разбор и рост
	sched.RunAll()
	if d.State() != StateSettled {
		t.Errorf("state = %s, want SETTLED", d.State())
	}
	if d.RoomByID(initial.ID) != nil || !initial.Destroyed() {
		t.Error("initial room must be pruned")
	}
	if d.Rooms()[0] != target {
		t.Error("new current room must be kept first")
	}
	assertGrown(t, d, w)

	if events.count(api.EventRoomChanged) != 1 {
		t.Errorf("ROOM_CHANGED = %d", events.count(api.EventRoomChanged))
	}
	if events.count(api.EventRoomDestroyed) == 0 {
		t.Error("ROOM_DESTROYED expected")
	}
}

func TestPoll_OffLoopIsDeferred(t *testing.T) {
	deps, _, _ := setupDeps(t, 8)
	sched := &recordingScheduler{}
	player := &fakePlayer{}
	deps.Scheduler = sched
	deps.Player = player
	d := New(deps)
	if err := d.Boot(loopContext()); err != nil {
		t.Fatal(err)
	}
	sched.RunAll()

	child := d.Rooms()[1]
	player.moveTo(child.Center())
	target := d.RoomAt(child.Center())

	d.Poll(context.Background())
	if d.CurrentRoomID() == target.ID {
		t.Fatal("poll outside the loop must not touch the graph")
	}
	sched.RunAll()
	if d.CurrentRoomID() != target.ID || d.State() != StateSettled {
		t.Errorf("current = %d state = %s", d.CurrentRoomID(), d.State())
	}
}

func TestPoll_BeforeBoot(t *testing.T) {
	deps, w, _ := setupDeps(t, 8)
	deps.Player = &fakePlayer{placed: true}
	d := New(deps)
	d.Poll(context.Background())
	if w.LiveCount() != 0 || d.State() != StateUninitialized {
		t.Error("poll before boot must be a no-op")
	}
}

func TestPrune_KeepsOnlyGivenRoom(t *testing.T) {
	deps, w, _ := setupDeps(t, 2)
	deps.Settings.EntranceProbability = 1
	d := New(deps)
	if err := d.Boot(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(d.Rooms()) < 3 {
		t.Fatalf("expected several children with probability 1, got %d rooms", len(d.Rooms()))
	}

	keep := d.Rooms()[2]
	d.Prune(context.Background(), keep)

	rooms := d.Rooms()
	if len(rooms) != 1 || rooms[0].ID != keep.ID {
		t.Fatalf("rooms after prune = %d", len(rooms))
	}
	if len(d.Corridors()) != 0 {
		t.Errorf("corridors must be cleared, got %d", len(d.Corridors()))
	}
	if w.LiveCount() != keep.ObjectCount() {
		t.Errorf("live %d, kept room owns %d", w.LiveCount(), keep.ObjectCount())
	}
}

func TestTeardown(t *testing.T) {
	deps, w, _ := setupDeps(t, 3)
	d := New(deps)
	if err := d.Boot(context.Background()); err != nil {
		t.Fatal(err)
	}

	d.Teardown(context.Background())
	if w.LiveCount() != 0 {
		t.Errorf("leaked %d objects", w.LiveCount())
	}
	if d.State() != StateUninitialized || d.CurrentRoom() != nil {
		t.Error("dungeon must be reset")
	}

	// Можно загрузить заново: id не переиспользуются
	last := deps.Sequence.Last()
	if err := d.Boot(context.Background()); err != nil {
		t.Fatal(err)
	}
	if d.CurrentRoomID() <= last {
		t.Errorf("room id %d reused (last %d)", d.CurrentRoomID(), last)
	}
}

func TestSequence_PerDungeon(t *testing.T) {
	first, _, _ := setupDeps(t, 1)
	second, _, _ := setupDeps(t, 1)

	a, b := New(first), New(second)
	if err := a.Boot(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := b.Boot(context.Background()); err != nil {
		t.Fatal(err)
	}
	if a.CurrentRoomID() != 1 || b.CurrentRoomID() != 1 {
		t.Errorf("each dungeon numbers rooms from 1: %d, %d", a.CurrentRoomID(), b.CurrentRoomID())
	}

	var seq Sequence
	for want := RoomID(1); want <= 5; want++ {
		if got := seq.Next(); got != want {
			t.Fatalf("Next() = %d, want %d", got, want)
		}
	}
	if seq.Last() != 5 {
		t.Errorf("Last() = %d", seq.Last())
	}
}

func TestSnapshot(t *testing.T) {
	deps, _, _ := setupDeps(t, 6)
	deps.DungeonID = 42
	d := New(deps)
	if err := d.Boot(context.Background()); err != nil {
		t.Fatal(err)
	}

	snap := d.Snapshot()
	if snap.DungeonID != 42 || snap.State != "SETTLED" || snap.CurrentRoom != int(d.CurrentRoomID()) {
		t.Errorf("snapshot header = %+v", snap)
	}
	if len(snap.Rooms) != len(d.Rooms()) || len(snap.Corridors) != len(d.Corridors()) {
		t.Errorf("snapshot sizes: %d rooms, %d corridors", len(snap.Rooms), len(snap.Corridors))
	}
	if !snap.Rooms[0].Current {
		t.Error("initial room must be marked current")
	}
	if snap.LastRoomID != int(deps.Sequence.Last()) {
		t.Errorf("last room id = %d", snap.LastRoomID)
	}
}
