package dungeon

import (
	"context"
	"errors"
	"fmt"

	"eternal-dungeon/internal/geometry"
	"eternal-dungeon/pkg/api"
	"eternal-dungeon/pkg/utils"

	"github.com/sirupsen/logrus"
	"github.com/zyedidia/generic/mapset"
)

// State - состояние графа комнат
type State int

const (
	StateUninitialized State = iota
	StateGrowing
	StateSettled
	StateTransitioning
)

func (s State) String() string {
	switch s {
	case StateGrowing:
		return "GROWING"
	case StateSettled:
		return "SETTLED"
	case StateTransitioning:
		return "TRANSITIONING"
	default:
		return "UNINITIALIZED"
	}
}

// Dungeon - бесконечное подземелье: текущая комната, ее дети и коридоры между ними.
// Все методы, меняющие граф, исполняются в главном потоке: вызов из другого
// контекста переотправляется в очередь Scheduler.
type Dungeon struct {
	deps Deps
	log  *logrus.Entry

	rooms     []*Room
	corridors []*Corridor
	current   RoomID
	state     State
	lastErr   error
}

// New создает пустое подземелье. Геометрия появляется в Boot.
func New(deps Deps) *Dungeon {
	deps = deps.withDefaults()
	return &Dungeon{
		deps: deps,
		log:  deps.Log.WithFields(logrus.Fields{"component": "dungeon", "dungeon": deps.DungeonID}),
	}
}

// onLoop - можно ли трогать граф из этого контекста
func (d *Dungeon) onLoop(ctx context.Context) bool {
	return d.deps.Scheduler == nil || d.deps.Scheduler.OnLoop(ctx)
}

// dispatch ставит задачу в очередь главного потока (без очереди - выполняет сразу)
func (d *Dungeon) dispatch(ctx context.Context, task func(ctx context.Context)) {
	if d.deps.Scheduler == nil {
		task(ctx)
		return
	}
	if !d.deps.Scheduler.Post(task) {
		d.log.Debug("Scheduler stopped, task dropped")
	}
}

// Boot строит начальную комнату с обязательным входом на смещении 0
// и сразу выращивает от нее одно поколение.
func (d *Dungeon) Boot(ctx context.Context) error {
	if !d.onLoop(ctx) {
		d.dispatch(ctx, func(ctx context.Context) {
			if err := d.Boot(ctx); err != nil {
				d.log.WithError(err).Error("Boot failed")
			}
		})
		return nil
	}
	if d.state != StateUninitialized {
		return fmt.Errorf("boot: dungeon already %s", d.state)
	}

	fp := d.randomRoomFootprint()
	room := NewRoom(d.deps.Sequence.Next(), fp, Pose{}, d.deps)
	room.Tag = TagInitialRoom

	hint := Entrance{WallIndex: -1, Offset: 0, Active: true}
	room.CreateRoom(&hint)
	d.log.WithField("room_id", room.ID).Info("Initial Room Created")

	d.rooms = append(d.rooms, room)
	d.current = room.ID
	d.publishRoom(api.EventRoomSpawned, room)

	err := d.Grow(ctx, room)
	d.state = StateSettled
	return err
}

// Grow выращивает одно поколение: коридор на каждый активный вход origin,
// затем комнату на дальнем конце каждого коридора.
func (d *Dungeon) Grow(ctx context.Context, origin *Room) error {
	if origin == nil {
		return nil
	}
	if !d.onLoop(ctx) {
		d.dispatch(ctx, func(ctx context.Context) {
			if err := d.Grow(ctx, origin); err != nil {
				d.log.WithError(err).Error("Growth failed")
			}
		})
		return nil
	}

	entrances := origin.ActiveEntrances()

	// Инвариант: коридор на каждый вход. Коридоры прошлого поколения не
	// разобраны - прерываемся до спавна, мир и состояние не меняются.
	if len(d.corridors) != 0 {
		err := fmt.Errorf("%w: %d corridors, %d entrances in room %d",
			ErrCountMismatch, len(d.corridors)+len(entrances), len(entrances), origin.ID)
		d.lastErr = err
		d.log.WithError(err).Error("Growth aborted")
		return err
	}

	d.state = StateGrowing
	d.log.WithFields(logrus.Fields{"room_id": origin.ID, "entrances": len(entrances)}).Info("Generating dungeon from room")

	// 1. Коридоры
	built := make([]*Corridor, 0, len(entrances))
	for _, e := range entrances {
		c := NewCorridor(d.deps)
		rw := utils.RandWallCount(d.deps.Rng, d.deps.Settings.CorridorMinWalls, d.deps.Settings.CorridorMaxWalls)
		cfg, err := CorridorConfigFor(e.Rotation.Yaw, rw, c.Footprint.UnitLength)
		if err != nil {
			d.log.WithError(err).Error("Corridor left unconfigured")
		} else {
			c.Configure(cfg.Forward, cfg.Right, Pose{Position: e.Position.Sub(cfg.Offset)})
		}
		c.CreateCorridor()
		built = append(built, c)
	}
	d.corridors = built
	d.lastErr = nil
	defer func() { d.state = StateSettled }()

	// 2. Комнаты на дальних концах коридоров
	for i, c := range d.corridors {
		room := d.spawnChild(entrances[i], c)
		d.rooms = append(d.rooms, room)
		d.publishRoom(api.EventRoomSpawned, room)
		d.log.WithField("room_id", room.ID).Info("Room created")
	}
	return nil
}

// spawnChild ставит комнату с ответным входом, смотрящим назад в коридор.
func (d *Dungeon) spawnChild(e Entrance, c *Corridor) *Room {
	dir := EntranceDirection(e.Rotation)
	loc := NewLocation(e.Position, dir, OffsetDistance(c.Footprint))

	fp := d.randomRoomFootprint()
	room := NewRoom(d.deps.Sequence.Next(), fp, Pose{}, d.deps)

	offset, err := RandomRangeValue(d.deps.Rng, fp, e.Rotation.Yaw)
	if err != nil {
		d.log.WithError(err).Error("Entrance offset defaulted to 0")
	}
	yaw, err := ReflectYaw(e.Rotation.Yaw)
	if err != nil {
		d.log.WithError(err).Error("Entrance yaw defaulted to 0")
	}
	hint := Entrance{
		WallIndex: -1,
		Offset:    offset,
		Active:    true,
		Position:  loc,
		Rotation:  geometry.YawOnly(yaw),
	}

	adjust, err := AdjustVector(fp, offset, yaw)
	if err != nil {
		d.log.WithError(err).Error("Room origin not adjusted")
	}
	room.Origin = Pose{Position: loc.Sub(adjust)}
	room.CreateRoom(&hint)
	return room
}

func (d *Dungeon) randomRoomFootprint() Footprint {
	s := d.deps.Settings
	return Footprint{
		Forward:    utils.RandWallCount(d.deps.Rng, s.RoomMinWalls, s.RoomMaxWalls),
		Right:      utils.RandWallCount(d.deps.Rng, s.RoomMinWalls, s.RoomMaxWalls),
		UnitLength: s.UnitLength,
	}
}

// Poll проверяет, в какой комнате игрок. При смене комнаты ставит в очередь
// разбор старого поколения и рост от новой комнаты, затем обновляет текущий id.
// Пока переход не завершен, новые срабатывания игнорируются.
func (d *Dungeon) Poll(ctx context.Context) {
	if !d.onLoop(ctx) {
		d.dispatch(ctx, d.Poll)
		return
	}

	switch d.state {
	case StateUninitialized:
		return
	case StateTransitioning:
		d.log.Debug("Transition pending, trigger ignored")
		return
	}

	if d.deps.Player == nil {
		return
	}
	pos, ok := d.deps.Player.CurrentPlayerPosition()
	for _, r := range d.rooms {
		r.UpdatePresence(pos, ok)
	}
	if !ok {
		return
	}

	room := d.RoomAt(pos)
	if room == nil || room.ID == d.current {
		return
	}

	// 1. Переход: сначала разбор, потом рост - очередь исполняет задачи по порядку
	d.state = StateTransitioning
	d.dispatch(ctx, func(ctx context.Context) {
		d.Prune(ctx, room)
	})
	d.dispatch(ctx, func(ctx context.Context) {
		d.regrow(ctx, room)
	})

	// 2. Текущая комната меняется только после постановки задач
	prev := d.current
	d.current = room.ID
	d.log.WithFields(logrus.Fields{"from": prev, "to": room.ID}).Info("Player moved to new room")
	d.deps.publish(api.WorldEvent{Type: api.EventRoomChanged, RoomID: int(room.ID)})
}

func (d *Dungeon) regrow(ctx context.Context, room *Room) {
	// подземелье разобрали, пока задача ждала в очереди
	if room.Destroyed() {
		if d.state == StateTransitioning {
			d.state = StateSettled
		}
		return
	}
	if err := d.Grow(ctx, room); err != nil {
		// прерванный рост не трогает состояние, переход все равно завершен
		if d.state == StateTransitioning {
			d.state = StateSettled
		}
		if !errors.Is(err, ErrNoWorldContext) {
			d.log.WithError(err).Error("Regrowth failed")
		}
	}
}

// Prune разбирает все комнаты, кроме keep, и все коридоры.
func (d *Dungeon) Prune(ctx context.Context, keep ...*Room) {
	if !d.onLoop(ctx) {
		d.dispatch(ctx, func(ctx context.Context) { d.Prune(ctx, keep...) })
		return
	}

	keepIDs := mapset.New[RoomID]()
	for _, r := range keep {
		if r != nil {
			keepIDs.Put(r.ID)
		}
	}

	kept := make([]*Room, 0, keepIDs.Size())
	destroyed := 0
	for _, r := range d.rooms {
		if keepIDs.Has(r.ID) {
			kept = append(kept, r)
			continue
		}
		r.DestroyRoom()
		d.publishRoom(api.EventRoomDestroyed, r)
		destroyed++
	}
	d.rooms = kept
	d.log.WithFields(logrus.Fields{"destroyed": destroyed, "kept": len(kept)}).Debug("Dungeon pruned")

	d.ClearCorridors(ctx)
}

// ClearCorridors разбирает все коридоры
func (d *Dungeon) ClearCorridors(ctx context.Context) {
	if !d.onLoop(ctx) {
		d.dispatch(ctx, d.ClearCorridors)
		return
	}
	for _, c := range d.corridors {
		c.DestroyCorridor()
	}
	d.corridors = nil
}

// Teardown разбирает все подземелье (остановка инстанса).
func (d *Dungeon) Teardown(ctx context.Context) {
	if !d.onLoop(ctx) {
		d.dispatch(ctx, d.Teardown)
		return
	}
	d.Prune(ctx)
	d.current = 0
	d.state = StateUninitialized
	d.log.Info("Dungeon torn down")
}

// RoomAt - первая комната, в зону которой попадает точка
func (d *Dungeon) RoomAt(pos geometry.Vector) *Room {
	for _, r := range d.rooms {
		if r.Contains(pos) {
			return r
		}
	}
	return nil
}

// RoomByID ищет комнату в текущем графе
func (d *Dungeon) RoomByID(id RoomID) *Room {
	for _, r := range d.rooms {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// Rooms - копия списка комнат
func (d *Dungeon) Rooms() []*Room {
	return append([]*Room(nil), d.rooms...)
}

// Corridors - копия списка коридоров
func (d *Dungeon) Corridors() []*Corridor {
	return append([]*Corridor(nil), d.corridors...)
}

// CurrentRoomID - комната, в которой игрок
func (d *Dungeon) CurrentRoomID() RoomID {
	return d.current
}

// CurrentRoom - текущая комната (nil до Boot)
func (d *Dungeon) CurrentRoom() *Room {
	return d.RoomByID(d.current)
}

// State - состояние графа
func (d *Dungeon) State() State {
	return d.state
}

func (d *Dungeon) publishRoom(eventType string, r *Room) {
	evt := api.WorldEvent{Type: eventType, RoomID: int(r.ID)}
	if eventType == api.EventRoomSpawned {
		view := r.View()
		view.Current = r.ID == d.current
		evt.Room = &view
	}
	d.deps.publish(evt)
}

// Snapshot - состояние подземелья для отладочных обработчиков
type Snapshot struct {
	DungeonID   int            `json:"dungeonId"`
	State       string         `json:"state"`
	CurrentRoom int            `json:"currentRoom"`
	LastRoomID  int            `json:"lastRoomId"`
	Rooms       []api.RoomView `json:"rooms"`
	Corridors   []CorridorView `json:"corridors"`
	LastError   string         `json:"lastError,omitempty"`
}

// Snapshot снимает копию графа. Вызывать из главного потока.
func (d *Dungeon) Snapshot() Snapshot {
	snap := Snapshot{
		DungeonID:   d.deps.DungeonID,
		State:       d.state.String(),
		CurrentRoom: int(d.current),
		LastRoomID:  int(d.deps.Sequence.Last()),
		Rooms:       make([]api.RoomView, 0, len(d.rooms)),
		Corridors:   make([]CorridorView, 0, len(d.corridors)),
	}
	for _, r := range d.rooms {
		view := r.View()
		view.Current = r.ID == d.current
		snap.Rooms = append(snap.Rooms, view)
	}
	for _, c := range d.corridors {
		snap.Corridors = append(snap.Corridors, c.View())
	}
	if d.lastErr != nil {
		snap.LastError = d.lastErr.Error()
	}
	return snap
}
