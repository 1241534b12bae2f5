package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"eternal-dungeon/internal/geometry"
	"eternal-dungeon/internal/infrastructure/storage"
	"eternal-dungeon/internal/network"
	"eternal-dungeon/internal/world"
	"eternal-dungeon/pkg/dungeon"
	"eternal-dungeon/pkg/logger"

	"github.com/sirupsen/logrus"
)

var ErrNotBooted = errors.New("engine: dungeon not booted")

// Instance - одно запущенное подземелье: мир, пешка игрока, граф комнат,
// главный поток и опрос позиции игрока.
type Instance struct {
	ID   int
	Seed int64

	World   *world.World
	Pawn    *world.Pawn
	Dungeon *dungeon.Dungeon
	Loop    *Loop

	pollInterval time.Duration
	sequence     *dungeon.Sequence

	// Manual - без тикера: опрос только через PollNow и Replay
	Manual bool

	// tick меняется только в главном потоке
	tick int

	mu      sync.Mutex
	trace   storage.Trace
	journal []JournalEntry

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
	log      *logrus.Entry
}

func NewInstance(id int, seed int64, cfg Config, cats *Catalogs, hub *network.Broadcaster) *Instance {
	log := logger.Component("instance").WithField("dungeon", id)

	i := &Instance{
		ID:           id,
		Seed:         seed,
		Loop:         NewLoop(log.WithField("component", "loop")),
		pollInterval: cfg.PollInterval,
		sequence:     &dungeon.Sequence{},
		trace: storage.Trace{
			Seed:      seed,
			Timestamp: time.Now().Unix(),
			DungeonID: id,
		},
		log: log,
	}
	if i.pollInterval <= 0 {
		i.pollInterval = time.Second
	}

	opts := world.Options{Shard: cfg.ShardId, DungeonID: id}
	deps := dungeon.Deps{
		DungeonID: id,
		Assets:    cats,
		Tags:      cats,
		Scheduler: i.Loop,
		Sequence:  i.sequence,
		Rng:       rand.New(rand.NewSource(seed)),
		Log:       log,
		Settings:  cfg.Settings,
	}
	// nil *Broadcaster в интерфейсе - не nil, поэтому подключаем только живой хаб
	if hub != nil {
		opts.Sink = hub
		deps.Events = hub
		i.Pawn = world.NewPawn(id, hub)
	} else {
		i.Pawn = world.NewPawn(id, nil)
	}

	i.World = world.New(opts)
	deps.World = i.World
	deps.Player = i.Pawn
	i.Dungeon = dungeon.New(deps)
	return i
}

// Start запускает главный поток, загрузку подземелья и тикер опроса.
func (i *Instance) Start(ctx context.Context) {
	ctx, i.cancel = context.WithCancel(ctx)

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		i.Loop.Run(ctx)
	}()

	i.Loop.Post(i.boot)

	if i.Manual {
		i.log.WithField("seed", i.Seed).Info("Instance started in manual mode")
		return
	}

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		ticker := time.NewTicker(i.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				i.Loop.Post(i.poll)
			}
		}
	}()

	i.log.WithField("seed", i.Seed).Info("Instance started")
}

// boot строит стартовую комнату и ставит в нее игрока
func (i *Instance) boot(ctx context.Context) {
	if err := i.Dungeon.Boot(ctx); err != nil {
		i.log.WithError(err).Error("Boot failed")
		return
	}
	if room := i.Dungeon.CurrentRoom(); room != nil {
		i.Pawn.SetLocation(room.Center())
		i.AddLog(fmt.Sprintf("Dungeon booted in room %d (%s)", room.ID, room.Tag), "INFO")
	}
}

// poll - один тик: проверка комнаты игрока и запись смены комнаты в трассу
func (i *Instance) poll(ctx context.Context) {
	i.tick++
	prev := i.Dungeon.CurrentRoomID()
	i.Dungeon.Poll(ctx)

	cur := i.Dungeon.CurrentRoomID()
	if cur == prev || cur == 0 {
		return
	}

	pos, _ := i.Pawn.Location()
	i.mu.Lock()
	i.trace.Samples = append(i.trace.Samples, storage.Sample{Tick: i.tick, Position: pos})
	i.mu.Unlock()

	i.AddLog(fmt.Sprintf("Player moved from room %d to room %d", prev, cur), "TRANSITION")
}

// PollNow ставит опрос в очередь без ожидания тикера
func (i *Instance) PollNow() {
	i.Loop.Post(i.poll)
}

// MovePawn сдвигает игрока и сразу проверяет комнату
func (i *Instance) MovePawn(delta geometry.Vector) geometry.Vector {
	pos := i.Pawn.Move(delta)
	i.PollNow()
	return pos
}

// TeleportPawn ставит игрока в точку и сразу проверяет комнату
func (i *Instance) TeleportPawn(pos geometry.Vector) {
	i.Pawn.SetLocation(pos)
	i.PollNow()
}

// Snapshot снимает состояние графа в главном потоке
func (i *Instance) Snapshot(ctx context.Context) (dungeon.Snapshot, error) {
	var snap dungeon.Snapshot
	err := i.Loop.Do(ctx, func(context.Context) {
		snap = i.Dungeon.Snapshot()
	})
	return snap, err
}

// WaitIdle ждет, пока главный поток разберет все, что поставлено до вызова
func (i *Instance) WaitIdle(ctx context.Context) error {
	return i.Loop.Do(ctx, func(context.Context) {})
}

// Replay проигрывает записанный путь: каждая точка - телепорт и опрос.
// Возвращает число смен комнаты.
func (i *Instance) Replay(ctx context.Context, samples []storage.Sample) (int, error) {
	if err := i.WaitIdle(ctx); err != nil {
		return 0, err
	}

	changes := 0
	booted := true
	for _, smp := range samples {
		i.Pawn.SetLocation(smp.Position)
		err := i.Loop.Do(ctx, func(ctx context.Context) {
			if i.Dungeon.State() == dungeon.StateUninitialized {
				booted = false
				return
			}
			prev := i.Dungeon.CurrentRoomID()
			i.poll(ctx)
			if i.Dungeon.CurrentRoomID() != prev {
				changes++
			}
		})
		if err != nil {
			return changes, err
		}
		if !booted {
			return changes, ErrNotBooted
		}
		// разбор и рост идут следующими задачами очереди
		if err := i.WaitIdle(ctx); err != nil {
			return changes, err
		}
	}
	return changes, nil
}

// Trace - копия записанной трассы
func (i *Instance) Trace() *storage.Trace {
	i.mu.Lock()
	defer i.mu.Unlock()
	t := i.trace
	t.Samples = append([]storage.Sample(nil), i.trace.Samples...)
	return &t
}

// Stop разбирает подземелье в главном потоке, останавливает цикл и закрывает мир.
func (i *Instance) Stop(ctx context.Context) {
	i.stopOnce.Do(func() {
		if i.cancel != nil {
			if err := i.Loop.Do(ctx, i.Dungeon.Teardown); err != nil {
				i.log.WithError(err).Warn("Teardown skipped")
			}
			i.cancel()
		}
		i.Loop.Stop()
		i.wg.Wait()

		leaked := i.World.Close()
		i.Pawn.Remove()
		i.log.WithField("leaked", leaked).Info("Instance stopped")
	})
}
