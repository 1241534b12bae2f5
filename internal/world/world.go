package world

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"eternal-dungeon/internal/core/types"
	"eternal-dungeon/internal/core/types/enums"
	"eternal-dungeon/internal/geometry"
	"eternal-dungeon/pkg/api"

	"github.com/zyedidia/generic/mapset"
)

var (
	// ErrClosed - мир уже уничтожен (остановка сервера)
	ErrClosed = errors.New("world is closed")
	// ErrStaleHandle - объект по ссылке уже уничтожен или слот занят новым объектом
	ErrStaleHandle = errors.New("stale handle")
	// ErrUnknownClass - директория не дает пригодного класса
	ErrUnknownClass = errors.New("unknown class")
	// ErrNilClass - попытка заспавнить объект без класса
	ErrNilClass = errors.New("nil class")
)

// Sink получает событие на каждое изменение мира.
type Sink interface {
	Publish(evt api.WorldEvent)
}

// Class - загруженный класс объекта (аналог UClass в движке).
type Class struct {
	ID        uint32
	Name      string
	Directory string
}

// Object - заспавненный объект мира.
type Object struct {
	Handle   types.Handle
	Class    *Class
	Position geometry.Vector
	Rotation geometry.Rotator
	Scale    geometry.Vector
}

type slot struct {
	gen   uint16
	alive bool
	obj   Object
}

// Options - параметры мира
type Options struct {
	Shard     uint8
	DungeonID int
	Sink      Sink
}

// World - in-memory мир: арена объектов с поколениями.
// Мутации происходят в главном потоке подземелья, мьютекс нужен только
// для чтения из отладочных HTTP обработчиков.
type World struct {
	mu sync.RWMutex

	shard     uint8
	dungeonID int
	sink      Sink

	slots []slot
	free  []uint32
	live  mapset.Set[types.Handle]

	classes  map[string]*Class
	rejected mapset.Set[string]

	closed bool
}

// New создает пустой мир
func New(opts Options) *World {
	return &World{
		shard:     opts.Shard,
		dungeonID: opts.DungeonID,
		sink:      opts.Sink,
		live:      mapset.New[types.Handle](),
		classes:   make(map[string]*Class),
		rejected:  mapset.New[string](),
	}
}

// SetSink подключает получателя событий (Broadcaster инстанса)
func (w *World) SetSink(s Sink) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sink = s
}

// Shard - идентификатор, зашитый в каждый Handle мира
func (w *World) Shard() uint8 {
	return w.shard
}

// RejectClass помечает директорию как незагружаемую (битый ассет).
func (w *World) RejectClass(directory string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rejected.Put(directory)
}

// LoadClass загружает (или берет из кеша) класс по директории ассета.
func (w *World) LoadClass(directory string) (*Class, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrClosed
	}
	dir := strings.TrimSpace(directory)
	if dir == "" || w.rejected.Has(dir) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, directory)
	}
	if class, ok := w.classes[dir]; ok {
		return class, nil
	}

	class := &Class{
		ID:        uint32(len(w.classes) + 1),
		Name:      className(dir),
		Directory: dir,
	}
	w.classes[dir] = class
	return class, nil
}

// className - последний сегмент пути: "/Game/Rooms/Wall" -> "Wall"
func className(dir string) string {
	if i := strings.LastIndexAny(dir, "/\\"); i >= 0 && i < len(dir)-1 {
		return dir[i+1:]
	}
	return dir
}

// Spawn создает объект класса в точке с поворотом.
func (w *World) Spawn(class *Class, kind enums.ObjectKind, pos geometry.Vector, rot geometry.Rotator) (types.Handle, error) {
	if class == nil {
		return types.NilHandle, ErrNilClass
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return types.NilHandle, ErrClosed
	}

	// 1. Берем свободный слот или растим арену
	var idx uint32
	if n := len(w.free); n > 0 {
		idx = w.free[n-1]
		w.free = w.free[:n-1]
	} else {
		idx = uint32(len(w.slots))
		w.slots = append(w.slots, slot{gen: 1})
	}

	// 2. Заселяем
	s := &w.slots[idx]
	h := types.PackHandle(w.shard, kind, s.gen, idx)
	s.alive = true
	s.obj = Object{
		Handle:   h,
		Class:    class,
		Position: pos,
		Rotation: rot,
		Scale:    geometry.Vec(1, 1, 1),
	}
	w.live.Put(h)
	obj := s.obj
	sink := w.sink
	w.mu.Unlock()

	if sink != nil {
		sink.Publish(w.objectEvent(api.EventObjectSpawned, obj))
	}
	return h, nil
}

// Destroy уничтожает объект. Устаревшая ссылка (объект уже уничтожен или
// слот занят новым объектом) возвращает ErrStaleHandle и ничего не трогает.
func (w *World) Destroy(h types.Handle) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	s, err := w.lookup(h)
	if err != nil {
		w.mu.Unlock()
		return err
	}

	obj := s.obj
	w.release(h, s)
	sink := w.sink
	w.mu.Unlock()

	if sink != nil {
		sink.Publish(w.objectEvent(api.EventObjectDestroyed, obj))
	}
	return nil
}

// release освобождает слот. Вызывается под мьютексом.
func (w *World) release(h types.Handle, s *slot) {
	s.alive = false
	s.obj = Object{}
	if s.gen == types.MaxGeneration {
		s.gen = 1
	} else {
		s.gen++
	}
	w.live.Remove(h)
	w.free = append(w.free, h.Index())
}

// SetScale3D меняет масштаб объекта
func (w *World) SetScale3D(h types.Handle, scale geometry.Vector) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	s, err := w.lookup(h)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	s.obj.Scale = scale
	obj := s.obj
	sink := w.sink
	w.mu.Unlock()

	if sink != nil {
		sink.Publish(w.objectEvent(api.EventObjectScaled, obj))
	}
	return nil
}

// SetWorldTransform перемещает и поворачивает объект
func (w *World) SetWorldTransform(h types.Handle, pos geometry.Vector, rot geometry.Rotator) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	s, err := w.lookup(h)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	s.obj.Position = pos
	s.obj.Rotation = rot
	obj := s.obj
	sink := w.sink
	w.mu.Unlock()

	if sink != nil {
		sink.Publish(w.objectEvent(api.EventObjectMoved, obj))
	}
	return nil
}

// Location возвращает позицию и поворот объекта.
// Поворот нормализован в (-180, 180], как его отдает движок: 270 -> -90.
func (w *World) Location(h types.Handle) (geometry.Vector, geometry.Rotator, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return geometry.ZeroVector, geometry.ZeroRotator, ErrClosed
	}
	s, err := w.lookup(h)
	if err != nil {
		return geometry.ZeroVector, geometry.ZeroRotator, err
	}
	return s.obj.Position, s.obj.Rotation.Normalized(), nil
}

// Object возвращает копию объекта
func (w *World) Object(h types.Handle) (Object, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s, err := w.lookup(h)
	if err != nil {
		return Object{}, false
	}
	return s.obj, true
}

// Objects - снимок всех живых объектов в порядке слотов
func (w *World) Objects() []Object {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]Object, 0, w.live.Size())
	w.live.Each(func(h types.Handle) {
		out = append(out, w.slots[h.Index()].obj)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Handle.Index() < out[j].Handle.Index() })
	return out
}

// CountByKind - сколько живых объектов каждой роли
func (w *World) CountByKind() map[enums.ObjectKind]int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	counts := make(map[enums.ObjectKind]int)
	w.live.Each(func(h types.Handle) {
		counts[h.Kind()]++
	})
	return counts
}

// IsAlive - ссылка указывает на живой объект
func (w *World) IsAlive(h types.Handle) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.live.Has(h)
}

// LiveCount - количество живых объектов
func (w *World) LiveCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.live.Size()
}

// Closed - мир уже закрыт
func (w *World) Closed() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.closed
}

// Close уничтожает все оставшиеся объекты и закрывает мир.
// Возвращает количество объектов, которые пришлось убрать (утечки).
func (w *World) Close() int {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return 0
	}

	var leaked []Object
	w.live.Each(func(h types.Handle) {
		leaked = append(leaked, w.slots[h.Index()].obj)
	})
	for _, obj := range leaked {
		w.release(obj.Handle, &w.slots[obj.Handle.Index()])
	}
	w.closed = true
	sink := w.sink
	w.mu.Unlock()

	if sink != nil {
		for _, obj := range leaked {
			sink.Publish(w.objectEvent(api.EventObjectDestroyed, obj))
		}
	}
	return len(leaked)
}

// lookup проверяет поколение ссылки. Вызывается под мьютексом.
func (w *World) lookup(h types.Handle) (*slot, error) {
	if h.IsNil() || !h.IsLocal(w.shard) {
		return nil, fmt.Errorf("%w: %s", ErrStaleHandle, h)
	}
	idx := h.Index()
	if int(idx) >= len(w.slots) {
		return nil, fmt.Errorf("%w: %s", ErrStaleHandle, h)
	}
	s := &w.slots[idx]
	if !s.alive || s.gen != h.Generation() || s.obj.Handle != h {
		return nil, fmt.Errorf("%w: %s", ErrStaleHandle, h)
	}
	return s, nil
}

func (w *World) objectEvent(eventType string, obj Object) api.WorldEvent {
	evt := api.WorldEvent{
		Type:      eventType,
		DungeonID: w.dungeonID,
		Handle:    uint64(obj.Handle),
		Kind:      obj.Handle.Kind().String(),
	}
	if obj.Class != nil {
		evt.Class = obj.Class.Directory
	}
	if eventType != api.EventObjectDestroyed {
		pos := ToVec3(obj.Position)
		rot := ToRot3(obj.Rotation)
		scale := ToVec3(obj.Scale)
		evt.Position = &pos
		evt.Rotation = &rot
		evt.Scale = &scale
	}
	return evt
}

// ToVec3 переводит вектор в DTO протокола
func ToVec3(v geometry.Vector) api.Vec3 {
	return api.Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

// ToRot3 переводит поворот в DTO протокола
func ToRot3(r geometry.Rotator) api.Rot3 {
	return api.Rot3{Pitch: r.Pitch, Yaw: r.Yaw, Roll: r.Roll}
}
