package world

import (
	"sync"

	"eternal-dungeon/internal/geometry"
	"eternal-dungeon/pkg/api"
)

// Pawn - пешка игрока. Позицию пишут websocket-клиенты и реплей,
// читает опрос подземелья, поэтому доступ под мьютексом.
type Pawn struct {
	mu     sync.RWMutex
	pos    geometry.Vector
	placed bool

	dungeonID int
	sink      Sink
}

// NewPawn создает пешку, еще не поставленную в мир
func NewPawn(dungeonID int, sink Sink) *Pawn {
	return &Pawn{dungeonID: dungeonID, sink: sink}
}

// SetLocation ставит пешку в точку
func (p *Pawn) SetLocation(pos geometry.Vector) {
	p.mu.Lock()
	p.pos = pos
	p.placed = true
	sink := p.sink
	p.mu.Unlock()

	if sink != nil {
		v := ToVec3(pos)
		sink.Publish(api.WorldEvent{
			Type:      api.EventPawnMoved,
			DungeonID: p.dungeonID,
			Kind:      "PAWN",
			Position:  &v,
		})
	}
}

// Move сдвигает пешку на вектор. Непоставленная пешка стартует из начала координат.
func (p *Pawn) Move(delta geometry.Vector) geometry.Vector {
	p.mu.RLock()
	next := p.pos.Add(delta)
	p.mu.RUnlock()

	p.SetLocation(next)
	return next
}

// Remove убирает пешку из мира (игрок отключился)
func (p *Pawn) Remove() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placed = false
}

// Location возвращает позицию. false - пешки в мире нет.
func (p *Pawn) Location() (geometry.Vector, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pos, p.placed
}

// CurrentPlayerPosition реализует PlayerLocator подземелья
func (p *Pawn) CurrentPlayerPosition() (geometry.Vector, bool) {
	return p.Location()
}
