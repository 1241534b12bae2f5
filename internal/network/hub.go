package network

import (
	"sync"
	"sync/atomic"

	"eternal-dungeon/pkg/api"
)

// subscriberBuffer - размер личного канала подписчика
const subscriberBuffer = 256

// Broadcaster занимается только рассылкой событий мира подписчикам.
// Реализует world.Sink и dungeon.EventSink.
type Broadcaster struct {
	mu sync.RWMutex
	// Мапа: Token -> Личный канал
	subscribers map[string]chan api.WorldEvent
	dropped     atomic.Uint64
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]chan api.WorldEvent),
	}
}

// Register создает личный канал подписчика (зритель или walker)
func (b *Broadcaster) Register(token string) chan api.WorldEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Переподключение с тем же токеном закрывает старый канал
	if old, ok := b.subscribers[token]; ok {
		close(old)
	}

	ch := make(chan api.WorldEvent, subscriberBuffer)
	b.subscribers[token] = ch
	return ch
}

// Unregister удаляет подписчика, только если под токеном все еще его канал ch.
// Старое соединение, закрывшееся после переподключения, не трогает новое.
func (b *Broadcaster) Unregister(token string, ch chan api.WorldEvent) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, ok := b.subscribers[token]
	if !ok || cur != ch {
		return false
	}
	close(cur)
	delete(b.subscribers, token)
	return true
}

// SendTo отправляет событие конкретному подписчику (Unicast)
func (b *Broadcaster) SendTo(token string, evt api.WorldEvent) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ch, ok := b.subscribers[token]
	if !ok {
		return false
	}
	select {
	case ch <- evt:
		return true
	default:
		return false
	}
}

// Publish отправляет событие всем. Медленный подписчик теряет событие,
// главный поток никогда не блокируется.
func (b *Broadcaster) Publish(evt api.WorldEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			b.dropped.Add(1)
		}
	}
}

// HasSubscriber проверяет, подписан ли токен
func (b *Broadcaster) HasSubscriber(token string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.subscribers[token]
	return ok
}

// SubscriberCount возвращает количество активных подписчиков.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped - сколько событий потеряно на переполненных каналах
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}
