package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var ErrLoopStopped = errors.New("engine: loop stopped")

type loopKey struct{}

// Loop - главный поток инстанса: все изменения графа комнат и мира
// выполняются здесь, по одной задаче, в порядке постановки.
// Очередь не ограничена, поэтому задача может ставить новые задачи, не блокируясь.
type Loop struct {
	mu      sync.Mutex
	queue   []func(ctx context.Context)
	wake    chan struct{}
	done    chan struct{}
	stopped atomic.Bool
	once    sync.Once

	processed atomic.Uint64
	log       *logrus.Entry
}

func NewLoop(log *logrus.Entry) *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		log:  log,
	}
}

// Post ставит задачу в очередь. false - цикл уже остановлен.
func (l *Loop) Post(task func(ctx context.Context)) bool {
	if task == nil || l.stopped.Load() {
		return false
	}
	l.mu.Lock()
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// OnLoop - ctx выдан этим циклом (вызов изнутри задачи)
func (l *Loop) OnLoop(ctx context.Context) bool {
	owner, _ := ctx.Value(loopKey{}).(*Loop)
	return owner == l
}

// Do выполняет fn в главном потоке и ждет завершения.
// Изнутри цикла fn выполняется сразу, иначе ставится в очередь.
func (l *Loop) Do(ctx context.Context, fn func(ctx context.Context)) error {
	if l.OnLoop(ctx) {
		fn(ctx)
		return nil
	}

	finished := make(chan struct{})
	if !l.Post(func(loopCtx context.Context) {
		defer close(finished)
		fn(loopCtx)
	}) {
		return ErrLoopStopped
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		// задача могла успеть выполниться перед остановкой
		select {
		case <-finished:
			return nil
		default:
			return ErrLoopStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run крутит цикл до отмены ctx или Stop. Блокирующий вызов.
func (l *Loop) Run(ctx context.Context) {
	loopCtx := context.WithValue(ctx, loopKey{}, l)
	l.log.Debug("Loop started")
	defer l.log.WithField("processed", l.processed.Load()).Debug("Loop finished")

	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return
		case <-l.done:
			return
		case <-l.wake:
			l.drain(loopCtx)
		}
	}
}

// drain выполняет все, что накопилось, включая задачи, поставленные по ходу
func (l *Loop) drain(ctx context.Context) {
	for {
		if l.stopped.Load() {
			return
		}
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.exec(ctx, task)
	}
}

func (l *Loop) exec(ctx context.Context, task func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			l.log.WithField("panic", fmt.Sprint(r)).Error("Task panicked, loop continues")
		}
	}()
	task(ctx)
	l.processed.Add(1)
}

// Stop останавливает цикл. Задачи в очереди отбрасываются.
func (l *Loop) Stop() {
	l.once.Do(func() {
		l.stopped.Store(true)
		close(l.done)

		l.mu.Lock()
		dropped := len(l.queue)
		l.queue = nil
		l.mu.Unlock()
		if dropped > 0 {
			l.log.WithField("dropped", dropped).Debug("Pending tasks dropped on stop")
		}
	})
}

// Pending - задач в очереди
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Processed - выполнено задач
func (l *Loop) Processed() uint64 {
	return l.processed.Load()
}
