package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Job - фоновая работа (чтение файлов, сохранение трасс).
// Результат, который меняет граф, задача возвращает в главный поток через Loop.Post.
type Job func(ctx context.Context)

// Workers - пул фоновых горутин
type Workers struct {
	jobs chan Job
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool

	log *logrus.Entry
}

func NewWorkers(n int, log *logrus.Entry) *Workers {
	if n < 1 {
		n = 1
	}
	w := &Workers{
		jobs: make(chan Job, 64),
		log:  log,
	}
	w.wg.Add(n)
	for i := 0; i < n; i++ {
		go w.run(i)
	}
	return w
}

func (w *Workers) run(id int) {
	defer w.wg.Done()
	for job := range w.jobs {
		w.exec(id, job)
	}
}

func (w *Workers) exec(id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			w.log.WithFields(logrus.Fields{"worker": id, "panic": fmt.Sprint(r)}).Error("Job panicked")
		}
	}()
	job(context.Background())
}

// Submit ставит работу в очередь. false - пул закрыт или очередь полна.
func (w *Workers) Submit(job Job) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	select {
	case w.jobs <- job:
		return true
	default:
		w.log.Warn("Worker queue full, job rejected")
		return false
	}
}

// Stop дожидается выполнения уже поставленных работ
func (w *Workers) Stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.jobs)
	w.mu.Unlock()

	w.wg.Wait()
}
