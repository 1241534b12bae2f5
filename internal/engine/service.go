package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"eternal-dungeon/internal/infrastructure/storage"
	"eternal-dungeon/internal/network"
	"eternal-dungeon/pkg/logger"

	"github.com/sirupsen/logrus"
)

var ErrUnknownInstance = errors.New("engine: unknown dungeon")

// DungeonService держит все запущенные подземелья, общий хаб событий,
// каталоги и фоновые работы.
type DungeonService struct {
	cfg Config

	Hub      *network.Broadcaster
	Catalogs *Catalogs
	Traces   *storage.TraceService
	workers  *Workers

	mu        sync.RWMutex
	instances map[int]*Instance
	nextID    int
	ctx       context.Context

	log *logrus.Entry
}

func NewService(cfg Config, cats *Catalogs) *DungeonService {
	log := logger.Component("service")
	if cats == nil {
		cats = NewCatalogs(nil, nil)
	}
	return &DungeonService{
		cfg:       cfg,
		Hub:       network.NewBroadcaster(),
		Catalogs:  cats,
		Traces:    storage.NewTraceService(cfg.TraceDir),
		workers:   NewWorkers(cfg.Workers, log.WithField("component", "workers")),
		instances: make(map[int]*Instance),
		ctx:       context.Background(),
		log:       log,
	}
}

// Start запоминает контекст, в котором живут инстансы
func (s *DungeonService) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.log.WithField("seed", s.cfg.Seed).Info("Dungeon service started")
}

// CreateInstance запускает новое подземелье с сидом MasterSeed + id
func (s *DungeonService) CreateInstance() *Instance {
	return s.createInstance(nil, false)
}

func (s *DungeonService) createInstance(seed *int64, manual bool) *Instance {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	instSeed := s.cfg.InstanceSeed(id)
	if seed != nil {
		instSeed = *seed
	}
	inst := NewInstance(id, instSeed, s.cfg, s.Catalogs, s.Hub)
	inst.Manual = manual
	s.instances[id] = inst
	ctx := s.ctx
	s.mu.Unlock()

	inst.Start(ctx)
	return inst
}

// Instance ищет подземелье по id
func (s *DungeonService) Instance(id int) (*Instance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[id]
	return inst, ok
}

// DefaultInstance - подземелье с наименьшим id; если их нет, создается новое
func (s *DungeonService) DefaultInstance() *Instance {
	if all := s.Instances(); len(all) > 0 {
		return all[0]
	}
	return s.CreateInstance()
}

// Instances - все подземелья по возрастанию id
func (s *DungeonService) Instances() []*Instance {
	s.mu.RLock()
	out := make([]*Instance, 0, len(s.instances))
	for _, inst := range s.instances {
		out = append(out, inst)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

// StopInstance останавливает подземелье, трасса сохраняется в фоне
func (s *DungeonService) StopInstance(ctx context.Context, id int) error {
	s.mu.Lock()
	inst, ok := s.instances[id]
	delete(s.instances, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownInstance, id)
	}

	inst.Stop(ctx)
	trace := inst.Trace()
	if !s.workers.Submit(func(context.Context) { s.saveTrace(trace) }) {
		s.saveTrace(trace)
	}
	return nil
}

// SaveTrace пишет трассу подземелья на диск
func (s *DungeonService) SaveTrace(inst *Instance) (string, error) {
	return s.saveTrace(inst.Trace())
}

func (s *DungeonService) saveTrace(trace *storage.Trace) (string, error) {
	path, err := s.Traces.Save(trace)
	if err != nil {
		s.log.WithError(err).WithField("dungeon", trace.DungeonID).Error("Failed to save trace")
		return "", err
	}
	s.log.WithFields(logrus.Fields{"dungeon": trace.DungeonID, "path": path, "samples": len(trace.Samples)}).Info("Trace saved")
	return path, nil
}

// ReloadCatalogs перечитывает JSON файлы в фоне. done (если не nil) получает результат.
func (s *DungeonService) ReloadCatalogs(assetsPath, tagsPath string, done func(error)) bool {
	return s.workers.Submit(func(context.Context) {
		assets, tags, err := LoadCatalogs(assetsPath, tagsPath)
		if err != nil {
			s.log.WithError(err).Error("Catalog reload failed, keeping previous data")
		} else {
			s.Catalogs.Swap(assets, tags)
			s.log.WithField("areas", len(assets.Tags())).Info("Catalogs reloaded")
		}
		if done != nil {
			done(err)
		}
	})
}

// Replay загружает трассу и проигрывает ее в новом подземелье с тем же сидом.
func (s *DungeonService) Replay(ctx context.Context, path string) (*Instance, int, error) {
	trace, err := s.Traces.Load(path)
	if err != nil {
		return nil, 0, fmt.Errorf("load trace: %w", err)
	}
	s.log.WithFields(logrus.Fields{"seed": trace.Seed, "samples": len(trace.Samples)}).Info("Replaying trace")

	inst := s.createInstance(&trace.Seed, true)
	changes, err := inst.Replay(ctx, trace.Samples)
	if err != nil {
		return inst, changes, err
	}
	return inst, changes, nil
}

// Shutdown останавливает все подземелья, сохраняет трассы и ждет фоновые работы
func (s *DungeonService) Shutdown(ctx context.Context) {
	s.mu.Lock()
	all := make([]*Instance, 0, len(s.instances))
	for _, inst := range s.instances {
		all = append(all, inst)
	}
	s.instances = make(map[int]*Instance)
	s.mu.Unlock()

	for _, inst := range all {
		inst.Stop(ctx)
		if len(inst.Trace().Samples) > 0 {
			s.saveTrace(inst.Trace())
		}
	}
	s.workers.Stop()
	s.log.WithField("stopped", len(all)).Info("Dungeon service stopped")
}
