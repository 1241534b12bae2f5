package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"eternal-dungeon/internal/engine"
)

const debugTimeout = 5 * time.Second

// DebugHandler предоставляет доступ к внутреннему состоянию подземелий
type DebugHandler struct {
	server *Server
}

func NewDebugHandler(s *Server) *DebugHandler {
	return &DebugHandler{server: s}
}

// RegisterRoutes регистрирует debug-эндпоинты
func (h *DebugHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/dungeons", h.handleListDungeons)
	mux.HandleFunc("/debug/rooms", h.handleRooms)
	mux.HandleFunc("/debug/journal", h.handleJournal)
	mux.HandleFunc("/debug/hub", h.handleHub)
	mux.HandleFunc("/debug/reload", h.handleReload)
}

// DungeonSummary - строка списка /debug/dungeons
type DungeonSummary struct {
	ID          int    `json:"id"`
	Seed        int64  `json:"seed"`
	State       string `json:"state"`
	CurrentRoom int    `json:"currentRoom"`
	Rooms       int    `json:"rooms"`
	Corridors   int    `json:"corridors"`
	Objects     int    `json:"objects"`
	Samples     int    `json:"samples"`
	Tasks       uint64 `json:"tasks"`
}

// /debug/dungeons - список подземелий
func (h *DebugHandler) handleListDungeons(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), debugTimeout)
	defer cancel()

	summary := []DungeonSummary{}
	for _, inst := range h.server.Service.Instances() {
		snap, err := inst.Snapshot(ctx)
		if err != nil {
			// подземелье остановилось между списком и снимком
			continue
		}
		summary = append(summary, DungeonSummary{
			ID:          inst.ID,
			Seed:        inst.Seed,
			State:       snap.State,
			CurrentRoom: snap.CurrentRoom,
			Rooms:       len(snap.Rooms),
			Corridors:   len(snap.Corridors),
			Objects:     inst.World.LiveCount(),
			Samples:     len(inst.Trace().Samples),
			Tasks:       inst.Loop.Processed(),
		})
	}

	writeJSON(w, summary)
}

// /debug/rooms?dungeon=1 - граф комнат подземелья
func (h *DebugHandler) handleRooms(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.instance(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), debugTimeout)
	defer cancel()

	snap, err := inst.Snapshot(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, snap)
}

// /debug/journal?dungeon=1 - журнал подземелья
func (h *DebugHandler) handleJournal(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.instance(w, r)
	if !ok {
		return
	}
	writeJSON(w, inst.Journal())
}

// /debug/hub - подписчики и потерянные события
func (h *DebugHandler) handleHub(w http.ResponseWriter, r *http.Request) {
	hub := h.server.Service.Hub
	writeJSON(w, map[string]any{
		"subscribers": hub.SubscriberCount(),
		"dropped":     hub.Dropped(),
	})
}

// POST /debug/reload - перечитать каталоги ассетов и тегов
func (h *DebugHandler) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	if h.server.AssetsFile == "" || h.server.TagsFile == "" {
		http.Error(w, "catalog files are not configured", http.StatusConflict)
		return
	}
	if !h.server.Service.ReloadCatalogs(h.server.AssetsFile, h.server.TagsFile, nil) {
		http.Error(w, "workers are busy", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// instance достает подземелье из ?dungeon=N (без параметра - подземелье по умолчанию)
func (h *DebugHandler) instance(w http.ResponseWriter, r *http.Request) (*engine.Instance, bool) {
	raw := r.URL.Query().Get("dungeon")
	if raw == "" {
		all := h.server.Service.Instances()
		if len(all) == 0 {
			http.Error(w, "no dungeons", http.StatusNotFound)
			return nil, false
		}
		return all[0], true
	}

	id, err := strconv.Atoi(raw)
	if err != nil {
		http.Error(w, "bad dungeon id", http.StatusBadRequest)
		return nil, false
	}
	inst, ok := h.server.Service.Instance(id)
	if !ok {
		http.Error(w, "Dungeon not found", http.StatusNotFound)
		return nil, false
	}
	return inst, true
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(data)
}
