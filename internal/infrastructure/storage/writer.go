package storage

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"eternal-dungeon/internal/geometry"
)

const (
	MagicHeader string = `EDTR` // 4 байта
	Version1    uint32 = 1
)

// TraceFileHeader - заголовок файла в памяти.
// Только массивы и числа, поэтому binary.Write пишет его целиком.
type TraceFileHeader struct {
	Magic       [4]byte // 4 байта
	Version     uint32  // 4 байта
	Seed        int64   // 8 байт
	Timestamp   int64   // 8 байт
	DungeonID   int32   // 4 байта
	SampleCount int32   // 4 байта
}

// SampleRecord - одна запись позиции пешки
type SampleRecord struct {
	Tick    int32   // 4
	X, Y, Z float64 // 24
}

// Sample - позиция игрока в момент смены комнаты
type Sample struct {
	Tick     int
	Position geometry.Vector
}

// Trace - сид подземелья и путь игрока по нему
type Trace struct {
	Seed      int64
	Timestamp int64
	DungeonID int
	Samples   []Sample
}

// TraceService пишет и читает трассы в каталоге SaveDir
type TraceService struct {
	SaveDir string
}

func NewTraceService(dir string) *TraceService {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		_ = os.MkdirAll(dir, 0755)
	}
	return &TraceService{SaveDir: dir}
}

// FileName - имя файла трассы
func FileName(t *Trace) string {
	return fmt.Sprintf("trace_%d_dng%d_%d.edtr", t.Seed, t.DungeonID, t.Timestamp)
}

// Save пишет трассу и возвращает путь к файлу
func (s *TraceService) Save(t *Trace) (string, error) {
	path := filepath.Join(s.SaveDir, FileName(t))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := writeBinary(w, t); err != nil {
		return "", err
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush trace: %w", err)
	}
	return path, nil
}

func writeBinary(w io.Writer, t *Trace) error {
	// 1. Заголовок
	header := TraceFileHeader{
		Version:     Version1,
		Seed:        t.Seed,
		Timestamp:   t.Timestamp,
		DungeonID:   int32(t.DungeonID),
		SampleCount: int32(len(t.Samples)),
	}
	copy(header.Magic[:], MagicHeader)

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// 2. Сэмплы фиксированного размера
	for _, smp := range t.Samples {
		rec := SampleRecord{
			Tick: int32(smp.Tick),
			X:    smp.Position.X,
			Y:    smp.Position.Y,
			Z:    smp.Position.Z,
		}
		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return fmt.Errorf("failed to write sample: %w", err)
		}
	}
	return nil
}
