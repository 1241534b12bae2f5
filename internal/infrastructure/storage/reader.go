package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"eternal-dungeon/internal/geometry"
)

var ErrInvalidMagic = errors.New("invalid magic")

// maxSamples - защита от битого заголовка
const maxSamples = 1 << 20

func (s *TraceService) Load(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readBinary(bufio.NewReader(f))
}

func readBinary(r io.Reader) (*Trace, error) {
	// 1. Заголовок целиком
	var header TraceFileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	if string(header.Magic[:]) != MagicHeader {
		return nil, ErrInvalidMagic
	}
	if header.Version != Version1 {
		return nil, fmt.Errorf("unsupported version: %d (expected %d)", header.Version, Version1)
	}
	if header.SampleCount < 0 || header.SampleCount > maxSamples {
		return nil, fmt.Errorf("bad sample count: %d", header.SampleCount)
	}

	t := &Trace{
		Seed:      header.Seed,
		Timestamp: header.Timestamp,
		DungeonID: int(header.DungeonID),
		Samples:   make([]Sample, header.SampleCount),
	}

	// 2. Сэмплы
	for i := range t.Samples {
		var rec SampleRecord
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("failed to read sample %d: %w", i, err)
		}
		t.Samples[i] = Sample{
			Tick:     int(rec.Tick),
			Position: geometry.Vec(rec.X, rec.Y, rec.Z),
		}
	}
	return t, nil
}
