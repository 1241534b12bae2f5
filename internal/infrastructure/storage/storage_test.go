package storage

import (
	"bytes"
	"errors"
	"testing"

	"eternal-dungeon/internal/geometry"
)

func TestTrace_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	svc := NewTraceService(dir)

	in := &Trace{
		Seed:      -98765,
		Timestamp: 1700000000,
		DungeonID: 3,
		Samples: []Sample{
			{Tick: 1, Position: geometry.Vec(0, 0, 50)},
			{Tick: 7, Position: geometry.Vec(1600.5, -2400, 50)},
			{Tick: 12, Position: geometry.Vec(-800, 3200.25, 90)},
		},
	}

	path, err := svc.Save(in)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	out, err := svc.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if out.Seed != in.Seed || out.Timestamp != in.Timestamp || out.DungeonID != in.DungeonID {
		t.Errorf("header mismatch: %+v", out)
	}
	if len(out.Samples) != len(in.Samples) {
		t.Fatalf("expected %d samples, got %d", len(in.Samples), len(out.Samples))
	}
	for i := range in.Samples {
		if out.Samples[i] != in.Samples[i] {
			t.Errorf("sample %d: got %+v, want %+v", i, out.Samples[i], in.Samples[i])
		}
	}
}

func TestTrace_EmptySamples(t *testing.T) {
	var buf bytes.Buffer
	if err := writeBinary(&buf, &Trace{Seed: 1}); err != nil {
		t.Fatal(err)
	}
	// 4+4+8+8+4+4
	if buf.Len() != 32 {
		t.Errorf("header size = %d, want 32", buf.Len())
	}
	out, err := readBinary(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Samples) != 0 {
		t.Errorf("expected no samples, got %d", len(out.Samples))
	}
}

func TestTrace_Corrupted(t *testing.T) {
	var good bytes.Buffer
	if err := writeBinary(&good, &Trace{Seed: 1, Samples: []Sample{{Tick: 1}}}); err != nil {
		t.Fatal(err)
	}
	data := good.Bytes()

	// 1. Чужой формат
	bad := append([]byte("CDRP"), data[4:]...)
	if _, err := readBinary(bytes.NewReader(bad)); !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("expected ErrInvalidMagic, got %v", err)
	}

	// 2. Обрезанный файл
	if _, err := readBinary(bytes.NewReader(data[:len(data)-4])); err == nil {
		t.Error("truncated trace must fail")
	}

	// 3. Неизвестная версия
	ver := append([]byte(nil), data...)
	ver[4] = 9
	if _, err := readBinary(bytes.NewReader(ver)); err == nil {
		t.Error("unknown version must fail")
	}
}
