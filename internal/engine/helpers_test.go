package engine

import (
	"context"
	"io"
	"testing"
	"time"

	"eternal-dungeon/internal/catalog"
	"eternal-dungeon/internal/geometry"
	"eternal-dungeon/pkg/api"
	"eternal-dungeon/pkg/dungeon"
	"eternal-dungeon/pkg/logger"
)

func init() {
	logger.Log.SetOutput(io.Discard)
}

var testAssetNames = []string{
	dungeon.AssetFloor, dungeon.AssetWall, dungeon.AssetWallLighted, dungeon.AssetEntrance, dungeon.AssetRoof,
	dungeon.PropMainPillar, dungeon.PropSupportivePillar, dungeon.PropChest, dungeon.PropBox, dungeon.PropChair,
	dungeon.PropTable, dungeon.PropBook, dungeon.PropCandle, dungeon.PropBookshelf, dungeon.PropFireplace,
	dungeon.PropArmchair, dungeon.PropCarpet, dungeon.PropTent, dungeon.PropPedestal,
}

// testCatalogs - все ассеты для коридора и двух тегов: Combat и Chill
func testCatalogs() *Catalogs {
	refs := func(area string) []catalog.AssetRef {
		out := make([]catalog.AssetRef, 0, len(testAssetNames))
		for _, n := range testAssetNames {
			out = append(out, catalog.AssetRef{AssetName: n, Directory: "/Game/" + area + "/" + n})
		}
		return out
	}
	areas := map[string][]catalog.AssetRef{dungeon.CorridorTag: refs(dungeon.CorridorTag)}
	for _, tag := range []dungeon.RoomTag{dungeon.TagInitialRoom, dungeon.TagCombat, dungeon.TagChill} {
		areas[string(tag)] = refs(string(tag))
	}

	picker := catalog.NewTagPicker([]catalog.Category{{
		CategoryName: "Test",
		Tags: []catalog.TagWeight{
			{Name: string(dungeon.TagCombat), Weight: 1},
			{Name: string(dungeon.TagChill), Weight: 1},
		},
	}})
	return NewCatalogs(catalog.NewCatalog(areas), picker)
}

func testConfig(t *testing.T) Config {
	t.Helper()
	settings := dungeon.DefaultSettings()
	settings.EntranceProbability = 0.3
	return Config{
		Seed:         1000,
		ShardId:      1,
		PollInterval: time.Hour,
		Workers:      2,
		TraceDir:     t.TempDir(),
		Settings:     settings,
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// startManual - инстанс без тикера, уже загруженный
func startManual(t *testing.T, id int, seed int64) *Instance {
	t.Helper()
	inst := NewInstance(id, seed, testConfig(t), testCatalogs(), nil)
	inst.Manual = true
	inst.Start(context.Background())
	t.Cleanup(func() { inst.Stop(context.Background()) })

	if err := inst.WaitIdle(testContext(t)); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
	return inst
}

// neighbour - первая комната, в которой игрока нет
func neighbour(snap dungeon.Snapshot) (api.RoomView, bool) {
	for _, r := range snap.Rooms {
		if r.ID != snap.CurrentRoom {
			return r, true
		}
	}
	return api.RoomView{}, false
}

func vecOf(v api.Vec3) geometry.Vector {
	return geometry.Vector{X: v.X, Y: v.Y, Z: v.Z}
}
