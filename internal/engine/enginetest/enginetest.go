// Package enginetest собирает сервис подземелий для тестов сервера и агентов.
package enginetest

import (
	"context"
	"testing"
	"time"

	"eternal-dungeon/internal/catalog"
	"eternal-dungeon/internal/engine"
	"eternal-dungeon/pkg/dungeon"
)

var assetNames = []string{
	dungeon.AssetFloor, dungeon.AssetWall, dungeon.AssetWallLighted, dungeon.AssetEntrance, dungeon.AssetRoof,
	dungeon.PropMainPillar, dungeon.PropSupportivePillar, dungeon.PropChest, dungeon.PropBox, dungeon.PropChair,
}

// Catalogs - ассеты для коридора, стартовой комнаты и Combat; все комнаты получают тег Combat
func Catalogs() *engine.Catalogs {
	areas := map[string][]catalog.AssetRef{}
	for _, area := range []string{dungeon.CorridorTag, string(dungeon.TagInitialRoom), string(dungeon.TagCombat)} {
		for _, n := range assetNames {
			areas[area] = append(areas[area], catalog.AssetRef{AssetName: n, Directory: "/Game/" + area + "/" + n})
		}
	}
	tags := catalog.NewTagPicker([]catalog.Category{{
		CategoryName: "Fight",
		Tags:         []catalog.TagWeight{{Name: string(dungeon.TagCombat), Weight: 1}},
	}})
	return engine.NewCatalogs(catalog.NewCatalog(areas), tags)
}

// Config - фиксированный сид, без тикера опроса, трассы во временной папке
func Config(t testing.TB, seed int64) engine.Config {
	t.Helper()
	return engine.Config{
		Seed:         seed,
		ShardId:      1,
		PollInterval: time.Hour,
		Workers:      1,
		TraceDir:     t.TempDir(),
		Settings:     dungeon.DefaultSettings(),
	}
}

// Service запускает сервис и останавливает его в конце теста
func Service(t testing.TB, seed int64) *engine.DungeonService {
	t.Helper()
	svc := engine.NewService(Config(t, seed), Catalogs())
	svc.Start(context.Background())
	t.Cleanup(func() { svc.Shutdown(context.Background()) })
	return svc
}
