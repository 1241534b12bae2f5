package engine

import (
	"fmt"
	"math/rand"
	"sync/atomic"

	"eternal-dungeon/internal/catalog"
)

// Catalogs - каталог ассетов и жребий тегов, общие для всех инстансов.
// Подмена при перезагрузке атомарна: комнаты, которые строятся после нее, видят новые данные.
type Catalogs struct {
	assets atomic.Pointer[catalog.Catalog]
	tags   atomic.Pointer[catalog.TagPicker]
}

func NewCatalogs(assets *catalog.Catalog, tags *catalog.TagPicker) *Catalogs {
	c := &Catalogs{}
	c.Swap(assets, tags)
	return c
}

// LoadCatalogs читает оба JSON файла
func LoadCatalogs(assetsPath, tagsPath string) (*catalog.Catalog, *catalog.TagPicker, error) {
	assets, err := catalog.LoadAssets(assetsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load assets: %w", err)
	}
	categories, err := catalog.LoadCategories(tagsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load tags: %w", err)
	}
	return assets, catalog.NewTagPicker(categories), nil
}

// Swap подменяет данные (nil не меняет соответствующую часть)
func (c *Catalogs) Swap(assets *catalog.Catalog, tags *catalog.TagPicker) {
	if assets != nil {
		c.assets.Store(assets)
	}
	if tags != nil {
		c.tags.Store(tags)
	}
}

// AreaAssets реализует dungeon.AssetSource
func (c *Catalogs) AreaAssets(tag string) []catalog.AssetRef {
	a := c.assets.Load()
	if a == nil {
		return nil
	}
	return a.AreaAssets(tag)
}

// Pick реализует dungeon.TagSource
func (c *Catalogs) Pick(rng *rand.Rand) (string, bool) {
	t := c.tags.Load()
	if t == nil {
		return "", false
	}
	return t.Pick(rng)
}
