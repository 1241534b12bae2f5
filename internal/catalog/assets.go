package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"eternal-dungeon/internal/world"
)

var (
	// ErrMissingAsset - символьного имени нет в списке ассетов зоны
	ErrMissingAsset = errors.New("missing asset")
	// ErrLoadFailure - директория найдена, но класс из нее не загрузился
	ErrLoadFailure = errors.New("asset load failure")
)

// AssetRef - запись каталога: символьное имя и директория класса.
type AssetRef struct {
	AssetName string `json:"AssetName"`
	Directory string `json:"Directory"`
}

type areaAssets struct {
	Assets []AssetRef `json:"Assets"`
}

type assetsFile struct {
	Rooms map[string]areaAssets `json:"Rooms"`
}

// Catalog хранит ассеты по тегу зоны (тег комнаты или "Corridor").
type Catalog struct {
	areas map[string][]AssetRef
}

// LoadAssets читает RoomAssets.json.
func LoadAssets(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	c, err := ParseAssets(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return c, nil
}

// ParseAssets разбирает документ {"Rooms": {<tag>: {"Assets": [...]}}}.
func ParseAssets(data []byte) (*Catalog, error) {
	var doc assetsFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse assets: %w", err)
	}

	c := &Catalog{areas: make(map[string][]AssetRef, len(doc.Rooms))}
	for tag, area := range doc.Rooms {
		c.areas[tag] = area.Assets
	}
	return c, nil
}

// NewCatalog собирает каталог из памяти (тесты, встроенный каталог по умолчанию).
func NewCatalog(areas map[string][]AssetRef) *Catalog {
	c := &Catalog{areas: make(map[string][]AssetRef, len(areas))}
	for tag, refs := range areas {
		c.areas[tag] = append([]AssetRef(nil), refs...)
	}
	return c
}

// AreaAssets возвращает ассеты зоны. nil, если тега нет в каталоге
// (вызывающий логирует "no assets found").
func (c *Catalog) AreaAssets(tag string) []AssetRef {
	if c == nil {
		return nil
	}
	refs, ok := c.areas[tag]
	if !ok {
		return nil
	}
	return append([]AssetRef(nil), refs...)
}

// Tags - все теги каталога в алфавитном порядке
func (c *Catalog) Tags() []string {
	if c == nil {
		return nil
	}
	tags := make([]string, 0, len(c.areas))
	for tag := range c.areas {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// ClassLoader загружает класс по директории ассета (реализует world.World).
type ClassLoader interface {
	LoadClass(directory string) (*world.Class, error)
}

// AssetSet - ассеты одной зоны, из которых комната/коридор берут классы.
type AssetSet struct {
	Tag  string
	refs []AssetRef
}

// NewAssetSet фиксирует список ассетов зоны
func NewAssetSet(tag string, refs []AssetRef) AssetSet {
	return AssetSet{Tag: tag, refs: refs}
}

// Len - сколько ассетов в наборе
func (s AssetSet) Len() int {
	return len(s.refs)
}

// Directory ищет директорию по символьному имени.
func (s AssetSet) Directory(name string) (string, bool) {
	for _, ref := range s.refs {
		if ref.AssetName == name {
			return ref.Directory, true
		}
	}
	return "", false
}

// Resolve превращает символьное имя в загруженный класс.
func (s AssetSet) Resolve(name string, loader ClassLoader) (*world.Class, error) {
	dir, ok := s.Directory(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q in area %q", ErrMissingAsset, name, s.Tag)
	}

	class, err := loader.LoadClass(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %q (%s): %w", ErrLoadFailure, name, dir, err)
	}
	return class, nil
}
