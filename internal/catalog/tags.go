package catalog

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sort"
)

// TagWeight - тег комнаты и его вес внутри категории
type TagWeight struct {
	Name   string  `json:"Name"`
	Weight float64 `json:"Weight"`
}

// Category - группа тегов (например "Fight": Combat, Boss, Demon ...)
type Category struct {
	CategoryName string      `json:"CategoryName"`
	Tags         []TagWeight `json:"Tags"`
}

// Weight - суммарный вес тегов категории (отрицательные веса не учитываются)
func (c Category) Weight() float64 {
	var total float64
	for _, t := range c.Tags {
		if t.Weight > 0 {
			total += t.Weight
		}
	}
	return total
}

type categoriesFile struct {
	Categories []Category `json:"Categories"`
}

// LoadCategories читает RoomTags.json.
func LoadCategories(path string) ([]Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	cats, err := ParseCategories(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return cats, nil
}

// ParseCategories разбирает {"Categories": [{"CategoryName", "Tags": [{"Name","Weight"}]}]}.
func ParseCategories(data []byte) ([]Category, error) {
	var doc categoriesFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse categories: %w", err)
	}
	return doc.Categories, nil
}

// TagPicker выбирает тег комнаты в два шага: категория пропорционально сумме весов
// ее тегов, затем тег внутри категории пропорционально его весу.
// Префиксные суммы строятся один раз при создании.
type TagPicker struct {
	categories []weightedCategory
	prefix     []float64
	total      float64
}

type weightedCategory struct {
	name   string
	tags   []string
	prefix []float64
	total  float64
}

// NewTagPicker строит распределение. Категории с нулевым весом не участвуют в выборе.
func NewTagPicker(categories []Category) *TagPicker {
	p := &TagPicker{}
	for _, c := range categories {
		wc := weightedCategory{name: c.CategoryName}
		for _, t := range c.Tags {
			if t.Weight <= 0 {
				continue
			}
			wc.total += t.Weight
			wc.tags = append(wc.tags, t.Name)
			wc.prefix = append(wc.prefix, wc.total)
		}
		if wc.total <= 0 {
			continue
		}
		p.total += wc.total
		p.categories = append(p.categories, wc)
		p.prefix = append(p.prefix, p.total)
	}
	return p
}

// Total - суммарный вес всех тегов
func (p *TagPicker) Total() float64 {
	if p == nil {
		return 0
	}
	return p.total
}

// Pick возвращает тег. false - суммарный вес 0, тег не меняется.
func (p *TagPicker) Pick(rng *rand.Rand) (string, bool) {
	if p == nil || p.total <= 0 {
		return "", false
	}

	// 1. Категория
	ci := bucket(p.prefix, rng.Float64()*p.total)
	c := p.categories[ci]

	// 2. Тег внутри категории
	ti := bucket(c.prefix, rng.Float64()*c.total)
	return c.tags[ti], true
}

// bucket ищет первую префиксную сумму строго больше u.
func bucket(prefix []float64, u float64) int {
	i := sort.Search(len(prefix), func(i int) bool { return prefix[i] > u })
	if i == len(prefix) {
		// u == total из-за округления
		i = len(prefix) - 1
	}
	return i
}
