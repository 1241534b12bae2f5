package types

import (
	"fmt"
	"strconv"

	"eternal-dungeon/internal/core/types/enums"
)

// Handle - 64-битная ссылка на заспавненный объект мира.
//
// Handle является value-type: его можно копировать, класть в слайсы комнат
// и отправлять клиенту. Владелец объекта - арена мира, Handle лишь указывает в неё.
//
// Формат битов (от старших к младшим):
//
//	[ Shard (8) | Kind (8) | Generation (16) | Index (32) ]
//
// Где:
//   - Shard - идентификатор подземелья (инстанса), выдавшего ссылку
//   - Kind - роль объекта (пол, стена, вход, проп ...)
//   - Generation - версия слота арены (защита от устаревших ссылок)
//   - Index - индекс слота в арене
//
// После уничтожения объекта слот получает новое поколение, поэтому
// старый Handle больше никогда не совпадет с новым жильцом слота.
type Handle uint64

// NilHandle - "объект не создан" (аналог nullptr у спавнера).
const NilHandle Handle = 0

// Конфигурация битов Handle.
const (
	bitsIndex = 32
	bitsGen   = 16
	bitsKind  = 8
	bitsShard = 8

	shiftGen   = bitsIndex
	shiftKind  = bitsIndex + bitsGen
	shiftShard = bitsIndex + bitsGen + bitsKind

	maskIndex = (1 << bitsIndex) - 1
	maskGen   = (1 << bitsGen) - 1
	maskKind  = (1 << bitsKind) - 1
	maskShard = (1 << bitsShard) - 1
)

// MaxGeneration - после него поколение слота переполняется и начинается с 1.
const MaxGeneration = maskGen

// PackHandle собирает Handle из составных частей.
//
// Проверок диапазонов нет: арена сама следит, чтобы поколение было >= 1,
// иначе Handle первого объекта в нулевом слоте совпал бы с NilHandle.
func PackHandle(shardID uint8, kind enums.ObjectKind, gen uint16, index uint32) Handle {
	return Handle(
		(uint64(shardID) << shiftShard) |
			(uint64(kind) << shiftKind) |
			(uint64(gen) << shiftGen) |
			uint64(index),
	)
}

// Index возвращает индекс слота в арене.
func (h Handle) Index() uint32 {
	return uint32(h & maskIndex)
}

// Generation возвращает поколение слота.
func (h Handle) Generation() uint16 {
	return uint16((h >> shiftGen) & maskGen)
}

// Kind возвращает роль объекта.
func (h Handle) Kind() enums.ObjectKind {
	return enums.ObjectKind((h >> shiftKind) & maskKind)
}

// Shard возвращает идентификатор подземелья, которому принадлежит объект.
func (h Handle) Shard() uint8 {
	return uint8((h >> shiftShard) & maskShard)
}

// IsNil проверяет, является ли ссылка нулевой.
func (h Handle) IsNil() bool {
	return h == NilHandle
}

// IsLocal проверяет, выдана ли ссылка этим подземельем.
func (h Handle) IsLocal(currentShard uint8) bool {
	return h.Shard() == currentShard
}

// String для логов: [shard kind gen idx]
func (h Handle) String() string {
	if h.IsNil() {
		return "<nil>"
	}

	return fmt.Sprintf(
		"[shard=%d kind=%s gen=%d idx=%d]",
		h.Shard(),
		h.Kind(),
		h.Generation(),
		h.Index(),
	)
}

// MarshalJSON сериализует Handle строкой: JS теряет точность на uint64.
func (h Handle) MarshalJSON() ([]byte, error) {
	return []byte(`"` + strconv.FormatUint(uint64(h), 10) + `"`), nil
}

// UnmarshalJSON принимает и строку, и число.
func (h *Handle) UnmarshalJSON(data []byte) error {
	s := string(data)

	if len(s) > 1 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}

	if s == "" || s == "null" {
		*h = NilHandle
		return nil
	}

	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}

	*h = Handle(v)
	return nil
}
