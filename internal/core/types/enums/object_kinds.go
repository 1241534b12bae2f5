package enums

import "strings"

// ObjectKind - роль заспавненного объекта. Хранится в старших битах Handle,
// поэтому клиент может отрисовать объект, не зная, кому он принадлежит.
type ObjectKind uint8

const (
	ObjectKindUnknown ObjectKind = iota
	ObjectKindFloor
	ObjectKindWall
	ObjectKindEntrance
	ObjectKindRoof
	ObjectKindProp
	ObjectKindPawn
)

var objectKindToString = map[ObjectKind]string{
	ObjectKindFloor:    "FLOOR",
	ObjectKindWall:     "WALL",
	ObjectKindEntrance: "ENTRANCE",
	ObjectKindRoof:     "ROOF",
	ObjectKindProp:     "PROP",
	ObjectKindPawn:     "PAWN",
}

var objectKindStringToKind = map[string]ObjectKind{
	"FLOOR":    ObjectKindFloor,
	"WALL":     ObjectKindWall,
	"ENTRANCE": ObjectKindEntrance,
	"ROOF":     ObjectKindRoof,
	"PROP":     ObjectKindProp,
	"PAWN":     ObjectKindPawn,
}

// String возвращает строковое представление (для логов и протокола)
func (k ObjectKind) String() string {
	if val, ok := objectKindToString[k]; ok {
		return val
	}
	return "UNKNOWN"
}

// ParseObjectKind конвертирует строку в Enum (нужно для реплеев и отладочных запросов)
func ParseObjectKind(s string) ObjectKind {
	upper := strings.ToUpper(s)
	if val, ok := objectKindStringToKind[upper]; ok {
		return val
	}
	return ObjectKindUnknown
}
