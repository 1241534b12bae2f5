package utils

import (
	"crypto/rand"
	"encoding/hex"
	"hash/fnv"
	mrand "math/rand"
)

// GenerateID создает простой уникальный ID (токен сессии клиента)
func GenerateID() string {
	b := make([]byte, 8) // 16 символов hex
	if _, err := rand.Read(b); err != nil {
		panic("failed to generate random ID: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// StringToSeed превращает строку в сид (одно имя - одна и та же генерация)
func StringToSeed(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}

// FRandRange - равномерное число в [min, max).
// Если границы перепутаны, они меняются местами (так ведет себя движок).
func FRandRange(rng *mrand.Rand, min, max float64) float64 {
	if max < min {
		min, max = max, min
	}
	return min + rng.Float64()*(max-min)
}

// RandRange - целое в [min, max] включительно. При max < min возвращает min.
func RandRange(rng *mrand.Rand, min, max int) int {
	if max <= min {
		return min
	}
	return rng.Intn(max-min+1) + min
}

// RandWallCount - количество стен: FRandRange(min, max) с отбрасыванием дробной части.
// Для (3, 12) это [3, 11].
func RandWallCount(rng *mrand.Rand, min, max int) int {
	n := int(FRandRange(rng, float64(min), float64(max)))
	if n < 1 {
		n = 1
	}
	return n
}
