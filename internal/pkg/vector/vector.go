// Package vector хранение эмбеддингов и косинусная близость
package vector

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// Encode little-endian float32, формат колонки embedding
func Encode(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Decode обратная операция к Encode
func Decode(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// Cosine косинусная близость, 0 для векторов разной длины или нулевых
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Distance косинусное расстояние в диапазоне [0,2]
func Distance(a, b []float32) float64 {
	return 1 - Cosine(a, b)
}

// Normalize приводит вектор к единичной длине на месте
func Normalize(v []float32) {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return
	}
	n := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= n
	}
}

// Scored индекс кандидата и его расстояние
type Scored struct {
	Index    int
	Distance float64
}

// TopK ближайшие k кандидатов по возрастанию расстояния, при равенстве сохраняется исходный порядок
func TopK(query []float32, candidates [][]float32, k int) []Scored {
	out := make([]Scored, 0, len(candidates))
	for i, c := range candidates {
		out = append(out, Scored{Index: i, Distance: Distance(query, c)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Distance < out[j].Distance
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}
