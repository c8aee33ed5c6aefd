package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MemoryType вид долговременной памяти о пользователе
type MemoryType string

const (
	MemorySemantic   MemoryType = "semantic"
	MemoryEpisodic   MemoryType = "episodic"
	MemoryProcedural MemoryType = "procedural"
)

var MemoryTypes = []MemoryType{MemorySemantic, MemoryEpisodic, MemoryProcedural}

func (t MemoryType) IsValid() bool {
	switch t {
	case MemorySemantic, MemoryEpisodic, MemoryProcedural:
		return true
	}
	return false
}

// ParseMemoryType разбирает тип памяти без учёта регистра
func ParseMemoryType(s string) (MemoryType, bool) {
	t := MemoryType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.IsValid()
}

var (
	proceduralMarkers = []string{"prefer", "like", "want", "style"}
	episodicMarkers   = []string{"discussed", "mentioned", "said", "talked"}
)

// ClassifyMemoryType тип памяти по ключевым словам, когда модель его не указала
func ClassifyMemoryType(content string) MemoryType {
	text := strings.ToLower(content)
	for _, m := range proceduralMarkers {
		if strings.Contains(text, m) {
			return MemoryProcedural
		}
	}
	for _, m := range episodicMarkers {
		if strings.Contains(text, m) {
			return MemoryEpisodic
		}
	}
	return MemorySemantic
}

// Metadata произвольные атрибуты памяти, хранятся в JSONB
type Metadata map[string]any

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
	out := Metadata{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return err
		}
	}
	*m = out
	return nil
}

// Memory факт или событие о пользователе
type Memory struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"user_id"`
	Type                 MemoryType `json:"memory_type"`
	Content              string     `json:"content"`
	Metadata             Metadata   `json:"metadata,omitempty"`
	SourceConversationID *string    `json:"source_conversation_id,omitempty"`
	ExtractedAt          time.Time  `json:"extracted_at"`
	Confidence           float64    `json:"confidence"`
	Embedding            []float32  `json:"-"`
}

// MemorySearchResult память с релевантностью запросу
type MemorySearchResult struct {
	Memory    Memory  `json:"memory"`
	Distance  float64 `json:"distance"`
	Relevance float64 `json:"relevance"`
}

// RelevanceFromDistance косинусное расстояние [0,2] в релевантность [0,1]
func RelevanceFromDistance(distance float64) float64 {
	return 1 - distance/2
}

// ExtractedMemory кандидат в память, найденный в диалоге
type ExtractedMemory struct {
	Content    string     `json:"content"`
	Type       MemoryType `json:"type"`
	Confidence float64    `json:"confidence"`
}

// MemoryStats сводка по памяти пользователя
type MemoryStats struct {
	UserID             string             `json:"user_id"`
	Total              int                `json:"total"`
	ByType             map[MemoryType]int `json:"by_type"`
	PendingExtractions int                `json:"pending_extractions"`
}

// UserExport снимок данных пользователя для выгрузки
type UserExport struct {
	ExportedAt time.Time    `json:"exported_at"`
	Profile    *UserProfile `json:"profile,omitempty"`
	Memories   []Memory     `json:"memories"`
}
