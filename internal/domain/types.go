package domain

import "time"

type Language string

const (
	Hindi   Language = "hi"
	English Language = "en"
)

// ParseLanguage returns Hindi for anything that is not "en".
func ParseLanguage(s string) Language {
	if Language(s) == English {
		return English
	}
	return Hindi
}

type FarmingContext string

const (
	ContextDiagnosis FarmingContext = "diagnosis"
	ContextInventory FarmingContext = "inventory"
	ContextGeneral   FarmingContext = "general"
)

// ParseFarmingContext returns ContextDiagnosis for unknown values.
func ParseFarmingContext(s string) FarmingContext {
	switch FarmingContext(s) {
	case ContextInventory, ContextGeneral:
		return FarmingContext(s)
	default:
		return ContextDiagnosis
	}
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	ID        string
	SessionID string
	Role      Role
	Content   string
	Context   FarmingContext
	CreatedAt time.Time
}

type Category string

const (
	CategoryFertilizer Category = "fertilizer"
	CategorySeed       Category = "seed"
	CategoryCrop       Category = "crop"
	CategoryPesticide  Category = "pesticide"
	CategoryEquipment  Category = "equipment"
)

// Categories lists every inventory category in display order.
var Categories = []Category{
	CategoryFertilizer,
	CategorySeed,
	CategoryCrop,
	CategoryPesticide,
	CategoryEquipment,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

type InventoryItem struct {
	ID          int64
	Category    Category
	Name        string
	Quantity    float64
	Unit        string
	Notes       string
	LastUpdated time.Time
}

// ItemUpdate carries a partial change to an inventory item; nil fields are
// left untouched.
type ItemUpdate struct {
	Category *Category
	Name     *string
	Quantity *float64
	Unit     *string
	Notes    *string
}

type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionRemove Action = "remove"
	ActionUse    Action = "use"
)

// InventoryCommand is the structured form of a spoken inventory change.
type InventoryCommand struct {
	Action   Action   `json:"action"`
	Category Category `json:"category"`
	Name     string   `json:"name"`
	Quantity float64  `json:"quantity"`
	Unit     string   `json:"unit"`
}

type DiagnosisSource string

const (
	SourceGemini    DiagnosisSource = "gemini"
	SourceClaude    DiagnosisSource = "claude"
	SourceOllama    DiagnosisSource = "ollama"
	SourceHeuristic DiagnosisSource = "heuristic"
)

type Diagnosis struct {
	ID         int64
	StorageKey string
	MimeType   string
	Source     DiagnosisSource
	Report     string
	CreatedAt  time.Time
}
