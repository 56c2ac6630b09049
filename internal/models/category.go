package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Category is the closed classification set assigned by the scoring
// engine. Anything the model returns outside this set is coerced to
// CategoryOther.
type Category string

const (
	CategoryAIML        Category = "ai-ml"
	CategorySecurity    Category = "security"
	CategoryEngineering Category = "engineering"
	CategoryTools       Category = "tools"
	CategoryOpinion     Category = "opinion"
	CategoryOther       Category = "other"
)

// CategoryMeta carries display metadata for one category.
type CategoryMeta struct {
	Emoji       string
	Label       string
	Description string
}

// CategoryOrder is the fixed display order used when grouping report
// sections by category.
var CategoryOrder = []Category{
	CategoryAIML,
	CategoryEngineering,
	CategoryTools,
	CategorySecurity,
	CategoryOpinion,
	CategoryOther,
}

var categoryMeta = map[Category]CategoryMeta{
	CategoryAIML:        {Emoji: "🤖", Label: "AI/ML", Description: "模型、训练、推理与 AI 产品"},
	CategorySecurity:    {Emoji: "🔒", Label: "安全", Description: "漏洞、攻防与隐私"},
	CategoryEngineering: {Emoji: "⚙️", Label: "工程实践", Description: "架构、性能与工程方法"},
	CategoryTools:       {Emoji: "🛠️", Label: "工具", Description: "开发工具与开源项目"},
	CategoryOpinion:     {Emoji: "💬", Label: "观点", Description: "行业评论与思考"},
	CategoryOther:       {Emoji: "📝", Label: "其他", Description: "未归类内容"},
}

// ParseCategory coerces an arbitrary string to a member of the closed set.
func ParseCategory(s string) Category {
	c := Category(s)
	if _, ok := categoryMeta[c]; ok {
		return c
	}
	return CategoryOther
}

// Meta returns display metadata, falling back to the "other" entry for
// values that somehow escaped coercion.
func (c Category) Meta() CategoryMeta {
	if m, ok := categoryMeta[c]; ok {
		return m
	}
	return categoryMeta[CategoryOther]
}

func (c Category) String() string { return string(c) }

// Keywords is an ordered keyword list stored as a JSON text column, since
// SQLite has no native array type.
type Keywords []string

// Value implements driver.Valuer.
func (k Keywords) Value() (driver.Value, error) {
	if k == nil {
		return "[]", nil
	}
	b, err := json.Marshal(k)
	if err != nil {
		return nil, fmt.Errorf("marshal keywords: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (k *Keywords) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*k = nil
		return nil
	case string:
		if v == "" {
			*k = nil
			return nil
		}
		return json.Unmarshal([]byte(v), k)
	case []byte:
		if len(v) == 0 {
			*k = nil
			return nil
		}
		return json.Unmarshal(v, k)
	default:
		return fmt.Errorf("unsupported keywords type %T", src)
	}
}
