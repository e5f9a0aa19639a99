package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ==================== 表单字段 ====================

// Field 表单字段标识，是与其他组件约定的稳定契约
type Field string

const (
	FieldPlatform             Field = "platform"
	FieldEmailType            Field = "email_type"
	FieldWebApp               Field = "web_app"
	FieldCoinAccount          Field = "coin_account"
	FieldTradePlayers         Field = "trade_players"
	FieldTradePlayersValue    Field = "trade_players_value"
	FieldNonTradePlayers      Field = "non_trade_players"
	FieldNonTradePlayersValue Field = "non_trade_players_value"
	FieldMatchEarning         Field = "match_earning"
	FieldSeasonLevel          Field = "season_level"
	FieldDivisionRivals       Field = "division_rivals"
	FieldSaleMethod           Field = "sale_method"
	FieldUserContact          Field = "user_contact"
	FieldPurchaseLink         Field = "purchase_link"
	FieldPrice                Field = "price"
	FieldTeamPhotos           Field = "team_photos"
	FieldPlatformDetails      Field = "platform_details"
)

// AllFields 固定的字段集合
var AllFields = []Field{
	FieldPlatform, FieldEmailType, FieldWebApp, FieldCoinAccount,
	FieldTradePlayers, FieldTradePlayersValue, FieldNonTradePlayers, FieldNonTradePlayersValue,
	FieldMatchEarning, FieldSeasonLevel, FieldDivisionRivals,
	FieldSaleMethod, FieldUserContact, FieldPurchaseLink, FieldPrice,
	FieldTeamPhotos, FieldPlatformDetails,
}

// Valid 是否属于固定字段集合
func (f Field) Valid() bool {
	for _, known := range AllFields {
		if f == known {
			return true
		}
	}
	return false
}

// PlatformDetails 平台选择的结构化记录
type PlatformDetails struct {
	Main string `json:"main"`
	Sub  string `json:"sub"`
	Days int    `json:"days,omitempty"`
}

// ==================== 表单 ====================

// Form 字段名 -> 值
// 值类型：string；team_photos 为 []string；platform_details 为 PlatformDetails
type Form map[Field]interface{}

// String 获取字符串字段，不存在或类型不符时返回空串
func (f Form) String(field Field) string {
	if s, ok := f[field].(string); ok {
		return s
	}
	return ""
}

// Photos 获取团队截图引用
func (f Form) Photos() []string {
	if photos, ok := f[FieldTeamPhotos].([]string); ok {
		return photos
	}
	return nil
}

// Details 获取平台结构化记录
func (f Form) Details() (PlatformDetails, bool) {
	d, ok := f[FieldPlatformDetails].(PlatformDetails)
	return d, ok
}

// Has 字段存在且非空
func (f Form) Has(field Field) bool {
	switch v := f[field].(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case []string:
		return len(v) > 0
	case PlatformDetails:
		return v.Main != ""
	default:
		return true
	}
}

// Clone 浅拷贝（切片会复制）
func (f Form) Clone() Form {
	out := make(Form, len(f))
	for k, v := range f {
		if photos, ok := v.([]string); ok {
			v = append([]string(nil), photos...)
		}
		out[k] = v
	}
	return out
}

// Marshal 序列化为 JSON，供 Listing 持久化
func (f Form) Marshal() ([]byte, error) {
	return json.Marshal(map[Field]interface{}(f))
}

// ParseForm 从 JSON 还原表单
func ParseForm(data []byte) (Form, error) {
	var raw map[Field]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("解析表单失败: %w", err)
	}

	form := make(Form, len(raw))
	for field, value := range raw {
		if !field.Valid() {
			continue
		}
		switch field {
		case FieldTeamPhotos:
			var photos []string
			if err := json.Unmarshal(value, &photos); err != nil {
				return nil, fmt.Errorf("字段 %s 格式错误: %w", field, err)
			}
			form[field] = photos
		case FieldPlatformDetails:
			var details PlatformDetails
			if err := json.Unmarshal(value, &details); err != nil {
				return nil, fmt.Errorf("字段 %s 格式错误: %w", field, err)
			}
			form[field] = details
		default:
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return nil, fmt.Errorf("字段 %s 格式错误: %w", field, err)
			}
			form[field] = s
		}
	}
	return form, nil
}
