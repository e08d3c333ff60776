package db

import (
	"encoding/json"
	"strings"
	"time"
)

// 日历状态
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// CalendarType 目前仅支持 7 天日历
const CalendarType = "7-day"

// DefaultCalendarName 名称缺省值
const DefaultCalendarName = "Untitled Calendar"

// Calendar 定义了日历文档模型
type Calendar struct {
	ID          string     `gorm:"primaryKey" json:"id"`
	UserID      string     `gorm:"index;not null" json:"userId"`
	User        User       `json:"-"`
	Name        string     `gorm:"not null" json:"name"`
	Description string     `json:"description"`
	Type        string     `gorm:"not null" json:"type"`
	Days        DayList    `gorm:"type:text;not null" json:"days"`
	Status      string     `gorm:"not null" json:"status"`
	ShareToken  *string    `gorm:"uniqueIndex" json:"shareToken"`
	IsPublished bool       `gorm:"not null;default:false" json:"isPublished"`
	PublishedAt *time.Time `json:"publishedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NormalizeStatus 把历史遗留的状态字符串折叠为 draft/published 两态。
// isPublished 显式给出时以布尔值为准。
func NormalizeStatus(status string, isPublished *bool) string {
	if isPublished != nil {
		if *isPublished {
			return StatusPublished
		}
		return StatusDraft
	}
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "published", "live":
		return StatusPublished
	default:
		return StatusDraft
	}
}

// EnsureShape 把任意日历负载补全为结构完整的文档：
// 填充名称、描述、类型、状态缺省值；days 缺失或长度不为 7 时
// 整体替换为 7 张按位置定体裁的空白日卡（破坏性回退，不逐张修补）。
func EnsureShape(cal Calendar, now time.Time) Calendar {
	if strings.TrimSpace(cal.Name) == "" {
		cal.Name = DefaultCalendarName
	}
	cal.Type = CalendarType
	if cal.Status == "" {
		cal.Status = StatusDraft
	}
	if len(cal.Days) != DayCount {
		cal.Days = DefaultDays(now)
	}
	return cal
}

// ApplyDayPatch 返回把 patch 浅合并进 days[dayIndex] 后的新日历。
// 体裁与 dayNumber 会被重置为该位置的规范值，补丁中的冲突值被覆盖；
// 日卡与日历的 updatedAt 都被置为 now。纯函数，不触碰其余日卡。
func ApplyDayPatch(cal Calendar, dayIndex int, patch DayPatch, now time.Time) (Calendar, error) {
	if dayIndex < 0 || dayIndex >= DayCount {
		return cal, ErrDayIndexOutOfRange
	}
	if len(cal.Days) != DayCount {
		cal.Days = DefaultDays(now)
	}

	raw, err := json.Marshal(cal.Days[dayIndex])
	if err != nil {
		return cal, err
	}
	merged := map[string]interface{}{}
	if err := json.Unmarshal(raw, &merged); err != nil {
		return cal, err
	}
	for key, value := range patch {
		merged[key] = value
	}
	merged["type"] = string(GenreByIndex[dayIndex])
	merged["dayNumber"] = dayIndex + 1
	merged["updatedAt"] = now.UTC().Format(time.RFC3339Nano)

	rebuilt, err := json.Marshal(merged)
	if err != nil {
		return cal, err
	}
	day, err := decodeDay(rebuilt, dayIndex)
	if err != nil {
		return cal, err
	}

	days := make(DayList, DayCount)
	copy(days, cal.Days)
	days[dayIndex] = day

	cal.Days = days
	cal.UpdatedAt = now
	return cal, nil
}
