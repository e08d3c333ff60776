package db

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Genre 表示日卡的内容体裁，按位置固定分配
type Genre string

const (
	GenreMessage Genre = "Message"
	GenrePicture Genre = "Picture"
	GenreSong    Genre = "Special Song"
	GenreBook    Genre = "Book rec"
	GenreFlowers Genre = "Virtual flowers"
	GenreProduct Genre = "A product link"
	GenreMemory  Genre = "My favorite memory of you"
)

// DayCount 日历固定包含 7 张日卡
const DayCount = 7

// GenreByIndex 按日卡下标（0..6）固定分配体裁
var GenreByIndex = [DayCount]Genre{
	GenreMessage,
	GenrePicture,
	GenreSong,
	GenreBook,
	GenreFlowers,
	GenreProduct,
	GenreMemory,
}

// 背景模式：纯色或图片
const (
	BgModeColor = "color"
	BgModeImage = "image"
)

// DayCommon 汇总所有体裁共享的卡面字段
type DayCommon struct {
	Type      Genre     `json:"type"`
	DayNumber int       `json:"dayNumber"`
	BgMode    string    `json:"bgMode"`
	CardColor string    `json:"cardColor"`
	BgImage   string    `json:"bgImage"`
	Font      string    `json:"font"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Genre 返回体裁标签
func (c DayCommon) Genre() Genre { return c.Type }

// Common 返回共享字段的副本
func (c DayCommon) Common() DayCommon { return c }

// FreeText 返回卡片的自由文本内容，默认没有
func (c DayCommon) FreeText() string { return "" }

// ImagePayloads 返回可能携带内联图片的字段值，默认只有背景图
func (c DayCommon) ImagePayloads() []string { return []string{c.BgImage} }

// Day 是按 type 区分的日卡变体
type Day interface {
	Genre() Genre
	Common() DayCommon
	// FreeText 返回用于分享视图渲染的自由文本（留言、推荐语等）
	FreeText() string
	// ImagePayloads 返回所有可能是内联图片负载的字段值
	ImagePayloads() []string
}

// MessageDay 第 1 天：留言
type MessageDay struct {
	DayCommon
	Message string `json:"message"`
}

func (d MessageDay) FreeText() string { return d.Message }

// PictureDay 第 2 天：照片
type PictureDay struct {
	DayCommon
	PhotoData string `json:"photoData"`
}

func (d PictureDay) ImagePayloads() []string {
	return append(d.DayCommon.ImagePayloads(), d.PhotoData)
}

// SongDay 第 3 天：歌曲推荐
type SongDay struct {
	DayCommon
	SongTitle string `json:"songTitle"`
	Artist    string `json:"artist"`
	SongURL   string `json:"songUrl"`
}

// BookDay 第 4 天：书籍推荐
type BookDay struct {
	DayCommon
	BookTitle      string `json:"bookTitle"`
	Author         string `json:"author"`
	Recommendation string `json:"recommendation"`
	CoverData      string `json:"coverData"`
}

func (d BookDay) FreeText() string { return d.Recommendation }

func (d BookDay) ImagePayloads() []string {
	return append(d.DayCommon.ImagePayloads(), d.CoverData)
}

// FlowersDay 第 5 天：虚拟花束
type FlowersDay struct {
	DayCommon
	FlowerImage string `json:"flowerImage"`
	FlowerName  string `json:"flowerName"`
	Message     string `json:"message"`
}

func (d FlowersDay) FreeText() string { return d.Message }

func (d FlowersDay) ImagePayloads() []string {
	return append(d.DayCommon.ImagePayloads(), d.FlowerImage)
}

// ProductDay 第 6 天：好物链接
type ProductDay struct {
	DayCommon
	ProductLink string `json:"productLink"`
	Message     string `json:"message"`
}

func (d ProductDay) FreeText() string { return d.Message }

// MemoryDay 第 7 天：最珍贵的回忆
type MemoryDay struct {
	DayCommon
	MemoryTitle  string `json:"memoryTitle"`
	MemoryReason string `json:"memoryReason"`
	MemoryImage  string `json:"memoryImage"`
}

func (d MemoryDay) FreeText() string { return d.MemoryReason }

func (d MemoryDay) ImagePayloads() []string {
	return append(d.DayCommon.ImagePayloads(), d.MemoryImage)
}

// DefaultDay 按体裁生成空白日卡
func DefaultDay(index int, now time.Time) Day {
	genre := GenreMessage
	if index >= 0 && index < DayCount {
		genre = GenreByIndex[index]
	}
	common := DayCommon{
		Type:      genre,
		DayNumber: index + 1,
		BgMode:    BgModeColor,
		UpdatedAt: now,
	}
	switch genre {
	case GenrePicture:
		return PictureDay{DayCommon: common}
	case GenreSong:
		return SongDay{DayCommon: common}
	case GenreBook:
		return BookDay{DayCommon: common}
	case GenreFlowers:
		return FlowersDay{DayCommon: common}
	case GenreProduct:
		return ProductDay{DayCommon: common}
	case GenreMemory:
		return MemoryDay{DayCommon: common}
	default:
		return MessageDay{DayCommon: common}
	}
}

// DefaultDays 生成 7 张按位置定体裁的空白日卡
func DefaultDays(now time.Time) DayList {
	days := make(DayList, DayCount)
	for i := range days {
		days[i] = DefaultDay(i, now)
	}
	return days
}

// DayList 是日卡序列，负责变体的 JSON 编解码，并实现 gorm 文本列的读写
type DayList []Day

func decodeDay(raw json.RawMessage, index int) (Day, error) {
	var probe struct {
		Type Genre `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}

	genre := probe.Type
	if genre == "" && index >= 0 && index < DayCount {
		// 缺失体裁标签时按位置回退
		genre = GenreByIndex[index]
	}

	var (
		day Day
		err error
	)
	switch genre {
	case GenrePicture:
		var d PictureDay
		err = json.Unmarshal(raw, &d)
		d.Type = GenrePicture
		day = d
	case GenreSong:
		var d SongDay
		err = json.Unmarshal(raw, &d)
		d.Type = GenreSong
		day = d
	case GenreBook:
		var d BookDay
		err = json.Unmarshal(raw, &d)
		d.Type = GenreBook
		day = d
	case GenreFlowers:
		var d FlowersDay
		err = json.Unmarshal(raw, &d)
		d.Type = GenreFlowers
		day = d
	case GenreProduct:
		var d ProductDay
		err = json.Unmarshal(raw, &d)
		d.Type = GenreProduct
		day = d
	case GenreMemory:
		var d MemoryDay
		err = json.Unmarshal(raw, &d)
		d.Type = GenreMemory
		day = d
	default:
		var d MessageDay
		err = json.Unmarshal(raw, &d)
		d.Type = GenreMessage
		day = d
	}
	if err != nil {
		return nil, err
	}
	return day, nil
}

// UnmarshalJSON 按 type 标签分发到具体变体
func (l *DayList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}

	days := make(DayList, 0, len(raws))
	for i, raw := range raws {
		day, err := decodeDay(raw, i)
		if err != nil {
			return fmt.Errorf("day %d: %w", i+1, err)
		}
		days = append(days, day)
	}
	*l = days
	return nil
}

// MarshalJSON 输出扁平的带标签对象数组
func (l DayList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Day(l))
}

// Value 以 JSON 文本写入数据库
func (l DayList) Value() (driver.Value, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan 从数据库读出 JSON 文本
func (l *DayList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return l.UnmarshalJSON(v)
	case string:
		return l.UnmarshalJSON([]byte(v))
	default:
		return errors.New("unsupported day list column type")
	}
}

// DayPatch 是对单张日卡的浅合并补丁，键为 JSON 字段名
type DayPatch map[string]interface{}

// ErrDayIndexOutOfRange 表示日卡下标超出 0..6
var ErrDayIndexOutOfRange = errors.New("day index out of range")
