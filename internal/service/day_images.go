package service

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	// 注册内联图片校验支持的解码器
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/daysofyou/internal/db"
)

var (
	ErrInvalidImage  = errors.New("inline image payload is not a decodable image")
	ErrImageTooLarge = errors.New("inline image payload exceeds the allowed size")
)

const (
	// 内联图片负载的上限，超出直接拒绝
	maxInlineImageBytes = 5 << 20
	maxImageDimension   = 4096
)

// validateDayImages checks every inline data-URL image payload carried
// by the day cards. Preset paths and plain URLs are left alone; only
// base64 data URLs are decoded. Rejected payloads fail the whole
// request, nothing is partially applied.
func validateDayImages(days db.DayList) error {
	for i, day := range days {
		if day == nil {
			continue
		}
		for _, payload := range day.ImagePayloads() {
			if err := checkInlineImage(payload); err != nil {
				return fmt.Errorf("day %d: %w", i+1, err)
			}
		}
	}
	return nil
}

func checkInlineImage(payload string) error {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, "data:image/") {
		return nil
	}

	comma := strings.IndexByte(payload, ',')
	if comma < 0 {
		return ErrInvalidImage
	}
	meta, data := payload[:comma], payload[comma+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return ErrInvalidImage
	}

	// base64 每 4 字符编码 3 字节，先按编码长度粗筛
	if len(data) > maxInlineImageBytes/3*4 {
		return ErrImageTooLarge
	}

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return ErrInvalidImage
	}

	config, _, err := image.DecodeConfig(bytes.NewReader(decoded))
	if err != nil {
		return ErrInvalidImage
	}
	if config.Width <= 0 || config.Height <= 0 ||
		config.Width > maxImageDimension || config.Height > maxImageDimension {
		return ErrImageTooLarge
	}
	return nil
}
