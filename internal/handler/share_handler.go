package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/daysofyou/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

// GetSharedCalendar 是唯一的公开只读入口：按令牌返回去除属主信息的投影。
// 未知令牌与已撤回的令牌返回同样的 404。
func (a *API) GetSharedCalendar(c *gin.Context) {
	view, err := a.shares.Resolve(c.Param("token"))
	if err != nil {
		if errors.Is(err, service.ErrShareNotFound) {
			respondError(c, http.StatusNotFound, "Calendar not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "could not load shared calendar")
		return
	}

	days, err := renderSharedDays(view)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "could not render shared calendar")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":        view.Name,
		"description": view.Description,
		"createdBy":   view.CreatedBy,
		"type":        view.Type,
		"days":        days,
		"status":      view.Status,
		"publishedAt": view.PublishedAt,
	})
}

// renderSharedDays 在日卡之上附加 messageHtml：自由文本经 Markdown
// 渲染并消毒后的 HTML。原始字段原样保留，收件人页面可直接渲染。
func renderSharedDays(view *service.SharedCalendarView) ([]map[string]interface{}, error) {
	days := make([]map[string]interface{}, 0, len(view.Days))
	for _, day := range view.Days {
		raw, err := json.Marshal(day)
		if err != nil {
			return nil, err
		}
		entry := map[string]interface{}{}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, err
		}

		if text := strings.TrimSpace(day.FreeText()); text != "" {
			rendered, err := renderMarkdown(text)
			if err != nil {
				return nil, err
			}
			entry["messageHtml"] = rendered
		}
		days = append(days, entry)
	}
	return days, nil
}

func renderMarkdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return sanitizer.Sanitize(buf.String()), nil
}
