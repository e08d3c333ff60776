package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/daysofyou/internal/db"
	"github.com/daysofyou/internal/service"
	"github.com/gin-gonic/gin"
)

// calendarPayload 是创建/更新日历时接受的完整文档负载。
// 发布相关字段允许出现在负载中，但由分享生命周期独占维护。
type calendarPayload struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	Days        db.DayList `json:"days"`
	Status      string     `json:"status"`
	IsPublished *bool      `json:"isPublished"`
}

func (p calendarPayload) toInput() service.CalendarInput {
	return service.CalendarInput{
		Name:        p.Name,
		Description: p.Description,
		Type:        p.Type,
		Days:        p.Days,
		Status:      p.Status,
		IsPublished: p.IsPublished,
	}
}

// ListCalendars 获取当前用户的日历列表
func (a *API) ListCalendars(c *gin.Context) {
	calendars, err := a.calendars.List(currentUserID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "could not list calendars")
		return
	}
	c.JSON(http.StatusOK, calendars)
}

// GetCalendar 获取单个日历
func (a *API) GetCalendar(c *gin.Context) {
	calendar, err := a.calendars.Get(currentUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrCalendarNotFound) {
			respondError(c, http.StatusNotFound, "Calendar not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "could not load calendar")
		return
	}
	c.JSON(http.StatusOK, calendar)
}

// CreateCalendar 创建新日历
func (a *API) CreateCalendar(c *gin.Context) {
	var payload calendarPayload
	if !bindJSON(c, &payload, "invalid calendar payload") {
		return
	}

	calendar, err := a.calendars.Create(currentUserID(c), payload.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, calendar)
}

// UpdateCalendar 以整篇文档替换的方式更新日历
func (a *API) UpdateCalendar(c *gin.Context) {
	var payload calendarPayload
	if !bindJSON(c, &payload, "invalid calendar payload") {
		return
	}

	calendar, err := a.calendars.Update(currentUserID(c), c.Param("id"), payload.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, calendar)
}

// DeleteCalendar 删除草稿状态的日历
func (a *API) DeleteCalendar(c *gin.Context) {
	deleted, err := a.calendars.Delete(currentUserID(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !deleted {
		respondError(c, http.StatusNotFound, "Calendar not found")
		return
	}
	c.Status(http.StatusNoContent)
}

// PublishCalendar 发布日历并返回可分享的链接
func (a *API) PublishCalendar(c *gin.Context) {
	var payload struct {
		Regenerate bool `json:"regenerate"`
	}
	// 空请求体等同于 {regenerate:false}
	_ = c.ShouldBindJSON(&payload)

	calendar, err := a.shares.Publish(currentUserID(c), c.Param("id"), payload.Regenerate)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, a.withShareURL(calendar))
}

// UnpublishCalendar 撤回发布并吊销全部已分发链接
func (a *API) UnpublishCalendar(c *gin.Context) {
	calendar, err := a.shares.Unpublish(currentUserID(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, calendar)
}

// RegenerateShare 为已发布的日历更换分享令牌
func (a *API) RegenerateShare(c *gin.Context) {
	calendar, err := a.shares.Regenerate(currentUserID(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, a.withShareURL(calendar))
}

// withShareURL 在日历响应外附带绝对分享链接
func (a *API) withShareURL(calendar *db.Calendar) gin.H {
	response := gin.H{"calendar": calendar}
	if calendar.ShareToken != nil && a.baseURL != "" {
		response["shareUrl"] = fmt.Sprintf("%s/share/%s", strings.TrimRight(a.baseURL, "/"), *calendar.ShareToken)
	}
	return response
}

// respondServiceError 把服务层哨兵错误映射为 HTTP 状态码
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCalendarNotFound):
		respondError(c, http.StatusNotFound, "Calendar not found")
	case errors.Is(err, service.ErrCalendarPublished):
		respondError(c, http.StatusConflict, "Calendar must be draft to delete.")
	case errors.Is(err, service.ErrCalendarNotPublished):
		respondError(c, http.StatusConflict, "Calendar must be published before regenerating its link.")
	case errors.Is(err, service.ErrNameRequired):
		respondError(c, http.StatusBadRequest, "Name is required.")
	case errors.Is(err, service.ErrInvalidType):
		respondError(c, http.StatusBadRequest, "Only 7-day calendars are supported.")
	case errors.Is(err, service.ErrInvalidDayCount):
		respondError(c, http.StatusBadRequest, "Days must be an array of 7 items.")
	case errors.Is(err, service.ErrInvalidImage), errors.Is(err, service.ErrImageTooLarge):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "calendar operation failed")
	}
}
