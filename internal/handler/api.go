package handler

import (
	"github.com/daysofyou/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db        *gorm.DB
	users     *service.UserService
	calendars *service.CalendarService
	shares    *service.ShareService
	baseURL   string
}

// NewAPI constructs a handler set with shared services.
// baseURL is used to build absolute share links in publish responses.
func NewAPI(gdb *gorm.DB, baseURL string) *API {
	return &API{
		db:        gdb,
		users:     service.NewUserService(gdb),
		calendars: service.NewCalendarService(gdb),
		shares:    service.NewShareService(gdb),
		baseURL:   baseURL,
	}
}

// DB exposes the underlying gorm instance for legacy paths.
func (a *API) DB() *gorm.DB {
	return a.db
}
