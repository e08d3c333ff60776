package router

import (
	"github.com/daysofyou/internal/config"
	"github.com/daysofyou/internal/handler"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(cfg config.AppConfig, api *handler.API) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("daysofyou_session", store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// 账号相关路由
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", api.Register)
		auth.POST("/login", api.Login)
		auth.POST("/logout", api.Logout)
		auth.GET("/me", api.Me)
	}

	// 属主操作，全部要求登录
	calendars := r.Group("/api/calendars")
	calendars.Use(handler.AuthRequired())
	{
		calendars.GET("", api.ListCalendars)
		calendars.GET("/:id", api.GetCalendar)
		calendars.POST("", api.CreateCalendar)
		calendars.PUT("/:id", api.UpdateCalendar)
		calendars.DELETE("/:id", api.DeleteCalendar)

		calendars.POST("/:id/share/publish", api.PublishCalendar)
		calendars.POST("/:id/share/unpublish", api.UnpublishCalendar)
		calendars.POST("/:id/share/regenerate", api.RegenerateShare)
	}

	// 公开的分享入口，无需认证
	r.GET("/api/share/:token", api.GetSharedCalendar)

	return r
}
