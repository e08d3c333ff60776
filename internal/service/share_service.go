package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/daysofyou/internal/db"
	"gorm.io/gorm"
)

var (
	ErrShareNotFound         = errors.New("shared calendar not found")
	ErrCalendarNotPublished  = errors.New("calendar has never been published")
	ErrShareTokenUnavailable = errors.New("could not allocate a unique share token")
)

// shareTokenBytes 对应 48 个十六进制字符的不可猜测令牌
const shareTokenBytes = 24

// tokenRetryLimit bounds retries when the unique index reports a
// colliding token. With 192 random bits a retry is already an anomaly.
const tokenRetryLimit = 3

// SharedCalendarView is the read-only projection served to recipients.
// It never carries the calendar id, the owner id or the share token.
type SharedCalendarView struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	CreatedBy   string     `json:"createdBy"`
	Type        string     `json:"type"`
	Days        db.DayList `json:"days"`
	Status      string     `json:"status"`
	PublishedAt *time.Time `json:"publishedAt"`
}

// ShareService drives the draft/published state machine and resolves
// public share tokens.
type ShareService struct {
	db *gorm.DB
}

// NewShareService creates a ShareService instance.
func NewShareService(gdb *gorm.DB) *ShareService {
	return &ShareService{db: gdb}
}

// Publish transitions a calendar to the published state. A new token is
// generated when regenerate is set or the calendar never had one;
// otherwise the existing token is kept so previously distributed links
// stay valid. Re-publishing without regenerate is idempotent.
func (s *ShareService) Publish(userID, id string, regenerate bool) (*db.Calendar, error) {
	var calendar db.Calendar
	if err := s.db.Where("user_id = ? AND id = ?", userID, id).First(&calendar).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCalendarNotFound
		}
		return nil, err
	}

	for attempt := 0; attempt < tokenRetryLimit; attempt++ {
		token := calendar.ShareToken
		if regenerate || token == nil || *token == "" {
			generated, err := generateShareToken()
			if err != nil {
				return nil, err
			}
			token = &generated
		}

		now := time.Now()
		err := s.db.Transaction(func(tx *gorm.DB) error {
			// 行级单条 UPDATE，保证与并发的 unpublish 串行化
			return tx.Model(&db.Calendar{}).
				Where("user_id = ? AND id = ?", userID, id).
				Updates(map[string]interface{}{
					"share_token":  *token,
					"is_published": true,
					"status":       db.StatusPublished,
					"published_at": now,
					"updated_at":   now,
				}).Error
		})
		if err != nil {
			if isUniqueViolation(err) {
				// 撞上了别的日历的令牌，换一个再试
				calendar.ShareToken = nil
				continue
			}
			return nil, err
		}

		calendar.ShareToken = token
		calendar.IsPublished = true
		calendar.Status = db.StatusPublished
		calendar.PublishedAt = &now
		calendar.UpdatedAt = now
		return &calendar, nil
	}

	return nil, ErrShareTokenUnavailable
}

// Unpublish returns a calendar to draft and clears its token. Every
// previously distributed link is revoked immediately and permanently.
func (s *ShareService) Unpublish(userID, id string) (*db.Calendar, error) {
	var calendar db.Calendar
	if err := s.db.Where("user_id = ? AND id = ?", userID, id).First(&calendar).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCalendarNotFound
		}
		return nil, err
	}

	now := time.Now()
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Model(&db.Calendar{}).
			Where("user_id = ? AND id = ?", userID, id).
			Updates(map[string]interface{}{
				"share_token":  nil,
				"is_published": false,
				"status":       db.StatusDraft,
				"published_at": nil,
				"updated_at":   now,
			}).Error
	}); err != nil {
		return nil, err
	}

	calendar.ShareToken = nil
	calendar.IsPublished = false
	calendar.Status = db.StatusDraft
	calendar.PublishedAt = nil
	calendar.UpdatedAt = now
	return &calendar, nil
}

// Regenerate rotates the share token of an already-published calendar.
// Rotating a draft is rejected: publish it first.
func (s *ShareService) Regenerate(userID, id string) (*db.Calendar, error) {
	var calendar db.Calendar
	if err := s.db.Where("user_id = ? AND id = ?", userID, id).First(&calendar).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCalendarNotFound
		}
		return nil, err
	}
	if !calendar.IsPublished {
		return nil, ErrCalendarNotPublished
	}
	return s.Publish(userID, id, true)
}

// Resolve maps a public token to the owner-stripped projection. Tokens
// of calendars that have since been unpublished no longer match; an
// unknown token and a revoked one are indistinguishable.
func (s *ShareService) Resolve(token string) (*SharedCalendarView, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrShareNotFound
	}

	var calendar db.Calendar
	if err := s.db.Preload("User").
		Where("share_token = ? AND is_published = ?", token, true).
		First(&calendar).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShareNotFound
		}
		return nil, err
	}

	return &SharedCalendarView{
		Name:        calendar.Name,
		Description: calendar.Description,
		CreatedBy:   calendar.User.Username,
		Type:        calendar.Type,
		Days:        calendar.Days,
		Status:      calendar.Status,
		PublishedAt: calendar.PublishedAt,
	}, nil
}

func generateShareToken() (string, error) {
	buf := make([]byte, shareTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}
