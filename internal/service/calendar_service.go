package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/daysofyou/internal/db"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrCalendarNotFound  = errors.New("calendar not found")
	ErrCalendarPublished = errors.New("calendar must be draft to delete")
	ErrNameRequired      = errors.New("name is required")
	ErrInvalidType       = errors.New("only 7-day calendars are supported")
	ErrInvalidDayCount   = fmt.Errorf("days must be an array of %d items", db.DayCount)
)

// CalendarService wraps calendar document database operations.
// Every query is scoped to the owning user; a calendar owned by
// someone else is indistinguishable from a missing one.
type CalendarService struct {
	db *gorm.DB
}

// CalendarInput represents the full-document payload accepted when
// creating or updating a calendar. Days being nil means "not provided".
type CalendarInput struct {
	Name        string
	Description string
	Type        string
	Days        db.DayList
	Status      string
	IsPublished *bool
}

// NewCalendarService creates a CalendarService instance.
func NewCalendarService(gdb *gorm.DB) *CalendarService {
	return &CalendarService{db: gdb}
}

// List returns the user's calendars ordered by most recently updated.
func (s *CalendarService) List(userID string) ([]db.Calendar, error) {
	var calendars []db.Calendar
	if err := s.db.Where("user_id = ?", userID).Order("updated_at desc").Find(&calendars).Error; err != nil {
		return nil, err
	}
	return calendars, nil
}

// Get fetches one calendar owned by the user.
func (s *CalendarService) Get(userID, id string) (*db.Calendar, error) {
	var calendar db.Calendar
	if err := s.db.Where("user_id = ? AND id = ?", userID, id).First(&calendar).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCalendarNotFound
		}
		return nil, err
	}
	return &calendar, nil
}

// Create persists a new calendar. Missing fields are defaulted, days
// default to seven blank genre-typed cards. A freshly created calendar
// never carries a share token.
func (s *CalendarService) Create(userID string, input CalendarInput) (*db.Calendar, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}
	if err := validateDayImages(input.Days); err != nil {
		return nil, err
	}

	now := time.Now()
	status := db.NormalizeStatus(input.Status, input.IsPublished)

	calendar := db.Calendar{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Type:        db.CalendarType,
		Days:        input.Days,
		Status:      status,
		IsPublished: status == db.StatusPublished,
		UpdatedAt:   now,
	}
	if calendar.IsPublished {
		calendar.PublishedAt = &now
	}
	calendar = db.EnsureShape(calendar, now)

	if err := s.db.Create(&calendar).Error; err != nil {
		return nil, err
	}
	return &calendar, nil
}

// Update replaces the calendar document wholesale. The publish state
// (status, isPublished, shareToken, publishedAt) is owned by the share
// lifecycle and preserved regardless of what the payload carries.
func (s *CalendarService) Update(userID, id string, input CalendarInput) (*db.Calendar, error) {
	if err := validateUpdate(input); err != nil {
		return nil, err
	}
	if err := validateDayImages(input.Days); err != nil {
		return nil, err
	}

	existing, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	existing.Name = strings.TrimSpace(input.Name)
	existing.Description = input.Description
	existing.Type = db.CalendarType
	existing.Days = input.Days
	existing.UpdatedAt = now

	if err := s.db.Save(existing).Error; err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete removes a draft calendar and reports whether a row was removed.
// A published calendar must be unpublished first.
func (s *CalendarService) Delete(userID, id string) (bool, error) {
	existing, err := s.Get(userID, id)
	if err != nil {
		return false, err
	}
	if existing.IsPublished {
		return false, ErrCalendarPublished
	}

	result := s.db.Where("user_id = ? AND id = ?", userID, id).Delete(&db.Calendar{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// validateCreate enforces the boundary rules on optional create fields:
// name may be omitted but not blank-only garbage of another type, the
// type literal must be 7-day when given, and days must be exactly seven
// when given at all.
func validateCreate(input CalendarInput) error {
	if input.Type != "" && input.Type != db.CalendarType {
		return ErrInvalidType
	}
	if input.Days != nil && len(input.Days) != db.DayCount {
		return ErrInvalidDayCount
	}
	return nil
}

// validateUpdate enforces the stricter full-document rules: name and
// type are required and days must be exactly seven. Wrong-length day
// arrays are rejected, never silently replaced with defaults.
func validateUpdate(input CalendarInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return ErrNameRequired
	}
	if input.Type != db.CalendarType {
		return ErrInvalidType
	}
	if input.Days == nil || len(input.Days) != db.DayCount {
		return ErrInvalidDayCount
	}
	return nil
}
