package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile профиль пользователя с балансом баллов
type Profile struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	FullName   string    `json:"full_name"`
	AvatarURL  string    `json:"avatar_url"`
	Bio        string    `json:"bio"`
	Location   string    `json:"location"`
	Points     int       `json:"points"`
	TelegramID int64     `json:"telegram_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Summary возвращает публичную информацию о пользователе
func (p *Profile) Summary() *User {
	return &User{
		ID:        p.ID,
		Username:  p.Username,
		FullName:  p.FullName,
		AvatarURL: p.AvatarURL,
		Location:  p.Location,
	}
}

// Level уровень пользователя: каждые 100 баллов дают уровень
func (p *Profile) Level() int {
	if p.Points < 0 {
		return 1
	}
	return p.Points/PointsPerLevel + 1
}

// LevelProgress баллы, набранные внутри текущего уровня
func (p *Profile) LevelProgress() int {
	if p.Points < 0 {
		return 0
	}
	return p.Points % PointsPerLevel
}

// ProfileUpdate изменяемые поля профиля. nil означает "не менять".
type ProfileUpdate struct {
	FullName  *string `json:"full_name" validate:"omitempty,max=100"`
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
	Location  *string `json:"location" validate:"omitempty,max=100"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
}

// Apply применяет изменения к профилю
func (u ProfileUpdate) Apply(p *Profile) {
	if u.FullName != nil {
		p.FullName = *u.FullName
	}
	if u.Bio != nil {
		p.Bio = *u.Bio
	}
	if u.Location != nil {
		p.Location = *u.Location
	}
	if u.AvatarURL != nil {
		p.AvatarURL = *u.AvatarURL
	}
}

// PointsEntry запись журнала баллов
type PointsEntry struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	Amount          int             `json:"amount"`
	TransactionType TransactionType `json:"transaction_type"`
	SwapRequestID   *uuid.UUID      `json:"swap_request_id,omitempty"`
	Description     string          `json:"description"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Stats сводка для админ-панели
type Stats struct {
	ApprovedItems  int `json:"approved_items"`
	Users          int `json:"users"`
	CompletedSwaps int `json:"completed_swaps"`
	PendingItems   int `json:"pending_items"`
}
