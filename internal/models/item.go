package models

import (
	"time"

	"github.com/google/uuid"
)

// ItemStatus статус модерации вещи
type ItemStatus string

const (
	ItemPending  ItemStatus = "pending"
	ItemApproved ItemStatus = "approved"
	ItemRejected ItemStatus = "rejected"
	ItemSwapped  ItemStatus = "swapped"
)

func (s ItemStatus) Valid() bool {
	switch s {
	case ItemPending, ItemApproved, ItemRejected, ItemSwapped:
		return true
	}
	return false
}

// CanTransition проверяет переход статуса вещи.
// В pending вернуться нельзя; swapped ставится только при завершении обмена.
func (s ItemStatus) CanTransition(to ItemStatus) bool {
	switch s {
	case ItemPending:
		return to == ItemApproved || to == ItemRejected
	case ItemApproved:
		return to == ItemSwapped
	}
	return false
}

// Item представляет вещь, выставленную на обмен
type Item struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    Category   `json:"category"`
	Size        Size       `json:"size,omitempty"`
	Condition   Condition  `json:"condition"`
	PointValue  int        `json:"point_value"`
	ImageURLs   []string   `json:"image_urls"`
	Status      ItemStatus `json:"status"`
	IsAvailable bool       `json:"is_available"`
	Version     int        `json:"version"`
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Дополнительные поля для API
	Owner *User `json:"owner,omitempty"`
}

// IsBrowsable сообщает, можно ли показывать вещь в публичном каталоге
func (i *Item) IsBrowsable() bool {
	return i.Status == ItemApproved && i.IsAvailable
}

// HasTag проверяет наличие тега у вещи
func (i *Item) HasTag(name string) bool {
	for _, t := range i.Tags {
		if t == name {
			return true
		}
	}
	return false
}

// Tag элемент словаря тегов
type Tag struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// User представляет минимальную информацию о пользователе для API
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username,omitempty"`
	FullName  string    `json:"full_name,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Location  string    `json:"location,omitempty"`
}
