package models

import (
	"time"

	"github.com/google/uuid"
)

// SwapStatus статус предложения обмена
type SwapStatus string

const (
	SwapPending   SwapStatus = "pending"
	SwapAccepted  SwapStatus = "accepted"
	SwapRejected  SwapStatus = "rejected"
	SwapCompleted SwapStatus = "completed"
	SwapCancelled SwapStatus = "cancelled"
)

func (s SwapStatus) Valid() bool {
	switch s {
	case SwapPending, SwapAccepted, SwapRejected, SwapCompleted, SwapCancelled:
		return true
	}
	return false
}

// CanTransition проверяет переход статуса обмена
func (s SwapStatus) CanTransition(to SwapStatus) bool {
	switch s {
	case SwapPending:
		return to == SwapAccepted || to == SwapRejected || to == SwapCancelled
	case SwapAccepted:
		return to == SwapCompleted
	}
	return false
}

// IsFinal сообщает, что из статуса нет переходов
func (s SwapStatus) IsFinal() bool {
	return s == SwapRejected || s == SwapCompleted || s == SwapCancelled
}

// SwapRequest представляет предложение обмена
type SwapRequest struct {
	ID              uuid.UUID  `json:"id"`
	RequesterID     uuid.UUID  `json:"requester_id"`
	OwnerID         uuid.UUID  `json:"owner_id"`
	RequestedItemID uuid.UUID  `json:"requested_item_id"`
	OfferedItemID   *uuid.UUID `json:"offered_item_id"`
	PointsOffered   int        `json:"points_offered"`
	Message         string     `json:"message"`
	Status          SwapStatus `json:"status"` // pending, accepted, rejected, completed, cancelled
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Дополнительные поля для API
	RequestedItem *Item `json:"requested_item,omitempty"`
	OfferedItem   *Item `json:"offered_item,omitempty"`
	Requester     *User `json:"requester,omitempty"`
	Owner         *User `json:"owner,omitempty"`
}

// IsPointsOffer сообщает, что встречное предложение выражено в баллах
func (s *SwapRequest) IsPointsOffer() bool {
	return s.OfferedItemID == nil && s.PointsOffered > 0
}

// IsParticipant проверяет, что пользователь участвует в обмене
func (s *SwapRequest) IsParticipant(userID uuid.UUID) bool {
	return s.RequesterID == userID || s.OwnerID == userID
}

// SwapDirection направление выборки обменов относительно пользователя
type SwapDirection string

const (
	SwapIncoming SwapDirection = "incoming"
	SwapOutgoing SwapDirection = "outgoing"
	SwapAll      SwapDirection = "all"
)

// SwapQuery фильтр выборки обменов
type SwapQuery struct {
	UserID    uuid.UUID
	Direction SwapDirection
	Status    SwapStatus // пусто = все
}

// Matches применяет фильтр к обмену
func (q SwapQuery) Matches(s *SwapRequest) bool {
	switch q.Direction {
	case SwapIncoming:
		if s.OwnerID != q.UserID {
			return false
		}
	case SwapOutgoing:
		if s.RequesterID != q.UserID {
			return false
		}
	default:
		if !s.IsParticipant(q.UserID) {
			return false
		}
	}
	return q.Status == "" || s.Status == q.Status
}
