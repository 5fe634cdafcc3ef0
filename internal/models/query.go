package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// SortOrder порядок сортировки каталога
type SortOrder string

const (
	SortNewest     SortOrder = "newest"
	SortOldest     SortOrder = "oldest"
	SortPointsLow  SortOrder = "points_low"
	SortPointsHigh SortOrder = "points_high"
)

func (s SortOrder) Valid() bool {
	switch s {
	case SortNewest, SortOldest, SortPointsLow, SortPointsHigh:
		return true
	}
	return false
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ItemQuery фильтр выборки вещей. Пустое поле означает "без ограничения".
type ItemQuery struct {
	Status    ItemStatus
	Available *bool
	OwnerID   uuid.UUID
	Category  Category
	Size      Size
	Condition Condition
	Tags      []string
	Search    string
	Sort      SortOrder
	Limit     int
	Offset    int
}

// BrowseQuery возвращает копию запроса для публичного каталога:
// только одобренные и доступные вещи
func (q ItemQuery) BrowseQuery() ItemQuery {
	available := true
	q.Status = ItemApproved
	q.Available = &available
	return q
}

// Normalize приводит запрос к каноничному виду
func (q ItemQuery) Normalize() ItemQuery {
	q.Search = strings.TrimSpace(q.Search)
	q.Tags = NormalizeTags(q.Tags)
	if !q.Sort.Valid() {
		q.Sort = SortNewest
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// Matches применяет все фильтры запроса к вещи (без сортировки и пагинации)
func (q ItemQuery) Matches(item *Item) bool {
	if q.Status != "" && item.Status != q.Status {
		return false
	}
	if q.Available != nil && item.IsAvailable != *q.Available {
		return false
	}
	if q.OwnerID != uuid.Nil && item.UserID != q.OwnerID {
		return false
	}
	if q.Category != "" && item.Category != q.Category {
		return false
	}
	if q.Size != "" && item.Size != q.Size {
		return false
	}
	if q.Condition != "" && item.Condition != q.Condition {
		return false
	}
	for _, tag := range q.Tags {
		if !item.HasTag(tag) {
			return false
		}
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(item.Title), needle) &&
			!strings.Contains(strings.ToLower(item.Description), needle) {
			return false
		}
	}
	return true
}

// CacheKey строит стабильный ключ запроса для кэша каталога
func (q ItemQuery) CacheKey() string {
	available := "any"
	if q.Available != nil {
		available = fmt.Sprintf("%t", *q.Available)
	}
	tags := append([]string(nil), q.Tags...)
	sort.Strings(tags)
	return strings.Join([]string{
		string(q.Status), available, q.OwnerID.String(),
		string(q.Category), string(q.Size), string(q.Condition),
		strings.Join(tags, ","), strings.ToLower(q.Search), string(q.Sort),
		fmt.Sprintf("%d:%d", q.Limit, q.Offset),
	}, "|")
}

// SortItems сортирует вещи на месте. При равенстве ключа порядок определяется ID.
func SortItems(items []Item, order SortOrder) {
	less := func(a, b *Item) bool {
		switch order {
		case SortOldest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		case SortPointsLow:
			if a.PointValue != b.PointValue {
				return a.PointValue < b.PointValue
			}
		case SortPointsHigh:
			if a.PointValue != b.PointValue {
				return a.PointValue > b.PointValue
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.ID.String() < b.ID.String()
	}
	sort.SliceStable(items, func(i, j int) bool { return less(&items[i], &items[j]) })
}

// Paginate возвращает окно [offset, offset+limit). limit <= 0 означает "все".
func Paginate[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	if offset < 0 {
		offset = 0
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}

// NormalizeTags обрезает пробелы, приводит к нижнему регистру и убирает дубликаты
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ItemPage страница каталога
type ItemPage struct {
	Items  []Item `json:"items"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}
