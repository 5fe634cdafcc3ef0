package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/rewear-api/internal/models"
	"github.com/rajivgeraev/rewear-api/internal/store"
)

type favoriteKey struct {
	userID, itemID uuid.UUID
}

// dataset снимок всех таблиц. Опубликованный снимок не изменяется.
type dataset struct {
	profiles  map[uuid.UUID]models.Profile
	items     map[uuid.UUID]models.Item
	tags      map[string]models.Tag
	swaps     map[uuid.UUID]models.SwapRequest
	points    []models.PointsEntry
	favorites map[favoriteKey]time.Time
}

func newDataset() *dataset {
	return &dataset{
		profiles:  make(map[uuid.UUID]models.Profile),
		items:     make(map[uuid.UUID]models.Item),
		tags:      make(map[string]models.Tag),
		swaps:     make(map[uuid.UUID]models.SwapRequest),
		favorites: make(map[favoriteKey]time.Time),
	}
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		profiles:  make(map[uuid.UUID]models.Profile, len(d.profiles)),
		items:     make(map[uuid.UUID]models.Item, len(d.items)),
		tags:      make(map[string]models.Tag, len(d.tags)),
		swaps:     make(map[uuid.UUID]models.SwapRequest, len(d.swaps)),
		points:    append([]models.PointsEntry(nil), d.points...),
		favorites: make(map[favoriteKey]time.Time, len(d.favorites)),
	}
	for k, v := range d.profiles {
		c.profiles[k] = v
	}
	for k, v := range d.items {
		c.items[k] = copyItem(v)
	}
	for k, v := range d.tags {
		c.tags[k] = v
	}
	for k, v := range d.swaps {
		c.swaps[k] = copySwap(v)
	}
	for k, v := range d.favorites {
		c.favorites[k] = v
	}
	return c
}

func copyItem(it models.Item) models.Item {
	it.ImageURLs = append([]string{}, it.ImageURLs...)
	it.Tags = append([]string{}, it.Tags...)
	it.Owner = nil
	return it
}

func copySwap(s models.SwapRequest) models.SwapRequest {
	if s.OfferedItemID != nil {
		id := *s.OfferedItemID
		s.OfferedItemID = &id
	}
	s.RequestedItem, s.OfferedItem, s.Requester, s.Owner = nil, nil, nil, nil
	return s
}

// repo реализует store.Repository поверх одного снимка
type repo struct {
	d   *dataset
	now func() time.Time
}

var _ store.Repository = (*repo)(nil)

func (r *repo) CreateProfile(_ context.Context, p *models.Profile) error {
	if _, ok := r.d.profiles[p.ID]; ok {
		return store.ErrDuplicate
	}
	for _, other := range r.d.profiles {
		if p.Username != "" && other.Username == p.Username {
			return store.ErrDuplicate
		}
		if p.TelegramID != 0 && other.TelegramID == p.TelegramID {
			return store.ErrDuplicate
		}
	}
	now := r.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	r.d.profiles[p.ID] = *p
	return nil
}

func (r *repo) GetProfile(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	p, ok := r.d.profiles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (r *repo) GetProfileByTelegramID(_ context.Context, telegramID int64) (*models.Profile, error) {
	if telegramID == 0 {
		return nil, store.ErrNotFound
	}
	for _, p := range r.d.profiles {
		if p.TelegramID == telegramID {
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *repo) GetProfiles(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Profile, error) {
	out := make(map[uuid.UUID]*models.Profile, len(ids))
	for _, id := range ids {
		if p, ok := r.d.profiles[id]; ok {
			out[id] = &p
		}
	}
	return out, nil
}

func (r *repo) UpdateProfile(_ context.Context, p *models.Profile) error {
	cur, ok := r.d.profiles[p.ID]
	if !ok {
		return store.ErrNotFound
	}
	cur.FullName = p.FullName
	cur.Bio = p.Bio
	cur.Location = p.Location
	cur.AvatarURL = p.AvatarURL
	cur.UpdatedAt = r.now()
	r.d.profiles[p.ID] = cur
	*p = cur
	return nil
}

func (r *repo) CountProfiles(_ context.Context) (int, error) {
	return len(r.d.profiles), nil
}

func (r *repo) AdjustPoints(_ context.Context, userID uuid.UUID, delta int) (int, error) {
	p, ok := r.d.profiles[userID]
	if !ok {
		return 0, store.ErrNotFound
	}
	if p.Points+delta < 0 {
		return 0, store.ErrInsufficientPoints
	}
	p.Points += delta
	p.UpdatedAt = r.now()
	r.d.profiles[userID] = p
	return p.Points, nil
}

func (r *repo) CreateItem(_ context.Context, item *models.Item) error {
	if _, ok := r.d.items[item.ID]; ok {
		return store.ErrDuplicate
	}
	if _, ok := r.d.profiles[item.UserID]; !ok {
		return store.ErrNotFound
	}
	now := r.now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	if item.Version == 0 {
		item.Version = 1
	}
	item.Tags = models.NormalizeTags(item.Tags)
	for _, name := range item.Tags {
		if _, ok := r.d.tags[name]; !ok {
			r.d.tags[name] = models.Tag{ID: uuid.New(), Name: name, CreatedAt: now}
		}
	}
	r.d.items[item.ID] = copyItem(*item)
	return nil
}

func (r *repo) GetItem(_ context.Context, id uuid.UUID) (*models.Item, error) {
	it, ok := r.d.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	it = copyItem(it)
	return &it, nil
}

func (r *repo) GetItems(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Item, error) {
	out := make(map[uuid.UUID]*models.Item, len(ids))
	for _, id := range ids {
		if it, ok := r.d.items[id]; ok {
			it = copyItem(it)
			out[id] = &it
		}
	}
	return out, nil
}

func (r *repo) ListItems(_ context.Context, q models.ItemQuery) ([]models.Item, int, error) {
	matched := make([]models.Item, 0)
	for _, it := range r.d.items {
		if q.Matches(&it) {
			matched = append(matched, copyItem(it))
		}
	}
	models.SortItems(matched, q.Sort)
	return models.Paginate(matched, q.Limit, q.Offset), len(matched), nil
}

func (r *repo) UpdateItemStatus(_ context.Context, id uuid.UUID, to models.ItemStatus, expectedVersion int) (*models.Item, error) {
	it, ok := r.d.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if it.Version != expectedVersion {
		return nil, store.ErrVersionConflict
	}
	it.Status = to
	it.Version++
	it.UpdatedAt = r.now()
	r.d.items[id] = it
	out := copyItem(it)
	return &out, nil
}

func (r *repo) MarkItemSwapped(_ context.Context, id uuid.UUID) error {
	it, ok := r.d.items[id]
	if !ok {
		return store.ErrNotFound
	}
	if !it.IsBrowsable() {
		return store.ErrStaleState
	}
	it.Status = models.ItemSwapped
	it.IsAvailable = false
	it.Version++
	it.UpdatedAt = r.now()
	r.d.items[id] = it
	return nil
}

func (r *repo) CountItems(_ context.Context, status models.ItemStatus) (int, error) {
	n := 0
	for _, it := range r.d.items {
		if status == "" || it.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *repo) ListTags(_ context.Context) ([]models.Tag, error) {
	out := make([]models.Tag, 0, len(r.d.tags))
	for _, t := range r.d.tags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *repo) CreateSwap(_ context.Context, s *models.SwapRequest) error {
	if _, ok := r.d.swaps[s.ID]; ok {
		return store.ErrDuplicate
	}
	if _, ok := r.d.items[s.RequestedItemID]; !ok {
		return store.ErrNotFound
	}
	now := r.now()
	s.CreatedAt, s.UpdatedAt = now, now
	r.d.swaps[s.ID] = copySwap(*s)
	return nil
}

func (r *repo) GetSwap(_ context.Context, id uuid.UUID) (*models.SwapRequest, error) {
	s, ok := r.d.swaps[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	s = copySwap(s)
	return &s, nil
}

func (r *repo) ListSwaps(_ context.Context, q models.SwapQuery) ([]models.SwapRequest, error) {
	out := make([]models.SwapRequest, 0)
	for _, s := range r.d.swaps {
		if q.Matches(&s) {
			out = append(out, copySwap(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *repo) HasPendingSwap(_ context.Context, requesterID, requestedItemID uuid.UUID) (bool, error) {
	for _, s := range r.d.swaps {
		if s.RequesterID == requesterID && s.RequestedItemID == requestedItemID && s.Status == models.SwapPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *repo) UpdateSwapStatus(_ context.Context, id uuid.UUID, from, to models.SwapStatus) (*models.SwapRequest, error) {
	s, ok := r.d.swaps[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if s.Status != from {
		return nil, store.ErrStaleState
	}
	s.Status = to
	s.UpdatedAt = r.now()
	r.d.swaps[id] = s
	out := copySwap(s)
	return &out, nil
}

func (r *repo) CountSwaps(_ context.Context, status models.SwapStatus) (int, error) {
	n := 0
	for _, s := range r.d.swaps {
		if status == "" || s.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *repo) AddPointsEntry(_ context.Context, e *models.PointsEntry) error {
	if _, ok := r.d.profiles[e.UserID]; !ok {
		return store.ErrNotFound
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	r.d.points = append(r.d.points, *e)
	return nil
}

func (r *repo) ListPoints(_ context.Context, userID uuid.UUID) ([]models.PointsEntry, error) {
	out := make([]models.PointsEntry, 0)
	for i := len(r.d.points) - 1; i >= 0; i-- {
		if r.d.points[i].UserID == userID {
			out = append(out, r.d.points[i])
		}
	}
	return out, nil
}

func (r *repo) AddFavorite(_ context.Context, userID, itemID uuid.UUID) error {
	if _, ok := r.d.items[itemID]; !ok {
		return store.ErrNotFound
	}
	key := favoriteKey{userID, itemID}
	if _, ok := r.d.favorites[key]; ok {
		return store.ErrDuplicate
	}
	r.d.favorites[key] = r.now()
	return nil
}

func (r *repo) RemoveFavorite(_ context.Context, userID, itemID uuid.UUID) error {
	key := favoriteKey{userID, itemID}
	if _, ok := r.d.favorites[key]; !ok {
		return store.ErrNotFound
	}
	delete(r.d.favorites, key)
	return nil
}

func (r *repo) IsFavorite(_ context.Context, userID, itemID uuid.UUID) (bool, error) {
	_, ok := r.d.favorites[favoriteKey{userID, itemID}]
	return ok, nil
}

// ListFavorites возвращает только вещи, видимые в каталоге, новые сверху
func (r *repo) ListFavorites(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.Favorite, int, error) {
	favs := make([]models.Favorite, 0)
	for key, at := range r.d.favorites {
		if key.userID != userID {
			continue
		}
		it, ok := r.d.items[key.itemID]
		if !ok || !it.IsBrowsable() {
			continue
		}
		it = copyItem(it)
		favs = append(favs, models.Favorite{UserID: userID, ItemID: key.itemID, CreatedAt: at, Item: &it})
	}
	sort.Slice(favs, func(i, j int) bool {
		if !favs[i].CreatedAt.Equal(favs[j].CreatedAt) {
			return favs[i].CreatedAt.After(favs[j].CreatedAt)
		}
		return favs[i].ItemID.String() < favs[j].ItemID.String()
	})
	return models.Paginate(favs, limit, offset), len(favs), nil
}
