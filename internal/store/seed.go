package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/rewear-api/internal/models"
)

type demoItem struct {
	key       string
	owner     string
	title     string
	desc      string
	category  models.Category
	size      models.Size
	condition models.Condition
	points    int
	image     string
	tags      []string
	created   string
}

var demoUsers = []models.Profile{
	{Username: "fashionista_sarah", FullName: "Sarah Johnson", Bio: "Sustainable fashion enthusiast | Vintage lover", Points: 250, Location: "New York, NY",
		AvatarURL: "https://images.unsplash.com/photo-1494790108755-2616b612b786?w=150&h=150&fit=crop&crop=face"},
	{Username: "eco_style_mike", FullName: "Mike Chen", Bio: "Minimalist wardrobe | Quality over quantity", Points: 180, Location: "San Francisco, CA",
		AvatarURL: "https://images.unsplash.com/photo-1507003211169-0a1dd7228f2d?w=150&h=150&fit=crop&crop=face"},
	{Username: "vintage_vibes_emma", FullName: "Emma Rodriguez", Bio: "Vintage collector | Thrift store hunter", Points: 320, Location: "Austin, TX",
		AvatarURL: "https://images.unsplash.com/photo-1438761681033-6461ffad8d80?w=150&h=150&fit=crop&crop=face"},
	{Username: "sustainable_sam", FullName: "Sam Wilson", Bio: "Environmental advocate | Slow fashion", Points: 195, Location: "Portland, OR",
		AvatarURL: "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?w=150&h=150&fit=crop&crop=face"},
	{Username: "style_savvy_lisa", FullName: "Lisa Thompson", Bio: "Fashion blogger | Style consultant", Points: 410, Location: "Los Angeles, CA",
		AvatarURL: "https://images.unsplash.com/photo-1544005313-94ddf0286df2?w=150&h=150&fit=crop&crop=face"},
}

var demoItems = []demoItem{
	{"item-1", "fashionista_sarah", "Vintage Denim Jacket", "Classic 90s denim jacket in excellent condition. Perfect for layering.",
		models.CategoryOuterwear, models.SizeM, models.ConditionGood, 75, "photo-1576995853123-5a10305d93c0", []string{"vintage", "denim"}, "2024-01-20T10:00:00Z"},
	{"item-2", "eco_style_mike", "Minimalist White Sneakers", "Clean white sneakers, barely worn. Goes with everything.",
		models.CategoryShoes, models.SizeM, models.ConditionLikeNew, 60, "photo-1549298916-b41d501d3772", []string{"minimalist"}, "2024-01-19T14:30:00Z"},
	{"item-3", "vintage_vibes_emma", "Retro Floral Dress", "Beautiful vintage floral dress from the 70s. Perfect for summer events.",
		models.CategoryDresses, models.SizeS, models.ConditionGood, 85, "photo-1515372039744-b8f02a3ae446", []string{"vintage", "summer"}, "2024-01-18T09:15:00Z"},
	{"item-4", "sustainable_sam", "Organic Cotton T-Shirt", "Soft organic cotton t-shirt in navy blue.",
		models.CategoryTops, models.SizeL, models.ConditionNew, 45, "photo-1521572163474-6864f9cf17ab", []string{"organic"}, "2024-01-17T16:45:00Z"},
	{"item-5", "style_savvy_lisa", "Designer Handbag", "High-quality leather handbag in excellent condition.",
		models.CategoryAccessories, "", models.ConditionLikeNew, 120, "photo-1584917865442-de89df76afd3", []string{"leather", "designer"}, "2024-01-16T11:20:00Z"},
	{"item-6", "fashionista_sarah", "High-Waisted Jeans", "Flattering high-waisted jeans in dark wash.",
		models.CategoryBottoms, models.SizeM, models.ConditionGood, 65, "photo-1542272604-787c3835535d", []string{"denim"}, "2024-01-15T10:00:00Z"},
	{"item-7", "eco_style_mike", "Wool Sweater", "Warm wool sweater for cold days.",
		models.CategoryTops, models.SizeL, models.ConditionGood, 55, "photo-1434389677669-e08b4cac3105", []string{"winter"}, "2024-01-14T14:30:00Z"},
	{"item-8", "vintage_vibes_emma", "Vintage Sunglasses", "Classic aviator sunglasses in excellent condition.",
		models.CategoryAccessories, "", models.ConditionLikeNew, 40, "photo-1511499767150-a48a237f0083", []string{"vintage"}, "2024-01-13T09:15:00Z"},
	{"item-9", "sustainable_sam", "Leather Boots", "Sturdy leather boots, resoled last year.",
		models.CategoryShoes, models.SizeM, models.ConditionGood, 90, "photo-1549298916-b41d501d3772", []string{"leather", "winter"}, "2024-01-12T16:45:00Z"},
	{"item-10", "style_savvy_lisa", "Silk Blouse", "Elegant silk blouse for work or evenings.",
		models.CategoryTops, models.SizeS, models.ConditionLikeNew, 70, "photo-1521572163474-6864f9cf17ab", []string{"silk"}, "2024-01-11T11:20:00Z"},
}

// DemoUserID возвращает ID демо-пользователя по имени
func DemoUserID(username string) uuid.UUID {
	return models.FixtureID("user:" + username)
}

// SeedDemo заполняет хранилище демо-данными. Повторный вызов ничего не меняет.
// Существующие записи проверяются заранее: в PostgreSQL ошибка вставки
// прерывает всю транзакцию.
func SeedDemo(ctx context.Context, s Store) error {
	return s.InTx(ctx, func(r Repository) error {
		for _, u := range demoUsers {
			p := u
			p.ID = DemoUserID(u.Username)
			_, err := r.GetProfile(ctx, p.ID)
			exists, err := seeded(err)
			if err != nil {
				return fmt.Errorf("демо-профиль %s: %w", p.Username, err)
			}
			if exists {
				continue
			}

			balance := p.Points
			p.Points = 0
			if err := r.CreateProfile(ctx, &p); err != nil {
				return fmt.Errorf("демо-профиль %s: %w", p.Username, err)
			}
			if _, err := RecordPoints(ctx, r, &models.PointsEntry{
				UserID:          p.ID,
				Amount:          balance,
				TransactionType: models.TransactionEarned,
				Description:     "Демо-баланс",
			}); err != nil {
				return fmt.Errorf("демо-баланс %s: %w", p.Username, err)
			}
		}

		for _, d := range demoItems {
			created, _ := time.Parse(time.RFC3339, d.created)
			item := &models.Item{
				ID:          models.FixtureID(d.key),
				UserID:      DemoUserID(d.owner),
				Title:       d.title,
				Description: d.desc,
				Category:    d.category,
				Size:        d.size,
				Condition:   d.condition,
				PointValue:  d.points,
				ImageURLs:   []string{"https://images.unsplash.com/" + d.image + "?w=400&h=500&fit=crop"},
				Status:      models.ItemApproved,
				IsAvailable: true,
				Tags:        d.tags,
				CreatedAt:   created,
			}
			_, err := r.GetItem(ctx, item.ID)
			exists, err := seeded(err)
			if err != nil {
				return fmt.Errorf("демо-вещь %s: %w", d.title, err)
			}
			if exists {
				continue
			}
			if err := r.CreateItem(ctx, item); err != nil {
				return fmt.Errorf("демо-вещь %s: %w", d.title, err)
			}
		}
		return nil
	})
}

// seeded переводит результат поиска записи в признак её наличия
func seeded(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
