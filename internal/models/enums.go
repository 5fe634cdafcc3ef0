package models

// Category категория вещи
type Category string

const (
	CategoryTops        Category = "tops"
	CategoryBottoms     Category = "bottoms"
	CategoryDresses     Category = "dresses"
	CategoryOuterwear   Category = "outerwear"
	CategoryShoes       Category = "shoes"
	CategoryAccessories Category = "accessories"
)

// Categories список допустимых категорий
var Categories = []Category{
	CategoryTops, CategoryBottoms, CategoryDresses,
	CategoryOuterwear, CategoryShoes, CategoryAccessories,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Size размер одежды
type Size string

const (
	SizeXS   Size = "xs"
	SizeS    Size = "s"
	SizeM    Size = "m"
	SizeL    Size = "l"
	SizeXL   Size = "xl"
	SizeXXL  Size = "xxl"
	SizeXXXL Size = "xxxl"
)

var Sizes = []Size{SizeXS, SizeS, SizeM, SizeL, SizeXL, SizeXXL, SizeXXXL}

func (s Size) Valid() bool {
	for _, v := range Sizes {
		if s == v {
			return true
		}
	}
	return false
}

// Condition состояние вещи
type Condition string

const (
	ConditionNew     Condition = "new"
	ConditionLikeNew Condition = "like_new"
	ConditionGood    Condition = "good"
	ConditionFair    Condition = "fair"
	ConditionWorn    Condition = "worn"
)

var Conditions = []Condition{ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionWorn}

func (c Condition) Valid() bool {
	for _, v := range Conditions {
		if c == v {
			return true
		}
	}
	return false
}

// TransactionType тип записи в журнале баллов
type TransactionType string

const (
	TransactionEarned   TransactionType = "earned"
	TransactionSpent    TransactionType = "spent"
	TransactionRefunded TransactionType = "refunded"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionEarned, TransactionSpent, TransactionRefunded:
		return true
	}
	return false
}

// Настройки баллов
const (
	DefaultItemValue    = 50
	StartingPoints      = 100
	SwapCompletionBonus = 10
	MaxItemValue        = 1000
	PointsPerLevel      = 100
)

// Ограничения на объявление
const (
	MaxImagesPerItem = 5
	MaxImageBytes    = 5 << 20
	MaxTagsPerItem   = 10
)
