package models

// Category is a meal-weight tag used to filter recommendations.
type Category string

const (
	CategoryLight Category = "Light Meal"
	CategoryHeavy Category = "Heavy Meal"
)

// Categories lists the recognized categories in display order.
var Categories = []Category{CategoryLight, CategoryHeavy}

// Valid reports whether c is one of the recognized categories.
func (c Category) Valid() bool {
	return c == CategoryLight || c == CategoryHeavy
}

type Restaurant struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
}

var seedRestaurants = [...]Restaurant{
	{Name: "留湘", Category: CategoryHeavy},
	{Name: "老弄堂", Category: CategoryHeavy},
	{Name: "山城私房菜", Category: CategoryHeavy},
	{Name: "汉家宴", Category: CategoryHeavy},
	{Name: "四季面馆", Category: CategoryLight},
	{Name: "小香骨", Category: CategoryLight},
	{Name: "鱼你在一起", Category: CategoryLight},
	{Name: "金城拉面", Category: CategoryLight},
}

// SeedRestaurants returns a fresh copy of the built-in list used when nothing valid is stored.
func SeedRestaurants() []Restaurant {
	out := make([]Restaurant, len(seedRestaurants))
	copy(out, seedRestaurants[:])
	return out
}
