package parser

import "strings"

// ItemClass is an entry of the fixed item class taxonomy.
type ItemClass struct {
	ID       int
	Name     string
	Category string
}

// Item class categories.
const (
	CategoryWeapons     = "Weapons"
	CategoryArmour      = "Armour"
	CategoryAccessories = "Accessories"
	CategoryJewels      = "Jewels"
)

// ItemClasses is the item class taxonomy. IDs are stable and persisted.
var ItemClasses = []ItemClass{
	{1, "Wands", CategoryWeapons},
	{2, "Staves", CategoryWeapons},
	{3, "Swords", CategoryWeapons},
	{4, "Axes", CategoryWeapons},
	{5, "Maces", CategoryWeapons},
	{6, "Bows", CategoryWeapons},
	{7, "Crossbows", CategoryWeapons},
	{8, "Daggers", CategoryWeapons},
	{9, "Claws", CategoryWeapons},
	{10, "Spears", CategoryWeapons},
	{11, "Helmets", CategoryArmour},
	{12, "Body Armours", CategoryArmour},
	{13, "Gloves", CategoryArmour},
	{14, "Boots", CategoryArmour},
	{15, "Belts", CategoryArmour},
	{16, "Shields", CategoryArmour},
	{17, "Rings", CategoryAccessories},
	{18, "Amulets", CategoryAccessories},
	{19, "Jewels", CategoryJewels},
}

// LookupItemClass finds a taxonomy entry by exact case-insensitive name.
func LookupItemClass(name string) (ItemClass, bool) {
	name = strings.TrimSpace(name)
	for _, c := range ItemClasses {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return ItemClass{}, false
}
