package catalog

import "github.com/angelmondragon/quickdelivery-backend/pkg/types"

var defaultCategories = []Category{
	{ID: "fruits-veg", Name: "Fruits & Vegetables", Slug: "fruits-vegetables"},
	{ID: "dairy-eggs", Name: "Dairy & Eggs", Slug: "dairy-eggs"},
	{ID: "staples", Name: "Staples", Slug: "staples"},
	{ID: "snacks", Name: "Snacks", Slug: "snacks"},
}

var defaultProducts = []Product{
	{ID: "tomatoes-1kg", Name: "Fresh Tomatoes", Slug: "tomatoes-1kg", CategoryID: "fruits-veg", Unit: "1 kg", Price: types.Rupees(45), MRP: types.Rupees(55), StockQty: 50, InStock: true,
		Variants: []Variant{{Unit: "500 g", Price: types.Rupees(24), MRP: types.Rupees(28), SKU: "TOM-500G"}}},
	{ID: "onions-1kg", Name: "Red Onions", Slug: "onions-1kg", CategoryID: "fruits-veg", Unit: "1 kg", Price: types.Rupees(35), MRP: types.Rupees(42), StockQty: 75, InStock: true},
	{ID: "potatoes-1kg", Name: "Fresh Potatoes", Slug: "potatoes-1kg", CategoryID: "fruits-veg", Unit: "1 kg", Price: types.Rupees(28), MRP: types.Rupees(35), StockQty: 100, InStock: true},
	{ID: "green-chilies-250g", Name: "Green Chilies", Slug: "green-chilies-250g", CategoryID: "fruits-veg", Unit: "250 g", Price: types.Rupees(15), MRP: types.Rupees(20), StockQty: 30, InStock: true},
	{ID: "bananas-6pcs", Name: "Fresh Bananas", Slug: "bananas-6pcs", CategoryID: "fruits-veg", Unit: "6 pcs", Price: types.Rupees(30), MRP: types.Rupees(36), StockQty: 60, InStock: true,
		Variants: []Variant{{Unit: "12 pcs", Price: types.Rupees(56), MRP: types.Rupees(72), SKU: "BAN-12"}}},
	{ID: "apples-1kg", Name: "Royal Gala Apples", Slug: "apples-1kg", CategoryID: "fruits-veg", Unit: "1 kg", Price: types.Rupees(160), MRP: types.Rupees(180), StockQty: 45, InStock: true},
	{ID: "coriander-1bunch", Name: "Fresh Coriander", Slug: "coriander-1bunch", CategoryID: "fruits-veg", Unit: "1 bunch", Price: types.Rupees(8), MRP: types.Rupees(12), StockQty: 0, InStock: false},

	{ID: "amul-milk-1l", Name: "Amul Taaza Milk", Slug: "amul-milk-1l", CategoryID: "dairy-eggs", Brand: "Amul", Unit: "1 L", Price: types.Rupees(62), MRP: types.Rupees(65), StockQty: 80, InStock: true,
		Variants: []Variant{{Unit: "500 ml", Price: types.Rupees(32), MRP: types.Rupees(33), SKU: "AMUL-500ML"}}},
	{ID: "amul-butter-100g", Name: "Amul Butter", Slug: "amul-butter-100g", CategoryID: "dairy-eggs", Brand: "Amul", Unit: "100 g", Price: types.Rupees(58), MRP: types.Rupees(62), StockQty: 40, InStock: true},
	{ID: "eggs-12pcs", Name: "Farm Fresh Eggs", Slug: "eggs-12pcs", CategoryID: "dairy-eggs", Unit: "12 pcs", Price: types.Rupees(84), MRP: types.Rupees(90), StockQty: 60, InStock: true},
	{ID: "paneer-200g", Name: "Fresh Paneer", Slug: "paneer-200g", CategoryID: "dairy-eggs", Unit: "200 g", Price: types.Rupees(95), MRP: types.Rupees(110), StockQty: 25, InStock: true},

	{ID: "aashirvaad-atta-5kg", Name: "Aashirvaad Atta", Slug: "aashirvaad-atta-5kg", CategoryID: "staples", Brand: "Aashirvaad", Unit: "5 kg", Price: types.Rupees(285), MRP: types.Rupees(300), StockQty: 50, InStock: true},
	{ID: "sona-masoori-rice-10kg", Name: "Sona Masoori Rice", Slug: "sona-masoori-rice-10kg", CategoryID: "staples", Unit: "10 kg", Price: types.Rupees(680), MRP: types.Rupees(720), StockQty: 30, InStock: true},
	{ID: "toor-dal-1kg", Name: "Toor Dal", Slug: "toor-dal-1kg", CategoryID: "staples", Unit: "1 kg", Price: types.Rupees(140), MRP: types.Rupees(155), StockQty: 45, InStock: true},
	{ID: "fortune-oil-1l", Name: "Fortune Sunflower Oil", Slug: "fortune-oil-1l", CategoryID: "staples", Brand: "Fortune", Unit: "1 L", Price: types.Rupees(155), MRP: types.Rupees(165), StockQty: 55, InStock: true},
	{ID: "tata-salt-1kg", Name: "Tata Salt", Slug: "tata-salt-1kg", CategoryID: "staples", Brand: "Tata", Unit: "1 kg", Price: types.Rupees(22), MRP: types.Rupees(25), StockQty: 80, InStock: true},

	{ID: "lays-chips-52g", Name: "Lays Classic Salted", Slug: "lays-chips-52g", CategoryID: "snacks", Brand: "Lays", Unit: "52 g", Price: types.Rupees(20), MRP: types.Rupees(25), StockQty: 100, InStock: true},
	{ID: "maggi-noodles-4pack", Name: "Maggi Masala Noodles", Slug: "maggi-noodles-4pack", CategoryID: "snacks", Brand: "Maggi", Unit: "4 pack (280g)", Price: types.Rupees(60), MRP: types.Rupees(68), StockQty: 90, InStock: true},
	{ID: "parle-g-250g", Name: "Parle-G Gold", Slug: "parle-g-250g", CategoryID: "snacks", Brand: "Parle", Unit: "250 g", Price: types.Rupees(35), MRP: types.Rupees(40), StockQty: 95, InStock: true},
	{ID: "haldirams-bhujia-200g", Name: "Haldiram's Bhujia", Slug: "haldirams-bhujia-200g", CategoryID: "snacks", Brand: "Haldiram's", Unit: "200 g", Price: types.Rupees(65), MRP: types.Rupees(72), StockQty: 50, InStock: true},
}
