package gatewaytest

import (
	"time"

	"github.com/utafrali/goodssearch/internal/domain"
)

// Ids of the Phone X fixture.
const (
	PhoneXID      int64 = 1
	ElectronicsID int64 = 1
	PhonesID      int64 = 2
	SmartphonesID int64 = 3
	AcmeID        int64 = 7
	RAMParamID    int64 = 10
	ColorParamID  int64 = 11
)

// RAMParam is a numeric generic param bucketed in GB.
var RAMParam = domain.SpecParam{
	ID:         RAMParamID,
	CategoryID: SmartphonesID,
	Name:       "RAM",
	Generic:    true,
	Numeric:    true,
	Searching:  true,
	Unit:       "GB",
	Segments:   "0-4,4-8,8",
}

// ColorParam is a per-SKU param.
var ColorParam = domain.SpecParam{
	ID:         ColorParamID,
	CategoryID: SmartphonesID,
	Name:       "Color",
	Searching:  true,
}

// SeedPhoneX stores the Phone X product: categories Electronics > Phones >
// Smartphones, brand Acme, one SKU at 59900 and 6 GB of RAM.
func SeedPhoneX(c *Catalog) {
	c.AddCategory(ElectronicsID, "Electronics")
	c.AddCategory(PhonesID, "Phones")
	c.AddCategory(SmartphonesID, "Smartphones")
	c.AddBrand(domain.Brand{ID: AcmeID, Name: "Acme"})
	c.SetSpecParams(SmartphonesID, RAMParam, ColorParam)

	c.AddSpu(
		domain.Spu{
			ID:         PhoneXID,
			Title:      "Phone X",
			Cid1:       ElectronicsID,
			Cid2:       PhonesID,
			Cid3:       SmartphonesID,
			BrandID:    AcmeID,
			Saleable:   true,
			Valid:      true,
			CreateTime: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		domain.SpuDetail{
			GenericSpec: `{"10":"6"}`,
			SpecialSpec: `{"11":["black","white"]}`,
		},
		domain.Sku{ID: 100, SpuID: PhoneXID, Title: "Phone X", Price: 59900, Images: "x1.jpg,x2.jpg", Stock: 5, Enabled: true},
	)
}
