package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// ProductType decides how a product is stocked and prepared
type ProductType int

const (
	ProductTypeStock     ProductType = 0
	ProductTypeVariation ProductType = 1
	ProductTypeMenu      ProductType = 2
	ProductTypeAddon     ProductType = 3
	ProductTypeService   ProductType = 4
)

var productTypeNames = []string{"STOCK", "VARIATION", "MENU", "ADDON", "SERVICE"}

// ControlsStock reports whether selling the product consumes ledger quantity
func (t ProductType) ControlsStock() bool {
	return t == ProductTypeStock || t == ProductTypeVariation || t == ProductTypeAddon
}

// RequiresProduction reports whether the product is prepared in a production area
func (t ProductType) RequiresProduction() bool {
	return t == ProductTypeMenu
}

func (t ProductType) String() string {
	return nameOf(productTypeNames, int(t))
}

func (t ProductType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *ProductType) UnmarshalJSON(data []byte) error {
	i, err := unmarshalName(data, productTypeNames)
	if err != nil {
		return err
	}
	*t = ProductType(i)
	return nil
}

func (t ProductType) Value() (driver.Value, error) {
	return int64(t), nil
}

func (t *ProductType) Scan(value interface{}) error {
	i, err := scanInt(value)
	if err != nil {
		return err
	}
	*t = ProductType(i)
	return nil
}

// AreaType classifies the areas of a business
type AreaType int

const (
	AreaTypeSale       AreaType = 0
	AreaTypeStock      AreaType = 1
	AreaTypeProduction AreaType = 2
)

var areaTypeNames = []string{"SALE", "STOCK", "PRODUCTION"}

func (t AreaType) String() string {
	return nameOf(areaTypeNames, int(t))
}

func (t AreaType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *AreaType) UnmarshalJSON(data []byte) error {
	i, err := unmarshalName(data, areaTypeNames)
	if err != nil {
		return err
	}
	*t = AreaType(i)
	return nil
}

func (t AreaType) Value() (driver.Value, error) {
	return int64(t), nil
}

func (t *AreaType) Scan(value interface{}) error {
	i, err := scanInt(value)
	if err != nil {
		return err
	}
	*t = AreaType(i)
	return nil
}
