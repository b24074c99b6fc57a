package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Car mirrors one row of the cars table. Price and discount are fixed-point
// columns and marshal as strings on the wire.
type Car struct {
	ID               int64           `gorm:"column:id" json:"id"`
	Brand            string          `gorm:"column:brand" json:"brand"`
	Model            string          `gorm:"column:model" json:"model"`
	Year             int             `gorm:"column:year" json:"year"`
	BodyType         string          `gorm:"column:body_type" json:"body_type"`
	EngineType       string          `gorm:"column:engine_type" json:"engine_type"`
	EngineSizeLiters float64         `gorm:"column:engine_size_liters" json:"engine_size_liters"`
	Horsepower       int             `gorm:"column:horsepower" json:"horsepower"`
	Transmission     string          `gorm:"column:transmission" json:"transmission"`
	FuelType         string          `gorm:"column:fuel_type" json:"fuel_type"`
	MileageKM        int             `gorm:"column:mileage_km" json:"mileage_km"`
	TopSpeedKMH      int             `gorm:"column:top_speed_kmh" json:"top_speed_kmh"`
	Color            string          `gorm:"column:color" json:"color"`
	Features         string          `gorm:"column:features" json:"features"`
	PriceUSD         decimal.Decimal `gorm:"column:price_usd" json:"price_usd"`
	DiscountPercent  decimal.Decimal `gorm:"column:discount_percent" json:"discount_percent"`
	NumInStock       int             `gorm:"column:num_in_stock" json:"num_in_stock"`
	Description      string          `gorm:"column:description" json:"description"`
}

// FeatureText renders the descriptive attributes as an indented JSON blob for
// the describe prompt. The id is deliberately left out: it travels beside the
// text through the pipeline and must never be embedded as content.
func (c Car) FeatureText() (string, error) {
	features := struct {
		Brand            string          `json:"brand"`
		Model            string          `json:"model"`
		Year             int             `json:"year"`
		BodyType         string          `json:"body_type"`
		EngineType       string          `json:"engine_type"`
		EngineSizeLiters float64         `json:"engine_size_liters"`
		Horsepower       int             `json:"horsepower"`
		Transmission     string          `json:"transmission"`
		FuelType         string          `json:"fuel_type"`
		MileageKM        int             `json:"mileage_km"`
		TopSpeedKMH      int             `json:"top_speed_kmh"`
		Color            string          `json:"color"`
		Features         string          `json:"features"`
		PriceUSD         decimal.Decimal `json:"price_usd"`
		DiscountPercent  decimal.Decimal `json:"discount_percent"`
		NumInStock       int             `json:"num_in_stock"`
		Description      string          `json:"description"`
	}{
		Brand:            c.Brand,
		Model:            c.Model,
		Year:             c.Year,
		BodyType:         c.BodyType,
		EngineType:       c.EngineType,
		EngineSizeLiters: c.EngineSizeLiters,
		Horsepower:       c.Horsepower,
		Transmission:     c.Transmission,
		FuelType:         c.FuelType,
		MileageKM:        c.MileageKM,
		TopSpeedKMH:      c.TopSpeedKMH,
		Color:            c.Color,
		Features:         c.Features,
		PriceUSD:         c.PriceUSD,
		DiscountPercent:  c.DiscountPercent,
		NumInStock:       c.NumInStock,
		Description:      c.Description,
	}

	blob, err := json.MarshalIndent(features, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render car %d features: %w", c.ID, err)
	}
	return string(blob), nil
}
