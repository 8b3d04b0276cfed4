package catalog

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// OtherCategoryID receives the products of a removed category.
const OtherCategoryID = "other"

// Score is a stored rating value. Values written by older clients may be
// strings or null; those decode as NaN and count as zero.
type Score float64

func (s *Score) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Score(math.NaN())
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*s = Score(math.NaN())
		return nil
	}
	*s = Score(f)
	return nil
}

func (s Score) MarshalJSON() ([]byte, error) {
	if !s.numeric() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(s))
}

func (s Score) numeric() bool {
	f := float64(s)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

type Rating struct {
	UserID string `json:"userId"`
	Rating Score  `json:"rating"`
}

type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Price       float64  `json:"price"`
	Image       string   `json:"image"`
	Description string   `json:"description"`
	Brand       string   `json:"brand"`
	InStock     bool     `json:"inStock"`
	Ratings     []Rating `json:"ratings"`
}

func (p Product) Key() string { return p.ID }

// ProductPatch carries the fields of a shallow merge. Nil fields are kept.
type ProductPatch struct {
	Name        *string   `json:"name,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Price       *float64  `json:"price,omitempty"`
	Image       *string   `json:"image,omitempty"`
	Description *string   `json:"description,omitempty"`
	Brand       *string   `json:"brand,omitempty"`
	InStock     *bool     `json:"inStock,omitempty"`
	Ratings     *[]Rating `json:"ratings,omitempty"`
}

func (p ProductPatch) Apply(dst *Product) {
	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.Category != nil {
		dst.Category = *p.Category
	}
	if p.Price != nil {
		dst.Price = *p.Price
	}
	if p.Image != nil {
		dst.Image = *p.Image
	}
	if p.Description != nil {
		dst.Description = *p.Description
	}
	if p.Brand != nil {
		dst.Brand = *p.Brand
	}
	if p.InStock != nil {
		dst.InStock = *p.InStock
	}
	if p.Ratings != nil {
		dst.Ratings = *p.Ratings
	}
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

func (c Category) Key() string { return c.ID }

type CategoryPatch struct {
	Name *string `json:"name,omitempty"`
	Icon *string `json:"icon,omitempty"`
}

func (p CategoryPatch) Apply(dst *Category) {
	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.Icon != nil {
		dst.Icon = *p.Icon
	}
}

var whitespace = regexp.MustCompile(`\s+`)

// Slug derives a category id from its display name: "Gaming Mice" -> "gaming-mice".
func Slug(name string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Summarize averages ratings to one decimal place. Non-numeric values
// contribute zero but still count toward the divisor.
func Summarize(ratings []Rating) RatingSummary {
	if len(ratings) == 0 {
		return RatingSummary{}
	}

	sum := decimal.Zero
	for _, r := range ratings {
		if r.Rating.numeric() {
			sum = sum.Add(decimal.NewFromFloat(float64(r.Rating)))
		}
	}

	avg := sum.Div(decimal.NewFromInt(int64(len(ratings)))).Round(1)
	return RatingSummary{Average: avg.InexactFloat64(), Count: len(ratings)}
}
