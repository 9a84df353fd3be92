// Package pricing is the cost calculator: pure functions over page counts and
// the enumerated print-type price options.
package pricing

import (
	"fmt"
	"strings"
)

// Money is an amount in minor units (cents).
type Money int64

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

type ColorMode string

const (
	ColorModeBW    ColorMode = "bw"
	ColorModeColor ColorMode = "color"
)

type PrintType struct {
	ID           string    `json:"id" yaml:"id"`
	Label        string    `json:"label" yaml:"label"`
	PricePerPage Money     `json:"price_per_page" yaml:"price_per_page"`
	ColorMode    ColorMode `json:"color_mode" yaml:"color_mode"`
}

var printTypes = []PrintType{
	{ID: "bw", Label: "Black & white", PricePerPage: 200, ColorMode: ColorModeBW},
	{ID: "color", Label: "Colour", PricePerPage: 500, ColorMode: ColorModeColor},
	{ID: "photo", Label: "Photo quality", PricePerPage: 1200, ColorMode: ColorModeColor},
}

const DefaultPrintType = "bw"

// Options returns the price options in display order.
func Options() []PrintType {
	out := make([]PrintType, len(printTypes))
	copy(out, printTypes)
	return out
}

func Option(id string) (PrintType, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, pt := range printTypes {
		if pt.ID == id {
			return pt, true
		}
	}
	return PrintType{}, false
}

func CostForFile(pages int, pt PrintType) Money {
	if pages <= 0 {
		return 0
	}
	return Money(pages) * pt.PricePerPage
}

func TotalPages(pages []int) int {
	total := 0
	for _, p := range pages {
		if p > 0 {
			total += p
		}
	}
	return total
}

func TotalCost(pages []int, pt PrintType) Money {
	var total Money
	for _, p := range pages {
		total += CostForFile(p, pt)
	}
	return total
}

type PaperSize string

const (
	PaperA4     PaperSize = "A4"
	PaperA3     PaperSize = "A3"
	PaperLetter PaperSize = "Letter"
	PaperLegal  PaperSize = "Legal"
)

var paperSizes = []PaperSize{PaperA4, PaperA3, PaperLetter, PaperLegal}

// ParsePaperSize matches s case-insensitively against the supported sizes.
func ParsePaperSize(s string) (PaperSize, bool) {
	s = strings.TrimSpace(s)
	for _, ps := range paperSizes {
		if strings.EqualFold(string(ps), s) {
			return ps, true
		}
	}
	return "", false
}
