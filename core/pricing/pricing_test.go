package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyString(t *testing.T) {
	tests := []struct {
		in   Money
		want string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{1200, "12.00"},
		{123456, "1234.56"},
		{-250, "-2.50"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.String())
		})
	}
}

func TestOptionsHaveDistinctPrices(t *testing.T) {
	seen := map[Money]string{}
	for _, pt := range Options() {
		prev, dup := seen[pt.PricePerPage]
		assert.False(t, dup, "%s and %s share a price", pt.ID, prev)
		seen[pt.PricePerPage] = pt.ID
	}
}

func TestOptionLookup(t *testing.T) {
	pt, ok := Option(" BW ")
	require.True(t, ok)
	assert.Equal(t, ColorModeBW, pt.ColorMode)

	_, ok = Option("laser")
	assert.False(t, ok)
}

func TestTotalCostMatchesPagesTimesPrice(t *testing.T) {
	bw, _ := Option("bw")
	pages := []int{3, 2, 1}

	assert.Equal(t, 6, TotalPages(pages))
	assert.Equal(t, Money(1200), TotalCost(pages, bw))
	assert.Equal(t, "12.00", TotalCost(pages, bw).String())

	for _, pt := range Options() {
		assert.Equal(t, Money(TotalPages(pages))*pt.PricePerPage, TotalCost(pages, pt))
	}
}

func TestTotalCostNonDecreasing(t *testing.T) {
	color, _ := Option("color")
	var pages []int
	prev := TotalCost(pages, color)
	for i := 1; i <= 20; i++ {
		pages = append(pages, i%4+1)
		cur := TotalCost(pages, color)
		assert.GreaterOrEqual(t, int64(cur), int64(prev))
		prev = cur
	}
}

func TestParsePaperSize(t *testing.T) {
	ps, ok := ParsePaperSize("letter")
	require.True(t, ok)
	assert.Equal(t, PaperLetter, ps)

	_, ok = ParsePaperSize("B5")
	assert.False(t, ok)
}
