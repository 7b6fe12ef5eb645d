package service

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/and161185/bucketlist/internal/model"
)

// Paging defaults.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Paging holds the page-size policy for list endpoints.
type Paging struct {
	DefaultLimit int
	MaxLimit     int
}

// DefaultPaging returns the stock 20/100 policy.
func DefaultPaging() Paging { return Paging{DefaultLimit: DefaultLimit, MaxLimit: MaxLimit} }

// Parse turns raw query values into a page. Values that are not positive integers
// fall back to page 1 and the default limit; limits above the cap are clamped.
func (p Paging) Parse(rawPage, rawLimit string) model.Page {
	return p.Normalize(model.Page{Number: atoiOrZero(rawPage), Limit: atoiOrZero(rawLimit)})
}

// Normalize applies defaults and the cap to an already parsed page.
func (p Paging) Normalize(pg model.Page) model.Page {
	def, ceiling := p.DefaultLimit, p.MaxLimit
	if ceiling <= 0 {
		ceiling = MaxLimit
	}
	if def <= 0 || def > ceiling {
		def = min(DefaultLimit, ceiling)
	}
	if pg.Number < 1 {
		pg.Number = 1
	}
	switch {
	case pg.Limit < 1:
		pg.Limit = def
	case pg.Limit > ceiling:
		pg.Limit = ceiling
	}
	// Offset() must fit in an int
	if last := math.MaxInt / pg.Limit; pg.Number > last {
		pg.Number = last
	}
	return pg
}

// atoiOrZero parses s; positive values beyond int range saturate to math.MaxInt.
func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		if errors.Is(err, strconv.ErrRange) && n > 0 {
			return math.MaxInt
		}
		return 0
	}
	return n
}
