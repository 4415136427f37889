package standings

import "github.com/shopspring/decimal"

// PointSchema maps a finishing position to the points it earns. Positions
// missing from the schema earn nothing.
type PointSchema map[int]int

// DefaultPointSchema is the series' standard stage scoring.
var DefaultPointSchema = PointSchema{
	1: 25, 2: 20, 3: 16, 4: 13, 5: 11,
	6: 10, 7: 9, 8: 8, 9: 7, 10: 6,
	11: 5, 12: 4, 13: 3, 14: 2, 15: 1,
}

// Points returns the points for position. A nil schema means DefaultPointSchema.
func (s PointSchema) Points(position int) decimal.Decimal {
	if s == nil {
		s = DefaultPointSchema
	}
	return decimal.NewFromInt(int64(s[position]))
}
