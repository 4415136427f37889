package models

import (
	"fmt"
	"strings"
)

// Category is the competition class a rider is registered and ranked in.
type Category string

const (
	CategoryExpert         Category = "expert"
	CategoryProfi          Category = "profi"
	CategoryJunior         Category = "junior"
	CategoryStandard       Category = "standard"
	CategoryStandardJunior Category = "standard_junior"
	CategorySeniors40      Category = "seniors_40"
	CategorySeniors50      Category = "seniors_50"
	CategoryWomen          Category = "women"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryExpert,
	CategoryProfi,
	CategoryJunior,
	CategoryStandard,
	CategoryStandardJunior,
	CategorySeniors40,
	CategorySeniors50,
	CategoryWomen,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string { return string(c) }

// ParseCategory normalizes s and returns the matching category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}
