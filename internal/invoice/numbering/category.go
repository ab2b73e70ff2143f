package numbering

import (
	"strings"
)

// Category classifies an invoice as student tuition or a client purchase.
type Category string

const (
	CategoryStudent Category = "student"
	CategoryClient  Category = "client"
)

var categoryCodes = map[Category]string{
	CategoryStudent: "STU",
	CategoryClient:  "CLI",
}

// Categories lists every known category.
func Categories() []Category {
	return []Category{CategoryStudent, CategoryClient}
}

// Code returns the fixed code embedded in invoice numbers.
func (c Category) Code() (string, bool) {
	code, ok := categoryCodes[c]
	return code, ok
}

func (c Category) Valid() bool {
	_, ok := categoryCodes[c]
	return ok
}

// ParseCategory normalizes raw into a Category.
func ParseCategory(raw string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if !c.Valid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}
