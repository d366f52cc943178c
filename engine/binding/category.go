// Package binding turns a compute program's declared binding layout into a Table that maps
// (category, register) pairs to the parameter and group offset where each resource lives.
package binding

import (
	"fmt"
	"strings"
)

// Category is the closed set of resource categories a program can consume.
type Category int

const (
	// CategoryConstantBuffer is a uniform/constant buffer.
	CategoryConstantBuffer Category = iota

	// CategoryReadableView is a read-only view over a buffer or texture.
	CategoryReadableView

	// CategoryWritableView is a read-write view over a buffer or texture.
	CategoryWritableView

	// CategorySampler is a texture sampler.
	CategorySampler

	categoryCount
)

// Categories lists every valid category in declaration order.
var Categories = [categoryCount]Category{
	CategoryConstantBuffer,
	CategoryReadableView,
	CategoryWritableView,
	CategorySampler,
}

var categoryNames = [categoryCount]string{
	CategoryConstantBuffer: "constant_buffer",
	CategoryReadableView:   "readable_view",
	CategoryWritableView:   "writable_view",
	CategorySampler:        "sampler",
}

// categoryAliases maps the short register-class names used by shader authors to categories.
var categoryAliases = map[string]Category{
	"cbv":      CategoryConstantBuffer,
	"uniform":  CategoryConstantBuffer,
	"srv":      CategoryReadableView,
	"readable": CategoryReadableView,
	"uav":      CategoryWritableView,
	"writable": CategoryWritableView,
}

// Valid reports whether c is one of the four known categories.
func (c Category) Valid() bool {
	return c >= 0 && c < categoryCount
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// ParseCategory resolves a category from its canonical name or one of its short aliases (cbv, srv, uav).
//
// Parameters:
//   - s: the category name, case-insensitive
//
// Returns:
//   - Category: the parsed category
//   - error: an error if the name is not recognized
func ParseCategory(s string) (Category, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range categoryNames {
		if n == name {
			return Category(i), nil
		}
	}
	if c, ok := categoryAliases[name]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("%w: unknown resource category %q", ErrInvalidLayout, s)
}

// MarshalText encodes the category as its canonical name.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: unknown resource category %d", ErrInvalidLayout, int(c))
	}
	return []byte(categoryNames[c]), nil
}

// UnmarshalText decodes a category from its canonical name or alias.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
