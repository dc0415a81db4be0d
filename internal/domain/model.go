package domain

import (
	"maps"
	"time"

	"github.com/shopspring/decimal"
)

// Supplier is where couriers collect ingredients from. Distance is in the
// same units as delivery zones.
type Supplier struct {
	Name     string `json:"name" yaml:"name"`
	Distance int    `json:"distance" yaml:"distance"`
}

func (s Supplier) Key() string { return s.Name }

type Ingredient struct {
	Name     string `json:"name" yaml:"name"`
	Unit     string `json:"unit" yaml:"unit"`
	Supplier string `json:"supplier" yaml:"supplier"`
}

func (i Ingredient) Key() string { return i.Name }

// Dish is a menu item. Recipe maps ingredient name to the quantity one
// portion consumes.
type Dish struct {
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Price       decimal.Decimal `json:"price" yaml:"-"`
	Recipe      map[string]int  `json:"recipe" yaml:"recipe"`
}

func (d Dish) Key() string { return d.Name }

// Clone copies the recipe so callers never share the ledger's map.
func (d Dish) Clone() Dish {
	d.Recipe = maps.Clone(d.Recipe)
	return d
}

type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Email        string    `json:"email,omitempty"`
	Postcode     string    `json:"postcode"`
	CreatedAt    time.Time `json:"created_at"`
}

type Order struct {
	ID        int             `json:"id"`
	Status    OrderStatus     `json:"status"`
	Username  string          `json:"username"`
	Postcode  string          `json:"postcode"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Items     map[string]int  `json:"items"`
	Total     decimal.Decimal `json:"total"`
}

func (o Order) Clone() Order {
	o.Items = maps.Clone(o.Items)
	return o
}
