package domain

import "github.com/shopspring/decimal"

type PlaceOrderRequest struct {
	Username string         `json:"username" validate:"required,alphanum,max=64"`
	Items    map[string]int `json:"items" validate:"required,min=1,dive,keys,required,endkeys,gt=0"`
	// Total is what the client priced the order at. When set it must match
	// the menu price; zero lets the service price the order.
	Total decimal.Decimal `json:"total"`
}

type RegisterUserRequest struct {
	Username string `json:"username" validate:"required,alphanum,max=64"`
	Password string `json:"password" validate:"required,min=6"`
	Email    string `json:"email" validate:"omitempty,email"`
	Postcode string `json:"postcode" validate:"required"`
}

type SupplierRequest struct {
	Name     string `json:"name" yaml:"name" validate:"required"`
	Distance int    `json:"distance" yaml:"distance" validate:"gte=0"`
}

type IngredientRequest struct {
	Name         string `json:"name" yaml:"name" validate:"required"`
	Unit         string `json:"unit" yaml:"unit" validate:"required"`
	Supplier     string `json:"supplier" yaml:"supplier" validate:"required"`
	RestockLevel int    `json:"restock_level" yaml:"restock_level" validate:"gte=0"`
	Stock        int    `json:"stock" yaml:"stock" validate:"gte=0"`
}

type DishRequest struct {
	Name         string         `json:"name" yaml:"name" validate:"required"`
	Description  string         `json:"description" yaml:"description"`
	Price        string         `json:"price" yaml:"price" validate:"required,numeric"`
	Recipe       map[string]int `json:"recipe" yaml:"recipe" validate:"required,min=1,dive,keys,required,endkeys,gt=0"`
	RestockLevel int            `json:"restock_level" yaml:"restock_level" validate:"gte=0"`
	Stock        int            `json:"stock" yaml:"stock" validate:"gte=0"`
}

// OrderView is the display row for an order list.
type OrderView struct {
	ID       int             `json:"id"`
	Username string          `json:"username"`
	Status   OrderStatus     `json:"status"`
	Items    map[string]int  `json:"items"`
	Total    decimal.Decimal `json:"total"`
}
