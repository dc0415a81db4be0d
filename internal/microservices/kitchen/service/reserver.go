package service

import (
	"sync"

	"sushi-system/internal/inventory"
)

// Reservation is one portion a preparer has claimed. Its recipe ingredients
// have already been taken out of stock.
type Reservation struct {
	Dish   string
	Recipe map[string]int
}

type ReserverInterface interface {
	Reserve(dish string) (Reservation, bool)
	Release(res Reservation)
}

// Reserver is the decision lock shared by every preparer. Checking a dish's
// deficit and claiming its ingredients happen under it, so two preparers
// never fill the same deficit unit. It is never held while cooking.
type Reserver struct {
	ingredients *inventory.IngredientLedger
	dishes      *inventory.DishLedger

	mu sync.Mutex
}

func NewReserver(ingredients *inventory.IngredientLedger, dishes *inventory.DishLedger) *Reserver {
	return &Reserver{ingredients: ingredients, dishes: dishes}
}

// Reserve claims one portion of dish when it has an open deficit and every
// recipe ingredient is in stock.
func (r *Reserver) Reserve(dish string) (Reservation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	recipe, ok := r.dishes.Recipe(dish)
	if !ok || !r.ingredients.Sufficient(recipe) {
		return Reservation{}, false
	}
	if _, claimed := r.dishes.ReservePreparation(dish); !claimed {
		return Reservation{}, false
	}
	if !r.ingredients.TryConsume(recipe) {
		r.dishes.CancelPreparation(dish)
		return Reservation{}, false
	}
	return Reservation{Dish: dish, Recipe: recipe}, true
}

// Release undoes Reserve: ingredients go back and the claim is dropped.
func (r *Reserver) Release(res Reservation) {
	r.ingredients.Release(res.Recipe)
	r.dishes.CancelPreparation(res.Dish)
}
