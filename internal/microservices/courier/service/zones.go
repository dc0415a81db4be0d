package service

import "strings"

// Zones maps a postcode district to its distance from the restaurant.
type Zones map[string]int

// Distance resolves postcode by exact district ("SO17") or by the outward
// part of a full postcode ("SO17 1BJ"). Unknown postcodes are distance 0.
func (z Zones) Distance(postcode string) int {
	pc := strings.ToUpper(strings.TrimSpace(postcode))
	if d, ok := z[pc]; ok {
		return d
	}
	if outward, _, found := strings.Cut(pc, " "); found {
		if d, ok := z[outward]; ok {
			return d
		}
	}
	return 0
}
