package models

// MenuItem is an immutable catalog entry. The capitalised JSON keys match the
// menu file format.
type MenuItem struct {
	ID         int     `json:"Id"`
	Name       string  `json:"Name"`
	Price      float64 `json:"Price"`
	Vegetarian bool    `json:"Vegetarian"`
	Vegan      bool    `json:"Vegan"`
}
