// Package stockalert classifies stock levels against a product's minimum.
// Every screen that shows or counts alerts goes through Classify.
package stockalert

import (
	"fmt"
	"math"
	"sort"
)

type Level string

const (
	LevelNone   Level = "none"
	LevelRed    Level = "red"
	LevelOrange Level = "orange"
	LevelGreen  Level = "green"
)

const (
	LabelNoThreshold      = "no threshold"
	LabelInvalidThreshold = "invalid threshold"
	LabelOK               = "OK"
)

// Alerting reports whether the level counts towards a store's alerts.
func (l Level) Alerting() bool {
	return l == LevelRed || l == LevelOrange
}

type Status struct {
	Level Level  `json:"level"`
	Label string `json:"label"`
}

// Classify maps a quantity and an optional minimum to a status. A minimum of
// zero or below disables tracking. Above the minimum there is an attention
// band of ceil(25% of the minimum).
func Classify(quantity float64, minimum *int) Status {
	if minimum == nil {
		return Status{Level: LevelNone, Label: LabelNoThreshold}
	}
	min := *minimum
	if min <= 0 {
		return Status{Level: LevelNone, Label: LabelInvalidThreshold}
	}
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) || quantity < 0 {
		quantity = 0
	}

	upper := UpperBound(min)
	switch {
	case quantity <= float64(min):
		return Status{Level: LevelRed, Label: fmt.Sprintf("critical (<= %d)", min)}
	case quantity <= float64(upper):
		return Status{Level: LevelOrange, Label: fmt.Sprintf("attention (<= %d)", upper)}
	default:
		return Status{Level: LevelGreen, Label: LabelOK}
	}
}

// UpperBound is the last quantity still flagged orange for the minimum.
func UpperBound(minimum int) int {
	return minimum + int(math.Ceil(float64(minimum)*0.25))
}

type Item struct {
	ProductID   string  `json:"product_id"`
	Code        *int    `json:"code"`
	Description string  `json:"description"`
	Brand       string  `json:"brand,omitempty"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	Minimum     *int    `json:"minimum"`
	Status      Status  `json:"status"`
}

// Evaluate fills in the status of every item.
func Evaluate(items []Item) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		item.Status = Classify(item.Quantity, item.Minimum)
		out[i] = item
	}
	return out
}

type Counts struct {
	Red    int `json:"red"`
	Orange int `json:"orange"`
	Total  int `json:"total"`
}

func Count(items []Item) Counts {
	var c Counts
	for _, item := range items {
		switch Classify(item.Quantity, item.Minimum).Level {
		case LevelRed:
			c.Red++
		case LevelOrange:
			c.Orange++
		}
	}
	c.Total = c.Red + c.Orange
	return c
}

// Alerts returns the red and orange items, red first, then by ascending code
// with uncoded products last. limit <= 0 returns all of them.
func Alerts(items []Item, limit int) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range Evaluate(items) {
		if item.Status.Level.Alerting() {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Status.Level != b.Status.Level {
			return a.Status.Level == LevelRed
		}
		return lessCode(a.Code, b.Code)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func lessCode(a *int, b *int) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	}
	return *a < *b
}
