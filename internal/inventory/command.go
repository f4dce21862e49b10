// Package inventory turns free-form model replies into inventory commands
// and applies them to a list of items.
package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/vbonduro/farmguide/internal/domain"
)

var (
	ErrNoCommand     = errors.New("no JSON command in reply")
	ErrUnknownAction = errors.New("unknown inventory action")
)

// jsonSpan is greedy: it runs from the first '{' to the last '}'.
var jsonSpan = regexp.MustCompile(`(?s)\{.*\}`)

// rawCommand accepts the shapes models actually produce: "item" instead of
// "name" and quantities as strings.
type rawCommand struct {
	Action   string          `json:"action"`
	Category string          `json:"category"`
	Name     string          `json:"name"`
	Item     string          `json:"item"`
	Quantity json.RawMessage `json:"quantity"`
	Unit     string          `json:"unit"`
}

// ParseCommand extracts the JSON object embedded in reply.
func ParseCommand(reply string) (*domain.InventoryCommand, error) {
	span := jsonSpan.FindString(reply)
	if span == "" {
		return nil, ErrNoCommand
	}

	var raw rawCommand
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode command: %w", err)
	}

	cmd := &domain.InventoryCommand{
		Action:   domain.Action(strings.ToLower(strings.TrimSpace(raw.Action))),
		Category: NormaliseCategory(raw.Category),
		Name:     strings.TrimSpace(raw.Name),
		Unit:     strings.TrimSpace(raw.Unit),
	}
	if cmd.Name == "" {
		cmd.Name = strings.TrimSpace(raw.Item)
	}

	q, err := parseQuantity(raw.Quantity)
	if err != nil {
		return nil, err
	}
	cmd.Quantity = q

	switch cmd.Action {
	case domain.ActionAdd, domain.ActionUpdate, domain.ActionRemove, domain.ActionUse:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, raw.Action)
	}
	return cmd, nil
}

func parseQuantity(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("invalid quantity %s", raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("invalid quantity %q", s)
	}
	return n, nil
}

// NormaliseCategory lowercases c and folds simple plurals ("seeds"). An
// unrecognised value is returned lowercased and fails Category.Valid.
func NormaliseCategory(c string) domain.Category {
	c = strings.ToLower(strings.TrimSpace(c))
	if cat := domain.Category(c); cat.Valid() {
		return cat
	}
	if cat := domain.Category(strings.TrimSuffix(c, "s")); cat.Valid() {
		return cat
	}
	return domain.Category(c)
}

// FindByName returns the first item whose name contains name,
// case-insensitively, or nil.
func FindByName(items []*domain.InventoryItem, name string) *domain.InventoryItem {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil
	}
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), needle) {
			return item
		}
	}
	return nil
}

// Consume returns the quantity left after using amount, never below zero.
func Consume(have, amount float64) float64 {
	if amount >= have {
		return 0
	}
	return have - amount
}
