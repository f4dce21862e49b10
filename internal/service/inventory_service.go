package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/vbonduro/farmguide/internal/domain"
	"github.com/vbonduro/farmguide/internal/inventory"
	"github.com/vbonduro/farmguide/internal/speech"
)

// inventoryRepository is the subset of store.InventoryStore that InventoryService requires.
type inventoryRepository interface {
	Create(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error)
	GetByID(ctx context.Context, id int64) (*domain.InventoryItem, error)
	List(ctx context.Context) ([]*domain.InventoryItem, error)
	ListByCategory(ctx context.Context, category domain.Category) ([]*domain.InventoryItem, error)
	Search(ctx context.Context, query string) ([]*domain.InventoryItem, error)
	Update(ctx context.Context, id int64, u domain.ItemUpdate) error
	Delete(ctx context.Context, id int64) error
}

type InventoryService struct {
	items     inventoryRepository
	assistant assistant
	logger    *slog.Logger
}

func NewInventoryService(items inventoryRepository, assistant assistant, logger *slog.Logger) *InventoryService {
	return &InventoryService{items: items, assistant: assistant, logger: logger}
}

func (s *InventoryService) AddItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return nil, fmt.Errorf("item name is required")
	}
	if item.Quantity < 0 {
		return nil, fmt.Errorf("quantity must not be negative")
	}
	created, err := s.items.Create(ctx, item)
	if err != nil {
		return nil, err
	}
	s.logger.Info("inventory item added", "item_id", created.ID, "category", created.Category, "name", created.Name)
	return created, nil
}

func (s *InventoryService) GetItem(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	return s.items.GetByID(ctx, id)
}

func (s *InventoryService) UpdateItem(ctx context.Context, id int64, u domain.ItemUpdate) (*domain.InventoryItem, error) {
	if u.Category != nil && !u.Category.Valid() {
		return nil, fmt.Errorf("invalid category %q", *u.Category)
	}
	if u.Quantity != nil && *u.Quantity < 0 {
		return nil, fmt.Errorf("quantity must not be negative")
	}
	if err := s.items.Update(ctx, id, u); err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return s.items.GetByID(ctx, id)
}

func (s *InventoryService) DeleteItem(ctx context.Context, id int64) error {
	if err := s.items.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	s.logger.Info("inventory item removed", "item_id", id)
	return nil
}

func (s *InventoryService) ListItems(ctx context.Context) ([]*domain.InventoryItem, error) {
	return s.items.List(ctx)
}

func (s *InventoryService) ListByCategory(ctx context.Context, category domain.Category) ([]*domain.InventoryItem, error) {
	return s.items.ListByCategory(ctx, category)
}

func (s *InventoryService) SearchItems(ctx context.Context, query string) ([]*domain.InventoryItem, error) {
	return s.items.Search(ctx, strings.TrimSpace(query))
}

// CategoryGroup is one section of the inventory page.
type CategoryGroup struct {
	Category domain.Category
	Items    []*domain.InventoryItem
}

// Grouped returns every category in display order with its items, including
// empty categories.
func (s *InventoryService) Grouped(ctx context.Context) ([]CategoryGroup, error) {
	items, err := s.items.List(ctx)
	if err != nil {
		return nil, err
	}
	byCategory := make(map[domain.Category][]*domain.InventoryItem, len(domain.Categories))
	for _, item := range items {
		byCategory[item.Category] = append(byCategory[item.Category], item)
	}
	groups := make([]CategoryGroup, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		groups = append(groups, CategoryGroup{Category: c, Items: byCategory[c]})
	}
	return groups, nil
}

// VoiceResult reports what a spoken command did. Command and Item are nil
// when nothing changed.
type VoiceResult struct {
	Transcript string
	Reply      string
	Command    *domain.InventoryCommand
	Item       *domain.InventoryItem
	Applied    bool
}

// ApplyVoiceCommand asks the assistant to structure transcript as an
// inventory command and applies it. A reply that cannot be acted on leaves
// the inventory unchanged and is returned as-is.
func (s *InventoryService) ApplyVoiceCommand(ctx context.Context, transcript string) (*VoiceResult, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, ErrEmptyMessage
	}

	prompt := s.assistant.Prompts().InventoryCommandPrompt(transcript)
	reply := s.assistant.Query(ctx, prompt, domain.ContextInventory)
	result := &VoiceResult{Transcript: transcript, Reply: reply}

	cmd, err := inventory.ParseCommand(reply)
	if err != nil {
		s.logger.Warn("voice command not understood", "transcript", transcript, "error", err)
		return result, nil
	}

	item, err := s.apply(ctx, cmd)
	switch {
	case errors.Is(err, errNotApplied):
		s.logger.Warn("voice command not applied", "action", cmd.Action, "name", cmd.Name)
		return result, nil
	case err != nil:
		return nil, err
	}

	result.Command = cmd
	result.Item = item
	result.Applied = true
	result.Reply = inventory.Confirmation(cmd, speech.DetectLanguage(transcript))
	s.logger.Info("voice command applied", "action", cmd.Action, "name", cmd.Name, "quantity", cmd.Quantity)
	return result, nil
}

var errNotApplied = errors.New("command not applicable")

func (s *InventoryService) apply(ctx context.Context, cmd *domain.InventoryCommand) (*domain.InventoryItem, error) {
	if cmd.Quantity < 0 || math.IsNaN(cmd.Quantity) || math.IsInf(cmd.Quantity, 0) {
		return nil, errNotApplied
	}
	if cmd.Action == domain.ActionAdd {
		if !cmd.Category.Valid() || cmd.Name == "" {
			return nil, errNotApplied
		}
		return s.AddItem(ctx, domain.InventoryItem{
			Category: cmd.Category,
			Name:     cmd.Name,
			Quantity: cmd.Quantity,
			Unit:     cmd.Unit,
		})
	}

	items, err := s.items.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	target := inventory.FindByName(items, cmd.Name)
	if target == nil {
		return nil, errNotApplied
	}

	switch cmd.Action {
	case domain.ActionRemove:
		if err := s.DeleteItem(ctx, target.ID); err != nil {
			return nil, err
		}
		return target, nil
	case domain.ActionUpdate:
		q := cmd.Quantity
		return s.UpdateItem(ctx, target.ID, domain.ItemUpdate{Quantity: &q})
	case domain.ActionUse:
		q := inventory.Consume(target.Quantity, cmd.Quantity)
		return s.UpdateItem(ctx, target.ID, domain.ItemUpdate{Quantity: &q})
	default:
		return nil, errNotApplied
	}
}
