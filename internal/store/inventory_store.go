package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vbonduro/farmguide/internal/domain"
)

const inventoryColumns = `id, category, name, quantity, unit, notes, last_updated`

type InventoryStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewInventoryStore(db *sql.DB) *InventoryStore {
	return &InventoryStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *InventoryStore) Create(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	if !item.Category.Valid() {
		return nil, fmt.Errorf("invalid category %q", item.Category)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_items (category, name, quantity, unit, notes, last_updated) VALUES (?, ?, ?, ?, ?, ?)
	`, item.Category, item.Name, item.Quantity, item.Unit, item.Notes, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to create inventory item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *InventoryStore) GetByID(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx, `
		SELECT `+inventoryColumns+` FROM inventory_items WHERE id = ?
	`, id))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory item: %w", err)
	}

	return item, nil
}

// List returns every item, oldest first, matching the order items were added.
func (s *InventoryStore) List(ctx context.Context) ([]*domain.InventoryItem, error) {
	return s.query(ctx, `
		SELECT `+inventoryColumns+` FROM inventory_items ORDER BY id ASC
	`)
}

func (s *InventoryStore) ListByCategory(ctx context.Context, category domain.Category) ([]*domain.InventoryItem, error) {
	return s.query(ctx, `
		SELECT `+inventoryColumns+` FROM inventory_items WHERE category = ? ORDER BY id ASC
	`, category)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search does a case-insensitive substring match on the item name. LIKE
// wildcards in query match literally.
func (s *InventoryStore) Search(ctx context.Context, query string) ([]*domain.InventoryItem, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
	return s.query(ctx, `
		SELECT `+inventoryColumns+` FROM inventory_items
		WHERE LOWER(name) LIKE ? ESCAPE '\'
		ORDER BY id ASC
	`, pattern)
}

// Update merges the non-nil fields of u into the item and refreshes its
// last_updated timestamp.
func (s *InventoryStore) Update(ctx context.Context, id int64, u domain.ItemUpdate) error {
	if u.Category != nil && !u.Category.Valid() {
		return fmt.Errorf("invalid category %q", *u.Category)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE inventory_items SET
			category = COALESCE(?, category),
			name = COALESCE(?, name),
			quantity = COALESCE(?, quantity),
			unit = COALESCE(?, unit),
			notes = COALESCE(?, notes),
			last_updated = ?
		WHERE id = ?
	`, nullable(u.Category), nullable(u.Name), nullable(u.Quantity), nullable(u.Unit), nullable(u.Notes), s.now(), id)
	if err != nil {
		return fmt.Errorf("failed to update inventory item: %w", err)
	}

	if err := checkAffected(result); err != nil {
		return fmt.Errorf("failed to update inventory item %d: %w", id, err)
	}
	return nil
}

func (s *InventoryStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM inventory_items WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete inventory item: %w", err)
	}

	if err := checkAffected(result); err != nil {
		return fmt.Errorf("failed to delete inventory item %d: %w", id, err)
	}
	return nil
}

func (s *InventoryStore) query(ctx context.Context, q string, args ...any) ([]*domain.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory items: %w", err)
	}
	defer closeRows(rows)

	var items []*domain.InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory items: %w", err)
	}

	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*domain.InventoryItem, error) {
	item := &domain.InventoryItem{}
	var category string
	if err := row.Scan(&item.ID, &category, &item.Name, &item.Quantity, &item.Unit, &item.Notes, &item.LastUpdated); err != nil {
		return nil, err
	}
	item.Category = domain.Category(category)
	return item, nil
}

// nullable turns a nil pointer into SQL NULL so COALESCE keeps the old value.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
