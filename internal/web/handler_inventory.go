package web

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/vbonduro/farmguide/internal/domain"
	"github.com/vbonduro/farmguide/internal/inventory"
	"github.com/vbonduro/farmguide/internal/service"
	"github.com/vbonduro/farmguide/internal/speech"
	"github.com/vbonduro/farmguide/internal/store"
)

const maxItemNameLen = 200

func (s *Server) handleInventoryPage(w http.ResponseWriter, r *http.Request) {
	groups, err := s.inventory.Grouped(r.Context())
	if err != nil {
		http.Error(w, "failed to list inventory", http.StatusInternalServerError)
		s.logger.Error("list inventory failed", "error", err)
		return
	}

	if err := s.renderPage(w,
		s.newPage(r, "inventory", inventoryView{Groups: groups, Search: searchView{Lang: readPreferences(r).Lang}}),
		"base.html", "pages/inventory.html", "partials/item_row.html", "partials/search_results.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

type inventoryView struct {
	Groups []service.CategoryGroup
	Search searchView
}

// itemView is what partials/item_row.html renders.
type itemView struct {
	Lang domain.Language
	Item *domain.InventoryItem
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		http.Error(w, "item name required", http.StatusBadRequest)
		return
	}
	if len(name) > maxItemNameLen {
		http.Error(w, "item name too long", http.StatusBadRequest)
		return
	}
	category := inventory.NormaliseCategory(r.FormValue("category"))
	if !category.Valid() {
		http.Error(w, "invalid category", http.StatusBadRequest)
		return
	}
	quantity, err := parseQuantity(r.FormValue("quantity"))
	if err != nil {
		http.Error(w, "invalid quantity", http.StatusBadRequest)
		return
	}

	item, err := s.inventory.AddItem(r.Context(), domain.InventoryItem{
		Category: category,
		Name:     name,
		Quantity: quantity,
		Unit:     strings.TrimSpace(r.FormValue("unit")),
		Notes:    strings.TrimSpace(r.FormValue("notes")),
	})
	if err != nil {
		http.Error(w, "failed to add item", http.StatusInternalServerError)
		s.logger.Error("add item failed", "error", err)
		return
	}

	if err := s.renderPartial(w, "partials/item_row.html", itemView{Lang: readPreferences(r).Lang, Item: item}); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	var u domain.ItemUpdate
	if r.PostForm.Has("name") {
		name := strings.TrimSpace(r.PostForm.Get("name"))
		if name == "" || len(name) > maxItemNameLen {
			http.Error(w, "invalid item name", http.StatusBadRequest)
			return
		}
		u.Name = &name
	}
	if r.PostForm.Has("category") {
		c := inventory.NormaliseCategory(r.PostForm.Get("category"))
		if !c.Valid() {
			http.Error(w, "invalid category", http.StatusBadRequest)
			return
		}
		u.Category = &c
	}
	if r.PostForm.Has("quantity") {
		q, err := parseQuantity(r.PostForm.Get("quantity"))
		if err != nil {
			http.Error(w, "invalid quantity", http.StatusBadRequest)
			return
		}
		u.Quantity = &q
	}
	if r.PostForm.Has("unit") {
		unit := strings.TrimSpace(r.PostForm.Get("unit"))
		u.Unit = &unit
	}
	if r.PostForm.Has("notes") {
		notes := strings.TrimSpace(r.PostForm.Get("notes"))
		u.Notes = &notes
	}

	item, err := s.inventory.UpdateItem(r.Context(), itemID, u)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "failed to update item", http.StatusInternalServerError)
		s.logger.Error("update item failed", "item_id", itemID, "error", err)
		return
	}

	if err := s.renderPartial(w, "partials/item_row.html", itemView{Lang: readPreferences(r).Lang, Item: item}); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}

	err = s.inventory.DeleteItem(r.Context(), itemID)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "failed to delete item", http.StatusInternalServerError)
		s.logger.Error("delete item failed", "item_id", itemID, "error", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// voiceReply is the JSON answer to a spoken inventory command, shared by the
// HTTP endpoint and the websocket channel.
type voiceReply struct {
	Transcript string                   `json:"transcript,omitempty"`
	Reply      string                   `json:"reply"`
	Speech     string                   `json:"speech"`
	Locale     string                   `json:"locale"`
	Applied    bool                     `json:"applied"`
	Command    *domain.InventoryCommand `json:"command,omitempty"`
	Items      []itemJSON               `json:"items,omitempty"`
	Error      string                   `json:"error,omitempty"`
	Restart    bool                     `json:"restart,omitempty"`
	RestartMS  int64                    `json:"restart_after_ms,omitempty"`
}

type itemJSON struct {
	ID       int64   `json:"id"`
	Category string  `json:"category"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Notes    string  `json:"notes,omitempty"`
}

func toItemJSON(items []*domain.InventoryItem) []itemJSON {
	out := make([]itemJSON, 0, len(items))
	for _, it := range items {
		out = append(out, itemJSON{
			ID:       it.ID,
			Category: string(it.Category),
			Name:     it.Name,
			Quantity: it.Quantity,
			Unit:     it.Unit,
			Notes:    it.Notes,
		})
	}
	return out
}

func newReply(text string) voiceReply {
	u := speech.Prepare(text)
	return voiceReply{Reply: text, Speech: u.Text, Locale: u.Locale}
}

func (s *Server) handleVoiceCommand(w http.ResponseWriter, r *http.Request) {
	transcript := r.FormValue("transcript")
	if len([]rune(transcript)) > maxMessageLen {
		http.Error(w, "transcript too long", http.StatusBadRequest)
		return
	}

	reply, err := s.applyVoice(r.Context(), transcript)
	if errors.Is(err, service.ErrEmptyMessage) {
		http.Error(w, "transcript required", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "failed to apply voice command", http.StatusInternalServerError)
		s.logger.Error("voice command failed", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) applyVoice(ctx context.Context, transcript string) (voiceReply, error) {
	res, err := s.inventory.ApplyVoiceCommand(ctx, transcript)
	if err != nil {
		return voiceReply{}, err
	}
	reply := newReply(res.Reply)
	reply.Transcript = res.Transcript
	reply.Applied = res.Applied
	reply.Command = res.Command
	if res.Applied {
		items, err := s.inventory.ListItems(ctx)
		if err != nil {
			return voiceReply{}, err
		}
		reply.Items = toItemJSON(items)
	}
	return reply, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	var items []*domain.InventoryItem
	if query != "" {
		var err error
		items, err = s.inventory.SearchItems(r.Context(), query)
		if err != nil {
			http.Error(w, "search failed", http.StatusInternalServerError)
			s.logger.Error("search failed", "error", err)
			return
		}
	}

	// HTMX partial update: return only results fragment.
	view := searchView{Lang: readPreferences(r).Lang, Query: query, Results: items}
	if r.Header.Get("HX-Request") == "true" {
		if err := s.renderPartial(w, "partials/search_results.html", view); err != nil {
			s.logger.Error("render partial failed", "error", err)
		}
		return
	}

	groups, err := s.inventory.Grouped(r.Context())
	if err != nil {
		http.Error(w, "failed to list inventory", http.StatusInternalServerError)
		s.logger.Error("list inventory failed", "error", err)
		return
	}
	if err := s.renderPage(w,
		s.newPage(r, "inventory", inventoryView{Groups: groups, Search: view}),
		"base.html", "pages/inventory.html", "partials/item_row.html", "partials/search_results.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

// searchView is what partials/search_results.html renders.
type searchView struct {
	Lang    domain.Language
	Query   string
	Results []*domain.InventoryItem
}

// parseID extracts the {id} path variable and returns it as int64.
func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func parseQuantity(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	q, err := strconv.ParseFloat(s, 64)
	if err != nil || q < 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		return 0, errors.New("invalid quantity")
	}
	return q, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
