package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IDGenerator generates unique IDs for new records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Service owns the in-memory projection of all three collections and
// is the only writer to the database. Every mutation writes through
// to the database first; the cache changes only after that
// transaction commits, so a failed write leaves both layers in their
// last-known-good state. Commands are serialized behind a mutex.
type Service struct {
	mu      sync.Mutex
	db      DB
	metrics MetricsCollector
	idGen   IDGenerator
	clock   TimeSource

	items    []Item
	stores   []Store
	receipts []Receipt // newest first

	search string
	mode   ViewMode
}

// NewService creates a Service with the default ID generator and
// clock, loading the cache from the database.
func NewService(db DB, metrics MetricsCollector) (*Service, error) {
	return NewServiceWithDeps(db, metrics, uuidGenerator{}, systemClock{})
}

// NewServiceWithDeps creates a Service with custom dependencies for
// testing.
func NewServiceWithDeps(db DB, metrics MetricsCollector, idGen IDGenerator, clock TimeSource) (*Service, error) {
	if metrics == nil {
		metrics = NopCollector{}
	}
	s := &Service{
		db:      db,
		metrics: metrics,
		idGen:   idGen,
		clock:   clock,
		mode:    DefaultView(),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) load() error {
	items, err := s.db.ListItems()
	if err != nil {
		return fmt.Errorf("loading items: %w", err)
	}
	stores, err := s.db.ListStores()
	if err != nil {
		return fmt.Errorf("loading stores: %w", err)
	}
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return fmt.Errorf("loading receipts: %w", err)
	}
	sortReceiptsNewestFirst(receipts)
	s.items, s.stores, s.receipts = items, stores, receipts
	return nil
}

func sortReceiptsNewestFirst(receipts []Receipt) {
	sort.SliceStable(receipts, func(i, j int) bool {
		return receipts[i].Timestamp.After(receipts[j].Timestamp)
	})
}

// AddItem sanitizes raw, assigns an ID and persists the new item.
func (s *Service) AddItem(raw Item) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, dropped := SanitizeItem(raw)
	if dropped > 0 {
		slog.Warn("Dropped invalid store prices", "item", item.Name, "dropped", dropped)
	}
	item.ID = s.idGen.Generate()

	if err := s.db.PutItem(item); err != nil {
		s.metrics.RecordTransactionFailure(itemsBucket)
		return Item{}, fmt.Errorf("saving item: %w", err)
	}
	s.items = append(s.items, item)
	return item, nil
}

// UpdateItem replaces an existing item with the sanitized raw record.
// The ID is taken from raw and must exist.
func (s *Service) UpdateItem(raw Item) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.itemIndex(raw.ID)
	if idx < 0 {
		return Item{}, fmt.Errorf("updating item %s: %w", raw.ID, ErrNotFound)
	}
	item, dropped := SanitizeItem(raw)
	if dropped > 0 {
		slog.Warn("Dropped invalid store prices", "item", item.Name, "dropped", dropped)
	}
	return s.replaceItem(idx, item)
}

// DeleteItem removes an item. Receipts that captured it are not
// touched.
func (s *Service) DeleteItem(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.itemIndex(id)
	if idx < 0 {
		return fmt.Errorf("deleting item %s: %w", id, ErrNotFound)
	}
	if err := s.db.DeleteItem(id); err != nil {
		s.metrics.RecordTransactionFailure(itemsBucket)
		return fmt.Errorf("deleting item: %w", err)
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return nil
}

// CycleStatus advances an item's status one step.
func (s *Service) CycleStatus(id string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.itemIndex(id)
	if idx < 0 {
		return Item{}, fmt.Errorf("cycling status of %s: %w", id, ErrNotFound)
	}
	item := s.items[idx]
	item.Status = NextStatus(item.Status)
	return s.replaceItem(idx, item)
}

// AdjustQuantity applies a delta to an item's quantity, clamped to at
// least 1.
func (s *Service) AdjustQuantity(id string, delta int) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.itemIndex(id)
	if idx < 0 {
		return Item{}, fmt.Errorf("adjusting quantity of %s: %w", id, ErrNotFound)
	}
	item := s.items[idx]
	item.Quantity += delta
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	return s.replaceItem(idx, item)
}

// AttachBarcode stores an opaque code on the item verbatim.
func (s *Service) AttachBarcode(id, code string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.itemIndex(id)
	if idx < 0 {
		return Item{}, fmt.Errorf("attaching barcode to %s: %w", id, ErrNotFound)
	}
	item := s.items[idx]
	item.Barcode = code
	return s.replaceItem(idx, item)
}

// AttachImage stores an opaque image reference on the item verbatim.
func (s *Service) AttachImage(id, ref string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.itemIndex(id)
	if idx < 0 {
		return Item{}, fmt.Errorf("attaching image to %s: %w", id, ErrNotFound)
	}
	item := s.items[idx]
	item.ImageURL = ref
	return s.replaceItem(idx, item)
}

func (s *Service) itemIndex(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) replaceItem(idx int, item Item) (Item, error) {
	if err := s.db.PutItem(item); err != nil {
		s.metrics.RecordTransactionFailure(itemsBucket)
		return Item{}, fmt.Errorf("saving item: %w", err)
	}
	s.items[idx] = item
	return item, nil
}

// AddStore registers a new named store. Duplicated names are
// tolerated; the store cap is not.
func (s *Service) AddStore(name string) (Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return Store{}, fmt.Errorf("store name is required")
	}
	if len(s.stores) >= MaxStores {
		slog.Warn("Store limit reached", "limit", MaxStores)
		return Store{}, ErrStoreLimit
	}

	store := Store{ID: s.idGen.Generate(), Name: name}
	if err := s.db.PutStore(store); err != nil {
		s.metrics.RecordTransactionFailure(storesBucket)
		return Store{}, fmt.Errorf("saving store: %w", err)
	}
	s.stores = append(s.stores, store)
	return store, nil
}

// DeleteStore removes the store record. Item price entries naming it
// are left dangling on purpose; the pricing resolver tolerates them.
func (s *Service) DeleteStore(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.stores {
		if s.stores[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("deleting store %s: %w", id, ErrNotFound)
	}
	if err := s.db.DeleteStore(id); err != nil {
		s.metrics.RecordTransactionFailure(storesBucket)
		return fmt.Errorf("deleting store: %w", err)
	}
	s.stores = append(s.stores[:idx], s.stores[idx+1:]...)
	return nil
}

// SetSearch sets the search term and returns the refreshed
// projection. The term composes with whatever view mode is active.
func (s *Service) SetSearch(term string) Projection {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = term
	return s.visibleLocked()
}

// SetStatusFilter switches the view to a status filter, discarding
// any active sort.
func (s *Service) SetStatusFilter(f StatusFilter) Projection {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = FilterMode(f)
	return s.visibleLocked()
}

// SetSort switches the view to a sort order, resetting the status
// filter to All.
func (s *Service) SetSort(field SortField, dir Direction) Projection {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = SortMode(field, dir)
	return s.visibleLocked()
}

// Visible returns the current projection.
func (s *Service) Visible() Projection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visibleLocked()
}

func (s *Service) visibleLocked() Projection {
	return ApplyView(s.items, s.search, s.mode)
}

// LogReceipt snapshots the currently visible list into an immutable
// receipt. An empty view logs a warning and produces nothing; a
// receipt is never created from zero visible items. When filterLabel
// is empty the active view describes itself.
func (s *Service) LogReceipt(filterLabel string) (*Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proj := s.visibleLocked()
	if len(proj.Items) == 0 {
		slog.Warn("Skipping receipt: no visible items")
		return nil, nil
	}
	if filterLabel == "" {
		filterLabel = s.mode.Label(s.search)
	}

	lines := make([]ReceiptLine, 0, len(proj.Items))
	for _, item := range proj.Items {
		opt := CheapestOption(item)
		var price *float64
		if opt.Price != nil {
			p := *opt.Price
			price = &p
		}
		lines = append(lines, ReceiptLine{
			ItemID:        item.ID,
			Name:          item.Name,
			Quantity:      item.Quantity,
			CheapestPrice: price,
			CheapestStore: opt.StoreName,
			Status:        item.Status,
		})
	}

	receipt := Receipt{
		ID:             s.idGen.Generate(),
		Timestamp:      s.clock.Now(),
		FilterUsed:     filterLabel,
		EstimatedTotal: proj.EstimatedTotal,
		ItemCount:      len(lines),
		Items:          lines,
	}
	if err := s.db.PutReceipt(receipt); err != nil {
		s.metrics.RecordTransactionFailure(receiptsBucket)
		return nil, fmt.Errorf("saving receipt: %w", err)
	}
	s.receipts = append([]Receipt{receipt}, s.receipts...)
	s.metrics.RecordReceiptLogged()
	return &receipt, nil
}

// ListReceipts returns receipts newest first, optionally narrowed to
// a calendar year and 1-indexed month. Zero means no filter.
func (s *Service) ListReceipts(year, month int) []Receipt {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Receipt, 0, len(s.receipts))
	for _, r := range s.receipts {
		if year != 0 && r.Timestamp.Year() != year {
			continue
		}
		if month != 0 && int(r.Timestamp.Month()) != month {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ReceiptYears lists the distinct years receipts exist for, newest
// first.
func (s *Service) ReceiptYears() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int]bool)
	years := make([]int, 0)
	for _, r := range s.receipts {
		y := r.Timestamp.Year()
		if !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// DeleteReceipt removes a receipt unconditionally. Confirmation is
// the caller's business.
func (s *Service) DeleteReceipt(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteReceipt(id); err != nil {
		s.metrics.RecordTransactionFailure(receiptsBucket)
		return fmt.Errorf("deleting receipt: %w", err)
	}
	for i := range s.receipts {
		if s.receipts[i].ID == id {
			s.receipts = append(s.receipts[:i], s.receipts[i+1:]...)
			break
		}
	}
	return nil
}

// Export serializes the full dataset. Returns ErrNothingToExport when
// all three collections are empty.
func (s *Service) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := ExportDocument(s.items, s.stores, s.receipts, s.clock.Now())
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}
	s.metrics.RecordExport()
	return data, nil
}

// Import replaces all three collections from a serialized document.
// The database is rewritten first; the cache is swapped only after
// that commit, so any failure leaves both layers untouched.
func (s *Service) Import(raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := DecodeDocument(raw)
	if err != nil {
		return err
	}
	if err := s.db.ReplaceAll(doc.Items, doc.Stores, doc.Receipts); err != nil {
		s.metrics.RecordTransactionFailure("all")
		return fmt.Errorf("replacing collections: %w", err)
	}
	sortReceiptsNewestFirst(doc.Receipts)
	s.items, s.stores, s.receipts = doc.Items, doc.Stores, doc.Receipts
	s.metrics.RecordImport()
	return nil
}

// Items returns a copy of the full item list.
func (s *Service) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Item(nil), s.items...)
}

// Stores returns a copy of the store list.
func (s *Service) Stores() []Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Store(nil), s.stores...)
}
