package ledger

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

const (
	itemsBucket    = "items"
	storesBucket   = "stores"
	receiptsBucket = "receipts"
)

// DB defines the interface for database operations. Each call is one
// atomic transaction against a single collection; ReplaceAll rewrites
// all three in one transaction for import.
type DB interface {
	// PutItem upserts an item
	PutItem(item Item) error

	// DeleteItem removes an item by ID
	DeleteItem(id string) error

	// ListItems returns all items
	ListItems() ([]Item, error)

	// PutStore upserts a store
	PutStore(store Store) error

	// DeleteStore removes a store by ID
	DeleteStore(id string) error

	// ListStores returns all stores
	ListStores() ([]Store, error)

	// PutReceipt upserts a receipt
	PutReceipt(receipt Receipt) error

	// DeleteReceipt removes a receipt by ID
	DeleteReceipt(id string) error

	// ListReceipts returns all receipts
	ListReceipts() ([]Receipt, error)

	// ReplaceAll clears and repopulates every collection atomically
	ReplaceAll(items []Item, stores []Store, receipts []Receipt) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance, creating the three
// collection buckets if they do not already exist.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{itemsBucket, storesBucket, receiptsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func (b *BoltDB) put(collection, id string, record any) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		return tx.Bucket([]byte(collection)).Put([]byte(id), data)
	})
	if err != nil {
		return &TransactionError{Collection: collection, Op: "put", Err: err}
	}
	return nil
}

func (b *BoltDB) delete(collection, id string) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(collection)).Delete([]byte(id))
	})
	if err != nil {
		return &TransactionError{Collection: collection, Op: "delete", Err: err}
	}
	return nil
}

// PutItem upserts an item
func (b *BoltDB) PutItem(item Item) error {
	return b.put(itemsBucket, item.ID, item)
}

// DeleteItem removes an item by ID
func (b *BoltDB) DeleteItem(id string) error {
	return b.delete(itemsBucket, id)
}

// ListItems returns all items. An empty bucket yields an empty slice,
// never an error.
func (b *BoltDB) ListItems() ([]Item, error) {
	items := make([]Item, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(itemsBucket)).ForEach(func(k, v []byte) error {
			var item Item
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("unmarshaling item: %w", err)
			}
			items = append(items, item)
			return nil
		})
	})
	if err != nil {
		return nil, &TransactionError{Collection: itemsBucket, Op: "getAll", Err: err}
	}
	return items, nil
}

// PutStore upserts a store
func (b *BoltDB) PutStore(store Store) error {
	return b.put(storesBucket, store.ID, store)
}

// DeleteStore removes a store by ID
func (b *BoltDB) DeleteStore(id string) error {
	return b.delete(storesBucket, id)
}

// ListStores returns all stores
func (b *BoltDB) ListStores() ([]Store, error) {
	stores := make([]Store, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(storesBucket)).ForEach(func(k, v []byte) error {
			var store Store
			if err := json.Unmarshal(v, &store); err != nil {
				return fmt.Errorf("unmarshaling store: %w", err)
			}
			stores = append(stores, store)
			return nil
		})
	})
	if err != nil {
		return nil, &TransactionError{Collection: storesBucket, Op: "getAll", Err: err}
	}
	return stores, nil
}

// PutReceipt upserts a receipt
func (b *BoltDB) PutReceipt(receipt Receipt) error {
	return b.put(receiptsBucket, receipt.ID, receipt)
}

// DeleteReceipt removes a receipt by ID
func (b *BoltDB) DeleteReceipt(id string) error {
	return b.delete(receiptsBucket, id)
}

// ListReceipts returns all receipts
func (b *BoltDB) ListReceipts() ([]Receipt, error) {
	receipts := make([]Receipt, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(receiptsBucket)).ForEach(func(k, v []byte) error {
			var receipt Receipt
			if err := json.Unmarshal(v, &receipt); err != nil {
				return fmt.Errorf("unmarshaling receipt: %w", err)
			}
			receipts = append(receipts, receipt)
			return nil
		})
	})
	if err != nil {
		return nil, &TransactionError{Collection: receiptsBucket, Op: "getAll", Err: err}
	}
	return receipts, nil
}

// ReplaceAll clears and repopulates all three collections inside a
// single transaction. Nothing is written unless every record marshals
// and stores cleanly, so a failed import leaves the database as it
// was.
func (b *BoltDB) ReplaceAll(items []Item, stores []Store, receipts []Receipt) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		if err := refillBucket(tx, itemsBucket, len(items), func(i int) (string, any) {
			return items[i].ID, items[i]
		}); err != nil {
			return err
		}
		if err := refillBucket(tx, storesBucket, len(stores), func(i int) (string, any) {
			return stores[i].ID, stores[i]
		}); err != nil {
			return err
		}
		return refillBucket(tx, receiptsBucket, len(receipts), func(i int) (string, any) {
			return receipts[i].ID, receipts[i]
		})
	})
	if err != nil {
		return &TransactionError{Collection: "all", Op: "replace", Err: err}
	}
	return nil
}

func refillBucket(tx *bbolt.Tx, name string, n int, record func(int) (string, any)) error {
	if err := tx.DeleteBucket([]byte(name)); err != nil {
		return fmt.Errorf("clearing %s: %w", name, err)
	}
	bucket, err := tx.CreateBucket([]byte(name))
	if err != nil {
		return fmt.Errorf("recreating %s: %w", name, err)
	}
	for i := 0; i < n; i++ {
		id, v := record(i)
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		if err := bucket.Put([]byte(id), data); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}

// MemoryDB implements the DB interface over process memory. It backs
// the degraded mode used when persistent storage cannot be opened:
// the app still runs, nothing survives a restart.
type MemoryDB struct {
	mu       sync.Mutex
	items    map[string]Item
	stores   map[string]Store
	receipts map[string]Receipt
	order    map[string]int
	next     int
}

// NewMemoryDB creates an empty in-memory database.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		items:    make(map[string]Item),
		stores:   make(map[string]Store),
		receipts: make(map[string]Receipt),
		order:    make(map[string]int),
	}
}

func (m *MemoryDB) track(id string) {
	if _, ok := m.order[id]; !ok {
		m.order[id] = m.next
		m.next++
	}
}

// PutItem upserts an item
func (m *MemoryDB) PutItem(item Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
	m.track(item.ID)
	return nil
}

// DeleteItem removes an item by ID
func (m *MemoryDB) DeleteItem(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

// ListItems returns all items in insertion order
func (m *MemoryDB) ListItems() ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]Item, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return m.order[items[i].ID] < m.order[items[j].ID] })
	return items, nil
}

// PutStore upserts a store
func (m *MemoryDB) PutStore(store Store) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores[store.ID] = store
	m.track(store.ID)
	return nil
}

// DeleteStore removes a store by ID
func (m *MemoryDB) DeleteStore(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, id)
	return nil
}

// ListStores returns all stores in insertion order
func (m *MemoryDB) ListStores() ([]Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stores := make([]Store, 0, len(m.stores))
	for _, store := range m.stores {
		stores = append(stores, store)
	}
	sort.Slice(stores, func(i, j int) bool { return m.order[stores[i].ID] < m.order[stores[j].ID] })
	return stores, nil
}

// PutReceipt upserts a receipt
func (m *MemoryDB) PutReceipt(receipt Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts[receipt.ID] = receipt
	m.track(receipt.ID)
	return nil
}

// DeleteReceipt removes a receipt by ID
func (m *MemoryDB) DeleteReceipt(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.receipts, id)
	return nil
}

// ListReceipts returns all receipts in insertion order
func (m *MemoryDB) ListReceipts() ([]Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	receipts := make([]Receipt, 0, len(m.receipts))
	for _, receipt := range m.receipts {
		receipts = append(receipts, receipt)
	}
	sort.Slice(receipts, func(i, j int) bool { return m.order[receipts[i].ID] < m.order[receipts[j].ID] })
	return receipts, nil
}

// ReplaceAll clears and repopulates every collection
func (m *MemoryDB) ReplaceAll(items []Item, stores []Store, receipts []Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]Item, len(items))
	m.stores = make(map[string]Store, len(stores))
	m.receipts = make(map[string]Receipt, len(receipts))
	m.order = make(map[string]int)
	m.next = 0
	for _, item := range items {
		m.items[item.ID] = item
		m.track(item.ID)
	}
	for _, store := range stores {
		m.stores[store.ID] = store
		m.track(store.ID)
	}
	for _, receipt := range receipts {
		m.receipts[receipt.ID] = receipt
		m.track(receipt.ID)
	}
	return nil
}

// Close is a no-op for the in-memory database
func (m *MemoryDB) Close() error {
	return nil
}
