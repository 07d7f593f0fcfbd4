package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/hmkt/market/internal/core/domain"
	"github.com/hmkt/market/internal/port"
)

// fakeItem is a named stack; the codec round-trips it as "name:amount".
type fakeItem struct {
	name   string
	amount int
}

func (i fakeItem) Name() string { return i.name }
func (i fakeItem) Amount() int  { return i.amount }
func (i fakeItem) WithAmount(n int) port.Item {
	i.amount = n
	return i
}

type fakeCodec struct {
	failDeserialize bool
}

func (c fakeCodec) Serialize(item port.Item) (string, error) {
	return fmt.Sprintf("%s:%d", item.Name(), item.Amount()), nil
}

func (c fakeCodec) Deserialize(blob string) (port.Item, error) {
	if c.failDeserialize {
		return nil, errors.New("corrupt payload")
	}
	name, amountStr, ok := strings.Cut(blob, ":")
	if !ok {
		return nil, fmt.Errorf("bad blob %q", blob)
	}
	amount, err := strconv.Atoi(amountStr)
	if err != nil {
		return nil, err
	}
	return fakeItem{name: name, amount: amount}, nil
}

func (c fakeCodec) Clone(item port.Item) port.Item { return item }

type mockEconomy struct {
	mu           sync.Mutex
	balances     map[uuid.UUID]float64
	vault        float64
	failWithdraw bool
	failDeposit  bool
}

func newMockEconomy() *mockEconomy {
	return &mockEconomy{balances: make(map[uuid.UUID]float64)}
}

func (e *mockEconomy) Balance(id uuid.UUID) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balances[id]
}

func (e *mockEconomy) Withdraw(id uuid.UUID, amount float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failWithdraw || e.balances[id] < amount {
		return false
	}
	e.balances[id] -= amount
	return true
}

func (e *mockEconomy) Deposit(id uuid.UUID, amount float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failDeposit {
		return false
	}
	e.balances[id] += amount
	return true
}

func (e *mockEconomy) DepositVault(amount float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vault += amount
	return true
}

func (e *mockEconomy) vaultBalance() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vault
}

type mockInventory struct {
	mu     sync.Mutex
	counts map[uuid.UUID]map[string]int
}

func newMockInventory() *mockInventory {
	return &mockInventory{counts: make(map[uuid.UUID]map[string]int)}
}

func (i *mockInventory) set(holder uuid.UUID, name string, qty int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.counts[holder] == nil {
		i.counts[holder] = make(map[string]int)
	}
	i.counts[holder][name] = qty
}

func (i *mockInventory) count(holder uuid.UUID, name string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.counts[holder][name]
}

func (i *mockInventory) HasItem(holder uuid.UUID, item port.Item, qty int) bool {
	return i.count(holder, item.Name()) >= qty
}

func (i *mockInventory) RemoveItem(holder uuid.UUID, item port.Item, qty int) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.counts[holder][item.Name()] < qty {
		return false
	}
	i.counts[holder][item.Name()] -= qty
	return true
}

func (i *mockInventory) GiveOrDrop(holder uuid.UUID, item port.Item) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.counts[holder] == nil {
		i.counts[holder] = make(map[string]int)
	}
	i.counts[holder][item.Name()] += item.Amount()
}

type mockNotifier struct {
	mu         sync.Mutex
	broadcasts []string
	notices    map[uuid.UUID][]string
	refreshes  []uuid.UUID
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{notices: make(map[uuid.UUID][]string)}
}

func (n *mockNotifier) Broadcast(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcasts = append(n.broadcasts, text)
}

func (n *mockNotifier) Notify(user uuid.UUID, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices[user] = append(n.notices[user], text)
}

func (n *mockNotifier) UIRefresh(market uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.refreshes = append(n.refreshes, market)
}

// inlineScheduler runs tasks on the calling goroutine; the tests are their
// own synchronous context.
type inlineScheduler struct{}

func (inlineScheduler) Run(ctx context.Context, fn func() error) error { return fn() }

type downScheduler struct{}

func (downScheduler) Run(ctx context.Context, fn func() error) error {
	return errors.New("sync context down")
}

// mockStore is an in-memory ListingStore with the same conditional-update
// semantics as the SQL adapter.
type mockStore struct {
	mu            sync.Mutex
	nextID        int64
	listings      map[int64]*domain.Listing
	now           int64
	failCreate    bool
	denyDecrement bool
	staleQueries  int
}

func newMockStore() *mockStore {
	return &mockStore{nextID: 1, listings: make(map[int64]*domain.Listing)}
}

func (s *mockStore) Create(ctx context.Context, payload string, qty int, owner, market uuid.UUID, price float64, capacity int) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate {
		return 0, false, errors.New("store down")
	}
	count := 0
	for _, l := range s.listings {
		if l.Market != market {
			continue
		}
		if domain.IsSystemMarket(market) && l.Owner != owner {
			continue
		}
		count++
	}
	if count >= capacity {
		return 0, false, nil
	}
	id := s.nextID
	s.nextID++
	s.listings[id] = &domain.Listing{
		ItemID:    id,
		Payload:   payload,
		Amount:    qty,
		Owner:     owner,
		Market:    market,
		Price:     price,
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}
	return id, true, nil
}

func (s *mockStore) Get(ctx context.Context, id int64) (*domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (s *mockStore) List(ctx context.Context, market uuid.UUID) ([]domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Listing
	for _, l := range s.listings {
		if l.Market != market {
			continue
		}
		if l.Amount <= 0 {
			delete(s.listings, l.ItemID)
			continue
		}
		out = append(out, *l)
	}
	return out, nil
}

func (s *mockStore) DecrementQuantity(ctx context.Context, id int64, amount int, expectedPrice float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.denyDecrement {
		return false, nil
	}
	l, ok := s.listings[id]
	if !ok || l.Price != expectedPrice || l.Amount < amount {
		return false, nil
	}
	l.Amount -= amount
	return true, nil
}

func (s *mockStore) Delete(ctx context.Context, id int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[id]; !ok {
		return 0, nil
	}
	delete(s.listings, id)
	return 1, nil
}

func (s *mockStore) Count(ctx context.Context, market uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, l := range s.listings {
		if l.Market == market {
			count++
		}
	}
	return count, nil
}

func (s *mockStore) CountByOwner(ctx context.Context, market, owner uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, l := range s.listings {
		if l.Market == market && l.Owner == owner {
			count++
		}
	}
	return count, nil
}

func (s *mockStore) ListNeedingUpdate(ctx context.Context, since int64) ([]domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staleQueries++
	var out []domain.Listing
	for _, l := range s.listings {
		if l.UpdatedAt <= since {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *mockStore) TouchUpdatedAt(ctx context.Context, id int64, ts int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return 0, nil
	}
	l.UpdatedAt = ts
	return 1, nil
}

func (s *mockStore) get(id int64) domain.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.listings[id]; ok {
		return *l
	}
	return domain.Listing{}
}

func almostEqual(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < 1e-9
}
