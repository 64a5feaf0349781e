package stream

import (
	"context"
	"sync"

	"github.com/peter-kozarec/ibridge/pkg/bus"
	"github.com/peter-kozarec/ibridge/pkg/model"
	"github.com/peter-kozarec/ibridge/pkg/reqid"
	"go.uber.org/zap"
)

// AccountUpdate carries exactly one of its fields.
type AccountUpdate struct {
	Value      *model.AccountValue
	Item       *model.PortfolioItem
	Downloaded bool
}

type valueKey struct {
	key      string
	currency string
}

// Account mirrors the live account values and portfolio of one account.
// The gateway does not scope these callbacks by id; they match by account name.
type Account struct {
	*Stream[AccountUpdate]

	name   string
	filter model.CurrencyFilter

	mu           sync.RWMutex
	values       map[valueKey]model.AccountValue
	portfolio    map[int64]model.PortfolioItem
	downloaded   chan struct{}
	downloadOnce sync.Once
}

func NewAccount(logger *zap.Logger, name string, filter model.CurrencyFilter) *Account {
	return &Account{
		Stream:     newStream[AccountUpdate](logger, reqid.None),
		name:       name,
		filter:     filter,
		values:     make(map[valueKey]model.AccountValue),
		portfolio:  make(map[int64]model.PortfolioItem),
		downloaded: make(chan struct{}),
	}
}

func (a *Account) Name() string {
	return a.name
}

func (a *Account) Kinds() []bus.Kind {
	return []bus.Kind{bus.AccountValueKind, bus.PortfolioValueKind, bus.AccountDownloadEndKind}
}

func (a *Account) matches(account string) bool {
	return a.name == "" || a.name == account
}

func (a *Account) Handle(_ context.Context, ev bus.Event) {
	if !a.Active() {
		return
	}

	switch e := ev.(type) {
	case bus.AccountValue:
		if !a.matches(e.Value.Account) || !a.filter.Allows(e.Value.Currency) {
			return
		}
		a.mu.Lock()
		a.values[valueKey{e.Value.Key, e.Value.Currency}] = e.Value
		a.mu.Unlock()
		a.publish(AccountUpdate{Value: &e.Value})
	case bus.PortfolioValue:
		if !a.matches(e.Item.Account) {
			return
		}
		a.mu.Lock()
		if e.Item.Position.IsZero() {
			delete(a.portfolio, e.Item.Contract.ConId)
		} else {
			a.portfolio[e.Item.Contract.ConId] = e.Item
		}
		a.mu.Unlock()
		a.publish(AccountUpdate{Item: &e.Item})
	case bus.AccountDownloadEnd:
		if !a.matches(e.Account) {
			return
		}
		a.downloadOnce.Do(func() { close(a.downloaded) })
		a.publish(AccountUpdate{Downloaded: true})
	}
}

// Downloaded is closed once the initial account download completed.
func (a *Account) Downloaded() <-chan struct{} {
	return a.downloaded
}

func (a *Account) Value(key, currency string) (model.AccountValue, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.values[valueKey{key, currency}]
	return v, ok
}

func (a *Account) Values() []model.AccountValue {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]model.AccountValue, 0, len(a.values))
	for _, v := range a.values {
		out = append(out, v)
	}
	return out
}

func (a *Account) Portfolio() []model.PortfolioItem {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]model.PortfolioItem, 0, len(a.portfolio))
	for _, p := range a.portfolio {
		out = append(out, p)
	}
	return out
}
