package kvfake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-session-client/credentials"
)

var _ credentials.KV = (*FakeKV)(nil)

// FakeKV is an in-memory KV. Errors can be injected per operation.
type FakeKV struct {
	values map[string]string
	lock   sync.RWMutex

	getErr    error
	setErr    error
	removeErr error
}

func NewFakeKV() *FakeKV {
	return &FakeKV{
		values: make(map[string]string),
	}
}

// Seed stores values directly, bypassing injected errors.
func (f *FakeKV) Seed(values map[string]string) *FakeKV {
	f.lock.Lock()
	defer f.lock.Unlock()
	for k, v := range values {
		f.values[k] = v
	}
	return f
}

// FailWith makes subsequent operations return the given errors. Nil clears.
func (f *FakeKV) FailWith(getErr, setErr, removeErr error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.getErr, f.setErr, f.removeErr = getErr, setErr, removeErr
}

func (f *FakeKV) Get(_ context.Context, key string) (string, bool, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *FakeKV) Set(_ context.Context, key, value string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.values[key] = value
	return nil
}

func (f *FakeKV) Remove(_ context.Context, key string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.values, key)
	return nil
}

// Snapshot copies the current contents.
func (f *FakeKV) Snapshot() map[string]string {
	f.lock.RLock()
	defer f.lock.RUnlock()
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}
