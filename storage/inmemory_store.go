package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const DefaultMaxEntries = 100

var (
	ErrInvalidDocument = errors.New("Transcript is not a JSON document")
	ErrStoreClosed     = errors.New("Store is closed")
)

// InmemoryStore keeps the transcript as a single JSON document:
//
//   {"entries":[{"kind":"command","command":"list","output":"...","time":"..."}]}
//
// Only the newest MaxEntries entries are kept.
type InmemoryStore struct {
	maxEntries int

	mu          sync.Mutex
	values      []byte
	updateChans []chan *Entry

	// stop will be closed when Close() is called
	stop chan struct{}
}

func NewInmemoryStore(maxEntries int) *InmemoryStore {
	if maxEntries < 1 {
		maxEntries = DefaultMaxEntries
	}

	return &InmemoryStore{
		maxEntries:  maxEntries,
		values:      []byte(`{"entries":[]}`),
		stop:        make(chan struct{}),
		updateChans: make([]chan *Entry, 0),
	}
}

func (i *InmemoryStore) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.isRunning() {
		return nil
	}

	close(i.stop)

	for _, updateChan := range i.updateChans {
		close(updateChan)
	}

	i.updateChans = nil

	return nil
}

func (i *InmemoryStore) Append(ctx context.Context, entry *Entry) (err error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.isRunning() {
		return ErrStoreClosed
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	values, err := sjson.SetBytes(i.values, "entries.-1", entry)
	if err != nil {
		return err
	}

	if i.values, err = i.trim(values); err != nil {
		return err
	}

	// Subscribers with a full buffer miss the entry
	for _, updateChan := range i.updateChans {
		select {
		case updateChan <- entry:
		default:
		}
	}

	return nil
}

// Get returns the raw JSON at path, a gjson path such as "entries.#" or
// "entries.#.command". A missing path yields nil.
func (i *InmemoryStore) Get(ctx context.Context, path string) ([]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	result := gjson.GetBytes(i.values, path)
	if !result.Exists() {
		return nil, nil
	}

	return []byte(result.Raw), nil
}

// ListenToUpdates returns a channel receiving every entry appended from now
// on. The channel is closed when ctx is done or the store is closed.
func (i *InmemoryStore) ListenToUpdates(ctx context.Context) <-chan *Entry {
	i.mu.Lock()
	defer i.mu.Unlock()

	updateChan := make(chan *Entry, 255)

	if !i.isRunning() {
		close(updateChan)
		return updateChan
	}

	i.updateChans = append(i.updateChans, updateChan)

	go func() {
		select {
		case <-ctx.Done():
		case <-i.stop:
			return
		}

		i.mu.Lock()
		defer i.mu.Unlock()

		// Close already closed every channel
		if !i.isRunning() {
			return
		}

		for n, c := range i.updateChans {
			if c == updateChan {
				i.updateChans = append(i.updateChans[:n], i.updateChans[n+1:]...)
				close(updateChan)
				break
			}
		}
	}()

	return updateChan
}

// Restore replaces the transcript with values, keeping only the newest
// entries if it holds too many.
func (i *InmemoryStore) Restore(values []byte) error {
	if !gjson.ValidBytes(values) || !gjson.GetBytes(values, "entries").IsArray() {
		return ErrInvalidDocument
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	values, err := i.trim(append([]byte(nil), values...))
	if err != nil {
		return err
	}

	i.values = values
	return nil
}

func (i *InmemoryStore) Backup() ([]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	return append([]byte(nil), i.values...), nil
}

// trim drops the oldest entries until at most maxEntries are left.
func (i *InmemoryStore) trim(values []byte) (_ []byte, err error) {
	for gjson.GetBytes(values, "entries.#").Int() > int64(i.maxEntries) {
		if values, err = sjson.DeleteBytes(values, "entries.0"); err != nil {
			return nil, err
		}
	}

	return values, nil
}

// isRunning returns true if Close has not been called
func (i *InmemoryStore) isRunning() bool {
	select {
	case <-i.stop:
		return false

	default:
		return true
	}
}

var _ Store = (*InmemoryStore)(nil)
