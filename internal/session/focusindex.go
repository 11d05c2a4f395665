package session

import "sync"

// FocusIndex is the process-local reference count of how many local
// sessions currently have each user in their focus set, kept separately
// from the per-session focus sets so the two can be checked against each
// other for consistency. The watcher-set membership this server holds in
// the store is 1:1 with whether a user's local count here is nonzero.
type FocusIndex struct {
	mu    sync.Mutex
	count map[string]int
}

// NewFocusIndex builds an empty FocusIndex.
func NewFocusIndex() *FocusIndex {
	return &FocusIndex{count: make(map[string]int)}
}

// Add increments user's local watcher count for each user added by one
// session's focus() call. becameWatched holds the subset that transitioned
// from zero to nonzero, exactly the users this server must register
// itself as a watcher for.
func (f *FocusIndex) Add(users []string) (becameWatched []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range users {
		f.count[u]++
		if f.count[u] == 1 {
			becameWatched = append(becameWatched, u)
		}
	}
	return becameWatched
}

// Remove decrements user's local watcher count for each user removed by one
// session's blur() or disconnect. becameUnwatched holds the subset that
// dropped to zero, exactly the users this server must deregister as a
// watcher for.
func (f *FocusIndex) Remove(users []string) (becameUnwatched []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range users {
		if f.count[u] <= 0 {
			continue
		}
		f.count[u]--
		if f.count[u] == 0 {
			delete(f.count, u)
			becameUnwatched = append(becameUnwatched, u)
		}
	}
	return becameUnwatched
}
