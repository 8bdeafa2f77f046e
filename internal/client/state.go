package client

import (
	"math"
	"sort"
	"sync"
	"time"

	"dragbox/file-manager/internal/domain"
)

// AlertTTL is how long a status message stays visible.
const AlertTTL = 3 * time.Second

// Level is the severity of a status message.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Alert is a transient status message. ID is unique per Store.
type Alert struct {
	ID      uint64
	Message string
	Level   Level
}

// State is everything the dashboard view renders. Treat it as a value: Reduce never
// mutates the State it is given.
type State struct {
	Files     []domain.FileRecord
	Loading   bool
	Uploading bool
	Progress  int // whole percent, 0-100
	Alert     *Alert

	version  uint64            // bumped by every local mutation of Files
	touched  map[string]uint64 // key -> version of its last local mutation
	inFlight int               // listings started but not yet settled
}

// Version identifies the local file set. A ListLoaded must carry the Version
// observed when its listing was started.
func (s State) Version() uint64 { return s.version }

// Selected returns the keys of all selected records, in display order.
func (s State) Selected() []string {
	var keys []string
	for _, f := range s.Files {
		if f.Selected {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// Action is a state transition.
type Action interface{ isAction() }

type (
	ListStarted struct{}

	// ListLoaded settles a listing started at version Since.
	ListLoaded struct {
		Since uint64
		Files []domain.FileRecord
	}

	ListFailed       struct{}
	UploadStarted    struct{}
	UploadProgressed struct{ Fraction float64 }
	FileUploaded     struct{ File domain.FileRecord }

	// UploadFinished ends the upload; the progress bar resets unless KeepProgress.
	UploadFinished struct{ KeepProgress bool }

	ToggleSelection struct{ Index int }
	SelectAll       struct{ Selected bool }
	DeleteStarted   struct{}
	FilesDeleted    struct{ Keys []string }
	DeleteFinished  struct{}
	AlertShown      struct{ Alert Alert }

	// AlertCleared clears the alert only if it is still the one with ID.
	AlertCleared struct{ ID uint64 }
)

func (ListStarted) isAction()      {}
func (ListLoaded) isAction()       {}
func (ListFailed) isAction()       {}
func (UploadStarted) isAction()    {}
func (UploadProgressed) isAction() {}
func (FileUploaded) isAction()     {}
func (UploadFinished) isAction()   {}
func (ToggleSelection) isAction()  {}
func (SelectAll) isAction()        {}
func (DeleteStarted) isAction()    {}
func (FilesDeleted) isAction()     {}
func (DeleteFinished) isAction()   {}
func (AlertShown) isAction()       {}
func (AlertCleared) isAction()     {}

// Reduce applies a to s and returns the new state.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case ListStarted:
		s.inFlight++
		s.Loading = true

	case ListLoaded:
		s.Files = mergeListing(s.Files, a.Files, s.touched, a.Since)
		s = settleListing(s)

	case ListFailed:
		s = settleListing(s)

	case UploadStarted:
		s.Uploading = true
		s.Progress = 0

	case UploadProgressed:
		if !s.Uploading {
			break
		}
		if p := percent(a.Fraction); p > s.Progress {
			s.Progress = p
		}

	case FileUploaded:
		files := make([]domain.FileRecord, 0, len(s.Files)+1)
		files = append(files, a.File)
		for _, f := range s.Files {
			if f.Key != a.File.Key {
				files = append(files, f)
			}
		}
		s.Files = files
		s = touch(s, a.File.Key)

	case UploadFinished:
		s.Uploading = false
		if !a.KeepProgress {
			s.Progress = 0
		}

	case ToggleSelection:
		if a.Index < 0 || a.Index >= len(s.Files) {
			break
		}
		files := append([]domain.FileRecord(nil), s.Files...)
		files[a.Index].Selected = !files[a.Index].Selected
		s.Files = files

	case SelectAll:
		files := append([]domain.FileRecord(nil), s.Files...)
		for i := range files {
			files[i].Selected = a.Selected
		}
		s.Files = files

	case DeleteStarted:
		s.Loading = true

	case FilesDeleted:
		gone := make(map[string]bool, len(a.Keys))
		for _, k := range a.Keys {
			gone[k] = true
		}
		files := make([]domain.FileRecord, 0, len(s.Files))
		for _, f := range s.Files {
			if !gone[f.Key] {
				files = append(files, f)
			}
		}
		s.Files = files
		for _, k := range a.Keys {
			s = touch(s, k)
		}

	case DeleteFinished:
		s.Loading = s.inFlight > 0

	case AlertShown:
		alert := a.Alert
		s.Alert = &alert

	case AlertCleared:
		if s.Alert != nil && s.Alert.ID == a.ID {
			s.Alert = nil
		}
	}
	return s
}

// mergeListing reconciles a listing with the local records by key. A record mutated
// locally after the listing started keeps its local form (or stays deleted); every
// other record is taken from the listing with its local selection preserved.
func mergeListing(local, listed []domain.FileRecord, touched map[string]uint64, since uint64) []domain.FileRecord {
	newer := func(key string) bool { return touched[key] > since }

	byKey := make(map[string]domain.FileRecord, len(local))
	for _, f := range local {
		byKey[f.Key] = f
	}

	merged := make([]domain.FileRecord, 0, len(listed)+len(local))
	seen := make(map[string]bool, len(listed))
	for _, f := range listed {
		if seen[f.Key] {
			continue
		}
		seen[f.Key] = true
		cur, ok := byKey[f.Key]
		if newer(f.Key) {
			if ok {
				merged = append(merged, cur)
			}
			continue
		}
		if ok {
			f.Selected = cur.Selected
		}
		merged = append(merged, f)
	}
	for _, f := range local {
		if !seen[f.Key] && newer(f.Key) {
			merged = append(merged, f)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged
}

func settleListing(s State) State {
	if s.inFlight > 0 {
		s.inFlight--
	}
	s.Loading = s.inFlight > 0
	if s.inFlight == 0 {
		s.touched = nil
	}
	return s
}

func touch(s State, key string) State {
	s.version++
	if s.inFlight == 0 {
		// No listing can be overtaken.
		return s
	}
	touched := make(map[string]uint64, len(s.touched)+1)
	for k, v := range s.touched {
		touched[k] = v
	}
	touched[key] = s.version
	s.touched = touched
	return s
}

func percent(fraction float64) int {
	p := int(math.Round(fraction * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Store owns the dashboard State. Dispatch is safe for concurrent use; subscribers
// are called with every new state, in order, outside the lock.
type Store struct {
	mu          sync.Mutex
	notify      sync.Mutex
	state       State
	subscribers []func(State)
	nextAlertID uint64

	// afterFunc schedules alert expiry; replaced in tests.
	afterFunc func(d time.Duration, f func())
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		afterFunc: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// Dispatch applies a and returns the resulting state.
func (st *Store) Dispatch(a Action) State {
	next, _ := st.DispatchIf(nil, a)
	return next
}

// DispatchIf applies a only if cond holds for the current state, atomically.
// A nil cond always holds.
func (st *Store) DispatchIf(cond func(State) bool, a Action) (State, bool) {
	st.notify.Lock()
	defer st.notify.Unlock()

	st.mu.Lock()
	if cond != nil && !cond(st.state) {
		cur := st.state
		st.mu.Unlock()
		return cur, false
	}
	st.state = Reduce(st.state, a)
	next := st.state
	subs := append([]func(State){}, st.subscribers...)
	st.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next, true
}

// Snapshot returns the current state.
func (st *Store) Snapshot() State {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state
}

// Subscribe registers fn to receive every new state. fn must not call Dispatch.
func (st *Store) Subscribe(fn func(State)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.subscribers = append(st.subscribers, fn)
}

// ShowAlert displays message for AlertTTL. A newer alert is never cleared by an
// older alert's timer.
func (st *Store) ShowAlert(message string, level Level) uint64 {
	st.mu.Lock()
	st.nextAlertID++
	id := st.nextAlertID
	st.mu.Unlock()

	st.Dispatch(AlertShown{Alert: Alert{ID: id, Message: message, Level: level}})
	st.afterFunc(AlertTTL, func() { st.Dispatch(AlertCleared{ID: id}) })
	return id
}
