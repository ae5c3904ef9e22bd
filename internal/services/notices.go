package services

import (
	"slices"
	"strconv"
	"sync"
	"time"
)

// NoticeKind distinguishes success toasts from error toasts.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Lifetimes of transient notices.
const (
	SuccessNoticeTTL = 3 * time.Second
	ErrorNoticeTTL   = 5 * time.Second
)

// Notice messages shown to the household.
const (
	MsgSynced          = "data synced"
	MsgSyncFailed      = "sync failed, try again"
	MsgLoaded          = "data loaded"
	MsgLoadFailed      = "could not load data, starting with defaults"
	MsgReceiptAnalyzed = "receipt analyzed"
)

// Notice is a transient message for the signed-in user.
type Notice struct {
	ID        string     `json:"id"`
	Kind      NoticeKind `json:"kind"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// Notices holds the active notices of one workspace. Safe for concurrent use
// since sync results arrive on the debounce goroutine.
type Notices struct {
	mu    sync.Mutex
	items []Notice
	seq   uint64
	now   func() time.Time
}

func NewNotices() *Notices {
	return &Notices{now: time.Now}
}

func (n *Notices) Success(msg string) Notice {
	return n.add(NoticeSuccess, msg, SuccessNoticeTTL)
}

func (n *Notices) Error(msg string) Notice {
	return n.add(NoticeError, msg, ErrorNoticeTTL)
}

func (n *Notices) add(kind NoticeKind, msg string, ttl time.Duration) Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := n.now()
	n.seq++
	notice := Notice{
		ID:        strconv.FormatUint(n.seq, 10),
		Kind:      kind,
		Message:   msg,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	n.items = append(n.items, notice)
	return notice
}

// Active returns the unexpired notices, oldest first.
func (n *Notices) Active() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sweepLocked()
	return slices.Clone(n.items)
}

// Dismiss removes a notice before it expires.
func (n *Notices) Dismiss(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	i := slices.IndexFunc(n.items, func(x Notice) bool { return x.ID == id })
	if i < 0 {
		return false
	}
	n.items = slices.Delete(n.items, i, i+1)
	return true
}

// CleanExpired drops expired notices and returns how many were removed.
func (n *Notices) CleanExpired() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sweepLocked()
}

// Clear drops every notice.
func (n *Notices) Clear() {
	n.mu.Lock()
	n.items = nil
	n.mu.Unlock()
}

func (n *Notices) sweepLocked() int {
	now := n.now()
	before := len(n.items)
	n.items = slices.DeleteFunc(n.items, func(x Notice) bool { return !now.Before(x.ExpiresAt) })
	return before - len(n.items)
}
