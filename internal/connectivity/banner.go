package connectivity

import (
	"sync"
	"time"
)

// NoticeKind identifies the indicator shown to the user.
type NoticeKind string

const (
	NoticeNone     NoticeKind = ""
	NoticeOffline  NoticeKind = "offline"
	NoticeRestored NoticeKind = "restored"
)

// Notice is the current connectivity indicator.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
	Since   time.Time  `json:"since"`
}

const (
	offlineMessage  = "Offline"
	restoredMessage = "Conexión restablecida"
)

// Banner turns transitions into a user-facing notice. The offline notice
// stays until the next ONLINE transition; the restored notice clears itself
// after ttl.
type Banner struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	notice Notice
	timer  *time.Timer
	// gen invalidates timers that fired after a newer transition.
	gen uint64
}

// NewBanner creates a Banner. A non-positive ttl clears the restored notice
// immediately.
func NewBanner(ttl time.Duration) *Banner {
	return &Banner{ttl: ttl, now: time.Now}
}

// Attach subscribes the banner to m and shows the offline notice when m
// starts offline.
func (b *Banner) Attach(m *Monitor) (unsubscribe func()) {
	if !m.Status() {
		b.OnConnectivityChange(false)
	}
	return m.Subscribe(b.OnConnectivityChange)
}

// OnConnectivityChange is a Listener.
func (b *Banner) OnConnectivityChange(online bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.gen++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}

	if !online {
		b.notice = Notice{Kind: NoticeOffline, Message: offlineMessage, Since: b.now()}
		return
	}

	if b.ttl <= 0 {
		b.notice = Notice{}
		return
	}

	b.notice = Notice{Kind: NoticeRestored, Message: restoredMessage, Since: b.now()}
	gen := b.gen
	b.timer = time.AfterFunc(b.ttl, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.gen == gen {
			b.notice = Notice{}
			b.timer = nil
		}
	})
}

// Current returns the notice being shown, if any.
func (b *Banner) Current() (Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.notice, b.notice.Kind != NoticeNone
}

// Stop cancels a pending dismissal.
func (b *Banner) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
