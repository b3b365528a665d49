package capture

import (
	"sync"

	"keytap/keyevent"
)

// FakeSource replays raw transitions through the real decoders. Raw input
// queued before Stop is still delivered, in order.
//
// Like RECORD, a Stop that arrives before dispatch has started is dropped by
// the "server" and only takes effect because Run re-sends it on start.
type FakeSource struct {
	raw chan func() (keyevent.Event, bool)
	err error

	mu          sync.Mutex
	state       stopState
	live        bool
	quit        chan struct{}
	quitOnce    sync.Once
	beforeStart func()
}

func NewFake() *FakeSource {
	return &FakeSource{
		raw:  make(chan func() (keyevent.Event, bool), 64),
		quit: make(chan struct{}),
	}
}

// FailWith makes Run return err without dispatching anything, the way a
// backend does when setup fails.
func (f *FakeSource) FailWith(err error) { f.err = err }

// BeforeStart sets fn to run after setup and before dispatch starts.
func (f *FakeSource) BeforeStart(fn func()) { f.beforeStart = fn }

func (f *FakeSource) Name() string { return "fake" }

func (f *FakeSource) Run(h Handler) error {
	if f.err != nil {
		return f.err
	}

	f.mu.Lock()
	armed := f.state.arm()
	f.mu.Unlock()
	if !armed {
		f.drain(h)
		return nil
	}
	defer func() {
		f.mu.Lock()
		f.state.disarm()
		f.mu.Unlock()
	}()

	if f.beforeStart != nil {
		f.beforeStart()
	}

	f.mu.Lock()
	f.live = true
	if f.state.started() {
		f.interruptLocked()
	}
	f.mu.Unlock()

	for {
		select {
		case fn := <-f.raw:
			f.deliver(fn, h)
		case <-f.quit:
			f.drain(h)
			return nil
		}
	}
}

func (f *FakeSource) drain(h Handler) {
	for {
		select {
		case fn := <-f.raw:
			f.deliver(fn, h)
		default:
			return
		}
	}
}

func (f *FakeSource) deliver(fn func() (keyevent.Event, bool), h Handler) {
	if ev, ok := fn(); ok && h != nil {
		h(ev)
	}
}

func (f *FakeSource) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.stop() {
		f.interruptLocked()
	}
	return nil
}

// interruptLocked is dropped while dispatch is not live.
func (f *FakeSource) interruptLocked() {
	if f.live {
		f.quitOnce.Do(func() { close(f.quit) })
	}
}

// SimRecord queues an X RECORD intercept payload.
func (f *FakeSource) SimRecord(category int, data []byte) {
	buf := append([]byte(nil), data...)
	f.raw <- func() (keyevent.Event, bool) { return DecodeRecord(category, buf) }
}

// SimHook queues a low-level hook invocation; held lists the virtual keys
// reported as down while it is decoded.
func (f *FakeSource) SimHook(nCode int32, wParam uintptr, p *HookPayload, held ...uint32) {
	keys := HeldKeys{}
	for _, vk := range held {
		keys[vk] = true
	}
	f.raw <- func() (keyevent.Event, bool) { return DecodeHook(nCode, wParam, p, keys) }
}
