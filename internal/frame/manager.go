package frame

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Gesture timing. A press held past LongPressDuration unloads the pressed
// frame; the first click arriving within ClickSuppressWindow of that unload
// is swallowed so releasing the gesture cannot immediately re-trigger a
// selection or reload.
const (
	LongPressDuration   = 800 * time.Millisecond
	ClickSuppressWindow = 500 * time.Millisecond

	// pressTickInterval is how often subscribers are pinged while a press
	// is armed, so progress indicators animate.
	pressTickInterval = 80 * time.Millisecond
)

// Config configures a Manager. Groups is the only required field.
type Config struct {
	Groups []Group

	// Store persists open groups and known URL ids. Nil disables
	// persistence.
	Store Store

	// Clock defaults to SystemClock.
	Clock Clock

	// Logger defaults to a discarding logger.
	Logger *slog.Logger

	// Narrow selects the narrow-viewport menu rule: selecting a URL
	// collapses every group but its own.
	Narrow bool

	// OnSelect is invoked (fire-and-forget, own goroutine) with the URL id
	// of every successful selection.
	OnSelect func(urlID string)
}

// press tracks one armed long-press gesture.
type press struct {
	started time.Time
	timer   Timer // fires the unload at LongPressDuration
	tick    Timer // pings subscribers while armed
}

// Manager owns the frame lifecycle for a single dashboard tab. All methods
// are safe for concurrent use and total: unknown or stale URL ids are
// ignored, nothing panics, and nothing blocks beyond the internal lock.
type Manager struct {
	mu     sync.Mutex
	clock  Clock
	store  Store
	logger *slog.Logger
	hook   func(string)

	groups  []Group
	byID    map[string]*URL
	groupOf map[string]string // url id -> containing group id

	active      string
	loaded      map[string]bool
	known       map[string]bool
	open        map[string]bool
	gen         map[string]int // frame incarnation per url id, bumped by Reload
	narrow      bool
	activeGroup string // top-menu group selection while nothing is active

	presses       map[string]*press
	idles         map[string]Timer
	suppressUntil time.Time

	events chan struct{}
	closed bool
}

// New creates a Manager for the given groups, rehydrating open groups and
// known ids from cfg.Store when one is present.
func New(cfg Config) *Manager {
	m := &Manager{
		clock:   cfg.Clock,
		store:   cfg.Store,
		logger:  cfg.Logger,
		hook:    cfg.OnSelect,
		narrow:  cfg.Narrow,
		loaded:  make(map[string]bool),
		known:   make(map[string]bool),
		open:    make(map[string]bool),
		gen:     make(map[string]int),
		presses: make(map[string]*press),
		idles:   make(map[string]Timer),
		events:  make(chan struct{}, 1),
	}
	if m.clock == nil {
		m.clock = SystemClock()
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}

	m.indexGroups(cfg.Groups)
	if len(m.groups) > 0 {
		m.activeGroup = m.groups[0].ID
	}

	if m.store != nil {
		st, err := m.store.Load()
		if err != nil {
			m.logger.Debug("frame state load failed, starting empty", "error", err)
		} else {
			for g, open := range st.OpenGroups {
				if open {
					m.open[g] = true
				}
			}
			for _, id := range st.KnownURLs {
				m.known[id] = true
			}
		}
	}

	return m
}

// indexGroups replaces the group list and rebuilds the lookup maps. A URL
// appearing in several groups is attributed to the first one, matching the
// menu's rendering order.
func (m *Manager) indexGroups(groups []Group) {
	m.groups = groups
	m.byID = make(map[string]*URL)
	m.groupOf = make(map[string]string)
	for gi := range groups {
		g := &groups[gi]
		for ui := range g.URLs {
			u := &g.URLs[ui]
			if _, seen := m.byID[u.ID]; seen {
				continue
			}
			m.byID[u.ID] = u
			m.groupOf[u.ID] = g.ID
		}
	}
}

// Events returns the ping channel. Every state change sends one
// (non-blocking) ping; subscribers re-read whatever views they render. The
// channel is closed by Dispose.
func (m *Manager) Events() <-chan struct{} { return m.events }

// pingLocked wakes subscribers without ever blocking.
func (m *Manager) pingLocked() {
	if m.closed {
		return
	}
	select {
	case m.events <- struct{}{}:
	default:
	}
}

// persistLocked snapshots open groups and known ids into the store.
// Failures are logged and dropped; persistence is cosmetic.
func (m *Manager) persistLocked() {
	if m.store == nil {
		return
	}
	st := State{
		OpenGroups: make(map[string]bool, len(m.open)),
		KnownURLs:  make([]string, 0, len(m.known)),
	}
	for g, open := range m.open {
		if open {
			st.OpenGroups[g] = true
		}
	}
	for id := range m.known {
		st.KnownURLs = append(st.KnownURLs, id)
	}
	sort.Strings(st.KnownURLs)
	if err := m.store.Save(st); err != nil {
		m.logger.Debug("frame state save failed", "error", err)
	}
}

// Select makes id the active URL. Unknown ids are ignored. Selection never
// touches the loaded set: revealing a frame is the renderer's job, reported
// back via MarkLoaded.
func (m *Manager) Select(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.selectLocked(id)
}

func (m *Manager) selectLocked(id string) {
	if _, ok := m.byID[id]; !ok {
		return
	}
	prev := m.active
	m.active = id
	m.activeGroup = m.groupOf[id]
	m.expandLocked(m.groupOf[id])
	if prev != "" && prev != id {
		m.syncIdleLocked(prev)
	}
	m.syncIdleLocked(id)
	if m.hook != nil {
		go m.hook(id)
	}
	m.pingLocked()
}

// expandLocked opens the group containing the latest selection. Wide
// layouts merge with whatever is already open; narrow layouts keep only the
// active group expanded.
func (m *Manager) expandLocked(groupID string) {
	if groupID == "" {
		return
	}
	changed := false
	if m.narrow {
		for g := range m.open {
			if g != groupID {
				delete(m.open, g)
				changed = true
			}
		}
	}
	if !m.open[groupID] {
		m.open[groupID] = true
		changed = true
	}
	if changed {
		m.persistLocked()
	}
}

// MarkLoaded records that the renderer instantiated the frame for id. The
// id also joins the persisted known set. External URLs never have frames,
// so marking one is a no-op.
func (m *Manager) MarkLoaded(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	u, ok := m.byID[id]
	if !ok || u.OpenExternal {
		return
	}
	changed := false
	if !m.loaded[id] {
		m.loaded[id] = true
		changed = true
	}
	if !m.known[id] {
		m.known[id] = true
		m.persistLocked()
		changed = true
	}
	m.syncIdleLocked(id)
	if changed {
		m.pingLocked()
	}
}

// Unload drops id from the loaded set, freeing its frame. The active
// selection is untouched, so unloading the shown URL yields
// StatusActiveUnloaded. Unloading an unloaded or unknown id is a no-op.
func (m *Manager) Unload(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if m.unloadLocked(id) {
		m.pingLocked()
	}
}

func (m *Manager) unloadLocked(id string) bool {
	if !m.loaded[id] {
		return false
	}
	delete(m.loaded, id)
	m.syncIdleLocked(id)
	return true
}

// Reload advances the frame generation for id, telling the renderer to tear
// the frame down and build a fresh one. The loaded set and the active
// selection are untouched. Unknown and external ids are ignored.
func (m *Manager) Reload(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	u, ok := m.byID[id]
	if !ok || u.OpenExternal {
		return
	}
	m.gen[id]++
	m.pingLocked()
}

// FrameGen returns the current frame generation for id. Renderers key frame
// elements on it so a bump forces a rebuild.
func (m *Manager) FrameGen(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen[id]
}

// Click resolves a click on id: the active URL reloads, anything else gets
// selected, and external URLs open outside. The first click inside the
// post-long-press cooldown is swallowed and consumes the cooldown.
func (m *Manager) Click(id string) ClickResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ClickResult{Action: ActionNone}
	}
	if m.clock.Now().Before(m.suppressUntil) {
		m.suppressUntil = time.Time{}
		return ClickResult{Action: ActionSuppressed}
	}
	u, ok := m.byID[id]
	if !ok {
		return ClickResult{Action: ActionNone}
	}
	if u.OpenExternal {
		return ClickResult{Action: ActionOpenExternal, URL: u}
	}
	if m.active == id {
		return ClickResult{Action: ActionReload, URL: u}
	}
	m.selectLocked(id)
	return ClickResult{Action: ActionSelect, URL: u}
}

// PointerDown arms the long-press timer for a loaded URL. Pressing an
// unloaded URL does nothing: there is no frame to unload.
func (m *Manager) PointerDown(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if _, ok := m.byID[id]; !ok {
		return
	}
	if !m.loaded[id] {
		return
	}
	if _, armed := m.presses[id]; armed {
		return
	}
	p := &press{started: m.clock.Now()}
	p.timer = m.clock.AfterFunc(LongPressDuration, func() { m.firePress(id) })
	p.tick = m.clock.AfterFunc(pressTickInterval, func() { m.pressTick(id) })
	m.presses[id] = p
	m.pingLocked()
}

// PointerUp releases a press before the threshold; the gesture falls
// through to an ordinary click.
func (m *Manager) PointerUp(id string) { m.cancelPress(id) }

// PointerLeave cancels a press when the pointer drags off the control.
func (m *Manager) PointerLeave(id string) { m.cancelPress(id) }

// TouchStart arms the long-press timer, exactly like PointerDown. It exists
// for binding layers that deliver touch events separately.
func (m *Manager) TouchStart(id string) { m.PointerDown(id) }

// TouchEnd releases a press, exactly like PointerUp.
func (m *Manager) TouchEnd(id string) { m.cancelPress(id) }

// TouchCancel releases a press when the platform steals the touch.
func (m *Manager) TouchCancel(id string) { m.cancelPress(id) }

func (m *Manager) cancelPress(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.presses[id]
	if !ok {
		return
	}
	p.timer.Stop()
	p.tick.Stop()
	delete(m.presses, id)
	m.pingLocked()
}

// firePress runs when a long-press timer expires. The press is disarmed
// first, so a racing cancel or second expiry finds nothing to do.
func (m *Manager) firePress(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	p, ok := m.presses[id]
	if !ok {
		return
	}
	p.tick.Stop()
	delete(m.presses, id)
	if !m.unloadLocked(id) {
		// The frame disappeared while the press was held (idle timeout or
		// an explicit unload); nothing fired, so no cooldown either.
		m.pingLocked()
		return
	}
	m.suppressUntil = m.clock.Now().Add(ClickSuppressWindow)
	m.pingLocked()
}

// pressTick keeps subscribers animating while a press is armed.
func (m *Manager) pressTick(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	p, ok := m.presses[id]
	if !ok {
		return
	}
	p.tick = m.clock.AfterFunc(pressTickInterval, func() { m.pressTick(id) })
	m.pingLocked()
}

// PressProgress reports how far along the long-press threshold the armed
// press on id is, in [0,1]. It is 0 whenever no press is armed, including
// immediately after a cancel or a completed unload.
func (m *Manager) PressProgress(id string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.presses[id]
	if !ok {
		return 0
	}
	f := float64(m.clock.Now().Sub(p.started)) / float64(LongPressDuration)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// syncIdleLocked arms or disarms the idle-unload timer for id. A frame
// idles out only while it is loaded, not shown, and its URL carries an idle
// timeout.
func (m *Manager) syncIdleLocked(id string) {
	u, ok := m.byID[id]
	if !ok || u.IdleTimeout <= 0 {
		return
	}
	shouldRun := m.loaded[id] && m.active != id
	t, running := m.idles[id]
	switch {
	case shouldRun && !running:
		m.idles[id] = m.clock.AfterFunc(u.IdleTimeout, func() { m.idleExpire(id) })
	case !shouldRun && running:
		t.Stop()
		delete(m.idles, id)
	}
}

func (m *Manager) idleExpire(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	delete(m.idles, id)
	if m.active == id {
		return
	}
	if m.unloadLocked(id) {
		m.logger.Debug("frame idled out", "url", id)
		m.pingLocked()
	}
}

// ToggleGroup flips the expanded state of one menu group. Unknown groups
// are ignored.
func (m *Manager) ToggleGroup(groupID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if !m.groupExistsLocked(groupID) {
		return
	}
	if m.open[groupID] {
		delete(m.open, groupID)
	} else {
		m.open[groupID] = true
	}
	m.persistLocked()
	m.pingLocked()
}

// SelectGroup changes the top-menu group selection. It only applies while
// no URL is active; once something is selected the active group always
// follows the selection.
func (m *Manager) SelectGroup(groupID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if m.active != "" || !m.groupExistsLocked(groupID) {
		return
	}
	if m.activeGroup == groupID {
		return
	}
	m.activeGroup = groupID
	m.pingLocked()
}

func (m *Manager) groupExistsLocked(groupID string) bool {
	for i := range m.groups {
		if m.groups[i].ID == groupID {
			return true
		}
	}
	return false
}

// SetNarrow switches the menu layout rule at runtime (viewport changes).
// The collapse-others rule applies from the next selection on.
func (m *Manager) SetNarrow(narrow bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.narrow == narrow {
		return
	}
	m.narrow = narrow
	m.pingLocked()
}

// SetGroups replaces the group list after the source data changed. Loaded
// frames, presses, and idle timers for URLs that no longer exist are
// dropped; a vanished active URL leaves nothing selected.
func (m *Manager) SetGroups(groups []Group) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.indexGroups(groups)
	for id := range m.loaded {
		if _, ok := m.byID[id]; !ok {
			delete(m.loaded, id)
		}
	}
	for id := range m.gen {
		if _, ok := m.byID[id]; !ok {
			delete(m.gen, id)
		}
	}
	for id, p := range m.presses {
		if _, ok := m.byID[id]; !ok {
			p.timer.Stop()
			p.tick.Stop()
			delete(m.presses, id)
		}
	}
	for id, t := range m.idles {
		if _, ok := m.byID[id]; !ok {
			t.Stop()
			delete(m.idles, id)
		}
	}
	if m.active != "" {
		if _, ok := m.byID[m.active]; !ok {
			m.active = ""
		}
	}
	if !m.groupExistsLocked(m.activeGroup) {
		m.activeGroup = ""
		if len(m.groups) > 0 {
			m.activeGroup = m.groups[0].ID
		}
	}
	m.pingLocked()
}

// Status derives the display status for id from the current selection and
// loaded set.
func (m *Manager) Status(id string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return DeriveStatus(id, m.active, m.loaded)
}

// ActiveURLID returns the id of the shown URL, or "" when nothing has been
// selected yet.
func (m *Manager) ActiveURLID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// ActiveGroupID returns the group owning the active URL; before any
// selection it is the first group, or whatever SelectGroup chose.
func (m *Manager) ActiveGroupID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != "" {
		return m.groupOf[m.active]
	}
	return m.activeGroup
}

// OpenGroups returns a copy of the expanded-group set.
func (m *Manager) OpenGroups() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool, len(m.open))
	for g, open := range m.open {
		if open {
			out[g] = true
		}
	}
	return out
}

// Loaded reports whether id currently has a frame instantiated.
func (m *Manager) Loaded(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded[id]
}

// URLView is one URL prepared for rendering.
type URLView struct {
	URL      URL
	Status   Status
	Known    bool
	Pressing bool
	Progress float64
	Gen      int
}

// GroupView is one menu group prepared for rendering.
type GroupView struct {
	ID     string
	Name   string
	Open   bool
	Active bool // contains the active URL
	URLs   []URLView
}

// View is a consistent snapshot of everything the renderer needs.
type View struct {
	Groups        []GroupView
	ActiveURLID   string
	ActiveGroupID string
	Narrow        bool
}

// View assembles a snapshot under a single lock acquisition.
func (m *Manager) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	v := View{
		ActiveURLID: m.active,
		Narrow:      m.narrow,
	}
	if m.active != "" {
		v.ActiveGroupID = m.groupOf[m.active]
	} else {
		v.ActiveGroupID = m.activeGroup
	}
	v.Groups = make([]GroupView, 0, len(m.groups))
	for gi := range m.groups {
		g := &m.groups[gi]
		gv := GroupView{
			ID:     g.ID,
			Name:   g.Name,
			Open:   m.open[g.ID],
			Active: g.ID == v.ActiveGroupID && m.active != "",
			URLs:   make([]URLView, 0, len(g.URLs)),
		}
		for ui := range g.URLs {
			u := g.URLs[ui]
			uv := URLView{
				URL:    u,
				Status: DeriveStatus(u.ID, m.active, m.loaded),
				Known:  m.known[u.ID],
				Gen:    m.gen[u.ID],
			}
			if p, armed := m.presses[u.ID]; armed {
				uv.Pressing = true
				f := float64(now.Sub(p.started)) / float64(LongPressDuration)
				if f < 0 {
					f = 0
				}
				if f > 1 {
					f = 1
				}
				uv.Progress = f
			}
			gv.URLs = append(gv.URLs, uv)
		}
		v.Groups = append(v.Groups, gv)
	}
	return v
}

// LoadedURLs returns the URLs whose frames are currently instantiated, in
// menu order. The renderer keeps exactly these frames mounted.
func (m *Manager) LoadedURLs() []URL {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []URL
	seen := make(map[string]bool, len(m.loaded))
	for gi := range m.groups {
		g := &m.groups[gi]
		for ui := range g.URLs {
			u := g.URLs[ui]
			if m.loaded[u.ID] && !seen[u.ID] {
				out = append(out, u)
				seen[u.ID] = true
			}
		}
	}
	return out
}

// FrameView is one mounted frame prepared for rendering.
type FrameView struct {
	URL    URL
	Gen    int
	Active bool
}

// Frames returns a render snapshot of the loaded set in menu order. Only the
// Active frame is shown; the rest stay mounted but hidden.
func (m *Manager) Frames() []FrameView {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []FrameView
	seen := make(map[string]bool, len(m.loaded))
	for gi := range m.groups {
		g := &m.groups[gi]
		for ui := range g.URLs {
			u := g.URLs[ui]
			if m.loaded[u.ID] && !seen[u.ID] {
				out = append(out, FrameView{URL: u, Gen: m.gen[u.ID], Active: m.active == u.ID})
				seen[u.ID] = true
			}
		}
	}
	return out
}

// Dispose stops every timer and closes the event channel. Further calls on
// the manager are no-ops. Dispose is idempotent.
func (m *Manager) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for id, p := range m.presses {
		p.timer.Stop()
		p.tick.Stop()
		delete(m.presses, id)
	}
	for id, t := range m.idles {
		t.Stop()
		delete(m.idles, id)
	}
	close(m.events)
}
