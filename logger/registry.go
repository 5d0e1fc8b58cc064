package logger

import "sync"

var (
	namedMu sync.RWMutex
	named   = make(map[string]*Logger)
)

// Register makes l the logger returned by Get(name).
func Register(name string, l *Logger) {
	namedMu.Lock()
	defer namedMu.Unlock()
	named[name] = l
}

// Get returns the logger registered under name, or the global logger tagged
// with name as its component.
func Get(name string) *Logger {
	namedMu.RLock()
	l, ok := named[name]
	namedMu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

// Reset drops every registered logger.
func Reset() {
	namedMu.Lock()
	defer namedMu.Unlock()
	clear(named)
}
