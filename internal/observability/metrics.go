package observability

import "sync"

// Metrics provides basic in-memory counters for manager operations.
type Metrics struct {
	mu       sync.Mutex
	opCount  map[string]int64
	errCount map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		opCount:  make(map[string]int64),
		errCount: make(map[string]int64),
	}
}

// RecordOperation increments the counter for a completed operation.
func (m *Metrics) RecordOperation(component, op string) {
	if m == nil {
		return
	}
	key := component + "|" + op
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opCount[key]++
}

// RecordError increments the counter for a failed operation.
func (m *Metrics) RecordError(component, op, code string) {
	if m == nil {
		return
	}
	key := component + "|" + op + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errCount[key]++
}

// OperationCount returns the current counter for an operation.
func (m *Metrics) OperationCount(component, op string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opCount[component+"|"+op]
}

// ErrorCount returns the current counter for a failure.
func (m *Metrics) ErrorCount(component, op, code string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errCount[component+"|"+op+"|"+code]
}
