package testutil

import (
	"context"
	"strconv"
	"sync"

	"github.com/kbukum/docflow/document"
	"github.com/kbukum/docflow/engine"
)

// CountModule emits AdditionalOutputs+1 documents per input. Each output
// increments Value, which persists across executions; the output content is
// the new value and ValueKey (when set) holds it as metadata.
type CountModule struct {
	ValueKey            string
	Value               int
	AdditionalOutputs   int
	EnsureInputDocument bool

	mu           sync.Mutex
	ExecuteCount int
	InputCount   int
	OutputCount  int
}

var _ engine.Module = (*CountModule)(nil)

// NewCountModule creates a CountModule storing its value under valueKey.
func NewCountModule(valueKey string) *CountModule {
	return &CountModule{ValueKey: valueKey}
}

func (m *CountModule) Name() string { return "count" }

func (m *CountModule) Execute(ctx context.Context, _ engine.ExecutionContext, inputs []document.Document) ([]document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ExecuteCount++
	if len(inputs) == 0 && m.EnsureInputDocument {
		inputs = []document.Document{nil}
	}
	var outputs []document.Document
	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.InputCount++
		for range m.AdditionalOutputs + 1 {
			m.Value++
			m.OutputCount++
			var metadata map[string]any
			if m.ValueKey != "" {
				metadata = map[string]any{m.ValueKey: m.Value}
			}
			outputs = append(outputs, document.Derive(input, strconv.Itoa(m.Value), metadata))
		}
	}
	return outputs, nil
}

// Counts returns the execute, input and output counts.
func (m *CountModule) Counts() (executed, inputs, outputs int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ExecuteCount, m.InputCount, m.OutputCount
}

// MockModule is a configurable test module.
// It records calls and returns a preset output or error.
type MockModule struct {
	name   string
	output []document.Document
	err    error
	fn     engine.ModuleFunc

	mu     sync.Mutex
	calls  int
	inputs [][]document.Document
}

var _ engine.Module = (*MockModule)(nil)

// NewMockModule creates a mock module that returns the given output.
// If err is non-nil, the module will fail with that error. A nil output
// passes the inputs through.
func NewMockModule(name string, output []document.Document, err error) *MockModule {
	return &MockModule{name: name, output: output, err: err}
}

// NewMockModuleFunc creates a mock module backed by a custom function.
func NewMockModuleFunc(name string, fn engine.ModuleFunc) *MockModule {
	return &MockModule{name: name, fn: fn}
}

func (m *MockModule) Name() string { return m.name }

func (m *MockModule) Execute(ctx context.Context, ec engine.ExecutionContext, inputs []document.Document) ([]document.Document, error) {
	m.mu.Lock()
	m.calls++
	m.inputs = append(m.inputs, inputs)
	m.mu.Unlock()

	if m.fn != nil {
		return m.fn(ctx, ec, inputs)
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.output == nil {
		return inputs, nil
	}
	return m.output, nil
}

// Calls returns how many times Execute was invoked.
func (m *MockModule) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Inputs returns the inputs of every invocation.
func (m *MockModule) Inputs() [][]document.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]document.Document(nil), m.inputs...)
}

// Reset clears the recorded calls.
func (m *MockModule) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = 0
	m.inputs = nil
}
