// Package mocks provides mock implementations for testing
package mocks

import (
	"massdownloader/internal/application/ports"

	"github.com/stretchr/testify/mock"
)

// MockLogger is a mock implementation of ports.Logger
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Info(msg string, fields ...interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Error(msg string, fields ...interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) WithFields(fields map[string]interface{}) ports.Logger {
	args := m.Called(fields)
	if logger, ok := args.Get(0).(ports.Logger); ok {
		return logger
	}
	return m
}

// NewQuietLogger returns a MockLogger that accepts any call
func NewQuietLogger() *MockLogger {
	m := &MockLogger{}
	m.On("Info", mock.Anything, mock.Anything).Maybe()
	m.On("Error", mock.Anything, mock.Anything).Maybe()
	m.On("WithFields", mock.Anything).Return(nil).Maybe()
	return m
}

// MockMetrics is a mock implementation of ports.Metrics
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) IncrementCounter(name string, tags map[string]string) {
	m.Called(name, tags)
}

func (m *MockMetrics) AddCounter(name string, value float64, tags map[string]string) {
	m.Called(name, value, tags)
}

func (m *MockMetrics) RecordHistogram(name string, value float64, tags map[string]string) {
	m.Called(name, value, tags)
}

func (m *MockMetrics) RecordGauge(name string, value float64, tags map[string]string) {
	m.Called(name, value, tags)
}

func (m *MockMetrics) WithTags(tags map[string]string) ports.Metrics {
	args := m.Called(tags)
	if metrics, ok := args.Get(0).(ports.Metrics); ok {
		return metrics
	}
	return m
}

// NewQuietMetrics returns a MockMetrics that accepts any call
func NewQuietMetrics() *MockMetrics {
	m := &MockMetrics{}
	m.On("IncrementCounter", mock.Anything, mock.Anything).Maybe()
	m.On("AddCounter", mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("RecordHistogram", mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("RecordGauge", mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("WithTags", mock.Anything).Return(nil).Maybe()
	return m
}

// MockObservability is a mock implementation of ports.Observability
type MockObservability struct {
	mock.Mock
}

func (m *MockObservability) ComponentsScoped(component string) (ports.Logger, ports.Metrics, error) {
	args := m.Called(component)
	return args.Get(0).(ports.Logger), args.Get(1).(ports.Metrics), args.Error(2)
}

func (m *MockObservability) LoggerScoped(component string) (ports.Logger, error) {
	args := m.Called(component)
	return args.Get(0).(ports.Logger), args.Error(1)
}

// NewQuietObservability hands out quiet loggers and metrics for any component
func NewQuietObservability() *MockObservability {
	logger := NewQuietLogger()
	metrics := NewQuietMetrics()

	m := &MockObservability{}
	m.On("ComponentsScoped", mock.Anything).Return(logger, metrics, nil).Maybe()
	m.On("LoggerScoped", mock.Anything).Return(logger, nil).Maybe()
	return m
}
