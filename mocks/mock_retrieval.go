package mocks

import (
	"context"

	"massdownloader/internal/application/ports"
	"massdownloader/internal/domain/entity/artifact"
	"massdownloader/internal/domain/entity/outcome"

	"github.com/stretchr/testify/mock"
)

// MockLocator is a mock implementation of ports.Locator
type MockLocator struct {
	mock.Mock
}

func (m *MockLocator) Locate(path string) (artifact.Descriptor, error) {
	args := m.Called(path)
	return args.Get(0).(artifact.Descriptor), args.Error(1)
}

// MockFetcher is a mock implementation of ports.Fetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchPDB(ctx context.Context, desc artifact.Descriptor, destDir string) (*artifact.FetchedPDB, error) {
	args := m.Called(ctx, desc, destDir)
	if pdb, ok := args.Get(0).(*artifact.FetchedPDB); ok {
		return pdb, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockSourceExtractor is a mock implementation of ports.SourceExtractor
type MockSourceExtractor struct {
	mock.Mock
}

func (m *MockSourceExtractor) Extract(ctx context.Context, pdbPath string, opts ports.ExtractOptions) error {
	args := m.Called(ctx, pdbPath, opts)
	return args.Error(0)
}

// MockConsentGate is a mock implementation of ports.ConsentGate
type MockConsentGate struct {
	mock.Mock
}

func (m *MockConsentGate) RequestConsent(ctx context.Context, req ports.ConsentRequest) (bool, error) {
	args := m.Called(ctx, req)
	return args.Bool(0), args.Error(1)
}

// MockSourceFileHandler is a mock implementation of ports.SourceFileHandler
type MockSourceFileHandler struct {
	mock.Mock
}

func (m *MockSourceFileHandler) SourceFileDone(event ports.SourceFileEvent) {
	m.Called(event)
}

// MockDiagnostics is a mock implementation of ports.Diagnostics
type MockDiagnostics struct {
	mock.Mock
}

func (m *MockDiagnostics) Downloading(input string) {
	m.Called(input)
}

func (m *MockDiagnostics) Skipped(input string) {
	m.Called(input)
}

func (m *MockDiagnostics) Failed(input string, kind outcome.Kind, err error) {
	m.Called(input, kind, err)
}

func (m *MockDiagnostics) SourceFileFailed(input string, event ports.SourceFileEvent) {
	m.Called(input, event)
}

func (m *MockDiagnostics) SourceFileDownloaded(event ports.SourceFileEvent) {
	m.Called(event)
}

func (m *MockDiagnostics) ConsentDeclined() {
	m.Called()
}

func (m *MockDiagnostics) Report(stats outcome.Statistics) {
	m.Called(stats)
}

// NewQuietDiagnostics returns a MockDiagnostics that accepts any call
func NewQuietDiagnostics() *MockDiagnostics {
	m := &MockDiagnostics{}
	m.On("Downloading", mock.Anything).Maybe()
	m.On("Skipped", mock.Anything).Maybe()
	m.On("Failed", mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("SourceFileFailed", mock.Anything, mock.Anything).Maybe()
	m.On("SourceFileDownloaded", mock.Anything).Maybe()
	m.On("ConsentDeclined").Maybe()
	m.On("Report", mock.Anything).Maybe()
	return m
}
