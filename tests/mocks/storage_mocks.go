package mocks

import (
	"io"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/svp-backend/internal/storage"
)

// MockFileStorage implements storage.FileStorage
type MockFileStorage struct {
	mock.Mock
}

// Save stores content under name
func (m *MockFileStorage) Save(name string, content io.Reader) (int64, error) {
	args := m.Called(name, content)
	return args.Get(0).(int64), args.Error(1)
}

// Get retrieves a file by its name
func (m *MockFileStorage) Get(name string) (io.ReadCloser, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// Delete removes a file by its name
func (m *MockFileStorage) Delete(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

// List returns the stored files
func (m *MockFileStorage) List() ([]storage.FileInfo, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.FileInfo), args.Error(1)
}

// Dir returns the storage directory
func (m *MockFileStorage) Dir() string {
	args := m.Called()
	return args.String(0)
}
