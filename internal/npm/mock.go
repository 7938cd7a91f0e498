package npm

import "context"

// MockRegistry is a Registry backed by a map of published versions.
type MockRegistry struct {
	Versions map[string]string
	Err      error
}

// Verify MockRegistry implements Registry.
var _ Registry = (*MockRegistry)(nil)

func (m *MockRegistry) PublishedVersion(_ context.Context, name string) (string, bool, error) {
	if m.Err != nil {
		return "", false, m.Err
	}
	v, ok := m.Versions[name]
	return v, ok, nil
}

// MockPublisher is a Publisher whose behaviour is provided as a function.
type MockPublisher struct {
	PublishFn func(ctx context.Context, dir string) error
}

// Verify MockPublisher implements Publisher.
var _ Publisher = (*MockPublisher)(nil)

func (m *MockPublisher) Publish(ctx context.Context, dir string) error {
	if m.PublishFn != nil {
		return m.PublishFn(ctx, dir)
	}
	return nil
}
