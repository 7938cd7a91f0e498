package git

import "context"

// MockClient is a Client whose methods are provided as functions.
type MockClient struct {
	ListTagsFn func(ctx context.Context) ([]string, error)
	LogFn      func(ctx context.Context, sinceTag string) ([]Commit, error)
}

// Verify MockClient implements Client.
var _ Client = (*MockClient)(nil)

func (m *MockClient) ListTags(ctx context.Context) ([]string, error) {
	if m.ListTagsFn != nil {
		return m.ListTagsFn(ctx)
	}
	return nil, nil
}

func (m *MockClient) Log(ctx context.Context, sinceTag string) ([]Commit, error) {
	if m.LogFn != nil {
		return m.LogFn(ctx, sinceTag)
	}
	return nil, nil
}
