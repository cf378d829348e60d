package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gdc-multiomics-manifest/internal/domain"
	"github.com/gdc-multiomics-manifest/internal/store"
)

type MockBuilder struct {
	mock.Mock
}

func (m *MockBuilder) Build(ctx context.Context, req domain.BuildRequest) (*domain.BuildResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BuildResult), args.Error(1)
}

type MockRunReader struct {
	mock.Mock
}

func (m *MockRunReader) GetRun(ctx context.Context, runID string) (*store.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Run), args.Error(1)
}

func (m *MockRunReader) ListRuns(ctx context.Context, limit, offset int) ([]*store.Run, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Run), args.Error(1)
}

func (m *MockRunReader) GetManifest(ctx context.Context, runID string) (*domain.Manifest, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Manifest), args.Error(1)
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestHandleBuildManifest(t *testing.T) {
	logger, _ := test.NewNullLogger()
	builder := &MockBuilder{}
	builder.On("Build", mock.Anything, domain.BuildRequest{Project: "TCGA-BRCA", OutputPath: "out.csv"}).
		Return(&domain.BuildResult{
			RunID:      "run-1",
			Project:    "TCGA-BRCA",
			CohortSize: 97,
			RowCount:   97,
			OutputPath: "out.csv",
			Duration:   1500 * time.Millisecond,
		}, nil)
	s := NewServer(builder, nil, logger)

	result, out, err := s.handleBuildManifest(context.Background(), nil, BuildManifestParams{Project: "TCGA-BRCA", OutputPath: "out.csv"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, textOf(t, result), "Total patients with all modalities: 97")
	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, 97, out.CohortSize)
	assert.Equal(t, "1.5s", out.Duration)
	builder.AssertExpectations(t)
}

func TestHandleBuildManifest_Failure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	builder := &MockBuilder{}
	builder.On("Build", mock.Anything, mock.Anything).Return(nil, &domain.IncompleteCohortSourceError{
		Missing: []domain.Modality{domain.ModalityMut},
		Cause:   errors.New("status 500"),
	})
	s := NewServer(builder, nil, logger)

	result, out, err := s.handleBuildManifest(context.Background(), nil, BuildManifestParams{})
	require.NoError(t, err, "tool failures are reported in the result")
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), domain.ErrIncompleteCohortSource)
	assert.Empty(t, out.RunID)
}

func TestHandleListRuns(t *testing.T) {
	logger, _ := test.NewNullLogger()
	runs := &MockRunReader{}
	runs.On("ListRuns", mock.Anything, 100, 0).Return([]*store.Run{
		{ID: "run-2", Project: "TCGA-BRCA", Status: store.RunStatusSucceeded, CohortSize: 97},
		{ID: "run-1", Project: "TCGA-BRCA", Status: store.RunStatusFailed},
	}, nil)
	s := NewServer(&MockBuilder{}, runs, logger)

	result, out, err := s.handleListRuns(context.Background(), nil, ListRunsParams{Limit: 500})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	require.Len(t, out.Runs, 2)
	assert.Contains(t, textOf(t, result), "run-2 TCGA-BRCA succeeded cohort_size=97")
	runs.AssertExpectations(t)
}

func TestHandleListRuns_DefaultLimit(t *testing.T) {
	logger, _ := test.NewNullLogger()
	runs := &MockRunReader{}
	runs.On("ListRuns", mock.Anything, 20, 0).Return([]*store.Run{}, nil)
	s := NewServer(&MockBuilder{}, runs, logger)

	result, out, err := s.handleListRuns(context.Background(), nil, ListRunsParams{})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Empty(t, out.Runs)
	runs.AssertExpectations(t)
}

func TestHandleListRuns_NoStore(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := NewServer(&MockBuilder{}, nil, logger)

	result, _, err := s.handleListRuns(context.Background(), nil, ListRunsParams{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "no run store configured")
}
