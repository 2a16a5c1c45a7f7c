package mocks

import (
	"context"

	"github.com/BearBump/OrderSync/internal/integrations/jira"
	"github.com/BearBump/OrderSync/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockTracker is a testify mock of tickets.Tracker.
type MockTracker struct {
	mock.Mock
	FieldKeys jira.FieldKeys
}

func (m *MockTracker) BulkCreate(ctx context.Context, payloads []models.TicketPayload) ([]string, error) {
	args := m.Called(ctx, payloads)
	var keys []string
	if v := args.Get(0); v != nil {
		keys = v.([]string)
	}
	return keys, args.Error(1)
}

func (m *MockTracker) UpdateIssue(ctx context.Context, issueID string, p models.TicketPayload) error {
	return m.Called(ctx, issueID, p).Error(0)
}

func (m *MockTracker) TransitionIssue(ctx context.Context, issueID, transitionID string) error {
	return m.Called(ctx, issueID, transitionID).Error(0)
}

func (m *MockTracker) Search(ctx context.Context, jql string, maxResults int, paged bool) (*jira.SearchResult, error) {
	args := m.Called(ctx, jql, maxResults, paged)
	var res *jira.SearchResult
	if v := args.Get(0); v != nil {
		res = v.(*jira.SearchResult)
	}
	return res, args.Error(1)
}

func (m *MockTracker) LinkIssues(ctx context.Context, linkType, inwardKey, outwardKey string) error {
	return m.Called(ctx, linkType, inwardKey, outwardKey).Error(0)
}

func (m *MockTracker) FindUserByEmail(ctx context.Context, email string) (*jira.User, error) {
	args := m.Called(ctx, email)
	var u *jira.User
	if v := args.Get(0); v != nil {
		u = v.(*jira.User)
	}
	return u, args.Error(1)
}

func (m *MockTracker) Keys() jira.FieldKeys {
	return m.FieldKeys
}
