package tickets

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/BearBump/OrderSync/internal/integrations/jira"
	"github.com/BearBump/OrderSync/internal/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	ticketsmocks "github.com/BearBump/OrderSync/internal/services/tickets/mocks"
)

type ClientSuite struct {
	suite.Suite

	tracker *ticketsmocks.MockTracker
	client  *Client
}

func (s *ClientSuite) SetupTest() {
	s.tracker = &ticketsmocks.MockTracker{FieldKeys: jira.KeysFor(1)}
	s.client = New(s.tracker, "11400")
}

func reporterErr() error {
	return &jira.APIError{StatusCode: 400, FieldErrors: map[string]string{"reporter": "invalid"}}
}

func payloads(n int) []models.TicketPayload {
	out := make([]models.TicketPayload, n)
	for i := range out {
		out[i] = models.TicketPayload{Fields: models.TicketFields{OrderNumber: "42", Reporter: "acc-1"}}
	}
	return out
}

func (s *ClientSuite) TestCreateBatch_RejectsBeforeAnyCall() {
	_, err := s.client.CreateBatch(context.Background(), nil)
	s.Require().ErrorIs(err, ErrEmptyBatch)

	_, err = s.client.CreateBatch(context.Background(), payloads(51))
	s.Require().ErrorIs(err, ErrBatchTooLarge)

	s.tracker.AssertNotCalled(s.T(), "BulkCreate", mock.Anything, mock.Anything)
}

func (s *ClientSuite) TestCreateBatch_FiftyProceeds() {
	in := payloads(50)
	s.tracker.On("BulkCreate", mock.Anything, in).Return([]string{"NDP-1"}, nil).Once()

	keys, err := s.client.CreateBatch(context.Background(), in)
	s.Require().NoError(err)
	s.Require().Equal([]string{"NDP-1"}, keys)
	s.tracker.AssertExpectations(s.T())
}

func (s *ClientSuite) TestCreateBatch_ReporterRetryStripsOnCopies() {
	in := payloads(2)
	stripped := []models.TicketPayload{in[0].WithoutReporter(), in[1].WithoutReporter()}
	s.tracker.On("BulkCreate", mock.Anything, in).Return(nil, reporterErr()).Once()
	s.tracker.On("BulkCreate", mock.Anything, stripped).Return([]string{"NDP-1", "NDP-2"}, nil).Once()

	keys, err := s.client.CreateBatch(context.Background(), in)
	s.Require().NoError(err)
	s.Require().Len(keys, 2)
	s.Require().Equal("acc-1", in[0].Fields.Reporter)
	s.tracker.AssertExpectations(s.T())
}

func (s *ClientSuite) TestCreateBatch_ReporterRetryBoundedToTwoAttempts() {
	s.tracker.On("BulkCreate", mock.Anything, mock.Anything).Return(nil, reporterErr())

	_, err := s.client.CreateBatch(context.Background(), payloads(3))
	s.Require().Error(err)
	s.Require().True(jira.IsReporterRejected(err))
	s.tracker.AssertNumberOfCalls(s.T(), "BulkCreate", 2)
}

func (s *ClientSuite) TestCreateBatch_OtherErrorsAreNotRetried() {
	s.tracker.On("BulkCreate", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	_, err := s.client.CreateBatch(context.Background(), payloads(1))
	s.Require().Error(err)
	s.tracker.AssertNumberOfCalls(s.T(), "BulkCreate", 1)
}

func (s *ClientSuite) TestUpdate_ReporterRetry() {
	p := payloads(1)[0]
	s.tracker.On("UpdateIssue", mock.Anything, "7", p).Return(reporterErr()).Once()
	s.tracker.On("UpdateIssue", mock.Anything, "7", p.WithoutReporter()).Return(nil).Once()

	s.Require().NoError(s.client.Update(context.Background(), "7", p))
	s.tracker.AssertExpectations(s.T())
}

func (s *ClientSuite) TestSearch_ErrorsBecomeEmpty() {
	s.tracker.On("Search", mock.Anything, "bad", 10, false).Return(nil, errors.New("decode response")).Once()
	s.tracker.On("Search", mock.Anything, "none", 10, false).Return(&jira.SearchResult{}, nil).Once()

	out := s.client.Search(context.Background(), "bad", 10, false)
	s.Require().NotNil(out)
	s.Require().Empty(out)
	s.Require().Empty(s.client.Search(context.Background(), "none", 10, false))
}

func (s *ClientSuite) TestFindAllByOrder_PagedFifty() {
	raw := map[string]json.RawMessage{
		"customfield_11104": json.RawMessage(`"Photos"`),
		"status":            json.RawMessage(`{"name":"Scheduled"}`),
	}
	s.tracker.On("Search", mock.Anything, jira.OrderTicketsJQL("42", "11400"), 50, true).
		Return(&jira.SearchResult{Issues: []jira.Issue{{ID: "1", Key: "NDP-1", Fields: raw}}}, nil).Once()

	out := s.client.FindAllByOrder(context.Background(), "42")
	s.Require().Len(out, 1)
	s.Require().Equal("Photos", out[0].Fields.Service)
	s.Require().Equal("Scheduled", out[0].Status)
}

func (s *ClientSuite) TestFindUserByEmail() {
	s.tracker.On("FindUserByEmail", mock.Anything, "a@x.io").Return(&jira.User{AccountID: "acc-9"}, nil).Once()
	s.tracker.On("FindUserByEmail", mock.Anything, "b@x.io").Return(nil, nil).Once()

	id, ok, err := s.client.FindUserByEmail(context.Background(), "a@x.io")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Require().Equal("acc-9", id)

	_, ok, err = s.client.FindUserByEmail(context.Background(), "b@x.io")
	s.Require().NoError(err)
	s.Require().False(ok)
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func TestTransitionFor(t *testing.T) {
	cases := map[string]string{
		"Scheduled":      "231",
		"ACKNOWLEDGED":   "241",
		"At Listing":     "241",
		"shoot complete": "321",
	}
	for status, want := range cases {
		got, ok := TransitionFor(status)
		if !ok || got != want {
			t.Fatalf("TransitionFor(%q) = %q, %v; want %q", status, got, ok, want)
		}
	}
	if _, ok := TransitionFor("Final Review"); ok {
		t.Fatal("final review must not be cancellable")
	}
}
