package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"teamdns/internal/dns/handler/mocks"
	"teamdns/internal/dns/models"
	"teamdns/internal/registrar"
	id "teamdns/pkg/domain"
	dErrors "teamdns/pkg/domain-errors"
	"teamdns/pkg/testutil"
)

type DNSHandlerSuite struct {
	suite.Suite
	mockService *mocks.MockService
	router      chi.Router
	principal   id.UserID
}

func TestDNSHandlerSuite(t *testing.T) {
	suite.Run(t, new(DNSHandlerSuite))
}

func (s *DNSHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.T().Cleanup(ctrl.Finish)
	s.mockService = mocks.NewMockService(ctrl)
	s.principal = id.NewUserID()

	s.router = chi.NewRouter()
	New(s.mockService, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *DNSHandlerSuite) authed(req *http.Request) *http.Request {
	return testutil.WithAuth(req, s.principal, "jti", time.Now().Add(time.Hour))
}

func (s *DNSHandlerSuite) do(req *http.Request) int {
	return testutil.DoRequest(s.router, s.authed(req)).Code
}

func (s *DNSHandlerSuite) TestListDomains() {
	teamID := id.NewTeamID()
	s.mockService.EXPECT().ListDomains(gomock.Any(), s.principal).Return([]*models.Domain{
		{ID: id.NewDomainID(), Name: "example.com", TeamID: teamID},
	}, nil)

	rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/domains")))
	testutil.AssertStatusOK(s.T(), rr)
	resp := *testutil.UnmarshalResponse[[]models.DomainResponse](s.T(), rr)
	s.Require().Len(resp, 1)
	s.Equal(teamID.String(), resp[0].TeamID)
}

func (s *DNSHandlerSuite) TestGetDomain() {
	s.mockService.EXPECT().GetDomain(gomock.Any(), s.principal, "example.com").Return(&models.DomainDetails{
		Domain:    &models.Domain{ID: id.NewDomainID(), Name: "example.com", TeamID: id.NewTeamID()},
		Registrar: &registrar.Domain{Name: "example.com", Nameservers: []string{"ns1.name.com"}},
		Records:   []registrar.Record{{ID: 3, Name: "www", Type: "A", Content: "1.2.3.4", TTL: 3600}},
	}, nil)

	rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/domains/example.com")))
	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[models.DomainDetailResponse](s.T(), rr)
	s.Equal(1, resp.RecordCount)
	s.Equal("1.2.3.4", resp.Records[0].Content)
	s.Require().NotNil(resp.Registrar)
}

func (s *DNSHandlerSuite) TestCreateRecord() {
	s.Run("created", func() {
		ttl := 300
		s.mockService.EXPECT().CreateRecord(gomock.Any(), s.principal, "example.com", &models.CreateRecordRequest{
			Name: "www", Type: "A", Content: "1.2.3.4", TTL: &ttl,
		}).Return(&registrar.Record{ID: 11, DomainName: "example.com", Name: "www", Type: "A", Content: "1.2.3.4", TTL: 300}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/domains/example.com/records", map[string]any{
			"name": "www", "type": "A", "content": "1.2.3.4", "ttl": 300,
		})
		rr := testutil.DoRequest(s.router, s.authed(req))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[models.RecordResponse](s.T(), rr)
		s.Equal(int64(11), resp.ID)
		s.Nil(resp.Priority)
	})

	s.Run("forbidden", func() {
		s.mockService.EXPECT().CreateRecord(gomock.Any(), s.principal, "example.org", gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "not a member of the team that owns this domain"))
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/domains/example.org/records", map[string]any{
			"name": "www", "type": "A", "content": "1.2.3.4",
		})
		s.Equal(http.StatusForbidden, s.do(req))
	})

	s.Run("upstream failure hides detail", func() {
		s.mockService.EXPECT().CreateRecord(gomock.Any(), s.principal, "example.com", gomock.Any()).
			Return(nil, dErrors.Wrap(&registrar.Error{Op: "create_record", Status: 502, Message: "bad gateway"}, dErrors.CodeUpstream, "registrar request failed"))
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/domains/example.com/records", map[string]any{
			"name": "www", "type": "A", "content": "1.2.3.4",
		})
		rr := testutil.DoRequest(s.router, s.authed(req))
		testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
		s.NotContains(rr.Body.String(), "bad gateway")
	})
}

func (s *DNSHandlerSuite) TestUpdateRecordPassesSparsePatch() {
	ttl := 60
	s.mockService.EXPECT().UpdateRecord(gomock.Any(), s.principal, "example.com", int64(7), &models.UpdateRecordRequest{TTL: &ttl}).
		Return(&registrar.Record{ID: 7, Type: "A", Content: "1.2.3.4", TTL: 60}, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/domains/example.com/records/7", map[string]any{"ttl": 60})
	rr := testutil.DoRequest(s.router, s.authed(req))
	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[models.RecordResponse](s.T(), rr)
	s.Equal("1.2.3.4", resp.Content)
}

func (s *DNSHandlerSuite) TestRecordIDValidation() {
	s.Equal(http.StatusBadRequest, s.do(testutil.NewRequest(s.T(), http.MethodGet, "/domains/example.com/records/abc")))
	s.Equal(http.StatusBadRequest, s.do(testutil.NewRequest(s.T(), http.MethodDelete, "/domains/example.com/records/0")))
}

func (s *DNSHandlerSuite) TestGetAndDeleteRecord() {
	s.mockService.EXPECT().GetRecord(gomock.Any(), s.principal, "example.com", int64(5)).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "record not found"))
	s.mockService.EXPECT().DeleteRecord(gomock.Any(), s.principal, "example.com", int64(5)).Return(nil)

	s.Equal(http.StatusNotFound, s.do(testutil.NewRequest(s.T(), http.MethodGet, "/domains/example.com/records/5")))
	s.Equal(http.StatusNoContent, s.do(testutil.NewRequest(s.T(), http.MethodDelete, "/domains/example.com/records/5")))
}

func (s *DNSHandlerSuite) TestListRecords() {
	s.mockService.EXPECT().ListRecords(gomock.Any(), s.principal, "example.com").
		Return([]registrar.Record{{ID: 1, Type: "MX", Content: "mx.example.com", TTL: 3600}}, nil)

	rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/domains/example.com/records")))
	testutil.AssertStatusOK(s.T(), rr)
	resp := *testutil.UnmarshalResponse[[]models.RecordResponse](s.T(), rr)
	s.Len(resp, 1)
}

func (s *DNSHandlerSuite) TestTeamDomainRoutes() {
	teamID := id.NewTeamID()
	base := "/teams/" + teamID.String() + "/domains"

	s.Run("attach", func() {
		s.mockService.EXPECT().AttachDomain(gomock.Any(), s.principal, teamID, &models.AttachDomainRequest{Name: "example.com"}).
			Return(&models.Domain{ID: id.NewDomainID(), Name: "example.com", TeamID: teamID}, nil)
		s.Equal(http.StatusCreated, s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, base, map[string]string{"name": "example.com"})))
	})

	s.Run("attach conflict", func() {
		s.mockService.EXPECT().AttachDomain(gomock.Any(), s.principal, teamID, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "domain is already owned by another team"))
		s.Equal(http.StatusBadRequest, s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, base, map[string]string{"name": "example.org"})))
	})

	s.Run("list", func() {
		s.mockService.EXPECT().ListTeamDomains(gomock.Any(), s.principal, teamID).Return([]*models.Domain{}, nil)
		s.Equal(http.StatusOK, s.do(testutil.NewRequest(s.T(), http.MethodGet, base)))
	})

	s.Run("detach", func() {
		s.mockService.EXPECT().DetachDomain(gomock.Any(), s.principal, teamID, "example.com").Return(nil)
		s.Equal(http.StatusNoContent, s.do(testutil.NewRequest(s.T(), http.MethodDelete, base+"/example.com")))
	})

	s.Run("bad team id", func() {
		s.Equal(http.StatusBadRequest, s.do(testutil.NewRequest(s.T(), http.MethodGet, "/teams/nope/domains")))
	})
}
