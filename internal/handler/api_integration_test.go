package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Baaaki/wastetrack/internal/broker"
	"github.com/Baaaki/wastetrack/internal/handler"
	"github.com/Baaaki/wastetrack/internal/repository"
	"github.com/Baaaki/wastetrack/internal/service"
	"github.com/Baaaki/wastetrack/internal/testutil"
	"github.com/Baaaki/wastetrack/internal/utils"
	"github.com/Baaaki/wastetrack/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

// channelBroker delivers published events to the single subscriber in order.
type channelBroker struct {
	events chan broker.Event
}

func newChannelBroker() *channelBroker {
	return &channelBroker{events: make(chan broker.Event, 16)}
}

func (b *channelBroker) Publish(_ context.Context, event broker.Event) error {
	b.events <- event
	return nil
}

func (b *channelBroker) Subscribe(context.Context) (<-chan broker.Event, error) {
	return b.events, nil
}

func (b *channelBroker) Close() error {
	close(b.events)
	return nil
}

type APIIntegrationTestSuite struct {
	suite.Suite
	testDB *testutil.TestDatabase
	tokens utils.TokenConfig
	events *channelBroker
	feed   *handler.ReportFeed
	people *service.PersonService
	router *gin.Engine
}

func (s *APIIntegrationTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	logger.Init(false)

	s.testDB = testutil.SetupTestDatabase(s.T())
	s.tokens = utils.TokenConfig{Secret: "test-secret-key", Expiry: time.Hour, Issuer: "wastetrack"}
}

func (s *APIIntegrationTestSuite) TearDownSuite() {
	s.testDB.Teardown(s.T())
}

func (s *APIIntegrationTestSuite) SetupTest() {
	testutil.CleanDatabase(s.T(), s.testDB.DB)

	reports := repository.NewReportRepository(s.testDB.DB)
	people := repository.NewPersonRepository(s.testDB.DB)
	s.events = newChannelBroker()
	s.feed = handler.NewReportFeed(s.events, []string{"*"})

	s.people = service.NewPersonService(people, s.tokens, "test")

	s.router = gin.New()
	handler.RegisterRoutes(s.router, handler.Services{
		People:  s.people,
		Reports: service.NewReportService(reports, testutil.FactorTable(), s.events),
		Charts:  service.NewChartService(reports),
	}, handler.RouteOptions{Tokens: s.tokens, Feed: s.feed})
}

func (s *APIIntegrationTestSuite) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *APIIntegrationTestSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func registerBody(employeeID, role string) map[string]string {
	return map[string]string{
		"employeeId": employeeID,
		"name":       "Test " + role,
		"email":      employeeID + "@example.com",
		"password":   "Password123",
		"role":       role,
	}
}

// login registers employeeID with role and returns a bearer token. Managers are created
// through the service, the way the seeder bootstraps the first one.
func (s *APIIntegrationTestSuite) login(employeeID, role string) string {
	if role == "Manager" {
		_, _, err := s.people.Register(context.Background(), service.RegisterInput{
			EmployeeID: employeeID,
			Name:       "Test Manager",
			Email:      employeeID + "@example.com",
			Password:   "Password123",
			Role:       role,
		})
		s.Require().NoError(err)
	} else {
		w := s.do(http.MethodPost, "/api/auth/register", registerBody(employeeID, role), "")
		s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	}

	w := s.do(http.MethodPost, "/api/auth/login", map[string]string{
		"employeeId": employeeID,
		"password":   "Password123",
	}, "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	return s.decode(w)["token"].(string)
}

func paperReport(amount float64) map[string]any {
	return map[string]any{
		"wasteType":               "Paper",
		"wasteProcessingFacility": "Recycling Center",
		"wasteAmount":             amount,
		"wasteDate":               "2024-05-01T10:23:45",
	}
}

func (s *APIIntegrationTestSuite) TestHealth() {
	w := s.do(http.MethodGet, "/health", nil, "")

	s.Equal(http.StatusOK, w.Code)
	s.Equal("ok", s.decode(w)["status"])
}

func (s *APIIntegrationTestSuite) TestRegister_CreatedConflictReactivated() {
	w := s.do(http.MethodPost, "/api/auth/register", registerBody("100200", "Employee"), "")
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	body := s.decode(w)
	s.Equal("Success", body["message"])
	person := body["person"].(map[string]any)
	s.Equal("100200", person["employeeId"])
	s.NotContains(person, "password")

	w = s.do(http.MethodPost, "/api/auth/register", registerBody("100200", "Employee"), "")
	s.Equal(http.StatusConflict, w.Code)

	manager := s.login("900100", "Manager")
	w = s.do(http.MethodDelete, "/api/people/100200", nil, manager)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/auth/register", registerBody("100200", "Employee"), "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("Existing inactive user re-registered successfully.", s.decode(w)["message"])
}

func (s *APIIntegrationTestSuite) TestRegister_ManagerRoleNeedsManager() {
	employee := s.login("100200", "Employee")
	manager := s.login("900100", "Manager")

	testCases := []struct {
		name   string
		role   string
		token  string
		status int
	}{
		{"anonymous_manager", "Manager", "", http.StatusForbidden},
		{"anonymous_lowercase_manager", "manager", "", http.StatusForbidden},
		{"employee_creates_manager", "Manager", employee, http.StatusForbidden},
		{"anonymous_employee", "Employee", "", http.StatusCreated},
		{"manager_creates_manager", "Manager", manager, http.StatusCreated},
	}

	for i, tc := range testCases {
		s.Run(tc.name, func() {
			employeeID := fmt.Sprintf("30000%d", i)
			w := s.do(http.MethodPost, "/api/auth/register", registerBody(employeeID, tc.role), tc.token)
			s.Equal(tc.status, w.Code, w.Body.String())

			_, err := s.people.Get(context.Background(), employeeID)
			if tc.status == http.StatusCreated {
				s.NoError(err)
			} else {
				s.ErrorIs(err, service.ErrPersonNotFound)
			}
		})
	}

	w := s.do(http.MethodGet, "/api/people", nil, manager)
	s.Require().Equal(http.StatusOK, w.Code)
}

func (s *APIIntegrationTestSuite) TestManagerRoutes_FollowStoredAccount() {
	lead := s.login("900100", "Manager")
	demoted := s.login("900200", "Manager")
	removed := s.login("900300", "Manager")

	w := s.do(http.MethodGet, "/api/people", nil, demoted)
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPut, "/api/people/900200", map[string]string{"role": "Employee"}, lead)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	w = s.do(http.MethodDelete, "/api/people/900300", nil, lead)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/people", nil, demoted)
	s.Equal(http.StatusForbidden, w.Code)
	w = s.do(http.MethodGet, "/api/people", nil, removed)
	s.Equal(http.StatusUnauthorized, w.Code)
	w = s.do(http.MethodGet, "/api/people", nil, lead)
	s.Equal(http.StatusOK, w.Code)
}

func (s *APIIntegrationTestSuite) TestRegister_InvalidInput() {
	testCases := []struct {
		name string
		body any
	}{
		{"missing_fields", map[string]string{"employeeId": "100200"}},
		{"bad_employee_id", registerBody("12a456", "Employee")},
		{"unknown_role", registerBody("100200", "Director")},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			w := s.do(http.MethodPost, "/api/auth/register", tc.body, "")
			s.Equal(http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func (s *APIIntegrationTestSuite) TestLogin() {
	s.login("100200", "Employee")

	w := s.do(http.MethodPost, "/api/auth/login", map[string]string{
		"employeeId": "100200",
		"password":   "Password123",
	}, "")
	s.Require().Equal(http.StatusOK, w.Code)

	var tokenCookie *http.Cookie
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "token" {
			tokenCookie = cookie
		}
	}
	s.Require().NotNil(tokenCookie)
	s.True(tokenCookie.HttpOnly)
	s.Equal(http.SameSiteLaxMode, tokenCookie.SameSite)

	w = s.do(http.MethodPost, "/api/auth/login", map[string]string{
		"employeeId": "100200",
		"password":   "WrongPassword",
	}, "")
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/auth/login", map[string]string{
		"employeeId": "999999",
		"password":   "Password123",
	}, "")
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *APIIntegrationTestSuite) TestReports_RequireToken() {
	w := s.do(http.MethodGet, "/api/wastereports", nil, "")

	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *APIIntegrationTestSuite) TestReports_CreateGetDelete() {
	employee := s.login("100200", "Employee")
	manager := s.login("900100", "Manager")

	w := s.do(http.MethodPost, "/api/wastereports", paperReport(4), employee)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	report := s.decode(w)["report"].(map[string]any)
	s.Equal(float64(1), report["id"])
	s.InDelta(1.0, report["co2Emission"], 1e-9)
	s.Equal(true, report["isActive"])

	w = s.do(http.MethodGet, "/api/wastereports/1", nil, employee)
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, "/api/wastereports/1", nil, employee)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, "/api/wastereports/1", nil, manager)
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/wastereports/1", nil, employee)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(false, s.decode(w)["report"].(map[string]any)["isActive"])

	w = s.do(http.MethodGet, "/api/wastereports", nil, employee)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Empty(s.decode(w)["reports"])
}

func (s *APIIntegrationTestSuite) TestReports_ErrorStatuses() {
	employee := s.login("100200", "Employee")

	unknownFacility := paperReport(4)
	unknownFacility["wasteProcessingFacility"] = "Moon Base"
	unknownType := paperReport(4)
	unknownType["wasteType"] = "Glass"
	badDate := paperReport(4)
	badDate["wasteDate"] = "yesterday"
	noAmount := paperReport(4)
	delete(noAmount, "wasteAmount")

	testCases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknown_facility", http.MethodPost, "/api/wastereports", unknownFacility, http.StatusBadRequest},
		{"unknown_type", http.MethodPost, "/api/wastereports", unknownType, http.StatusBadRequest},
		{"bad_date", http.MethodPost, "/api/wastereports", badDate, http.StatusBadRequest},
		{"missing_amount", http.MethodPost, "/api/wastereports", noAmount, http.StatusBadRequest},
		{"negative_amount", http.MethodPost, "/api/wastereports", paperReport(-1), http.StatusBadRequest},
		{"missing_report", http.MethodGet, "/api/wastereports/999", nil, http.StatusNotFound},
		{"bad_id", http.MethodGet, "/api/wastereports/abc", nil, http.StatusBadRequest},
		{"update_missing", http.MethodPut, "/api/wastereports/999", paperReport(1), http.StatusNotFound},
		{"emission_missing", http.MethodGet, "/api/wastereports/co2emission/999", nil, http.StatusNotFound},
		{"facilities_unknown_type", http.MethodGet, "/api/wastereports/facilities?type=Glass", nil, http.StatusBadRequest},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			w := s.do(tc.method, tc.path, tc.body, employee)
			s.Equal(tc.status, w.Code, w.Body.String())
		})
	}
}

func (s *APIIntegrationTestSuite) TestTotalEmission() {
	employee := s.login("100200", "Employee")
	for _, amount := range []float64{4, 8} {
		w := s.do(http.MethodPost, "/api/wastereports", paperReport(amount), employee)
		s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	}

	w := s.do(http.MethodGet, "/api/wastereports/co2emission?startDate=2024-05-01&endDate=2024-05-01", nil, employee)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.InDelta(3.0, s.decode(w)["co2Emission"], 1e-9)

	w = s.do(http.MethodGet, "/api/wastereports/co2emission/2", nil, employee)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.InDelta(2.0, s.decode(w)["co2Emission"], 1e-9)

	w = s.do(http.MethodGet, "/api/wastereports/co2emission?startDate=2024-05-02&endDate=2024-05-01", nil, employee)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *APIIntegrationTestSuite) TestTotalEmission_UTCInputCountsOnLocalDay() {
	saved := time.Local
	time.Local = time.FixedZone("CEST", 2*60*60)
	defer func() { time.Local = saved }()

	employee := s.login("100200", "Employee")
	w := s.do(http.MethodPost, "/api/wastereports", map[string]any{
		"wasteType":               "Metal",
		"wasteProcessingFacility": "Recycling Center",
		"wasteAmount":             10,
		"wasteDate":               "2024-05-01T23:30:00Z",
	}, employee)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/wastereports/co2emission?startDate=2024-05-02&endDate=2024-05-02", nil, employee)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.InDelta(6.0, s.decode(w)["co2Emission"], 1e-9)

	w = s.do(http.MethodGet, "/api/wastereports/co2emission?startDate=2024-05-01&endDate=2024-05-01", nil, employee)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.InDelta(0.0, s.decode(w)["co2Emission"], 1e-9)
}

func (s *APIIntegrationTestSuite) TestPeople_ManagerOnly() {
	employee := s.login("100200", "Employee")
	manager := s.login("900100", "Manager")

	w := s.do(http.MethodGet, "/api/people", nil, employee)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/people?role=Employee", nil, manager)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	people := s.decode(w)["people"].([]any)
	s.Require().Len(people, 1)
	s.Equal("100200", people[0].(map[string]any)["employeeId"])
	s.NotContains(people[0], "password")

	w = s.do(http.MethodGet, "/api/people/555555", nil, manager)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APIIntegrationTestSuite) TestCharts() {
	employee := s.login("100200", "Employee")
	w := s.do(http.MethodPost, "/api/wastereports", paperReport(4), employee)
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, "/api/charts/distribution", nil, employee)
	s.Require().Equal(http.StatusOK, w.Code)
	shares := s.decode(w)["shares"].([]any)
	s.Require().Len(shares, 1)
	s.Equal("Paper", shares[0].(map[string]any)["wasteType"])

	w = s.do(http.MethodGet, "/api/charts/daily?days=3", nil, employee)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Len(s.decode(w)["points"], 3)

	w = s.do(http.MethodGet, "/api/charts/daily?days=0", nil, employee)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *APIIntegrationTestSuite) TestReportFeed_DeliversCreatedReport() {
	employee := s.login("100200", "Employee")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.feed.Run(ctx)

	server := httptest.NewServer(s.router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws/reports?token=" + employee
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	s.Require().NoError(err)
	defer conn.Close()

	s.Eventually(func() bool { return s.feed.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	w := s.do(http.MethodPost, "/api/wastereports", paperReport(4), employee)
	s.Require().Equal(http.StatusCreated, w.Code)

	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	var msg handler.FeedMessage
	s.Require().NoError(conn.ReadJSON(&msg))
	s.Equal("report_event", msg.Type)
	s.Require().NotNil(msg.Event)
	s.Equal(broker.EventReportCreated, msg.Event.Type)
	s.Equal(1, msg.Event.ReportID)
}

func (s *APIIntegrationTestSuite) TestReportFeed_RequiresToken() {
	server := httptest.NewServer(s.router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws/reports"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)

	s.Error(err)
	s.Require().NotNil(resp)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestAPIIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(APIIntegrationTestSuite))
}
