package service

import (
	"context"
	"testing"
	"time"

	"github.com/Baaaki/wastetrack/internal/apperr"
	"github.com/Baaaki/wastetrack/internal/models"
	"github.com/Baaaki/wastetrack/internal/repository"
	"github.com/Baaaki/wastetrack/internal/repository/filestore"
	"github.com/Baaaki/wastetrack/internal/utils"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type PersonServiceSuite struct {
	suite.Suite
	ctx     context.Context
	people  repository.PersonRepository
	tokens  utils.TokenConfig
	service *PersonService
}

func (s *PersonServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.people = filestore.NewMemoryStore().People()
	s.tokens = utils.TokenConfig{Secret: "test-secret", Expiry: time.Hour, Issuer: "wastetrack"}
	s.service = NewPersonService(s.people, s.tokens, "test")
}

func managerInput() RegisterInput {
	return RegisterInput{
		EmployeeID: "100200",
		Name:       "Ada Manager",
		Email:      "ada@example.com",
		Password:   "Password123",
		Role:       "Manager",
	}
}

func (s *PersonServiceSuite) TestRegister_Created() {
	outcome, person, err := s.service.Register(s.ctx, managerInput())

	s.Require().NoError(err)
	s.Equal(OutcomeCreated, outcome)
	s.Equal("Success", outcome.Message())
	s.NotEqual("Password123", person.PasswordHash)

	stored, err := s.service.Get(s.ctx, "100200")
	s.Require().NoError(err)
	s.True(stored.IsActive())
	s.Equal(models.RoleManager, stored.Role)
}

func (s *PersonServiceSuite) TestRegister_ActiveDuplicateConflicts() {
	_, _, err := s.service.Register(s.ctx, managerInput())
	s.Require().NoError(err)

	_, _, err = s.service.Register(s.ctx, managerInput())

	s.ErrorIs(err, ErrEmployeeIDTaken)
	s.ErrorIs(err, apperr.ErrConflict)
}

func (s *PersonServiceSuite) TestRegister_ReactivatesInactive() {
	_, _, err := s.service.Register(s.ctx, managerInput())
	s.Require().NoError(err)
	s.Require().NoError(s.service.Delete(s.ctx, "100200"))

	again := managerInput()
	again.Name = "Ada Returned"
	again.Role = "employee"
	again.Password = "NewPassword456"

	outcome, person, err := s.service.Register(s.ctx, again)

	s.Require().NoError(err)
	s.Equal(OutcomeReactivated, outcome)
	s.Equal("Existing inactive user re-registered successfully.", outcome.Message())
	s.True(person.IsActive())

	stored, err := s.service.Get(s.ctx, "100200")
	s.Require().NoError(err)
	s.True(stored.IsActive())
	s.Equal("Ada Returned", stored.Name)
	s.Equal(models.RoleEmployee, stored.Role)

	all, err := s.service.List(s.ctx, nil, nil)
	s.Require().NoError(err)
	s.Len(all, 1, "reactivation must not create a second record")

	_, _, err = s.service.Login(s.ctx, "100200", "NewPassword456")
	s.NoError(err)
}

func (s *PersonServiceSuite) TestRegister_Validation() {
	testCases := []struct {
		name   string
		mutate func(in *RegisterInput)
	}{
		{"five_digit_id", func(in *RegisterInput) { in.EmployeeID = "12345" }},
		{"letter_in_id", func(in *RegisterInput) { in.EmployeeID = "12345a" }},
		{"seven_digit_id", func(in *RegisterInput) { in.EmployeeID = "1234567" }},
		{"blank_name", func(in *RegisterInput) { in.Name = "   " }},
		{"bad_email", func(in *RegisterInput) { in.Email = "not-an-email" }},
		{"short_password", func(in *RegisterInput) { in.Password = "short" }},
		{"unknown_role", func(in *RegisterInput) { in.Role = "Director" }},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			in := managerInput()
			tc.mutate(&in)

			_, _, err := s.service.Register(s.ctx, in)

			s.ErrorIs(err, apperr.ErrValidation)
		})
	}
}

func (s *PersonServiceSuite) TestRegister_DefaultsToEmployee() {
	in := managerInput()
	in.Role = ""

	_, person, err := s.service.Register(s.ctx, in)

	s.Require().NoError(err)
	s.Equal(models.RoleEmployee, person.Role)
}

func (s *PersonServiceSuite) TestLogin() {
	_, _, err := s.service.Register(s.ctx, managerInput())
	s.Require().NoError(err)

	person, token, err := s.service.Login(s.ctx, "100200", "Password123")
	s.Require().NoError(err)
	s.Equal("100200", person.EmployeeID)

	claims, err := utils.ValidateToken(token, s.tokens)
	s.Require().NoError(err)
	s.Equal("100200", claims.EmployeeID)
	s.Equal(models.RoleManager, claims.Role)

	_, _, err = s.service.Login(s.ctx, "100200", "wrong-password")
	s.ErrorIs(err, ErrInvalidCredentials)

	_, _, err = s.service.Login(s.ctx, "999999", "Password123")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *PersonServiceSuite) TestLogin_InactiveRejected() {
	_, _, err := s.service.Register(s.ctx, managerInput())
	s.Require().NoError(err)
	s.Require().NoError(s.service.Delete(s.ctx, "100200"))

	_, _, err = s.service.Login(s.ctx, "100200", "Password123")

	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *PersonServiceSuite) TestLogin_UpgradesLegacyHash() {
	legacy, err := bcrypt.GenerateFromPassword([]byte("LegacyPass1"), bcrypt.MinCost)
	s.Require().NoError(err)

	person, err := models.NewPerson("300300", "Imported", "imported@example.com", models.RoleEmployee)
	s.Require().NoError(err)
	person.PasswordHash = string(legacy)
	s.Require().NoError(s.people.Create(s.ctx, person))

	_, _, err = s.service.Login(s.ctx, "300300", "LegacyPass1")
	s.Require().NoError(err)

	stored, err := s.service.Get(s.ctx, "300300")
	s.Require().NoError(err)
	s.Contains(stored.PasswordHash, "$argon2id$")
}

func (s *PersonServiceSuite) TestUpdate() {
	_, _, err := s.service.Register(s.ctx, managerInput())
	s.Require().NoError(err)
	before, err := s.service.Get(s.ctx, "100200")
	s.Require().NoError(err)

	name := "Ada Lovelace"
	updated, err := s.service.Update(s.ctx, "100200", PersonUpdate{Name: &name})
	s.Require().NoError(err)
	s.Equal("Ada Lovelace", updated.Name)
	s.Equal(before.PasswordHash, updated.PasswordHash, "password kept when not supplied")

	password := "Another123"
	updated, err = s.service.Update(s.ctx, "100200", PersonUpdate{Password: &password})
	s.Require().NoError(err)
	s.NotEqual(before.PasswordHash, updated.PasswordHash)

	role := "boss"
	_, err = s.service.Update(s.ctx, "100200", PersonUpdate{Role: &role})
	s.ErrorIs(err, models.ErrInvalidRole)

	_, err = s.service.Update(s.ctx, "555555", PersonUpdate{Name: &name})
	s.ErrorIs(err, ErrPersonNotFound)
}

func (s *PersonServiceSuite) TestListFilters() {
	_, _, err := s.service.Register(s.ctx, managerInput())
	s.Require().NoError(err)
	employee := managerInput()
	employee.EmployeeID = "100300"
	employee.Role = "Employee"
	_, _, err = s.service.Register(s.ctx, employee)
	s.Require().NoError(err)
	s.Require().NoError(s.service.Delete(s.ctx, "100300"))

	manager := models.RoleManager
	managers, err := s.service.List(s.ctx, &manager, nil)
	s.Require().NoError(err)
	s.Len(managers, 1)

	active := true
	actives, err := s.service.List(s.ctx, nil, &active)
	s.Require().NoError(err)
	s.Require().Len(actives, 1)
	s.Equal("100200", actives[0].EmployeeID)
}

func (s *PersonServiceSuite) TestGet_InvalidID() {
	_, err := s.service.Get(s.ctx, "abc")

	s.ErrorIs(err, models.ErrInvalidEmployeeID)
}

func TestPersonServiceSuite(t *testing.T) {
	suite.Run(t, new(PersonServiceSuite))
}
