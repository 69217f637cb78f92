package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/Baaaki/wastetrack/internal/apperr"
	"github.com/Baaaki/wastetrack/internal/models"
	"github.com/Baaaki/wastetrack/internal/repository"
	"github.com/Baaaki/wastetrack/internal/utils"
	"github.com/Baaaki/wastetrack/pkg/logger"
	"go.uber.org/zap"
)

var (
	ErrEmployeeIDTaken    = apperr.Conflict("an active account with this employee id already exists")
	ErrPersonNotFound     = apperr.NotFound("person not found")
	ErrInvalidCredentials = errors.New("invalid credentials")

	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// RegisterOutcome tells a fresh account apart from a reactivated one. Both are successes.
type RegisterOutcome int

const (
	OutcomeCreated RegisterOutcome = iota + 1
	OutcomeReactivated
)

func (o RegisterOutcome) Message() string {
	if o == OutcomeReactivated {
		return "Existing inactive user re-registered successfully."
	}
	return "Success"
}

type RegisterInput struct {
	EmployeeID string
	Name       string
	Email      string
	Password   string
	Role       string // empty means Employee
}

// PersonUpdate holds the profile fields to change; nil fields are left alone.
type PersonUpdate struct {
	Name     *string
	Email    *string
	Role     *string
	Password *string
}

type PersonService struct {
	people      repository.PersonRepository
	tokens      utils.TokenConfig
	environment string
}

func NewPersonService(people repository.PersonRepository, tokens utils.TokenConfig, environment string) *PersonService {
	return &PersonService{
		people:      people,
		tokens:      tokens,
		environment: environment,
	}
}

// IsProduction returns true if running in production environment
func (s *PersonService) IsProduction() bool {
	return s.environment == "production"
}

// TokenTTL is how long issued tokens stay valid.
func (s *PersonService) TokenTTL() time.Duration {
	return s.tokens.Expiry
}

// Register creates an account, or reactivates a soft-deleted one with the same employee id.
func (s *PersonService) Register(ctx context.Context, input RegisterInput) (RegisterOutcome, *models.Person, error) {
	start := time.Now()
	input.Name = strings.TrimSpace(input.Name)

	logger.Log.Debug("Processing registration",
		zap.String("employee_id", input.EmployeeID),
		zap.String("email", input.Email),
	)

	role, err := s.validateRegisterInput(input)
	if err != nil {
		logger.Log.Warn("Registration validation failed",
			zap.String("employee_id", input.EmployeeID),
			zap.Error(err),
		)
		return 0, nil, err
	}

	existing, err := s.people.GetByEmployeeID(ctx, input.EmployeeID)
	if err != nil {
		logger.Log.Error("Failed to check employee id",
			zap.String("employee_id", input.EmployeeID),
			zap.Error(err),
		)
		return 0, nil, err
	}
	if existing != nil && existing.IsActive() {
		logger.Log.Warn("Employee id already registered",
			zap.String("employee_id", input.EmployeeID),
		)
		return 0, nil, ErrEmployeeIDTaken
	}

	hashStart := time.Now()
	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		logger.Log.Error("Failed to hash password",
			zap.Error(err),
		)
		return 0, nil, err
	}
	hashDuration := time.Since(hashStart)

	if existing != nil {
		existing.Name = input.Name
		existing.Email = input.Email
		existing.Role = role
		existing.PasswordHash = hashedPassword
		existing.Status = models.StatusActive
		existing.UpdatedAt = time.Now()

		if err := s.people.Save(ctx, existing); err != nil {
			logger.Log.Error("Failed to reactivate account",
				zap.String("employee_id", input.EmployeeID),
				zap.Error(err),
			)
			return 0, nil, err
		}

		logger.Log.Info("Inactive account reactivated",
			zap.String("employee_id", existing.EmployeeID),
			zap.String("role", string(role)),
			zap.Duration("hash_duration", hashDuration),
			zap.Duration("total_duration", time.Since(start)),
		)
		return OutcomeReactivated, existing, nil
	}

	person, err := models.NewPerson(input.EmployeeID, input.Name, input.Email, role)
	if err != nil {
		return 0, nil, err
	}
	person.PasswordHash = hashedPassword
	now := time.Now()
	person.CreatedAt = now
	person.UpdatedAt = now

	if err := s.people.Create(ctx, person); err != nil {
		logger.Log.Error("Failed to create account",
			zap.String("employee_id", input.EmployeeID),
			zap.Error(err),
		)
		return 0, nil, err
	}

	logger.Log.Info("Account registered",
		zap.String("employee_id", person.EmployeeID),
		zap.String("role", string(role)),
		zap.Duration("hash_duration", hashDuration),
		zap.Duration("total_duration", time.Since(start)),
	)

	return OutcomeCreated, person, nil
}

// Login checks credentials of an active account and issues a token. Inactive and unknown
// accounts get the same error as a wrong password.
func (s *PersonService) Login(ctx context.Context, employeeID, password string) (*models.Person, string, error) {
	start := time.Now()

	logger.Log.Debug("Processing login",
		zap.String("employee_id", employeeID),
	)

	person, err := s.people.GetByEmployeeID(ctx, employeeID)
	if err != nil {
		logger.Log.Error("Failed to load account",
			zap.String("employee_id", employeeID),
			zap.Error(err),
		)
		return nil, "", err
	}
	if person == nil || !person.IsActive() {
		logger.Log.Warn("Login failed: no active account",
			zap.String("employee_id", employeeID),
		)
		return nil, "", ErrInvalidCredentials
	}

	verifyStart := time.Now()
	valid, err := utils.VerifyPassword(password, person.PasswordHash)
	if err != nil {
		logger.Log.Error("Failed to verify password",
			zap.String("employee_id", employeeID),
			zap.Error(err),
		)
		return nil, "", err
	}
	verifyDuration := time.Since(verifyStart)

	if !valid {
		logger.Log.Warn("Login failed: invalid password",
			zap.String("employee_id", employeeID),
		)
		return nil, "", ErrInvalidCredentials
	}

	if utils.NeedsRehash(person.PasswordHash) {
		s.upgradeHash(ctx, person, password)
	}

	token, err := utils.GenerateToken(person, s.tokens)
	if err != nil {
		logger.Log.Error("Failed to generate JWT token",
			zap.String("employee_id", employeeID),
			zap.Error(err),
		)
		return nil, "", err
	}

	logger.Log.Info("Login successful",
		zap.String("employee_id", employeeID),
		zap.String("role", string(person.Role)),
		zap.Duration("password_verify_duration", verifyDuration),
		zap.Duration("total_duration", time.Since(start)),
	)

	return person, token, nil
}

// upgradeHash replaces a legacy hash after a successful login. Failure only costs a retry
// on the next login.
func (s *PersonService) upgradeHash(ctx context.Context, person *models.Person, password string) {
	hashed, err := utils.HashPassword(password)
	if err != nil {
		logger.Log.Warn("Failed to rehash legacy password", zap.Error(err))
		return
	}
	person.PasswordHash = hashed
	if err := s.people.Save(ctx, person); err != nil {
		logger.Log.Warn("Failed to store upgraded password hash",
			zap.String("employee_id", person.EmployeeID),
			zap.Error(err),
		)
		return
	}
	logger.Log.Info("Upgraded legacy password hash",
		zap.String("employee_id", person.EmployeeID),
	)
}

// List returns every account matching the optional role and status filters.
func (s *PersonService) List(ctx context.Context, role *models.Role, active *bool) ([]models.Person, error) {
	people, err := s.people.List(ctx, repository.PersonFilter{Role: role, Active: active})
	if err != nil {
		logger.Log.Error("Failed to list people", zap.Error(err))
		return nil, err
	}
	return people, nil
}

func (s *PersonService) Get(ctx context.Context, employeeID string) (*models.Person, error) {
	if err := models.ValidateEmployeeID(employeeID); err != nil {
		return nil, err
	}
	person, err := s.people.GetByEmployeeID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if person == nil {
		return nil, ErrPersonNotFound
	}
	return person, nil
}

// Update changes profile fields. The password is rehashed only when a new one is supplied.
func (s *PersonService) Update(ctx context.Context, employeeID string, update PersonUpdate) (*models.Person, error) {
	person, err := s.Get(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if err := validateName(name); err != nil {
			return nil, err
		}
		person.Name = name
	}
	if update.Email != nil {
		if err := validateEmail(*update.Email); err != nil {
			return nil, err
		}
		person.Email = *update.Email
	}
	if update.Role != nil {
		role, err := models.ParseRole(*update.Role)
		if err != nil {
			return nil, err
		}
		person.Role = role
	}
	if update.Password != nil {
		if err := validatePassword(*update.Password); err != nil {
			return nil, err
		}
		hashed, err := utils.HashPassword(*update.Password)
		if err != nil {
			return nil, err
		}
		person.PasswordHash = hashed
	}
	person.UpdatedAt = time.Now()

	if err := s.people.Save(ctx, person); err != nil {
		logger.Log.Error("Failed to update person",
			zap.String("employee_id", employeeID),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Log.Info("Person updated",
		zap.String("employee_id", employeeID),
	)

	return person, nil
}

// Delete deactivates the account. Registering the same employee id again reactivates it.
func (s *PersonService) Delete(ctx context.Context, employeeID string) error {
	person, err := s.Get(ctx, employeeID)
	if err != nil {
		return err
	}

	person.Status = models.StatusInactive
	person.UpdatedAt = time.Now()

	if err := s.people.Save(ctx, person); err != nil {
		logger.Log.Error("Failed to deactivate person",
			zap.String("employee_id", employeeID),
			zap.Error(err),
		)
		return err
	}

	logger.Log.Info("Person deactivated",
		zap.String("employee_id", employeeID),
	)

	return nil
}

func (s *PersonService) validateRegisterInput(input RegisterInput) (models.Role, error) {
	if err := models.ValidateEmployeeID(input.EmployeeID); err != nil {
		return "", err
	}
	if err := validateName(input.Name); err != nil {
		return "", err
	}
	if err := validateEmail(input.Email); err != nil {
		return "", err
	}
	if err := validatePassword(input.Password); err != nil {
		return "", err
	}

	if input.Role == "" {
		return models.RoleEmployee, nil
	}
	return models.ParseRole(input.Role)
}

func validateName(name string) error {
	if name == "" {
		return apperr.Validation("name is required")
	}
	if len(name) > 100 {
		return apperr.Validation("name must be at most 100 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return apperr.Validation("invalid email format")
	}
	if len(email) > 100 {
		return apperr.Validation("email too long")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return apperr.Validation("password must be at least 8 characters")
	}
	if len(password) > 128 {
		return apperr.Validation("password too long")
	}
	return nil
}
