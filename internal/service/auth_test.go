package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/neristhub/campushub/internal/apperror"
	"github.com/neristhub/campushub/internal/auth"
	"github.com/neristhub/campushub/internal/model"
)

// mockUserRepo is an in-memory repository.UserRepository. Keeping the mock
// hand-written makes the behavior under test obvious, and lets individual
// tests inject errors.
type mockUserRepo struct {
	users  map[string]*model.User // keyed by ID
	nextID int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, existing := range m.users {
		if existing.RegistrationNumber == user.RegistrationNumber {
			return apperror.ValidationFailed("registrationNumber", "registration number already exists")
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	user.CreatedAt = time.Now()
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *user
	return &result, nil
}

func (m *mockUserRepo) GetByRegistration(_ context.Context, registration string) (*model.User, error) {
	for _, user := range m.users {
		if user.RegistrationNumber == registration {
			result := *user
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", registration)
}

func (m *mockUserRepo) GetByResetToken(_ context.Context, token string) (*model.User, error) {
	for _, user := range m.users {
		if user.ResetToken == token && user.ResetTokenExpiry.After(time.Now()) {
			result := *user
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", "reset token")
}

func (m *mockUserRepo) SetResetToken(_ context.Context, id, token string, expiry time.Time) error {
	user, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	user.ResetToken = token
	user.ResetTokenExpiry = expiry
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	user, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	user.PasswordHash = passwordHash
	user.ResetToken = ""
	user.ResetTokenExpiry = time.Time{}
	return nil
}

func (m *mockUserRepo) ListIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	return ids, nil
}

func newAuthService(users *mockUserRepo) (*AuthService, *auth.SessionStore) {
	sessions := auth.NewSessionStore(time.Hour)
	svc := NewAuthService(
		users,
		auth.NewPasswordServiceForTest(),
		sessions,
		5*time.Minute,
		slog.New(slog.DiscardHandler),
	)
	return svc, sessions
}

func validRegistration() RegisterInput {
	return RegisterInput{
		RegistrationNumber: "225/88",
		Name:               "Asha",
		Password:           "secret123",
		SecurityCode:       "bluewhale",
		SecurityCodeHint:   "favorite animal",
		Email:              "asha@example.com",
	}
}

func TestRegister(t *testing.T) {
	users := newMockUserRepo()
	svc, _ := newAuthService(users)

	in := validRegistration()
	in.RegistrationNumber = "225 088" // messy input, should normalize

	user, err := svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.RegistrationNumber != "225/88" {
		t.Errorf("RegistrationNumber = %q, want normalized 225/88", user.RegistrationNumber)
	}
	if user.PasswordHash == "secret123" || user.PasswordHash == "" {
		t.Error("password was not hashed")
	}
	if user.SecurityCodeHash == "bluewhale" || user.SecurityCodeHash == "" {
		t.Error("security code was not hashed")
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
	}{
		{"missing name", func(in *RegisterInput) { in.Name = "" }},
		{"short password", func(in *RegisterInput) { in.Password = "abc" }},
		{"short security code", func(in *RegisterInput) { in.SecurityCode = "ab" }},
		{"malformed registration", func(in *RegisterInput) { in.RegistrationNumber = "banana" }},
		{"unissued registration", func(in *RegisterInput) { in.RegistrationNumber = "999/1" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newAuthService(newMockUserRepo())
			in := validRegistration()
			tt.mutate(&in)

			_, err := svc.Register(context.Background(), in)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Register() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	users := newMockUserRepo()
	svc, _ := newAuthService(users)

	if _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	_, err := svc.Register(context.Background(), validRegistration())
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("duplicate Register() error = %v, want ErrValidation", err)
	}
}

func TestLogin(t *testing.T) {
	users := newMockUserRepo()
	svc, sessions := newAuthService(users)
	if _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result, err := svc.Login(context.Background(), "225-88", "secret123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.Token == "" {
		t.Fatal("Login() returned no token")
	}
	if result.User.RegistrationNumber != "225/88" {
		t.Errorf("User.RegistrationNumber = %q", result.User.RegistrationNumber)
	}

	userID, ok := sessions.Resolve(result.Token)
	if !ok || userID != result.User.ID {
		t.Errorf("token resolves to (%q, %v), want (%q, true)", userID, ok, result.User.ID)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	users := newMockUserRepo()
	svc, _ := newAuthService(users)
	if _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Wrong password and unknown registration must be indistinguishable.
	_, errWrongPass := svc.Login(context.Background(), "225/88", "wrong")
	_, errNoUser := svc.Login(context.Background(), "225/87", "secret123")

	for _, err := range []error{errWrongPass, errNoUser} {
		if !errors.Is(err, apperror.ErrUnauthenticated) {
			t.Errorf("Login() error = %v, want ErrUnauthenticated", err)
		}
	}
	if errWrongPass.Error() != errNoUser.Error() {
		t.Errorf("error messages differ: %q vs %q (leaks which credential failed)",
			errWrongPass.Error(), errNoUser.Error())
	}
}

func TestLogout(t *testing.T) {
	users := newMockUserRepo()
	svc, sessions := newAuthService(users)
	if _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	result, err := svc.Login(context.Background(), "225/88", "secret123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	svc.Logout(result.Token)

	if _, ok := sessions.Resolve(result.Token); ok {
		t.Error("token still resolves after Logout()")
	}
}

func TestValidateRegistration(t *testing.T) {
	svc, _ := newAuthService(newMockUserRepo())

	tests := []struct {
		input         string
		wantValid     bool
		wantFormatted string
	}{
		{"225/88", true, "225/88"},
		{"225 088", true, "225/88"},
		{"225-88", true, "225/88"},
		{"999/1", false, ""},
		{"banana", false, ""},
		{"", false, ""},
	}
	for _, tt := range tests {
		check := svc.ValidateRegistration(tt.input)
		if check.Valid != tt.wantValid {
			t.Errorf("ValidateRegistration(%q).Valid = %v, want %v", tt.input, check.Valid, tt.wantValid)
		}
		if tt.wantValid && check.Formatted != tt.wantFormatted {
			t.Errorf("ValidateRegistration(%q).Formatted = %q, want %q", tt.input, check.Formatted, tt.wantFormatted)
		}
	}
}

func TestVerifyRegistration(t *testing.T) {
	users := newMockUserRepo()
	svc, _ := newAuthService(users)
	if _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	hint, err := svc.VerifyRegistration(context.Background(), "225 88")
	if err != nil {
		t.Fatalf("VerifyRegistration() error = %v", err)
	}
	if !hint.Exists || hint.Hint != "favorite animal" {
		t.Errorf("VerifyRegistration() = %+v, want exists with the stored hint", hint)
	}

	missing, err := svc.VerifyRegistration(context.Background(), "225/87")
	if err != nil {
		t.Fatalf("VerifyRegistration() error = %v", err)
	}
	if missing.Exists {
		t.Error("VerifyRegistration() reported a nonexistent account")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	users := newMockUserRepo()
	svc, _ := newAuthService(users)
	if _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Wrong security code gets no token.
	if _, err := svc.VerifySecurityCode(context.Background(), "225/88", "wrong"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("VerifySecurityCode(wrong code) error = %v, want ErrValidation", err)
	}

	token, err := svc.VerifySecurityCode(context.Background(), "225/88", "bluewhale")
	if err != nil {
		t.Fatalf("VerifySecurityCode() error = %v", err)
	}
	if token == "" {
		t.Fatal("VerifySecurityCode() returned an empty token")
	}

	if err := svc.ResetPassword(context.Background(), token, "newsecret"); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}

	// New password works, old one does not.
	if _, err := svc.Login(context.Background(), "225/88", "newsecret"); err != nil {
		t.Errorf("Login() with new password error = %v", err)
	}
	if _, err := svc.Login(context.Background(), "225/88", "secret123"); err == nil {
		t.Error("Login() with old password still succeeds")
	}

	// The token is single-use.
	if err := svc.ResetPassword(context.Background(), token, "thirdsecret"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("second ResetPassword() error = %v, want ErrValidation", err)
	}
}

func TestResetPassword_Validation(t *testing.T) {
	svc, _ := newAuthService(newMockUserRepo())

	if err := svc.ResetPassword(context.Background(), "", "newsecret"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("ResetPassword(no token) error = %v, want ErrValidation", err)
	}
	if err := svc.ResetPassword(context.Background(), "sometoken", "short"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("ResetPassword(short password) error = %v, want ErrValidation", err)
	}
	if err := svc.ResetPassword(context.Background(), "unknown-token", "newsecret"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("ResetPassword(unknown token) error = %v, want ErrValidation", err)
	}
}

func TestVerifySecurityCode_UnknownUser(t *testing.T) {
	svc, _ := newAuthService(newMockUserRepo())

	_, err := svc.VerifySecurityCode(context.Background(), "225/88", "whatever")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("VerifySecurityCode() error = %v, want ErrNotFound", err)
	}
}
