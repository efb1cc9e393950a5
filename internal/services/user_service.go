package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"golang.org/x/crypto/bcrypt"

	"marketadmin/internal/domain"
	applog "marketadmin/internal/log"
	"marketadmin/internal/notify"
	"marketadmin/internal/repos"
	"marketadmin/internal/validate"
)

type UserService struct {
	Users  *repos.UserRepo
	Mailer notify.Mailer
	Events notify.Publisher
	Now    func() time.Time
}

func NewUserService(users *repos.UserRepo, mailer notify.Mailer, events notify.Publisher) *UserService {
	return &UserService{Users: users, Mailer: mailer, Events: events, Now: time.Now}
}

type RegisterAgentInput struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Phone    string `json:"phone" form:"phone"`
	Password string `json:"password" form:"password"`
}

func (in *RegisterAgentInput) validate() error {
	v := validate.Errors{}
	in.Name = v.Required("name", in.Name, validate.MaxString)
	if email := v.Required("email", in.Email, validate.MaxString); email != "" {
		if _, ok := validate.Email(email); !ok {
			v.Add("email", "The email field must be a valid email address.")
		}
		in.Email = strings.ToLower(email)
	}
	if phone := v.Required("phone", in.Phone, 32); phone != "" {
		if _, ok := validate.Phone(phone); !ok {
			v.Add("phone", "The phone field format is invalid.")
		}
		in.Phone = phone
	}
	if in.Password == "" {
		v.Add("password", "The password field is required.")
	} else if !validate.Password(in.Password) {
		v.Add("password", fmt.Sprintf("The password field must be between %d and %d characters.", validate.MinPassword, validate.MaxPassword))
	}
	return v.Err()
}

func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.Users.List(ctx)
}

func (s *UserService) ListAgents(ctx context.Context) ([]domain.User, error) {
	return s.Users.ListByRole(ctx, domain.RoleAgent)
}

// RegisterAgent creates an agent account and then sends the verification
// mail. The mail goes out after the commit so no connection is held during
// the send; when it fails the account is deleted again.
func (s *UserService) RegisterAgent(ctx context.Context, in RegisterAgentInput) (*domain.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	h, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Trace(err)
	}
	u := &domain.User{
		ID:    uuid.NewString(),
		Name:  in.Name,
		Email: in.Email,
		Phone: in.Phone,
		Hash:  string(h),
	}
	err = s.Users.CreateWithRole(ctx, u, domain.RoleAgent)
	if repos.IsUniqueViolation(err) {
		v := validate.Errors{}
		v.Taken("email")
		return nil, v
	}
	if err != nil {
		return nil, err
	}

	if err := s.Mailer.SendVerification(ctx, u); err != nil {
		if derr := s.Users.Delete(context.WithoutCancel(ctx), u.ID); derr != nil {
			applog.Error(nil, "users.register.rollback.fail", derr, map[string]any{"user_id": u.ID})
		}
		return nil, errors.Annotate(err, "sending verification")
	}
	return u, nil
}

// DeleteUser removes a non-admin user and returns the role names it held.
func (s *UserService) DeleteUser(ctx context.Context, id string) ([]string, error) {
	u, err := s.Users.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.HasRole(domain.RoleAdmin) {
		return nil, domain.ErrUserNotDeletable
	}
	roles := append([]string{}, u.Roles...)
	if err := s.Users.Delete(ctx, u.ID); err != nil {
		return nil, err
	}
	return roles, nil
}

type VerifyOutcome int

const (
	Verified VerifyOutcome = iota
	AlreadyVerified
)

// VerifyEmail marks the user's email as verified and publishes a
// user.verified event. Users that are already verified are left untouched
// and no event is published. An empty email matches no user.
func (s *UserService) VerifyEmail(ctx context.Context, email string) (VerifyOutcome, error) {
	u, err := s.Users.ByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return 0, err
	}
	if u.HasVerifiedEmail() {
		return AlreadyVerified, nil
	}

	at := s.Now().UTC().Format(time.RFC3339)
	ok, err := s.Users.MarkEmailVerified(ctx, u.ID, at)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrVerificationFailed, err)
	}
	if !ok {
		// Lost a race with a concurrent verification of the same user.
		if fresh, ferr := s.Users.ByID(ctx, u.ID); ferr == nil && fresh.HasVerifiedEmail() {
			return AlreadyVerified, nil
		}
		return 0, domain.ErrVerificationFailed
	}

	ev := notify.VerifiedEvent{UserID: u.ID, Email: u.Email, VerifiedAt: at}
	if err := s.Events.Publish(ctx, notify.TopicUserVerified, ev); err != nil {
		applog.Error(nil, "event.publish.fail", err, map[string]any{"topic": notify.TopicUserVerified, "user_id": u.ID})
	}
	return Verified, nil
}
