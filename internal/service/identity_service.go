package service

import (
	"context"
	"strings"
	"time"

	"blogapi/internal/cache"
	"blogapi/internal/mail"
	"blogapi/internal/models"
	"blogapi/internal/observability"
	"blogapi/internal/repository"
	"blogapi/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const invalidCredentials = "No active account found with the given credentials"

// IdentityDeps wires an IdentityService.
type IdentityDeps struct {
	Tx                repository.Transactor
	Users             repository.UserRepository
	VerificationCodes repository.CodeRepository[*models.VerificationCode]
	ResetCodes        repository.CodeRepository[*models.PasswordResetCode]
	Follows           repository.FollowRepository
	Mailer            mail.Mailer
	FrontendURL       string
	CodeTTL           time.Duration
	BcryptCost        int
	AfterCommit       AfterCommit
	Now               func() time.Time
}

// IdentityService owns registration, verification codes, password resets and profiles.
type IdentityService struct {
	tx          repository.Transactor
	users       repository.UserRepository
	verifyCodes repository.CodeRepository[*models.VerificationCode]
	resetCodes  repository.CodeRepository[*models.PasswordResetCode]
	follows     repository.FollowRepository
	mailer      mail.Mailer
	frontendURL string
	codeTTL     time.Duration
	bcryptCost  int
	afterCommit AfterCommit
	now         func() time.Time
}

// NewIdentityService returns an IdentityService. Zero-valued optional deps get defaults.
func NewIdentityService(d IdentityDeps) *IdentityService {
	s := &IdentityService{
		tx:          d.Tx,
		users:       d.Users,
		verifyCodes: d.VerificationCodes,
		resetCodes:  d.ResetCodes,
		follows:     d.Follows,
		mailer:      d.Mailer,
		frontendURL: d.FrontendURL,
		codeTTL:     d.CodeTTL,
		bcryptCost:  d.BcryptCost,
		afterCommit: d.AfterCommit,
		now:         d.Now,
	}
	if s.codeTTL <= 0 {
		s.codeTTL = models.DefaultCodeTTL
	}
	if s.bcryptCost == 0 {
		s.bcryptCost = bcrypt.DefaultCost
	}
	if s.afterCommit == nil {
		s.afterCommit = RunAsync
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.mailer == nil {
		s.mailer = mail.NewLogMailer("")
	}
	return s
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	Password2 string
	Name      string
	IP        string
}

// RegisterResult reports a successful registration.
type RegisterResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

// VerifyResult reports the outcome of redeeming a verification code.
type VerifyResult struct {
	Verified bool   `json:"verified"`
	Message  string `json:"message"`
}

// UpdateProfileInput carries the editable profile fields. Nil fields are left unchanged.
type UpdateProfileInput struct {
	Username *string
	Name     *string
}

// Register creates an inactive account and emails its first verification code.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)

	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewFieldValidationError("username", err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewFieldValidationError("email", err.Error())
	}
	if in.Name == "" {
		in.Name = validation.DefaultName(in.Email)
	}
	if err := validation.ValidateName(in.Name); err != nil {
		return nil, models.NewFieldValidationError("name", err.Error())
	}
	if err := validation.ValidatePasswordPair(in.Password, in.Password2); err != nil {
		return nil, models.NewFieldValidationError("password", err.Error())
	}

	existing, err := s.users.FindByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.IsActive {
			return nil, models.NewConflictError("An account for that user already exists and is already verified, please log in.")
		}
		if err := s.sendVerification(ctx, existing); err != nil {
			return nil, err
		}
		return nil, models.NewConflictError("An account for that user already exists and is inactive. A new verification code has been sent.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Name:     in.Name,
		Password: string(hash),
	}
	var code *models.VerificationCode
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		code = &models.VerificationCode{UserID: user.ID, CodeWindow: models.NewCodeWindow(s.now(), s.codeTTL)}
		return s.verifyCodes.Create(ctx, code)
	})
	if err != nil {
		return nil, err
	}

	s.emailVerification(ctx, user, code)
	if in.IP != "" {
		userID, ip := user.ID, in.IP
		s.afterCommit(ctx, "record_ip", func(ctx context.Context) error {
			return s.users.UpdateFields(ctx, userID, map[string]any{"last_ip": ip})
		})
	}

	return &RegisterResult{
		Success: true,
		Message: "Registration successful. A verification code has been sent to your email.",
		User:    user,
	}, nil
}

// Verify redeems a verification code and activates its account.
func (s *IdentityService) Verify(ctx context.Context, code string) (*VerifyResult, error) {
	vc, err := s.verifyCodes.ByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	if vc.User == nil {
		return nil, models.NewNotFoundMessage("Invalid verification code.")
	}
	if vc.User.IsActive {
		return &VerifyResult{Verified: true, Message: "Your account is already verified."}, nil
	}

	now := s.now()
	if vc.Expired(now) {
		if err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			vc.Rotate(now, s.codeTTL)
			return s.verifyCodes.SaveWindow(ctx, vc)
		}); err != nil {
			return nil, err
		}
		observability.CodesRotatedTotal.WithLabelValues(mail.TemplateVerification).Inc()
		s.emailVerification(ctx, vc.User, vc)
		return nil, models.NewExpiredError("The verification code has expired. A new code has been sent to your email.")
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		vc.Expire(now)
		if err := s.verifyCodes.SaveWindow(ctx, vc); err != nil {
			return err
		}
		return s.users.UpdateFields(ctx, vc.UserID, map[string]any{"is_active": true})
	})
	if err != nil {
		return nil, err
	}
	return &VerifyResult{Verified: true, Message: "Your account has been verified."}, nil
}

// ResendVerification emails the current verification code of an inactive account.
func (s *IdentityService) ResendVerification(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", models.NewNotFoundMessage("No user found with provided email.")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return "", models.NewUnauthorizedError("Invalid credentials.")
	}
	if user.IsActive {
		return "", models.NewConflictError("Your account is already verified.")
	}
	if err := s.sendVerification(ctx, user); err != nil {
		return "", err
	}
	return "A new verification code has been sent to your email.", nil
}

// SendPasswordReset emails a password reset code.
func (s *IdentityService) SendPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", models.NewNotFoundMessage("No user found with provided email.")
	}

	var code *models.PasswordResetCode
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		code, err = issueCode(ctx, s.resetCodes, user.ID, s.now(), s.codeTTL, mail.TemplatePasswordReset,
			func() *models.PasswordResetCode { return &models.PasswordResetCode{UserID: user.ID} })
		return err
	})
	if err != nil {
		return "", err
	}
	s.emailPasswordReset(ctx, user, code)
	return "A password reset code has been sent to your email.", nil
}

// ResetPassword redeems a reset code and replaces the account password.
func (s *IdentityService) ResetPassword(ctx context.Context, code, password, password2 string) (string, error) {
	if err := validation.ValidatePasswordPair(password, password2); err != nil {
		return "", models.NewFieldValidationError("password", err.Error())
	}
	rc, err := s.resetCodes.ByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return "", err
	}
	if rc.User == nil {
		return "", models.NewNotFoundMessage("Invalid password reset code.")
	}

	now := s.now()
	if rc.Expired(now) {
		if err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			rc.Rotate(now, s.codeTTL)
			return s.resetCodes.SaveWindow(ctx, rc)
		}); err != nil {
			return "", err
		}
		observability.CodesRotatedTotal.WithLabelValues(mail.TemplatePasswordReset).Inc()
		s.emailPasswordReset(ctx, rc.User, rc)
		return "", models.NewExpiredError("The password reset code has expired. A new code has been sent to your email.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.UpdateFields(ctx, rc.UserID, map[string]any{"password": string(hash)}); err != nil {
			return err
		}
		return s.resetCodes.ExpireAll(ctx, rc.UserID, now)
	})
	if err != nil {
		return "", err
	}
	return "Your password has been reset.", nil
}

// Login checks credentials of an active account. Token issuance is left to the caller.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, models.NewUnauthorizedError(invalidCredentials)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, models.NewUnauthorizedError(invalidCredentials)
	}
	return user, nil
}

// Profile returns the actor's own profile.
func (s *IdentityService) Profile(ctx context.Context, userID uint) (*models.UserProfile, error) {
	user, err := activeActor(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	return s.withCounts(ctx, user)
}

// PublicProfile returns another user's profile without private fields.
func (s *IdentityService) PublicProfile(ctx context.Context, pubID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := cache.Aside(ctx, cache.PublicProfileKey(pubID), &profile, cache.ProfileTTL, func() error {
		user, err := s.users.GetByPubID(ctx, pubID)
		if err != nil {
			return err
		}
		if !user.IsActive {
			return models.NewNotFoundMessage("No user found with provided pub id.")
		}
		p, err := s.withCounts(ctx, user)
		if err != nil {
			return err
		}
		profile = *p
		profile.Email = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile edits the actor's username and display name.
func (s *IdentityService) UpdateProfile(ctx context.Context, actorID uint, in UpdateProfileInput) (*models.UserProfile, error) {
	user, err := activeActor(ctx, s.users, actorID)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]any, 2)
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewFieldValidationError("username", err.Error())
		}
		taken, err := s.users.UsernameTaken(ctx, username, user.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, models.NewConflictError("A user with that username already exists.")
		}
		fields["username"] = username
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validation.ValidateName(name); err != nil {
			return nil, models.NewFieldValidationError("name", err.Error())
		}
		fields["name"] = name
	}

	if err := s.users.UpdateFields(ctx, user.ID, fields); err != nil {
		return nil, err
	}
	cache.InvalidateProfile(ctx, user.PubID)
	return s.Profile(ctx, user.ID)
}

// Deactivate soft deletes the actor's account. Authored posts keep their author.
func (s *IdentityService) Deactivate(ctx context.Context, actorID uint, confirmed bool) (string, error) {
	if !confirmed {
		return "", models.NewFieldValidationError("confirm", "Please confirm that you want to delete your account.")
	}
	user, err := activeActor(ctx, s.users, actorID)
	if err != nil {
		return "", err
	}
	if err := s.users.UpdateFields(ctx, user.ID, map[string]any{"is_active": false}); err != nil {
		return "", err
	}
	cache.InvalidateProfile(ctx, user.PubID)
	return "Your account has been deleted.", nil
}

func (s *IdentityService) withCounts(ctx context.Context, user *models.User) (*models.UserProfile, error) {
	followers, following, err := s.follows.Counts(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &models.UserProfile{User: *user, FollowersCount: followers, FollowingCount: following}, nil
}

// sendVerification reissues the latest verification code of user and emails it.
func (s *IdentityService) sendVerification(ctx context.Context, user *models.User) error {
	var code *models.VerificationCode
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		code, err = issueCode(ctx, s.verifyCodes, user.ID, s.now(), s.codeTTL, mail.TemplateVerification,
			func() *models.VerificationCode { return &models.VerificationCode{UserID: user.ID} })
		return err
	})
	if err != nil {
		return err
	}
	s.emailVerification(ctx, user, code)
	return nil
}

func (s *IdentityService) emailVerification(ctx context.Context, user *models.User, code *models.VerificationCode) {
	data := codeEmail(user, code.Window())
	s.afterCommit(ctx, "send_verification_email", func(ctx context.Context) error {
		msg, err := mail.VerificationMessage(s.frontendURL, data)
		if err != nil {
			return err
		}
		return mail.Deliver(ctx, s.mailer, msg)
	})
}

func (s *IdentityService) emailPasswordReset(ctx context.Context, user *models.User, code *models.PasswordResetCode) {
	data := codeEmail(user, code.Window())
	s.afterCommit(ctx, "send_password_reset_email", func(ctx context.Context) error {
		msg, err := mail.PasswordResetMessage(s.frontendURL, data)
		if err != nil {
			return err
		}
		return mail.Deliver(ctx, s.mailer, msg)
	})
}

func codeEmail(user *models.User, w *models.CodeWindow) mail.CodeEmail {
	return mail.CodeEmail{
		Username:  user.Username,
		Email:     user.Email,
		Code:      w.Code,
		ExpiresAt: w.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"),
	}
}

// emailedCode is a code model whose value and lifetime live in an embedded CodeWindow.
type emailedCode interface {
	repository.CodeRecord
	Window() *models.CodeWindow
}

// issueCode returns the user's latest code, rotating it when expired, or creates the first one.
func issueCode[C emailedCode](
	ctx context.Context,
	repo repository.CodeRepository[C],
	userID uint,
	now time.Time,
	ttl time.Duration,
	purpose string,
	fresh func() C,
) (C, error) {
	code, err := repo.Latest(ctx, userID)
	if models.IsCode(err, models.CodeNotFound) {
		code = fresh()
		*code.Window() = models.NewCodeWindow(now, ttl)
		if err := repo.Create(ctx, code); err != nil {
			return nil, err
		}
		return code, nil
	}
	if err != nil {
		return nil, err
	}

	if w := code.Window(); w.Expired(now) {
		w.Rotate(now, ttl)
		if err := repo.SaveWindow(ctx, code); err != nil {
			return nil, err
		}
		observability.CodesRotatedTotal.WithLabelValues(purpose).Inc()
	}
	return code, nil
}
