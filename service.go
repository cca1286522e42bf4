package authcore

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// deliveryTimeout bounds the fire-and-forget send; the state machine never
// waits on it.
const deliveryTimeout = 15 * time.Second

// Service orchestrates login, logout, registration, password change, and
// password reset over a Directory, a CodeStore, and a SessionIssuer. It owns
// no account or code storage of its own; only the reset verified-ticket
// table lives here.
type Service struct {
	users    Directory
	codes    *CodeStore
	sessions SessionIssuer
	tickets  *ticketStore

	hasher    Hasher
	sender    CodeSender
	logger    Logger
	activity  ActivitySink
	now       func() time.Time
	ticketTTL time.Duration
}

// NewService wires the three collaborators with default bcrypt hashing, a
// logging code sender, and a noop activity sink.
func NewService(users Directory, codes *CodeStore, sessions SessionIssuer) *Service {
	s := &Service{
		users:     users,
		codes:     codes,
		sessions:  sessions,
		hasher:    NewBcryptHasher(passwordHashCost()),
		sender:    NewLogSender(nil),
		logger:    defLogger{},
		activity:  noopActivitySink{},
		now:       time.Now,
		ticketTTL: DefaultTicketTTL,
	}
	s.tickets = newTicketStore(s.ticketTTL, s.now)
	return s
}

// WithLogger overrides the logger used by the service.
func (s *Service) WithLogger(logger Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithHasher swaps the credential hasher.
func (s *Service) WithHasher(hasher Hasher) *Service {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

// WithSender swaps the out-of-band code delivery channel.
func (s *Service) WithSender(sender CodeSender) *Service {
	if sender != nil {
		s.sender = sender
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Service) WithActivitySink(sink ActivitySink) *Service {
	s.activity = normalizeActivitySink(sink)
	return s
}

// WithClock injects a custom clock (useful for tests). Call before granting
// any reset tickets; the ticket table is rebuilt.
func (s *Service) WithClock(clock func() time.Time) *Service {
	if clock != nil {
		s.now = clock
		s.tickets = newTicketStore(s.ticketTTL, clock)
	}
	return s
}

// WithTicketTTL overrides how long a verified reset ticket stays live. Call
// before granting any reset tickets; the ticket table is rebuilt.
func (s *Service) WithTicketTTL(ttl time.Duration) *Service {
	if ttl > 0 {
		s.ticketTTL = ttl
		s.tickets = newTicketStore(ttl, s.now)
	}
	return s
}

// LoginResult carries the minted token plus the credential-stripped user.
type LoginResult struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}

// Login authenticates email/secret and mints a session. Unknown accounts and
// wrong secrets return the same ErrInvalidCredentials; suspended accounts
// with a matching secret return ErrAccountSuspended.
func (s *Service) Login(ctx context.Context, email, secret string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during login")
	}

	if user == nil {
		s.emit(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", email, map[string]any{
			"error": ErrInvalidCredentials.Error(),
		})
		return nil, ErrInvalidCredentials
	}

	if err := s.hasher.Compare(secret, user.CredentialHash); err != nil {
		s.emit(ctx, ActivityEventLoginFailure, actorForUser(user), user.ID.String(), email, map[string]any{
			"error": ErrInvalidCredentials.Error(),
		})
		return nil, ErrInvalidCredentials
	}

	if !user.Active {
		s.emit(ctx, ActivityEventLoginFailure, actorForUser(user), user.ID.String(), email, map[string]any{
			"error": ErrAccountSuspended.Error(),
		})
		return nil, ErrAccountSuspended
	}

	token, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session")
	}

	s.emit(ctx, ActivityEventLoginSuccess, actorForUser(user), user.ID.String(), email, nil)

	return &LoginResult{Token: token, User: user.Public()}, nil
}

// Logout invalidates the session. Always succeeds; unknown tokens are a
// no-op.
func (s *Service) Logout(ctx context.Context, token string) {
	userID := ""
	if session, ok := s.sessions.Resolve(token); ok {
		userID = session.UserID.String()
	}

	s.sessions.Invalidate(token)
	s.emit(ctx, ActivityEventLogout, ActorRef{ID: userID, Type: "user"}, userID, "", nil)
}

// ChangePassword swaps the credential after re-checking the current secret.
// Sessions issued before the change stay live.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, currentSecret, newSecret string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password change")
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err := s.hasher.Compare(currentSecret, user.CredentialHash); err != nil {
		return ErrInvalidCredentials
	}

	if err := validateSecret(newSecret); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newSecret)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash new password")
	}

	if err := s.users.UpdateCredential(ctx, user.ID, hash); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update credential")
	}

	s.emit(ctx, ActivityEventPasswordChanged, actorForUser(user), user.ID.String(), user.Email, nil)

	return nil
}

// UpdateProfile applies a partial profile mutation and returns the public
// view of the result.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*PublicUser, error) {
	user, err := s.users.UpdateProfile(ctx, userID, update)
	if err != nil {
		if IsUserNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update profile")
	}

	view := user.Public()
	return &view, nil
}

// pendingRegistration is the Put payload for the registration workflow. The
// secret is hashed before it enters the store.
type pendingRegistration struct {
	FirstName      string
	LastName       string
	Email          string
	ProfilePicture string
	IsOwner        bool
	CredentialHash string
}

// RequestRegistration validates the fields, rejects taken emails, parks the
// pending account behind a fresh code, and hands the code to delivery. The
// caller only ever sees the code-sent acknowledgment.
func (s *Service) RequestRegistration(ctx context.Context, fields RegistrationFields) (*FlowAck, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	email := NormalizeEmail(fields.Email)

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(fields.Password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	code, err := s.codes.Put(email, PurposeRegistration, pendingRegistration{
		FirstName:      fields.FirstName,
		LastName:       fields.LastName,
		Email:          email,
		ProfilePicture: fields.ProfilePicture,
		IsOwner:        fields.IsOwner,
		CredentialHash: hash,
	})
	if err != nil {
		return nil, err
	}

	s.dispatchCode(email, PurposeRegistration, code)
	s.emit(ctx, ActivityEventRegistrationRequested, ActorRef{Type: "unknown"}, "", email, nil)

	return &FlowAck{Email: email, Stage: StageCodeSent}, nil
}

// ConfirmRegistration consumes the code, creates the account, and logs the
// new user in, all in one step. A concurrent confirmation for the same email
// loses with ErrDuplicateEmail.
func (s *Service) ConfirmRegistration(ctx context.Context, email, submittedCode string) (*LoginResult, error) {
	payload, err := s.codes.Verify(email, PurposeRegistration, submittedCode)
	if err != nil {
		return nil, err
	}

	pending, ok := payload.(pendingRegistration)
	if !ok {
		return nil, goerrors.New("verification payload is not a pending registration", goerrors.CategoryInternal)
	}

	created, err := s.users.Insert(ctx, &User{
		Email:          pending.Email,
		FirstName:      pending.FirstName,
		LastName:       pending.LastName,
		ProfilePicture: pending.ProfilePicture,
		IsOwner:        pending.IsOwner,
		CredentialHash: pending.CredentialHash,
		Active:         true,
	})
	if err != nil {
		if IsDuplicateEmail(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create account")
	}

	token, err := s.sessions.Issue(created.ID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session")
	}

	s.emit(ctx, ActivityEventRegistrationCompleted, actorForUser(created), created.ID.String(), created.Email, nil)

	return &LoginResult{Token: token, User: created.Public()}, nil
}

// ResendRegistrationCode invalidates the pending code and issues a fresh one
// for the same pending fields, restarting the window. Without a pending
// registration it fails with ErrCodeNotFound.
func (s *Service) ResendRegistrationCode(ctx context.Context, email string) (*FlowAck, error) {
	email = NormalizeEmail(email)

	code, err := s.codes.Reissue(email, PurposeRegistration)
	if err != nil {
		return nil, err
	}

	s.dispatchCode(email, PurposeRegistration, code)
	s.emit(ctx, ActivityEventCodeResent, ActorRef{Type: "unknown"}, "", email, map[string]any{
		"purpose": PurposeRegistration,
	})

	return &FlowAck{Email: email, Stage: StageCodeSent}, nil
}

// RequestPasswordReset parks a reset code for an existing account and hands
// it to delivery.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (*FlowAck, error) {
	email = NormalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	code, err := s.codes.Put(email, PurposePasswordReset, nil)
	if err != nil {
		return nil, err
	}

	s.dispatchCode(email, PurposePasswordReset, code)
	s.emit(ctx, ActivityEventResetRequested, actorForUser(user), user.ID.String(), email, nil)

	return &FlowAck{Email: email, Stage: StageCodeSent}, nil
}

// ConfirmResetCode consumes the reset code and grants a verified ticket so
// ResetPassword can proceed without re-submitting the code. The code itself
// is spent here and cannot be replayed.
func (s *Service) ConfirmResetCode(ctx context.Context, email, submittedCode string) (*FlowAck, error) {
	email = NormalizeEmail(email)

	if _, err := s.codes.Verify(email, PurposePasswordReset, submittedCode); err != nil {
		return nil, err
	}

	s.tickets.Grant(email)
	s.emit(ctx, ActivityEventResetVerified, ActorRef{Type: "unknown"}, "", email, nil)

	return &FlowAck{Email: email, Stage: StageVerified}, nil
}

// ResetPassword consumes the verified ticket and swaps the credential.
// Without a live ticket it fails with ErrNotVerified.
func (s *Service) ResetPassword(ctx context.Context, email, newSecret string) error {
	email = NormalizeEmail(email)

	if err := validateSecret(newSecret); err != nil {
		return err
	}

	if err := s.tickets.Consume(email); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}
	if user == nil {
		return ErrUserNotFound
	}

	hash, err := s.hasher.Hash(newSecret)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash new password")
	}

	if err := s.users.UpdateCredential(ctx, user.ID, hash); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update credential")
	}

	s.emit(ctx, ActivityEventResetCompleted, actorForUser(user), user.ID.String(), email, nil)

	return nil
}

func (s *Service) dispatchCode(email string, purpose Purpose, code string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()

		if err := s.sender.SendCode(ctx, email, purpose, code); err != nil {
			s.logger.Warn("code delivery failed email=%s purpose=%s: %v", email, purpose, err)
		}
	}()
}

func (s *Service) emit(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID, email string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Actor:      actor,
		UserID:     userID,
		Email:      email,
		Metadata:   metadata,
		OccurredAt: s.now(),
	}

	if err := normalizeActivitySink(s.activity).Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func actorForUser(user *User) ActorRef {
	if user == nil {
		return ActorRef{Type: "unknown"}
	}
	return ActorRef{ID: user.ID.String(), Type: "user"}
}

func validateSecret(secret string) error {
	if err := validation.Validate(secret, validation.Required, validation.Length(10, 100)); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided").
			WithCode(goerrors.CodeBadRequest)
	}
	return nil
}
