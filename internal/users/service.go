package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Hasher hashes and checks passwords.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// TokenIssuer mints identity tokens.
type TokenIssuer interface {
	Issue(identityID string, now time.Time) (string, error)
}

// Session is what a successful register or login hands back.
type Session struct {
	Token string
	User  User
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// ProfileUpdate carries the fields a caller asked to change. A nil or empty
// value means "leave as is".
type ProfileUpdate struct {
	Name     *string
	Email    *string
	Password *string
}

type Service struct {
	repo   Repository
	hasher Hasher
	tokens TokenIssuer
	now    func() time.Time
	newID  func() string

	dummyOnce sync.Once
	dummyHash string
}

func NewService(repo Repository, hasher Hasher, tokens TokenIssuer) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.NewString() },
	}
}

// Register creates an identity and signs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Session{}, ErrNameRequired
	}
	email, err := validEmail(in.Email)
	if err != nil {
		return Session{}, err
	}
	if err := checkPassword(in.Password); err != nil {
		return Session{}, err
	}

	// Fast path only; the store's unique constraint decides races.
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return Session{}, ErrEmailConflict
	} else if !errors.Is(err, ErrNotFound) {
		return Session{}, fmt.Errorf("check email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Session{}, err
	}
	now := s.now()
	u := User{
		ID:           s.newID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return Session{}, err
	}
	return s.session(u, now)
}

// Login checks credentials. Unknown email and wrong password are
// indistinguishable, including in how long they take.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		s.hasher.Verify(password, s.fallbackHash())
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("find user: %w", err)
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(u, s.now())
}

// Profile returns the caller's own record.
func (s *Service) Profile(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateProfile applies the provided fields all together or not at all:
// every check runs before the single write, and a uniqueness clash at write
// time aborts that write.
func (s *Service) UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (User, error) {
	cur, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	next := cur

	if provided(in.Name) {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return User{}, ErrNameRequired
		}
		next.Name = name
	}

	if provided(in.Email) {
		email, err := validEmail(*in.Email)
		if err != nil {
			return User{}, err
		}
		if email != cur.Email {
			other, err := s.repo.FindByEmail(ctx, email)
			switch {
			case err == nil && other.ID != cur.ID:
				return User{}, ErrEmailConflict
			case err != nil && !errors.Is(err, ErrNotFound):
				return User{}, fmt.Errorf("check email: %w", err)
			}
		}
		next.Email = email
	}

	if provided(in.Password) {
		if err := checkPassword(*in.Password); err != nil {
			return User{}, err
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return User{}, err
		}
		next.PasswordHash = hash
	}

	next.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, next); err != nil {
		return User{}, err
	}
	return next, nil
}

func (s *Service) session(u User, now time.Time) (Session, error) {
	token, err := s.tokens.Issue(u.ID, now)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: token, User: u}, nil
}

// fallbackHash gives Login a real hash to compare against for unknown emails.
func (s *Service) fallbackHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(uuid.NewString())
	})
	return s.dummyHash
}

func provided(v *string) bool {
	return v != nil && *v != ""
}

func validEmail(raw string) (string, error) {
	email := normalizeEmail(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func checkPassword(p string) error {
	if utf8.RuneCountInString(p) < MinPasswordLen {
		return ErrWeakPassword
	}
	if len(p) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}
