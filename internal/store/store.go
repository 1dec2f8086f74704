package store

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"LuminCredit/internal/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

var taxRate = decimal.NewFromFloat(0.3)

// UserSummary is the listing entry for one user.
type UserSummary struct {
	Username string `json:"username"`
	Type     string `json:"type"`
}

// Store keeps user records in memory and writes every mutation back to disk.
type Store struct {
	mu       sync.RWMutex
	users    map[string]*model.UserFinancialRecord
	filePath string
	log      *logrus.Logger
}

// New loads the user file, applies the tax estimate and hashes any
// plaintext seed passwords.
func New(filePath string, log *logrus.Logger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	users, err := LoadUsers(filePath)
	if err != nil {
		return nil, err
	}

	s := &Store{
		users:    make(map[string]*model.UserFinancialRecord, len(users)),
		filePath: filePath,
		log:      log,
	}

	rehashed := false
	for _, u := range users {
		if u == nil || u.Username == "" {
			continue
		}
		EstimateTax(u)
		if u.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, fmt.Errorf("hash password for %s: %w", u.Username, err)
			}
			u.PasswordHash = string(hash)
			u.Password = ""
			rehashed = true
		}
		s.users[u.Username] = u
	}

	if rehashed {
		if err := s.save(); err != nil {
			return nil, err
		}
	}
	s.log.WithFields(logrus.Fields{"users": len(s.users), "path": filePath}).Info("user store loaded")
	return s, nil
}

// EstimateTax derives last year's tax and the income implied by it.
func EstimateTax(u *model.UserFinancialRecord) {
	tax := decimal.NewFromFloat(u.Income).Mul(taxRate).IntPart()
	u.LastYearTaxPaid = tax
	if tax > 0 {
		u.EstimatedIncome = decimal.NewFromInt(tax).Div(taxRate).IntPart()
	} else {
		u.EstimatedIncome = 0
	}
}

// Get returns a copy of the user's record.
func (s *Store) Get(username string) (*model.UserFinancialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return u.Clone(), nil
}

// Usernames returns all usernames in listing order.
func (s *Store) Usernames() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.users))
	for name := range s.users {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sortUsernames(names)
	return names
}

// List returns a summary of every user, ordered by the number in the username.
func (s *Store) List() []UserSummary {
	names := s.Usernames()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]UserSummary, 0, len(names))
	for _, name := range names {
		u, ok := s.users[name]
		if !ok {
			continue
		}
		title := u.ScenarioTitle
		if title == "" {
			title = "Unknown"
		}
		out = append(out, UserSummary{Username: name, Type: title})
	}
	return out
}

// Authenticate checks a password against the stored bcrypt hash.
func (s *Store) Authenticate(username, password string) (*model.UserFinancialRecord, error) {
	u, err := s.Get(username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if u.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Update applies fn to a copy of the user's record and persists the result.
// Nothing changes if fn fails or the file cannot be written.
func (s *Store) Update(username string, fn func(*model.UserFinancialRecord) error) (*model.UserFinancialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.users[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}

	s.users[username] = next
	if err := s.save(); err != nil {
		s.users[username] = cur
		return nil, fmt.Errorf("save users: %w", err)
	}
	s.log.WithField("username", username).Debug("user record updated")
	return next.Clone(), nil
}

// save must be called with the lock held.
func (s *Store) save() error {
	names := make([]string, 0, len(s.users))
	for name := range s.users {
		names = append(names, name)
	}
	sortUsernames(names)
	users := make([]*model.UserFinancialRecord, len(names))
	for i, name := range names {
		users[i] = s.users[name]
	}
	return SaveUsers(s.filePath, users)
}

// sortUsernames orders "userN" names numerically, or lexically when any
// name has no numeric suffix.
func sortUsernames(names []string) {
	nums := make(map[string]int, len(names))
	for _, n := range names {
		v, err := strconv.Atoi(strings.TrimPrefix(n, "user"))
		if err != nil {
			sort.Strings(names)
			return
		}
		nums[n] = v
	}
	sort.Slice(names, func(i, j int) bool {
		if nums[names[i]] != nums[names[j]] {
			return nums[names[i]] < nums[names[j]]
		}
		return names[i] < names[j]
	})
}
