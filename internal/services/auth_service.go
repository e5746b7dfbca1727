package services

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"archives/internal/models"
	"archives/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

// otpValidity is the window in which an issued code can be verified.
// Expiry is checked lazily at verify time; there is no background sweep,
// an expired code just sits on the record until a resend overwrites it.
const otpValidity = 10 * time.Minute

// AuthService handles registration, login, and the OTP-gated account
// activation lifecycle: Unverified -> code pending -> Verified (terminal).
type AuthService struct {
	userRepo     repositories.UserRepository
	notifier     Notifier
	jwtSecret    []byte
	tokenDurat   time.Duration // Duration for which JWT is valid
	accountLocks keyedMutex

	// TimeFunc supplies the current time for OTP expiry checks.
	// Overridable in tests, like jwt.TimeFunc.
	TimeFunc func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, notifier Notifier, jwtSecret string) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		notifier:   notifier,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: 24 * time.Hour, // Token valid for 24 hours
		TimeFunc:   time.Now,
	}
}

// RegisterUser registers a new user, hashes their password, and issues the
// first OTP. The account starts unverified. A notifier failure is logged
// but never fails registration: the pending code stays valid and can be
// resent.
func (s *AuthService) RegisterUser(user *models.User) error {
	// Check if username, email or phone already exists
	if existingUser, err := s.userRepo.GetByUsername(user.Username); err == nil && existingUser != nil {
		return fmt.Errorf("username '%s' already taken: %w", user.Username, repositories.ErrConflict)
	}
	if existingUser, err := s.userRepo.GetByEmail(user.Email); err == nil && existingUser != nil {
		return fmt.Errorf("email '%s' already registered: %w", user.Email, repositories.ErrConflict)
	}
	if existingUser, err := s.userRepo.GetByPhone(user.Phone); err == nil && existingUser != nil {
		return fmt.Errorf("phone '%s' already registered: %w", user.Phone, repositories.ErrConflict)
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword) // Store the hashed password

	user.IsVerified = false
	code := s.issueOTP(user)

	if err := s.userRepo.Create(user); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}

	s.notify(user.Email, code)
	return nil
}

// ResendOTP issues a fresh code for an unverified account, replacing the
// previous one; only the latest issued code is ever valid. Verified
// accounts are refused.
func (s *AuthService) ResendOTP(email string) error {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return err
	}

	unlock := s.accountLocks.lock(user.ID)
	defer unlock()

	// Re-read under the lock: a verify finishing between the fetch and the
	// lock must not have its terminal state overwritten by a stale snapshot.
	user, err = s.userRepo.GetByEmail(email)
	if err != nil {
		return err
	}

	if user.IsVerified {
		return ErrAlreadyVerified
	}

	code := s.issueOTP(user)
	if err := s.userRepo.Update(user); err != nil {
		return fmt.Errorf("failed to store new OTP: %w", err)
	}

	s.notify(user.Email, code)
	return nil
}

// VerifyOTP checks a supplied code against the pending one. The code must
// match exactly and still be inside its validity window; expiry is decided
// here, lazily, never by a sweep. On success both OTP fields are cleared
// and the account becomes verified in the same write. Verification is
// terminal: a later attempt fails with ErrAlreadyVerified.
func (s *AuthService) VerifyOTP(email, suppliedCode string) error {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return err
	}

	unlock := s.accountLocks.lock(user.ID)
	defer unlock()

	// Re-read under the lock so a concurrent verify can't pass twice.
	user, err = s.userRepo.GetByEmail(email)
	if err != nil {
		return err
	}

	if user.IsVerified {
		return ErrAlreadyVerified
	}
	if user.OTP == nil || user.OTPIssuedAt == nil {
		return ErrOTPExpired
	}
	if !s.TimeFunc().Before(user.OTPIssuedAt.Add(otpValidity)) {
		return ErrOTPExpired
	}
	if *user.OTP != suppliedCode {
		return ErrOTPMismatch
	}

	user.OTP = nil
	user.OTPIssuedAt = nil
	user.IsVerified = true
	if err := s.userRepo.Update(user); err != nil {
		return fmt.Errorf("failed to mark user as verified: %w", err)
	}
	return nil
}

// LoginUser authenticates a verified user and returns a JWT token.
func (s *AuthService) LoginUser(username, password string) (string, error) {
	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		// It's good practice not to reveal if the username exists or not for security
		return "", fmt.Errorf("invalid credentials")
	}

	// Compare the provided password with the hashed password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	if !user.IsVerified {
		return "", fmt.Errorf("account not verified")
	}

	// Generate JWT token
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      time.Now().Add(s.tokenDurat).Unix(), // Token expiration time
		"iat":      time.Now().Unix(),                   // Issued at time
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the alg is what we expect:
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		log.Printf("Token validation error: %v", err)
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// issueOTP sets a fresh code and issue timestamp on the user, returning
// the code. Codes may collide with earlier ones for the same account;
// there is no uniqueness across time.
func (s *AuthService) issueOTP(user *models.User) string {
	code := generateOTP()
	issuedAt := s.TimeFunc()
	user.OTP = &code
	user.OTPIssuedAt = &issuedAt
	return code
}

// notify hands the code to the notifier. Issuance and delivery are
// decoupled: a failure here is logged and swallowed.
func (s *AuthService) notify(recipient, code string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(recipient, code, otpValidity); err != nil {
		log.Printf("Warning: failed to send OTP to %s: %v", recipient, err)
	}
}

// generateOTP returns a 6-digit numeric code, each digit independently
// uniform over 0-9.
func generateOTP() string {
	digits := make([]byte, 6)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken.
			panic(fmt.Sprintf("failed to read random digit: %v", err))
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits)
}
