package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/forgo/cityquest/internal/model"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt cost used by the admin-token tool when hashing a new admin password
const BcryptCost = 12

// Role names carried in session tokens
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// TokenIssuer signs session tokens
type TokenIssuer interface {
	Issue(userID, telegramID, role string) (string, time.Time, error)
}

// AuthService logs players in with Telegram Mini-App init data and the admin
// with a password
type AuthService struct {
	users         UserRepository
	tokens        TokenIssuer
	botToken      string
	maxAge        time.Duration
	skipVerify    bool
	adminUsername string
	adminHash     string
	now           func() time.Time
}

// AuthServiceConfig holds configuration for the auth service
type AuthServiceConfig struct {
	Users          UserRepository
	Tokens         TokenIssuer
	BotToken       string
	InitDataMaxAge time.Duration
	SkipVerify     bool // development only
	AdminUsername  string
	AdminHash      string
	Now            func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(cfg AuthServiceConfig) *AuthService {
	return &AuthService{
		users:         cfg.Users,
		tokens:        cfg.Tokens,
		botToken:      cfg.BotToken,
		maxAge:        cfg.InitDataMaxAge,
		skipVerify:    cfg.SkipVerify,
		adminUsername: cfg.AdminUsername,
		adminHash:     cfg.AdminHash,
		now:           nowOrDefault(cfg.Now),
	}
}

// TelegramLogin verifies init data and issues a session token. The token
// carries the user ID once the Telegram account has registered.
func (s *AuthService) TelegramLogin(ctx context.Context, initData string) (*model.AuthResponse, error) {
	var (
		tgUser *model.TelegramUser
		err    error
	)
	if s.skipVerify {
		tgUser, err = ParseInitDataUser(initData)
	} else {
		tgUser, err = VerifyInitData(initData, s.botToken, s.maxAge, s.now())
	}
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetByTelegramID(ctx, tgUser.ID)
	if err != nil {
		return nil, err
	}

	var userID string
	if u != nil {
		userID = u.ID
	}
	resp, err := s.issue(userID, tgUser.ID, RoleUser)
	if err != nil {
		return nil, err
	}
	resp.Registered = u != nil
	resp.User = u
	resp.TelegramUser = tgUser

	slog.InfoContext(ctx, "telegram login", "telegram_id", tgUser.ID, "registered", resp.Registered)
	return resp, nil
}

// IssueUserToken issues a session token for a registered user
func (s *AuthService) IssueUserToken(u *model.User) (*model.AuthResponse, error) {
	resp, err := s.issue(u.ID, u.TelegramID, RoleUser)
	if err != nil {
		return nil, err
	}
	resp.Registered = true
	resp.User = u
	return resp, nil
}

// AdminLogin checks the admin credentials against the configured bcrypt hash
func (s *AuthService) AdminLogin(ctx context.Context, username, password string) (*model.AuthResponse, error) {
	if s.adminHash == "" {
		return nil, ErrAdminLoginDisabled
	}

	// compare the password even for an unknown username to keep timing flat
	passwordOK := bcrypt.CompareHashAndPassword([]byte(s.adminHash), []byte(password)) == nil
	usernameOK := hmac.Equal([]byte(username), []byte(s.adminUsername))
	if !passwordOK || !usernameOK {
		slog.WarnContext(ctx, "admin login failed", "username", username)
		return nil, ErrInvalidCredentials
	}

	resp, err := s.issue(AdminSubject(username), "", RoleAdmin)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "admin login", "username", username)
	return resp, nil
}

// AdminSubject is the token subject of the admin account
func AdminSubject(username string) string {
	return "admin:" + username
}

func (s *AuthService) issue(userID, telegramID, role string) (*model.AuthResponse, error) {
	token, expiresAt, err := s.tokens.Issue(userID, telegramID, role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGenerateFailed, err)
	}
	return &model.AuthResponse{Token: token, ExpiresAt: expiresAt}, nil
}

// VerifyInitData checks the hash of Telegram Mini-App init data and returns
// the user it describes.
//
// The data-check string is every field except hash, as key=value sorted by
// key and joined with newlines. The key is HMAC-SHA256("WebAppData", token).
func VerifyInitData(raw, botToken string, maxAge time.Duration, now time.Time) (*model.TelegramUser, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInitData, err)
	}

	hash := values.Get("hash")
	if hash == "" || botToken == "" {
		return nil, ErrInvalidInitData
	}
	got, err := hex.DecodeString(hash)
	if err != nil {
		return nil, ErrInvalidInitData
	}

	if !hmac.Equal(got, SignInitData(values, botToken)) {
		return nil, ErrInvalidInitData
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad auth_date", ErrInvalidInitData)
	}
	if maxAge > 0 && now.Sub(time.Unix(authDate, 0)) > maxAge {
		return nil, ErrInitDataExpired
	}

	return parseTelegramUser(values.Get("user"))
}

// SignInitData computes the hash Telegram would attach to the given fields
func SignInitData(values url.Values, botToken string) []byte {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))
	return mac.Sum(nil)
}

// ParseInitDataUser reads the user field without checking the hash
func ParseInitDataUser(raw string) (*model.TelegramUser, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInitData, err)
	}
	return parseTelegramUser(values.Get("user"))
}

func parseTelegramUser(raw string) (*model.TelegramUser, error) {
	if raw == "" || !gjson.Valid(raw) {
		return nil, fmt.Errorf("%w: missing user", ErrInvalidInitData)
	}
	u := gjson.Parse(raw)

	id := u.Get("id")
	if !id.Exists() || id.Raw == "0" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidInitData)
	}

	return &model.TelegramUser{
		// Telegram ids exceed 2^53, keep the raw digits
		ID:           strings.Trim(id.Raw, `"`),
		FirstName:    u.Get("first_name").String(),
		LastName:     u.Get("last_name").String(),
		Username:     u.Get("username").String(),
		LanguageCode: u.Get("language_code").String(),
	}, nil
}
