// Package oauth implements the Google OAuth flows: login, account
// linking, and access token refresh.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"

	"github.com/timelens/timelens/internal/identity/domain"
	sharedCrypto "github.com/timelens/timelens/internal/shared/infrastructure/crypto"
)

const defaultUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// refreshWindow is how close to expiry a token may get before it is
// refreshed instead of used.
const refreshWindow = 5 * time.Minute

// Scopes requested from Google. Calendar access is read-only.
var scopes = []string{
	"openid",
	"email",
	"profile",
	"https://www.googleapis.com/auth/calendar.readonly",
}

// UserInfo is the subset of the Google userinfo response we need.
type UserInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LoginResult is the outcome of completing a login callback.
type LoginResult struct {
	User        *domain.User
	Account     *domain.LinkedAccount
	AccessToken string
	NewUser     bool
}

// LinkResult is the outcome of completing a link callback.
type LinkResult struct {
	Account     *domain.LinkedAccount
	AccessToken string
}

// Service manages Google OAuth flows and token storage.
type Service struct {
	oauthConfig  *oauth2.Config
	users        domain.UserRepository
	accounts     domain.LinkedAccountRepository
	encrypter    sharedCrypto.Encrypter
	userinfoURL  string
	httpClient   *http.Client
	refreshGroup singleflight.Group
	logger       *slog.Logger
}

// NewService creates a new OAuth service.
func NewService(
	clientID string,
	clientSecret string,
	redirectURL string,
	users domain.UserRepository,
	accounts domain.LinkedAccountRepository,
	encrypter sharedCrypto.Encrypter,
	logger *slog.Logger,
) (*Service, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("oauth configuration is incomplete")
	}
	if users == nil || accounts == nil || encrypter == nil {
		return nil, errors.New("oauth dependencies are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
	}

	return &Service{
		oauthConfig: cfg,
		users:       users,
		accounts:    accounts,
		encrypter:   encrypter,
		userinfoURL: defaultUserinfoURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		logger:      logger,
	}, nil
}

// AuthURL returns the Google authorization URL for the given state.
func (s *Service) AuthURL(state string) string {
	return s.oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// CompleteLogin exchanges the callback code and signs the user in,
// creating the user and its primary linked account on first login.
// The returned access token is plaintext so the caller can import the
// account's calendar list.
func (s *Service) CompleteLogin(ctx context.Context, code string) (*LoginResult, error) {
	token, info, err := s.exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, info.Email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	encAccess, encRefresh, err := s.encryptTokens(token)
	if err != nil {
		return nil, err
	}

	if user == nil {
		user, err = domain.NewUser(info.Email, info.Name)
		if err != nil {
			return nil, err
		}
		if err := s.users.Save(ctx, user); err != nil {
			return nil, fmt.Errorf("save user: %w", err)
		}

		account, err := domain.NewLinkedAccount(user.ID(), info.Email, encAccess, encRefresh, token.Expiry, true)
		if err != nil {
			return nil, err
		}
		if err := s.accounts.Save(ctx, account); err != nil {
			return nil, fmt.Errorf("save linked account: %w", err)
		}

		return &LoginResult{User: user, Account: account, AccessToken: token.AccessToken, NewUser: true}, nil
	}

	account, err := s.accounts.FindPrimaryForUser(ctx, user.ID())
	if err != nil {
		return nil, fmt.Errorf("find primary account: %w", err)
	}
	if account == nil {
		account, err = domain.NewLinkedAccount(user.ID(), info.Email, encAccess, encRefresh, token.Expiry, true)
		if err != nil {
			return nil, err
		}
	} else if err := account.UpdateTokens(encAccess, encRefresh, token.Expiry); err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("save linked account: %w", err)
	}

	return &LoginResult{User: user, Account: account, AccessToken: token.AccessToken}, nil
}

// CompleteLink exchanges the callback code and attaches the Google
// account to an already signed-in user.
func (s *Service) CompleteLink(ctx context.Context, userID uuid.UUID, code string) (*LinkResult, error) {
	token, info, err := s.exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	existing, err := s.accounts.FindByUserAndEmail(ctx, userID, info.Email)
	if err != nil {
		return nil, fmt.Errorf("find linked account: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrAccountAlreadyLinked
	}

	encAccess, encRefresh, err := s.encryptTokens(token)
	if err != nil {
		return nil, err
	}

	account, err := domain.NewLinkedAccount(userID, info.Email, encAccess, encRefresh, token.Expiry, false)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("save linked account: %w", err)
	}

	return &LinkResult{Account: account, AccessToken: token.AccessToken}, nil
}

// Unlink removes a non-primary linked account.
func (s *Service) Unlink(ctx context.Context, userID, accountID uuid.UUID) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("find linked account: %w", err)
	}
	if account == nil || account.UserID() != userID {
		return domain.ErrAccountNotFound
	}
	if account.IsPrimary() {
		return domain.ErrUnlinkPrimary
	}
	return s.accounts.Delete(ctx, accountID)
}

// Accounts lists the user's linked accounts, primary first.
func (s *Service) Accounts(ctx context.Context, userID uuid.UUID) ([]*domain.LinkedAccount, error) {
	return s.accounts.FindByUser(ctx, userID)
}

// ValidAccessToken returns a plaintext access token for the account,
// refreshing it first when it expires within the refresh window.
// Concurrent refreshes for the same account are collapsed into one.
func (s *Service) ValidAccessToken(ctx context.Context, account *domain.LinkedAccount) (string, error) {
	if !account.TokenExpiresWithin(time.Now(), refreshWindow) {
		return s.encrypter.DecryptString(account.AccessToken())
	}

	result, err, _ := s.refreshGroup.Do(account.ID().String(), func() (any, error) {
		return s.refreshToken(ctx, account)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (s *Service) refreshToken(ctx context.Context, account *domain.LinkedAccount) (string, error) {
	refresh, err := s.encrypter.DecryptString(account.RefreshToken())
	if err != nil {
		return "", fmt.Errorf("decrypt refresh token: %w", err)
	}
	if refresh == "" {
		return "", errors.New("no refresh token for account")
	}

	token, err := s.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refresh}).Token()
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}

	encAccess, encRefresh, err := s.encryptTokens(token)
	if err != nil {
		return "", err
	}
	if err := account.UpdateTokens(encAccess, encRefresh, token.Expiry); err != nil {
		return "", err
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return "", fmt.Errorf("save refreshed token: %w", err)
	}

	s.logger.Debug("refreshed access token", "account_id", account.ID())
	return token.AccessToken, nil
}

func (s *Service) exchange(ctx context.Context, code string) (*oauth2.Token, *UserInfo, error) {
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("exchange code: %w", err)
	}

	info, err := s.fetchUserInfo(ctx, token.AccessToken)
	if err != nil {
		return nil, nil, err
	}
	return token, info, nil
}

func (s *Service) fetchUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userinfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("userinfo request failed: %s: %s", resp.Status, string(body))
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Email == "" {
		return nil, errors.New("userinfo response missing email")
	}
	return &info, nil
}

func (s *Service) encryptTokens(token *oauth2.Token) (access, refresh string, err error) {
	access, err = s.encrypter.EncryptString(token.AccessToken)
	if err != nil {
		return "", "", fmt.Errorf("encrypt access token: %w", err)
	}
	if token.RefreshToken != "" {
		refresh, err = s.encrypter.EncryptString(token.RefreshToken)
		if err != nil {
			return "", "", fmt.Errorf("encrypt refresh token: %w", err)
		}
	}
	return access, refresh, nil
}
