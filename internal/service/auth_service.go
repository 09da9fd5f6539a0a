package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	config "github.com/maheshrc27/postpilot/configs"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/repository"
	"github.com/maheshrc27/postpilot/internal/transfer"
	"github.com/maheshrc27/postpilot/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	loginStatePurpose = "login"
	stateTTL          = 10 * time.Minute
	sessionTTL        = 24 * time.Hour
)

type AuthService interface {
	LoginURL() (string, error)
	LoginCallback(ctx context.Context, state, code string) (string, error)
	Authenticate(ctx context.Context, sessionToken, apiKey string) (*transfer.Session, error)
}

type authService struct {
	cfg         *config.Config
	oauth       *oauth2.Config
	userInfoURL string
	u           repository.UserRepository
	p           repository.PreferencesRepository
	keys        ApiKeyService
}

func NewAuthService(cfg *config.Config, u repository.UserRepository, p repository.PreferencesRepository, keys ApiKeyService) AuthService {
	return &authService{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.PublicURL + "/login/callback",
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		u:           u,
		p:           p,
		keys:        keys,
	}
}

func (s *authService) LoginURL() (string, error) {
	state, err := utils.GenerateStateToken(s.cfg.SecretKey, "", loginStatePurpose, stateTTL)
	if err != nil {
		return "", err
	}
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// LoginCallback signs the Google user in, creating the account on first
// login, and returns a session token.
func (s *authService) LoginCallback(ctx context.Context, state, code string) (string, error) {
	claims, err := utils.ValidateToken(s.cfg.SecretKey, state)
	if err != nil || claims.Platform != loginStatePurpose {
		return "", ErrInvalidState
	}
	if code == "" {
		return "", fmt.Errorf("%w: code is empty", ErrParamInvalid)
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	info, err := s.userInfo(ctx, s.oauth.Client(ctx, token))
	if err != nil {
		return "", err
	}

	userID, err := s.upsertUser(ctx, info)
	if err != nil {
		return "", err
	}
	return utils.GenerateToken(s.cfg.SecretKey, strconv.FormatInt(userID, 10), sessionTTL)
}

func (s *authService) userInfo(ctx context.Context, client *http.Client) (*transfer.GoogleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error fetching user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected user info status: %d", resp.StatusCode)
	}

	var info transfer.GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error decoding user info: %w", err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("%w: google account has no email", ErrParamInvalid)
	}
	return &info, nil
}

func (s *authService) upsertUser(ctx context.Context, info *transfer.GoogleUserInfo) (int64, error) {
	user, err := s.u.UpsertByEmail(ctx, &models.User{
		GoogleID:       info.ID,
		Email:          info.Email,
		Name:           info.Name,
		ProfilePicture: info.Picture,
	})
	if err != nil {
		return 0, fmt.Errorf("error saving user: %w", err)
	}
	return user.ID, nil
}

// Authenticate resolves the session of a request from its API key or, when
// none is given, its session cookie.
func (s *authService) Authenticate(ctx context.Context, sessionToken, apiKey string) (*transfer.Session, error) {
	var userID int64
	switch {
	case apiKey != "":
		id, err := s.keys.GetUserID(ctx, apiKey)
		if err != nil {
			return nil, ErrUnauthenticated
		}
		userID = id
	case sessionToken != "":
		claims, err := utils.ValidateToken(s.cfg.SecretKey, sessionToken)
		if err != nil || claims.Platform != "" {
			return nil, ErrUnauthenticated
		}
		id, err := strconv.ParseInt(claims.UserID, 10, 64)
		if err != nil || id == 0 {
			return nil, ErrUnauthenticated
		}
		userID = id
	default:
		return nil, ErrUnauthenticated
	}

	prefs, err := s.p.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &transfer.Session{UserID: userID, Preferences: prefs}, nil
}
