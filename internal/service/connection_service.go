package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/publisher"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/transfer"
	"github.com/maheshrc27/postflow/pkg/utils"
	"golang.org/x/oauth2"
)

const (
	LINKEDIN_TOKEN_URL    = "https://www.linkedin.com/oauth/v2/accessToken"
	TWITTER_TOKEN_URL     = "https://api.twitter.com/2/oauth2/token"
	FACEBOOK_TOKEN_URL    = "https://graph.facebook.com/v19.0/oauth/access_token"
	INSTAGRAM_REFRESH_URL = "https://graph.instagram.com/refresh_access_token"
)

// ConnectionService owns SocialConnection reads and the ensure-valid-
// token capability used by the dispatch path. Token refresh is mutually
// exclusive per connection: two publishers racing on the same account
// serialize here.
type ConnectionService interface {
	List(ctx context.Context, userID int64) ([]*models.SocialConnection, error)
	Delete(ctx context.Context, userID, connectionID int64) error
	EnsureValidToken(ctx context.Context, conn *models.SocialConnection) (string, error)
	Refresh(ctx context.Context, conn *models.SocialConnection) error
}

type connectionService struct {
	cfg config.Config
	cr  repository.SocialConnectionRepository

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewConnectionService(cfg config.Config, cr repository.SocialConnectionRepository) ConnectionService {
	return &connectionService{
		cfg:   cfg,
		cr:    cr,
		locks: make(map[int64]*sync.Mutex),
	}
}

func (s *connectionService) List(ctx context.Context, userID int64) ([]*models.SocialConnection, error) {
	if userID == 0 {
		err := errors.New("UserID is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	connections, err := s.cr.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error getting social connections")
	}

	return connections, nil
}

func (s *connectionService) Delete(ctx context.Context, userID, connectionID int64) error {
	var err error

	if userID == 0 {
		err = errors.New("UserID is not valid")
		slog.Info(err.Error())
		return err
	}

	if connectionID == 0 {
		err = errors.New("ConnectionID is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.cr.CheckByUserID(ctx, connectionID, userID)
	if err != nil {
		return err
	}

	if !isValid {
		err = errors.New("Social connection doesn't exist")
		slog.Info(err.Error())
		return err
	}

	err = s.cr.Remove(ctx, connectionID)
	if err != nil {
		return fmt.Errorf("Error removing connection")
	}

	return nil
}

func (s *connectionService) lockFor(connectionID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[connectionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[connectionID] = lock
	}
	return lock
}

// EnsureValidToken refreshes the token when it is inside the expiry
// margin and returns the decrypted access token. Refresh failure is an
// auth error: the attempt must not proceed with a dead credential.
func (s *connectionService) EnsureValidToken(ctx context.Context, conn *models.SocialConnection) (string, error) {
	if !conn.IsActive {
		return "", &publisher.PublishError{Kind: publisher.KindAuth, Message: "connection is inactive"}
	}

	lock := s.lockFor(conn.ID)
	lock.Lock()
	defer lock.Unlock()

	if conn.TokenExpiring(time.Now(), s.cfg.Scheduler.TokenMargin) {
		if err := s.refreshLocked(ctx, conn); err != nil {
			slog.Info(err.Error())
			return "", &publisher.PublishError{
				Kind:    publisher.KindAuth,
				Message: "token refresh failed: " + err.Error(),
			}
		}
	}

	accessToken, err := utils.Decrypt(conn.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		slog.Info(err.Error())
		return "", &publisher.PublishError{Kind: publisher.KindAuth, Message: "stored token unreadable"}
	}

	return accessToken, nil
}

func (s *connectionService) Refresh(ctx context.Context, conn *models.SocialConnection) error {
	lock := s.lockFor(conn.ID)
	lock.Lock()
	defer lock.Unlock()
	return s.refreshLocked(ctx, conn)
}

func (s *connectionService) refreshLocked(ctx context.Context, conn *models.SocialConnection) error {
	switch conn.Platform {
	case models.PlatformLinkedin:
		return s.refreshOAuth(ctx, conn, &oauth2.Config{
			ClientID:     s.cfg.LinkedinClientID,
			ClientSecret: s.cfg.LinkedinClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: LINKEDIN_TOKEN_URL},
		})
	case models.PlatformTwitter:
		return s.refreshOAuth(ctx, conn, &oauth2.Config{
			ClientID:     s.cfg.TwitterClientID,
			ClientSecret: s.cfg.TwitterClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: TWITTER_TOKEN_URL},
		})
	case models.PlatformFacebook:
		return s.refreshFacebook(ctx, conn)
	case models.PlatformInstagram:
		return s.refreshInstagram(ctx, conn)
	case models.PlatformWordpress:
		// Application passwords do not expire.
		return nil
	}
	return fmt.Errorf("unknown platform %q", conn.Platform)
}

func (s *connectionService) refreshOAuth(ctx context.Context, conn *models.SocialConnection, conf *oauth2.Config) error {
	refreshToken, err := utils.Decrypt(conn.RefreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	newRefresh := token.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}

	return s.storeToken(ctx, conn, token.AccessToken, newRefresh, token.Expiry)
}

// refreshFacebook exchanges the current token for a fresh long-lived
// page token; the Graph API has no refresh-token grant.
func (s *connectionService) refreshFacebook(ctx context.Context, conn *models.SocialConnection) error {
	accessToken, err := utils.Decrypt(conn.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", s.cfg.FacebookAppID)
	params.Set("client_secret", s.cfg.FacebookAppSecret)
	params.Set("fb_exchange_token", accessToken)

	refreshed, err := fetchToken(ctx, FACEBOOK_TOKEN_URL+"?"+params.Encode())
	if err != nil {
		return err
	}

	return s.storeToken(ctx, conn, refreshed.AccessToken, "", GetExpiresAt(refreshed.ExpiresIn))
}

func (s *connectionService) refreshInstagram(ctx context.Context, conn *models.SocialConnection) error {
	accessToken, err := utils.Decrypt(conn.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	params := url.Values{}
	params.Set("grant_type", "ig_refresh_token")
	params.Set("access_token", accessToken)

	refreshed, err := fetchToken(ctx, INSTAGRAM_REFRESH_URL+"?"+params.Encode())
	if err != nil {
		return err
	}

	return s.storeToken(ctx, conn, refreshed.AccessToken, "", GetExpiresAt(refreshed.ExpiresIn))
}

func fetchToken(ctx context.Context, endpoint string) (*transfer.RefreshedToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("token refresh rejected: %s", string(body))
		slog.Info(err.Error())
		return nil, err
	}

	var token transfer.RefreshedToken
	if err := json.Unmarshal(body, &token); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &token, nil
}

// storeToken encrypts and persists rotated credentials, then updates
// the in-memory connection so the caller publishes with the new token.
func (s *connectionService) storeToken(ctx context.Context, conn *models.SocialConnection, accessToken, refreshToken string, expiresAt time.Time) error {
	encryptedAccess, err := utils.Encrypt([]byte(accessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	encryptedRefresh := ""
	if refreshToken != "" {
		encryptedRefresh, err = utils.Encrypt([]byte(refreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			slog.Info(err.Error())
			return err
		}
	}

	if err := s.cr.SetToken(ctx, conn.ID, encryptedAccess, encryptedRefresh, expiresAt); err != nil {
		return err
	}

	conn.AccessToken = encryptedAccess
	if encryptedRefresh != "" {
		conn.RefreshToken = encryptedRefresh
	}
	conn.TokenExpiresAt = expiresAt
	return nil
}
