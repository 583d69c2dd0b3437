package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/account-portal/config"
	"github.com/oksasatya/account-portal/internal/domain/entity"
	repo "github.com/oksasatya/account-portal/internal/domain/repository"
	"github.com/oksasatya/account-portal/pkg/helpers"
	"github.com/oksasatya/account-portal/pkg/mailer"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailDuplicate     = errors.New("email already registered")
	ErrUserDuplicate      = errors.New("username already registered")
	ErrStorageDisabled    = errors.New("gcs not configured")
	ErrMailUnavailable    = errors.New("mail queue unavailable")
)

type Service struct {
	Repo   repo.UserRepository
	JWT    *helpers.JWTManager
	Redis  *redis.Client
	Logger *logrus.Logger
	Cfg    *config.Config

	// optional integrations; nil disables them
	GCS          *storage.Client
	GCSBucket    string
	ES           *elasticsearch.Client
	ESUsersIndex string
	Mail         mailer.Publisher
}

type Token struct {
	AccessToken       string
	AccessTokenExpiry time.Time
}

type LoginResponse struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

const searchCacheTTL = 30 * time.Second

func NewService(repo repo.UserRepository, jwt *helpers.JWTManager, rdb *redis.Client, logger *logrus.Logger, cfg *config.Config) *Service {
	return &Service{
		Repo:   repo,
		JWT:    jwt,
		Redis:  rdb,
		Logger: logger,
		Cfg:    cfg,
	}
}

func (s *Service) sessionTTL() time.Duration {
	if s.Cfg != nil && s.Cfg.SessionTTL > 0 {
		return s.Cfg.SessionTTL
	}
	return 24 * time.Hour
}

// Authenticate checks the password of the account named by username.
// An address containing "@" is looked up by e-mail instead.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*entity.User, error) {
	name := strings.TrimSpace(username)
	lookup := s.Repo.GetByUsername
	if strings.Contains(name, "@") {
		lookup, name = s.Repo.GetByEmail, normalizeEmail(name)
	}
	u, err := lookup(ctx, name)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			helpers.LogError(s.Logger, "user lookup failed", err, nil)
		}
		return nil, ErrInvalidCredentials
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// IssueToken generates an access token and records the session in Redis.
func (s *Service) IssueToken(ctx context.Context, u *entity.User) (Token, error) {
	sid := uuid.NewString()
	access, aexp, err := s.JWT.GenerateAccessToken(u.ID, sid)
	if err != nil {
		helpers.LogError(s.Logger, "generate access token failed", err, logrus.Fields{"user_id": u.ID})
		return Token{}, err
	}

	if s.Redis != nil {
		sess := helpers.Session{UserID: u.ID, Email: u.Email, Username: u.Username, SID: sid, CreatedAt: time.Now()}
		if rErr := helpers.SaveSession(ctx, s.Redis, sess, s.sessionTTL()); rErr != nil {
			helpers.LogWarn(s.Logger, "save session failed", rErr, logrus.Fields{"user_id": u.ID})
		}
	}

	return Token{AccessToken: access, AccessTokenExpiry: aexp}, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (*LoginResponse, Token, error) {
	u, err := s.Authenticate(ctx, username, password)
	if err != nil {
		loginFailures.Add(1)
		return nil, Token{}, err
	}
	tok, err := s.IssueToken(ctx, u)
	if err != nil {
		return nil, Token{}, err
	}
	logins.Add(1)
	return &LoginResponse{UserID: u.ID, Email: u.Email, Username: u.Username}, tok, nil
}

// Logout drops the Redis session so outstanding tokens stop working.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if s.Redis == nil || userID == "" {
		return nil
	}
	return helpers.DropSession(ctx, s.Redis, userID)
}

// Session returns the live session of a user, or nil when there is none.
func (s *Service) Session(ctx context.Context, userID string) (*helpers.Session, error) {
	if s.Redis == nil {
		return nil, nil
	}
	sess, err := helpers.LoadSession(ctx, s.Redis, userID)
	if errors.Is(err, helpers.ErrNoSession) {
		return nil, nil
	}
	return sess, err
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (s *Service) GetProfileByEmail(ctx context.Context, email string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// normalizeEmail is the stored form of an address: trimmed and lower-cased.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func notFound(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

type UpdateProfileInput struct {
	RealName    string
	RealSurname string
	School      string
	University  string
	WorkPlace   string
}

// UpdateProfileByEmail overwrites the editable profile fields of the account.
func (s *Service) UpdateProfileByEmail(ctx context.Context, email string, in UpdateProfileInput) (*entity.User, error) {
	u, err := s.GetProfileByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	u.RealName = strings.TrimSpace(in.RealName)
	u.RealSurname = strings.TrimSpace(in.RealSurname)
	u.School = strings.TrimSpace(in.School)
	u.University = strings.TrimSpace(in.University)
	u.WorkPlace = strings.TrimSpace(in.WorkPlace)
	if err := s.Repo.Update(ctx, u); err != nil {
		return nil, err
	}
	profileUpdates.Add(1)

	s.touchSession(ctx, u.ID)
	_ = s.indexUser(ctx, u)
	return u, nil
}

func (s *Service) touchSession(ctx context.Context, userID string) {
	if s.Redis == nil {
		return
	}
	if err := helpers.TouchSession(ctx, s.Redis, userID); err != nil {
		helpers.LogWarn(s.Logger, "touch session failed", err, logrus.Fields{"user_id": userID})
	}
}

// UploadAvatar stores the image in GCS and points the profile at it.
func (s *Service) UploadAvatar(ctx context.Context, userID string, r io.Reader, filename, contentType string) (string, error) {
	if s.GCS == nil || s.GCSBucket == "" {
		return "", ErrStorageDisabled
	}
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	url, err := helpers.UploadObject(ctx, s.GCS, s.GCSBucket, helpers.AvatarObjectPath(userID, filename), contentType, r)
	if err != nil {
		return "", err
	}
	previous := u.AvatarURL
	u.AvatarURL = url
	if err := s.Repo.Update(ctx, u); err != nil {
		return "", err
	}
	if obj, ok := helpers.ObjectPathFromURL(s.GCSBucket, previous); ok {
		if err := helpers.DeleteObject(ctx, s.GCS, s.GCSBucket, obj); err != nil {
			helpers.LogWarn(s.Logger, "delete previous avatar failed", err, logrus.Fields{"object": obj})
		}
	}
	s.touchSession(ctx, u.ID)
	_ = s.indexUser(ctx, u)
	return url, nil
}

func (s *Service) indexUser(ctx context.Context, u *entity.User) error {
	if s.ES == nil || s.ESUsersIndex == "" {
		return nil
	}
	doc := map[string]any{
		"id":           u.ID,
		"email":        u.Email,
		"username":     u.Username,
		"real_name":    u.RealName,
		"real_surname": u.RealSurname,
		"school":       u.School,
		"university":   u.University,
		"work_place":   u.WorkPlace,
		"avatar_url":   u.AvatarURL,
		"updated_at":   u.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: u.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		helpers.LogWarn(s.Logger, "es index failed", err, logrus.Fields{"user_id": u.ID})
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		helpers.LogWarn(s.Logger, "es index response error", nil, logrus.Fields{"status": res.Status(), "user_id": u.ID})
	}
	return nil
}

// SearchHit is the public part of an indexed profile.
type SearchHit struct {
	Username    string `json:"username"`
	RealName    string `json:"real_name"`
	RealSurname string `json:"real_surname"`
	School      string `json:"school"`
	University  string `json:"university"`
	WorkPlace   string `json:"work_place"`
	AvatarURL   string `json:"avatar_url"`
}

// SearchUsers runs a multi_match over the profile fields. Results are cached in Redis briefly.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]SearchHit, error) {
	if s.ES == nil || s.ESUsersIndex == "" || strings.TrimSpace(q) == "" {
		return []SearchHit{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}

	cacheKey := helpers.SearchCacheKey(q, size)
	if s.Redis != nil {
		var cached []SearchHit
		if ok, err := helpers.CachedJSON(ctx, s.Redis, cacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}

	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"username^2", "real_name", "real_surname", "school", "university", "work_place"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESUsersIndex), s.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	hits, err := decodeHits(res.Body)
	if err != nil {
		return nil, err
	}
	if s.Redis != nil {
		_ = helpers.CacheJSON(ctx, s.Redis, cacheKey, hits, searchCacheTTL)
	}
	return hits, nil
}

func decodeHits(r io.Reader) ([]SearchHit, error) {
	var parsed struct {
		Hits struct {
			Hits []struct {
				Source SearchHit `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(r).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]SearchHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
