package middleware

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/proofscan/proof-manager/internal/errdef"
	"github.com/proofscan/proof-manager/pkg/model"
)

func NewAuthentication(publicKey *rsa.PublicKey, apiKeyService apiKeyService, adminApiKey string) AuthenticationMiddleware {
	return AuthenticationMiddleware{
		publicKey:     publicKey,
		apiKeyService: apiKeyService,
		adminApiKey:   adminApiKey,
	}
}

type apiKeyService interface {
	FindTeamByApiKeyHash(ctx context.Context, hash string) (*model.Team, error)
}

type AuthenticationMiddleware struct {
	publicKey     *rsa.PublicKey
	apiKeyService apiKeyService
	adminApiKey   string
}

// TokenAuthentication validates the session JWT issued by the auth provider
// and puts the user it describes on the request context. Used by the
// dashboard routes.
func (m AuthenticationMiddleware) TokenAuthentication(c *gin.Context) {
	user, err := parseRequest(c.Request, m.publicKey)
	if err != nil {
		_ = c.Error(errdef.NewUnauthorized("token not valid"))
		c.Abort()
		return
	}

	ctx := model.NewContextWithUser(c.Request.Context(), user)
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

// ApiKeyAuthentication resolves the bearer token to a team via its SHA-256
// hash. Used by the public API routes.
func (m AuthenticationMiddleware) ApiKeyAuthentication(c *gin.Context) {
	key, ok := bearerToken(c.Request)
	if !ok {
		_ = c.Error(errdef.NewUnauthorized("missing API key"))
		c.Abort()
		return
	}

	hash := sha256.Sum256([]byte(key))
	team, err := m.apiKeyService.FindTeamByApiKeyHash(c.Request.Context(), hex.EncodeToString(hash[:]))
	if err != nil {
		_ = c.Error(errdef.NewUnauthorized("API key not valid"))
		c.Abort()
		return
	}

	c.Set("team", team)
	c.Next()
}

// AdminTokenAuthentication guards the internal trusted endpoints with the
// shared admin key.
func (m AuthenticationMiddleware) AdminTokenAuthentication(c *gin.Context) {
	key, ok := bearerToken(c.Request)
	if !ok || subtle.ConstantTimeCompare([]byte(key), []byte(m.adminApiKey)) != 1 {
		_ = c.Error(errdef.NewUnauthorized("admin key not valid"))
		c.Abort()
		return
	}

	c.Next()
}

// GetTeamFromContext returns the team resolved by [AuthenticationMiddleware.ApiKeyAuthentication].
func GetTeamFromContext(c *gin.Context) (*model.Team, error) {
	teamData, exists := c.Get("team")
	if !exists {
		return nil, errors.New("team not found on context")
	}

	team, ok := teamData.(*model.Team)
	if !ok {
		return nil, errors.New("failed to parse team data")
	}
	return team, nil
}

func bearerToken(request *http.Request) (string, bool) {
	header := request.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

func parseRequest(request *http.Request, key *rsa.PublicKey) (*model.User, error) {
	token, err := jwt.ParseRequest(
		request,
		jwt.WithKey(jwa.RS256, key),
		jwt.WithHeaderKey("Authorization"),
		jwt.WithCookieKey("accessToken"),
	)
	if err != nil {
		return nil, err
	}

	return extractUser(token)
}

func extractUser(token jwt.Token) (*model.User, error) {
	userData, ok := token.Get("user")
	if !ok {
		return nil, errors.New("user not found in claims")
	}

	bytes, err := json.Marshal(userData)
	if err != nil {
		return nil, err
	}

	user := &model.User{}
	err = json.Unmarshal(bytes, user)
	return user, err
}
