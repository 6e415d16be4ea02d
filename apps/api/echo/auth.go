package echoapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

const (
	sessionCookie     = "session"
	contextSessionKey = "session"
	contextClaimsKey  = "claims"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64     `json:"oriat,omitempty"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email,omitempty"`
	Role         user.Role `json:"role,omitempty"`
}

// Session rebuilds the request session out of the claims.
func (c Claims) Session() *user.Session {
	id, err := strconv.Atoi(c.Subject)
	if err != nil {
		return nil
	}
	return &user.Session{UserID: id, Name: c.Name, Email: c.Email, Role: c.Role}
}

type authenticator struct {
	conf *core.Config
	svc  user.Service
	key  []byte
}

func newAuthenticator(conf *core.Config, svc user.Service) *authenticator {
	return &authenticator{conf: conf, svc: svc, key: []byte(conf.SecretKey)}
}

func (a *authenticator) claims(usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.conf.AppName,
			Subject:   strconv.Itoa(usr.ID),
			ExpiresAt: now.Add(a.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         usr.Name,
		Email:        usr.Email,
		Role:         usr.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (a *authenticator) GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	ss, err := jwt.NewWithClaims(method, claims).SignedString(a.key)
	return ss, errors.Wrap(err, "signing token")
}

// tokenFromRequest reads the bearer token, falling back to the session cookie.
func tokenFromRequest(ctx echo.Context) string {
	if h := ctx.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		if parts := strings.SplitN(h, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := ctx.Cookie(sessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func (a *authenticator) parse(token string) (*Claims, error) {
	claims := new(Claims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != middleware.AlgorithmHS256 {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.key, nil
	})
	if err != nil || !parsed.Valid {
		return nil, errUnauthorized
	}
	return claims, nil
}

// sessionMiddleware stores the session of a valid token in the context.
// Requests without a (valid) token go through anonymously.
func (a *authenticator) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if token := tokenFromRequest(ctx); token != "" {
			if claims, err := a.parse(token); err == nil {
				if sess := claims.Session(); sess.IsLoggedIn() {
					ctx.Set(contextClaimsKey, *claims)
					ctx.Set(contextSessionKey, sess)
				}
			}
		}
		return next(ctx)
	}
}

func (a *authenticator) setSessionCookie(ctx echo.Context, token string, maxAge time.Duration) {
	ctx.SetCookie(a.cookie(token, int(maxAge.Seconds())))
}

func (a *authenticator) clearSessionCookie(ctx echo.Context) {
	ctx.SetCookie(a.cookie("", -1))
}

func (a *authenticator) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   !(a.conf.Debug || a.conf.TestMode),
		SameSite: http.SameSiteLaxMode,
	}
}

func (a *authenticator) refreshToken(ctx echo.Context) (string, error) {
	claims, ok := ctx.Get(contextClaimsKey).(Claims)
	if !ok {
		return "", errUnauthorized
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	usr, err := getContextUser(ctx, a.svc)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}
	return a.GenerateToken(a.claims(usr, claims.OrigIssuedAt))
}

func getSession(ctx echo.Context) *user.Session {
	if sess, ok := ctx.Get(contextSessionKey).(*user.Session); ok {
		return sess
	}
	return nil
}

// getContextUser loads the session User, once per request.
func getContextUser(ctx echo.Context, svc user.Service) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	sess := getSession(ctx)
	if !sess.IsLoggedIn() {
		return user.User{}, errUnauthorized
	}
	usr, err := svc.GetByID(ctx.Request().Context(), sess.UserID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

const contextUserKey = "user"
