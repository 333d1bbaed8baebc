package echoapi

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
)

var (
	// appJWTConfig is the default JWT auth middleware config.
	appJWTConfig = middleware.JWTConfig{
		SigningKey:    core.Conf.SecretKey,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "userToken",
		Claims:        new(Claims),
	}
	contextUserKey = "user"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Username     string `json:"username,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`
	// TeacherID carries the linked teacher profile so attendance authorization
	// needs no extra lookup.
	TeacherID string `json:"teacher_id,omitempty"`
	// BreakGlass marks tokens issued through the operator-override login.
	BreakGlass bool `json:"brk,omitempty"`
}

func GetUserClaims(usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   usr.ID,
			Audience:  "Shule",
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
		Email:        usr.Email,
		Role:         usr.Role,
		TeacherID:    usr.TeacherID,
		BreakGlass:   usr.BreakGlass,
	}
	return claims
}

func authenticate(ctx context.Context, uname, pwd string, svc user.Service, logger core.Logger) (*Claims, error) {
	if usr, ok := breakGlassLogin(uname, pwd); ok {
		logger.Warn("break-glass login used", map[string]interface{}{"username": uname})
		return GetUserClaims(usr), nil
	}

	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	if !usr.Active() {
		return nil, errAccountDeactivated
	}
	usr, err = svc.SetLastLogin(ctx, usr)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	return GetUserClaims(usr), nil
}

// breakGlassLogin matches the operator-override credentials from config. The
// account exists outside the users table and bypasses the active-user check;
// it is disabled unless both credentials are configured.
func breakGlassLogin(uname, pwd string) (user.User, bool) {
	conf := core.Conf.BreakGlass
	if conf.Username == "" || conf.Password == "" {
		return user.User{}, false
	}
	unameOK := subtle.ConstantTimeCompare([]byte(uname), []byte(conf.Username)) == 1
	pwdOK := subtle.ConstantTimeCompare([]byte(pwd), []byte(conf.Password)) == 1
	if !(unameOK && pwdOK) {
		return user.User{}, false
	}
	usr := user.User{
		Name:       "Operator",
		Username:   conf.Username,
		Role:       user.RoleAdmin,
		BreakGlass: true,
	}
	usr.SetActive(true)
	return usr, true
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context, svc user.Service, clms ...Claims) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return user.User{}, errors.Wrap(err, "getting context claims")
		}
	}

	// the break-glass principal has no users row; rebuild it from the claims
	if claims.BreakGlass {
		usr := user.User{
			Name:       "Operator",
			Username:   claims.Username,
			Role:       user.RoleAdmin,
			BreakGlass: true,
		}
		usr.SetActive(true)
		ctx.Set(contextUserKey, usr)
		return usr, nil
	}

	// a token decoding to a missing or deactivated principal fails
	// resolution, no matter how much lifetime it has left
	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	if !usr.Active() {
		return user.User{}, errAccountDeactivated
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

func refreshToken(ctx echo.Context, svc user.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	// getContextUser rejects deactivated and deleted principals
	usr, err := getContextUser(ctx, svc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(core.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := GetUserClaims(usr, claims.OrigIssuedAt)
	token, err := GenerateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}
