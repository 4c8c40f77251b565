package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/homefixer/homefixer/internal/account"
	"github.com/homefixer/homefixer/internal/apperr"
	"github.com/homefixer/homefixer/internal/auth"
)

const accountIDKey = "account_id"

// TokenAuthenticator validates bearer access tokens.
type TokenAuthenticator interface {
	Authenticate(token string) (*auth.Claims, error)
}

// AccountFinder loads the account a token belongs to.
type AccountFinder interface {
	FindByID(ctx context.Context, id string) (account.Account, error)
}

// JWTAuth requires a valid access token for an active account and stores the
// account id in the request locals.
func JWTAuth(tokens TokenAuthenticator, accounts AccountFinder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return apperr.New(apperr.ErrUnauthorized, "Authentication credentials were not provided.")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := tokens.Authenticate(tokenStr)
		if err != nil {
			return err
		}

		acc, err := accounts.FindByID(c.UserContext(), claims.Subject)
		if err != nil {
			return apperr.Wrap(apperr.ErrUnauthorized, "User not found", err)
		}
		if !acc.Active {
			return apperr.New(apperr.ErrUnauthorized, "User is inactive")
		}

		c.Locals(accountIDKey, acc.ID)
		return c.Next()
	}
}

// AccountID returns the authenticated account id, or "" on public routes.
func AccountID(c *fiber.Ctx) string {
	id, _ := c.Locals(accountIDKey).(string)
	return id
}
