package middleware

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/99minutos/catalog-system/internal/core/domain"
)

// RBAC admits requests whose token role is one of roles. Naming a role the
// auth service never issues is a programming error and panics.
func RBAC(roles ...string) echo.MiddlewareFunc {
	if unknown := lo.Reject(roles, func(r string, _ int) bool { return domain.ValidRole(r) }); len(unknown) > 0 {
		panic(fmt.Sprintf("middleware: unknown roles %v", unknown))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(ContextKeyRole).(string)
			if !lo.Contains(roles, role) {
				return errors.Wrapf(domain.ErrForbidden, "role %q on %s %s", role, c.Request().Method, c.Path())
			}
			return next(c)
		}
	}
}
