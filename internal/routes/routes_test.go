package routes_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jokeworks/joker-api/internal/config"
	"github.com/jokeworks/joker-api/internal/handlers"
	"github.com/jokeworks/joker-api/internal/middleware"
	"github.com/jokeworks/joker-api/internal/models"
	"github.com/jokeworks/joker-api/internal/routes"
	"github.com/jokeworks/joker-api/internal/sources"
	"github.com/jokeworks/joker-api/internal/store"
	"github.com/jokeworks/joker-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "routes-test-secret"

func newApp(t *testing.T) (*fiber.App, *store.Store) {
	t.Helper()
	st := store.New(testutil.OpenDB(t))
	cfg := &config.Config{JWTSecret: testSecret, CORSOrigins: "*"}

	app := fiber.New()
	app.Use(middleware.OptionalJWT(cfg))
	routes.Setup(app, st, nil,
		handlers.NewJokeHandler(nil),
		handlers.NewUserHandler(st),
		handlers.NewAdminHandler(st, sources.NewHealthTracker(nil)),
		handlers.NewHealthHandler(func() error { return nil }),
	)
	return app, st
}

func signToken(t *testing.T, sub uuid.UUID) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func getAs(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestAdminSurfaceRoleGated(t *testing.T) {
	app, st := newApp(t)
	ctx := context.Background()

	dbm, err := st.CreateUser(ctx, "dbm@example.com", []models.Role{models.RoleDatabaseManager})
	require.NoError(t, err)
	plain, err := st.CreateUser(ctx, "plain@example.com", []models.Role{models.RoleAPIUser})
	require.NoError(t, err)

	dbmToken := signToken(t, dbm.ID)
	plainToken := signToken(t, plain.ID)

	for _, path := range []string{"/admin/jokes/status", "/admin/sources/health", "/admin/requests"} {
		assert.Equal(t, fiber.StatusOK, getAs(t, app, path, dbmToken), path)
		assert.Equal(t, fiber.StatusForbidden, getAs(t, app, path, plainToken), path)
		assert.Equal(t, fiber.StatusUnauthorized, getAs(t, app, path, ""), path)
	}
}

func TestUserSurfaceSystemAdminOnly(t *testing.T) {
	app, st := newApp(t)
	ctx := context.Background()

	admin, err := st.CreateUser(ctx, "admin@example.com", []models.Role{models.RoleSystemAdmin})
	require.NoError(t, err)
	// DATABASE_MANAGER runs the joke database, not user management.
	dbm, err := st.CreateUser(ctx, "dbm@example.com", []models.Role{models.RoleDatabaseManager})
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, getAs(t, app, "/users", signToken(t, admin.ID)))
	assert.Equal(t, fiber.StatusForbidden, getAs(t, app, "/users", signToken(t, dbm.ID)))
}

func TestHealthOpen(t *testing.T) {
	app, _ := newApp(t)
	assert.Equal(t, fiber.StatusOK, getAs(t, app, "/health", ""))
}
