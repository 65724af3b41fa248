package fiber

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/graphql-go/graphql"

	graphauth "github.com/morgante/graph-auth"
	"github.com/morgante/graph-auth/core"
	"github.com/morgante/graph-auth/schema"
)

const sessionCookie = "auth_token"

type graphqlRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// handleGraphQL returns the handler for the GraphQL endpoint. The viewer is
// resolved from the session token before execution; a session established
// by a mutation is written back as a cookie after it.
func handleGraphQL(g *graphauth.GraphAuth) fiber.Handler {
	return func(c fiber.Ctx) error {
		var req graphqlRequest
		if err := c.Bind().Body(&req); err != nil || req.Query == "" {
			return c.Status(http.StatusBadRequest).JSON(map[string]string{
				"error": "invalid request body",
			})
		}

		state := &schema.RequestState{
			Viewer:    resolveViewer(g, extractToken(c)),
			IPAddress: c.IP(),
			UserAgent: c.Get(fiber.HeaderUserAgent),
		}
		ctx := schema.WithRequestState(context.Background(), state)

		result := graphql.Do(graphql.Params{
			Schema:         g.Schema,
			RequestString:  req.Query,
			OperationName:  req.OperationName,
			VariableValues: req.Variables,
			Context:        ctx,
		})

		if state.SessionToken != "" {
			c.Cookie(&fiber.Cookie{
				Name:     sessionCookie,
				Value:    state.SessionToken,
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}

		return c.Status(http.StatusOK).JSON(result)
	}
}

// resolveViewer maps a session token to its user. Any failure resolves to
// an unauthenticated request rather than an error.
func resolveViewer(g *graphauth.GraphAuth, token string) *core.User {
	if token == "" {
		return nil
	}
	session, err := g.SessionManager.Verify(token)
	if err != nil {
		return nil
	}
	viewer, err := g.Users.ResolveViewer(session)
	if err != nil {
		return nil
	}
	return viewer
}

// extractToken extracts the authentication token from the request.
// Checks Authorization header (Bearer token) first, then falls back to cookie.
func extractToken(c fiber.Ctx) string {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}

	return c.Cookies(sessionCookie)
}
