// Package fiber mounts the GraphQL endpoint on a Fiber application.
package fiber

import (
	"github.com/gofiber/fiber/v3"

	graphauth "github.com/morgante/graph-auth"
)

type Adapter struct {
	app *fiber.App
}

var _ graphauth.HTTPAdapter = (*Adapter)(nil)

func New(app *fiber.App) *Adapter {
	return &Adapter{app: app}
}

func (a *Adapter) RegisterRoutes(g *graphauth.GraphAuth) error {
	a.app.Post(g.BasePath, handleGraphQL(g))
	return nil
}
