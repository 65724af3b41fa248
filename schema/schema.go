// Package schema builds the GraphQL surface: the user type generated from
// the configured field set, the query root, and the mutation root.
package schema

import (
	"strings"

	"github.com/graphql-go/graphql"

	"github.com/morgante/graph-auth/core"
	"github.com/morgante/graph-auth/services"
)

// Config wires the schema to the service layer. The schema is generated
// once from the settings snapshot captured at build time; a settings reload
// requires rebuilding the schema.
type Config struct {
	Settings *core.Settings
	Auth     *services.AuthService
	Users    *services.UserService
	Tokens   core.TokenIssuer
}

// New builds the executable schema.
func New(cfg Config) (graphql.Schema, error) {
	userType := buildUserType(cfg)

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    buildQuery(cfg, userType),
		Mutation: buildMutation(cfg, userType),
	})
}

// buildUserType generates the user object from USER_FIELDS, plus the opaque
// id and the gated token field.
func buildUserType(cfg Config) *graphql.Object {
	fields := graphql.Fields{
		"id": &graphql.Field{
			Type: graphql.NewNonNull(graphql.ID),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				u, ok := p.Source.(*core.User)
				if !ok {
					return nil, nil
				}
				return EncodeGlobalID(u.ID), nil
			},
		},
		"token": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				u, ok := p.Source.(*core.User)
				if !ok {
					return nil, nil
				}
				// The token resolves only for the subject identity or for
				// the record just authenticated in this request. Everyone
				// else gets nothing, never an error.
				viewer := ViewerFrom(p.Context)
				if (viewer == nil || viewer.ID != u.ID) && !u.CurrentForRequest {
					return nil, nil
				}
				return cfg.Tokens.Issue(u)
			},
		},
	}

	for _, name := range cfg.Settings.UserFields() {
		accessor, ok := core.FieldAccessorFor(name)
		if !ok {
			continue
		}
		fields[lowerCamel(name)] = &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				u, ok := p.Source.(*core.User)
				if !ok {
					return nil, nil
				}
				return accessor.Get(u), nil
			},
		}
	}

	return graphql.NewObject(graphql.ObjectConfig{
		Name:   "User",
		Fields: fields,
	})
}

// lowerCamel converts a snake_case field name to its GraphQL spelling.
func lowerCamel(name string) string {
	parts := strings.Split(name, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] == "" {
			continue
		}
		parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
	}
	return strings.Join(parts, "")
}
