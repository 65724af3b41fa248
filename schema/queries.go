package schema

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/graphql-go/graphql"

	"github.com/morgante/graph-auth/core"
)

type userEdge struct {
	Node   *core.User `json:"node"`
	Cursor string     `json:"cursor"`
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type userConnection struct {
	Edges    []userEdge `json:"edges"`
	PageInfo pageInfo   `json:"pageInfo"`
}

func encodeCursor(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte("cursor:" + strconv.Itoa(offset)))
}

func decodeCursor(cursor string) (int, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("malformed cursor")
	}
	value, found := strings.CutPrefix(string(raw), "cursor:")
	if !found {
		return 0, fmt.Errorf("malformed cursor")
	}
	offset, err := strconv.Atoi(value)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("malformed cursor")
	}
	return offset, nil
}

func buildConnectionTypes(userType *graphql.Object) *graphql.Object {
	edgeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "UserEdge",
		Fields: graphql.Fields{
			"node":   &graphql.Field{Type: userType},
			"cursor": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	pageInfoType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PageInfo",
		Fields: graphql.Fields{
			"hasNextPage": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"endCursor":   &graphql.Field{Type: graphql.String},
		},
	})

	return graphql.NewObject(graphql.ObjectConfig{
		Name: "UserConnection",
		Fields: graphql.Fields{
			"edges":    &graphql.Field{Type: graphql.NewList(edgeType)},
			"pageInfo": &graphql.Field{Type: graphql.NewNonNull(pageInfoType)},
		},
	})
}

func buildQuery(cfg Config, userType *graphql.Object) *graphql.Object {
	connectionType := buildConnectionTypes(userType)

	// Filter args mirror the configured field set.
	usersArgs := graphql.FieldConfigArgument{
		"first": &graphql.ArgumentConfig{Type: graphql.Int},
		"after": &graphql.ArgumentConfig{Type: graphql.String},
	}
	filterFields := map[string]string{} // arg name -> field name
	for _, name := range cfg.Settings.UserFields() {
		if _, ok := core.FieldAccessorFor(name); !ok {
			continue
		}
		arg := lowerCamel(name)
		filterFields[arg] = name
		usersArgs[arg] = &graphql.ArgumentConfig{Type: graphql.String}
	}

	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"user": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(string)
					pk, err := DecodeGlobalID(id)
					if err != nil {
						// Undecodable ids behave like missing records.
						return nil, nil
					}
					return cfg.Users.GetUser(ViewerFrom(p.Context), pk)
				},
			},
			"users": &graphql.Field{
				Type: connectionType,
				Args: usersArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return resolveUsers(cfg, filterFields, p)
				},
			},
			"me": &graphql.Field{
				Type: userType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					viewer := cfg.Users.Me(ViewerFrom(p.Context))
					if viewer == nil {
						return nil, nil
					}
					return viewer, nil
				},
			},
		},
	})
}

func resolveUsers(cfg Config, filterFields map[string]string, p graphql.ResolveParams) (interface{}, error) {
	filter := core.UserFilter{Fields: map[string]string{}}

	for arg, field := range filterFields {
		if value, ok := p.Args[arg].(string); ok {
			filter.Fields[field] = value
		}
	}
	if after, ok := p.Args["after"].(string); ok && after != "" {
		offset, err := decodeCursor(after)
		if err != nil {
			return nil, err
		}
		filter.Offset = offset
	}

	first, _ := p.Args["first"].(int)
	if first > 0 {
		// Fetch one extra row to learn whether another page exists.
		filter.Limit = first + 1
	}

	users, err := cfg.Users.ListUsers(filter)
	if err != nil {
		return nil, err
	}

	hasNext := false
	if first > 0 && len(users) > first {
		hasNext = true
		users = users[:first]
	}

	conn := userConnection{PageInfo: pageInfo{HasNextPage: hasNext}}
	for i, u := range users {
		cursor := encodeCursor(filter.Offset + i + 1)
		conn.Edges = append(conn.Edges, userEdge{Node: u, Cursor: cursor})
		conn.PageInfo.EndCursor = cursor
	}
	return conn, nil
}
