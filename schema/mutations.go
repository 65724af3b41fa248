package schema

import (
	"github.com/graphql-go/graphql"

	"github.com/morgante/graph-auth/core"
	"github.com/morgante/graph-auth/services"
)

type userPayload struct {
	OK   bool       `json:"ok"`
	User *core.User `json:"user"`
}

type okPayload struct {
	OK bool `json:"ok"`
}

type updatePayload struct {
	OK     bool       `json:"ok"`
	Result *core.User `json:"result"`
}

func buildMutation(cfg Config, userType *graphql.Object) *graphql.Object {
	// The login-key argument is named after the configured username field.
	loginArg := lowerCamel(cfg.Settings.UsernameField())

	userPayloadType := graphql.NewObject(graphql.ObjectConfig{
		Name: "UserPayload",
		Fields: graphql.Fields{
			"ok":   &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"user": &graphql.Field{Type: userType},
		},
	})
	okPayloadType := graphql.NewObject(graphql.ObjectConfig{
		Name: "OkPayload",
		Fields: graphql.Fields{
			"ok": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		},
	})
	updatePayloadType := graphql.NewObject(graphql.ObjectConfig{
		Name: "UpdateUserPayload",
		Fields: graphql.Fields{
			"ok":     &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"result": &graphql.Field{Type: userType},
		},
	})

	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"registerUser": &graphql.Field{
				Type: userPayloadType,
				Args: registerArgs(loginArg),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return resolveRegister(cfg, loginArg, p)
				},
			},
			"loginUser": &graphql.Field{
				Type: userPayloadType,
				Args: graphql.FieldConfigArgument{
					loginArg:   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return resolveLogin(cfg, loginArg, p)
				},
			},
			"resetPasswordRequest": &graphql.Field{
				Type: okPayloadType,
				Args: graphql.FieldConfigArgument{
					"email": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					email, _ := p.Args["email"].(string)
					if err := cfg.Auth.RequestPasswordReset(email); err != nil {
						return nil, err
					}
					return okPayload{OK: true}, nil
				},
			},
			"resetPassword": &graphql.Field{
				Type: userPayloadType,
				Args: graphql.FieldConfigArgument{
					"id":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"token":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(string)
					token, _ := p.Args["token"].(string)
					password, _ := p.Args["password"].(string)
					user, err := cfg.Auth.ResetPassword(id, token, password)
					if err != nil {
						return nil, err
					}
					return userPayload{OK: true, User: user}, nil
				},
			},
			"updateUser": &graphql.Field{
				Type: updatePayloadType,
				Args: updateUserArgs(cfg),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return resolveUpdateUser(cfg, p)
				},
			},
		},
	})
}

func registerArgs(loginArg string) graphql.FieldConfigArgument {
	args := graphql.FieldConfigArgument{
		"email":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
		"password":  &graphql.ArgumentConfig{Type: graphql.String},
		"firstName": &graphql.ArgumentConfig{Type: graphql.String},
		"lastName":  &graphql.ArgumentConfig{Type: graphql.String},
	}
	if loginArg != "email" {
		args[loginArg] = &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}
	}
	return args
}

func resolveRegister(cfg Config, loginArg string, p graphql.ResolveParams) (interface{}, error) {
	state := StateFrom(p.Context)

	input := services.RegisterInput{}
	input.Email, _ = p.Args["email"].(string)
	input.Password, _ = p.Args["password"].(string)
	input.FirstName, _ = p.Args["firstName"].(string)
	input.LastName, _ = p.Args["lastName"].(string)
	if loginArg != "email" {
		input.Login, _ = p.Args[loginArg].(string)
	}

	result, err := cfg.Auth.Register(state.Viewer, input, state.IPAddress, state.UserAgent)
	if err != nil {
		return nil, err
	}
	if result.SessionToken != "" {
		state.SessionToken = result.SessionToken
	}
	return userPayload{OK: result.OK, User: result.User}, nil
}

func resolveLogin(cfg Config, loginArg string, p graphql.ResolveParams) (interface{}, error) {
	state := StateFrom(p.Context)

	input := services.LoginInput{}
	input.Login, _ = p.Args[loginArg].(string)
	input.Password, _ = p.Args["password"].(string)

	result, err := cfg.Auth.Login(input, state.IPAddress, state.UserAgent)
	if err != nil {
		return nil, err
	}
	if result.SessionToken != "" {
		state.SessionToken = result.SessionToken
	}
	return userPayload{OK: result.OK, User: result.User}, nil
}

func updateUserArgs(cfg Config) graphql.FieldConfigArgument {
	args := graphql.FieldConfigArgument{
		"password":        &graphql.ArgumentConfig{Type: graphql.String},
		"currentPassword": &graphql.ArgumentConfig{Type: graphql.String},
	}
	for _, name := range cfg.Settings.UserFields() {
		if _, ok := core.FieldAccessorFor(name); !ok {
			continue
		}
		args[lowerCamel(name)] = &graphql.ArgumentConfig{Type: graphql.String}
	}
	return args
}

func resolveUpdateUser(cfg Config, p graphql.ResolveParams) (interface{}, error) {
	state := StateFrom(p.Context)

	input := services.UpdateUserInput{Fields: map[string]string{}}
	for _, name := range cfg.Settings.UserFields() {
		if value, ok := p.Args[lowerCamel(name)].(string); ok {
			input.Fields[name] = value
		}
	}
	if password, ok := p.Args["password"].(string); ok {
		input.Password = &password
	}
	if current, ok := p.Args["currentPassword"].(string); ok {
		input.CurrentPassword = &current
	}

	result, err := cfg.Auth.UpdateUser(state.Viewer, input)
	if err != nil {
		return nil, err
	}
	return updatePayload{OK: true, Result: result}, nil
}
