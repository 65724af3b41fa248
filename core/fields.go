package core

// FieldAccessor reads and writes one string field on a User. The accessor
// table is the typed replacement for reflecting over a model's field list:
// it is built once at startup and drives schema generation, filtering, and
// profile updates.
type FieldAccessor struct {
	Name string
	Get  func(u *User) string
	Set  func(u *User, value string)
}

var fieldAccessors = map[string]FieldAccessor{
	"email": {
		Name: "email",
		Get:  func(u *User) string { return u.Email },
		Set:  func(u *User, v string) { u.Email = v },
	},
	"username": {
		Name: "username",
		Get:  func(u *User) string { return u.Username },
		Set:  func(u *User, v string) { u.Username = v },
	},
	"first_name": {
		Name: "first_name",
		Get:  func(u *User) string { return u.FirstName },
		Set:  func(u *User, v string) { u.FirstName = v },
	},
	"last_name": {
		Name: "last_name",
		Get:  func(u *User) string { return u.LastName },
		Set:  func(u *User, v string) { u.LastName = v },
	},
}

// FieldAccessorFor returns the accessor for a user field name.
// The second return is false for names outside the accessor table.
func FieldAccessorFor(name string) (FieldAccessor, bool) {
	a, ok := fieldAccessors[name]
	return a, ok
}

// KnownUserFields lists every field name the accessor table can serve.
func KnownUserFields() []string {
	return []string{"email", "username", "first_name", "last_name"}
}
