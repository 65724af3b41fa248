// Package mail renders and delivers the templated email the mutations send:
// welcome messages and password-reset links.
package mail

import (
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/morgante/graph-auth/core"
)

// Template is a named subject/body pair.
type Template struct {
	Name    string
	subject *template.Template
	body    *template.Template
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Template)
)

// RegisterTemplate parses and registers a template under name. Registering
// the same name again replaces the previous template. Registered templates
// are also resolvable as import-string settings.
func RegisterTemplate(name, subject, body string) error {
	subjectTmpl, err := template.New(name + ":subject").Parse(subject)
	if err != nil {
		return fmt.Errorf("parse subject template %q: %w", name, err)
	}
	bodyTmpl, err := template.New(name + ":body").Parse(body)
	if err != nil {
		return fmt.Errorf("parse body template %q: %w", name, err)
	}

	tmpl := &Template{Name: name, subject: subjectTmpl, body: bodyTmpl}

	registryMu.Lock()
	registry[name] = tmpl
	registryMu.Unlock()

	core.RegisterImport(name, tmpl)
	return nil
}

// LookupTemplate returns a registered template by name.
func LookupTemplate(name string) (*Template, error) {
	registryMu.RLock()
	tmpl, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("email template %q is not registered", name)
	}
	return tmpl, nil
}

// Render executes the subject and body against the message context.
func (t *Template) Render(context map[string]any) (subject, body string, err error) {
	var subjectBuf, bodyBuf strings.Builder
	if err := t.subject.Execute(&subjectBuf, context); err != nil {
		return "", "", fmt.Errorf("render subject %q: %w", t.Name, err)
	}
	if err := t.body.Execute(&bodyBuf, context); err != nil {
		return "", "", fmt.Errorf("render body %q: %w", t.Name, err)
	}
	return strings.TrimSpace(subjectBuf.String()), bodyBuf.String(), nil
}

// DefaultResetTemplate is the built-in reset email used when no custom
// template is configured.
const DefaultResetTemplate = "graph_auth/password_reset"

func init() {
	// The built-in flow only needs the link; custom templates may use the
	// full context (email, first_name, last_name, link).
	_ = RegisterTemplate(DefaultResetTemplate,
		"Password reset",
		"You're receiving this email because you requested a password reset.\n\n"+
			"Please go to the following page and choose a new password:\n\n{{.link}}\n",
	)
}
