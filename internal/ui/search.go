// Package ui holds the frontend behaviour shared by the web frontend and the terminal UI: the
// search form, the results container and the birthday list.
package ui

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"gitlab.com/dirk.krummacker/contacts-frontend/pkg/model"
	"go.uber.org/zap"
)

// Form holds the three optional search fields.
type Form struct {
	FirstName string
	LastName  string
	Email     string
}

// Query returns the query string for the fields that are not blank, always in the order
// first_name, last_name, email. Values are trimmed and query-escaped.
func (f Form) Query() string {
	fields := []struct{ key, value string }{
		{"first_name", f.FirstName},
		{"last_name", f.LastName},
		{"email", f.Email},
	}
	var params []string
	for _, field := range fields {
		if value := strings.TrimSpace(field.value); value != "" {
			params = append(params, field.key+"="+url.QueryEscape(value))
		}
	}
	return strings.Join(params, "&")
}

// Container is the place where search results are shown. Its content is only ever replaced as
// a whole.
type Container interface {
	Replace(content string)
}

// Results is a Container that is safe for concurrent use.
type Results struct {
	mu      sync.RWMutex
	content string
}

func (r *Results) Replace(content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.content = content
}

// Content returns what was last put into the container.
func (r *Results) Content() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.content
}

// SearchAPI is the part of the contacts client that searching needs.
type SearchAPI interface {
	SearchContacts(ctx context.Context, query string) ([]model.Contact, error)
}

// Searcher runs searches and renders the results.
type Searcher struct {
	API SearchAPI

	// Render turns the found contacts into the container content. It is responsible for the
	// empty-state message.
	Render func([]model.Contact) (string, error)

	Logger *zap.Logger
}

// Search fetches the contacts matching form and replaces the content of out with the rendered
// table. On failure the error is logged, out keeps its previous content and the error is
// returned for callers that want to show it.
func (s *Searcher) Search(ctx context.Context, form Form, out Container) error {
	query := form.Query()
	contacts, err := s.API.SearchContacts(ctx, query)
	if err != nil {
		s.logger().Error("search failed", zap.String("query", query), zap.Error(err))
		return err
	}
	content, err := s.Render(contacts)
	if err != nil {
		s.logger().Error("could not render search results", zap.Error(err))
		return err
	}
	out.Replace(content)
	return nil
}

func (s *Searcher) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
