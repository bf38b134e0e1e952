package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/client"
	"gitlab.com/dirk.krummacker/contacts-frontend/pkg/model"
	"go.uber.org/zap"
)

// fakeAPI answers with canned data and remembers what it was asked. The page loads the list and
// the birthdays concurrently, hence the mutex.
type fakeAPI struct {
	mu sync.Mutex

	listed    []model.Contact
	listErr   error
	found     []model.Contact
	searchErr error
	birthdays []model.Contact
	birthErr  error
	mutateErr error

	paging  [2]int
	queries []string
	created []model.Contact
	edited  []model.Contact
	deleted []int64
}

func (f *fakeAPI) ListContacts(_ context.Context, skip, limit int) ([]model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paging = [2]int{skip, limit}
	return f.listed, f.listErr
}

func (f *fakeAPI) SearchContacts(_ context.Context, query string) ([]model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return f.found, f.searchErr
}

func (f *fakeAPI) ListBirthdays(context.Context) ([]model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.birthdays, f.birthErr
}

func (f *fakeAPI) CreateContact(_ context.Context, contact model.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, contact)
	return f.mutateErr
}

func (f *fakeAPI) EditContact(_ context.Context, contact model.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edited = append(f.edited, contact)
	return f.mutateErr
}

func (f *fakeAPI) DeleteContact(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.mutateErr
}

var _ ContactsAPI = (*client.Client)(nil)

func contact(id int64, firstName, lastName string) model.Contact {
	return model.Contact{Id: id, FirstName: model.StringPtr(firstName), LastName: model.StringPtr(lastName)}
}

func newRouter(api *fakeAPI) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	return New(api, zap.NewNop()).SetupHttpRouter(false, nil)
}

func get(router *gin.Engine, target string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest(http.MethodGet, target, nil)
	router.ServeHTTP(recorder, request)
	return recorder
}

func post(router *gin.Engine, target string, form url.Values) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestShowPage(t *testing.T) {
	adam := contact(3, "Adam", "Krummacker")
	birthday := model.NewDate(2009, time.March, 31)
	adam.Birthday = &birthday
	api := &fakeAPI{
		listed:    []model.Contact{contact(1, "Dirk", "Krummacker"), contact(2, "Pavla", "Krummackerova")},
		birthdays: []model.Contact{adam},
	}
	router := newRouter(api)

	w := get(router, "/?skip=2&limit=2")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [2]int{2, 2}, api.paging)
	body := w.Body.String()
	assert.Contains(t, body, "<td>Dirk</td>")
	assert.Contains(t, body, "<td>Pavla</td>")
	assert.Contains(t, body, "<li>Adam Krummacker: March 31</li>")
	assert.Contains(t, body, `href="/?skip=0&amp;limit=2"`)
	assert.Contains(t, body, `href="/?skip=4&amp;limit=2"`)
}

func TestShowPageDefaults(t *testing.T) {
	api := &fakeAPI{listed: []model.Contact{}}
	router := newRouter(api)

	w := get(router, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [2]int{0, defaultLimit}, api.paging)
	assert.Contains(t, w.Body.String(), "<p>No contacts found.</p>")
	assert.NotContains(t, w.Body.String(), "previous")
	assert.NotContains(t, w.Body.String(), "next")
}

func TestShowPageInvalidPaging(t *testing.T) {
	router := newRouter(&fakeAPI{})
	for _, target := range []string{"/?skip=-1", "/?skip=abc", "/?limit=0", "/?limit=501"} {
		w := get(router, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

// TestShowPageBirthdaysUnavailable expects that the page is shown without birthdays when the API
// has none.
func TestShowPageBirthdaysUnavailable(t *testing.T) {
	api := &fakeAPI{
		listed:   []model.Contact{contact(1, "Dirk", "Krummacker")},
		birthErr: &client.StatusError{StatusCode: http.StatusNotFound},
	}
	w := get(newRouter(api), "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<td>Dirk</td>")
	assert.NotContains(t, w.Body.String(), "<li>")
}

func TestShowPageListFails(t *testing.T) {
	api := &fakeAPI{listErr: &client.StatusError{StatusCode: http.StatusInternalServerError}}
	w := get(newRouter(api), "/")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Could not load contacts: HTTP error! status: 500")
}

func TestSearch(t *testing.T) {
	api := &fakeAPI{
		listed: []model.Contact{contact(1, "Dirk", "Krummacker")},
		found:  []model.Contact{contact(7, "Erika", "Mustermann")},
	}
	router := newRouter(api)

	w := get(router, "/search?first_name=Erika&email=erika%40example.com")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"first_name=Erika&email=erika%40example.com"}, api.queries)
	body := w.Body.String()
	assert.Contains(t, body, "<td>Erika</td>")
	assert.Contains(t, body, `value="erika@example.com"`)
}

// TestSearchResultsEscaped expects markup in contact fields to reach the page as text.
func TestSearchResultsEscaped(t *testing.T) {
	api := &fakeAPI{found: []model.Contact{contact(7, "<script>alert(1)</script>", "O'Neil")}}
	w := get(newRouter(api), "/search?first_name=script")
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "<td>&lt;script&gt;alert(1)&lt;/script&gt;</td>")
	assert.Contains(t, body, "<td>O&#39;Neil</td>")
}

func TestSearchBlankFieldsOmitted(t *testing.T) {
	api := &fakeAPI{found: []model.Contact{}}
	w := get(newRouter(api), "/search?first_name=+++&last_name=+Smith+")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"last_name=Smith"}, api.queries)
}

func TestSearchNothingFound(t *testing.T) {
	api := &fakeAPI{listed: []model.Contact{contact(1, "Dirk", "Krummacker")}, found: []model.Contact{}}
	w := get(newRouter(api), "/search?last_name=nobody")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<div id="results"><p>No contacts found.</p></div>`)
}

// TestSearchFailureKeepsResults expects that a failed search shows the error next to the results
// of the previous search.
func TestSearchFailureKeepsResults(t *testing.T) {
	api := &fakeAPI{found: []model.Contact{contact(7, "Erika", "Mustermann")}}
	router := newRouter(api)

	w := get(router, "/search?first_name=erika")
	require.Equal(t, http.StatusOK, w.Code)

	api.mu.Lock()
	api.searchErr = &client.StatusError{StatusCode: http.StatusInternalServerError}
	api.mu.Unlock()

	w = get(router, "/search?first_name=hans")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Search failed: HTTP error! status: 500")
	assert.Contains(t, w.Body.String(), "<td>Erika</td>")
}

func TestCreateContact(t *testing.T) {
	api := &fakeAPI{}
	w := post(newRouter(api), "/contacts", url.Values{
		"first_name":   {"Hans"},
		"last_name":    {"Wurst"},
		"phone_number": {"+49081547110"},
		"birthday":     {"1969-03-02"},
		"email":        {""},
	})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	birthday := model.NewDate(1969, time.March, 2)
	want := []model.Contact{{
		FirstName:   model.StringPtr("Hans"),
		LastName:    model.StringPtr("Wurst"),
		PhoneNumber: model.StringPtr("+49081547110"),
		Birthday:    &birthday,
	}}
	if diff := cmp.Diff(want, api.created); diff != "" {
		t.Errorf("created contact mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateContactInvalidBirthday(t *testing.T) {
	api := &fakeAPI{}
	w := post(newRouter(api), "/contacts", url.Values{"first_name": {"Hans"}, "birthday": {"02.03.1969"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, api.created)
}

func TestCreateContactFails(t *testing.T) {
	api := &fakeAPI{mutateErr: &client.StatusError{StatusCode: http.StatusUnprocessableEntity}}
	w := post(newRouter(api), "/contacts", url.Values{"first_name": {"Hans"}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "could not create contact: HTTP error! status: 422", w.Body.String())
}

func TestEditContact(t *testing.T) {
	api := &fakeAPI{}
	w := post(newRouter(api), "/contacts/edit", url.Values{"id": {"4"}, "phone_number": {"+420333555777"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)

	want := []model.Contact{{Id: 4, PhoneNumber: model.StringPtr("+420333555777")}}
	if diff := cmp.Diff(want, api.edited); diff != "" {
		t.Errorf("edited contact mismatch (-want +got):\n%s", diff)
	}
}

func TestEditContactInvalidID(t *testing.T) {
	api := &fakeAPI{}
	router := newRouter(api)
	for _, id := range []string{"", "abc", "1.5"} {
		w := post(router, "/contacts/edit", url.Values{"id": {id}, "first_name": {"Hans"}})
		assert.Equal(t, http.StatusBadRequest, w.Code, id)
	}
	assert.Empty(t, api.edited)
}

func TestEditContactFails(t *testing.T) {
	api := &fakeAPI{mutateErr: &client.StatusError{StatusCode: http.StatusNotFound}}
	w := post(newRouter(api), "/contacts/edit", url.Values{"id": {"99"}, "first_name": {"Hans"}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "status: 404")
}

func TestDeleteContact(t *testing.T) {
	api := &fakeAPI{}
	w := post(newRouter(api), "/contacts/delete", url.Values{"id": {"4"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, []int64{4}, api.deleted)
}

func TestDeleteContactFails(t *testing.T) {
	api := &fakeAPI{mutateErr: &client.StatusError{StatusCode: http.StatusNotFound}}
	router := newRouter(api)

	w := post(router, "/contacts/delete", url.Values{"id": {"4"}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "could not delete contact: HTTP error! status: 404", w.Body.String())

	w = post(router, "/contacts/delete", url.Values{"id": {"four"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []int64{4}, api.deleted)
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.ReleaseMode)
	reg := prometheus.NewRegistry()
	router := New(&fakeAPI{}, zap.NewNop()).SetupHttpRouter(false, reg)

	get(router, "/")
	w := get(router, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `contacts_web_http_requests_total{code="200",method="GET",route="/"} 1`)
}
