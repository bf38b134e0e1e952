// Package web serves the browser frontend of the contacts API: one page with the search form, the
// search results, a paged contact list, the upcoming birthdays and forms for creating, editing and
// deleting contacts. All data comes from the contacts API through the client.
//
// The search results live in a single container shared by all requests, so the frontend is meant
// for one local user.
package web

import (
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/logging"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/metrics"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/render"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/ui"
	"gitlab.com/dirk.krummacker/contacts-frontend/pkg/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultLimit = 20
	maxLimit     = 500
)

//go:embed page.html.tmpl
var pageTemplate string

// ContactsAPI is what the frontend needs from the contacts client.
type ContactsAPI interface {
	ui.SearchAPI
	ui.BirthdaysAPI
	ListContacts(ctx context.Context, skip, limit int) ([]model.Contact, error)
	CreateContact(ctx context.Context, contact model.Contact) error
	EditContact(ctx context.Context, contact model.Contact) error
	DeleteContact(ctx context.Context, id int64) error
}

// Frontend holds the state of the web frontend.
type Frontend struct {
	api      ContactsAPI
	logger   *zap.Logger
	searcher *ui.Searcher
	results  *ui.Results
}

// New returns a frontend talking to api.
func New(api ContactsAPI, logger *zap.Logger) *Frontend {
	return &Frontend{
		api:    api,
		logger: logger,
		searcher: &ui.Searcher{
			API: api,
			Render: func(contacts []model.Contact) (string, error) {
				table, err := render.HTMLTable(contacts)
				return string(table), err
			},
			Logger: logger,
		},
		results: &ui.Results{},
	}
}

// SetupHttpRouter registers the page and the form endpoints. Request logging is skipped when
// requestLogging is false. With a registry, requests are measured and the metrics are served on
// /metrics.
func (f *Frontend) SetupHttpRouter(requestLogging bool, reg *prometheus.Registry) *gin.Engine {
	router := gin.New()
	router.SetHTMLTemplate(template.Must(template.New("web").Parse(pageTemplate)))
	router.Use(gin.Recovery())
	if requestLogging {
		router.Use(logging.GinLogger(f.logger))
	}
	if reg != nil {
		router.Use(metrics.NewServer(reg, "web").Middleware())
		router.GET("/metrics", metrics.Handler(reg))
	}

	router.GET("/", f.showPage)
	router.GET("/search", f.search)
	router.POST("/contacts", f.createContact)
	router.POST("/contacts/edit", f.editContact)
	router.POST("/contacts/delete", f.deleteContact)
	return router
}

type pageLink struct {
	Skip  int
	Limit int
}

type birthdayView struct {
	Name string
	Date string
}

type pageData struct {
	Error     string
	Form      ui.Form
	Results   template.HTML
	Birthdays []birthdayView
	Contacts  template.HTML
	Prev      *pageLink
	Next      *pageLink
}

// showPage answers GET / with the full page.
//
//	> curl "http://localhost:8080/?skip=20&limit=20"
func (f *Frontend) showPage(c *gin.Context) {
	f.renderPage(c, http.StatusOK, ui.Form{}, "")
}

// search runs the search given by the URL parameters 'first_name', 'last_name' and 'email' and
// answers with the page. A failed search keeps the previous results and shows the error.
//
//	> curl "http://localhost:8080/search?first_name=dirk"
func (f *Frontend) search(c *gin.Context) {
	form := ui.Form{
		FirstName: c.Query("first_name"),
		LastName:  c.Query("last_name"),
		Email:     c.Query("email"),
	}
	if err := f.searcher.Search(c.Request.Context(), form, f.results); err != nil {
		f.renderPage(c, http.StatusBadGateway, form, "Search failed: "+err.Error())
		return
	}
	f.renderPage(c, http.StatusOK, form, "")
}

// renderPage loads one page of contacts and the upcoming birthdays at the same time and renders
// the page with them.
func (f *Frontend) renderPage(c *gin.Context, status int, form ui.Form, errorMessage string) {
	skip, limit, err := parseSkipAndLimit(c)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	var contacts, birthdays []model.Contact
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		contacts, err = f.api.ListContacts(ctx, skip, limit)
		return err
	})
	g.Go(func() error {
		ui.LoadBirthdays(ctx, f.api, f.logger, &birthdays)
		return nil
	})
	if err := g.Wait(); err != nil {
		f.logger.Error("could not load contacts", zap.Error(err))
		if errorMessage == "" {
			errorMessage = "Could not load contacts: " + err.Error()
		}
		if status == http.StatusOK {
			status = http.StatusBadGateway
		}
	}

	table, err := render.HTMLTable(contacts)
	if err != nil {
		f.logger.Error("could not render contacts", zap.Error(err))
		c.String(http.StatusInternalServerError, "could not render contacts")
		return
	}

	data := pageData{
		Error: errorMessage,
		Form:  form,
		// Only f.searcher writes the container, and it renders through render.HTMLTable.
		Results:  template.HTML(f.results.Content()),
		Contacts: table,
	}
	for _, b := range birthdays {
		name := model.StringValue(b.FirstName) + " " + model.StringValue(b.LastName)
		date := ""
		if b.Birthday != nil {
			date = b.Birthday.Format("January 2")
		}
		data.Birthdays = append(data.Birthdays, birthdayView{Name: name, Date: date})
	}
	if skip > 0 {
		data.Prev = &pageLink{Skip: max(skip-limit, 0), Limit: limit}
	}
	if len(contacts) == limit {
		data.Next = &pageLink{Skip: skip + limit, Limit: limit}
	}
	c.HTML(status, "page", data)
}

// parseSkipAndLimit reads the paging parameters of the contact list.
func parseSkipAndLimit(c *gin.Context) (skip int, limit int, err error) {
	skip, limit = 0, defaultLimit
	if value := c.Query("skip"); value != "" {
		skip, err = strconv.Atoi(value)
		if err != nil || skip < 0 {
			return 0, 0, fmt.Errorf("invalid skip parameter %q", value)
		}
	}
	if value := c.Query("limit"); value != "" {
		limit, err = strconv.Atoi(value)
		if err != nil || limit < 1 || limit > maxLimit {
			return 0, 0, fmt.Errorf("invalid limit parameter %q", value)
		}
	}
	return skip, limit, nil
}

// contactForm is the form data of the create and edit forms. Empty fields are not sent.
type contactForm struct {
	ID          string `form:"id"`
	FirstName   string `form:"first_name"`
	LastName    string `form:"last_name"`
	Email       string `form:"email"`
	PhoneNumber string `form:"phone_number"`
	Birthday    string `form:"birthday"`
	Description string `form:"description"`
}

func (form contactForm) contact() (model.Contact, error) {
	contact := model.Contact{
		FirstName:   model.StringPtr(form.FirstName),
		LastName:    model.StringPtr(form.LastName),
		Email:       model.StringPtr(form.Email),
		PhoneNumber: model.StringPtr(form.PhoneNumber),
		Description: model.StringPtr(form.Description),
	}
	if form.Birthday != "" {
		birthday, err := model.ParseDate(form.Birthday)
		if err != nil {
			return model.Contact{}, fmt.Errorf("invalid birthday %q", form.Birthday)
		}
		contact.Birthday = &birthday
	}
	return contact, nil
}

// bindContact reads the posted form. It answers with BAD REQUEST and returns false on invalid input.
func bindContact(c *gin.Context, withID bool) (model.Contact, bool) {
	var form contactForm
	if err := c.ShouldBind(&form); err != nil {
		c.String(http.StatusBadRequest, "invalid form data")
		return model.Contact{}, false
	}
	contact, err := form.contact()
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return model.Contact{}, false
	}
	if withID {
		contact.Id, err = strconv.ParseInt(form.ID, 10, 64)
		if err != nil {
			c.String(http.StatusBadRequest, fmt.Sprintf("invalid id %q", form.ID))
			return model.Contact{}, false
		}
	}
	return contact, true
}

// createContact posts the form as a new contact and redirects back to the page.
//
//	> curl http://localhost:8080/contacts --data "first_name=Hans&last_name=Wurst&birthday=1969-03-02"
func (f *Frontend) createContact(c *gin.Context) {
	contact, ok := bindContact(c, false)
	if !ok {
		return
	}
	if err := f.api.CreateContact(c.Request.Context(), contact); err != nil {
		f.badGateway(c, "could not create contact", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// editContact sends the filled-in fields of the form as an update of the contact with the given
// id and redirects back to the page.
//
//	> curl http://localhost:8080/contacts/edit --data "id=4&phone_number=%2B420333555777"
func (f *Frontend) editContact(c *gin.Context) {
	contact, ok := bindContact(c, true)
	if !ok {
		return
	}
	if err := f.api.EditContact(c.Request.Context(), contact); err != nil {
		f.badGateway(c, "could not edit contact", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// deleteContact deletes the contact with the given id and redirects back to the page.
//
//	> curl http://localhost:8080/contacts/delete --data "id=4"
func (f *Frontend) deleteContact(c *gin.Context) {
	value := c.PostForm("id")
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		c.String(http.StatusBadRequest, fmt.Sprintf("invalid id %q", value))
		return
	}
	if err := f.api.DeleteContact(c.Request.Context(), id); err != nil {
		f.badGateway(c, "could not delete contact", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// badGateway logs a failed API call and answers with BAD GATEWAY and the error.
func (f *Frontend) badGateway(c *gin.Context, message string, err error) {
	f.logger.Error(message, zap.Error(err))
	c.String(http.StatusBadGateway, message+": "+err.Error())
}
