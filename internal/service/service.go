package service

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/logging"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/metrics"
	"gitlab.com/dirk.krummacker/contacts-frontend/pkg/model"
	"go.uber.org/zap"
)

const (
	defaultLimit = 100
	maxLimit     = 500

	// birthdayWindowDays is how far ahead the birthdays endpoint looks, today included.
	birthdayWindowDays = 7
)

// Service answers the contacts REST API from a MySQL database.
type Service struct {
	db     *sqlx.DB
	logger *zap.Logger

	// insert is a prepared statement for creating a contact on the database.
	insert *sqlx.NamedStmt

	// selectWhereId is a prepared statement for selecting contacts with a given id.
	selectWhereId *sqlx.Stmt

	// deleteWhereId is a prepared statement for deleting a contact with a given id.
	deleteWhereId *sqlx.Stmt

	// now is the clock of the birthdays endpoint.
	now func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now as the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New wraps the specified sql database with sqlx and prepares all statements. The database
// argument can be a real database for production use or a mock database within unit tests.
func New(sqlDB *sql.DB, logger *zap.Logger, opts ...Option) (*Service, error) {
	s := &Service{
		db:     sqlx.NewDb(sqlDB, "mysql"),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	s.insert, err = s.db.PrepareNamed(`
		INSERT INTO contacts (first_name, last_name, email, phone_number, birthday, description)
		VALUES (:first_name, :last_name, :email, :phone_number, :birthday, :description)
	`)
	if err != nil {
		return nil, err
	}
	s.selectWhereId, err = s.db.Preparex(`
		SELECT * FROM contacts WHERE id = ?
	`)
	if err != nil {
		return nil, err
	}
	s.deleteWhereId, err = s.db.Preparex(`
		DELETE FROM contacts WHERE id = ?
	`)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the prepared statements. The database itself belongs to the caller.
func (s *Service) Close() error {
	for _, closer := range []interface{ Close() error }{s.insert, s.selectWhereId, s.deleteWhereId} {
		if err := closer.Close(); err != nil {
			return err
		}
	}
	return nil
}

// SetupHttpRouter initializes the REST API router and registers all endpoints. Request logging
// is skipped when requestLogging is false. With a registry, requests are measured and the
// metrics are served on /metrics.
func (s *Service) SetupHttpRouter(requestLogging bool, reg *prometheus.Registry) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if requestLogging {
		router.Use(logging.GinLogger(s.logger))
	}
	if reg != nil {
		router.Use(metrics.NewServer(reg, "api").Middleware())
		router.GET("/metrics", metrics.Handler(reg))
	}

	contacts := router.Group("/api/contacts")
	contacts.GET("/", s.findContacts)
	contacts.POST("/", s.createContact)
	contacts.GET("/search", s.searchContacts)
	contacts.GET("/birthdays/", s.findUpcomingBirthdays)
	contacts.GET("/:id", s.findContactByID)
	contacts.PUT("/:id", s.updateContactByID)
	contacts.DELETE("/:id", s.deleteContactByID)
	return router
}

// findContacts responds with one page of contacts ordered by id as JSON.
//
// The URL parameter 'skip' specifies how many contacts are passed over in the beginning, the URL
// parameter 'limit' how many contacts are returned at most (1 to 500, 100 if omitted).
//
// REST API calls:
//
//	> curl "http://localhost:8000/api/contacts/"
//	> curl "http://localhost:8000/api/contacts/?skip=20&limit=10"
func (s *Service) findContacts(c *gin.Context) {
	skip, limit, success := parseSkipAndLimit(c)
	if !success {
		return
	}
	contacts := []model.Contact{}
	err := s.db.Select(&contacts, `
		SELECT *
		FROM contacts
		ORDER BY id
		LIMIT ?
		OFFSET ?`, limit, skip)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, contacts)
}

// parseSkipAndLimit inspects the URL parameters and determines values for skip and limit of the
// result set.
func parseSkipAndLimit(c *gin.Context) (skip int, limit int, success bool) {
	skip, limit = 0, defaultLimit
	var err error
	if value := c.Query("skip"); value != "" {
		skip, err = strconv.Atoi(value)
		if err != nil || skip < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid skip parameter"})
			return 0, 0, false
		}
	}
	if value := c.Query("limit"); value != "" {
		limit, err = strconv.Atoi(value)
		if err != nil || limit < 1 || limit > maxLimit {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid limit parameter"})
			return 0, 0, false
		}
	}
	return skip, limit, true
}

// searchContacts responds with the contacts matching all given URL parameters as JSON.
//
// The URL parameters 'first_name', 'last_name' and 'email' match any part of the respective
// field, ignoring case. At least one of them must be given.
//
// REST API calls:
//
//	> curl "http://localhost:8000/api/contacts/search?first_name=ji"
//	> curl "http://localhost:8000/api/contacts/search?last_name=smi&email=example.com"
func (s *Service) searchContacts(c *gin.Context) {
	var conditions []string
	var args []interface{}
	for _, column := range []string{"first_name", "last_name", "email"} {
		if value := c.Query(column); value != "" {
			conditions = append(conditions, "LOWER("+column+") LIKE ?")
			args = append(args, "%"+strings.ToLower(value)+"%")
		}
	}
	if len(conditions) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "at least one search criteria must be provided"})
		return
	}

	contacts := []model.Contact{}
	query := "SELECT * FROM contacts WHERE " + strings.Join(conditions, " AND ") + " ORDER BY id"
	if err := s.db.Select(&contacts, query, args...); err != nil {
		s.internalError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, contacts)
}

// findUpcomingBirthdays responds with the contacts whose birthday is today or within the next
// seven days, regardless of the year. If there are none, it responds with NOT FOUND.
//
// Example REST API call:
//
//	> curl "http://localhost:8000/api/contacts/birthdays/"
func (s *Service) findUpcomingBirthdays(c *gin.Context) {
	query, args, err := sqlx.In(`
		SELECT *
		FROM contacts
		WHERE DATE_FORMAT(birthday, '%m-%d') IN (?)
		ORDER BY MONTH(birthday), DAY(birthday), id`, birthdayWindow(s.now()))
	if err != nil {
		s.internalError(c, err)
		return
	}
	var contacts []model.Contact
	if err := s.db.Select(&contacts, s.db.Rebind(query), args...); err != nil {
		s.internalError(c, err)
		return
	}
	if len(contacts) == 0 {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "no upcoming birthdays"})
		return
	}
	c.IndentedJSON(http.StatusOK, contacts)
}

// birthdayWindow returns the "MM-DD" days from today until birthdayWindowDays later. Because
// only month and day are compared, the window wraps over the end of the year. In years without
// 29 February, people born on that day celebrate together with 28 February.
func birthdayWindow(today time.Time) []string {
	days := make([]string, 0, birthdayWindowDays+2)
	for i := 0; i <= birthdayWindowDays; i++ {
		day := today.AddDate(0, 0, i)
		days = append(days, day.Format("01-02"))
		if day.Month() == time.February && day.Day() == 28 && !isLeapYear(day.Year()) {
			days = append(days, "02-29")
		}
	}
	return days
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// createContact inserts the contact specified in the request's JSON into the database. It responds
// with the full contact data including the newly assigned id.
//
// Example REST API call:
//
//	> curl http://localhost:8000/api/contacts/ --request "POST" --include --header "Content-Type: application/json" --data '{"first_name": "Hans", "last_name": "Wurst", "phone_number": "+49081547110", "birthday": "1969-03-02"}'
func (s *Service) createContact(c *gin.Context) {
	var newContact model.Contact
	if err := c.ShouldBindJSON(&newContact); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	result, err := s.insert.Exec(&newContact)
	if err != nil {
		s.internalError(c, err)
		return
	}
	id, err := result.LastInsertId()
	if err != nil {
		s.internalError(c, err)
		return
	}
	newContact.Id = id
	c.IndentedJSON(http.StatusCreated, newContact)
}

// parseID reads the id parameter of the request URL. Anything but a number is answered with NOT
// FOUND since no such contact can exist.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "invalid id parameter"})
		return 0, false
	}
	return id, true
}

// selectContact returns the contact with the given id, or nil if there is none.
func (s *Service) selectContact(id int64) (*model.Contact, error) {
	var contacts []model.Contact
	if err := s.selectWhereId.Select(&contacts, id); err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, nil
	}
	return &contacts[0], nil
}

// findContactByID locates the contact whose ID value matches the id parameter of the request URL,
// then returns that contact as a response.
//
// Example REST API call:
//
//	> curl http://localhost:8000/api/contacts/56
func (s *Service) findContactByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	contact, err := s.selectContact(id)
	if err != nil {
		s.internalError(c, err)
		return
	}
	if contact == nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
		return
	}
	c.IndentedJSON(http.StatusOK, contact)
}

// updateContactByID updates the contact whose ID value matches the id parameter of the request
// URL, updates the values specified in the JSON (and only those), and finally responds with the
// new version of the contact.
//
// Example REST API calls:
//
//	> curl http://localhost:8000/api/contacts/56 --request "PUT" --include --header "Content-Type: application/json" --data '{"phone_number": "+420333555777"}'
//	> curl http://localhost:8000/api/contacts/56 --request "PUT" --include --header "Content-Type: application/json" --data '{"birthday": "1972-06-06"}'
func (s *Service) updateContactByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var submitted model.Contact
	if err := c.ShouldBindJSON(&submitted); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}

	var assignments []string
	var args []interface{}
	for _, field := range []struct {
		column string
		value  interface{}
		isSet  bool
	}{
		{"first_name", submitted.FirstName, submitted.FirstName != nil},
		{"last_name", submitted.LastName, submitted.LastName != nil},
		{"email", submitted.Email, submitted.Email != nil},
		{"phone_number", submitted.PhoneNumber, submitted.PhoneNumber != nil},
		{"birthday", submitted.Birthday, submitted.Birthday != nil},
		{"description", submitted.Description, submitted.Description != nil},
	} {
		if field.isSet {
			assignments = append(assignments, field.column+"=?")
			args = append(args, field.value)
		}
	}

	// It only makes sense to continue if we have at least one value to update.
	if len(assignments) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "no values to be updated"})
		return
	}

	args = append(args, id)
	result, err := s.db.Exec("UPDATE contacts SET "+strings.Join(assignments, ", ")+" WHERE id=?", args...)
	if err != nil {
		s.internalError(c, err)
		return
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.internalError(c, err)
		return
	}
	if rowsAffected == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
		return
	}

	// In the HTTP response, return the full contact after the update.
	contact, err := s.selectContact(id)
	if err != nil {
		s.internalError(c, err)
		return
	}
	if contact == nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
		return
	}
	c.IndentedJSON(http.StatusOK, contact)
}

// deleteContactByID deletes the contact whose ID value matches the id parameter of the request URL
// from the database.
//
// Example REST API call:
//
//	> curl http://localhost:8000/api/contacts/56 --request "DELETE"
func (s *Service) deleteContactByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	result, err := s.deleteWhereId.Exec(id)
	if err != nil {
		s.internalError(c, err)
		return
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.internalError(c, err)
		return
	}
	if rowsAffected == 1 {
		c.IndentedJSON(http.StatusOK, gin.H{"message": "contact deleted"})
	} else {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
	}
}

// internalError logs err and answers the request with INTERNAL SERVER ERROR.
func (s *Service) internalError(c *gin.Context, err error) {
	s.logger.Error("database error",
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
}
