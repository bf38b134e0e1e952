// Package render turns contacts into tables, either as an HTML fragment for the web frontend or
// as a text table for the terminal.
package render

import (
	"bytes"
	"html/template"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gitlab.com/dirk.krummacker/contacts-frontend/pkg/model"
)

// EmptyMessage is shown instead of a table when there are no contacts.
const EmptyMessage = "No contacts found."

// Columns are the table headers. Row returns the cells in the same order.
var Columns = []string{"ID", "First Name", "Last Name", "Email", "Phone Number", "Birthday", "Description"}

// Row returns the cells of one contact. Missing values are empty cells.
func Row(c model.Contact) []string {
	birthday := ""
	if c.Birthday != nil {
		birthday = c.Birthday.String()
	}
	return []string{
		strconv.FormatInt(c.Id, 10),
		model.StringValue(c.FirstName),
		model.StringValue(c.LastName),
		model.StringValue(c.Email),
		model.StringValue(c.PhoneNumber),
		birthday,
		model.StringValue(c.Description),
	}
}

var htmlTable = template.Must(template.New("contacts").Parse(
	`{{if .Rows}}<table class="contacts">
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>{{else}}<p>{{.Empty}}</p>{{end}}`))

// HTMLTable renders contacts as an HTML table, or the empty message as a paragraph. Cell values
// are escaped.
func HTMLTable(contacts []model.Contact) (template.HTML, error) {
	rows := make([][]string, 0, len(contacts))
	for _, c := range contacts {
		rows = append(rows, Row(c))
	}
	var buf bytes.Buffer
	err := htmlTable.Execute(&buf, struct {
		Columns []string
		Rows    [][]string
		Empty   string
	}{Columns, rows, EmptyMessage})
	if err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// TerminalTable renders contacts as a bordered text table, or the empty message.
func TerminalTable(contacts []model.Contact) string {
	if len(contacts) == 0 {
		return EmptyMessage
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(Columns...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, c := range contacts {
		t.Row(Row(c)...)
	}
	return t.String()
}
