package service

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/jmoiron/sqlx"
)

// ExecScript executes the SQL statements read from r one after another and returns how many were
// executed. A statement ends with the line that contains a ';'. Lines starting with "--" are
// comments.
func ExecScript(db *sqlx.DB, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanLines)
	builder := strings.Builder{}
	executed := 0
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		builder.WriteString(line)
		builder.WriteString(" ")
		if strings.Contains(line, ";") {
			statement := builder.String()
			if _, err := db.Exec(statement); err != nil {
				return executed, fmt.Errorf("statement %d failed: %w", executed+1, err)
			}
			executed++
			builder = strings.Builder{}
		}
	}
	if err := scanner.Err(); err != nil {
		return executed, err
	}
	if strings.TrimSpace(builder.String()) != "" {
		return executed, fmt.Errorf("statement %d is not terminated by ';'", executed+1)
	}
	return executed, nil
}
