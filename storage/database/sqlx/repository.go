// Package sqlxrepos implements the core repositories on top of jmoiron/sqlx.
// Queries are written with '?' placeholders and rebound for the executor's driver.
package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/educator/core"
	"github.com/trezcool/educator/storage/database"
)

type repository struct {
	exec core.DBExecutor
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// trapErr maps "no rows" to notFound and store unique violations to conflict.
func trapErr(err error, notFound, conflict error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows) && notFound != nil:
		return notFound
	case database.IsUniqueViolation(err) && conflict != nil:
		return conflict
	}
	return errors.Wrap(err, msg)
}

// in expands slice arguments of query (see sqlx.In) and rebinds it for exec.
func in(exec core.DBExecutor, query string, args ...interface{}) (string, []interface{}, error) {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, errors.Wrap(err, "expanding query arguments")
	}
	return exec.Rebind(query), args, nil
}

// orderBy renders ordering restricted to the allowed columns, falling back to def.
func orderBy(ordering []core.DBOrdering, allowed map[string]string, def string) string {
	list := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		col, ok := allowed[ord.Field]
		if !ok {
			continue
		}
		ord.Field = col
		list = append(list, ord.String())
	}
	if len(list) == 0 {
		return " ORDER BY " + def
	}
	return " ORDER BY " + strings.Join(list, ", ")
}

func likePattern(s string) string {
	return "%" + strings.ToLower(s) + "%"
}

func checkAffected(res sql.Result, notFound error, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
