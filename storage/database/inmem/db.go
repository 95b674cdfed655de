// Package inmemdb keeps users in memory; the user service tests run against it.
package inmemdb

import (
	"sync"

	"github.com/trezcool/educator/core/user"
)

type (
	DB struct {
		user *userTable
	}

	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{table: make(map[string]*user.User)},
	}
}
