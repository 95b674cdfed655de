// Package access holds the static role -> action permission table every mutating operation is checked against.
package access

import (
	"github.com/trezcool/educator/core"
)

// Roles
const (
	RoleTutor   = "tutor"
	RoleLearner = "learner"
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
)

// Action names an operation guarded by the Gate.
type Action string

const (
	CreateExam         Action = "create_exam"
	AddParticipant     Action = "add_participant"
	CreateQuestion     Action = "create_question"
	CreateSubmission   Action = "create_submission"
	MarkSubmission     Action = "mark_submission"
	GetExamPerformance Action = "get_exam_performance"
	NotifyUser         Action = "notify_user"
	RequestMentorship  Action = "request_mentorship"
	UploadFile         Action = "upload_file"
)

var (
	AllRoles = []string{RoleTutor, RoleLearner, RoleStaff, RoleAdmin}

	// DefaultPermissions is the permission table the application runs with.
	DefaultPermissions = map[Action][]string{
		CreateExam:         {RoleTutor, RoleAdmin},
		AddParticipant:     {RoleTutor, RoleAdmin},
		CreateQuestion:     {RoleTutor, RoleAdmin},
		CreateSubmission:   {RoleLearner},
		MarkSubmission:     {RoleTutor, RoleAdmin},
		GetExamPerformance: {RoleLearner, RoleTutor, RoleStaff, RoleAdmin},
		NotifyUser:         {RoleTutor, RoleStaff, RoleAdmin},
		RequestMentorship:  {RoleLearner},
		UploadFile:         {RoleTutor, RoleAdmin},
	}
)

// IsRole reports whether role is one of AllRoles.
func IsRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Actor is the authenticated caller of an operation, as supplied by the transport.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) Is(role string) bool { return a.Role == role }

// Gate is read-only after NewGate returns, so it is safe for concurrent use.
type Gate struct {
	permissions map[Action]map[string]struct{}
	roles       map[Action][]string
}

// NewGate copies table so later changes to it cannot leak into the Gate.
func NewGate(table map[Action][]string) *Gate {
	g := &Gate{
		permissions: make(map[Action]map[string]struct{}, len(table)),
		roles:       make(map[Action][]string, len(table)),
	}
	for action, roles := range table {
		set := make(map[string]struct{}, len(roles))
		for _, r := range roles {
			set[r] = struct{}{}
		}
		g.permissions[action] = set
		g.roles[action] = append([]string(nil), roles...)
	}
	return g
}

func NewDefaultGate() *Gate { return NewGate(DefaultPermissions) }

func (g *Gate) Allowed(role string, action Action) bool {
	_, ok := g.permissions[action][role]
	return ok
}

// Roles returns the roles permitted to run action.
func (g *Gate) Roles(action Action) []string {
	return append([]string(nil), g.roles[action]...)
}

// Authorize returns a Forbidden error naming the action and the permitted roles
// when role may not run action. Unknown actions are always forbidden.
func (g *Gate) Authorize(role string, action Action) error {
	if g.Allowed(role, action) {
		return nil
	}
	return core.NewForbiddenError("only %v can %s", g.roles[action], action)
}

// AuthorizeActor is Authorize for an Actor.
func (g *Gate) AuthorizeActor(actor Actor, action Action) error {
	return g.Authorize(actor.Role, action)
}
