package access

import (
	"testing"

	"github.com/trezcool/educator/core"
)

func TestGate_Authorize(t *testing.T) {
	gate := NewDefaultGate()

	tests := []struct {
		name    string
		role    string
		action  Action
		wantErr string
	}{
		{name: "tutor creates exam", role: RoleTutor, action: CreateExam},
		{name: "admin creates exam", role: RoleAdmin, action: CreateExam},
		{name: "learner creates exam", role: RoleLearner, action: CreateExam, wantErr: "only [tutor admin] can create_exam"},
		{name: "staff creates question", role: RoleStaff, action: CreateQuestion, wantErr: "only [tutor admin] can create_question"},
		{name: "learner submits", role: RoleLearner, action: CreateSubmission},
		{name: "tutor submits", role: RoleTutor, action: CreateSubmission, wantErr: "only [learner] can create_submission"},
		{name: "tutor marks", role: RoleTutor, action: MarkSubmission},
		{name: "learner marks", role: RoleLearner, action: MarkSubmission, wantErr: "only [tutor admin] can mark_submission"},
		{name: "staff reads performance", role: RoleStaff, action: GetExamPerformance},
		{name: "staff notifies", role: RoleStaff, action: NotifyUser},
		{name: "learner notifies", role: RoleLearner, action: NotifyUser, wantErr: "only [tutor staff admin] can notify_user"},
		{name: "learner requests mentorship", role: RoleLearner, action: RequestMentorship},
		{name: "tutor uploads", role: RoleTutor, action: UploadFile},
		{name: "unknown role", role: "janitor", action: UploadFile, wantErr: "only [tutor admin] can upload_file"},
		{name: "unknown action", role: RoleAdmin, action: "drop_tables", wantErr: "only [] can drop_tables"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.Authorize(tt.role, tt.action)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Authorize() unexpected error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Authorize() error = nil, want %q", tt.wantErr)
			}
			if err.Error() != tt.wantErr {
				t.Errorf("Authorize() error = %q, want %q", err.Error(), tt.wantErr)
			}
			if kind := core.KindOf(err); kind != core.KindForbidden {
				t.Errorf("KindOf() = %q, want %q", kind, core.KindForbidden)
			}
		})
	}
}

func TestNewGate_CopiesTable(t *testing.T) {
	table := map[Action][]string{CreateExam: {RoleTutor}}
	gate := NewGate(table)

	table[CreateExam] = append(table[CreateExam], RoleLearner)
	table[UploadFile] = []string{RoleLearner}

	if gate.Allowed(RoleLearner, CreateExam) {
		t.Error("gate picked up a role added after construction")
	}
	if gate.Allowed(RoleLearner, UploadFile) {
		t.Error("gate picked up an action added after construction")
	}

	roles := gate.Roles(CreateExam)
	roles[0] = RoleAdmin
	if !gate.Allowed(RoleTutor, CreateExam) {
		t.Error("mutating Roles() result changed the gate")
	}
}

func TestDefaultPermissions_CoverAllActions(t *testing.T) {
	actions := []Action{
		CreateExam, AddParticipant, CreateQuestion, CreateSubmission, MarkSubmission,
		GetExamPerformance, NotifyUser, RequestMentorship, UploadFile,
	}
	for _, a := range actions {
		roles, ok := DefaultPermissions[a]
		if !ok || len(roles) == 0 {
			t.Errorf("action %q has no permitted roles", a)
		}
		for _, r := range roles {
			if !IsRole(r) {
				t.Errorf("action %q permits unknown role %q", a, r)
			}
		}
	}
}
