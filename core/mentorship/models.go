package mentorship

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/educator/core"
)

// Mentorship is a learner's request for one-to-one help from a tutor.
type Mentorship struct {
	ID        string    `json:"id"`
	LearnerID string    `json:"learner_id"`
	TutorID   string    `json:"tutor_id"`
	Challenge string    `json:"challenge"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NewMentorship struct {
	TutorID   string `json:"tutor_id" validate:"required"`
	Challenge string `json:"challenge" validate:"required,max=2000"`
}

func (nm *NewMentorship) Validate(validate *validator.Validate) error {
	nm.TutorID = core.CleanString(nm.TutorID)
	nm.Challenge = core.CleanString(nm.Challenge)
	return validate.Struct(nm)
}

// RequestEmailData feeds the mentorship_request email templates.
type RequestEmailData struct {
	TutorName   string
	LearnerName string
	Challenge   string
}
