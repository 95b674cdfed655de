package exam

import (
	"path/filepath"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/educator/core"
)

var (
	markDecisionTag  = "markdecision"
	markDecisionText = "mark must be one of tick, cross"

	videoNameTag   = "videoname"
	videoNameText  = "video names may only contain letters, digits, '-', '_' and '.' and must end in .mp4, .webm or .mov"
	videoNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	videoExts      = map[string]bool{".mp4": true, ".webm": true, ".mov": true}

	mcAnswerTag  = "mcanswer"
	mcAnswerText = "answer must be one of the multiple choice options"
)

// InitValidators registers the exam validation tags and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(markDecisionTag, markDecisionValidation)
	core.RegisterCustomTranslation(validate, translator, markDecisionTag, markDecisionText)

	_ = validate.RegisterValidation(videoNameTag, videoNameValidation)
	core.RegisterCustomTranslation(validate, translator, videoNameTag, videoNameText)

	validate.RegisterStructValidation(questionStructValidation, NewQuestion{})
	core.RegisterCustomTranslation(validate, translator, mcAnswerTag, mcAnswerText)
}

func markDecisionValidation(fl validator.FieldLevel) bool {
	m := Mark(fl.Field().String())
	return m == MarkTick || m == MarkCross
}

func videoNameValidation(fl validator.FieldLevel) bool {
	return IsValidVideoName(fl.Field().String())
}

// IsValidVideoName reports whether name is a safe, flat file name with a video extension.
func IsValidVideoName(name string) bool {
	if !videoNameRegex.MatchString(name) || strings.Contains(name, "..") {
		return false
	}
	return videoExts[strings.ToLower(filepath.Ext(name))]
}

// questionStructValidation makes sure a multiple choice question has an answer among its options.
func questionStructValidation(sl validator.StructLevel) {
	nq, ok := sl.Current().Interface().(NewQuestion)
	if !ok || len(nq.MultiChoice) == 0 {
		return
	}
	for _, opt := range nq.MultiChoice {
		if opt == nq.Answer {
			return
		}
	}
	sl.ReportError(nq.Answer, "answer", "Answer", mcAnswerTag, "")
}
