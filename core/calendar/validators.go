package calendar

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

const (
	eventTypeTag  = "eventtype"
	eventTypeText = "must be one of class_session, exam, assignment, other"
)

// InitValidators registers the event type check.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(eventTypeTag, func(fl validator.FieldLevel) bool {
		return EventType(fl.Field().String()).IsValid()
	})
	core.RegisterCustomTranslation(validate, translator, eventTypeTag, eventTypeText)
}

func (t EventType) IsValid() bool {
	switch t {
	case EventClassSession, EventExam, EventAssignment, EventOther:
		return true
	}
	return false
}
