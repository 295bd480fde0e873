package schedule

import (
	"fmt"

	"github.com/garyellow/classroom-planner/internal/errors"
	"github.com/garyellow/classroom-planner/internal/validation"
)

// ValidateTemplates checks every template and reports all failing fields,
// e.g. "templates[2].dayOfWeek".
func ValidateTemplates(templates []Template) error {
	var list errors.ValidationErrors
	for i, tpl := range templates {
		validation.Collect(&list, fmt.Sprintf("templates[%d]", i), validation.Engine().Struct(tpl))
	}
	return list.OrNil()
}

// ValidateExceptions checks the exception list. Added exceptions need the new
// time slot and the class and subject of the session they create.
func ValidateExceptions(exceptions []Exception) error {
	var list errors.ValidationErrors
	for i, e := range exceptions {
		prefix := fmt.Sprintf("exceptions[%d]", i)
		if e.TemplateID == "" {
			list.Add(prefix+".templateId", "templateId est obligatoire")
		}
		if e.ExceptionDate.IsZero() {
			list.Add(prefix+".exceptionDate", "exceptionDate est obligatoire")
		}
		if !e.Type.Valid() {
			list.Add(prefix+".type", fmt.Sprintf("type inconnu %q", e.Type))
			continue
		}
		if e.Type != ExceptionAdded {
			continue
		}
		if e.NewTimeSlotID == "" {
			list.Add(prefix+".newTimeSlotId", "newTimeSlotId est obligatoire pour un ajout")
		}
		if e.SessionData == nil {
			list.Add(prefix+".sessionData", "sessionData est obligatoire pour un ajout")
			continue
		}
		validation.Collect(&list, prefix+".sessionData", validation.Engine().Struct(e.SessionData))
	}
	return list.OrNil()
}

func validateInput(templates []Template, exceptions []Exception) error {
	var list errors.ValidationErrors
	list = append(list, errors.AsValidation(ValidateTemplates(templates))...)
	list = append(list, errors.AsValidation(ValidateExceptions(exceptions))...)
	return list.OrNil()
}
