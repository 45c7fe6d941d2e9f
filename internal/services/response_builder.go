package services

import (
	"github.com/msshahs/prepseed-backend-sub001/internal/models"
)

// BuildResponse derives the per-question view graded at submission. A
// question's time is the sum of its events' times and its answer is the last
// non-nil response recorded for it. Events pointing outside the section
// definitions are ignored.
func BuildResponse(flow []models.FlowEvent, sections []models.SectionDefinition) models.Response {
	response := models.Response{Sections: make([]models.SectionResponse, len(sections))}
	for i, section := range sections {
		response.Sections[i].Questions = make([]models.QuestionResponse, len(section.Questions))
	}

	for _, event := range flow {
		question := response.Question(event.SectionIndex, event.QuestionIndex)
		if question == nil {
			continue
		}
		question.Time += event.Time
		if event.Response != nil {
			question.Answer = event.Response
		}
	}

	return response
}
