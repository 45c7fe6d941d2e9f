package models

// AllModels lists the tables owned by this service, in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&ExamTemplate{},
		&ExamInstance{},
		&LiveAttempt{},
		&Submission{},
		&AggregateRecord{},
	}
}

func StringPtr(s string) *string {
	return &s
}
