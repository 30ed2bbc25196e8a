package entity

import "guestfeedback/pkg/apperrors"

const (
	MessageClickRecorded = "click recorded"
	MessageReviewSaved   = "review saved"
)

// SubmissionResult - итог отправки оценки. Реализации: ClickAccepted, ReviewAccepted, Rejected.
type SubmissionResult interface {
	isSubmissionResult()
}

type ClickAccepted struct {
	ID string
}

type ReviewAccepted struct {
	Review *Review
}

type Rejected struct {
	Err *apperrors.Error
}

func (ClickAccepted) isSubmissionResult()  {}
func (ReviewAccepted) isSubmissionResult() {}
func (Rejected) isSubmissionResult()       {}
