package models

import "github.com/google/uuid"

// CreateCaseRequest opens a new case file.
type CreateCaseRequest struct {
	Title         string        `json:"title" validate:"required,min=1,max=255"`
	Description   string        `json:"description"`
	CrimeLevel    CrimeLevel    `json:"crime_level"`
	FormationType FormationType `json:"formation_type" validate:"required"`
	Draft         bool          `json:"draft"`
	AssignedTo    *uuid.UUID    `json:"assigned_to,omitempty"`
}

// ReviewDecision is the outcome of a case review step.
type ReviewDecision string

const (
	ReviewApproved ReviewDecision = "approved"
	ReviewRejected ReviewDecision = "rejected"
)

// SubmitReviewRequest carries a cadet or officer review outcome.
type SubmitReviewRequest struct {
	Decision        ReviewDecision `json:"decision" validate:"required"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
}

// SubmitSuspectsRequest is a detective's arrest-warrant submission.
type SubmitSuspectsRequest struct {
	SuspectIDs []uuid.UUID `json:"suspect_ids" validate:"required,min=1"`
	Reasoning  string      `json:"reasoning" validate:"required,min=10"`
}

// ReviewSubmissionRequest is a sergeant's ruling on a suspect submission.
type ReviewSubmissionRequest struct {
	Decision ReviewDecision `json:"decision" validate:"required"`
	Notes    string         `json:"notes" validate:"required,min=10"`
}

// SubmitRatingsRequest carries both interrogation ratings. Both ratings and
// both note fields are required together.
type SubmitRatingsRequest struct {
	DetectiveRating int    `json:"detective_rating" validate:"required,min=1,max=10"`
	SergeantRating  int    `json:"sergeant_rating" validate:"required,min=1,max=10"`
	DetectiveNotes  string `json:"detective_notes" validate:"required,min=10"`
	SergeantNotes   string `json:"sergeant_notes" validate:"required,min=10"`
}

// CaptainDecisionRequest is the captain's guilt call.
type CaptainDecisionRequest struct {
	Decision  CaptainVerdict `json:"decision" validate:"required"`
	Reasoning string         `json:"reasoning" validate:"required,min=20"`
}

// ChiefDecisionRequest is the chief's ruling on an escalated decision.
type ChiefDecisionRequest struct {
	Decision ChiefRuling `json:"decision" validate:"required"`
	Comments string      `json:"comments" validate:"required,min=10"`
}

// CreateTrialRequest schedules a trial for a suspect with a guilty decision.
type CreateTrialRequest struct {
	CaseID       uuid.UUID `json:"case_id" validate:"required"`
	SuspectID    uuid.UUID `json:"suspect_id" validate:"required"`
	JudgeID      uuid.UUID `json:"judge_id" validate:"required"`
	CaptainNotes string    `json:"captain_notes"`
}

// PunishmentPayload describes the sentence attached to a guilty verdict.
type PunishmentPayload struct {
	Title       string `json:"title" validate:"required,min=5"`
	Description string `json:"description" validate:"required,min=20"`
}

// DeliverVerdictRequest is the judge's one-time ruling on a trial.
type DeliverVerdictRequest struct {
	Decision   TrialRuling        `json:"decision" validate:"required"`
	Reasoning  string             `json:"reasoning" validate:"required,min=30"`
	Punishment *PunishmentPayload `json:"punishment,omitempty"`
}

// RequestBailRequest opens a bail payment for an arrested suspect.
type RequestBailRequest struct {
	SuspectID uuid.UUID `json:"suspect_id" validate:"required"`
	Amount    int64     `json:"amount" validate:"required"`
}

// SubmitTipRequest files a citizen tip against a case.
type SubmitTipRequest struct {
	CaseID      uuid.UUID  `json:"case_id" validate:"required"`
	SuspectID   *uuid.UUID `json:"suspect_id,omitempty"`
	Information string     `json:"information" validate:"required"`
}

// ReviewTipRequest is an officer or detective ruling on a tip. Reason is
// required when Approved is false.
type ReviewTipRequest struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}
