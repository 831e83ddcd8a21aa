package models

import (
	"time"

	"github.com/google/uuid"
)

// CaseStatus is the lifecycle status of a criminal case file.
type CaseStatus string

const (
	CaseStatusDraft               CaseStatus = "draft"
	CaseStatusCadetReview         CaseStatus = "cadet_review"
	CaseStatusOfficerReview       CaseStatus = "officer_review"
	CaseStatusOpen                CaseStatus = "open"
	CaseStatusRejected            CaseStatus = "rejected"
	CaseStatusUnderInvestigation  CaseStatus = "under_investigation"
	CaseStatusSuspectsIdentified  CaseStatus = "suspects_identified"
	CaseStatusArrestApproved      CaseStatus = "arrest_approved"
	CaseStatusInterrogation       CaseStatus = "interrogation"
	CaseStatusTrialPending        CaseStatus = "trial_pending"
	CaseStatusClosed              CaseStatus = "closed"
)

// FormationType records how a case came into existence.
type FormationType string

const (
	FormationCitizenComplaint FormationType = "citizen_complaint"
	FormationOfficerScene     FormationType = "officer_scene"
)

// CrimeLevel is the four-tier severity classification. Level 0 is the most
// severe and carries the highest danger weight; level 3 the least.
type CrimeLevel int

const (
	CrimeLevelCritical CrimeLevel = 0
	CrimeLevelHigh     CrimeLevel = 1
	CrimeLevelMedium   CrimeLevel = 2
	CrimeLevelLow      CrimeLevel = 3
)

// Valid reports whether l is one of the four defined tiers.
func (l CrimeLevel) Valid() bool {
	return l >= CrimeLevelCritical && l <= CrimeLevelLow
}

// Bailable reports whether suspects on a case of this level may request bail.
func (l CrimeLevel) Bailable() bool {
	return l == CrimeLevelMedium || l == CrimeLevelLow
}

// Case represents a criminal case file.
type Case struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	Title          string        `json:"title" db:"title" validate:"required,min=1,max=255"`
	Description    string        `json:"description" db:"description"`
	CrimeLevel     CrimeLevel    `json:"crime_level" db:"crime_level"`
	FormationType  FormationType `json:"formation_type" db:"formation_type"`
	Status         CaseStatus    `json:"status" db:"status"`
	RejectionCount int           `json:"rejection_count" db:"rejection_count"`
	CreatedBy      uuid.UUID     `json:"created_by" db:"created_by"`
	AssignedTo     *uuid.UUID    `json:"assigned_to,omitempty" db:"assigned_to"`
	OpenedAt       *time.Time    `json:"opened_at,omitempty" db:"opened_at"`
	ClosedAt       *time.Time    `json:"closed_at,omitempty" db:"closed_at"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// SuspectStatus is the pursuit status of a suspect.
type SuspectStatus string

const (
	SuspectStatusIdentified       SuspectStatus = "identified"
	SuspectStatusUnderPursuit     SuspectStatus = "under_pursuit"
	SuspectStatusIntensivePursuit SuspectStatus = "intensive_pursuit"
	SuspectStatusArrested         SuspectStatus = "arrested"
	SuspectStatusCleared          SuspectStatus = "cleared"
)

// Terminal reports whether the status ends the pursuit.
func (s SuspectStatus) Terminal() bool {
	return s == SuspectStatusArrested || s == SuspectStatusCleared
}

// Suspect links a person to a case and tracks pursuit progress. The danger
// score is not stored; it is recomputed from timestamps on every read.
type Suspect struct {
	ID               uuid.UUID     `json:"id" db:"id"`
	CaseID           uuid.UUID     `json:"case_id" db:"case_id"`
	PersonID         uuid.UUID     `json:"person_id" db:"person_id"`
	Status           SuspectStatus `json:"status" db:"status"`
	IdentifiedAt     time.Time     `json:"identified_at" db:"identified_at"`
	PursuitStartedAt *time.Time    `json:"pursuit_started_at,omitempty" db:"pursuit_started_at"`
	EscalatedAt      *time.Time    `json:"escalated_at,omitempty" db:"escalated_at"`
	ResolvedAt       *time.Time    `json:"resolved_at,omitempty" db:"resolved_at"`
	WarrantIssued    bool          `json:"warrant_issued" db:"warrant_issued"`
	WarrantIssuedAt  *time.Time    `json:"warrant_issued_at,omitempty" db:"warrant_issued_at"`
	ReleasedOnBail   bool          `json:"released_on_bail" db:"released_on_bail"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// WantedEntry is a wanted-list row: a suspect in intensive pursuit together
// with the score computed at read time.
type WantedEntry struct {
	Suspect      Suspect    `json:"suspect"`
	CrimeLevel   CrimeLevel `json:"crime_level"`
	DaysAtLarge  int        `json:"days_at_large"`
	DangerScore  int64      `json:"danger_score"`
	RewardAmount int64      `json:"reward_amount"`
}

// SubmissionStatus is the review status of a suspect submission.
type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

// SuspectSubmission is a detective's request for arrest warrants on one or
// more suspects of a case, gated on sergeant review.
type SuspectSubmission struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	CaseID      uuid.UUID        `json:"case_id" db:"case_id"`
	DetectiveID uuid.UUID        `json:"detective_id" db:"detective_id"`
	SuspectIDs  []uuid.UUID      `json:"suspect_ids" db:"-"`
	Reasoning   string           `json:"reasoning" db:"reasoning" validate:"required,min=10"`
	Status      SubmissionStatus `json:"status" db:"status"`
	ReviewedBy  *uuid.UUID       `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewNotes *string          `json:"review_notes,omitempty" db:"review_notes"`
	ReviewedAt  *time.Time       `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// InterrogationStatus is the progress of an interrogation record.
type InterrogationStatus string

const (
	InterrogationStatusPending   InterrogationStatus = "pending"
	InterrogationStatusSubmitted InterrogationStatus = "submitted"
	InterrogationStatusReviewed  InterrogationStatus = "reviewed"
)

// Interrogation pairs a detective and a sergeant against an arrested suspect
// and collects both of their ratings.
type Interrogation struct {
	ID              uuid.UUID           `json:"id" db:"id"`
	SuspectID       uuid.UUID           `json:"suspect_id" db:"suspect_id"`
	CaseID          uuid.UUID           `json:"case_id" db:"case_id"`
	DetectiveID     uuid.UUID           `json:"detective_id" db:"detective_id"`
	SergeantID      uuid.UUID           `json:"sergeant_id" db:"sergeant_id"`
	Status          InterrogationStatus `json:"status" db:"status"`
	DetectiveRating *int                `json:"detective_rating,omitempty" db:"detective_rating"`
	SergeantRating  *int                `json:"sergeant_rating,omitempty" db:"sergeant_rating"`
	DetectiveNotes  *string             `json:"detective_notes,omitempty" db:"detective_notes"`
	SergeantNotes   *string             `json:"sergeant_notes,omitempty" db:"sergeant_notes"`
	AverageRating   *float64            `json:"average_rating,omitempty" db:"average_rating"`
	SubmittedAt     *time.Time          `json:"submitted_at,omitempty" db:"submitted_at"`
	CreatedAt       time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at" db:"updated_at"`
}

// CaptainVerdict is the captain's guilt call on an interrogation.
type CaptainVerdict string

const (
	CaptainVerdictGuilty    CaptainVerdict = "guilty"
	CaptainVerdictNotGuilty CaptainVerdict = "not_guilty"
	CaptainVerdictNeedsMore CaptainVerdict = "needs_more"
)

// DecisionStatus is the completion status of a captain decision.
type DecisionStatus string

const (
	DecisionStatusCompleted     DecisionStatus = "completed"
	DecisionStatusAwaitingChief DecisionStatus = "awaiting_chief"
)

// CaptainDecision is the one-per-interrogation guilt decision. Cases at crime
// level 0 additionally require chief approval before the decision completes.
type CaptainDecision struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	InterrogationID uuid.UUID      `json:"interrogation_id" db:"interrogation_id"`
	CaseID          uuid.UUID      `json:"case_id" db:"case_id"`
	CaptainID       uuid.UUID      `json:"captain_id" db:"captain_id"`
	Decision        CaptainVerdict `json:"decision" db:"decision"`
	Reasoning       string         `json:"reasoning" db:"reasoning" validate:"required,min=20"`
	Status          DecisionStatus `json:"status" db:"status"`
	RequiresChief   bool           `json:"requires_chief" db:"requires_chief"`
	DecidedAt       time.Time      `json:"decided_at" db:"decided_at"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// ChiefRuling is the chief's call on an escalated captain decision.
type ChiefRuling string

const (
	ChiefRulingApproved ChiefRuling = "approved"
	ChiefRulingRejected ChiefRuling = "rejected"
)

// ChiefDecision is the one-per-captain-decision chief ruling.
type ChiefDecision struct {
	ID                uuid.UUID   `json:"id" db:"id"`
	CaptainDecisionID uuid.UUID   `json:"captain_decision_id" db:"captain_decision_id"`
	ChiefID           uuid.UUID   `json:"chief_id" db:"chief_id"`
	Decision          ChiefRuling `json:"decision" db:"decision"`
	Comments          string      `json:"comments" db:"comments" validate:"required,min=10"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
}

// TrialStatus is the progress of a trial.
type TrialStatus string

const (
	TrialStatusPending    TrialStatus = "pending"
	TrialStatusInProgress TrialStatus = "in_progress"
	TrialStatusCompleted  TrialStatus = "completed"
)

// Trial adjudicates one suspect of one case before a judge.
type Trial struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	CaseID       uuid.UUID   `json:"case_id" db:"case_id"`
	SuspectID    uuid.UUID   `json:"suspect_id" db:"suspect_id"`
	JudgeID      uuid.UUID   `json:"judge_id" db:"judge_id"`
	CreatedBy    uuid.UUID   `json:"created_by" db:"created_by"`
	CaptainNotes string      `json:"captain_notes" db:"captain_notes"`
	Status       TrialStatus `json:"status" db:"status"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// TrialRuling is the judge's verdict decision.
type TrialRuling string

const (
	TrialRulingGuilty   TrialRuling = "guilty"
	TrialRulingInnocent TrialRuling = "innocent"
)

// Verdict is the one-per-trial outcome. Punishment fields are set iff the
// ruling is guilty.
type Verdict struct {
	ID                    uuid.UUID   `json:"id" db:"id"`
	TrialID               uuid.UUID   `json:"trial_id" db:"trial_id"`
	Decision              TrialRuling `json:"decision" db:"decision"`
	Reasoning             string      `json:"reasoning" db:"reasoning" validate:"required,min=30"`
	PunishmentTitle       *string     `json:"punishment_title,omitempty" db:"punishment_title"`
	PunishmentDescription *string     `json:"punishment_description,omitempty" db:"punishment_description"`
	CreatedAt             time.Time   `json:"created_at" db:"created_at"`
}

// BailStatus is the reconciliation status of a bail payment.
type BailStatus string

const (
	BailStatusPending  BailStatus = "pending"
	BailStatusApproved BailStatus = "approved"
	BailStatusPaid     BailStatus = "paid"
	BailStatusRejected BailStatus = "rejected"
)

// BailPayment tracks a bail request through sergeant approval and gateway
// confirmation. GatewayToken correlates retried gateway callbacks.
type BailPayment struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	SuspectID    uuid.UUID  `json:"suspect_id" db:"suspect_id"`
	CaseID       uuid.UUID  `json:"case_id" db:"case_id"`
	RequestedBy  uuid.UUID  `json:"requested_by" db:"requested_by"`
	Amount       int64      `json:"amount" db:"amount"`
	Status       BailStatus `json:"status" db:"status"`
	ApprovedBy   *uuid.UUID `json:"approved_by,omitempty" db:"approved_by"`
	GatewayToken *string    `json:"gateway_token,omitempty" db:"gateway_token"`
	PaidAt       *time.Time `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// GatewayOutcome is the payment gateway's callback result.
type GatewayOutcome string

const (
	GatewayOutcomeSuccess     GatewayOutcome = "success"
	GatewayOutcomeAlreadyPaid GatewayOutcome = "already_paid"
	GatewayOutcomeFailed      GatewayOutcome = "failed"
	GatewayOutcomeCancelled   GatewayOutcome = "cancelled"
)

// GatewayResult is the single inbound fact consumed from the payment gateway.
type GatewayResult struct {
	CorrelationToken string         `json:"correlation_token"`
	Outcome          GatewayOutcome `json:"outcome"`
}

// TipOffStatus is the two-stage review status of a citizen tip.
type TipOffStatus string

const (
	TipOffStatusPending           TipOffStatus = "pending"
	TipOffStatusOfficerApproved   TipOffStatus = "officer_approved"
	TipOffStatusOfficerRejected   TipOffStatus = "officer_rejected"
	TipOffStatusApproved          TipOffStatus = "approved"
	TipOffStatusDetectiveRejected TipOffStatus = "detective_rejected"
	TipOffStatusRedeemed          TipOffStatus = "redeemed"
)

// TipOff is a citizen tip working through officer then detective review. A
// redemption code is issued only on final approval and is single-use.
type TipOff struct {
	ID              uuid.UUID    `json:"id" db:"id"`
	CaseID          uuid.UUID    `json:"case_id" db:"case_id"`
	SuspectID       *uuid.UUID   `json:"suspect_id,omitempty" db:"suspect_id"`
	InformantID     uuid.UUID    `json:"informant_id" db:"informant_id"`
	Information     string       `json:"information" db:"information"`
	Status          TipOffStatus `json:"status" db:"status"`
	OfficerID       *uuid.UUID   `json:"officer_id,omitempty" db:"officer_id"`
	OfficerReason   *string      `json:"officer_reason,omitempty" db:"officer_reason"`
	DetectiveID     *uuid.UUID   `json:"detective_id,omitempty" db:"detective_id"`
	DetectiveReason *string      `json:"detective_reason,omitempty" db:"detective_reason"`
	RewardAmount    *int64       `json:"reward_amount,omitempty" db:"reward_amount"`
	RedemptionCode  *string      `json:"redemption_code,omitempty" db:"redemption_code"`
	RedeemedAt      *time.Time   `json:"redeemed_at,omitempty" db:"redeemed_at"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// Notification is an outbound message recorded as a side effect of a
// transition. Delivery is external; the only mutation is the read flag.
type Notification struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	RecipientID uuid.UUID  `json:"recipient_id" db:"recipient_id"`
	Type        string     `json:"type" db:"type"`
	CaseID      *uuid.UUID `json:"case_id,omitempty" db:"case_id"`
	Read        bool       `json:"read" db:"read"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// User is an organization member with a role set. Roles are resolved through
// the rbac package; the engine reads users only to gate operations and to
// fan notifications out to role pools.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Roles     []string  `json:"roles" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
