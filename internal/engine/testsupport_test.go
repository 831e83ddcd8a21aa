package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"case-engine/internal/config"
	"case-engine/internal/models"
	"case-engine/internal/rbac"
	"case-engine/internal/repository"
)

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memDirectory is an in-memory rbac.Directory.
type memDirectory struct {
	mu    sync.Mutex
	roles map[uuid.UUID][]rbac.Role
}

func newMemDirectory() *memDirectory {
	return &memDirectory{roles: make(map[uuid.UUID][]rbac.Role)}
}

func (d *memDirectory) add(roles ...rbac.Role) uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := uuid.New()
	d.roles[id] = roles
	return id
}

func (d *memDirectory) RolesOf(_ context.Context, principal uuid.UUID) ([]rbac.Role, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.roles[principal], nil
}

func (d *memDirectory) UsersByRole(_ context.Context, role rbac.Role) ([]uuid.UUID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var ids []uuid.UUID
	for id, roles := range d.roles {
		for _, r := range roles {
			if r == role {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids, nil
}

// recordedNotification is one captured Notify call.
type recordedNotification struct {
	To     Recipients
	Type   string
	CaseID *uuid.UUID
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []recordedNotification
}

func (n *recordingNotifier) Notify(_ context.Context, to Recipients, ntype string, caseID *uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, recordedNotification{To: to, Type: ntype, CaseID: caseID})
}

func (n *recordingNotifier) typesSent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]string, len(n.calls))
	for i, c := range n.calls {
		types[i] = c.Type
	}
	return types
}

// memCases is an in-memory CaseRepository with the same transition guard
// semantics as the SQL implementation.
type memCases struct {
	mu    sync.Mutex
	cases map[uuid.UUID]*models.Case
}

func newMemCases() *memCases {
	return &memCases{cases: make(map[uuid.UUID]*models.Case)}
}

func (m *memCases) Create(_ context.Context, c *models.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.cases[c.ID] = &cp
	return nil
}

func (m *memCases) GetByID(_ context.Context, id uuid.UUID) (*models.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCases) Transition(_ context.Context, t repository.CaseTransition) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[t.CaseID]
	if !ok {
		return false, nil
	}
	matched := false
	for _, f := range t.From {
		if c.Status == f {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	if t.ExpectRejections != nil && c.RejectionCount != *t.ExpectRejections {
		return false, nil
	}
	c.Status = t.To
	if t.BumpRejection {
		c.RejectionCount++
	}
	now := time.Now()
	if t.StampOpened {
		c.OpenedAt = &now
	}
	if t.StampClosed {
		c.ClosedAt = &now
	}
	c.UpdatedAt = now
	return true, nil
}

func (m *memCases) ListByStatus(_ context.Context, status models.CaseStatus) ([]*models.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Case
	for _, c := range m.cases {
		if c.Status == status {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

// memSuspects is an in-memory SuspectRepository. Transition stamps use the
// rig's fake clock so stored timestamps stay consistent with the injected
// engine clock.
type memSuspects struct {
	mu       sync.Mutex
	clock    *fakeClock
	suspects map[uuid.UUID]*models.Suspect
}

func newMemSuspects(clock *fakeClock) *memSuspects {
	return &memSuspects{clock: clock, suspects: make(map[uuid.UUID]*models.Suspect)}
}

func (m *memSuspects) Create(_ context.Context, s *models.Suspect) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.IdentifiedAt.IsZero() {
		s.IdentifiedAt = time.Now()
	}
	cp := *s
	m.suspects[s.ID] = &cp
	return nil
}

func (m *memSuspects) GetByID(_ context.Context, id uuid.UUID) (*models.Suspect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suspects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSuspects) ListByCase(_ context.Context, caseID uuid.UUID) ([]*models.Suspect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Suspect
	for _, s := range m.suspects {
		if s.CaseID == caseID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memSuspects) ListByStatus(_ context.Context, statuses ...models.SuspectStatus) ([]*models.Suspect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Suspect
	for _, s := range m.suspects {
		for _, st := range statuses {
			if s.Status == st {
				cp := *s
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

func (m *memSuspects) Transition(_ context.Context, t repository.SuspectTransition) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suspects[t.SuspectID]
	if !ok {
		return false, nil
	}
	matched := false
	for _, f := range t.From {
		if s.Status == f {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	s.Status = t.To
	now := m.clock.Now()
	if t.StampPursuit {
		s.PursuitStartedAt = &now
	}
	if t.StampEscalated {
		s.EscalatedAt = &now
	}
	if t.StampResolved {
		s.ResolvedAt = &now
	}
	s.UpdatedAt = now
	return true, nil
}

func (m *memSuspects) IssueWarrants(_ context.Context, ids []uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if s, ok := m.suspects[id]; ok {
			s.WarrantIssued = true
			s.WarrantIssuedAt = &at
		}
	}
	return nil
}

func (m *memSuspects) MarkReleasedOnBail(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suspects[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.ReleasedOnBail = true
	return nil
}

func (m *memSuspects) CountByCase(_ context.Context, caseID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, s := range m.suspects {
		if s.CaseID == caseID {
			count++
		}
	}
	return count, nil
}

// setStatus force-sets a suspect's stored state for test setup.
func (m *memSuspects) setStatus(id uuid.UUID, status models.SuspectStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspects[id].Status = status
}

func (m *memSuspects) setIdentifiedAt(id uuid.UUID, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspects[id].IdentifiedAt = at
}

func (m *memSuspects) setPursuitStartedAt(id uuid.UUID, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspects[id].PursuitStartedAt = &at
}

// memSubmissions is an in-memory SubmissionRepository.
type memSubmissions struct {
	mu          sync.Mutex
	submissions map[uuid.UUID]*models.SuspectSubmission
}

func newMemSubmissions() *memSubmissions {
	return &memSubmissions{submissions: make(map[uuid.UUID]*models.SuspectSubmission)}
}

func (m *memSubmissions) Create(_ context.Context, s *models.SuspectSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	cp.SuspectIDs = append([]uuid.UUID(nil), s.SuspectIDs...)
	m.submissions[s.ID] = &cp
	return nil
}

func (m *memSubmissions) GetByID(_ context.Context, id uuid.UUID) (*models.SuspectSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	cp.SuspectIDs = append([]uuid.UUID(nil), s.SuspectIDs...)
	return &cp, nil
}

func (m *memSubmissions) Review(_ context.Context, id uuid.UUID, to models.SubmissionStatus, reviewer uuid.UUID, notes string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok || s.Status != models.SubmissionStatusPending {
		return false, nil
	}
	now := time.Now()
	s.Status = to
	s.ReviewedBy = &reviewer
	s.ReviewNotes = &notes
	s.ReviewedAt = &now
	return true, nil
}

func (m *memSubmissions) ListByCase(_ context.Context, caseID uuid.UUID) ([]*models.SuspectSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.SuspectSubmission
	for _, s := range m.submissions {
		if s.CaseID == caseID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

// memInterrogations is an in-memory InterrogationRepository.
type memInterrogations struct {
	mu             sync.Mutex
	interrogations map[uuid.UUID]*models.Interrogation
}

func newMemInterrogations() *memInterrogations {
	return &memInterrogations{interrogations: make(map[uuid.UUID]*models.Interrogation)}
}

func (m *memInterrogations) Create(_ context.Context, i *models.Interrogation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	cp := *i
	m.interrogations[i.ID] = &cp
	return nil
}

func (m *memInterrogations) GetByID(_ context.Context, id uuid.UUID) (*models.Interrogation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.interrogations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *i
	return &cp, nil
}

func (m *memInterrogations) SubmitRatings(_ context.Context, id uuid.UUID, u repository.RatingsUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.interrogations[id]
	if !ok || i.Status != models.InterrogationStatusPending {
		return false, nil
	}
	now := time.Now()
	i.Status = models.InterrogationStatusSubmitted
	i.DetectiveRating = &u.DetectiveRating
	i.SergeantRating = &u.SergeantRating
	i.DetectiveNotes = &u.DetectiveNotes
	i.SergeantNotes = &u.SergeantNotes
	i.AverageRating = &u.Average
	i.SubmittedAt = &now
	return true, nil
}

func (m *memInterrogations) MarkReviewed(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.interrogations[id]
	if !ok || i.Status != models.InterrogationStatusSubmitted {
		return false, nil
	}
	i.Status = models.InterrogationStatusReviewed
	return true, nil
}

// memDecisions is an in-memory DecisionRepository. It resolves suspects
// through the interrogation store the way the SQL implementation joins.
type memDecisions struct {
	mu             sync.Mutex
	captains       map[uuid.UUID]*models.CaptainDecision
	chiefs         map[uuid.UUID]*models.ChiefDecision
	interrogations *memInterrogations
}

func newMemDecisions(interrogations *memInterrogations) *memDecisions {
	return &memDecisions{
		captains:       make(map[uuid.UUID]*models.CaptainDecision),
		chiefs:         make(map[uuid.UUID]*models.ChiefDecision),
		interrogations: interrogations,
	}
}

func (m *memDecisions) CreateCaptain(_ context.Context, d *models.CaptainDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.captains {
		if existing.InterrogationID == d.InterrogationID {
			return repository.ErrDuplicate
		}
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.DecidedAt.IsZero() {
		d.DecidedAt = time.Now()
	}
	cp := *d
	m.captains[d.ID] = &cp
	return nil
}

func (m *memDecisions) GetCaptainByID(_ context.Context, id uuid.UUID) (*models.CaptainDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.captains[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memDecisions) GetCaptainByInterrogation(_ context.Context, interrogationID uuid.UUID) (*models.CaptainDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.captains {
		if d.InterrogationID == interrogationID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memDecisions) CompleteCaptain(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.captains[id]
	if !ok || d.Status != models.DecisionStatusAwaitingChief {
		return false, nil
	}
	d.Status = models.DecisionStatusCompleted
	return true, nil
}

func (m *memDecisions) CreateChief(_ context.Context, d *models.ChiefDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.chiefs {
		if existing.CaptainDecisionID == d.CaptainDecisionID {
			return repository.ErrDuplicate
		}
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	cp := *d
	m.chiefs[d.ID] = &cp
	return nil
}

func (m *memDecisions) GetChiefByCaptainDecision(_ context.Context, captainDecisionID uuid.UUID) (*models.ChiefDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.chiefs {
		if d.CaptainDecisionID == captainDecisionID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memDecisions) GetCompletedGuiltyForSuspect(ctx context.Context, suspectID uuid.UUID) (*models.CaptainDecision, error) {
	m.mu.Lock()
	captains := make([]*models.CaptainDecision, 0, len(m.captains))
	for _, d := range m.captains {
		cp := *d
		captains = append(captains, &cp)
	}
	m.mu.Unlock()

	for _, d := range captains {
		if d.Decision != models.CaptainVerdictGuilty || d.Status != models.DecisionStatusCompleted {
			continue
		}
		i, err := m.interrogations.GetByID(ctx, d.InterrogationID)
		if err != nil || i.SuspectID != suspectID {
			continue
		}
		if d.RequiresChief {
			chief, err := m.GetChiefByCaptainDecision(ctx, d.ID)
			if err != nil || chief.Decision != models.ChiefRulingApproved {
				continue
			}
		}
		return d, nil
	}
	return nil, repository.ErrNotFound
}

// memTrials is an in-memory TrialRepository.
type memTrials struct {
	mu       sync.Mutex
	trials   map[uuid.UUID]*models.Trial
	verdicts map[uuid.UUID]*models.Verdict
}

func newMemTrials() *memTrials {
	return &memTrials{
		trials:   make(map[uuid.UUID]*models.Trial),
		verdicts: make(map[uuid.UUID]*models.Verdict),
	}
}

func (m *memTrials) Create(_ context.Context, t *models.Trial) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	cp := *t
	m.trials[t.ID] = &cp
	return nil
}

func (m *memTrials) GetByID(_ context.Context, id uuid.UUID) (*models.Trial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trials[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTrials) GetVerdict(_ context.Context, trialID uuid.UUID) (*models.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.verdicts[trialID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *memTrials) CompleteWithVerdict(_ context.Context, v *models.Verdict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trials[v.TrialID]
	if !ok {
		return repository.ErrNotFound
	}
	if _, exists := m.verdicts[v.TrialID]; exists || t.Status == models.TrialStatusCompleted {
		return repository.ErrDuplicate
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	cp := *v
	m.verdicts[v.TrialID] = &cp
	t.Status = models.TrialStatusCompleted
	return nil
}

// memBails is an in-memory BailRepository.
type memBails struct {
	mu    sync.Mutex
	bails map[uuid.UUID]*models.BailPayment
}

func newMemBails() *memBails {
	return &memBails{bails: make(map[uuid.UUID]*models.BailPayment)}
}

func (m *memBails) Create(_ context.Context, b *models.BailPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	cp := *b
	m.bails[b.ID] = &cp
	return nil
}

func (m *memBails) GetByID(_ context.Context, id uuid.UUID) (*models.BailPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bails[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memBails) GetByToken(_ context.Context, token string) (*models.BailPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bails {
		if b.GatewayToken != nil && *b.GatewayToken == token {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memBails) Approve(_ context.Context, id, sergeant uuid.UUID) (bool, error) {
	return m.settle(id, sergeant, models.BailStatusApproved)
}

func (m *memBails) Reject(_ context.Context, id, sergeant uuid.UUID) (bool, error) {
	return m.settle(id, sergeant, models.BailStatusRejected)
}

func (m *memBails) settle(id, sergeant uuid.UUID, to models.BailStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bails[id]
	if !ok || b.Status != models.BailStatusPending {
		return false, nil
	}
	b.Status = to
	b.ApprovedBy = &sergeant
	return true, nil
}

func (m *memBails) MarkPaid(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bails[id]
	if !ok || b.Status != models.BailStatusApproved {
		return false, nil
	}
	now := time.Now()
	b.Status = models.BailStatusPaid
	b.PaidAt = &now
	return true, nil
}

// memTips is an in-memory TipOffRepository.
type memTips struct {
	mu   sync.Mutex
	tips map[uuid.UUID]*models.TipOff
}

func newMemTips() *memTips {
	return &memTips{tips: make(map[uuid.UUID]*models.TipOff)}
}

func (m *memTips) Create(_ context.Context, t *models.TipOff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	cp := *t
	m.tips[t.ID] = &cp
	return nil
}

func (m *memTips) GetByID(_ context.Context, id uuid.UUID) (*models.TipOff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTips) GetByCode(_ context.Context, code string) (*models.TipOff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tips {
		if t.RedemptionCode != nil && *t.RedemptionCode == code {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memTips) OfficerReview(_ context.Context, id, officer uuid.UUID, to models.TipOffStatus, reason *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tips[id]
	if !ok || t.Status != models.TipOffStatusPending {
		return false, nil
	}
	t.Status = to
	t.OfficerID = &officer
	t.OfficerReason = reason
	return true, nil
}

func (m *memTips) DetectiveApprove(_ context.Context, id, detective uuid.UUID, code string, reward int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.tips {
		if existing.RedemptionCode != nil && *existing.RedemptionCode == code {
			return false, repository.ErrDuplicate
		}
	}
	t, ok := m.tips[id]
	if !ok || t.Status != models.TipOffStatusOfficerApproved {
		return false, nil
	}
	t.Status = models.TipOffStatusApproved
	t.DetectiveID = &detective
	t.RedemptionCode = &code
	t.RewardAmount = &reward
	return true, nil
}

func (m *memTips) DetectiveReject(_ context.Context, id, detective uuid.UUID, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tips[id]
	if !ok || t.Status != models.TipOffStatusOfficerApproved {
		return false, nil
	}
	t.Status = models.TipOffStatusDetectiveRejected
	t.DetectiveID = &detective
	t.DetectiveReason = &reason
	return true, nil
}

func (m *memTips) Redeem(_ context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tips {
		if t.RedemptionCode != nil && *t.RedemptionCode == code {
			if t.Status != models.TipOffStatusApproved {
				return false, nil
			}
			now := time.Now()
			t.Status = models.TipOffStatusRedeemed
			t.RedeemedAt = &now
			return true, nil
		}
	}
	return false, nil
}

// rig wires every workflow against the in-memory stores with a fixed clock.
type rig struct {
	clock    *fakeClock
	dir      *memDirectory
	notifier *recordingNotifier

	cases          *memCases
	suspects       *memSuspects
	submissions    *memSubmissions
	interrogations *memInterrogations
	decisions      *memDecisions
	trials         *memTrials
	bails          *memBails
	tips           *memTips

	Cases          *CaseLifecycle
	Suspects       *SuspectTracker
	Submissions    *SubmissionReview
	Interrogations *InterrogationWorkflow
	Decisions      *DecisionChain
	Trials         *TrialWorkflow
	Bail           *BailWorkflow
	Tips           *TipOffWorkflow
}

func newRig() *rig {
	clock := newFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	r := &rig{
		clock:          clock,
		dir:            newMemDirectory(),
		notifier:       &recordingNotifier{},
		cases:          newMemCases(),
		suspects:       newMemSuspects(clock),
		submissions:    newMemSubmissions(),
		interrogations: newMemInterrogations(),
		trials:         newMemTrials(),
		bails:          newMemBails(),
		tips:           newMemTips(),
	}
	r.decisions = newMemDecisions(r.interrogations)

	auth := rbac.NewAuthority(r.dir)
	logger := zap.NewNop()
	pursuit := config.PursuitConfig{
		IntensiveAfter:   30 * 24 * time.Hour,
		RewardMultiplier: 20_000_000,
	}
	bail := config.BailConfig{MinAmount: 10_000_000, MaxAmount: 50_000_000_000}
	tips := config.NotificationsConfig{TipRewardShare: 0.1, TipRewardMinimum: 5_000_000}

	r.Cases = NewCaseLifecycle(r.cases, auth, r.notifier, nil, logger)
	r.Suspects = NewSuspectTracker(r.suspects, r.cases, r.Cases, auth, r.notifier, pursuit, r.clock, nil, logger)
	r.Submissions = NewSubmissionReview(r.submissions, r.suspects, r.Cases, auth, r.notifier, r.clock, nil, logger)
	r.Interrogations = NewInterrogationWorkflow(r.interrogations, r.suspects, r.Cases, auth, r.notifier, nil, logger)
	r.Decisions = NewDecisionChain(r.decisions, r.interrogations, r.cases, r.Cases, auth, r.notifier, nil, logger)
	r.Trials = NewTrialWorkflow(r.trials, r.decisions, r.suspects, r.Cases, auth, r.notifier, nil, logger)
	r.Bail = NewBailWorkflow(r.bails, r.suspects, r.cases, auth, r.notifier, bail, nil, logger)
	r.Tips = NewTipOffWorkflow(r.tips, r.suspects, r.cases, auth, r.notifier, tips, pursuit, r.clock, nil, logger)

	return r
}

// openCase drives a fresh case through review into the given status.
func (r *rig) openCase(ctx context.Context, level models.CrimeLevel, target models.CaseStatus) (*models.Case, uuid.UUID) {
	creator := r.dir.add(rbac.RoleOfficer)
	cadet := r.dir.add(rbac.RoleCadet)
	officer := r.dir.add(rbac.RoleOfficer)
	detective := r.dir.add(rbac.RoleDetective)

	c, err := r.Cases.Create(ctx, creator, models.CreateCaseRequest{
		Title:         "Armed robbery on Fifth",
		Description:   "Two masked individuals, one getaway vehicle",
		CrimeLevel:    level,
		FormationType: models.FormationOfficerScene,
	})
	if err != nil {
		panic(err)
	}
	if target == models.CaseStatusCadetReview {
		return c, creator
	}

	approve := models.SubmitReviewRequest{Decision: models.ReviewApproved}
	if _, err := r.Cases.SubmitReview(ctx, cadet, c.ID, approve); err != nil {
		panic(err)
	}
	if target == models.CaseStatusOfficerReview {
		return mustGetCase(r, ctx, c.ID), creator
	}

	if _, err := r.Cases.SubmitReview(ctx, officer, c.ID, approve); err != nil {
		panic(err)
	}
	if target == models.CaseStatusOpen {
		return mustGetCase(r, ctx, c.ID), creator
	}

	if _, err := r.Cases.AdvanceToInvestigation(ctx, detective, c.ID); err != nil {
		panic(err)
	}
	return mustGetCase(r, ctx, c.ID), creator
}

func mustGetCase(r *rig, ctx context.Context, id uuid.UUID) *models.Case {
	c, err := r.Cases.Get(ctx, id)
	if err != nil {
		panic(err)
	}
	return c
}
