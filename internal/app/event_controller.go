package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"team-event-service/internal/domain"
)

// Settings are the event-wide rules the controller enforces.
type Settings struct {
	EventID          string
	Teams            []int
	MaxSelections    int
	AnswerWindow     time.Duration
	ActivityDuration time.Duration
	ActivityBlock    time.Duration
	UndoWindow       time.Duration
	SettlePeriod     time.Duration
	TickInterval     time.Duration
}

// TeamIDs returns the ids 1..n.
func TeamIDs(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i + 1
	}
	return ids
}

// AttemptOutcome is what the projector shows after an answer is locked in.
type AttemptOutcome struct {
	TeamID        int                 `json:"teamId"`
	ParticipantID int                 `json:"participantId"`
	QuestionID    string              `json:"questionId"`
	Selected      *domain.OptionLabel `json:"selected"`
	CorrectOption domain.OptionLabel  `json:"correctOption"`
	Correct       bool                `json:"correct"`
	TimedOut      bool                `json:"timedOut"`
	Points        int                 `json:"points"`
	QuizComplete  bool                `json:"quizComplete"`
}

// QuestionView hides the options until they are revealed and never carries the answer.
type QuestionView struct {
	ID              string     `json:"id"`
	Text            string     `json:"text"`
	OptionsRevealed bool       `json:"optionsRevealed"`
	Options         *[4]string `json:"options,omitempty"`
}

// RosterEntry is one attendance line.
type RosterEntry struct {
	domain.Participant
	LogEntry
}

// View is the projector's complete state, re-fetchable at any time.
type View struct {
	EventID           string           `json:"eventId"`
	Phase             domain.Phase     `json:"phase"`
	DrawnTeam         *int             `json:"drawnTeam,omitempty"`
	Team              *int             `json:"team,omitempty"`
	Representative    *int             `json:"representative,omitempty"`
	Question          *QuestionView    `json:"question,omitempty"`
	AnswerRemainingMS *int64           `json:"answerRemainingMs,omitempty"`
	LastOutcome       *AttemptOutcome  `json:"lastOutcome,omitempty"`
	Activity          ActivitySnapshot `json:"activity"`
	Revealed          []RankGroup      `json:"revealed,omitempty"`
	RevealDone        bool             `json:"revealDone"`
	TiedTeams         []int            `json:"tiedTeams,omitempty"`
	Remaining         []int            `json:"remaining,omitempty"`
	TieBreakReps      map[int]int      `json:"tieBreakReps,omitempty"`
	Winner            *int             `json:"winner,omitempty"`
	Standings         []Standing       `json:"standings,omitempty"`
}

// attemptProgress remembers which writes of an answer already landed so a
// retry after a failure does not append a second attempt.
type attemptProgress struct {
	outcome       AttemptOutcome
	attemptSaved  bool
	answeredSaved bool
	usageSaved    bool
}

// EventController owns the projector flow for one event.
type EventController struct {
	cfg   Settings
	store Store
	cache ResultCache
	now   func() time.Time

	eligibility *Eligibility
	scorer      *Scorer
	resolver    *Resolver
	activity    *ActivityClock
	absences    *ReversibleLog

	mu             sync.Mutex
	phase          domain.Phase
	drawnTeam      *int
	team           *int
	representative *int
	question       *domain.QuizQuestion
	deadline       *time.Time
	pending        *attemptProgress
	lastOutcome    *AttemptOutcome
	reveal         *Reveal
	standings      []Standing
	tie            *TieBreak
	winner         *int
}

func NewEventController(cfg Settings, store Store, cache ResultCache) *EventController {
	return NewEventControllerWithClock(cfg, store, cache, time.Now, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewEventControllerWithClock is used by tests for deterministic time and draws.
func NewEventControllerWithClock(cfg Settings, store Store, cache ResultCache, now func() time.Time, rnd *rand.Rand) *EventController {
	return &EventController{
		cfg:         cfg,
		store:       store,
		cache:       cache,
		now:         now,
		eligibility: NewEligibility(cfg.EventID, cfg.Teams, cfg.MaxSelections, store, rnd),
		scorer:      NewScorer(cfg.EventID, cfg.Teams, cfg.MaxSelections, cfg.ActivityBlock, store),
		resolver:    NewResolver(cfg.EventID, store),
		activity:    NewActivityClock(cfg.EventID, store, cfg.ActivityDuration, cfg.TickInterval, now),
		absences:    NewReversibleLogWithClock(store, cfg.EventID, domain.MarkAbsent, cfg.UndoWindow, cfg.SettlePeriod, now),
		phase:       domain.PhaseAttendance,
	}
}

// Close releases the activity ticker.
func (c *EventController) Close() {
	c.activity.Close()
}

// Recover rebuilds the flow from persisted markers, as after a projector reload.
func (c *EventController) Recover(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var m Markers
	st, err := c.store.GetEventState(ctx, c.cfg.EventID)
	switch {
	case err == nil:
		m.State = &st
	case !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("recover event state: %w", err)
	}
	usage, err := c.store.ListUsage(ctx, c.cfg.EventID)
	if err != nil {
		return fmt.Errorf("recover usage: %w", err)
	}
	m.UsageRows = len(usage)
	if m.QuizComplete, err = c.scorer.QuizComplete(ctx); err != nil {
		return err
	}
	if m.Results, err = c.store.ListResults(ctx, c.cfg.EventID); err != nil {
		return fmt.Errorf("recover results: %w", err)
	}
	if err := c.absences.Load(ctx); err != nil {
		return err
	}

	c.resetSelectionLocked()
	c.reveal, c.standings, c.tie, c.winner = nil, nil, nil, nil
	phase := RecoverPhase(m)
	switch phase {
	case domain.PhaseTieBreakerRules:
		c.standings = Rank(totalsFromResults(m.Results))
		c.tie = NewTieBreak(RankOneTie(GroupByRank(standingsFromResults(m.Results))))
	case domain.PhaseComplete:
		c.standings = standingsFromResults(m.Results)
		sortStandings(c.standings)
	}
	log.Printf("event %s recovered at %s", c.cfg.EventID, phase)
	return c.enterLocked(ctx, phase)
}

// Snapshot returns the current view.
func (c *EventController) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Phase returns the current phase.
func (c *EventController) Phase() domain.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Roster lists every participant with absence marks in display order.
func (c *EventController) Roster(ctx context.Context) ([]RosterEntry, error) {
	participants, err := c.store.ListParticipants(ctx)
	if err != nil {
		log.Printf("roster: %v", err)
		return nil, err
	}
	byID := make(map[int]domain.Participant, len(participants))
	ids := make([]int, 0, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}
	entries := c.absences.Entries(ids)
	out := make([]RosterEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, RosterEntry{Participant: byID[e.SubjectID], LogEntry: e})
	}
	return out, nil
}

// MarkAbsent records an absence and clears the participant's presence flag.
func (c *EventController) MarkAbsent(ctx context.Context, participantID int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked(domain.PhaseAttendance); err != nil {
		return false, err
	}
	recorded, err := c.absences.Record(ctx, participantID)
	if err != nil || !recorded {
		return false, err
	}
	if err := c.store.SetPresent(ctx, participantID, false); err != nil {
		if _, rerr := c.absences.Revoke(ctx, participantID); rerr != nil {
			log.Printf("roll back absence %d: %v", participantID, rerr)
		}
		return false, fmt.Errorf("mark absent: %w", err)
	}
	return true, nil
}

// RestorePresent undoes an absence inside the undo window. It returns false
// without error when the undo is not allowed.
func (c *EventController) RestorePresent(ctx context.Context, participantID int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked(domain.PhaseAttendance); err != nil {
		return false, err
	}
	if !c.absences.CanRevoke(participantID) {
		return false, nil
	}
	if err := c.store.SetPresent(ctx, participantID, true); err != nil {
		return false, fmt.Errorf("restore present: %w", err)
	}
	revoked, err := c.absences.Revoke(ctx, participantID)
	if err != nil || !revoked {
		if perr := c.store.SetPresent(ctx, participantID, false); perr != nil {
			log.Printf("roll back presence %d: %v", participantID, perr)
		}
		return false, err
	}
	return true, nil
}

// LockAttendance ends attendance taking.
func (c *EventController) LockAttendance(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fireLocked(ctx, EventAttendanceLocked)
}

// AcknowledgeRules leaves any of the three rules screens.
func (c *EventController) AcknowledgeRules(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fireLocked(ctx, EventRulesAcknowledged)
}

// DrawTeam picks a random eligible team. When no team is eligible the quiz is
// over and the flow moves on to the activity rules.
func (c *EventController) DrawTeam(ctx context.Context) (team int, quizComplete bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked(domain.PhaseQuizTeamSelect); err != nil {
		return 0, false, err
	}
	team, ok, err := c.eligibility.DrawTeam(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("draw team: %w", err)
	}
	if !ok {
		return 0, true, c.fireLocked(ctx, EventQuizExhausted)
	}
	c.drawnTeam = &team
	return team, false, nil
}

// ConfirmTeam accepts the drawn team.
func (c *EventController) ConfirmTeam(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked(domain.PhaseQuizTeamSelect); err != nil {
		return err
	}
	if c.drawnTeam == nil {
		return fmt.Errorf("%w: no team drawn", domain.ErrInvariantViolation)
	}
	c.team = c.drawnTeam
	c.drawnTeam = nil
	return c.fireLocked(ctx, EventTeamChosen)
}

// Representatives lists who may represent the selected team right now.
func (c *EventController) Representatives(ctx context.Context) ([]domain.Participant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.phase {
	case domain.PhaseQuizRepresentativeSelect:
		return c.eligibility.QuizRepresentatives(ctx, *c.team)
	case domain.PhaseTieBreakerRepresentativeSelect:
		team, ok := c.tie.NextUnrepresented()
		if !ok {
			return nil, nil
		}
		return c.eligibility.TieBreakRepresentatives(ctx, team)
	}
	return nil, fmt.Errorf("%w: no representative selection in %s", domain.ErrIllegalTransition, c.phase)
}

// ChooseRepresentative confirms the quiz representative and presents the next question.
func (c *EventController) ChooseRepresentative(ctx context.Context, participantID int) (QuestionView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked(domain.PhaseQuizRepresentativeSelect); err != nil {
		return QuestionView{}, err
	}
	ok, err := c.eligibility.IsQuizRepresentative(ctx, *c.team, participantID)
	if err != nil {
		return QuestionView{}, fmt.Errorf("check representative: %w", err)
	}
	if !ok {
		return QuestionView{}, fmt.Errorf("%w: participant %d cannot answer for team %d", domain.ErrInvariantViolation, participantID, *c.team)
	}
	q, err := c.store.ClaimQuestion(ctx)
	if err != nil {
		return QuestionView{}, fmt.Errorf("present question: %w", err)
	}
	c.representative = &participantID
	c.question = &q
	c.deadline = nil
	c.pending = nil
	if err := c.fireLocked(ctx, EventRepresentativeChosen); err != nil {
		return QuestionView{}, err
	}
	return *c.questionViewLocked(), nil
}

// RevealOptions shows the options and starts the answer countdown.
func (c *EventController) RevealOptions(ctx context.Context) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked(domain.PhaseQuiz); err != nil {
		return time.Time{}, err
	}
	if c.deadline == nil {
		d := c.now().Add(c.cfg.AnswerWindow)
		c.deadline = &d
	}
	return *c.deadline, nil
}

// SubmitAnswer locks in the representative's answer. A nil selection, or any
// selection arriving after the countdown, is recorded as a timeout.
func (c *EventController) SubmitAnswer(ctx context.Context, selected *domain.OptionLabel) (AttemptOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked(domain.PhaseQuiz); err != nil {
		return AttemptOutcome{}, err
	}
	if c.deadline == nil {
		return AttemptOutcome{}, fmt.Errorf("%w: options not revealed", domain.ErrInvariantViolation)
	}
	if selected != nil && !selected.Valid() {
		return AttemptOutcome{}, fmt.Errorf("%w: unknown option %q", domain.ErrInvariantViolation, *selected)
	}

	if c.pending == nil {
		timedOut := selected == nil || c.now().After(*c.deadline)
		if timedOut {
			selected = nil
		}
		correct, points := QuizPoints(*c.question, selected)
		c.pending = &attemptProgress{outcome: AttemptOutcome{
			TeamID:        *c.team,
			ParticipantID: *c.representative,
			QuestionID:    c.question.ID,
			Selected:      selected,
			CorrectOption: c.question.Correct,
			Correct:       correct,
			TimedOut:      timedOut,
			Points:        points,
		}}
	}
	p := c.pending
	out := p.outcome

	if !p.attemptSaved {
		err := c.store.InsertAttempt(ctx, domain.QuizAttempt{
			EventID:       c.cfg.EventID,
			TeamID:        out.TeamID,
			ParticipantID: out.ParticipantID,
			QuestionID:    out.QuestionID,
			Selected:      out.Selected,
			Correct:       out.Correct,
			Points:        out.Points,
			CreatedAt:     c.now(),
		})
		if err != nil {
			return AttemptOutcome{}, fmt.Errorf("save attempt: %w", err)
		}
		p.attemptSaved = true
	}
	if !p.answeredSaved {
		if err := c.store.MarkAnswered(ctx, c.cfg.EventID, out.ParticipantID); err != nil {
			return AttemptOutcome{}, fmt.Errorf("save participation: %w", err)
		}
		p.answeredSaved = true
	}
	if !p.usageSaved {
		if _, err := c.store.IncrementUsage(ctx, c.cfg.EventID, out.TeamID); err != nil {
			return AttemptOutcome{}, fmt.Errorf("increment team usage: %w", err)
		}
		p.usageSaved = true
	}

	complete, err := c.scorer.QuizComplete(ctx)
	if err != nil {
		// Team selection re-checks eligibility, which is authoritative.
		log.Printf("post-attempt completeness: %v", err)
		complete = false
	}
	out.QuizComplete = complete
	c.lastOutcome = &out
	c.resetSelectionLocked()

	ev := EventQuizContinues
	if complete {
		ev = EventQuizExhausted
	}
	return out, c.fireLocked(ctx, ev)
}

// AnswerRemaining reports the time left on the answer countdown.
func (c *EventController) AnswerRemaining() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deadline == nil {
		return 0, false
	}
	left := c.deadline.Sub(c.now())
	if left < 0 {
		left = 0
	}
	return left, true
}

// StartActivity unlocks the activity and starts the stopwatch.
func (c *EventController) StartActivity(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked(domain.PhaseActivityMaster); err != nil {
		return err
	}
	return c.activity.Start(ctx)
}

// StopActivity ends the activity early.
func (c *EventController) StopActivity(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked(domain.PhaseActivityMaster); err != nil {
		return err
	}
	return c.activity.Stop(ctx)
}

// Activity returns the activity timer snapshot.
func (c *EventController) Activity() ActivitySnapshot {
	return c.activity.Snapshot()
}

// FinishActivity moves to results once the activity has completed and
// computes the rank table.
func (c *EventController) FinishActivity(ctx context.Context) ([]RankGroup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked(domain.PhaseActivityMaster); err != nil {
		return nil, err
	}
	if s := c.activity.Snapshot(); s.Status != ActivityCompleted {
		return nil, fmt.Errorf("%w: activity is %s", domain.ErrInvariantViolation, s.Status)
	}
	if err := c.fireLocked(ctx, EventActivityFinished); err != nil {
		return nil, err
	}
	return c.computeResultsLocked(ctx)
}

// ComputeResults recomputes and stores totals and ranks from the raw logs.
func (c *EventController) ComputeResults(ctx context.Context) ([]RankGroup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked(domain.PhaseResults); err != nil {
		return nil, err
	}
	return c.computeResultsLocked(ctx)
}

func (c *EventController) computeResultsLocked(ctx context.Context) ([]RankGroup, error) {
	totals, err := c.scorer.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("compute totals: %w", err)
	}
	standings := Rank(totals)
	groups := GroupByRank(standings)
	final := len(RankOneTie(groups)) == 0

	rows := make([]domain.EventResult, 0, len(standings))
	for _, s := range standings {
		rows = append(rows, domain.EventResult{
			EventID:     c.cfg.EventID,
			TeamID:      s.TeamID,
			TotalPoints: s.Points,
			Rank:        s.Rank,
			IsFinal:     final,
		})
	}
	if err := c.store.UpsertResults(ctx, rows); err != nil {
		return nil, fmt.Errorf("store results: %w", err)
	}
	c.invalidateLocked(ctx)
	c.standings = standings
	c.reveal = NewReveal(groups)
	return groups, nil
}

// RevealNext shows the next rank group, worst rank first.
func (c *EventController) RevealNext(ctx context.Context) (RankGroup, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked(domain.PhaseResults); err != nil {
		return RankGroup{}, false, err
	}
	if c.reveal == nil {
		if _, err := c.computeResultsLocked(ctx); err != nil {
			return RankGroup{}, false, err
		}
	}
	g, ok := c.reveal.Next()
	return g, ok, nil
}

// FinishResults ends the results screen, branching into a tie-break when
// more than one team holds rank 1.
func (c *EventController) FinishResults(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked(domain.PhaseResults); err != nil {
		return err
	}
	if c.reveal == nil || !c.reveal.Done() {
		return fmt.Errorf("%w: results not fully revealed", domain.ErrInvariantViolation)
	}
	tied := RankOneTie(GroupByRank(c.standings))
	if len(tied) == 0 {
		return c.fireLocked(ctx, EventNoTie)
	}
	c.tie = NewTieBreak(tied)
	return c.fireLocked(ctx, EventRankOneTie)
}

// ChooseTieBreakRepresentative assigns the representative for the next tied
// team; the challenge starts once every tied team has one.
func (c *EventController) ChooseTieBreakRepresentative(ctx context.Context, participantID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked(domain.PhaseTieBreakerRepresentativeSelect); err != nil {
		return err
	}
	team, ok := c.tie.NextUnrepresented()
	if !ok {
		return c.fireLocked(ctx, EventRepresentativesReady)
	}
	eligible, err := c.eligibility.TieBreakRepresentatives(ctx, team)
	if err != nil {
		return fmt.Errorf("check tie-break representative: %w", err)
	}
	if !containsParticipant(eligible, participantID) {
		return fmt.Errorf("%w: participant %d cannot represent team %d", domain.ErrInvariantViolation, participantID, team)
	}
	if err := c.tie.Assign(team, participantID); err != nil {
		return err
	}
	if c.tie.Ready() {
		return c.fireLocked(ctx, EventRepresentativesReady)
	}
	return nil
}

// Eliminate removes a team from the challenge. When one team remains it wins,
// receives the bonus and the ranks are rewritten.
func (c *EventController) Eliminate(ctx context.Context, teamID int) (*int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked(domain.PhaseTieBreakerChallenge); err != nil {
		return nil, err
	}
	winner, done, err := c.tie.Eliminate(teamID)
	if err != nil || !done {
		return nil, err
	}
	c.winner = &winner
	return c.winner, c.resolveLocked(ctx)
}

// ResolveTieBreak retries applying a decided winner after a failed resolution.
func (c *EventController) ResolveTieBreak(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked(domain.PhaseTieBreakerChallenge); err != nil {
		return err
	}
	if c.winner == nil {
		return fmt.Errorf("%w: no winner decided", domain.ErrInvariantViolation)
	}
	return c.resolveLocked(ctx)
}

func (c *EventController) resolveLocked(ctx context.Context) error {
	standings, err := c.resolver.Resolve(ctx, *c.winner)
	if errors.Is(err, domain.ErrAlreadyFinal) {
		rows, lerr := c.store.ListResults(ctx, c.cfg.EventID)
		if lerr != nil {
			return fmt.Errorf("load final results: %w", lerr)
		}
		standings, err = standingsFromResults(rows), nil
		sortStandings(standings)
	}
	if err != nil {
		return err
	}
	c.invalidateLocked(ctx)
	c.standings = standings
	return c.fireLocked(ctx, EventWinnerDeclared)
}

func (c *EventController) invalidateLocked(ctx context.Context) {
	if c.cache != nil {
		c.cache.Invalidate(ctx, c.cfg.EventID)
	}
}

func (c *EventController) requireLocked(p domain.Phase) error {
	if c.phase != p {
		return fmt.Errorf("%w: action needs %s, current phase is %s", domain.ErrIllegalTransition, p, c.phase)
	}
	return nil
}

func (c *EventController) fireLocked(ctx context.Context, ev Event) error {
	next, err := Transition(c.phase, ev)
	if err != nil {
		return err
	}
	return c.enterLocked(ctx, next)
}

func (c *EventController) enterLocked(ctx context.Context, p domain.Phase) error {
	p = Guard(p, c.selectionLocked())
	c.phase = p
	switch p {
	case domain.PhaseActivityMaster:
		if _, err := c.activity.Restore(ctx); err != nil {
			return err
		}
	case domain.PhaseResults:
		if c.reveal == nil {
			if _, err := c.computeResultsLocked(ctx); err != nil {
				log.Printf("results on entry: %v", err)
			}
		}
	}
	return nil
}

func (c *EventController) selectionLocked() Selection {
	sel := Selection{Team: c.team, Representative: c.representative}
	if c.tie != nil {
		sel.TiedTeams = c.tie.Teams()
	}
	return sel
}

func (c *EventController) resetSelectionLocked() {
	c.drawnTeam = nil
	c.team = nil
	c.representative = nil
	c.question = nil
	c.deadline = nil
	c.pending = nil
}

func (c *EventController) questionViewLocked() *QuestionView {
	if c.question == nil {
		return nil
	}
	v := &QuestionView{ID: c.question.ID, Text: c.question.Text}
	if c.deadline != nil {
		opts := c.question.Options
		v.OptionsRevealed = true
		v.Options = &opts
	}
	return v
}

func (c *EventController) viewLocked() View {
	v := View{
		EventID:        c.cfg.EventID,
		Phase:          c.phase,
		DrawnTeam:      c.drawnTeam,
		Team:           c.team,
		Representative: c.representative,
		Question:       c.questionViewLocked(),
		LastOutcome:    c.lastOutcome,
		Activity:       c.activity.Snapshot(),
		Winner:         c.winner,
	}
	if c.deadline != nil {
		left := c.deadline.Sub(c.now())
		if left < 0 {
			left = 0
		}
		ms := left.Milliseconds()
		v.AnswerRemainingMS = &ms
	}
	if c.reveal != nil {
		v.Revealed = c.reveal.Revealed()
		v.RevealDone = c.reveal.Done()
	}
	if c.tie != nil {
		v.TiedTeams = c.tie.Teams()
		v.Remaining = c.tie.Remaining()
		v.TieBreakReps = c.tie.Representatives()
	}
	if c.phase == domain.PhaseComplete {
		v.Standings = c.standings
	}
	return v
}

func sortStandings(s []Standing) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Rank != s[j].Rank {
			return s[i].Rank < s[j].Rank
		}
		return s[i].TeamID < s[j].TeamID
	})
}
