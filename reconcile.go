package main

import "fmt"

// ReconcilePolicy says how one snapshot field is merged into local state
type ReconcilePolicy int

const (
	// SnapImmediately overwrites the local value
	SnapImmediately ReconcilePolicy = iota
	// InterpolateToTarget only moves the target; rendering eases toward it
	InterpolateToTarget
	// ThresholdSnap interpolates unless the divergence exceeds Threshold,
	// in which case it snaps (teleports such as kickoff resets)
	ThresholdSnap
)

func (p ReconcilePolicy) String() string {
	switch p {
	case InterpolateToTarget:
		return "interpolate"
	case ThresholdSnap:
		return "threshold-snap"
	}
	return "snap"
}

// EntityKind keys the policy table
type EntityKind string

const (
	EntityPlayer EntityKind = "player"
	EntityBall   EntityKind = "ball"
	EntityMatch  EntityKind = "match"
)

// Reconciled field names
const (
	FieldPosition   = "position"
	FieldName       = "name"
	FieldKitColor   = "kitColor"
	FieldTeam       = "team"
	FieldControls   = "controls"
	FieldCanShoot   = "canShoot"
	FieldScores     = "scores"
	FieldMatchTime  = "matchTime"
	FieldMatchEnded = "matchEnded"
)

// FieldRule is one row of the policy table
type FieldRule struct {
	Policy    ReconcilePolicy
	Threshold float64
}

// PolicyTable maps entity kind -> field -> rule. Fields missing from the
// table are not reconciled at all.
type PolicyTable map[EntityKind]map[string]FieldRule

// DefaultPolicyTable returns the stock reconciliation rules
func DefaultPolicyTable(snapThreshold float64) PolicyTable {
	snap := FieldRule{Policy: SnapImmediately}
	return PolicyTable{
		EntityPlayer: {
			FieldPosition: {Policy: ThresholdSnap, Threshold: snapThreshold},
			FieldName:     snap,
			FieldKitColor: snap,
			FieldTeam:     snap,
			FieldControls: snap,
			FieldCanShoot: snap,
		},
		EntityBall: {
			FieldPosition: {Policy: InterpolateToTarget},
		},
		EntityMatch: {
			FieldScores:     snap,
			FieldMatchTime:  snap,
			FieldMatchEnded: snap,
		},
	}
}

// Validate rejects tables that ask to interpolate a discrete field
func (t PolicyTable) Validate() error {
	for kind, fields := range t {
		for name, rule := range fields {
			if name == FieldPosition {
				if rule.Policy == ThresholdSnap && rule.Threshold <= 0 {
					return fmt.Errorf("%s.%s: threshold-snap needs a positive threshold", kind, name)
				}
				continue
			}
			if rule.Policy != SnapImmediately {
				return fmt.Errorf("%s.%s: discrete field cannot use %s", kind, name, rule.Policy)
			}
		}
	}
	return nil
}

func (t PolicyTable) rule(kind EntityKind, field string) (FieldRule, bool) {
	r, ok := t[kind][field]
	return r, ok
}

// MatchPresenter shows the end-of-match screen
type MatchPresenter interface {
	ShowMatchEnd(ms MatchState)
}

// ApplyResult describes what a snapshot changed, mostly for tests and logs
type ApplyResult struct {
	Inserted []string
	Snapped  []string
	Goals    []Team
	Ended    bool
}

// Reconciler merges authoritative snapshots into a client's world
type Reconciler struct {
	policy    PolicyTable
	field     Field
	events    EventSink
	presenter MatchPresenter
}

// NewReconciler creates a reconciler. A nil sink or presenter is allowed.
func NewReconciler(policy PolicyTable, field Field, events EventSink, presenter MatchPresenter) (*Reconciler, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("reconcile policy: %w", err)
	}
	if events == nil {
		events = discardEvents
	}
	return &Reconciler{policy: policy, field: field, events: events, presenter: presenter}, nil
}

// Apply merges one snapshot. Applying the same snapshot twice leaves the
// same state as applying it once and fires no side effects the second time.
func (r *Reconciler) Apply(w *World, s Snapshot) ApplyResult {
	var res ApplyResult

	if rule, ok := r.policy.rule(EntityMatch, FieldScores); ok && rule.Policy == SnapImmediately && s.Scores != nil {
		res.Goals = r.applyScores(w, *s.Scores)
	}

	if rule, ok := r.policy.rule(EntityBall, FieldPosition); ok && s.Ball != nil {
		b := &w.Ball
		r.placePosition(rule, &b.X, &b.Y, &b.TX, &b.TY, &b.HasTarget, s.Ball.X, s.Ball.Y)
	}

	for id, ps := range s.Players {
		if id == "" {
			continue
		}
		p := w.Player(id)
		if p == nil {
			np := &Player{
				ID:        id,
				Name:      ps.Name,
				Team:      ps.Team,
				KitColor:  ps.KitColor,
				X:         ps.X,
				Y:         ps.Y,
				TX:        ps.X,
				TY:        ps.Y,
				HasTarget: true,
				Controls:  ps.Inputs,
				CanShoot:  ps.CanShoot,
			}
			w.AddPlayer(np)
			res.Inserted = append(res.Inserted, id)
			continue
		}
		if rule, ok := r.policy.rule(EntityPlayer, FieldPosition); ok {
			if r.placePosition(rule, &p.X, &p.Y, &p.TX, &p.TY, &p.HasTarget, ps.X, ps.Y) {
				res.Snapped = append(res.Snapped, id)
			}
		}
		r.applyPlayerFields(p, ps)
	}

	if _, ok := r.policy.rule(EntityMatch, FieldMatchTime); ok && s.MatchTime != nil {
		w.Match.RemainingSeconds = *s.MatchTime
	}

	if _, ok := r.policy.rule(EntityMatch, FieldMatchEnded); ok && s.MatchEnded != nil {
		res.Ended = r.applyEnded(w, *s.MatchEnded)
	}
	return res
}

func (r *Reconciler) applyPlayerFields(p *Player, ps PlayerPublicState) {
	if _, ok := r.policy.rule(EntityPlayer, FieldName); ok {
		p.Name = ps.Name
	}
	if _, ok := r.policy.rule(EntityPlayer, FieldKitColor); ok {
		p.KitColor = ps.KitColor
	}
	if _, ok := r.policy.rule(EntityPlayer, FieldTeam); ok && ps.Team != "" {
		p.Team = ps.Team
	}
	if _, ok := r.policy.rule(EntityPlayer, FieldControls); ok {
		p.Controls = ps.Inputs
	}
	if _, ok := r.policy.rule(EntityPlayer, FieldCanShoot); ok {
		p.CanShoot = ps.CanShoot
	}
}

// placePosition merges one position according to its rule and reports
// whether it snapped.
func (r *Reconciler) placePosition(rule FieldRule, x, y, tx, ty *float64, hasTarget *bool, nx, ny float64) bool {
	snap := false
	switch rule.Policy {
	case SnapImmediately:
		snap = true
	case InterpolateToTarget:
		// first sighting bootstraps straight to the target
		snap = !*hasTarget
	case ThresholdSnap:
		snap = Distance(*x, *y, nx, ny) > rule.Threshold
	}
	*tx, *ty = nx, ny
	*hasTarget = true
	if snap {
		*x, *y = nx, ny
	}
	return snap
}

// applyScores adopts the authoritative score whenever it differs from the
// local one and celebrates the change. Each team whose score went up gets
// its own event; a change with no increase (a reset or correction) gets a
// single event with no team.
func (r *Reconciler) applyScores(w *World, s Scores) []Team {
	local := w.Match.Scores
	if local == s {
		return nil
	}
	var goals []Team
	if s.Red > local.Red {
		goals = append(goals, TeamRed)
	}
	if s.Blue > local.Blue {
		goals = append(goals, TeamBlue)
	}
	w.Match.Scores = s
	if len(goals) == 0 {
		r.events.Play(Event{Kind: EventGoal, X: w.Ball.X, Y: w.Ball.Y})
		return nil
	}
	for _, team := range goals {
		ev := Event{Kind: EventGoal, X: w.Ball.X, Y: w.Ball.Y, Team: team}
		if scorer := w.PlayerOnTeam(team); scorer != nil {
			ev.PlayerID = scorer.ID
		}
		r.events.Play(ev)
	}
	return goals
}

// applyEnded presents the end of the match on the not-ended -> ended edge
// only. A snapshot that is no longer ended re-arms the edge for the next
// match.
func (r *Reconciler) applyEnded(w *World, ended bool) bool {
	ms := &w.Match
	if !ended {
		if ms.Ended {
			ms.Ended = false
			ms.EndReason = EndNone
		}
		ms.Active = true
		return false
	}
	if ms.Ended {
		return false
	}
	ms.Ended = true
	ms.Active = false
	if ms.EndReason == EndNone {
		ms.EndReason = EndTimeUp
	}
	if r.presenter != nil {
		r.presenter.ShowMatchEnd(*ms)
	}
	return true
}

// Interpolate eases every rendered position a fixed fraction toward its
// target. Positions within eps of their target land on it exactly, so a
// fixed target is reached in a bounded number of frames and never
// overshot.
func Interpolate(w *World, factor, eps float64) {
	if factor <= 0 {
		return
	}
	if factor > 1 {
		factor = 1
	}
	for _, p := range w.Players() {
		if p.HasTarget {
			p.X, p.Y = easeToward(p.X, p.Y, p.TX, p.TY, factor, eps)
		}
	}
	b := &w.Ball
	if b.HasTarget {
		b.X, b.Y = easeToward(b.X, b.Y, b.TX, b.TY, factor, eps)
	}
}

func easeToward(x, y, tx, ty, factor, eps float64) (float64, float64) {
	nx := Lerp(x, tx, factor)
	ny := Lerp(y, ty, factor)
	if Distance(nx, ny, tx, ty) <= eps {
		return tx, ty
	}
	return nx, ny
}
