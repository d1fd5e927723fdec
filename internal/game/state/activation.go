package state

// Action is an activation action an operative can take.
type Action string

const (
	ActionReposition  Action = "reposition"
	ActionDash        Action = "dash"
	ActionFallBack    Action = "fall_back"
	ActionCharge      Action = "charge"
	ActionShoot       Action = "shoot"
	ActionFight       Action = "fight"
	ActionPickUp      Action = "pick_up"
	ActionPlaceMarker Action = "place_marker"
	ActionGuard       Action = "guard"
)

var actionCosts = map[Action]int{
	ActionReposition:  1,
	ActionDash:        1,
	ActionFallBack:    2,
	ActionCharge:      1,
	ActionShoot:       1,
	ActionFight:       1,
	ActionPickUp:      1,
	ActionPlaceMarker: 1,
	ActionGuard:       1,
}

var actionExclusions = map[Action][]Action{
	ActionReposition: {ActionCharge, ActionFallBack},
	ActionCharge:     {ActionReposition, ActionFallBack},
	ActionFallBack:   {ActionReposition, ActionCharge},
}

// Known reports whether a is in the action catalogue.
func (a Action) Known() bool {
	_, ok := actionCosts[a]
	return ok
}

// Cost returns the action point cost of a, or 0 for an unknown action.
func (a Action) Cost() int { return actionCosts[a] }

// Excludes returns the actions that become unavailable once a is taken,
// including a itself.
func (a Action) Excludes() []Action {
	return append([]Action{a}, actionExclusions[a]...)
}

// Moves reports whether a is a movement action for Heavy weapon purposes.
func (a Action) Moves() bool {
	switch a {
	case ActionReposition, ActionDash, ActionFallBack, ActionCharge:
		return true
	}
	return false
}

// Activation is the record of one operative's activation.
//
// Invariant: for a non-counteract activation APSpent never exceeds the
// operative's starting AP; a counteract activation never spends AP and takes
// at most AllowedActions actions.
type Activation struct {
	OperativeID    string
	Owner          PlayerID
	StartingAP     int
	APSpent        int
	Actions        []Action
	Unavailable    map[Action]bool
	OrderChosen    bool
	Counteract     bool
	AllowedActions int

	// AttacksDeclared counts attacks started against shoot or fight actions.
	AttacksDeclared int
}

// NewActivation returns the record for a fresh activation of op.
func NewActivation(op *Operative, counteract bool) *Activation {
	a := &Activation{
		OperativeID: op.ID,
		Owner:       op.Owner,
		StartingAP:  op.StartingAP(),
		Unavailable: make(map[Action]bool),
		Counteract:  counteract,
	}
	if counteract {
		a.AllowedActions = 1
		// The counteracting operative keeps its existing order.
		a.OrderChosen = true
	}
	return a
}

// Available reports whether action can still be taken this activation.
func (a *Activation) Available(action Action) bool {
	if a.Unavailable[action] {
		return false
	}
	if a.Counteract && len(a.Actions) >= a.AllowedActions {
		return false
	}
	return true
}

// Mark records that action was taken and darkens its exclusions.
func (a *Activation) Mark(action Action) {
	a.Actions = append(a.Actions, action)
	for _, x := range action.Excludes() {
		a.Unavailable[x] = true
	}
	if !a.Counteract {
		a.APSpent += action.Cost()
	}
}

// Moved reports whether a movement action was taken this activation.
func (a *Activation) Moved() bool {
	for _, x := range a.Actions {
		if x.Moves() {
			return true
		}
	}
	return false
}

// Took reports whether action was taken this activation.
func (a *Activation) Took(action Action) bool {
	for _, x := range a.Actions {
		if x == action {
			return true
		}
	}
	return false
}

// AttackActions counts shoot and fight actions taken this activation.
func (a *Activation) AttackActions() int {
	n := 0
	for _, x := range a.Actions {
		if x == ActionShoot || x == ActionFight {
			n++
		}
	}
	return n
}

// Clone returns an independent copy of a.
func (a *Activation) Clone() *Activation {
	if a == nil {
		return nil
	}
	out := *a
	out.Actions = append([]Action(nil), a.Actions...)
	out.Unavailable = cloneMap(a.Unavailable)
	return &out
}

// FirefightState is the firefight sub-state.
type FirefightState struct {
	ActivePlayer      PlayerID
	ActiveOperativeID string
	OrderChosen       bool
	AwaitingOrder     bool
	AwaitingActions   bool
	Activation        *Activation
}

// Clone returns an independent copy of f.
func (f FirefightState) Clone() FirefightState {
	f.Activation = f.Activation.Clone()
	return f
}

// ClearActive drops the active operative and its activation record.
func (f *FirefightState) ClearActive() {
	f.ActiveOperativeID = ""
	f.OrderChosen = false
	f.AwaitingOrder = false
	f.AwaitingActions = false
	f.Activation = nil
}
