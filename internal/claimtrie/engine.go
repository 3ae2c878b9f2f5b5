package claimtrie

import "sort"

// NameState is the claimtrie's per-name working set: every live claim
// and its supports, plus which claim_id currently controls the name.
type NameState struct {
	Name        string
	Claims      map[string]*Claim // claim_id -> claim
	Supports    map[string][]*Support
	Controlling string // claim_id, "" if the name has no controlling claim
}

// Engine holds every name's trie state and the schedules needed to
// revisit a name without rescanning the whole trie every block (spec.md
// §4.8 "for every name with pending activations or support changes").
type Engine struct {
	names map[string]*NameState

	// activateAt[h][name] marks that some claim or support on name has
	// ActivationHeight == h and has not yet been folded into an
	// arbitration pass.
	activateAt map[int32]map[string]bool
	// expireAt[h][name] marks that some claim or support on name has
	// ExpirationHeight() == h, so the name must be re-arbitrated even if
	// nothing new touched it this block.
	expireAt map[int32]map[string]bool
}

// New constructs an empty claimtrie engine.
func New() *Engine {
	return &Engine{
		names:      make(map[string]*NameState),
		activateAt: make(map[int32]map[string]bool),
		expireAt:   make(map[int32]map[string]bool),
	}
}

func (e *Engine) nameState(name string) *NameState {
	ns, ok := e.names[name]
	if !ok {
		ns = &NameState{Name: name, Claims: make(map[string]*Claim), Supports: make(map[string][]*Support)}
		e.names[name] = ns
	}
	return ns
}

func (e *Engine) scheduleActivation(name string, height int32) {
	if e.activateAt[height] == nil {
		e.activateAt[height] = make(map[string]bool)
	}
	e.activateAt[height][name] = true
}

func (e *Engine) scheduleExpiration(name string, height int32) {
	if e.expireAt[height] == nil {
		e.expireAt[height] = make(map[string]bool)
	}
	e.expireAt[height][name] = true
}

// InsertClaim adds a newly-discovered claim, computing its
// ActivationHeight against the name's current controlling claim
// (spec.md §4.8 "Activation delay"). The caller is responsible for
// collapsing same-block create/update/abandon sequences on one
// claim_id to their net effect before calling this (spec.md §4.8
// "Same-height creates, updates, and abandons").
func (e *Engine) InsertClaim(c Claim) {
	ns := e.nameState(c.Name)
	control, hasControl := ns.Claims[ns.Controlling], ns.Controlling != ""
	controlHeight := int32(0)
	if hasControl {
		controlHeight = control.TakeoverHeight
	}
	c.ActivationHeight = c.Height + ActivationDelay(c.Height, controlHeight, hasControl)
	ns.Claims[c.ClaimID] = &c

	if c.ActivationHeight > c.Height {
		e.scheduleActivation(c.Name, c.ActivationHeight)
	}
	e.scheduleExpiration(c.Name, c.ExpirationHeight())
}

// UpdateClaim replaces an existing claim's amount/height in place,
// without touching its ActivationHeight or TakeoverHeight — an update
// is not a new entry into the trie (spec.md §4.7 "Applies updates").
func (e *Engine) UpdateClaim(name, claimID string, amount int64, height int32) {
	ns := e.nameState(name)
	c, ok := ns.Claims[claimID]
	if !ok {
		return
	}
	c.Amount = amount
	c.Height = height
	e.scheduleExpiration(name, c.ExpirationHeight())
}

// AbandonClaim marks a claim abandoned; it stops counting toward
// effective amount and candidacy on its next arbitration pass, but the
// record itself is retained (spec.md §4.7 "without removing history").
func (e *Engine) AbandonClaim(name, claimID string) {
	ns := e.nameState(name)
	if c, ok := ns.Claims[claimID]; ok {
		c.Abandoned = true
	}
}

// InsertSupport adds a support, computing its activation exactly the
// way InsertClaim computes a claim's: against the takeover height of
// the name's current controlling claim, or immediately if the name has
// no controller. The supported claim's own activation state is not
// consulted.
func (e *Engine) InsertSupport(s Support, name string) {
	ns := e.nameState(name)
	control, hasControl := ns.Claims[ns.Controlling], ns.Controlling != ""
	controlHeight := int32(0)
	if hasControl {
		controlHeight = control.TakeoverHeight
	}
	s.ActivationHeight = s.Height + ActivationDelay(s.Height, controlHeight, hasControl)
	ns.Supports[s.ClaimID] = append(ns.Supports[s.ClaimID], &s)

	if s.ActivationHeight > s.Height {
		e.scheduleActivation(name, s.ActivationHeight)
	}
	e.scheduleExpiration(name, s.ExpirationHeight())
}

// AbandonSupport marks all supports a transaction contributed toward
// claimID abandoned. Supports aren't separately addressable by a stable
// id in this model (spec.md only requires tracking their amount and
// activation), so callers identify them by claim_id and height.
func (e *Engine) AbandonSupport(name, claimID string, height int32) {
	ns := e.nameState(name)
	for _, s := range ns.Supports[claimID] {
		if s.Height == height {
			s.Abandoned = true
		}
	}
}

// EffectiveAmount is a claim's own amount plus every non-abandoned,
// currently-active support targeting it (spec.md §4.8 "Effective
// amount").
func (ns *NameState) EffectiveAmount(claimID string, height int32) int64 {
	c, ok := ns.Claims[claimID]
	if !ok {
		return 0
	}
	total := c.Amount
	for _, s := range ns.Supports[claimID] {
		if s.Abandoned || s.ActivationHeight > height || s.ExpirationHeight() <= height {
			continue
		}
		total += s.Amount
	}
	return total
}

// candidates returns every claim eligible to control the name at
// height: not abandoned, activated, not yet expired.
func (ns *NameState) candidates(height int32) []*Claim {
	var out []*Claim
	for _, c := range ns.Claims {
		if c.Abandoned || c.ActivationHeight > height || c.ExpirationHeight() <= height {
			continue
		}
		out = append(out, c)
	}
	return out
}

// TakeoverResult reports whether arbitrating a name at a height changed
// its controlling claim.
type TakeoverResult struct {
	Name               string
	TookOver           bool
	NewController      string // claim_id, "" if the name now has no controller at all
	PreviousController string
}

// ProcessHeight re-arbitrates every name that has a pending activation,
// a pending expiration, or was directly touched by a transaction at
// height (spec.md §4.8 "Takeover"). It must be called once per block,
// in increasing height order, for its activation/expiration schedules
// to stay correct. It returns the takeovers that occurred, plus every
// name it arbitrated (whether or not the controller changed), so a
// caller refreshing derived state knows which names to re-read even
// when a scheduled activation or expiration produced no takeover.
func (e *Engine) ProcessHeight(height int32, touchedNames []string) ([]TakeoverResult, []string) {
	names := make(map[string]bool)
	for _, n := range touchedNames {
		names[n] = true
	}
	for n := range e.activateAt[height] {
		names[n] = true
	}
	for n := range e.expireAt[height] {
		names[n] = true
	}
	delete(e.activateAt, height)
	delete(e.expireAt, height)

	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	var results []TakeoverResult
	for _, name := range sorted {
		if r, changed := e.arbitrate(name, height); changed {
			results = append(results, r)
		}
	}
	return results, sorted
}

// arbitrate selects the winning candidate for name at height, records
// a takeover if it differs from the current controller, and then
// re-arbitrates name as many times as needed if the takeover promoted
// a still-pending claim or support straight to active: that promotion
// can hand the name to a different, higher-staked candidate within the
// same block, which must itself be discovered before ProcessHeight
// moves to the next name (spec.md §4.8 "Takeover" steps 1-4; a
// cascading takeover across the same name, per spec.md §8 scenario 1).
func (e *Engine) arbitrate(name string, height int32) (TakeoverResult, bool) {
	ns := e.nameState(name)
	original := ns.Controlling

	var last TakeoverResult
	var anyChange bool
	for {
		r, changed := e.arbitrateOnce(ns, name, height)
		if !changed {
			break
		}
		anyChange = true
		last = r
		if r.NewController == "" {
			break // no controller left, nothing to recompute pending claims against
		}
		if !e.recomputePendingActivations(ns, height) {
			break
		}
	}
	if !anyChange {
		return TakeoverResult{}, false
	}
	last.PreviousController = original
	return last, true
}

// arbitrateOnce picks the single best candidate for name at height
// against the engine's current state, with no cascading.
func (e *Engine) arbitrateOnce(ns *NameState, name string, height int32) (TakeoverResult, bool) {
	candidates := ns.candidates(height)

	var winner *Claim
	var winnerAmount int64
	for _, c := range candidates {
		amt := ns.EffectiveAmount(c.ClaimID, height)
		if winner == nil || isBetterCandidate(c, amt, winner, winnerAmount) {
			winner, winnerAmount = c, amt
		}
	}

	previous := ns.Controlling
	if winner == nil {
		if previous == "" {
			return TakeoverResult{}, false
		}
		ns.Controlling = ""
		return TakeoverResult{Name: name, TookOver: true, PreviousController: previous}, true
	}

	if winner.ClaimID == previous {
		return TakeoverResult{}, false
	}

	winner.TakeoverHeight = height
	ns.Controlling = winner.ClaimID
	return TakeoverResult{Name: name, TookOver: true, NewController: winner.ClaimID, PreviousController: previous}, true
}

// isBetterCandidate implements the tie-break order: largest effective
// amount, then earliest height, then transaction order within a block
// (spec.md §4.8 "Takeover" step 2).
func isBetterCandidate(c *Claim, amount int64, best *Claim, bestAmount int64) bool {
	if amount != bestAmount {
		return amount > bestAmount
	}
	if c.Height != best.Height {
		return c.Height < best.Height
	}
	return c.TxPosition < best.TxPosition
}

// recomputePendingActivations re-derives ActivationHeight for every
// claim and support on name that has not yet activated, against the
// new takeover height (spec.md §4.8 "Any still-pending claim on the
// same name has its activation_height recomputed against the new
// takeover height"). It reports whether any claim or support was
// thereby promoted straight to active (newActivation <= takeoverHeight),
// which means the name's candidate set changed and must be
// re-arbitrated before this block's result is final.
func (e *Engine) recomputePendingActivations(ns *NameState, takeoverHeight int32) bool {
	promoted := false
	for _, c := range ns.Claims {
		if c.Abandoned || c.ClaimID == ns.Controlling {
			continue
		}
		if c.ActivationHeight <= takeoverHeight {
			continue // already active, takeovers don't retroactively delay it
		}
		newActivation := c.Height + ActivationDelay(c.Height, takeoverHeight, true)
		c.ActivationHeight = newActivation
		if newActivation > takeoverHeight {
			e.scheduleActivation(ns.Name, newActivation)
		} else {
			promoted = true
		}
	}
	for _, supports := range ns.Supports {
		for _, s := range supports {
			if s.Abandoned || s.ActivationHeight <= takeoverHeight {
				continue
			}
			newActivation := s.Height + ActivationDelay(s.Height, takeoverHeight, true)
			s.ActivationHeight = newActivation
			if newActivation > takeoverHeight {
				e.scheduleActivation(ns.Name, newActivation)
			} else {
				promoted = true
			}
		}
	}
	return promoted
}

// EffectiveAmount exposes NameState.EffectiveAmount for a name known to
// the engine, so callers outside this package (internal/claimindex) can
// report a claim's staked support total without reaching into the
// engine's internal name map.
func (e *Engine) EffectiveAmount(name, claimID string, height int32) int64 {
	ns, ok := e.names[name]
	if !ok {
		return 0
	}
	return ns.EffectiveAmount(claimID, height)
}

// Controlling returns the claim_id currently controlling name, or ""
// if none.
func (e *Engine) Controlling(name string) string {
	ns, ok := e.names[name]
	if !ok {
		return ""
	}
	return ns.Controlling
}

// Claim looks up one claim by name and claim_id.
func (e *Engine) Claim(name, claimID string) (*Claim, bool) {
	ns, ok := e.names[name]
	if !ok {
		return nil, false
	}
	c, ok := ns.Claims[claimID]
	return c, ok
}
