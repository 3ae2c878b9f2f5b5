package claimindex

import (
	"context"
	"fmt"
	"sort"

	"github.com/lbryio/lbcwallet/internal/claimtrie"
	"github.com/lbryio/lbcwallet/internal/txmodel"
)

// Indexer drives the claimtrie engine from discovered chain events and
// maintains the indexed claim/support/channel records (spec.md §4.7).
type Indexer struct {
	engine *claimtrie.Engine
	store  Store
	keys   KeyResolver
}

// New constructs an Indexer over an existing claimtrie engine.
func New(engine *claimtrie.Engine, store Store, keys KeyResolver) *Indexer {
	return &Indexer{engine: engine, store: store, keys: keys}
}

// ProcessBatch applies every event in [fromHeight, toHeight] to the
// index, height by height, in the five steps spec.md §4.7 lists:
// insert, update, abandon, signature re-validation, and per-channel
// count aggregation — then drives the claimtrie engine's takeover
// arbitration for every name touched.
func (ix *Indexer) ProcessBatch(ctx context.Context, fromHeight, toHeight int32, events []ClaimEvent) error {
	byHeight := make(map[int32][]ClaimEvent)
	for _, ev := range events {
		if ev.Height < fromHeight || ev.Height > toHeight {
			continue
		}
		byHeight[ev.Height] = append(byHeight[ev.Height], ev)
	}

	for h := fromHeight; h <= toHeight; h++ {
		if err := ix.processHeight(ctx, h, byHeight[h]); err != nil {
			return fmt.Errorf("claimindex: process height %d: %w", h, err)
		}
	}
	return nil
}

func (ix *Indexer) processHeight(ctx context.Context, height int32, events []ClaimEvent) error {
	claimEvents, supportEvents := collapseClaimEvents(events)
	touched := make(map[string]bool)

	for _, ev := range claimEvents {
		if err := ix.applyClaimEvent(ctx, height, ev); err != nil {
			return err
		}
		touched[ev.Name] = true
	}
	for _, ev := range supportEvents {
		if err := ix.applySupportEvent(ctx, height, ev); err != nil {
			return err
		}
		touched[ev.Name] = true
	}

	names := make([]string, 0, len(touched))
	for n := range touched {
		names = append(names, n)
	}
	sort.Strings(names)
	results, arbitrated := ix.engine.ProcessHeight(height, names)

	for _, r := range results {
		if r.TookOver && r.NewController != "" {
			if err := ix.store.PutTakeover(ctx, r.Name, r.NewController, height); err != nil {
				return err
			}
		}
	}

	// arbitrated is every name the engine actually arbitrated this height
	// (names, plus any name with a scheduled activation or expiration),
	// a superset of names: a name can have a scheduled activation,
	// expiration, or cascading takeover with no event of its own at this
	// height, and its indexed is_controlling/activation_height/
	// staked_support_amount columns would otherwise go stale.
	for _, name := range arbitrated {
		if err := ix.refreshNameState(ctx, name, height); err != nil {
			return err
		}
	}
	return nil
}

// refreshNameState copies internal/claimtrie's per-claim activation,
// expiration, controlling, and staked-support-amount state back onto
// every indexed (non-abandoned) claim on name, after ProcessHeight has
// arbitrated it (spec.md §3's claim tuple: activation_height,
// expiration_height, is_controlling, staked_support_amount).
func (ix *Indexer) refreshNameState(ctx context.Context, name string, height int32) error {
	claims, err := ix.store.ClaimsOnName(ctx, name)
	if err != nil {
		return err
	}
	controlling := ix.engine.Controlling(name)
	for _, c := range claims {
		tc, ok := ix.engine.Claim(name, c.ClaimID)
		if !ok {
			continue
		}
		c.ActivationHeight = tc.ActivationHeight
		c.ExpirationHeight = tc.ExpirationHeight()
		c.IsControlling = controlling != "" && c.ClaimID == controlling
		c.StakedAmount = c.Amount
		c.StakedSupportAmount = ix.engine.EffectiveAmount(name, c.ClaimID, height) - c.Amount
		if err := ix.store.PutClaim(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// collapseClaimEvents reduces same-height claim events on one claim_id
// to their net effect: abandonment beats any prior create/update, and
// otherwise the last event in transaction order wins (spec.md §4.8
// "Same-height creates, updates, and abandons"). Support events are
// never collapsed — each support output is its own entry.
func collapseClaimEvents(events []ClaimEvent) (claims []ClaimEvent, supports []ClaimEvent) {
	sorted := append([]ClaimEvent(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TxPosition < sorted[j].TxPosition })

	byClaim := make(map[string]ClaimEvent)
	order := make([]string, 0)
	for _, ev := range sorted {
		switch ev.Kind {
		case EventCreateClaim, EventUpdateClaim:
			if prev, ok := byClaim[ev.ClaimID]; !ok || prev.Kind != EventAbandonClaim {
				if _, first := byClaim[ev.ClaimID]; !first {
					order = append(order, ev.ClaimID)
				}
				byClaim[ev.ClaimID] = ev
			}
		case EventAbandonClaim:
			if _, first := byClaim[ev.ClaimID]; !first {
				order = append(order, ev.ClaimID)
			}
			byClaim[ev.ClaimID] = ev
		case EventSupport, EventAbandonSupport:
			supports = append(supports, ev)
		}
	}
	for _, id := range order {
		claims = append(claims, byClaim[id])
	}
	return claims, supports
}

func (ix *Indexer) applyClaimEvent(ctx context.Context, height int32, ev ClaimEvent) error {
	switch ev.Kind {
	case EventCreateClaim:
		valid, err := ix.verifyClaimPayload(ctx, ev.FirstInputTxID, ev.ClaimHash, ev.Payload)
		if err != nil {
			return err
		}
		rec := &Claim{
			ClaimID:          ev.ClaimID,
			Name:             ev.Name,
			Height:           height,
			TxPosition:       ev.TxPosition,
			Amount:           ev.Amount,
			Payload:          ev.Payload,
			FirstInputTxID:   ev.FirstInputTxID,
			ClaimHash:        ev.ClaimHash,
			IsSignatureValid: valid,
			SigningChannelID: ev.Payload.SigningChannelID,
			StakedAmount:     ev.Amount,
		}
		ix.engine.InsertClaim(claimtrie.Claim{
			ClaimID: ev.ClaimID, Name: ev.Name, Amount: ev.Amount,
			Height: height, TxPosition: ev.TxPosition,
		})
		if err := ix.assignURLsOnCreate(ctx, rec); err != nil {
			return err
		}
		if err := ix.store.PutClaim(ctx, rec); err != nil {
			return err
		}
		claimsIndexedTotal.Inc()
		return ix.adjustChannelClaimCount(ctx, ev.Payload.SigningChannelID, false, valid)

	case EventUpdateClaim:
		rec, ok, err := ix.store.GetClaim(ctx, ev.ClaimID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("claimindex: update for unknown claim %s", ev.ClaimID)
		}
		wasValid, oldChannel := rec.IsSignatureValid, rec.Payload.SigningChannelID
		valid, err := ix.verifyClaimPayload(ctx, ev.FirstInputTxID, ev.ClaimHash, ev.Payload)
		if err != nil {
			return err
		}
		rec.Height = height
		rec.TxPosition = ev.TxPosition
		rec.Amount = ev.Amount
		rec.Payload = ev.Payload // short_url/canonical_url carried forward on rec, untouched here
		rec.FirstInputTxID = ev.FirstInputTxID
		rec.ClaimHash = ev.ClaimHash
		rec.IsSignatureValid = valid
		rec.SigningChannelID = ev.Payload.SigningChannelID
		rec.StakedAmount = ev.Amount
		rec.CanonicalURL = canonicalURLFor(ctx, ix.store, rec)
		ix.engine.UpdateClaim(ev.Name, ev.ClaimID, ev.Amount, height)
		if err := ix.store.PutClaim(ctx, rec); err != nil {
			return err
		}
		claimsIndexedTotal.Inc()
		if oldChannel != ev.Payload.SigningChannelID {
			if err := ix.adjustChannelClaimCount(ctx, oldChannel, wasValid, false); err != nil {
				return err
			}
			return ix.adjustChannelClaimCount(ctx, ev.Payload.SigningChannelID, false, valid)
		}
		return ix.adjustChannelClaimCount(ctx, ev.Payload.SigningChannelID, wasValid, valid)

	case EventAbandonClaim:
		rec, ok, err := ix.store.GetClaim(ctx, ev.ClaimID)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		rec.Abandoned = true
		ix.engine.AbandonClaim(ev.Name, ev.ClaimID)
		if err := ix.store.PutClaim(ctx, rec); err != nil {
			return err
		}
		if rec.Payload != nil {
			return ix.adjustChannelClaimCount(ctx, rec.Payload.SigningChannelID, rec.IsSignatureValid, false)
		}
		return nil
	}
	return fmt.Errorf("claimindex: unexpected claim event kind %d", ev.Kind)
}

func (ix *Indexer) applySupportEvent(ctx context.Context, height int32, ev ClaimEvent) error {
	switch ev.Kind {
	case EventSupport:
		var signingChannelID string
		var valid bool
		if ev.SupportPayload != nil && ev.SupportPayload.SigningChannelID != "" {
			v, err := ix.verifySupportPayload(ctx, ev.FirstInputTxID, ev.ClaimHash, ev.SupportPayload)
			if err != nil {
				return err
			}
			valid = v
			signingChannelID = ev.SupportPayload.SigningChannelID
		}
		rec := &Support{
			ClaimID: ev.ClaimID, Name: ev.Name, Height: height, TxPosition: ev.TxPosition,
			Amount: ev.Amount, Payload: ev.SupportPayload,
			SigningChannelID: signingChannelID, IsSignatureValid: valid,
		}
		ix.engine.InsertSupport(claimtrie.Support{
			ClaimID: ev.ClaimID, Amount: ev.Amount, Height: height, TxPosition: ev.TxPosition,
		}, ev.Name)
		if err := ix.store.PutSupport(ctx, rec); err != nil {
			return err
		}
		return ix.adjustChannelSupportCount(ctx, signingChannelID, false, valid)

	case EventAbandonSupport:
		rec, ok, err := ix.store.GetSupport(ctx, ev.ClaimID, ev.Height, ev.TxPosition)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		rec.Abandoned = true
		ix.engine.AbandonSupport(ev.Name, ev.ClaimID, ev.Height)
		if err := ix.store.PutSupport(ctx, rec); err != nil {
			return err
		}
		return ix.adjustChannelSupportCount(ctx, rec.SigningChannelID, rec.IsSignatureValid, false)
	}
	return fmt.Errorf("claimindex: unexpected support event kind %d", ev.Kind)
}

func (ix *Indexer) verifyClaimPayload(ctx context.Context, firstInputTxID [32]byte, claimHash []byte, payload *txmodel.ClaimPayload) (bool, error) {
	if payload.SigningChannelID == "" {
		return false, nil
	}
	channel, ok, err := ix.store.GetChannel(ctx, payload.SigningChannelID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	verifier, err := ix.keys.ChannelVerifier(ctx, channel.ClaimID, channel.PublicKeyBytes)
	if err != nil {
		return false, err
	}
	return txmodel.VerifyClaim(verifier, txmodel.Outpoint{TxID: firstInputTxID}, claimHash, payload)
}

func (ix *Indexer) verifySupportPayload(ctx context.Context, firstInputTxID [32]byte, claimHash []byte, payload *txmodel.SupportPayload) (bool, error) {
	channel, ok, err := ix.store.GetChannel(ctx, payload.SigningChannelID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	verifier, err := ix.keys.ChannelVerifier(ctx, channel.ClaimID, channel.PublicKeyBytes)
	if err != nil {
		return false, err
	}
	return txmodel.VerifySupport(verifier, txmodel.Outpoint{TxID: firstInputTxID}, claimHash, payload)
}

func (ix *Indexer) adjustChannelClaimCount(ctx context.Context, channelID string, wasValid, isValid bool) error {
	if channelID == "" || wasValid == isValid {
		return nil
	}
	channel, ok, err := ix.store.GetChannel(ctx, channelID)
	if err != nil || !ok {
		return err
	}
	if isValid {
		channel.SignedClaimCount++
	} else {
		channel.SignedClaimCount--
	}
	return ix.store.PutChannel(ctx, channel)
}

func (ix *Indexer) adjustChannelSupportCount(ctx context.Context, channelID string, wasValid, isValid bool) error {
	if channelID == "" || wasValid == isValid {
		return nil
	}
	channel, ok, err := ix.store.GetChannel(ctx, channelID)
	if err != nil || !ok {
		return err
	}
	if isValid {
		channel.SignedSupportCount++
	} else {
		channel.SignedSupportCount--
	}
	return ix.store.PutChannel(ctx, channel)
}

// assignURLsOnCreate assigns a short URL (and canonical URL, if
// applicable) to a newly created claim, respecting prefixes already
// claimed by earlier-height claims on the same name (spec.md §4.7 "URL
// assignment"). Claims already indexed on the name at the same height
// are re-assigned together with rec as one batch (and re-persisted), so
// a name with no co-confirmed siblings gets the minimal length
// immediately and a later sibling in the same block will, if needed,
// extend both to a longer common length on its own call. Claims from
// earlier heights keep their prefixes and only constrain the batch.
func (ix *Indexer) assignURLsOnCreate(ctx context.Context, rec *Claim) error {
	existing, err := ix.store.ClaimsOnName(ctx, rec.Name)
	if err != nil {
		return err
	}
	var earlierClaimIDs []string
	var sameHeight []*Claim
	for _, c := range existing {
		if c.Abandoned || c.ClaimID == rec.ClaimID {
			continue
		}
		if c.Height == rec.Height {
			sameHeight = append(sameHeight, c)
			continue
		}
		earlierClaimIDs = append(earlierClaimIDs, c.ClaimID)
	}
	batch := append(append([]*Claim(nil), sameHeight...), rec)
	prefixes := assignShortPrefixes(batch, earlierClaimIDs)
	for _, c := range batch {
		c.ShortURL = c.Name + "#" + prefixes[c.ClaimID]
		c.CanonicalURL = canonicalURLFor(ctx, ix.store, c)
		if c != rec {
			if err := ix.store.PutClaim(ctx, c); err != nil {
				return err
			}
		}
	}
	return nil
}

func canonicalURLFor(ctx context.Context, store Store, c *Claim) string {
	if c.Payload == nil || c.Payload.SigningChannelID == "" {
		return ""
	}
	channel, ok, err := store.GetChannel(ctx, c.Payload.SigningChannelID)
	if err != nil || !ok {
		return ""
	}
	return canonicalURL(c.ShortURL, channel, c.IsSignatureValid)
}
