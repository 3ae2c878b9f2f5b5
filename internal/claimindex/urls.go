package claimindex

// assignShortPrefixes picks the shortest common hex-prefix length for
// a batch of claims newly confirmed on name at the same height, such
// that every batch claim's prefix is unique among the batch and unique
// against every earlier-confirmed claim_id on the name, truncated to
// the same length (spec.md §4.7 "Short URL"). It returns
// claim_id -> prefix.
//
// Earlier claims' own already-assigned (possibly shorter) prefixes are
// never revisited — comparison uses their full claim_id so a new claim
// extends only as far as needed to stop matching an existing claim_id,
// not to out-run every length an old claim ever held
// ("earlier-block claims that already occupy shorter prefixes keep
// them and later claims extend as needed").
func assignShortPrefixes(batch []*Claim, earlierClaimIDs []string) map[string]string {
	if len(batch) == 0 {
		return nil
	}
	maxLen := 0
	for _, c := range batch {
		if len(c.ClaimID) > maxLen {
			maxLen = len(c.ClaimID)
		}
	}

	for length := 1; length <= maxLen; length++ {
		prefixes := make(map[string]string, len(batch)) // claimID -> prefix at this length
		seen := make(map[string]bool, len(batch))
		ok := true
		for _, c := range batch {
			p := truncate(c.ClaimID, length)
			if seen[p] {
				ok = false
				break
			}
			seen[p] = true
			prefixes[c.ClaimID] = p
		}
		if ok {
			for _, p := range prefixes {
				for _, id := range earlierClaimIDs {
					if p == truncate(id, length) {
						ok = false
						break
					}
				}
				if !ok {
					break
				}
			}
		}
		if ok {
			return prefixes
		}
	}

	// Fell through without a collision-free length shorter than every
	// claim_id in full: fall back to full claim_ids, which can never
	// collide with each other or an earlier claim.
	out := make(map[string]string, len(batch))
	for _, c := range batch {
		out[c.ClaimID] = c.ClaimID
	}
	return out
}

func truncate(s string, n int) string {
	if n >= len(s) {
		return s
	}
	return s[:n]
}

// canonicalURL builds the canonical URL for a claim signed by channel,
// or "" if the signature isn't currently valid or the channel has no
// short URL of its own yet (spec.md §4.7 "Canonical URL").
func canonicalURL(claimShortURL string, channel *Channel, signatureValid bool) string {
	if !signatureValid || channel == nil || channel.ShortURL == "" {
		return ""
	}
	return channel.ShortURL + "/" + claimShortURL
}
