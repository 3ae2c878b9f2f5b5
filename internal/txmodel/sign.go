package txmodel

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Signer is the signing surface a channel key provides; both
// bip32.PrivateKey and bip32.LeafKey satisfy it.
type Signer interface {
	Sign(hash []byte) (*ecdsa.Signature, error)
}

// Verifier is the verification surface a channel's public key
// provides.
type Verifier interface {
	Verify(hash []byte, sig *ecdsa.Signature) (bool, error)
}

// SignClaim signs a claim payload on behalf of a channel and returns
// the payload with its Signature field populated (spec.md §4.5
// "Signing").
func SignClaim(signer Signer, firstInputTxID Outpoint, claimHash []byte, claim *ClaimPayload, signingChannelID string) (*ClaimPayload, error) {
	claim.SigningChannelID = signingChannelID
	digest := SigningHash(firstInputTxID.TxID, claimHash, claim.MarshalWithoutSignature())
	sig, err := signer.Sign(digest[:])
	if err != nil {
		return nil, err
	}
	claim.Signature = sig.Serialize()
	return claim, nil
}

// VerifyClaim checks a signed claim payload's signature against the
// signing channel's current public key (spec.md §4.5/§4.7 "Re-validates
// signatures").
func VerifyClaim(verifier Verifier, firstInputTxID Outpoint, claimHash []byte, claim *ClaimPayload) (bool, error) {
	if len(claim.Signature) == 0 {
		return false, nil
	}
	sig, err := ecdsa.ParseDERSignature(claim.Signature)
	if err != nil {
		return false, nil
	}
	digest := SigningHash(firstInputTxID.TxID, claimHash, claim.MarshalWithoutSignature())
	return verifier.Verify(digest[:], sig)
}

// SignSupport signs a support payload on behalf of a channel, mirroring
// SignClaim (spec.md §4.7 "Aggregates per-channel counts": supports can
// be signed the same way claims are).
func SignSupport(signer Signer, firstInputTxID Outpoint, claimHash []byte, support *SupportPayload, signingChannelID string) (*SupportPayload, error) {
	support.SigningChannelID = signingChannelID
	digest := SigningHash(firstInputTxID.TxID, claimHash, support.MarshalWithoutSignature())
	sig, err := signer.Sign(digest[:])
	if err != nil {
		return nil, err
	}
	support.Signature = sig.Serialize()
	return support, nil
}

// VerifySupport checks a signed support payload's signature against the
// signing channel's current public key.
func VerifySupport(verifier Verifier, firstInputTxID Outpoint, claimHash []byte, support *SupportPayload) (bool, error) {
	if len(support.Signature) == 0 {
		return false, nil
	}
	sig, err := ecdsa.ParseDERSignature(support.Signature)
	if err != nil {
		return false, nil
	}
	digest := SigningHash(firstInputTxID.TxID, claimHash, support.MarshalWithoutSignature())
	return verifier.Verify(digest[:], sig)
}
