package txmodel

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// ClaimKind distinguishes the handful of claim-record shapes the core
// interprets structurally (spec.md §4.5: "stream, channel, collection,
// repost, support").
type ClaimKind int32

const (
	ClaimKindStream     ClaimKind = 1
	ClaimKindChannel    ClaimKind = 2
	ClaimKindCollection ClaimKind = 3
	ClaimKindRepost     ClaimKind = 4
)

// Field numbers for the claim record's wire encoding. The core only
// ever needs to read/write the fields spec.md §4.5 names; everything
// else round-trips opaquely through Extra.
const (
	fieldClaimKind          protowire.Number = 1
	fieldTitle              protowire.Number = 2
	fieldDescription        protowire.Number = 3
	fieldAuthor             protowire.Number = 4
	fieldChannelPublicKey   protowire.Number = 5
	fieldRepostClaimHash    protowire.Number = 6
	fieldSigningChannelID   protowire.Number = 7
	fieldSignature          protowire.Number = 8
)

// ClaimPayload is the claim record carried inside a claim-name/update
// output script. The core treats most of it as opaque, interpreting
// only the fields spec.md §4.5 lists; everything else is preserved
// byte-for-byte in Extra so re-serializing an unmodified claim is
// lossless.
//
// The wire format is hand-written against protowire's length-delimited
// tag/value primitives rather than generated by protoc — this
// environment has no protobuf compiler available, so there is no
// .proto schema to generate from. Using protowire directly still
// produces genuine protobuf-wire-compatible bytes; see DESIGN.md.
type ClaimPayload struct {
	Kind              ClaimKind
	Title             string
	Description       string
	Author            string
	ChannelPublicKey  []byte // present when Kind == ClaimKindChannel
	RepostClaimHash   []byte // present when Kind == ClaimKindRepost
	SigningChannelID  string // claim_id of the signing channel, if signed
	Signature         []byte // ECDSA signature, if signed
	Extra             []byte // unrecognised trailing fields, preserved verbatim
}

// Marshal encodes the payload to its wire bytes.
func (c *ClaimPayload) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldClaimKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(c.Kind))
	if c.Title != "" {
		b = appendBytesField(b, fieldTitle, []byte(c.Title))
	}
	if c.Description != "" {
		b = appendBytesField(b, fieldDescription, []byte(c.Description))
	}
	if c.Author != "" {
		b = appendBytesField(b, fieldAuthor, []byte(c.Author))
	}
	if len(c.ChannelPublicKey) > 0 {
		b = appendBytesField(b, fieldChannelPublicKey, c.ChannelPublicKey)
	}
	if len(c.RepostClaimHash) > 0 {
		b = appendBytesField(b, fieldRepostClaimHash, c.RepostClaimHash)
	}
	if c.SigningChannelID != "" {
		b = appendBytesField(b, fieldSigningChannelID, []byte(c.SigningChannelID))
	}
	if len(c.Signature) > 0 {
		b = appendBytesField(b, fieldSignature, c.Signature)
	}
	b = append(b, c.Extra...)
	return b
}

// MarshalWithoutSignature renders the payload with the signature field
// omitted, the form that gets hashed for signing/verification (spec.md
// §4.5 "serialised_claim_without_signature").
func (c *ClaimPayload) MarshalWithoutSignature() []byte {
	clone := *c
	clone.Signature = nil
	return clone.Marshal()
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// UnmarshalClaimPayload decodes a claim record, preserving any
// unrecognised fields verbatim in Extra.
func UnmarshalClaimPayload(data []byte) (*ClaimPayload, error) {
	c := &ClaimPayload{}
	b := data
	for len(b) > 0 {
		recordStart := len(data) - len(b)
		num, typ, tagLen := protowire.ConsumeTag(b)
		if tagLen < 0 {
			return nil, protowire.ParseError(tagLen)
		}
		b = b[tagLen:]

		switch {
		case num == fieldClaimKind && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			c.Kind = ClaimKind(v)
			b = b[n:]
		case num == fieldTitle && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			c.Title = string(v)
			b = b[n:]
		case num == fieldDescription && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			c.Description = string(v)
			b = b[n:]
		case num == fieldAuthor && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			c.Author = string(v)
			b = b[n:]
		case num == fieldChannelPublicKey && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			c.ChannelPublicKey = append([]byte(nil), v...)
			b = b[n:]
		case num == fieldRepostClaimHash && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			c.RepostClaimHash = append([]byte(nil), v...)
			b = b[n:]
		case num == fieldSigningChannelID && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			c.SigningChannelID = string(v)
			b = b[n:]
		case num == fieldSignature && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			c.Signature = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
			recordEnd := len(data) - len(b)
			c.Extra = append(c.Extra, data[recordStart:recordEnd]...)
		}
	}
	return c, nil
}

// SupportPayload is the optional record carried by a data-bearing
// support output (spec.md §4.5 "pay_support_data_pubkey_hash"). A
// support may itself be signed by a channel, the same way a claim can
// be, so it counts toward the channel's signed_support_count (spec.md
// §4.7 "Aggregates per-channel counts").
type SupportPayload struct {
	Emoji            string
	Comment          string
	SigningChannelID string
	Signature        []byte
}

const (
	fieldSupportEmoji            protowire.Number = 1
	fieldSupportComment          protowire.Number = 2
	fieldSupportSigningChannelID protowire.Number = 3
	fieldSupportSignature        protowire.Number = 4
)

// Marshal encodes the support payload to its wire bytes.
func (s *SupportPayload) Marshal() []byte {
	var b []byte
	if s.Emoji != "" {
		b = appendBytesField(b, fieldSupportEmoji, []byte(s.Emoji))
	}
	if s.Comment != "" {
		b = appendBytesField(b, fieldSupportComment, []byte(s.Comment))
	}
	if s.SigningChannelID != "" {
		b = appendBytesField(b, fieldSupportSigningChannelID, []byte(s.SigningChannelID))
	}
	if len(s.Signature) > 0 {
		b = appendBytesField(b, fieldSupportSignature, s.Signature)
	}
	return b
}

// MarshalWithoutSignature renders the support with its signature field
// omitted, the form that gets hashed for signing/verification.
func (s *SupportPayload) MarshalWithoutSignature() []byte {
	clone := *s
	clone.Signature = nil
	return clone.Marshal()
}

// UnmarshalSupportPayload decodes a support payload.
func UnmarshalSupportPayload(data []byte) (*SupportPayload, error) {
	s := &SupportPayload{}
	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == fieldSupportEmoji && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			s.Emoji = string(v)
			b = b[n:]
		case num == fieldSupportComment && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			s.Comment = string(v)
			b = b[n:]
		case num == fieldSupportSigningChannelID && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			s.SigningChannelID = string(v)
			b = b[n:]
		case num == fieldSupportSignature && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			s.Signature = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return s, nil
}
