// Package policy classifies signable payloads by their leading magic
// byte and extracts the (level, round) coordinates the watermark store
// needs, following the Tenderbake wire layouts described in spec.md
// §4.3. Field offsets are grounded on the teacher's
// keychain.DecodeAndValidateSignPayload.
package policy

import (
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/blake2b"
)

// Class identifies the operation class of a classified payload.
type Class int

const (
	ClassRejected Class = iota
	ClassBlock
	ClassPreattestation
	ClassAttestation
)

func (c Class) String() string {
	switch c {
	case ClassBlock:
		return "block"
	case ClassPreattestation:
		return "preattestation"
	case ClassAttestation:
		return "attestation"
	default:
		return "rejected"
	}
}

const (
	MagicBlock          byte = 0x11
	MagicPreattestation byte = 0x12
	MagicAttestation    byte = 0x13
)

var ErrMalformedPayload = errors.New("policy: payload too short for its declared class")

// Result is the outcome of classifying a payload.
type Result struct {
	Class     Class
	Level     uint32
	Round     uint32
	BlockHash []byte // 32 bytes, set only for ClassBlock
	MagicByte byte
}

// AllowedMagicBytes is the default permitted set; config may restrict
// it further but never expand it beyond what this package recognizes.
var AllowedMagicBytes = map[byte]bool{
	MagicBlock:          true,
	MagicPreattestation: true,
	MagicAttestation:    true,
}

// Classify inspects payload's leading magic byte and extracts the
// watermark coordinates for the recognized operation classes. Any
// other leading byte yields ClassRejected (not an error): the caller
// decides how to surface rejection, matching spec.md §4.3's contract
// that Rejected is a value in the result space, while a payload that IS
// a recognized class but too short to parse is a MalformedPayload
// error.
func Classify(payload []byte, allowed map[byte]bool) (Result, error) {
	if len(payload) < 1 {
		return Result{}, ErrMalformedPayload
	}

	magic := payload[0]
	if allowed == nil {
		allowed = AllowedMagicBytes
	}
	if !allowed[magic] {
		return Result{Class: ClassRejected, MagicByte: magic}, nil
	}

	switch magic {
	case MagicBlock:
		return classifyBlock(payload)
	case MagicPreattestation:
		return classifyConsensusOp(payload, ClassPreattestation)
	case MagicAttestation:
		return classifyConsensusOp(payload, ClassAttestation)
	default:
		return Result{Class: ClassRejected, MagicByte: magic}, nil
	}
}

// Tenderbake block header layout (after the magic byte):
//
//	chain_id(4) level(4) proto(1) predecessor(32) timestamp(8)
//	validation_pass(1) operations_hash(32) fitness_len(4) fitness...
//
// round is the last 4-byte big-endian word of the fitness blob.
func classifyBlock(payload []byte) (Result, error) {
	const (
		levelOff   = 1 + 4
		fitnessOff = 1 + 4 + 4 + 1 + 32 + 8 + 1 + 32
		minLen     = fitnessOff + 4
	)
	if len(payload) < minLen {
		return Result{}, ErrMalformedPayload
	}

	level := binary.BigEndian.Uint32(payload[levelOff:])
	fitnessLen := binary.BigEndian.Uint32(payload[fitnessOff:])

	roundOff := fitnessOff + int(fitnessLen)
	if roundOff+4 > len(payload) {
		return Result{}, ErrMalformedPayload
	}
	round := binary.BigEndian.Uint32(payload[roundOff:])

	h := blake2b.Sum256(payload[1:])

	return Result{
		Class:     ClassBlock,
		Level:     level,
		Round:     round,
		BlockHash: h[:],
		MagicByte: payload[0],
	}, nil
}

// Tenderbake preattestation/attestation layout (after the magic byte):
//
//	chain_id(4) branch(32) content_tag(1) level(4) round(4) ...
func classifyConsensusOp(payload []byte, class Class) (Result, error) {
	const (
		levelOff = 1 + 4 + 32 + 1
		roundOff = levelOff + 4
		minLen   = roundOff + 4
	)
	if len(payload) < minLen {
		return Result{}, ErrMalformedPayload
	}

	level := binary.BigEndian.Uint32(payload[levelOff:])
	round := binary.BigEndian.Uint32(payload[roundOff:])

	return Result{
		Class:     class,
		Level:     level,
		Round:     round,
		MagicByte: payload[0],
	}, nil
}
