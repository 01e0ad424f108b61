package protocol

// RequestTag identifies the operation a request frame carries (spec.md §6).
type RequestTag byte

const (
	TagSign                        RequestTag = 0x00
	TagPublicKey                   RequestTag = 0x01
	TagAuthorizedKeys              RequestTag = 0x02
	TagDeterministicNonce          RequestTag = 0x03
	TagDeterministicNonceHash      RequestTag = 0x04
	TagSupportsDeterministicNonces RequestTag = 0x05
	TagKnownKeys                   RequestTag = 0x06
	TagBlsProveRequest             RequestTag = 0x07
)

// ResultTag is the first byte of every response frame.
type ResultTag byte

const (
	ResultOk  ResultTag = 0x00
	ResultErr ResultTag = 0x01
)

// pkhOuterTag identifies the curve family a pkh_enc union carries. This
// core only serves BLS (0x03); the others are recognized on the wire
// but rejected with UnsupportedCurve (spec.md §6).
type pkhOuterTag byte

const (
	pkhOuterEd25519   pkhOuterTag = 0x00
	pkhOuterSecp256k1 pkhOuterTag = 0x01
	pkhOuterP256      pkhOuterTag = 0x02
	pkhOuterBLS       pkhOuterTag = 0x03
)

const (
	maxFrameLen = 65535
	pkhLen      = 20
)
