package confidential

import (
	"encoding/hex"
	"errors"
	"fmt"

	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/suites"

	"blockjack-backend/internal/blockjack"
)

var suite suites.Suite = suites.MustFind("Ed25519")

var (
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
	ErrUnknownCard         = errors.New("ciphertext does not open to a card")
)

// Ciphertext is a sealed card: the hex encoding of the ElGamal pair (K, C).
type Ciphertext string

// KeyPair is the oracle's key. Only the public half leaves the oracle.
type KeyPair struct {
	Secret kyber.Scalar
	Public kyber.Point
}

func GenerateKeyPair() KeyPair {
	x := suite.Scalar().Pick(suite.RandomStream())
	return KeyPair{Secret: x, Public: suite.Point().Mul(x, nil)}
}

func (kp KeyPair) SecretHex() string { return scalarHex(kp.Secret) }

func (kp KeyPair) PublicHex() string { return pointHex(kp.Public) }

// ParseSecretKey rebuilds a key pair from its hex secret.
func ParseSecretKey(s string) (KeyPair, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return KeyPair{}, fmt.Errorf("decode secret key: %w", err)
	}
	x := suite.Scalar()
	if err := x.UnmarshalBinary(raw); err != nil {
		return KeyPair{}, fmt.Errorf("decode secret key: %w", err)
	}
	return KeyPair{Secret: x, Public: suite.Point().Mul(x, nil)}, nil
}

func ParsePublicKey(s string) (kyber.Point, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	p := suite.Point()
	if err := p.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	return p, nil
}

// cardPoint maps a card rank onto the group as rank*G.
func cardPoint(c blockjack.Card) kyber.Point {
	return suite.Point().Mul(suite.Scalar().SetInt64(int64(c)), nil)
}

// Sealer encrypts cards to the oracle's public key. It is the secure
// engine's codec.
type Sealer struct {
	pub kyber.Point
}

func NewSealer(pub kyber.Point) *Sealer {
	return &Sealer{pub: pub}
}

func (s *Sealer) Encode(c blockjack.Card) (Ciphertext, error) {
	if !c.Valid() {
		return "", fmt.Errorf("%w: %d", blockjack.ErrInvalidCard, c)
	}
	k := suite.Scalar().Pick(suite.RandomStream())
	K := suite.Point().Mul(k, nil)
	C := suite.Point().Add(cardPoint(c), suite.Point().Mul(k, s.pub))

	kb, err := K.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("seal card: %w", err)
	}
	cb, err := C.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("seal card: %w", err)
	}
	return Ciphertext(hex.EncodeToString(append(kb, cb...))), nil
}

// Opener decrypts ciphertexts sealed to its key pair.
type Opener struct {
	secret kyber.Scalar
	table  map[string]blockjack.Card
}

func NewOpener(kp KeyPair) *Opener {
	table := make(map[string]blockjack.Card, int(blockjack.MaxRank-blockjack.MinRank)+1)
	for c := blockjack.MinRank; c <= blockjack.MaxRank; c++ {
		table[pointHex(cardPoint(c))] = c
	}
	return &Opener{secret: kp.Secret, table: table}
}

func (o *Opener) Open(ct Ciphertext) (blockjack.Card, error) {
	raw, err := hex.DecodeString(string(ct))
	size := suite.Point().MarshalSize()
	if err != nil || len(raw) != 2*size {
		return 0, ErrMalformedCiphertext
	}

	K := suite.Point()
	if err := K.UnmarshalBinary(raw[:size]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	C := suite.Point()
	if err := C.UnmarshalBinary(raw[size:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}

	M := suite.Point().Sub(C, suite.Point().Mul(o.secret, K))
	c, ok := o.table[pointHex(M)]
	if !ok {
		return 0, ErrUnknownCard
	}
	return c, nil
}

func (o *Opener) OpenHand(cts []Ciphertext) (blockjack.Hand, error) {
	hand := make(blockjack.Hand, 0, len(cts))
	for i, ct := range cts {
		c, err := o.Open(ct)
		if err != nil {
			return nil, fmt.Errorf("card %d: %w", i, err)
		}
		hand = append(hand, c)
	}
	return hand, nil
}

func pointHex(p kyber.Point) string {
	b, _ := p.MarshalBinary()
	return hex.EncodeToString(b)
}

func scalarHex(s kyber.Scalar) string {
	b, _ := s.MarshalBinary()
	return hex.EncodeToString(b)
}
