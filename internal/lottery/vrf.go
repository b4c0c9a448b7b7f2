// Package lottery is the default proof/VRF component: a BLS-signature VRF
// whose output is checked against the PID controller's sigma polynomial. It
// plugs in behind the consensus loop's Prover interface; the core never
// depends on it concretely.
package lottery

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/pairing/bn256"
	"go.dedis.ch/kyber/v3/sign/bls"

	"github.com/eigerco/bilberry/internal/chain"
	"github.com/eigerco/bilberry/internal/consensus"
	"github.com/eigerco/bilberry/internal/crypto"
)

var ErrBadProof = errors.New("lottery: proof verification failed")

// Evaluator holds the local participant's VRF key material.
type Evaluator struct {
	suite *bn256.Suite
	priv  kyber.Scalar
	pub   kyber.Point

	// headstart is added to the winning threshold, giving small stakes a
	// floor probability.
	headstart fr.Element
}

// NewEvaluator derives the VRF keypair from a seed. The same seed always
// yields the same key, so a node's lottery evaluations are reproducible.
func NewEvaluator(seed []byte, headstart uint64) *Evaluator {
	suite := bn256.NewSuite()
	h := sha256.Sum256(seed)
	priv := suite.G2().Scalar().SetBytes(h[:])
	return &Evaluator{
		suite:     suite,
		priv:      priv,
		pub:       suite.G2().Point().Mul(priv, nil),
		headstart: *new(fr.Element).SetUint64(headstart),
	}
}

// PublicKey returns the marshalled VRF public key other nodes verify against.
func (e *Evaluator) PublicKey() ([]byte, error) {
	return e.pub.MarshalBinary()
}

func lotteryInput(randomness crypto.Hash, slot uint64) []byte {
	input := make([]byte, 0, crypto.HashSize+8)
	input = append(input, randomness[:]...)
	return binary.LittleEndian.AppendUint64(input, slot)
}

// EvaluateLottery signs the slot randomness, hashes the signature into a
// field element y and wins iff
//
//	y < sigma1*stake + sigma2*stake^2 + headstart
//
// evaluated in the scalar field, the same low-degree polynomial the proof
// circuit checks.
func (e *Evaluator) EvaluateLottery(stake uint64, sigma1, sigma2 fr.Element, randomness crypto.Hash, slot uint64) (*consensus.LotteryWin, error) {
	proof, err := bls.Sign(e.suite, e.priv, lotteryInput(randomness, slot))
	if err != nil {
		return nil, fmt.Errorf("sign lottery input: %w", err)
	}
	output := sha256.Sum256(proof)

	var y fr.Element
	y.SetBytes(output[:])

	if y.Cmp(threshold(stake, sigma1, sigma2, e.headstart)) >= 0 {
		return nil, nil
	}
	return &consensus.LotteryWin{Output: crypto.Hash(output), Proof: proof}, nil
}

func threshold(stake uint64, sigma1, sigma2, headstart fr.Element) *fr.Element {
	var s, s2, t1, t2, out fr.Element
	s.SetUint64(stake)
	s2.Square(&s)
	t1.Mul(&sigma1, &s)
	t2.Mul(&sigma2, &s2)
	out.Add(&t1, &t2)
	out.Add(&out, &headstart)
	return &out
}

// ProveBlock seals an assembled block by signing its header hash together
// with the lottery proof.
func (e *Evaluator) ProveBlock(ctx context.Context, b chain.Block, win *consensus.LotteryWin) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash, err := b.Hash()
	if err != nil {
		return nil, fmt.Errorf("hash block: %w", err)
	}
	msg := append(hash.Bytes(), win.Proof...)
	seal, err := bls.Sign(e.suite, e.priv, msg)
	if err != nil {
		return nil, fmt.Errorf("sign block: %w", err)
	}
	return seal, nil
}

// VerifyLottery checks a remote participant's winning claim: the proof must
// verify under their public key and its hash must clear the same threshold.
func VerifyLottery(pubKey []byte, stake uint64, sigma1, sigma2 fr.Element, headstart uint64,
	randomness crypto.Hash, slot uint64, win *consensus.LotteryWin) error {
	suite := bn256.NewSuite()
	pub := suite.G2().Point()
	if err := pub.UnmarshalBinary(pubKey); err != nil {
		return fmt.Errorf("unmarshal public key: %w", err)
	}
	if err := bls.Verify(suite, pub, lotteryInput(randomness, slot), win.Proof); err != nil {
		return fmt.Errorf("%w: %v", ErrBadProof, err)
	}

	output := sha256.Sum256(win.Proof)
	if crypto.Hash(output) != win.Output {
		return fmt.Errorf("%w: output does not match proof", ErrBadProof)
	}
	var y fr.Element
	y.SetBytes(output[:])
	hs := new(fr.Element).SetUint64(headstart)
	if y.Cmp(threshold(stake, sigma1, sigma2, *hs)) >= 0 {
		return fmt.Errorf("%w: output above threshold", ErrBadProof)
	}
	return nil
}
