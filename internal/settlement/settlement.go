package settlement

import (
	"errors"
	"math/big"
	"math/bits"
)

// Interest strategy bit-set. Remainders from even splits go to the
// lowest-ordered active party: sender, then receiver, then protocol.
const (
	PartySender   uint32 = 1
	PartyReceiver uint32 = 2
	PartyProtocol uint32 = 4

	partyMask = PartySender | PartyReceiver | PartyProtocol

	MaxBasisPoints uint32 = 10000
)

var ErrInvalidBasisPoints = errors.New("basis points out of range")

// Shares is a three-way division of a settled amount. The fields always sum
// to the input amount.
type Shares struct {
	Sender   int64
	Receiver int64
	Protocol int64
}

// Withdrawable is the portion of the unlocked amount not yet paid out.
// Callers pass the curve output, which returns total exactly at or after end,
// so summed withdrawals over an agreement's life equal total with no dust.
func Withdrawable(unlocked, withdrawn int64) int64 {
	d := unlocked - withdrawn
	if d < 0 {
		return 0
	}
	return d
}

// SplitInterest divides yield across the parties named by the strategy
// bit-set. An empty strategy sends everything to the receiver, the beneficial
// owner of the principal.
func SplitInterest(amount int64, strategy uint32) Shares {
	if amount <= 0 {
		return Shares{}
	}
	strategy &= partyMask
	if strategy == 0 {
		strategy = PartyReceiver
	}
	n := int64(bits.OnesCount32(strategy))
	each := amount / n
	rem := amount % n

	var s Shares
	if strategy&PartySender != 0 {
		s.Sender = each
	}
	if strategy&PartyReceiver != 0 {
		s.Receiver = each
	}
	if strategy&PartyProtocol != 0 {
		s.Protocol = each
	}
	switch {
	case strategy&PartySender != 0:
		s.Sender += rem
	case strategy&PartyReceiver != 0:
		s.Receiver += rem
	default:
		s.Protocol += rem
	}
	return s
}

// DisputeSplit divides the remaining balance between receiver and sender at
// an arbiter-specified share, in basis points of 1/10000. The receiver's cut
// is floored; the sender takes the exact complement, so the two always sum to
// remaining.
func DisputeSplit(remaining int64, receiverBps uint32) (receiver, sender int64, err error) {
	if receiverBps > MaxBasisPoints {
		return 0, 0, ErrInvalidBasisPoints
	}
	if remaining <= 0 {
		return 0, 0, nil
	}
	n := new(big.Int).Mul(big.NewInt(remaining), big.NewInt(int64(receiverBps)))
	n.Quo(n, big.NewInt(int64(MaxBasisPoints)))
	receiver = n.Int64()
	return receiver, remaining - receiver, nil
}

// VaultInterest is the redeemed value above the principal put in. A vault
// that lost money yields zero interest, never a negative claim against the
// agreement.
func VaultInterest(value, principal int64) int64 {
	if value <= principal {
		return 0
	}
	return value - principal
}

// ProportionalShares is the number of vault shares backing an amount of
// principal, floored so a withdrawal never redeems more than its fraction.
func ProportionalShares(shares, amount, principal int64) int64 {
	if principal <= 0 || amount <= 0 || shares <= 0 {
		return 0
	}
	if amount >= principal {
		return shares
	}
	n := new(big.Int).Mul(big.NewInt(shares), big.NewInt(amount))
	n.Quo(n, big.NewInt(principal))
	return n.Int64()
}
