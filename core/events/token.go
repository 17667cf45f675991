package events

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"benjamins/core/types"
)

const (
	// TypeMintSettled is emitted whenever a bonding-curve mint completes.
	TypeMintSettled = "token.mint.settled"
	// TypeBurnSettled is emitted whenever a bonding-curve burn completes.
	TypeBurnSettled = "token.burn.settled"
	// TypeTransferFeeCharged is emitted when a token transfer collects its
	// payment-asset fee from the sender.
	TypeTransferFeeCharged = "token.transfer.fee"
	// TypeLockboxCreated is emitted when a lockbox is funded.
	TypeLockboxCreated = "lockbox.created"
	// TypeLockboxDestroyed is emitted when a lockbox is opened and deleted.
	TypeLockboxDestroyed = "lockbox.destroyed"
	// TypeLevelIncreased is emitted when an account purchases discount levels.
	TypeLevelIncreased = "discount.level.increased"
	// TypeTipsCleaned is emitted when the owner sweeps a stray asset balance.
	TypeTipsCleaned = "tips.cleaned"
)

func centsAttr(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

type MintSettled struct {
	Caller         common.Address
	Recipient      common.Address
	Amount         uint64
	PrincipalCents *big.Int
	FeeCents       *big.Int
	SupplyAfter    uint64
}

func (MintSettled) EventType() string { return TypeMintSettled }

func (e MintSettled) Event() *types.Event {
	return &types.Event{
		Type: TypeMintSettled,
		Attributes: map[string]string{
			"caller":         e.Caller.Hex(),
			"recipient":      e.Recipient.Hex(),
			"amount":         strconv.FormatUint(e.Amount, 10),
			"principalCents": centsAttr(e.PrincipalCents),
			"feeCents":       centsAttr(e.FeeCents),
			"supplyAfter":    strconv.FormatUint(e.SupplyAfter, 10),
		},
	}
}

type BurnSettled struct {
	Caller         common.Address
	Recipient      common.Address
	Amount         uint64
	PrincipalCents *big.Int
	FeeCents       *big.Int
	SupplyAfter    uint64
}

func (BurnSettled) EventType() string { return TypeBurnSettled }

func (e BurnSettled) Event() *types.Event {
	return &types.Event{
		Type: TypeBurnSettled,
		Attributes: map[string]string{
			"caller":         e.Caller.Hex(),
			"recipient":      e.Recipient.Hex(),
			"amount":         strconv.FormatUint(e.Amount, 10),
			"principalCents": centsAttr(e.PrincipalCents),
			"feeCents":       centsAttr(e.FeeCents),
			"supplyAfter":    strconv.FormatUint(e.SupplyAfter, 10),
		},
	}
}

type TransferFeeCharged struct {
	Sender    common.Address
	Recipient common.Address
	Amount    uint64
	FeeCents  *big.Int
}

func (TransferFeeCharged) EventType() string { return TypeTransferFeeCharged }

func (e TransferFeeCharged) Event() *types.Event {
	return &types.Event{
		Type: TypeTransferFeeCharged,
		Attributes: map[string]string{
			"sender":    e.Sender.Hex(),
			"recipient": e.Recipient.Hex(),
			"amount":    strconv.FormatUint(e.Amount, 10),
			"feeCents":  centsAttr(e.FeeCents),
		},
	}
}

type LockboxCreated struct {
	ID             uint64
	Owner          common.Address
	Amount         uint64
	DurationBlocks uint64
	Score          uint64
}

func (LockboxCreated) EventType() string { return TypeLockboxCreated }

func (e LockboxCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeLockboxCreated,
		Attributes: map[string]string{
			"id":             strconv.FormatUint(e.ID, 10),
			"owner":          e.Owner.Hex(),
			"amount":         strconv.FormatUint(e.Amount, 10),
			"durationBlocks": strconv.FormatUint(e.DurationBlocks, 10),
			"score":          strconv.FormatUint(e.Score, 10),
		},
	}
}

type LockboxDestroyed struct {
	ID     uint64
	Owner  common.Address
	Amount uint64
	Score  uint64
}

func (LockboxDestroyed) EventType() string { return TypeLockboxDestroyed }

func (e LockboxDestroyed) Event() *types.Event {
	return &types.Event{
		Type: TypeLockboxDestroyed,
		Attributes: map[string]string{
			"id":     strconv.FormatUint(e.ID, 10),
			"owner":  e.Owner.Hex(),
			"amount": strconv.FormatUint(e.Amount, 10),
			"score":  strconv.FormatUint(e.Score, 10),
		},
	}
}

type LevelIncreased struct {
	Account      common.Address
	NewLevel     uint32
	LockedBNJI   uint64
	UnlockHeight uint64
}

func (LevelIncreased) EventType() string { return TypeLevelIncreased }

func (e LevelIncreased) Event() *types.Event {
	return &types.Event{
		Type: TypeLevelIncreased,
		Attributes: map[string]string{
			"account":      e.Account.Hex(),
			"newLevel":     strconv.FormatUint(uint64(e.NewLevel), 10),
			"lockedBNJI":   strconv.FormatUint(e.LockedBNJI, 10),
			"unlockHeight": strconv.FormatUint(e.UnlockHeight, 10),
		},
	}
}

var (
	_ Event = MintSettled{}
	_ Event = BurnSettled{}
	_ Event = TransferFeeCharged{}
	_ Event = LockboxCreated{}
	_ Event = LockboxDestroyed{}
	_ Event = LevelIncreased{}
	_ Event = TipsCleaned{}
)

type TipsCleaned struct {
	Asset  common.Address
	To     common.Address
	Amount *big.Int
}

func (TipsCleaned) EventType() string { return TypeTipsCleaned }

func (e TipsCleaned) Event() *types.Event {
	return &types.Event{
		Type: TypeTipsCleaned,
		Attributes: map[string]string{
			"asset":  e.Asset.Hex(),
			"to":     e.To.Hex(),
			"amount": centsAttr(e.Amount),
		},
	}
}
