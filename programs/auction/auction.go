// Package auction implements a first-price sealed-bid auction program.
//
// Bidders place bids they cannot later inspect or retract: every Bid
// record is owned by the auctioneer from the moment it is placed. The
// auctioneer resolves bids pairwise, consuming the loser forever, and
// finishes the auction by re-issuing the surviving bid to the winning
// bidder with the winner flag set.
package auction

import (
	"github.com/blockberries/veilberry/execution"
	"github.com/blockberries/veilberry/schema"
	"github.com/blockberries/veilberry/types"
)

// ProgramID identifies the auction program.
const ProgramID = types.ProgramID("auction.veil")

// Record and transition names.
const (
	RecordBid = "Bid"

	TransitionPlaceBid = "place_bid"
	TransitionResolve  = "resolve"
	TransitionFinish   = "finish"
)

// Bid field names.
const (
	FieldBidder   = "bidder"
	FieldAmount   = "amount"
	FieldIsWinner = "is_winner"
)

// Program is the auction program instance, bound to a fixed auctioneer.
type Program struct {
	auctioneer types.Identity
	sch        *schema.Program
}

var _ execution.Program = (*Program)(nil)

// New creates an auction program run by the given auctioneer.
func New(auctioneer types.Identity) *Program {
	return &Program{
		auctioneer: auctioneer,
		sch: &schema.Program{
			ID: ProgramID,
			Records: []schema.RecordType{
				{
					Name: RecordBid,
					Fields: []schema.FieldDef{
						{Name: FieldBidder, Kind: types.KindAddress},
						{Name: FieldAmount, Kind: types.KindU64},
						{Name: FieldIsWinner, Kind: types.KindBool},
					},
				},
			},
			Transitions: []schema.TransitionDef{
				{
					Name: TransitionPlaceBid,
					Params: []schema.ParamDef{
						{Name: FieldBidder, Kind: types.KindAddress},
						{Name: FieldAmount, Kind: types.KindU64},
					},
					Outputs: []string{RecordBid},
				},
				{
					Name:    TransitionResolve,
					Inputs:  []string{RecordBid, RecordBid},
					Outputs: []string{RecordBid},
				},
				{
					Name:    TransitionFinish,
					Inputs:  []string{RecordBid},
					Outputs: []string{RecordBid},
				},
			},
		},
	}
}

// Auctioneer returns the identity running the auction.
func (p *Program) Auctioneer() types.Identity {
	return p.auctioneer
}

// Schema returns the program's declared schema.
func (p *Program) Schema() *schema.Program {
	return p.sch
}

// TransitionLogic returns the logic for a declared transition.
func (p *Program) TransitionLogic(name string) (execution.TransitionFunc, bool) {
	switch name {
	case TransitionPlaceBid:
		return p.placeBid, true
	case TransitionResolve:
		return p.resolve, true
	case TransitionFinish:
		return p.finish, true
	}
	return nil, false
}

// FinalizeLogic returns the logic for a declared finalize. The auction
// keeps no public state, so no transition declares one.
func (p *Program) FinalizeLogic(string) (execution.FinalizeFunc, bool) {
	return nil, false
}

// placeBid records a new bid. The caller must be the bidder named in the
// arguments, and the resulting Bid is owned by the auctioneer: the bidder
// cannot inspect, spend, or retract it afterwards.
func (p *Program) placeBid(ctx *execution.TransitionContext) error {
	bidder, err := ctx.Arg(0).AsAddress()
	if err != nil {
		return err
	}
	if err := ctx.Require(execution.IsIdentity(bidder), "the named bidder"); err != nil {
		return err
	}

	return ctx.Output(RecordBid, p.auctioneer,
		types.NamedValue{Name: FieldBidder, Value: ctx.Arg(0)},
		types.NamedValue{Name: FieldAmount, Value: ctx.Arg(1)},
		types.NamedValue{Name: FieldIsWinner, Value: types.Bool(false)},
	)
}

// resolve compares two bids and keeps the higher one. On an equal amount
// the first input wins. Both inputs are consumed; the losing bid is gone
// for good, the surviving one is re-issued to the auctioneer.
func (p *Program) resolve(ctx *execution.TransitionContext) error {
	if err := ctx.Require(execution.IsIdentity(p.auctioneer), "the auctioneer"); err != nil {
		return err
	}

	first, second := ctx.Input(0), ctx.Input(1)

	firstAmount, err := fieldUint(first, FieldAmount)
	if err != nil {
		return err
	}
	secondAmount, err := fieldUint(second, FieldAmount)
	if err != nil {
		return err
	}

	winner := second
	if firstAmount >= secondAmount {
		winner = first
	}

	return ctx.Output(RecordBid, p.auctioneer, winner.Fields...)
}

// finish closes the auction: the surviving bid is re-issued to its
// bidder with the winner flag set, transferring ownership so the winner
// can prove the win.
func (p *Program) finish(ctx *execution.TransitionContext) error {
	if err := ctx.Require(execution.IsIdentity(p.auctioneer), "the auctioneer"); err != nil {
		return err
	}

	bid := ctx.Input(0)
	bidderVal, ok := bid.Field(FieldBidder)
	if !ok {
		return types.ErrTypeMismatch
	}
	bidder, err := bidderVal.AsAddress()
	if err != nil {
		return err
	}
	amount, ok := bid.Field(FieldAmount)
	if !ok {
		return types.ErrTypeMismatch
	}

	return ctx.Output(RecordBid, bidder,
		types.NamedValue{Name: FieldBidder, Value: bidderVal},
		types.NamedValue{Name: FieldAmount, Value: amount},
		types.NamedValue{Name: FieldIsWinner, Value: types.Bool(true)},
	)
}

func fieldUint(rec *types.Record, name string) (uint64, error) {
	v, ok := rec.Field(name)
	if !ok {
		return 0, types.ErrTypeMismatch
	}
	return v.AsUint()
}
