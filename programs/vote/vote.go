// Package vote implements a ballot program. Proposals are public;
// eligibility is private: a voter proves the right to vote by spending
// an owned Ticket record, so each ticket is good for exactly one vote
// and nothing public links the ticket to the cast side.
package vote

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/blockberries/veilberry/execution"
	"github.com/blockberries/veilberry/schema"
	"github.com/blockberries/veilberry/types"
)

// ProgramID identifies the vote program.
const ProgramID = types.ProgramID("vote.veil")

// Record, mapping, and transition names.
const (
	RecordProposal = "Proposal"
	RecordTicket   = "Ticket"

	MappingTickets       = "tickets"
	MappingAgreeVotes    = "agree_votes"
	MappingDisagreeVotes = "disagree_votes"

	TransitionPropose   = "propose"
	TransitionNewTicket = "new_ticket"
	TransitionAgree     = "agree"
	TransitionDisagree  = "disagree"
)

// Field names.
const (
	FieldID       = "id"
	FieldTitle    = "title"
	FieldProposer = "proposer"
)

// Program is the vote program instance.
type Program struct {
	sch *schema.Program
}

var _ execution.Program = (*Program)(nil)

// New creates the vote program.
func New() *Program {
	return &Program{
		sch: &schema.Program{
			ID: ProgramID,
			Records: []schema.RecordType{
				{
					Name: RecordProposal,
					Fields: []schema.FieldDef{
						{Name: FieldID, Kind: types.KindU64},
						{Name: FieldTitle, Kind: types.KindU64},
						{Name: FieldProposer, Kind: types.KindAddress},
					},
				},
				{
					Name: RecordTicket,
					Fields: []schema.FieldDef{
						{Name: FieldID, Kind: types.KindU64},
					},
				},
			},
			Mappings: []schema.MappingDef{
				{Name: MappingTickets, KeyKind: types.KindU64, ValueKind: types.KindU64},
				{Name: MappingAgreeVotes, KeyKind: types.KindU64, ValueKind: types.KindU64},
				{Name: MappingDisagreeVotes, KeyKind: types.KindU64, ValueKind: types.KindU64},
			},
			Transitions: []schema.TransitionDef{
				{
					Name: TransitionPropose,
					Params: []schema.ParamDef{
						{Name: FieldTitle, Kind: types.KindU64},
					},
					Outputs: []string{RecordProposal},
					Finalize: &schema.FinalizeDef{
						Params: []schema.ParamDef{
							{Name: FieldID, Kind: types.KindU64},
						},
					},
				},
				{
					Name: TransitionNewTicket,
					Params: []schema.ParamDef{
						{Name: FieldID, Kind: types.KindU64},
						{Name: "voter", Kind: types.KindAddress},
					},
					Inputs:  []string{RecordProposal},
					Outputs: []string{RecordProposal, RecordTicket},
					Finalize: &schema.FinalizeDef{
						Params: []schema.ParamDef{
							{Name: FieldID, Kind: types.KindU64},
						},
					},
				},
				{
					Name:   TransitionAgree,
					Inputs: []string{RecordTicket},
					Finalize: &schema.FinalizeDef{
						Params: []schema.ParamDef{
							{Name: FieldID, Kind: types.KindU64},
						},
					},
				},
				{
					Name:   TransitionDisagree,
					Inputs: []string{RecordTicket},
					Finalize: &schema.FinalizeDef{
						Params: []schema.ParamDef{
							{Name: FieldID, Kind: types.KindU64},
						},
					},
				},
			},
		},
	}
}

// DeriveProposalID derives a proposal ID from the proposer and the
// title, hashed and truncated to 64 bits.
func DeriveProposalID(proposer types.Identity, title uint64) uint64 {
	buf := make([]byte, 0, len(proposer)+9)
	buf = append(buf, proposer...)
	buf = append(buf, 0)
	buf = binary.BigEndian.AppendUint64(buf, title)

	sum := sha256.Sum256(buf)
	return binary.BigEndian.Uint64(sum[:8])
}

// Schema returns the program's declared schema.
func (p *Program) Schema() *schema.Program {
	return p.sch
}

// TransitionLogic returns the logic for a declared transition.
func (p *Program) TransitionLogic(name string) (execution.TransitionFunc, bool) {
	switch name {
	case TransitionPropose:
		return propose, true
	case TransitionNewTicket:
		return newTicket, true
	case TransitionAgree, TransitionDisagree:
		return castVote, true
	}
	return nil, false
}

// FinalizeLogic returns the logic for a declared finalize.
func (p *Program) FinalizeLogic(name string) (execution.FinalizeFunc, bool) {
	switch name {
	case TransitionPropose:
		return finalizePropose, true
	case TransitionNewTicket:
		return finalizeNewTicket, true
	case TransitionAgree:
		return finalizeVote(MappingAgreeVotes), true
	case TransitionDisagree:
		return finalizeVote(MappingDisagreeVotes), true
	}
	return nil, false
}

// propose opens a new ballot. The proposal ID is derived from the
// proposer and the title, so a proposer cannot open two identical
// ballots.
func propose(ctx *execution.TransitionContext) error {
	title, err := ctx.Arg(0).AsUint()
	if err != nil {
		return err
	}
	pid := DeriveProposalID(ctx.Caller(), title)

	if err := ctx.Output(RecordProposal, ctx.Caller(),
		types.NamedValue{Name: FieldID, Value: types.U64(pid)},
		types.NamedValue{Name: FieldTitle, Value: ctx.Arg(0)},
		types.NamedValue{Name: FieldProposer, Value: types.Address(ctx.Caller())},
	); err != nil {
		return err
	}
	return ctx.QueueFinalize(types.U64(pid))
}

// finalizePropose publishes the ballot with a zero ticket count.
func finalizePropose(ctx *execution.FinalizeContext) (*types.Value, error) {
	if err := ctx.Set(MappingTickets, ctx.Arg(0), types.U64(0)); err != nil {
		return nil, err
	}
	return nil, nil
}

// newTicket issues one voting ticket. Only the proposer can issue
// tickets: the Proposal record is the issuing capability, consumed and
// re-issued on every call.
func newTicket(ctx *execution.TransitionContext) error {
	proposal := ctx.Input(0)

	pidVal, ok := proposal.Field(FieldID)
	if !ok {
		return types.ErrTypeMismatch
	}
	pid, err := pidVal.AsUint()
	if err != nil {
		return err
	}
	want, err := ctx.Arg(0).AsUint()
	if err != nil {
		return err
	}
	if pid != want {
		return types.ErrTypeMismatch
	}

	voter, err := ctx.Arg(1).AsAddress()
	if err != nil {
		return err
	}

	if err := ctx.Output(RecordProposal, proposal.Owner, proposal.Fields...); err != nil {
		return err
	}
	if err := ctx.Output(RecordTicket, voter,
		types.NamedValue{Name: FieldID, Value: pidVal},
	); err != nil {
		return err
	}
	return ctx.QueueFinalize(pidVal)
}

// finalizeNewTicket counts the issued ticket.
func finalizeNewTicket(ctx *execution.FinalizeContext) (*types.Value, error) {
	total, err := ctx.Increment(MappingTickets, ctx.Arg(0), types.U64(1))
	if err != nil {
		return nil, err
	}
	return &total, nil
}

// castVote spends the caller's ticket. The ticket is the sole proof of
// eligibility; spending it is what makes the vote single-use. Which
// tally the vote lands in is decided by the transition's finalize.
func castVote(ctx *execution.TransitionContext) error {
	pid, ok := ctx.Input(0).Field(FieldID)
	if !ok {
		return types.ErrTypeMismatch
	}
	return ctx.QueueFinalize(pid)
}

// finalizeVote tallies the vote in the given side's mapping.
func finalizeVote(mapping string) execution.FinalizeFunc {
	return func(ctx *execution.FinalizeContext) (*types.Value, error) {
		total, err := ctx.Increment(mapping, ctx.Arg(0), types.U64(1))
		if err != nil {
			return nil, err
		}
		return &total, nil
	}
}
