// Package token implements a token program with both private and public
// balances. Private balance lives in owned Token records; public balance
// lives in the account mapping. The four transfer transitions move value
// within and across the two representations, always atomically.
package token

import (
	"github.com/blockberries/veilberry/execution"
	"github.com/blockberries/veilberry/schema"
	"github.com/blockberries/veilberry/types"
)

// ProgramID identifies the token program.
const ProgramID = types.ProgramID("token.veil")

// Record, mapping, and transition names.
const (
	RecordToken    = "Token"
	MappingAccount = "account"

	TransitionMintPublic      = "mint_public"
	TransitionMintPrivate     = "mint_private"
	TransitionTransferPublic  = "transfer_public"
	TransitionTransferPrivate = "transfer_private"
	TransitionPrivateToPublic = "transfer_private_to_public"
	TransitionPublicToPrivate = "transfer_public_to_private"
)

// Token field names.
const FieldAmount = "amount"

// Program is the token program instance, bound to a fixed admin who is
// the only identity allowed to mint.
type Program struct {
	admin types.Identity
	sch   *schema.Program
}

var _ execution.Program = (*Program)(nil)

// New creates a token program administered by admin.
func New(admin types.Identity) *Program {
	receiverAmount := []schema.ParamDef{
		{Name: "receiver", Kind: types.KindAddress},
		{Name: "amount", Kind: types.KindU64},
	}

	return &Program{
		admin: admin,
		sch: &schema.Program{
			ID: ProgramID,
			Records: []schema.RecordType{
				{
					Name: RecordToken,
					Fields: []schema.FieldDef{
						{Name: FieldAmount, Kind: types.KindU64},
					},
				},
			},
			Mappings: []schema.MappingDef{
				{Name: MappingAccount, KeyKind: types.KindAddress, ValueKind: types.KindU64},
			},
			Transitions: []schema.TransitionDef{
				{
					Name:   TransitionMintPublic,
					Params: receiverAmount,
					Finalize: &schema.FinalizeDef{
						Params: receiverAmount,
					},
				},
				{
					Name:    TransitionMintPrivate,
					Params:  receiverAmount,
					Outputs: []string{RecordToken},
				},
				{
					Name:   TransitionTransferPublic,
					Params: receiverAmount,
					Finalize: &schema.FinalizeDef{
						Params: []schema.ParamDef{
							{Name: "sender", Kind: types.KindAddress},
							{Name: "receiver", Kind: types.KindAddress},
							{Name: "amount", Kind: types.KindU64},
						},
					},
				},
				{
					Name:    TransitionTransferPrivate,
					Params:  receiverAmount,
					Inputs:  []string{RecordToken},
					Outputs: []string{RecordToken, RecordToken},
				},
				{
					Name:    TransitionPrivateToPublic,
					Params:  receiverAmount,
					Inputs:  []string{RecordToken},
					Outputs: []string{RecordToken},
					Finalize: &schema.FinalizeDef{
						Params: receiverAmount,
					},
				},
				{
					Name:    TransitionPublicToPrivate,
					Params:  receiverAmount,
					Outputs: []string{RecordToken},
					Finalize: &schema.FinalizeDef{
						Params: []schema.ParamDef{
							{Name: "sender", Kind: types.KindAddress},
							{Name: "amount", Kind: types.KindU64},
						},
					},
				},
			},
		},
	}
}

// Admin returns the identity allowed to mint.
func (p *Program) Admin() types.Identity {
	return p.admin
}

// Schema returns the program's declared schema.
func (p *Program) Schema() *schema.Program {
	return p.sch
}

// TransitionLogic returns the logic for a declared transition.
func (p *Program) TransitionLogic(name string) (execution.TransitionFunc, bool) {
	switch name {
	case TransitionMintPublic:
		return p.mintPublic, true
	case TransitionMintPrivate:
		return p.mintPrivate, true
	case TransitionTransferPublic:
		return p.transferPublic, true
	case TransitionTransferPrivate:
		return p.transferPrivate, true
	case TransitionPrivateToPublic:
		return p.privateToPublic, true
	case TransitionPublicToPrivate:
		return p.publicToPrivate, true
	}
	return nil, false
}

// FinalizeLogic returns the logic for a declared finalize.
func (p *Program) FinalizeLogic(name string) (execution.FinalizeFunc, bool) {
	switch name {
	case TransitionMintPublic:
		return finalizeMintPublic, true
	case TransitionTransferPublic:
		return finalizeTransferPublic, true
	case TransitionPrivateToPublic:
		return finalizePrivateToPublic, true
	case TransitionPublicToPrivate:
		return finalizePublicToPrivate, true
	}
	return nil, false
}

// mintPublic credits the receiver's public balance. Admin only.
func (p *Program) mintPublic(ctx *execution.TransitionContext) error {
	if err := ctx.Require(execution.IsIdentity(p.admin), "the token admin"); err != nil {
		return err
	}
	return ctx.QueueFinalize(ctx.Arg(0), ctx.Arg(1))
}

func finalizeMintPublic(ctx *execution.FinalizeContext) (*types.Value, error) {
	total, err := ctx.Increment(MappingAccount, ctx.Arg(0), ctx.Arg(1))
	if err != nil {
		return nil, err
	}
	return &total, nil
}

// mintPrivate issues a fresh Token record to the receiver. Admin only.
func (p *Program) mintPrivate(ctx *execution.TransitionContext) error {
	if err := ctx.Require(execution.IsIdentity(p.admin), "the token admin"); err != nil {
		return err
	}
	receiver, err := ctx.Arg(0).AsAddress()
	if err != nil {
		return err
	}
	return ctx.Output(RecordToken, receiver,
		types.NamedValue{Name: FieldAmount, Value: ctx.Arg(1)},
	)
}

// transferPublic moves public balance from the caller to the receiver.
// The sender is always the authenticated caller, never an argument.
func (p *Program) transferPublic(ctx *execution.TransitionContext) error {
	return ctx.QueueFinalize(types.Address(ctx.Caller()), ctx.Arg(0), ctx.Arg(1))
}

func finalizeTransferPublic(ctx *execution.FinalizeContext) (*types.Value, error) {
	if _, err := ctx.Decrement(MappingAccount, ctx.Arg(0), ctx.Arg(2)); err != nil {
		return nil, err
	}
	if _, err := ctx.Increment(MappingAccount, ctx.Arg(1), ctx.Arg(2)); err != nil {
		return nil, err
	}
	return nil, nil
}

// transferPrivate splits an owned Token record: one output to the
// receiver, the change back to the caller. Insufficient balance fails
// the whole invocation and leaves the input unspent.
func (p *Program) transferPrivate(ctx *execution.TransitionContext) error {
	receiver, err := ctx.Arg(0).AsAddress()
	if err != nil {
		return err
	}
	amount := ctx.Arg(1)

	balance, ok := ctx.Input(0).Field(FieldAmount)
	if !ok {
		return types.ErrTypeMismatch
	}
	change, err := balance.CheckedSub(amount)
	if err != nil {
		return err
	}

	if err := ctx.Output(RecordToken, receiver,
		types.NamedValue{Name: FieldAmount, Value: amount},
	); err != nil {
		return err
	}
	return ctx.Output(RecordToken, ctx.Caller(),
		types.NamedValue{Name: FieldAmount, Value: change},
	)
}

// privateToPublic burns private balance and credits the receiver's
// public balance. The change stays private with the caller.
func (p *Program) privateToPublic(ctx *execution.TransitionContext) error {
	amount := ctx.Arg(1)

	balance, ok := ctx.Input(0).Field(FieldAmount)
	if !ok {
		return types.ErrTypeMismatch
	}
	change, err := balance.CheckedSub(amount)
	if err != nil {
		return err
	}

	if err := ctx.Output(RecordToken, ctx.Caller(),
		types.NamedValue{Name: FieldAmount, Value: change},
	); err != nil {
		return err
	}
	return ctx.QueueFinalize(ctx.Arg(0), amount)
}

func finalizePrivateToPublic(ctx *execution.FinalizeContext) (*types.Value, error) {
	total, err := ctx.Increment(MappingAccount, ctx.Arg(0), ctx.Arg(1))
	if err != nil {
		return nil, err
	}
	return &total, nil
}

// publicToPrivate debits the caller's public balance and issues a Token
// record to the receiver. The debit happens in finalize: if the caller's
// public balance is insufficient, the whole invocation rolls back and
// the output record never exists.
func (p *Program) publicToPrivate(ctx *execution.TransitionContext) error {
	receiver, err := ctx.Arg(0).AsAddress()
	if err != nil {
		return err
	}
	if err := ctx.Output(RecordToken, receiver,
		types.NamedValue{Name: FieldAmount, Value: ctx.Arg(1)},
	); err != nil {
		return err
	}
	return ctx.QueueFinalize(types.Address(ctx.Caller()), ctx.Arg(1))
}

func finalizePublicToPrivate(ctx *execution.FinalizeContext) (*types.Value, error) {
	remaining, err := ctx.Decrement(MappingAccount, ctx.Arg(0), ctx.Arg(1))
	if err != nil {
		return nil, err
	}
	return &remaining, nil
}
