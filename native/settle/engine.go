package settle

import (
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"pointsale/core/events"
	"pointsale/core/types"
	nativecommon "pointsale/native/common"
	"pointsale/native/exchange"
	"pointsale/native/fees"
	"pointsale/native/prefs"
)

// maxTokenAmount bounds the aggregate claim domain to 256-bit token amounts.
var maxTokenAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

type settleEvent struct {
	evt *types.Event
}

func (e settleEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e settleEvent) Event() *types.Event { return e.evt }

// Engine orchestrates one batch settlement: floor validation, combined claim
// submission, exchange, fee split, and pro-rata distribution. It holds no
// balances between settlements; only the preference store and the fee
// controller persist.
type Engine struct {
	custody  [20]byte
	operator [20]byte

	preferences PreferenceReader
	feeRates    FeeReader
	resolver    prefs.OwnershipResolver
	gateway     ClaimGateway
	adapter     exchange.Adapter
	ledger      Ledger

	emitter events.Emitter
	pauses  nativecommon.PauseView
	nowFn   func() int64
}

// NewEngine creates a settlement engine with a no-op emitter. The custody
// address receives claimed point tokens; the operator both triggers
// settlements and collects the protocol fee.
func NewEngine(custody, operator [20]byte) *Engine {
	return &Engine{
		custody:  custody,
		operator: operator,
		emitter:  events.NoopEmitter{},
		nowFn:    func() int64 { return time.Now().Unix() },
	}
}

// SetPreferences configures the live preference reader.
func (e *Engine) SetPreferences(p PreferenceReader) { e.preferences = p }

// SetFeeReader configures the fee rate source read at settlement time.
func (e *Engine) SetFeeReader(f FeeReader) { e.feeRates = f }

// SetResolver configures the ownership resolver for default recipients.
func (e *Engine) SetResolver(r prefs.OwnershipResolver) { e.resolver = r }

// SetGateway configures the claim gateway.
func (e *Engine) SetGateway(g ClaimGateway) { e.gateway = g }

// SetAdapter configures the exchange strategy.
func (e *Engine) SetAdapter(a exchange.Adapter) { e.adapter = a }

// SetLedger configures the token transfer primitive.
func (e *Engine) SetLedger(l Ledger) { e.ledger = l }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses configures the pause switchboard guarding settlement.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetNowFunc overrides the time source, primarily used in tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(settleEvent{evt: evt})
}

func (e *Engine) ready() error {
	if e == nil || e.preferences == nil || e.feeRates == nil || e.resolver == nil ||
		e.gateway == nil || e.adapter == nil || e.ledger == nil {
		return errNilState
	}
	return nil
}

// resolveRecipient returns where an account's share must be paid: the
// explicit preference when set, otherwise the account's sole controlling
// identity. Accounts without any registered controller are paid directly.
func (e *Engine) resolveRecipient(account [20]byte) ([20]byte, error) {
	recipient, err := e.preferences.Recipient(account)
	if err != nil {
		return [20]byte{}, err
	}
	if recipient != nil {
		return *recipient, nil
	}
	controllers, err := e.resolver.Controllers(account)
	if err != nil {
		return [20]byte{}, err
	}
	switch len(controllers) {
	case 0:
		return account, nil
	case 1:
		return controllers[0], nil
	default:
		return [20]byte{}, ErrMultipleOwners
	}
}

// ExecuteSale performs one atomic batch settlement. Every failure aborts the
// whole batch; collaborator errors from the gateway, venue, and ledger
// propagate verbatim so the operator can diagnose and resubmit.
func (e *Engine) ExecuteSale(caller [20]byte, req BatchRequest) (*SettlementResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleSettle); err != nil {
		return nil, err
	}
	if caller != e.operator {
		return nil, ErrNotAuthorized
	}
	pointToken := prefs.NormalizeToken(req.PointToken)
	outputToken := prefs.NormalizeToken(req.OutputToken)
	if pointToken == "" || outputToken == "" {
		return nil, ErrInvalidToken
	}
	if len(req.Accounts) != len(req.Claims) {
		return nil, ErrArrayLengthMismatch
	}
	priceFloor := req.PriceFloor
	if priceFloor == nil {
		priceFloor = big.NewInt(0)
	}

	// Floor validation uses live preference state so a change landing
	// between batch construction and execution is honored here.
	totalAmount := big.NewInt(0)
	for i, account := range req.Accounts {
		if account == ([20]byte{}) {
			return nil, ErrInvalidAccount
		}
		minPrice, err := e.preferences.MinPrice(account, pointToken)
		if err != nil {
			return nil, err
		}
		if priceFloor.Cmp(minPrice) < 0 {
			return nil, ErrMinPriceTooLow
		}
		amount := req.Claims[i].AmountToClaim
		if amount == nil {
			amount = big.NewInt(0)
		}
		if amount.Sign() < 0 {
			return nil, ErrInvalidAmount
		}
		totalAmount = totalAmount.Add(totalAmount, amount)
		if totalAmount.Cmp(maxTokenAmount) > 0 {
			return nil, ErrOverflow
		}
	}
	if totalAmount.Sign() == 0 {
		return nil, ErrEmptyBatch
	}

	// Resolve every payout recipient before any external effect so an
	// ambiguous account aborts the batch with nothing moved.
	recipients := make([][20]byte, len(req.Accounts))
	for i, account := range req.Accounts {
		recipient, err := e.resolveRecipient(account)
		if err != nil {
			return nil, err
		}
		recipients[i] = recipient
	}

	calls := make([]ClaimCall, len(req.Claims))
	for i, claim := range req.Claims {
		calls[i] = ClaimCall{Claim: claim, Account: req.Accounts[i], Receiver: e.custody}
	}
	if err := e.gateway.CombinedSubmit(calls); err != nil {
		return nil, err
	}

	amountOut, err := e.adapter.Swap(pointToken, outputToken, totalAmount, priceFloor, req.ExchangeParams)
	if err != nil {
		return nil, err
	}

	rateBps, err := e.feeRates.Rate()
	if err != nil {
		return nil, err
	}
	feeAmount, remaining := fees.Apply(amountOut, rateBps)
	if feeAmount.Sign() > 0 {
		if err := e.ledger.Transfer(outputToken, e.custody, e.operator, feeAmount); err != nil {
			return nil, err
		}
	}

	payouts := make([]Payout, 0, len(req.Accounts))
	paid := big.NewInt(0)
	for i, account := range req.Accounts {
		amount := req.Claims[i].AmountToClaim
		if amount == nil || amount.Sign() == 0 {
			continue
		}
		share := new(big.Int).Mul(remaining, amount)
		share = share.Div(share, totalAmount)
		if share.Sign() == 0 {
			continue
		}
		if err := e.ledger.Transfer(outputToken, e.custody, recipients[i], share); err != nil {
			return nil, err
		}
		payouts = append(payouts, Payout{Account: account, Recipient: recipients[i], Amount: share})
		paid = paid.Add(paid, share)
	}
	dust := new(big.Int).Sub(remaining, paid)

	id := settlementID(pointToken, outputToken, totalAmount, e.now())
	result := &SettlementResult{
		ID:           id,
		PointToken:   pointToken,
		OutputToken:  outputToken,
		TotalClaimed: totalAmount,
		AmountOut:    amountOut,
		FeeAmount:    feeAmount,
		Payouts:      payouts,
		Dust:         dust,
	}
	e.emit(events.SettlementCompleted{
		ID:          id,
		PointToken:  pointToken,
		OutputToken: outputToken,
		Accounts:    len(req.Accounts),
		TotalAmount: totalAmount,
		AmountOut:   amountOut,
		FeeAmount:   feeAmount,
	}.Event())
	return result, nil
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func settlementID(pointToken, outputToken string, total *big.Int, ts int64) [32]byte {
	return ethcrypto.Keccak256Hash(
		[]byte(pointToken),
		[]byte(outputToken),
		total.Bytes(),
		big.NewInt(ts).Bytes(),
	)
}
