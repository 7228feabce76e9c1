package settle

import (
	"errors"
	"math/big"
	"testing"

	"pointsale/core/events"
)

func addr(index byte) [20]byte {
	var out [20]byte
	out[19] = index
	return out
}

var (
	custodyAddr  = addr(0xEE)
	operatorAddr = addr(0xFF)
)

type mockPrefs struct {
	minPrices  map[[20]byte]*big.Int
	recipients map[[20]byte][20]byte
}

func newMockPrefs() *mockPrefs {
	return &mockPrefs{
		minPrices:  make(map[[20]byte]*big.Int),
		recipients: make(map[[20]byte][20]byte),
	}
}

func (m *mockPrefs) MinPrice(account [20]byte, token string) (*big.Int, error) {
	price, ok := m.minPrices[account]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(price), nil
}

func (m *mockPrefs) Recipient(account [20]byte) (*[20]byte, error) {
	recipient, ok := m.recipients[account]
	if !ok {
		return nil, nil
	}
	out := recipient
	return &out, nil
}

type mockResolver struct {
	controllers map[[20]byte][][20]byte
}

func (m *mockResolver) IsController(account, identity [20]byte) (bool, error) {
	for _, c := range m.controllers[account] {
		if c == identity {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockResolver) Controllers(account [20]byte) ([][20]byte, error) {
	return m.controllers[account], nil
}

type mockFees struct {
	rateBps uint32
}

func (m *mockFees) Rate() (uint32, error) { return m.rateBps, nil }

type mockGateway struct {
	submissions [][]ClaimCall
	failEntitle *[32]byte
}

func (m *mockGateway) Claim(claim Claim, account, receiver [20]byte) error {
	return m.CombinedSubmit([]ClaimCall{{Claim: claim, Account: account, Receiver: receiver}})
}

func (m *mockGateway) CombinedSubmit(calls []ClaimCall) error {
	if m.failEntitle != nil {
		for _, call := range calls {
			if call.Claim.EntitlementID == *m.failEntitle {
				return errors.New("gateway: invalid proof")
			}
		}
	}
	m.submissions = append(m.submissions, calls)
	return nil
}

func (m *mockGateway) ClaimedAmount(account [20]byte, entitlementID [32]byte) (*big.Int, error) {
	return big.NewInt(0), nil
}

type transfer struct {
	token  string
	from   [20]byte
	to     [20]byte
	amount *big.Int
}

type mockLedger struct {
	transfers []transfer
}

func (m *mockLedger) Transfer(token string, from, to [20]byte, amount *big.Int) error {
	m.transfers = append(m.transfers, transfer{token: token, from: from, to: to, amount: new(big.Int).Set(amount)})
	return nil
}

func (m *mockLedger) BalanceOf(token string, a [20]byte) (*big.Int, error) {
	total := big.NewInt(0)
	for _, tr := range m.transfers {
		if tr.token != token {
			continue
		}
		if tr.to == a {
			total.Add(total, tr.amount)
		}
		if tr.from == a {
			total.Sub(total, tr.amount)
		}
	}
	return total, nil
}

type mockAdapter struct {
	amountOut *big.Int
	err       error
	lastIn    *big.Int
	lastFloor *big.Int
}

func (m *mockAdapter) Swap(tokenIn, tokenOut string, amountIn, priceFloor *big.Int, params []byte) (*big.Int, error) {
	m.lastIn = new(big.Int).Set(amountIn)
	m.lastFloor = new(big.Int).Set(priceFloor)
	if m.err != nil {
		return nil, m.err
	}
	return new(big.Int).Set(m.amountOut), nil
}

type testFixture struct {
	engine   *Engine
	prefs    *mockPrefs
	resolver *mockResolver
	fees     *mockFees
	gateway  *mockGateway
	ledger   *mockLedger
	adapter  *mockAdapter
}

func newFixture() *testFixture {
	f := &testFixture{
		prefs:    newMockPrefs(),
		resolver: &mockResolver{controllers: make(map[[20]byte][][20]byte)},
		fees:     &mockFees{},
		gateway:  &mockGateway{},
		ledger:   &mockLedger{},
		adapter:  &mockAdapter{amountOut: big.NewInt(0)},
	}
	engine := NewEngine(custodyAddr, operatorAddr)
	engine.SetPreferences(f.prefs)
	engine.SetResolver(f.resolver)
	engine.SetFeeReader(f.fees)
	engine.SetGateway(f.gateway)
	engine.SetLedger(f.ledger)
	engine.SetAdapter(f.adapter)
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })
	f.engine = engine
	return f
}

func exp18(n int64) *big.Int {
	out := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return out.Mul(out, big.NewInt(n))
}

func claimOf(id byte, amount *big.Int) Claim {
	var entitlement [32]byte
	entitlement[31] = id
	return Claim{EntitlementID: entitlement, TotalClaimable: new(big.Int).Set(amount), AmountToClaim: new(big.Int).Set(amount)}
}

func TestExecuteSaleTwoAccountScenario(t *testing.T) {
	f := newFixture()
	f.fees.rateBps = 10 // 0.1%
	f.adapter.amountOut = exp18(2)

	accounts := [][20]byte{addr(1), addr(2)}
	claims := []Claim{claimOf(1, exp18(1)), claimOf(2, exp18(1))}
	req := BatchRequest{
		PointToken:  "PTS",
		OutputToken: "USDQ",
		Accounts:    accounts,
		Claims:      claims,
		PriceFloor:  exp18(1),
	}
	result, err := f.engine.ExecuteSale(operatorAddr, req)
	if err != nil {
		t.Fatalf("execute sale: %v", err)
	}
	wantFee, _ := new(big.Int).SetString("2000000000000000", 10)
	if result.FeeAmount.Cmp(wantFee) != 0 {
		t.Fatalf("expected fee %s, got %s", wantFee, result.FeeAmount)
	}
	wantShare, _ := new(big.Int).SetString("999000000000000000", 10)
	if len(result.Payouts) != 2 {
		t.Fatalf("expected 2 payouts, got %d", len(result.Payouts))
	}
	for i, payout := range result.Payouts {
		if payout.Amount.Cmp(wantShare) != 0 {
			t.Fatalf("payout %d: expected %s, got %s", i, wantShare, payout.Amount)
		}
		if payout.Recipient != accounts[i] {
			t.Fatalf("payout %d routed to %x", i, payout.Recipient)
		}
	}
	if result.Dust.Sign() != 0 {
		t.Fatalf("expected zero dust, got %s", result.Dust)
	}
	// Fee transfer plus two payout transfers.
	if len(f.ledger.transfers) != 3 {
		t.Fatalf("expected 3 transfers, got %d", len(f.ledger.transfers))
	}
	if f.ledger.transfers[0].to != operatorAddr || f.ledger.transfers[0].amount.Cmp(wantFee) != 0 {
		t.Fatalf("fee transfer mismatch: %+v", f.ledger.transfers[0])
	}
}

func TestExecuteSaleProRataWithDust(t *testing.T) {
	f := newFixture()
	f.adapter.amountOut = big.NewInt(100)

	accounts := [][20]byte{addr(1), addr(2), addr(3)}
	claims := []Claim{
		claimOf(1, big.NewInt(1)),
		claimOf(2, big.NewInt(1)),
		claimOf(3, big.NewInt(1)),
	}
	result, err := f.engine.ExecuteSale(operatorAddr, BatchRequest{
		PointToken:  "PTS",
		OutputToken: "USDQ",
		Accounts:    accounts,
		Claims:      claims,
		PriceFloor:  big.NewInt(0),
	})
	if err != nil {
		t.Fatalf("execute sale: %v", err)
	}
	paid := big.NewInt(0)
	for _, payout := range result.Payouts {
		if payout.Amount.Cmp(big.NewInt(33)) != 0 {
			t.Fatalf("expected floored share 33, got %s", payout.Amount)
		}
		paid.Add(paid, payout.Amount)
	}
	paid.Add(paid, result.FeeAmount)
	if paid.Cmp(result.AmountOut) > 0 {
		t.Fatalf("payouts plus fee exceed amount out: %s > %s", paid, result.AmountOut)
	}
	if result.Dust.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected dust 1, got %s", result.Dust)
	}
	if result.Dust.Cmp(big.NewInt(int64(len(accounts)))) >= 0 {
		t.Fatalf("dust %s must stay below account count %d", result.Dust, len(accounts))
	}
	// Dust is retained implicitly: no transfer carries it anywhere.
	for _, tr := range f.ledger.transfers {
		if tr.amount.Cmp(big.NewInt(33)) != 0 {
			t.Fatalf("unexpected transfer amount %s", tr.amount)
		}
	}
}

func TestExecuteSaleFloorBelowStoredMinPrice(t *testing.T) {
	f := newFixture()
	f.adapter.amountOut = big.NewInt(100)
	f.prefs.minPrices[addr(2)] = big.NewInt(500)

	_, err := f.engine.ExecuteSale(operatorAddr, BatchRequest{
		PointToken:  "PTS",
		OutputToken: "USDQ",
		Accounts:    [][20]byte{addr(1), addr(2)},
		Claims:      []Claim{claimOf(1, big.NewInt(10)), claimOf(2, big.NewInt(10))},
		PriceFloor:  big.NewInt(499),
	})
	if !errors.Is(err, ErrMinPriceTooLow) {
		t.Fatalf("expected ErrMinPriceTooLow, got %v", err)
	}
	if len(f.ledger.transfers) != 0 {
		t.Fatalf("failed settlement must not transfer, saw %d transfers", len(f.ledger.transfers))
	}
	if len(f.gateway.submissions) != 0 {
		t.Fatalf("failed settlement must not claim, saw %d submissions", len(f.gateway.submissions))
	}
}

func TestExecuteSaleFloorEqualToMinPriceAccepted(t *testing.T) {
	f := newFixture()
	f.adapter.amountOut = big.NewInt(100)
	f.prefs.minPrices[addr(1)] = big.NewInt(500)

	_, err := f.engine.ExecuteSale(operatorAddr, BatchRequest{
		PointToken:  "PTS",
		OutputToken: "USDQ",
		Accounts:    [][20]byte{addr(1)},
		Claims:      []Claim{claimOf(1, big.NewInt(10))},
		PriceFloor:  big.NewInt(500),
	})
	if err != nil {
		t.Fatalf("floor equal to min price must pass: %v", err)
	}
}

func TestExecuteSaleLengthMismatch(t *testing.T) {
	f := newFixture()
	_, err := f.engine.ExecuteSale(operatorAddr, BatchRequest{
		PointToken:  "PTS",
		OutputToken: "USDQ",
		Accounts:    [][20]byte{addr(1), addr(2)},
		Claims:      []Claim{claimOf(1, big.NewInt(10))},
	})
	if !errors.Is(err, ErrArrayLengthMismatch) {
		t.Fatalf("expected ErrArrayLengthMismatch, got %v", err)
	}
	if len(f.ledger.transfers) != 0 || len(f.gateway.submissions) != 0 {
		t.Fatalf("mismatched batch must have no side effects")
	}
}

func TestExecuteSaleOperatorOnly(t *testing.T) {
	f := newFixture()
	_, err := f.engine.ExecuteSale(addr(5), BatchRequest{
		PointToken:  "PTS",
		OutputToken: "USDQ",
		Accounts:    [][20]byte{addr(1)},
		Claims:      []Claim{claimOf(1, big.NewInt(10))},
	})
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestExecuteSaleEmptyBatch(t *testing.T) {
	f := newFixture()
	_, err := f.engine.ExecuteSale(operatorAddr, BatchRequest{
		PointToken:  "PTS",
		OutputToken: "USDQ",
		Accounts:    [][20]byte{addr(1), addr(2)},
		Claims:      []Claim{claimOf(1, big.NewInt(0)), claimOf(2, big.NewInt(0))},
	})
	if !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestExecuteSaleMultipleOwnersWithoutRecipient(t *testing.T) {
	f := newFixture()
	f.adapter.amountOut = big.NewInt(100)
	f.resolver.controllers[addr(2)] = [][20]byte{addr(8), addr(9)}

	_, err := f.engine.ExecuteSale(operatorAddr, BatchRequest{
		PointToken:  "PTS",
		OutputToken: "USDQ",
		Accounts:    [][20]byte{addr(1), addr(2)},
		Claims:      []Claim{claimOf(1, big.NewInt(10)), claimOf(2, big.NewInt(10))},
	})
	if !errors.Is(err, ErrMultipleOwners) {
		t.Fatalf("expected ErrMultipleOwners, got %v", err)
	}
	// Recipient ambiguity is detected before any claim or transfer.
	if len(f.gateway.submissions) != 0 || len(f.ledger.transfers) != 0 {
		t.Fatalf("ambiguous batch must have no side effects")
	}
}

func TestExecuteSaleExplicitRecipientBypassesResolver(t *testing.T) {
	f := newFixture()
	f.adapter.amountOut = big.NewInt(100)
	f.resolver.controllers[addr(2)] = [][20]byte{addr(8), addr(9)}
	payee := addr(7)
	f.prefs.recipients[addr(2)] = payee

	result, err := f.engine.ExecuteSale(operatorAddr, BatchRequest{
		PointToken:  "PTS",
		OutputToken: "USDQ",
		Accounts:    [][20]byte{addr(2)},
		Claims:      []Claim{claimOf(2, big.NewInt(10))},
	})
	if err != nil {
		t.Fatalf("execute sale: %v", err)
	}
	if len(result.Payouts) != 1 || result.Payouts[0].Recipient != payee {
		t.Fatalf("expected payout to explicit recipient %x", payee)
	}
}

func TestExecuteSaleSoleControllerIsDefaultRecipient(t *testing.T) {
	f := newFixture()
	f.adapter.amountOut = big.NewInt(100)
	controller := addr(9)
	f.resolver.controllers[addr(1)] = [][20]byte{controller}

	result, err := f.engine.ExecuteSale(operatorAddr, BatchRequest{
		PointToken:  "PTS",
		OutputToken: "USDQ",
		Accounts:    [][20]byte{addr(1)},
		Claims:      []Claim{claimOf(1, big.NewInt(10))},
	})
	if err != nil {
		t.Fatalf("execute sale: %v", err)
	}
	if result.Payouts[0].Recipient != controller {
		t.Fatalf("expected payout to sole controller, got %x", result.Payouts[0].Recipient)
	}
}

func TestExecuteSaleGatewayFailureAborts(t *testing.T) {
	f := newFixture()
	f.adapter.amountOut = big.NewInt(100)
	var bad [32]byte
	bad[31] = 2
	f.gateway.failEntitle = &bad

	_, err := f.engine.ExecuteSale(operatorAddr, BatchRequest{
		PointToken:  "PTS",
		OutputToken: "USDQ",
		Accounts:    [][20]byte{addr(1), addr(2)},
		Claims:      []Claim{claimOf(1, big.NewInt(10)), claimOf(2, big.NewInt(10))},
	})
	if err == nil || err.Error() != "gateway: invalid proof" {
		t.Fatalf("expected verbatim gateway error, got %v", err)
	}
	if len(f.ledger.transfers) != 0 {
		t.Fatalf("aborted settlement must not transfer")
	}
}

func TestExecuteSaleZeroFeeSkipsFeeTransfer(t *testing.T) {
	f := newFixture()
	f.fees.rateBps = 0
	f.adapter.amountOut = big.NewInt(100)

	result, err := f.engine.ExecuteSale(operatorAddr, BatchRequest{
		PointToken:  "PTS",
		OutputToken: "USDQ",
		Accounts:    [][20]byte{addr(1)},
		Claims:      []Claim{claimOf(1, big.NewInt(10))},
	})
	if err != nil {
		t.Fatalf("execute sale: %v", err)
	}
	if result.FeeAmount.Sign() != 0 {
		t.Fatalf("expected zero fee, got %s", result.FeeAmount)
	}
	for _, tr := range f.ledger.transfers {
		if tr.to == operatorAddr {
			t.Fatalf("zero fee must not produce an operator transfer")
		}
	}
}

func TestExecuteSaleClaimsTargetCustody(t *testing.T) {
	f := newFixture()
	f.adapter.amountOut = big.NewInt(100)

	_, err := f.engine.ExecuteSale(operatorAddr, BatchRequest{
		PointToken:  "PTS",
		OutputToken: "USDQ",
		Accounts:    [][20]byte{addr(1), addr(2)},
		Claims:      []Claim{claimOf(1, big.NewInt(4)), claimOf(2, big.NewInt(6))},
	})
	if err != nil {
		t.Fatalf("execute sale: %v", err)
	}
	if len(f.gateway.submissions) != 1 {
		t.Fatalf("expected a single combined submission, got %d", len(f.gateway.submissions))
	}
	for _, call := range f.gateway.submissions[0] {
		if call.Receiver != custodyAddr {
			t.Fatalf("claim receiver must be the custody address")
		}
	}
	if f.adapter.lastIn.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("expected aggregate swap input 10, got %s", f.adapter.lastIn)
	}
}

func TestExecuteSaleEmitsCompletionEvent(t *testing.T) {
	captured := make([]events.Event, 0, 1)
	f := newFixture()
	f.adapter.amountOut = big.NewInt(100)
	f.engine.SetEmitter(emitterFunc(func(evt events.Event) { captured = append(captured, evt) }))

	_, err := f.engine.ExecuteSale(operatorAddr, BatchRequest{
		PointToken:  "PTS",
		OutputToken: "USDQ",
		Accounts:    [][20]byte{addr(1)},
		Claims:      []Claim{claimOf(1, big.NewInt(10))},
	})
	if err != nil {
		t.Fatalf("execute sale: %v", err)
	}
	if len(captured) != 1 || captured[0].EventType() != events.TypeSettlementCompleted {
		t.Fatalf("expected settlement.completed event, got %v", captured)
	}
}

func TestExecuteSaleCheckedAccumulationOverflow(t *testing.T) {
	f := newFixture()
	f.adapter.amountOut = big.NewInt(100)

	// 2^256-1 is the largest representable token amount; a second claim
	// pushes the running total past it.
	huge := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	_, err := f.engine.ExecuteSale(operatorAddr, BatchRequest{
		PointToken:  "PTS",
		OutputToken: "USDQ",
		Accounts:    [][20]byte{addr(1), addr(2)},
		Claims:      []Claim{claimOf(1, huge), claimOf(2, big.NewInt(1))},
	})
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if len(f.gateway.submissions) != 0 {
		t.Fatalf("overflowing batch must not reach the gateway, got %d submissions", len(f.gateway.submissions))
	}
	if len(f.ledger.transfers) != 0 {
		t.Fatalf("overflowing batch must not move funds, got %d transfers", len(f.ledger.transfers))
	}
}

type emitterFunc func(events.Event)

func (f emitterFunc) Emit(evt events.Event) { f(evt) }
