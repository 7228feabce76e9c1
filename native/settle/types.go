package settle

import "math/big"

// Claim carries one account's entitlement release for a single settlement.
// Claims are produced from the operator's off-chain bookkeeping and consumed
// exactly once; the engine never stores them.
type Claim struct {
	EntitlementID  [32]byte
	TotalClaimable *big.Int
	AmountToClaim  *big.Int
	Proof          [][32]byte
}

// BatchRequest describes one atomic batch sale. Accounts and Claims are
// parallel slices; PriceFloor is denominated in output-token units per whole
// point unit, scaled to the output token's precision.
type BatchRequest struct {
	PointToken     string
	OutputToken    string
	Accounts       [][20]byte
	Claims         []Claim
	PriceFloor     *big.Int
	ExchangeParams []byte
}

// Payout records the amount transferred for one account in a settlement.
type Payout struct {
	Account   [20]byte
	Recipient [20]byte
	Amount    *big.Int
}

// SettlementResult summarises one executed batch. The dust is the floor
// division remainder: sum(payouts) + fee + dust == amountOut, and dust stays
// strictly below the number of accounts in the batch.
type SettlementResult struct {
	ID           [32]byte
	PointToken   string
	OutputToken  string
	TotalClaimed *big.Int
	AmountOut    *big.Int
	FeeAmount    *big.Int
	Payouts      []Payout
	Dust         *big.Int
}

// ClaimCall pairs a claim with its target account and receiver for combined
// submission.
type ClaimCall struct {
	Claim    Claim
	Account  [20]byte
	Receiver [20]byte
}

// ClaimGateway is the external issuance service releasing entitlements. A
// combined submission executes each sub-call all-or-nothing: when any single
// claim fails the whole call fails with no partial effects.
type ClaimGateway interface {
	Claim(claim Claim, account, receiver [20]byte) error
	CombinedSubmit(calls []ClaimCall) error
	ClaimedAmount(account [20]byte, entitlementID [32]byte) (*big.Int, error)
}

// Ledger is the token-transfer primitive the engine moves balances through.
// The engine is the only writer of the balances it touches.
type Ledger interface {
	Transfer(token string, from, to [20]byte, amount *big.Int) error
	BalanceOf(token string, addr [20]byte) (*big.Int, error)
}

// PreferenceReader exposes the live preference state consulted during
// settlement.
type PreferenceReader interface {
	MinPrice(account [20]byte, token string) (*big.Int, error)
	Recipient(account [20]byte) (*[20]byte, error)
}

// FeeReader exposes the current fee rate in basis points.
type FeeReader interface {
	Rate() (uint32, error)
}
