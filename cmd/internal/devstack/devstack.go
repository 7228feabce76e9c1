// Package devstack provides in-process bindings for the external
// collaborators of the settlement engine: a token ledger, a claim gateway,
// an exchange venue, and an ownership resolver. They back the daemon in
// local development; production deployments replace them with real
// integrations.
package devstack

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"pointsale/native/settle"
)

// MemoryLedger is a thread-safe in-memory token balance ledger.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]map[[20]byte]*big.Int
}

// NewMemoryLedger constructs an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[string]map[[20]byte]*big.Int)}
}

func (l *MemoryLedger) bucket(token string) map[[20]byte]*big.Int {
	token = strings.ToUpper(strings.TrimSpace(token))
	bucket, ok := l.balances[token]
	if !ok {
		bucket = make(map[[20]byte]*big.Int)
		l.balances[token] = bucket
	}
	return bucket
}

// Mint credits freshly issued tokens to the address.
func (l *MemoryLedger) Mint(token string, to [20]byte, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	bucket := l.bucket(token)
	current, ok := bucket[to]
	if !ok {
		current = big.NewInt(0)
	}
	bucket[to] = new(big.Int).Add(current, amount)
}

// Burn removes tokens from the address, saturating at zero.
func (l *MemoryLedger) Burn(token string, from [20]byte, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	bucket := l.bucket(token)
	current, ok := bucket[from]
	if !ok || current.Cmp(amount) < 0 {
		bucket[from] = big.NewInt(0)
		return
	}
	bucket[from] = new(big.Int).Sub(current, amount)
}

// Transfer implements the settle.Ledger interface.
func (l *MemoryLedger) Transfer(token string, from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return errors.New("devstack: transfer amount must not be negative")
	}
	if amount.Sign() == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	bucket := l.bucket(token)
	balance, ok := bucket[from]
	if !ok || balance.Cmp(amount) < 0 {
		return fmt.Errorf("devstack: insufficient %s balance", token)
	}
	bucket[from] = new(big.Int).Sub(balance, amount)
	current, ok := bucket[to]
	if !ok {
		current = big.NewInt(0)
	}
	bucket[to] = new(big.Int).Add(current, amount)
	return nil
}

// BalanceOf implements the settle.Ledger interface.
func (l *MemoryLedger) BalanceOf(token string, addr [20]byte) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	balance, ok := l.bucket(token)[addr]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(balance), nil
}

// Gateway releases entitlements by minting the claimed point tokens straight
// into the receiver's ledger balance. Proofs are not verified; claim-proof
// validation belongs to the real issuance service.
type Gateway struct {
	PointToken string
	Ledger     *MemoryLedger
}

// Claim implements the settle.ClaimGateway interface.
func (g *Gateway) Claim(claim settle.Claim, account, receiver [20]byte) error {
	return g.CombinedSubmit([]settle.ClaimCall{{Claim: claim, Account: account, Receiver: receiver}})
}

// CombinedSubmit implements the all-or-nothing combined claim call. Inputs
// are validated before any mint so a bad claim leaves no partial effects.
func (g *Gateway) CombinedSubmit(calls []settle.ClaimCall) error {
	if g == nil || g.Ledger == nil {
		return errors.New("devstack: gateway ledger not configured")
	}
	for _, call := range calls {
		amount := call.Claim.AmountToClaim
		if amount == nil || amount.Sign() < 0 {
			return errors.New("devstack: claim amount must not be negative")
		}
		if call.Claim.TotalClaimable != nil && amount.Cmp(call.Claim.TotalClaimable) > 0 {
			return errors.New("devstack: claim exceeds total claimable")
		}
	}
	for _, call := range calls {
		g.Ledger.Mint(g.PointToken, call.Receiver, call.Claim.AmountToClaim)
	}
	return nil
}

// ClaimedAmount implements the settle.ClaimGateway interface.
func (g *Gateway) ClaimedAmount(account [20]byte, entitlementID [32]byte) (*big.Int, error) {
	return big.NewInt(0), nil
}

// Venue executes swaps at a fixed rate against the in-memory ledger. The
// rate is expressed the same way settlement price floors are: output units
// per input unit, scaled by the output token's precision.
type Venue struct {
	Ledger     *MemoryLedger
	Custody    [20]byte
	Rate       *big.Int
	Precisions map[string]*big.Int

	mu         sync.Mutex
	allowances map[string]*big.Int
}

// SwapExactIn implements the exchange.Venue interface.
func (v *Venue) SwapExactIn(path []string, amountIn, minOut *big.Int, deadline uint64) (*big.Int, error) {
	if v == nil || v.Ledger == nil {
		return nil, errors.New("devstack: venue ledger not configured")
	}
	if len(path) < 2 {
		return nil, errors.New("devstack: path too short")
	}
	tokenIn := path[0]
	tokenOut := path[len(path)-1]
	precision, err := v.Precision(tokenOut)
	if err != nil {
		return nil, err
	}
	amountOut := new(big.Int).Mul(amountIn, v.Rate)
	amountOut = amountOut.Div(amountOut, precision)
	if minOut != nil && amountOut.Cmp(minOut) < 0 {
		return nil, fmt.Errorf("devstack: venue output %s below minimum %s", amountOut, minOut)
	}
	v.Ledger.Burn(tokenIn, v.Custody, amountIn)
	v.Ledger.Mint(tokenOut, v.Custody, amountOut)
	return amountOut, nil
}

// Allowance implements the exchange.Venue interface.
func (v *Venue) Allowance(token string) (*big.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.allowances == nil {
		return big.NewInt(0), nil
	}
	allowance, ok := v.allowances[token]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(allowance), nil
}

// Approve implements the exchange.Venue interface.
func (v *Venue) Approve(token string, amount *big.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.allowances == nil {
		v.allowances = make(map[string]*big.Int)
	}
	v.allowances[token] = new(big.Int).Set(amount)
	return nil
}

// Precision implements the exchange.Venue interface.
func (v *Venue) Precision(token string) (*big.Int, error) {
	precision, ok := v.Precisions[strings.ToUpper(strings.TrimSpace(token))]
	if !ok || precision == nil || precision.Sign() <= 0 {
		return nil, fmt.Errorf("devstack: no precision configured for %s", token)
	}
	return new(big.Int).Set(precision), nil
}

// Resolver reports a static controller set per account.
type Resolver struct {
	Owners map[[20]byte][][20]byte
}

// IsController implements the prefs.OwnershipResolver interface.
func (r *Resolver) IsController(account, identity [20]byte) (bool, error) {
	if r == nil {
		return false, nil
	}
	for _, owner := range r.Owners[account] {
		if owner == identity {
			return true, nil
		}
	}
	return false, nil
}

// Controllers implements the prefs.OwnershipResolver interface.
func (r *Resolver) Controllers(account [20]byte) ([][20]byte, error) {
	if r == nil {
		return nil, nil
	}
	return r.Owners[account], nil
}
