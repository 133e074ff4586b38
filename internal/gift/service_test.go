package gift

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"giftrails/internal/wallet"
	"giftrails/internal/wallet/wallettest"
	"giftrails/internal/wow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	network    = "base-sepolia"
	escrowAddr = "0x00000000000000000000000000000000000000e5"
	tokenAddr  = "0x00000000000000000000000000000000000000cc"
	recipient  = "0x00000000000000000000000000000000000000b0"
	giver      = "0x00000000000000000000000000000000000000a0"

	// Hash the recording wallet assigns to the first invocation.
	firstTx = "0x0000000000000000000000000000000000000000000000000000000000000001"
)

type fakeQuoter struct {
	buy       *big.Int
	err       error
	market    uint8
	marketErr error

	calls []string
}

func (f *fakeQuoter) MarketType(context.Context, string, string) (uint8, error) {
	f.calls = append(f.calls, "market")
	return f.market, f.marketErr
}

func (f *fakeQuoter) BuyQuote(_ context.Context, _, _ string, wei *big.Int) (*big.Int, error) {
	f.calls = append(f.calls, "buy:"+wei.String())
	return f.buy, f.err
}

func (f *fakeQuoter) SellQuote(context.Context, string, string, *big.Int) (*big.Int, error) {
	return nil, errors.New("not used")
}

type fakePricer struct {
	usdc *big.Int
	err  error

	gotTokens *big.Int
}

func (f *fakePricer) USDCValue(_ context.Context, _, _ string, tokens *big.Int) (*big.Int, error) {
	f.gotTokens = tokens
	return f.usdc, f.err
}

type stepLog struct{ steps []string }

func (s *stepLog) ObserveStep(step string, _ time.Duration, err error) {
	if err != nil {
		step += "!"
	}
	s.steps = append(s.steps, step)
}

func newService(t *testing.T, q wow.Quoter, p *fakePricer, obs StepObserver) *Service {
	t.Helper()
	svc, err := NewService(q, p, Options{
		Escrows:  map[string]string{network: escrowAddr},
		Observer: obs,
	})
	require.NoError(t, err)
	return svc
}

func validInput() Input {
	return Input{
		AmountEthInWei:  "1000000000000000", // 0.001 ETH
		MemecoinAddress: tokenAddr,
		Recipient:       recipient,
		Giver:           giver,
	}
}

func TestTransferSequencesQuoteBuyPriceEscrow(t *testing.T) {
	q := &fakeQuoter{buy: big.NewInt(5_000_000)}
	p := &fakePricer{usdc: big.NewInt(2_000_000)}
	obs := &stepLog{}
	svc := newService(t, q, p, obs)
	w := wallettest.New(network)

	res, err := svc.Transfer(context.Background(), w, validInput())
	require.NoError(t, err)

	assert.Equal(t, []string{StepQuote, StepBuy, StepPrice, StepEscrow}, obs.steps)
	assert.Equal(t, []string{"market", "buy:1000000000000000"}, q.calls)
	assert.Equal(t, "5000000", p.gotTokens.String())
	assert.Equal(t, []string{"buy", "createGift"}, w.Methods())

	invs := w.Invocations()
	buy := invs[0]
	assert.Equal(t, tokenAddr, buy.ContractAddress)
	assert.Equal(t, wow.TokenABI, buy.ABI)
	assert.Equal(t, "1030000000000000", buy.Amount.String(), "amount plus 3% fee")
	assert.Equal(t, escrowAddr, buy.Args["recipient"])
	assert.Equal(t, wallettest.DefaultAddress, buy.Args["refundRecipient"])
	assert.Equal(t, wallet.ZeroAddress, buy.Args["orderReferrer"])
	assert.Equal(t, "0", buy.Args["expectedMarketType"])
	assert.Equal(t, "4950000", buy.Args["minOrderSize"], "1% slippage")
	assert.Equal(t, "0", buy.Args["sqrtPriceLimitX96"])
	assert.Equal(t, "Gift purchase for "+recipient, buy.Args["comment"])

	create := invs[1]
	assert.Equal(t, escrowAddr, create.ContractAddress)
	assert.Equal(t, tokenAddr, create.Args["token"])
	assert.Equal(t, recipient, create.Args["recipient"])
	assert.Equal(t, giver, create.Args["giver"])
	assert.Equal(t, "2000000", create.Args["redeemableUsdcAmount"])
	assert.Equal(t, "1000000000000000", create.Args["initialBuyPrice"])

	assert.Equal(t, "30000000000000", res.Quote.PlatformFee.String())
	assert.Equal(t, invs[1].Method, "createGift")
	assert.NotEqual(t, res.BuyTxHash, res.GiftTx.TxHash)
}

func TestTransferMessage(t *testing.T) {
	svc := newService(t, &fakeQuoter{buy: big.NewInt(5_000_000)}, &fakePricer{usdc: big.NewInt(2_500_000)}, nil)
	w := wallettest.New(network)

	msg := svc.Run(context.Background(), w, validInput())

	lines := strings.Split(msg, "\n")
	require.Len(t, lines, 12)
	assert.Equal(t, "Created gift transfer with fixed USDC redemption:", lines[0])
	assert.Equal(t, "- Purchased 5000000 tokens of "+tokenAddr, lines[1])
	assert.Equal(t, "- From: "+giver, lines[2])
	assert.Equal(t, "- To: "+recipient, lines[3])
	assert.Equal(t, "- Initial ETH spent: 0.001 ETH", lines[4])
	assert.Equal(t, "- Platform fee: 0.00003 ETH", lines[5])
	assert.Equal(t, "- Fixed USDC redemption value: 2.5 USDC", lines[6])
	assert.Equal(t, "  1. The memecoin tokens", lines[8])
	assert.Equal(t, "  2. The fixed USDC amount", lines[9])
	assert.True(t, strings.HasPrefix(lines[10], "Gift creation tx: 0x"))
	assert.True(t, strings.HasPrefix(lines[11], "Transaction link: https://explorer.test/tx/0x"))
}

func TestRunReportsFailuresAsSingleMessage(t *testing.T) {
	cases := []struct {
		name    string
		quoter  *fakeQuoter
		pricer  *fakePricer
		wallet  func() *wallettest.Wallet
		input   func(Input) Input
		want    string
		methods []string
	}{
		{
			name:   "quote fails",
			quoter: &fakeQuoter{err: errors.New("execution reverted")},
			want:   "Error in gift transfer: buy quote: execution reverted",
		},
		{
			name:   "token graduated",
			quoter: &fakeQuoter{buy: big.NewInt(100), market: wow.MarketUniswap},
			want:   "Error in gift transfer: token no longer trades on its bonding curve: " + tokenAddr,
		},
		{
			name:   "market type fails",
			quoter: &fakeQuoter{marketErr: errors.New("rpc down")},
			want:   "Error in gift transfer: market type: rpc down",
		},
		{
			name:   "buy reverts",
			quoter: &fakeQuoter{buy: big.NewInt(100)},
			wallet: func() *wallettest.Wallet {
				w := wallettest.New(network)
				w.WaitErr["buy"] = fmt.Errorf("buy %w", wallet.ErrReverted)
				return w
			},
			want:    "Error in gift transfer: buy: buy reverted",
			methods: []string{"buy"},
		},
		{
			name:   "buy receipt unknown",
			quoter: &fakeQuoter{buy: big.NewInt(100)},
			wallet: func() *wallettest.Wallet {
				w := wallettest.New(network)
				w.WaitErr["buy"] = errors.New("wait for receipt: timeout")
				return w
			},
			want:    "Error in gift transfer: buy: wait for receipt: timeout (buy tx " + firstTx + " already sent)",
			methods: []string{"buy"},
		},
		{
			name:    "pricing fails",
			quoter:  &fakeQuoter{buy: big.NewInt(100)},
			pricer:  &fakePricer{err: errors.New("sell quote: rpc down")},
			want:    "Error in gift transfer: usdc price: sell quote: rpc down (buy tx " + firstTx + " already sent)",
			methods: []string{"buy"},
		},
		{
			name:   "escrow submit fails",
			quoter: &fakeQuoter{buy: big.NewInt(100)},
			wallet: func() *wallettest.Wallet {
				w := wallettest.New(network)
				w.SubmitErr["createGift"] = errors.New("insufficient funds")
				return w
			},
			want:    "Error in gift transfer: createGift: insufficient funds (buy tx " + firstTx + " already sent)",
			methods: []string{"buy", "createGift"},
		},
		{
			name:   "bad amount",
			quoter: &fakeQuoter{buy: big.NewInt(100)},
			input: func(in Input) Input {
				in.AmountEthInWei = "0.5"
				return in
			},
			want: `Error in gift transfer: invalid input: amount_eth_in_wei: invalid integer "0.5"`,
		},
		{
			name:   "bad recipient",
			quoter: &fakeQuoter{buy: big.NewInt(100)},
			input: func(in Input) Input {
				in.Recipient = "alice"
				return in
			},
			want: `Error in gift transfer: invalid input: recipient is not an address: "alice"`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pricer := tc.pricer
			if pricer == nil {
				pricer = &fakePricer{usdc: big.NewInt(1)}
			}
			w := wallettest.New(network)
			if tc.wallet != nil {
				w = tc.wallet()
			}
			in := validInput()
			if tc.input != nil {
				in = tc.input(in)
			}
			svc := newService(t, tc.quoter, pricer, nil)

			assert.Equal(t, tc.want, svc.Run(context.Background(), w, in))
			assert.Equal(t, tc.methods, w.Methods())
		})
	}
}

func TestTransferFailureAfterBuyCarriesBuyTx(t *testing.T) {
	svc := newService(t, &fakeQuoter{buy: big.NewInt(100)}, &fakePricer{usdc: big.NewInt(1)}, nil)
	w := wallettest.New(network)
	w.WaitErr["createGift"] = fmt.Errorf("createGift %w", wallet.ErrReverted)

	_, err := svc.Transfer(context.Background(), w, validInput())

	var partial *PartialTransferError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, firstTx, partial.BuyTxHash)
	assert.Equal(t, "https://explorer.test/tx/"+firstTx, partial.BuyTxLink)
	assert.ErrorIs(t, err, wallet.ErrReverted)
}

func TestTransferRefusesGraduatedTokenBeforeBuying(t *testing.T) {
	q := &fakeQuoter{buy: big.NewInt(100), market: wow.MarketUniswap}
	svc := newService(t, q, &fakePricer{usdc: big.NewInt(1)}, nil)
	w := wallettest.New(network)

	_, err := svc.Transfer(context.Background(), w, validInput())
	assert.ErrorIs(t, err, ErrTokenGraduated)
	assert.Equal(t, []string{"market"}, q.calls)
	assert.Empty(t, w.Invocations())
}

func TestTransferWithoutEscrowForNetwork(t *testing.T) {
	q := &fakeQuoter{buy: big.NewInt(1)}
	svc := newService(t, q, &fakePricer{usdc: big.NewInt(1)}, nil)
	w := wallettest.New("base-mainnet")

	_, err := svc.Transfer(context.Background(), w, validInput())
	assert.ErrorIs(t, err, ErrNoEscrow)
	assert.Empty(t, q.calls, "no quote before escrow is known")
	assert.Empty(t, w.Invocations())
}

func TestFeesAndSlippageFloor(t *testing.T) {
	svc, err := NewService(&fakeQuoter{}, &fakePricer{}, Options{PlatformFeeBps: Bps(250), SlippageBps: Bps(50)})
	require.NoError(t, err)

	fee, total := svc.Fees(big.NewInt(999))
	assert.Equal(t, "24", fee.String())
	assert.Equal(t, "1023", total.String())
	assert.Equal(t, "994", svc.MinOrderSize(big.NewInt(999)).String())

	_, err = NewService(&fakeQuoter{}, &fakePricer{}, Options{SlippageBps: Bps(10_000)})
	assert.Error(t, err)
	_, err = NewService(nil, &fakePricer{}, Options{})
	assert.Error(t, err)
}

func TestZeroFeeAndSlippageAreHonored(t *testing.T) {
	svc, err := NewService(&fakeQuoter{}, &fakePricer{}, Options{PlatformFeeBps: Bps(0), SlippageBps: Bps(0)})
	require.NoError(t, err)

	fee, total := svc.Fees(big.NewInt(1_000_000))
	assert.Equal(t, "0", fee.String())
	assert.Equal(t, "1000000", total.String())
	assert.Equal(t, "1000000", svc.MinOrderSize(big.NewInt(1_000_000)).String())

	defaults, err := NewService(&fakeQuoter{}, &fakePricer{}, Options{})
	require.NoError(t, err)
	fee, _ = defaults.Fees(big.NewInt(1_000_000))
	assert.Equal(t, "30000", fee.String())
}

func TestRedeem(t *testing.T) {
	obs := &stepLog{}
	svc := newService(t, &fakeQuoter{}, &fakePricer{}, obs)
	w := wallettest.New(network)

	res, err := svc.Redeem(context.Background(), w, RedeemInput{GiftID: "12", Choice: "usdc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"redeemGift"}, w.Methods())
	assert.Equal(t, []string{StepRedeem}, obs.steps)
	assert.True(t, strings.HasPrefix(res.Message(), "Redeemed gift 12 as USDC\n"))

	msg := svc.RunRedeem(context.Background(), w, RedeemInput{GiftID: "x", Choice: "usdc"})
	assert.Equal(t, `Error in gift redemption: invalid input: gift_id must be a non-negative integer: "x"`, msg)

	msg = svc.RunRedeem(context.Background(), w, RedeemInput{GiftID: "1", Choice: "eth"})
	assert.Contains(t, msg, "unknown redemption choice")
}
