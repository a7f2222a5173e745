package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	ErrReceiptNotFound           = errors.New("transaction receipt not found")
	ErrTransactionReverted       = errors.New("transaction reverted")
	ErrTransferNotFound          = errors.New("no matching token transfer in transaction")
	ErrInsufficientConfirmations = errors.New("transaction does not have enough confirmations")
)

// transferTopic is topics[0] of an ERC-20 Transfer(address,address,uint256) log
var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// ReceiptFetcher is the slice of the JSON-RPC client the verifier needs.
// *ethclient.Client satisfies it.
type ReceiptFetcher interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Config describes the token payment a ticket purchase must carry
type Config struct {
	TokenAddress      string
	ReceiverAddress   string
	TokenDecimals     int32
	MinConfirmations  uint64
	RequestsPerSecond float64
}

// PaymentVerifier checks ticket payments against transaction receipts on an EVM chain
type PaymentVerifier struct {
	client           ReceiptFetcher
	token            common.Address
	receiver         common.Address
	decimals         int32
	minConfirmations uint64
	limiter          *rate.Limiter
}

// Dial connects to the RPC endpoint and returns a verifier using it
func Dial(ctx context.Context, rpcURL string, cfg Config) (*PaymentVerifier, func(), error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial chain rpc: %w", err)
	}
	verifier, err := NewPaymentVerifier(client, cfg)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	log.WithFields(log.Fields{
		"token":    verifier.token.Hex(),
		"receiver": verifier.receiver.Hex(),
	}).Info("Connected to chain rpc")
	return verifier, client.Close, nil
}

// NewPaymentVerifier creates a verifier over an existing client
func NewPaymentVerifier(client ReceiptFetcher, cfg Config) (*PaymentVerifier, error) {
	if !common.IsHexAddress(cfg.TokenAddress) {
		return nil, fmt.Errorf("invalid token address %q", cfg.TokenAddress)
	}
	if !common.IsHexAddress(cfg.ReceiverAddress) {
		return nil, fmt.Errorf("invalid receiver address %q", cfg.ReceiverAddress)
	}
	if cfg.TokenDecimals < 0 {
		return nil, fmt.Errorf("token decimals cannot be negative")
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}

	return &PaymentVerifier{
		client:           client,
		token:            common.HexToAddress(cfg.TokenAddress),
		receiver:         common.HexToAddress(cfg.ReceiverAddress),
		decimals:         cfg.TokenDecimals,
		minConfirmations: cfg.MinConfirmations,
		limiter:          rate.NewLimiter(limit, burst),
	}, nil
}

// VerifyPayment returns nil only for a successful, sufficiently confirmed transaction
// carrying a Transfer of exactly expectedAmount tokens from the token contract to the receiver.
func (v *PaymentVerifier) VerifyPayment(ctx context.Context, paymentTxID string, expectedAmount decimal.Decimal) error {
	want, err := v.baseUnits(expectedAmount)
	if err != nil {
		return err
	}

	if err := v.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rpc rate limit wait: %w", err)
	}
	receipt, err := v.client.TransactionReceipt(ctx, common.HexToHash(paymentTxID))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return ErrReceiptNotFound
		}
		return fmt.Errorf("failed to fetch receipt: %w", err)
	}
	if receipt == nil {
		return ErrReceiptNotFound
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return ErrTransactionReverted
	}

	if v.minConfirmations > 0 {
		if err := v.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rpc rate limit wait: %w", err)
		}
		head, err := v.client.BlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch block number: %w", err)
		}
		if got := confirmations(head, receipt.BlockNumber); got < v.minConfirmations {
			return fmt.Errorf("%w: have %d, need %d", ErrInsufficientConfirmations, got, v.minConfirmations)
		}
	}

	for _, l := range receipt.Logs {
		if v.isExpectedTransfer(l, want) {
			return nil
		}
	}
	return ErrTransferNotFound
}

func (v *PaymentVerifier) isExpectedTransfer(l *types.Log, want *big.Int) bool {
	if l == nil || l.Removed || l.Address != v.token {
		return false
	}
	if len(l.Topics) != 3 || l.Topics[0] != transferTopic {
		return false
	}
	if common.BytesToAddress(l.Topics[2].Bytes()) != v.receiver {
		return false
	}
	return new(big.Int).SetBytes(l.Data).Cmp(want) == 0
}

// baseUnits converts a token amount to its integer on-chain representation
func (v *PaymentVerifier) baseUnits(amount decimal.Decimal) (*big.Int, error) {
	scaled := amount.Shift(v.decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %s has more precision than the token's %d decimals", amount, v.decimals)
	}
	return scaled.BigInt(), nil
}

func confirmations(head uint64, block *big.Int) uint64 {
	if block == nil || !block.IsUint64() || block.Uint64() > head {
		return 0
	}
	return head - block.Uint64() + 1
}
