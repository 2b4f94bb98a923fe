package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/emperorhan/htlc-reward-claimer/internal/chain"
	"github.com/emperorhan/htlc-reward-claimer/internal/chain/ratelimit"
	"github.com/emperorhan/htlc-reward-claimer/internal/domain/model"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is the subset of ethclient.Client used by Client.
type Backend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type FeeModel string

const (
	FeeModelAuto    FeeModel = "auto"
	FeeModelLegacy  FeeModel = "legacy"
	FeeModelEIP1559 FeeModel = "eip1559"
)

type Config struct {
	Network             model.Network
	ChainID             int64
	RPCURL              string
	Contract            string
	PrivateKey          string // hex, optional 0x prefix
	FeeModel            FeeModel
	RateLimitRPS        float64
	RateLimitBurst      int
	ConfirmPollInterval time.Duration
}

// Client talks to one network's Train contract on behalf of the claimer wallet.
type Client struct {
	network      model.Network
	chainID      *big.Int
	contract     common.Address
	key          *ecdsa.PrivateKey
	wallet       common.Address
	feeModel     FeeModel
	pollInterval time.Duration
	backend      Backend
	guard        *ratelimit.Guard
	logger       *slog.Logger
}

var _ chain.Client = (*Client)(nil)

var errReadOnly = errors.New("client has no wallet key")

// Dial connects to cfg.RPCURL.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.RPCURL) == "" {
		return nil, fmt.Errorf("%s: rpc url required", cfg.Network)
	}
	backend, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s rpc: %w", cfg.Network, err)
	}
	return New(backend, cfg, logger)
}

func New(backend Backend, cfg Config, logger *slog.Logger) (*Client, error) {
	if !common.IsHexAddress(cfg.Contract) {
		return nil, fmt.Errorf("%s: invalid htlc contract address %q", cfg.Network, cfg.Contract)
	}
	// An empty key yields a read-only client for ingestion.
	var key *ecdsa.PrivateKey
	var wallet common.Address
	if raw := strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x"); raw != "" {
		var err error
		key, err = crypto.HexToECDSA(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: parse wallet key: %w", cfg.Network, err)
		}
		wallet = crypto.PubkeyToAddress(key.PublicKey)
	}
	if cfg.FeeModel == "" {
		cfg.FeeModel = FeeModelAuto
	}
	if cfg.ConfirmPollInterval <= 0 {
		cfg.ConfirmPollInterval = 2 * time.Second
	}
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 10
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 20
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		network:      cfg.Network,
		chainID:      big.NewInt(cfg.ChainID),
		contract:     common.HexToAddress(cfg.Contract),
		key:          key,
		wallet:       wallet,
		feeModel:     cfg.FeeModel,
		pollInterval: cfg.ConfirmPollInterval,
		backend:      backend,
		guard:        ratelimit.NewGuard(cfg.Network.String(), cfg.RateLimitRPS, cfg.RateLimitBurst),
		logger:       logger.With("component", "evm_client", "network", cfg.Network),
	}, nil
}

func (c *Client) Network() model.Network { return c.network }

func (c *Client) ChainID() int64 { return c.chainID.Int64() }

func (c *Client) WalletAddress() string {
	return model.NormalizeAddress(c.wallet.Hex())
}

// Guard exposes the RPC guard so health reporting can read breaker state.
func (c *Client) Guard() *ratelimit.Guard { return c.guard }

func (c *Client) CurrentBlockHeight(ctx context.Context) (uint64, error) {
	var height uint64
	err := c.guard.Call(ctx, "eth_blockNumber", func(ctx context.Context) error {
		var err error
		height, err = c.backend.BlockNumber(ctx)
		return err
	})
	return height, err
}

func (c *Client) EventLogs(ctx context.Context, from, to uint64) ([]chain.RawLog, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{c.contract},
		Topics:    [][]common.Hash{eventTopics()},
	}

	var logs []types.Log
	err := c.guard.Call(ctx, "eth_getLogs", func(ctx context.Context) error {
		var err error
		logs, err = c.backend.FilterLogs(ctx, query)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("logs %d-%d: %w", from, to, err)
	}

	out := make([]chain.RawLog, 0, len(logs))
	for _, l := range logs {
		topics := make([]string, len(l.Topics))
		for i, t := range l.Topics {
			topics[i] = t.Hex()
		}
		out = append(out, chain.RawLog{
			Address:     model.NormalizeAddress(l.Address.Hex()),
			Topics:      topics,
			Data:        l.Data,
			BlockNumber: l.BlockNumber,
			TxHash:      l.TxHash.Hex(),
			Index:       l.Index,
			Removed:     l.Removed,
		})
	}
	return out, nil
}

func (c *Client) WalletBalance(ctx context.Context) (*big.Int, error) {
	var balance *big.Int
	err := c.guard.Call(ctx, "eth_getBalance", func(ctx context.Context) error {
		var err error
		balance, err = c.backend.BalanceAt(ctx, c.wallet, nil)
		return err
	})
	return balance, err
}

func (c *Client) PendingNonce(ctx context.Context, address string) (uint64, error) {
	if !common.IsHexAddress(address) {
		return 0, fmt.Errorf("invalid address %q", address)
	}
	var nonce uint64
	err := c.guard.Call(ctx, "eth_getTransactionCount", func(ctx context.Context) error {
		var err error
		nonce, err = c.backend.PendingNonceAt(ctx, common.HexToAddress(address))
		return err
	})
	return nonce, err
}

func (c *Client) IsClaimable(ctx context.Context, swapID string) (bool, error) {
	id, err := parseSwapID(swapID)
	if err != nil {
		return false, err
	}
	data, err := trainABI.Pack(methodDetails, id)
	if err != nil {
		return false, fmt.Errorf("pack %s: %w", methodDetails, err)
	}

	var out []byte
	err = c.guard.Call(ctx, "eth_call", func(ctx context.Context) error {
		var err error
		out, err = c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
		return err
	})
	if err != nil {
		return false, err
	}

	values, err := trainABI.Unpack(methodDetails, out)
	if err != nil {
		return false, fmt.Errorf("unpack %s: %w", methodDetails, err)
	}
	if len(values) != 1 {
		return false, fmt.Errorf("unpack %s: unexpected %d values", methodDetails, len(values))
	}
	details := *abi.ConvertType(values[0], new(htlcDetails)).(*htlcDetails)
	return details.Claimed != htlcRefunded && details.Claimed != htlcRedeemed, nil
}

func (c *Client) EstimateGas(ctx context.Context, swapID, secret string) (uint64, error) {
	data, err := packRedeem(swapID, secret)
	if err != nil {
		return 0, err
	}
	var gas uint64
	err = c.guard.Call(ctx, "eth_estimateGas", func(ctx context.Context) error {
		var err error
		gas, err = c.backend.EstimateGas(ctx, ethereum.CallMsg{From: c.wallet, To: &c.contract, Data: data})
		return err
	})
	return gas, err
}

// FeeSuggestion reports EIP-1559 fields only when the latest header
// carries a base fee and the network is not pinned to legacy pricing.
func (c *Client) FeeSuggestion(ctx context.Context) (chain.FeeSuggestion, error) {
	var fees chain.FeeSuggestion

	err := c.guard.Call(ctx, "eth_gasPrice", func(ctx context.Context) error {
		var err error
		fees.GasPrice, err = c.backend.SuggestGasPrice(ctx)
		return err
	})
	if err != nil {
		return fees, err
	}
	if c.feeModel == FeeModelLegacy {
		return fees, nil
	}

	var header *types.Header
	err = c.guard.Call(ctx, "eth_getBlockByNumber", func(ctx context.Context) error {
		var err error
		header, err = c.backend.HeaderByNumber(ctx, nil)
		return err
	})
	if err != nil {
		return fees, err
	}
	if header == nil || header.BaseFee == nil {
		if c.feeModel == FeeModelEIP1559 {
			return fees, fmt.Errorf("%s: latest header has no base fee", c.network)
		}
		return fees, nil
	}

	var tip *big.Int
	err = c.guard.Call(ctx, "eth_maxPriorityFeePerGas", func(ctx context.Context) error {
		var err error
		tip, err = c.backend.SuggestGasTipCap(ctx)
		return err
	})
	if err != nil {
		if c.feeModel == FeeModelEIP1559 {
			return fees, err
		}
		c.logger.Warn("priority fee unavailable, using legacy pricing", "error", err)
		return fees, nil
	}

	fees.BaseFee = new(big.Int).Set(header.BaseFee)
	fees.MaxPriorityFeePerGas = tip
	fees.MaxFeePerGas = new(big.Int).Add(new(big.Int).Mul(header.BaseFee, big.NewInt(2)), tip)
	return fees, nil
}

func (c *Client) SubmitRedeem(ctx context.Context, swapID, secret string, opts chain.TxOptions) (chain.PendingTx, error) {
	if c.key == nil {
		return nil, errReadOnly
	}
	data, err := packRedeem(swapID, secret)
	if err != nil {
		return nil, err
	}

	var inner types.TxData
	if opts.IsDynamicFee() {
		inner = &types.DynamicFeeTx{
			ChainID:   c.chainID,
			Nonce:     opts.Nonce,
			GasTipCap: opts.MaxPriorityFeePerGas,
			GasFeeCap: opts.MaxFeePerGas,
			Gas:       opts.GasLimit,
			To:        &c.contract,
			Value:     new(big.Int),
			Data:      data,
		}
	} else {
		if opts.GasPrice == nil {
			return nil, errors.New("legacy transaction requires gas price")
		}
		inner = &types.LegacyTx{
			Nonce:    opts.Nonce,
			GasPrice: opts.GasPrice,
			Gas:      opts.GasLimit,
			To:       &c.contract,
			Value:    new(big.Int),
			Data:     data,
		}
	}

	signed, err := types.SignTx(types.NewTx(inner), types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return nil, fmt.Errorf("sign redeem: %w", err)
	}
	err = c.guard.Call(ctx, "eth_sendRawTransaction", func(ctx context.Context) error {
		return c.backend.SendTransaction(ctx, signed)
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("redeem submitted", "swap_id", swapID, "tx_hash", signed.Hash().Hex(), "nonce", opts.Nonce)
	return &pendingTx{client: c, hash: signed.Hash()}, nil
}

type pendingTx struct {
	client *Client
	hash   common.Hash
}

func (p *pendingTx) Hash() string {
	return p.hash.Hex()
}

// Wait polls for the receipt until it is available or ctx is done.
func (p *pendingTx) Wait(ctx context.Context) (*chain.Receipt, error) {
	ticker := time.NewTicker(p.client.pollInterval)
	defer ticker.Stop()

	for {
		var receipt *types.Receipt
		err := p.client.guard.Call(ctx, "eth_getTransactionReceipt", func(ctx context.Context) error {
			var err error
			receipt, err = p.client.backend.TransactionReceipt(ctx, p.hash)
			return err
		})
		switch {
		case err == nil && receipt != nil:
			out := &chain.Receipt{
				Success:           receipt.Status == types.ReceiptStatusSuccessful,
				GasUsed:           receipt.GasUsed,
				EffectiveGasPrice: receipt.EffectiveGasPrice,
			}
			if receipt.BlockNumber != nil {
				out.BlockNumber = receipt.BlockNumber.Uint64()
			}
			return out, nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			return nil, fmt.Errorf("receipt %s: %w", p.hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
