package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/emperorhan/htlc-reward-claimer/internal/domain/model"
	"gopkg.in/yaml.v3"
)

// FeeModel selects how claim transactions are priced on a network.
type FeeModel string

const (
	FeeModelAuto    FeeModel = "auto"
	FeeModelLegacy  FeeModel = "legacy"
	FeeModelEIP1559 FeeModel = "eip1559"
)

const (
	DefaultPollingInterval = 2 * time.Minute
	DefaultBlockRange      = 100
	DefaultClaimBufferSec  = 2
	DefaultRateLimitRPS    = 10
	DefaultRateLimitBurst  = 20
)

// Network is the per-chain configuration shared by the ingestor, the
// scheduler and the claimer.
type Network struct {
	Name            model.Network `yaml:"name"`
	ChainID         int64         `yaml:"chain_id"`
	RPCURL          string        `yaml:"rpc_url"`
	HTLCContract    string        `yaml:"htlc_contract"`
	PollingInterval time.Duration `yaml:"polling_interval"`
	BlockRange      uint64        `yaml:"block_range"`
	ClaimBufferSec  int64         `yaml:"claim_buffer_sec"`
	Testnet         bool          `yaml:"testnet"`
	FeeModel        FeeModel      `yaml:"fee_model"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
}

type networksFile struct {
	Networks []Network `yaml:"networks"`
}

// builtinNetworks mirrors the networks the claimer has been deployed on.
var builtinNetworks = []Network{
	{Name: model.NetworkEthereum, ChainID: 1, BlockRange: 100},
	{Name: model.NetworkOptimism, ChainID: 10, BlockRange: 100, ClaimBufferSec: 7},
	{Name: model.NetworkEthereumSepolia, ChainID: 11155111, BlockRange: 100, Testnet: true},
	{Name: model.NetworkOptimismSepolia, ChainID: 11155420, BlockRange: 300, Testnet: true},
	{Name: model.NetworkArbitrumSepolia, ChainID: 421614, BlockRange: 300, Testnet: true},
}

// LoadNetworks reads a yaml networks file. ${VAR} references are expanded
// from the environment so RPC keys stay out of the file.
func LoadNetworks(path string) ([]Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read networks file: %w", err)
	}
	return ParseNetworks([]byte(os.ExpandEnv(string(data))))
}

func ParseNetworks(data []byte) ([]Network, error) {
	var file networksFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse networks: %w", err)
	}

	seen := make(map[model.Network]struct{}, len(file.Networks))
	networks := make([]Network, 0, len(file.Networks))
	for _, n := range file.Networks {
		n.Name = model.NormalizeNetwork(string(n.Name))
		n.applyDefaults()
		if err := n.validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[n.Name]; dup {
			return nil, fmt.Errorf("network %s configured twice", n.Name)
		}
		seen[n.Name] = struct{}{}
		networks = append(networks, n)
	}
	return networks, nil
}

// DefaultNetworks returns the built-in network table; a network is enabled
// when <NAME>_RPC_URL is set. <NAME>_HTLC_CONTRACT supplies the contract.
// Alias spellings of NAME are accepted as well.
func DefaultNetworks() []Network {
	var networks []Network
	for _, n := range builtinNetworks {
		prefixes := []string{strings.ToUpper(string(n.Name))}
		for _, alias := range n.Name.Aliases() {
			prefixes = append(prefixes, string(alias))
		}
		n.RPCURL = firstEnv(prefixes, "_RPC_URL")
		if n.RPCURL == "" {
			continue
		}
		n.HTLCContract = firstEnv(prefixes, "_HTLC_CONTRACT")
		n.applyDefaults()
		networks = append(networks, n)
	}
	return networks
}

// firstEnv returns the first non-empty <prefix><suffix> variable.
func firstEnv(prefixes []string, suffix string) string {
	for _, p := range prefixes {
		if v := getEnv(p+suffix, ""); v != "" {
			return v
		}
	}
	return ""
}

// ClaimBuffer is the safety margin subtracted from the reward timelock.
func (n Network) ClaimBuffer() time.Duration {
	return time.Duration(n.ClaimBufferSec) * time.Second
}

func (n *Network) applyDefaults() {
	if n.PollingInterval <= 0 {
		n.PollingInterval = DefaultPollingInterval
	}
	if n.BlockRange == 0 {
		n.BlockRange = DefaultBlockRange
	}
	if n.ClaimBufferSec <= 0 {
		n.ClaimBufferSec = DefaultClaimBufferSec
	}
	if n.FeeModel == "" {
		n.FeeModel = FeeModelAuto
	}
	if n.RateLimitRPS <= 0 {
		n.RateLimitRPS = DefaultRateLimitRPS
	}
	if n.RateLimitBurst <= 0 {
		n.RateLimitBurst = DefaultRateLimitBurst
	}
}

func (n Network) validate() error {
	if n.Name == "" {
		return fmt.Errorf("network name is required")
	}
	if n.ChainID <= 0 {
		return fmt.Errorf("network %s: chain_id is required", n.Name)
	}
	if n.RPCURL == "" {
		return fmt.Errorf("network %s: rpc_url is required", n.Name)
	}
	switch n.FeeModel {
	case FeeModelAuto, FeeModelLegacy, FeeModelEIP1559:
	default:
		return fmt.Errorf("network %s: unsupported fee_model %q", n.Name, n.FeeModel)
	}
	return nil
}
