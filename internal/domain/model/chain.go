package model

import "strings"

// Network is the canonical upper-case network name used in HTLC events
// (the contract's dstChain field) and in configuration.
type Network string

// NetworkEthereumSepolia keeps the spelling the deployed contracts emit in
// dstChain; "ETHEREUM_SEPOLIA" is accepted as an alias.
const (
	NetworkEthereum        Network = "ETHEREUM"
	NetworkOptimism        Network = "OPTIMISM"
	NetworkEthereumSepolia Network = "ETHEREUM_SEPIOLA"
	NetworkOptimismSepolia Network = "OPTIMISM_SEPOLIA"
	NetworkArbitrumSepolia Network = "ARBITRUM_SEPOLIA"
)

func (n Network) String() string {
	return string(n)
}

// networkAliases maps alternate spellings onto the canonical name.
var networkAliases = map[Network]Network{
	"ETHEREUM_SEPOLIA": NetworkEthereumSepolia,
}

// NormalizeNetwork upper-cases and trims a network name and resolves
// aliases, so values coming from events, env and yaml compare equal.
func NormalizeNetwork(raw string) Network {
	n := Network(strings.ToUpper(strings.TrimSpace(raw)))
	if canonical, ok := networkAliases[n]; ok {
		return canonical
	}
	return n
}

// Aliases returns the alternate spellings that normalize to n.
func (n Network) Aliases() []Network {
	var out []Network
	for alias, canonical := range networkAliases {
		if canonical == n {
			out = append(out, alias)
		}
	}
	return out
}

// NormalizeAddress lower-cases a hex address or id.
func NormalizeAddress(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
