package mediator

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Minimal ABIs for the two settlement contracts. Only the operations the
// mediators invoke are declared; the contracts themselves carry more surface.
const stakingABIJSON = `[
	{"type":"function","name":"stake","stateMutability":"payable","inputs":[{"name":"skill","type":"string"}],"outputs":[]},
	{"type":"function","name":"recordMilestone","stateMutability":"nonpayable","inputs":[{"name":"owner","type":"address"},{"name":"skill","type":"string"},{"name":"milestoneId","type":"uint8"}],"outputs":[]},
	{"type":"function","name":"claimRefund","stateMutability":"nonpayable","inputs":[{"name":"owner","type":"address"},{"name":"skill","type":"string"},{"name":"finalScore","type":"uint8"}],"outputs":[]},
	{"type":"function","name":"withdrawTreasury","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"stakes","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"skill","type":"string"}],"outputs":[{"name":"amount","type":"uint256"},{"name":"stakedAt","type":"uint256"},{"name":"milestoneCheckpoint","type":"uint8"},{"name":"attestationComplete","type":"bool"},{"name":"refunded","type":"bool"}]}
]`

const attestationABIJSON = `[
	{"type":"function","name":"submitAttestation","stateMutability":"nonpayable","inputs":[{"name":"owner","type":"address"},{"name":"skill","type":"string"},{"name":"score","type":"uint8"},{"name":"timestamp","type":"uint256"},{"name":"signature","type":"bytes"},{"name":"ipfsHash","type":"string"},{"name":"milestoneScores","type":"uint8[]"}],"outputs":[]},
	{"type":"function","name":"verifyAttestation","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"skill","type":"string"}],"outputs":[{"name":"exists","type":"bool"},{"name":"score","type":"uint8"},{"name":"timestamp","type":"uint256"},{"name":"signature","type":"bytes"}]},
	{"type":"function","name":"getAttestationHistory","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"skills","type":"string[]"}]},
	{"type":"function","name":"updateAttestor","stateMutability":"nonpayable","inputs":[{"name":"newAttestor","type":"address"}],"outputs":[]}
]`

var (
	stakingABI     = mustParseABI(stakingABIJSON)
	attestationABI = mustParseABI(attestationABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
