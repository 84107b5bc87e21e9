package state

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	launchSaleIndexKeyBytes = []byte("launch/sales")
	bankAssetIndexKeyBytes  = []byte("bank/assets")
	ammPairIndexKeyBytes    = []byte("amm/pairs")
)

func addrHex(addr common.Address) string {
	return strings.ToLower(addr.Hex()[2:])
}

// LaunchSaleIndexKey stores the list of sale assets with a launch engine.
func LaunchSaleIndexKey() []byte { return append([]byte(nil), launchSaleIndexKeyBytes...) }

// LaunchSaleKey stores the configuration and aggregate of the sale for asset.
func LaunchSaleKey(asset common.Address) []byte {
	return []byte(fmt.Sprintf("launch/sale/%s", addrHex(asset)))
}

// LaunchParticipantKey stores a participant record within a sale.
func LaunchParticipantKey(asset, participant common.Address) []byte {
	return []byte(fmt.Sprintf("launch/sale/%s/participant/%s", addrHex(asset), addrHex(participant)))
}

// LaunchParticipantIndexKey lists every address that ever deposited into a sale.
func LaunchParticipantIndexKey(asset common.Address) []byte {
	return []byte(fmt.Sprintf("launch/sale/%s/participants", addrHex(asset)))
}

// BankAssetIndexKey lists the registered asset addresses.
func BankAssetIndexKey() []byte { return append([]byte(nil), bankAssetIndexKeyBytes...) }

// BankAssetKey stores asset metadata.
func BankAssetKey(asset common.Address) []byte {
	return []byte(fmt.Sprintf("bank/asset/%s", addrHex(asset)))
}

// BankBalanceKey stores the balance of holder in asset.
func BankBalanceKey(asset, holder common.Address) []byte {
	return []byte(fmt.Sprintf("bank/balance/%s/%s", addrHex(asset), addrHex(holder)))
}

// AMMPairIndexKey lists the created pair addresses.
func AMMPairIndexKey() []byte { return append([]byte(nil), ammPairIndexKeyBytes...) }

// AMMPairKey stores the reserves of a pair.
func AMMPairKey(pair common.Address) []byte {
	return []byte(fmt.Sprintf("amm/pair/%s", addrHex(pair)))
}

// VoteLockKey stores the lock held by owner.
func VoteLockKey(owner common.Address) []byte {
	return []byte(fmt.Sprintf("votelock/lock/%s", addrHex(owner)))
}
