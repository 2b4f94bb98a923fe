package model

import "time"

type SwapStatus string

const (
	SwapStatusInProgress SwapStatus = "IN_PROGRESS"
	SwapStatusRedeemed   SwapStatus = "REDEEMED"
	SwapStatusRefunded   SwapStatus = "REFUNDED"
)

// Swap is one row per HTLC id. Absence of the row is the terminal state.
type Swap struct {
	ID             string     `db:"id" json:"id"`
	SrcNetwork     *Network   `db:"src_network" json:"src_network,omitempty"`
	SrcAsset       *string    `db:"src_asset" json:"src_asset,omitempty"`
	DstNetwork     *Network   `db:"dst_network" json:"dst_network,omitempty"`
	DstAsset       *string    `db:"dst_asset" json:"dst_asset,omitempty"`
	Hashlock       *string    `db:"hashlock" json:"hashlock,omitempty"`
	Timelock       *int64     `db:"timelock" json:"timelock,omitempty"`
	Reward         *string    `db:"reward" json:"reward,omitempty"` // NUMERIC(78,0) as string
	RewardTimelock *int64     `db:"reward_timelock" json:"reward_timelock,omitempty"`
	Secret         *string    `db:"secret" json:"secret,omitempty"`
	Status         SwapStatus `db:"status" json:"status"`
	ScheduledAt    *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// HasSecret reports whether a redeem has already revealed the secret.
func (s *Swap) HasSecret() bool {
	return s.Secret != nil && *s.Secret != ""
}

// SwapPatch is a partial update. Nil fields are left untouched.
type SwapPatch struct {
	Secret      *string
	Status      *SwapStatus
	ScheduledAt *time.Time
}

func (p SwapPatch) IsEmpty() bool {
	return p.Secret == nil && p.Status == nil && p.ScheduledAt == nil
}
