package service

import "loyalty/internal/model"

const (
	RewardCashback = "cashback"
	RewardVoucher  = "voucher"
	RewardGiftCard = "gift-card"
)

var rewardCatalog = []model.RewardOption{
	{Type: RewardCashback, Name: "Cashback", PointsRequired: 100, Description: "₹10 cashback to your account"},
	{Type: RewardVoucher, Name: "Shopping Voucher", PointsRequired: 500, Description: "₹50 shopping voucher"},
	{Type: RewardGiftCard, Name: "Gift Card", PointsRequired: 1000, Description: "₹100 gift card"},
}

// Catalog returns a copy of the fixed reward catalog in display order.
func Catalog() []model.RewardOption {
	out := make([]model.RewardOption, len(rewardCatalog))
	copy(out, rewardCatalog)
	return out
}

// ValidRewardType reports whether t names a catalog entry.
func ValidRewardType(t string) bool {
	for _, o := range rewardCatalog {
		if o.Type == t {
			return true
		}
	}
	return false
}
