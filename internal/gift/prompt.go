package gift

const (
	TransferActionName = "gift_transfer"
	RedeemActionName   = "gift_redeem"
)

const TransferPrompt = `
This tool enables gift transfer of a memecoin with a fixed USDC redemption option. The sender buys
the memecoin which is locked in escrow, and the recipient can choose to either:
1. Receive the memecoin
2. Receive the fixed USDC amount (equal to sender's initial buy price)
An NFT receipt is minted upon redemption showing whether the sender profited or lost based on
the memecoin's current value.`

const RedeemPrompt = `
This tool redeems a gift held in escrow. The recipient chooses to receive either the memecoin
tokens or the fixed USDC amount recorded when the gift was created.`
