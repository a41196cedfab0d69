package valueobjects

import "fmt"

type GatewayType string

const (
	GatewayYookassa      GatewayType = "yookassa"
	GatewayTelegramStars GatewayType = "telegram_stars"
	GatewayCryptopay     GatewayType = "cryptopay"
)

func NewGatewayType(s string) (GatewayType, error) {
	gt := GatewayType(s)
	if !gt.IsValid() {
		return "", fmt.Errorf("invalid gateway type: %s", s)
	}
	return gt, nil
}

func (gt GatewayType) IsValid() bool {
	switch gt {
	case GatewayYookassa, GatewayTelegramStars, GatewayCryptopay:
		return true
	default:
		return false
	}
}

// HasWebhook reports whether the gateway confirms payments over HTTP.
// Telegram Stars confirmations arrive through the bot update stream instead.
func (gt GatewayType) HasWebhook() bool {
	return gt != GatewayTelegramStars
}

func (gt GatewayType) String() string {
	return string(gt)
}
