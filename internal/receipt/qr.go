package receipt

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QRGenerator produces the payment QR shown on the customer display. It is
// display-only: the encoded link carries the order reference and amount, no
// gateway is called.
type QRGenerator interface {
	Generate(orderID, amount int64) ([]byte, error)
}

type DefaultQRGenerator struct {
	BaseURL string
}

func (g DefaultQRGenerator) Generate(orderID, amount int64) ([]byte, error) {
	data := fmt.Sprintf("%s/pay?order=%d&amount=%d", g.BaseURL, orderID, amount)
	return qrcode.Encode(data, qrcode.Medium, 256)
}
