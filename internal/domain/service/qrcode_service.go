package service

// QRCodeService renders handoff redeem URLs as QR code images.
type QRCodeService interface {
	// EncodePNG renders the payload string as a PNG image.
	EncodePNG(payload string) ([]byte, error)
}
