package qrcode

import (
	"bytes"
	"image/png"
	"testing"

	"fitgate/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRCodeService_EncodePNG(t *testing.T) {
	cfg := &config.Config{
		QRCode: &config.QRCodeConfig{Size: 128, ErrorCorrectionLevel: "M"},
	}
	svc := NewQRCodeService(cfg)

	data, err := svc.EncodePNG("https://fitgate.example.com/api/v1/auth/handoff/redeem/abc")
	require.NoError(t, err)
	require.NotEmpty(t, data)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err, "output must be a decodable PNG")
	assert.Equal(t, 128, img.Bounds().Dx())
	assert.Equal(t, 128, img.Bounds().Dy())
}

func TestQRCodeService_DefaultsWithoutConfig(t *testing.T) {
	svc := NewQRCodeService(&config.Config{})

	data, err := svc.EncodePNG("payload")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
